package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/config"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the persisted cart and session state",
	Long: `Reset the storefront by removing the state file (or database) together
with its backup and lock files. The cart, the registered accounts and the
signed-in session are all lost.

Use this to recover from a corrupt state file.

Examples:
  storefront reset
  storefront reset --force --state ./demo.json`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

// stateFiles lists every file a backend may leave next to path.
func stateFiles(cfg *config.StorefrontConfig) []string {
	p := cfg.Storage.Path
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return []string{p, p + ".bak", p + ".lock", p + ".tmp"}
	case config.BackendSQLite:
		return []string{p, p + "-wal", p + "-shm"}
	default:
		return nil
	}
}

func runReset(cmd *cobra.Command, args []string) error {
	// Config is loaded without the app so a corrupt state file can still be removed.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()

	if cfg.Storage.Backend == config.BackendMemory {
		fmt.Fprintln(stderr, "The memory backend keeps no state. Nothing to reset.")
		return nil
	}

	var existing []string
	for _, path := range stateFiles(cfg) {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(stderr, "Nothing to reset, no state files found.")
		return nil
	}

	fmt.Fprintln(stderr, "The following will be removed:")
	for _, path := range existing {
		fmt.Fprintf(stderr, "  - %s\n", path)
	}

	if !resetForce {
		fmt.Fprint(stderr, "\nProceed? [y/N] ")
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer) //nolint:errcheck // empty answer means no
		if !strings.EqualFold(answer, "y") {
			fmt.Fprintln(stderr, "Aborted.")
			return nil
		}
	}

	var failed int
	for _, path := range existing {
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(stderr, "  ERROR removing %s: %v\n", path, err)
			failed++
		} else {
			fmt.Fprintf(stderr, "  Removed %s\n", path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be removed", failed)
	}

	fmt.Fprintln(stderr, "\nReset complete.")
	return nil
}
