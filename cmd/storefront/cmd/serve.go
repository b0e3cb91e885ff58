package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/adapter/inbound/http"
	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/config"
	"github.com/lumenshop/storefront/internal/domain/ratelimit"
)

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 10 * time.Second

var (
	devMode    bool
	listenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the catalog, cart, checkout and session operations as a JSON API.

Routes:
  GET    /api/products            ?category=&price=&sort=&featured=&where=
  GET    /api/products/featured
  GET    /api/products/{slug}
  GET    /api/categories
  GET    /api/cart
  POST   /api/cart/items
  PUT    /api/cart/items/{id}
  DELETE /api/cart/items/{id}
  DELETE /api/cart
  GET    /api/checkout/quote      ?shipping=standard|express
  POST   /api/checkout
  GET    /api/orders              ?limit=
  POST   /api/auth/signup
  POST   /api/auth/signin
  POST   /api/auth/signout
  GET    /api/auth/me
  GET    /health
  GET    /metrics

Examples:
  storefront serve
  storefront serve --addr 0.0.0.0:9000 --dev`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, tracing)")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides server.http_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(cmd.Context(), gracefulSignals()...)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("shutdown failed", "error", err)
		}
	}()

	addr := a.cfg.Server.HTTPAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		a.logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	limiter := memory.NewAttemptLimiter()
	limiter.StartCleanup(ctx)
	defer limiter.Stop()

	api := http.NewAPIHandler(
		http.WithCatalogService(a.catalogs),
		http.WithCartService(a.carts),
		http.WithCheckoutService(a.checkouts),
		http.WithAccountService(a.accounts),
		http.WithAuthRateLimit(limiter, ratelimit.PerMinute(a.cfg.Server.AuthAttemptsPerMinute)),
		http.WithAPILogger(a.logger),
	)
	srv := http.NewServer(api,
		http.WithAddr(addr),
		http.WithLogger(a.logger),
		http.WithRegistry(a.registry),
		http.WithHealthChecker(http.NewHealthChecker(a.store, a.catalog, Version)),
	)

	printBanner(Version, addr, a.cfg)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("storefront stopped")
	return nil
}

// printBanner prints the startup summary to stderr. Only serve prints it;
// stdout belongs to the protocol stream in mcp mode.
func printBanner(version, addr string, cfg *config.StorefrontConfig) {
	const (
		reset  = "\033[0m"
		bold   = "\033[1m"
		cyan   = "\033[36m"
		green  = "\033[32m"
		yellow = "\033[33m"
		dim    = "\033[2m"
	)

	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}

	modeStr := green + "production" + reset
	if cfg.DevMode {
		modeStr = yellow + "development" + reset
	}
	storage := cfg.Storage.Backend
	if cfg.Storage.Path != "" && cfg.Storage.Backend != config.BackendMemory {
		storage += " " + dim + cfg.Storage.Path + reset
	}
	catalogSrc := "built-in"
	if cfg.Catalog.File != "" {
		catalogSrc = cfg.Catalog.File
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  %s%s Storefront %s%s\n", bold, cyan, version, reset)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "  %-14s %s/api\n", "API:", baseURL)
	fmt.Fprintf(os.Stderr, "  %-14s %s/metrics\n", "Metrics:", baseURL)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Mode:", modeStr)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Storage:", storage)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Catalog:", catalogSrc)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "\n")
}

// pidFilePath returns the standard location for the server PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".storefront", "server.pid")
	}
	return filepath.Join(os.TempDir(), "storefront-server.pid")
}

// writePIDFile writes the current process PID to path, creating parent
// directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// readPIDFile returns the PID stored at path, or 0 if it is missing or invalid.
func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil {
		return 0
	}
	return pid
}
