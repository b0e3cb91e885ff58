package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	accountName     string
	accountPassword string
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Sign up, sign in and sign out",
	Long: `Manage the mock customer session. Accounts are kept in the local state
store; nothing is sent anywhere.`,
}

var accountSignUpCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			u, err := a.accounts.SignUp(cmd.Context(), accountName, args[0], password)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Signed in as %s.\n", u.Name, u.Email)
			return nil
		})
	},
}

var accountSignInCmd = &cobra.Command{
	Use:   "signin <email>",
	Short: "Sign in to an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			u, err := a.accounts.SignIn(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", u.Email)
			return nil
		})
	},
}

var accountSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "End the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.accounts.SignOut(cmd.Context()); err != nil {
				return err
			}
			if !jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			}
			return nil
		})
	},
}

var accountWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in customer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			u, ok := a.accounts.Current()
			if jsonOutput {
				if !ok {
					return printJSON(cmd.OutOrStdout(), nil)
				}
				return printJSON(cmd.OutOrStdout(), u)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", u.Name, u.Email)
			return nil
		})
	},
}

// readPassword returns --password, or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if accountPassword != "" {
		return accountPassword, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	accountSignUpCmd.Flags().StringVar(&accountName, "name", "", "display name (required)")
	for _, c := range []*cobra.Command{accountSignUpCmd, accountSignInCmd} {
		c.Flags().StringVarP(&accountPassword, "password", "p", "", "password (read from stdin when omitted)")
	}

	accountCmd.AddCommand(accountSignUpCmd, accountSignInCmd, accountSignOutCmd, accountWhoamiCmd)
	rootCmd.AddCommand(accountCmd)
}
