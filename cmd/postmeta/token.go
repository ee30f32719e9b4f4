package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a bearer token for a user",
	Long: `Sign a bearer token for a user.

Tokens are signed with auth.jwt_secret and are only accepted by servers
sharing that secret.

Examples:
  postmeta token issue --user=alice@example.com`,
	RunE: runTokenIssue,
}

var tokenUser string

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().StringVar(&tokenUser, "user", "", "user ID or email (required)")
	tokenIssueCmd.MarkFlagRequired("user")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if app.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set; a token signed now would not verify on any server")
	}

	caller, err := app.Auth.IdentityFor(cmd.Context(), tokenUser)
	if err != nil {
		return err
	}
	token, exp, err := app.Auth.IssueToken(cmd.Context(), caller.UserID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
	return nil
}
