package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Manage API keys.

Keys authenticate requests through the X-API-Key header or as a bearer
credential. The raw key is shown once, at creation.

Examples:
  postmeta keys create --user=alice@example.com --name=ci
  postmeta keys revoke key_0190...`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a user",
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var (
	keyUser string
	keyName string
	keyTTL  time.Duration
)

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRevokeCmd)

	keysCreateCmd.Flags().StringVar(&keyUser, "user", "", "user ID or email (required)")
	keysCreateCmd.Flags().StringVar(&keyName, "name", "default", "key name")
	keysCreateCmd.Flags().DurationVar(&keyTTL, "ttl", 0, "key lifetime (0 = never expires)")
	keysCreateCmd.MarkFlagRequired("user")
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	caller, err := app.Auth.IdentityFor(cmd.Context(), keyUser)
	if err != nil {
		return err
	}

	raw, k, err := app.Auth.CreateKey(cmd.Context(), caller.UserID, keyName, keyTTL)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created API key: %s\n", checkMark, k.ID)
	fmt.Fprintf(out, "   Key:  %s\n", raw)
	if k.ExpiresAt != nil {
		fmt.Fprintf(out, "   Expires: %s\n", k.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Store the key now; it cannot be shown again.")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if err := app.Auth.RevokeKey(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Revoked API key: %s\n", checkMark, args[0])
	return nil
}
