package main

import (
	"fmt"
	"time"

	"github.com/artpar/postmeta/core/formatter"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
	Long: `Manage postmeta users.

A user's role decides which posts it may edit: administrators and
editors edit any post, authors edit their own.

Examples:
  postmeta users list
  postmeta users create --email=alice@example.com --role=author`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUsersList,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  runUsersCreate,
}

var (
	userEmail string
	userName  string
	userRole  string
)

func init() {
	rootCmd.AddCommand(usersCmd)

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)

	usersCreateCmd.Flags().StringVar(&userEmail, "email", "", "user email (required)")
	usersCreateCmd.Flags().StringVar(&userName, "name", "", "user name")
	usersCreateCmd.Flags().StringVar(&userRole, "role", string(identity.RoleAuthor), "administrator, editor, author or subscriber")
	usersCreateCmd.MarkFlagRequired("email")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	f, err := output()
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	users, err := app.Auth.Users(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	records := make([]formatter.Record, 0, len(users))
	for _, u := range users {
		records = append(records, formatter.Record{
			"id":      u.ID,
			"email":   u.Email,
			"name":    u.Name,
			"role":    string(u.Role),
			"created": u.CreatedAt.Format(time.RFC3339),
		})
	}
	return f.FormatList(cmd.OutOrStdout(), "users", records, formatter.FormatOptions{
		Columns: []string{"id", "email", "name", "role", "created"},
	})
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	u, err := app.Auth.CreateUser(cmd.Context(), userEmail, userName, identity.Role(userRole))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created user: %s\n", checkMark, u.ID)
	fmt.Fprintf(out, "   Email: %s\n", u.Email)
	if u.Name != "" {
		fmt.Fprintf(out, "   Name:  %s\n", u.Name)
	}
	fmt.Fprintf(out, "   Role:  %s\n", u.Role)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Create an API key with: postmeta keys create --user="+u.ID)
	return nil
}
