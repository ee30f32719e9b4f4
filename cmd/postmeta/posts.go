package main

import (
	"fmt"
	"time"

	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/core/formatter"
	"github.com/spf13/cobra"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Manage posts",
	Long: `Create and inspect posts as a given user.

Examples:
  postmeta posts create --as=alice@example.com --title="Hello" --status=publish
  postmeta posts get 42 --as=alice@example.com --context=edit
  postmeta posts list -o json`,
}

var postsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a post",
	RunE:  runPostsCreate,
}

var postsGetCmd = &cobra.Command{
	Use:   "get <post-id>",
	Short: "Show a post with its fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostsGet,
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts",
	RunE:  runPostsList,
}

var (
	postAs      string
	postTitle   string
	postContent string
	postStatus  string
	postContext string
	postLimit   int
	postOffset  int
)

func init() {
	rootCmd.AddCommand(postsCmd)

	postsCmd.AddCommand(postsCreateCmd)
	postsCmd.AddCommand(postsGetCmd)
	postsCmd.AddCommand(postsListCmd)

	postsCmd.PersistentFlags().StringVar(&postAs, "as", "", "act as this user ID or email (default: anonymous)")

	postsCreateCmd.Flags().StringVar(&postTitle, "title", "", "post title")
	postsCreateCmd.Flags().StringVar(&postContent, "content", "", "post content")
	postsCreateCmd.Flags().StringVar(&postStatus, "status", "draft", "draft, publish or private")

	postsGetCmd.Flags().StringVar(&postContext, "context", "view", "view or edit")

	postsListCmd.Flags().IntVar(&postLimit, "limit", 20, "maximum posts to list")
	postsListCmd.Flags().IntVar(&postOffset, "offset", 0, "posts to skip")
}

func runPostsCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	caller, err := callerFor(cmd, a, postAs)
	if err != nil {
		return err
	}
	view, err := a.Posts.Create(cmd.Context(), caller, app.CreateInput{
		Title:   postTitle,
		Content: postContent,
		Status:  postStatus,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Created post: %s\n", checkMark, view.Post.IDString())
	return nil
}

func runPostsGet(cmd *cobra.Command, args []string) error {
	f, err := output()
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	caller, err := callerFor(cmd, a, postAs)
	if err != nil {
		return err
	}
	view, err := a.Posts.Get(cmd.Context(), caller, args[0], postContext)
	if err != nil {
		return err
	}
	return f.FormatRecord(cmd.OutOrStdout(), "post", postRecord(view), formatter.FormatOptions{})
}

func runPostsList(cmd *cobra.Command, args []string) error {
	f, err := output()
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	caller, err := callerFor(cmd, a, postAs)
	if err != nil {
		return err
	}
	views, _, err := a.Posts.List(cmd.Context(), caller, postLimit, postOffset)
	if err != nil {
		return err
	}

	records := make([]formatter.Record, 0, len(views))
	for _, v := range views {
		records = append(records, postRecord(v))
	}
	return f.FormatList(cmd.OutOrStdout(), "posts", records, formatter.FormatOptions{
		Columns:  []string{"id", "title", "status", "author", "modified"},
		MaxWidth: 40,
	})
}

func postRecord(v app.PostView) formatter.Record {
	rec := formatter.Record{
		"id":       v.Post.IDString(),
		"title":    v.Post.Title,
		"content":  v.Post.Content,
		"status":   v.Post.Status,
		"author":   v.Post.AuthorID,
		"date":     v.Post.CreatedAt.UTC().Format(time.RFC3339),
		"modified": v.Post.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for name, value := range v.Fields {
		rec[name] = value
	}
	return rec
}
