// ABOUTME: Post commands for the clientcd CLI
// ABOUTME: Lists, shows, creates, edits, and deletes posts, refusing mutations the session may not make

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ToniTF/clientcd/internal/authz"
	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/tui/styles"
)

var (
	postTitle   string
	postContent string
	skipConfirm bool
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Read and manage blog posts",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts with a short excerpt",
	Args:  cobra.NoArgs,
	Run:   runWithExit(func(ctx context.Context, w io.Writer, _ []string) int { return runPostsList(ctx, w) }),
}

var postsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one post and whether you may change it",
	Args:  cobra.ExactArgs(1),
	Run:   runWithExit(func(ctx context.Context, w io.Writer, args []string) int { return runPostsShow(ctx, w, args[0]) }),
}

var postsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a post (requires login)",
	Long: `Create a post as the signed-in user.

Example:
  clientcd posts create --title "Hello" --content "First post"`,
	Args: cobra.NoArgs,
	Run:  runWithExit(func(ctx context.Context, w io.Writer, _ []string) int { return runPostsCreate(ctx, w) }),
}

var postsEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit the title or content of a post you own",
	Long: `Edit a post. Fields not given keep their current value.
Only the author or an administrator may edit a post.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		titleSet := cmd.Flags().Changed("title")
		contentSet := cmd.Flags().Changed("content")
		runWithExit(func(ctx context.Context, w io.Writer, args []string) int {
			return runPostsEdit(ctx, w, args[0], titleSet, contentSet)
		})(cmd, args)
	},
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a post you own",
	Long:  `Delete a post. Only the author or an administrator may delete a post.`,
	Args:  cobra.ExactArgs(1),
	Run:   runWithExit(func(ctx context.Context, w io.Writer, args []string) int { return runPostsDelete(ctx, w, args[0]) }),
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.AddCommand(postsListCmd, postsShowCmd, postsCreateCmd, postsEditCmd, postsDeleteCmd)

	postsCreateCmd.Flags().StringVar(&postTitle, "title", "", "Post title")
	postsCreateCmd.Flags().StringVar(&postContent, "content", "", "Post content")
	postsEditCmd.Flags().StringVar(&postTitle, "title", "", "New title")
	postsEditCmd.Flags().StringVar(&postContent, "content", "", "New content")
	postsDeleteCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Delete without asking for confirmation")
}

// confirmDelete asks before deleting; without a terminal it refuses
var confirmDelete = func(title string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, nil
	}
	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", title)).
				Description("This cannot be undone.").
				Affirmative("Delete").
				Negative("Keep").
				Value(&confirmed),
		),
	).WithTheme(styles.FormTheme()).Run()
	return confirmed, err
}

// postSummary is the JSON shape of a listed post
type postSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	CanModify bool   `json:"can_modify"`
}

// runPostsList prints every post and returns exit code
func runPostsList(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	posts, err := rt.client.ListPosts(ctx)
	if err != nil {
		return reportError(w, err, "could not load posts")
	}

	identity := rt.session.Current()
	summaries := make([]postSummary, 0, len(posts))
	for i := range posts {
		summaries = append(summaries, postSummary{
			ID:        posts[i].ID.String(),
			Title:     posts[i].Title,
			Excerpt:   posts[i].Excerpt(client.ExcerptLength),
			CanModify: authz.CanMutatePost(identity, &posts[i]),
		})
	}

	if IsJSONOutput() {
		writeJSON(w, summaries)
		return exitOK
	}
	fmt.Fprintln(w, formatPostsHuman(summaries))
	return exitOK
}

// formatPostsHuman formats the post list for human readability
func formatPostsHuman(posts []postSummary) string {
	if len(posts) == 0 {
		return "No posts yet."
	}
	var sb strings.Builder
	for i, p := range posts {
		if i > 0 {
			sb.WriteString("\n")
		}
		marker := ""
		if p.CanModify {
			marker = "  [yours]"
		}
		fmt.Fprintf(&sb, "#%s  %s%s\n", p.ID, p.Title, marker)
		fmt.Fprintf(&sb, "    %s\n", p.Excerpt)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// runPostsShow prints one post and returns exit code
func runPostsShow(ctx context.Context, w io.Writer, id string) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	post, err := rt.client.GetPost(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			fmt.Fprintln(w, "Error: post not found")
			return exitError
		}
		return reportError(w, err, "could not load the post")
	}

	canModify := authz.CanMutatePost(rt.session.Current(), post)
	if IsJSONOutput() {
		writeJSON(w, map[string]any{"post": post, "can_modify": canModify})
		return exitOK
	}

	fmt.Fprintf(w, "%s\n\n%s\n\n", post.Title, post.Content)
	if canModify {
		fmt.Fprintln(w, "You can edit or delete this post.")
	} else {
		fmt.Fprintln(w, "Read only.")
	}
	return exitOK
}

// runPostsCreate creates a post and returns exit code
func runPostsCreate(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	if !rt.session.Snapshot().Authenticated() {
		fmt.Fprintln(w, "You need to log in to create a post.")
		return exitRefused
	}

	post, err := rt.client.CreatePost(ctx, client.PostInput{Title: postTitle, Content: postContent})
	if err != nil {
		return reportError(w, err, "could not create the post")
	}

	if IsJSONOutput() {
		writeJSON(w, post)
		return exitOK
	}
	if post.ID != "" {
		fmt.Fprintf(w, "Created post #%s\n", post.ID)
	} else {
		fmt.Fprintln(w, "Created post")
	}
	return exitOK
}

// runPostsEdit updates a post the session may modify and returns exit code
func runPostsEdit(ctx context.Context, w io.Writer, id string, titleSet, contentSet bool) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	identity := rt.session.Current()
	if identity == nil {
		fmt.Fprintln(w, "You need to log in to edit a post.")
		return exitRefused
	}

	post, err := rt.client.GetPost(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			fmt.Fprintln(w, "Error: post not found")
			return exitError
		}
		return reportError(w, err, "could not load the post")
	}
	if !authz.CanMutatePost(identity, post) {
		fmt.Fprintln(w, "You are not allowed to edit this post.")
		return exitRefused
	}

	in := client.PostInput{Title: post.Title, Content: post.Content}
	if titleSet {
		in.Title = postTitle
	}
	if contentSet {
		in.Content = postContent
	}

	updated, err := rt.client.UpdatePost(ctx, post, in, identity)
	if err != nil {
		return reportError(w, err, "could not update the post")
	}

	if IsJSONOutput() {
		writeJSON(w, updated)
		return exitOK
	}
	fmt.Fprintf(w, "Updated post #%s\n", post.ID)
	return exitOK
}

// runPostsDelete deletes a post the session may modify and returns exit code
func runPostsDelete(ctx context.Context, w io.Writer, id string) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	identity := rt.session.Current()
	if identity == nil {
		fmt.Fprintln(w, "You need to log in to delete a post.")
		return exitRefused
	}

	post, err := rt.client.GetPost(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			fmt.Fprintln(w, "Error: post not found")
			return exitError
		}
		return reportError(w, err, "could not load the post")
	}
	if !authz.CanMutatePost(identity, post) {
		fmt.Fprintln(w, "You are not allowed to delete this post.")
		return exitRefused
	}

	if !skipConfirm {
		confirmed, err := confirmDelete(post.Title)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		if !confirmed {
			fmt.Fprintln(w, "Not deleted. Pass --yes to delete without a prompt.")
			return exitRefused
		}
	}

	if err := rt.client.DeletePost(ctx, post.ID.String()); err != nil {
		return reportError(w, err, "could not delete the post")
	}
	fmt.Fprintf(w, "Deleted post #%s\n", post.ID)
	return exitOK
}
