// ABOUTME: Post feed component for the home screen
// ABOUTME: Lists posts with excerpts and marks the ones the viewer may change

package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ToniTF/clientcd/internal/authz"
	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/tui/icons"
	"github.com/ToniTF/clientcd/internal/tui/styles"
)

// Feed displays the list of posts
type Feed struct {
	posts    []client.Post
	loaded   bool
	identity *session.Identity
	cursor   int
	width    int
	height   int
}

// New creates an empty feed
func New(width, height int) *Feed {
	return &Feed{width: width, height: height}
}

// SetPosts replaces the listed posts, keeping the cursor in range
func (f *Feed) SetPosts(posts []client.Post) {
	f.posts = posts
	f.loaded = true
	if f.cursor >= len(posts) {
		f.cursor = max(0, len(posts)-1)
	}
}

// SetIdentity updates who is viewing the feed
func (f *Feed) SetIdentity(identity *session.Identity) {
	f.identity = identity
}

// SetSize updates the feed dimensions
func (f *Feed) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// Len returns the number of posts
func (f *Feed) Len() int {
	return len(f.posts)
}

// MoveUp moves the cursor to the previous post
func (f *Feed) MoveUp() {
	if f.cursor > 0 {
		f.cursor--
	}
}

// MoveDown moves the cursor to the next post
func (f *Feed) MoveDown() {
	if f.cursor < len(f.posts)-1 {
		f.cursor++
	}
}

// Selected returns the post under the cursor
func (f *Feed) Selected() (*client.Post, bool) {
	if len(f.posts) == 0 {
		return nil, false
	}
	return &f.posts[f.cursor], true
}

// CanModifySelected reports whether the viewer may edit or delete the selected post
func (f *Feed) CanModifySelected() bool {
	post, ok := f.Selected()
	if !ok {
		return false
	}
	return authz.CanMutatePost(f.identity, post)
}

// View renders the feed
func (f *Feed) View() string {
	if !f.loaded {
		return styles.Panel.Width(f.width).Render("Loading posts...")
	}

	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Post.String() + " Posts"))
	sb.WriteString("\n")

	if len(f.posts) == 0 {
		sb.WriteString(styles.Subtitle.Render("No posts yet."))
		return lipgloss.NewStyle().Width(f.width).Render(sb.String())
	}

	excerptWidth := max(20, f.width-6)
	start := f.firstVisible()
	for i := start; i < len(f.posts); i++ {
		if f.height > 0 && (i-start+1)*3 > f.height {
			break
		}
		sb.WriteString(f.renderPost(i, excerptWidth))
	}

	return lipgloss.NewStyle().
		Width(f.width).
		Render(sb.String())
}

// firstVisible scrolls so the cursor stays on screen, three lines per post
func (f *Feed) firstVisible() int {
	if f.height <= 0 {
		return 0
	}
	perPage := max(1, f.height/3)
	if f.cursor < perPage {
		return 0
	}
	return f.cursor - perPage + 1
}

func (f *Feed) renderPost(i, excerptWidth int) string {
	post := &f.posts[i]

	pointer := "  "
	titleStyle := lipgloss.NewStyle().Foreground(styles.Text)
	if i == f.cursor {
		pointer = lipgloss.NewStyle().Foreground(styles.Primary).Render("> ")
		titleStyle = styles.Selected
	}

	title := post.Title
	if title == "" {
		title = "(untitled)"
	}
	line := fmt.Sprintf("%s%s %s", pointer, styles.KeyStyle.Render("#"+post.ID.String()), titleStyle.Render(title))
	if authz.CanMutatePost(f.identity, post) {
		line += " " + lipgloss.NewStyle().Foreground(styles.Secondary).Render("[yours]")
	}

	excerpt := styles.Excerpt.Width(excerptWidth).MaxHeight(1).Render(post.Excerpt(client.ExcerptLength))
	return line + "\n    " + excerpt + "\n\n"
}
