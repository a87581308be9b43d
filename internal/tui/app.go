// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Manages screen state, follows the session store, and routes input to child components

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/ToniTF/clientcd/internal/authz"
	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/tui/feed"
	"github.com/ToniTF/clientcd/internal/tui/forms"
	"github.com/ToniTF/clientcd/internal/tui/icons"
	"github.com/ToniTF/clientcd/internal/tui/styles"
	"github.com/ToniTF/clientcd/internal/tui/widgets"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenHome
	ScreenDetail
	ScreenLogin
	ScreenRegister
	ScreenEditor
	ScreenConfirmDelete
)

// Layout constants
const (
	minTerminalWidth = 80 // Minimum width before the frame stops shrinking
	panelPadding     = 4  // Total horizontal padding from panel borders (2 each side)
)

const sessionEndedNotice = "Your session ended. Log in again to continue."

// rehydratedMsg is sent once the persisted session has been read
type rehydratedMsg struct {
	snapshot session.Snapshot
	err      error
}

// sessionChangedMsg carries the latest session snapshot after a transition
type sessionChangedMsg struct {
	snapshot session.Snapshot
}

// postsLoadedMsg is sent when the post list is fetched
type postsLoadedMsg struct {
	posts []client.Post
	err   error
}

// postLoadedMsg is sent when a single post is fetched
type postLoadedMsg struct {
	id   session.ID
	post *client.Post
	err  error
}

// signedInMsg is sent when a login attempt finishes
type signedInMsg struct {
	email    string
	identity *session.Identity
	err      error
}

// registeredMsg is sent when a registration attempt finishes
type registeredMsg struct {
	email string
	err   error
}

// postSavedMsg is sent when a create or update finishes
type postSavedMsg struct {
	post    *client.Post
	created bool
	err     error
}

// postDeletedMsg is sent when a delete finishes
type postDeletedMsg struct {
	id  session.ID
	err error
}

// App is the root model for the TUI
type App struct {
	ctx    context.Context
	client *client.Client
	store  *session.Store
	log    zerolog.Logger

	// changes is signalled by the store subscription; waitForSession drains it
	changes chan struct{}

	screen   Screen
	width    int
	height   int
	snapshot session.Snapshot
	err      error

	notice      string
	noticeLevel widgets.StatusLevel

	feed     *feed.Feed
	current  *client.Post
	viewport viewport.Model
	spinner  spinner.Model

	form     *forms.Form
	back     Screen // where a cancelled form returns to
	returnTo Screen // where a successful login continues to
	draft    forms.Values

	lastUpdate time.Time
}

// New creates a new TUI application
func New(ctx context.Context, apiClient *client.Client, store *session.Store, log zerolog.Logger) *App {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
	)
	return &App{
		ctx:      ctx,
		client:   apiClient,
		store:    store,
		log:      log.With().Str("component", "tui").Logger(),
		changes:  make(chan struct{}, 1),
		screen:   ScreenLoading,
		snapshot: store.Snapshot(),
		feed:     feed.New(0, 0),
		viewport: viewport.New(0, 0),
		spinner:  sp,
		returnTo: ScreenHome,
	}
}

// notifySessionChange is registered with the store. It never blocks the
// store; pending signals coalesce because the receiver reads the latest snapshot.
func (a *App) notifySessionChange(session.Snapshot) {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

// waitForSession delivers the next session change to the update loop
func (a *App) waitForSession() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.changes:
			return sessionChangedMsg{snapshot: a.store.Snapshot()}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.rehydrate(), a.waitForSession())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.feed.SetSize(a.contentWidth(), a.contentHeight())
		a.viewport.Width = a.contentWidth()
		a.viewport.Height = max(1, a.contentHeight()-2)
		if a.form != nil {
			a.form.SetWidth(a.contentWidth())
			return a.updateForm(msg)
		}
		return a, nil

	case tea.KeyMsg:
		// Handle global quit
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Route to current screen
		switch a.screen {
		case ScreenLoading:
			if msg.String() == "q" {
				return a, tea.Quit
			}
			return a, nil
		case ScreenHome:
			return a.updateHome(msg)
		case ScreenDetail:
			return a.updateDetail(msg)
		default:
			return a.updateForm(msg)
		}

	case spinner.TickMsg:
		if a.screen != ScreenLoading && !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case rehydratedMsg:
		if msg.err != nil {
			a.log.Warn().Err(msg.err).Msg("Stored session could not be restored")
			a.setNotice("Stored session was unreadable, continuing as a guest", widgets.StatusWarning)
		}
		a.applySnapshot(msg.snapshot)
		a.screen = ScreenHome
		return a, a.loadPosts()

	case sessionChangedMsg:
		return a, tea.Batch(a.applySnapshot(msg.snapshot), a.waitForSession())

	case postsLoadedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.feed.SetPosts(msg.posts)
		a.lastUpdate = time.Now()
		return a, nil

	case postLoadedMsg:
		return a.handlePostLoaded(msg)

	case signedInMsg:
		return a.handleSignedIn(msg)

	case registeredMsg:
		return a.handleRegistered(msg)

	case postSavedMsg:
		return a.handlePostSaved(msg)

	case postDeletedMsg:
		return a.handlePostDeleted(msg)

	case forms.SubmittedMsg:
		return a.handleSubmitted(msg)

	case forms.CancelledMsg:
		a.form = nil
		a.screen = a.back
		if a.screen != ScreenDetail {
			a.current = nil
		}
		a.syncViewport()
		return a, nil

	default:
		// Forward unknown messages to the active form (needed for huh form internals)
		if a.form != nil {
			return a.updateForm(msg)
		}
	}

	return a, nil
}

// applySnapshot adopts a session snapshot unless a newer one was already seen
func (a *App) applySnapshot(snap session.Snapshot) tea.Cmd {
	if snap.Generation < a.snapshot.Generation {
		return nil
	}
	wasAuthenticated := a.snapshot.Authenticated()
	a.snapshot = snap
	a.feed.SetIdentity(snap.Identity)

	if wasAuthenticated && !snap.Authenticated() {
		a.log.Debug().Uint64("generation", snap.Generation).Msg("Session ended")
		// Mutating screens cannot continue without a session
		if a.screen == ScreenEditor || a.screen == ScreenConfirmDelete {
			a.returnTo = a.back
			cmd := a.openForm(ScreenLogin, forms.NewLogin(""))
			a.form.SetNotice(sessionEndedNotice)
			return cmd
		}
	}
	return nil
}

func (a *App) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "up", "k":
		a.feed.MoveUp()
	case "down", "j":
		a.feed.MoveDown()
	case "enter":
		if post, ok := a.feed.Selected(); ok {
			return a, a.openPost(post)
		}
	case "r":
		return a, a.loadPosts()
	case "n":
		a.clearNotice()
		if !a.snapshot.Authenticated() {
			a.back = ScreenHome
			a.returnTo = ScreenEditor
			return a, a.openForm(ScreenLogin, forms.NewLogin(""))
		}
		a.current = nil
		return a, a.openEditor(ScreenHome)
	case "e":
		if post, ok := a.feed.Selected(); ok && a.feed.CanModifySelected() {
			a.current = copyPost(post)
			return a, a.openEditor(ScreenHome)
		}
	case "d":
		if post, ok := a.feed.Selected(); ok && a.feed.CanModifySelected() {
			a.current = copyPost(post)
			a.back = ScreenHome
			return a, a.openForm(ScreenConfirmDelete, forms.NewConfirmDelete(post.Title))
		}
	case "l":
		if !a.snapshot.Authenticated() {
			a.clearNotice()
			a.back = ScreenHome
			a.returnTo = ScreenHome
			return a, a.openForm(ScreenLogin, forms.NewLogin(""))
		}
	case "s":
		if !a.snapshot.Authenticated() {
			a.clearNotice()
			a.back = ScreenHome
			return a, a.openForm(ScreenRegister, forms.NewRegister())
		}
	case "o":
		if a.snapshot.Authenticated() {
			return a, a.logout()
		}
	}
	return a, nil
}

func (a *App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "b", "esc":
		a.current = nil
		a.screen = ScreenHome
		return a, nil
	case "e":
		if a.canModifyCurrent() {
			return a, a.openEditor(ScreenDetail)
		}
		return a, nil
	case "d":
		if a.canModifyCurrent() {
			a.back = ScreenDetail
			return a, a.openForm(ScreenConfirmDelete, forms.NewConfirmDelete(a.current.Title))
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.form == nil {
		return a, nil
	}
	model, cmd := a.form.Update(msg)
	a.form = model.(*forms.Form)
	return a, cmd
}

func (a *App) handleSubmitted(msg forms.SubmittedMsg) (tea.Model, tea.Cmd) {
	a.draft = msg.Values
	switch msg.Kind {
	case forms.KindLogin:
		a.setNotice("Signing in...", widgets.StatusInfo)
		return a, tea.Batch(a.spinner.Tick, a.signIn(msg.Values))
	case forms.KindRegister:
		a.setNotice("Creating account...", widgets.StatusInfo)
		return a, tea.Batch(a.spinner.Tick, a.register(msg.Values))
	case forms.KindEditor:
		a.setNotice("Saving...", widgets.StatusInfo)
		return a, tea.Batch(a.spinner.Tick, a.savePost(msg.Values))
	case forms.KindConfirmDelete:
		if a.current == nil {
			return a, nil
		}
		a.setNotice("Deleting...", widgets.StatusInfo)
		return a, tea.Batch(a.spinner.Tick, a.deletePost(a.current.ID))
	}
	return a, nil
}

func (a *App) handleSignedIn(msg signedInMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.clearNotice()
		cmd := a.openForm(ScreenLogin, forms.NewLogin(msg.email))
		a.form.SetNotice(client.UserMessage(msg.err, "Login failed"))
		return a, cmd
	}

	a.form = nil
	a.applySnapshot(a.store.Snapshot())
	a.setNotice("Signed in as "+msg.identity.DisplayName(), widgets.StatusOK)
	if a.returnTo == ScreenEditor {
		a.current = nil
		return a, a.openEditor(ScreenHome)
	}
	a.screen = a.returnTo
	if a.screen == ScreenDetail && a.current == nil {
		a.screen = ScreenHome
	}
	a.syncViewport()
	return a, nil
}

func (a *App) handleRegistered(msg registeredMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.clearNotice()
		cmd := a.openForm(ScreenRegister, forms.NewRegister())
		a.form.SetNotice(client.UserMessage(msg.err, "Registration failed"))
		return a, cmd
	}

	a.setNotice("Account created", widgets.StatusOK)
	a.back = ScreenHome
	a.returnTo = ScreenHome
	cmd := a.openForm(ScreenLogin, forms.NewLogin(msg.email))
	a.form.SetNotice("Account created. Log in to continue.")
	return a, cmd
}

func (a *App) handlePostSaved(msg postSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if lost, cmd := a.sessionLost(); lost {
			return a, tea.Batch(cmd, a.requireLogin())
		}
		a.clearNotice()
		editing := a.current != nil
		cmd := a.openForm(ScreenEditor, forms.NewEditor(a.draft.Title, a.draft.Content, editing))
		a.form.SetNotice(client.UserMessage(msg.err, "Could not save the post"))
		return a, cmd
	}

	a.form = nil
	a.current = msg.post
	a.screen = ScreenDetail
	a.syncViewport()
	if msg.created {
		a.setNotice("Post published", widgets.StatusOK)
	} else {
		a.setNotice("Post updated", widgets.StatusOK)
	}
	return a, a.loadPosts()
}

func (a *App) handlePostDeleted(msg postDeletedMsg) (tea.Model, tea.Cmd) {
	a.form = nil
	if msg.err != nil {
		if lost, cmd := a.sessionLost(); lost {
			return a, tea.Batch(cmd, a.requireLogin())
		}
		a.screen = a.back
		a.setNotice(client.UserMessage(msg.err, "Could not delete the post"), widgets.StatusCritical)
		return a, nil
	}

	a.current = nil
	a.screen = ScreenHome
	a.setNotice("Post deleted", widgets.StatusOK)
	return a, a.loadPosts()
}

func (a *App) handlePostLoaded(msg postLoadedMsg) (tea.Model, tea.Cmd) {
	// Ignore results for a post that is no longer open
	if a.current == nil || a.current.ID != msg.id {
		return a, nil
	}
	if msg.err != nil {
		if client.IsNotFound(msg.err) {
			a.current = nil
			if a.screen == ScreenDetail {
				a.screen = ScreenHome
			}
			a.setNotice("Post not found", widgets.StatusWarning)
			return a, a.loadPosts()
		}
		a.setNotice(client.UserMessage(msg.err, "Could not load the post"), widgets.StatusWarning)
		return a, nil
	}
	a.current = msg.post
	a.syncViewport()
	return a, nil
}

// requireLogin sends the user to the login form after losing the session mid-action
func (a *App) requireLogin() tea.Cmd {
	if a.screen == ScreenLogin {
		return nil
	}
	a.clearNotice()
	a.returnTo = a.back
	cmd := a.openForm(ScreenLogin, forms.NewLogin(""))
	a.form.SetNotice(sessionEndedNotice)
	return cmd
}

// sessionLost catches up with the store after a failed mutation and reports
// whether the failure left nobody signed in. The result can arrive before the
// subscription delivers the snapshot that explains it.
func (a *App) sessionLost() (bool, tea.Cmd) {
	cmd := a.applySnapshot(a.store.Snapshot())
	return !a.snapshot.Authenticated(), cmd
}

func (a *App) openForm(screen Screen, f *forms.Form) tea.Cmd {
	a.form = f
	a.screen = screen
	if a.width > 0 {
		f.SetWidth(a.contentWidth())
	}
	return f.Init()
}

// openEditor opens the editor for a.current, or a blank one when it is nil
func (a *App) openEditor(back Screen) tea.Cmd {
	a.back = back
	if a.current == nil {
		return a.openForm(ScreenEditor, forms.NewEditor("", "", false))
	}
	return a.openForm(ScreenEditor, forms.NewEditor(a.current.Title, a.current.Content, true))
}

// openPost shows the listed copy right away and refreshes it from the backend
func (a *App) openPost(post *client.Post) tea.Cmd {
	a.current = copyPost(post)
	a.screen = ScreenDetail
	a.clearNotice()
	a.syncViewport()
	a.viewport.GotoTop()
	return a.loadPost(a.current.ID)
}

// copyPost detaches a post from the feed so a refresh cannot change it underneath
func copyPost(post *client.Post) *client.Post {
	copied := *post
	return &copied
}

func (a *App) canModifyCurrent() bool {
	return a.current != nil && authz.CanMutatePost(a.snapshot.Identity, a.current)
}

func (a *App) busy() bool {
	return a.noticeLevel == widgets.StatusInfo && strings.HasSuffix(a.notice, "...")
}

func (a *App) setNotice(text string, level widgets.StatusLevel) {
	a.notice = text
	a.noticeLevel = level
}

func (a *App) clearNotice() {
	a.notice = ""
}

// syncViewport renders the open post into the detail viewport
func (a *App) syncViewport() {
	if a.current == nil {
		a.viewport.SetContent("")
		return
	}
	body := lipgloss.NewStyle().Width(max(20, a.contentWidth())).Render(a.current.Content)
	a.viewport.SetContent(body)
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenLoading:
		content = a.viewLoading()
	case ScreenHome:
		content = a.viewHome()
	case ScreenDetail:
		content = a.viewDetail()
	default:
		content = a.viewForm()
	}

	if a.notice != "" {
		level := a.noticeLevel
		notice := widgets.StatusText(a.notice, level)
		if a.busy() {
			notice = a.spinner.View() + " " + a.notice
		}
		content = notice + "\n" + content
	}

	return a.wrapWithFrame(content)
}

func (a *App) viewLoading() string {
	return fmt.Sprintf("\n %s Restoring session...\n", a.spinner.View())
}

func (a *App) viewHome() string {
	if a.err != nil {
		msg := client.UserMessage(a.err, "Could not load posts")
		return styles.StatusCritical.Render("Error: "+msg) + "\n" + styles.Help.Render("Press r to retry")
	}
	return a.feed.View()
}

func (a *App) viewDetail() string {
	if a.current == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(icons.Post.String() + " " + a.current.Title))
	sb.WriteString("\n")
	if a.canModifyCurrent() {
		sb.WriteString(widgets.StatusText("You can edit or delete this post", widgets.StatusOK))
	} else {
		sb.WriteString(widgets.StatusText("Read only", widgets.StatusNeutral))
	}
	sb.WriteString("\n\n")
	sb.WriteString(a.viewport.View())

	return sb.String()
}

func (a *App) viewForm() string {
	if a.form == nil {
		return ""
	}
	return a.form.View()
}

// contentWidth calculates the width available inside the frame
func (a *App) contentWidth() int {
	return max(0, a.width-panelPadding)
}

// contentHeight calculates the height available between header and footer
func (a *App) contentHeight() int {
	// Header, footer, notice line, and a blank line of breathing room
	return max(0, a.height-4)
}

// renderHeader creates the header bar with app branding and the signed-in user
func (a *App) renderHeader() string {
	// Guard against zero/small width before WindowSizeMsg is received
	width := a.width
	if width < minTerminalWidth {
		width = minTerminalWidth
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("clientcd"))

	rightText := ""
	if a.snapshot.State != session.StateUnknown {
		rightText = " " + widgets.RoleBadge(a.snapshot.Identity) + " "
	}

	leftWidth := lipgloss.Width(leftText)
	rightWidth := lipgloss.Width(rightText)
	fillWidth := width - 4 - leftWidth - rightWidth // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}

	fill := strings.Repeat("─", fillWidth)

	return borderStyle.Render("╭─") + leftText + borderStyle.Render(fill) + rightText + borderStyle.Render("─╮")
}

// shortcuts lists the keys that do something on the current screen.
// Actions the session does not permit are left out.
func (a *App) shortcuts() []string {
	switch a.screen {
	case ScreenLoading:
		return []string{"q Quit"}
	case ScreenHome:
		keys := []string{"↑↓ Move"}
		if a.feed.Len() > 0 {
			keys = append(keys, "Enter Open")
		}
		keys = append(keys, "r Refresh")
		if a.snapshot.Authenticated() {
			keys = append(keys, "n New")
		}
		if a.feed.CanModifySelected() {
			keys = append(keys, "e Edit", "d Delete")
		}
		if a.snapshot.Authenticated() {
			keys = append(keys, "o Logout")
		} else {
			keys = append(keys, "l Login", "s Sign up")
		}
		return append(keys, "q Quit")
	case ScreenDetail:
		keys := []string{"↑↓ Scroll", "b Back"}
		if a.canModifyCurrent() {
			keys = append(keys, "e Edit", "d Delete")
		}
		return append(keys, "q Quit")
	case ScreenConfirmDelete:
		return []string{"←→ Choose", "Enter Confirm", "Esc Cancel"}
	default:
		return []string{"Tab Next", "Enter Submit", "Esc Cancel"}
	}
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	// Guard against zero/small width before WindowSizeMsg is received
	width := a.width
	if width < minTerminalWidth {
		width = minTerminalWidth
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	shortcuts := a.shortcuts()

	// Build styled shortcuts
	var styledShortcuts []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			styledShortcuts = append(styledShortcuts, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
		} else {
			styledShortcuts = append(styledShortcuts, s)
		}
	}

	leftText := " " + strings.Join(styledShortcuts, "  ") + " "
	leftPlainText := " " + strings.Join(shortcuts, "  ") + " "

	// Right side status (last refresh time)
	rightText := ""
	rightPlainText := ""
	if !a.lastUpdate.IsZero() && a.screen == ScreenHome {
		elapsed := formatTimeSince(a.lastUpdate)
		rightText = " " + statusStyle.Render("Updated "+elapsed) + " "
		rightPlainText = " Updated " + elapsed + " "
	}

	leftWidth := lipgloss.Width(leftPlainText)
	rightWidth := lipgloss.Width(rightPlainText)
	fillWidth := width - 4 - leftWidth - rightWidth // -4 for ╰─ and ─╯
	if fillWidth < 0 && rightWidth > 0 {
		// Shortcuts matter more than the refresh time
		rightText = ""
		fillWidth += rightWidth
	}
	if fillWidth < 0 {
		fillWidth = 0
	}

	fill := strings.Repeat("─", fillWidth)

	return borderStyle.Render("╰─") + leftText + borderStyle.Render(fill) + rightText + borderStyle.Render("─╯")
}

// formatTimeSince formats a duration since the given time in human-readable form
func formatTimeSince(t time.Time) string {
	d := time.Since(t)

	if d < time.Minute {
		secs := int(d.Seconds())
		if secs < 5 {
			return "just now"
		}
		return fmt.Sprintf("%ds ago", secs)
	}

	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}

	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// rehydrate reads the persisted session before anything else runs
func (a *App) rehydrate() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.store.Rehydrate()
		return rehydratedMsg{snapshot: snap, err: err}
	}
}

// loadPosts creates a command to fetch the post list
func (a *App) loadPosts() tea.Cmd {
	return func() tea.Msg {
		posts, err := a.client.ListPosts(a.ctx)
		return postsLoadedMsg{posts: posts, err: err}
	}
}

// loadPost creates a command to fetch a single post
func (a *App) loadPost(id session.ID) tea.Cmd {
	return func() tea.Msg {
		post, err := a.client.GetPost(a.ctx, id.String())
		return postLoadedMsg{id: id, post: post, err: err}
	}
}

func (a *App) signIn(v forms.Values) tea.Cmd {
	return func() tea.Msg {
		identity, err := a.client.SignIn(a.ctx, client.Credentials{Email: v.Email, Password: v.Password})
		return signedInMsg{email: v.Email, identity: identity, err: err}
	}
}

func (a *App) register(v forms.Values) tea.Cmd {
	return func() tea.Msg {
		err := a.client.Register(a.ctx, client.Registration{Email: v.Email, Password: v.Password})
		return registeredMsg{email: v.Email, err: err}
	}
}

// savePost updates a.current when set, otherwise creates a new post
func (a *App) savePost(v forms.Values) tea.Cmd {
	in := client.PostInput{Title: v.Title, Content: v.Content}
	current := a.current
	editor := a.snapshot.Identity
	return func() tea.Msg {
		if current == nil {
			post, err := a.client.CreatePost(a.ctx, in)
			return postSavedMsg{post: post, created: true, err: err}
		}
		post, err := a.client.UpdatePost(a.ctx, current, in, editor)
		return postSavedMsg{post: post, err: err}
	}
}

func (a *App) deletePost(id session.ID) tea.Cmd {
	return func() tea.Msg {
		err := a.client.DeletePost(a.ctx, id.String())
		return postDeletedMsg{id: id, err: err}
	}
}

// logout clears the session locally. The snapshot arrives through the subscription.
func (a *App) logout() tea.Cmd {
	if err := a.client.Logout(); err != nil {
		a.log.Error().Err(err).Msg("Logout failed")
		a.setNotice(client.UserMessage(err, "Could not log out"), widgets.StatusCritical)
		return nil
	}
	a.applySnapshot(a.store.Snapshot())
	a.setNotice("Logged out", widgets.StatusOK)
	return nil
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled
func Run(ctx context.Context, apiClient *client.Client, store *session.Store, log zerolog.Logger) error {
	app := New(ctx, apiClient, store, log)
	unsubscribe := store.Subscribe(app.notifySessionChange)
	defer unsubscribe()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
