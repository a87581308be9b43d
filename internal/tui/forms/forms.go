// ABOUTME: Account and post forms as bubbletea models
// ABOUTME: Wraps huh forms and reports submission or cancellation as messages

package forms

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-playground/validator/v10"

	"github.com/ToniTF/clientcd/internal/tui/icons"
	"github.com/ToniTF/clientcd/internal/tui/styles"
)

// Kind identifies which form is on screen
type Kind int

const (
	KindLogin Kind = iota
	KindRegister
	KindEditor
	KindConfirmDelete
)

func (k Kind) String() string {
	switch k {
	case KindLogin:
		return "login"
	case KindRegister:
		return "register"
	case KindEditor:
		return "editor"
	case KindConfirmDelete:
		return "confirm-delete"
	default:
		return "unknown"
	}
}

// Values holds everything a form can collect
type Values struct {
	Email     string
	Password  string
	Title     string
	Content   string
	Confirmed bool
}

// SubmittedMsg is sent when a form is completed
type SubmittedMsg struct {
	Kind   Kind
	Values Values
}

// CancelledMsg is sent when a form is dismissed, including a declined delete
type CancelledMsg struct {
	Kind Kind
}

// Form is a single-step huh form hosted inside the app
type Form struct {
	kind    Kind
	heading string
	notice  string
	values  *Values
	form    *huh.Form
	width   int
	done    bool
}

var validate = validator.New()

// NewLogin creates the login form, prefilled with the given email
func NewLogin(email string) *Form {
	f := &Form{kind: KindLogin, heading: "Log in", values: &Values{Email: email}}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&f.values.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.values.Password).
				Validate(validateRequired("password")),
		).Title("Log in").
			Description("Enter to continue, Esc to go back"),
	).WithTheme(styles.FormTheme())
	return f
}

// NewRegister creates the account registration form
func NewRegister() *Form {
	f := &Form{kind: KindRegister, heading: "Create account", values: &Values{}}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&f.values.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				Description("At least 6 characters").
				EchoMode(huh.EchoModePassword).
				Value(&f.values.Password).
				Validate(validateNewPassword),
		).Title("Create account").
			Description("Registration does not log you in"),
	).WithTheme(styles.FormTheme())
	return f
}

// NewEditor creates the post editor. Empty title and content start a new post.
func NewEditor(title, content string, editing bool) *Form {
	heading := "New post"
	if editing {
		heading = "Edit post"
	}
	f := &Form{kind: KindEditor, heading: heading, values: &Values{Title: title, Content: content}}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				CharLimit(200).
				Value(&f.values.Title).
				Validate(validateRequired("title")),
			huh.NewText().
				Title("Content").
				Lines(8).
				Value(&f.values.Content).
				Validate(validateRequired("content")),
		).Title(heading).
			Description("Tab moves between fields, Esc discards changes"),
	).WithTheme(styles.FormTheme())
	return f
}

// NewConfirmDelete asks before a post is deleted
func NewConfirmDelete(postTitle string) *Form {
	f := &Form{kind: KindConfirmDelete, heading: "Delete post", values: &Values{}}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", postTitle)).
				Description("This cannot be undone").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&f.values.Confirmed),
		),
	).WithTheme(styles.FormTheme())
	return f
}

// Kind reports which form this is
func (f *Form) Kind() Kind {
	return f.kind
}

// Values returns a copy of what has been entered so far
func (f *Form) Values() Values {
	return *f.values
}

// SetNotice shows a one-line message above the form
func (f *Form) SetNotice(notice string) {
	f.notice = notice
}

// SetWidth sets the form width for proper rendering
func (f *Form) SetWidth(width int) {
	f.width = width
	f.form = f.form.WithWidth(width)
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if f.done {
		return f, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return f, f.cancel()
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	switch f.form.State {
	case huh.StateCompleted:
		return f, f.finish()
	case huh.StateAborted:
		return f, f.cancel()
	}

	return f, cmd
}

func (f *Form) cancel() tea.Cmd {
	f.done = true
	kind := f.kind
	return func() tea.Msg { return CancelledMsg{Kind: kind} }
}

// finish turns completed values into the message the app acts on
func (f *Form) finish() tea.Cmd {
	if f.kind == KindConfirmDelete && !f.values.Confirmed {
		return f.cancel()
	}
	f.done = true
	msg := SubmittedMsg{Kind: f.kind, Values: *f.values}
	msg.Values.Email = strings.TrimSpace(msg.Values.Email)
	return func() tea.Msg { return msg }
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(f.icon().String() + " " + f.heading))
	sb.WriteString("\n")
	if f.notice != "" {
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render(f.notice))
		sb.WriteString("\n\n")
	}
	sb.WriteString(f.form.View())

	return sb.String()
}

func (f *Form) icon() icons.Icon {
	switch f.kind {
	case KindLogin:
		return icons.Login
	case KindRegister:
		return icons.Author
	case KindConfirmDelete:
		return icons.Delete
	default:
		return icons.Edit
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if validate.Var(s, "email") != nil {
		return fmt.Errorf("email must be a valid email address")
	}
	return nil
}

func validateNewPassword(s string) error {
	if s == "" {
		return fmt.Errorf("password is required")
	}
	if validate.Var(s, "min=6") != nil {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if validate.Var(strings.TrimSpace(s), "required") != nil {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
