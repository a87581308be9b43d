// ABOUTME: Account commands for the clientcd CLI
// ABOUTME: Registers, logs in, logs out, and reports the signed-in identity

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/tui/styles"
)

var (
	authEmail    string
	authPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account on the blog. Registration does not log you in.

Example:
  clientcd register --email a@x.com --password secret1`,
	Args: cobra.NoArgs,
	Run:  runWithExit(func(ctx context.Context, w io.Writer, _ []string) int { return runRegister(ctx, w) }),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	Long: `Log in with email and password. The session is kept in the config
directory until you log out or the backend rejects it.

The password is prompted for when --password is omitted.`,
	Args: cobra.NoArgs,
	Run:  runWithExit(func(ctx context.Context, w io.Writer, _ []string) int { return runLogin(ctx, w) }),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	Run:   runWithExit(func(ctx context.Context, w io.Writer, _ []string) int { return runLogout(ctx, w) }),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	Long:  `Show the signed-in identity. Exits 1 when nobody is logged in.`,
	Args:  cobra.NoArgs,
	Run:   runWithExit(func(ctx context.Context, w io.Writer, _ []string) int { return runWhoami(ctx, w) }),
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)

	registerCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "Account password (at least 6 characters)")
	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
}

// promptPassword asks for the password on an interactive terminal
var promptPassword = func(email string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				Description("for "+email).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).WithTheme(styles.FormTheme()).Run()
	return password, err
}

// runRegister executes registration and returns exit code
func runRegister(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	err = rt.client.Register(ctx, client.Registration{Email: authEmail, Password: authPassword})
	if err != nil {
		return reportError(w, err, "registration failed, please try again")
	}

	if IsJSONOutput() {
		writeJSON(w, map[string]any{"registered": true, "email": authEmail})
	} else {
		fmt.Fprintf(w, "Registered %s. You can now log in.\n", authEmail)
	}
	return exitOK
}

// runLogin executes login and returns exit code
func runLogin(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	if current := rt.session.Current(); current != nil {
		fmt.Fprintf(w, "Already logged in as %s. Log out first.\n", current.Email)
		return exitRefused
	}

	password := authPassword
	if password == "" && authEmail != "" {
		password, err = promptPassword(authEmail)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
	}

	identity, err := rt.client.SignIn(ctx, client.Credentials{Email: authEmail, Password: password})
	if err != nil {
		if client.IsUnauthorized(err) {
			fmt.Fprintf(w, "Error: %s\n", client.UserMessage(err, "invalid email or password"))
			return exitRefused
		}
		return reportError(w, err, "login failed, check your credentials")
	}

	if IsJSONOutput() {
		writeJSON(w, identity)
	} else {
		fmt.Fprintf(w, "Logged in as %s\n", formatIdentity(identity))
	}
	return exitOK
}

// runLogout clears the stored session and returns exit code
func runLogout(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	if err := rt.client.Logout(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	fmt.Fprintln(w, "Logged out")
	return exitOK
}

// runWhoami prints the signed-in identity and returns exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, os.Stderr, true)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer rt.Close()

	identity := rt.session.Current()
	if IsJSONOutput() {
		writeJSON(w, map[string]any{"authenticated": identity != nil, "user": identity})
	} else if identity != nil {
		fmt.Fprintln(w, formatIdentity(identity))
	} else {
		fmt.Fprintln(w, "Not logged in")
	}

	if identity == nil {
		return exitRefused
	}
	return exitOK
}

// formatIdentity renders an identity as "name <email> (role)"
func formatIdentity(identity *session.Identity) string {
	role := string(identity.Role)
	if role == "" {
		role = string(session.RoleUser)
	}
	if identity.Username != "" && identity.Username != identity.Email {
		return fmt.Sprintf("%s <%s> (%s)", identity.Username, identity.Email, role)
	}
	return fmt.Sprintf("%s (%s)", identity.Email, role)
}

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}
