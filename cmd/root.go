// ABOUTME: Root command for the clientcd CLI
// ABOUTME: Handles global flags and launches the TUI when no subcommand is given

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/config"
	"github.com/ToniTF/clientcd/internal/session"
)

var (
	apiURL     string
	configDir  string
	jsonOutput bool
)

// Exit codes shared by every command
const (
	exitOK      = 0
	exitRefused = 1
	exitError   = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "clientcd",
	Short: "Terminal client for the clientcd blog",
	Long: `clientcd is a terminal client for the clientcd blog.

Run without a subcommand to open the interactive interface, or use the
subcommands for scripted access.

Exit codes:
  0 - Success
  1 - Refused (not permitted, not logged in, invalid input)
  2 - Error (connectivity, backend failure)

Environment Variables:
  CLIENTCD_API_URL     Backend API URL (default: http://localhost:5000/api)
  CLIENTCD_TIMEOUT     Request timeout (default: 10s)
  CLIENTCD_CONFIG_DIR  Session and log directory (default: ~/.config/clientcd)
  CLIENTCD_STORAGE     Session storage driver: bolt, file or memory (default: bolt)
  LOG_LEVEL            trace, debug, info, warn or error (default: info)
  LOG_FORMAT           text or json (default: text)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runTUI(ctx)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides CLIENTCD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Session and log directory (overrides CLIENTCD_CONFIG_DIR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// loadConfig reads configuration from .env.local, the environment, and flags
// (flags win over env, env wins over defaults)
func loadConfig(ctx context.Context) (*config.Config, error) {
	config.LoadDotenv()
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = config.NormalizeURL(apiURL)
	}
	if configDir != "" {
		cfg.ConfigDir = configDir
	}
	return cfg, nil
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// runWithExit adapts a runX function to a cobra Run func, exiting with its code
func runWithExit(run func(ctx context.Context, w io.Writer, args []string) int) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := run(ctx, os.Stdout, args)
		if exitCode != exitOK {
			os.Exit(exitCode)
		}
	}
}

// reportError prints err for a person and maps it to an exit code
func reportError(w io.Writer, err error, fallback string) int {
	fmt.Fprintf(w, "Error: %s\n", client.UserMessage(err, fallback))

	var validationErr *client.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, client.ErrNotAuthenticated),
		errors.Is(err, session.ErrAlreadyAuthenticated):
		return exitRefused
	default:
		return exitError
	}
}
