// ABOUTME: TUI command for the clientcd CLI
// ABOUTME: Opens the interactive blog interface, logging to a file in the config directory

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ToniTF/clientcd/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive interface (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runTUI(ctx)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI wires the core and runs the TUI until the user quits
func runTUI(ctx context.Context) error {
	rt, err := openRuntime(ctx, nil, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.log.Info().Str("api_url", rt.cfg.APIURL).Msg("Starting TUI")
	return tui.Run(ctx, rt.client, rt.session, rt.log)
}
