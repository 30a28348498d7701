package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/errors"
	"github.com/rileyhilliard/statwatch/internal/ui"
)

// Global flags
var (
	cfgFile    string
	serverFlag string
	noColor    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "statwatch",
	Short: "Real-time system telemetry from a stats backend",
	Long: `statwatch subscribes to a system-statistics backend over STOMP/WebSocket
and shows CPU, RAM, GPU, disk and network usage as it streams in.

Run 'statwatch watch' for the dashboard, 'statwatch tail' for a headless
log, or 'statwatch export' to capture the rolling window as CSV.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .statwatch.yaml, searched upward)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "backend URL, overrides server.url")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders structured errors as-is and gives plain ones the same
// leading mark.
func formatError(err error) string {
	var se *errors.Error
	if stderrors.As(err, &se) {
		return se.Error()
	}
	return fmt.Sprintf("✗ %s\n", err)
}
