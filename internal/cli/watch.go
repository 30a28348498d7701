package cli

import (
	"context"
	stderrors "errors"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/export"
	"github.com/rileyhilliard/statwatch/internal/monitor"
	"github.com/rileyhilliard/statwatch/internal/store"
)

var watchLocal bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Real-time telemetry dashboard",
	Long: `Subscribe to the backend and show a live dashboard of CPU, RAM, every
GPU, disk and network usage, with sparklines of the last 60 samples.

Falls back to 'statwatch tail' when stdout is not a terminal.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  e           Export the last 60 samples as CSV
  ?           Show help

Examples:
  statwatch watch
  statwatch watch --server https://stats.example.com
  statwatch watch --local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd.Context(), cmd.OutOrStdout(), watchLocal)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchLocal, "local", false, "sample this machine instead of the backend")
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(ctx context.Context, out io.Writer, local bool) error {
	if !isTerminal(os.Stdout) {
		return tailCommand(ctx, out, local)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Log lines on stderr would tear the alt screen.
	if a.cfg.Log.File == "" {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	model, stop, err := newDashboard(ctx, a, local)
	if err != nil {
		return err
	}
	defer stop()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// newDashboard builds the store, manager and model, and starts streaming.
// stop tears everything down.
func newDashboard(ctx context.Context, a *appContext, local bool) (monitor.Model, func(), error) {
	d, source, err := a.dialer(local)
	if err != nil {
		return monitor.Model{}, nil, err
	}

	var version string
	if !local {
		version = a.backendVersion(ctx)
	}

	st := store.New()
	mgr := a.manager(d, st)
	model := monitor.NewModel(monitor.Options{
		Store:     st,
		Conn:      mgr,
		Exporter:  export.NewWriter(afero.NewOsFs()),
		ExportDir: a.cfg.Export.Dir,
		Source:    source,
		Version:   version,
		Refresh:   a.cfg.Monitor.Refresh,
		Logger:    a.log,
	})
	mgr.OnConnectionChange(model.ConnectionChanged)
	mgr.Start()

	stop := func() {
		mgr.Stop()
		model.Close()
	}
	return model, stop, nil
}
