package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/config"
	"github.com/rileyhilliard/statwatch/internal/errors"
	"github.com/rileyhilliard/statwatch/internal/export"
	"github.com/rileyhilliard/statwatch/internal/store"
	"github.com/rileyhilliard/statwatch/internal/stream"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
	"github.com/rileyhilliard/statwatch/internal/ui"
)

// Export command flags
var (
	exportDuration time.Duration
	exportDir      string
	exportLocal    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Collect snapshots and write them as CSV",
	Long: `Subscribe to the backend, collect snapshots for the given duration (or
until the 60-sample window is full) and write them to
system-stats-<timestamp>.csv.

Interrupting early writes whatever was collected so far.

Examples:
  statwatch export
  statwatch export --duration 30s --dir ~/exports
  statwatch export --local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportCommand(cmd.Context(), cmd.OutOrStdout(), exportOptions{
			Duration: exportDuration,
			Dir:      exportDir,
			Local:    exportLocal,
		})
	},
}

func init() {
	exportCmd.Flags().DurationVar(&exportDuration, "duration", 60*time.Second, "how long to collect")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default: export.dir)")
	exportCmd.Flags().BoolVar(&exportLocal, "local", false, "sample this machine instead of the backend")
	rootCmd.AddCommand(exportCmd)
}

type exportOptions struct {
	Duration time.Duration
	Dir      string
	Local    bool

	// Fs and Now are replaced in tests.
	Fs  afero.Fs
	Now func() time.Time
}

func exportCommand(ctx context.Context, out io.Writer, opts exportOptions) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runExport(ctx, a, out, opts)
	return err
}

// runExport collects and writes one CSV file. Returns the path written, or
// "" when nothing arrived.
func runExport(ctx context.Context, a *appContext, out io.Writer, opts exportOptions) (string, error) {
	if opts.Duration <= 0 {
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid duration %s", opts.Duration),
			"Use a positive duration like 30s or 1m")
	}
	dir := a.cfg.Export.Dir
	if opts.Dir != "" {
		dir = config.Expand(config.ExpandTilde(opts.Dir))
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	d, source, err := a.dialer(opts.Local)
	if err != nil {
		return "", err
	}

	spinner := ui.NewSpinner(fmt.Sprintf("Collecting samples from %s for %s", source, opts.Duration))
	spinner.SetOutput(out, out == os.Stdout && isTerminal(os.Stdout))

	spinner.Start()
	history := collect(ctx, a, d, opts.Duration)

	path, err := export.NewWriter(opts.Fs).WriteFile(dir, history, opts.Now())
	switch {
	case err != nil:
		spinner.Fail()
		return "", err
	case path == "":
		spinner.SetLabel("No samples received, nothing exported")
		spinner.Skip()
		return "", nil
	}

	spinner.SetLabel(fmt.Sprintf("Exported %d samples to %s", len(history), path))
	spinner.Success()
	return path, nil
}

// collect streams into a fresh store and returns its history once the window
// is full or duration has passed. A done ctx cuts collection short.
func collect(ctx context.Context, a *appContext, d stream.Dialer, duration time.Duration) []telemetry.Snapshot {
	st := store.New()
	mgr := a.manager(d, st)

	full := make(chan struct{})
	var once sync.Once
	mgr.OnFrame(func(telemetry.Snapshot) {
		if st.Len() >= store.Capacity {
			once.Do(func() { close(full) })
		}
	})
	mgr.OnConnectionChange(func(state stream.State, reason string) {
		if reason != "" {
			a.log.Warn("%s: %s", state, reason)
		}
	})

	timer := time.NewTimer(duration)
	defer timer.Stop()

	mgr.Start()
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-full:
	}
	mgr.Stop()

	return st.History()
}
