package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/alert"
	"github.com/rileyhilliard/statwatch/internal/store"
	"github.com/rileyhilliard/statwatch/internal/stream"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
	"github.com/rileyhilliard/statwatch/internal/ui"
)

var tailLocal bool

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print each snapshot and alert as a log line",
	Long: `Subscribe to the backend and print one line per snapshot, plus a line for
every connection change and every threshold breach. Runs until interrupted.

Alerts are only printed while connected.

Examples:
  statwatch tail
  statwatch tail --local | tee stats.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tailCommand(cmd.Context(), cmd.OutOrStdout(), tailLocal)
	},
}

func init() {
	tailCmd.Flags().BoolVar(&tailLocal, "local", false, "sample this machine instead of the backend")
	rootCmd.AddCommand(tailCmd)
}

func tailCommand(ctx context.Context, out io.Writer, local bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runTail(ctx, a, out, local)
}

// runTail streams until ctx is done.
func runTail(ctx context.Context, a *appContext, out io.Writer, local bool) error {
	d, source, err := a.dialer(local)
	if err != nil {
		return err
	}

	st := store.New()
	mgr := a.manager(d, st)
	t := newTailer(out)
	mgr.OnConnectionChange(t.connectionChanged)
	mgr.OnFrame(t.frame)

	t.printf("%s streaming from %s", ui.SymbolProgress, source)
	mgr.Start()
	<-ctx.Done()
	mgr.Stop()
	return nil
}

// tailer formats manager callbacks as log lines.
type tailer struct {
	mu    sync.Mutex
	out   io.Writer
	state stream.State
	now   func() time.Time
}

func newTailer(out io.Writer) *tailer {
	return &tailer{out: out, now: time.Now}
}

func (t *tailer) connectionChanged(state stream.State, reason string) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	line := state.String()
	if reason != "" {
		line += ": " + reason
	}
	t.printf("%s %s", stateSymbol(state), line)
}

func (t *tailer) frame(s telemetry.Snapshot) {
	t.mu.Lock()
	connected := t.state == stream.StateConnected
	t.mu.Unlock()

	t.printf("%s", summarize(s))
	if !connected {
		return
	}
	for _, msg := range alert.Messages(s) {
		t.printf("%s %s", ui.SymbolWarning, msg)
	}
}

func (t *tailer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s\n", t.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

func stateSymbol(s stream.State) string {
	switch s {
	case stream.StateConnected:
		return ui.SymbolSuccess
	case stream.StateDisconnected:
		return ui.SymbolFail
	case stream.StateConnecting:
		return ui.SymbolProgress
	default:
		return ui.SymbolPending
	}
}

// summarize renders one snapshot as a single line. Only the primary GPU is
// shown.
func summarize(s telemetry.Snapshot) string {
	parts := []string{
		fmt.Sprintf("cpu %5.1f%%", s.CPU.UsagePercent),
		fmt.Sprintf("ram %5.1f%%", s.Memory.UsagePercent),
	}
	if d, ok := s.PrimaryDevice(); ok {
		parts = append(parts, fmt.Sprintf("gpu %5.1f%%", d.UsagePercent))
	}
	parts = append(parts,
		fmt.Sprintf("disk r %s/s w %s/s", ibytes(s.Disk.ReadBytesPerSecond), ibytes(s.Disk.WriteBytesPerSecond)),
		fmt.Sprintf("net ↓ %s/s ↑ %s/s", ibytes(s.Network.DownloadBytesPerSecond), ibytes(s.Network.UploadBytesPerSecond)),
	)
	return strings.Join(parts, "  ")
}

func ibytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
