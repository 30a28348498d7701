package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/api"
	"github.com/rileyhilliard/statwatch/internal/ui"
)

var processesLimit int

var processesCmd = &cobra.Command{
	Use:   "processes <cpu|memory|gpu|disk|network>",
	Short: "List the top processes for a resource",
	Long: `Ask the backend for the processes using the most of a resource.

cpu, memory (or ram) and disk are supported. gpu and network have no
per-process breakdown and print a notice instead.

Examples:
  statwatch processes cpu
  statwatch processes memory --limit 10`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: kindNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return processesCommand(cmd.Context(), cmd.OutOrStdout(), args[0], processesLimit)
	},
}

func init() {
	processesCmd.Flags().IntVarP(&processesLimit, "limit", "n", api.DefaultLimit,
		fmt.Sprintf("number of processes (1-%d)", api.MaxLimit))
	rootCmd.AddCommand(processesCmd)
}

// kindNames lists the accepted kind arguments for shell completion.
func kindNames() []string {
	names := make([]string, 0, len(api.Kinds)+1)
	for _, k := range api.Kinds {
		names = append(names, string(k))
	}
	return append(names, "ram")
}

func processesCommand(ctx context.Context, out io.Writer, kindArg string, limit int) error {
	kind, err := api.ParseKind(kindArg)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client()
	if err != nil {
		return err
	}
	return listProcesses(ctx, out, client, kind, limit)
}

func listProcesses(ctx context.Context, out io.Writer, client *api.Client, kind api.Kind, limit int) error {
	procs, err := client.Processes(ctx, kind, limit)
	switch {
	case stderrors.Is(err, api.ErrNotAvailable):
		fmt.Fprintln(out, ui.MutedStyle().Render(kind.UnavailableMessage()))
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintln(out, ui.HeaderStyle().Render(kind.Label()))
	if len(procs) == 0 {
		fmt.Fprintln(out, "No processes reported.")
		return nil
	}

	columns, rows := processRows(kind, procs)
	fmt.Fprintln(out, ui.RenderSimpleTable(columns, rows))
	return nil
}

// processRows picks the columns for kind. PID and name always lead.
func processRows(kind api.Kind, procs []api.Process) ([]ui.TableColumn, [][]string) {
	columns := []ui.TableColumn{
		{Title: "PID", Width: 8},
		{Title: "NAME", Width: 28},
	}
	switch kind {
	case api.KindCPU:
		columns = append(columns, ui.TableColumn{Title: "CPU", Width: 8})
	case api.KindMemory:
		columns = append(columns, ui.TableColumn{Title: "MEMORY", Width: 12})
	case api.KindDisk:
		columns = append(columns,
			ui.TableColumn{Title: "READ", Width: 12},
			ui.TableColumn{Title: "WRITE", Width: 12})
	}

	rows := make([][]string, len(procs))
	for i, p := range procs {
		row := []string{strconv.FormatInt(p.PID, 10), p.Name}
		switch kind {
		case api.KindCPU:
			row = append(row, fmt.Sprintf("%.1f%%", p.CPUPercent))
		case api.KindMemory:
			row = append(row, ibytes(p.MemoryBytes))
		case api.KindDisk:
			row = append(row, ibytes(p.DiskReadBytes), ibytes(p.DiskWriteBytes))
		}
		rows[i] = row
	}
	return columns, rows
}
