package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/api"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the backend version",
	Long: `Print the name and version reported by the backend's /api/info endpoint.

Prints nothing when the backend doesn't report a version. Failures are
logged as warnings and don't fail the command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return infoCommand(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func infoCommand(ctx context.Context, out io.Writer) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client()
	if err != nil {
		return err
	}
	printInfo(ctx, out, client, a)
	return nil
}

func printInfo(ctx context.Context, out io.Writer, client *api.Client, a *appContext) {
	info, err := client.Info(ctx)
	if err != nil {
		a.log.Warn("backend info unavailable: %v", err)
		return
	}
	if info.Version == "" {
		return
	}
	if info.Name != "" {
		fmt.Fprintf(out, "%s %s\n", info.Name, formatVersion(info.Version))
		return
	}
	fmt.Fprintln(out, formatVersion(info.Version))
}
