package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/statwatch/internal/config"
	"github.com/rileyhilliard/statwatch/internal/errors"
	"github.com/rileyhilliard/statwatch/internal/ui"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect .statwatch.yaml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .statwatch.yaml",
	Long: `Write a .statwatch.yaml with the defaults to the current directory (or
the path given by --config).

Prompts for the backend URL when run in a terminal and --server isn't set.

Examples:
  statwatch config init
  statwatch config init --server https://stats.example.com
  statwatch config init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = filepath.Join(".", config.ConfigFileName)
		}
		return configInit(cmd.OutOrStdout(), initOptions{
			Path:        path,
			Server:      serverFlag,
			Force:       configInitForce,
			Interactive: isTerminal(os.Stdin) && isTerminal(os.Stdout),
		})
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Print the configuration after the config file, STATWATCH_* environment
variables and global flags have been applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return showConfig(cmd.OutOrStdout(), a)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite existing config")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

type initOptions struct {
	Path        string
	Server      string
	Force       bool
	Interactive bool
}

func configInit(out io.Writer, opts initOptions) error {
	if _, err := os.Stat(opts.Path); err == nil && !opts.Force {
		if !opts.Interactive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", opts.Path),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", opts.Path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		opts.Force = true
	}

	cfg := config.DefaultConfig()
	server := strings.TrimSpace(opts.Server)

	if server == "" && opts.Interactive {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Backend URL").
					Description("Where the stats server listens (http, https, ws or wss)").
					Placeholder(cfg.Server.URL).
					Value(&server).
					Validate(validateServerInput),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Pass the backend URL with --server instead")
		}
		server = strings.TrimSpace(server)
	}
	if server != "" {
		cfg.Server.URL = strings.TrimRight(server, "/")
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.WriteFile(opts.Path, cfg, opts.Force); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Created %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), opts.Path)
	return nil
}

// validateServerInput accepts an empty answer (keep the default) or an
// absolute URL with a supported scheme.
func validateServerInput(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("enter a full URL like http://stats.local:8080")
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("scheme must be http, https, ws or wss")
	}
}

func showConfig(out io.Writer, a *appContext) error {
	data, err := config.Marshal(a.cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to render config", "")
	}
	source := a.path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintln(out, ui.MutedStyle().Render("# source: "+source))
	_, err = out.Write(data)
	return err
}
