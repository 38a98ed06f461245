package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frudas24/displayctl/internal/app"
	"github.com/frudas24/displayctl/internal/config"
	"github.com/frudas24/displayctl/internal/displayconfig"
	"github.com/frudas24/displayctl/internal/logging"
	"github.com/frudas24/displayctl/internal/store"
)

// errNoCommand is returned when displayctl runs without a subcommand.
var errNoCommand = errors.New("no command given")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	debug     bool
	configDir string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "displayctl",
		Short: "Save and restore GNOME monitor layouts",
		Long: `displayctl saves the current monitor layout under a name and re-applies it later
through the org.gnome.Mutter.DisplayConfig D-Bus interface.`,
		Example: `  displayctl save work        # Save current config as 'work'
  displayctl load work        # Load and apply 'work' config
  displayctl list             # List all saved configs
  displayctl current          # Show current monitor setup
  displayctl delete work      # Delete 'work' config`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errNoCommand
		},
	}
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable verbose debug logging")
	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "Directory holding saved configurations")

	root.AddCommand(
		&cobra.Command{
			Use:   "save <name>",
			Short: "Save current monitor configuration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
					return a.Save(ctx, args[0])
				})
			},
		},
		newLoadCmd(flags),
		&cobra.Command{
			Use:   "list",
			Short: "List all saved configurations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
					return a.List()
				})
			},
		},
		&cobra.Command{
			Use:   "current",
			Short: "Show current monitor configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
					return a.Current(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a saved configuration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
					return a.Delete(args[0])
				})
			},
		},
	)
	return root
}

// newLoadCmd builds the load subcommand and its --dry-run flag.
func newLoadCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Load and apply a saved configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				return a.Load(ctx, args[0], dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be applied without applying")
	return cmd
}

// withApp loads configuration, wires the application and runs fn.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(flags.configDir)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Debug || flags.debug, cfg.Color)
	log.Debug().Str("dir", cfg.Dir).Str("bus_name", cfg.BusName).Msg("config: loaded")

	st, err := store.New(cfg.Dir)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	opts := displayconfig.Options{
		BusName:     cfg.BusName,
		ObjectPath:  cfg.ObjectPath,
		Interface:   cfg.Interface,
		CallTimeout: cfg.CallTimeout,
	}
	dial := func(ctx context.Context) (displayconfig.Service, func() error, error) {
		client, err := displayconfig.Dial(ctx, opts, log)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}

	a, err := app.New(st, dial, cmd.OutOrStdout(), log, cfg.Color)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Debug().Err(err).Msg("shutdown: close bus connection")
		}
	}()
	return fn(cmd.Context(), a)
}

// exitError reports a failure on stderr and exits non-zero.
func exitError(err error, interrupted bool) {
	if interrupted {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled")
		os.Exit(1)
	}
	if !errors.Is(err, errNoCommand) {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
