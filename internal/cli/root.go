// Package cli implements the petitiondesk command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ASHISH26940/petitiondesk/internal/config"
	"github.com/ASHISH26940/petitiondesk/internal/logger"
	"github.com/ASHISH26940/petitiondesk/internal/persistence"
	"github.com/ASHISH26940/petitiondesk/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"

	configSet bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "petitiondesk",
		Short:         "Create, edit and track petitions",
		Long:          "A desktop petition manager. Petitions are kept in a local JSON file and edited through a browser UI or this CLI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.configSet = cmd.Flags().Changed("config")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.toml", "path to config file (.toml or .yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// loadConfig applies the config file over the defaults. The default path
// may be absent; a path given explicitly must exist.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg := config.New()
	if err := cfg.Load(o.ConfigPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || o.configSet {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

func (o *RootOptions) openApp(storeOpts ...store.Option) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	l, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	storeOpts = append([]store.Option{store.WithLogger(l.Named("store"))}, storeOpts...)
	st, err := store.Open(persistence.NewFile(cfg.DataFile), storeOpts...)
	if err != nil {
		l.Sync()
		return nil, err
	}
	return &app{cfg: cfg, logger: l, store: st}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
