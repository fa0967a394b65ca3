package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/melih/dockerbar/internal/app"
	"github.com/melih/dockerbar/internal/config"
	"github.com/melih/dockerbar/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "dockerbar",
		Short:         "Container menu for the Docker engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default $"+config.EnvConfigPath+" or "+config.ConfigPath()+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newPsCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newActionCmd(opts))
	root.AddCommand(newStopAllCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// load reads the config and builds the root logger.
func (o *rootOptions) load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// build loads the config and wires the application.
func (o *rootOptions) build(ctx context.Context) (*app.App, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}
