package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"blobvault/internal/delivery/server/bootstrap"
	"blobvault/internal/shared/config"
	"blobvault/internal/shared/logging"
)

// skipValidation marks commands that only inspect configuration or logs and
// must run even when the configuration cannot start a server.
const skipValidation = "blobvault/skip-validation"

type buildFunc func(ctx context.Context, cfg config.Config, logger logging.Logger) (*bootstrap.Container, error)

// app carries state shared by every subcommand of one invocation.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	build      buildFunc
	container  *bootstrap.Container
}

func newApp() *app {
	return &app{
		v:     viper.New(),
		build: bootstrap.BuildContainer,
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "blobvault",
		Short:         "Store files as Postgres large objects",
		Long:          "blobvault stores uploaded files as Postgres large objects, indexed by a generated file id.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadWith(a.v, a.configPath)
			if err != nil {
				return err
			}
			if cmd.Annotations[skipValidation] == "" {
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			a.cfg = cfg
			bootstrap.ConfigureLogging(cfg.Log)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default ./blobvault.yaml or $HOME/.blobvault/blobvault.yaml)")
	flags.String("driver", "", "store driver: postgres or memory")
	flags.String("database-url", "", "postgres connection URL")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-dir", "", "directory for blobvault-service.log and blobvault-latency.log")
	for key, flag := range map[string]string{
		"store.driver": "driver",
		"database.url": "database-url",
		"log.level":    "log-level",
		"log.dir":      "log-dir",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newPutCommand(a),
		newGetCommand(a),
		newRmCommand(a),
		newStatCommand(a),
		newConfigCommand(a),
		newLogsCommand(a),
	)
	return root
}

// execute runs root and closes the container on every exit path, including
// a failing RunE, which cobra's post-run hooks skip.
func execute(ctx context.Context, a *app, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if closeErr := a.closeContainer(ctx); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

func (a *app) closeContainer(ctx context.Context) error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close(context.WithoutCancel(ctx))
	a.container = nil
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// containerFor builds the container once per invocation.
func (a *app) containerFor(ctx context.Context) (*bootstrap.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	container, err := a.build(ctx, a.cfg, logging.NewComponentLogger("CLI"))
	if err != nil {
		return nil, err
	}
	a.container = container
	return container, nil
}
