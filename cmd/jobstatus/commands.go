package main

import (
	"context"
	"fmt"

	"github.com/RezaEskandarii/jobstatus/app"
	"github.com/RezaEskandarii/jobstatus/internal/logging"
	"github.com/RezaEskandarii/jobstatus/types/config"
	"github.com/RezaEskandarii/jobstatus/web"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "jobstatus",
		Version: version,
		Usage:   "Background jobs with reconciled status and bounded retries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			serverCmd(),
			workerCmd(),
			migrateCmd(),
		},
	}
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Listen address, overrides http.address",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if v := cmd.String("address"); v != "" {
				cfg.HTTP.Address = v
			}

			c, err := app.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeContainer(c)

			if err := c.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			handler := web.NewRouteHandler(c.JobManager, cfg.HTTP.Address)
			return handler.Serve(ctx)
		},
	}
}

func workerCmd() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the execution pool and the completion reconciler",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-jobs",
				Usage: "Upper bound of jobs running at once, overrides worker.max_jobs",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if n := cmd.Int("max-jobs"); n > 0 {
				cfg.Worker.MaxJobs = n
			}

			c, err := app.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeContainer(c)

			log.Info().Str("instance", cfg.Instance).Strs("functions", c.JobHandler.List()).Msg("starting worker")

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return c.Pool.Start(gctx) })
			g.Go(func() error { return c.Reconciler.Run(gctx) })
			return g.Wait()
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the job history schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			c, err := app.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeContainer(c)

			return c.Migrate(ctx)
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func closeContainer(c *app.Container) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("closing connections")
	}
}
