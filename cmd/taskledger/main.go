package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"taskledger/internal/config"
	"taskledger/internal/logging"
	"taskledger/internal/repository"
	"taskledger/internal/service"
)

// Build information. Populated at build-time via -ldflags flag.
var (
	version = "dev"
	commit  = "HEAD"
)

type Flags struct {
	ConfigPath string
	Database   string
	LogLevel   string
	LogFile    string
	Pretty     bool
}

// App holds everything the subcommands share. It is filled by the root
// Before hook.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Store    *repository.Store
	Baseline *service.BaselineService
	Modules  *service.ModuleService
	Tasks    *service.TaskService
	Summary  *service.SummaryService
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		flags     = &Flags{}
		app       = &App{}
		logCloser func()
	)

	root := &cli.Command{
		Name:    "taskledger",
		Usage:   "Personal task board with modules, ordered lanes and summaries",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to a YAML config file",
				Sources:     cli.EnvVars("TASKLEDGER_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "path to the SQLite database",
				Sources:     cli.EnvVars("TASKLEDGER_DB"),
				Destination: &flags.Database,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of stderr",
				Sources:     cli.EnvVars("LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.BoolFlag{
				Name:        "pretty",
				Usage:       "human-readable logs on stderr",
				Destination: &flags.Pretty,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.LoadPath(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.Database != "" {
				cfg.DatabasePath = flags.Database
			}
			if flags.LogLevel != "" {
				cfg.LogLevel = flags.LogLevel
			}
			if flags.LogFile != "" {
				cfg.LogFile = flags.LogFile
			}

			logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile, flags.Pretty)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logCloser = closer

			if err := app.open(ctx, cfg, logger); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if app.Store != nil {
				if err := app.Store.Close(); err != nil {
					app.Log.Error().Err(err).Msg("failed to close database")
				}
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = NewServeCmd(app).Register(root)
	root = NewBotCmd(app).Register(root)
	root = NewBoardCmd(app).Register(root)
	root = NewSummaryCmd(app).Register(root)
	root = NewBaselineCmd(app).Register(root)

	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// open opens the store once and makes sure a default module exists before
// any command touches the data.
func (a *App) open(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, err := repository.NewLazy(cfg.DatabasePath, logger).Get()
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return fmt.Errorf("persistent storage is unavailable at %q; choose a writable location with --db", cfg.DatabasePath)
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	names, err := service.NewDefaultNames(cfg.DefaultModule, cfg.DefaultModulePattern)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("default module pattern: %w", err)
	}

	a.Config = cfg
	a.Log = logger
	a.Store = store
	a.Baseline = service.NewBaselineService(store, names, logger)
	a.Modules = service.NewModuleService(store, a.Baseline, logger)
	a.Tasks = service.NewTaskService(store, logger)
	a.Summary = service.NewSummaryService(store)

	if err := a.Baseline.EnsureBaseline(ctx); err != nil {
		return fmt.Errorf("ensure default module: %w", err)
	}
	return nil
}
