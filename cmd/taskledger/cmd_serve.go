package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"taskledger/internal/httpapi"
)

type ServeCmd struct {
	app *App

	// flags
	host string
	port int
	dist string
}

func NewServeCmd(app *App) *ServeCmd {
	return &ServeCmd{app: app}
}

func (cmd *ServeCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the board UI and its JSON API",
		UsageText: "taskledger serve [--host 127.0.0.1] [--port 4173] [--dist dist]",
		Description: `Serves the built single-page app from the dist directory, the JSON API
under /api and a live snapshot stream at /api/live.

Unknown paths fall back to index.html so client-side routes work on reload.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Usage: "listen port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "dist", Usage: "directory holding the built frontend", Sources: cli.EnvVars("DIST_DIR")},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = int(c.Int("port"))
	}
	if c.IsSet("dist") {
		cfg.DistDir = c.String("dist")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := httpapi.New(httpapi.Deps{
		Store:   cmd.app.Store,
		Modules: cmd.app.Modules,
		Tasks:   cmd.app.Tasks,
		Summary: cmd.app.Summary,
		DistDir: cfg.DistDir,
		Log:     cmd.app.Log.With().Str("component", "http").Logger(),
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx, cfg.Addr())
}
