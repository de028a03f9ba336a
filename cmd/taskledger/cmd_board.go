package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"taskledger/internal/printer"
)

type BoardCmd struct {
	app *App

	// flags
	showDone bool
}

func NewBoardCmd(app *App) *BoardCmd {
	return &BoardCmd{app: app}
}

func (cmd *BoardCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "board",
		Usage:     "Print every module with its tasks",
		UsageText: "taskledger board [--done]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "done",
				Usage:       "include completed tasks",
				Destination: &cmd.showDone,
			},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *BoardCmd) run(ctx context.Context, c *cli.Command) error {
	mods, err := cmd.app.Modules.List(ctx)
	if err != nil {
		return fmt.Errorf("list modules: %w", err)
	}
	tasks, err := cmd.app.Tasks.List(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	return printer.New(os.Stdout).Board(mods, tasks, cmd.showDone)
}
