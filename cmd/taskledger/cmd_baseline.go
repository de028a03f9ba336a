package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type BaselineCmd struct {
	app *App
}

func NewBaselineCmd(app *App) *BaselineCmd {
	return &BaselineCmd{app: app}
}

func (cmd *BaselineCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "baseline",
		Usage: "Make sure the default module exists and collapse duplicates",
		Description: `Runs the same check every command performs at startup and reports the
resulting module count. Safe to run any number of times.`,
		Action: cmd.run,
	})
	return root
}

func (cmd *BaselineCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Baseline.EnsureBaseline(ctx); err != nil {
		return err
	}
	mods, err := cmd.app.Modules.List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d module(s)\n", len(mods))
	for i, m := range mods {
		fmt.Printf("%d. %s\n", i+1, m.Name)
	}
	return nil
}
