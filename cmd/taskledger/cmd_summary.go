package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"taskledger/internal/printer"
	"taskledger/internal/service"
)

type SummaryCmd struct {
	app *App

	// flags
	mode        string
	granularity string
	jsonOutput  bool
}

func NewSummaryCmd(app *App) *SummaryCmd {
	return &SummaryCmd{app: app}
}

func (cmd *SummaryCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "summary",
		Usage:     "Print completed or open tasks grouped by period",
		UsageText: "taskledger summary [--mode completed|open] [--by day|week|month] [--periods 7] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "completed or open", Value: "completed", Destination: &cmd.mode},
			&cli.StringFlag{Name: "by", Usage: "day, week or month", Value: "day", Destination: &cmd.granularity},
			&cli.IntFlag{Name: "periods", Usage: "number of periods, current one included", Value: 7},
			&cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: &cmd.jsonOutput},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *SummaryCmd) run(ctx context.Context, c *cli.Command) error {
	q, err := service.ParseSummaryQuery(cmd.mode, cmd.granularity, int(c.Int("periods")), time.Now())
	if err != nil {
		return err
	}
	summary, err := cmd.app.Summary.Build(ctx, q)
	if err != nil {
		return err
	}
	if cmd.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printer.New(os.Stdout).Summary(summary)
}
