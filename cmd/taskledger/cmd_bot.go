package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"taskledger/internal/bot"
	"taskledger/internal/service"
)

type BotCmd struct {
	app *App
}

func NewBotCmd(app *App) *BotCmd {
	return &BotCmd{app: app}
}

func (cmd *BotCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "bot",
		Usage: "Run the Telegram bot and the scheduled summaries",
		Description: `Polls Telegram for updates. TELEGRAM_TOKEN is required.

With TELEGRAM_CHAT_ID set, only that chat may use the bot and it receives
the daily summary at REPORT_TIME, plus one every REPORT_INTERVAL_HOURS if set.`,
		Action: cmd.run,
	})
	return root
}

func (cmd *BotCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	log := cmd.app.Log

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Deps{
		Modules: cmd.app.Modules,
		Tasks:   cmd.app.Tasks,
		Summary: cmd.app.Summary,
		ChatID:  cfg.TelegramChatID,
		Log:     log,
	})
	if err != nil {
		return err
	}

	job := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendScheduledSummary(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("send scheduled summary")
		}
	}

	scheduler := service.NewSchedulerService(time.Local, log)
	if cfg.TelegramChatID != 0 {
		if _, err := scheduler.ScheduleDaily("daily-summary", cfg.ReportTime, job); err != nil {
			return err
		}
		if interval := cfg.ReportInterval(); interval > 0 {
			if _, err := scheduler.ScheduleInterval("interval-summary", interval, job); err != nil {
				return err
			}
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Msg("taskledger bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
