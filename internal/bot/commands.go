package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskledger/internal/model"
	"taskledger/internal/service"
)

func (b *Bot) sendModuleList(ctx context.Context, chatID int64) error {
	mods, err := b.modules.List(ctx)
	if err != nil {
		return err
	}
	tasks, err := b.tasks.List(ctx)
	if err != nil {
		return err
	}
	return b.sendText(chatID, formatModuleList(mods, tasks))
}

func (b *Bot) handleNewModule(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Give the module a name: /newmodule Work")
	}
	mod, err := b.modules.Create(ctx, name, "")
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	b.log.Info().Str("module_id", mod.ID).Msg("module created")
	return b.sendModuleList(ctx, msg.Chat.ID)
}

func (b *Bot) handleRename(ctx context.Context, msg *tgbotapi.Message) error {
	idx, rest, ok := splitIndexArg(msg.CommandArguments())
	if !ok || rest == "" {
		return b.sendText(msg.Chat.ID, "Usage: /rename 2 New name")
	}
	mod, err := b.moduleAt(ctx, idx)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	if err := b.modules.Update(ctx, mod.ID, service.ModulePatch{Name: &rest}); err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendModuleList(ctx, msg.Chat.ID)
}

func (b *Bot) handleDeleteModule(ctx context.Context, msg *tgbotapi.Message) error {
	idx, _, ok := splitIndexArg(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Usage: /deletemodule 2")
	}
	mod, err := b.moduleAt(ctx, idx)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	if err := b.modules.Delete(ctx, mod.ID); err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	b.log.Info().Str("module_id", mod.ID).Msg("module deleted")
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Module «%s» deleted with its tasks.", escape(mod.Name))); err != nil {
		return err
	}
	return b.sendModuleList(ctx, msg.Chat.ID)
}

func (b *Bot) handleMoveModule(ctx context.Context, msg *tgbotapi.Message) error {
	idx, rest, ok := splitIndexArg(msg.CommandArguments())
	pos, err := strconv.Atoi(strings.TrimSpace(rest))
	if !ok || err != nil || pos < 1 {
		return b.sendText(msg.Chat.ID, "Usage: /movemodule 3 1")
	}
	mods, err := b.modules.List(ctx)
	if err != nil {
		return err
	}
	if idx > len(mods) {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("There is no module %d.", idx))
	}
	ids := moveIndex(moduleIDs(mods), idx-1, pos-1)
	if err := b.modules.Reorder(ctx, ids); err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendModuleList(ctx, msg.Chat.ID)
}

// moduleAt resolves a 1-based position in display order.
func (b *Bot) moduleAt(ctx context.Context, idx int) (*model.Module, error) {
	mods, err := b.modules.List(ctx)
	if err != nil {
		return nil, err
	}
	if idx < 1 || idx > len(mods) {
		return nil, &service.ValidationError{Field: "module", Message: fmt.Sprintf("there is no module %d", idx)}
	}
	return &mods[idx-1], nil
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	mods, err := b.modules.List(ctx)
	if err != nil {
		return err
	}

	if title := strings.TrimSpace(msg.CommandArguments()); title != "" && len(mods) > 0 {
		return b.finishTaskCreation(ctx, msg.Chat.ID, mods[0].ID, service.TaskInput{Title: title})
	}

	b.log.Debug().Int64("user", msg.From.ID).Msg("start new task conversation")
	if len(mods) == 1 {
		b.setConversation(msg.From.ID, &conversationState{stage: stageTitle, moduleID: mods[0].ID})
		return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task in «"+escape(mods[0].Name)+"».\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageModule})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> pick a module.", moduleKeyboard(mods))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageModule:
		mods, err := b.modules.List(ctx)
		if err != nil {
			return err
		}
		mod, ok := matchModule(mods, text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the modules below.", moduleKeyboard(mods))
		}
		state.moduleID = mod.ID
		state.stage = stageTitle
		return b.sendWithReplyMarkup(msg.Chat.ID, "<b>Step 2:</b> what should it be called?", cancelKeyboard())
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDetail
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short detail (or press «Skip»).", skipKeyboard())
	case stageDetail:
		if !isSkipInput(text) {
			state.input.Detail = text
		}
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg.Chat.ID, state.moduleID, state.input)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try /newtask again.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, moduleID string, input service.TaskInput) error {
	task, err := b.tasks.Create(ctx, moduleID, input)
	if err != nil {
		return b.reply(chatID, err)
	}
	b.log.Info().Str("task_id", task.ID).Str("module_id", moduleID).Msg("task created")

	if err := b.sendText(chatID, "✅ Saved <b>"+escape(task.Title)+"</b>"); err != nil {
		return err
	}
	return b.sendModuleTasks(ctx, chatID, moduleID)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendOpenTasks(ctx, msg.Chat.ID)
	}
	idx, err := strconv.Atoi(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /tasks or /tasks 2")
	}
	mod, err := b.moduleAt(ctx, idx)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendModuleTasks(ctx, msg.Chat.ID, mod.ID)
}

// sendOpenTasks lists pending tasks of every module.
func (b *Bot) sendOpenTasks(ctx context.Context, chatID int64) error {
	mods, err := b.modules.List(ctx)
	if err != nil {
		return err
	}
	tasks, err := b.tasks.List(ctx)
	if err != nil {
		return err
	}

	byModule := make(map[string][]model.Task)
	for _, t := range tasks {
		byModule[t.ModuleID] = append(byModule[t.ModuleID], t)
	}

	var builder strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, m := range mods {
		pending := service.SplitTasks(byModule[m.ID]).Pending
		if len(pending) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("<b>%d. %s</b>\n", i+1, escape(m.Name)))
		for _, t := range pending {
			builder.WriteString(formatTask(t))
			rows = append(rows, taskButtons(t))
		}
		builder.WriteByte('\n')
	}
	if len(rows) == 0 {
		return b.sendText(chatID, "No open tasks. Add one with /newtask.")
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

// sendModuleTasks lists both halves of one module with action buttons.
func (b *Bot) sendModuleTasks(ctx context.Context, chatID int64, moduleID string) error {
	mod, err := b.modules.Get(ctx, moduleID)
	if err != nil {
		return b.reply(chatID, err)
	}
	split, err := b.tasks.ListByModule(ctx, moduleID)
	if err != nil {
		return err
	}

	text := formatModuleTasks(*mod, split)
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range split.Pending {
		rows = append(rows, taskButtons(t))
	}
	for _, t := range split.Done {
		rows = append(rows, taskButtons(t))
	}
	if len(rows) == 0 {
		return b.sendText(chatID, text)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	mode, granularity := parseReportArgs(msg.CommandArguments())
	text, err := b.buildReport(ctx, mode, granularity)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) buildReport(ctx context.Context, mode, granularity string) (string, error) {
	q, err := service.ParseSummaryQuery(mode, granularity, 1, b.now())
	if err != nil {
		return "", err
	}
	summary, err := b.summary.Build(ctx, q)
	if err != nil {
		return "", err
	}
	return service.FormatSummary(summary), nil
}

// splitIndexArg reads a leading 1-based position and returns the rest.
func splitIndexArg(args string) (int, string, bool) {
	head, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	idx, err := strconv.Atoi(head)
	if err != nil || idx < 1 {
		return 0, "", false
	}
	return idx, strings.TrimSpace(rest), true
}

// parseReportArgs accepts a granularity and an optional "open" flag in any order.
func parseReportArgs(args string) (mode, granularity string) {
	for _, field := range strings.Fields(strings.ToLower(args)) {
		switch field {
		case string(service.SummaryOpen), string(service.SummaryCompleted):
			mode = field
		default:
			granularity = field
		}
	}
	return mode, granularity
}

// matchModule accepts either a keyboard label ("2. Work") or a bare name.
func matchModule(mods []model.Module, text string) (model.Module, bool) {
	if head, _, ok := strings.Cut(text, "."); ok {
		if idx, err := strconv.Atoi(strings.TrimSpace(head)); err == nil && idx >= 1 && idx <= len(mods) {
			return mods[idx-1], true
		}
	}
	for _, m := range mods {
		if strings.EqualFold(strings.TrimSpace(m.Name), text) {
			return m, true
		}
	}
	return model.Module{}, false
}

func moduleIDs(mods []model.Module) []string {
	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID)
	}
	return ids
}

// moveIndex moves ids[from] to position to, clamping to the slice bounds.
func moveIndex(ids []string, from, to int) []string {
	out := make([]string, 0, len(ids))
	if from < 0 || from >= len(ids) {
		return append(out, ids...)
	}
	to = max(0, min(to, len(ids)-1))
	moved := ids[from]
	for i, id := range ids {
		if i != from {
			out = append(out, id)
		}
	}
	out = append(out[:to], append([]string{moved}, out[to:]...)...)
	return out
}
