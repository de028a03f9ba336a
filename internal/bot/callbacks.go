package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskledger/internal/model"
	"taskledger/internal/ordering"
	"taskledger/internal/service"
)

// Callback data is "<action>:<task id>[:<module position>]", well under
// Telegram's 64-byte limit.
const (
	cbComplete      = "done"
	cbReopen        = "undo"
	cbDelete        = "del"
	cbDeleteConfirm = "delok"
	cbDeleteCancel  = "delno"
	cbUp            = "up"
	cbDown          = "down"
	cbMove          = "mv"
	cbMoveTo        = "mvto"
)

type callbackData struct {
	action string
	taskID string
	index  int
}

func (d callbackData) String() string {
	if d.action == cbMoveTo {
		return fmt.Sprintf("%s:%s:%d", d.action, d.taskID, d.index)
	}
	return d.action + ":" + d.taskID
}

func parseCallback(data string) (callbackData, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[1] == "" {
		return callbackData{}, fmt.Errorf("malformed callback %q", data)
	}
	d := callbackData{action: parts[0], taskID: parts[1]}
	switch d.action {
	case cbComplete, cbReopen, cbDelete, cbDeleteConfirm, cbDeleteCancel, cbUp, cbDown, cbMove:
		if len(parts) != 2 {
			return callbackData{}, fmt.Errorf("malformed callback %q", data)
		}
	case cbMoveTo:
		if len(parts) != 3 {
			return callbackData{}, fmt.Errorf("malformed callback %q", data)
		}
		idx, err := strconv.Atoi(parts[2])
		if err != nil || idx < 1 {
			return callbackData{}, fmt.Errorf("bad module position in %q", data)
		}
		d.index = idx
	default:
		return callbackData{}, fmt.Errorf("unknown callback action %q", d.action)
	}
	return d, nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	chatID := cb.Message.Chat.ID
	data, err := parseCallback(cb.Data)
	if err != nil {
		_ = b.answer(cb, "")
		return err
	}

	task, err := b.tasks.Get(ctx, data.taskID)
	if service.IsNotFound(err) {
		return b.answer(cb, "Task not found, it may have been deleted.")
	}
	if err != nil {
		return err
	}

	switch data.action {
	case cbComplete, cbReopen:
		if err := b.tasks.SetCompletion(ctx, task.ID, data.action == cbComplete); err != nil {
			return b.reply(chatID, err)
		}
		if err := b.answer(cb, "Updated"); err != nil {
			return err
		}
		return b.sendModuleTasks(ctx, chatID, task.ModuleID)
	case cbDelete:
		if err := b.answer(cb, ""); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete «%s»?", escape(task.Title)))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = confirmDeleteKeyboard(task.ID)
		_, err := b.api.Send(msg)
		return err
	case cbDeleteConfirm:
		if err := b.tasks.Delete(ctx, task.ID); err != nil {
			return b.reply(chatID, err)
		}
		b.log.Info().Str("task_id", task.ID).Msg("task deleted")
		if err := b.answer(cb, "Deleted"); err != nil {
			return err
		}
		return b.sendModuleTasks(ctx, chatID, task.ModuleID)
	case cbDeleteCancel:
		return b.answer(cb, "Kept")
	case cbUp, cbDown:
		return b.shiftTask(ctx, cb, *task, data.action == cbUp)
	case cbMove:
		mods, err := b.modules.List(ctx)
		if err != nil {
			return err
		}
		if err := b.answer(cb, ""); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Move «%s» to which module?", escape(task.Title)))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = moveTargetKeyboard(task.ID, mods)
		_, err = b.api.Send(msg)
		return err
	case cbMoveTo:
		return b.moveTaskToModule(ctx, cb, *task, data.index)
	}
	return nil
}

// shiftTask swaps a task with its neighbour inside its own container.
func (b *Bot) shiftTask(ctx context.Context, cb *tgbotapi.CallbackQuery, task model.Task, up bool) error {
	split, err := b.tasks.ListByModule(ctx, task.ModuleID)
	if err != nil {
		return err
	}
	members := split.Pending
	if task.Done() {
		members = split.Done
	}
	delta := 1
	if up {
		delta = -1
	}
	ids, ok := shiftID(ordering.TaskIDs(members), task.ID, delta)
	if !ok {
		return b.answer(cb, "Already at the edge")
	}

	c := task.Container()
	err = b.tasks.MoveAndReorder(ctx, service.MoveRequest{TaskID: task.ID, From: c, To: c, OrderedIDsInTo: ids})
	if err != nil {
		return b.reply(cb.Message.Chat.ID, err)
	}
	if err := b.answer(cb, "Moved"); err != nil {
		return err
	}
	return b.sendModuleTasks(ctx, cb.Message.Chat.ID, task.ModuleID)
}

// moveTaskToModule puts the task at the top of the same half of another module.
func (b *Bot) moveTaskToModule(ctx context.Context, cb *tgbotapi.CallbackQuery, task model.Task, index int) error {
	target, err := b.moduleAt(ctx, index)
	if err != nil {
		_ = b.answer(cb, "")
		return b.reply(cb.Message.Chat.ID, err)
	}
	from := task.Container()
	to := model.NewContainer(from.Kind, target.ID)
	if from == to {
		return b.answer(cb, "Already there")
	}

	split, err := b.tasks.ListByModule(ctx, target.ID)
	if err != nil {
		return err
	}
	members := split.Pending
	if task.Done() {
		members = split.Done
	}
	req := service.MoveRequest{
		TaskID:         task.ID,
		From:           from,
		To:             to,
		OrderedIDsInTo: append([]string{task.ID}, ordering.TaskIDs(members)...),
	}
	if err := b.tasks.MoveAndReorder(ctx, req); err != nil {
		return b.reply(cb.Message.Chat.ID, err)
	}
	b.log.Info().Str("task_id", task.ID).Str("module_id", target.ID).Msg("task moved")
	if err := b.answer(cb, "Moved to "+target.Name); err != nil {
		return err
	}
	return b.sendModuleTasks(ctx, cb.Message.Chat.ID, target.ID)
}

// shiftID swaps id with the element delta steps away.
func shiftID(ids []string, id string, delta int) ([]string, bool) {
	pos := -1
	for i, v := range ids {
		if v == id {
			pos = i
			break
		}
	}
	next := pos + delta
	if pos < 0 || next < 0 || next >= len(ids) {
		return nil, false
	}
	out := append([]string(nil), ids...)
	out[pos], out[next] = out[next], out[pos]
	return out, true
}
