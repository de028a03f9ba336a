package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskledger/internal/model"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelModules),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// moduleKeyboard offers modules two per row, labelled "n. Name".
func moduleKeyboard(mods []model.Module) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for i, m := range mods {
		row = append(row, tgbotapi.NewKeyboardButton(fmt.Sprintf("%d. %s", i+1, m.Name)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func taskButtons(t model.Task) []tgbotapi.InlineKeyboardButton {
	cb := func(action string) string { return callbackData{action: action, taskID: t.ID}.String() }
	toggle := tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(t.Title, 18), cb(cbComplete))
	if t.Done() {
		toggle = tgbotapi.NewInlineKeyboardButtonData("↩️ "+shortTitle(t.Title, 18), cb(cbReopen))
	}
	return tgbotapi.NewInlineKeyboardRow(
		toggle,
		tgbotapi.NewInlineKeyboardButtonData("⬆️", cb(cbUp)),
		tgbotapi.NewInlineKeyboardButtonData("⬇️", cb(cbDown)),
		tgbotapi.NewInlineKeyboardButtonData("➡️", cb(cbMove)),
		tgbotapi.NewInlineKeyboardButtonData("🗑", cb(cbDelete)),
	)
}

func confirmDeleteKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", callbackData{action: cbDeleteConfirm, taskID: taskID}.String()),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", callbackData{action: cbDeleteCancel, taskID: taskID}.String()),
	))
}

func moveTargetKeyboard(taskID string, mods []model.Module) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(mods))
	for i, m := range mods {
		data := callbackData{action: cbMoveTo, taskID: taskID, index: i + 1}.String()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s", i+1, m.Name), data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isSkipInput(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return text == btnSkip || lower == "skip" || lower == "-"
}

func isCancelDialogInput(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return text == btnCancelDialog || lower == "cancel"
}
