package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"taskledger/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageModule
	stageTitle
	stageDetail
)

const (
	btnSkip          = "⏭️ Skip"
	btnCancelDialog  = "⏪ Cancel input"
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelModules = "🗂 Modules"
	menuLabelHelp    = "ℹ️ Help"
)

type conversationState struct {
	stage    conversationStage
	moduleID string
	input    service.TaskInput
}

// sender is the part of the Telegram client the handlers need.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the services the bot drives.
type Deps struct {
	Modules *service.ModuleService
	Tasks   *service.TaskService
	Summary *service.SummaryService
	// ChatID restricts the bot to one chat and receives scheduled summaries.
	// Zero accepts any private chat and disables scheduled delivery.
	ChatID int64
	Log    zerolog.Logger
}

// Bot aggregates Telegram API with services.
type Bot struct {
	client        *tgbotapi.BotAPI
	api           sender
	modules       *service.ModuleService
	tasks         *service.TaskService
	summary       *service.SummaryService
	chatID        int64
	log           zerolog.Logger
	now           func() time.Time
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, deps Deps) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(client, deps)
	b.client = client
	b.log.Info().Str("account", client.Self.UserName).Msg("bot authorized")
	return b, nil
}

func newBot(api sender, deps Deps) *Bot {
	return &Bot{
		api:           api,
		modules:       deps.Modules,
		tasks:         deps.Tasks,
		summary:       deps.Summary,
		chatID:        deps.ChatID,
		log:           deps.Log.With().Str("component", "bot").Logger(),
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message == nil || !b.allowed(update.CallbackQuery.Message.Chat) {
			return
		}
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error().Err(err).Str("data", update.CallbackQuery.Data).Msg("handle callback")
		}
	case update.Message != nil:
		if !b.allowed(update.Message.Chat) {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Msg("handle message")
		}
	}
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if chat == nil {
		return false
	}
	if b.chatID != 0 {
		return chat.ID == b.chatID
	}
	return chat.IsPrivate()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if msg.IsCommand() {
		b.log.Debug().Int64("user", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "modules":
		return b.sendModuleList(ctx, msg.Chat.ID)
	case "newmodule":
		return b.handleNewModule(ctx, msg)
	case "rename":
		return b.handleRename(ctx, msg)
	case "deletemodule":
		return b.handleDeleteModule(ctx, msg)
	case "movemodule":
		return b.handleMoveModule(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your task ledger: modules, tasks, and what got done.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+helpText)
}

const helpText = "• /modules · list modules\n" +
	"• /newmodule &lt;name&gt; · add a module at the end\n" +
	"• /rename &lt;n&gt; &lt;name&gt; · rename module n\n" +
	"• /deletemodule &lt;n&gt; · delete module n and its tasks\n" +
	"• /movemodule &lt;n&gt; &lt;position&gt; · move module n\n" +
	"• /newtask [title] · add a task step by step\n" +
	"• /tasks [n] · open tasks, or everything in module n\n" +
	"• /report [day|week|month] [open] · summary for the current period\n" +
	"• /cancel · cancel the current input"

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelNewTask:
		return true, b.startNewTaskConversation(ctx, msg)
	case menuLabelTasks:
		return true, b.sendOpenTasks(ctx, msg.Chat.ID)
	case menuLabelModules:
		return true, b.sendModuleList(ctx, msg.Chat.ID)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	}
	return false, nil
}

// SendScheduledSummary delivers today's report to the configured chat.
func (b *Bot) SendScheduledSummary(ctx context.Context) error {
	if b.chatID == 0 {
		b.log.Warn().Msg("no chat configured for scheduled summary")
		return nil
	}
	text, err := b.buildReport(ctx, string(service.SummaryCompleted), string(service.Day))
	if err != nil {
		return err
	}
	return b.sendText(b.chatID, text)
}

// reply turns validation failures into a chat message and passes others on.
func (b *Bot) reply(chatID int64, err error) error {
	if errors.Is(err, service.ErrValidation) {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	if errors.Is(err, service.ErrNotFound) {
		return b.sendText(chatID, "Not found, it may have been deleted.")
	}
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text))
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
