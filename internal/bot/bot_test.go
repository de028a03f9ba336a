package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskledger/internal/model"
	"taskledger/internal/ordering"
	"taskledger/internal/repository"
	"taskledger/internal/service"
)

const testChat = 42

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	answers []string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answers = append(f.answers, cb.Text)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) texts() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sb strings.Builder
	for _, m := range f.sent {
		sb.WriteString(m.Text + "\n")
	}
	return sb.String()
}

type botFixture struct {
	bot     *Bot
	api     *fakeAPI
	modules *service.ModuleService
	tasks   *service.TaskService
}

func newBotFixture(t *testing.T, chatID int64) *botFixture {
	t.Helper()
	store, err := repository.Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	names, err := service.NewDefaultNames("Default", "")
	require.NoError(t, err)
	baseline := service.NewBaselineService(store, names, zerolog.Nop())
	require.NoError(t, baseline.EnsureBaseline(context.Background()))

	modules := service.NewModuleService(store, baseline, zerolog.Nop())
	tasks := service.NewTaskService(store, zerolog.Nop())
	api := &fakeAPI{}
	b := newBot(api, Deps{
		Modules: modules,
		Tasks:   tasks,
		Summary: service.NewSummaryService(store),
		ChatID:  chatID,
		Log:     zerolog.Nop(),
	})
	return &botFixture{bot: b, api: api, modules: modules, tasks: tasks}
}

func message(text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 7, FirstName: "Ann"},
		Chat: &tgbotapi.Chat{ID: testChat, Type: "private"},
	}
	if strings.HasPrefix(text, "/") {
		head, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(head)}}
	}
	return msg
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat, Type: "private"}},
	}
}

func (f *botFixture) say(t *testing.T, text string) tgbotapi.MessageConfig {
	t.Helper()
	require.NoError(t, f.bot.handleMessage(context.Background(), message(text)))
	return f.api.last()
}

func (f *botFixture) press(t *testing.T, action, taskID string, index int) {
	t.Helper()
	data := callbackData{action: action, taskID: taskID, index: index}.String()
	require.NoError(t, f.bot.handleCallback(context.Background(), callback(data)))
}

func (f *botFixture) moduleList(t *testing.T) []model.Module {
	t.Helper()
	mods, err := f.modules.List(context.Background())
	require.NoError(t, err)
	return mods
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data    string
		want    callbackData
		wantErr bool
	}{
		{data: "done:task_1", want: callbackData{action: cbComplete, taskID: "task_1"}},
		{data: "mvto:task_1:3", want: callbackData{action: cbMoveTo, taskID: "task_1", index: 3}},
		{data: "mvto:task_1", wantErr: true},
		{data: "mvto:task_1:0", wantErr: true},
		{data: "up:task_1:2", wantErr: true},
		{data: "zap:task_1", wantErr: true},
		{data: "done:", wantErr: true},
		{data: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := parseCallback(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.data, got.String())
		})
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	data := callbackData{action: cbDeleteConfirm, taskID: "task_" + strings.Repeat("f", 48)}.String()
	assert.LessOrEqual(t, len(data), 64)
	data = callbackData{action: cbMoveTo, taskID: "task_" + strings.Repeat("f", 32), index: 999}.String()
	assert.LessOrEqual(t, len(data), 64)
}

func TestShiftID(t *testing.T) {
	got, ok := shiftID([]string{"a", "b", "c"}, "b", -1)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "c"}, got)

	got, ok = shiftID([]string{"a", "b", "c"}, "b", 1)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c", "b"}, got)

	_, ok = shiftID([]string{"a", "b"}, "a", -1)
	assert.False(t, ok)
	_, ok = shiftID([]string{"a", "b"}, "zzz", 1)
	assert.False(t, ok)
}

func TestMoveIndex(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"c", "a", "b", "d"}, moveIndex(ids, 2, 0))
	assert.Equal(t, []string{"b", "c", "d", "a"}, moveIndex(ids, 0, 10))
	assert.Equal(t, ids, moveIndex(ids, 7, 0))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestArgHelpers(t *testing.T) {
	idx, rest, ok := splitIndexArg(" 2  New name ")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "New name", rest)

	_, _, ok = splitIndexArg("zero")
	assert.False(t, ok)
	_, _, ok = splitIndexArg("0")
	assert.False(t, ok)

	mode, granularity := parseReportArgs("Open week")
	assert.Equal(t, "open", mode)
	assert.Equal(t, "week", granularity)
	mode, granularity = parseReportArgs("")
	assert.Empty(t, mode)
	assert.Empty(t, granularity)

	mods := []model.Module{{ID: "m1", Name: "Default"}, {ID: "m2", Name: "Work"}}
	m, ok := matchModule(mods, "2. Work")
	require.True(t, ok)
	assert.Equal(t, "m2", m.ID)
	m, ok = matchModule(mods, "default")
	require.True(t, ok)
	assert.Equal(t, "m1", m.ID)
	_, ok = matchModule(mods, "9. Nope")
	assert.False(t, ok)

	assert.Equal(t, "abc", shortTitle(" abc ", 5))
	assert.Equal(t, "abcd…", shortTitle("abcdefgh", 5))
}

func TestAllowed(t *testing.T) {
	open := newBotFixture(t, 0).bot
	assert.True(t, open.allowed(&tgbotapi.Chat{ID: 1, Type: "private"}))
	assert.False(t, open.allowed(&tgbotapi.Chat{ID: 1, Type: "group"}))
	assert.False(t, open.allowed(nil))

	locked := newBotFixture(t, testChat).bot
	assert.True(t, locked.allowed(&tgbotapi.Chat{ID: testChat, Type: "group"}))
	assert.False(t, locked.allowed(&tgbotapi.Chat{ID: 1, Type: "private"}))
}

func TestModuleCommands(t *testing.T) {
	f := newBotFixture(t, 0)

	msg := f.say(t, "/newmodule Work")
	assert.Contains(t, msg.Text, "1. Default")
	assert.Contains(t, msg.Text, "2. Work")

	f.say(t, "/movemodule 2 1")
	mods := f.moduleList(t)
	require.Len(t, mods, 2)
	assert.Equal(t, "Work", mods[0].Name)

	f.say(t, "/rename 1 Job")
	assert.Equal(t, "Job", f.moduleList(t)[0].Name)

	msg = f.say(t, "/rename 5 Nope")
	assert.Contains(t, msg.Text, "there is no module 5")

	msg = f.say(t, "/newmodule")
	assert.Contains(t, msg.Text, "/newmodule Work")

	f.say(t, "/deletemodule 1")
	mods = f.moduleList(t)
	require.Len(t, mods, 1)
	assert.Equal(t, "Default", mods[0].Name)
}

func TestNewTaskConversation(t *testing.T) {
	f := newBotFixture(t, 0)
	f.say(t, "/newmodule Work")

	f.say(t, "/newtask")
	f.say(t, "2. Work")
	f.say(t, "Write docs")
	msg := f.say(t, btnSkip)
	assert.Contains(t, msg.Text, "Write docs")
	assert.False(t, f.bot.hasConversation(7))

	work := f.moduleList(t)[1]
	split, err := f.tasks.ListByModule(context.Background(), work.ID)
	require.NoError(t, err)
	require.Len(t, split.Pending, 1)
	assert.Equal(t, "Write docs", split.Pending[0].Title)
	assert.Empty(t, split.Pending[0].Detail)

	f.say(t, "/newtask")
	f.say(t, btnCancelDialog)
	assert.False(t, f.bot.hasConversation(7))

	msg = f.say(t, "/newtask Quick one")
	assert.Contains(t, f.api.texts(), "Quick one")
	def, err := f.tasks.ListByModule(context.Background(), f.moduleList(t)[0].ID)
	require.NoError(t, err)
	require.Len(t, def.Pending, 1)
	assert.NotEmpty(t, msg.Text)
}

func TestTaskCallbacks(t *testing.T) {
	f := newBotFixture(t, 0)
	ctx := context.Background()
	f.say(t, "/newmodule Work")
	mods := f.moduleList(t)

	a, err := f.tasks.Create(ctx, mods[0].ID, service.TaskInput{Title: "A"})
	require.NoError(t, err)
	b, err := f.tasks.Create(ctx, mods[0].ID, service.TaskInput{Title: "B"})
	require.NoError(t, err)

	pending := func(moduleID string) []string {
		split, err := f.tasks.ListByModule(ctx, moduleID)
		require.NoError(t, err)
		return ordering.TaskIDs(split.Pending)
	}
	require.Equal(t, []string{b.ID, a.ID}, pending(mods[0].ID))

	f.press(t, cbDown, b.ID, 0)
	assert.Equal(t, []string{a.ID, b.ID}, pending(mods[0].ID))

	f.press(t, cbDown, b.ID, 0)
	assert.Equal(t, "Already at the edge", f.api.answers[len(f.api.answers)-1])

	f.press(t, cbMoveTo, b.ID, 2)
	assert.Equal(t, []string{a.ID}, pending(mods[0].ID))
	assert.Equal(t, []string{b.ID}, pending(mods[1].ID))

	f.press(t, cbComplete, b.ID, 0)
	task, err := f.tasks.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, task.Done())

	f.press(t, cbReopen, b.ID, 0)
	task, err = f.tasks.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, task.Done())

	f.press(t, cbDelete, a.ID, 0)
	assert.Contains(t, f.api.last().Text, "Delete «A»?")
	f.press(t, cbDeleteConfirm, a.ID, 0)
	_, err = f.tasks.Get(ctx, a.ID)
	assert.True(t, service.IsNotFound(err))

	f.press(t, cbComplete, a.ID, 0)
	assert.Contains(t, f.api.answers[len(f.api.answers)-1], "not found")
}

func TestReport(t *testing.T) {
	f := newBotFixture(t, testChat)
	ctx := context.Background()
	mod := f.moduleList(t)[0]
	task, err := f.tasks.Create(ctx, mod.ID, service.TaskInput{Title: "Ship"})
	require.NoError(t, err)
	require.NoError(t, f.tasks.SetCompletion(ctx, task.ID, true))

	msg := f.say(t, "/report week")
	assert.Contains(t, msg.Text, "Completed tasks")
	assert.Contains(t, msg.Text, "Ship")

	msg = f.say(t, "/report decade")
	assert.Contains(t, msg.Text, "unknown granularity")

	require.NoError(t, f.bot.SendScheduledSummary(ctx))
	last := f.api.last()
	assert.Equal(t, int64(testChat), last.ChatID)
	assert.Contains(t, last.Text, "Ship")
}
