package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"taskledger/internal/model"
	"taskledger/internal/repository"
)

// fakeClock advances one millisecond per reading so timestamps stay distinct.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fixture struct {
	store    *repository.Store
	clock    *fakeClock
	baseline *BaselineService
	modules  *ModuleService
	tasks    *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := repository.Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	names, err := NewDefaultNames("Default", "")
	require.NoError(t, err)

	clock := newFakeClock()
	baseline := NewBaselineService(store, names, zerolog.Nop())
	baseline.now = clock.Now
	modules := NewModuleService(store, baseline, zerolog.Nop())
	modules.now = clock.Now
	tasks := NewTaskService(store, zerolog.Nop())
	tasks.now = clock.Now

	return &fixture{store: store, clock: clock, baseline: baseline, modules: modules, tasks: tasks}
}

// insertModule writes a module directly, bypassing the service.
func (f *fixture) insertModule(t *testing.T, id, name string, order int) model.Module {
	t.Helper()
	now := f.clock.Now()
	mod := model.Module{ID: id, Name: name, Color: "#5BA4E6", Order: order, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Module.Create(context.Background(), &mod))
	return mod
}

func (f *fixture) moduleIDs(t *testing.T) []string {
	t.Helper()
	mods, err := f.modules.List(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(mods))
	for _, m := range mods {
		ids = append(ids, m.ID)
	}
	return ids
}

func (f *fixture) container(t *testing.T, kind model.ContainerKind, moduleID string) []string {
	t.Helper()
	tasks, err := f.store.Task.ListContainer(context.Background(), model.NewContainer(kind, moduleID))
	require.NoError(t, err)
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func (f *fixture) newTask(t *testing.T, moduleID, title string) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), moduleID, TaskInput{Title: title})
	require.NoError(t, err)
	return task
}

func ptr[T any](v T) *T { return &v }
