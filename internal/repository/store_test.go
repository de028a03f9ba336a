package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskledger/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func seedModule(t *testing.T, s *Store, id string, order int) model.Module {
	t.Helper()
	mod := model.Module{ID: id, Name: id, Color: "#5BA4E6", Order: order, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, s.Module.Create(context.Background(), &mod))
	return mod
}

func seedTask(t *testing.T, s *Store, id, moduleID string, order int, done bool) model.Task {
	t.Helper()
	task := model.Task{ID: id, ModuleID: moduleID, Title: id, Order: order, CreatedAt: t0, UpdatedAt: t0}
	if done {
		at := t0.Add(time.Hour)
		task.CompletedAt = &at
	}
	require.NoError(t, s.Task.Create(context.Background(), &task))
	return task
}

func TestOpen_Unsupported(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(filepath.Join(blocker, "sub", "ledger.db"), zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, IsSupported(filepath.Join(blocker, "ledger.db")))
	assert.True(t, IsSupported(":memory:"))
}

func TestLazy_ReturnsSameHandle(t *testing.T) {
	lazy := NewLazy(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())

	first, err := lazy.Get()
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := lazy.Get()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestModuleRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedModule(t, s, "mod_b", 1)
	seedModule(t, s, "mod_a", 0)
	seedModule(t, s, "mod_c", 1)

	t.Run("list is sorted", func(t *testing.T) {
		mods, err := s.Module.List(ctx)
		require.NoError(t, err)
		var ids []string
		for _, m := range mods {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []string{"mod_a", "mod_b", "mod_c"}, ids)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Module.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("orders and count", func(t *testing.T) {
		orders, err := s.Module.Orders(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{0, 1, 1}, orders)

		n, err := s.Module.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("update missing is silent", func(t *testing.T) {
		require.NoError(t, s.Module.Update(ctx, "nope", map[string]any{"name": "x"}))
	})

	t.Run("save all upserts", func(t *testing.T) {
		mods, err := s.Module.List(ctx)
		require.NoError(t, err)
		for i := range mods {
			mods[i].Order = 10 - i
		}
		require.NoError(t, s.Module.SaveAll(ctx, mods))

		got, err := s.Module.Get(ctx, "mod_a")
		require.NoError(t, err)
		assert.Equal(t, 10, got.Order)
		assert.Equal(t, "mod_a", got.Name)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Module.DeleteByIDs(ctx, "mod_b", "mod_c"))
		n, err := s.Module.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}

func TestTaskRepository_Containers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedModule(t, s, "mod_a", 0)
	seedTask(t, s, "p1", "mod_a", -1, false)
	seedTask(t, s, "p2", "mod_a", -2, false)
	seedTask(t, s, "d1", "mod_a", 0, true)
	seedTask(t, s, "other", "mod_b", -5, false)

	pending, err := s.Task.ListContainer(ctx, model.NewContainer(model.KindPending, "mod_a"))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p2", pending[0].ID)
	assert.Equal(t, "p1", pending[1].ID)

	done, err := s.Task.ListContainer(ctx, model.NewContainer(model.KindDone, "mod_a"))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "d1", done[0].ID)
	require.NotNil(t, done[0].CompletedAt)

	orders, err := s.Task.ContainerOrders(ctx, model.NewContainer(model.KindPending, "mod_a"), "p2")
	require.NoError(t, err)
	assert.Equal(t, []int{-1}, orders)

	found, err := s.Task.FindByIDs(ctx, []string{"p1", "gone"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, "p1")

	require.NoError(t, s.Task.Update(ctx, "d1", map[string]any{"completed_at": nil}))
	reopened, err := s.Task.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	require.NoError(t, s.Task.DeleteByModule(ctx, "mod_a"))
	n, err := s.Task.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTransaction_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	changes, cancel := s.Subscribe()
	defer cancel()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *Tx) error {
		mod := model.Module{ID: "mod_x", Name: "x", CreatedAt: t0, UpdatedAt: t0}
		if err := tx.Module.Create(ctx, &mod); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.Module.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	select {
	case c := <-changes:
		t.Fatalf("unexpected change after rollback: %+v", c)
	default:
	}
}

func TestTransaction_PublishesTouchedTables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tasksOnly, cancelTasks := s.Subscribe(TableTasks)
	defer cancelTasks()
	modulesOnly, cancelModules := s.Subscribe(TableModules)
	defer cancelModules()

	err := s.Transaction(ctx, func(tx *Tx) error {
		mod := model.Module{ID: "mod_x", Name: "x", CreatedAt: t0, UpdatedAt: t0}
		return tx.Module.Create(ctx, &mod)
	})
	require.NoError(t, err)

	select {
	case c := <-modulesOnly:
		assert.Equal(t, []Table{TableModules}, c.Tables)
	case <-time.After(time.Second):
		t.Fatal("expected module change")
	}

	select {
	case c := <-tasksOnly:
		t.Fatalf("tasks subscriber should not be notified: %+v", c)
	default:
	}
}

func TestObserve_RerunsAfterCommit(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	counts := make(chan int64, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Observe(ctx, []Table{TableModules}, func(ctx context.Context) error {
			runs.Add(1)
			n, err := s.Module.Count(ctx)
			if err != nil {
				return err
			}
			counts <- n
			return nil
		})
	}()

	assert.EqualValues(t, 0, <-counts)

	seedModule(t, s, "mod_a", 0)

	select {
	case n := <-counts:
		assert.EqualValues(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not re-run")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}
