package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Table names a record collection.
type Table string

const (
	TableModules Table = "modules"
	TableTasks   Table = "tasks"
)

// Store owns the database handle for the process.
type Store struct {
	db     *gorm.DB
	hub    *hub
	log    zerolog.Logger
	Module *ModuleRepository
	Task   *TaskRepository
}

// Tx gives access to both collections inside one transaction. Every read
// made through it sees the same snapshot, and all writes commit together.
type Tx struct {
	Module *ModuleRepository
	Task   *TaskRepository
}

// Open checks that dsn can hold a database, then opens and migrates it.
func Open(dsn string, log zerolog.Logger) (*Store, error) {
	if !IsSupported(dsn) {
		return nil, fmt.Errorf("open %q: %w", dsn, ErrStoreUnavailable)
	}
	db, err := NewDB(dsn, log)
	if err != nil {
		return nil, err
	}
	return newStore(db, log), nil
}

func newStore(db *gorm.DB, log zerolog.Logger) *Store {
	s := &Store{db: db, hub: newHub(), log: log}
	s.Module = &ModuleRepository{db: db, touch: s.publish}
	s.Task = &TaskRepository{db: db, touch: s.publish}
	return s
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn inside a write transaction. If fn returns an error the
// transaction is rolled back and nothing is published to subscribers.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	touched := make(tableSet)
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{
			Module: &ModuleRepository{db: gtx, touch: touched.add},
			Task:   &TaskRepository{db: gtx, touch: touched.add},
		})
	})
	if err != nil {
		return err
	}
	if len(touched) > 0 {
		s.hub.publish(touched.list())
	}
	return nil
}

// Subscribe returns a channel that receives a Change after every commit that
// touches one of tables (all tables when none are given). Notifications
// coalesce: a slow reader sees at least one Change per burst of commits.
func (s *Store) Subscribe(tables ...Table) (<-chan Change, func()) {
	return s.hub.subscribe(tables)
}

// Observe runs fn once and again after every commit touching tables, until
// ctx is done or fn fails.
func (s *Store) Observe(ctx context.Context, tables []Table, fn func(ctx context.Context) error) error {
	changes, cancel := s.Subscribe(tables...)
	defer cancel()

	if err := fn(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Store) publish(t Table) {
	s.hub.publish([]Table{t})
}

type tableSet map[Table]struct{}

func (ts tableSet) add(t Table) { ts[t] = struct{}{} }

func (ts tableSet) list() []Table {
	out := make([]Table, 0, len(ts))
	for _, t := range []Table{TableModules, TableTasks} {
		if _, ok := ts[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Lazy opens the store on first use and hands out the same instance afterwards.
type Lazy struct {
	dsn   string
	log   zerolog.Logger
	once  sync.Once
	store *Store
	err   error
}

// NewLazy prepares a store that is opened by the first Get.
func NewLazy(dsn string, log zerolog.Logger) *Lazy {
	return &Lazy{dsn: dsn, log: log}
}

// Get opens the store once. Later calls return the same store, or the same error.
func (l *Lazy) Get() (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = Open(l.dsn, l.log)
		if l.err == nil {
			l.log.Debug().Str("dsn", l.dsn).Msg("store opened")
		}
	})
	return l.store, l.err
}
