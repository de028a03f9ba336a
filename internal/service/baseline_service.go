package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskledger/internal/ident"
	"taskledger/internal/model"
	"taskledger/internal/ordering"
	"taskledger/internal/repository"
)

// DefaultNames describes the name given to automatically created modules and
// recognises it again, numeric suffix included ("Default", "Default 2").
type DefaultNames struct {
	Base    string
	pattern *regexp.Regexp
}

// NewDefaultNames builds the matcher. An empty pattern matches base followed
// by an optional number.
func NewDefaultNames(base, pattern string) (DefaultNames, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return DefaultNames{}, fmt.Errorf("default module name is empty")
	}
	if pattern == "" {
		pattern = `^` + regexp.QuoteMeta(base) + `(\s*\d+)?$`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return DefaultNames{}, fmt.Errorf("default module pattern: %w", err)
	}
	return DefaultNames{Base: base, pattern: re}, nil
}

// Matches reports whether name looks like an automatically created module name.
func (d DefaultNames) Matches(name string) bool {
	if d.pattern == nil {
		return false
	}
	return d.pattern.MatchString(strings.TrimSpace(name))
}

// BaselineService keeps at least one module in the store and folds duplicate
// default modules left behind by overlapping startups.
type BaselineService struct {
	store *repository.Store
	names DefaultNames
	log   zerolog.Logger
	now   func() time.Time
}

func NewBaselineService(store *repository.Store, names DefaultNames, log zerolog.Logger) *BaselineService {
	return &BaselineService{store: store, names: names, log: log, now: time.Now}
}

// EnsureBaseline is idempotent and safe to call concurrently.
func (s *BaselineService) EnsureBaseline(ctx context.Context) error {
	return s.store.Transaction(ctx, func(tx *repository.Tx) error {
		return s.ensure(ctx, tx)
	})
}

func (s *BaselineService) ensure(ctx context.Context, tx *repository.Tx) error {
	moduleCount, err := tx.Module.Count(ctx)
	if err != nil {
		return err
	}
	if moduleCount == 0 {
		t := s.now()
		mod := model.Module{
			ID:        ident.NewID(ident.PrefixModule),
			Name:      s.names.Base,
			Color:     ident.RandomModuleColor(),
			Order:     0,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if err := tx.Module.Create(ctx, &mod); err != nil {
			return err
		}
		s.log.Info().Str("module_id", mod.ID).Msg("created default module")
		return nil
	}

	taskCount, err := tx.Task.Count(ctx)
	if err != nil {
		return err
	}
	if taskCount != 0 {
		return nil
	}

	mods, err := tx.Module.List(ctx)
	if err != nil {
		return err
	}
	if len(mods) <= 1 {
		return nil
	}
	for _, m := range mods {
		if !s.names.Matches(m.Name) {
			return nil
		}
	}

	ordering.SortModules(mods)
	keep := mods[0]
	drop := ordering.ModuleIDs(mods[1:])
	if err := tx.Module.DeleteByIDs(ctx, drop...); err != nil {
		return err
	}
	if err := tx.Module.Update(ctx, keep.ID, map[string]any{"sort_order": 0, "updated_at": s.now()}); err != nil {
		return err
	}
	s.log.Info().Str("module_id", keep.ID).Int("removed", len(drop)).Msg("collapsed duplicate default modules")
	return nil
}
