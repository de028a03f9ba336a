package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskledger/internal/ident"
	"taskledger/internal/model"
	"taskledger/internal/ordering"
	"taskledger/internal/repository"
)

// ModulePatch lists the module fields to change. Nil fields are left alone.
type ModulePatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// ModuleService creates, edits, removes and reorders modules.
type ModuleService struct {
	store    *repository.Store
	baseline *BaselineService
	log      zerolog.Logger
	now      func() time.Time
}

func NewModuleService(store *repository.Store, baseline *BaselineService, log zerolog.Logger) *ModuleService {
	return &ModuleService{store: store, baseline: baseline, log: log, now: time.Now}
}

// List returns modules in display order.
func (s *ModuleService) List(ctx context.Context) ([]model.Module, error) {
	return s.store.Module.List(ctx)
}

func (s *ModuleService) Get(ctx context.Context, id string) (*model.Module, error) {
	return s.store.Module.Get(ctx, id)
}

// Create appends a module after all existing ones. An empty color picks one
// from the palette.
func (s *ModuleService) Create(ctx context.Context, name, color string) (*model.Module, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "module name must not be empty")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = ident.RandomModuleColor()
	}

	var mod model.Module
	err := s.store.Transaction(ctx, func(tx *repository.Tx) error {
		orders, err := tx.Module.Orders(ctx)
		if err != nil {
			return err
		}
		t := s.now()
		mod = model.Module{
			ID:        ident.NewID(ident.PrefixModule),
			Name:      name,
			Color:     color,
			Order:     ordering.Append(orders),
			CreatedAt: t,
			UpdatedAt: t,
		}
		return tx.Module.Create(ctx, &mod)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("module_id", mod.ID).Int("order", mod.Order).Msg("module created")
	return &mod, nil
}

// Update renames or recolors a module. Unknown ids are ignored.
func (s *ModuleService) Update(ctx context.Context, id string, patch ModulePatch) error {
	fields := map[string]any{"updated_at": s.now()}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return invalid("name", "module name must not be empty")
		}
		fields["name"] = name
	}
	if patch.Color != nil {
		if color := strings.TrimSpace(*patch.Color); color != "" {
			fields["color"] = color
		}
	}
	return s.store.Module.Update(ctx, id, fields)
}

// Delete removes a module together with its tasks. If it was the last module a
// fresh default module takes its place.
func (s *ModuleService) Delete(ctx context.Context, id string) error {
	err := s.store.Transaction(ctx, func(tx *repository.Tx) error {
		if err := tx.Module.DeleteByIDs(ctx, id); err != nil {
			return err
		}
		if err := tx.Task.DeleteByModule(ctx, id); err != nil {
			return err
		}
		return s.baseline.ensure(ctx, tx)
	})
	if err != nil {
		return err
	}
	s.log.Debug().Str("module_id", id).Msg("module deleted")
	return nil
}

// Reorder rewrites module orders to 0..n-1 following ids. Modules missing from
// ids keep their relative order after the listed ones.
func (s *ModuleService) Reorder(ctx context.Context, ids []string) error {
	return s.store.Transaction(ctx, func(tx *repository.Tx) error {
		mods, err := tx.Module.List(ctx)
		if err != nil {
			return err
		}
		byID := make(map[string]model.Module, len(mods))
		for _, m := range mods {
			byID[m.ID] = m
		}

		t := s.now()
		placements := ordering.Dense(ordering.Merge(ids, ordering.ModuleIDs(mods)))
		out := make([]model.Module, 0, len(placements))
		for _, p := range placements {
			m := byID[p.ID]
			m.Order = p.Order
			m.UpdatedAt = t
			out = append(out, m)
		}
		return tx.Module.SaveAll(ctx, out)
	})
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
