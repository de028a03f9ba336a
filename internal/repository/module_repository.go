package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskledger/internal/model"
)

const sortOrder = "sort_order ASC, created_at ASC, id ASC"

// ModuleRepository manages module records.
type ModuleRepository struct {
	db    *gorm.DB
	touch func(Table)
}

func (r *ModuleRepository) Get(ctx context.Context, id string) (*model.Module, error) {
	var mod model.Module
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&mod).Error; err != nil {
		return nil, fmt.Errorf("get module %s: %w", id, err)
	}
	return &mod, nil
}

func (r *ModuleRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Module{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check module: %w", err)
	}
	return n > 0, nil
}

// List returns every module sorted by order, creation time and id.
func (r *ModuleRepository) List(ctx context.Context) ([]model.Module, error) {
	var mods []model.Module
	if err := r.db.WithContext(ctx).Order(sortOrder).Find(&mods).Error; err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return mods, nil
}

func (r *ModuleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Module{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count modules: %w", err)
	}
	return n, nil
}

// Orders returns the order value of every module.
func (r *ModuleRepository) Orders(ctx context.Context) ([]int, error) {
	var orders []int
	if err := r.db.WithContext(ctx).Model(&model.Module{}).Pluck("sort_order", &orders).Error; err != nil {
		return nil, fmt.Errorf("module orders: %w", err)
	}
	return orders, nil
}

func (r *ModuleRepository) Create(ctx context.Context, mod *model.Module) error {
	if err := r.db.WithContext(ctx).Create(mod).Error; err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	r.touch(TableModules)
	return nil
}

// Update writes the given columns. A missing id is not an error.
func (r *ModuleRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Module{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update module: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.touch(TableModules)
	}
	return nil
}

// SaveAll upserts whole records.
func (r *ModuleRepository) SaveAll(ctx context.Context, mods []model.Module) error {
	if len(mods) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Save(&mods).Error; err != nil {
		return fmt.Errorf("save modules: %w", err)
	}
	r.touch(TableModules)
	return nil
}

func (r *ModuleRepository) DeleteByIDs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Module{})
	if res.Error != nil {
		return fmt.Errorf("delete modules: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.touch(TableModules)
	}
	return nil
}
