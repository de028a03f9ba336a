package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskledger/internal/model"
)

// TaskRepository manages task records.
type TaskRepository struct {
	db    *gorm.DB
	touch func(Table)
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &task, nil
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// List returns every task grouped by module, each module's tasks by order.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("module_id ASC, " + sortOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByModule returns pending and done tasks of a module, sorted by order.
func (r *TaskRepository) ListByModule(ctx context.Context, moduleID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("module_id = ?", moduleID).Order(sortOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list module tasks: %w", err)
	}
	return tasks, nil
}

// ListContainer returns the members of one container sorted by order.
func (r *TaskRepository) ListContainer(ctx context.Context, c model.Container) ([]model.Task, error) {
	var tasks []model.Task
	if err := containerScope(r.db.WithContext(ctx), c).Order(sortOrder).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list container %s: %w", c, err)
	}
	return tasks, nil
}

// ContainerOrders returns the order of every member of c except exclude.
func (r *TaskRepository) ContainerOrders(ctx context.Context, c model.Container, exclude string) ([]int, error) {
	var orders []int
	q := containerScope(r.db.WithContext(ctx).Model(&model.Task{}), c)
	if exclude != "" {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Pluck("sort_order", &orders).Error; err != nil {
		return nil, fmt.Errorf("container orders %s: %w", c, err)
	}
	return orders, nil
}

// FindByIDs loads the tasks with the given ids, keyed by id. Missing ids are absent.
func (r *TaskRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Task, error) {
	out := make(map[string]model.Task, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	r.touch(TableTasks)
	return nil
}

// Update writes the given columns. A missing id is not an error.
func (r *TaskRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.touch(TableTasks)
	}
	return nil
}

// SaveAll upserts whole records.
func (r *TaskRepository) SaveAll(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Save(&tasks).Error; err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	r.touch(TableTasks)
	return nil
}

func (r *TaskRepository) DeleteByIDs(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete tasks: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.touch(TableTasks)
	}
	return nil
}

// DeleteByModule removes every task of a module.
func (r *TaskRepository) DeleteByModule(ctx context.Context, moduleID string) error {
	res := r.db.WithContext(ctx).Where("module_id = ?", moduleID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete module tasks: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.touch(TableTasks)
	}
	return nil
}

func containerScope(db *gorm.DB, c model.Container) *gorm.DB {
	db = db.Where("module_id = ?", c.ModuleID)
	if c.Kind == model.KindDone {
		return db.Where("completed_at IS NOT NULL")
	}
	return db.Where("completed_at IS NULL")
}
