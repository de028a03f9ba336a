package model

import "time"

// Task represents a single item in a module lane.
// CompletedAt is nil while the task is pending.
type Task struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	ModuleID    string     `gorm:"index" json:"moduleId"`
	Title       string     `json:"title"`
	Detail      string     `json:"detail"`
	Order       int        `gorm:"column:sort_order;index:idx_tasks_order" json:"order"`
	CreatedAt   time.Time  `gorm:"index;autoCreateTime:false" json:"createdAt"`
	CompletedAt *time.Time `gorm:"index" json:"completedAt"`
	UpdatedAt   time.Time  `gorm:"index;autoUpdateTime:false" json:"updatedAt"`
}

// Done reports whether the task sits in the done half of its module.
func (t Task) Done() bool {
	return t.CompletedAt != nil
}

// Container returns the partition the task currently belongs to.
func (t Task) Container() Container {
	kind := KindPending
	if t.Done() {
		kind = KindDone
	}
	return Container{Kind: kind, ModuleID: t.ModuleID}
}

// TaskLess orders tasks inside one container.
func TaskLess(a, b Task) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
