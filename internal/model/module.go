package model

import "time"

// Module is a named, colored lane that groups tasks.
type Module struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Order     int       `gorm:"column:sort_order;index:idx_modules_order" json:"order"`
	CreatedAt time.Time `gorm:"index;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time `gorm:"index;autoUpdateTime:false" json:"updatedAt"`
}

// ModuleLess reports whether a sorts before b: by order, then creation time, then id.
func ModuleLess(a, b Module) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
