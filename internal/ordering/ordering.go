// Package ordering computes order values for modules and tasks. It never
// touches storage: callers load records, ask for placements and write them back.
package ordering

import (
	"slices"

	"taskledger/internal/model"
)

// Placement is the order a record should be written with.
type Placement struct {
	ID    string
	Order int
}

// Append returns the order that puts a new item after all of orders.
// An empty container yields 0.
func Append(orders []int) int {
	if len(orders) == 0 {
		return 0
	}
	return slices.Max(orders) + 1
}

// Prepend returns the order that puts a new item before all of orders.
// An empty container yields -1.
func Prepend(orders []int) int {
	if len(orders) == 0 {
		return -1
	}
	return slices.Min(orders) - 1
}

// Merge returns requested ids that exist, in the requested order, followed by
// existing ids the request left out, in their existing order. Unknown and
// repeated ids are dropped.
func Merge(requested, existing []string) []string {
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = false
	}

	out := make([]string, 0, len(existing))
	for _, id := range requested {
		used, ok := known[id]
		if !ok || used {
			continue
		}
		known[id] = true
		out = append(out, id)
	}
	for _, id := range existing {
		if !known[id] {
			known[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Assign gives each id its index in ids. Ids rejected by exists are skipped
// but still occupy their index; only the first occurrence of an id counts.
func Assign(ids []string, exists func(id string) bool) []Placement {
	seen := make(map[string]struct{}, len(ids))
	out := make([]Placement, 0, len(ids))
	for idx, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if exists != nil && !exists(id) {
			continue
		}
		out = append(out, Placement{ID: id, Order: idx})
	}
	return out
}

// Dense assigns 0..n-1 to ids in sequence.
func Dense(ids []string) []Placement {
	return Assign(ids, nil)
}

// Without returns ids minus every occurrence of id.
func Without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// SortModules sorts modules by order, createdAt, id.
func SortModules(mods []model.Module) {
	slices.SortStableFunc(mods, func(a, b model.Module) int {
		return compare(model.ModuleLess(a, b), model.ModuleLess(b, a))
	})
}

// SortTasks sorts tasks by order, createdAt, id.
func SortTasks(tasks []model.Task) {
	slices.SortStableFunc(tasks, func(a, b model.Task) int {
		return compare(model.TaskLess(a, b), model.TaskLess(b, a))
	})
}

// ModuleIDs returns ids in slice order.
func ModuleIDs(mods []model.Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.ID
	}
	return out
}

// TaskIDs returns ids in slice order.
func TaskIDs(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

// CloseGap re-indexes the members of a container after exclude has left it.
// members may still contain the excluded task; it is filtered out before
// sorting so the remaining tasks keep their relative order.
func CloseGap(members []model.Task, exclude string) []Placement {
	rest := make([]model.Task, 0, len(members))
	for _, t := range members {
		if t.ID != exclude {
			rest = append(rest, t)
		}
	}
	SortTasks(rest)
	return Dense(TaskIDs(rest))
}

func compare(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}
