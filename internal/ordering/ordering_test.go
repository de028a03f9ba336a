package ordering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskledger/internal/model"
)

func TestAppendPrepend(t *testing.T) {
	assert.Equal(t, 0, Append(nil))
	assert.Equal(t, 4, Append([]int{3, -1, 2}))
	assert.Equal(t, -1, Prepend(nil))
	assert.Equal(t, -3, Prepend([]int{-2, 5, 0}))
}

func TestMerge(t *testing.T) {
	existing := []string{"a", "b", "c", "d"}

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{name: "full reorder", requested: []string{"d", "c", "b", "a"}, want: []string{"d", "c", "b", "a"}},
		{name: "partial appends missing", requested: []string{"c", "a"}, want: []string{"c", "a", "b", "d"}},
		{name: "unknown ids dropped", requested: []string{"x", "b", "y"}, want: []string{"b", "a", "c", "d"}},
		{name: "repeats dropped", requested: []string{"b", "b", "a"}, want: []string{"b", "a", "c", "d"}},
		{name: "empty request", requested: nil, want: existing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.requested, existing))
		})
	}
}

func TestAssign(t *testing.T) {
	exists := func(id string) bool { return id != "stale" }

	got := Assign([]string{"a", "stale", "b", "a"}, exists)
	assert.Equal(t, []Placement{{ID: "a", Order: 0}, {ID: "b", Order: 2}}, got)

	assert.Equal(t, []Placement{{ID: "x", Order: 0}, {ID: "y", Order: 1}}, Dense([]string{"x", "y"}))
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, Without([]string{"a", "b", "c", "b"}, "b"))
}

func TestCloseGapExcludesMovedTask(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	members := []model.Task{
		{ID: "c", Order: 7, CreatedAt: t0},
		{ID: "moved", Order: 1, CreatedAt: t0},
		{ID: "a", Order: -4, CreatedAt: t0},
		{ID: "b", Order: 2, CreatedAt: t0},
	}

	got := CloseGap(members, "moved")
	assert.Equal(t, []Placement{
		{ID: "a", Order: 0},
		{ID: "b", Order: 1},
		{ID: "c", Order: 2},
	}, got)
}

func TestSortModules(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mods := []model.Module{
		{ID: "late", Order: 0, CreatedAt: t0.Add(time.Minute)},
		{ID: "second", Order: 1, CreatedAt: t0},
		{ID: "early", Order: 0, CreatedAt: t0},
	}
	SortModules(mods)
	assert.Equal(t, []string{"early", "late", "second"}, ModuleIDs(mods))
}
