package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContainer(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Container
		wantErr bool
	}{
		{name: "pending", raw: "todo:mod_1", want: Container{Kind: KindPending, ModuleID: "mod_1"}},
		{name: "done", raw: "done:mod_2", want: Container{Kind: KindDone, ModuleID: "mod_2"}},
		{name: "trims", raw: "  done:mod_3 ", want: Container{Kind: KindDone, ModuleID: "mod_3"}},
		{name: "no separator", raw: "todo", wantErr: true},
		{name: "unknown kind", raw: "later:mod_1", wantErr: true},
		{name: "empty module", raw: "todo:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContainer(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, raw string) Container {
	t.Helper()
	c, err := ParseContainer(raw)
	require.NoError(t, err)
	return c
}

func TestContainerJSON(t *testing.T) {
	var payload struct {
		From Container `json:"from"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"from":"done:mod_x"}`), &payload))
	assert.Equal(t, NewContainer(KindDone, "mod_x"), payload.From)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"done:mod_x"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"from":"bogus"}`), &payload))
}

func TestTaskContainer(t *testing.T) {
	now := time.Now()
	pending := Task{ID: "a", ModuleID: "m"}
	done := Task{ID: "b", ModuleID: "m", CompletedAt: &now}

	assert.Equal(t, NewContainer(KindPending, "m"), pending.Container())
	assert.Equal(t, NewContainer(KindDone, "m"), done.Container())
	assert.True(t, NewContainer(KindDone, "m").Contains(done))
	assert.False(t, NewContainer(KindDone, "m").Contains(pending))
	assert.False(t, NewContainer(KindPending, "other").Contains(pending))
}

func TestLessTieBreaks(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Module{ID: "b", Order: 0, CreatedAt: t0}
	b := Module{ID: "a", Order: 0, CreatedAt: t0}
	c := Module{ID: "c", Order: 0, CreatedAt: t0.Add(-time.Second)}

	assert.True(t, ModuleLess(b, a), "id breaks ties")
	assert.True(t, ModuleLess(c, b), "createdAt before id")
	assert.True(t, TaskLess(Task{Order: -2}, Task{Order: -1}))
}
