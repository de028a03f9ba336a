package repository

import (
	"slices"
	"sync"
	"time"
)

// Change reports a committed write.
type Change struct {
	Tables []Table
	At     time.Time
}

type subscriber struct {
	tables []Table
	ch     chan Change
}

func (s *subscriber) wants(tables []Table) bool {
	if len(s.tables) == 0 {
		return true
	}
	for _, t := range tables {
		if slices.Contains(s.tables, t) {
			return true
		}
	}
	return false
}

type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

func newHub() *hub {
	return &hub{subs: make(map[int]*subscriber)}
}

func (h *hub) subscribe(tables []Table) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	sub := &subscriber{tables: slices.Clone(tables), ch: make(chan Change, 1)}
	h.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

func (h *hub) publish(tables []Table) {
	if len(tables) == 0 {
		return
	}
	change := Change{Tables: tables, At: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if !sub.wants(tables) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			// a notification is already pending; the reader will re-query anyway
		}
	}
}
