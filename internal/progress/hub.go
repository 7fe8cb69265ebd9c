// Package progress is the notify-only sink the sync engine reports through.
// Messages fan out to subscribers and land in a small ring buffer so late
// readers (the status API) can catch up. Publishing never blocks.
package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is one progress line from a sync attempt.
type Entry struct {
	ID  int64     `json:"id"`
	At  time.Time `json:"at"`
	Msg string    `json:"msg"`
}

// Hub is an in-memory progress fan-out with a ring buffer for late clients.
// Safe to call from any goroutine.
type Hub struct {
	nextID atomic.Int64

	mu    sync.Mutex
	ring  []Entry
	start int
	size  int

	subs      map[int]chan Entry
	nextSubID int
}

// NewHub creates a Hub retaining the last capacity entries.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]Entry, capacity),
		subs: make(map[int]chan Entry),
	}
}

// Notify records a progress message. Slow subscribers are skipped rather
// than blocking the producer.
func (h *Hub) Notify(msg string) {
	e := Entry{
		ID:  h.nextID.Add(1),
		At:  time.Now().UTC(),
		Msg: msg,
	}

	h.mu.Lock()
	h.pushLocked(e)
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe returns a channel of future entries and a cancel func.
func (h *Hub) Subscribe() (<-chan Entry, func()) {
	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Entry, 32)
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Recent returns buffered entries in publish order, oldest first.
func (h *Hub) Recent() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.ring[(h.start+i)%len(h.ring)])
	}
	return out
}

func (h *Hub) pushLocked(e Entry) {
	if h.size < len(h.ring) {
		h.ring[(h.start+h.size)%len(h.ring)] = e
		h.size++
		return
	}
	h.ring[h.start] = e
	h.start = (h.start + 1) % len(h.ring)
}
