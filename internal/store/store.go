// Package store holds the latest telemetry snapshot and a bounded window of
// recent snapshots.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// Capacity is the number of snapshots retained in the history window.
const Capacity = 60

// published is an immutable view swapped in atomically on every update.
type published struct {
	current telemetry.Snapshot
	history []telemetry.Snapshot
}

// Store is the single source of truth for "latest snapshot" and "recent
// window". Update is the only mutation entrypoint and is serialized; reads
// load the last published view without taking a lock.
type Store struct {
	mu    sync.Mutex
	state atomic.Pointer[published]

	subMu  sync.Mutex
	subs   map[int]chan telemetry.Snapshot
	nextID int
}

// New creates an empty store.
func New() *Store {
	s := &Store{subs: make(map[int]chan telemetry.Snapshot)}
	s.state.Store(&published{})
	return s
}

// Update records snap as the current snapshot, appends a copy to the history
// window, evicts the oldest entries beyond Capacity and notifies subscribers.
func (s *Store) Update(snap telemetry.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.Load().history
	start := 0
	if len(prev)+1 > Capacity {
		start = len(prev) + 1 - Capacity
	}

	history := make([]telemetry.Snapshot, 0, len(prev)-start+1)
	history = append(history, prev[start:]...)
	history = append(history, snap.Clone())

	s.state.Store(&published{
		current: snap.Clone(),
		history: history,
	})

	s.notify(snap)
}

// Current returns the latest snapshot, or the zero snapshot before any update.
func (s *Store) Current() telemetry.Snapshot {
	return s.state.Load().current.Clone()
}

// History returns the window oldest-first. The returned slice is a copy.
func (s *Store) History() []telemetry.Snapshot {
	src := s.state.Load().history
	out := make([]telemetry.Snapshot, len(src))
	for i, snap := range src {
		out[i] = snap.Clone()
	}
	return out
}

// Len returns the number of snapshots in the window.
func (s *Store) Len() int {
	return len(s.state.Load().history)
}

// Capacity returns the maximum window size.
func (s *Store) Capacity() int {
	return Capacity
}

// Subscribe registers for update notifications. Each update is offered to the
// channel without blocking; when the buffer is full the update is dropped for
// that subscriber. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan telemetry.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan telemetry.Snapshot, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// notify must be called with s.mu held so subscribers see updates in order.
func (s *Store) notify(snap telemetry.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap.Clone():
		default:
		}
	}
}
