// Package timeline records derived-state snapshots and supports
// scrubbing and timed playback over them. Append is the only mutation;
// entries are never reordered.
package timeline

import (
	"sort"
	"sync"
	"time"

	"github.com/aegis-watch/console/internal/clock"
	"github.com/aegis-watch/console/internal/state"
)

// DefaultStepInterval is the playback cadence (1 Hz).
const DefaultStepInterval = time.Second

// DefaultCapacity bounds the rolling window; the oldest snapshots are
// pruned first.
const DefaultCapacity = 600

// Snapshot is a timestamped capture of the derived security state.
// Snapshots are immutable; consumers receive them by value.
type Snapshot struct {
	Timestamp     time.Time  `json:"timestamp"`
	RiskScore     int        `json:"riskScore"`
	ActiveThreats []string   `json:"activeThreats"`
	Trust         float64    `json:"trust"`
	Defcon        int        `json:"defcon"`
	AlertTier     state.Tier `json:"alertTier"`
}

// Listener observes changes to the current snapshot.
type Listener func(Snapshot)

// Store is the append-only snapshot log. All methods are safe for
// concurrent use; listener callbacks run synchronously on the calling
// (or timer) goroutine without internal locks held.
type Store struct {
	clk      clock.Clock
	interval time.Duration
	capacity int

	mu        sync.Mutex
	snapshots []Snapshot
	current   int
	playing   bool
	stepTimer clock.Timer
	listeners []*listenerEntry
}

type listenerEntry struct{ fn Listener }

// Option configures a Store.
type Option func(*Store)

// WithStepInterval overrides the playback cadence.
func WithStepInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCapacity overrides the rolling-window size.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewStore returns an empty timeline driven by clk.
func NewStore(clk clock.Clock, opts ...Option) *Store {
	s := &Store{
		clk:      clk,
		interval: DefaultStepInterval,
		capacity: DefaultCapacity,
		current:  -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener for current-snapshot changes. The
// returned func unsubscribes.
func (s *Store) OnChange(fn Listener) func() {
	entry := &listenerEntry{fn: fn}
	s.mu.Lock()
	s.listeners = append(s.listeners, entry)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.listeners {
				if e == entry {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// Append adds a snapshot at the end of the log. A timestamp at or before
// the last entry is nudged forward one millisecond: arrival order wins
// over embedded timestamps, and ordering stays strict.
func (s *Store) Append(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.snapshots); n > 0 {
		last := s.snapshots[n-1].Timestamp
		if !snap.Timestamp.After(last) {
			snap.Timestamp = last.Add(time.Millisecond)
		}
	}
	s.snapshots = append(s.snapshots, snap)

	if len(s.snapshots) > s.capacity {
		drop := len(s.snapshots) - s.capacity
		s.snapshots = append([]Snapshot(nil), s.snapshots[drop:]...)
		s.current -= drop
		if s.current < -1 {
			s.current = -1
		}
	}
}

// Len reports the number of recorded snapshots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Current returns the snapshot the scrub/playback cursor points at.
func (s *Store) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.snapshots) {
		return Snapshot{}, false
	}
	return s.snapshots[s.current], true
}

// Latest returns the newest snapshot regardless of the cursor.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return Snapshot{}, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// Scrub moves the cursor to the newest snapshot with timestamp <= t.
// The target is clamped into [first, last]. Listeners are notified
// synchronously exactly once per call, even if the cursor did not move.
func (s *Store) Scrub(t time.Time) (Snapshot, bool) {
	s.mu.Lock()
	if len(s.snapshots) == 0 {
		s.mu.Unlock()
		return Snapshot{}, false
	}

	first := s.snapshots[0].Timestamp
	last := s.snapshots[len(s.snapshots)-1].Timestamp
	if t.Before(first) {
		t = first
	}
	if t.After(last) {
		t = last
	}

	// First index with timestamp strictly after t; the cursor lands just
	// before it. Clamping guarantees idx >= 1.
	idx := sort.Search(len(s.snapshots), func(i int) bool {
		return s.snapshots[i].Timestamp.After(t)
	})
	s.current = idx - 1
	snap := s.snapshots[s.current]
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return snap, true
}

// Play starts stepping the cursor forward once per interval. Playback is
// scheduled through the clock; no advance ever runs synchronously inside
// Play itself. Calling Play while playing is a no-op.
func (s *Store) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing || len(s.snapshots) == 0 {
		return
	}
	if s.current >= len(s.snapshots)-1 {
		// Restart from the top when already at (or past) the end.
		s.current = -1
	}
	s.playing = true
	s.scheduleStepLocked()
}

// Pause stops playback immediately. Idempotent.
func (s *Store) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
}

// Playing reports whether playback is running.
func (s *Store) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Store) pauseLocked() {
	s.playing = false
	if s.stepTimer != nil {
		s.stepTimer.Stop()
		s.stepTimer = nil
	}
}

func (s *Store) scheduleStepLocked() {
	s.stepTimer = s.clk.AfterFunc(s.interval, s.step)
}

func (s *Store) step() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	if s.current >= len(s.snapshots)-1 {
		s.pauseLocked()
		s.mu.Unlock()
		return
	}
	s.current++
	snap := s.snapshots[s.current]
	atEnd := s.current >= len(s.snapshots)-1
	if atEnd {
		s.pauseLocked()
	} else {
		s.scheduleStepLocked()
	}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Store) listenersLocked() []*listenerEntry {
	return append([]*listenerEntry(nil), s.listeners...)
}

func notify(listeners []*listenerEntry, snap Snapshot) {
	for _, e := range listeners {
		e.fn(snap)
	}
}
