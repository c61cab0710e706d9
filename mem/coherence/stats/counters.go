// Package stats provides observers that collect the statistics coherence
// controllers produce.
package stats

import (
	"sort"
	"sync"

	"github.com/sarchlab/mesil1/mem/coherence"
)

type cmdState struct {
	cmd   coherence.Command
	state coherence.State
}

type cmdDir struct {
	cmd coherence.Command
	dir coherence.Direction
}

// Counters keeps every statistic in memory. It is safe for concurrent use,
// so one Counters can observe several controllers.
type Counters struct {
	mu sync.Mutex

	stateEvents   map[cmdState]uint64
	sent          map[cmdDir]uint64
	evictions     map[coherence.State]uint64
	stallsForLock uint64
	prefetch      map[coherence.PrefetchEvent]uint64
}

// NewCounters creates empty counters.
func NewCounters() *Counters {
	return &Counters{
		stateEvents: make(map[cmdState]uint64),
		sent:        make(map[cmdDir]uint64),
		evictions:   make(map[coherence.State]uint64),
		prefetch:    make(map[coherence.PrefetchEvent]uint64),
	}
}

// RecordStateEvent counts a message handled while its line was in state.
func (c *Counters) RecordStateEvent(cmd coherence.Command, state coherence.State) {
	c.mu.Lock()
	c.stateEvents[cmdState{cmd, state}]++
	c.mu.Unlock()
}

// RecordEventSent counts a message sent in the given direction.
func (c *Counters) RecordEventSent(cmd coherence.Command, dir coherence.Direction) {
	c.mu.Lock()
	c.sent[cmdDir{cmd, dir}]++
	c.mu.Unlock()
}

// RecordEviction counts a replacement of a line in the given state.
func (c *Counters) RecordEviction(state coherence.State) {
	c.mu.Lock()
	c.evictions[state]++
	c.mu.Unlock()
}

// RecordStallForLock counts an operation blocked by a locked line.
func (c *Counters) RecordStallForLock() {
	c.mu.Lock()
	c.stallsForLock++
	c.mu.Unlock()
}

// RecordPrefetch counts a prefetch outcome.
func (c *Counters) RecordPrefetch(ev coherence.PrefetchEvent) {
	c.mu.Lock()
	c.prefetch[ev]++
	c.mu.Unlock()
}

// A Count is the value of one counter. Fields that do not apply to the
// counter's kind are empty.
type Count struct {
	Kind  string
	Cmd   string
	State string
	Dir   string
	Event string
	Value uint64
}

// Counter kinds.
const (
	KindStateEvent = "state_event"
	KindSent       = "sent"
	KindEviction   = "eviction"
	KindStall      = "stall_for_lock"
	KindPrefetch   = "prefetch"
)

// Snapshot is a copy of every non-zero counter.
type Snapshot struct {
	Counts []Count
}

// Get returns the value of the counter that matches every non-empty field of
// key, ignoring Value. Counters that do not exist are zero.
func (s Snapshot) Get(key Count) uint64 {
	var total uint64

	for _, c := range s.Counts {
		if matches(c, key) {
			total += c.Value
		}
	}

	return total
}

func matches(c, key Count) bool {
	return (key.Kind == "" || key.Kind == c.Kind) &&
		(key.Cmd == "" || key.Cmd == c.Cmd) &&
		(key.State == "" || key.State == c.State) &&
		(key.Dir == "" || key.Dir == c.Dir) &&
		(key.Event == "" || key.Event == c.Event)
}

// Snapshot copies the counters. Counts come in a stable order.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var counts []Count

	for k, v := range c.stateEvents {
		counts = append(counts, Count{
			Kind:  KindStateEvent,
			Cmd:   k.cmd.String(),
			State: k.state.String(),
			Value: v,
		})
	}

	for k, v := range c.sent {
		counts = append(counts, Count{
			Kind:  KindSent,
			Cmd:   k.cmd.String(),
			Dir:   k.dir.String(),
			Value: v,
		})
	}

	for k, v := range c.evictions {
		counts = append(counts, Count{
			Kind:  KindEviction,
			State: k.String(),
			Value: v,
		})
	}

	if c.stallsForLock > 0 {
		counts = append(counts, Count{Kind: KindStall, Value: c.stallsForLock})
	}

	for k, v := range c.prefetch {
		counts = append(counts, Count{
			Kind:  KindPrefetch,
			Event: k.String(),
			Value: v,
		})
	}

	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i], counts[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}

		if a.Cmd != b.Cmd {
			return a.Cmd < b.Cmd
		}

		if a.State != b.State {
			return a.State < b.State
		}

		if a.Dir != b.Dir {
			return a.Dir < b.Dir
		}

		return a.Event < b.Event
	})

	return Snapshot{Counts: counts}
}

// Reset sets every counter back to zero.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.stateEvents)
	clear(c.sent)
	clear(c.evictions)
	clear(c.prefetch)
	c.stallsForLock = 0
}
