package timing

import (
	"sync"

	"github.com/sarchlab/mesil1/sim/id"
)

// TickEvent is a generic event that almost all the component can use to
// update their status.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, time VTime) TickEvent {
	evt := TickEvent{
		EventBase: EventBase{
			ID:      id.Generate(),
			time:    time,
			handler: handler,
		},
	}

	return evt
}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick() bool
}

// TickScheduler can help schedule tick events. It never schedules two ticks
// for the same cycle.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Engine    Engine
	secondary bool

	scheduled map[VTime]bool
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(handler Handler, engine Engine) *TickScheduler {
	return &TickScheduler{
		handler:   handler,
		Engine:    engine,
		scheduled: make(map[VTime]bool),
	}
}

// NewSecondaryTickScheduler creates a scheduler whose ticks run after all
// the primary events of the same cycle.
func NewSecondaryTickScheduler(
	handler Handler,
	engine Engine,
) *TickScheduler {
	t := NewTickScheduler(handler, engine)
	t.secondary = true

	return t
}

// TickNow schedule a Tick event at the current time.
func (t *TickScheduler) TickNow() {
	t.TickAt(t.Now())
}

// TickLater will schedule a tick event at the cycle after the now time.
func (t *TickScheduler) TickLater() {
	t.TickAt(t.Now() + 1)
}

// TickAt schedules a tick at the given cycle unless one is already pending
// for it. Cycles in the past are moved to the current cycle.
func (t *TickScheduler) TickAt(time VTime) {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.Now()
	if time < now {
		time = now
	}

	for scheduled := range t.scheduled {
		if scheduled < now {
			delete(t.scheduled, scheduled)
		}
	}

	if t.scheduled[time] {
		return
	}

	t.scheduled[time] = true

	tick := MakeTickEvent(t.handler, time)
	tick.secondary = t.secondary

	t.Engine.Schedule(tick)
}

// Now returns the current time of the engine.
func (t *TickScheduler) Now() VTime {
	return t.Engine.Now()
}
