// Package timing provides the discrete-event engine that drives timed runs.
// Time is measured in cycles.
package timing

import (
	"github.com/sarchlab/mesil1/sim/hooking"
)

// VTime is a point in simulated time, in cycles.
type VTime = uint64

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTime
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Run will process all the events until the simulation finishes
	Run() error

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation
	Continue()
}
