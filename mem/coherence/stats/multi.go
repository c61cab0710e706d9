package stats

import "github.com/sarchlab/mesil1/mem/coherence"

// Multi forwards every statistic to several observers.
type Multi []coherence.Observer

// RecordStateEvent forwards to every observer.
func (m Multi) RecordStateEvent(cmd coherence.Command, state coherence.State) {
	for _, o := range m {
		o.RecordStateEvent(cmd, state)
	}
}

// RecordEventSent forwards to every observer.
func (m Multi) RecordEventSent(cmd coherence.Command, dir coherence.Direction) {
	for _, o := range m {
		o.RecordEventSent(cmd, dir)
	}
}

// RecordEviction forwards to every observer.
func (m Multi) RecordEviction(state coherence.State) {
	for _, o := range m {
		o.RecordEviction(state)
	}
}

// RecordStallForLock forwards to every observer.
func (m Multi) RecordStallForLock() {
	for _, o := range m {
		o.RecordStallForLock()
	}
}

// RecordPrefetch forwards to every observer.
func (m Multi) RecordPrefetch(ev coherence.PrefetchEvent) {
	for _, o := range m {
		o.RecordPrefetch(ev)
	}
}
