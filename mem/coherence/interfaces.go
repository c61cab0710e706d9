package coherence

// WritebackTracker is the part of the MSHR that remembers writebacks still
// waiting for an AckPut.
type WritebackTracker interface {
	InsertWriteback(addr uint64)
	RemoveWriteback(addr uint64)
	PendingWriteback(addr uint64) bool
}

// Channel is an outgoing message queue. The controller decides when a
// message is delivered; the channel only has to honor it.
type Channel interface {
	Enqueue(msg *Msg, deliveryTime uint64, sizeInBytes int)
}

// TimeTeller tells the current simulated time, in cycles.
type TimeTeller interface {
	Now() uint64
}

// PrefetchEvent classifies what happened to a prefetched line.
type PrefetchEvent int

// Prefetch outcomes.
const (
	// PrefetchRedundant is a local prefetch that hit in the cache.
	PrefetchRedundant PrefetchEvent = iota
	// PrefetchHit is the first demand access to a prefetched line.
	PrefetchHit
	// PrefetchUpgradeMiss is a write to a prefetched line that only had read
	// permission.
	PrefetchUpgradeMiss
	// PrefetchEvicted is a prefetched line replaced before use.
	PrefetchEvicted
	// PrefetchInvalidated is a prefetched line snooped away before use.
	PrefetchInvalidated
)

func (e PrefetchEvent) String() string {
	switch e {
	case PrefetchRedundant:
		return "Redundant"
	case PrefetchHit:
		return "Hit"
	case PrefetchUpgradeMiss:
		return "UpgradeMiss"
	case PrefetchEvicted:
		return "Evicted"
	case PrefetchInvalidated:
		return "Invalidated"
	default:
		return "Unknown"
	}
}

// Observer receives the statistics a controller produces. The controller
// never reads anything back.
type Observer interface {
	// RecordStateEvent counts a message handled while its line was in state.
	RecordStateEvent(cmd Command, state State)

	// RecordEventSent counts a message sent in the given direction.
	RecordEventSent(cmd Command, dir Direction)

	// RecordEviction counts a replacement of a line in the given state.
	RecordEviction(state State)

	// RecordStallForLock counts an operation blocked by a locked line.
	RecordStallForLock()

	// RecordPrefetch counts a prefetch outcome.
	RecordPrefetch(ev PrefetchEvent)
}

type nopObserver struct{}

func (nopObserver) RecordStateEvent(Command, State) {}
func (nopObserver) RecordEventSent(Command, Direction) {}
func (nopObserver) RecordEviction(State) {}
func (nopObserver) RecordStallForLock() {}
func (nopObserver) RecordPrefetch(PrefetchEvent) {}
