package l1

import (
	"log"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/mem/l1/internal/mshr"
	"github.com/sarchlab/mesil1/mem/l1/internal/tagging"
	"github.com/sarchlab/mesil1/sim/queueing"
)

// Builder can build L1 caches.
type Builder struct {
	timeTeller coherence.TimeTeller
	coherence  coherence.Builder

	numSets       int
	numWays       int
	blockSize     int
	mshrCapacity  int
	bytesPerCycle int
	lowModule     string
}

// MakeBuilder creates a new builder with a 4 KB, 4-way cache of 64-byte
// blocks.
func MakeBuilder() Builder {
	return Builder{
		coherence:    coherence.MakeBuilder(),
		numSets:      16,
		numWays:      4,
		blockSize:    64,
		mshrCapacity: 4,
		lowModule:    "Home",
	}
}

// WithTimeTeller sets the clock of the cache.
func (b Builder) WithTimeTeller(t coherence.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithCoherence sets the protocol options. The builder fills in the block
// size, the channels, the clock and the writeback tracker.
func (b Builder) WithCoherence(cb coherence.Builder) Builder {
	b.coherence = cb
	return b
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(n int) Builder {
	b.numSets = n
	return b
}

// WithNumWays sets the associativity.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// WithBlockSize sets the number of bytes in a block.
func (b Builder) WithBlockSize(n int) Builder {
	b.blockSize = n
	return b
}

// WithMSHRCapacity sets how many misses can be outstanding at once.
func (b Builder) WithMSHRCapacity(n int) Builder {
	b.mshrCapacity = n
	return b
}

// WithBytesPerCycle limits the bandwidth of both outgoing queues. 0 means no
// limit.
func (b Builder) WithBytesPerCycle(n int) Builder {
	b.bytesPerCycle = n
	return b
}

// WithLowModule sets the name of the level below.
func (b Builder) WithLowModule(name string) Builder {
	b.lowModule = name
	return b
}

// Build builds a cache.
func (b Builder) Build(name string) *Comp {
	b.mustBeValid()

	c := &Comp{
		name:         name,
		blockSize:    b.blockSize,
		tags:         tagging.NewTagArray(b.numSets, b.numWays, b.blockSize),
		victimFinder: tagging.NewLRUVictimFinder(),
		mshr:         mshr.NewMSHR(b.mshrCapacity),
		lockWait:     make(map[uint64][]waitingSnoop),
		blocked:      queueing.BufferBuilder{}.Build(name + ".Blocked"),
		blockedAddrs: make(map[uint64]int),
	}

	queueBuilder := queueing.OutgoingQueueBuilder{}.
		WithBytesPerCycle(b.bytesPerCycle)
	c.toBottom = queueBuilder.Build(name + ".ToBottom")
	c.toTop = queueBuilder.Build(name + ".ToTop")

	c.ctrl = b.coherence.
		WithBlockSize(b.blockSize).
		WithLowModule(b.lowModule).
		WithWritebackTracker(c.mshr).
		WithDownChannel(c.toBottom).
		WithUpChannel(c.toTop).
		WithTimeTeller(b.timeTeller).
		Build(name)

	return c
}

func (b Builder) mustBeValid() {
	if b.timeTeller == nil {
		log.Panic("time teller is not set")
	}

	if b.numSets <= 0 || b.numWays <= 0 {
		log.Panicf("cache must have at least one set and one way, got %dx%d",
			b.numSets, b.numWays)
	}

	if b.mshrCapacity <= 0 {
		log.Panic("MSHR capacity must be positive")
	}
}
