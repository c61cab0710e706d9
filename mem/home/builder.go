package home

import (
	"log"
	"math/rand"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/queueing"
)

// Builder can build home nodes.
type Builder struct {
	timeTeller        coherence.TimeTeller
	latency           uint64
	blockSize         int
	packetHeaderBytes int
	bytesPerCycle     int
	caches            []string
	nackRate          float64
	seed              int64
}

// MakeBuilder creates a builder for a home node that answers after 10 cycles.
func MakeBuilder() Builder {
	return Builder{
		latency:           10,
		blockSize:         64,
		packetHeaderBytes: 8,
	}
}

// WithTimeTeller sets the clock.
func (b Builder) WithTimeTeller(t coherence.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithLatency sets the cycles between receiving a message and the arrival of
// the messages it causes.
func (b Builder) WithLatency(cycles uint64) Builder {
	b.latency = cycles
	return b
}

// WithBlockSize sets the number of bytes in a block.
func (b Builder) WithBlockSize(n int) Builder {
	b.blockSize = n
	return b
}

// WithPacketHeaderBytes sets the size of a message without payload.
func (b Builder) WithPacketHeaderBytes(n int) Builder {
	b.packetHeaderBytes = n
	return b
}

// WithBytesPerCycle limits the bandwidth of every queue toward a cache.
func (b Builder) WithBytesPerCycle(n int) Builder {
	b.bytesPerCycle = n
	return b
}

// WithCaches sets the names of the caches the home node serves.
func (b Builder) WithCaches(names ...string) Builder {
	b.caches = append([]string(nil), names...)
	return b
}

// WithNACKRate makes the home node reject the given fraction of the requests
// it receives. The choice is made by a generator seeded with seed.
func (b Builder) WithNACKRate(rate float64, seed int64) Builder {
	b.nackRate = rate
	b.seed = seed

	return b
}

// Build creates a home node.
func (b Builder) Build(name string) *Node {
	b.mustBeValid()

	n := &Node{
		name:              name,
		blockSize:         b.blockSize,
		latency:           b.latency,
		packetHeaderBytes: b.packetHeaderBytes,
		timeTeller:        b.timeTeller,
		toCaches:          make(map[string]*queueing.OutgoingQueue),
		entries:           make(map[uint64]*entry),
		memory:            make(map[uint64][]byte),
		nackRate:          b.nackRate,
	}

	if b.nackRate > 0 {
		n.rng = rand.New(rand.NewSource(b.seed))
	}

	queueBuilder := queueing.OutgoingQueueBuilder{}.
		WithBytesPerCycle(b.bytesPerCycle)
	for _, c := range b.caches {
		n.caches = append(n.caches, c)
		n.toCaches[c] = queueBuilder.Build(name + ".To" + c)
	}

	return n
}

func (b Builder) mustBeValid() {
	if b.timeTeller == nil {
		log.Panic("time teller is not set")
	}

	if b.blockSize <= 0 || b.blockSize&(b.blockSize-1) != 0 {
		log.Panicf("block size %d is not a power of two", b.blockSize)
	}

	if len(b.caches) == 0 {
		log.Panic("home node serves no cache")
	}

	seen := make(map[string]bool)
	for _, c := range b.caches {
		if seen[c] {
			log.Panicf("cache %s is listed twice", c)
		}

		seen[c] = true
	}

	if b.nackRate < 0 || b.nackRate >= 1 {
		log.Panicf("NACK rate %f is not in [0, 1)", b.nackRate)
	}
}
