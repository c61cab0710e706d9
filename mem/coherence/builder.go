package coherence

import (
	"log"

	"github.com/sirupsen/logrus"
)

// A Builder can build L1 coherence controllers.
type Builder struct {
	blockSize         int
	accessLatency     uint64
	tagLatency        uint64
	mshrLatency       uint64
	packetHeaderBytes int

	silentEvictClean     bool
	expectWritebackAck   bool
	writebackCleanBlocks bool
	lastLevel            bool
	snoopL1Invalidations bool

	lowModule  string
	mshr       WritebackTracker
	down       Channel
	up         Channel
	timeTeller TimeTeller
	observer   Observer
	logger     *logrus.Logger
	debugAddrs []uint64
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		blockSize:          64,
		accessLatency:      2,
		tagLatency:         1,
		mshrLatency:        1,
		packetHeaderBytes:  8,
		expectWritebackAck: true,
	}
}

// WithBlockSize sets the number of bytes in a line. It must be a power of
// two.
func (b Builder) WithBlockSize(n int) Builder {
	b.blockSize = n
	return b
}

// WithAccessLatency sets the cycles needed to read or write line data.
func (b Builder) WithAccessLatency(cycles uint64) Builder {
	b.accessLatency = cycles
	return b
}

// WithTagLatency sets the cycles needed to look up and update a tag.
func (b Builder) WithTagLatency(cycles uint64) Builder {
	b.tagLatency = cycles
	return b
}

// WithMSHRLatency sets the cycles needed to replay a request from the MSHR.
func (b Builder) WithMSHRLatency(cycles uint64) Builder {
	b.mshrLatency = cycles
	return b
}

// WithPacketHeaderBytes sets the size of a message without payload.
func (b Builder) WithPacketHeaderBytes(n int) Builder {
	b.packetHeaderBytes = n
	return b
}

// WithSilentEvictClean drops clean lines without telling the level below.
func (b Builder) WithSilentEvictClean(silent bool) Builder {
	b.silentEvictClean = silent
	return b
}

// WithExpectWritebackAck sets whether the level below answers every
// writeback with an AckPut.
func (b Builder) WithExpectWritebackAck(expect bool) Builder {
	b.expectWritebackAck = expect
	return b
}

// WithWritebackCleanBlocks sets whether clean writebacks carry data.
func (b Builder) WithWritebackCleanBlocks(withData bool) Builder {
	b.writebackCleanBlocks = withData
	return b
}

// WithLastLevel marks the cache as the last coherence level. A write to a
// shared line is then granted locally.
func (b Builder) WithLastLevel(lastLevel bool) Builder {
	b.lastLevel = lastLevel
	return b
}

// WithSnoopL1Invalidations forwards every invalidation to the core so that
// it can squash speculative loads.
func (b Builder) WithSnoopL1Invalidations(snoop bool) Builder {
	b.snoopL1Invalidations = snoop
	return b
}

// WithLowModule sets the name of the agent below, used as the destination of
// downstream messages.
func (b Builder) WithLowModule(name string) Builder {
	b.lowModule = name
	return b
}

// WithWritebackTracker sets the MSHR that tracks unacknowledged writebacks.
func (b Builder) WithWritebackTracker(t WritebackTracker) Builder {
	b.mshr = t
	return b
}

// WithDownChannel sets the queue toward the level below.
func (b Builder) WithDownChannel(c Channel) Builder {
	b.down = c
	return b
}

// WithUpChannel sets the queue toward the core.
func (b Builder) WithUpChannel(c Channel) Builder {
	b.up = c
	return b
}

// WithTimeTeller sets the clock.
func (b Builder) WithTimeTeller(t TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithObserver sets the statistics sink.
func (b Builder) WithObserver(o Observer) Builder {
	b.observer = o
	return b
}

// WithLogger sets the logger used for debug traces and violations.
func (b Builder) WithLogger(l *logrus.Logger) Builder {
	b.logger = l
	return b
}

// WithDebugAddrs restricts debug traces to the given block addresses.
func (b Builder) WithDebugAddrs(addrs ...uint64) Builder {
	b.debugAddrs = append([]uint64(nil), addrs...)
	return b
}

// Build creates a controller with the given name.
func (b Builder) Build(name string) *Controller {
	b.mustBeValid()

	c := &Controller{
		name:                 name,
		blockSize:            b.blockSize,
		accessLatency:        b.accessLatency,
		tagLatency:           b.tagLatency,
		mshrLatency:          b.mshrLatency,
		packetHeaderBytes:    b.packetHeaderBytes,
		silentEvictClean:     b.silentEvictClean,
		expectWritebackAck:   b.expectWritebackAck,
		writebackCleanBlocks: b.writebackCleanBlocks,
		lastLevel:            b.lastLevel,
		snoopL1Invalidations: b.snoopL1Invalidations,
		lowModule:            b.lowModule,
		mshr:                 b.mshr,
		down:                 b.down,
		up:                   b.up,
		timeTeller:           b.timeTeller,
		observer:             b.observer,
	}

	if c.observer == nil {
		c.observer = nopObserver{}
	}

	logger := b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c.logger = logger.WithField("ctrl", name)

	if len(b.debugAddrs) > 0 {
		c.debugAddrs = make(map[uint64]bool)
		for _, a := range b.debugAddrs {
			c.debugAddrs[a] = true
		}
	}

	return c
}

func (b Builder) mustBeValid() {
	if b.blockSize <= 0 || b.blockSize&(b.blockSize-1) != 0 {
		log.Panicf("block size %d is not a power of two", b.blockSize)
	}

	// Messages are delivered at least one cycle after the line's ready time.
	if b.accessLatency == 0 || b.tagLatency == 0 || b.mshrLatency == 0 {
		log.Panic("latencies must be at least one cycle")
	}

	if b.mshr == nil {
		log.Panic("writeback tracker is not set")
	}

	if b.down == nil || b.up == nil {
		log.Panic("channels are not set")
	}

	if b.timeTeller == nil {
		log.Panic("time teller is not set")
	}
}
