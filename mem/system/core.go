package system

import (
	"log"

	"github.com/sarchlab/mesil1/mem/coherence"
)

// A port is where a core sends its requests.
type port interface {
	Name() string
	Deliver(msg *coherence.Msg)
}

// CoreStats counts what a core has completed.
type CoreStats struct {
	Completed   int
	SCSucceeded int
	SCFailed    int
}

// A Core runs a list of operations, one at a time. It issues the next
// operation only after the previous one has been answered.
type Core struct {
	name      string
	blockSize uint64
	cache     port
	onIssue   func(req *coherence.Msg)

	ops     []Op
	next    int
	pending *coherence.Msg
	stats   CoreStats
}

// NewCore creates a core that sends the given operations to cache.
func NewCore(name string, cache port, blockSize int, ops []Op) *Core {
	return &Core{
		name:      name,
		blockSize: uint64(blockSize),
		cache:     cache,
		ops:       ops,
	}
}

// Name returns the name of the core.
func (c *Core) Name() string {
	return c.name
}

// Stats returns what the core has completed so far.
func (c *Core) Stats() CoreStats {
	return c.stats
}

// Remaining returns the number of operations not completed yet.
func (c *Core) Remaining() int {
	return len(c.ops) - c.next
}

// Done returns true once every operation has been answered.
func (c *Core) Done() bool {
	return c.next >= len(c.ops) && c.pending == nil
}

// CanIssue returns true if the core has an operation to start.
func (c *Core) CanIssue() bool {
	return c.pending == nil && c.next < len(c.ops)
}

// Issue sends the request of the next operation.
func (c *Core) Issue() {
	if !c.CanIssue() {
		log.Panicf("%s cannot issue", c.name)
	}

	op := c.ops[c.next]

	switch op.Kind {
	case OpRead:
		c.send(coherence.CmdRead, op.Addr, nil, 0)
	case OpLoadLink:
		c.send(coherence.CmdRead, op.Addr, nil, coherence.FlagLoadLink)
	case OpWrite:
		c.send(coherence.CmdReadExclusive, op.Addr, []byte{op.Value}, 0)
	case OpStoreConditional:
		c.send(coherence.CmdReadExclusive, op.Addr, []byte{op.Value},
			coherence.FlagStoreConditional)
	case OpAtomicInc:
		c.send(coherence.CmdReadForAtomic, op.Addr, nil, 0)
	case OpFlush:
		c.send(coherence.CmdFlushLine, op.Addr, nil, 0)
	case OpFlushInv:
		c.send(coherence.CmdFlushLineInv, op.Addr, nil, 0)
	default:
		log.Panicf("%s cannot run %s", c.name, op)
	}
}

func (c *Core) send(
	cmd coherence.Command,
	addr uint64,
	payload []byte,
	flags coherence.Flags,
) {
	req := coherence.MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(addr).
		WithBlockSize(c.blockSize).
		WithSize(1).
		WithSrc(c.name).
		WithDst(c.cache.Name()).
		WithRequester(c.name).
		WithPayload(payload).
		WithFlags(flags).
		Build()

	c.pending = req

	if c.onIssue != nil {
		c.onIssue(req)
	}

	c.cache.Deliver(req)
}

// Deliver hands a message from the cache to the core.
func (c *Core) Deliver(rsp *coherence.Msg) {
	if rsp.Cmd.IsSnoop() {
		// Forwarded invalidations only matter to speculative cores.
		return
	}

	if c.pending == nil || rsp.RespondTo != c.pending.ID {
		log.Panicf("%s received unexpected %s", c.name, rsp)
	}

	req := c.pending
	c.pending = nil
	op := c.ops[c.next]

	if op.Kind == OpAtomicInc && req.Cmd == coherence.CmdReadForAtomic {
		c.send(coherence.CmdReadExclusive, op.Addr,
			[]byte{rsp.Payload[0] + 1}, coherence.FlagLocked)

		return
	}

	if op.Kind == OpStoreConditional {
		if rsp.Success {
			c.stats.SCSucceeded++
		} else {
			c.stats.SCFailed++
		}
	}

	c.next++
	c.stats.Completed++
}
