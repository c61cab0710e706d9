// Package coherence implements the MESI protocol logic of an L1 cache.
//
// A Controller decides, for each message presented to it, how the target
// line changes state, which messages go up to the core or down to the next
// level, and when they are delivered. It is driven synchronously by the
// cache that owns it: the cache resolves the line, presents the message and
// re-presents stalled messages later.
package coherence

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesil1/sim/hooking"
)

// Controller runs the L1 side of the MESI protocol. It is not safe for
// concurrent use.
type Controller struct {
	hooking.HookableBase

	name              string
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

	logger     *logrus.Entry
	debugAddrs map[uint64]bool
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// BlockSize returns the number of bytes in a line.
func (c *Controller) BlockSize() int {
	return c.blockSize
}

// LowModule returns the destination of downstream messages.
func (c *Controller) LowModule() string {
	return c.lowModule
}

// ExpectsWritebackAck tells if writebacks wait for an AckPut.
func (c *Controller) ExpectsWritebackAck() bool {
	return c.expectWritebackAck
}

// HandleRequest processes a Read, ReadExclusive or ReadForAtomic from the
// core. Replay is set when the request was stalled before.
func (c *Controller) HandleRequest(req *Msg, line *Line, replay bool) Action {
	c.logEvent("request", req.BaseAddr, req.Cmd, line.State)

	switch req.Cmd {
	case CmdRead:
		return c.handleRead(req, line, replay)
	case CmdReadExclusive, CmdReadForAtomic:
		return c.handleReadExclusive(req, line, replay)
	default:
		panic(c.violation("unrecognized request", req, line))
	}
}

// HandleEviction writes back a line the directory picked as a victim.
// Requester names the agent whose miss caused the replacement.
func (c *Controller) HandleEviction(line *Line, requester string) Action {
	c.logEvent("eviction", line.BaseAddr, CmdNone, line.State)

	return c.evict(line, requester)
}

// HandleInvalidation processes a snoop from the level below. The line is
// nil if the cache does not hold the address.
func (c *Controller) HandleInvalidation(
	snoop *Msg,
	line *Line,
	replay bool,
) Action {
	c.logEvent("snoop", snoop.BaseAddr, snoop.Cmd, stateOf(line))

	return c.handleSnoop(snoop, line, replay)
}

// HandleResponse processes a response from the level below. Req is the
// outstanding request the response completes; it is nil for AckPut. The
// line is nil if the cache does not hold the address.
func (c *Controller) HandleResponse(rsp *Msg, line *Line, req *Msg) Action {
	c.logEvent("response", rsp.BaseAddr, rsp.Cmd, stateOf(line))

	switch rsp.Cmd {
	case CmdReadResp, CmdReadExclusiveResp:
		return c.handleDataResponse(rsp, line, req)
	case CmdAckPut:
		c.observer.RecordStateEvent(rsp.Cmd, StateI)
		c.mshr.RemoveWriteback(rsp.BaseAddr)

		return ActionDone
	case CmdFlushResp:
		return c.handleFlushResponse(rsp, line, req)
	default:
		panic(c.violation("unrecognized response", rsp, line))
	}
}

// HandleFlush processes a FlushLine or FlushLineInv from the core. The line
// is nil if the cache does not hold the address. Collision is another
// request already outstanding on the address, if any.
func (c *Controller) HandleFlush(
	flush *Msg,
	line *Line,
	collision *Msg,
	replay bool,
) Action {
	c.logEvent("flush", flush.BaseAddr, flush.Cmd, stateOf(line))

	switch flush.Cmd {
	case CmdFlushLine, CmdFlushLineInv:
		return c.handleFlush(flush, line, collision, replay)
	default:
		panic(c.violation("unrecognized flush", flush, line))
	}
}

// MissKind classifies how an access relates to the line's current state.
type MissKind int

// Miss classes.
const (
	MissHit MissKind = iota
	MissNotPresent
	MissWrongState
	MissPending
)

func (k MissKind) String() string {
	return [...]string{"Hit", "NotPresent", "WrongState", "Pending"}[k]
}

// ClassifyMiss tells whether req would hit on line. It is used for
// profiling only and never fails.
func (c *Controller) ClassifyMiss(req *Msg, line *Line) MissKind {
	if line == nil || line.State == StateI {
		return MissNotPresent
	}

	if c.isLocalPrefetch(req) {
		return MissHit
	}

	switch line.State {
	case StateS:
		if req.Cmd == CmdRead || c.lastLevel {
			return MissHit
		}

		return MissWrongState
	case StateIS, StateIM, StateSM:
		return MissPending
	default:
		return MissHit
	}
}

func (c *Controller) isLocalPrefetch(req *Msg) bool {
	return req.IsPrefetch() && req.Requester == c.name
}

func (c *Controller) logEvent(
	what string,
	addr uint64,
	cmd Command,
	state State,
) {
	if !c.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	if c.debugAddrs != nil && !c.debugAddrs[addr] {
		return
	}

	c.logger.WithFields(logrus.Fields{
		"addr":  fmt.Sprintf("%#x", addr),
		"cmd":   cmd,
		"state": state,
		"time":  c.timeTeller.Now(),
	}).Debug(what)
}
