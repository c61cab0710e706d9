// Package l1 provides an L1 cache that uses a coherence.Controller to keep
// its lines coherent.
//
// The cache owns the tag array, the MSHR and the outgoing queues. It presents
// every incoming message to the controller and keeps the messages the
// controller stalls until they can be replayed: core requests wait in the
// MSHR entry of their block, and snoops that hit a locked line wait until the
// line is unlocked.
package l1

import (
	"log"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/mem/l1/internal/mshr"
	"github.com/sarchlab/mesil1/mem/l1/internal/tagging"
	"github.com/sarchlab/mesil1/sim/queueing"
)

// A Comp is an L1 cache.
type Comp struct {
	name      string
	blockSize int

	ctrl         *coherence.Controller
	tags         tagging.TagArray
	victimFinder tagging.VictimFinder
	mshr         mshr.MSHR

	toBottom *queueing.OutgoingQueue
	toTop    *queueing.OutgoingQueue

	// lockWait holds snoops stalled by a locked line, per block, in arrival
	// order.
	lockWait map[uint64][]waitingSnoop

	// blocked holds core requests that could not get a way or an MSHR
	// entry. blockedAddrs counts them per block.
	blocked      queueing.Buffer
	blockedAddrs map[uint64]int
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// Controller returns the coherence controller of the cache.
func (c *Comp) Controller() *coherence.Controller {
	return c.ctrl
}

// ToBottom returns the queue of messages sent to the level below.
func (c *Comp) ToBottom() *queueing.OutgoingQueue {
	return c.toBottom
}

// ToTop returns the queue of messages sent to the core.
func (c *Comp) ToTop() *queueing.OutgoingQueue {
	return c.toTop
}

// Lookup returns the line that holds addr, in any state.
func (c *Comp) Lookup(addr uint64) (*coherence.Line, bool) {
	block, ok := c.tags.Lookup(addr)
	if !ok {
		return nil, false
	}

	return block.Line, true
}

// Lines returns the lines of every block that holds an address.
func (c *Comp) Lines() []*coherence.Line {
	var lines []*coherence.Line

	for _, block := range c.tags.Blocks() {
		if block.IsValid {
			lines = append(lines, block.Line)
		}
	}

	return lines
}

// HasOutstanding returns true if a request or flush on the block of addr
// waits for the level below.
func (c *Comp) HasOutstanding(addr uint64) bool {
	_, ok := c.mshr.Lookup(c.baseAddr(addr))
	return ok
}

// IsIdle returns true if the cache has nothing outstanding, nothing waiting
// and nothing left to send.
func (c *Comp) IsIdle() bool {
	return c.mshr.NumEntries() == 0 &&
		c.blocked.Size() == 0 &&
		len(c.lockWait) == 0 &&
		c.toBottom.Len() == 0 &&
		c.toTop.Len() == 0
}

func (c *Comp) baseAddr(addr uint64) uint64 {
	return addr &^ uint64(c.blockSize-1)
}

// Deliver hands a message from the core or from the level below to the
// cache.
func (c *Comp) Deliver(msg *coherence.Msg) {
	switch {
	case msg.Cmd.IsRequest(), msg.Cmd.IsFlush():
		c.handleCoreMsg(msg, false)
	case msg.Cmd.IsSnoop():
		c.handleSnoop(msg, false)
	case msg.Cmd == coherence.CmdNACK:
		c.handleNACK(msg)
	case msg.Cmd.IsResponse():
		c.handleResponse(msg)
	default:
		log.Panicf("%s cannot handle %s", c.name, msg)
	}

	c.replayReleased()
}

// replayReleased replays core requests that waited for a writeback the
// controller just resolved.
func (c *Comp) replayReleased() {
	for {
		released := c.mshr.TakeReleased()
		if len(released) == 0 {
			return
		}

		for _, req := range released {
			c.handleCoreMsg(req, true)
		}
	}
}

func (c *Comp) retryBlocked() {
	n := c.blocked.Size()
	for i := 0; i < n; i++ {
		req := c.blocked.Pop().(*coherence.Msg)
		c.unblock(req.BaseAddr)
		c.handleCoreMsg(req, true)
	}
}

func (c *Comp) block(req *coherence.Msg) {
	c.blocked.Push(req)
	c.blockedAddrs[req.BaseAddr]++
}

func (c *Comp) unblock(addr uint64) {
	c.blockedAddrs[addr]--
	if c.blockedAddrs[addr] == 0 {
		delete(c.blockedAddrs, addr)
	}
}

func mustSucceed(err error) {
	if err != nil {
		log.Panic(err)
	}
}
