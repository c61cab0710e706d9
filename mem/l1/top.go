package l1

import (
	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/mem/l1/internal/tagging"
)

func (c *Comp) handleCoreMsg(msg *coherence.Msg, replay bool) {
	addr := msg.BaseAddr

	if c.mshr.IsBusy(addr) {
		mustSucceed(c.mshr.AddReqToEntry(msg))
		return
	}

	if !replay && c.blockedAddrs[addr] > 0 {
		c.block(msg)
		return
	}

	if msg.Cmd.IsFlush() {
		c.handleFlush(msg, replay)
		return
	}

	c.handleRequest(msg, replay)
}

func (c *Comp) handleRequest(req *coherence.Msg, replay bool) {
	block, found := c.tags.Lookup(req.BaseAddr)

	var line *coherence.Line
	if found {
		line = block.Line
	}

	if c.ctrl.ClassifyMiss(req, line) != coherence.MissHit && c.mshr.IsFull() {
		c.block(req)
		return
	}

	if !found {
		block = c.allocate(req)
		if block == nil {
			c.block(req)
			return
		}
	}

	c.tags.Visit(block)

	switch c.ctrl.HandleRequest(req, block.Line, replay) {
	case coherence.ActionStall:
		mustSucceed(c.mshr.AddEntry(req))
	case coherence.ActionDone:
		if req.Flags.Has(coherence.FlagLocked) {
			c.afterUnlock(block.Line)
		}
	}
}

// allocate finds a way for the block req targets, evicting what the way
// holds. It returns nil if every way is busy.
func (c *Comp) allocate(req *coherence.Msg) *tagging.Block {
	victim, ok := c.victimFinder.FindVictim(c.tags, req.BaseAddr)
	if !ok {
		return nil
	}

	if victim.IsValid && victim.Line.State != coherence.StateI {
		action := c.ctrl.HandleEviction(victim.Line, req.Requester)
		if action == coherence.ActionStall {
			return nil
		}
	}

	c.tags.Assign(victim, req.BaseAddr)

	return victim
}

func (c *Comp) handleFlush(flush *coherence.Msg, replay bool) {
	if c.mshr.IsFull() {
		c.block(flush)
		return
	}

	var line *coherence.Line
	if block, found := c.tags.Lookup(flush.BaseAddr); found {
		line = block.Line
	}

	if c.ctrl.HandleFlush(flush, line, nil, replay) == coherence.ActionStall {
		mustSucceed(c.mshr.AddEntry(flush))
	}
}

// afterUnlock replays the snoops a lock held back once the line is fully
// unlocked.
func (c *Comp) afterUnlock(line *coherence.Line) {
	if line.IsLocked() {
		return
	}

	waiting := c.lockWait[line.BaseAddr]
	delete(c.lockWait, line.BaseAddr)

	for _, w := range waiting {
		c.handleSnoop(w.msg, w.presented)
	}

	c.retryBlocked()
}
