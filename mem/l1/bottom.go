package l1

import (
	"log"

	"github.com/sarchlab/mesil1/mem/coherence"
)

// lineForSnoop returns nil when the cache does not hold valid data for the
// block, so that the controller checks for a racing writeback.
func (c *Comp) lineForSnoop(addr uint64) *coherence.Line {
	line, found := c.Lookup(addr)
	if !found || line.State == coherence.StateI {
		return nil
	}

	return line
}

// waitingSnoop is a snoop held back by a lock. Presented is set once the
// controller has seen it, so that its replay is charged as one.
type waitingSnoop struct {
	msg       *coherence.Msg
	presented bool
}

func (c *Comp) handleSnoop(snoop *coherence.Msg, replay bool) {
	addr := snoop.BaseAddr

	if !replay && len(c.lockWait[addr]) > 0 {
		c.lockWait[addr] = append(c.lockWait[addr], waitingSnoop{msg: snoop})
		return
	}

	line := c.lineForSnoop(addr)
	if c.ctrl.HandleInvalidation(snoop, line, replay) == coherence.ActionStall {
		c.lockWait[addr] = append(c.lockWait[addr],
			waitingSnoop{msg: snoop, presented: true})
	}
}

func (c *Comp) handleResponse(rsp *coherence.Msg) {
	if rsp.Cmd == coherence.CmdAckPut {
		c.ctrl.HandleResponse(rsp, nil, nil)
		return
	}

	addr := rsp.BaseAddr

	req, ok := c.mshr.Lookup(addr)
	if !ok {
		log.Panicf("%s received %s without an outstanding request",
			c.name, rsp)
	}

	line, _ := c.Lookup(addr)
	if c.ctrl.HandleResponse(rsp, line, req) != coherence.ActionDone {
		return
	}

	waiting, err := c.mshr.RemoveEntry(addr)
	mustSucceed(err)

	for _, w := range waiting {
		c.handleCoreMsg(w, true)
	}

	c.retryBlocked()
}

func (c *Comp) handleNACK(nack *coherence.Msg) {
	line, _ := c.Lookup(nack.BaseAddr)
	c.ctrl.HandleNACK(nack, line)
}
