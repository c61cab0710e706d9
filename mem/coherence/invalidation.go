package coherence

func (c *Controller) handleSnoop(snoop *Msg, line *Line, replay bool) Action {
	if line == nil {
		return c.handleSnoopWithoutLine(snoop)
	}

	// Any snoop breaks a load-link, even one that is stalled by a lock.
	line.atomicEnd()

	// Replays of a stalled snoop are not forwarded again.
	if c.snoopL1Invalidations && !replay {
		c.sendInvalidationUp(snoop, line)
	}

	if line.IsLocked() {
		c.observer.RecordStallForLock()
		line.EventsWaitingForLock = true

		return ActionStall
	}

	switch snoop.Cmd {
	case CmdInvalidate:
		return c.handleInv(snoop, line)
	case CmdForceInvalidate:
		return c.handleForceInv(snoop, line)
	case CmdFetch:
		return c.handleFetch(snoop, line, replay)
	case CmdFetchInvalidate:
		return c.handleFetchInv(snoop, line, replay)
	case CmdFetchInvalidateForOwnership:
		return c.handleFetchInvX(snoop, line, replay)
	default:
		panic(c.violation("unrecognized snoop", snoop, line))
	}
}

// handleSnoopWithoutLine covers snoops racing with a replacement. If the
// replacement's writeback is still unacknowledged, the snoop stands in for
// its AckPut and the writeback stands in for the snoop's answer.
func (c *Controller) handleSnoopWithoutLine(snoop *Msg) Action {
	c.observer.RecordStateEvent(snoop.Cmd, StateI)

	if !c.mshr.PendingWriteback(snoop.BaseAddr) {
		return ActionIgnore
	}

	c.mshr.RemoveWriteback(snoop.BaseAddr)

	return ActionDone
}

func (c *Controller) handleInv(snoop *Msg, line *Line) Action {
	c.observer.RecordStateEvent(snoop.Cmd, line.State)
	c.touchPrefetched(line, PrefetchInvalidated)

	switch line.State {
	case StateI, StateIS, StateIM, StateIB:
		// A writeback or flush already in flight answers the snoop.
		return ActionIgnore
	case StateS:
		c.sendAckInv(snoop, line)
		c.setState(line, StateI, snoop.Cmd)

		return ActionDone
	case StateSM:
		c.sendAckInv(snoop, line)
		c.setState(line, StateIM, snoop.Cmd)

		return ActionDone
	case StateSB:
		c.sendAckInv(snoop, line)
		c.setState(line, StateIB, snoop.Cmd)

		// The flush still waits for its response.
		return ActionIgnore
	default:
		panic(c.violation("invalidation of an owned line", snoop, line))
	}
}

func (c *Controller) handleForceInv(snoop *Msg, line *Line) Action {
	c.observer.RecordStateEvent(snoop.Cmd, line.State)
	c.touchPrefetched(line, PrefetchInvalidated)

	switch line.State {
	case StateI, StateIS, StateIM, StateIB:
		return ActionIgnore
	case StateS, StateE, StateM:
		c.sendAckInv(snoop, line)
		c.setState(line, StateI, snoop.Cmd)

		return ActionDone
	case StateSM:
		c.sendAckInv(snoop, line)
		c.setState(line, StateIM, snoop.Cmd)

		return ActionDone
	case StateSB:
		c.sendAckInv(snoop, line)
		c.setState(line, StateIB, snoop.Cmd)

		return ActionIgnore
	default:
		panic(c.violation("forced invalidation in an unknown state", snoop, line))
	}
}

func (c *Controller) handleFetch(snoop *Msg, line *Line, replay bool) Action {
	c.observer.RecordStateEvent(snoop.Cmd, line.State)

	switch line.State {
	case StateS, StateSM:
		c.sendResponseDown(snoop, line, replay)
		return ActionDone
	default:
		return ActionIgnore
	}
}

func (c *Controller) handleFetchInv(
	snoop *Msg,
	line *Line,
	replay bool,
) Action {
	c.observer.RecordStateEvent(snoop.Cmd, line.State)
	c.touchPrefetched(line, PrefetchInvalidated)

	switch line.State {
	case StateS, StateE, StateM:
		c.sendResponseDown(snoop, line, replay)
		c.setState(line, StateI, snoop.Cmd)

		return ActionDone
	case StateSM:
		c.sendResponseDown(snoop, line, replay)
		c.setState(line, StateIM, snoop.Cmd)

		return ActionDone
	case StateSB:
		c.sendAckInv(snoop, line)
		c.setState(line, StateIB, snoop.Cmd)

		return ActionIgnore
	default:
		return ActionIgnore
	}
}

func (c *Controller) handleFetchInvX(
	snoop *Msg,
	line *Line,
	replay bool,
) Action {
	c.observer.RecordStateEvent(snoop.Cmd, line.State)

	switch line.State {
	case StateE, StateM:
		c.sendResponseDown(snoop, line, replay)
		c.setState(line, StateS, snoop.Cmd)

		return ActionDone
	default:
		return ActionIgnore
	}
}
