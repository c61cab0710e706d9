package coherence

func (c *Controller) evict(line *Line, requester string) Action {
	if line.IsLocked() {
		c.observer.RecordStallForLock()
		line.EventsWaitingForLock = true

		return ActionStall
	}

	c.observer.RecordEviction(line.State)

	switch line.State {
	case StateI:
		return ActionDone
	case StateS:
		c.evictClean(line, CmdPutShared, requester)
		return ActionDone
	case StateE:
		c.evictClean(line, CmdPutExclusive, requester)
		return ActionDone
	case StateM:
		c.sendWriteback(CmdPutModified, line, true, requester)
		c.registerWriteback(line)
		c.finishEviction(line, CmdPutModified)

		return ActionDone
	case StateIS, StateIM, StateSM, StateSB, StateIB:
		return ActionStall
	default:
		panic(c.violation("eviction of a line in an unknown state", nil, line))
	}
}

// evictClean drops a clean line. Unless evictions are silent, the level below
// is told so that it can stop tracking this cache as a sharer.
func (c *Controller) evictClean(line *Line, cmd Command, requester string) {
	if c.silentEvictClean {
		c.finishEviction(line, CmdNone)
		return
	}

	c.sendWriteback(cmd, line, false, requester)
	c.registerWriteback(line)
	c.finishEviction(line, cmd)
}

// registerWriteback is only called for writebacks actually sent. A marker
// without a writeback in flight would swallow a later invalidation.
func (c *Controller) registerWriteback(line *Line) {
	if c.expectWritebackAck {
		c.mshr.InsertWriteback(line.BaseAddr)
	}
}

func (c *Controller) finishEviction(line *Line, cause Command) {
	c.setState(line, StateI, cause)
	line.atomicEnd()
	c.touchPrefetched(line, PrefetchEvicted)
}
