package coherence

func (c *Controller) handleRead(req *Msg, line *Line, replay bool) Action {
	c.observer.RecordStateEvent(req.Cmd, line.State)

	switch line.State {
	case StateI:
		sendTime := c.forwardRequest(req, line, 0)
		c.setState(line, StateIS, req.Cmd)
		line.advanceReadyTime(sendTime)

		return ActionStall
	case StateS, StateE, StateM:
		if c.isLocalPrefetch(req) {
			c.observer.RecordPrefetch(PrefetchRedundant)
			return ActionDone
		}

		c.touchPrefetched(line, PrefetchHit)

		if req.IsLoadLink() {
			line.atomicStart()
		}

		sendTime := c.sendResponseUp(req, line, replay, true)
		line.advanceReadyTime(sendTime - 1)

		return ActionDone
	default:
		panic(c.violation("read request on a line in transition", req, line))
	}
}

func (c *Controller) handleReadExclusive(
	req *Msg,
	line *Line,
	replay bool,
) Action {
	c.observer.RecordStateEvent(req.Cmd, line.State)

	if line.State == StateS && c.lastLevel {
		c.setState(line, StateM, req.Cmd)
	}

	atomic := line.AtomicActive

	switch line.State {
	case StateI:
		sendTime := c.forwardRequest(req, line, 0)
		c.setState(line, StateIM, req.Cmd)
		line.advanceReadyTime(sendTime)

		return ActionStall
	case StateS:
		sendTime := c.forwardRequest(req, line, line.ReadyTime)
		c.setState(line, StateSM, req.Cmd)
		c.touchPrefetched(line, PrefetchUpgradeMiss)
		line.advanceReadyTime(sendTime)

		return ActionStall
	case StateE, StateM:
		c.setState(line, StateM, req.Cmd)
		c.touchPrefetched(line, PrefetchHit)

		success := c.completeExclusive(req, line, atomic)
		sendTime := c.sendResponseUp(req, line, replay, success)
		line.advanceReadyTime(sendTime - 1)

		return ActionDone
	default:
		panic(c.violation("write request on a line in transition", req, line))
	}
}

// completeExclusive performs the part of an exclusive request that needs
// write permission: the write itself or taking the lock. It returns whether
// a store-conditional succeeded; other requests always succeed.
func (c *Controller) completeExclusive(
	req *Msg,
	line *Line,
	atomic bool,
) bool {
	if req.Cmd == CmdReadForAtomic {
		line.incLock()
		return true
	}

	success := !req.IsStoreConditional() || atomic
	if success {
		line.setData(req.Payload, req.Offset())
		line.atomicEnd()
	}

	if req.Flags.Has(FlagLocked) {
		if !line.IsLocked() {
			panic(c.violation("unlock request to an unlocked line", req, line))
		}

		line.decLock()
	}

	return success
}

func (c *Controller) touchPrefetched(line *Line, ev PrefetchEvent) {
	if !line.Prefetched {
		return
	}

	line.Prefetched = false
	c.observer.RecordPrefetch(ev)
}
