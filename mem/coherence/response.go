package coherence

func (c *Controller) handleDataResponse(
	rsp *Msg,
	line *Line,
	req *Msg,
) Action {
	if line == nil || req == nil {
		panic(c.violation("data response without a pending request", rsp, line))
	}

	c.observer.RecordStateEvent(rsp.Cmd, line.State)

	atomic := line.AtomicActive

	switch line.State {
	case StateIS:
		return c.completeRead(rsp, line, req)
	case StateIM:
		line.setData(rsp.Payload, 0)
		fallthrough
	case StateSM:
		c.setState(line, StateM, rsp.Cmd)

		success := c.completeExclusive(req, line, atomic)
		sendTime := c.sendResponseUp(req, line, true, success)
		line.advanceReadyTime(sendTime - 1)

		return ActionDone
	default:
		panic(c.violation("data response on a line not waiting for data",
			rsp, line))
	}
}

func (c *Controller) completeRead(rsp *Msg, line *Line, req *Msg) Action {
	switch rsp.GrantedState {
	case StateS, StateE, StateM:
	default:
		panic(c.violation("read response grants no readable state", rsp, line))
	}

	line.setData(rsp.Payload, 0)
	c.setState(line, rsp.GrantedState, rsp.Cmd)

	if c.isLocalPrefetch(req) {
		line.Prefetched = true
		return ActionDone
	}

	if req.IsLoadLink() {
		line.atomicStart()
	}

	sendTime := c.sendResponseUp(req, line, true, true)
	line.advanceReadyTime(sendTime - 1)

	return ActionDone
}

func (c *Controller) handleFlushResponse(
	rsp *Msg,
	line *Line,
	req *Msg,
) Action {
	if req == nil {
		panic(c.violation("flush response without a pending flush", rsp, line))
	}

	c.observer.RecordStateEvent(rsp.Cmd, stateOf(line))

	readyTime := uint64(0)

	if line != nil {
		switch line.State {
		case StateSB:
			c.setState(line, StateS, rsp.Cmd)
		case StateIB:
			c.setState(line, StateI, rsp.Cmd)
			line.atomicEnd()
		case StateI:
		default:
			panic(c.violation("flush response on a line not flushing",
				rsp, line))
		}

		readyTime = line.ReadyTime
	}

	c.sendFlushResponse(req, rsp.Success, readyTime, true)

	return ActionDone
}
