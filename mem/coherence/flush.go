package coherence

func (c *Controller) handleFlush(
	flush *Msg,
	line *Line,
	collision *Msg,
	replay bool,
) Action {
	state := stateOf(line)
	c.observer.RecordStateEvent(flush.Cmd, state)

	if state != StateI && line.InTransition() {
		return ActionStall
	}

	if collision != nil {
		return ActionStall
	}

	if state != StateI && line.IsLocked() {
		c.sendFlushResponse(flush, false, line.ReadyTime, replay)
		return ActionDone
	}

	if flush.Cmd == CmdFlushLineInv && line != nil {
		c.touchPrefetched(line, PrefetchEvicted)
	}

	c.forwardFlush(flush, line)

	if line == nil {
		return ActionStall
	}

	switch {
	case flush.Cmd == CmdFlushLine && state != StateI:
		c.setState(line, StateSB, flush.Cmd)
	default:
		c.setState(line, StateIB, flush.Cmd)
	}

	return ActionStall
}
