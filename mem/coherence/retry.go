package coherence

// IsRetryNeeded tells whether a message the level below NACKed should be
// sent again. The line is nil if the cache does not hold the address.
func (c *Controller) IsRetryNeeded(msg *Msg, line *Line) bool {
	switch msg.Cmd {
	case CmdRead, CmdReadExclusive, CmdReadForAtomic,
		CmdFlushLine, CmdFlushLineInv:
		return true
	case CmdPutShared, CmdPutExclusive, CmdPutModified:
		// Without a marker the writeback was already resolved by a racing
		// invalidation, so the NACK is stale.
		if c.expectWritebackAck && !c.mshr.PendingWriteback(msg.BaseAddr) {
			return false
		}

		return true
	default:
		panic(c.violation("NACK of a message that cannot be retried",
			msg, line))
	}
}

// HandleNACK resends the message a NACK carries if it still needs to be
// delivered, and drops stale NACKs.
func (c *Controller) HandleNACK(nack *Msg, line *Line) Action {
	if nack.NACKed == nil {
		panic(c.violation("NACK without the rejected message", nack, line))
	}

	c.observer.RecordStateEvent(nack.Cmd, stateOf(line))

	if !c.IsRetryNeeded(nack.NACKed, line) {
		return ActionIgnore
	}

	c.resend(nack.NACKed)

	return ActionDone
}
