package coherence

// Command is the kind of a coherence message.
type Command int

// Commands exchanged with the core above and the level below.
const (
	CmdNone Command = iota

	// Requests from the core.
	CmdRead
	CmdReadExclusive
	CmdReadForAtomic

	// Snoops from the level below.
	CmdInvalidate
	CmdForceInvalidate
	CmdFetch
	CmdFetchInvalidate
	CmdFetchInvalidateForOwnership

	// Responses.
	CmdReadResp
	CmdReadExclusiveResp
	CmdFetchResp
	CmdFetchXResp
	CmdAckPut
	CmdFlushResp
	CmdAckInvalidate
	CmdNACK

	// Writebacks.
	CmdPutShared
	CmdPutExclusive
	CmdPutModified

	// Flushes.
	CmdFlushLine
	CmdFlushLineInv
)

var commandNames = [...]string{
	CmdNone:                        "None",
	CmdRead:                        "Read",
	CmdReadExclusive:               "ReadExclusive",
	CmdReadForAtomic:               "ReadForAtomic",
	CmdInvalidate:                  "Invalidate",
	CmdForceInvalidate:             "ForceInvalidate",
	CmdFetch:                       "Fetch",
	CmdFetchInvalidate:             "FetchInvalidate",
	CmdFetchInvalidateForOwnership: "FetchInvalidateForOwnership",
	CmdReadResp:                    "ReadResp",
	CmdReadExclusiveResp:           "ReadExclusiveResp",
	CmdFetchResp:                   "FetchResp",
	CmdFetchXResp:                  "FetchXResp",
	CmdAckPut:                      "AckPut",
	CmdFlushResp:                   "FlushResp",
	CmdAckInvalidate:               "AckInvalidate",
	CmdNACK:                        "NACK",
	CmdPutShared:                   "PutShared",
	CmdPutExclusive:                "PutExclusive",
	CmdPutModified:                 "PutModified",
	CmdFlushLine:                   "FlushLine",
	CmdFlushLineInv:                "FlushLineInv",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "Unknown"
	}

	return commandNames[c]
}

// IsRequest returns true for the commands a core sends to its L1.
func (c Command) IsRequest() bool {
	return c == CmdRead || c == CmdReadExclusive || c == CmdReadForAtomic
}

// IsSnoop returns true for the commands the level below sends to query a
// line.
func (c Command) IsSnoop() bool {
	switch c {
	case CmdInvalidate, CmdForceInvalidate, CmdFetch,
		CmdFetchInvalidate, CmdFetchInvalidateForOwnership:
		return true
	default:
		return false
	}
}

// IsWriteback returns true for PutShared, PutExclusive and PutModified.
func (c Command) IsWriteback() bool {
	return c == CmdPutShared || c == CmdPutExclusive || c == CmdPutModified
}

// IsFlush returns true for FlushLine and FlushLineInv.
func (c Command) IsFlush() bool {
	return c == CmdFlushLine || c == CmdFlushLineInv
}

// IsResponse returns true for commands that answer an earlier message.
func (c Command) IsResponse() bool {
	switch c {
	case CmdReadResp, CmdReadExclusiveResp, CmdFetchResp, CmdFetchXResp,
		CmdAckPut, CmdFlushResp, CmdAckInvalidate, CmdNACK:
		return true
	default:
		return false
	}
}

// ResponseCmd returns the command used to answer c. It returns CmdNone for
// commands that are never answered.
func (c Command) ResponseCmd() Command {
	switch c {
	case CmdRead:
		return CmdReadResp
	case CmdReadExclusive, CmdReadForAtomic:
		return CmdReadExclusiveResp
	case CmdFetch, CmdFetchInvalidate:
		return CmdFetchResp
	case CmdFetchInvalidateForOwnership:
		return CmdFetchXResp
	case CmdInvalidate, CmdForceInvalidate:
		return CmdAckInvalidate
	case CmdPutShared, CmdPutExclusive, CmdPutModified:
		return CmdAckPut
	case CmdFlushLine, CmdFlushLineInv:
		return CmdFlushResp
	default:
		return CmdNone
	}
}

// Direction tells whether a message travels toward the core or toward the
// level below.
type Direction int

// The two directions a controller sends to.
const (
	Downstream Direction = iota
	Upstream
)

func (d Direction) String() string {
	if d == Upstream {
		return "Up"
	}

	return "Down"
}

// Action is the outcome of presenting a message to the controller.
type Action int

const (
	// ActionDone means the message is fully handled.
	ActionDone Action = iota

	// ActionStall means the message must be presented again once the blocking
	// condition clears, before any newer message for the same address.
	ActionStall

	// ActionIgnore means a racing event already covers the message.
	ActionIgnore
)

func (a Action) String() string {
	switch a {
	case ActionDone:
		return "Done"
	case ActionStall:
		return "Stall"
	case ActionIgnore:
		return "Ignore"
	default:
		return "Unknown"
	}
}
