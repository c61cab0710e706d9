package coherence

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ProtocolViolation describes a message that arrived in a state the protocol
// has no transition for. The controller panics with it; such a message means
// the surrounding simulator is broken.
type ProtocolViolation struct {
	Controller string
	Addr       uint64
	Cmd        Command
	State      State
	Src        string
	Requester  string
	Time       uint64
	Reason     string
}

func (v *ProtocolViolation) Error() string {
	return fmt.Sprintf(
		"%s: %s. addr 0x%x, cmd %s, state %s, src %s, requester %s, time %d",
		v.Controller, v.Reason, v.Addr, v.Cmd, v.State,
		v.Src, v.Requester, v.Time)
}

// violation logs and returns the error to panic with. The line may be nil.
func (c *Controller) violation(reason string, msg *Msg, line *Line) error {
	v := &ProtocolViolation{
		Controller: c.name,
		State:      stateOf(line),
		Time:       c.timeTeller.Now(),
		Reason:     reason,
	}

	if msg != nil {
		v.Addr = msg.BaseAddr
		v.Cmd = msg.Cmd
		v.Src = msg.Src
		v.Requester = msg.Requester
	} else if line != nil {
		v.Addr = line.BaseAddr
	}

	c.logger.WithFields(logrus.Fields{
		"addr":  fmt.Sprintf("%#x", v.Addr),
		"cmd":   v.Cmd,
		"state": v.State,
		"time":  v.Time,
	}).Error(reason)

	return v
}

func stateOf(line *Line) State {
	if line == nil {
		return StateI
	}

	return line.State
}
