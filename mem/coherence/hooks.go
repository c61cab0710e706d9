package coherence

import "github.com/sarchlab/mesil1/sim/hooking"

// HookPosTransition marks a change of a line's state. The item is a
// Transition.
var HookPosTransition = &hooking.HookPos{Name: "Coherence Transition"}

// HookPosSend marks a message leaving the controller. The item is the
// message and the detail is a Sent.
var HookPosSend = &hooking.HookPos{Name: "Coherence Send"}

// Transition records a line changing state.
type Transition struct {
	Controller string
	Addr       uint64
	From, To   State

	// Cmd is the command that caused the change. It is CmdNone when a
	// replacement caused it and no writeback was sent.
	Cmd  Command
	Time uint64
}

// Sent describes when and where a message was sent.
type Sent struct {
	Dir          Direction
	DeliveryTime uint64
}

func (c *Controller) setState(line *Line, s State, cmd Command) {
	from := line.State
	line.State = s

	c.logEvent("transition", line.BaseAddr, cmd, s)

	if c.NumHooks() == 0 || from == s {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransition,
		Item: Transition{
			Controller: c.name,
			Addr:       line.BaseAddr,
			From:       from,
			To:         s,
			Cmd:        cmd,
			Time:       c.timeTeller.Now(),
		},
	})
}

func (c *Controller) hookSend(msg *Msg, dir Direction, deliveryTime uint64) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosSend,
		Item:   msg,
		Detail: Sent{Dir: dir, DeliveryTime: deliveryTime},
	})
}
