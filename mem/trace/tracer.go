// Package trace provides hooks that record what coherence controllers and
// the home node do.
package trace

import (
	"log"

	"github.com/sarchlab/mesil1/datarecording"
	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/hooking"
	"github.com/sarchlab/mesil1/sim/timing"
)

// Table names used by the DBTracer.
const (
	TransactionTable = "coherence_transactions"
	TransitionTable  = "coherence_transitions"
)

// TransactionEntry is a request or a flush, from the time it is sent to the
// level below until it is answered.
type TransactionEntry struct {
	ID        string
	Requester string
	What      string
	Address   uint64
	StartTime uint64
	EndTime   uint64
	Outcome   string
	Retries   int
}

// TransitionEntry is a change of a line's state.
type TransitionEntry struct {
	Controller string
	Time       uint64
	Address    uint64
	FromState  string
	ToState    string
	Cmd        string
}

// A tracer is a hook that prints every transition and every sent message.
type tracer struct {
	timeTeller timing.TimeTeller
	logger     *log.Logger
}

// NewTracer creates a hook that writes one line per event to logger.
func NewTracer(logger *log.Logger, timeTeller timing.TimeTeller) hooking.Hook {
	return &tracer{
		timeTeller: timeTeller,
		logger:     logger,
	}
}

func (t *tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case coherence.HookPosTransition:
		tr := ctx.Item.(coherence.Transition)
		t.logger.Printf("transition, %d, %s, 0x%x, %s, %s, %s\n",
			tr.Time, tr.Controller, tr.Addr, tr.From, tr.To, tr.Cmd)
	case coherence.HookPosSend:
		msg := ctx.Item.(*coherence.Msg)
		sent := ctx.Detail.(coherence.Sent)
		t.logger.Printf("send, %d, %s, %s, %s, %s, 0x%x, %d\n",
			t.timeTeller.Now(), msg.ID, msg.Src, msg.Dst, msg.Cmd,
			msg.Addr, sent.DeliveryTime)
	}
}

// A DBTracer is a hook that records transactions and transitions into a
// database using the data recorder.
type DBTracer struct {
	timeTeller          timing.TimeTeller
	dataRecorder        datarecording.DataRecorder
	pendingTransactions map[string]*TransactionEntry
}

// NewDBTracer creates a new database-based tracer.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	timeTeller timing.TimeTeller,
) *DBTracer {
	t := &DBTracer{
		timeTeller:          timeTeller,
		dataRecorder:        dataRecorder,
		pendingTransactions: make(map[string]*TransactionEntry),
	}

	t.dataRecorder.CreateTable(TransactionTable, TransactionEntry{})
	t.dataRecorder.CreateTable(TransitionTable, TransitionEntry{})

	return t
}

// Func records the event a hook reports.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case coherence.HookPosTransition:
		t.recordTransition(ctx.Item.(coherence.Transition))
	case coherence.HookPosSend:
		t.recordSend(ctx.Item.(*coherence.Msg))
	}
}

func (t *DBTracer) recordTransition(tr coherence.Transition) {
	t.dataRecorder.InsertData(TransitionTable, TransitionEntry{
		Controller: tr.Controller,
		Time:       tr.Time,
		Address:    tr.Addr,
		FromState:  tr.From.String(),
		ToState:    tr.To.String(),
		Cmd:        tr.Cmd.String(),
	})
}

func (t *DBTracer) recordSend(msg *coherence.Msg) {
	if msg.Cmd.IsRequest() || msg.Cmd.IsFlush() {
		t.startTransaction(msg)
		return
	}

	entry, ok := t.pendingTransactions[msg.RespondTo]
	if !ok {
		return
	}

	if msg.Cmd == coherence.CmdNACK {
		entry.Retries++
		return
	}

	entry.EndTime = t.timeTeller.Now()
	entry.Outcome = msg.Cmd.String()
	t.dataRecorder.InsertData(TransactionTable, *entry)

	delete(t.pendingTransactions, msg.RespondTo)
}

// A resent request keeps its ID and its original start time.
func (t *DBTracer) startTransaction(msg *coherence.Msg) {
	if _, ok := t.pendingTransactions[msg.ID]; ok {
		return
	}

	t.pendingTransactions[msg.ID] = &TransactionEntry{
		ID:        msg.ID,
		Requester: msg.Src,
		What:      msg.Cmd.String(),
		Address:   msg.Addr,
		StartTime: t.timeTeller.Now(),
	}
}

// NumPending returns the number of transactions that have not been answered.
func (t *DBTracer) NumPending() int {
	return len(t.pendingTransactions)
}
