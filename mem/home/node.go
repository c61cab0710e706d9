// Package home provides the agent below a group of L1 caches. It keeps an
// exact directory of which cache holds each block, owns the memory contents
// and serializes the transactions on a block.
//
// A home node answers every request with data from memory after it has
// collected the acknowledgments of the snoops the request needs. While a
// block is busy, new requests and flushes to it wait in arrival order.
// Writebacks and snoop responses are always handled at once.
package home

import (
	"log"
	"math/rand"
	"sort"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/hooking"
	"github.com/sarchlab/mesil1/sim/queueing"
)

// A Node is a home node.
type Node struct {
	hooking.HookableBase

	name              string
	blockSize         int
	latency           uint64
	packetHeaderBytes int
	timeTeller        coherence.TimeTeller

	caches   []string
	toCaches map[string]*queueing.OutgoingQueue

	entries map[uint64]*entry
	memory  map[uint64][]byte

	nackRate float64
	rng      *rand.Rand
}

// Name returns the name of the home node.
func (n *Node) Name() string {
	return n.name
}

// Caches returns the names of the caches served, in the order given to the
// builder.
func (n *Node) Caches() []string {
	return append([]string(nil), n.caches...)
}

// ToCache returns the queue of messages sent to the given cache.
func (n *Node) ToCache(name string) *queueing.OutgoingQueue {
	q, ok := n.toCaches[name]
	if !ok {
		log.Panicf("home %s does not serve %s", n.name, name)
	}

	return q
}

// Memory returns a copy of the block at addr as memory holds it.
func (n *Node) Memory(addr uint64) []byte {
	data := make([]byte, n.blockSize)
	copy(data, n.memory[n.baseAddr(addr)])

	return data
}

// WriteMemory initializes a block of memory.
func (n *Node) WriteMemory(addr uint64, data []byte) {
	n.writeBlock(n.baseAddr(addr), data)
}

// Sharers returns the caches that hold addr in S, sorted by name.
func (n *Node) Sharers(addr uint64) []string {
	e, ok := n.entries[n.baseAddr(addr)]
	if !ok {
		return nil
	}

	return sortedNames(e.sharers)
}

// Owner returns the cache that holds addr in E or M, or "" if none does.
func (n *Node) Owner(addr uint64) string {
	e, ok := n.entries[n.baseAddr(addr)]
	if !ok {
		return ""
	}

	return e.owner
}

// IsBusy returns true if a transaction on addr waits for acknowledgments.
func (n *Node) IsBusy(addr uint64) bool {
	e, ok := n.entries[n.baseAddr(addr)]
	return ok && e.trans != nil
}

// IsIdle returns true if no transaction is in progress and every message
// sent has left the queues.
func (n *Node) IsIdle() bool {
	for _, e := range n.entries {
		if e.trans != nil || len(e.waiting) > 0 {
			return false
		}
	}

	for _, q := range n.toCaches {
		if q.Len() > 0 {
			return false
		}
	}

	return true
}

// Deliver hands a message from a cache to the home node.
func (n *Node) Deliver(msg *coherence.Msg) {
	if _, ok := n.toCaches[msg.Src]; !ok {
		log.Panicf("home %s received %s from unknown cache %s",
			n.name, msg.Cmd, msg.Src)
	}

	e := n.entryOf(msg.BaseAddr)

	switch {
	case msg.Cmd.IsRequest():
		n.handleRequest(e, msg)
	case msg.Cmd.IsFlush():
		n.handleFlush(e, msg)
	case msg.Cmd.IsWriteback():
		n.handleWriteback(e, msg)
	case msg.Cmd == coherence.CmdAckInvalidate,
		msg.Cmd == coherence.CmdFetchResp,
		msg.Cmd == coherence.CmdFetchXResp:
		n.handleSnoopResponse(e, msg)
	default:
		log.Panicf("home %s cannot handle %s", n.name, msg.Cmd)
	}
}

func (n *Node) handleRequest(e *entry, req *coherence.Msg) {
	if n.shouldNACK() {
		n.sendNACK(req)
		return
	}

	if e.trans != nil {
		e.waiting = append(e.waiting, req)
		return
	}

	n.start(e, req)
}

func (n *Node) handleFlush(e *entry, flush *coherence.Msg) {
	if e.trans != nil && e.trans.awaiting[flush.Src] {
		// The flush crossed the snoop sent to its sender. A sender in I_B
		// ignores every snoop and one in S_B ignores a downgrade, so the
		// flush stands in for the answer. An invalidation of S_B is still
		// acknowledged.
		n.applyFromHolder(e, flush)
		e.waiting = append(e.waiting, flush)

		switch {
		case flush.Cmd == coherence.CmdFlushLineInv:
			e.removeHolder(flush.Src)
			n.countAck(e, flush.Src)
		case e.trans.downgrade:
			n.countAck(e, flush.Src)
		}

		return
	}

	if e.trans != nil {
		e.waiting = append(e.waiting, flush)
		return
	}

	n.start(e, flush)
}

func (n *Node) handleWriteback(e *entry, put *coherence.Msg) {
	n.applyFromHolder(e, put)
	e.removeHolder(put.Src)

	if e.trans != nil && e.trans.awaiting[put.Src] {
		// The snoop in flight to the sender consumes the sender's pending
		// writeback, so no AckPut is sent.
		n.countAck(e, put.Src)
		return
	}

	ack := put.MakeResponse()
	ack.Src = n.name
	ack.Size = 0
	n.send(ack)
}

func (n *Node) handleSnoopResponse(e *entry, rsp *coherence.Msg) {
	if e.trans == nil || !e.trans.awaiting[rsp.Src] {
		return
	}

	n.applyFromHolder(e, rsp)
	n.countAck(e, rsp.Src)
}

// applyFromHolder copies the payload into memory if the sender is the only
// cache that may have modified the block.
func (n *Node) applyFromHolder(e *entry, msg *coherence.Msg) {
	if len(msg.Payload) == 0 || e.owner != msg.Src {
		return
	}

	n.writeBlock(e.addr, msg.Payload)
}

func (n *Node) countAck(e *entry, src string) {
	t := e.trans
	delete(t.awaiting, src)

	if t.downgrade {
		if e.owner == src {
			e.owner = ""
			e.sharers[src] = true
		}
	} else {
		e.removeHolder(src)
	}

	if len(t.awaiting) == 0 {
		n.finish(e)
	}
}

func (n *Node) start(e *entry, msg *coherence.Msg) {
	src := msg.Src

	switch msg.Cmd {
	case coherence.CmdRead:
		if e.owner != "" && e.owner != src {
			n.snoop(e, msg, map[string]coherence.Command{
				e.owner: coherence.CmdFetchInvalidateForOwnership,
			}, true)

			return
		}

		n.grantRead(e, msg)
	case coherence.CmdReadExclusive, coherence.CmdReadForAtomic:
		if !n.invalidateOthers(e, msg) {
			n.grantExclusive(e, msg)
		}
	case coherence.CmdFlushLine:
		if e.owner == src {
			n.applyFromHolder(e, msg)
			e.owner = ""
			e.sharers[src] = true
		} else if e.owner != "" {
			n.snoop(e, msg, map[string]coherence.Command{
				e.owner: coherence.CmdFetchInvalidateForOwnership,
			}, true)

			return
		}

		n.respondFlush(msg)
	case coherence.CmdFlushLineInv:
		n.applyFromHolder(e, msg)
		e.removeHolder(src)

		if !n.invalidateOthers(e, msg) {
			n.respondFlush(msg)
		}
	default:
		log.Panicf("home %s cannot start a transaction for %s",
			n.name, msg.Cmd)
	}
}

// invalidateOthers snoops every holder except the sender of msg. It returns
// false if there is nobody to snoop.
func (n *Node) invalidateOthers(e *entry, msg *coherence.Msg) bool {
	targets := make(map[string]coherence.Command)

	if e.owner != "" && e.owner != msg.Src {
		targets[e.owner] = coherence.CmdFetchInvalidate
	}

	for s := range e.sharers {
		if s != msg.Src {
			targets[s] = coherence.CmdInvalidate
		}
	}

	if len(targets) == 0 {
		return false
	}

	n.snoop(e, msg, targets, false)

	return true
}

func (n *Node) snoop(
	e *entry,
	req *coherence.Msg,
	targets map[string]coherence.Command,
	downgrade bool,
) {
	e.trans = &transaction{
		req:       req,
		awaiting:  make(map[string]bool),
		downgrade: downgrade,
	}

	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		e.trans.awaiting[name] = true

		snoop := coherence.MsgBuilder{}.
			WithCmd(targets[name]).
			WithAddress(e.addr).
			WithBlockSize(uint64(n.blockSize)).
			WithSize(uint64(n.blockSize)).
			WithSrc(n.name).
			WithDst(name).
			WithRequester(req.Requester).
			Build()
		n.send(snoop)
	}
}

func (n *Node) finish(e *entry) {
	req := e.trans.req
	e.trans = nil

	switch req.Cmd {
	case coherence.CmdRead:
		n.grantRead(e, req)
	case coherence.CmdReadExclusive, coherence.CmdReadForAtomic:
		n.grantExclusive(e, req)
	case coherence.CmdFlushLine, coherence.CmdFlushLineInv:
		n.respondFlush(req)
	}

	n.startWaiting(e)
}

func (n *Node) startWaiting(e *entry) {
	for e.trans == nil && len(e.waiting) > 0 {
		next := e.waiting[0]
		e.waiting = e.waiting[1:]
		n.start(e, next)
	}
}

func (n *Node) grantRead(e *entry, req *coherence.Msg) {
	state := coherence.StateS

	if e.owner == req.Src || (e.owner == "" && e.noSharerBut(req.Src)) {
		state = coherence.StateE
		e.owner = req.Src
		delete(e.sharers, req.Src)
	} else {
		e.sharers[req.Src] = true
	}

	n.sendData(e, req, state)
}

func (n *Node) grantExclusive(e *entry, req *coherence.Msg) {
	e.sharers = make(map[string]bool)
	e.owner = req.Src

	n.sendData(e, req, coherence.StateM)
}

func (n *Node) sendData(e *entry, req *coherence.Msg, state coherence.State) {
	rsp := req.MakeResponse()
	rsp.Src = n.name
	rsp.Size = uint64(n.blockSize)
	rsp.Payload = n.Memory(e.addr)
	rsp.GrantedState = state
	rsp.Success = true

	n.send(rsp)
}

func (n *Node) respondFlush(flush *coherence.Msg) {
	rsp := flush.MakeResponse()
	rsp.Src = n.name
	rsp.Size = 0
	rsp.Success = true

	n.send(rsp)
}

func (n *Node) shouldNACK() bool {
	return n.rng != nil && n.rng.Float64() < n.nackRate
}

func (n *Node) sendNACK(msg *coherence.Msg) {
	nack := coherence.MsgBuilder{}.
		WithCmd(coherence.CmdNACK).
		WithAddress(msg.Addr).
		WithBlockSize(uint64(n.blockSize)).
		WithSize(msg.Size).
		WithSrc(n.name).
		WithDst(msg.Src).
		WithRequester(msg.Requester).
		WithRespondTo(msg.ID).
		Build()
	nack.NACKed = msg

	n.send(nack)
}

func (n *Node) send(msg *coherence.Msg) {
	q := n.ToCache(msg.Dst)
	deliveryTime := n.timeTeller.Now() + n.latency
	q.Enqueue(msg, deliveryTime, msg.TrafficBytes(n.packetHeaderBytes))

	if n.NumHooks() == 0 {
		return
	}

	n.InvokeHook(hooking.HookCtx{
		Domain: n,
		Pos:    coherence.HookPosSend,
		Item:   msg,
		Detail: coherence.Sent{
			Dir:          coherence.Upstream,
			DeliveryTime: deliveryTime,
		},
	})
}

func (n *Node) writeBlock(addr uint64, data []byte) {
	block := make([]byte, n.blockSize)
	copy(block, data)
	n.memory[addr] = block
}

func (n *Node) entryOf(addr uint64) *entry {
	e, ok := n.entries[addr]
	if !ok {
		e = &entry{addr: addr, sharers: make(map[string]bool)}
		n.entries[addr] = e
	}

	return e
}

func (n *Node) baseAddr(addr uint64) uint64 {
	return addr &^ uint64(n.blockSize-1)
}
