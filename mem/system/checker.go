package system

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/hooking"
)

// Kinds of violations.
const (
	ViolationSingleWriter = "single-writer"
	ViolationDataValue    = "data-value"
	ViolationTransient    = "transient"
	ViolationMemory       = "memory"
	ViolationDeadlock     = "deadlock"
	ViolationPanic        = "panic"
)

// A Violation is a broken coherence property.
type Violation struct {
	Kind   string
	Addr   uint64
	Time   uint64
	Detail string

	// Path is the exploration path that found it. It is 0 in timed runs.
	Path int
}

func (v Violation) String() string {
	s := fmt.Sprintf("%s at 0x%x, t=%d: %s", v.Kind, v.Addr, v.Time, v.Detail)
	if v.Path > 0 {
		s = fmt.Sprintf("path %d: %s", v.Path, s)
	}

	return s
}

// A Checker follows the values the cores write and verifies the caches
// against them. It hooks the sends of every controller so that it learns
// about a write at the moment the write is performed.
type Checker struct {
	sys    *System
	golden map[uint64][]byte

	// requests holds the core requests not answered yet, by ID.
	requests   map[string]*coherence.Msg
	violations []Violation
}

func newChecker(s *System) *Checker {
	return &Checker{
		sys:      s,
		golden:   make(map[uint64][]byte),
		requests: make(map[string]*coherence.Msg),
	}
}

// Violations returns every violation found so far.
func (c *Checker) Violations() []Violation {
	return c.violations
}

// Golden returns the value the block at addr must hold.
func (c *Checker) Golden(addr uint64) []byte {
	return append([]byte(nil), c.goldenBlock(c.baseAddr(addr))...)
}

func (c *Checker) baseAddr(addr uint64) uint64 {
	return addr &^ uint64(c.sys.cfg.BlockSize-1)
}

func (c *Checker) goldenBlock(base uint64) []byte {
	block, ok := c.golden[base]
	if !ok {
		block = make([]byte, c.sys.cfg.BlockSize)
		c.golden[base] = block
	}

	return block
}

func (c *Checker) report(kind string, addr uint64, format string, args ...any) {
	c.violations = append(c.violations, Violation{
		Kind:   kind,
		Addr:   addr,
		Time:   c.sys.timeTeller.Now(),
		Detail: fmt.Sprintf(format, args...),
	})
}

func (c *Checker) noteRequest(req *coherence.Msg) {
	c.requests[req.ID] = req
}

// Func checks every response a controller sends to its core.
func (c *Checker) Func(ctx hooking.HookCtx) {
	if ctx.Pos != coherence.HookPosSend {
		return
	}

	sent, ok := ctx.Detail.(coherence.Sent)
	if !ok || sent.Dir != coherence.Upstream {
		return
	}

	rsp := ctx.Item.(*coherence.Msg)

	req, ok := c.requests[rsp.RespondTo]
	if !ok {
		return
	}

	delete(c.requests, rsp.RespondTo)

	switch req.Cmd {
	case coherence.CmdReadExclusive:
		if rsp.Success {
			block := c.goldenBlock(req.BaseAddr)
			copy(block[req.Offset():], req.Payload)
		}
	case coherence.CmdRead, coherence.CmdReadForAtomic:
		block := c.goldenBlock(req.BaseAddr)
		want := block[req.Offset() : req.Offset()+req.Size]

		if !bytes.Equal(rsp.Payload, want) {
			c.report(ViolationDataValue, req.Addr,
				"%s read %v, last written %v", req.Requester, rsp.Payload, want)
		}
	}
}

type holder struct {
	cache string
	state coherence.State
}

// Check verifies the caches as they are now. It returns true if nothing is
// wrong.
func (c *Checker) Check() bool {
	before := len(c.violations)
	holders := make(map[uint64][]holder)

	for _, cache := range c.sys.caches {
		for _, line := range cache.Lines() {
			addr := line.BaseAddr

			if line.InTransition() && !cache.HasOutstanding(addr) {
				c.report(ViolationTransient, addr,
					"%s holds the line in %s with nothing outstanding",
					cache.Name(), line.State)
			}

			if line.State.HoldsData() &&
				!bytes.Equal(line.Data, c.goldenBlock(addr)) {
				c.report(ViolationDataValue, addr,
					"%s holds stale data in %s", cache.Name(), line.State)
			}

			if line.State.HoldsData() {
				holders[addr] = append(holders[addr],
					holder{cache: cache.Name(), state: line.State})
			}
		}
	}

	for _, addr := range sortedAddrs(holders) {
		c.checkSingleWriter(addr, holders[addr])
	}

	return len(c.violations) == before
}

func (c *Checker) checkSingleWriter(addr uint64, hs []holder) {
	owners := 0
	for _, h := range hs {
		if h.state.IsOwner() {
			owners++
		}
	}

	if owners == 0 || len(hs) == 1 {
		return
	}

	desc := make([]string, 0, len(hs))
	for _, h := range hs {
		desc = append(desc, h.cache+":"+h.state.String())
	}

	c.report(ViolationSingleWriter, addr,
		"an owner coexists with other copies: %s", strings.Join(desc, " "))
}

// CheckQuiescent verifies memory once nothing is in flight. A block that no
// cache holds in M must be up to date in memory.
func (c *Checker) CheckQuiescent() bool {
	before := len(c.violations)

	for _, addr := range sortedAddrs(c.golden) {
		if c.modifiedSomewhere(addr) {
			continue
		}

		mem := c.sys.home.Memory(addr)
		if !bytes.Equal(mem, c.golden[addr]) {
			c.report(ViolationMemory, addr,
				"memory is stale and no cache holds the block modified")
		}
	}

	return len(c.violations) == before
}

func (c *Checker) modifiedSomewhere(addr uint64) bool {
	for _, cache := range c.sys.caches {
		line, ok := cache.Lookup(addr)
		if ok && line.State == coherence.StateM {
			return true
		}
	}

	return false
}

func (c *Checker) reportDeadlock() {
	var stuck []string

	for _, core := range c.sys.cores {
		if !core.Done() {
			stuck = append(stuck,
				fmt.Sprintf("%s(%d left)", core.Name(), core.Remaining()))
		}
	}

	c.report(ViolationDeadlock, 0,
		"nothing can make progress, waiting: %s", strings.Join(stuck, " "))
}

func sortedAddrs[V any](m map[uint64]V) []uint64 {
	addrs := make([]uint64, 0, len(m))
	for a := range m {
		addrs = append(addrs, a)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}
