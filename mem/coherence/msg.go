package coherence

import (
	"fmt"

	"github.com/sarchlab/mesil1/sim/id"
)

// Flags qualifies a request.
type Flags uint8

// Request qualifiers.
const (
	FlagPrefetch Flags = 1 << iota
	FlagLocked
	FlagLoadLink
	FlagStoreConditional
	FlagNoncacheable
)

// Has returns true if every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Msg is a coherence request or response.
type Msg struct {
	ID        string
	Cmd       Command
	Addr      uint64
	BaseAddr  uint64
	Size      uint64
	Src       string
	Dst       string
	Requester string
	Payload   []byte
	Flags     Flags

	GrantedState State
	Success      bool
	Dirty        bool

	// RespondTo is the ID of the message a response answers.
	RespondTo string

	// Retries counts how many times the message was resent after a NACK.
	Retries int

	// NACKed is the rejected message a NACK carries back.
	NACKed *Msg
}

// Offset returns the position of Addr inside the block.
func (m *Msg) Offset() uint64 {
	return m.Addr - m.BaseAddr
}

// IsPrefetch returns true if the request was issued by a prefetcher.
func (m *Msg) IsPrefetch() bool {
	return m.Flags.Has(FlagPrefetch)
}

// IsLoadLink returns true for the read half of an LL/SC pair.
func (m *Msg) IsLoadLink() bool {
	return m.Flags.Has(FlagLoadLink)
}

// IsStoreConditional returns true for the write half of an LL/SC pair.
func (m *Msg) IsStoreConditional() bool {
	return m.Flags.Has(FlagStoreConditional)
}

// IsNoncacheable returns true if the response must carry the whole block.
func (m *Msg) IsNoncacheable() bool {
	return m.Flags.Has(FlagNoncacheable)
}

// TrafficBytes returns the number of bytes the message occupies on a link.
func (m *Msg) TrafficBytes(headerBytes int) int {
	return headerBytes + len(m.Payload)
}

// Clone returns a copy of the message that shares nothing with the original.
func (m *Msg) Clone() *Msg {
	c := *m
	if m.Payload != nil {
		c.Payload = append([]byte(nil), m.Payload...)
	}

	return &c
}

// MakeResponse creates the response to m with a fresh ID. The response
// travels back to m's source.
func (m *Msg) MakeResponse() *Msg {
	return &Msg{
		ID:        id.Generate(),
		Cmd:       m.Cmd.ResponseCmd(),
		Addr:      m.Addr,
		BaseAddr:  m.BaseAddr,
		Size:      m.Size,
		Src:       m.Dst,
		Dst:       m.Src,
		Requester: m.Requester,
		Flags:     m.Flags,
		RespondTo: m.ID,
	}
}

func (m *Msg) String() string {
	return fmt.Sprintf("%s(%s) 0x%x %s->%s",
		m.Cmd, m.ID, m.Addr, m.Src, m.Dst)
}

// MsgBuilder builds messages.
type MsgBuilder struct {
	cmd          Command
	addr         uint64
	blockSize    uint64
	size         uint64
	src, dst     string
	requester    string
	payload      []byte
	flags        Flags
	grantedState State
	success      bool
	dirty        bool
	respondTo    string
}

// WithCmd sets the command.
func (b MsgBuilder) WithCmd(cmd Command) MsgBuilder {
	b.cmd = cmd
	return b
}

// WithAddress sets the byte address the message targets.
func (b MsgBuilder) WithAddress(addr uint64) MsgBuilder {
	b.addr = addr
	return b
}

// WithBlockSize sets the block size used to derive the base address. It must
// be a power of two.
func (b MsgBuilder) WithBlockSize(blockSize uint64) MsgBuilder {
	b.blockSize = blockSize
	return b
}

// WithSize sets the number of bytes requested.
func (b MsgBuilder) WithSize(size uint64) MsgBuilder {
	b.size = size
	return b
}

// WithSrc sets the sender.
func (b MsgBuilder) WithSrc(src string) MsgBuilder {
	b.src = src
	return b
}

// WithDst sets the receiver.
func (b MsgBuilder) WithDst(dst string) MsgBuilder {
	b.dst = dst
	return b
}

// WithRequester sets the agent that originated the transaction.
func (b MsgBuilder) WithRequester(requester string) MsgBuilder {
	b.requester = requester
	return b
}

// WithPayload sets the data carried.
func (b MsgBuilder) WithPayload(payload []byte) MsgBuilder {
	b.payload = payload
	return b
}

// WithFlags sets the request qualifiers.
func (b MsgBuilder) WithFlags(flags Flags) MsgBuilder {
	b.flags = flags
	return b
}

// WithGrantedState sets the state a response grants.
func (b MsgBuilder) WithGrantedState(s State) MsgBuilder {
	b.grantedState = s
	return b
}

// WithSuccess sets the outcome a response reports.
func (b MsgBuilder) WithSuccess(success bool) MsgBuilder {
	b.success = success
	return b
}

// WithDirty marks the carried data as modified.
func (b MsgBuilder) WithDirty(dirty bool) MsgBuilder {
	b.dirty = dirty
	return b
}

// WithRespondTo sets the ID of the message being answered.
func (b MsgBuilder) WithRespondTo(msgID string) MsgBuilder {
	b.respondTo = msgID
	return b
}

// Build creates the message.
func (b MsgBuilder) Build() *Msg {
	baseAddr := b.addr
	if b.blockSize > 0 {
		baseAddr = b.addr &^ (b.blockSize - 1)
	}

	return &Msg{
		ID:           id.Generate(),
		Cmd:          b.cmd,
		Addr:         b.addr,
		BaseAddr:     baseAddr,
		Size:         b.size,
		Src:          b.src,
		Dst:          b.dst,
		Requester:    b.requester,
		Payload:      b.payload,
		Flags:        b.flags,
		GrantedState: b.grantedState,
		Success:      b.success,
		Dirty:        b.dirty,
		RespondTo:    b.respondTo,
	}
}
