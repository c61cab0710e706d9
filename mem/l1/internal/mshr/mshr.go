// Package mshr tracks the transactions an L1 cache has outstanding below it.
package mshr

import (
	"fmt"

	"github.com/sarchlab/mesil1/mem/coherence"
)

// MSHR records the cache's requests to the level below and the writebacks
// that still wait for an acknowledgement. Requests to an address with either
// kind of entry wait in that entry.
type MSHR interface {
	coherence.WritebackTracker

	// Lookup returns the outstanding request on the block of addr.
	Lookup(addr uint64) (*coherence.Msg, bool)

	// IsBusy returns true if a request or a writeback on the block of addr
	// is outstanding.
	IsBusy(addr uint64) bool

	AddEntry(req *coherence.Msg) error
	RemoveEntry(addr uint64) ([]*coherence.Msg, error)
	AddReqToEntry(req *coherence.Msg) error

	// TakeReleased returns the requests that waited for writebacks removed
	// since the last call.
	TakeReleased() []*coherence.Msg

	IsFull() bool
	NumEntries() int
	Reset()
}

// NewMSHR creates a new MSHR that holds up to capacity requests. Writebacks
// do not count against the capacity.
func NewMSHR(capacity int) MSHR {
	return &mshrImpl{
		Capacity: capacity,
	}
}

type mshrEntry struct {
	Address   uint64
	Req       *coherence.Msg
	Writeback bool
	Requests  []*coherence.Msg
}

type mshrImpl struct {
	Capacity int
	Entries  []*mshrEntry
	Released []*coherence.Msg
}

func (m *mshrImpl) find(addr uint64, writeback bool) (int, *mshrEntry) {
	for i, e := range m.Entries {
		if e.Address == addr && e.Writeback == writeback {
			return i, e
		}
	}

	return -1, nil
}

func (m *mshrImpl) findAny(addr uint64) *mshrEntry {
	for _, e := range m.Entries {
		if e.Address == addr {
			return e
		}
	}

	return nil
}

func (m *mshrImpl) Lookup(addr uint64) (*coherence.Msg, bool) {
	_, e := m.find(addr, false)
	if e == nil {
		return nil, false
	}

	return e.Req, true
}

func (m *mshrImpl) IsBusy(addr uint64) bool {
	return m.findAny(addr) != nil
}

func (m *mshrImpl) AddEntry(req *coherence.Msg) error {
	if m.IsBusy(req.BaseAddr) {
		return fmt.Errorf("trying to add an address that is already in MSHR")
	}

	if m.IsFull() {
		return fmt.Errorf("trying to add to a full MSHR")
	}

	m.Entries = append(m.Entries, &mshrEntry{
		Address: req.BaseAddr,
		Req:     req,
	})

	return nil
}

func (m *mshrImpl) RemoveEntry(addr uint64) ([]*coherence.Msg, error) {
	i, e := m.find(addr, false)
	if e == nil {
		return nil, fmt.Errorf("trying to remove an non-exist entry")
	}

	m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)

	return e.Requests, nil
}

func (m *mshrImpl) AddReqToEntry(req *coherence.Msg) error {
	e := m.findAny(req.BaseAddr)
	if e == nil {
		return fmt.Errorf("trying to add a request to an non-exist entry")
	}

	e.Requests = append(e.Requests, req)

	return nil
}

func (m *mshrImpl) InsertWriteback(addr uint64) {
	if _, e := m.find(addr, true); e != nil {
		return
	}

	m.Entries = append(m.Entries, &mshrEntry{
		Address:   addr,
		Writeback: true,
	})
}

func (m *mshrImpl) RemoveWriteback(addr uint64) {
	i, e := m.find(addr, true)
	if e == nil {
		return
	}

	m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)
	m.Released = append(m.Released, e.Requests...)
}

func (m *mshrImpl) PendingWriteback(addr uint64) bool {
	_, e := m.find(addr, true)
	return e != nil
}

func (m *mshrImpl) TakeReleased() []*coherence.Msg {
	released := m.Released
	m.Released = nil

	return released
}

func (m *mshrImpl) IsFull() bool {
	return m.NumEntries() >= m.Capacity
}

func (m *mshrImpl) NumEntries() int {
	n := 0

	for _, e := range m.Entries {
		if !e.Writeback {
			n++
		}
	}

	return n
}

func (m *mshrImpl) Reset() {
	m.Entries = nil
	m.Released = nil
}
