// Package tagging keeps track of which blocks an L1 cache holds.
package tagging

import (
	"github.com/sarchlab/mesil1/mem/coherence"
)

// TagArray maps block addresses to the ways that hold them.
type TagArray interface {
	// Lookup returns the block tagged with the base address of addr, in any
	// coherence state.
	Lookup(addr uint64) (*Block, bool)
	Visit(block *Block)
	GetSet(addr uint64) (set *Set, setID int)
	Assign(block *Block, addr uint64)
	Blocks() []*Block
	TotalSize() uint64
	Reset()
}

// NewTagArray creates a TagArray with all ways empty.
func NewTagArray(numSets, numWays, blockSize int) TagArray {
	t := &tagArrayImpl{
		NumSets:   numSets,
		NumWays:   numWays,
		BlockSize: blockSize,
	}

	t.Reset()

	return t
}

// A Block is a way of a set together with the coherence record of the data
// it holds.
type Block struct {
	Tag     uint64
	WayID   int
	SetID   int
	IsValid bool
	Line    *coherence.Line
}

// IsEmpty returns true if the block holds nothing worth keeping.
func (b *Block) IsEmpty() bool {
	return !b.IsValid ||
		(b.Line.State == coherence.StateI && !b.Line.IsLocked())
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks   []*Block
	LRUQueue []int
}

type tagArrayImpl struct {
	NumSets   int
	NumWays   int
	BlockSize int
	Sets      []Set
}

// TotalSize returns the maximum number of bytes can be stored in the cache
func (d *tagArrayImpl) TotalSize() uint64 {
	return uint64(d.NumSets) * uint64(d.NumWays) * uint64(d.BlockSize)
}

// GetSet returns the set that a certain address should store at
func (d *tagArrayImpl) GetSet(addr uint64) (set *Set, setID int) {
	setID = int(addr / uint64(d.BlockSize) % uint64(d.NumSets))
	set = &d.Sets[setID]

	return
}

func (d *tagArrayImpl) baseAddr(addr uint64) uint64 {
	return addr &^ uint64(d.BlockSize-1)
}

func (d *tagArrayImpl) Lookup(addr uint64) (*Block, bool) {
	tag := d.baseAddr(addr)

	set, _ := d.GetSet(addr)
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == tag {
			return block, true
		}
	}

	return nil, false
}

// Visit moves the block to the end of the LRUQueue
func (d *tagArrayImpl) Visit(block *Block) {
	set := &d.Sets[block.SetID]
	newLRUQueue := make([]int, 0, len(set.LRUQueue))

	for _, b := range set.LRUQueue {
		if b != block.WayID {
			newLRUQueue = append(newLRUQueue, b)
		}
	}

	newLRUQueue = append(newLRUQueue, block.WayID)

	set.LRUQueue = newLRUQueue
}

// Assign makes the block hold addr with a fresh, invalid line. The previous
// content must already have been evicted.
func (d *tagArrayImpl) Assign(block *Block, addr uint64) {
	block.Tag = d.baseAddr(addr)
	block.IsValid = true
	block.Line = coherence.NewLine(block.Tag, d.BlockSize)
}

// Blocks returns every block, set by set.
func (d *tagArrayImpl) Blocks() []*Block {
	blocks := make([]*Block, 0, d.NumSets*d.NumWays)
	for i := range d.Sets {
		blocks = append(blocks, d.Sets[i].Blocks...)
	}

	return blocks
}

// Reset will mark all the blocks in the directory invalid
func (d *tagArrayImpl) Reset() {
	d.Sets = make([]Set, d.NumSets)
	for i := 0; i < d.NumSets; i++ {
		for j := 0; j < d.NumWays; j++ {
			block := &Block{
				SetID: i,
				WayID: j,
				Line:  coherence.NewLine(0, d.BlockSize),
			}

			d.Sets[i].Blocks = append(d.Sets[i].Blocks, block)
			d.Sets[i].LRUQueue = append(d.Sets[i].LRUQueue, j)
		}
	}
}
