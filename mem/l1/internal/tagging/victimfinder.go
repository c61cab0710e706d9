package tagging

// A VictimFinder decides with block should be evicted
type VictimFinder interface {
	FindVictim(tags TagArray, address uint64) (*Block, bool)
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns an empty block if the set has one, and otherwise the
// least recently used block whose line can be evicted right away. Locked
// lines and lines waiting for a response are never picked.
func (e *LRUVictimFinder) FindVictim(
	tags TagArray,
	address uint64,
) (*Block, bool) {
	set, _ := tags.GetSet(address)

	for _, blockIndex := range set.LRUQueue {
		block := set.Blocks[blockIndex]
		if block.IsEmpty() {
			return block, true
		}
	}

	for _, blockIndex := range set.LRUQueue {
		block := set.Blocks[blockIndex]
		if block.Line.IsLocked() || block.Line.InTransition() {
			continue
		}

		return block, true
	}

	return nil, false
}
