package system

import (
	"fmt"
	"math/rand"
)

// OpKind is what a core asks its cache to do.
type OpKind int

// The operations a core can run.
const (
	OpRead OpKind = iota
	OpWrite
	// OpAtomicInc reads a byte with a lock and writes it back plus one.
	OpAtomicInc
	OpLoadLink
	OpStoreConditional
	OpFlush
	OpFlushInv
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpAtomicInc:
		return "AtomicInc"
	case OpLoadLink:
		return "LoadLink"
	case OpStoreConditional:
		return "StoreConditional"
	case OpFlush:
		return "Flush"
	case OpFlushInv:
		return "FlushInv"
	default:
		return "Unknown"
	}
}

// An Op is one operation of a core on one byte.
type Op struct {
	Kind  OpKind
	Addr  uint64
	Value byte
}

func (o Op) String() string {
	switch o.Kind {
	case OpWrite, OpStoreConditional:
		return fmt.Sprintf("%s 0x%x=%d", o.Kind, o.Addr, o.Value)
	default:
		return fmt.Sprintf("%s 0x%x", o.Kind, o.Addr)
	}
}

// BaseAddress is where the addresses random workloads use start.
const BaseAddress = 0x10000

var opWeights = []struct {
	kind   OpKind
	weight int
}{
	{OpRead, 40},
	{OpWrite, 30},
	{OpAtomicInc, 10},
	{OpLoadLink, 5},
	{OpStoreConditional, 5},
	{OpFlush, 5},
	{OpFlushInv, 5},
}

// RandomOps creates n operations on numAddrs blocks. Each block is accessed
// at two offsets.
func RandomOps(rng *rand.Rand, n, numAddrs, blockSize int) []Op {
	total := 0
	for _, w := range opWeights {
		total += w.weight
	}

	ops := make([]Op, 0, n)
	for i := 0; i < n; i++ {
		pick := rng.Intn(total)

		kind := OpRead
		for _, w := range opWeights {
			if pick < w.weight {
				kind = w.kind
				break
			}

			pick -= w.weight
		}

		addr := uint64(BaseAddress +
			rng.Intn(numAddrs)*blockSize +
			rng.Intn(2)*blockSize/2)

		ops = append(ops, Op{
			Kind:  kind,
			Addr:  addr,
			Value: byte(rng.Intn(256)),
		})
	}

	return ops
}
