// Package id provides the IDs that tag coherence messages.
package id

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator can generate IDs.
type Generator interface {
	Generate() string
}

var (
	generatorMu     sync.Mutex
	generatorLocked bool
	generator       Generator = &sequentialGenerator{}
)

// UseSequential makes Generate return increasing decimal numbers. This is the
// default and keeps message IDs reproducible across runs.
func UseSequential() {
	use(&sequentialGenerator{})
}

// UseParallel makes Generate return xid strings. IDs are no longer
// deterministic, but generation never contends on a shared counter.
func UseParallel() {
	use(parallelGenerator{})
}

func use(g Generator) {
	generatorMu.Lock()
	defer generatorMu.Unlock()

	if generatorLocked {
		log.Panic("cannot change id generator type after using it")
	}

	generator = g
}

// Generate returns a new ID from the generator in use.
func Generate() string {
	generatorMu.Lock()
	generatorLocked = true
	g := generator
	generatorMu.Unlock()

	return g.Generate()
}

type sequentialGenerator struct {
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() string {
	return xid.New().String()
}
