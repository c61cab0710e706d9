// Package system connects L1 caches, their cores and a home node into a
// small multiprocessor and checks that the caches stay coherent.
//
// A System can be driven in two ways. Run advances simulated time with the
// timing engine and delivers every message when it is due. Explore ignores
// time and lets a model checker choose which message or core goes next,
// covering the interleavings a timed run would rarely produce.
package system

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/mem/home"
	"github.com/sarchlab/mesil1/mem/l1"
	"github.com/sarchlab/mesil1/sim/hooking"
	"github.com/sarchlab/mesil1/sim/queueing"
	"github.com/sirupsen/logrus"
)

// HomeName is the name of the home node.
const HomeName = "Home"

// Builder can build systems.
type Builder struct {
	cfg        Config
	timeTeller coherence.TimeTeller
	observer   coherence.Observer
	logger     *logrus.Logger
	scripts    [][]Op
	hooks      []hooking.Hook
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: DefaultConfig()}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithTimeTeller sets the clock every component reads.
func (b Builder) WithTimeTeller(t coherence.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithObserver sets the statistics sink shared by every controller.
func (b Builder) WithObserver(o coherence.Observer) Builder {
	b.observer = o
	return b
}

// WithLogger sets the logger of every controller.
func (b Builder) WithLogger(l *logrus.Logger) Builder {
	b.logger = l
	return b
}

// WithScripts gives each core its operations. Without scripts, every core
// runs a random workload drawn from the configured seed.
func (b Builder) WithScripts(scripts ...[]Op) Builder {
	b.scripts = scripts
	return b
}

// WithHook registers a hook on every controller and on the home node.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), h)
	return b
}

// Config returns the configuration the builder uses.
func (b Builder) Config() Config {
	return b.cfg
}

// Build creates the system.
func (b Builder) Build() *System {
	if err := b.cfg.Validate(); err != nil {
		log.Panic(err)
	}

	if b.timeTeller == nil {
		log.Panic("time teller is not set")
	}

	if b.scripts != nil && len(b.scripts) != b.cfg.NumCaches {
		log.Panicf("%d scripts for %d cores", len(b.scripts), b.cfg.NumCaches)
	}

	s := &System{cfg: b.cfg, timeTeller: b.timeTeller}

	names := make([]string, b.cfg.NumCaches)
	for i := range names {
		names[i] = fmt.Sprintf("L1[%d]", i)
	}

	s.home = home.MakeBuilder().
		WithTimeTeller(b.timeTeller).
		WithLatency(b.cfg.HomeLatency).
		WithBlockSize(b.cfg.BlockSize).
		WithBytesPerCycle(b.cfg.BytesPerCycle).
		WithCaches(names...).
		WithNACKRate(b.cfg.NACKRate, b.cfg.Seed).
		Build(HomeName)

	cb := b.cfg.CoherenceBuilder().WithLogger(b.logger)
	if b.observer != nil {
		cb = cb.WithObserver(b.observer)
	}

	cacheBuilder := l1.MakeBuilder().
		WithTimeTeller(b.timeTeller).
		WithCoherence(cb).
		WithNumSets(b.cfg.NumSets).
		WithNumWays(b.cfg.NumWays).
		WithBlockSize(b.cfg.BlockSize).
		WithMSHRCapacity(b.cfg.MSHRCapacity).
		WithBytesPerCycle(b.cfg.BytesPerCycle).
		WithLowModule(HomeName)

	s.checker = newChecker(s)

	for i, name := range names {
		cache := cacheBuilder.Build(name)
		cache.Controller().AcceptHook(s.checker)

		core := NewCore(fmt.Sprintf("Core[%d]", i), cache, b.cfg.BlockSize,
			b.opsFor(i))
		core.onIssue = s.checker.noteRequest

		s.caches = append(s.caches, cache)
		s.cores = append(s.cores, core)
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	s.connect()

	return s
}

func (b Builder) opsFor(i int) []Op {
	if b.scripts != nil {
		return append([]Op(nil), b.scripts[i]...)
	}

	rng := rand.New(rand.NewSource(b.cfg.Seed + int64(i)))

	return RandomOps(rng, b.cfg.NumOps, b.cfg.NumAddrs, b.cfg.BlockSize)
}

// A link is a one-way message path between two agents.
type link struct {
	queue   *queueing.OutgoingQueue
	deliver func(msg *coherence.Msg)
}

// A System is a set of cores with private L1 caches and one home node.
type System struct {
	cfg        Config
	timeTeller coherence.TimeTeller

	home    *home.Node
	caches  []*l1.Comp
	cores   []*Core
	links   []link
	checker *Checker
}

// connect lists the links in a fixed order so that exploration is
// repeatable.
func (s *System) connect() {
	for i, cache := range s.caches {
		s.links = append(s.links,
			link{queue: cache.ToBottom(), deliver: s.home.Deliver},
			link{queue: cache.ToTop(), deliver: s.cores[i].Deliver},
			link{
				queue:   s.home.ToCache(cache.Name()),
				deliver: cache.Deliver,
			},
		)
	}
}

// AcceptHook registers a hook on every cache controller and on the home
// node.
func (s *System) AcceptHook(h hooking.Hook) {
	for _, c := range s.caches {
		c.Controller().AcceptHook(h)
	}

	s.home.AcceptHook(h)
}

// Config returns the configuration of the system.
func (s *System) Config() Config {
	return s.cfg
}

// Home returns the home node.
func (s *System) Home() *home.Node {
	return s.home
}

// Caches returns the L1 caches.
func (s *System) Caches() []*l1.Comp {
	return s.caches
}

// Cores returns the cores, one per cache.
func (s *System) Cores() []*Core {
	return s.cores
}

// Checker returns the coherence checker attached to the system.
func (s *System) Checker() *Checker {
	return s.checker
}

// CoresDone returns true once every core has finished its operations.
func (s *System) CoresDone() bool {
	for _, c := range s.cores {
		if !c.Done() {
			return false
		}
	}

	return true
}

// IsQuiescent returns true if the cores are done and no message is left
// anywhere.
func (s *System) IsQuiescent() bool {
	if !s.CoresDone() || !s.home.IsIdle() {
		return false
	}

	for _, c := range s.caches {
		if !c.IsIdle() {
			return false
		}
	}

	return true
}

// issueAll lets every core that can start an operation start it.
func (s *System) issueAll() {
	for _, c := range s.cores {
		if c.CanIssue() {
			c.Issue()
		}
	}
}

// deliverReady delivers every message due at now, in link order, until no
// link has one left.
func (s *System) deliverReady(now uint64) {
	for {
		delivered := false

		for _, l := range s.links {
			item, ok := l.queue.PopReady(now)
			if ok {
				l.deliver(item.Msg)
				delivered = true
			}
		}

		if !delivered {
			return
		}
	}
}

// nextDeliveryTime returns the earliest time a queued message is due.
func (s *System) nextDeliveryTime() (uint64, bool) {
	var (
		earliest uint64
		found    bool
	)

	for _, l := range s.links {
		item, ok := l.queue.Peek()
		if !ok {
			continue
		}

		if !found || item.DeliveryTime < earliest {
			earliest = item.DeliveryTime
			found = true
		}
	}

	return earliest, found
}

// A choice is one thing that can happen next when time is ignored.
type choice struct {
	desc string
	run  func()
}

// choices lists, in a fixed order, the cores that can issue and the links
// whose oldest message can be delivered.
func (s *System) choices() []choice {
	var cs []choice

	for _, c := range s.cores {
		if c.CanIssue() {
			cs = append(cs, choice{desc: c.Name() + " issues", run: c.Issue})
		}
	}

	for _, l := range s.links {
		item, ok := l.queue.Peek()
		if !ok {
			continue
		}

		l := l
		cs = append(cs, choice{
			desc: fmt.Sprintf("deliver %s", item.Msg),
			run: func() {
				head, _ := l.queue.PopFront()
				l.deliver(head.Msg)
			},
		})
	}

	return cs
}
