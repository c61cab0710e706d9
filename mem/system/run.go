package system

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mesil1/sim/timing"
)

// ErrViolation is wrapped by the error Run returns when the checker finds a
// problem.
var ErrViolation = errors.New("coherence violation")

// RunResult summarizes a timed run.
type RunResult struct {
	Cycles      uint64
	Completed   int
	SCSucceeded int
	SCFailed    int
	Violations  []Violation
}

// A Simulation is a system driven by a serial engine.
type Simulation struct {
	engine *timing.SerialEngine
	sys    *System
	runner *runner
}

// NewSimulation builds the system with a timing engine as its clock. The
// simulation does not start until Run is called.
func NewSimulation(b Builder) *Simulation {
	engine := timing.NewSerialEngine()
	sys := b.WithTimeTeller(engine).Build()

	r := &runner{sys: sys}
	r.ticker = timing.NewTickScheduler(r, engine)

	return &Simulation{engine: engine, sys: sys, runner: r}
}

// Engine returns the engine that drives the simulation.
func (s *Simulation) Engine() *timing.SerialEngine {
	return s.engine
}

// System returns the simulated system.
func (s *Simulation) System() *System {
	return s.sys
}

// Run simulates until every core has finished and every message has been
// delivered. It stops early at the first violation or when the cycle limit
// is reached.
func (s *Simulation) Run() (RunResult, error) {
	s.runner.ticker.TickAt(0)

	err := s.engine.Run()

	result := RunResult{
		Cycles:     s.engine.Now(),
		Violations: s.sys.checker.Violations(),
	}

	for _, c := range s.sys.cores {
		stats := c.Stats()
		result.Completed += stats.Completed
		result.SCSucceeded += stats.SCSucceeded
		result.SCFailed += stats.SCFailed
	}

	return result, err
}

// Run builds a simulation and runs it.
func Run(b Builder) (RunResult, error) {
	return NewSimulation(b).Run()
}

type runner struct {
	sys    *System
	ticker *timing.TickScheduler
}

// Handle advances the system by one cycle.
func (r *runner) Name() string {
	return "Runner"
}

func (r *runner) Handle(evt timing.Event) error {
	now := evt.Time()
	sys := r.sys

	if now > sys.cfg.MaxCycles {
		return fmt.Errorf("not finished after %d cycles", sys.cfg.MaxCycles)
	}

	sys.deliverReady(now)
	sys.issueAll()

	if !sys.checker.Check() {
		return r.violationError()
	}

	if sys.IsQuiescent() {
		if !sys.checker.CheckQuiescent() {
			return r.violationError()
		}

		return nil
	}

	next, ok := sys.nextDeliveryTime()
	if !ok {
		sys.checker.reportDeadlock()
		return r.violationError()
	}

	if next <= now {
		next = now + 1
	}

	r.ticker.TickAt(next)

	return nil
}

func (r *runner) violationError() error {
	vs := r.sys.checker.Violations()
	return fmt.Errorf("%w: %s", ErrViolation, vs[len(vs)-1])
}
