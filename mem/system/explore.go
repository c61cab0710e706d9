package system

import (
	"fmt"

	"github.com/aclements/go-misc/go-weave/amb"
)

// maxReported bounds how many violations a Report keeps.
const maxReported = 100

// Report summarizes an exploration.
type Report struct {
	// Paths is the number of interleavings run.
	Paths int

	// Incomplete counts the paths cut at the step limit.
	Incomplete int

	// Exhaustive is true if a depth-first search covered every
	// interleaving.
	Exhaustive bool

	// NumViolations counts every violation, including the ones not kept in
	// Violations.
	NumViolations int
	Violations    []Violation
}

// stepClock counts exploration steps. Components read it as the current
// time.
type stepClock struct {
	now uint64
}

func (c *stepClock) Now() uint64 {
	return c.now
}

// boundedStrategy stops a strategy after a number of paths.
type boundedStrategy struct {
	amb.Strategy
	maxPaths  int
	paths     int
	truncated bool
}

func (s *boundedStrategy) Next() bool {
	s.paths++

	more := s.Strategy.Next()
	if more && s.maxPaths > 0 && s.paths >= s.maxPaths {
		s.truncated = true
		return false
	}

	return more
}

func (s *boundedStrategy) Reset() {
	s.Strategy.Reset()
	s.paths = 0
	s.truncated = false
}

// Explore runs the system many times, each time choosing differently which
// core issues or which message is delivered next. Every path runs from a
// freshly built system and is checked after every step. Requests are never
// rejected while exploring.
func Explore(b Builder) Report {
	cfg := b.cfg
	cfg.NACKRate = 0
	b = b.WithConfig(cfg)

	strategy := &boundedStrategy{maxPaths: cfg.MaxPaths}

	switch cfg.Strategy {
	case StrategyRandom:
		strategy.Strategy = &amb.StrategyRandom{
			MaxDepth: cfg.MaxSteps + 1,
			MaxPaths: cfg.MaxPaths,
		}
	default:
		strategy.Strategy = &amb.StrategyDFS{MaxDepth: cfg.MaxSteps + 1}
	}

	e := &explorer{
		builder: b,
		sched:   &amb.Scheduler{Strategy: strategy},
	}
	e.sched.Run(e.runPath)

	e.report.Exhaustive = cfg.Strategy == StrategyDFS && !strategy.truncated

	return e.report
}

type explorer struct {
	builder Builder
	sched   *amb.Scheduler
	report  Report
}

func (e *explorer) record(path int, vs ...Violation) {
	for _, v := range vs {
		v.Path = path
		e.report.NumViolations++

		if len(e.report.Violations) < maxReported {
			e.report.Violations = append(e.report.Violations, v)
		}
	}
}

func (e *explorer) runPath() {
	e.report.Paths++
	path := e.report.Paths

	clock := &stepClock{}
	sys := e.builder.WithTimeTeller(clock).Build()

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if r == amb.PathTerminated {
			e.report.Incomplete++
			return
		}

		e.record(path, Violation{
			Kind:   ViolationPanic,
			Time:   clock.now,
			Detail: fmt.Sprint(r),
		})
	}()

	for step := 0; ; step++ {
		choices := sys.choices()

		if len(choices) == 0 {
			if !sys.IsQuiescent() {
				sys.checker.reportDeadlock()
			} else {
				sys.checker.CheckQuiescent()
			}

			e.record(path, sys.checker.Violations()...)

			return
		}

		if step == e.builder.cfg.MaxSteps {
			e.report.Incomplete++
			return
		}

		i := 0
		if len(choices) > 1 {
			i = e.sched.Amb(len(choices))
		}

		clock.now++
		choices[i].run()

		if !sys.checker.Check() {
			e.record(path, sys.checker.Violations()...)
			return
		}
	}
}
