// Package analysis measures the traffic and the occupancy of the links
// between the caches and the home node.
package analysis

import (
	"sort"

	"github.com/sarchlab/mesil1/mem/system"
	"github.com/sarchlab/mesil1/sim/queueing"
	"github.com/sarchlab/mesil1/sim/timing"
)

// PerfEntry is a single entry in the performance database.
type PerfEntry struct {
	StartTime uint64
	EndTime   uint64
	Location  string
	What      string
	EntryType string
	Value     float64
	Unit      string
}

// PerfLogger is the interface that provide the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfEntry)
}

// LinkTraffic is the traffic a link carried since the simulation started.
type LinkTraffic struct {
	Link  string `json:"link"`
	Msgs  int64  `json:"msgs"`
	Bytes int64  `json:"bytes"`
}

// PerfAnalyzer can report performance metrics during simulation.
type PerfAnalyzer struct {
	timeTeller timing.TimeTeller
	usePeriod  bool
	period     uint64
	backend    PerfAnalyzerBackend
	links      []*LinkAnalyzer
}

// RegisterSystem registers every link of the system.
func (p *PerfAnalyzer) RegisterSystem(sys *system.System) {
	home := sys.Home()

	for _, c := range sys.Caches() {
		p.RegisterLink(c.ToBottom())
		p.RegisterLink(c.ToTop())
		p.RegisterLink(home.ToCache(c.Name()))
	}
}

// RegisterLink registers a link to be monitored.
func (p *PerfAnalyzer) RegisterLink(q *queueing.OutgoingQueue) {
	linkAnalyzerBuilder := MakeLinkAnalyzerBuilder().
		WithTimeTeller(p.timeTeller).
		WithPerfLogger(p).
		WithQueue(q)

	if p.usePeriod {
		linkAnalyzerBuilder = linkAnalyzerBuilder.WithPeriod(p.period)
	}

	a := linkAnalyzerBuilder.Build()
	q.AcceptHook(a)

	p.links = append(p.links, a)
}

// AddDataEntry passes an entry to the backend.
func (p *PerfAnalyzer) AddDataEntry(entry PerfEntry) {
	p.backend.AddDataEntry(entry)
}

// Summarize reports the last period of every link and flushes the backend.
func (p *PerfAnalyzer) Summarize() {
	for _, l := range p.links {
		l.Summarize()
	}

	p.backend.Flush()
}

// Traffic returns the traffic of every link, busiest first.
func (p *PerfAnalyzer) Traffic() []LinkTraffic {
	traffic := make([]LinkTraffic, 0, len(p.links))
	for _, l := range p.links {
		traffic = append(traffic, l.Traffic())
	}

	sort.SliceStable(traffic, func(i, j int) bool {
		return traffic[i].Bytes > traffic[j].Bytes
	})

	return traffic
}

// PerfAnalyzerBuilder is a builder that can build a PerfAnalyzer.
type PerfAnalyzerBuilder struct {
	timeTeller timing.TimeTeller
	usePeriod  bool
	period     uint64
	backend    PerfAnalyzerBackend
}

// MakePerfAnalyzerBuilder creates a new PerfAnalyzerBuilder. Without a
// backend, entries are dropped and only the totals are kept.
func MakePerfAnalyzerBuilder() PerfAnalyzerBuilder {
	return PerfAnalyzerBuilder{
		backend: nopBackend{},
	}
}

// WithTimeTeller sets the clock of the PerfAnalyzer.
func (b PerfAnalyzerBuilder) WithTimeTeller(
	t timing.TimeTeller,
) PerfAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod makes the PerfAnalyzer report every period cycles.
func (b PerfAnalyzerBuilder) WithPeriod(period uint64) PerfAnalyzerBuilder {
	b.usePeriod = true
	b.period = period

	return b
}

// WithBackend sets where the entries go.
func (b PerfAnalyzerBuilder) WithBackend(
	backend PerfAnalyzerBackend,
) PerfAnalyzerBuilder {
	b.backend = backend
	return b
}

// Build creates a PerfAnalyzer.
func (b PerfAnalyzerBuilder) Build() *PerfAnalyzer {
	if b.timeTeller == nil {
		panic("PerfAnalyzer requires a TimeTeller")
	}

	if b.usePeriod && b.period == 0 {
		panic("period must be positive")
	}

	return &PerfAnalyzer{
		timeTeller: b.timeTeller,
		usePeriod:  b.usePeriod,
		period:     b.period,
		backend:    b.backend,
	}
}
