package analysis

import (
	"github.com/sarchlab/mesil1/sim/hooking"
	"github.com/sarchlab/mesil1/sim/queueing"
	"github.com/sarchlab/mesil1/sim/timing"
)

// LinkAnalyzer is a hook on a link queue. It counts the messages and bytes
// that leave the queue and how long the queue stays at each level.
type LinkAnalyzer struct {
	PerfLogger
	timing.TimeTeller

	queue     *queueing.OutgoingQueue
	usePeriod bool
	period    uint64

	lastTime        uint64
	lastLevel       int
	levelToDuration map[int]uint64
	msgs, bytes     int64

	totalMsgs, totalBytes int64
}

// Func records a push or a pop.
func (h *LinkAnalyzer) Func(ctx hooking.HookCtx) {
	h.advance(h.Now())
	h.lastLevel = h.queue.Len()

	if ctx.Pos != queueing.HookPosBufPop {
		return
	}

	item, ok := ctx.Detail.(queueing.Item)
	if !ok {
		return
	}

	h.msgs++
	h.bytes += int64(item.Size)
	h.totalMsgs++
	h.totalBytes += int64(item.Size)
}

// Summarize reports what happened since the last report.
func (h *LinkAnalyzer) Summarize() {
	now := h.Now()

	h.advance(now)
	h.summarizePeriod(now)
}

// advance accounts the time up to now at the last level, reporting the
// period that ended in between if there is one.
func (h *LinkAnalyzer) advance(now uint64) {
	if h.usePeriod && now >= h.periodEndTime(h.lastTime) {
		end := h.periodEndTime(h.lastTime)
		h.levelToDuration[h.lastLevel] += end - h.lastTime
		h.summarizePeriod(end)
		h.lastTime = h.periodStartTime(now)
	}

	h.levelToDuration[h.lastLevel] += now - h.lastTime
	h.lastTime = now
}

// Traffic returns the totals since the analyzer was created.
func (h *LinkAnalyzer) Traffic() LinkTraffic {
	return LinkTraffic{
		Link:  h.queue.Name(),
		Msgs:  h.totalMsgs,
		Bytes: h.totalBytes,
	}
}

func (h *LinkAnalyzer) summarizePeriod(endTime uint64) {
	startTime := uint64(0)
	if h.usePeriod && endTime > 0 {
		startTime = h.periodStartTime(endTime - 1)
	}

	entry := PerfEntry{
		StartTime: startTime,
		EndTime:   endTime,
		Location:  h.queue.Name(),
		EntryType: "Link",
	}

	if h.msgs > 0 {
		entry.What = "Traffic"
		entry.Value = float64(h.bytes)
		entry.Unit = "Byte"
		h.AddDataEntry(entry)

		entry.Value = float64(h.msgs)
		entry.Unit = "Msg"
		h.AddDataEntry(entry)
	}

	if avg, ok := h.averageLevel(); ok {
		entry.What = "QueueLevel"
		entry.Value = avg
		entry.Unit = "Msg"
		h.AddDataEntry(entry)
	}

	h.msgs = 0
	h.bytes = 0
	h.levelToDuration = make(map[int]uint64)
}

func (h *LinkAnalyzer) averageLevel() (float64, bool) {
	var sum, duration uint64

	for level, d := range h.levelToDuration {
		sum += uint64(level) * d
		duration += d
	}

	if duration == 0 || sum == 0 {
		return 0, false
	}

	return float64(sum) / float64(duration), true
}

func (h *LinkAnalyzer) periodStartTime(t uint64) uint64 {
	return t / h.period * h.period
}

func (h *LinkAnalyzer) periodEndTime(t uint64) uint64 {
	return h.periodStartTime(t) + h.period
}

// LinkAnalyzerBuilder can build a LinkAnalyzer.
type LinkAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller timing.TimeTeller
	usePeriod  bool
	period     uint64
	queue      *queueing.OutgoingQueue
}

// MakeLinkAnalyzerBuilder creates a LinkAnalyzerBuilder.
func MakeLinkAnalyzerBuilder() LinkAnalyzerBuilder {
	return LinkAnalyzerBuilder{}
}

// WithPerfLogger sets the logger to be used by the LinkAnalyzer.
func (b LinkAnalyzerBuilder) WithPerfLogger(l PerfLogger) LinkAnalyzerBuilder {
	b.perfLogger = l
	return b
}

// WithTimeTeller sets the TimeTeller to be used by the LinkAnalyzer.
func (b LinkAnalyzerBuilder) WithTimeTeller(
	t timing.TimeTeller,
) LinkAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod sets the period to be used by the LinkAnalyzer.
func (b LinkAnalyzerBuilder) WithPeriod(p uint64) LinkAnalyzerBuilder {
	b.usePeriod = true
	b.period = p

	return b
}

// WithQueue sets the link to be analyzed.
func (b LinkAnalyzerBuilder) WithQueue(
	q *queueing.OutgoingQueue,
) LinkAnalyzerBuilder {
	b.queue = q
	return b
}

// Build creates a LinkAnalyzer.
func (b LinkAnalyzerBuilder) Build() *LinkAnalyzer {
	if b.perfLogger == nil {
		panic("LinkAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		panic("LinkAnalyzer requires a TimeTeller")
	}

	if b.queue == nil {
		panic("LinkAnalyzer requires a queue")
	}

	if b.usePeriod && b.period == 0 {
		panic("period must be positive")
	}

	return &LinkAnalyzer{
		PerfLogger:      b.perfLogger,
		TimeTeller:      b.timeTeller,
		queue:           b.queue,
		usePeriod:       b.usePeriod,
		period:          b.period,
		levelToDuration: make(map[int]uint64),
	}
}
