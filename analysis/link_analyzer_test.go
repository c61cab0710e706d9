package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/queueing"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 {
	return c.now
}

var _ = Describe("Link Analyzer", func() {
	var (
		mockCtrl *gomock.Controller
		logger   *MockPerfLogger
		clock    *fakeClock
		queue    *queueing.OutgoingQueue
		msg      *coherence.Msg
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		logger = NewMockPerfLogger(mockCtrl)
		clock = &fakeClock{}
		queue = queueing.OutgoingQueueBuilder{}.Build("L1[0].ToBottom")
		msg = &coherence.Msg{ID: "m", Cmd: coherence.CmdRead}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	entry := func(start, end uint64, what string, value float64,
		unit string) PerfEntry {
		return PerfEntry{
			StartTime: start,
			EndTime:   end,
			Location:  "L1[0].ToBottom",
			What:      what,
			EntryType: "Link",
			Value:     value,
			Unit:      unit,
		}
	}

	It("should summarize the whole run", func() {
		a := MakeLinkAnalyzerBuilder().
			WithPerfLogger(logger).
			WithTimeTeller(clock).
			WithQueue(queue).
			Build()
		queue.AcceptHook(a)

		queue.Enqueue(msg, 10, 72)
		clock.now = 10
		_, ok := queue.PopReady(10)
		Expect(ok).To(BeTrue())
		clock.now = 20

		gomock.InOrder(
			logger.EXPECT().AddDataEntry(entry(0, 20, "Traffic", 72, "Byte")),
			logger.EXPECT().AddDataEntry(entry(0, 20, "Traffic", 1, "Msg")),
			logger.EXPECT().AddDataEntry(entry(0, 20, "QueueLevel", 0.5, "Msg")),
		)

		a.Summarize()

		Expect(a.Traffic()).To(Equal(LinkTraffic{
			Link: "L1[0].ToBottom", Msgs: 1, Bytes: 72,
		}))
	})

	It("should report every period", func() {
		a := MakeLinkAnalyzerBuilder().
			WithPerfLogger(logger).
			WithTimeTeller(clock).
			WithQueue(queue).
			WithPeriod(8).
			Build()
		queue.AcceptHook(a)

		clock.now = 2
		queue.Enqueue(msg, 10, 72)

		logger.EXPECT().AddDataEntry(entry(0, 8, "QueueLevel", 0.75, "Msg"))

		clock.now = 10
		queue.PopFront()

		gomock.InOrder(
			logger.EXPECT().AddDataEntry(entry(8, 12, "Traffic", 72, "Byte")),
			logger.EXPECT().AddDataEntry(entry(8, 12, "Traffic", 1, "Msg")),
			logger.EXPECT().AddDataEntry(entry(8, 12, "QueueLevel", 0.5, "Msg")),
		)

		clock.now = 12
		a.Summarize()
	})

	It("should require its dependencies", func() {
		Expect(func() { MakeLinkAnalyzerBuilder().Build() }).To(Panic())
		Expect(func() {
			MakeLinkAnalyzerBuilder().
				WithPerfLogger(logger).
				WithTimeTeller(clock).
				WithQueue(queue).
				WithPeriod(0).
				Build()
		}).To(Panic())
	})
})
