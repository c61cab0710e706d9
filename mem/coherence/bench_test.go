package coherence

import (
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/mock/gomock"
)

type sentMsg struct {
	msg          *Msg
	deliveryTime uint64
	size         int
}

// testBench wires a controller to mocks and records every message sent.
type testBench struct {
	mockCtrl *gomock.Controller
	mshr     *MockWritebackTracker
	clock    *MockTimeTeller
	observer *MockObserver
	down     *MockChannel
	up       *MockChannel

	now      uint64
	sentDown []sentMsg
	sentUp   []sentMsg
	builder  Builder
}

func newTestBench() *testBench {
	tb := &testBench{now: 100}
	tb.mockCtrl = gomock.NewController(GinkgoT())
	tb.mshr = NewMockWritebackTracker(tb.mockCtrl)
	tb.clock = NewMockTimeTeller(tb.mockCtrl)
	tb.observer = NewMockObserver(tb.mockCtrl)
	tb.down = NewMockChannel(tb.mockCtrl)
	tb.up = NewMockChannel(tb.mockCtrl)

	tb.clock.EXPECT().Now().
		DoAndReturn(func() uint64 { return tb.now }).
		AnyTimes()
	tb.down.EXPECT().Enqueue(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(m *Msg, t uint64, size int) {
			tb.sentDown = append(tb.sentDown, sentMsg{m, t, size})
		}).
		AnyTimes()
	tb.up.EXPECT().Enqueue(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(m *Msg, t uint64, size int) {
			tb.sentUp = append(tb.sentUp, sentMsg{m, t, size})
		}).
		AnyTimes()

	tb.builder = MakeBuilder().
		WithBlockSize(64).
		WithAccessLatency(5).
		WithTagLatency(2).
		WithMSHRLatency(3).
		WithPacketHeaderBytes(8).
		WithLowModule("L2").
		WithWritebackTracker(tb.mshr).
		WithDownChannel(tb.down).
		WithUpChannel(tb.up).
		WithTimeTeller(tb.clock).
		WithObserver(tb.observer)

	return tb
}

// allowStats accepts any statistics. Tests that check statistics use a bench
// without calling it.
func (tb *testBench) allowStats() {
	tb.observer.EXPECT().RecordStateEvent(gomock.Any(), gomock.Any()).AnyTimes()
	tb.observer.EXPECT().RecordEventSent(gomock.Any(), gomock.Any()).AnyTimes()
	tb.observer.EXPECT().RecordEviction(gomock.Any()).AnyTimes()
	tb.observer.EXPECT().RecordStallForLock().AnyTimes()
	tb.observer.EXPECT().RecordPrefetch(gomock.Any()).AnyTimes()
}

func (tb *testBench) build() *Controller {
	return tb.builder.Build("L1")
}

func coreRequest(cmd Command, addr uint64) *Msg {
	return MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(addr).
		WithBlockSize(64).
		WithSize(8).
		WithSrc("Core").
		WithDst("L1").
		WithRequester("Core").
		Build()
}

func snoopFromBelow(cmd Command, addr uint64) *Msg {
	return MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(addr).
		WithBlockSize(64).
		WithSize(64).
		WithSrc("L2").
		WithDst("L1").
		WithRequester("Other").
		Build()
}

func responseFromBelow(cmd Command, req *Msg, payload []byte) *Msg {
	return MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(req.BaseAddr).
		WithBlockSize(64).
		WithSize(64).
		WithSrc("L2").
		WithDst("L1").
		WithPayload(payload).
		WithRespondTo(req.ID).
		Build()
}

func lineIn(state State) *Line {
	line := NewLine(0x1000, 64)
	line.State = state

	for i := range line.Data {
		line.Data[i] = byte(i)
	}

	return line
}

func block(fill byte) []byte {
	data := make([]byte, 64)
	for i := range data {
		data[i] = fill
	}

	return data
}
