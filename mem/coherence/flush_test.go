package coherence

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Flush handling", func() {
	var (
		tb   *testBench
		ctrl *Controller
	)

	BeforeEach(func() {
		tb = newTestBench()
		tb.allowStats()
		ctrl = tb.build()
	})

	AfterEach(func() {
		tb.mockCtrl.Finish()
	})

	DescribeTable("should stall on a line in transition",
		func(state State) {
			line := lineIn(state)
			flush := coreRequest(CmdFlushLine, 0x1000)

			Expect(ctrl.HandleFlush(flush, line, nil, false)).To(Equal(ActionStall))
			Expect(line.State).To(Equal(state))
			Expect(tb.sentDown).To(BeEmpty())
			Expect(tb.sentUp).To(BeEmpty())
		},
		Entry("IS", StateIS),
		Entry("IM", StateIM),
		Entry("SM", StateSM),
		Entry("S_B", StateSB),
		Entry("I_B", StateIB),
	)

	It("should stall behind another outstanding request", func() {
		line := lineIn(StateS)
		flush := coreRequest(CmdFlushLine, 0x1000)
		other := coreRequest(CmdRead, 0x1000)

		Expect(ctrl.HandleFlush(flush, line, other, false)).To(Equal(ActionStall))
		Expect(line.State).To(Equal(StateS))
		Expect(tb.sentDown).To(BeEmpty())
	})

	It("should fail a flush of a locked line", func() {
		line := lineIn(StateM)
		line.LockCount = 1
		flush := coreRequest(CmdFlushLineInv, 0x1000)

		action := ctrl.HandleFlush(flush, line, nil, false)

		Expect(action).To(Equal(ActionDone))
		Expect(line.State).To(Equal(StateM))
		Expect(tb.sentDown).To(BeEmpty())
		Expect(tb.sentUp).To(HaveLen(1))
		Expect(tb.sentUp[0].msg.Cmd).To(Equal(CmdFlushResp))
		Expect(tb.sentUp[0].msg.Success).To(BeFalse())
		Expect(tb.sentUp[0].deliveryTime).To(Equal(uint64(102)))
	})

	It("should write back a modified line and keep a shared copy", func() {
		line := lineIn(StateM)
		flush := coreRequest(CmdFlushLine, 0x1010)

		action := ctrl.HandleFlush(flush, line, nil, false)

		Expect(action).To(Equal(ActionStall))
		Expect(line.State).To(Equal(StateSB))
		Expect(tb.sentDown).To(HaveLen(1))

		fwd := tb.sentDown[0]
		Expect(fwd.msg.Cmd).To(Equal(CmdFlushLine))
		Expect(fwd.msg.Addr).To(Equal(uint64(0x1000)))
		Expect(fwd.msg.Src).To(Equal("L1"))
		Expect(fwd.msg.Dst).To(Equal("L2"))
		Expect(fwd.msg.Requester).To(Equal("Core"))
		Expect(fwd.msg.Dirty).To(BeTrue())
		Expect(fwd.msg.Payload).To(Equal(line.Data))
		Expect(fwd.deliveryTime).To(Equal(uint64(105)))
		Expect(fwd.size).To(Equal(72))
		Expect(line.ReadyTime).To(Equal(uint64(104)))
	})

	It("should invalidate a shared line", func() {
		line := lineIn(StateS)
		flush := coreRequest(CmdFlushLineInv, 0x1000)

		ctrl.HandleFlush(flush, line, nil, false)

		Expect(line.State).To(Equal(StateIB))
		Expect(tb.sentDown[0].msg.Cmd).To(Equal(CmdFlushLineInv))
		Expect(tb.sentDown[0].msg.Dirty).To(BeFalse())
		Expect(tb.sentDown[0].msg.Payload).To(HaveLen(64))
	})

	It("should forward a flush of an invalid line without data", func() {
		line := lineIn(StateI)
		flush := coreRequest(CmdFlushLine, 0x1000)

		Expect(ctrl.HandleFlush(flush, line, nil, false)).To(Equal(ActionStall))
		Expect(line.State).To(Equal(StateIB))
		Expect(tb.sentDown[0].msg.Payload).To(BeEmpty())
		Expect(tb.sentDown[0].deliveryTime).To(Equal(uint64(102)))
	})

	It("should forward a flush of an address not cached", func() {
		flush := coreRequest(CmdFlushLineInv, 0x1000)

		Expect(ctrl.HandleFlush(flush, nil, nil, false)).To(Equal(ActionStall))
		Expect(tb.sentDown).To(HaveLen(1))
		Expect(tb.sentDown[0].msg.Payload).To(BeEmpty())
		Expect(tb.sentDown[0].deliveryTime).To(Equal(uint64(102)))
		Expect(tb.sentDown[0].size).To(Equal(8))
	})

	It("should reject a command that is not a flush", func() {
		Expect(func() {
			ctrl.HandleFlush(coreRequest(CmdRead, 0x1000), lineIn(StateS),
				nil, false)
		}).To(PanicWith(BeAssignableToTypeOf(&ProtocolViolation{})))
	})
})
