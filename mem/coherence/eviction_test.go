package coherence

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Eviction", func() {
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

	It("should stall on a locked line without writing back", func() {
		line := lineIn(StateM)
		line.LockCount = 1

		action := ctrl.HandleEviction(line, "Core")

		Expect(action).To(Equal(ActionStall))
		Expect(line.State).To(Equal(StateM))
		Expect(line.EventsWaitingForLock).To(BeTrue())
		Expect(tb.sentDown).To(BeEmpty())
	})

	It("should do nothing for an invalid line", func() {
		line := lineIn(StateI)

		Expect(ctrl.HandleEviction(line, "Core")).To(Equal(ActionDone))
		Expect(tb.sentDown).To(BeEmpty())
	})

	It("should write back a modified line with its data", func() {
		line := lineIn(StateM)
		line.AtomicActive = true
		tb.mshr.EXPECT().InsertWriteback(uint64(0x1000))

		action := ctrl.HandleEviction(line, "Core")

		Expect(action).To(Equal(ActionDone))
		Expect(line.State).To(Equal(StateI))
		Expect(line.AtomicActive).To(BeFalse())
		Expect(tb.sentDown).To(HaveLen(1))

		wb := tb.sentDown[0]
		Expect(wb.msg.Cmd).To(Equal(CmdPutModified))
		Expect(wb.msg.Dirty).To(BeTrue())
		Expect(wb.msg.Payload).To(Equal(line.Data))
		Expect(wb.msg.Requester).To(Equal("Core"))
		Expect(wb.msg.Dst).To(Equal("L2"))
		Expect(wb.deliveryTime).To(Equal(uint64(105)))
		Expect(wb.size).To(Equal(72))
		Expect(line.ReadyTime).To(Equal(uint64(104)))
	})

	DescribeTable("should announce a clean eviction without data",
		func(state State, cmd Command) {
			line := lineIn(state)
			tb.mshr.EXPECT().InsertWriteback(uint64(0x1000))

			action := ctrl.HandleEviction(line, "Core")

			Expect(action).To(Equal(ActionDone))
			Expect(line.State).To(Equal(StateI))
			Expect(tb.sentDown).To(HaveLen(1))
			Expect(tb.sentDown[0].msg.Cmd).To(Equal(cmd))
			Expect(tb.sentDown[0].msg.Dirty).To(BeFalse())
			Expect(tb.sentDown[0].msg.Payload).To(BeEmpty())
			Expect(tb.sentDown[0].deliveryTime).To(Equal(uint64(102)))
		},
		Entry("S", StateS, CmdPutShared),
		Entry("E", StateE, CmdPutExclusive),
	)

	It("should carry clean data when configured to", func() {
		ctrl = tb.builder.WithWritebackCleanBlocks(true).Build("L1")
		line := lineIn(StateE)
		tb.mshr.EXPECT().InsertWriteback(uint64(0x1000))

		ctrl.HandleEviction(line, "Core")

		Expect(tb.sentDown[0].msg.Payload).To(Equal(line.Data))
		Expect(tb.sentDown[0].deliveryTime).To(Equal(uint64(105)))
	})

	It("should not track writebacks that are never acknowledged", func() {
		ctrl = tb.builder.WithExpectWritebackAck(false).Build("L1")
		line := lineIn(StateM)

		Expect(ctrl.HandleEviction(line, "Core")).To(Equal(ActionDone))
		Expect(tb.sentDown).To(HaveLen(1))
	})

	Context("with silent clean evictions", func() {
		BeforeEach(func() {
			ctrl = tb.builder.WithSilentEvictClean(true).Build("L1")
		})

		It("should drop a shared line without a message or a marker", func() {
			line := lineIn(StateS)

			Expect(ctrl.HandleEviction(line, "Core")).To(Equal(ActionDone))
			Expect(line.State).To(Equal(StateI))
			Expect(tb.sentDown).To(BeEmpty())
		})

		It("should still write back a modified line", func() {
			line := lineIn(StateM)
			tb.mshr.EXPECT().InsertWriteback(uint64(0x1000))

			Expect(ctrl.HandleEviction(line, "Core")).To(Equal(ActionDone))
			Expect(tb.sentDown).To(HaveLen(1))
			Expect(tb.sentDown[0].msg.Cmd).To(Equal(CmdPutModified))
		})

		DescribeTable("should wait for a pending flush",
			func(state State) {
				line := lineIn(state)

				Expect(ctrl.HandleEviction(line, "Core")).To(Equal(ActionStall))
				Expect(line.State).To(Equal(state))
			},
			Entry("S_B", StateSB),
			Entry("I_B", StateIB),
		)

		It("should let a flushed line leave silently after the flush", func() {
			line := lineIn(StateSB)
			flush := coreRequest(CmdFlushLine, 0x1000)
			rsp := responseFromBelow(CmdFlushResp, flush, nil)
			rsp.Success = true

			ctrl.HandleResponse(rsp, line, flush)
			action := ctrl.HandleEviction(line, "Core")

			Expect(action).To(Equal(ActionDone))
			Expect(line.State).To(Equal(StateI))
			Expect(tb.sentDown).To(BeEmpty())
			Expect(tb.sentUp).To(HaveLen(1))
		})
	})

	DescribeTable("should wait for an outstanding transaction",
		func(state State) {
			line := lineIn(state)

			Expect(ctrl.HandleEviction(line, "Core")).To(Equal(ActionStall))
			Expect(line.State).To(Equal(state))
			Expect(tb.sentDown).To(BeEmpty())
		},
		Entry("IS", StateIS),
		Entry("IM", StateIM),
		Entry("SM", StateSM),
		Entry("S_B", StateSB),
		Entry("I_B", StateIB),
	)
})
