package coherence

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Msg", func() {
	It("should derive the base address from the block size", func() {
		msg := MsgBuilder{}.
			WithCmd(CmdRead).
			WithAddress(0x1234).
			WithBlockSize(64).
			Build()

		Expect(msg.BaseAddr).To(Equal(uint64(0x1200)))
		Expect(msg.Offset()).To(Equal(uint64(0x34)))
		Expect(msg.ID).NotTo(BeEmpty())
	})

	It("should answer to the sender", func() {
		req := coreRequest(CmdReadForAtomic, 0x1008)
		req.Flags = FlagLocked | FlagPrefetch

		rsp := req.MakeResponse()

		Expect(rsp.Cmd).To(Equal(CmdReadExclusiveResp))
		Expect(rsp.Src).To(Equal("L1"))
		Expect(rsp.Dst).To(Equal("Core"))
		Expect(rsp.RespondTo).To(Equal(req.ID))
		Expect(rsp.ID).NotTo(Equal(req.ID))
		Expect(rsp.IsPrefetch()).To(BeTrue())
	})

	It("should not share the payload with its clone", func() {
		msg := coreRequest(CmdReadExclusive, 0x1000)
		msg.Payload = []byte{1, 2}

		clone := msg.Clone()
		clone.Payload[0] = 9

		Expect(msg.Payload[0]).To(Equal(byte(1)))
		Expect(clone.TrafficBytes(8)).To(Equal(10))
	})
})

var _ = Describe("Line", func() {
	It("should never move the ready time backward", func() {
		line := NewLine(0x40, 64)

		line.advanceReadyTime(20)
		line.advanceReadyTime(10)

		Expect(line.ReadyTime).To(Equal(uint64(20)))
	})

	It("should forget waiting events once fully unlocked", func() {
		line := NewLine(0x40, 64)
		line.incLock()
		line.incLock()
		line.EventsWaitingForLock = true

		line.decLock()
		Expect(line.EventsWaitingForLock).To(BeTrue())

		line.decLock()
		Expect(line.IsLocked()).To(BeFalse())
		Expect(line.EventsWaitingForLock).To(BeFalse())
	})

	It("should grow to fit a write past its end", func() {
		line := NewLine(0x40, 4)

		line.setData([]byte{1, 2}, 3)

		Expect(line.Data).To(Equal([]byte{0, 0, 0, 1, 2}))
	})
})

var _ = Describe("State", func() {
	It("should name the flush-pending states", func() {
		Expect(StateSB.String()).To(Equal("S_B"))
		Expect(StateIB.String()).To(Equal("I_B"))
	})

	It("should tell which states hold valid data", func() {
		holding := []State{}
		for _, s := range AllStates() {
			if s.HoldsData() {
				holding = append(holding, s)
			}
		}

		Expect(holding).To(ConsistOf(StateS, StateE, StateM, StateSM, StateSB))
	})
})
