package l1

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/queueing"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 {
	return c.now
}

func coreReq(cmd coherence.Command, addr uint64) *coherence.Msg {
	return coherence.MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(addr).
		WithBlockSize(64).
		WithSize(8).
		WithSrc("Core").
		WithDst("L1").
		WithRequester("Core").
		Build()
}

func fromHome(cmd coherence.Command, addr uint64) *coherence.Msg {
	return coherence.MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(addr).
		WithBlockSize(64).
		WithSize(64).
		WithSrc("Home").
		WithDst("L1").
		WithRequester("Other").
		Build()
}

func drain(q *queueing.OutgoingQueue) []*coherence.Msg {
	var msgs []*coherence.Msg

	for {
		item, ok := q.PopFront()
		if !ok {
			return msgs
		}

		msgs = append(msgs, item.Msg)
	}
}

func cmdsOf(msgs []*coherence.Msg) []coherence.Command {
	cmds := make([]coherence.Command, 0, len(msgs))
	for _, m := range msgs {
		cmds = append(cmds, m.Cmd)
	}

	return cmds
}

func filled(fill byte) []byte {
	data := make([]byte, 64)
	for i := range data {
		data[i] = fill
	}

	return data
}

var _ = Describe("Comp", func() {
	var (
		clock *fakeClock
		comp  *Comp
	)

	build := func(numSets, numWays int) {
		comp = MakeBuilder().
			WithTimeTeller(clock).
			WithNumSets(numSets).
			WithNumWays(numWays).
			WithMSHRCapacity(2).
			Build("L1")
	}

	// grant answers the single request the cache sent below.
	grant := func(state coherence.State, fill byte) {
		sent := drain(comp.ToBottom())
		Expect(sent).To(HaveLen(1))

		rsp := sent[0].MakeResponse()
		rsp.Payload = filled(fill)
		rsp.GrantedState = state
		comp.Deliver(rsp)
	}

	BeforeEach(func() {
		clock = &fakeClock{}
		build(1, 2)
	})

	It("should merge requests to a block with an outstanding miss", func() {
		read1 := coreReq(coherence.CmdRead, 0x1000)
		read2 := coreReq(coherence.CmdRead, 0x1008)

		comp.Deliver(read1)
		comp.Deliver(read2)

		Expect(comp.HasOutstanding(0x1000)).To(BeTrue())
		Expect(comp.ToBottom().Len()).To(Equal(1))

		grant(coherence.StateE, 7)

		responses := drain(comp.ToTop())
		Expect(responses).To(HaveLen(2))
		Expect(responses[0].RespondTo).To(Equal(read1.ID))
		Expect(responses[1].RespondTo).To(Equal(read2.ID))
		Expect(responses[1].Payload).To(Equal(filled(7)[:8]))

		line, ok := comp.Lookup(0x1000)
		Expect(ok).To(BeTrue())
		Expect(line.State).To(Equal(coherence.StateE))
		Expect(comp.IsIdle()).To(BeTrue())
	})

	It("should wait for the writeback of an evicted block", func() {
		build(1, 1)

		write := coreReq(coherence.CmdReadExclusive, 0x1000)
		write.Payload = []byte{1}
		comp.Deliver(write)
		grant(coherence.StateM, 0)
		drain(comp.ToTop())

		comp.Deliver(coreReq(coherence.CmdRead, 0x2000))
		sent := drain(comp.ToBottom())
		Expect(cmdsOf(sent)).To(ConsistOf(
			coherence.CmdPutModified, coherence.CmdRead))

		comp.Deliver(coreReq(coherence.CmdRead, 0x1000))
		Expect(comp.ToBottom().Len()).To(Equal(0))

		comp.Deliver(fromHome(coherence.CmdAckPut, 0x1000))
		Expect(comp.ToBottom().Len()).To(Equal(0))

		var readMiss *coherence.Msg
		for _, m := range sent {
			if m.Cmd == coherence.CmdRead {
				readMiss = m
			}
		}

		rsp := readMiss.MakeResponse()
		rsp.Payload = filled(2)
		rsp.GrantedState = coherence.StateS
		comp.Deliver(rsp)

		sent = drain(comp.ToBottom())
		Expect(cmdsOf(sent)).To(ConsistOf(
			coherence.CmdPutShared, coherence.CmdRead))
		Expect(comp.HasOutstanding(0x1000)).To(BeTrue())
	})

	It("should hold snoops until a locked line is unlocked", func() {
		comp.Deliver(coreReq(coherence.CmdReadForAtomic, 0x1000))
		grant(coherence.StateM, 5)
		drain(comp.ToTop())

		comp.Deliver(fromHome(coherence.CmdFetchInvalidate, 0x1000))
		Expect(comp.ToBottom().Len()).To(Equal(0))
		Expect(comp.IsIdle()).To(BeFalse())

		unlock := coreReq(coherence.CmdReadExclusive, 0x1000)
		unlock.Flags = coherence.FlagLocked
		unlock.Payload = []byte{42}
		comp.Deliver(unlock)

		sent := drain(comp.ToBottom())
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].Cmd).To(Equal(coherence.CmdFetchResp))
		Expect(sent[0].Dirty).To(BeTrue())
		Expect(sent[0].Payload[0]).To(Equal(byte(42)))

		line, _ := comp.Lookup(0x1000)
		Expect(line.State).To(Equal(coherence.StateI))
	})

	It("should tell the core about every snoop held by a lock once", func() {
		comp = MakeBuilder().
			WithTimeTeller(clock).
			WithCoherence(coherence.MakeBuilder().
				WithSnoopL1Invalidations(true)).
			Build("L1")

		comp.Deliver(coreReq(coherence.CmdReadForAtomic, 0x1000))
		grant(coherence.StateM, 5)
		drain(comp.ToTop())

		comp.Deliver(fromHome(coherence.CmdFetchInvalidateForOwnership,
			0x1000))
		comp.Deliver(fromHome(coherence.CmdInvalidate, 0x1000))
		Expect(cmdsOf(drain(comp.ToTop()))).To(Equal(
			[]coherence.Command{coherence.CmdInvalidate}))

		unlock := coreReq(coherence.CmdReadExclusive, 0x1000)
		unlock.Flags = coherence.FlagLocked
		comp.Deliver(unlock)

		Expect(cmdsOf(drain(comp.ToTop()))).To(ConsistOf(
			coherence.CmdReadExclusiveResp, coherence.CmdInvalidate))
		Expect(cmdsOf(drain(comp.ToBottom()))).To(ConsistOf(
			coherence.CmdFetchXResp, coherence.CmdAckInvalidate))

		line, _ := comp.Lookup(0x1000)
		Expect(line.State).To(Equal(coherence.StateI))
	})

	It("should hold a flush behind an outstanding request", func() {
		comp.Deliver(coreReq(coherence.CmdRead, 0x1000))
		comp.Deliver(coreReq(coherence.CmdFlushLine, 0x1000))
		Expect(comp.ToBottom().Len()).To(Equal(1))

		grant(coherence.StateE, 3)

		sent := drain(comp.ToBottom())
		Expect(cmdsOf(sent)).To(Equal(
			[]coherence.Command{coherence.CmdFlushLine}))
		Expect(sent[0].Payload).To(Equal(filled(3)))

		line, _ := comp.Lookup(0x1000)
		Expect(line.State).To(Equal(coherence.StateSB))
		Expect(comp.HasOutstanding(0x1000)).To(BeTrue())
	})

	It("should resend a NACKed request", func() {
		comp.Deliver(coreReq(coherence.CmdRead, 0x1000))
		sent := drain(comp.ToBottom())

		nack := fromHome(coherence.CmdNACK, 0x1000)
		nack.NACKed = sent[0]
		comp.Deliver(nack)

		resent := drain(comp.ToBottom())
		Expect(resent).To(HaveLen(1))
		Expect(resent[0]).To(BeIdenticalTo(sent[0]))
		Expect(resent[0].Retries).To(Equal(1))
	})

	It("should let a snoop stand in for the AckPut of a racing eviction",
		func() {
			build(1, 1)

			comp.Deliver(coreReq(coherence.CmdRead, 0x1000))
			grant(coherence.StateS, 1)
			drain(comp.ToTop())

			comp.Deliver(coreReq(coherence.CmdRead, 0x2000))
			sent := drain(comp.ToBottom())
			Expect(cmdsOf(sent)).To(ConsistOf(
				coherence.CmdPutShared, coherence.CmdRead))

			comp.Deliver(fromHome(coherence.CmdInvalidate, 0x1000))
			Expect(comp.ToBottom().Len()).To(Equal(0))

			for _, m := range sent {
				if m.Cmd == coherence.CmdRead {
					rsp := m.MakeResponse()
					rsp.Payload = filled(2)
					rsp.GrantedState = coherence.StateS
					comp.Deliver(rsp)
				}
			}
			drain(comp.ToTop())

			comp.Deliver(coreReq(coherence.CmdRead, 0x1000))

			Expect(cmdsOf(drain(comp.ToBottom()))).To(ConsistOf(
				coherence.CmdPutShared, coherence.CmdRead))
		})

	It("should report the lines it holds", func() {
		comp.Deliver(coreReq(coherence.CmdRead, 0x1000))
		grant(coherence.StateS, 1)

		lines := comp.Lines()
		Expect(lines).To(HaveLen(1))
		Expect(lines[0].BaseAddr).To(Equal(uint64(0x1000)))
	})
})
