package system

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/hooking"
)

const addrA = 0x1000

// settle runs the first possible step until nothing is left to do.
func settle(sys *System, clock *stepClock) {
	for {
		choices := sys.choices()
		if len(choices) == 0 {
			return
		}

		clock.now++
		choices[0].run()
	}
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.NumSets = 1
	cfg.NumWays = 2

	return cfg
}

var _ = Describe("Checker", func() {
	var (
		clock *stepClock
		sys   *System
	)

	build := func(scripts ...[]Op) {
		clock = &stepClock{}
		sys = MakeBuilder().
			WithConfig(smallConfig()).
			WithTimeTeller(clock).
			WithScripts(scripts...).
			Build()
	}

	lineOf := func(cache int, addr uint64) *coherence.Line {
		line, ok := sys.Caches()[cache].Lookup(addr)
		Expect(ok).To(BeTrue())

		return line
	}

	It("should follow writes and accept a coherent system", func() {
		build(
			[]Op{{Kind: OpWrite, Addr: addrA + 3, Value: 5}},
			[]Op{{Kind: OpAtomicInc, Addr: addrA + 3}},
		)

		settle(sys, clock)

		Expect(sys.IsQuiescent()).To(BeTrue())
		Expect(sys.Checker().Check()).To(BeTrue())
		Expect(sys.Checker().CheckQuiescent()).To(BeTrue())
		Expect(sys.Checker().Golden(addrA)[3]).To(Equal(byte(6)))
		Expect(lineOf(1, addrA).State).To(Equal(coherence.StateM))
		Expect(sys.Checker().Violations()).To(BeEmpty())
	})

	Context("with two readers", func() {
		BeforeEach(func() {
			build(
				[]Op{{Kind: OpRead, Addr: addrA}},
				[]Op{{Kind: OpRead, Addr: addrA}},
			)
			settle(sys, clock)

			Expect(lineOf(0, addrA).State).To(Equal(coherence.StateS))
			Expect(lineOf(1, addrA).State).To(Equal(coherence.StateS))
		})

		It("should find two copies alongside an owner", func() {
			lineOf(0, addrA).State = coherence.StateM

			Expect(sys.Checker().Check()).To(BeFalse())
			Expect(sys.Checker().Violations()[0].Kind).
				To(Equal(ViolationSingleWriter))
			Expect(sys.Checker().Violations()[0].Addr).
				To(Equal(uint64(addrA)))
		})

		It("should find stale data", func() {
			lineOf(1, addrA).Data[0] = 9

			Expect(sys.Checker().Check()).To(BeFalse())
			Expect(sys.Checker().Violations()[0].Kind).
				To(Equal(ViolationDataValue))
		})

		It("should find a transient line with nothing outstanding", func() {
			lineOf(1, addrA).State = coherence.StateIS

			Expect(sys.Checker().Check()).To(BeFalse())
			Expect(sys.Checker().Violations()[0].Kind).
				To(Equal(ViolationTransient))
		})
	})

	It("should find stale memory once the owner is gone", func() {
		build([]Op{{Kind: OpWrite, Addr: addrA, Value: 5}}, nil)
		settle(sys, clock)

		Expect(sys.Checker().CheckQuiescent()).To(BeTrue())

		lineOf(0, addrA).State = coherence.StateE

		Expect(sys.Checker().CheckQuiescent()).To(BeFalse())
		Expect(sys.Checker().Violations()[0].Kind).To(Equal(ViolationMemory))
	})

	It("should check the value a read returns", func() {
		build(nil, nil)

		req := coherence.MsgBuilder{}.
			WithCmd(coherence.CmdRead).
			WithAddress(addrA + 1).
			WithBlockSize(64).
			WithSize(1).
			Build()
		sys.Checker().noteRequest(req)

		rsp := req.MakeResponse()
		rsp.Payload = []byte{7}
		sys.Checker().Func(hooking.HookCtx{
			Pos:    coherence.HookPosSend,
			Item:   rsp,
			Detail: coherence.Sent{Dir: coherence.Upstream},
		})

		Expect(sys.Checker().Violations()).To(HaveLen(1))
		Expect(sys.Checker().Violations()[0].Kind).
			To(Equal(ViolationDataValue))
	})

	It("should report cores that cannot progress", func() {
		build([]Op{{Kind: OpRead, Addr: addrA}}, nil)

		sys.checker.reportDeadlock()

		v := sys.Checker().Violations()[0]
		Expect(v.Kind).To(Equal(ViolationDeadlock))
		Expect(v.Detail).To(ContainSubstring("Core[0](1 left)"))
	})
})
