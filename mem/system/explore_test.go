package system

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Explore", func() {
	It("should cover every interleaving of a single core", func() {
		cfg := smallConfig()
		cfg.NumCaches = 1

		report := Explore(MakeBuilder().
			WithConfig(cfg).
			WithScripts([]Op{
				{Kind: OpWrite, Addr: addrA, Value: 1},
				{Kind: OpRead, Addr: addrA + 64},
				{Kind: OpRead, Addr: addrA + 128},
				{Kind: OpFlushInv, Addr: addrA + 64},
				{Kind: OpRead, Addr: addrA},
			}))

		Expect(report.Violations).To(BeEmpty())
		Expect(report.Exhaustive).To(BeTrue())
		Expect(report.Paths).To(BeNumerically(">=", 1))
		Expect(report.Incomplete).To(BeZero())
	})

	It("should find no violation between two cores", func() {
		cfg := smallConfig()
		cfg.NumWays = 1
		cfg.MaxPaths = 3000

		report := Explore(MakeBuilder().
			WithConfig(cfg).
			WithScripts(
				[]Op{
					{Kind: OpWrite, Addr: addrA, Value: 1},
					{Kind: OpRead, Addr: addrA + 64},
					{Kind: OpWrite, Addr: addrA, Value: 3},
				},
				[]Op{
					{Kind: OpRead, Addr: addrA},
					{Kind: OpAtomicInc, Addr: addrA + 64},
					{Kind: OpFlushInv, Addr: addrA},
				},
			))

		Expect(report.Violations).To(BeEmpty())
		Expect(report.Paths).To(BeNumerically(">", 1))
	})

	It("should sample paths at random", func() {
		cfg := smallConfig()
		cfg.Strategy = StrategyRandom
		cfg.MaxPaths = 200

		report := Explore(MakeBuilder().
			WithConfig(cfg).
			WithScripts(
				[]Op{
					{Kind: OpLoadLink, Addr: addrA},
					{Kind: OpStoreConditional, Addr: addrA, Value: 4},
					{Kind: OpFlush, Addr: addrA},
				},
				[]Op{
					{Kind: OpWrite, Addr: addrA, Value: 2},
					{Kind: OpRead, Addr: addrA},
				},
			))

		Expect(report.Violations).To(BeEmpty())
		Expect(report.Paths).To(Equal(200))
		Expect(report.Exhaustive).To(BeFalse())
	})

	It("should stop paths at the step limit", func() {
		cfg := smallConfig()
		cfg.MaxSteps = 3
		cfg.MaxPaths = 50

		report := Explore(MakeBuilder().
			WithConfig(cfg).
			WithScripts(
				[]Op{{Kind: OpWrite, Addr: addrA, Value: 1}},
				[]Op{{Kind: OpWrite, Addr: addrA, Value: 2}},
			))

		Expect(report.Violations).To(BeEmpty())
		Expect(report.Incomplete).To(Equal(report.Paths))
	})
})
