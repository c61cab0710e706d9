package analysis

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesil1/datarecording"
	"github.com/sarchlab/mesil1/mem/system"
)

func newSimulation() *system.Simulation {
	cfg := system.DefaultConfig()
	cfg.NumOps = 20

	return system.NewSimulation(system.MakeBuilder().WithConfig(cfg))
}

var _ = Describe("Perf Analyzer", func() {
	It("should count the traffic of every link", func() {
		sim := newSimulation()

		pa := MakePerfAnalyzerBuilder().
			WithTimeTeller(sim.Engine()).
			Build()
		pa.RegisterSystem(sim.System())

		_, err := sim.Run()
		Expect(err).NotTo(HaveOccurred())

		pa.Summarize()

		traffic := pa.Traffic()
		Expect(traffic).To(HaveLen(6))
		Expect(traffic[0].Bytes).To(BeNumerically(">=", traffic[5].Bytes))

		var msgs int64
		for _, t := range traffic {
			msgs += t.Msgs
		}

		Expect(msgs).To(BeNumerically(">", 0))
	})

	It("should write the entries into a data recorder", func() {
		db, err := sql.Open("sqlite3",
			filepath.Join(GinkgoT().TempDir(), "perf.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		sim := newSimulation()

		pa := MakePerfAnalyzerBuilder().
			WithTimeTeller(sim.Engine()).
			WithPeriod(100).
			WithBackend(NewRecorderBackend(datarecording.NewWithDB(db))).
			Build()
		pa.RegisterSystem(sim.System())

		_, err = sim.Run()
		Expect(err).NotTo(HaveOccurred())

		pa.Summarize()

		var count int
		Expect(db.QueryRow("SELECT COUNT(*) FROM " + PerfTable).
			Scan(&count)).To(Succeed())
		Expect(count).To(BeNumerically(">", 0))
	})

	It("should write the entries into a CSV file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "perf")

		backend, err := NewCSVBackend(path)
		Expect(err).NotTo(HaveOccurred())

		backend.AddDataEntry(PerfEntry{
			StartTime: 0, EndTime: 10, Location: "Home.ToL1[0]",
			What: "Traffic", EntryType: "Link", Value: 144, Unit: "Byte",
		})
		Expect(backend.Close()).To(Succeed())

		f, err := os.Open(path + ".csv")
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([][]string{
			{"Start", "End", "Location", "What", "EntryType", "Value", "Unit"},
			{"0", "10", "Home.ToL1[0]", "Traffic", "Link", "144.000000", "Byte"},
		}))
	})
})
