package stats

import (
	"context"
	"database/sql"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesil1/datarecording"
	"github.com/sarchlab/mesil1/mem/coherence"
)

var _ = Describe("SnapshotRecorder", func() {
	It("should store one row per counter", func() {
		db, err := sql.Open("sqlite3",
			filepath.Join(GinkgoT().TempDir(), "stats.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		c := NewCounters()
		c.RecordStateEvent(coherence.CmdRead, coherence.StateI)
		c.RecordEviction(coherence.StateE)

		r := NewSnapshotRecorder(datarecording.NewWithDB(db))
		r.Record("L1[1]", 42, c.Snapshot())
		r.Flush()

		rows, err := datarecording.Query[CountRow](context.Background(),
			datarecording.NewReaderWithDB(db), CountersTable,
			datarecording.Filter{OrderBy: "Kind"})

		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal([]CountRow{
			{Source: "L1[1]", Time: 42, Kind: KindEviction,
				State: "E", Value: 1},
			{Source: "L1[1]", Time: 42, Kind: KindStateEvent,
				Cmd: "Read", State: "I", Value: 1},
		}))
	})
})
