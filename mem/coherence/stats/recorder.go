package stats

import "github.com/sarchlab/mesil1/datarecording"

// CountersTable is the table a SnapshotRecorder writes to.
const CountersTable = "coherence_counters"

// CountRow is one counter of one snapshot as stored in the database.
type CountRow struct {
	Source string
	Time   uint64
	Kind   string
	Cmd    string
	State  string
	Dir    string
	Event  string
	Value  uint64
}

// SnapshotRecorder writes snapshots to a data recorder.
type SnapshotRecorder struct {
	recorder datarecording.DataRecorder
}

// NewSnapshotRecorder creates the counters table on recorder.
func NewSnapshotRecorder(
	recorder datarecording.DataRecorder,
) *SnapshotRecorder {
	recorder.CreateTable(CountersTable, CountRow{})

	return &SnapshotRecorder{recorder: recorder}
}

// Record buffers every counter of snap, tagged with where and when it was
// taken.
func (r *SnapshotRecorder) Record(source string, time uint64, snap Snapshot) {
	for _, c := range snap.Counts {
		r.recorder.InsertData(CountersTable, CountRow{
			Source: source,
			Time:   time,
			Kind:   c.Kind,
			Cmd:    c.Cmd,
			State:  c.State,
			Dir:    c.Dir,
			Event:  c.Event,
			Value:  c.Value,
		})
	}
}

// Flush writes the buffered rows.
func (r *SnapshotRecorder) Flush() {
	r.recorder.Flush()
}
