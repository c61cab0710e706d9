package analysis

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/sarchlab/mesil1/datarecording"
)

// PerfTable is the table a RecorderBackend writes to.
const PerfTable = "perf"

// PerfAnalyzerBackend is the interface that provides the service that can
// record performance data entries.
type PerfAnalyzerBackend interface {
	AddDataEntry(entry PerfEntry)
	Flush()
}

type nopBackend struct{}

func (nopBackend) AddDataEntry(PerfEntry) {}
func (nopBackend) Flush()                 {}

// CSVBackend is a PerfAnalyzerBackend that writes data entries to
// a CSV file.
type CSVBackend struct {
	file      *os.File
	csvWriter *csv.Writer
}

// NewCSVBackend creates filename.csv and writes the header.
func NewCSVBackend(filename string) (*CSVBackend, error) {
	f, err := os.Create(filename + ".csv")
	if err != nil {
		return nil, err
	}

	p := &CSVBackend{
		file:      f,
		csvWriter: csv.NewWriter(f),
	}

	header := []string{
		"Start", "End", "Location", "What", "EntryType", "Value", "Unit",
	}

	err = p.csvWriter.Write(header)
	if err != nil {
		f.Close()
		return nil, err
	}

	return p, nil
}

// AddDataEntry adds a data entry to the CSV file.
func (p *CSVBackend) AddDataEntry(entry PerfEntry) {
	err := p.csvWriter.Write([]string{
		fmt.Sprintf("%d", entry.StartTime),
		fmt.Sprintf("%d", entry.EndTime),
		entry.Location,
		entry.What,
		entry.EntryType,
		fmt.Sprintf("%.6f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Flush flushes the CSV writer.
func (p *CSVBackend) Flush() {
	p.csvWriter.Flush()

	if err := p.csvWriter.Error(); err != nil {
		panic(err)
	}
}

// Close flushes and closes the file.
func (p *CSVBackend) Close() error {
	p.Flush()
	return p.file.Close()
}

// RecorderBackend is a PerfAnalyzerBackend that writes data entries into a
// data recorder.
type RecorderBackend struct {
	recorder datarecording.DataRecorder
}

// NewRecorderBackend creates the perf table on recorder.
func NewRecorderBackend(recorder datarecording.DataRecorder) *RecorderBackend {
	recorder.CreateTable(PerfTable, PerfEntry{})

	return &RecorderBackend{recorder: recorder}
}

// AddDataEntry buffers an entry.
func (p *RecorderBackend) AddDataEntry(entry PerfEntry) {
	p.recorder.InsertData(PerfTable, entry)
}

// Flush writes the buffered entries.
func (p *RecorderBackend) Flush() {
	p.recorder.Flush()
}
