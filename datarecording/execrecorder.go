package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecTable is the table an ExecRecorder writes to.
const ExecTable = "exec_info"

const execTimeLayout = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how the program ran.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
	now      func() time.Time
}

// NewExecRecorder creates the exec_info table on recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecTable, ExecInfo{})

	return &ExecRecorder{
		recorder: recorder,
		now:      time.Now,
	}
}

// Start notes the start time, the command line, and the working directory.
func (e *ExecRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", e.now().Format(execTimeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the noted properties together with the end time.
func (e *ExecRecorder) End() {
	e.entries = append(e.entries,
		ExecInfo{"End Time", e.now().Format(execTimeLayout)})

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
