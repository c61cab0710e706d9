package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"text/tabwriter"

	"github.com/pkg/browser"
	"github.com/sarchlab/mesil1/analysis"
	"github.com/sarchlab/mesil1/datarecording"
	"github.com/sarchlab/mesil1/mem/coherence/stats"
	"github.com/sarchlab/mesil1/mem/system"
	"github.com/sarchlab/mesil1/mem/trace"
	"github.com/sarchlab/mesil1/monitoring"
	"github.com/sarchlab/mesil1/sim/timing"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a random workload with cycle-level timing.",
	Long: "Run builds the caches and the home node, lets every core issue " +
		"its operations, and checks coherence after every cycle.",
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Float64("nack-rate", 0,
		"Fraction of requests the home node rejects.")
	runCmd.Flags().Bool("trace", false,
		"Print every transition and message to stderr.")
	runCmd.Flags().Bool("trace-events", false,
		"Print every engine event to stderr.")
	runCmd.Flags().String("record", "",
		"Record transactions and counters into this SQLite database "+
			"(without the .sqlite3 suffix).")
	runCmd.Flags().String("perf", "",
		"Write the link traffic into this CSV file (without the .csv suffix).")
	runCmd.Flags().Uint64("perf-period", 0,
		"Report the link traffic every this many cycles. 0 reports once.")
	runCmd.Flags().Bool("metrics", false,
		"Report the counters through OpenTelemetry.")
	runCmd.Flags().Bool("monitor", false, "Serve a monitoring web page.")
	runCmd.Flags().Int("monitor-port", 0, "Port of the monitoring server.")
	runCmd.Flags().Bool("open-browser", false,
		"Open the monitoring page in a browser.")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	counters := stats.NewCounters()
	observers := stats.Multi{counters}

	var reader *sdkmetric.ManualReader

	if useMetrics, _ := flags.GetBool("metrics"); useMetrics {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		mo, err := stats.NewMeterObserver(provider.Meter("mesil1"), "L1")
		if err != nil {
			return err
		}

		observers = append(observers, mo)
	}

	sim := system.NewSimulation(system.MakeBuilder().
		WithConfig(cfg).
		WithObserver(observers).
		WithLogger(logger))
	sys := sim.System()

	if useTrace, _ := flags.GetBool("trace"); useTrace {
		sys.AcceptHook(trace.NewTracer(
			log.New(cmd.ErrOrStderr(), "", 0), sim.Engine()))
	}

	if traceEvents, _ := flags.GetBool("trace-events"); traceEvents {
		sim.Engine().AcceptHook(timing.NewEventLogger(
			log.New(cmd.ErrOrStderr(), "", 0)))
	}

	recordPath, _ := flags.GetString("record")

	var rec *recording
	if recordPath != "" {
		rec = startRecording(recordPath, sim)
	}

	perf, closePerf, err := newPerfAnalyzer(cmd, sim, rec)
	if err != nil {
		return err
	}

	if useMonitor, _ := flags.GetBool("monitor"); useMonitor {
		startMonitor(cmd, sim, counters, perf)
	}

	result, runErr := sim.Run()

	perf.Summarize()

	if err := closePerf(); err != nil {
		return err
	}

	if rec != nil {
		rec.finish(result, counters)
	}

	printResult(cmd.OutOrStdout(), result, counters.Snapshot())
	printTraffic(cmd.OutOrStdout(), perf.Traffic())

	if reader != nil {
		err := printMetrics(cmd.OutOrStdout(), reader)
		if err != nil {
			return err
		}
	}

	return runErr
}

type recording struct {
	recorder  datarecording.DataRecorder
	exec      *datarecording.ExecRecorder
	snapshots *stats.SnapshotRecorder
}

func startRecording(path string, sim *system.Simulation) *recording {
	rec := datarecording.New(path)

	r := &recording{
		recorder:  rec,
		exec:      datarecording.NewExecRecorder(rec),
		snapshots: stats.NewSnapshotRecorder(rec),
	}
	r.exec.Start()

	sim.System().AcceptHook(trace.NewDBTracer(rec, sim.Engine()))

	return r
}

func (r *recording) finish(result system.RunResult, counters *stats.Counters) {
	r.snapshots.Record("L1", result.Cycles, counters.Snapshot())
	r.exec.End()

	if err := r.recorder.Close(); err != nil {
		log.Printf("closing recording: %v", err)
	}
}

// newPerfAnalyzer watches every link of the simulation. Entries go to the
// CSV file if one is given, else into the recording.
func newPerfAnalyzer(
	cmd *cobra.Command,
	sim *system.Simulation,
	rec *recording,
) (*analysis.PerfAnalyzer, func() error, error) {
	closeFn := func() error { return nil }

	builder := analysis.MakePerfAnalyzerBuilder().
		WithTimeTeller(sim.Engine())

	if period, _ := cmd.Flags().GetUint64("perf-period"); period > 0 {
		builder = builder.WithPeriod(period)
	}

	csvPath, _ := cmd.Flags().GetString("perf")

	switch {
	case csvPath != "":
		backend, err := analysis.NewCSVBackend(csvPath)
		if err != nil {
			return nil, nil, fmt.Errorf("creating perf file: %w", err)
		}

		builder = builder.WithBackend(backend)
		closeFn = backend.Close
	case rec != nil:
		builder = builder.WithBackend(analysis.NewRecorderBackend(rec.recorder))
	}

	perf := builder.Build()
	perf.RegisterSystem(sim.System())

	return perf, closeFn, nil
}

func startMonitor(
	cmd *cobra.Command,
	sim *system.Simulation,
	counters *stats.Counters,
	perf *analysis.PerfAnalyzer,
) {
	port, _ := cmd.Flags().GetInt("monitor-port")

	m := monitoring.NewMonitor().WithPortNumber(port)
	m.RegisterSimulation(sim)
	m.RegisterCounters(counters)
	m.RegisterPerfAnalyzer(perf)

	cores := sim.System().Cores()
	total := uint64(0)

	for _, c := range cores {
		total += uint64(c.Remaining())
	}

	m.CreateProgressBarFunc("Operations", total, func() uint64 {
		done := uint64(0)
		for _, c := range cores {
			done += uint64(c.Stats().Completed)
		}

		return done
	})

	url := m.StartServer()

	if open, _ := cmd.Flags().GetBool("open-browser"); open {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("opening browser: %v", err)
		}
	}
}

func printResult(w io.Writer, result system.RunResult, snap stats.Snapshot) {
	fmt.Fprintf(w, "Cycles:       %d\n", result.Cycles)
	fmt.Fprintf(w, "Completed:    %d\n", result.Completed)
	fmt.Fprintf(w, "SC succeeded: %d\n", result.SCSucceeded)
	fmt.Fprintf(w, "SC failed:    %d\n", result.SCFailed)

	for _, v := range result.Violations {
		fmt.Fprintf(w, "Violation: %s\n", v)
	}

	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCMD\tSTATE\tDIR\tEVENT\tCOUNT")

	for _, c := range snap.Counts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			c.Kind, c.Cmd, c.State, c.Dir, c.Event, c.Value)
	}

	tw.Flush()
}

func printTraffic(w io.Writer, traffic []analysis.LinkTraffic) {
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINK\tMSGS\tBYTES")

	for _, t := range traffic {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", t.Link, t.Msgs, t.Bytes)
	}

	tw.Flush()
}

func printMetrics(w io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			var total int64
			for _, p := range sum.DataPoints {
				total += p.Value
			}

			fmt.Fprintf(w, "%s: %d\n", m.Name, total)
		}
	}

	return nil
}
