// Package monitoring turns a simulation into a web server that shows the
// state of the caches and the home node while the simulation runs.
package monitoring

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/mesil1/analysis"
	"github.com/sarchlab/mesil1/mem/coherence/stats"
	"github.com/sarchlab/mesil1/mem/system"
	"github.com/sarchlab/mesil1/monitoring/web"
	"github.com/sarchlab/mesil1/sim/id"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

type engine interface {
	Pause()
	Continue()
	Now() uint64
}

type queue interface {
	Name() string
	Len() int
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine     engine
	sys        *system.System
	counters   *stats.Counters
	perf       *analysis.PerfAnalyzer
	queues     []queue
	components map[string]any
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{components: make(map[string]any)}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulation registers the engine, the caches, the home node, and
// every link queue of a simulation.
func (m *Monitor) RegisterSimulation(s *system.Simulation) {
	m.engine = s.Engine()
	m.sys = s.System()

	home := m.sys.Home()
	m.components[home.Name()] = home

	for _, c := range m.sys.Caches() {
		m.components[c.Name()] = c
		m.queues = append(m.queues, c.ToBottom(), c.ToTop(),
			home.ToCache(c.Name()))
	}
}

// RegisterCounters sets the statistics the monitor reports.
func (m *Monitor) RegisterCounters(c *stats.Counters) {
	m.counters = c
}

// RegisterPerfAnalyzer sets the analyzer that reports link traffic.
func (m *Monitor) RegisterPerfAnalyzer(p *analysis.PerfAnalyzer) {
	m.perf = p
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CreateProgressBarFunc creates a progress bar that asks source for the
// number of finished items.
func (m *Monitor) CreateProgressBarFunc(
	name string,
	total uint64,
	source func() uint64,
) *ProgressBar {
	bar := m.CreateProgressBar(name, total)
	bar.source = source

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) newRouter() *mux.Router {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/lines/{name}", m.listLines)
	r.HandleFunc("/api/home/{addr}", m.homeEntry)
	r.HandleFunc("/api/counters", m.listCounters)
	r.HandleFunc("/api/traffic", m.listTraffic)
	r.HandleFunc("/api/hangdetector/queues", m.hangDetectorQueues)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	http.Handle("/", m.newRouter())

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, nil)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.engine.Now())
}

func (m *Monitor) componentNames() []string {
	names := make([]string, 0, len(m.components))
	for name := range m.components {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.componentNames())
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component, ok := m.components[name]
	if !ok {
		notFound(w, "Component not found")
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type lineRsp struct {
	Addr   string `json:"addr"`
	State  string `json:"state"`
	Data   string `json:"data"`
	Locked bool   `json:"locked"`
}

func (m *Monitor) listLines(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, c := range m.sys.Caches() {
		if c.Name() != name {
			continue
		}

		rsp := []lineRsp{}
		for _, l := range c.Lines() {
			rsp = append(rsp, lineRsp{
				Addr:   fmt.Sprintf("0x%x", l.BaseAddr),
				State:  l.State.String(),
				Data:   hex.EncodeToString(l.Data),
				Locked: l.IsLocked(),
			})
		}

		sort.Slice(rsp, func(i, j int) bool { return rsp[i].Addr < rsp[j].Addr })

		writeJSON(w, rsp)

		return
	}

	notFound(w, "Cache not found")
}

type homeRsp struct {
	Addr    string   `json:"addr"`
	Owner   string   `json:"owner"`
	Sharers []string `json:"sharers"`
	Busy    bool     `json:"busy"`
	Memory  string   `json:"memory"`
}

func (m *Monitor) homeEntry(w http.ResponseWriter, r *http.Request) {
	addr, err := strconv.ParseUint(mux.Vars(r)["addr"], 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	home := m.sys.Home()
	sharers := home.Sharers(addr)

	if sharers == nil {
		sharers = []string{}
	}

	writeJSON(w, homeRsp{
		Addr:    fmt.Sprintf("0x%x", addr),
		Owner:   home.Owner(addr),
		Sharers: sharers,
		Busy:    home.IsBusy(addr),
		Memory:  hex.EncodeToString(home.Memory(addr)),
	})
}

func (m *Monitor) listCounters(w http.ResponseWriter, _ *http.Request) {
	if m.counters == nil {
		writeJSON(w, []stats.Count{})
		return
	}

	counts := m.counters.Snapshot().Counts
	if counts == nil {
		counts = []stats.Count{}
	}

	writeJSON(w, counts)
}

func (m *Monitor) listTraffic(w http.ResponseWriter, _ *http.Request) {
	if m.perf == nil {
		writeJSON(w, []analysis.LinkTraffic{})
		return
	}

	writeJSON(w, m.perf.Traffic())
}

func (m *Monitor) hangDetectorQueues(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := m.queuesParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	fmt.Fprintf(w, "[")

	for i, q := range m.sortAndSelectQueues(limit, offset) {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "{\"queue\":%q,\"level\":%d}", q.Name(), q.Len())
	}

	fmt.Fprint(w, "]")
}

func (*Monitor) queuesParseParams(r *http.Request) (limit, offset int, err error) {
	parse := func(key string) (int, error) {
		str := r.URL.Query().Get(key)
		if str == "" {
			return 0, nil
		}

		n, err := strconv.Atoi(str)
		if err == nil && n < 0 {
			err = errors.New(key + " must not be negative")
		}

		return n, err
	}

	limit, err = parse("limit")
	if err != nil {
		return 0, 0, err
	}

	offset, err = parse("offset")
	if err != nil {
		return 0, 0, err
	}

	return limit, offset, nil
}

// sortAndSelectQueues orders the queues by level, fullest first. A zero
// limit selects every queue after offset.
func (m *Monitor) sortAndSelectQueues(limit, offset int) []queue {
	sorted := make([]queue, len(m.queues))
	copy(sorted, m.queues)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Len() > sorted[j].Len()
	})

	if offset > len(sorted) {
		offset = len(sorted)
	}

	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sorted[offset:end]
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	for _, b := range m.progressBars {
		b.refresh()
	}

	writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func notFound(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte(msg))
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
