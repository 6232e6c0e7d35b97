// Package monitoring turns a simulation into a small HTTP server for
// external inspection. The monitor only reads between-step state exposed by
// the simulation API and never drives the simulation itself.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	// Enable profiling.
	_ "net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"

	"github.com/romain1189/quartz/sim"
)

// Monitor exposes the state of registered simulations over HTTP.
type Monitor struct {
	simulations []*sim.Simulation
	portNumber  int
	openBrowser bool
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced with a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the status page once the server starts.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterSimulation registers a simulation to be monitored.
func (m *Monitor) RegisterSimulation(s *sim.Simulation) {
	m.simulations = append(m.simulations, s)
}

// StartServer starts the monitoring server in its own goroutine and returns
// the address it listens on.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", m.handleStatus)
	r.HandleFunc("/api/resources", m.handleResources)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	addr := fmt.Sprintf("localhost:%d", m.portNumber)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		panic(err)
	}

	actual := listener.Addr().String()
	logrus.WithField("addr", actual).Info("monitoring server started")

	go func() {
		err := http.Serve(listener, m.logRequests(r))
		if err != nil {
			logrus.WithError(err).Error("monitoring server stopped")
		}
	}()

	if m.openBrowser {
		_ = browser.OpenURL("http://" + actual + "/api/status")
	}

	return actual
}

func (m *Monitor) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("monitor request")

		next.ServeHTTP(w, r)
	})
}

// simulationStatus is the JSON shape of one monitored simulation.
type simulationStatus struct {
	ID          string              `json:"id"`
	Model       string              `json:"model"`
	VirtualTime float64             `json:"virtual_time"`
	ElapsedSecs float64             `json:"elapsed_secs"`
	Done        bool                `json:"done"`
	Aborted     bool                `json:"aborted"`
	Stats       sim.TransitionStats `json:"transition_stats"`
}

func (m *Monitor) handleStatus(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]simulationStatus, 0, len(m.simulations))

	for _, s := range m.simulations {
		statuses = append(statuses, simulationStatus{
			ID:          s.ID(),
			Model:       s.Model().Name(),
			VirtualTime: s.VirtualTime().Seconds(),
			ElapsedSecs: s.ElapsedSeconds(),
			Done:        s.Done(),
			Aborted:     s.Aborted(),
			Stats:       s.TransitionStats(),
		})
	}

	writeJSON(w, statuses)
}

// resourceStatus reports the process footprint of the simulation host.
type resourceStatus struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

func (m *Monitor) handleResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpu, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceStatus{
		CPUPercent: cpu,
		RSSBytes:   memInfo.RSS,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
