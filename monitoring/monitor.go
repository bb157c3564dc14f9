// Package monitoring exposes the state of the simulated loops over HTTP, so
// that a hanging or misbehaving test process can be inspected from outside.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/loopsim/loopsim/loop"
)

// Monitor turns the current test process into a small web server that
// reports the virtual clock and every tracked loop.
type Monitor struct {
	portNumber int
	listener   net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
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

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/advance/{ms}", m.advance)
	r.HandleFunc("/api/list_loops", m.listLoops)
	r.HandleFunc("/api/loop/{name}", m.loopDetails)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)
	m.listener = listener

	fmt.Fprintf(
		os.Stderr,
		"Monitoring loops with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err := http.Serve(listener, r)
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "monitor server stopped: %s\n", err)
		}
	}()
}

// Port returns the port the monitor is listening on.
func (m *Monitor) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

// StopServer stops serving monitoring requests.
func (m *Monitor) StopServer() {
	if m.listener != nil {
		m.listener.Close()
	}
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	rsp := map[string]int64{
		"now_ms": loop.GetClock().Now().Milliseconds(),
	}

	sendJSON(w, rsp)
}

func (m *Monitor) advance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ms, err := strconv.ParseInt(vars["ms"], 10, 64)
	if err != nil || ms < 0 {
		http.Error(w, "invalid advance duration", http.StatusBadRequest)
		return
	}

	loop.GetClock().AdvanceBy(time.Duration(ms) * time.Millisecond)

	m.now(w, r)
}

type loopStatus struct {
	Name        string `json:"name"`
	Main        bool   `json:"main"`
	QuitAllowed bool   `json:"quit_allowed"`
	Idle        bool   `json:"idle"`
	Pending     int    `json:"pending"`
	NextMS      int64  `json:"next_scheduled_ms"`
	LastMS      int64  `json:"last_scheduled_ms"`
}

func statusOf(l *loop.Loop) loopStatus {
	return loopStatus{
		Name:        l.Name(),
		Main:        l.IsMain(),
		QuitAllowed: l.Queue().IsQuitAllowed(),
		Idle:        l.IsIdle(),
		Pending:     l.Queue().Len(),
		NextMS:      l.NextScheduledTime().Milliseconds(),
		LastMS:      l.LastScheduledTime().Milliseconds(),
	}
}

func (m *Monitor) listLoops(w http.ResponseWriter, _ *http.Request) {
	loops := loop.Loops()

	statuses := make([]loopStatus, 0, len(loops))
	for _, l := range loops {
		statuses = append(statuses, statusOf(l))
	}

	sendJSON(w, statuses)
}

func (m *Monitor) loopDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	for _, l := range loop.Loops() {
		if l.Name() == name {
			sendJSON(w, statusOf(l))
			return
		}
	}

	http.Error(w, "loop "+name+" not found", http.StatusNotFound)
}

func sendJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(payload)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
