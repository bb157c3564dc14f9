package testenv

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/loopsim/loopsim/monitoring"
	"github.com/loopsim/loopsim/tracerecording"
)

// Builder can be used to build a test environment.
type Builder struct {
	monitorOn     bool
	monitorPort   int
	traceOn       bool
	traceFileName string
}

// MakeBuilder creates a new builder with defaults taken from the
// environment. A .env file next to the test binary is honored; the variables
// LOOPSIM_MONITOR_PORT and LOOPSIM_TRACE_FILE pre-populate the monitoring
// and tracing options.
func MakeBuilder() Builder {
	_ = godotenv.Load()

	b := Builder{}

	if port, err := strconv.Atoi(os.Getenv("LOOPSIM_MONITOR_PORT")); err == nil {
		b.monitorOn = true
		b.monitorPort = port
	}

	if name := os.Getenv("LOOPSIM_TRACE_FILE"); name != "" {
		b.traceOn = true
		b.traceFileName = name
	}

	return b
}

// WithMonitoring enables the monitoring server on the given port. Port 0
// picks a free port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port
	return b
}

// WithoutMonitoring disables the monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	b.monitorPort = 0
	return b
}

// WithTraceFileName enables dispatch tracing into the named SQLite file.
func (b Builder) WithTraceFileName(name string) Builder {
	b.traceOn = true
	b.traceFileName = name
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the test environment.
func (b Builder) Build() *Env {
	b.parametersMustBeValid()

	e := &Env{}

	e.main = prepareOrAdoptMainLoop()

	if b.traceOn {
		e.recorder = tracerecording.New(b.traceFileName)
		e.tracer = tracerecording.NewDispatchTracer(e.recorder)
		e.main.AcceptHook(e.tracer)
	}

	if b.monitorOn {
		e.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			e.monitor.WithPortNumber(b.monitorPort)
		}
		e.monitor.StartServer()
	}

	return e
}
