package loop

import (
	"log"
	"sync"
	"weak"
)

// The registry tracks every live loop so that a test boundary can tear all
// of them down. References are non-owning: a loop abandoned by its creator
// can be collected independently of the registry, and liveness is checked
// explicitly at teardown.
type loopRegistry struct {
	sync.Mutex
	loops []weak.Pointer[Loop]
	main  *Loop
}

var registry = &loopRegistry{}

func registerLoop(l *Loop) {
	registry.Lock()
	defer registry.Unlock()
	registry.loops = append(registry.loops, weak.Make(l))
}

// PrepareMainLoop creates and designates the process's main loop, bound to
// the calling goroutine: the goroutine driving the test stands in for the
// platform's main thread. It can be called once; the main loop is never
// quit-allowed, so it survives every teardown with a cleared queue.
func PrepareMainLoop() *Loop {
	if MainLoop() != nil {
		log.Panic("main loop is already prepared")
	}

	l := newLoop("main", false)
	l.dispatchGoroutineID.Store(getGoroutineID())
	registerLoop(l)

	registry.Lock()
	registry.main = l
	registry.Unlock()

	return l
}

// MainLoop returns the designated main loop, or nil before PrepareMainLoop
// is called.
func MainLoop() *Loop {
	registry.Lock()
	defer registry.Unlock()
	return registry.main
}

// Loops returns a snapshot of every live tracked loop.
func Loops() []*Loop {
	registry.Lock()
	defer registry.Unlock()

	live := make([]*Loop, 0, len(registry.loops))
	for _, ref := range registry.loops {
		if l := ref.Value(); l != nil {
			live = append(live, l)
		}
	}

	return live
}

// ResetAll is the per-test teardown entry point. Quit-allowed loops are quit
// and dropped from tracking; every other live loop stays tracked and keeps
// running with an emptied queue, ready for the next test. Collected loops
// are dropped. A loop is never processed twice: teardown works on a snapshot
// taken under the registry lock.
func ResetAll() {
	registry.Lock()
	tracked := registry.loops
	registry.loops = nil
	registry.Unlock()

	kept := make([]weak.Pointer[Loop], 0, len(tracked))
	for _, ref := range tracked {
		l := ref.Value()
		if l == nil {
			continue
		}

		if l.queue.IsQuitAllowed() {
			l.quitForTeardown()
			continue
		}

		l.queue.Reset()
		kept = append(kept, ref)
	}

	registry.Lock()
	registry.loops = append(kept, registry.loops...)
	registry.Unlock()
}
