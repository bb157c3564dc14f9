package loop

import "log"

// An idler coordinates a single drain-to-idle request with the goroutine
// that owns the target queue. The requester only ever waits on the done
// signal; queue internals are touched exclusively by the draining goroutine,
// which is what makes the cross-goroutine handoff safe without extra
// locking.
type idler struct {
	loop *Loop
	done chan struct{}
}

func newIdler(l *Loop) *idler {
	return &idler{
		loop: l,
		done: make(chan struct{}),
	}
}

// drain dispatches ready messages until the queue is idle, then fires the
// completion signal exactly once. Idleness is re-checked after every
// dispatch, so a dispatch that enqueues more currently-due work extends the
// same drain pass.
func (i *idler) drain() {
	q := i.loop.queue

	for !q.IsIdle() {
		msg := q.Next()
		GetClock().SetTime(msg.When())
		i.loop.dispatch(msg)
		msg.recycle()
	}

	close(i.done)
}

// wait blocks the requesting goroutine until the drain completes. The loop
// quitting mid-wait ends the wait with a warning; that abort is best-effort
// cleanup, not an error.
func (i *idler) wait() {
	select {
	case <-i.done:
	case <-i.loop.quitChan:
		log.Printf("loop %s: wait for idle ended by quit", i.loop.name)
	}
}
