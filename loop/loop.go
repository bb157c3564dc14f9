// Package loop provides a deterministic, goroutine-affine event-loop
// simulator. Each Loop owns one message queue and one dispatch goroutine,
// all loops share a single virtual clock, and nothing runs until a driver
// forces execution through Idle, IdleFor, or RunOneTask.
package loop

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"
)

// A Loop owns one MessageQueue and the goroutine bound to it at
// construction. Loops are permanently paused: posted messages sit in the
// queue until a driver drains them; there is no free-dispatch state.
type Loop struct {
	HookableBase

	name  string
	queue *MessageQueue

	dispatchGoroutineID atomic.Uint64
	handoff             chan func()
	quitChan            chan struct{}
}

// NewLoop creates a loop named name, starts its dispatch goroutine, and
// tracks it for teardown. quitAllowed decides whether teardown discards the
// loop or clears its queue for reuse.
func NewLoop(name string, quitAllowed bool) *Loop {
	l := newLoop(name, quitAllowed)

	started := make(chan struct{})
	go l.run(started)
	<-started

	registerLoop(l)

	return l
}

func newLoop(name string, quitAllowed bool) *Loop {
	l := new(Loop)
	l.name = name
	l.queue = NewMessageQueue(quitAllowed)
	l.handoff = make(chan func())
	l.quitChan = make(chan struct{})
	return l
}

// run is the loop's dispatch goroutine, pinned to one OS thread to match the
// one-thread-per-loop platform model.
func (l *Loop) run(started chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.dispatchGoroutineID.Store(getGoroutineID())
	close(started)

	for {
		select {
		case task := <-l.handoff:
			task()
		case <-l.quitChan:
			l.dispatchGoroutineID.Store(0)
			return
		}
	}
}

// Name returns the name the loop was created with.
func (l *Loop) Name() string {
	return l.name
}

// Queue returns the loop's message queue.
func (l *Loop) Queue() *MessageQueue {
	return l.queue
}

// IsMain reports whether this is the designated main loop.
func (l *Loop) IsMain() bool {
	return MainLoop() == l
}

// onDispatchGoroutine reports whether the caller is running on the loop's
// own dispatch goroutine.
func (l *Loop) onDispatchGoroutine() bool {
	id := l.dispatchGoroutineID.Load()
	return id != 0 && id == getGoroutineID()
}

// BindToCurrentGoroutine makes the calling goroutine the owner of the main
// loop's dispatch duties. The main loop has no goroutine of its own: the
// goroutine driving the test plays that role, and a fresh test goroutine
// must claim it before touching the main loop. Rejected on any other loop.
func (l *Loop) BindToCurrentGoroutine() {
	if !l.IsMain() {
		panic(&ThreadError{
			Reason: "only the main loop can be rebound to a goroutine",
		})
	}

	l.dispatchGoroutineID.Store(getGoroutineID())
}

// Idle dispatches every message that is due at the current clock and returns
// once the queue is idle. Called from the loop's own goroutine it drains in
// place. Called from a foreign goroutine it hands the drain to the loop's
// goroutine and blocks until the drain completes. The main loop can only be
// idled from its own goroutine.
func (l *Loop) Idle() {
	idling := newIdler(l)

	if l.onDispatchGoroutine() {
		idling.drain()
		return
	}

	if l.IsMain() {
		panic(&ThreadError{
			Reason: "main loop can only be idled from its own goroutine",
		})
	}

	select {
	case l.handoff <- idling.drain:
	case <-l.quitChan:
		log.Printf("loop %s quit before the idle request could be handed off",
			l.name)
		return
	}

	idling.wait()
}

// IdleIfPaused drains like Idle. The loop is always paused, so the
// conditional form never skips.
func (l *Loop) IdleIfPaused() {
	l.Idle()
}

// IdleFor advances the shared clock by d, then drains everything that became
// due. Work that reschedules itself within the advanced horizon drains in
// the same pass; work scheduled beyond it stays pending.
func (l *Loop) IdleFor(d time.Duration) {
	GetClock().AdvanceBy(d)
	l.Idle()
}

// IsIdle reports whether the loop's queue has no message due at the current
// clock.
func (l *Loop) IsIdle() bool {
	return l.queue.IsIdle()
}

// RunOneTask dispatches at most one ready message, aligning the clock with
// that message's scheduled time first. It reports whether a message ran.
func (l *Loop) RunOneTask() bool {
	msg := l.queue.Poll()
	if msg == nil {
		return false
	}

	GetClock().SetTime(msg.When())
	l.dispatch(msg)
	msg.recycle()

	return true
}

// dispatch runs one message through the hook positions.
func (l *Loop) dispatch(msg *Message) {
	hookCtx := HookCtx{
		Domain: l,
		Pos:    HookPosBeforeDispatch,
		Item:   msg,
	}
	l.InvokeHook(hookCtx)

	msg.Target.Dispatch(msg)

	hookCtx.Pos = HookPosAfterDispatch
	l.InvokeHook(hookCtx)
}

// Post enqueues task to run after delay relative to the current clock. It
// reports whether the queue accepted the task.
func (l *Loop) Post(task func(), delay time.Duration) bool {
	msg := NewMessage(taskDispatcher{}, task, GetClock().Now()+delay)
	return l.queue.Enqueue(msg)
}

// PostAtFront enqueues task ahead of everything already pending, after
// earlier front-posted tasks.
func (l *Loop) PostAtFront(task func()) bool {
	msg := NewMessage(taskDispatcher{}, task, 0)
	return l.queue.EnqueueAtFront(msg)
}

// Enqueue admits a caller-constructed message bound to its own Dispatcher.
func (l *Loop) Enqueue(msg *Message) bool {
	return l.queue.Enqueue(msg)
}

// RunPaused runs task immediately and synchronously, bypassing queue order,
// then idles. Only the main loop supports it.
func (l *Loop) RunPaused(task func()) {
	if !l.IsMain() {
		panic(&ThreadError{Reason: "only the main loop can be paused"})
	}

	// the loop is always paused, so the task can run directly
	task()
	l.Idle()
}

// Pause confirms the loop is paused. Loops in this scheduling mode are
// permanently paused, so this is a no-op on the main loop and rejected
// elsewhere.
func (l *Loop) Pause() {
	if !l.IsMain() {
		panic(&ThreadError{Reason: "only the main loop can be paused"})
	}
}

// IsPaused always reports true; no free-dispatch state exists.
func (l *Loop) IsPaused() bool {
	return true
}

// SetPaused keeps the loop paused. Unpausing belongs to the legacy
// per-loop-clock model and fails fast.
func (l *Loop) SetPaused(paused bool) bool {
	if !paused {
		unsupportedInMode("SetPaused(false)")
	}
	return true
}

// NextScheduledTime returns the scheduled instant of the earliest pending
// message, or zero when nothing is pending.
func (l *Loop) NextScheduledTime() time.Duration {
	return l.queue.NextScheduledTime()
}

// LastScheduledTime returns the scheduled instant of the latest pending
// message, or zero when nothing is pending.
func (l *Loop) LastScheduledTime() time.Duration {
	return l.queue.LastScheduledTime()
}

// The operations below exist only in the superseded per-loop-clock model.
// Each fails fast with a ModeError instead of silently degrading.

// Quit is unsupported; loops are only quit through registry teardown.
func (l *Loop) Quit() {
	unsupportedInMode("Quit")
}

// QuitSafely is unsupported; loops are only quit through registry teardown.
func (l *Loop) QuitSafely() {
	unsupportedInMode("QuitSafely")
}

// HasQuit is unsupported; quit status is an internal teardown concern.
func (l *Loop) HasQuit() bool {
	unsupportedInMode("HasQuit")
	return false
}

// Unpause is unsupported; loops never leave the paused state.
func (l *Loop) Unpause() {
	unsupportedInMode("Unpause")
}

// IdleConstantly is unsupported; draining is always caller-paced.
func (l *Loop) IdleConstantly(constantly bool) {
	unsupportedInMode("IdleConstantly")
}

// ResetScheduler is unsupported; there is no per-loop clock to reset.
func (l *Loop) ResetScheduler() {
	unsupportedInMode("ResetScheduler")
}

// Reset is unsupported; state between tests is handled by registry teardown.
func (l *Loop) Reset() {
	unsupportedInMode("Reset")
}

// Scheduler is unsupported; there is no legacy scheduler handle.
func (l *Loop) Scheduler() interface{} {
	unsupportedInMode("Scheduler")
	return nil
}

// quitForTeardown permanently stops the loop. Only registry teardown calls
// it.
func (l *Loop) quitForTeardown() {
	l.queue.markQuit()
	close(l.quitChan)
}
