package tracerecording

import (
	"sync/atomic"

	"github.com/loopsim/loopsim/loop"
)

// DispatchTableName is the table that DispatchTracer records into.
const DispatchTableName = "dispatches"

// A DispatchEntry is one recorded message dispatch.
type DispatchEntry struct {
	SerialNumber uint64
	LoopName     string
	MsgID        string
	WhenMS       int64
	ClockMS      int64
}

// A DispatchTracer is a hook that records every dispatched message of the
// loops it is attached to.
type DispatchTracer struct {
	recorder TraceRecorder
	serial   atomic.Uint64
}

// NewDispatchTracer creates a tracer writing into recorder.
func NewDispatchTracer(recorder TraceRecorder) *DispatchTracer {
	t := &DispatchTracer{recorder: recorder}
	t.recorder.CreateTable(DispatchTableName, DispatchEntry{})
	return t
}

// Func records the message after it dispatched.
func (t *DispatchTracer) Func(ctx loop.HookCtx) {
	if ctx.Pos != loop.HookPosAfterDispatch {
		return
	}

	msg, ok := ctx.Item.(*loop.Message)
	if !ok {
		return
	}

	loopName := ""
	if l, ok := ctx.Domain.(*loop.Loop); ok {
		loopName = l.Name()
	}

	t.recorder.InsertData(DispatchTableName, DispatchEntry{
		SerialNumber: t.serial.Add(1),
		LoopName:     loopName,
		MsgID:        msg.ID,
		WhenMS:       msg.When().Milliseconds(),
		ClockMS:      loop.GetClock().Now().Milliseconds(),
	})
}
