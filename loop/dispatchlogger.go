package loop

import (
	"log"
)

// DispatchLogger is a hook that prints information about every message that
// dispatches.
type DispatchLogger struct {
	LogHookBase
}

// NewDispatchLogger returns a new DispatchLogger which will write into the
// given logger
func NewDispatchLogger(logger *log.Logger) *DispatchLogger {
	h := new(DispatchLogger)
	h.Logger = logger
	return h
}

// Func writes the message information into the logger
func (h *DispatchLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeDispatch {
		return
	}

	msg, ok := ctx.Item.(*Message)
	if !ok {
		return
	}

	l, ok := ctx.Domain.(*Loop)
	if ok {
		h.Logger.Printf("%s, msg %s -> %s", msg.When(), msg.ID, l.Name())
	} else {
		h.Logger.Printf("%s, msg %s", msg.When(), msg.ID)
	}
}
