package loop

import "fmt"

// A ModeError reports a call to an operation that only exists in the
// superseded per-loop-clock scheduling model. Such calls always fail fast
// rather than silently degrade.
type ModeError struct {
	Op string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf(
		"%s is not supported under shared-clock scheduling", e.Op)
}

// A ThreadError reports an operation invoked from a goroutine that is not
// allowed to perform it.
type ThreadError struct {
	Reason string
}

func (e *ThreadError) Error() string {
	return e.Reason
}

// unsupportedInMode fails fast for legacy scheduler operations.
func unsupportedInMode(op string) {
	panic(&ModeError{Op: op})
}
