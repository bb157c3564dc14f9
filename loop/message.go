package loop

import (
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// A Dispatcher is the target of a Message. The core never inspects what a
// dispatch does; it only decides when the dispatch happens.
type Dispatcher interface {
	// Dispatch runs the message. Ownership of the message transfers to the
	// dispatch call.
	Dispatch(msg *Message)
}

// A Message is a unit of pending work. It is owned exclusively by the
// MessageQueue that holds it until it is dispatched or discarded on reset.
type Message struct {
	ID      string
	Target  Dispatcher
	Payload any

	when  time.Duration
	seq   uint64
	front bool
}

// NewMessage creates a message that dispatches to target at the absolute
// simulated instant when.
func NewMessage(target Dispatcher, payload any, when time.Duration) *Message {
	m := new(Message)
	m.ID = nextMessageID()
	m.Target = target
	m.Payload = payload
	m.when = when
	return m
}

// Message IDs are sequential by default, so that two runs of the same test
// produce identical traces.
var messageIDs struct {
	random  atomic.Bool
	started atomic.Bool
	counter atomic.Uint64
}

// UseRandomMessageIDs makes new messages carry globally unique xid IDs
// instead of the sequential default, for traces that are merged across
// processes. It must be called before the first message is created.
func UseRandomMessageIDs() {
	if messageIDs.started.Load() {
		log.Panic("cannot change the message ID format after messages exist")
	}

	messageIDs.random.Store(true)
}

func nextMessageID() string {
	messageIDs.started.Store(true)

	if messageIDs.random.Load() {
		return xid.New().String()
	}

	return strconv.FormatUint(messageIDs.counter.Add(1), 10)
}

// When returns the scheduled execution instant of the message.
func (m *Message) When() time.Duration {
	return m.when
}

// before reports whether m must dispatch ahead of other. Front-inserted
// messages come first, ordered among themselves by admission; everything
// else orders by scheduled time, with admission order as the tie-break.
func (m *Message) before(other *Message) bool {
	if m.front != other.front {
		return m.front
	}
	if m.front || m.when == other.when {
		return m.seq < other.seq
	}
	return m.when < other.when
}

// recycle severs the message from its payload once ownership has transferred
// out of the queue.
func (m *Message) recycle() {
	m.Target = nil
	m.Payload = nil
}

// taskDispatcher runs func() payloads posted through Loop.Post and
// Loop.PostAtFront.
type taskDispatcher struct{}

func (taskDispatcher) Dispatch(msg *Message) {
	if task, ok := msg.Payload.(func()); ok {
		task()
	}
}
