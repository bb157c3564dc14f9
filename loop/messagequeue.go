package loop

import (
	"container/heap"
	"log"
	"sync"
	"time"
)

// A MessageQueue is the time-ordered collection of pending messages for
// exactly one Loop. Messages leave the queue in non-decreasing
// (time, admission) order, except that front-inserted messages leave first.
type MessageQueue struct {
	sync.Mutex

	messages messageHeap
	nextSeq  uint64

	quitAllowed bool
	quit        bool
}

// NewMessageQueue creates an empty queue. quitAllowed is fixed for the
// lifetime of the queue and decides whether teardown may discard it.
func NewMessageQueue(quitAllowed bool) *MessageQueue {
	q := new(MessageQueue)
	q.messages = make(messageHeap, 0)
	heap.Init(&q.messages)
	q.quitAllowed = quitAllowed
	return q
}

// Enqueue admits msg in time-then-admission order. It reports whether the
// message was accepted; a quit queue rejects everything.
func (q *MessageQueue) Enqueue(msg *Message) bool {
	q.Lock()
	defer q.Unlock()

	if q.quit {
		return false
	}

	msg.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.messages, msg)

	return true
}

// EnqueueAtFront admits msg ahead of every pending message regardless of its
// scheduled time, but after earlier front-inserted ones.
func (q *MessageQueue) EnqueueAtFront(msg *Message) bool {
	msg.front = true
	msg.when = 0
	return q.Enqueue(msg)
}

// Poll removes and returns the earliest message if its scheduled time has
// arrived, otherwise nil. It never blocks and never advances the clock.
func (q *MessageQueue) Poll() *Message {
	q.Lock()
	defer q.Unlock()

	if !q.headReady() {
		return nil
	}

	return heap.Pop(&q.messages).(*Message)
}

// Next removes and returns the earliest ready message. The caller must have
// already established that the queue is not idle.
func (q *MessageQueue) Next() *Message {
	q.Lock()
	defer q.Unlock()

	if !q.headReady() {
		log.Panic("Next called on an idle message queue")
	}

	return heap.Pop(&q.messages).(*Message)
}

// headReady reports whether the earliest pending message is due at the
// current clock. Must be called with the queue locked.
func (q *MessageQueue) headReady() bool {
	if q.messages.Len() == 0 {
		return false
	}

	head := q.messages[0]

	return head.front || head.when <= GetClock().Now()
}

// IsIdle reports whether no pending message is due at the current clock.
// Future-scheduled messages do not count against idleness; idling drains
// only currently-due work without advancing time.
func (q *MessageQueue) IsIdle() bool {
	q.Lock()
	defer q.Unlock()
	return !q.headReady()
}

// IsQuitAllowed reports the teardown policy fixed at construction.
func (q *MessageQueue) IsQuitAllowed() bool {
	return q.quitAllowed
}

// Len returns the number of pending messages.
func (q *MessageQueue) Len() int {
	q.Lock()
	defer q.Unlock()
	return q.messages.Len()
}

// Reset discards every pending message while keeping the queue alive and
// attached to its loop.
func (q *MessageQueue) Reset() {
	q.Lock()
	defer q.Unlock()
	q.messages = q.messages[:0]
}

// NextScheduledTime returns the scheduled instant of the earliest pending
// message, or zero when the queue is empty.
func (q *MessageQueue) NextScheduledTime() time.Duration {
	q.Lock()
	defer q.Unlock()

	if q.messages.Len() == 0 {
		return 0
	}

	return q.messages[0].when
}

// LastScheduledTime returns the scheduled instant of the latest pending
// message, the queue's tail, or zero when the queue is empty.
func (q *MessageQueue) LastScheduledTime() time.Duration {
	q.Lock()
	defer q.Unlock()

	var last time.Duration
	for _, msg := range q.messages {
		if msg.when > last {
			last = msg.when
		}
	}

	return last
}

// markQuit permanently closes the queue. Pending messages are discarded and
// later enqueues are rejected.
func (q *MessageQueue) markQuit() {
	q.Lock()
	defer q.Unlock()
	q.quit = true
	q.messages = q.messages[:0]
}

type messageHeap []*Message

// Len returns the length of the message heap
func (h messageHeap) Len() int {
	return len(h)
}

// Less determines the order between two messages. Less returns true if the
// i-th message must dispatch before the j-th message.
func (h messageHeap) Less(i, j int) bool {
	return h[i].before(h[j])
}

// Swap changes the position of two messages in the heap
func (h messageHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds a message into the heap
func (h *messageHeap) Push(x interface{}) {
	msg := x.(*Message)
	*h = append(*h, msg)
}

// Pop removes and returns the next message to dispatch
func (h *messageHeap) Pop() interface{} {
	old := *h
	n := len(old)
	msg := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return msg
}
