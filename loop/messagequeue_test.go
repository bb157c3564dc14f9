package loop

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("MessageQueue", func() {
	var (
		mockCtrl *gomock.Controller
		target   *MockDispatcher
		queue    *MessageQueue
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		target = NewMockDispatcher(mockCtrl)
		GetClock().Reset()
		queue = NewMessageQueue(true)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pop in time order regardless of admission order", func() {
		late := NewMessage(target, nil, 20*time.Millisecond)
		early := NewMessage(target, nil, 10*time.Millisecond)

		queue.Enqueue(late)
		queue.Enqueue(early)
		GetClock().AdvanceBy(30 * time.Millisecond)

		Expect(queue.Next()).To(BeIdenticalTo(early))
		Expect(queue.Next()).To(BeIdenticalTo(late))
	})

	It("should keep admission order among equal-time messages", func() {
		first := NewMessage(target, nil, 10*time.Millisecond)
		second := NewMessage(target, nil, 10*time.Millisecond)

		queue.Enqueue(first)
		queue.Enqueue(second)
		GetClock().AdvanceBy(10 * time.Millisecond)

		Expect(queue.Next()).To(BeIdenticalTo(first))
		Expect(queue.Next()).To(BeIdenticalTo(second))
	})

	It("should pop front-inserted messages before everything else", func() {
		due := NewMessage(target, nil, 0)
		frontA := NewMessage(target, nil, 5*time.Millisecond)
		frontB := NewMessage(target, nil, 5*time.Millisecond)

		queue.Enqueue(due)
		queue.EnqueueAtFront(frontA)
		queue.EnqueueAtFront(frontB)

		Expect(queue.Next()).To(BeIdenticalTo(frontA))
		Expect(queue.Next()).To(BeIdenticalTo(frontB))
		Expect(queue.Next()).To(BeIdenticalTo(due))
	})

	It("should not consider future messages when polling", func() {
		future := NewMessage(target, nil, 10*time.Millisecond)
		queue.Enqueue(future)

		Expect(queue.Poll()).To(BeNil())

		GetClock().AdvanceBy(10 * time.Millisecond)

		Expect(queue.Poll()).To(BeIdenticalTo(future))
	})

	It("should be idle when only future work is pending", func() {
		Expect(queue.IsIdle()).To(BeTrue())

		queue.Enqueue(NewMessage(target, nil, 10*time.Millisecond))
		Expect(queue.IsIdle()).To(BeTrue())

		GetClock().AdvanceBy(9 * time.Millisecond)
		Expect(queue.IsIdle()).To(BeTrue())

		GetClock().AdvanceBy(1 * time.Millisecond)
		Expect(queue.IsIdle()).To(BeFalse())
	})

	It("should panic when Next is called on an idle queue", func() {
		Expect(func() { queue.Next() }).To(Panic())
	})

	It("should report the earliest and latest pending times", func() {
		Expect(queue.NextScheduledTime()).To(Equal(time.Duration(0)))
		Expect(queue.LastScheduledTime()).To(Equal(time.Duration(0)))

		queue.Enqueue(NewMessage(target, nil, 20*time.Millisecond))
		queue.Enqueue(NewMessage(target, nil, 10*time.Millisecond))

		Expect(queue.NextScheduledTime()).To(Equal(10 * time.Millisecond))
		Expect(queue.LastScheduledTime()).To(Equal(20 * time.Millisecond))

		queue.Enqueue(NewMessage(target, nil, 40*time.Millisecond))

		Expect(queue.NextScheduledTime()).To(Equal(10 * time.Millisecond))
		Expect(queue.LastScheduledTime()).To(Equal(40 * time.Millisecond))
	})

	It("should keep reporting the queue tail after earlier work dispatches", func() {
		queue.Enqueue(NewMessage(target, nil, 50*time.Millisecond))
		queue.Enqueue(NewMessage(target, nil, 10*time.Millisecond))

		GetClock().AdvanceBy(10 * time.Millisecond)
		Expect(queue.Poll().When()).To(Equal(10 * time.Millisecond))

		Expect(queue.NextScheduledTime()).To(Equal(50 * time.Millisecond))
		Expect(queue.LastScheduledTime()).To(Equal(50 * time.Millisecond))
	})

	It("should discard pending messages on reset but stay usable", func() {
		queue.Enqueue(NewMessage(target, nil, 0))
		queue.Enqueue(NewMessage(target, nil, 10*time.Millisecond))

		queue.Reset()

		Expect(queue.Len()).To(Equal(0))
		Expect(queue.IsIdle()).To(BeTrue())
		Expect(queue.Enqueue(NewMessage(target, nil, 0))).To(BeTrue())
		Expect(queue.Len()).To(Equal(1))
	})

	It("should reject messages after quit", func() {
		queue.markQuit()

		Expect(queue.Enqueue(NewMessage(target, nil, 0))).To(BeFalse())
		Expect(queue.Len()).To(Equal(0))
	})

	It("should keep the quit-allowed flag from construction", func() {
		Expect(NewMessageQueue(true).IsQuitAllowed()).To(BeTrue())
		Expect(NewMessageQueue(false).IsQuitAllowed()).To(BeFalse())
	})
})
