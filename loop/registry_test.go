package loop

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoopRegistry", func() {
	BeforeEach(func() {
		GetClock().Reset()
	})

	AfterEach(func() {
		ResetAll()
		GetClock().Reset()
	})

	It("should track loops from construction", func() {
		worker := NewLoop("worker", true)

		Expect(Loops()).To(ContainElement(worker))
	})

	It("should refuse to prepare a second main loop", func() {
		ensureMainLoop()

		Expect(func() { PrepareMainLoop() }).To(Panic())
	})

	It("should quit quit-allowed loops at teardown", func() {
		worker := NewLoop("worker", true)
		worker.Post(func() {}, 10*time.Millisecond)

		ResetAll()

		Expect(Loops()).NotTo(ContainElement(worker))
		Expect(worker.Post(func() {}, 0)).To(BeFalse())
	})

	It("should clear and keep non-quit-allowed loops at teardown", func() {
		main := ensureMainLoop()
		main.Post(func() {}, 10*time.Millisecond)

		ResetAll()

		Expect(Loops()).To(ContainElement(main))
		Expect(main.Queue().Len()).To(Equal(0))

		ran := false
		Expect(main.Post(func() { ran = true }, 0)).To(BeTrue())
		main.Idle()
		Expect(ran).To(BeTrue())
	})

	It("should not double-process loops across teardowns", func() {
		main := ensureMainLoop()
		worker := NewLoop("worker", true)

		ResetAll()
		ResetAll()

		Expect(Loops()).To(ConsistOf(main))
		Expect(worker.Post(func() {}, 0)).To(BeFalse())
	})
})
