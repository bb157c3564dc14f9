package loop

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DispatchLogger", func() {
	BeforeEach(func() {
		GetClock().Reset()
	})

	AfterEach(func() {
		ResetAll()
		GetClock().Reset()
	})

	It("should log every dispatched message", func() {
		worker := NewLoop("worker", true)

		var buf bytes.Buffer
		worker.AcceptHook(NewDispatchLogger(log.New(&buf, "", 0)))

		msg := NewMessage(taskDispatcher{}, func() {}, 0)
		worker.Enqueue(msg)
		worker.Idle()

		Expect(buf.String()).To(ContainSubstring(msg.ID))
		Expect(buf.String()).To(ContainSubstring("worker"))
	})
})
