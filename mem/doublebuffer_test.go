package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/buiminhnhut114/edge-npu-design-sub000/mem"
)

var _ = Describe("DoubleBuffer", func() {
	var db *mem.DoubleBuffer

	BeforeEach(func() {
		db = mem.NewDoubleBuffer("act", 256, 4)
	})

	It("should keep writes to the write half invisible to the read half", func() {
		db.WriteBank().Write(0, []byte{1, 2, 3, 4})
		db.Tick()

		db.ReadBank().ReadEnable(0)
		db.Tick()

		Expect(db.ReadBank().Valid()).To(BeTrue())
		Expect(db.ReadBank().Data()).To(Equal([]byte{0, 0, 0, 0}))
	})

	It("should expose written data through the read half after a swap", func() {
		db.WriteBank().Write(0, []byte{1, 2, 3, 4})
		db.Tick()

		Expect(db.Swap()).To(Succeed())

		db.ReadBank().ReadEnable(0)
		db.Tick()

		Expect(db.ReadBank().Data()).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should refuse to swap while the read half has a read in flight", func() {
		db.ReadBank().ReadEnable(0)

		Expect(db.Swap()).To(MatchError(mem.ErrHalfBusy))

		db.Tick() // data latches
		Expect(db.Swap()).To(MatchError(mem.ErrHalfBusy))

		db.Tick() // data consumed
		Expect(db.Swap()).To(Succeed())
	})

	It("should allow concurrent DMA writes and compute reads", func() {
		db.ReadBank().Poke(0, []byte{9, 9, 9, 9})

		// Compute reads half A while the transfer path writes half B in
		// the same cycle.
		db.ReadBank().ReadEnable(0)
		db.WriteBank().Write(0, []byte{1, 1, 1, 1})
		db.Tick()

		Expect(db.ReadBank().Data()).To(Equal([]byte{9, 9, 9, 9}))
		Expect(db.WriteBank().Peek(0, 4)).To(Equal([]byte{1, 1, 1, 1}))
	})
})
