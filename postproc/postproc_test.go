package postproc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/buiminhnhut114/edge-npu-design-sub000/arith"
	"github.com/buiminhnhut114/edge-npu-design-sub000/postproc"
)

var _ = Describe("ActivationUnit", func() {
	It("should delay valid_out by the pipeline depth", func() {
		u := postproc.NewActivationUnit(2)
		u.SetFunc(arith.ActReLU)

		u.Push(-5)
		u.Tick()
		_, ok := u.Out()
		Expect(ok).To(BeFalse())

		u.Tick()
		v, ok := u.Out()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int8(0)))
	})

	It("should accept one input per cycle and keep them ordered", func() {
		u := postproc.NewActivationUnit(2)
		u.SetFunc(arith.ActReLU)

		inputs := []int8{-1, 2, -3, 4}
		want := []int8{0, 2, 0, 4}
		var got []int8

		for i := 0; i < len(inputs)+2; i++ {
			if i < len(inputs) {
				u.Push(inputs[i])
			}
			u.Tick()
			if v, ok := u.Out(); ok {
				got = append(got, v)
			}
		}

		Expect(got).To(Equal(want))
		Expect(u.Busy()).To(BeFalse())
	})
})

var _ = Describe("PoolUnit", func() {
	feed := func(u *postproc.PoolUnit, values []int8) []int8 {
		var got []int8
		for i := 0; i < len(values)+4; i++ {
			if i < len(values) {
				u.Push(values[i])
			}
			u.Tick()
			if v, ok := u.Out(); ok {
				got = append(got, v)
			}
		}
		return got
	}

	It("should emit the maximum of a 2x2 window", func() {
		u := postproc.NewPoolUnit(1)
		u.Configure(2, false)

		Expect(feed(u, []int8{3, 1, 4, 2})).To(Equal([]int8{4}))
	})

	It("should emit the truncating average of a 2x2 window", func() {
		u := postproc.NewPoolUnit(1)
		u.Configure(2, true)

		// (3+1+4+2)/4 = 2 with integer division
		Expect(feed(u, []int8{3, 1, 4, 2})).To(Equal([]int8{2}))
	})

	It("should divide 3x3 windows by nine", func() {
		u := postproc.NewPoolUnit(1)
		u.Configure(3, true)

		// sum = 45, 45/9 = 5
		Expect(feed(u, []int8{1, 2, 3, 4, 5, 6, 7, 8, 9})).To(Equal([]int8{5}))
	})

	It("should handle negative maxima", func() {
		u := postproc.NewPoolUnit(1)
		u.Configure(2, false)

		Expect(feed(u, []int8{-3, -1, -4, -2})).To(Equal([]int8{-1}))
	})

	It("should emit one result per full window back to back", func() {
		u := postproc.NewPoolUnit(1)
		u.Configure(2, false)

		Expect(feed(u, []int8{1, 2, 3, 4, 8, 7, 6, 5})).To(Equal([]int8{4, 8}))
	})
})

var _ = Describe("EltwiseUnit", func() {
	It("should add with saturation", func() {
		u := postproc.NewEltwiseUnit(1)
		u.SetOp(postproc.EltAdd)

		u.Push(100, 100)
		u.Tick()

		v, ok := u.Out()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int8(127)))
	})

	It("should multiply with saturation", func() {
		u := postproc.NewEltwiseUnit(1)
		u.SetOp(postproc.EltMul)

		u.Push(-20, 20)
		u.Tick()

		v, ok := u.Out()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int8(-128)))
	})
})

var _ = Describe("Quantizer", func() {
	It("should requantize with the programmed parameters", func() {
		q := postproc.NewQuantizer(1)
		q.Configure(1, 4, 0)

		q.Push(256)
		q.Tick()

		v, ok := q.Out()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int8(16)))
	})

	It("should default to unit scaling with saturation", func() {
		q := postproc.NewQuantizer(1)

		q.Push(1000)
		q.Tick()

		v, ok := q.Out()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int8(127)))
	})

	It("should report busy until the pipeline drains", func() {
		q := postproc.NewQuantizer(2)

		q.Push(1)
		Expect(q.Busy()).To(BeTrue())

		q.Tick()
		Expect(q.Busy()).To(BeTrue())

		q.Tick()
		Expect(q.Busy()).To(BeTrue()) // result present this cycle

		q.Tick()
		Expect(q.Busy()).To(BeFalse())
	})
})
