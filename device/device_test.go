package device_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/buiminhnhut114/edge-npu-design-sub000/arith"
	"github.com/buiminhnhut114/edge-npu-design-sub000/control"
	"github.com/buiminhnhut114/edge-npu-design-sub000/device"
	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
)

// expectedConv mirrors the datapath bit for bit: stationary weights,
// one activation vector per pass, saturating column reduction, then
// unit-scale requantization.
func expectedConv(weights, acts []byte, rows, cols, passes int) []byte {
	acc := make([][]int32, rows)
	for r := range acc {
		acc[r] = make([]int32, cols)
	}
	for p := 0; p < passes; p++ {
		for r := 0; r < rows; r++ {
			a := int8(acts[p*rows+r])
			for c := 0; c < cols; c++ {
				acc[r][c] = arith.MAC(acc[r][c], a, int8(weights[r*cols+c]))
			}
		}
	}
	out := make([]byte, cols)
	for c := 0; c < cols; c++ {
		var sum int32
		for r := 0; r < rows; r++ {
			sum = arith.SatAdd32(sum, acc[r][c])
		}
		out[c] = byte(arith.Requantize(sum, 1, 0, 0))
	}
	return out
}

var _ = Describe("Device", func() {
	var dev *device.Device

	BeforeEach(func() {
		var err error
		dev, err = device.NewDevice(nil)
		Expect(err).ToNot(HaveOccurred())
	})

	start := func() {
		dev.WriteReg(control.RegCtrl, control.CtrlEnable|control.CtrlStart)
	}

	It("should reject an invalid configuration", func() {
		cfg := device.DefaultConfig()
		cfg.Rows = 0

		_, err := device.NewDevice(cfg)
		Expect(err).To(HaveOccurred())
	})

	It("should run the full load-compute-store scenario", func() {
		blob := make([]byte, 256)
		for i := range blob {
			blob[i] = byte(i % 5)
		}
		dev.WriteExternal(0, blob)

		program := []insts.Instruction{
			insts.New(insts.OpLOAD, insts.FlagWeight, 0, 0, 0, 0x01000000),
			insts.New(insts.OpLOAD, 0, 0, 0, 0, 0x01000000),
			insts.New(insts.OpCONV, 0, 0, 0, 0, 0x00000010),
			insts.New(insts.OpSYNC, 0, 0, 0, 0, 0),
			insts.New(insts.OpSTORE, 0, 0, 0, 0, 0x01001000),
			insts.New(insts.OpNOP, 0, 0, 0, 0, 0),
		}
		Expect(dev.LoadInstructions(program)).To(Succeed())
		start()

		dones := 0
		idleBeforeDone := false
		finished := false
		for i := 0; i < 4000; i++ {
			dev.Tick()
			st := dev.ReadReg(control.RegStatus)
			if st&control.StatusDone != 0 {
				dones++
			}
			if st&control.StatusBusy == 0 {
				if dones == 0 {
					idleBeforeDone = true
				}
				finished = true
				break
			}
		}

		Expect(finished).To(BeTrue())
		Expect(idleBeforeDone).To(BeFalse(), "busy must hold from FETCH through STORE")
		Expect(dones).To(Equal(1), "done must pulse for exactly one cycle")

		want := expectedConv(blob, blob, 16, 16, 16)
		Expect(dev.PeekAct(0, 16)).To(Equal(want))
		Expect(dev.ReadExternal(0x1000, 16)).To(Equal(want))
	})

	It("should trap on an invalid opcode and recover via soft reset", func() {
		Expect(dev.LoadProgram([]uint64{uint64(0xE) << 60})).To(Succeed())
		start()
		dev.RunCycles(16)

		st := dev.ReadReg(control.RegStatus)
		Expect(st & control.StatusError).ToNot(BeZero())
		Expect(dev.ReadReg(control.RegErrorCode)).To(Equal(control.ErrInvalidOpcode))

		dev.WriteReg(control.RegCtrl, control.CtrlSoftReset)
		dev.Tick()

		Expect(dev.ReadReg(control.RegStatus) & control.StatusError).To(BeZero())
		Expect(dev.ReadReg(control.RegErrorCode)).To(BeZero())
	})

	It("should run a register-programmed DMA transfer", func() {
		blob := make([]byte, 64)
		for i := range blob {
			blob[i] = byte(0xA0 + i)
		}
		dev.WriteExternal(0x200, blob)

		dev.WriteReg(control.RegPerfCtrl, control.PerfCtrlEnable)
		dev.WriteReg(control.RegDMASrc, 0x200)
		dev.WriteReg(control.RegDMADst, 0x80)
		dev.WriteReg(control.RegDMALen, 64)
		dev.WriteReg(control.RegDMACtrl,
			control.DMACtrlStart|uint32(0)<<control.DMACtrlChanShift)

		for i := 0; i < 64; i++ {
			dev.Tick()
			if dev.ReadReg(control.RegDMAStatus)&control.DMAStatusBusy == 0 && i > 0 {
				break
			}
		}

		Expect(dev.PeekWeight(0x80, 64)).To(Equal(blob))
		Expect(dev.ReadReg(control.RegIRQStatus) & control.IRQDMADone).ToNot(BeZero())
		Expect(dev.Stats().DMATransfers).To(Equal(uint64(1)))
	})

	It("should execute a compute whose reads walk past the buffer half", func() {
		// 4200 passes starting at the last activation page run the read
		// cursor well beyond the 128 KiB half; the addresses wrap instead
		// of faulting the simulator.
		Expect(dev.LoadInstructions([]insts.Instruction{
			insts.New(insts.OpCONV, 0, 0, 0, 255, 4200),
			insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
		})).To(Succeed())
		start()

		_, err := dev.Run(50_000)
		Expect(err).ToNot(HaveOccurred())
		Expect(dev.ReadReg(control.RegStatus) & control.StatusError).To(BeZero())
		Expect(dev.ReadReg(control.RegInstCount)).To(Equal(uint32(2)))
	})

	It("should wrap a register-programmed DMA that overruns the weight bank", func() {
		blob := make([]byte, 64)
		for i := range blob {
			blob[i] = byte(0x30 + i)
		}
		dev.WriteExternal(0x200, blob)

		// The destination sits eight bytes short of the 256 KiB weight
		// bank end; the tail beats land at the start of the bank.
		dev.WriteReg(control.RegDMASrc, 0x200)
		dev.WriteReg(control.RegDMADst, 0x3FFF8)
		dev.WriteReg(control.RegDMALen, 64)
		dev.WriteReg(control.RegDMACtrl, control.DMACtrlStart)

		dev.RunCycles(64)

		Expect(dev.ReadReg(control.RegDMAStatus) & control.DMAStatusBusy).To(BeZero())
		Expect(dev.ReadReg(control.RegIRQStatus) & control.IRQDMADone).ToNot(BeZero())
		Expect(dev.PeekWeight(0x3FFF8, 8)).To(Equal(blob[:8]))
		Expect(dev.PeekWeight(0, 56)).To(Equal(blob[8:]))
	})

	It("should latch and clear a DMA bus error", func() {
		dev.WriteReg(control.RegDMASrc, 0xFFFFF8)
		dev.WriteReg(control.RegDMADst, 0)
		dev.WriteReg(control.RegDMALen, 64)
		dev.WriteReg(control.RegDMACtrl, control.DMACtrlStart)

		dev.RunCycles(32)

		Expect(dev.ReadReg(control.RegDMAStatus) & control.DMAStatusError).ToNot(BeZero())
		Expect(dev.ReadReg(control.RegIRQStatus) & control.IRQDMAError).ToNot(BeZero())

		dev.WriteReg(control.RegIRQStatus, control.IRQDMAError)
		dev.Tick()

		Expect(dev.ReadReg(control.RegDMAStatus) & control.DMAStatusError).To(BeZero())
		Expect(dev.ReadReg(control.RegIRQStatus) & control.IRQDMAError).To(BeZero())
	})

	It("should assert the interrupt line when enabled", func() {
		Expect(dev.LoadInstructions([]insts.Instruction{
			insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
		})).To(Succeed())

		dev.WriteReg(control.RegIRQEnable, control.IRQDone)
		dev.WriteReg(control.RegCtrl,
			control.CtrlEnable|control.CtrlIRQEnable|control.CtrlStart)

		_, err := dev.Run(64)
		Expect(err).ToNot(HaveOccurred())

		Expect(dev.IRQ()).To(BeTrue())

		dev.WriteReg(control.RegIRQStatus, control.IRQDone)
		Expect(dev.IRQ()).To(BeFalse())
	})

	It("should reject a program larger than the instruction buffer", func() {
		cfg := device.DefaultConfig()
		cfg.InstEntries = 2
		small, err := device.NewDevice(cfg)
		Expect(err).ToNot(HaveOccurred())

		Expect(small.LoadProgram(make([]uint64, 3))).ToNot(Succeed())
	})

	It("should report geometry through CONFIG", func() {
		Expect(dev.ReadReg(control.RegConfig)).To(Equal(uint32(16 | 16<<8)))
		Expect(dev.ReadReg(control.RegVersion)).To(Equal(control.Version))
	})

	It("should count cycles and MACs when profiling is on", func() {
		dev.PokeAct(0, []byte{1, 2, 3, 4})
		dev.WriteReg(control.RegPerfCtrl, control.PerfCtrlEnable)

		Expect(dev.LoadInstructions([]insts.Instruction{
			insts.New(insts.OpCONV, 0, 1, 0, 0, 1),
			insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
		})).To(Succeed())
		start()

		_, err := dev.Run(512)
		Expect(err).ToNot(HaveOccurred())

		stats := dev.Stats()
		Expect(stats.Cycles).ToNot(BeZero())
		// One pass plus fifteen skew-flush cycles, 256 MACs each.
		Expect(stats.MACs).To(Equal(uint64(16 * 256)))
		Expect(stats.Instructions).To(Equal(uint64(2)))
	})
})

var _ = Describe("Platform", func() {
	It("should run the device on the event engine until it drains", func() {
		p, err := device.MakePlatformBuilder().Build("NPU")
		Expect(err).ToNot(HaveOccurred())

		Expect(p.Device.LoadInstructions([]insts.Instruction{
			insts.New(insts.OpNOP, 0, 0, 0, 0, 0),
			insts.New(insts.OpSYNC, insts.FlagLast, 0, 0, 0, 0),
		})).To(Succeed())

		p.Device.WriteReg(control.RegCtrl, control.CtrlEnable|control.CtrlStart)
		p.Start()

		Expect(p.Run()).To(Succeed())
		Expect(p.Device.ReadReg(control.RegInstCount)).To(Equal(uint32(2)))
		Expect(p.Device.ReadReg(control.RegStatus) & control.StatusBusy).To(BeZero())
	})
})
