// Package device assembles the NPU execution core: PE array, memory
// banks, DMA engine, post-processing units and the controller, advanced
// together one clock at a time.
package device

import (
	"fmt"

	"github.com/buiminhnhut114/edge-npu-design-sub000/control"
	"github.com/buiminhnhut114/edge-npu-design-sub000/dma"
	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
	"github.com/buiminhnhut114/edge-npu-design-sub000/mem"
	"github.com/buiminhnhut114/edge-npu-design-sub000/pe"
	"github.com/buiminhnhut114/edge-npu-design-sub000/postproc"
)

// Device is the complete modeled core plus its external memory. The host
// talks to it the way a driver talks to hardware: MMIO register access,
// external memory writes, then polling or interrupts.
type Device struct {
	cfg *Config

	regs  *control.RegFile
	sched *control.Scheduler
	ctrl  *control.Controller

	extmem *dma.Memory
	engine *dma.Engine
	weight *mem.Bank
	act    *mem.DoubleBuffer
	ibuf   *mem.InstBuffer
	array  *pe.Array

	actUnit *postproc.ActivationUnit
	pool    *postproc.PoolUnit
	elt     *postproc.EltwiseUnit
	quant   *postproc.Quantizer

	cycle      uint64
	prevDMAErr bool
}

// NewDevice builds a core from the given configuration. A nil config
// uses the defaults.
func NewDevice(cfg *Config) (*Device, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}
	cfg = cfg.Clone()

	d := &Device{
		cfg:     cfg,
		extmem:  dma.NewMemory(cfg.ExtMemBytes),
		weight:  mem.NewBank("npu.weight", cfg.WeightBufferBytes, cfg.Cols),
		act:     mem.NewDoubleBuffer("npu.act", cfg.ActHalfBytes, cfg.Rows),
		ibuf:    mem.NewInstBuffer(cfg.InstEntries),
		array:   pe.NewArray(cfg.Rows, cfg.Cols),
		actUnit: postproc.NewActivationUnit(cfg.ActivationLatency),
		pool:    postproc.NewPoolUnit(cfg.PoolLatency),
		elt:     postproc.NewEltwiseUnit(cfg.EltwiseLatency),
		quant:   postproc.NewQuantizer(cfg.QuantLatency),
	}

	d.engine = dma.NewEngine(d.extmem, cfg.BeatBytes, cfg.MaxBurstLen)
	d.engine.BindBuffers(
		func() *mem.Bank { return d.weight },
		func() *mem.Bank { return d.act.WriteBank() },
		func() *mem.Bank { return d.act.ReadBank() },
	)

	d.regs = control.NewRegFile(cfg.Rows, cfg.Cols)
	d.sched = control.NewScheduler(d.ibuf)
	d.ctrl = control.NewController(cfg.Rows, cfg.Cols, d.regs, d.sched, control.Units{
		Insts:      d.ibuf,
		Weight:     d.weight,
		Act:        d.act,
		Array:      d.array,
		Activation: d.actUnit,
		Pool:       d.pool,
		Eltwise:    d.elt,
		Quant:      d.quant,
		DMA:        d.engine,
	})
	return d, nil
}

// Config returns the device configuration.
func (d *Device) Config() *Config { return d.cfg }

// Cycle returns the number of clocks ticked since construction or reset.
func (d *Device) Cycle() uint64 { return d.cycle }

// Tick advances the whole core one clock. Next-state inputs are staged by
// the controller first, then every unit registers its update, matching
// the two-phase discipline of the RTL.
func (d *Device) Tick() {
	if d.regs.TakeSoftReset() {
		d.reset()
		return
	}

	// Register-programmed DMA, the driver's direct path around the
	// instruction stream.
	if d.regs.TakeDMAStart() && !d.engine.Busy() {
		if desc, ch := d.regs.DMARequest(); desc.Length != 0 {
			// Start cannot fail here: the engine is idle and the
			// length is non-zero.
			_ = d.engine.Start(desc, ch)
		}
	}

	d.ctrl.Tick()
	d.array.Tick(d.ctrl.ArrayEnable())
	d.actUnit.Tick()
	d.pool.Tick()
	d.elt.Tick()
	d.quant.Tick()
	d.engine.Tick()
	d.ibuf.Tick()
	d.weight.Tick()
	d.act.Tick()

	if d.engine.Done() {
		d.regs.CountDMATransfer()
		d.regs.RaiseIRQ(control.IRQDMADone)
	}
	if d.engine.Err() && !d.prevDMAErr {
		d.regs.RaiseIRQ(control.IRQDMAError)
	}
	d.prevDMAErr = d.engine.Err()

	d.regs.UpdateStatus(
		d.ctrl.Busy(), d.ctrl.Done(), d.ctrl.Errored(), uint8(d.ctrl.State()))
	d.regs.UpdateDMAStatus(d.engine.Busy(), d.engine.Done(), d.engine.Err())

	d.cycle++
}

// Active reports whether anything inside the core still has work: the
// event-driven wrapper stops rescheduling ticks when it goes false.
func (d *Device) Active() bool {
	return d.ctrl.Busy() || d.engine.Busy() ||
		d.actUnit.Busy() || d.pool.Busy() || d.elt.Busy() || d.quant.Busy()
}

// ReadReg reads a CSR word.
func (d *Device) ReadReg(offset uint32) uint32 {
	return d.regs.Read(offset)
}

// WriteReg writes a CSR word. Clearing the DMA error interrupt also
// clears the engine's sticky error flag, matching the RTL.
func (d *Device) WriteReg(offset, v uint32) {
	if offset == control.RegIRQStatus && v&control.IRQDMAError != 0 {
		d.engine.ClearError()
		d.prevDMAErr = false
	}
	d.regs.Write(offset, v)
}

// IRQ reports the state of the interrupt line.
func (d *Device) IRQ() bool { return d.regs.IRQ() }

// LoadProgram uploads instruction words into the instruction buffer.
func (d *Device) LoadProgram(words []uint64) error {
	if len(words) > d.ibuf.Len() {
		return fmt.Errorf("program of %d words exceeds the %d-entry buffer",
			len(words), d.ibuf.Len())
	}
	for i, w := range words {
		d.ibuf.WriteEntry(uint32(i), w)
	}
	d.sched.SetProgramLen(uint32(len(words)))
	return nil
}

// LoadInstructions uploads decoded instructions.
func (d *Device) LoadInstructions(program []insts.Instruction) error {
	words := make([]uint64, len(program))
	for i, in := range program {
		words[i] = in.Encode()
	}
	return d.LoadProgram(words)
}

// WriteExternal stores bytes into the modeled external memory.
func (d *Device) WriteExternal(addr uint64, data []byte) {
	d.extmem.Write(addr, data)
}

// ReadExternal reads bytes from the modeled external memory.
func (d *Device) ReadExternal(addr uint64, n int) []byte {
	return d.extmem.Read(addr, n)
}

// PeekAct reads the compute-visible activation half, for debug and tests.
func (d *Device) PeekAct(addr uint32, n int) []byte {
	return d.act.ReadBank().Peek(addr, n)
}

// PokeAct writes the compute-visible activation half.
func (d *Device) PokeAct(addr uint32, data []byte) {
	d.act.ReadBank().Poke(addr, data)
}

// PeekWeight reads the weight buffer.
func (d *Device) PeekWeight(addr uint32, n int) []byte {
	return d.weight.Peek(addr, n)
}

// Stats returns the performance counters.
func (d *Device) Stats() control.Stats { return d.regs.Stats() }

// Run ticks the core until the controller returns to IDLE or traps in
// ERROR, returning how many cycles pulsed done. It fails if the limit is
// exhausted first.
func (d *Device) Run(maxCycles uint64) (int, error) {
	dones := 0
	for i := uint64(0); i < maxCycles; i++ {
		d.Tick()
		if d.ctrl.Done() {
			dones++
		}
		if d.ctrl.Errored() {
			return dones, nil
		}
		if !d.ctrl.Busy() && !d.engine.Busy() {
			return dones, nil
		}
	}
	return dones, fmt.Errorf("no completion within %d cycles", maxCycles)
}

// RunCycles ticks the core a fixed number of clocks.
func (d *Device) RunCycles(n uint64) {
	for i := uint64(0); i < n; i++ {
		d.Tick()
	}
}

func (d *Device) reset() {
	d.ctrl.Reset()
	d.sched.Reset()
	d.engine.Reset()
	d.array.Reset()
	d.actUnit.Reset()
	d.pool.Reset()
	d.elt.Reset()
	d.quant.Reset()
	d.weight.Reset()
	d.act.Reset()
	d.ibuf.Reset()
	d.regs.Reset()
	d.cycle = 0
	d.prevDMAErr = false
}

// Reset forces the whole core back to power-on state. External memory
// contents survive, as on a real board.
func (d *Device) Reset() { d.reset() }
