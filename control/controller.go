package control

import (
	"github.com/buiminhnhut114/edge-npu-design-sub000/arith"
	"github.com/buiminhnhut114/edge-npu-design-sub000/dma"
	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
	"github.com/buiminhnhut114/edge-npu-design-sub000/mem"
	"github.com/buiminhnhut114/edge-npu-design-sub000/pe"
	"github.com/buiminhnhut114/edge-npu-design-sub000/postproc"
)

// State is the controller FSM state, exposed in STATUS bits [7:4].
type State uint8

// Controller states.
const (
	StateIdle State = iota
	StateFetch
	StateDecode
	StateLoadWeight
	StateLoadAct
	StateCompute
	StateAccumulate
	StatePool
	StateActivate
	StateStore
	StateDone
	StateError
)

func (s State) String() string {
	names := [...]string{
		"IDLE", "FETCH", "DECODE", "LOAD_WEIGHT", "LOAD_ACT", "COMPUTE",
		"ACCUMULATE", "POOL", "ACTIVATE", "STORE", "DONE", "ERROR",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "UNKNOWN"
}

// Error codes latched in the ERROR_CODE register.
const (
	ErrNone          uint32 = 0
	ErrInvalidOpcode uint32 = 1
)

// Units are the datapath blocks the controller sequences.
type Units struct {
	Insts      *mem.InstBuffer
	Weight     *mem.Bank
	Act        *mem.DoubleBuffer
	Array      *pe.Array
	Activation *postproc.ActivationUnit
	Pool       *postproc.PoolUnit
	Eltwise    *postproc.EltwiseUnit
	Quant      *postproc.Quantizer
	DMA        *dma.Engine
}

// Controller is the top-level instruction pipeline FSM. One instruction is
// in flight at a time; the DMA engine may run ahead of it for async loads,
// with SYNC as the join point.
type Controller struct {
	regs  *RegFile
	sched *Scheduler
	u     Units

	rows, cols int

	state State
	inst  insts.Instruction

	fetchIssued bool
	weightRow   int
	pass        uint32
	drain       int
	outCol      int
	idx         uint32
	count       uint32
	written     uint32
	copyPhase   int
	copyIdx     uint32
	copyDone    bool

	dmaStarted   bool
	swapPending  bool
	asyncActLoad bool

	enableArray bool
	stalled     bool
	done        bool
	errCode     uint32
}

// NewController creates a controller sequencing the given units for a
// rows x cols PE array.
func NewController(rows, cols int, regs *RegFile, sched *Scheduler, u Units) *Controller {
	return &Controller{
		regs:  regs,
		sched: sched,
		u:     u,
		rows:  rows,
		cols:  cols,
	}
}

// State returns the current FSM state.
func (c *Controller) State() State { return c.state }

// Busy is true in every state except IDLE.
func (c *Controller) Busy() bool { return c.state != StateIdle }

// Done is true only in the DONE state, for exactly one cycle.
func (c *Controller) Done() bool { return c.done }

// Errored reports whether the FSM is parked in ERROR.
func (c *Controller) Errored() bool { return c.state == StateError }

// ErrCode returns the latched error code.
func (c *Controller) ErrCode() uint32 { return c.errCode }

// ArrayEnable reports whether the PE array should tick this cycle. The
// device reads it after the controller's Tick and passes it to the array.
func (c *Controller) ArrayEnable() bool { return c.enableArray }

// Reset forces the FSM to IDLE, discarding the in-flight instruction.
func (c *Controller) Reset() {
	c.state = StateIdle
	c.fetchIssued = false
	c.dmaStarted = false
	c.swapPending = false
	c.asyncActLoad = false
	c.copyDone = false
	c.enableArray = false
	c.done = false
	c.errCode = ErrNone
}

func pageAddr(page uint8) uint32 {
	return uint32(page) * insts.BufferPageBytes
}

func (c *Controller) resources() Resources {
	return Resources{
		DMABusy: c.u.DMA.Busy(),
		PostBusy: c.u.Activation.Busy() || c.u.Pool.Busy() ||
			c.u.Eltwise.Busy() || c.u.Quant.Busy(),
	}
}

func (c *Controller) fail(code uint32) {
	c.errCode = code
	c.regs.SetErrorCode(code)
	c.regs.RaiseIRQ(IRQError)
	c.state = StateError
}

func (c *Controller) retire() {
	c.regs.CountInstruction()
	if c.inst.Flags&insts.FlagIRQ != 0 {
		c.regs.RaiseIRQ(IRQDone)
	}
	c.state = StateFetch
}

// Tick advances the FSM one cycle.
func (c *Controller) Tick() {
	c.done = false
	c.enableArray = false
	c.stalled = false

	start := c.regs.TakeStart()

	switch c.state {
	case StateIdle:
		if start && c.regs.Enabled() {
			c.sched.Restart()
			c.fetchIssued = false
			c.state = StateFetch
		}

	case StateFetch:
		c.tickFetch()

	case StateDecode:
		c.tickDecode()

	case StateLoadWeight:
		c.tickLoadWeight()

	case StateLoadAct:
		c.tickLoadAct()

	case StateCompute:
		c.tickCompute()

	case StateAccumulate:
		c.tickAccumulate()

	case StatePool:
		c.tickPool()

	case StateActivate:
		c.tickActivate()

	case StateStore:
		c.tickStore()

	case StateDone:
		c.done = true
		c.regs.RaiseIRQ(IRQDone)
		c.regs.CountInstruction()
		if c.inst.Flags&insts.FlagLast != 0 || c.sched.AtEnd() {
			c.state = StateIdle
		} else {
			c.fetchIssued = false
			c.state = StateFetch
		}

	case StateError:
		// Terminal until an external reset.
	}

	var macs uint64
	if c.enableArray {
		macs = uint64(c.rows) * uint64(c.cols)
	}
	c.regs.CountCycle(macs, c.stalled)
}

func (c *Controller) tickFetch() {
	if !c.fetchIssued {
		if c.sched.AtEnd() {
			// Ran off the uploaded program without a SYNC; park quietly.
			c.state = StateIdle
			return
		}
		c.sched.IssueFetch()
		c.fetchIssued = true
		return
	}
	if in, ok := c.sched.Fetched(); ok {
		c.inst = in
		c.fetchIssued = false
		c.state = StateDecode
	}
}

func (c *Controller) tickDecode() {
	in := c.inst

	if !in.Op.Valid() {
		c.fail(ErrInvalidOpcode)
		return
	}
	if !c.sched.Ready(in, c.resources()) {
		c.stalled = true
		return
	}

	switch in.Op {
	case insts.OpNOP:
		c.retire()

	case insts.OpCONV, insts.OpFC:
		c.u.Quant.Configure(c.regs.QuantParams())
		c.u.Activation.SetFunc(arith.ActFunc(in.ActCode()))
		c.weightRow = 0
		c.u.Weight.ReadEnable(pageAddr(in.Src0))
		c.state = StateLoadWeight

	case insts.OpPOOL:
		c.u.Pool.Configure(in.PoolWindow(), in.PoolAverage())
		c.state = StateLoadAct

	case insts.OpACT:
		c.u.Activation.SetFunc(arith.ActFunc(in.ActCode()))
		c.state = StateLoadAct

	case insts.OpADD:
		c.u.Eltwise.SetOp(postproc.EltAdd)
		c.state = StateLoadAct

	case insts.OpMUL:
		c.u.Eltwise.SetOp(postproc.EltMul)
		c.state = StateLoadAct

	case insts.OpLOAD:
		c.dmaStarted = false
		c.state = StateLoadAct

	case insts.OpSTORE:
		c.dmaStarted = false
		c.state = StateStore

	case insts.OpCONCAT, insts.OpSPLIT:
		c.copyPhase = 0
		c.copyIdx = 0
		c.copyDone = false
		c.state = StateLoadAct

	case insts.OpSYNC:
		// Ready() already joined DMA and post-processing.
		if c.asyncActLoad {
			if err := c.u.Act.Swap(); err != nil {
				c.stalled = true
				return
			}
			c.asyncActLoad = false
		}
		c.state = StateDone
	}
}

func (c *Controller) tickLoadWeight() {
	if !c.u.Weight.Valid() {
		return
	}

	data := c.u.Weight.Data()
	row := make([]int8, c.cols)
	for i := range row {
		row[i] = int8(data[i])
	}
	c.u.Array.LoadWeightRow(c.weightRow, row)

	c.weightRow++
	if c.weightRow < c.rows {
		c.u.Weight.ReadEnable(pageAddr(c.inst.Src0) + uint32(c.weightRow*c.cols))
	} else {
		c.state = StateLoadAct
	}
}

func (c *Controller) tickLoadAct() {
	in := c.inst
	rb := c.u.Act.ReadBank()

	switch in.Op {
	case insts.OpCONV, insts.OpFC:
		if !in.Accumulate() {
			c.u.Array.ClearAcc()
		}
		c.pass = 0
		c.outCol = 0
		c.written = 0
		if in.Iterations() == 0 {
			c.drain = 0
			c.state = StateAccumulate
			return
		}
		rb.ReadEnable(pageAddr(in.Src1))
		c.state = StateCompute

	case insts.OpPOOL, insts.OpACT, insts.OpADD, insts.OpMUL:
		c.count = in.Iterations()
		c.idx = 0
		c.written = 0
		if c.count == 0 {
			c.retire()
			return
		}
		rb.ReadEnable(pageAddr(in.Src0))
		if in.Op == insts.OpADD || in.Op == insts.OpMUL {
			rb.ReadEnableB(pageAddr(in.Src1), 1)
		}
		if in.Op == insts.OpPOOL {
			c.state = StatePool
		} else {
			c.state = StateActivate
		}

	case insts.OpCONCAT, insts.OpSPLIT:
		len0, len1 := in.SplitLens()
		if len0+len1 == 0 {
			c.retire()
			return
		}
		if len0 == 0 {
			c.copyPhase = 1
		}
		rb.ReadEnable(c.copySrcAddr())
		c.state = StateStore

	case insts.OpLOAD:
		c.tickInstLoad()
	}
}

func (c *Controller) tickInstLoad() {
	in := c.inst

	if !c.dmaStarted {
		d, ch := c.instDMARequest()
		if d.Length == 0 {
			c.retire()
			return
		}
		if err := c.u.DMA.Start(d, ch); err != nil {
			c.stalled = true
			return
		}
		c.dmaStarted = true
		if in.Flags&insts.FlagAsync != 0 {
			if ch == dma.ChanActIn {
				c.asyncActLoad = true
			}
			c.dmaStarted = false
			c.retire()
		}
		return
	}

	if c.u.DMA.Busy() {
		return
	}
	c.dmaStarted = false

	// A transport error aborts only this transfer; status and IRQ bits
	// carry the report while the pipeline moves on.
	if !c.u.DMA.Err() && c.loadTargetsActIn() {
		if err := c.u.Act.Swap(); err != nil {
			c.stalled = true
			c.dmaStarted = true
			return
		}
	}
	c.retire()
}

func (c *Controller) loadTargetsActIn() bool {
	return c.inst.Flags&insts.FlagWeight == 0
}

func (c *Controller) instDMARequest() (dma.Descriptor, dma.Channel) {
	in := c.inst

	length := in.DMABlocks() * insts.BufferPageBytes
	if length == 0 {
		length = c.regs.DMALen()
	}

	var d dma.Descriptor
	var ch dma.Channel
	if in.Op == insts.OpLOAD {
		d.SrcAddr = in.ExtAddr()
		d.DstAddr = uint64(pageAddr(in.Dst))
		ch = dma.ChanActIn
		if in.Flags&insts.FlagWeight != 0 {
			ch = dma.ChanWeight
		}
	} else {
		d.SrcAddr = uint64(pageAddr(in.Src0))
		d.DstAddr = in.ExtAddr()
		d.Flags |= dma.FlagWrite
		ch = dma.ChanActOut
	}
	d.Length = length

	if in.Flags&insts.FlagStrided != 0 {
		d.Flags |= dma.FlagStrided
		d.SrcStride, d.DstStride = c.regs.DMAStrides()
	}
	return d.Normalize(), ch
}

func (c *Controller) tickCompute() {
	in := c.inst
	rb := c.u.Act.ReadBank()
	if !rb.Valid() {
		return
	}

	data := rb.Data()
	for r := 0; r < c.rows; r++ {
		c.u.Array.SetInput(r, int8(data[r]))
	}
	c.enableArray = true

	c.pass++
	if c.pass < in.Iterations() {
		rb.ReadEnable(pageAddr(in.Src1) + c.pass*uint32(c.rows))
	} else {
		c.drain = c.cols - 1
		c.state = StateAccumulate
	}
}

func (c *Controller) tickAccumulate() {
	// Flush the systolic skew so the last activation reaches the last
	// column before the drain starts.
	if c.drain > 0 {
		c.enableArray = true
		c.drain--
		return
	}
	c.outCol = 0
	c.written = 0
	c.state = StateActivate
}

func (c *Controller) tickPool() {
	in := c.inst
	rb := c.u.Act.ReadBank()

	if c.idx < c.count && rb.Valid() {
		c.u.Pool.Push(int8(rb.Data()[0]))
		c.idx++
		if c.idx < c.count {
			rb.ReadEnable(pageAddr(in.Src0) + c.idx)
		}
	}

	if v, ok := c.u.Pool.Out(); ok {
		c.u.Act.WriteBank().Write(pageAddr(in.Dst)+c.written, []byte{byte(v)})
		c.written++
	}

	if c.idx == c.count && !c.u.Pool.Busy() {
		c.swapPending = true
		c.state = StateStore
	}
}

func (c *Controller) tickActivate() {
	switch c.inst.Op {
	case insts.OpCONV, insts.OpFC:
		c.tickDrainColumns()
	case insts.OpADD, insts.OpMUL:
		c.tickEltwise()
	default:
		c.tickActStream()
	}
}

// tickDrainColumns reads back one column sum per cycle and runs it through
// the quantizer and activation unit before writeback.
func (c *Controller) tickDrainColumns() {
	in := c.inst

	if c.outCol < c.cols {
		c.u.Quant.Push(c.u.Array.DrainColumn(c.outCol))
		c.outCol++
	}
	if v, ok := c.u.Quant.Out(); ok {
		c.u.Activation.Push(v)
	}
	if v, ok := c.u.Activation.Out(); ok {
		c.u.Act.WriteBank().Write(pageAddr(in.Dst)+c.written, []byte{byte(v)})
		c.written++
	}

	if c.written == uint32(c.cols) {
		c.swapPending = true
		c.state = StateStore
	}
}

func (c *Controller) tickActStream() {
	in := c.inst
	rb := c.u.Act.ReadBank()

	if c.idx < c.count && rb.Valid() {
		c.u.Activation.Push(int8(rb.Data()[0]))
		c.idx++
		if c.idx < c.count {
			rb.ReadEnable(pageAddr(in.Src0) + c.idx)
		}
	}

	if v, ok := c.u.Activation.Out(); ok {
		c.u.Act.WriteBank().Write(pageAddr(in.Dst)+c.written, []byte{byte(v)})
		c.written++
	}

	if c.idx == c.count && !c.u.Activation.Busy() {
		c.swapPending = true
		c.state = StateStore
	}
}

func (c *Controller) tickEltwise() {
	in := c.inst
	rb := c.u.Act.ReadBank()

	if c.idx < c.count && rb.Valid() && rb.ValidB() {
		a := int8(rb.Data()[0])
		b := int8(rb.DataB()[0])
		c.u.Eltwise.Push(a, b)
		c.idx++
		if c.idx < c.count {
			rb.ReadEnable(pageAddr(in.Src0) + c.idx)
			rb.ReadEnableB(pageAddr(in.Src1)+c.idx, 1)
		}
	}

	if v, ok := c.u.Eltwise.Out(); ok {
		c.u.Act.WriteBank().Write(pageAddr(in.Dst)+c.written, []byte{byte(v)})
		c.written++
	}

	if c.idx == c.count && !c.u.Eltwise.Busy() {
		c.swapPending = true
		c.state = StateStore
	}
}

// copySrcAddr and copyDstAddr give the CONCAT/SPLIT byte cursors. CONCAT
// packs src0 then src1 into dst; SPLIT cuts src0 into dst then src1.
func (c *Controller) copySrcAddr() uint32 {
	in := c.inst
	len0, _ := in.SplitLens()
	if in.Op == insts.OpCONCAT {
		if c.copyPhase == 0 {
			return pageAddr(in.Src0) + c.copyIdx
		}
		return pageAddr(in.Src1) + c.copyIdx
	}
	if c.copyPhase == 0 {
		return pageAddr(in.Src0) + c.copyIdx
	}
	return pageAddr(in.Src0) + len0 + c.copyIdx
}

func (c *Controller) copyDstAddr() uint32 {
	in := c.inst
	len0, _ := in.SplitLens()
	if in.Op == insts.OpCONCAT {
		if c.copyPhase == 0 {
			return pageAddr(in.Dst) + c.copyIdx
		}
		return pageAddr(in.Dst) + len0 + c.copyIdx
	}
	if c.copyPhase == 0 {
		return pageAddr(in.Dst) + c.copyIdx
	}
	return pageAddr(in.Src1) + c.copyIdx
}

func (c *Controller) tickCopy() {
	in := c.inst
	rb := c.u.Act.ReadBank()
	if !rb.Valid() {
		return
	}

	c.u.Act.WriteBank().Write(c.copyDstAddr(), []byte{rb.Data()[0]})

	len0, len1 := in.SplitLens()
	phaseLen := len0
	if c.copyPhase == 1 {
		phaseLen = len1
	}

	c.copyIdx++
	if c.copyIdx >= phaseLen {
		c.copyIdx = 0
		c.copyPhase++
		if c.copyPhase > 1 || len1 == 0 {
			c.copyDone = true
			c.swapPending = true
			return
		}
	}
	rb.ReadEnable(c.copySrcAddr())
}

func (c *Controller) tickStore() {
	switch c.inst.Op {
	case insts.OpSTORE:
		c.tickInstStore()
	case insts.OpCONCAT, insts.OpSPLIT:
		if !c.copyDone {
			c.tickCopy()
			return
		}
		c.finishWriteback()
	default:
		c.finishWriteback()
	}
}

func (c *Controller) tickInstStore() {
	in := c.inst

	if !c.dmaStarted {
		d, ch := c.instDMARequest()
		if d.Length == 0 {
			c.retire()
			return
		}
		if err := c.u.DMA.Start(d, ch); err != nil {
			c.stalled = true
			return
		}
		c.dmaStarted = true
		if in.Flags&insts.FlagAsync != 0 {
			c.dmaStarted = false
			c.retire()
		}
		return
	}

	if c.u.DMA.Busy() {
		return
	}
	c.dmaStarted = false
	c.retire()
}

// finishWriteback publishes the instruction's output by swapping the
// activation halves, then retires it.
func (c *Controller) finishWriteback() {
	if c.swapPending {
		if err := c.u.Act.Swap(); err != nil {
			c.stalled = true
			return
		}
		c.swapPending = false
	}
	c.retire()
}
