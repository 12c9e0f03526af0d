package control

import (
	"github.com/buiminhnhut114/edge-npu-design-sub000/insts"
	"github.com/buiminhnhut114/edge-npu-design-sub000/mem"
)

// Resources is the structural-hazard snapshot the scheduler checks before
// letting the controller dispatch a decoded instruction.
type Resources struct {
	DMABusy  bool
	PostBusy bool
}

// Scheduler owns the program counter and the fetch/decode front end. The
// instruction buffer has one cycle of read latency, so a fetch spans two
// cycles: IssueFetch, then Fetched on the next.
type Scheduler struct {
	buf *mem.InstBuffer
	dec *insts.Decoder

	pc     uint32
	length uint32
}

// NewScheduler creates a scheduler fetching from the given buffer.
func NewScheduler(buf *mem.InstBuffer) *Scheduler {
	return &Scheduler{buf: buf, dec: insts.NewDecoder()}
}

// SetProgramLen records how many instruction words the host uploaded.
// Fetching past this point parks the controller instead of executing the
// zeroed tail of the buffer.
func (s *Scheduler) SetProgramLen(n uint32) { s.length = n }

// ProgramLen returns the uploaded program length in words.
func (s *Scheduler) ProgramLen() uint32 { return s.length }

// PC returns the current program counter.
func (s *Scheduler) PC() uint32 { return s.pc }

// Restart rewinds the program counter for a new start pulse.
func (s *Scheduler) Restart() { s.pc = 0 }

// AtEnd reports whether the program counter has run past the uploaded
// program.
func (s *Scheduler) AtEnd() bool { return s.pc >= s.length }

// IssueFetch drives the instruction buffer's read port with the current
// program counter.
func (s *Scheduler) IssueFetch() {
	s.buf.ReadEnable(s.pc)
}

// Fetched returns the decoded instruction once the buffer's read latency
// has elapsed, advancing the program counter.
func (s *Scheduler) Fetched() (insts.Instruction, bool) {
	if !s.buf.Valid() {
		return insts.Instruction{}, false
	}
	s.pc++
	return s.dec.Decode(s.buf.Data()), true
}

// Ready reports whether the instruction's resources are free. The
// controller stalls in DECODE until this holds; SYNC is the full join
// point across every unit.
func (s *Scheduler) Ready(in insts.Instruction, r Resources) bool {
	switch in.Op {
	case insts.OpLOAD, insts.OpSTORE:
		return !r.DMABusy
	case insts.OpCONV, insts.OpFC, insts.OpPOOL, insts.OpACT,
		insts.OpADD, insts.OpMUL:
		return !r.PostBusy
	case insts.OpSYNC:
		return !r.DMABusy && !r.PostBusy
	}
	return true
}

// Reset rewinds the front end and forgets the uploaded program.
func (s *Scheduler) Reset() {
	s.pc = 0
	s.length = 0
}
