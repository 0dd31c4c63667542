// Package pipeline provides the 4-stage in-order pipeline for timing
// simulation of a RISC-V hart.
package pipeline

import "github.com/sarchlab/mur/insts"

// FetchLatch holds state between the Fetch and Decode stages.
type FetchLatch struct {
	// Valid indicates if this latch contains an instruction.
	Valid bool

	// PC is the address the instruction was fetched from.
	PC uint64

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32
}

// Clear resets the latch to empty state.
func (r *FetchLatch) Clear() {
	*r = FetchLatch{}
}

// DecodeLatch holds state between the Decode and Execute stages.
type DecodeLatch struct {
	// Valid indicates if this latch contains an instruction.
	Valid bool

	// PC is the address of the instruction.
	PC uint64

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction
}

// Clear resets the latch to empty state.
func (r *DecodeLatch) Clear() {
	*r = DecodeLatch{}
}

// WritebackLatch holds a register result scheduled by Execute.
type WritebackLatch struct {
	Valid bool
	Rd    uint8
	Value uint64
}

// Clear resets the latch to empty state.
func (r *WritebackLatch) Clear() {
	*r = WritebackLatch{}
}

// BranchLatch holds a resolved branch or jump target.
type BranchLatch struct {
	Valid  bool
	Target uint64
}

// Clear resets the latch to empty state.
func (r *BranchLatch) Clear() {
	*r = BranchLatch{}
}

// LoadSlot is one entry of the load buffer.
type LoadSlot struct {
	// Valid indicates if this slot holds a load.
	Valid bool

	// PC is the address of the load instruction.
	PC uint64

	// Inst is the decoded load.
	Inst *insts.Instruction

	// Addr is the effective address computed in Execute.
	Addr uint64
}

// Clear resets the slot to empty state.
func (r *LoadSlot) Clear() {
	*r = LoadSlot{}
}

// Load buffer slot indices.
const (
	// LoadSlotNew receives loads from Execute.
	LoadSlotNew = 0
	// LoadSlotOld holds loads that commit in the next Writeback.
	LoadSlotOld = 1
)

// State is the complete latch state of the pipeline. It is owned by the
// Pipeline and passed by pointer to each stage in turn.
type State struct {
	Fetch      FetchLatch
	Decode     DecodeLatch
	Writeback  WritebackLatch
	Branch     BranchLatch
	LoadBuffer [2]LoadSlot

	// PC is the address of the next instruction to fetch.
	PC uint64
}

// Empty reports whether no instruction is in flight.
func (s State) Empty() bool {
	return !s.Fetch.Valid && !s.Decode.Valid && !s.Writeback.Valid &&
		!s.Branch.Valid && !s.LoadBuffer[0].Valid && !s.LoadBuffer[1].Valid
}

// Flush discards the instructions fetched on the stale path.
func (s *State) Flush() {
	s.Decode.Clear()
	s.Fetch.Clear()
}
