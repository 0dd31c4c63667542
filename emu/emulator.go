package emu

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/mur/insts"
)

// ErrInstructionLimit is returned by Run when the instruction bound is hit.
var ErrInstructionLimit = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Inst is the instruction executed.
	Inst *insts.Instruction

	// Trap is set when the instruction raised a recoverable exception.
	Trap *Exception

	// Err is set when the instruction raised a fatal exception. The
	// emulator does not advance past it.
	Err error
}

// Emulator executes RV64I and Zicsr instructions one at a time, with no
// pipeline timing. PE instructions are illegal here since there is no PE.
type Emulator struct {
	regFile *RegFile
	csrs    *CSRFile
	memory  *Memory
	decoder *insts.Decoder

	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	pc               uint64
	traps            []*Exception
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.WriteReg(2, sp)
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithHartID sets the value read from mhartid.
func WithHartID(id uint64) EmulatorOption {
	return func(e *Emulator) {
		e.csrs.Store(CSRMHartID, id)
	}
}

// NewEmulator creates an emulator over memory. Execution starts at the
// bottom of memory with sp at its last byte.
func NewEmulator(memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:    NewRegFile(memory.End() - 1),
		csrs:       NewCSRFile(),
		memory:     memory,
		decoder:    insts.NewDecoder(),
		alu:        NewALU(),
		lsu:        NewLoadStoreUnit(memory),
		branchUnit: NewBranchUnit(),
		pc:         memory.Base(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// CSRs returns the emulator's CSR bank.
func (e *Emulator) CSRs() *CSRFile {
	return e.csrs
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() uint64 {
	return e.pc
}

// SetPC sets the address of the next instruction.
func (e *Emulator) SetPC(pc uint64) {
	e.pc = pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Traps returns the recoverable exceptions raised so far.
func (e *Emulator) Traps() []*Exception {
	return e.traps
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	word, err := e.memory.Fetch(e.pc)
	if err != nil {
		return StepResult{Err: err}
	}

	inst := e.decoder.Decode(word)
	result := StepResult{Inst: inst}

	next, err := e.execute(inst)
	if err != nil {
		exc, ok := AsException(err)
		if !ok || exc.Fatal {
			result.Err = err
			return result
		}

		e.traps = append(e.traps, exc)
		result.Trap = exc
		Trace("trap", "kind", exc.Kind, "value", exc.Value)
	}

	e.pc = next
	e.instructionCount++

	return result
}

// Run executes instructions until a fatal exception, the instruction
// bound or cancellation of ctx. The fatal exception is returned as raised.
func (e *Emulator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped at pc %#x: %w", e.pc, err)
		}
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			return ErrInstructionLimit
		}

		if result := e.Step(); result.Err != nil {
			return result.Err
		}
	}
}

// execute runs inst and returns the address of the next instruction.
func (e *Emulator) execute(inst *insts.Instruction) (uint64, error) {
	pc := e.pc
	next := pc + 4
	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)

	switch inst.Class {
	case insts.ClassJump:
		e.regFile.WriteReg(inst.Rd, e.branchUnit.Link(pc))
		return e.branchUnit.Target(inst, pc, rs1), nil

	case insts.ClassBranch:
		if e.branchUnit.Taken(inst, rs1, rs2) {
			return e.branchUnit.Target(inst, pc, rs1), nil
		}

	case insts.ClassLoad:
		value, err := e.lsu.Load(inst, e.lsu.EffectiveAddress(inst, rs1))
		if err != nil {
			return resumeAt(pc, next, err), err
		}
		e.regFile.WriteReg(inst.Rd, value)

	case insts.ClassStore:
		if err := e.lsu.Store(inst, e.lsu.EffectiveAddress(inst, rs1), rs2); err != nil {
			return resumeAt(pc, next, err), err
		}

	case insts.ClassCSR:
		operand := rs1
		if inst.Op == insts.OpCSRRWI || inst.Op == insts.OpCSRRSI || inst.Op == insts.OpCSRRCI {
			operand = uint64(inst.Rs1)
		}
		e.regFile.WriteReg(inst.Rd, e.csrs.Exchange(inst, operand))

	case insts.ClassALU:
		e.regFile.WriteReg(inst.Rd, e.alu.Execute(inst, pc, rs1, rs2))

	case insts.ClassSystem:
		switch inst.Op {
		case insts.OpECALL:
			return next, NewException(KindEcallFromM, pc)
		case insts.OpEBREAK:
			return next, NewException(KindBreakpoint, pc)
		}

	default:
		return pc, NewException(KindIllegalInstruction, uint64(inst.Word))
	}

	return next, nil
}

// resumeAt returns where execution continues after a memory access fails.
// Recoverable exceptions skip the access; fatal ones stay on it.
func resumeAt(pc, next uint64, err error) uint64 {
	if IsFatal(err) {
		return pc
	}
	return next
}
