package pipeline

import (
	"context"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/insts"
	"github.com/sarchlab/mur/pe"
	"github.com/sarchlab/mur/timing/cache"
)

// ExecuteStage dispatches decoded instructions by class.
type ExecuteStage struct {
	regFile *emu.RegFile
	csrs    *emu.CSRFile
	alu     *emu.ALU
	branch  *emu.BranchUnit
	lsu     *emu.LoadStoreUnit
	hazard  *HazardUnit
	dcache  *cache.Cache
	pe      *peUnit
}

// NewExecuteStage creates a new execute stage over memory. dcache may be
// nil. The stage has no PE attached.
func NewExecuteStage(
	regFile *emu.RegFile,
	csrs *emu.CSRFile,
	memory *emu.Memory,
	dcache *cache.Cache,
) *ExecuteStage {
	return &ExecuteStage{
		regFile: regFile,
		csrs:    csrs,
		alu:     emu.NewALU(),
		branch:  emu.NewBranchUnit(),
		lsu:     emu.NewLoadStoreUnit(memory),
		hazard:  NewHazardUnit(),
		dcache:  dcache,
		pe: &peUnit{
			memory:   memory,
			builder:  pe.NewSequenceBuilder(),
			prefetch: 1,
		},
	}
}

// ExecuteResult reports what the execute stage did in one cycle.
type ExecuteResult struct {
	// Executed is true if an instruction left the decode latch.
	Executed bool
	// Stalled is true if the instruction waited on a load hazard.
	Stalled bool
	// Inst is the instruction that executed or stalled.
	Inst *insts.Instruction
	// Taken is true if a branch or jump target was latched.
	Taken bool
}

// Execute runs the instruction in the decode latch, if any.
//
// A pending branch target at this point means Writeback did not run first
// this cycle, which is a pipeline bug; Execute panics.
func (s *ExecuteStage) Execute(ctx context.Context, st *State) (ExecuteResult, error) {
	if !st.Decode.Valid {
		return ExecuteResult{}, nil
	}
	if st.Branch.Valid {
		panic("pipeline: branch target latch occupied at execute")
	}

	inst := st.Decode.Inst
	pc := st.Decode.PC

	if s.hazard.DetectLoadHazard(inst, &st.LoadBuffer[LoadSlotOld]) ||
		(inst.Class == insts.ClassLoad && !s.hazard.CanEnqueueLoad(&st.LoadBuffer)) {
		return ExecuteResult{Stalled: true, Inst: inst}, nil
	}

	rs1 := s.regFile.ReadReg(inst.Rs1)
	rs2 := s.regFile.ReadReg(inst.Rs2)
	st.Decode.Clear()

	result := ExecuteResult{Executed: true, Inst: inst}

	switch inst.Class {
	case insts.ClassJump:
		st.Branch = BranchLatch{Valid: true, Target: s.branch.Target(inst, pc, rs1)}
		st.Writeback = WritebackLatch{Valid: true, Rd: inst.Rd, Value: s.branch.Link(pc)}
		result.Taken = true

	case insts.ClassBranch:
		if s.branch.Taken(inst, rs1, rs2) {
			st.Branch = BranchLatch{Valid: true, Target: s.branch.Target(inst, pc, rs1)}
			result.Taken = true
		}

	case insts.ClassLoad:
		slot := LoadSlotNew
		if st.LoadBuffer[LoadSlotNew].Valid {
			slot = LoadSlotOld
		}
		st.LoadBuffer[slot] = LoadSlot{
			Valid: true,
			PC:    pc,
			Inst:  inst,
			Addr:  s.lsu.EffectiveAddress(inst, rs1),
		}

	case insts.ClassStore:
		addr := s.lsu.EffectiveAddress(inst, rs1)
		if s.dcache != nil {
			s.dcache.Access(addr, true)
		}
		if err := s.lsu.Store(inst, addr, rs2); err != nil {
			return result, err
		}

	case insts.ClassCSR:
		operand := rs1
		if inst.Op == insts.OpCSRRWI || inst.Op == insts.OpCSRRSI || inst.Op == insts.OpCSRRCI {
			operand = uint64(inst.Rs1)
		}
		old := s.csrs.Exchange(inst, operand)
		st.Writeback = WritebackLatch{Valid: true, Rd: inst.Rd, Value: old}

	case insts.ClassALU:
		st.Writeback = WritebackLatch{Valid: true, Rd: inst.Rd, Value: s.alu.Execute(inst, pc, rs1, rs2)}

	case insts.ClassSystem:
		switch inst.Op {
		case insts.OpECALL:
			return result, emu.NewException(emu.KindEcallFromM, pc)
		case insts.OpEBREAK:
			return result, emu.NewException(emu.KindBreakpoint, pc)
		}

	case insts.ClassPE:
		return result, s.pe.execute(ctx, inst, rs1, rs2)

	default:
		return result, emu.NewException(emu.KindIllegalInstruction, uint64(inst.Word))
	}

	return result, nil
}
