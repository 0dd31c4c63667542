package emu

import "github.com/sarchlab/mur/insts"

// BranchUnit resolves conditional branches and jumps.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Taken evaluates the condition of a conditional branch.
func (b *BranchUnit) Taken(inst *insts.Instruction, rs1, rs2 uint64) bool {
	switch inst.Op {
	case insts.OpBEQ:
		return rs1 == rs2
	case insts.OpBNE:
		return rs1 != rs2
	case insts.OpBLT:
		return int64(rs1) < int64(rs2)
	case insts.OpBGE:
		return int64(rs1) >= int64(rs2)
	case insts.OpBLTU:
		return rs1 < rs2
	case insts.OpBGEU:
		return rs1 >= rs2
	}
	return false
}

// Target computes the destination of a branch or jump located at pc.
// JALR targets have their lowest bit cleared.
func (b *BranchUnit) Target(inst *insts.Instruction, pc, rs1 uint64) uint64 {
	if inst.Op == insts.OpJALR {
		return (rs1 + uint64(inst.Imm)) &^ 1
	}
	return pc + uint64(inst.Imm)
}

// Link returns the return address written by a jump located at pc.
func (b *BranchUnit) Link(pc uint64) uint64 {
	return pc + 4
}
