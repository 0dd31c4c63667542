package emu

import "github.com/sarchlab/mur/insts"

// ALU implements the RV64I integer computational instructions.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute computes the result of an ALU-class instruction. rs1 and rs2 are
// the source register values and pc is the address of the instruction.
func (a *ALU) Execute(inst *insts.Instruction, pc, rs1, rs2 uint64) uint64 {
	imm := uint64(inst.Imm)

	switch inst.Op {
	case insts.OpLUI:
		return imm
	case insts.OpAUIPC:
		return pc + imm

	case insts.OpADDI:
		return rs1 + imm
	case insts.OpSLTI:
		return boolToU64(int64(rs1) < inst.Imm)
	case insts.OpSLTIU:
		return boolToU64(rs1 < imm)
	case insts.OpXORI:
		return rs1 ^ imm
	case insts.OpORI:
		return rs1 | imm
	case insts.OpANDI:
		return rs1 & imm
	case insts.OpSLLI:
		return rs1 << (imm & 0x3F)
	case insts.OpSRLI:
		return rs1 >> (imm & 0x3F)
	case insts.OpSRAI:
		return uint64(int64(rs1) >> (imm & 0x3F))

	case insts.OpADD:
		return rs1 + rs2
	case insts.OpSUB:
		return rs1 - rs2
	case insts.OpSLL:
		return rs1 << (rs2 & 0x3F)
	case insts.OpSLT:
		return boolToU64(int64(rs1) < int64(rs2))
	case insts.OpSLTU:
		return boolToU64(rs1 < rs2)
	case insts.OpXOR:
		return rs1 ^ rs2
	case insts.OpSRL:
		return rs1 >> (rs2 & 0x3F)
	case insts.OpSRA:
		return uint64(int64(rs1) >> (rs2 & 0x3F))
	case insts.OpOR:
		return rs1 | rs2
	case insts.OpAND:
		return rs1 & rs2

	case insts.OpADDIW:
		return sext32(uint32(rs1) + uint32(imm))
	case insts.OpSLLIW:
		return sext32(uint32(rs1) << (imm & 0x1F))
	case insts.OpSRLIW:
		return sext32(uint32(rs1) >> (imm & 0x1F))
	case insts.OpSRAIW:
		return sext32(uint32(int32(rs1) >> (imm & 0x1F)))
	case insts.OpADDW:
		return sext32(uint32(rs1) + uint32(rs2))
	case insts.OpSUBW:
		return sext32(uint32(rs1) - uint32(rs2))
	case insts.OpSLLW:
		return sext32(uint32(rs1) << (rs2 & 0x1F))
	case insts.OpSRLW:
		return sext32(uint32(rs1) >> (rs2 & 0x1F))
	case insts.OpSRAW:
		return sext32(uint32(int32(rs1) >> (rs2 & 0x1F)))
	}

	return 0
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func sext32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}
