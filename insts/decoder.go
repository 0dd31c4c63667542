package insts

import "fmt"

// Op represents a RISC-V operation.
type Op uint16

// RISC-V operations.
const (
	OpUnknown Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU

	OpSB
	OpSH
	OpSW
	OpSD

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	OpFENCE
	OpECALL
	OpEBREAK

	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	OpPEStream
	OpPEMap
	OpPEConsume
	OpPEIssue

	numOps
)

var opNames = [numOps]string{
	OpUnknown: "unknown",
	OpLUI:     "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLD: "ld", OpLBU: "lbu", OpLHU: "lhu", OpLWU: "lwu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSD: "sd",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori",
	OpANDI: "andi", OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpADDIW: "addiw", OpSLLIW: "slliw", OpSRLIW: "srliw", OpSRAIW: "sraiw",
	OpADDW: "addw", OpSUBW: "subw", OpSLLW: "sllw", OpSRLW: "srlw", OpSRAW: "sraw",
	OpFENCE: "fence", OpECALL: "ecall", OpEBREAK: "ebreak",
	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc",
	OpCSRRWI: "csrrwi", OpCSRRSI: "csrrsi", OpCSRRCI: "csrrci",
	OpPEStream: "pe.stream", OpPEMap: "pe.map", OpPEConsume: "pe.consume", OpPEIssue: "pe.issue",
}

func (op Op) String() string {
	if op >= numOps {
		return fmt.Sprintf("Op(%d)", uint16(op))
	}
	return opNames[op]
}

// Class groups operations by the way the execute stage handles them.
type Class uint8

// Instruction classes.
const (
	ClassUnknown Class = iota
	ClassALU
	ClassLoad
	ClassStore
	ClassBranch
	ClassJump
	ClassCSR
	ClassSystem
	ClassPE
)

// Major opcodes (bits [6:0]).
const (
	opcodeLoad    = 0b0000011
	opcodeCustom0 = 0b0001011
	opcodeMiscMem = 0b0001111
	opcodeOpImm   = 0b0010011
	opcodeAUIPC   = 0b0010111
	opcodeOpImm32 = 0b0011011
	opcodeStore   = 0b0100011
	opcodeOp      = 0b0110011
	opcodeLUI     = 0b0110111
	opcodeOp32    = 0b0111011
	opcodeBranch  = 0b1100011
	opcodeJALR    = 0b1100111
	opcodeJAL     = 0b1101111
	opcodeSystem  = 0b1110011
)

// PE register-file geometry addressed by the custom-0 instructions.
const (
	// NumStreamRegs is the number of stream registers a hart can bind.
	NumStreamRegs = 8
	// NumPELines is the number of PE completion interrupt lines.
	NumPELines = 8
)

// Instruction represents a decoded RISC-V instruction.
type Instruction struct {
	Op    Op    // Operation
	Class Class // Execute-stage class

	Word   uint32 // Raw instruction word
	Rd     uint8  // Destination register (stream register or line for PE ops)
	Rs1    uint8  // First source register (uimm for CSR immediate forms)
	Rs2    uint8  // Second source register
	Funct3 uint8
	Funct7 uint8

	// Imm is the sign-extended immediate. For shifts it holds the shamt.
	Imm int64

	// CSR is the 12-bit CSR index of Zicsr instructions.
	CSR uint16
}

// SrcRegs returns the general-purpose registers the instruction reads.
func (i *Instruction) SrcRegs() []uint8 {
	switch i.Op {
	case OpLUI, OpAUIPC, OpJAL, OpFENCE, OpECALL, OpEBREAK,
		OpCSRRWI, OpCSRRSI, OpCSRRCI,
		OpPEMap, OpPEConsume, OpPEIssue, OpUnknown:
		return nil
	}

	switch i.Class {
	case ClassBranch, ClassStore, ClassPE:
		return []uint8{i.Rs1, i.Rs2}
	case ClassALU:
		if i.isRegReg() {
			return []uint8{i.Rs1, i.Rs2}
		}
		return []uint8{i.Rs1}
	default:
		return []uint8{i.Rs1}
	}
}

// WritesRd reports whether the instruction produces a register result.
func (i *Instruction) WritesRd() bool {
	switch i.Class {
	case ClassALU, ClassLoad, ClassJump, ClassCSR:
		return true
	}
	return false
}

func (i *Instruction) isRegReg() bool {
	opcode := i.Word & 0x7F
	return opcode == opcodeOp || opcode == opcodeOp32
}

// Decoder decodes RISC-V machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RISC-V instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RISC-V instruction word. Words that do not encode
// a supported instruction, including the all-zero word, decode to OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Word:   word,
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Funct7: uint8(word >> 25),
	}

	switch word & 0x7F {
	case opcodeLUI:
		inst.Op, inst.Class, inst.Imm = OpLUI, ClassALU, immU(word)
	case opcodeAUIPC:
		inst.Op, inst.Class, inst.Imm = OpAUIPC, ClassALU, immU(word)
	case opcodeJAL:
		inst.Op, inst.Class, inst.Imm = OpJAL, ClassJump, immJ(word)
	case opcodeJALR:
		if inst.Funct3 == 0 {
			inst.Op, inst.Class, inst.Imm = OpJALR, ClassJump, immI(word)
		}
	case opcodeBranch:
		d.decodeBranch(inst)
	case opcodeLoad:
		d.decodeLoad(inst)
	case opcodeStore:
		d.decodeStore(inst)
	case opcodeOpImm:
		d.decodeOpImm(inst)
	case opcodeOp:
		d.decodeOp(inst)
	case opcodeOpImm32:
		d.decodeOpImm32(inst)
	case opcodeOp32:
		d.decodeOp32(inst)
	case opcodeMiscMem:
		if inst.Funct3 <= 1 {
			inst.Op, inst.Class = OpFENCE, ClassSystem
		}
	case opcodeSystem:
		d.decodeSystem(inst)
	case opcodeCustom0:
		d.decodePE(inst)
	}

	return inst
}

func (d *Decoder) decodeBranch(inst *Instruction) {
	ops := [8]Op{OpBEQ, OpBNE, OpUnknown, OpUnknown, OpBLT, OpBGE, OpBLTU, OpBGEU}
	if op := ops[inst.Funct3]; op != OpUnknown {
		inst.Op, inst.Class, inst.Imm = op, ClassBranch, immB(inst.Word)
	}
}

func (d *Decoder) decodeLoad(inst *Instruction) {
	ops := [8]Op{OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU, OpUnknown}
	if op := ops[inst.Funct3]; op != OpUnknown {
		inst.Op, inst.Class, inst.Imm = op, ClassLoad, immI(inst.Word)
	}
}

func (d *Decoder) decodeStore(inst *Instruction) {
	ops := [8]Op{OpSB, OpSH, OpSW, OpSD}
	if op := ops[inst.Funct3]; op != OpUnknown {
		inst.Op, inst.Class, inst.Imm = op, ClassStore, immS(inst.Word)
	}
}

func (d *Decoder) decodeOpImm(inst *Instruction) {
	word := inst.Word
	inst.Class = ClassALU
	inst.Imm = immI(word)
	funct6 := word >> 26
	shamt := int64((word >> 20) & 0x3F)

	switch inst.Funct3 {
	case 0b000:
		inst.Op = OpADDI
	case 0b010:
		inst.Op = OpSLTI
	case 0b011:
		inst.Op = OpSLTIU
	case 0b100:
		inst.Op = OpXORI
	case 0b110:
		inst.Op = OpORI
	case 0b111:
		inst.Op = OpANDI
	case 0b001:
		if funct6 == 0 {
			inst.Op, inst.Imm = OpSLLI, shamt
		}
	case 0b101:
		switch funct6 {
		case 0b000000:
			inst.Op, inst.Imm = OpSRLI, shamt
		case 0b010000:
			inst.Op, inst.Imm = OpSRAI, shamt
		}
	}

	if inst.Op == OpUnknown {
		inst.Class = ClassUnknown
	}
}

func (d *Decoder) decodeOp(inst *Instruction) {
	var ops [8]Op
	switch inst.Funct7 {
	case 0b0000000:
		ops = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}
	case 0b0100000:
		ops = [8]Op{OpSUB, OpUnknown, OpUnknown, OpUnknown, OpUnknown, OpSRA}
	}
	if op := ops[inst.Funct3]; op != OpUnknown {
		inst.Op, inst.Class = op, ClassALU
	}
}

func (d *Decoder) decodeOpImm32(inst *Instruction) {
	shamt := int64(inst.Rs2)
	switch {
	case inst.Funct3 == 0b000:
		inst.Op, inst.Imm = OpADDIW, immI(inst.Word)
	case inst.Funct3 == 0b001 && inst.Funct7 == 0:
		inst.Op, inst.Imm = OpSLLIW, shamt
	case inst.Funct3 == 0b101 && inst.Funct7 == 0:
		inst.Op, inst.Imm = OpSRLIW, shamt
	case inst.Funct3 == 0b101 && inst.Funct7 == 0b0100000:
		inst.Op, inst.Imm = OpSRAIW, shamt
	}
	if inst.Op != OpUnknown {
		inst.Class = ClassALU
	}
}

func (d *Decoder) decodeOp32(inst *Instruction) {
	switch {
	case inst.Funct7 == 0 && inst.Funct3 == 0b000:
		inst.Op = OpADDW
	case inst.Funct7 == 0 && inst.Funct3 == 0b001:
		inst.Op = OpSLLW
	case inst.Funct7 == 0 && inst.Funct3 == 0b101:
		inst.Op = OpSRLW
	case inst.Funct7 == 0b0100000 && inst.Funct3 == 0b000:
		inst.Op = OpSUBW
	case inst.Funct7 == 0b0100000 && inst.Funct3 == 0b101:
		inst.Op = OpSRAW
	}
	if inst.Op != OpUnknown {
		inst.Class = ClassALU
	}
}

func (d *Decoder) decodeSystem(inst *Instruction) {
	if inst.Funct3 == 0 {
		switch inst.Word {
		case 0x00000073:
			inst.Op, inst.Class = OpECALL, ClassSystem
		case 0x00100073:
			inst.Op, inst.Class = OpEBREAK, ClassSystem
		}
		return
	}

	ops := [8]Op{OpUnknown, OpCSRRW, OpCSRRS, OpCSRRC, OpUnknown, OpCSRRWI, OpCSRRSI, OpCSRRCI}
	if op := ops[inst.Funct3]; op != OpUnknown {
		inst.Op, inst.Class = op, ClassCSR
		inst.CSR = uint16(inst.Word >> 20)
	}
}

// decodePE decodes the custom-0 PE command instructions:
//
//	funct3=0 pe.stream  sRd, rs1(base), rs2(count), funct7=log2(element size)
//	funct3=1 pe.map     sRd, sRs1, sRs2, funct7=map kind
//	funct3=2 pe.consume line(rd), sRs1, sRs2, funct7=consume kind
//	funct3=3 pe.issue
func (d *Decoder) decodePE(inst *Instruction) {
	switch inst.Funct3 {
	case 0:
		if inst.Rd < NumStreamRegs && inst.Funct7 <= 3 {
			inst.Op = OpPEStream
		}
	case 1:
		if inst.Rd < NumStreamRegs && inst.Rs1 < NumStreamRegs && inst.Rs2 < NumStreamRegs {
			inst.Op = OpPEMap
		}
	case 2:
		if inst.Rd < NumPELines && inst.Rs1 < NumStreamRegs && inst.Rs2 < NumStreamRegs {
			inst.Op = OpPEConsume
		}
	case 3:
		inst.Op = OpPEIssue
	}
	if inst.Op != OpUnknown {
		inst.Class = ClassPE
	}
}

func immI(word uint32) int64 {
	return int64(int32(word) >> 20)
}

func immS(word uint32) int64 {
	return int64(int32(word)>>25)<<5 | int64((word>>7)&0x1F)
}

func immB(word uint32) int64 {
	return int64(int32(word)>>31)<<12 |
		int64((word>>7)&0x1)<<11 |
		int64((word>>25)&0x3F)<<5 |
		int64((word>>8)&0xF)<<1
}

func immU(word uint32) int64 {
	return int64(int32(word & 0xFFFFF000))
}

func immJ(word uint32) int64 {
	return int64(int32(word)>>31)<<20 |
		int64((word>>12)&0xFF)<<12 |
		int64((word>>20)&0x1)<<11 |
		int64((word>>21)&0x3FF)<<1
}
