package emu

import "github.com/sarchlab/mur/insts"

// CSR indices used by the simulator.
const (
	CSRMStatus  uint16 = 0x300
	CSRMISA     uint16 = 0x301
	CSRMIE      uint16 = 0x304
	CSRMTVec    uint16 = 0x305
	CSRMScratch uint16 = 0x340
	CSRMEPC     uint16 = 0x341
	CSRMCause   uint16 = 0x342
	CSRMTVal    uint16 = 0x343
	CSRMIP      uint16 = 0x344
	CSRMHartID  uint16 = 0xF14

	// CSRPEPending has bit n set while PE interrupt line n awaits handling.
	CSRPEPending uint16 = 0x7C0
	// CSRPEStatus has bit n set when the command completing on line n failed.
	CSRPEStatus uint16 = 0x7C1
	// CSRPEReturn0 is the return value of line 0; line n is at CSRPEReturn0+n.
	CSRPEReturn0 uint16 = 0x7C8
)

// MIPMSIP is the machine software interrupt pending bit of mip.
const MIPMSIP uint64 = 1 << 3

// CSRFile is the control and status register bank. Reads of unwritten
// indices return zero and accesses have no side effects.
type CSRFile struct {
	regs map[uint16]uint64
}

// NewCSRFile creates an empty CSR bank.
func NewCSRFile() *CSRFile {
	return &CSRFile{regs: make(map[uint16]uint64)}
}

// Load returns the value of CSR index.
func (c *CSRFile) Load(index uint16) uint64 {
	return c.regs[index]
}

// Store replaces the value of CSR index.
func (c *CSRFile) Store(index uint16, value uint64) {
	c.regs[index] = value
}

// Reset clears every CSR back to zero.
func (c *CSRFile) Reset() {
	clear(c.regs)
}

// Exchange performs the read-modify-write of a Zicsr instruction and returns
// the previous value. operand is the rs1 value, or the zero-extended uimm
// for the immediate forms.
func (c *CSRFile) Exchange(inst *insts.Instruction, operand uint64) uint64 {
	old := c.Load(inst.CSR)

	var next uint64
	switch inst.Op {
	case insts.OpCSRRW, insts.OpCSRRWI:
		next = operand
	case insts.OpCSRRS, insts.OpCSRRSI:
		next = old | operand
	case insts.OpCSRRC, insts.OpCSRRCI:
		next = old &^ operand
	default:
		return old
	}

	c.Store(inst.CSR, next)
	return old
}
