// Package emu provides the functional building blocks of the RISC-V core:
// register file, CSR bank, memory bus, exceptions and instruction semantics.
package emu

// RegFile represents the RISC-V integer register file.
// It contains 32 general-purpose registers; x0 always reads as 0.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	X [32]uint64
}

// NewRegFile creates a register file with the stack pointer (x2) set to sp.
func NewRegFile(sp uint64) *RegFile {
	r := &RegFile{}
	r.X[2] = sp
	return r
}

// ReadReg reads a register value. Register 0 and out-of-range registers
// return 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are discarded.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Snapshot returns a copy of all registers.
func (r *RegFile) Snapshot() [32]uint64 {
	return r.X
}
