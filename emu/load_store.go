package emu

import "github.com/sarchlab/mur/insts"

// LoadStoreUnit implements RISC-V load and store semantics on top of the
// memory bus.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// EffectiveAddress returns base + offset for a load or store.
func (lsu *LoadStoreUnit) EffectiveAddress(inst *insts.Instruction, base uint64) uint64 {
	return base + uint64(inst.Imm)
}

// AccessSize returns the width of the access performed by inst.
func AccessSize(op insts.Op) Size {
	switch op {
	case insts.OpLB, insts.OpLBU, insts.OpSB:
		return Byte
	case insts.OpLH, insts.OpLHU, insts.OpSH:
		return Half
	case insts.OpLW, insts.OpLWU, insts.OpSW:
		return Word
	default:
		return Double
	}
}

// Load performs the memory read of a load and extends the result to 64 bits.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction, addr uint64) (uint64, error) {
	raw, err := lsu.memory.Load(addr, AccessSize(inst.Op))
	if err != nil {
		return 0, err
	}

	switch inst.Op {
	case insts.OpLB:
		return uint64(int64(int8(raw))), nil
	case insts.OpLH:
		return uint64(int64(int16(raw))), nil
	case insts.OpLW:
		return uint64(int64(int32(raw))), nil
	default:
		return raw, nil
	}
}

// Store writes the low bytes of value for a store instruction.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction, addr, value uint64) error {
	return lsu.memory.Store(addr, AccessSize(inst.Op), value)
}
