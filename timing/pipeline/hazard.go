package pipeline

import (
	"github.com/samber/lo"

	"github.com/sarchlab/mur/insts"
)

// HazardUnit detects hazards against the load buffer.
//
// A load writes its destination only when it commits from the older load
// buffer slot, and there is no forwarding path from the buffer. An
// instruction that reads that register, or writes it, must wait until the
// load has committed.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectLoadHazard returns true if inst must stall behind the load in slot.
// x0 never causes a hazard.
func (h *HazardUnit) DetectLoadHazard(inst *insts.Instruction, slot *LoadSlot) bool {
	if inst == nil || !slot.Valid || slot.Inst.Rd == 0 {
		return false
	}

	rd := slot.Inst.Rd
	if lo.Contains(inst.SrcRegs(), rd) {
		return true
	}

	return inst.WritesRd() && inst.Rd == rd
}

// CanEnqueueLoad reports whether the load buffer has a free slot.
func (h *HazardUnit) CanEnqueueLoad(buffer *[2]LoadSlot) bool {
	return !buffer[LoadSlotNew].Valid || !buffer[LoadSlotOld].Valid
}
