package pipeline

import (
	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/insts"
	"github.com/sarchlab/mur/timing/cache"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory *emu.Memory
	icache *cache.Cache
}

// NewFetchStage creates a new fetch stage. icache may be nil.
func NewFetchStage(memory *emu.Memory, icache *cache.Cache) *FetchStage {
	return &FetchStage{
		memory: memory,
		icache: icache,
	}
}

// Fetch fills an empty fetch latch with the word at st.PC. It reports
// whether a word was latched.
func (s *FetchStage) Fetch(st *State) (bool, error) {
	if st.Fetch.Valid {
		return false, nil
	}

	word, err := s.memory.Fetch(st.PC)
	if err != nil {
		return false, err
	}

	if s.icache != nil {
		s.icache.Access(st.PC, false)
	}

	st.Fetch = FetchLatch{
		Valid:           true,
		PC:              st.PC,
		InstructionWord: word,
	}

	return true, nil
}

// DecodeStage relays fetched words to Execute and classifies them.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{
		decoder: insts.NewDecoder(),
	}
}

// Decode moves the fetch latch into an empty decode latch. It reports
// whether an instruction moved.
func (s *DecodeStage) Decode(st *State) bool {
	if st.Decode.Valid || !st.Fetch.Valid {
		return false
	}

	st.Decode = DecodeLatch{
		Valid:           true,
		PC:              st.Fetch.PC,
		InstructionWord: st.Fetch.InstructionWord,
		Inst:            s.decoder.Decode(st.Fetch.InstructionWord),
	}
	st.Fetch.Clear()

	return true
}

// WritebackStage commits register results and buffered loads, and applies
// resolved branch targets.
type WritebackStage struct {
	regFile *emu.RegFile
	lsu     *emu.LoadStoreUnit
	dcache  *cache.Cache
}

// NewWritebackStage creates a new writeback stage. dcache may be nil.
func NewWritebackStage(
	regFile *emu.RegFile,
	lsu *emu.LoadStoreUnit,
	dcache *cache.Cache,
) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
		lsu:     lsu,
		dcache:  dcache,
	}
}

// WritebackResult reports what the writeback stage did in one cycle.
type WritebackResult struct {
	// RegWritten is true if a scheduled register result was applied.
	RegWritten bool
	// LoadCommitted is true if a load completed.
	LoadCommitted bool
	// Redirected is true if the pc was overwritten by a branch target.
	Redirected bool
	// Target is the new pc when Redirected is true.
	Target uint64
}

// Writeback runs the four writeback steps in order: apply the scheduled
// result, commit the older load, shift the load buffer, and redirect on a
// pending branch. A recoverable load exception is returned after the
// remaining steps have run.
func (s *WritebackStage) Writeback(st *State) (WritebackResult, error) {
	var result WritebackResult

	if st.Writeback.Valid {
		s.regFile.WriteReg(st.Writeback.Rd, st.Writeback.Value)
		st.Writeback.Clear()
		result.RegWritten = true
	}

	loadErr := s.commitLoad(st, &result)
	if emu.IsFatal(loadErr) {
		return result, loadErr
	}

	if st.LoadBuffer[LoadSlotNew].Valid && !st.LoadBuffer[LoadSlotOld].Valid {
		st.LoadBuffer[LoadSlotOld] = st.LoadBuffer[LoadSlotNew]
		st.LoadBuffer[LoadSlotNew].Clear()
	}

	if st.Branch.Valid {
		st.PC = st.Branch.Target
		st.Flush()
		st.Branch.Clear()
		result.Redirected = true
		result.Target = st.PC
	}

	return result, loadErr
}

func (s *WritebackStage) commitLoad(st *State, result *WritebackResult) error {
	slot := &st.LoadBuffer[LoadSlotOld]
	if !slot.Valid {
		return nil
	}

	load := *slot
	slot.Clear()

	if s.dcache != nil {
		s.dcache.Access(load.Addr, false)
	}

	value, err := s.lsu.Load(load.Inst, load.Addr)
	if err != nil {
		return err
	}

	s.regFile.WriteReg(load.Inst.Rd, value)
	result.LoadCommitted = true

	return nil
}
