package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/insts"
	"github.com/sarchlab/mur/pe"
	"github.com/sarchlab/mur/timing/cache"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired. Loads retire when
	// they commit from the load buffer.
	Instructions uint64
	// Stalls is the number of cycles Execute waited on a load hazard.
	Stalls uint64
	// Flushes is the number of pipeline flushes caused by taken control flow.
	Flushes uint64
	// ALUOps is the number of integer computations executed.
	ALUOps uint64
	// Loads is the number of loads committed.
	Loads uint64
	// Stores is the number of stores executed.
	Stores uint64
	// Branches is the number of conditional branches executed.
	Branches uint64
	// BranchesTaken is the number of conditional branches taken.
	BranchesTaken uint64
	// Jumps is the number of jal and jalr instructions executed.
	Jumps uint64
	// CSROps is the number of Zicsr instructions executed.
	CSROps uint64
	// Traps is the number of recoverable exceptions raised.
	Traps uint64
	// PECommands is the number of PE instructions executed.
	PECommands uint64
	// Interrupts is the number of PE completion interrupts delivered.
	Interrupts uint64

	ICacheHits   uint64
	ICacheMisses uint64
	DCacheHits   uint64
	DCacheMisses uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// MemOps returns the number of loads and stores.
func (s Statistics) MemOps() uint64 {
	return s.Loads + s.Stores
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithICache models an L1 instruction cache with the given configuration.
func WithICache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.icache = cache.New(config)
	}
}

// WithDCache models an L1 data cache with the given configuration.
func WithDCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = cache.New(config)
	}
}

// WithPE attaches the processing element that pe.issue hands sequences to.
// Without one, pe.issue is an illegal instruction.
func WithPE(issuer pe.Issuer) PipelineOption {
	return func(p *Pipeline) {
		p.pe.issuer = issuer
	}
}

// WithStreamPrefetch sets how many leading elements pe.stream loads eagerly.
func WithStreamPrefetch(n int) PipelineOption {
	return func(p *Pipeline) {
		p.pe.prefetch = n
	}
}

// WithHartID sets the hart identifier reported by mhartid.
func WithHartID(id int) PipelineOption {
	return func(p *Pipeline) {
		p.pe.hartID = id
	}
}

// WithMaxCycles bounds Execute. Zero means no bound.
func WithMaxCycles(n uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = n
	}
}

// Pipeline implements a 4-stage in-order RISC-V hart.
// Stages: Fetch -> Decode -> Execute -> Writeback, with a two-entry load
// buffer between Execute and Writeback.
type Pipeline struct {
	state State

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	writebackStage *WritebackStage

	icache *cache.Cache
	dcache *cache.Cache

	regFile *emu.RegFile
	csrs    *emu.CSRFile
	memory  *emu.Memory
	pe      peUnit

	inbox inbox

	maxCycles  uint64
	stats      Statistics
	exceptions []*emu.Exception

	halted  atomic.Bool
	haltErr error
}

// NewPipeline creates a hart over memory. The pc starts at the bottom of
// memory and sp at its last byte.
func NewPipeline(memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile: emu.NewRegFile(memory.End() - 1),
		csrs:    emu.NewCSRFile(),
		memory:  memory,
		pe: peUnit{
			memory:   memory,
			builder:  pe.NewSequenceBuilder(),
			prefetch: 1,
		},
	}
	p.state.PC = memory.Base()
	p.pe.sink = p

	for _, opt := range opts {
		opt(p)
	}

	p.csrs.Store(emu.CSRMHartID, uint64(p.pe.hartID))

	p.fetchStage = NewFetchStage(memory, p.icache)
	p.decodeStage = NewDecodeStage()
	p.executeStage = NewExecuteStage(p.regFile, p.csrs, memory, p.dcache)
	p.executeStage.pe = &p.pe
	p.writebackStage = NewWritebackStage(p.regFile, emu.NewLoadStoreUnit(memory), p.dcache)

	return p
}

// SetPC sets the address of the next fetch.
func (p *Pipeline) SetPC(pc uint64) {
	p.state.PC = pc
}

// PC returns the address of the next fetch.
func (p *Pipeline) PC() uint64 {
	return p.state.PC
}

// HartID returns the hart identifier.
func (p *Pipeline) HartID() int {
	return p.pe.hartID
}

// ReadReg returns the value of general-purpose register reg.
func (p *Pipeline) ReadReg(reg uint8) uint64 {
	return p.regFile.ReadReg(reg)
}

// WriteReg sets general-purpose register reg. Writes to x0 are discarded.
func (p *Pipeline) WriteReg(reg uint8, value uint64) {
	p.regFile.WriteReg(reg, value)
}

// Registers returns a copy of the register file.
func (p *Pipeline) Registers() [32]uint64 {
	return p.regFile.Snapshot()
}

// CSR returns the value of CSR index.
func (p *Pipeline) CSR(index uint16) uint64 {
	return p.csrs.Load(index)
}

// Memory returns the memory the pipeline fetches from.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// State returns a copy of the pipeline latches.
func (p *Pipeline) State() State {
	return p.state
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	stats := p.stats
	if p.icache != nil {
		cs := p.icache.Stats()
		stats.ICacheHits, stats.ICacheMisses = cs.Hits, cs.Misses
	}
	if p.dcache != nil {
		cs := p.dcache.Stats()
		stats.DCacheHits, stats.DCacheMisses = cs.Hits, cs.Misses
	}
	return stats
}

// ICache returns the instruction cache model, or nil.
func (p *Pipeline) ICache() *cache.Cache {
	return p.icache
}

// DCache returns the data cache model, or nil.
func (p *Pipeline) DCache() *cache.Cache {
	return p.dcache
}

// Exceptions returns the recoverable exceptions raised so far.
func (p *Pipeline) Exceptions() []*emu.Exception {
	return p.exceptions
}

// Halted returns true if the pipeline stopped.
func (p *Pipeline) Halted() bool {
	return p.halted.Load()
}

// Err returns the fatal error that stopped the pipeline, or nil.
func (p *Pipeline) Err() error {
	return p.haltErr
}

// Halt stops the pipeline at the next cycle boundary. It is safe to call
// from another goroutine.
func (p *Pipeline) Halt() {
	p.halted.Store(true)
}

// Tick advances the pipeline by one clock cycle.
func (p *Pipeline) Tick() error {
	return p.tick(context.Background())
}

// RunCycles runs the pipeline for up to cycles clock cycles. It returns
// false once the pipeline has halted.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles; i++ {
		if p.halted.Load() {
			return false, p.haltErr
		}
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	return !p.halted.Load(), nil
}

// Execute runs the pipeline until a fatal exception, Halt, the cycle bound
// or cancellation of ctx. The fatal exception is returned as raised; the
// illegal-instruction exception on the zero word is how programs end.
func (p *Pipeline) Execute(ctx context.Context) error {
	for !p.halted.Load() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hart %d stopped at cycle %d: %w", p.pe.hartID, p.stats.Cycles, err)
		}
		if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
			emu.Trace("cycle budget exhausted", "hart", p.pe.hartID, "cycles", p.stats.Cycles)
			return nil
		}
		if err := p.tick(ctx); err != nil {
			return err
		}
	}
	return p.haltErr
}

// tick evaluates the stages in reverse order so each stage sees the latch
// contents produced in the previous cycle.
func (p *Pipeline) tick(ctx context.Context) error {
	if p.halted.Load() {
		return p.haltErr
	}

	p.stats.Cycles++
	p.deliverInterrupts()

	st := &p.state

	// Stage 4: Writeback
	wb, err := p.writebackStage.Writeback(st)
	if wb.LoadCommitted {
		p.stats.Loads++
		p.stats.Instructions++
	}
	if wb.Redirected {
		p.stats.Flushes++
		emu.Trace("redirect", "hart", p.pe.hartID, "target", wb.Target)
	}
	if err := p.handle(err); err != nil {
		return err
	}

	// Stage 3: Execute
	ex, err := p.executeStage.Execute(ctx, st)
	p.count(ex, err)
	if err := p.handle(err); err != nil {
		return err
	}

	// Stage 2: Decode
	p.decodeStage.Decode(st)

	// Stage 1: Fetch
	fetched, err := p.fetchStage.Fetch(st)
	if err := p.handle(err); err != nil {
		return err
	}
	if fetched {
		st.PC += 4
	}

	return nil
}

func (p *Pipeline) count(ex ExecuteResult, err error) {
	if ex.Stalled {
		p.stats.Stalls++
		return
	}
	if !ex.Executed || err != nil {
		return
	}

	switch ex.Inst.Class {
	case insts.ClassLoad:
		return
	case insts.ClassALU:
		p.stats.ALUOps++
	case insts.ClassStore:
		p.stats.Stores++
	case insts.ClassBranch:
		p.stats.Branches++
		if ex.Taken {
			p.stats.BranchesTaken++
		}
	case insts.ClassJump:
		p.stats.Jumps++
	case insts.ClassCSR:
		p.stats.CSROps++
	case insts.ClassPE:
		p.stats.PECommands++
	}

	p.stats.Instructions++
}

// handle records a recoverable exception and returns nil, or halts the
// pipeline and returns a fatal error unchanged.
func (p *Pipeline) handle(err error) error {
	if err == nil {
		return nil
	}

	if emu.IsFatal(err) {
		emu.Trace("fatal exception", "hart", p.pe.hartID, "cycle", p.stats.Cycles, "err", err)
		p.haltErr = err
		p.halted.Store(true)
		return err
	}

	exc, _ := emu.AsException(err)
	p.exceptions = append(p.exceptions, exc)
	p.stats.Traps++
	emu.Trace("trap", "hart", p.pe.hartID, "kind", exc.Kind, "value", exc.Value)

	return nil
}
