package pe

import (
	"context"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/sarchlab/mur/emu"
)

// PE is a near-memory processing element. It runs one command sequence at a
// time; each tick of its engine processes one element index through the
// whole command chain.
type PE struct {
	*sim.TickingComponent

	engine sim.Engine
	mem    Memory

	// lock is held from issue until completion.
	lock *semaphore.Weighted
	exec *execution

	completed atomic.Uint64
	contended atomic.Uint64
}

// Issue validates seq and starts it. Invalid sequences are rejected before
// the PE is touched. While another sequence runs, Issue blocks until it
// completes or ctx is done.
func (p *PE) Issue(ctx context.Context, seq *Sequence, sink InterruptSink) error {
	if err := seq.Validate(); err != nil {
		return err
	}

	if !p.lock.TryAcquire(1) {
		p.contended.Inc()
		emu.Trace("PE busy, hart waiting", "pe", p.Name(), "hart", seq.Hart)

		if err := p.lock.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire PE %s: %w", p.Name(), err)
		}
	}

	emu.Trace("PE issue", "pe", p.Name(), "hart", seq.Hart, "seq", seq.ID,
		"commands", len(seq.Commands))

	exec := newExecution(seq, p.mem)
	p.exec = exec
	p.TickLater()

	go p.run(exec, sink)

	return nil
}

// Completed returns how many sequences have finished.
func (p *PE) Completed() uint64 {
	return p.completed.Load()
}

// Contended returns how many issues had to wait for the PE.
func (p *PE) Contended() uint64 {
	return p.contended.Load()
}

// Drain waits until no sequence is running.
func (p *PE) Drain(ctx context.Context) error {
	if err := p.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to drain PE %s: %w", p.Name(), err)
	}
	p.lock.Release(1)

	return nil
}

// Tick processes one element of the running sequence.
func (p *PE) Tick() (madeProgress bool) {
	exec := p.exec
	if exec == nil || exec.done() {
		return false
	}

	exec.step()

	return !exec.done()
}

func (p *PE) run(exec *execution, sink InterruptSink) {
	if err := p.engine.Run(); err != nil && exec.err == nil {
		exec.err = err
	}

	irq := exec.interrupt()
	emu.Trace("PE complete", "pe", p.Name(), "hart", irq.Hart, "seq", irq.SequenceID,
		"line", irq.Line, "value", irq.Value, "err", irq.Err)

	p.exec = nil
	p.completed.Inc()
	p.lock.Release(1)

	sink.RaiseInterrupt(irq)
}

type execution struct {
	seq     *Sequence
	mem     Memory
	length  uint64
	index   uint64
	results []uint64
	err     error
}

func newExecution(seq *Sequence, mem Memory) *execution {
	return &execution{
		seq:     seq,
		mem:     mem,
		length:  seq.Length(),
		results: make([]uint64, len(seq.Commands)),
	}
}

func (e *execution) done() bool {
	return e.err != nil || e.index >= e.length
}

func (e *execution) step() {
	i := e.index
	values := make(map[uint8]uint64)

	for ci, cmd := range e.seq.Commands {
		a, err := e.operand(values, cmd.SrcA, i)
		if err != nil {
			e.err = err
			return
		}

		switch cmd.Kind {
		case ConsumeStore:
			dst := e.seq.Streams[cmd.Dst].Desc
			if err := e.mem.Store(dst.Addr(i), dst.ElemSize, a); err != nil {
				e.err = fmt.Errorf("failed to store element %d: %w", i, err)
				return
			}
			e.results[ci]++
		case ConsumeSum:
			e.results[ci] += a
		default:
			b, err := e.operand(values, cmd.SrcB, i)
			if err != nil {
				e.err = err
				return
			}
			values[cmd.Dst] = apply(cmd.Kind, a, b)
		}
	}

	e.index++
}

func (e *execution) operand(values map[uint8]uint64, reg uint8, i uint64) (uint64, error) {
	if v, ok := values[reg]; ok {
		return v, nil
	}
	return e.seq.Streams[reg].Element(i)
}

func (e *execution) interrupt() Interrupt {
	cmd, idx := e.seq.Completion()

	return Interrupt{
		SequenceID: e.seq.ID,
		Hart:       e.seq.Hart,
		Line:       cmd.Line,
		Value:      e.results[idx],
		Err:        e.err,
	}
}

func apply(kind CommandKind, a, b uint64) uint64 {
	switch kind {
	case MapAdd:
		return a + b
	case MapSub:
		return a - b
	case MapMul:
		return a * b
	case MapAnd:
		return a & b
	case MapOr:
		return a | b
	case MapXor:
		return a ^ b
	}
	return 0
}
