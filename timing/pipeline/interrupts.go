package pipeline

import (
	"sync"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/pe"
)

// inbox buffers interrupts raised by PE goroutines until the hart's next
// cycle boundary.
type inbox struct {
	mu      sync.Mutex
	pending []pe.Interrupt
}

func (b *inbox) push(irq pe.Interrupt) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, irq)
}

func (b *inbox) drain() []pe.Interrupt {
	b.mu.Lock()
	defer b.mu.Unlock()

	irqs := b.pending
	b.pending = nil

	return irqs
}

// RaiseInterrupt queues a PE completion interrupt. It is safe to call from
// any goroutine; the interrupt becomes visible in the CSRs at the start of
// the next cycle.
func (p *Pipeline) RaiseInterrupt(irq pe.Interrupt) {
	p.inbox.push(irq)
}

func (p *Pipeline) deliverInterrupts() {
	for _, irq := range p.inbox.drain() {
		bit := uint64(1) << irq.Line

		p.csrs.Store(emu.CSRPEPending, p.csrs.Load(emu.CSRPEPending)|bit)
		p.csrs.Store(emu.CSRPEReturn0+uint16(irq.Line), irq.Value)

		status := p.csrs.Load(emu.CSRPEStatus) &^ bit
		if irq.Err != nil {
			status |= bit
		}
		p.csrs.Store(emu.CSRPEStatus, status)

		p.csrs.Store(emu.CSRMIP, p.csrs.Load(emu.CSRMIP)|emu.MIPMSIP)
		p.stats.Interrupts++

		emu.Trace("PE interrupt", "hart", p.pe.hartID, "line", irq.Line,
			"value", irq.Value, "err", irq.Err)
	}
}
