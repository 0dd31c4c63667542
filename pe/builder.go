package pe

import (
	"github.com/sarchlab/akita/v4/sim"
	"golang.org/x/sync/semaphore"
)

// Builder can create new PEs.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	memory Memory
}

// NewBuilder returns a builder with a 1 GHz clock.
func NewBuilder() Builder {
	return Builder{freq: 1 * sim.GHz}
}

// WithEngine sets the engine. The engine must not be shared with other
// components, since the PE runs it from its own goroutine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the PE.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMemory sets the memory the PE streams from and writes to.
func (b Builder) WithMemory(memory Memory) Builder {
	b.memory = memory
	return b
}

// Build creates a PE.
func (b Builder) Build(name string) *PE {
	if b.memory == nil {
		panic("pe: memory is required")
	}

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	p := &PE{
		engine: engine,
		mem:    b.memory,
		lock:   semaphore.NewWeighted(1),
	}
	p.TickingComponent = sim.NewTickingComponent(name, engine, b.freq, p)

	return p
}
