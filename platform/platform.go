// Package platform assembles a machine: one memory bus, one processing
// element and a number of harts that share both.
package platform

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/mur/config"
	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/loader"
	"github.com/sarchlab/mur/pe"
	"github.com/sarchlab/mur/timing/core"
	"github.com/sarchlab/mur/timing/pipeline"
)

// ErrImageTooLarge is returned when the image does not fit in RAM.
var ErrImageTooLarge = errors.New("image does not fit in RAM")

// Result describes how one hart ended.
type Result struct {
	Hart   int
	Reason core.ExitReason
	Err    error
	Stats  core.Stats
}

// Success reports whether the hart ended normally.
func (r Result) Success() bool {
	switch r.Reason {
	case core.ExitHaltMarker, core.ExitBudget, core.ExitHalted:
		return true
	}
	return false
}

// Platform is a simulated machine.
type Platform struct {
	config *config.Config
	bus    *emu.Memory
	pe     *pe.PE
	cores  []*core.Core
}

// New builds a machine from cfg and places image at the bottom of RAM.
// Every hart starts at the image entry point.
func New(cfg *config.Config, image *loader.Image) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if uint64(len(image.Data)) > cfg.RAMSize {
		return nil, fmt.Errorf("%d bytes into %d: %w", len(image.Data), cfg.RAMSize, ErrImageTooLarge)
	}

	entry := cfg.RAMBase + image.EntryOffset()
	if entry >= cfg.RAMBase+cfg.RAMSize {
		return nil, fmt.Errorf("entry point %#x is outside RAM", entry)
	}

	var memOpts []emu.MemoryOption
	if cfg.StrictAlignment {
		memOpts = append(memOpts, emu.WithStrictAlignment())
	}

	data := make([]byte, len(image.Data))
	copy(data, image.Data)

	p := &Platform{
		config: cfg.Clone(),
		bus:    emu.NewMemory(cfg.RAMBase, cfg.RAMSize, data, memOpts...),
	}

	p.pe = pe.NewBuilder().
		WithFreq(cfg.PE.Freq()).
		WithMemory(p.bus).
		Build("PE")

	for i := 0; i < cfg.Harts; i++ {
		c := core.NewCore(p.bus, p.hartOptions(i)...)
		c.SetPC(entry)
		p.cores = append(p.cores, c)
	}

	return p, nil
}

func (p *Platform) hartOptions(hart int) []pipeline.PipelineOption {
	opts := []pipeline.PipelineOption{
		pipeline.WithHartID(hart),
		pipeline.WithPE(p.pe),
		pipeline.WithStreamPrefetch(p.config.PE.Prefetch),
		pipeline.WithMaxCycles(p.config.MaxCycles),
	}
	if p.config.ICache.Enabled {
		opts = append(opts, pipeline.WithICache(p.config.ICache.Config))
	}
	if p.config.DCache.Enabled {
		opts = append(opts, pipeline.WithDCache(p.config.DCache.Config))
	}

	return opts
}

// Bus returns the shared memory bus.
func (p *Platform) Bus() *emu.Memory {
	return p.bus
}

// PE returns the processing element.
func (p *Platform) PE() *pe.PE {
	return p.pe
}

// Cores returns the harts, indexed by hart ID.
func (p *Platform) Cores() []*core.Core {
	return p.cores
}

// Run runs every hart concurrently until each stops. A hart that faults
// cancels the others. Run returns one result per hart and the first error
// that did not end a hart normally.
func (p *Platform) Run(ctx context.Context) ([]Result, error) {
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range p.cores {
		g.Go(func() error {
			if err := c.Run(gctx); err != nil && !c.Success() {
				return err
			}
			return nil
		})
	}

	runErr := g.Wait()

	// Sequences issued just before a hart stopped still complete.
	if err := p.pe.Drain(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}

	results := make([]Result, 0, len(p.cores))
	for _, c := range p.cores {
		results = append(results, Result{
			Hart:   c.ID(),
			Reason: c.ExitReason(),
			Err:    c.Err(),
			Stats:  c.Stats(),
		})
	}

	return results, runErr
}
