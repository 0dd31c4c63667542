// Package core provides the hart model. It wraps the pipeline
// implementation and classifies how a run ended.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/timing/pipeline"
)

// ExitReason tells why a hart stopped.
type ExitReason int

const (
	// ExitRunning means the hart has not stopped.
	ExitRunning ExitReason = iota
	// ExitHaltMarker means the hart executed an illegal instruction, which
	// is how programs end.
	ExitHaltMarker
	// ExitBudget means the hart used its cycle budget.
	ExitBudget
	// ExitHalted means the hart was stopped by Halt.
	ExitHalted
	// ExitCanceled means the run context was canceled.
	ExitCanceled
	// ExitFault means the hart stopped on any other fatal error.
	ExitFault
)

func (r ExitReason) String() string {
	switch r {
	case ExitRunning:
		return "running"
	case ExitHaltMarker:
		return "halt marker"
	case ExitBudget:
		return "cycle budget exhausted"
	case ExitHalted:
		return "halted"
	case ExitCanceled:
		return "canceled"
	case ExitFault:
		return "fault"
	default:
		return fmt.Sprintf("ExitReason(%d)", int(r))
	}
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// ALUOps is the number of integer computations.
	ALUOps uint64
	// MemOps is the number of loads and stores.
	MemOps uint64
	// PECommands is the number of PE instructions.
	PECommands uint64
	// Traps is the number of recoverable exceptions.
	Traps uint64
	// Interrupts is the number of PE interrupts delivered.
	Interrupts uint64
	// CPI is cycles per retired instruction.
	CPI float64
}

// Core represents one hart.
type Core struct {
	// Pipeline is the underlying 4-stage pipeline.
	Pipeline *pipeline.Pipeline

	reason ExitReason
	err    error
}

// NewCore creates a hart over memory.
func NewCore(memory *emu.Memory, opts ...pipeline.PipelineOption) *Core {
	return &Core{
		Pipeline: pipeline.NewPipeline(memory, opts...),
	}
}

// ID returns the hart identifier.
func (c *Core) ID() int {
	return c.Pipeline.HartID()
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint64) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() error {
	return c.Pipeline.Tick()
}

// Halt stops the core at the next cycle boundary.
func (c *Core) Halt() {
	c.Pipeline.Halt()
}

// Halted returns true if the core has stopped.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls:       pipeStats.Stalls,
		Flushes:      pipeStats.Flushes,
		ALUOps:       pipeStats.ALUOps,
		MemOps:       pipeStats.MemOps(),
		PECommands:   pipeStats.PECommands,
		Traps:        pipeStats.Traps,
		Interrupts:   pipeStats.Interrupts,
		CPI:          pipeStats.CPI(),
	}
}

// Run executes the core until it stops and records why. It returns the
// error that stopped the pipeline, or nil when the budget ran out or the
// core was halted.
func (c *Core) Run(ctx context.Context) error {
	err := c.Pipeline.Execute(ctx)
	c.reason, c.err = c.classify(err), err
	return err
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	running, err := c.Pipeline.RunCycles(cycles)
	if !running {
		c.reason, c.err = c.classify(err), err
	}
	return running, err
}

// ExitReason returns why the last run stopped.
func (c *Core) ExitReason() ExitReason {
	return c.reason
}

// Err returns the error that stopped the last run.
func (c *Core) Err() error {
	return c.err
}

// Success reports whether the last run ended normally: at the halt marker,
// on its cycle budget or by Halt.
func (c *Core) Success() bool {
	switch c.reason {
	case ExitHaltMarker, ExitBudget, ExitHalted:
		return true
	}
	return false
}

func (c *Core) classify(err error) ExitReason {
	if err == nil {
		if c.Pipeline.Halted() {
			return ExitHalted
		}
		return ExitBudget
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitCanceled
	}

	if exc, ok := emu.AsException(err); ok && exc.Kind == emu.KindIllegalInstruction {
		return ExitHaltMarker
	}

	return ExitFault
}
