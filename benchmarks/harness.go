// Package benchmarks provides microbenchmarks that characterize the
// pipeline: throughput, hazards, control flow and cache behaviour.
package benchmarks

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/mur/config"
	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/timing/core"
	"github.com/sarchlab/mur/timing/pipeline"
)

// Programs load at programBase. Data lives at dataBase.
const (
	programBase = 0x0
	dataBase    = 0x400
	memorySize  = 0x10000
)

// Benchmark is a program with a known result.
type Benchmark struct {
	Name        string
	Description string
	Program     []uint32

	// ResultReg holds ExpectedResult when the program ends.
	ResultReg      uint8
	ExpectedResult uint64
}

// BenchmarkResult holds the statistics of one benchmark run.
type BenchmarkResult struct {
	Name        string
	Description string

	SimulatedCycles     uint64
	InstructionsRetired uint64
	CPI                 float64
	StallCycles         uint64
	PipelineFlushes     uint64

	ICacheHits   uint64
	ICacheMisses uint64
	DCacheHits   uint64
	DCacheMisses uint64

	ExitReason core.ExitReason
	Result     uint64
	WallTime   time.Duration
}

// Correct reports whether the program ended at the halt marker with the
// expected result.
func (r BenchmarkResult) Correct(b Benchmark) bool {
	return r.ExitReason == core.ExitHaltMarker && r.Result == b.ExpectedResult
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// ICache and DCache select the cache models.
	ICache config.CacheConfig
	DCache config.CacheConfig

	// MaxCycles bounds each run.
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a harness with both caches enabled.
func DefaultConfig() HarnessConfig {
	machine := config.DefaultConfig()
	machine.ICache.Enabled = true
	machine.DCache.Enabled = true

	return HarnessConfig{
		ICache:    machine.ICache,
		DCache:    machine.DCache,
		MaxCycles: 1_000_000,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll(ctx context.Context) []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(ctx, bench))
	}
	return results
}

func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) BenchmarkResult {
	memory := emu.NewMemory(programBase, memorySize, nil)
	memory.LoadProgram(programBase, bench.Program...)

	opts := []pipeline.PipelineOption{pipeline.WithMaxCycles(h.config.MaxCycles)}
	if h.config.ICache.Enabled {
		opts = append(opts, pipeline.WithICache(h.config.ICache.Config))
	}
	if h.config.DCache.Enabled {
		opts = append(opts, pipeline.WithDCache(h.config.DCache.Config))
	}

	c := core.NewCore(memory, opts...)

	start := time.Now()
	_ = c.Run(ctx)
	wallTime := time.Since(start)

	stats := c.Pipeline.Stats()

	return BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		PipelineFlushes:     stats.Flushes,
		ICacheHits:          stats.ICacheHits,
		ICacheMisses:        stats.ICacheMisses,
		DCacheHits:          stats.DCacheHits,
		DCacheMisses:        stats.DCacheMisses,
		ExitReason:          c.ExitReason(),
		Result:              c.Pipeline.ReadReg(bench.ResultReg),
		WallTime:            wallTime,
	}
}

// PrintResults writes the results as a table.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	t := table.NewWriter()
	t.SetTitle("Benchmark Results")
	t.AppendHeader(table.Row{
		"Benchmark", "Cycles", "Insts", "CPI", "Stalls", "Flushes",
		"I$ hit/miss", "D$ hit/miss", "Exit",
	})

	for _, r := range results {
		t.AppendRow(table.Row{
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			fmt.Sprintf("%.3f", r.CPI),
			r.StallCycles,
			r.PipelineFlushes,
			fmt.Sprintf("%d/%d", r.ICacheHits, r.ICacheMisses),
			fmt.Sprintf("%d/%d", r.DCacheHits, r.DCacheMisses),
			r.ExitReason.String(),
		})
	}

	_, _ = fmt.Fprintln(h.config.Output, t.Render())
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,flushes,icache_hits,icache_misses,dcache_hits,dcache_misses,exit")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%s\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.PipelineFlushes,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.ExitReason,
		)
	}
}
