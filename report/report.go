// Package report renders the final machine state as tables and exports run
// statistics for Prometheus.
package report

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"github.com/sarchlab/mur/insts"
	"github.com/sarchlab/mur/platform"
)

// RegisterTable renders a register file, one register per row.
func RegisterTable(title string, regs [32]uint64) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Reg", "ABI", "Value"})

	for i, v := range regs {
		t.AppendRow(table.Row{
			fmt.Sprintf("x%d", i),
			insts.RegName(uint8(i)),
			fmt.Sprintf("0x%016x", v),
		})
	}

	return t.Render()
}

type statRow struct {
	name  string
	value func(r platform.Result) any
}

var statRows = []statRow{
	{"Cycles", func(r platform.Result) any { return r.Stats.Cycles }},
	{"Instructions", func(r platform.Result) any { return r.Stats.Instructions }},
	{"CPI", func(r platform.Result) any { return fmt.Sprintf("%.3f", r.Stats.CPI) }},
	{"Stalls", func(r platform.Result) any { return r.Stats.Stalls }},
	{"Flushes", func(r platform.Result) any { return r.Stats.Flushes }},
	{"ALU ops", func(r platform.Result) any { return r.Stats.ALUOps }},
	{"Memory ops", func(r platform.Result) any { return r.Stats.MemOps }},
	{"PE commands", func(r platform.Result) any { return r.Stats.PECommands }},
	{"Traps", func(r platform.Result) any { return r.Stats.Traps }},
	{"Interrupts", func(r platform.Result) any { return r.Stats.Interrupts }},
	{"Exit", func(r platform.Result) any { return r.Reason.String() }},
}

// StatsTable renders the statistics of every hart, one column per hart.
func StatsTable(results []platform.Result) string {
	t := table.NewWriter()
	t.SetTitle("Statistics")

	header := table.Row{"Stat"}
	header = append(header, lo.Map(results, func(r platform.Result, _ int) any {
		return fmt.Sprintf("hart %d", r.Hart)
	})...)
	t.AppendHeader(header)

	for _, row := range statRows {
		cells := table.Row{row.name}
		cells = append(cells, lo.Map(results, func(r platform.Result, _ int) any {
			return row.value(r)
		})...)
		t.AppendRow(cells)
	}

	return t.Render()
}

// Metrics holds the run gauges, labelled by hart.
type Metrics struct {
	registry *prometheus.Registry

	cycles       *prometheus.GaugeVec
	instructions *prometheus.GaugeVec
	stalls       *prometheus.GaugeVec
	flushes      *prometheus.GaugeVec
	aluOps       *prometheus.GaugeVec
	memOps       *prometheus.GaugeVec
	peCommands   *prometheus.GaugeVec
	traps        *prometheus.GaugeVec
	interrupts   *prometheus.GaugeVec
	success      *prometheus.GaugeVec
}

// NewMetrics registers the run gauges on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string) *prometheus.GaugeVec {
		return promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mur",
			Name:      name,
			Help:      help,
		}, []string{"hart"})
	}

	return &Metrics{
		registry:     reg,
		cycles:       gauge("cycles", "Cycles simulated."),
		instructions: gauge("instructions", "Instructions retired."),
		stalls:       gauge("stalls", "Cycles stalled on a load hazard."),
		flushes:      gauge("flushes", "Pipeline flushes on taken control flow."),
		aluOps:       gauge("alu_ops", "Integer computations executed."),
		memOps:       gauge("mem_ops", "Loads and stores executed."),
		peCommands:   gauge("pe_commands", "PE instructions executed."),
		traps:        gauge("traps", "Recoverable exceptions raised."),
		interrupts:   gauge("interrupts", "PE completion interrupts delivered."),
		success:      gauge("success", "1 if the hart ended normally."),
	}
}

// Registry returns the registry the gauges live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe sets the gauges of every hart in results.
func (m *Metrics) Observe(results []platform.Result) {
	for _, r := range results {
		hart := prometheus.Labels{"hart": strconv.Itoa(r.Hart)}

		m.cycles.With(hart).Set(float64(r.Stats.Cycles))
		m.instructions.With(hart).Set(float64(r.Stats.Instructions))
		m.stalls.With(hart).Set(float64(r.Stats.Stalls))
		m.flushes.With(hart).Set(float64(r.Stats.Flushes))
		m.aluOps.With(hart).Set(float64(r.Stats.ALUOps))
		m.memOps.With(hart).Set(float64(r.Stats.MemOps))
		m.peCommands.With(hart).Set(float64(r.Stats.PECommands))
		m.traps.With(hart).Set(float64(r.Stats.Traps))
		m.interrupts.With(hart).Set(float64(r.Stats.Interrupts))
		m.success.With(hart).Set(lo.Ternary(r.Success(), 1.0, 0.0))
	}
}

// WriteMetrics writes the statistics of results to path in the text
// exposition format read by the node exporter's textfile collector.
func WriteMetrics(path string, results []platform.Result) error {
	m := NewMetrics()
	m.Observe(results)

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}
