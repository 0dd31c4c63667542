// Package main provides the entry point for mur, a cycle-level RISC-V
// pipeline simulator with a near-memory processing element.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mur/config"
	"github.com/sarchlab/mur/emu"
	"github.com/sarchlab/mur/loader"
	"github.com/sarchlab/mur/platform"
	"github.com/sarchlab/mur/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)

	atexit.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath  string
	harts       int
	maxCycles   uint64
	metricsPath string
	functional  bool
	verbose     bool
	image       string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("mur", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to a machine configuration (JSON or YAML)")
	fs.IntVar(&opts.harts, "harts", 0, "Number of harts (overrides the configuration)")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Cycle budget per hart (overrides the configuration)")
	fs.StringVar(&opts.metricsPath, "metrics", "", "Write statistics as a Prometheus textfile")
	fs.BoolVar(&opts.functional, "functional", false, "Run one hart on the functional emulator, without timing")
	fs.BoolVar(&opts.verbose, "v", false, "Trace pipeline events")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mur [options] <image>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one image")
	}
	opts.image = fs.Arg(0)

	return opts, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	if opts.harts != 0 {
		cfg.Harts = opts.harts
	}
	if opts.maxCycles != 0 {
		cfg.MaxCycles = opts.maxCycles
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// run simulates the image named in args and returns the exit code: 0 when
// every hart ended at the halt marker or on its budget, 1 otherwise.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 1
	}

	if opts.verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(stderr,
			&slog.HandlerOptions{Level: emu.LevelTrace})))
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	img, err := loader.Load(opts.image)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading image: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Image: %s (%s, %s) into %s of RAM at %#x\n",
		opts.image, img.Format, humanize.IBytes(uint64(len(img.Data))),
		humanize.IBytes(cfg.RAMSize), cfg.RAMBase)

	if opts.functional {
		return runFunctional(ctx, cfg, img, stdout, stderr)
	}

	machine, err := platform.New(cfg, img)
	if err != nil {
		fmt.Fprintf(stderr, "Error building machine: %v\n", err)
		return 1
	}

	results, runErr := machine.Run(ctx)

	for i, r := range results {
		fmt.Fprintf(stdout, "\nHart %d: %s", r.Hart, r.Reason)
		if r.Err != nil {
			fmt.Fprintf(stdout, " (%v)", r.Err)
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, report.RegisterTable(
			fmt.Sprintf("Hart %d registers", r.Hart),
			machine.Cores()[i].Pipeline.Registers()))
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, report.StatsTable(results))

	if opts.metricsPath != "" {
		if err := report.WriteMetrics(opts.metricsPath, results); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return 1
	}

	return 0
}

func runFunctional(ctx context.Context, cfg *config.Config, img *loader.Image, stdout, stderr io.Writer) int {
	if uint64(len(img.Data)) > cfg.RAMSize {
		fmt.Fprintf(stderr, "Error: %v\n", platform.ErrImageTooLarge)
		return 1
	}

	var memOpts []emu.MemoryOption
	if cfg.StrictAlignment {
		memOpts = append(memOpts, emu.WithStrictAlignment())
	}
	memory := emu.NewMemory(cfg.RAMBase, cfg.RAMSize, img.Data, memOpts...)

	e := emu.NewEmulator(memory, emu.WithMaxInstructions(cfg.MaxCycles))
	e.SetPC(cfg.RAMBase + img.EntryOffset())

	err := e.Run(ctx)

	fmt.Fprintf(stdout, "\nInstructions: %d, traps: %d\n", e.InstructionCount(), len(e.Traps()))
	fmt.Fprintln(stdout, report.RegisterTable("Registers", e.RegFile().Snapshot()))

	exc, ok := emu.AsException(err)
	switch {
	case errors.Is(err, emu.ErrInstructionLimit):
		fmt.Fprintln(stdout, "Stopped: instruction budget exhausted")
	case ok && exc.Kind == emu.KindIllegalInstruction:
		fmt.Fprintf(stdout, "Stopped: halt marker (%v)\n", err)
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
