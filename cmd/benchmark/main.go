// Command benchmark runs the pipeline microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: table)
//	-core       Run only the core benchmarks
//	-no-icache  Disable the instruction cache model
//	-no-dcache  Disable the data cache model
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/mur/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	noICache := flag.Bool("no-icache", false, "Disable the instruction cache model")
	noDCache := flag.Bool("no-dcache", false, "Disable the data cache model")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.ICache.Enabled = !*noICache
	config.DCache.Enabled = !*noDCache
	config.Output = os.Stdout

	list := benchmarks.GetMicrobenchmarks()
	if *coreOnly {
		list = benchmarks.GetCoreBenchmarks()
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(list)

	if !*csvOutput {
		fmt.Printf("I-Cache: %v, D-Cache: %v\n\n", config.ICache.Enabled, config.DCache.Enabled)
	}

	results := harness.RunAll(context.Background())

	if *csvOutput {
		harness.PrintCSV(results)
	} else {
		harness.PrintResults(results)
	}

	code := 0
	for i, r := range results {
		if !r.Correct(list[i]) {
			fmt.Fprintf(os.Stderr, "%s: wrong result %d (want %d), exit %s\n",
				r.Name, r.Result, list[i].ExpectedResult, r.ExitReason)
			code = 1
		}
	}

	atexit.Exit(code)
}
