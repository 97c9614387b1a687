// Command kernelsim simulates a non-preemptive round-robin process
// scheduler and a paged virtual-memory manager, writing a cycle-by-cycle
// trace to a result file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pagesim/kernelsim/internal/cli"
	"github.com/pagesim/kernelsim/internal/sim"
)

func main() {
	var (
		output      = flag.String("output", "result", "trace output file path")
		watch       = flag.Bool("watch", false, "re-run the simulation whenever the program directory changes")
		verbose     = flag.Bool("verbose", false, "verbose diagnostic logging")
		debug       = flag.Bool("debug", false, "debug diagnostic logging")
		configPath  = flag.String("config", "", "path to a JSON config file; supplies program-dir/policy when positional args are omitted, and is written back with the resolved settings")
		showVersion = flag.Bool("version", false, "show version information")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [program-dir] [policy]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Simulates a round-robin process scheduler and paged VM subsystem,\n")
		fmt.Fprintf(os.Stderr, "writing a cycle-by-cycle trace.\n\n")
		fmt.Fprintf(os.Stderr, "policy is matched by substring containment of fifo, lru, lfu; else MFU.\n\n")
		fmt.Fprintf(os.Stderr, "program-dir and policy may instead come from -config's JSON file.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("kernelsim")
		return
	}

	cfg, err := cli.LoadConfig(*configPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	// Positional args override whatever the config file supplied; with no
	// positional args, a loaded config can still supply both.
	args := flag.Args()
	if len(args) >= 1 {
		cfg.ProgramDir = args[0]
	}
	if len(args) >= 2 {
		cfg.Policy = args[1]
	}
	if cfg.ProgramDir == "" || cfg.Policy == "" {
		flag.Usage()
		os.Exit(1)
	}
	cfg.OutputPath = *output
	cfg.Watch = *watch
	cfg.Verbose = *verbose

	if *configPath != "" {
		if err := cfg.Save(*configPath); err != nil {
			cli.ExitWithError("%v", err)
		}
	}

	logger := cli.NewLogger(cfg.Verbose, *debug)

	run := func() {
		policy := sim.ParsePolicy(cfg.Policy)
		s := sim.NewSimulator(cfg.ProgramDir, policy, logger)
		if err := s.Boot(); err != nil {
			logger.Error("simulation aborted: %v", err)
		}
		if err := os.WriteFile(cfg.OutputPath, []byte(s.Trace()), 0o644); err != nil {
			cli.ExitWithError("failed to write result file: %v", err)
		}
	}

	if cfg.Watch {
		if err := sim.WatchAndRun(cfg.ProgramDir, logger, run); err != nil {
			cli.ExitWithError("watch mode failed: %v", err)
		}
	} else {
		run()
	}

	// Always exits nonzero, even after a clean run with a trace written.
	os.Exit(1)
}
