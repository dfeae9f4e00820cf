// Tapir CLI - runs brainfuck programs with optional safety checks.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/tapir/history"
	"github.com/chazu/tapir/manifest"
	"github.com/chazu/tapir/server"
	"github.com/chazu/tapir/snapshot"
	"github.com/chazu/tapir/vm"
)

func main() {
	fileName := flag.String("f", "", "Read code from file (default is stdin)")
	dataSize := flag.Int("d", 0, "Data segment size in cells (default 30000)")
	boundsCheck := flag.Bool("b", false, "Enable bounds checking for the data segment")
	wrapCheck := flag.Bool("w", false, "Enable wrap checking for data cells")
	syntaxCheck := flag.Bool("s", false, "Enable strict syntax check")
	quiet := flag.Bool("q", false, "Only display output from the actual program")
	verbose := flag.Bool("v", false, "Verbose output")
	noManifest := flag.Bool("no-manifest", false, "Skip tapir.toml discovery")
	serveLSP := flag.Bool("serve-lsp", false, "Start the language server on stdio")
	historyPath := flag.String("history", "", "Record runs in the given SQLite ledger")
	listRuns := flag.Int("list", 0, "List the most recent recorded runs and exit")
	snapshotOut := flag.String("snapshot-out", "", "Write a machine snapshot when the run halts")
	resumePath := flag.String("resume", "", "Resume a previously written snapshot")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tapir [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs brainfuck code from a file or stdin against a fixed data tape.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tapir -f hello.bf            # Run a file\n")
		fmt.Fprintf(os.Stderr, "  tapir -b -w -f prog.bf       # Run with bounds and wrap checks\n")
		fmt.Fprintf(os.Stderr, "  tapir -d 1024 -f prog.bf     # Use a 1024-cell tape\n")
		fmt.Fprintf(os.Stderr, "  tapir -f p.bf -history runs.db   # Record the run in a ledger\n")
		fmt.Fprintf(os.Stderr, "  tapir -serve-lsp             # Start the language server\n")
	}
	flag.Parse()

	// Project manifest supplies defaults; explicit flags win.
	var mf *manifest.Manifest
	if !*noManifest {
		var err error
		mf, err = manifest.FindAndLoad(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if mf != nil && *verbose {
			fmt.Printf("Loaded manifest from %s\n", mf.Dir)
		}
	}

	cfg := vm.DefaultConfig()
	if mf != nil {
		cfg = mf.Config()
	}
	passed := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { passed[f.Name] = true })
	if passed["d"] {
		cfg.DataSize = *dataSize
	}
	if passed["b"] {
		cfg.BoundsCheck = *boundsCheck
	}
	if passed["w"] {
		cfg.WrapCheck = *wrapCheck
	}
	if passed["s"] {
		cfg.SyntaxCheck = *syntaxCheck
	}
	if passed["q"] {
		cfg.Quiet = *quiet
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *serveLSP {
		if err := server.NewLSP(cfg).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ledgerPath := *historyPath
	if ledgerPath == "" && mf != nil {
		ledgerPath = mf.HistoryPath()
	}

	if *listRuns > 0 {
		if ledgerPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -list needs a ledger (-history or tapir.toml)")
			os.Exit(1)
		}
		if err := printRuns(ledgerPath, *listRuns); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var store *history.Store
	if ledgerPath != "" {
		var err error
		store, err = history.Open(ledgerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	// Output streams to stdout; a side buffer feeds the ledger.
	var outBuf bytes.Buffer
	var w io.Writer = os.Stdout
	if store != nil {
		w = io.MultiWriter(os.Stdout, &outBuf)
	}
	sink := vm.NewWriterSink(w)
	source := vm.NewReaderSource(os.Stdin)
	if mf != nil {
		source.Sentinel = int8(mf.Run.EOF)
	}

	m, err := acquireMachine(cfg, *fileName, *resumePath, source, sink)
	if err != nil {
		if !cfg.Quiet {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	started := time.Now()
	runErr := m.Run()
	elapsed := time.Since(started)
	if err := sink.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Executed %d instructions in %v\n", m.Steps(), elapsed)
	}

	if *snapshotOut != "" {
		if err := snapshot.WriteFile(*snapshotOut, m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Wrote snapshot to %s\n", *snapshotOut)
		}
	}

	if store != nil {
		if _, err := store.RecordSession(m, outBuf.String(), runErr, started, elapsed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if runErr != nil {
		if !cfg.Quiet {
			fmt.Printf("Error: %s\n", formatFailure(m, runErr))
		}
		os.Exit(1)
	}
}

// acquireMachine builds the session machine from a snapshot, a file, or
// interactively read stdin code, in that order of preference.
func acquireMachine(cfg vm.Config, fileName, resumePath string, in vm.InputSource, out vm.OutputSink) (*vm.Machine, error) {
	if resumePath != "" {
		snap, err := snapshot.ReadFile(resumePath)
		if err != nil {
			return nil, err
		}
		// The snapshot carries its own session configuration.
		return snap.Resume(in, out)
	}

	if fileName != "" {
		prog, err := vm.LoadProgramFile(fileName)
		if err != nil {
			return nil, err
		}
		return vm.NewMachine(prog, cfg, in, out), nil
	}

	if !cfg.Quiet {
		fmt.Println("Type in the code (issue ^D to stop):")
	}
	prog, err := vm.LoadProgram(os.Stdin)
	if err != nil {
		return nil, err
	}
	if !cfg.Quiet {
		fmt.Println("Running the program...")
	}
	return vm.NewMachine(prog, cfg, in, out), nil
}

// formatFailure renders an execution error the way the classic interpreter
// did: message, source position, offending byte and cell value.
func formatFailure(m *vm.Machine, runErr error) string {
	ee, ok := runErr.(*vm.ExecError)
	if !ok {
		return runErr.Error()
	}
	row, col := m.Program().Locate(ee.IP)
	return fmt.Sprintf("%s at %d:%d (code: '%c' data: '%d')",
		ee.Kind.Message(), row, col, m.Program().Byte(ee.IP), ee.Cell)
}

func printRuns(ledgerPath string, limit int) error {
	store, err := history.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("#%d  %s  %s  steps=%d  %v  %s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.ProgramHash[:12],
			r.Steps, r.Duration.Round(time.Microsecond), r.Outcome)
	}
	return nil
}
