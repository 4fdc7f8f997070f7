// Command lokisim runs a compiled Loki binary on a simulated tiled
// many-core chip (spec.md §1, §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/lokisim/chip"
	"github.com/sarchlab/lokisim/config"
	"github.com/sarchlab/lokisim/core"
	"github.com/sarchlab/lokisim/isa"
	"github.com/sarchlab/lokisim/loader"
	"github.com/sarchlab/lokisim/warn"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the full CLI surface of spec.md §6 and returns the
// process exit code (0 once the simulation has run, including when
// Chip.Run ends on its idle timeout; 1 or 2 only when flags,
// parameters, or inputs cannot be loaded; sys_exit's own value is out of this module's reach since
// syscall host-interaction is an external collaborator per spec.md §1,
// §7 — see DESIGN.md's Open Question decision on this).
func run(rawArgs []string) int {
	overrides, rest := extractOverrides(rawArgs)

	fs := flag.NewFlagSet("lokisim", flag.ContinueOnError)
	var runScripts repeatedFlag
	fs.Var(&runScripts, "run", "Load the named loader script; may be repeated.")
	settingsPath := fs.String("settings", "", "Load parameter values from the named JSON settings file over the built-in defaults; unlike -run, the file is not read as a loader script.")
	debug := fs.Bool("debug", false, "Enter interactive debugger before executing.")
	trace := fs.Bool("trace", false, "Print each executed instruction and its register context.")
	energyTrace := fs.String("energytrace", "", "Emit a binary energy-event trace.")
	stallTrace := fs.String("stalltrace", "", "Emit a per-stall log with cycle, core, reason, duration.")
	callgrind := fs.String("callgrind", "", "Emit Callgrind-format per-function counts.")
	summary := fs.Bool("summary", false, "Print one-line summary at end.")
	silent := fs.Bool("silent", false, "Suppress all output except program stdout/stderr and fatal errors.")
	v1 := fs.Bool("v", false, "Verbosity level 1.")
	v2 := fs.Bool("vv", false, "Verbosity level 2.")
	v3 := fs.Bool("vvv", false, "Verbosity level 3.")
	listParams := fs.Bool("list-parameters", false, "Dump all parameters and exit.")

	if err := fs.Parse(rest); err != nil {
		return 2
	}

	if *listParams {
		for _, name := range config.Default().Names() {
			fmt.Println(name)
		}
		return 0
	}

	warnings := warn.New(os.Stderr)
	warnings.SetSilent(*silent)

	params, err := loadParameters(*settingsPath, runScripts.values, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lokisim: %v\n", err)
		return 1
	}
	if err := params.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "lokisim: invalid parameters: %v\n", err)
		return 1
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: lokisim [flags] <program.elf> [-- args...]")
		fs.PrintDefaults()
		return 2
	}
	programPath := fs.Arg(0)

	c := chip.New(params, warnings)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lokisim: %v\n", err)
		return 1
	}
	entryCore := c.CoreByID(0)
	if entryCore == nil {
		fmt.Fprintln(os.Stderr, "lokisim: chip has no cores")
		return 1
	}
	bank := c.BankByID(params.DefaultMemoryChannel)
	if bank == nil {
		bank = c.BankByID(0)
	}
	prog.PlaceInto(bank)
	loadEntryPacket(entryCore, prog)

	for _, path := range runScripts.values {
		if err := applyLoaderScript(c, path, warnings); err != nil {
			fmt.Fprintf(os.Stderr, "lokisim: %v\n", err)
			return 1
		}
	}

	verbosity := verbosityLevel(*v1, *v2, *v3)
	if !*silent && verbosity > 0 {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Sections: %d\n", len(prog.Chunks))
	}

	var energyFile, stallFile, callgrindFile *os.File
	if *energyTrace != "" {
		energyFile, err = os.Create(*energyTrace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lokisim: %v\n", err)
			return 1
		}
		defer func() { _ = energyFile.Close() }()
	}
	if *stallTrace != "" {
		stallFile, err = os.Create(*stallTrace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lokisim: %v\n", err)
			return 1
		}
		defer func() { _ = stallFile.Close() }()
		fmt.Fprintln(stallFile, "cycle,core,reason,duration")
	}
	if *callgrind != "" {
		callgrindFile, err = os.Create(*callgrind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lokisim: %v\n", err)
			return 1
		}
		defer func() { _ = callgrindFile.Close() }()
	}

	for id := 0; ; id++ {
		cr := c.CoreByID(id)
		if cr == nil {
			break
		}
		label := fmt.Sprintf("core%d", id)
		if stallFile != nil {
			cr.Stats.EnableStallTrace(label, stallFile)
		}
		if *trace {
			cr.Trace = traceInstruction
		}
	}

	if !entryCore.StartFetch(prog.EntryPoint, false) {
		fmt.Fprintln(os.Stderr, "lokisim: entry point not resolved into any instruction store")
		return 1
	}

	if *debug {
		runDebugger(c)
	}

	cycles, runErr := c.Run()

	if energyFile != nil {
		fmt.Fprintf(energyFile, "cycles=%d\n", cycles)
	}
	if callgrindFile != nil {
		writeCallgrind(callgrindFile, c)
	}

	if !*silent && *summary {
		printSummary(c, cycles, runErr)
	}

	if runErr != nil && !*silent {
		fmt.Fprintf(os.Stderr, "lokisim: %v\n", runErr)
	}

	return 0
}

// extractOverrides pulls every `-Pname=value` and `--name=value`
// argument out of args (spec.md §6), leaving the rest for flag.Parse.
// `--name=value` is only recognized when name matches a known
// parameter, since Go's flag package otherwise treats `--foo` and
// `-foo` identically and a bare lookup table is the only way to tell
// a parameter override apart from an ordinary flag.
func extractOverrides(args []string) (overrides []string, rest []string) {
	known := make(map[string]bool)
	for _, n := range config.Default().Names() {
		known[n] = true
	}

	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "-P") && strings.Contains(a, "="):
			overrides = append(overrides, strings.TrimPrefix(a, "-P"))
		case strings.HasPrefix(a, "--") && strings.Contains(a, "="):
			name, _ := splitOverride(strings.TrimPrefix(a, "--"))
			if known[name] {
				overrides = append(overrides, strings.TrimPrefix(a, "--"))
				continue
			}
			rest = append(rest, a)
		default:
			rest = append(rest, a)
		}
	}
	return overrides, rest
}

// loadParameters builds the effective Parameters: Default(), or the
// JSON settings file at settingsPath read over Default() by
// config.Load, then every -run script's `parameter` directives in
// order, then every -P/-- override. The settings file is not parsed as
// a loader script, and the built-in defaults still fill every field it
// omits.
func loadParameters(settingsPath string, runScripts, overrides []string) (*config.Parameters, error) {
	var params *config.Parameters
	var err error
	if settingsPath != "" {
		params, err = config.Load(settingsPath)
		if err != nil {
			return nil, err
		}
	} else {
		params = config.Default()
	}

	for _, path := range runScripts {
		directives, err := loader.ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range directives {
			if d.Kind == loader.DirParameter {
				if err := params.Set(d.ParamName, d.ParamValue); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, nv := range overrides {
		name, value := splitOverride(nv)
		if err := params.Set(name, value); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// applyLoaderScript re-parses path (loadParameters already consumed
// its `parameter` directives) and executes its memory-load and
// component-load directives against the already-built chip.
func applyLoaderScript(c *chip.Chip, path string, w *warn.Registry) error {
	directives, err := loader.ParseFile(path)
	if err != nil {
		return err
	}
	for _, d := range directives {
		switch d.Kind {
		case loader.DirMemoryLoad:
			prog, err := loader.Load(d.ELFFile)
			if err != nil {
				return err
			}
			bank := c.BankByID(d.MemoryID)
			if bank == nil {
				w.Warn(warn.OutOfBounds, "loader script names nonexistent memory %d", d.MemoryID)
				continue
			}
			prog.PlaceInto(bank)
			if cr := c.CoreByID(d.CoreID); cr != nil {
				loadEntryPacket(cr, prog)
				cr.StartFetch(prog.EntryPoint, false)
			}
		case loader.DirComponentLoad:
			words, err := loader.LoadWords(d.DataFile)
			if err != nil {
				return err
			}
			bank := c.BankByID(d.ComponentID)
			if bank == nil {
				w.Warn(warn.OutOfBounds, "loader script names nonexistent component %d", d.ComponentID)
				continue
			}
			for i, word := range words {
				bank.Preload(uint32(i), word, false)
			}
		}
	}
	return nil
}

// loadEntryPacket gets a program's first packet into cr's instruction
// cache directly, bypassing the fetch write loop's memory round-trip
// for the one packet every core needs before it can execute its first
// instruction (spec.md §4.2, "storeCode pre-loads a packet at
// startup"). Later fetches of addresses not already resolved this way
// go through StartFetch's ordinary miss path instead.
func loadEntryPacket(cr *core.Core, prog *loader.Program) {
	words, base, ok := prog.CodeAt(prog.EntryPoint)
	if !ok {
		return
	}
	cr.StoreCode(words, base, false)
}

func verbosityLevel(v1, v2, v3 bool) int {
	switch {
	case v3:
		return 3
	case v2:
		return 2
	case v1:
		return 1
	default:
		return 0
	}
}

// traceInstruction implements `-trace`: one line per retired
// instruction naming its opcode and destination result (spec.md §6).
func traceInstruction(c *core.Core, op *isa.Operation) {
	desc, _ := isa.Describe(op.Op)
	fmt.Printf("pc=0x%x %s result=0x%x regs=%v\n", op.PacketPC, desc.Name, op.Result, c.Registers.Snapshot())
}

// writeCallgrind emits a minimal Callgrind-format summary: one
// function-granularity cost line per core, using retired-instruction
// counts as the cost metric. Full Callgrind fidelity (per-line call
// graphs) is outside this module's remit — spec.md §1 names "the
// callgrind-style trace writer" itself as an external collaborator, so
// this exists only to give the flag somewhere to write.
func writeCallgrind(w *os.File, c *chip.Chip) {
	fmt.Fprintln(w, "# callgrind format")
	fmt.Fprintln(w, "events: Instructions")
	for id := 0; ; id++ {
		cr := c.CoreByID(id)
		if cr == nil {
			break
		}
		snap := cr.Stats.Snapshot()
		fmt.Fprintf(w, "fn=core%d\n0 %d\n", id, snap.Instructions)
	}
}

func printSummary(c *chip.Chip, cycles uint64, runErr error) {
	status := "ok"
	if runErr != nil {
		status = "idle-timeout"
	}
	var totalInstr uint64
	for id := 0; ; id++ {
		cr := c.CoreByID(id)
		if cr == nil {
			break
		}
		totalInstr += cr.Stats.Snapshot().Instructions
	}
	fmt.Printf("cycles=%d instructions=%d status=%s\n", cycles, totalInstr, status)
}

// runDebugger implements `-debug`: a minimal line-oriented REPL run
// before the chip starts, supporting single-cycle stepping and a
// continue command (spec.md §6: "Enter interactive debugger before
// executing").
func runDebugger(c *chip.Chip) {
	fmt.Println("lokisim debugger: step | continue | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("(lokisim) ")
		if !scanner.Scan() {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "step", "s":
			c.Tick(0)
		case "continue", "c", "":
			return
		case "quit", "q":
			os.Exit(0)
		default:
			fmt.Println("commands: step, continue, quit")
		}
	}
}
