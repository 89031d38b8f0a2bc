// Package cmd wires the CLI's positional-argument contract to the isa
// package's assembler and CPU: zero, one, or two path arguments select
// between assemble-and-run, run-existing-binary, and assemble-only,
// exactly as the teacher's main() dispatches on os.Args, but expressed
// as a cobra.Command.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tinyisa/internal/debugger"
	"tinyisa/internal/peripheral"
	"tinyisa/isa"
)

const (
	defaultSourcePath = "code.cr"
	defaultBinaryPath = "code.bin"

	framebufferPollInterval = 100 * time.Millisecond
)

var (
	debugFlag       bool
	verboseFlag     bool
	keepBinaryFlag  bool
	framebufferFlag string
)

// NewRootCmd builds the root command implementing spec's 0/1/2-argument
// CLI contract.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tinyisa [input.cr] [output.bin]",
		Short: "Assemble and run tiny-ISA programs",
		Long: "With no arguments, assembles code.cr to code.bin (or runs an existing\n" +
			"code.bin) and executes it. With one argument, treats it as a binary path\n" +
			"and executes it directly. With two arguments, assembles the first into\n" +
			"the second and exits without running.",
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
	}

	root.Flags().BoolVar(&debugFlag, "debug", false, "launch the interactive TUI debugger instead of running to completion")
	root.Flags().BoolVar(&verboseFlag, "verbose", false, "print each assembled instruction's address, mnemonic, and hex words")
	root.Flags().BoolVar(&keepBinaryFlag, "keep-binary", true, "keep the assembled binary after running (false when --debug is set)")
	root.Flags().StringVar(&framebufferFlag, "framebuffer", "", "poll a DRAM window as a character display while running, given as base:cols:rows")
	root.RunE = runRoot

	return root
}

func runRoot(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return assembleAndRun(cmd, defaultSourcePath, defaultBinaryPath)
	case 1:
		return runBinary(args[0])
	case 2:
		return assembleOnly(args[0], args[1])
	default:
		return fmt.Errorf("expected 0, 1, or 2 arguments, got %d", len(args))
	}
}

// assembleAndRun implements the zero-argument path: if the binary
// already exists, skip straight to running it (the original's re-run
// shortcut); otherwise assemble source first. Per the original's
// coupling of debug builds to binary cleanup, a freshly assembled
// binary is deleted after running when --debug is set; an explicit
// --keep-binary value overrides that default either way.
func assembleAndRun(cmd *cobra.Command, sourcePath, binaryPath string) error {
	if _, err := os.Stat(binaryPath); err == nil {
		return runBinary(binaryPath)
	}

	cpu, err := assembleToFile(sourcePath, binaryPath)
	if err != nil {
		return err
	}

	keep := keepBinaryFlag
	if !cmd.Flags().Changed("keep-binary") {
		keep = !debugFlag
	}
	return execute(cpu, !keep, binaryPath)
}

func runBinary(binaryPath string) error {
	f, err := os.Open(binaryPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", binaryPath, err)
	}
	defer f.Close()

	cpu := isa.StdoutCPU()
	if err := cpu.LoadBinary(f); err != nil {
		return fmt.Errorf("loading %s: %w", binaryPath, err)
	}

	return execute(cpu, false, binaryPath)
}

func assembleOnly(sourcePath, outputPath string) error {
	_, err := assembleToFile(sourcePath, outputPath)
	return err
}

func assembleToFile(sourcePath, outputPath string) (*isa.CPU, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", sourcePath, err)
	}
	defer src.Close()

	lines, err := isa.ReadLines(src)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	cpu := isa.StdoutCPU()
	cpu, symbols, err := isa.AssembleInto(cpu, lines)
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", sourcePath, err)
	}

	if verboseFlag {
		printVerboseListing(os.Stdout, cpu, symbols)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer out.Close()

	if err := cpu.SaveBinary(out); err != nil {
		return nil, fmt.Errorf("writing %s: %w", outputPath, err)
	}

	return cpu, nil
}

func execute(cpu *isa.CPU, deleteBinaryAfter bool, binaryPath string) error {
	if deleteBinaryAfter {
		defer os.Remove(binaryPath)
	}

	if framebufferFlag != "" {
		fb, err := newFramebufferFromFlag(framebufferFlag, cpu)
		if err != nil {
			return err
		}
		stop := make(chan struct{})
		defer close(stop)
		go fb.Run(stop, func(frame string) {
			fmt.Fprintln(os.Stdout, frame)
		})
	}

	if debugFlag {
		program := tea.NewProgram(debugger.New(cpu))
		_, err := program.Run()
		return err
	}

	err := cpu.Run()
	if isa.ErrProgramFinished(err) {
		return nil
	}
	return err
}

// newFramebufferFromFlag parses --framebuffer's "base:cols:rows" value
// and wraps cpu as its read-only DRAM source.
func newFramebufferFromFlag(flag string, cpu *isa.CPU) (*peripheral.Framebuffer, error) {
	parts := strings.Split(flag, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("--framebuffer wants base:cols:rows, got %q", flag)
	}

	base, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("--framebuffer base %q: %w", parts[0], err)
	}
	cols, err := strconv.Atoi(parts[1])
	if err != nil || cols <= 0 {
		return nil, fmt.Errorf("--framebuffer cols %q must be a positive integer", parts[1])
	}
	rows, err := strconv.Atoi(parts[2])
	if err != nil || rows <= 0 {
		return nil, fmt.Errorf("--framebuffer rows %q must be a positive integer", parts[2])
	}

	return peripheral.NewFramebuffer(peripheral.FromCPU(cpu), uint16(base), cols, rows, framebufferPollInterval), nil
}

// printVerboseListing walks DRAM one decoded instruction at a time,
// advancing the cursor by each instruction's own word count so a
// two-word instruction's trailing immediate is never revisited and
// printed again as a bogus instruction of its own.
func printVerboseListing(w io.Writer, cpu *isa.CPU, symbols *isa.SymbolTable) {
	reverseLabels := make(map[int][]string, len(symbols.Labels))
	for name, addr := range symbols.Labels {
		reverseLabels[addr] = append(reverseLabels[addr], name)
	}

	for i := 0; i < len(cpu.DRAM); {
		word := cpu.DRAM[i]
		if word == 0 {
			i++
			continue
		}

		instr, words := isa.Decode(cpu.DRAM[i:])
		if names, ok := reverseLabels[i]; ok {
			fmt.Fprintf(w, "%s:\n", strings.Join(names, ", "))
		}
		hexWords := make([]string, words)
		for j := 0; j < words; j++ {
			hexWords[j] = fmt.Sprintf("0x%08x", cpu.DRAM[i+j])
		}
		fmt.Fprintf(w, "%d: %s ; %s\n", i, instr, strings.Join(hexWords, " "))
		i += words
	}
}
