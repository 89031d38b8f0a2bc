package isa

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Flags holds the five boolean condition flags updated as side effects
// of arithmetic, comparison, and stack operations.
type Flags struct {
	Zero     bool
	LT       bool
	GT       bool
	EQ       bool
	Overflow bool
}

// CPU owns the flat DRAM and the seven-register file, and runs the
// fetch-decode-execute cycle against them. DRAM backs code, data, and
// stack all at once; the CPU is its sole mutator once a program has
// been assembled into it.
type CPU struct {
	DRAM []uint32

	acc, cr, pc, ir, or, sp, tr uint32
	Flags                       Flags

	stdout *bufio.Writer
}

// NewCPU allocates a CPU with DRAMSize cells, all registers zeroed
// except SP (set to DefaultStackPointer), writing its observation
// channel (Dump/DumpR) to w.
func NewCPU(w io.Writer) *CPU {
	return &CPU{
		DRAM:   make([]uint32, DRAMSize),
		sp:     uint32(DefaultStackPointer),
		stdout: bufio.NewWriter(w),
	}
}

// NewCPUSize is NewCPU with an explicit DRAM word count, used by tests
// exercising the end-of-DRAM boundary without allocating the full
// default size.
func NewCPUSize(w io.Writer, size int) *CPU {
	c := NewCPU(w)
	c.DRAM = make([]uint32, size)
	return c
}

// reg reads register r, reporting errIllegalOperation for an ID outside
// the seven valid registers - a decoded instruction from a corrupted or
// hand-crafted binary can carry any byte value in its register slot, so
// this is a runtime-fatal condition the caller must surface, not a
// programming error.
func (c *CPU) reg(r Register) (uint32, error) {
	switch r {
	case ACC:
		return c.acc, nil
	case CR:
		return c.cr, nil
	case PC:
		return c.pc, nil
	case IR:
		return c.ir, nil
	case OR:
		return c.or, nil
	case SP:
		return c.sp, nil
	case TR:
		return c.tr, nil
	default:
		return 0, errIllegalOperation
	}
}

func (c *CPU) setReg(r Register, v uint32) error {
	switch r {
	case ACC:
		c.acc = v
	case CR:
		c.cr = v
	case PC:
		c.pc = v
	case IR:
		c.ir = v
	case OR:
		c.or = v
	case SP:
		c.sp = v
	case TR:
		c.tr = v
	default:
		return errIllegalOperation
	}
	return nil
}

// Registers returns a snapshot of all seven registers, keyed by ID -
// used by the TUI debugger.
func (c *CPU) Registers() map[Register]uint32 {
	return map[Register]uint32{
		ACC: c.acc, CR: c.cr, PC: c.pc, IR: c.ir, OR: c.or, SP: c.sp, TR: c.tr,
	}
}

// PC returns the current program counter (word index into DRAM).
func (c *CPU) PC() uint32 { return c.pc }

// ACC returns the current accumulator value.
func (c *CPU) ACC() uint32 { return c.acc }

// OR returns the current output register value.
func (c *CPU) OR() uint32 { return c.or }

// SP returns the current stack pointer value.
func (c *CPU) SP() uint32 { return c.sp }

// Append finds the lowest index i such that DRAM[i:i+L] is all zero,
// where L is instr's word count, and writes instr's encoding there.
// If no such region exists, Append silently fails - the caller is
// responsible for not overflowing DRAM, matching the zero-as-empty
// convention that also makes 0x00 a safe Unknown sentinel.
func (c *CPU) Append(instr Instruction) error {
	words := Encode(instr)
	l := len(words)

	for i := 0; i+l <= len(c.DRAM); i++ {
		free := true
		for j := 0; j < l; j++ {
			if c.DRAM[i+j] != 0 {
				free = false
				break
			}
		}
		if free {
			copy(c.DRAM[i:i+l], words)
			return nil
		}
	}

	return nil
}

// SetCell writes value directly to DRAM[addr], bypassing the zero-scan
// Append. This is the assembler's variable-allocation path: a
// variable's address is a deterministic bump-allocator slot, not a
// free-region search, but it is still DRAM mutation routed exclusively
// through the CPU, preserving the single-owner invariant.
func (c *CPU) SetCell(addr uint16, value uint32) {
	c.DRAM[addr] = value
}

// LoadBinary reads a little-endian stream of 4-byte words into
// successive DRAM cells starting at 0. A partial trailing word is
// silently discarded. Registers and flags are untouched - only
// NewCPU resets them.
func (c *CPU) LoadBinary(r io.Reader) error {
	buf := make([]byte, 4)
	for i := 0; i < len(c.DRAM); i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("%w: %v", errIO, err)
		}
		c.DRAM[i] = binary.LittleEndian.Uint32(buf)
	}
	return nil
}

// SaveBinary serializes every DRAM cell as little-endian bytes to w.
func (c *CPU) SaveBinary(w io.Writer) error {
	buf := make([]byte, 4)
	bw := bufio.NewWriter(w)
	for _, word := range c.DRAM {
		binary.LittleEndian.PutUint32(buf, word)
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("%w: %v", errIO, err)
		}
	}
	return bw.Flush()
}

// fetch implements the spec's Fetch step: IR <- DRAM[PC]; PC <- PC+1,
// then decodes the opcode. Two-word instructions perform the second
// fetch described in the spec - TR <- DRAM[PC]; PC <- PC+1 - here,
// since that is the only place the spec gives TR a side effect from
// decoding; single-word immediates (IAdd, ISub, ICmp, IPush) are
// already fully decoded into the Instruction's own Imm fields and never
// touch TR.
func (c *CPU) fetch() (Instruction, error) {
	if int(c.pc) >= len(c.DRAM) {
		return Instruction{}, errSegmentationFault
	}

	c.ir = c.DRAM[c.pc]
	c.pc++

	instr, words := Decode([]uint32{c.ir})
	if words == 2 {
		if int(c.pc) >= len(c.DRAM) {
			return Instruction{}, errSegmentationFault
		}
		c.tr = c.DRAM[c.pc]
		c.pc++
	}

	return instr, nil
}

func addOverflow(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum < a
}

func subOverflow(a, b uint32) (uint32, bool) {
	diff := a - b
	return diff, b > a
}

func (c *CPU) doCompare(a, b uint32) {
	c.Flags.LT, c.Flags.EQ, c.Flags.GT = false, false, false
	switch {
	case a < b:
		c.Flags.LT = true
	case a == b:
		c.Flags.EQ = true
	default:
		c.Flags.GT = true
	}
}

func (c *CPU) pushValue(v uint32) error {
	if int(c.sp) >= len(c.DRAM) {
		return errSegmentationFault
	}
	c.DRAM[c.sp] = v
	c.sp++
	c.Flags.Zero = v == 0
	return nil
}

func (c *CPU) popValue() (uint32, error) {
	if c.sp == 0 {
		return 0, errSegmentationFault
	}
	c.sp--
	v := c.DRAM[c.sp]
	c.DRAM[c.sp] = 0
	c.or = v
	c.Flags.Zero = v == 0
	return v, nil
}

func shiftSaturating(v uint32, k uint8, left bool) uint32 {
	if k >= 32 {
		return 0
	}
	if left {
		return v << k
	}
	return v >> k
}

// execute carries out instr's effects on registers, flags, and DRAM,
// per the spec's execute-semantics table.
func (c *CPU) execute(instr Instruction) error {
	switch instr.Op {
	case OpMoveR:
		v, err := c.reg(instr.Reg2)
		if err != nil {
			return err
		}
		if err := c.setReg(instr.Reg1, v); err != nil {
			return err
		}
		c.Flags.Zero = v == 0
	case OpIMoveL:
		if err := c.setReg(instr.Reg1, c.tr); err != nil {
			return err
		}
		c.Flags.Zero = c.tr == 0
	case OpMoveA:
		if int(instr.Addr) >= len(c.DRAM) {
			return errSegmentationFault
		}
		v, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		c.DRAM[instr.Addr] = v
	case OpCmp:
		a, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		b, err := c.reg(instr.Reg2)
		if err != nil {
			return err
		}
		c.doCompare(a, b)
	case OpICmp:
		a, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		c.doCompare(a, uint32(instr.Imm16))
	case OpICmpL:
		a, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		c.doCompare(a, c.tr)
	case OpJE:
		if c.Flags.EQ {
			c.pc = uint32(instr.PC)
		}
	case OpJGT:
		if c.Flags.GT {
			c.pc = uint32(instr.PC)
		}
	case OpJLT:
		if c.Flags.LT {
			c.pc = uint32(instr.PC)
		}
	case OpJZ:
		if c.Flags.Zero {
			c.pc = uint32(instr.PC)
		}
	case OpJOV:
		if c.Flags.Overflow {
			c.pc = uint32(instr.PC)
		}
	case OpJMP:
		c.pc = uint32(instr.PC)
	case OpLea:
		if int(instr.Addr) >= len(c.DRAM) {
			return errSegmentationFault
		}
		c.or = c.DRAM[instr.Addr]
	case OpLeaR:
		addr, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		if int(addr) >= len(c.DRAM) {
			return errSegmentationFault
		}
		c.or = c.DRAM[addr]
	case OpIAdd:
		sum, ov := addOverflow(c.acc, uint32(instr.Imm8))
		c.acc, c.Flags.Overflow, c.Flags.Zero = sum, ov, sum == 0
	case OpIAddL:
		sum, ov := addOverflow(c.acc, c.tr)
		c.acc, c.Flags.Overflow, c.Flags.Zero = sum, ov, sum == 0
	case OpAdd:
		a, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		b, err := c.reg(instr.Reg2)
		if err != nil {
			return err
		}
		sum, ov := addOverflow(a, b)
		if err := c.setReg(instr.Reg1, sum); err != nil {
			return err
		}
		c.Flags.Overflow, c.Flags.Zero = ov, sum == 0
	case OpISub:
		diff, ov := subOverflow(c.acc, uint32(instr.Imm8))
		c.acc, c.Flags.Overflow, c.Flags.Zero = diff, ov, diff == 0
	case OpSub:
		a, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		b, err := c.reg(instr.Reg2)
		if err != nil {
			return err
		}
		diff, ov := subOverflow(a, b)
		if err := c.setReg(instr.Reg1, diff); err != nil {
			return err
		}
		c.Flags.Overflow, c.Flags.Zero = ov, diff == 0
	case OpIPush:
		return c.pushValue(uint32(instr.Imm16))
	case OpIPushL:
		return c.pushValue(c.tr)
	case OpPush:
		v, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		return c.pushValue(v)
	case OpPop:
		_, err := c.popValue()
		return err
	case OpShl:
		v, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		if err := c.setReg(instr.Reg1, shiftSaturating(v, instr.Imm8, true)); err != nil {
			return err
		}
	case OpShr:
		v, err := c.reg(instr.Reg1)
		if err != nil {
			return err
		}
		if err := c.setReg(instr.Reg1, shiftSaturating(v, instr.Imm8, false)); err != nil {
			return err
		}
	case OpDump:
		c.dump()
	case OpDumpR:
		return c.dumpRegister(instr.Reg1)
	case OpUnknown:
		// handled by the run loop's two-word sentinel discipline
	default:
		return errIllegalOperation
	}
	return nil
}

// Step fetches, decodes, and executes one logical step, applying the
// same two-word Unknown sentinel discipline as the run loop: a lone
// Unknown is transparently skipped in favor of the instruction after it
// (returning errUnknownInstruction once that instruction has executed),
// while two consecutive Unknown words report errProgramFinished. This
// lets the TUI debugger single-step through a program with exactly the
// semantics Run applies to it, rather than a naive one-word-at-a-time
// view that would wander off into the zeroed tail of DRAM.
func (c *CPU) Step() (Instruction, error) {
	instr, err := c.fetch()
	if err != nil {
		return instr, err
	}

	if instr.Op == OpUnknown {
		next, err := c.fetch()
		if err != nil {
			return instr, err
		}
		if next.Op == OpUnknown {
			return instr, errProgramFinished
		}
		if err := c.execute(next); err != nil {
			return next, err
		}
		return next, errUnknownInstruction
	}

	if err := c.execute(instr); err != nil {
		return instr, err
	}
	return instr, nil
}

// Run executes instructions until Step reports the program has finished
// or failed. GOGC is disabled for the duration, mirroring the teacher's
// run loop: memory is allocated up front during assembly, so the hot
// fetch-decode-execute loop has nothing for the garbage collector to
// usefully do.
func (c *CPU) Run() error {
	restore := disableGC()
	defer restore()
	return c.ExecuteUntilUnknown()
}

// ExecuteUntilUnknown is the core run loop, without the GC tuning Run
// wraps it in - exposed directly for callers that want to drive
// execution to completion without touching GOGC themselves.
func (c *CPU) ExecuteUntilUnknown() error {
	for {
		if _, err := c.Step(); err != nil {
			return err
		}
	}
}

// dump writes a full human-readable snapshot of registers, flags, and
// every non-zero DRAM cell (best-effort disassembled) to the
// observation channel.
func (c *CPU) dump() {
	defer c.stdout.Flush()

	fmt.Fprintf(c.stdout, "registers> acc=%d cr=%d pc=%d ir=%d or=%d sp=%d tr=%d\n",
		c.acc, c.cr, c.pc, c.ir, c.or, c.sp, c.tr)
	fmt.Fprintf(c.stdout, "flags> zero=%v lt=%v gt=%v eq=%v overflow=%v set=%v\n",
		c.Flags.Zero, c.Flags.LT, c.Flags.GT, c.Flags.EQ, c.Flags.Overflow, c.Flags.Set())

	fmt.Fprintln(c.stdout, "memory>")
	for i, word := range c.DRAM {
		if word == 0 {
			continue
		}
		instr, _ := Decode([]uint32{word})
		fmt.Fprintf(c.stdout, "  [%d] 0x%08x ; %s\n", i, word, instr)
	}
}

// dumpRegister writes a single register's value to the observation
// channel.
func (c *CPU) dumpRegister(r Register) error {
	v, err := c.reg(r)
	if err != nil {
		return err
	}
	defer c.stdout.Flush()
	fmt.Fprintf(c.stdout, "%s> %d\n", r, v)
	return nil
}

// StdoutCPU is a convenience constructor for the common case of
// dumping to the process's standard output.
func StdoutCPU() *CPU {
	return NewCPU(os.Stdout)
}
