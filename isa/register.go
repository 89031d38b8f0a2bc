// Package isa implements the instruction codec and CPU core for the
// tiny 32-bit instruction set: encoding, decoding, and execution of
// programs against a flat DRAM and a seven-register file.
package isa

import (
	"fmt"
	"strings"
)

// Register identifies one of the CPU's seven 32-bit registers. IDs are
// chosen nonzero so that the value 0 in an encoded operand slot always
// means "absent", never a valid register.
type Register uint8

const (
	ACC Register = 0x0A // accumulator
	PC  Register = 0x1A // program counter
	IR  Register = 0x2A // instruction register
	OR  Register = 0x3A // output register
	SP  Register = 0x4A // stack pointer
	TR  Register = 0x5A // temporary register
	CR  Register = 0x6A // counting register
)

var registerNames = map[Register]string{
	ACC: "acc",
	PC:  "pc",
	IR:  "ir",
	OR:  "or",
	SP:  "sp",
	TR:  "tr",
	CR:  "cr",
}

var nameToRegister = func() map[string]Register {
	m := make(map[string]Register, len(registerNames))
	for id, name := range registerNames {
		m[name] = id
	}
	return m
}()

func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reg(0x%02x)", uint8(r))
}

// ParseRegister resolves a case-insensitive register mnemonic such as
// "acc" or "sp" to its Register ID.
func ParseRegister(s string) (Register, bool) {
	r, ok := nameToRegister[strings.ToLower(s)]
	return r, ok
}

// Flag identifies one of the CPU's five boolean condition flags. The
// values mirror the register-ID convention (nonzero, low nibble tags
// the flag) even though flags themselves are never encoded in a word -
// Dump uses them purely for display.
type Flag uint8

const (
	FlagZero     Flag = 0x1F
	FlagGT       Flag = 0x2F
	FlagLT       Flag = 0x3F
	FlagEQ       Flag = 0x4F
	FlagOverflow Flag = 0x5F
)

var flagNames = map[Flag]string{
	FlagZero:     "zero",
	FlagGT:       "gt",
	FlagLT:       "lt",
	FlagEQ:       "eq",
	FlagOverflow: "overflow",
}

func (f Flag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return fmt.Sprintf("flag(0x%02x)", uint8(f))
}

// allFlags fixes a stable display order for the five condition flags,
// pairing each with its spec-assigned ID.
var allFlags = []Flag{FlagZero, FlagGT, FlagLT, FlagEQ, FlagOverflow}

// Set reports which of the five condition flags in f are currently true,
// in allFlags order - Dump prints this list, by flag name, after the
// five separate booleans.
func (f Flags) Set() []Flag {
	set := make([]Flag, 0, len(allFlags))
	for _, id := range allFlags {
		if f.boolFor(id) {
			set = append(set, id)
		}
	}
	return set
}

func (f Flags) boolFor(id Flag) bool {
	switch id {
	case FlagZero:
		return f.Zero
	case FlagGT:
		return f.GT
	case FlagLT:
		return f.LT
	case FlagEQ:
		return f.EQ
	case FlagOverflow:
		return f.Overflow
	}
	return false
}

// DRAMSize is the default word count of a CPU's flat memory.
const DRAMSize = 128

// DefaultStackPointer is the initial SP value: three-quarters into
// DRAM, leaving the top quarter for stack growth.
const DefaultStackPointer = DRAMSize - DRAMSize/4
