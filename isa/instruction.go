package isa

import "fmt"

// Op is an 8-bit opcode tag. 0x00 is reserved: a zero word never
// encodes a real instruction (zero means "empty DRAM cell" for the
// append algorithm), so a decoded Op of 0x00 always means Unknown.
type Op uint8

const (
	OpUnknown Op = 0x00

	OpMoveR  Op = 0x01
	OpCmp    Op = 0x02
	OpJE     Op = 0x03
	OpJGT    Op = 0x04
	OpJLT    Op = 0x05
	OpJZ     Op = 0x06
	OpJOV    Op = 0x07
	OpJMP    Op = 0x08
	OpLea    Op = 0x09 // impl: address-form not pinned by the spec table
	OpIAdd   Op = 0x0A
	OpISub   Op = 0x0B
	OpIPush  Op = 0x0C
	OpIMoveL Op = 0x11
	OpMoveA  Op = 0x19 // impl
	OpIAddL  Op = 0x1A
	OpSub    Op = 0x1B
	OpPop    Op = 0x1C
	OpLeaR   Op = 0x29 // impl
	OpAdd    Op = 0x2A
	OpIPushL Op = 0x2C
	OpShl    Op = 0x39 // impl
	OpPush   Op = 0x3C
	OpShr    Op = 0x49 // impl
	OpICmp   Op = 0xA2
	OpICmpL  Op = 0xB2
	OpDumpR  Op = 0xEF
	OpDump   Op = 0xFF
)

var opMnemonics = map[Op]string{
	OpUnknown: "unknown",
	OpMoveR:   "mover",
	OpIMoveL:  "imovel",
	OpMoveA:   "movea",
	OpCmp:     "cmp",
	OpICmp:    "icmp",
	OpICmpL:   "icmpl",
	OpJE:      "je",
	OpJGT:     "jgt",
	OpJLT:     "jlt",
	OpJZ:      "jz",
	OpJOV:     "jov",
	OpJMP:     "jmp",
	OpLea:     "lea",
	OpLeaR:    "lear",
	OpIAdd:    "iadd",
	OpAdd:     "add",
	OpIAddL:   "iaddl",
	OpISub:    "isub",
	OpSub:     "sub",
	OpIPush:   "ipush",
	OpIPushL:  "ipushl",
	OpPush:    "push",
	OpPop:     "pop",
	OpShl:     "shl",
	OpShr:     "shr",
	OpDump:    "dump",
	OpDumpR:   "dumpr",
}

func (op Op) String() string {
	if name, ok := opMnemonics[op]; ok {
		return name
	}
	return fmt.Sprintf("op(0x%02x)", uint8(op))
}

// jumpOps maps every conditional/unconditional jump mnemonic to its
// opcode; shared between the codec's parser and the assembler's
// symbolic-jump classification.
var jumpOps = map[string]Op{
	"je":  OpJE,
	"jgt": OpJGT,
	"jlt": OpJLT,
	"jz":  OpJZ,
	"jov": OpJOV,
	"jmp": OpJMP,
}

// IsJump reports whether op is one of the six jump opcodes.
func (op Op) IsJump() bool {
	switch op {
	case OpJE, OpJGT, OpJLT, OpJZ, OpJOV, OpJMP:
		return true
	}
	return false
}

// WordCount reports how many consecutive 32-bit DRAM cells an
// instruction with this opcode occupies: the immediate-long variants
// carry their literal in a trailing word, everything else is one word.
func (op Op) WordCount() int {
	switch op {
	case OpIMoveL, OpIAddL, OpICmpL, OpIPushL:
		return 2
	default:
		return 1
	}
}

// Instruction is the abstract tagged instruction. Rather than a
// Rust-style enum (Go has none), one struct carries every variant's
// operands; Op selects which fields are meaningful, the same "packed
// struct plus tag switch" shape the teacher uses for its own bytecode
// Instruction type.
type Instruction struct {
	Op Op

	Reg1, Reg2 Register // primary/secondary register operands
	Imm8       uint8
	Imm16      uint16
	Imm32      uint32
	Addr       uint16 // absolute DRAM address operand (Lea, MoveA)
	PC         uint16 // absolute DRAM word-index jump target
}

// WordCount reports the encoded size of instr in 32-bit words (1 or 2).
func (instr Instruction) WordCount() int {
	return instr.Op.WordCount()
}

// String renders instr in source form, used by the disassembly listing
// and debug symbol output.
func (instr Instruction) String() string {
	switch instr.Op {
	case OpMoveR, OpCmp, OpAdd, OpSub:
		return fmt.Sprintf("%s %s %s", instr.Op, instr.Reg1, instr.Reg2)
	case OpIMoveL:
		return fmt.Sprintf("imovel %s %d", instr.Reg1, instr.Imm32)
	case OpMoveA:
		return fmt.Sprintf("movea %d %s", instr.Addr, instr.Reg1)
	case OpICmp:
		return fmt.Sprintf("icmp %s %d", instr.Reg1, instr.Imm16)
	case OpICmpL:
		return fmt.Sprintf("icmpl %s %d", instr.Reg1, instr.Imm32)
	case OpJE, OpJGT, OpJLT, OpJZ, OpJOV, OpJMP:
		return fmt.Sprintf("%s %d", instr.Op, instr.PC)
	case OpLea:
		return fmt.Sprintf("lea %d", instr.Addr)
	case OpLeaR:
		return fmt.Sprintf("lear %s", instr.Reg1)
	case OpIAdd:
		return fmt.Sprintf("iadd %d", instr.Imm8)
	case OpIAddL:
		return fmt.Sprintf("iaddl %d", instr.Imm32)
	case OpISub:
		return fmt.Sprintf("isub %d", instr.Imm8)
	case OpIPush:
		return fmt.Sprintf("ipush %d", instr.Imm16)
	case OpIPushL:
		return fmt.Sprintf("ipushl %d", instr.Imm32)
	case OpPush:
		return fmt.Sprintf("push %s", instr.Reg1)
	case OpPop:
		return "pop"
	case OpShl:
		return fmt.Sprintf("shl %s %d", instr.Reg1, instr.Imm8)
	case OpShr:
		return fmt.Sprintf("shr %s %d", instr.Reg1, instr.Imm8)
	case OpDump:
		return "dump"
	case OpDumpR:
		return fmt.Sprintf("dumpr %s", instr.Reg1)
	default:
		return "unknown"
	}
}
