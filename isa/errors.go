package isa

import "errors"

// Sentinel errors returned by the CPU and assembler, following the
// teacher's package-level errcode convention (errProgramFinished,
// errSegmentationFault, ...).
var (
	// errProgramFinished signals the graceful two-Unknown halt discipline.
	errProgramFinished = errors.New("ran out of instructions")
	// errSegmentationFault signals PC, SP, or an address operand indexing outside DRAM.
	errSegmentationFault = errors.New("segmentation fault")
	// errIllegalOperation signals a register ID outside the seven valid IDs in a decoded instruction.
	errIllegalOperation = errors.New("illegal operation at instruction")
	// errUnknownInstruction signals a single stray Unknown that did not resolve into a clean halt.
	errUnknownInstruction = errors.New("instruction not recognized")
	// errIO signals a failure loading or saving a binary image.
	errIO = errors.New("input-output error")
)

// ErrProgramFinished reports whether err is the graceful end-of-program
// sentinel (two consecutive Unknown decodes), as opposed to a real
// runtime failure.
func ErrProgramFinished(err error) bool {
	return err == errProgramFinished
}
