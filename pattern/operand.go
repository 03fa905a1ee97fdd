package pattern

import (
	"errors"

	"golang.org/x/arch/x86/x86asm"
)

var ErrNoOperand = errors.New("instruction has no constant operand")

// Operand decodes the first instruction in code and returns the constant it carries:
// the immediate if there is one, otherwise an absolute memory displacement.
// mode is the x86 decoding mode (16, 32 or 64).
func Operand(code []byte, mode int) (uint64, error) {
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return 0, err
	}
	for _, arg := range inst.Args {
		if imm, ok := arg.(x86asm.Imm); ok {
			return truncate(uint64(imm), mode), nil
		}
	}
	for _, arg := range inst.Args {
		if mem, ok := arg.(x86asm.Mem); ok && mem.Base == 0 && mem.Index == 0 {
			return truncate(uint64(mem.Disp), mode), nil
		}
	}
	return 0, ErrNoOperand
}

func truncate(v uint64, mode int) uint64 {
	if mode < 64 {
		v &= 1<<mode - 1
	}
	return v
}

// InstructionLen reports the length of the first instruction in code, 0 if it cannot be decoded.
func InstructionLen(code []byte, mode int) int {
	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		return 0
	}
	return inst.Len
}
