package riscv

import (
	"fmt"
	"strings"
)

// li loads a signed 32-bit value, sign-extended to the full RV64 register.
const (
	minLoadImmediate = -(1 << 31)
	maxLoadImmediate = 1<<31 - 1
)

// luiSignBit is the upper part whose lui result sign-extends on RV64. The
// low part is then added with addiw so the sum wraps within 32 bits.
const luiSignBit = 0x80000

type pseudoForm struct {
	operands int
	expand   func(ops []string) ([]string, error)
}

func rewrite(format string) func([]string) ([]string, error) {
	return func(ops []string) ([]string, error) {
		args := make([]any, len(ops))
		for i, op := range ops {
			args[i] = op
		}
		return []string{fmt.Sprintf(format, args...)}, nil
	}
}

var pseudoForms = map[string]pseudoForm{
	"nop":    {0, rewrite("addi x0, x0, 0")},
	"li":     {2, expandLoadImmediate},
	"mv":     {2, rewrite("addi %s, %s, 0")},
	"not":    {2, rewrite("xori %s, %s, -1")},
	"neg":    {2, rewrite("sub %s, x0, %s")},
	"negw":   {2, rewrite("subw %s, x0, %s")},
	"sext.w": {2, rewrite("addiw %s, %s, 0")},
	"seqz":   {2, rewrite("sltiu %s, %s, 1")},
	"snez":   {2, rewrite("sltu %s, x0, %s")},
	"sltz":   {2, rewrite("slt %s, %s, x0")},
	"sgtz":   {2, rewrite("slt %s, x0, %s")},

	"beqz": {2, rewrite("beq %s, x0, %s")},
	"bnez": {2, rewrite("bne %s, x0, %s")},
	"bgez": {2, rewrite("bge %s, x0, %s")},
	"bltz": {2, rewrite("blt %s, x0, %s")},
	"blez": {2, rewrite("bge x0, %s, %s")},
	"bgtz": {2, rewrite("blt x0, %s, %s")},

	"bgt":  {3, swapBranch("blt")},
	"ble":  {3, swapBranch("bge")},
	"bgtu": {3, swapBranch("bltu")},
	"bleu": {3, swapBranch("bgeu")},

	"j":   {1, rewrite("jal x0, %s")},
	"jr":  {1, rewrite("jalr x0, %s, 0")},
	"ret": {0, rewrite("jalr x0, x1, 0")},

	"call": {1, farJump("x1", "x1")},
	"tail": {1, farJump("x0", "x6")},
}

// Real mnemonics that also have a shorter pseudo form. Other operand
// counts pass through to the encoder.
var shortForms = map[string]pseudoForm{
	"jal":  {1, rewrite("jal x1, %s")},
	"jalr": {1, rewrite("jalr x1, %s, 0")},
}

// swapBranch rewrites "op rs, rt, off" to "real rt, rs, off".
func swapBranch(real string) func([]string) ([]string, error) {
	return func(ops []string) ([]string, error) {
		return []string{fmt.Sprintf("%s %s, %s, %s", real, ops[1], ops[0], ops[2])}, nil
	}
}

// farJump builds the auipc+jalr pair used by call and tail; link is the
// jalr destination and scratch holds the upper part of the offset.
func farJump(link, scratch string) func([]string) ([]string, error) {
	return func(ops []string) ([]string, error) {
		target := ops[0]
		return []string{
			fmt.Sprintf("auipc %s, %%hi(%s)", scratch, target),
			fmt.Sprintf("jalr %s, %s, %%lo(%s)", link, scratch, target),
		}, nil
	}
}

func expandLoadImmediate(ops []string) ([]string, error) {
	rd := ops[0]
	imm, err := ParseImmediate(ops[1])
	if err != nil {
		return nil, fmt.Errorf("li: %w", err)
	}
	if imm < minLoadImmediate || imm > maxLoadImmediate {
		return nil, fmt.Errorf("li: %w %q: value does not fit a signed 32-bit immediate", ErrInvalidLiteral, ops[1])
	}
	if imm >= minImm12 && imm <= maxImm12 {
		return []string{fmt.Sprintf("addi %s, x0, %d", rd, imm)}, nil
	}
	hi, lo := SplitImmediate(uint32(imm))
	add := "addi"
	if hi == luiSignBit {
		add = "addiw"
	}
	return []string{
		fmt.Sprintf("lui %s, %d", rd, hi),
		fmt.Sprintf("%s %s, %s, %d", add, rd, rd, lo),
	}, nil
}

// SplitImmediate divides a 32-bit value into the 20-bit upper part loaded
// by lui/auipc and the sign-extended 12-bit remainder added by addi/jalr.
// The upper part is rounded so that the remainder lies in [-2048, 2047].
func SplitImmediate(v uint32) (hi uint32, lo int32) {
	hi = ((v + 0x800) >> 12) & 0xfffff
	lo = int32(v - hi<<12)
	return hi, lo
}

// IsPseudo reports whether mnemonic has an expansion with n operands.
func IsPseudo(mnemonic string, n int) bool {
	name := strings.ToLower(mnemonic)
	if form, ok := pseudoForms[name]; ok {
		return form.operands == n
	}
	if form, ok := shortForms[name]; ok {
		return form.operands == n
	}
	return false
}

// Expand rewrites one instruction line into the real instructions it
// stands for. Lines that are not pseudo-instructions are returned
// unchanged as a single element.
func Expand(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	mnemonic, ops := SplitInstruction(line)
	name := strings.ToLower(mnemonic)

	if form, ok := shortForms[name]; ok && len(ops) == form.operands {
		return form.expand(ops)
	}

	form, ok := pseudoForms[name]
	if !ok {
		return []string{line}, nil
	}
	if len(ops) != form.operands {
		return nil, fmt.Errorf("%w: %s expects %d operands, got %d", ErrSyntax, name, form.operands, len(ops))
	}
	for _, op := range ops {
		if op == "" {
			return nil, fmt.Errorf("%w: %s has an empty operand", ErrSyntax, name)
		}
	}
	return form.expand(ops)
}
