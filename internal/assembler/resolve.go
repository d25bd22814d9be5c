package assembler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/tinyrange/rvasm/internal/asm"
	"github.com/tinyrange/rvasm/internal/asm/riscv"
)

// %hi(sym) / %lo(sym), optionally followed by a base register as in
// "lw a0, %lo(sym)(a0)".
var relocRE = regexp.MustCompile(`^%(hi|lo)\(\s*([^()]*?)\s*\)(\(\s*[A-Za-z0-9]+\s*\))?$`)

// resolver substitutes label operands in the real instructions produced
// from one source line. Only whole operand tokens are replaced, never
// substrings.
type resolver struct {
	table   *riscv.Table
	symbols *asm.SymbolTable

	// pc and symbol of the auipc that produced the last %hi. A %lo of the
	// same symbol is relative to it until another %hi replaces it.
	anchor    uint32
	anchorSym string
	anchored  bool
}

func (r *resolver) resolve(text string, pc uint32) (string, error) {
	mnemonic, ops := riscv.SplitInstruction(text)
	if len(ops) == 0 {
		return text, nil
	}
	name := strings.ToLower(mnemonic)
	spec, known := r.table.Lookup(name)
	pcRelative := known && (spec.Format == riscv.FormatB || spec.Format == riscv.FormatJ)

	out := make([]string, len(ops))
	for i, op := range ops {
		v, err := r.operand(name, op, pc, pcRelative && i == len(ops)-1)
		if err != nil {
			return "", err
		}
		out[i] = v
	}
	return mnemonic + " " + strings.Join(out, ", "), nil
}

func (r *resolver) operand(mnemonic, op string, pc uint32, relative bool) (string, error) {
	if m := relocRE.FindStringSubmatch(op); m != nil {
		v, err := r.relocation(mnemonic, m[1], m[2], pc)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10) + m[3], nil
	}
	if isRegister(op) {
		return op, nil
	}
	if addr, ok := r.symbols.Lookup(op); ok {
		if relative {
			return strconv.FormatInt(int64(addr)-int64(pc), 10), nil
		}
		return strconv.FormatUint(uint64(addr), 10), nil
	}
	if relative && isIdentifier(op) {
		return "", fmt.Errorf("%w %q", ErrUndefinedLabel, op)
	}

	// label(reg)
	if open := strings.IndexByte(op, '('); open > 0 && strings.HasSuffix(op, ")") {
		base := strings.TrimSpace(op[:open])
		if addr, ok := r.symbols.Lookup(base); ok {
			return strconv.FormatUint(uint64(addr), 10) + op[open:], nil
		}
	}
	return op, nil
}

// relocation evaluates %hi/%lo. After auipc the pair is PC-relative to the
// auipc, across lines too; after any other %hi (lui) it splits the absolute
// address.
func (r *resolver) relocation(mnemonic, kind, sym string, pc uint32) (int64, error) {
	target, err := r.target(sym)
	if err != nil {
		return 0, err
	}
	if kind == "hi" {
		value := target
		r.anchored = false
		if mnemonic == "auipc" {
			value = target - pc
			r.anchor, r.anchorSym, r.anchored = pc, sym, true
		}
		hi, _ := riscv.SplitImmediate(value)
		return int64(hi), nil
	}
	value := target
	if r.anchored && r.anchorSym == sym {
		value = target - r.anchor
	}
	_, lo := riscv.SplitImmediate(value)
	return int64(lo), nil
}

func (r *resolver) target(sym string) (uint32, error) {
	if addr, ok := r.symbols.Lookup(sym); ok {
		return addr, nil
	}
	if isIdentifier(sym) {
		return 0, fmt.Errorf("%w %q", ErrUndefinedLabel, sym)
	}
	v, err := riscv.ParseImmediate(sym)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func isRegister(tok string) bool {
	_, err := riscv.ParseRegister(tok)
	return err == nil
}

// isIdentifier reports whether tok looks like a symbol name rather than a
// number or register.
func isIdentifier(tok string) bool {
	if tok == "" || isRegister(tok) {
		return false
	}
	for i, r := range tok {
		switch {
		case r == '_' || r == '.' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '$'):
		default:
			return false
		}
	}
	return true
}
