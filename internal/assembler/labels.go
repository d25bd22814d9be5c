package assembler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinyrange/rvasm/internal/asm"
	"github.com/tinyrange/rvasm/internal/asm/riscv"
)

var (
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrUndefinedLabel = errors.New("undefined label")
	ErrEmptyLabel     = errors.New("empty label name")
	ErrInvalidLabel   = errors.New("invalid label name")
)

// checkLabel rejects names an operand could never refer to: numbers and
// register names are always read as such.
func checkLabel(name string) error {
	if name == "" {
		return ErrEmptyLabel
	}
	if !isIdentifier(name) {
		return fmt.Errorf("%w %q", ErrInvalidLabel, name)
	}
	return nil
}

// ResolveLabels is the first pass: it binds every label declaration to the
// address of the next instruction. Instruction semantics are not checked.
func ResolveLabels(lines []Line, opts Options) (*asm.SymbolTable, error) {
	log := opts.logger()
	defs := make(map[asm.Label]uint32)
	var addr uint32

	for _, line := range lines {
		if !line.IsLabel() {
			addr += 4 * uint32(instructionCount(line.Text, opts.Addressing))
			continue
		}
		if checkLabel(line.Label) != nil {
			continue
		}
		name := asm.Label(line.Label)
		if prev, dup := defs[name]; dup {
			if opts.Strict {
				return nil, &LineError{
					Line:   line.Number,
					Source: line.Text,
					Err:    fmt.Errorf("%w %q (previously at %#x)", ErrDuplicateLabel, line.Label, prev),
				}
			}
			log.Warn("duplicate label, last declaration wins",
				slog.String("label", line.Label),
				slog.Int("line", line.Number),
				slog.Uint64("previous", uint64(prev)),
				slog.Uint64("address", uint64(addr)))
		}
		defs[name] = addr
	}

	symbols := asm.NewSymbolTable(defs)
	for _, sym := range symbols.Symbols() {
		log.Debug("label", slog.String("name", string(sym.Name)), slog.String("address", fmt.Sprintf("%#x", sym.Address)))
	}
	return symbols, nil
}

// instructionCount is the number of words a line occupies for addressing.
// A line that fails to expand still reserves one word.
func instructionCount(text string, mode AddressingMode) int {
	if mode == AddressingLine {
		return 1
	}
	expanded, err := riscv.Expand(text)
	if err != nil || len(expanded) == 0 {
		return 1
	}
	return len(expanded)
}
