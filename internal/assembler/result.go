package assembler

import (
	"fmt"

	"github.com/tinyrange/rvasm/internal/asm"
	"github.com/tinyrange/rvasm/internal/asm/riscv"
)

// LineError ties a failure to the source line that produced it.
type LineError struct {
	Line   int
	Source string
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Source, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// LineResult is the outcome of assembling one source statement.
type LineResult struct {
	Line Line
	// Address is the pc of the first instruction (or of the label).
	Address uint32
	// Expanded holds the real instructions the line expanded to, and PCs
	// the address each was encoded at.
	Expanded []string
	PCs      []uint32
	// Words is empty when Err is set.
	Words []uint32
	Err   error
}

// Error returns Err annotated with the source line, or nil.
func (r LineResult) Error() error {
	if r.Err == nil {
		return nil
	}
	return &LineError{Line: r.Line.Number, Source: r.Line.Text, Err: r.Err}
}

type Result struct {
	Lines      []LineResult
	Symbols    *asm.SymbolTable
	Addressing AddressingMode
}

// Words returns every encoded word in source order.
func (r *Result) Words() []uint32 {
	var out []uint32
	for _, line := range r.Lines {
		out = append(out, line.Words...)
	}
	return out
}

// Errors returns one *LineError per failed line.
func (r *Result) Errors() []error {
	var out []error
	for _, line := range r.Lines {
		if err := line.Error(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

func (r *Result) HasErrors() bool {
	for _, line := range r.Lines {
		if line.Err != nil {
			return true
		}
	}
	return false
}

// Program lays the words out as a little-endian image with label offsets.
// It fails if any line failed or a label is declared twice.
func (r *Result) Program() (asm.Program, error) {
	if errs := r.Errors(); len(errs) > 0 {
		return asm.Program{}, fmt.Errorf("assembler: %d line(s) failed, first: %w", len(errs), errs[0])
	}
	var frag asm.Group
	for _, line := range r.Lines {
		if line.Line.IsLabel() {
			frag = append(frag, asm.MarkLabel(asm.Label(line.Line.Label)))
			continue
		}
		for _, w := range line.Words {
			frag = append(frag, riscv.Word(w))
		}
	}
	return riscv.EmitProgram(frag)
}
