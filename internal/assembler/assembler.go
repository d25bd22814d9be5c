package assembler

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tinyrange/rvasm/internal/asm/riscv"
)

// Assembler runs both passes over a source and encodes it.
type Assembler struct {
	enc  *riscv.Encoder
	opts Options
	log  *slog.Logger
}

// New returns an assembler over table, or over the built-in table when
// table is nil.
func New(table *riscv.Table, opts Options) *Assembler {
	return &Assembler{
		enc:  riscv.NewEncoder(table),
		opts: opts,
		log:  opts.logger(),
	}
}

// Assemble reads a whole source from r and assembles it.
func (a *Assembler) Assemble(r io.Reader) (*Result, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return a.AssembleLines(lines)
}

func (a *Assembler) AssembleString(src string) (*Result, error) {
	return a.Assemble(strings.NewReader(src))
}

// AssembleLines runs Pass 1 and Pass 2 over lines. Failing lines are
// recorded in the result and assembly continues, unless Options.Strict is
// set, in which case the first failure is returned together with the
// partial result.
func (a *Assembler) AssembleLines(lines []Line) (*Result, error) {
	symbols, err := ResolveLabels(lines, a.opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Lines:      make([]LineResult, 0, len(lines)),
		Symbols:    symbols,
		Addressing: a.opts.Addressing,
	}

	// one resolver per run so a %lo can pair with an auipc on an earlier line.
	r := &resolver{table: a.enc.Table(), symbols: symbols}
	var pc uint32
	for _, line := range lines {
		var lr LineResult
		if line.IsLabel() {
			lr = LineResult{Line: line, Address: pc, Err: checkLabel(line.Label)}
		} else {
			lr = a.assembleLine(r, line, pc)
			pc += 4 * uint32(a.advance(lr))
		}
		res.Lines = append(res.Lines, lr)

		if err := lr.Error(); err != nil {
			a.log.Debug("line failed", slog.Int("line", line.Number), slog.String("error", err.Error()))
			if a.opts.Strict {
				return res, err
			}
		}
	}
	return res, nil
}

// advance returns the words a line occupies, matching ResolveLabels.
func (a *Assembler) advance(lr LineResult) int {
	if a.opts.Addressing == AddressingLine || len(lr.Expanded) == 0 {
		return 1
	}
	return len(lr.Expanded)
}

func (a *Assembler) assembleLine(r *resolver, line Line, pc uint32) LineResult {
	lr := LineResult{Line: line, Address: pc}

	expanded, err := riscv.Expand(line.Text)
	if err != nil {
		lr.Err = err
		return lr
	}
	lr.Expanded = expanded
	if mnemonic, ops := riscv.SplitInstruction(line.Text); riscv.IsPseudo(mnemonic, len(ops)) {
		a.log.Debug("expanded pseudo-instruction",
			slog.Int("line", line.Number),
			slog.String("source", line.Text),
			slog.Any("expansion", expanded))
	}

	words := make([]uint32, 0, len(expanded))
	for i, text := range expanded {
		insnPC := pc
		if a.opts.Addressing == AddressingExpanded {
			insnPC = pc + 4*uint32(i)
		}
		lr.PCs = append(lr.PCs, insnPC)

		resolved, err := r.resolve(text, insnPC)
		if err == nil {
			var word uint32
			if word, err = a.enc.Encode(resolved); err == nil {
				words = append(words, word)
				continue
			}
		}
		if text != line.Text {
			err = fmt.Errorf("%s: %w", text, err)
		}
		lr.Err = err
		return lr
	}
	lr.Words = words
	return lr
}
