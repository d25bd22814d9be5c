package assembler

import (
	"fmt"
	"log/slog"
	"strings"
)

// AddressingMode selects how many bytes an instruction line occupies when
// label addresses are computed.
type AddressingMode int

const (
	// AddressingExpanded counts every real instruction a line expands to,
	// so labels after multi-word pseudo-instructions stay correct.
	AddressingExpanded AddressingMode = iota
	// AddressingLine counts 4 bytes per source line regardless of
	// expansion. Labels drift after li with a wide immediate, call or
	// tail; kept for compatibility with existing listings.
	AddressingLine
)

func (m AddressingMode) String() string {
	switch m {
	case AddressingExpanded:
		return "expanded"
	case AddressingLine:
		return "line"
	default:
		return fmt.Sprintf("AddressingMode(%d)", int(m))
	}
}

func ParseAddressingMode(s string) (AddressingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "expanded":
		return AddressingExpanded, nil
	case "line":
		return AddressingLine, nil
	default:
		return 0, fmt.Errorf("unknown addressing mode %q (want expanded or line)", s)
	}
}

type Options struct {
	Addressing AddressingMode
	// Strict stops at the first failing line and rejects duplicate labels.
	Strict bool
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
