package assembler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CommentChar starts a comment that runs to the end of the line.
const CommentChar = '#'

// Line is one non-empty source statement.
type Line struct {
	// Number is the 1-based line number in the input.
	Number int
	// Text is the statement with the comment and surrounding whitespace
	// removed.
	Text string
	// Label is the declared name when Text ends in ':'.
	Label string
}

func (l Line) IsLabel() bool {
	return strings.HasSuffix(l.Text, ":")
}

// CleanLine strips the trailing comment and surrounding whitespace.
func CleanLine(raw string) string {
	if idx := strings.IndexByte(raw, CommentChar); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}

// ReadLines reads r and returns its non-empty statements.
func ReadLines(r io.Reader) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	number := 0
	for scanner.Scan() {
		number++
		text := CleanLine(scanner.Text())
		if text == "" {
			continue
		}
		lines = append(lines, splitStatement(number, text)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return lines, nil
}

// splitStatement separates "name: instr" into a label line followed by an
// instruction line with the same number.
func splitStatement(number int, text string) []Line {
	if strings.HasSuffix(text, ":") {
		return []Line{{Number: number, Text: text, Label: strings.TrimSpace(strings.TrimSuffix(text, ":"))}}
	}
	fields := strings.Fields(text)
	if len(fields) > 1 && strings.HasSuffix(fields[0], ":") && !strings.Contains(fields[0], ",") {
		rest := strings.TrimSpace(text[len(fields[0]):])
		return []Line{
			{Number: number, Text: fields[0], Label: strings.TrimSuffix(fields[0], ":")},
			{Number: number, Text: rest},
		}
	}
	return []Line{{Number: number, Text: text}}
}
