package assembler

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// OutputFormat selects how a Result is serialised.
type OutputFormat string

const (
	// FormatBinary writes each word as 32 binary digits, one per line.
	FormatBinary OutputFormat = "bin"
	// FormatHex writes each word as 0x%08x, one per line.
	FormatHex OutputFormat = "hex"
	// FormatListing writes address, word and source side by side.
	FormatListing OutputFormat = "list"
	// FormatRaw writes the little-endian image. Errors cannot be inlined.
	FormatRaw OutputFormat = "raw"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatBinary, nil
	case FormatBinary, FormatHex, FormatListing, FormatRaw:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want bin, hex, list or raw)", s)
	}
}

// Extension is the file suffix used for f when no output path is given.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatHex:
		return ".hex"
	case FormatListing:
		return ".lst"
	case FormatRaw:
		return ".img"
	default:
		return ".bin"
	}
}

var errorStyle = ansi.Style{}.Bold().ForegroundColor(ansi.Red)

// Writer serialises results. Failed lines are written inline as
// "error: line N: ..." in the textual formats.
type Writer struct {
	Format OutputFormat
	// Color styles inline errors with ANSI escapes.
	Color bool
}

func (w Writer) Write(out io.Writer, res *Result) error {
	if w.Format == FormatRaw {
		prog, err := res.Program()
		if err != nil {
			return err
		}
		_, err = out.Write(prog.Bytes())
		return err
	}

	bw := bufio.NewWriter(out)
	for _, line := range res.Lines {
		var err error
		if w.Format == FormatListing {
			err = w.writeListing(bw, line)
		} else {
			err = w.writeWords(bw, line)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (w Writer) writeWords(out io.Writer, line LineResult) error {
	if err := line.Error(); err != nil {
		_, werr := fmt.Fprintln(out, w.annotate(err))
		return werr
	}
	for _, word := range line.Words {
		if _, err := fmt.Fprintln(out, w.formatWord(word)); err != nil {
			return err
		}
	}
	return nil
}

func (w Writer) writeListing(out io.Writer, line LineResult) error {
	if line.Line.IsLabel() && line.Err == nil {
		_, err := fmt.Fprintf(out, "%08x            %s\n", line.Address, line.Line.Text)
		return err
	}
	if err := line.Error(); err != nil {
		_, werr := fmt.Fprintf(out, "%08x            %s\n", line.Address, w.annotate(err))
		return werr
	}
	for i, word := range line.Words {
		addr := line.Address
		if i < len(line.PCs) {
			addr = line.PCs[i]
		}
		src := "    " + line.Line.Text
		if i > 0 {
			src = "        " + line.Expanded[i]
		} else if len(line.Expanded) > 1 || line.Expanded[0] != line.Line.Text {
			src += "  # " + line.Expanded[0]
		}
		if _, err := fmt.Fprintf(out, "%08x  %08x%s\n", addr, word, src); err != nil {
			return err
		}
	}
	return nil
}

func (w Writer) formatWord(word uint32) string {
	if w.Format == FormatHex {
		return fmt.Sprintf("0x%08x", word)
	}
	return fmt.Sprintf("%032b", word)
}

func (w Writer) annotate(err error) string {
	msg := "error: " + err.Error()
	if w.Color {
		return errorStyle.Styled(msg)
	}
	return msg
}
