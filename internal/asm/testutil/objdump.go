package testutil

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Disassemblers tried, in order, by DisassembleRISCV.
var riscvObjdumps = []string{
	"riscv64-linux-gnu-objdump",
	"riscv64-unknown-elf-objdump",
	"riscv64-elf-objdump",
}

// DisasmLine is one instruction reported by objdump.
type DisasmLine struct {
	Text       string
	Normalized string
	Mnemonic   string
	// Word is the raw instruction when the tool printed it.
	Word uint32
}

// Contains reports whether the normalized instruction text contains substr.
func (l DisasmLine) Contains(substr string) bool {
	return strings.Contains(l.Normalized, substr)
}

// DisassembleRISCV feeds code to the first RISC-V objdump found on PATH as a
// raw rv64 image, with aliases and ABI register names disabled so the output
// reads "addi x1,x0,1". The test is skipped when no such tool is installed.
func DisassembleRISCV(t *testing.T, code []byte) []DisasmLine {
	t.Helper()

	var tool string
	for _, name := range riscvObjdumps {
		if path, err := exec.LookPath(name); err == nil {
			tool = path
			break
		}
	}
	if tool == "" {
		t.Skipf("no RISC-V objdump found (tried %s)", strings.Join(riscvObjdumps, ", "))
	}

	image := writeImage(t, code)
	out, err := exec.Command(tool, "-D", "-b", "binary", "-m", "riscv:rv64", "-M", "no-aliases,numeric", image).CombinedOutput()
	if err != nil {
		t.Fatalf("%s failed: %v\n\n%s", tool, err, out)
	}

	lines, err := parseObjdumpOutput(string(out))
	if err != nil {
		t.Fatalf("parse objdump output: %v", err)
	}
	if len(lines) == 0 {
		t.Fatalf("objdump produced no instructions:\n%s", out)
	}
	return lines
}

func writeImage(t *testing.T, code []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, code, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

// parseObjdumpOutput keeps "addr: word mnemonic operands" lines and drops
// headers and symbol lines.
func parseObjdumpOutput(out string) ([]DisasmLine, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	var lines []DisasmLine
	for scanner.Scan() {
		line := scanner.Text()
		colon := strings.IndexRune(line, ':')
		if colon == -1 {
			continue
		}
		text := strings.TrimSpace(line[colon+1:])
		if text == "" || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "file format") {
			continue
		}
		fields := strings.Fields(text)
		var word uint32
		if len(fields) > 1 && len(fields[0]) == 8 {
			if v, err := strconv.ParseUint(fields[0], 16, 32); err == nil {
				word = uint32(v)
				fields = fields[1:]
			}
		}
		lines = append(lines, DisasmLine{
			Text:       text,
			Normalized: strings.Join(fields, " "),
			Mnemonic:   strings.ToLower(fields[0]),
			Word:       word,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan objdump output: %w", err)
	}
	return lines, nil
}
