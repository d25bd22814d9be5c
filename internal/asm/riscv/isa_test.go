package riscv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if table.Version() != "v1.0.0" {
		t.Errorf("Version()=%q, want v1.0.0", table.Version())
	}

	want := map[string]Spec{
		"add":   {Format: FormatR, Opcode: 0x33},
		"sub":   {Format: FormatR, Opcode: 0x33, Funct7: 0x20},
		"srai":  {Format: FormatI, Opcode: 0x13, Funct3: 5, Funct7: 0x20},
		"lw":    {Format: FormatILoad, Opcode: 0x03, Funct3: 2},
		"sd":    {Format: FormatS, Opcode: 0x23, Funct3: 3},
		"bgeu":  {Format: FormatB, Opcode: 0x63, Funct3: 7},
		"jal":   {Format: FormatJ, Opcode: 0x6f},
		"auipc": {Format: FormatU, Opcode: 0x17},
	}
	for name, spec := range want {
		got, ok := table.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) missing", name)
		}
		if got != spec {
			t.Errorf("Lookup(%q)=%+v, want %+v", name, got, spec)
		}
	}

	if _, ok := table.Lookup("ADD"); !ok {
		t.Error("Lookup should ignore case")
	}
	if _, ok := table.Lookup("nop"); ok {
		t.Error("pseudo-instructions must not be in the metadata table")
	}

	names := table.Mnemonics()
	if len(names) != table.Len() {
		t.Fatalf("Mnemonics() len=%d, Len()=%d", len(names), table.Len())
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Mnemonics() not sorted at %q", names[i])
		}
	}
}

func TestLoadTableValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  string
	}{
		{
			name: "missing version",
			doc:  "instructions:\n  add: {format: R, opcode: 0x33}\n",
			err:  "not a semantic version",
		},
		{
			name: "unsupported major",
			doc:  "version: v2.0.0\ninstructions:\n  add: {format: R, opcode: 0x33}\n",
			err:  "unsupported",
		},
		{
			name: "unknown format",
			doc:  "version: v1.0.0\ninstructions:\n  add: {format: Q, opcode: 0x33}\n",
			err:  "unknown instruction format",
		},
		{
			name: "bad opcode",
			doc:  "version: v1.0.0\ninstructions:\n  add: {format: R, opcode: 0x30}\n",
			err:  "major opcode",
		},
		{
			name: "wide funct3",
			doc:  "version: v1.0.0\ninstructions:\n  add: {format: R, opcode: 0x33, funct3: 8}\n",
			err:  "funct3",
		},
		{
			name: "empty",
			doc:  "version: v1.0.0\ninstructions: {}\n",
			err:  "no instructions",
		},
		{
			name: "case duplicate",
			doc:  "version: v1.0.0\ninstructions:\n  add: {format: R, opcode: 0x33}\n  ADD: {format: R, opcode: 0x33}\n",
			err:  "defined twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.err) {
				t.Fatalf("error %q does not mention %q", err, tt.err)
			}
		})
	}
}

func TestLoadTableFileCustomInstruction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "isa.yaml")
	doc := `version: v1.2.0
instructions:
  addi: {format: I, opcode: 0x13, funct3: 0x0}
  custom0: {format: R, opcode: 0x0b, funct3: 0x1, funct7: 0x02}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	table, err := LoadTableFile(path)
	if err != nil {
		t.Fatalf("LoadTableFile failed: %v", err)
	}
	enc := NewEncoder(table)

	insn, err := enc.Encode("custom0 x1, x2, x3")
	if err != nil {
		t.Fatalf("Encode custom0: %v", err)
	}
	opcode, rd, funct3, rs1, rs2, funct7 := decodeR(insn)
	if opcode != 0x0b || rd != 1 || funct3 != 1 || rs1 != 2 || rs2 != 3 || funct7 != 2 {
		t.Fatalf("custom0 decoded to %#x %d %d %d %d %#x", opcode, rd, funct3, rs1, rs2, funct7)
	}

	if _, err := enc.Encode("add x1, x2, x3"); err == nil {
		t.Fatal("add should be unknown in the custom table")
	}

	if _, err := LoadTableFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFormatYAML(t *testing.T) {
	out, err := yaml.Marshal(Spec{Format: FormatILoad, Opcode: 3, Funct3: 2})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(out), "format: I-load") {
		t.Fatalf("marshalled spec %q lacks format name", out)
	}

	var spec Spec
	if err := yaml.Unmarshal(out, &spec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if spec.Format != FormatILoad || spec.Funct3 != 2 {
		t.Fatalf("Unmarshal = %+v", spec)
	}

	if err := yaml.Unmarshal([]byte("format: [R]\n"), &spec); err == nil {
		t.Fatal("expected error for sequence format")
	}
}
