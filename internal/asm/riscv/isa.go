package riscv

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Format is the bit layout class of an instruction.
type Format uint8

const (
	FormatR Format = iota + 1
	FormatI
	FormatILoad
	FormatS
	FormatB
	FormatJ
	FormatU
)

var formatNames = map[Format]string{
	FormatR:     "R",
	FormatI:     "I",
	FormatILoad: "I-load",
	FormatS:     "S",
	FormatB:     "B",
	FormatJ:     "J",
	FormatU:     "U",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat accepts the names used in instruction tables ("R", "I",
// "I-load", "S", "B", "J", "U"), case-insensitively.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("riscv: unknown instruction format %q", s)
}

func (f *Format) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("riscv: line %d: instruction format must be a scalar", value.Line)
	}
	parsed, err := ParseFormat(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*f = parsed
	return nil
}

func (f Format) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// Spec holds the fixed encoding fields of one mnemonic.
type Spec struct {
	Format Format `yaml:"format"`
	Opcode uint32 `yaml:"opcode"`
	Funct3 uint32 `yaml:"funct3"`
	Funct7 uint32 `yaml:"funct7,omitempty"`
}

func (s Spec) validate() error {
	switch {
	case s.Format == 0:
		return fmt.Errorf("missing format")
	case s.Opcode > 0x7f || s.Opcode&0x3 != 0x3:
		return fmt.Errorf("opcode %#x is not a 32-bit major opcode", s.Opcode)
	case s.Funct3 > 0x7:
		return fmt.Errorf("funct3 %#x does not fit 3 bits", s.Funct3)
	case s.Funct7 > 0x7f:
		return fmt.Errorf("funct7 %#x does not fit 7 bits", s.Funct7)
	}
	return nil
}

// TableMajorVersion is the only schema major version LoadTable accepts.
const TableMajorVersion = "v1"

type tableFile struct {
	Version      string          `yaml:"version"`
	Instructions map[string]Spec `yaml:"instructions"`
}

// Table is the read-only instruction metadata lookup used by the encoder.
type Table struct {
	version string
	specs   map[string]Spec
}

// LoadTable parses a YAML instruction table.
func LoadTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("riscv: parse instruction table: %w", err)
	}

	if !semver.IsValid(file.Version) {
		return nil, fmt.Errorf("riscv: instruction table version %q is not a semantic version", file.Version)
	}
	if major := semver.Major(file.Version); major != TableMajorVersion {
		return nil, fmt.Errorf("riscv: instruction table version %s unsupported (want %s.x.y)", file.Version, TableMajorVersion)
	}
	if len(file.Instructions) == 0 {
		return nil, fmt.Errorf("riscv: instruction table defines no instructions")
	}

	t := &Table{
		version: semver.Canonical(file.Version),
		specs:   make(map[string]Spec, len(file.Instructions)),
	}
	for name, spec := range file.Instructions {
		mnemonic := strings.ToLower(strings.TrimSpace(name))
		if mnemonic == "" {
			return nil, fmt.Errorf("riscv: instruction table has an empty mnemonic")
		}
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("riscv: instruction %q: %w", name, err)
		}
		if _, dup := t.specs[mnemonic]; dup {
			return nil, fmt.Errorf("riscv: instruction %q defined twice", mnemonic)
		}
		t.specs[mnemonic] = spec
	}
	return t, nil
}

// LoadTableFile reads and parses a YAML instruction table from disk.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("riscv: read instruction table: %w", err)
	}
	return LoadTable(data)
}

//go:embed instructions.yaml
var defaultTableYAML []byte

var (
	defaultTableOnce sync.Once
	defaultTable     *Table
)

// DefaultTable returns the built-in RV64IM table.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		t, err := LoadTable(defaultTableYAML)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Lookup returns the encoding fields for mnemonic.
func (t *Table) Lookup(mnemonic string) (Spec, bool) {
	if t == nil {
		return Spec{}, false
	}
	spec, ok := t.specs[strings.ToLower(mnemonic)]
	return spec, ok
}

func (t *Table) Version() string {
	return t.version
}

func (t *Table) Len() int {
	return len(t.specs)
}

// Mnemonics lists every mnemonic in the table in sorted order.
func (t *Table) Mnemonics() []string {
	out := make([]string, 0, len(t.specs))
	for name := range t.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
