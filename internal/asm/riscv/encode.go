package riscv

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrSyntax          = errors.New("riscv: malformed operands")
	ErrUnknownMnemonic = errors.New("riscv: unknown mnemonic")
	ErrInvalidLiteral  = errors.New("riscv: invalid numeric literal")
	ErrBadRegister     = errors.New("riscv: invalid register")
	ErrOutOfRange      = errors.New("riscv: immediate out of range")
	ErrMisaligned      = errors.New("riscv: misaligned offset")
)

// Immediate ranges of each format.
const (
	minImm12 = -2048
	maxImm12 = 2047

	minBranch = -4096
	maxBranch = 4094

	minJump = -(1 << 20)
	maxJump = 1<<20 - 2

	minUpper = -(1 << 19)
	maxUpper = 1<<20 - 1
)

// Shift-immediate mnemonics carry a shift amount and a funct7
// discriminator instead of a signed immediate.
var shiftAmountBits = map[string]uint{
	"slli":  6,
	"srli":  6,
	"srai":  6,
	"slliw": 5,
	"srliw": 5,
	"sraiw": 5,
}

// systemImmediates lists the operand-free I-type instructions.
var systemImmediates = map[string]int64{
	"ecall":  0,
	"ebreak": 1,
}

// Encoder packs canonical instruction lines into 32-bit words using a
// metadata table. Label operands must already be resolved to integers.
type Encoder struct {
	table *Table
}

// NewEncoder returns an encoder over table, or over DefaultTable when
// table is nil.
func NewEncoder(table *Table) *Encoder {
	if table == nil {
		table = DefaultTable()
	}
	return &Encoder{table: table}
}

func (e *Encoder) Table() *Table {
	return e.table
}

// Encode encodes a single instruction line such as "addi x1, x2, -3".
func (e *Encoder) Encode(line string) (uint32, error) {
	mnemonic, operands := SplitInstruction(line)
	if mnemonic == "" {
		return 0, fmt.Errorf("%w: empty instruction", ErrSyntax)
	}
	return e.EncodeInstruction(mnemonic, operands)
}

// EncodeInstruction encodes mnemonic with already split operands.
func (e *Encoder) EncodeInstruction(mnemonic string, operands []string) (uint32, error) {
	name := strings.ToLower(mnemonic)
	spec, ok := e.table.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownMnemonic, mnemonic)
	}

	if imm, ok := systemImmediates[name]; ok {
		if len(operands) != 0 {
			return 0, fmt.Errorf("%w: %s takes no operands", ErrSyntax, name)
		}
		return encodeI(imm, uint32(X0), spec.Funct3, uint32(X0), spec.Opcode)
	}

	switch spec.Format {
	case FormatR:
		return e.encodeRType(name, spec, operands)
	case FormatI:
		return e.encodeIType(name, spec, operands)
	case FormatILoad:
		return e.encodeLoad(name, spec, operands)
	case FormatS:
		return e.encodeStore(name, spec, operands)
	case FormatB:
		return e.encodeBranch(name, spec, operands)
	case FormatJ:
		return e.encodeJump(name, spec, operands)
	case FormatU:
		return e.encodeUpper(name, spec, operands)
	default:
		return 0, fmt.Errorf("riscv: %s has unsupported format %s", name, spec.Format)
	}
}

func (e *Encoder) encodeRType(name string, spec Spec, ops []string) (uint32, error) {
	if err := wantOperands(name, ops, 3, "rd, rs1, rs2"); err != nil {
		return 0, err
	}
	regs, err := parseRegisters(ops...)
	if err != nil {
		return 0, err
	}
	return encodeR(spec.Funct7, regs[2], regs[1], spec.Funct3, regs[0], spec.Opcode), nil
}

func (e *Encoder) encodeIType(name string, spec Spec, ops []string) (uint32, error) {
	// jalr rd, imm(rs1)
	if name == "jalr" && len(ops) == 2 {
		rd, err := ParseRegister(ops[0])
		if err != nil {
			return 0, err
		}
		imm, rs1, err := ParseMemoryOperand(ops[1])
		if err != nil {
			return 0, err
		}
		return encodeI(imm, uint32(rs1), spec.Funct3, uint32(rd), spec.Opcode)
	}

	if err := wantOperands(name, ops, 3, "rd, rs1, imm"); err != nil {
		return 0, err
	}
	regs, err := parseRegisters(ops[0], ops[1])
	if err != nil {
		return 0, err
	}
	imm, err := ParseImmediate(ops[2])
	if err != nil {
		return 0, err
	}

	if bits, ok := shiftAmountBits[name]; ok {
		if imm < 0 || imm >= 1<<bits {
			return 0, fmt.Errorf("%w: shift amount %d for %s must be in [0, %d]", ErrOutOfRange, imm, name, 1<<bits-1)
		}
		return encodeShift(uint32(imm), spec.Funct7, regs[1], spec.Funct3, regs[0], spec.Opcode), nil
	}
	return encodeI(imm, regs[1], spec.Funct3, regs[0], spec.Opcode)
}

func (e *Encoder) encodeLoad(name string, spec Spec, ops []string) (uint32, error) {
	if err := wantOperands(name, ops, 2, "rd, imm(rs1)"); err != nil {
		return 0, err
	}
	rd, err := ParseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	imm, rs1, err := ParseMemoryOperand(ops[1])
	if err != nil {
		return 0, err
	}
	return encodeI(imm, uint32(rs1), spec.Funct3, uint32(rd), spec.Opcode)
}

func (e *Encoder) encodeStore(name string, spec Spec, ops []string) (uint32, error) {
	if err := wantOperands(name, ops, 2, "rs2, imm(rs1)"); err != nil {
		return 0, err
	}
	rs2, err := ParseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	imm, rs1, err := ParseMemoryOperand(ops[1])
	if err != nil {
		return 0, err
	}
	return encodeS(imm, uint32(rs1), uint32(rs2), spec.Funct3, spec.Opcode)
}

func (e *Encoder) encodeBranch(name string, spec Spec, ops []string) (uint32, error) {
	if err := wantOperands(name, ops, 3, "rs1, rs2, offset"); err != nil {
		return 0, err
	}
	regs, err := parseRegisters(ops[0], ops[1])
	if err != nil {
		return 0, err
	}
	imm, err := ParseImmediate(ops[2])
	if err != nil {
		return 0, err
	}
	return encodeB(imm, regs[0], regs[1], spec.Funct3, spec.Opcode)
}

func (e *Encoder) encodeJump(name string, spec Spec, ops []string) (uint32, error) {
	if err := wantOperands(name, ops, 2, "rd, offset"); err != nil {
		return 0, err
	}
	rd, err := ParseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	imm, err := ParseImmediate(ops[1])
	if err != nil {
		return 0, err
	}
	return encodeJ(imm, uint32(rd), spec.Opcode)
}

func (e *Encoder) encodeUpper(name string, spec Spec, ops []string) (uint32, error) {
	if err := wantOperands(name, ops, 2, "rd, imm"); err != nil {
		return 0, err
	}
	rd, err := ParseRegister(ops[0])
	if err != nil {
		return 0, err
	}
	imm, err := ParseImmediate(ops[1])
	if err != nil {
		return 0, err
	}
	return encodeU(imm, uint32(rd), spec.Opcode)
}

func wantOperands(name string, ops []string, n int, form string) error {
	if len(ops) != n {
		return fmt.Errorf("%w: %s expects %d operands (%s %s), got %d", ErrSyntax, name, n, name, form, len(ops))
	}
	return nil
}

func parseRegisters(toks ...string) ([]uint32, error) {
	out := make([]uint32, len(toks))
	for i, tok := range toks {
		reg, err := ParseRegister(tok)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(reg)
	}
	return out, nil
}

// ParseImmediate parses a signed integer literal in decimal, 0x hex, 0b
// binary or 0o octal notation. Digit separators are not accepted.
func ParseImmediate(tok string) (int64, error) {
	s := strings.TrimSpace(tok)
	if strings.ContainsRune(s, '_') {
		return 0, fmt.Errorf("%w %q", ErrInvalidLiteral, tok)
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidLiteral, tok)
	}
	return v, nil
}

var memOperandRE = regexp.MustCompile(`^([^()]*)\(\s*([A-Za-z0-9]+)\s*\)$`)

// ParseMemoryOperand splits "imm(reg)" into its offset and base register.
// An empty offset is zero.
func ParseMemoryOperand(tok string) (int64, Register, error) {
	m := memOperandRE.FindStringSubmatch(strings.TrimSpace(tok))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q is not of the form offset(register)", ErrSyntax, tok)
	}
	var imm int64
	if off := strings.TrimSpace(m[1]); off != "" {
		v, err := ParseImmediate(off)
		if err != nil {
			return 0, 0, err
		}
		imm = v
	}
	reg, err := ParseRegister(m[2])
	if err != nil {
		return 0, 0, err
	}
	return imm, reg, nil
}

// SplitInstruction separates the mnemonic from its comma-separated
// operands. Commas inside parentheses do not split.
func SplitInstruction(line string) (string, []string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	idx := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if idx < 0 {
		return line, nil
	}
	return line[:idx], SplitOperands(line[idx+1:])
}

// SplitOperands splits on commas but respects parentheses.
func SplitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var result []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				result = append(result, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	result = append(result, strings.TrimSpace(s[start:]))
	return result
}

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encodeI(imm int64, rs1 uint32, funct3 uint32, rd uint32, opcode uint32) (uint32, error) {
	if imm < minImm12 || imm > maxImm12 {
		return 0, fmt.Errorf("%w: %d does not fit I-type", ErrOutOfRange, imm)
	}
	uimm := uint32(imm) & 0xfff
	return (uimm << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode, nil
}

// encodeShift places funct7 in bits 31:25 and the shift amount in 25:20;
// a 6-bit amount overlaps the low funct7 bit, which is always zero.
func encodeShift(shamt uint32, funct7 uint32, rs1 uint32, funct3 uint32, rd uint32, opcode uint32) uint32 {
	return (funct7 << 25) | (shamt << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encodeS(imm int64, rs1 uint32, rs2 uint32, funct3 uint32, opcode uint32) (uint32, error) {
	if imm < minImm12 || imm > maxImm12 {
		return 0, fmt.Errorf("%w: %d does not fit S-type", ErrOutOfRange, imm)
	}
	uimm := uint32(imm) & 0xfff
	immHi := (uimm >> 5) & 0x7f
	immLo := uimm & 0x1f

	return (immHi << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (immLo << 7) | opcode, nil
}

// encodeB scatters imm[12|10:5] into bits 31:25 and imm[4:1|11] into 11:7.
func encodeB(imm int64, rs1 uint32, rs2 uint32, funct3 uint32, opcode uint32) (uint32, error) {
	if imm&1 != 0 {
		return 0, fmt.Errorf("%w: branch offset %d is odd", ErrMisaligned, imm)
	}
	if imm < minBranch || imm > maxBranch {
		return 0, fmt.Errorf("%w: branch offset %d outside [%d, %d]", ErrOutOfRange, imm, minBranch, maxBranch)
	}
	u := uint32(imm)
	return (((u >> 12) & 0x1) << 31) | (((u >> 5) & 0x3f) << 25) |
		(rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		(((u >> 1) & 0xf) << 8) | (((u >> 11) & 0x1) << 7) | opcode, nil
}

// encodeJ places imm[20|10:1|11|19:12] into bits 31:12.
func encodeJ(imm int64, rd uint32, opcode uint32) (uint32, error) {
	if imm&1 != 0 {
		return 0, fmt.Errorf("%w: jump offset %d is odd", ErrMisaligned, imm)
	}
	if imm < minJump || imm > maxJump {
		return 0, fmt.Errorf("%w: jump offset %d outside [%d, %d]", ErrOutOfRange, imm, minJump, maxJump)
	}
	u := uint32(imm)
	return (((u >> 20) & 0x1) << 31) | (((u >> 1) & 0x3ff) << 21) |
		(((u >> 11) & 0x1) << 20) | (((u >> 12) & 0xff) << 12) |
		(rd << 7) | opcode, nil
}

func encodeU(imm int64, rd uint32, opcode uint32) (uint32, error) {
	if imm < minUpper || imm > maxUpper {
		return 0, fmt.Errorf("%w: %d does not fit U-type", ErrOutOfRange, imm)
	}
	uimm := uint32(imm) & 0xfffff
	return (uimm << 12) | (rd << 7) | opcode, nil
}
