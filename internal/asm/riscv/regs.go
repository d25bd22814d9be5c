package riscv

import (
	"fmt"
	"strconv"
	"strings"
)

// Register is an integer register index in the range 0-31.
type Register uint32

const (
	X0 Register = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	X31
)

// Standard calling-convention names.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

var abiRegisters = func() map[string]Register {
	m := make(map[string]Register, len(abiNames)+1)
	for i, name := range abiNames {
		m[name] = Register(i)
	}
	m["fp"] = X8
	return m
}()

func (r Register) String() string {
	return "x" + strconv.Itoa(int(r))
}

// ParseRegister resolves "xN" or an ABI alias to a register index.
func ParseRegister(tok string) (Register, error) {
	name := strings.ToLower(strings.TrimSpace(tok))
	if reg, ok := abiRegisters[name]; ok {
		return reg, nil
	}
	if len(name) >= 2 && name[0] == 'x' {
		n, err := strconv.ParseUint(name[1:], 10, 8)
		if err == nil && n <= 31 && (len(name) == 2 || name[1] != '0') {
			return Register(n), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrBadRegister, tok)
}
