package riscv

import (
	"errors"
	"reflect"
	"testing"
)

func TestExpandTable(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"nop", []string{"addi x0, x0, 0"}},
		{"li x5, 5", []string{"addi x5, x0, 5"}},
		{"li a0, -2048", []string{"addi a0, x0, -2048"}},
		{"li x5, 5000", []string{"lui x5, 1", "addi x5, x5, 904"}},
		{"li x5, 2048", []string{"lui x5, 1", "addi x5, x5, -2048"}},
		{"li x5, 0x7fffffff", []string{"lui x5, 524288", "addiw x5, x5, -1"}},
		{"li x5, -0x80000000", []string{"lui x5, 524288", "addiw x5, x5, 0"}},
		{"li x5, 0x7ffff7ff", []string{"lui x5, 524287", "addi x5, x5, 2047"}},
		{"mv x1, x2", []string{"addi x1, x2, 0"}},
		{"not x1, x2", []string{"xori x1, x2, -1"}},
		{"neg x1, x2", []string{"sub x1, x0, x2"}},
		{"negw x1, x2", []string{"subw x1, x0, x2"}},
		{"sext.w x1, x2", []string{"addiw x1, x2, 0"}},
		{"seqz x1, x2", []string{"sltiu x1, x2, 1"}},
		{"snez x1, x2", []string{"sltu x1, x0, x2"}},
		{"sltz x1, x2", []string{"slt x1, x2, x0"}},
		{"sgtz x1, x2", []string{"slt x1, x0, x2"}},
		{"beqz x5, L", []string{"beq x5, x0, L"}},
		{"bnez x5, L", []string{"bne x5, x0, L"}},
		{"blez x5, L", []string{"bge x0, x5, L"}},
		{"bgez x5, L", []string{"bge x5, x0, L"}},
		{"bltz x5, L", []string{"blt x5, x0, L"}},
		{"bgtz x5, L", []string{"blt x0, x5, L"}},
		{"bgt x1, x2, L", []string{"blt x2, x1, L"}},
		{"ble x1, x2, L", []string{"bge x2, x1, L"}},
		{"bgtu x1, x2, L", []string{"bltu x2, x1, L"}},
		{"bleu x1, x2, L", []string{"bgeu x2, x1, L"}},
		{"j L", []string{"jal x0, L"}},
		{"jal L", []string{"jal x1, L"}},
		{"jr x5", []string{"jalr x0, x5, 0"}},
		{"jalr x5", []string{"jalr x1, x5, 0"}},
		{"ret", []string{"jalr x0, x1, 0"}},
		{"call func", []string{"auipc x1, %hi(func)", "jalr x1, x1, %lo(func)"}},
		{"tail func", []string{"auipc x6, %hi(func)", "jalr x0, x6, %lo(func)"}},
		{"BEQZ t0, done", []string{"beq t0, x0, done"}},
	}

	for _, tt := range tests {
		got, err := Expand(tt.line)
		if err != nil {
			t.Fatalf("Expand(%q) failed: %v", tt.line, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Expand(%q)=%q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestExpandPassThrough(t *testing.T) {
	for _, line := range []string{
		"add x1, x2, x3",
		"jal x1, target",
		"jalr x1, x2, target",
		"jalr x1, 0(x2)",
		"foo x1, x2, x3",
	} {
		got, err := Expand(line)
		if err != nil {
			t.Fatalf("Expand(%q) failed: %v", line, err)
		}
		if len(got) != 1 || got[0] != line {
			t.Errorf("Expand(%q)=%q, want pass-through", line, got)
		}
	}
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"li x5, abc", ErrInvalidLiteral},
		{"li x5, 4294967296", ErrInvalidLiteral},
		{"li x5, 0x80000000", ErrInvalidLiteral},
		{"li x5, 0xffffffff", ErrInvalidLiteral},
		{"li x5, -2147483649", ErrInvalidLiteral},
		{"li x5", ErrSyntax},
		{"mv x1", ErrSyntax},
		{"nop x1", ErrSyntax},
		{"bgt x1, x2", ErrSyntax},
		{"mv x1, ", ErrSyntax},
	}
	for _, tt := range tests {
		if _, err := Expand(tt.line); !errors.Is(err, tt.want) {
			t.Errorf("Expand(%q) error=%v, want %v", tt.line, err, tt.want)
		}
	}
}

func TestLoadImmediateRoundTrip(t *testing.T) {
	enc := NewEncoder(nil)

	values := []int64{
		-1 << 31, -1<<31 + 1, -5000, -2049, -2048, -1, 0, 1, 2047, 2048,
		4095, 4096, 5000, 0x12345678, 0x7ffff7ff, 0x7ffff800, 0x7ffffbff, 0x7ffffffe, 1<<31 - 1,
	}
	for v := int64(-1 << 31); v < 1<<31-1; v += 0x01234567 {
		values = append(values, v)
	}

	for _, v := range values {
		lines, err := Expand("li x5, " + formatInt(v))
		if err != nil {
			t.Fatalf("li %d: %v", v, err)
		}
		wantLen := 2
		if v >= -2048 && v <= 2047 {
			wantLen = 1
		}
		if len(lines) != wantLen {
			t.Fatalf("li %d expanded to %d instructions, want %d", v, len(lines), wantLen)
		}

		var words []uint32
		for _, line := range lines {
			w, err := enc.Encode(line)
			if err != nil {
				t.Fatalf("li %d: encode %q: %v", v, line, err)
			}
			words = append(words, w)
		}
		rd, got := loadedValue(words)
		if rd != 5 || int64(got) != v {
			t.Fatalf("li %d loaded x%d=%#x", v, rd, got)
		}
	}
}

func TestSplitImmediate(t *testing.T) {
	for _, v := range []uint32{0, 0x7ff, 0x800, 0xfff, 0x1000, 0xdeadbeef, 0xffffffff, 0x80000000} {
		hi, lo := SplitImmediate(v)
		if hi > 0xfffff || lo < -2048 || lo > 2047 {
			t.Fatalf("SplitImmediate(%#x) = %#x, %d out of range", v, hi, lo)
		}
		if got := hi<<12 + uint32(lo); got != v {
			t.Fatalf("SplitImmediate(%#x) recombines to %#x", v, got)
		}
	}
}

func TestIsPseudo(t *testing.T) {
	if !IsPseudo("li", 2) || !IsPseudo("ret", 0) || !IsPseudo("jal", 1) {
		t.Fatal("expected pseudo forms")
	}
	if IsPseudo("jal", 2) || IsPseudo("add", 3) {
		t.Fatal("real forms reported as pseudo")
	}
}
