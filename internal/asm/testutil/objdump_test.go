package testutil

import "testing"

const sampleObjdump = `
/tmp/TestX/001/image.bin:     file format binary


Disassembly of section .data:

0000000000000000 <.data>:
   0:	00100093          	addi	x1,x0,1
   4:	fe209ee3          	bne	x1,x2,0x0
   8:	00100073          	ebreak
`

func TestParseObjdumpOutput(t *testing.T) {
	lines, err := parseObjdumpOutput(sampleObjdump)
	if err != nil {
		t.Fatalf("parseObjdumpOutput failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %+v", len(lines), lines)
	}

	want := []struct {
		word       uint32
		mnemonic   string
		normalized string
	}{
		{0x00100093, "addi", "addi x1,x0,1"},
		{0xfe209ee3, "bne", "bne x1,x2,0x0"},
		{0x00100073, "ebreak", "ebreak"},
	}
	for i, w := range want {
		if lines[i].Word != w.word || lines[i].Mnemonic != w.mnemonic || lines[i].Normalized != w.normalized {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], w)
		}
	}

	VerifyExpectations(t, lines, []Expectation{
		{Name: "addi", Mnemonic: "addi", Word: 0x00100093, Contains: []string{"x1,x0,1"}},
		{Name: "bne", Mnemonic: "bne"},
	})
}
