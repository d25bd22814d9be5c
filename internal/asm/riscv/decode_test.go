package riscv

// Field extraction helpers used to check encodings bit by bit.

func decodeR(insn uint32) (opcode, rd, funct3, rs1, rs2, funct7 uint32) {
	opcode = insn & 0x7f
	rd = (insn >> 7) & 0x1f
	funct3 = (insn >> 12) & 0x7
	rs1 = (insn >> 15) & 0x1f
	rs2 = (insn >> 20) & 0x1f
	funct7 = insn >> 25
	return
}

// decodeI extracts rd, rs1 and the sign-extended 12-bit immediate.
func decodeI(insn uint32) (rd uint32, rs1 uint32, imm int32) {
	rd = (insn >> 7) & 0x1f
	rs1 = (insn >> 15) & 0x1f
	imm = int32(insn) >> 20
	return
}

func decodeS(insn uint32) (rs1, rs2 uint32, imm int32) {
	rs1 = (insn >> 15) & 0x1f
	rs2 = (insn >> 20) & 0x1f
	raw := ((insn >> 7) & 0x1f) | (((insn >> 25) & 0x7f) << 5)
	imm = int32(raw<<20) >> 20
	return
}

// decodeB reassembles imm[12|10:5|4:1|11].
func decodeB(insn uint32) (rs1, rs2 uint32, imm int32) {
	rs1 = (insn >> 15) & 0x1f
	rs2 = (insn >> 20) & 0x1f
	raw := (((insn >> 31) & 0x1) << 12) |
		(((insn >> 7) & 0x1) << 11) |
		(((insn >> 25) & 0x3f) << 5) |
		(((insn >> 8) & 0xf) << 1)
	imm = int32(raw<<19) >> 19
	return
}

// decodeJ reassembles imm[20|10:1|11|19:12].
func decodeJ(insn uint32) (rd uint32, imm int32) {
	rd = (insn >> 7) & 0x1f
	raw := ((insn >> 31) << 20) |
		(((insn >> 12) & 0xff) << 12) |
		(((insn >> 20) & 0x1) << 11) |
		(((insn >> 21) & 0x3ff) << 1)
	imm = int32(raw<<11) >> 11
	return
}

func decodeU(insn uint32) (rd uint32, imm uint32) {
	rd = (insn >> 7) & 0x1f
	imm = insn >> 12
	return
}

// loadedValue runs lui/addi/addiw over an RV64 register file and returns
// the value left in rd. lui and addiw sign-extend their 32-bit results.
func loadedValue(words []uint32) (rd uint32, value uint64) {
	var regs [32]uint64
	for _, w := range words {
		switch w & 0x7f {
		case 0x37:
			d, imm := decodeU(w)
			regs[d] = uint64(int64(int32(imm << 12)))
			rd = d
		case 0x13:
			d, s, imm := decodeI(w)
			regs[d] = regs[s] + uint64(int64(imm))
			rd = d
		case 0x1b:
			d, s, imm := decodeI(w)
			regs[d] = uint64(int64(int32(uint32(regs[s]) + uint32(imm))))
			rd = d
		}
		regs[0] = 0
	}
	return rd, regs[rd]
}
