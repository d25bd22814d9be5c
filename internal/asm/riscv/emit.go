package riscv

import (
	"encoding/binary"
	"fmt"

	"github.com/tinyrange/rvasm/internal/asm"
)

type emitter struct {
	code   []byte
	labels map[asm.Label]int
}

// EmitBytes implements asm.Context.
func (e *emitter) EmitBytes(data []byte) {
	e.code = append(e.code, data...)
}

// GetLabel implements asm.Context.
func (e *emitter) GetLabel(label asm.Label) (int, bool) {
	if e.labels == nil {
		return 0, false
	}
	offset, ok := e.labels[label]
	return offset, ok
}

// SetLabel implements asm.Context.
func (e *emitter) SetLabel(label asm.Label) {
	if e.labels == nil {
		e.labels = make(map[asm.Label]int)
	}
	e.labels[label] = len(e.code)
}

// Word is an already encoded instruction.
type Word uint32

func (w Word) Emit(ctx asm.Context) error {
	emitInsn(ctx, uint32(w))
	return nil
}

type instruction struct {
	enc  *Encoder
	text string
}

// Inst encodes a canonical instruction line when the fragment is emitted.
// Label operands are not resolved.
func Inst(enc *Encoder, text string) asm.Fragment {
	return instruction{enc: enc, text: text}
}

func (i instruction) Emit(ctx asm.Context) error {
	insn, err := i.enc.Encode(i.text)
	if err != nil {
		return fmt.Errorf("%s: %w", i.text, err)
	}
	emitInsn(ctx, insn)
	return nil
}

func emitInsn(ctx asm.Context, insn uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], insn)
	ctx.EmitBytes(buf[:])
}

// EmitProgram lowers the provided fragment into an asm.Program.
func EmitProgram(frag asm.Fragment) (asm.Program, error) {
	if frag == nil {
		return asm.Program{}, fmt.Errorf("riscv: fragment must be non-nil")
	}

	em := &emitter{
		code:   make([]byte, 0, 64),
		labels: make(map[asm.Label]int),
	}

	if err := frag.Emit(em); err != nil {
		return asm.Program{}, err
	}

	return asm.NewProgram(em.code, em.labels), nil
}
