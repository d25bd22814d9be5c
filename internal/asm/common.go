package asm

import (
	"encoding/binary"
	"fmt"
)

// Context receives the bytes and label marks produced by fragments.
type Context interface {
	EmitBytes(data []byte)

	GetLabel(label Label) (int, bool)
	SetLabel(label Label)
}

type Fragment interface {
	Emit(ctx Context) error
}

type Group []Fragment

var (
	_ Fragment = Group{}
)

func (g Group) Emit(ctx Context) error {
	for _, frag := range g {
		if err := frag.Emit(ctx); err != nil {
			return err
		}
	}
	return nil
}

type Label string

type labelDef struct {
	label Label
}

func MarkLabel(label Label) Fragment {
	return &labelDef{label: label}
}

func (l *labelDef) Emit(ctx Context) error {
	if _, exists := ctx.GetLabel(l.label); exists {
		return fmt.Errorf("label %q already defined", l.label)
	}
	ctx.SetLabel(l.label)
	return nil
}

// Program is an assembled image of 32-bit little-endian instruction words.
type Program struct {
	code   []byte
	labels map[Label]int
}

func (p Program) Bytes() []byte {
	return append([]byte(nil), p.code...)
}

// Words decodes the image back into instruction words. A trailing partial
// word is ignored.
func (p Program) Words() []uint32 {
	words := make([]uint32, 0, len(p.code)/4)
	for off := 0; off+4 <= len(p.code); off += 4 {
		words = append(words, binary.LittleEndian.Uint32(p.code[off:]))
	}
	return words
}

func (p Program) Len() int {
	return len(p.code)
}

// Label returns the byte offset recorded for label.
func (p Program) Label(label Label) (int, bool) {
	off, ok := p.labels[label]
	return off, ok
}

func NewProgram(code []byte, labels map[Label]int) Program {
	prog := Program{
		code:   append([]byte(nil), code...),
		labels: make(map[Label]int, len(labels)),
	}
	for k, v := range labels {
		prog.labels[k] = v
	}
	return prog
}
