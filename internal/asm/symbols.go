package asm

import (
	"sort"
)

// Symbol is a label bound to a byte address.
type Symbol struct {
	Name    Label
	Address uint32
}

// SymbolTable maps label names to byte addresses. It is immutable once
// built; Pass 1 of the assembler produces one per run and hands it to
// Pass 2 explicitly.
type SymbolTable struct {
	addrs map[Label]uint32
}

// NewSymbolTable copies defs into a new table.
func NewSymbolTable(defs map[Label]uint32) *SymbolTable {
	t := &SymbolTable{addrs: make(map[Label]uint32, len(defs))}
	for name, addr := range defs {
		t.addrs[name] = addr
	}
	return t
}

// Lookup returns the address bound to name. A nil table holds no symbols.
func (t *SymbolTable) Lookup(name string) (uint32, bool) {
	if t == nil {
		return 0, false
	}
	addr, ok := t.addrs[Label(name)]
	return addr, ok
}

func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.addrs)
}

// Symbols returns every entry ordered by address, then by name.
func (t *SymbolTable) Symbols() []Symbol {
	if t == nil {
		return nil
	}
	out := make([]Symbol, 0, len(t.addrs))
	for name, addr := range t.addrs {
		out = append(out, Symbol{Name: name, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].Name < out[j].Name
	})
	return out
}
