package model

import (
	"encoding/binary"
	"fmt"
)

// fakeExec is a scripted Executable for rendering tests. Only the fields a
// test populates participate; the rest return zero values.
type fakeExec struct {
	arch    Arch
	entry   uint64
	secs    []Section
	execSec map[string]bool
	mem     map[uint64][]byte
	funcs   map[uint64]*Function
	strs    map[uint64]*String
	xrefs   map[uint64][]uint64
}

func newFakeExec(arch Arch) *fakeExec {
	return &fakeExec{
		arch:    arch,
		execSec: make(map[string]bool),
		mem:     make(map[uint64][]byte),
		funcs:   make(map[uint64]*Function),
		strs:    make(map[uint64]*String),
		xrefs:   make(map[uint64][]uint64),
	}
}

func (f *fakeExec) addFunc(addr, size uint64, name string) *Function {
	fn := &Function{Addr: addr, Size: size, Name: name, Exec: f}
	f.funcs[addr] = fn
	return fn
}

func (f *fakeExec) Arch() Arch        { return f.arch }
func (f *fakeExec) EntryPoint() uint64 { return f.entry }

func (f *fakeExec) SectionContaining(vaddr uint64) (Section, bool) {
	for _, s := range f.secs {
		if s.Contains(vaddr) {
			return s, true
		}
	}
	return Section{}, false
}

func (f *fakeExec) VaddrRange(start, end uint64) ([]byte, error) {
	if b, ok := f.mem[start]; ok && uint64(len(b)) >= end-start {
		return b[:end-start], nil
	}
	return nil, fmt.Errorf("fake: no bytes at 0x%x", start)
}

func (f *fakeExec) VaddrIsExecutable(vaddr uint64) bool {
	s, ok := f.SectionContaining(vaddr)
	return ok && f.execSec[s.Name]
}

func (f *fakeExec) AddrLen() int                { return 4 }
func (f *fakeExec) ByteOrder() binary.ByteOrder { return binary.LittleEndian }

func (f *fakeExec) FunctionAt(vaddr uint64) (*Function, bool) {
	fn, ok := f.funcs[vaddr]
	return fn, ok
}

func (f *fakeExec) FunctionAddrs() []uint64 {
	out := make([]uint64, 0, len(f.funcs))
	for a := range f.funcs {
		out = append(out, a)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (f *fakeExec) StringAt(vaddr uint64) (*String, bool) {
	s, ok := f.strs[vaddr]
	return s, ok
}

func (f *fakeExec) XrefsTo(vaddr uint64) []uint64 { return f.xrefs[vaddr] }
