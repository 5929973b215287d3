package model

import (
	"fmt"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// FuncType classifies a function entry.
type FuncType uint8

const (
	// FuncNormal is an ordinary function defined in the binary.
	FuncNormal FuncType = iota
	// FuncDynamicStub is a dynamic-import trampoline (PLT-style stub).
	FuncDynamicStub
)

// Function is a named, sized region of code and the instructions inside it.
// Instructions is address-ascending and non-overlapping with any other
// function's. Blocks partition the instruction sequence; block membership is
// always derived from Instructions, never stored separately.
type Function struct {
	Addr uint64
	Size uint64
	Name string
	Type FuncType

	Exec Executable

	Instructions []*Instruction
	Blocks       []*BasicBlock
}

// Contains reports whether addr falls inside the function's byte range.
func (f *Function) Contains(addr uint64) bool {
	return f.Addr <= addr && addr < f.Addr+f.Size
}

// Demangle returns the demangled form of an Itanium C++ (_Z...) name, or the
// name unchanged when it is not mangled or fails to parse.
func (f *Function) Demangle() string {
	if !strings.HasPrefix(f.Name, "_Z") {
		return f.Name
	}
	s, err := demangle.ToString(f.Name)
	if err != nil {
		return f.Name
	}
	return s
}

// Disassembly renders the function's instructions, one line per instruction.
func (f *Function) Disassembly() string {
	var b strings.Builder
	for _, ins := range f.Instructions {
		fmt.Fprintf(&b, "0x%x  %s\n", ins.Addr, ins)
	}
	return b.String()
}

func (f *Function) String() string {
	return fmt.Sprintf("<function %s at 0x%x>", f.Name, f.Addr)
}

// BasicBlock is a contiguous address range inside its parent function. Its
// instruction set is always a slice of the parent's instruction sequence.
type BasicBlock struct {
	Parent *Function
	Addr   uint64
	Size   uint64
}

// Offset is the block's byte offset from the function start.
func (b *BasicBlock) Offset() uint64 {
	return b.Addr - b.Parent.Addr
}

// Instructions returns the parent instructions inside the block's range.
// The view is recomputed on each call so it can never diverge from the
// authoritative sequence.
func (b *BasicBlock) Instructions() []*Instruction {
	var out []*Instruction
	for _, ins := range b.Parent.Instructions {
		if b.Addr <= ins.Addr && ins.Addr < b.Addr+b.Size {
			out = append(out, ins)
		}
	}
	return out
}

// Disassembly renders the block's instructions.
func (b *BasicBlock) Disassembly() string {
	var sb strings.Builder
	for _, ins := range b.Instructions() {
		fmt.Fprintf(&sb, "0x%x  %s\n", ins.Addr, ins)
	}
	return sb.String()
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("<basic block at 0x%x>", b.Addr)
}
