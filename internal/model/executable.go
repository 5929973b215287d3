// Package model holds the architecture-neutral code model produced by
// analysis: instructions, operands, functions, basic blocks, strings, and
// control-flow edges. Entities are built once by the analysis pipeline and
// read-only afterwards, except Instruction.Comment which is set lazily on
// the first render that resolves a string reference.
package model

import "encoding/binary"

// Arch identifies an instruction-set architecture.
type Arch int

const (
	ArchARM Arch = iota
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchARM:
		return "arm"
	case ArchARM64:
		return "arm64"
	}
	return "unknown"
}

// Section is a mapped region of the binary image.
type Section struct {
	Name  string
	Vaddr uint64
	Size  uint64
}

// Contains reports whether vaddr falls inside the section.
func (s Section) Contains(vaddr uint64) bool {
	return s.Vaddr <= vaddr && vaddr < s.Vaddr+s.Size
}

// Executable is the loaded-binary capability surface the analysis core
// consumes. The concrete loader (ELF or an in-memory image) lives outside
// this package; entities hold non-owning references to it for name and
// string resolution during rendering.
type Executable interface {
	Arch() Arch

	// EntryPoint returns the raw entry address. On interworking
	// architectures the low bit encodes the initial instruction-set mode.
	EntryPoint() uint64

	// SectionContaining returns the section holding vaddr, or ok=false if
	// the address is not in any mapped section.
	SectionContaining(vaddr uint64) (Section, bool)

	// VaddrRange reads the bytes in [start, end). It fails if the range is
	// not fully mapped.
	VaddrRange(start, end uint64) ([]byte, error)

	VaddrIsExecutable(vaddr uint64) bool

	// AddrLen returns the pointer width in bytes.
	AddrLen() int

	ByteOrder() binary.ByteOrder

	// FunctionAt returns the function whose entry address is exactly vaddr.
	FunctionAt(vaddr uint64) (*Function, bool)

	// FunctionAddrs returns all known function entry addresses ascending.
	FunctionAddrs() []uint64

	// StringAt returns the string literal at vaddr.
	StringAt(vaddr uint64) (*String, bool)

	// XrefsTo returns the addresses referencing vaddr, ascending.
	XrefsTo(vaddr uint64) []uint64
}
