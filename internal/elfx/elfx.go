// Package elfx loads ARM and ARM64 ELF binaries into the executable model
// the analysis engine consumes. Section contents are read once at open time;
// all later address-range reads are slices of the preloaded data.
package elfx

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/osirislab/dispatch/internal/model"
)

var (
	ErrNotELF    = errors.New("elfx: not an ELF file")
	ErrNotARM    = errors.New("elfx: not an ARM or ARM64 binary")
	ErrNoSection = errors.New("elfx: no section covers address")
	ErrRange     = errors.New("elfx: address range not contained in one section")
)

// minStrLen is the shortest run of printable bytes indexed as a string.
const minStrLen = 4

type section struct {
	model.Section
	flags elf.SectionFlag
	data  []byte
}

// File is an opened ELF image. It implements model.Executable.
type File struct {
	arch      model.Arch
	entry     uint64
	addrLen   int
	byteOrder binary.ByteOrder

	sections []section // ascending by Vaddr

	funcs     map[uint64]*model.Function
	funcAddrs []uint64 // ascending

	strings map[uint64]*model.String
	xrefs   map[uint64][]uint64
}

// Open parses an ELF file and indexes its sections, function symbols, and
// rodata strings.
func Open(path string) (*File, error) {
	ef, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}
	defer ef.Close()
	return fromELF(ef)
}

func fromELF(ef *elf.File) (*File, error) {
	var arch model.Arch
	var addrLen int
	switch ef.Machine {
	case elf.EM_ARM:
		arch, addrLen = model.ArchARM, 4
	case elf.EM_AARCH64:
		arch, addrLen = model.ArchARM64, 8
	default:
		return nil, fmt.Errorf("%w: machine %v", ErrNotARM, ef.Machine)
	}

	f := &File{
		arch:      arch,
		entry:     ef.Entry,
		addrLen:   addrLen,
		byteOrder: ef.ByteOrder,
		funcs:     make(map[uint64]*model.Function),
		strings:   make(map[uint64]*model.String),
		xrefs:     make(map[uint64][]uint64),
	}

	for _, s := range ef.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS || s.Size == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("elfx: read section %s: %w", s.Name, err)
		}
		f.sections = append(f.sections, section{
			Section: model.Section{Name: s.Name, Vaddr: s.Addr, Size: s.Size},
			flags:   s.Flags,
			data:    data,
		})
	}
	sort.Slice(f.sections, func(i, j int) bool {
		return f.sections[i].Vaddr < f.sections[j].Vaddr
	})

	f.indexFunctions(ef)
	f.indexStrings()
	return f, nil
}

// indexFunctions collects STT_FUNC symbols from both symbol tables. Symbols
// inside .plt become dynamic stubs. When no symbol covers the entry point, a
// synthetic _start function is created so the entry always resolves.
func (f *File) indexFunctions(ef *elf.File) {
	var plt model.Section
	for _, s := range f.sections {
		if s.Name == ".plt" {
			plt = s.Section
			break
		}
	}

	add := func(syms []elf.Symbol) {
		for _, sym := range syms {
			if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Name == "" {
				continue
			}
			// Thumb symbols carry the ISA bit in their value.
			addr := sym.Value &^ 1
			if _, dup := f.funcs[addr]; dup {
				continue
			}
			typ := model.FuncNormal
			if plt.Size > 0 && plt.Contains(addr) {
				typ = model.FuncDynamicStub
			}
			f.funcs[addr] = &model.Function{
				Addr: addr,
				Size: sym.Size,
				Name: sym.Name,
				Type: typ,
				Exec: f,
			}
		}
	}

	if syms, err := ef.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := ef.DynamicSymbols(); err == nil {
		add(syms)
	}

	entry := f.entry &^ 1
	if _, ok := f.funcs[entry]; !ok && f.VaddrIsExecutable(entry) {
		f.funcs[entry] = &model.Function{
			Addr: entry,
			Name: "_start",
			Type: model.FuncNormal,
			Exec: f,
		}
	}

	f.funcAddrs = f.funcAddrs[:0]
	for a := range f.funcs {
		f.funcAddrs = append(f.funcAddrs, a)
	}
	sort.Slice(f.funcAddrs, func(i, j int) bool { return f.funcAddrs[i] < f.funcAddrs[j] })

	// Size gaps: a zero-size symbol extends to the next function or its
	// section end.
	for i, a := range f.funcAddrs {
		fn := f.funcs[a]
		if fn.Size != 0 {
			continue
		}
		if i+1 < len(f.funcAddrs) {
			fn.Size = f.funcAddrs[i+1] - a
		} else if sec, ok := f.SectionContaining(a); ok {
			fn.Size = sec.Vaddr + sec.Size - a
		}
	}
}

// indexStrings scans non-executable data sections for NUL-terminated runs of
// printable ASCII.
func (f *File) indexStrings() {
	for _, s := range f.sections {
		if s.flags&elf.SHF_EXECINSTR != 0 {
			continue
		}
		start := -1
		for i, b := range s.data {
			printable := b >= 0x20 && b < 0x7f
			switch {
			case printable && start < 0:
				start = i
			case !printable:
				if b == 0 && start >= 0 && i-start >= minStrLen {
					va := s.Vaddr + uint64(start)
					f.strings[va] = &model.String{
						Value: string(s.data[start:i]),
						Vaddr: va,
						Exec:  f,
					}
				}
				start = -1
			}
		}
	}
}

// Arch returns the image architecture.
func (f *File) Arch() model.Arch { return f.arch }

// EntryPoint returns the ELF entry address, ISA-selector bit included.
func (f *File) EntryPoint() uint64 { return f.entry }

// AddrLen returns the pointer width in bytes.
func (f *File) AddrLen() int { return f.addrLen }

// ByteOrder returns the image byte order.
func (f *File) ByteOrder() binary.ByteOrder { return f.byteOrder }

// SectionContaining returns the section whose range covers vaddr.
func (f *File) SectionContaining(vaddr uint64) (model.Section, bool) {
	for _, s := range f.sections {
		if s.Contains(vaddr) {
			return s.Section, true
		}
	}
	return model.Section{}, false
}

// VaddrIsExecutable reports whether vaddr falls in an executable section.
func (f *File) VaddrIsExecutable(vaddr uint64) bool {
	for _, s := range f.sections {
		if s.Contains(vaddr) {
			return s.flags&elf.SHF_EXECINSTR != 0
		}
	}
	return false
}

// VaddrRange returns the bytes in [start, end). The whole range must fall in
// one section.
func (f *File) VaddrRange(start, end uint64) ([]byte, error) {
	if end < start {
		return nil, fmt.Errorf("%w: 0x%x-0x%x", ErrRange, start, end)
	}
	for _, s := range f.sections {
		if !s.Contains(start) {
			continue
		}
		if end > s.Vaddr+s.Size {
			return nil, fmt.Errorf("%w: 0x%x-0x%x crosses end of %s", ErrRange, start, end, s.Name)
		}
		off := start - s.Vaddr
		return s.data[off : off+(end-start)], nil
	}
	return nil, fmt.Errorf("%w: 0x%x", ErrNoSection, start)
}

// FunctionAt returns the function whose entry is exactly vaddr.
func (f *File) FunctionAt(vaddr uint64) (*model.Function, bool) {
	fn, ok := f.funcs[vaddr]
	return fn, ok
}

// FunctionAddrs returns all function entry addresses in ascending order.
func (f *File) FunctionAddrs() []uint64 { return f.funcAddrs }

// Functions returns all indexed functions in ascending address order.
func (f *File) Functions() []*model.Function {
	out := make([]*model.Function, len(f.funcAddrs))
	for i, a := range f.funcAddrs {
		out[i] = f.funcs[a]
	}
	return out
}

// StringAt returns the indexed string starting exactly at vaddr.
func (f *File) StringAt(vaddr uint64) (*model.String, bool) {
	s, ok := f.strings[vaddr]
	return s, ok
}

// Strings returns all indexed strings in ascending address order.
func (f *File) Strings() []*model.String {
	addrs := make([]uint64, 0, len(f.strings))
	for a := range f.strings {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	out := make([]*model.String, len(addrs))
	for i, a := range addrs {
		out[i] = f.strings[a]
	}
	return out
}

// SetXrefs installs the cross-reference map produced by analysis.
func (f *File) SetXrefs(xrefs map[uint64][]uint64) { f.xrefs = xrefs }

// XrefsTo returns the addresses of instructions referencing vaddr.
func (f *File) XrefsTo(vaddr uint64) []uint64 { return f.xrefs[vaddr] }
