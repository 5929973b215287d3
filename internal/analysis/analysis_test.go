package analysis

import (
	"encoding/binary"
	"fmt"

	"github.com/osirislab/dispatch/internal/decode"
	"github.com/osirislab/dispatch/internal/model"
)

// fakeSec is one mapped region of a fakeImage.
type fakeSec struct {
	model.Section
	exec bool
	data []byte
}

// fakeImage is a scripted model.Executable. It carries mapped byte ranges
// only; symbols and strings are not needed by the engine.
type fakeImage struct {
	entry uint64
	secs  []fakeSec
}

func (f *fakeImage) Arch() model.Arch               { return model.ArchARM }
func (f *fakeImage) EntryPoint() uint64             { return f.entry }
func (f *fakeImage) AddrLen() int                   { return 4 }
func (f *fakeImage) ByteOrder() binary.ByteOrder    { return binary.LittleEndian }
func (f *fakeImage) FunctionAt(uint64) (*model.Function, bool) { return nil, false }
func (f *fakeImage) FunctionAddrs() []uint64        { return nil }
func (f *fakeImage) StringAt(uint64) (*model.String, bool) { return nil, false }
func (f *fakeImage) XrefsTo(uint64) []uint64        { return nil }

func (f *fakeImage) SectionContaining(vaddr uint64) (model.Section, bool) {
	for _, s := range f.secs {
		if s.Contains(vaddr) {
			return s.Section, true
		}
	}
	return model.Section{}, false
}

func (f *fakeImage) VaddrIsExecutable(vaddr uint64) bool {
	for _, s := range f.secs {
		if s.Contains(vaddr) {
			return s.exec
		}
	}
	return false
}

func (f *fakeImage) VaddrRange(start, end uint64) ([]byte, error) {
	for _, s := range f.secs {
		if !s.Contains(start) {
			continue
		}
		if end > s.Vaddr+s.Size {
			return nil, fmt.Errorf("fake: range 0x%x-0x%x crosses %s", start, end, s.Name)
		}
		off := start - s.Vaddr
		return s.data[off : off+(end-start)], nil
	}
	return nil, fmt.Errorf("fake: 0x%x not mapped", start)
}

// scriptKey addresses one scripted decode outcome. Keying on the mode makes
// a wrong-mode decode fail like real garbage bytes would.
type scriptKey struct {
	addr uint64
	mode decode.Mode
}

type scriptDecoder map[scriptKey]model.Instruction

func (s scriptDecoder) Decode(_ []byte, addr uint64, mode decode.Mode) (*model.Instruction, error) {
	ins, ok := s[scriptKey{addr, mode}]
	if !ok {
		return nil, fmt.Errorf("%w: scripted miss at 0x%x", decode.ErrInvalid, addr)
	}
	cp := ins
	cp.Addr = addr
	return &cp, nil
}

func (s scriptDecoder) add(addr uint64, mode decode.Mode, size int, mn string, groups model.GroupSet, ops ...model.Operand) {
	s[scriptKey{addr, mode}] = model.Instruction{
		Size:     size,
		Mnemonic: mn,
		Operands: ops,
		Groups:   groups,
	}
}

func scriptProfile(s scriptDecoder) Profile {
	return Profile{
		Arch:           model.ArchARM,
		Interworking:   true,
		PipelineOffset: 4,
		Decoder:        s,
	}
}

// interworkingImage builds the shared scenario used by the engine tests.
//
//	.text 0x1000-0x3800, executable; literal pool at 0x1020 holds 0x2001.
//
//	0x1000 arm    ldr r0, [pc, #0x1c]   ; pool 0x1020 -> discovers 0x2000 thumb
//	0x1004 arm    mov r1, #0x2501       ; discovers 0x2500 thumb
//	0x1008 arm    beq 0x1010            ; discovers 0x1010 arm
//	0x100c arm    blx 0x3000            ; exchange: discovers 0x3000 thumb
//	0x1010 arm    mov r0, r1
//	0x1014-0x101c arm nop
//	0x1020 arm    and (decoy past the pool boundary)
//	0x2000 thumb  bx 0x2501             ; rediscovery of 0x2500 in arm: ignored
//	0x2500 thumb  mov r2, #1
//	0x3000 thumb  bx lr
func interworkingImage() (*fakeImage, scriptDecoder) {
	data := make([]byte, 0x2800)
	binary.LittleEndian.PutUint32(data[0x20:], 0x2001)

	img := &fakeImage{
		entry: 0x1000,
		secs: []fakeSec{{
			Section: model.Section{Name: ".text", Vaddr: 0x1000, Size: 0x2800},
			exec:    true,
			data:    data,
		}},
	}

	s := scriptDecoder{}
	s.add(0x1000, decode.ModeArm, 4, "ldr", 0,
		model.NewReg(model.ArmR0), model.NewMem(model.ArmPC, model.RegNone, 1, 0x1c))
	s.add(0x1004, decode.ModeArm, 4, "mov", 0,
		model.NewReg(model.ArmR1), model.NewImm(0x2501))
	s.add(0x1008, decode.ModeArm, 4, "beq", model.GroupJump, model.NewImm(0x1010))
	s.add(0x100c, decode.ModeArm, 4, "blx", model.GroupCall, model.NewImm(0x3000))
	s.add(0x1010, decode.ModeArm, 4, "mov", 0,
		model.NewReg(model.ArmR0), model.NewReg(model.ArmR1))
	s.add(0x1014, decode.ModeArm, 4, "nop", 0)
	s.add(0x1018, decode.ModeArm, 4, "nop", 0)
	s.add(0x101c, decode.ModeArm, 4, "nop", 0)
	s.add(0x1020, decode.ModeArm, 4, "and", 0,
		model.NewReg(model.ArmR0), model.NewReg(model.ArmR0))
	s.add(0x2000, decode.ModeThumb, 2, "bx", model.GroupJump, model.NewImm(0x2501))
	s.add(0x2500, decode.ModeThumb, 2, "mov", 0,
		model.NewReg(model.ArmR2), model.NewImm(1))
	s.add(0x3000, decode.ModeThumb, 2, "bx", model.GroupJump, model.NewReg(model.ArmLR))
	return img, s
}
