package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/osirislab/dispatch/internal/model"
)

// Thumb (T16) decoding from raw halfword encodings, plus the 32-bit BL/BLX
// pair. Encodings follow the ARM7TDMI Thumb instruction set formats 1-19.
// PC reads as the instruction address plus 4 in Thumb.

var thumbConds = [14]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le",
}

var thumbALUOps = [16]string{
	"and", "eor", "lsl", "lsr", "asr", "adc", "sbc", "ror",
	"tst", "neg", "cmp", "cmn", "orr", "mul", "bic", "mvn",
}

func decodeThumb(code []byte, addr uint64) (*model.Instruction, error) {
	if len(code) < 2 {
		return nil, fmt.Errorf("%w: short read at 0x%x", ErrInvalid, addr)
	}
	hw := binary.LittleEndian.Uint16(code)

	// 32-bit BL/BLX pair: 11110 hi11 + 111x1 lo11.
	if hw&0xF800 == 0xF000 {
		if len(code) < 4 {
			return nil, fmt.Errorf("%w: split bl at 0x%x", ErrInvalid, addr)
		}
		hw2 := binary.LittleEndian.Uint16(code[2:])
		if hw2&0xE800 != 0xE800 {
			return nil, fmt.Errorf("%w: thumb at 0x%x", ErrInvalid, addr)
		}
		off := int64(signExtend32(uint32(hw&0x7FF), 11)) << 12
		off |= int64(hw2&0x7FF) << 1
		target := uint64(int64(addr) + 4 + off)
		mn := "bl"
		if hw2&0x1000 == 0 { // H=01: BLX, target is word-aligned A32 code
			mn = "blx"
			target &^= 3
		}
		return thumbIns(code[:4], addr, mn, model.GroupCall, model.NewImm(int64(target))), nil
	}

	ins := decodeThumb16(hw, addr)
	if ins == nil {
		return nil, fmt.Errorf("%w: thumb at 0x%x", ErrInvalid, addr)
	}
	ins.Raw = append([]byte(nil), code[:2]...)
	return ins, nil
}

func thumbIns(raw []byte, addr uint64, mn string, groups model.GroupSet, ops ...model.Operand) *model.Instruction {
	return &model.Instruction{
		Addr:     addr,
		Size:     len(raw),
		Raw:      append([]byte(nil), raw...),
		Mnemonic: mn,
		Operands: ops,
		Groups:   groups,
	}
}

// decodeThumb16 decodes one 16-bit instruction. Raw bytes are filled in by
// the caller. Returns nil for undefined encodings.
func decodeThumb16(hw uint16, addr uint64) *model.Instruction {
	mk := func(mn string, groups model.GroupSet, ops ...model.Operand) *model.Instruction {
		return &model.Instruction{Addr: addr, Size: 2, Mnemonic: mn, Operands: ops, Groups: groups}
	}
	reg := func(n uint16) model.Operand { return model.NewReg(model.ArmR0 + model.Reg(n&7)) }

	switch {
	// Format 3: MOV/CMP/ADD/SUB immediate — 001 op2 Rd imm8.
	case hw&0xE000 == 0x2000:
		op := []string{"mov", "cmp", "add", "sub"}[(hw>>11)&3]
		rd := (hw >> 8) & 7
		return mk(op, 0, reg(rd), model.NewImm(int64(hw&0xFF)))

	// Format 2: ADD/SUB register or 3-bit immediate — 00011 I op Rn Rs Rd.
	case hw&0xF800 == 0x1800:
		op := "add"
		if hw&0x0200 != 0 {
			op = "sub"
		}
		rd, rs, rn := hw&7, (hw>>3)&7, (hw>>6)&7
		if hw&0x0400 != 0 {
			return mk(op, 0, reg(rd), reg(rs), model.NewImm(int64(rn)))
		}
		return mk(op, 0, reg(rd), reg(rs), reg(rn))

	// Format 1: shift by immediate — 000 op2 imm5 Rs Rd.
	case hw&0xE000 == 0x0000:
		op := []string{"lsl", "lsr", "asr"}[(hw>>11)&3]
		return mk(op, 0, reg(hw), reg(hw>>3), model.NewImm(int64((hw>>6)&0x1F)))

	// Format 4: ALU operations — 010000 op4 Rs Rd.
	case hw&0xFC00 == 0x4000:
		return mk(thumbALUOps[(hw>>6)&0xF], 0, reg(hw), reg(hw>>3))

	// Format 5: hi register ops and BX/BLX — 010001 op2 H1 H2 Rs Rd.
	case hw&0xFC00 == 0x4400:
		rs := model.ArmR0 + model.Reg((hw>>3)&0xF)
		rd := model.ArmR0 + model.Reg((hw&7)|((hw>>4)&8))
		switch (hw >> 8) & 3 {
		case 0:
			return mk("add", 0, model.NewReg(rd), model.NewReg(rs))
		case 1:
			return mk("cmp", 0, model.NewReg(rd), model.NewReg(rs))
		case 2:
			return mk("mov", 0, model.NewReg(rd), model.NewReg(rs))
		default:
			if hw&0x0080 != 0 {
				return mk("blx", model.GroupCall, model.NewReg(rs))
			}
			return mk("bx", model.GroupJump, model.NewReg(rs))
		}

	// Format 6: PC-relative load — 01001 Rd imm8. The literal sits at
	// (pc & ~2) + imm8*4; the displacement is kept raw and resolved by
	// the consumer.
	case hw&0xF800 == 0x4800:
		rd := (hw >> 8) & 7
		return mk("ldr", 0, reg(rd), model.NewMem(model.ArmPC, model.RegNone, 1, int64(hw&0xFF)*4))

	// Format 7/8: load/store with register offset — 0101 ...
	case hw&0xF000 == 0x5000:
		rd, rb, ro := hw&7, (hw>>3)&7, (hw>>6)&7
		mem := model.NewMem(model.ArmR0+model.Reg(rb), model.ArmR0+model.Reg(ro), 1, 0)
		var op string
		switch (hw >> 9) & 7 {
		case 0:
			op = "str"
		case 1:
			op = "strh"
		case 2:
			op = "strb"
		case 3:
			op = "ldrsb"
		case 4:
			op = "ldr"
		case 5:
			op = "ldrh"
		case 6:
			op = "ldrb"
		default:
			op = "ldrsh"
		}
		return mk(op, 0, reg(rd), mem)

	// Format 9: load/store word/byte immediate — 011 B L imm5 Rb Rd.
	case hw&0xE000 == 0x6000:
		rd, rb, imm := hw&7, (hw>>3)&7, int64((hw>>6)&0x1F)
		byteOp := hw&0x1000 != 0
		load := hw&0x0800 != 0
		op, scale := "str", int64(4)
		if byteOp {
			scale = 1
			op = "strb"
		}
		if load {
			op = "ldr"
			if byteOp {
				op = "ldrb"
			}
		}
		return mk(op, 0, reg(rd), model.NewMem(model.ArmR0+model.Reg(rb), model.RegNone, 1, imm*scale))

	// Format 10: load/store halfword — 1000 L imm5 Rb Rd.
	case hw&0xF000 == 0x8000:
		op := "strh"
		if hw&0x0800 != 0 {
			op = "ldrh"
		}
		rd, rb, imm := hw&7, (hw>>3)&7, int64((hw>>6)&0x1F)*2
		return mk(op, 0, reg(rd), model.NewMem(model.ArmR0+model.Reg(rb), model.RegNone, 1, imm))

	// Format 11: SP-relative load/store — 1001 L Rd imm8.
	case hw&0xF000 == 0x9000:
		op := "str"
		if hw&0x0800 != 0 {
			op = "ldr"
		}
		rd := (hw >> 8) & 7
		return mk(op, 0, reg(rd), model.NewMem(model.ArmSP, model.RegNone, 1, int64(hw&0xFF)*4))

	// Format 12: load address — 1010 SP Rd imm8.
	case hw&0xF000 == 0xA000:
		rd := (hw >> 8) & 7
		base := model.ArmPC
		if hw&0x0800 != 0 {
			base = model.ArmSP
		}
		return mk("add", 0, reg(rd), model.NewReg(base), model.NewImm(int64(hw&0xFF)*4))

	// Format 13: adjust stack pointer — 10110000 S imm7.
	case hw&0xFF00 == 0xB000:
		op := "add"
		if hw&0x0080 != 0 {
			op = "sub"
		}
		return mk(op, 0, model.NewReg(model.ArmSP), model.NewImm(int64(hw&0x7F)*4))

	// Format 14: push/pop — 1011 L 10 R imm8.
	case hw&0xF600 == 0xB400:
		pop := hw&0x0800 != 0
		op := "push"
		extra := model.ArmLR
		if pop {
			op = "pop"
			extra = model.ArmPC
		}
		var ops []model.Operand
		for i := 0; i < 8; i++ {
			if hw&(1<<uint(i)) != 0 {
				ops = append(ops, model.NewReg(model.ArmR0+model.Reg(i)))
			}
		}
		if hw&0x0100 != 0 {
			ops = append(ops, model.NewReg(extra))
		}
		return mk(op, 0, ops...)

	// Format 15: multiple load/store — 1100 L Rb imm8.
	case hw&0xF000 == 0xC000:
		op := "stmia"
		if hw&0x0800 != 0 {
			op = "ldmia"
		}
		ops := []model.Operand{model.NewReg(model.ArmR0 + model.Reg((hw>>8)&7))}
		for i := 0; i < 8; i++ {
			if hw&(1<<uint(i)) != 0 {
				ops = append(ops, model.NewReg(model.ArmR0+model.Reg(i)))
			}
		}
		return mk(op, 0, ops...)

	// Format 16/17: conditional branch and SWI — 1101 cond soff8.
	case hw&0xF000 == 0xD000:
		cond := (hw >> 8) & 0xF
		switch cond {
		case 14: // always-undefined encoding
			return nil
		case 15:
			return mk("swi", 0, model.NewImm(int64(hw&0xFF)))
		}
		off := int64(int8(hw&0xFF)) * 2
		target := int64(addr) + 4 + off
		return mk("b"+thumbConds[cond], model.GroupJump, model.NewImm(target))

	// Format 18: unconditional branch — 11100 off11.
	case hw&0xF800 == 0xE000:
		off := int64(signExtend32(uint32(hw&0x7FF), 11)) * 2
		return mk("b", model.GroupJump, model.NewImm(int64(addr)+4+off))
	}

	return nil
}

// signExtend32 sign-extends a value from the given bit width.
func signExtend32(val uint32, bits int) int32 {
	shift := 32 - bits
	return int32(val<<uint(shift)) >> uint(shift)
}
