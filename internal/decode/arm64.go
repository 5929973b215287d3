package decode

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"github.com/osirislab/dispatch/internal/model"
)

// ARM64 decodes A64 instructions through golang.org/x/arch/arm64/arm64asm.
// arm64asm keeps memory displacements unexported, so those are recovered
// from the raw encoding with mask/value helpers.
type ARM64 struct{}

func NewARM64() *ARM64 { return &ARM64{} }

// Decode ignores the mode: A64 is the only instruction set on this
// architecture.
func (d *ARM64) Decode(code []byte, addr uint64, _ Mode) (*model.Instruction, error) {
	if len(code) < 4 {
		return nil, fmt.Errorf("%w: short read at 0x%x", ErrInvalid, addr)
	}
	inst, err := arm64asm.Decode(code[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: a64 at 0x%x", ErrInvalid, addr)
	}
	raw := binary.LittleEndian.Uint32(code[:4])

	mn := strings.ToLower(inst.Op.String())
	ins := &model.Instruction{
		Addr:     addr,
		Size:     4,
		Raw:      append([]byte(nil), code[:4]...),
		Mnemonic: mn,
	}

	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch v := arg.(type) {
		case arm64asm.Cond:
			// Conditions fold into the mnemonic, "b.eq" style.
			ins.Mnemonic = mn + "." + strings.ToLower(v.String())
		case arm64asm.Imm:
			ins.Operands = append(ins.Operands, model.NewImm(int64(v.Imm)))
		case arm64asm.Imm64:
			ins.Operands = append(ins.Operands, model.NewImm(int64(v.Imm)))
		case arm64asm.PCRel:
			ins.Operands = append(ins.Operands, model.NewImm(int64(addr)+int64(v)))
		case arm64asm.Reg:
			if r, ok := a64Reg(v.String()); ok {
				ins.Operands = append(ins.Operands, model.NewReg(r))
			}
		case arm64asm.RegSP:
			if r, ok := a64Reg(arm64asm.Reg(v).String()); ok {
				ins.Operands = append(ins.Operands, model.NewReg(r))
			}
		case arm64asm.MemImmediate:
			base, _ := a64Reg(v.Base.String())
			disp, _ := a64MemDisp(raw)
			ins.Operands = append(ins.Operands, model.NewMem(base, model.RegNone, 1, disp))
		}
	}

	ins.Groups = classifyBranch(ins.Mnemonic)
	return ins, nil
}

// a64Reg maps a register name ("X7", "W3", "SP", "XZR") to the neutral
// numbering. Vector and system registers are dropped from the operand list.
func a64Reg(s string) (model.Reg, bool) {
	switch s {
	case "SP", "WSP":
		return model.Arm64SP, true
	case "XZR", "WZR":
		return model.Arm64XZR, true
	}
	if len(s) >= 2 && (s[0] == 'X' || s[0] == 'W') {
		if n, err := strconv.Atoi(s[1:]); err == nil && n >= 0 && n <= 30 {
			return model.Arm64X0 + model.Reg(n), true
		}
	}
	return model.RegNone, false
}

// a64MemDisp recovers the byte displacement of an unsigned-offset or
// unscaled load/store from the raw encoding. arm64asm does not export it.
func a64MemDisp(raw uint32) (int64, bool) {
	imm12 := int64((raw >> 10) & 0xFFF)
	switch {
	case raw&0xFFC00000 == 0xF9400000 || raw&0xFFC00000 == 0xF9000000: // LDR/STR Xt, unsigned offset
		return imm12 << 3, true
	case raw&0xFFC00000 == 0xB9400000 || raw&0xFFC00000 == 0xB9000000: // LDR/STR Wt, unsigned offset
		return imm12 << 2, true
	case raw&0xFFC00000 == 0x39400000 || raw&0xFFC00000 == 0x39000000: // LDRB/STRB
		return imm12, true
	case raw&0xFFC00000 == 0x79400000 || raw&0xFFC00000 == 0x79000000: // LDRH/STRH
		return imm12 << 1, true
	case raw&0xFFE00C00 == 0xF8400000 || raw&0xFFE00C00 == 0xB8400000: // LDUR Xt/Wt
		return int64(signExtend32((raw>>12)&0x1FF, 9)), true
	}
	return 0, false
}
