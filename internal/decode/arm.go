package decode

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/arch/arm/armasm"

	"github.com/osirislab/dispatch/internal/model"
)

// ARM decodes the 32-bit ARM architecture: A32 encodings through
// golang.org/x/arch/arm/armasm, and the Thumb encodings through the
// raw-encoding decoder in thumb.go (x/arch has no Thumb decoder).
type ARM struct{}

func NewARM() *ARM { return &ARM{} }

func (d *ARM) Decode(code []byte, addr uint64, mode Mode) (*model.Instruction, error) {
	switch mode {
	case ModeThumb:
		return decodeThumb(code, addr)
	default:
		return decodeA32(code, addr)
	}
}

// decodeA32 decodes one A32 instruction and adapts it to the neutral model.
func decodeA32(code []byte, addr uint64) (*model.Instruction, error) {
	if len(code) < 4 {
		return nil, fmt.Errorf("%w: short read at 0x%x", ErrInvalid, addr)
	}
	inst, err := armasm.Decode(code[:4], armasm.ModeARM)
	if err != nil {
		return nil, fmt.Errorf("%w: a32 at 0x%x", ErrInvalid, addr)
	}

	mn := normalizeA32Mnemonic(inst.Op.String())
	ins := &model.Instruction{
		Addr:     addr,
		Size:     4,
		Raw:      append([]byte(nil), code[:4]...),
		Mnemonic: mn,
		Groups:   classifyBranch(mn),
	}

	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch v := arg.(type) {
		case armasm.Imm:
			ins.Operands = append(ins.Operands, model.NewImm(int64(v)))
		case armasm.ImmAlt:
			ins.Operands = append(ins.Operands, model.NewImm(int64(v.Imm())))
		case armasm.Reg:
			if r, ok := a32Reg(v); ok {
				ins.Operands = append(ins.Operands, model.NewReg(r))
			}
		case armasm.RegShift:
			if r, ok := a32Reg(v.Reg); ok {
				ins.Operands = append(ins.Operands, model.NewReg(r))
			}
		case armasm.RegShiftReg:
			if r, ok := a32Reg(v.Reg); ok {
				ins.Operands = append(ins.Operands, model.NewReg(r))
			}
		case armasm.RegList:
			for i := model.ArmR0; i <= model.ArmPC; i++ {
				if uint16(v)&(uint16(1)<<uint(i)) != 0 {
					ins.Operands = append(ins.Operands, model.NewReg(i))
				}
			}
		case armasm.PCRel:
			// Branch offsets are relative to PC, which reads as the
			// instruction address plus 8 in A32.
			ins.Operands = append(ins.Operands, model.NewImm(int64(addr)+8+int64(v)))
		case armasm.Mem:
			ins.Operands = append(ins.Operands, a32Mem(v))
		}
	}
	return ins, nil
}

// a32Mem adapts an armasm memory argument. Register-indexed forms carry the
// index and an LSL scale; immediate forms carry the signed displacement.
func a32Mem(v armasm.Mem) model.Operand {
	base, _ := a32Reg(v.Base)
	index := model.RegNone
	scale := 1
	var disp int64
	if v.Sign != 0 {
		if r, ok := a32Reg(v.Index); ok {
			index = r
		}
		if v.Shift == armasm.ShiftLeft && v.Count > 0 {
			scale = 1 << v.Count
		}
	} else {
		disp = int64(v.Offset)
	}
	return model.NewMem(base, index, scale, disp)
}

// a32Reg maps an armasm register to the neutral numbering. Only the sixteen
// core registers participate in the model; others (FP, banked, status) are
// dropped from the operand list.
func a32Reg(v armasm.Reg) (model.Reg, bool) {
	switch s := v.String(); s {
	case "SP":
		return model.ArmSP, true
	case "LR":
		return model.ArmLR, true
	case "PC":
		return model.ArmPC, true
	default:
		if strings.HasPrefix(s, "R") {
			if n, err := strconv.Atoi(s[1:]); err == nil && n >= 0 && n <= 15 {
				return model.ArmR0 + model.Reg(n), true
			}
		}
	}
	return model.RegNone, false
}

// normalizeA32Mnemonic lowercases and strips the dotted qualifiers armasm
// uses ("BL.EQ" -> "bleq", "LDR.W" -> "ldrw"), matching the conventional
// A32 spelling.
func normalizeA32Mnemonic(op string) string {
	return strings.ToLower(strings.ReplaceAll(op, ".", ""))
}
