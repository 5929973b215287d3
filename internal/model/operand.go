package model

import (
	"fmt"
	"strconv"
	"strings"
)

// OperandKind discriminates the Operand variants.
type OperandKind uint8

const (
	KindImm OperandKind = iota
	KindFP
	KindReg
	KindMem
)

// Operand is a closed tagged variant: exactly one of an immediate, a float
// immediate, a register, or a memory reference. Use the New* constructors;
// they are the only way to produce a well-formed value, so a kind/field
// mismatch cannot be constructed.
type Operand struct {
	Kind OperandKind

	Imm int64
	FP  float64
	Reg Reg

	// Memory reference fields (KindMem only).
	Base  Reg
	Index Reg
	Scale int
	Disp  int64
}

// NewImm builds an immediate operand.
func NewImm(v int64) Operand {
	return Operand{Kind: KindImm, Imm: v, Base: RegNone, Index: RegNone}
}

// NewFP builds a floating-point immediate operand.
func NewFP(v float64) Operand {
	return Operand{Kind: KindFP, FP: v, Base: RegNone, Index: RegNone}
}

// NewReg builds a register operand.
func NewReg(r Reg) Operand {
	return Operand{Kind: KindReg, Reg: r, Base: RegNone, Index: RegNone}
}

// NewMem builds a memory operand. Base and index may be RegNone; a scale
// below 1 is normalized to 1.
func NewMem(base, index Reg, scale int, disp int64) Operand {
	if scale < 1 {
		scale = 1
	}
	return Operand{Kind: KindMem, Base: base, Index: index, Scale: scale, Disp: disp}
}

// Simplified returns the display form of the operand. IP-relative memory
// operands with no index register collapse to an absolute displacement:
// owning instruction address + size + displacement. The stored operand is
// never mutated; simplification is recomputed on each render.
func (o Operand) Simplified(ins *Instruction) Operand {
	if o.Kind != KindMem || ins == nil || ins.Exec == nil {
		return o
	}
	if !IsIPReg(ins.Exec.Arch(), o.Base) || o.Index != RegNone {
		return o
	}
	abs := int64(ins.Addr) + int64(ins.Size) + o.Disp
	return NewMem(RegNone, RegNone, 1, abs)
}

// Render formats the operand for the owning instruction's architecture.
func (o Operand) Render(ins *Instruction) string {
	arch := ArchARM
	if ins != nil && ins.Exec != nil {
		arch = ins.Exec.Arch()
	}

	switch o.Kind {
	case KindImm:
		return hexInt(o.Imm)
	case KindFP:
		return strconv.FormatFloat(o.FP, 'g', -1, 64)
	case KindReg:
		return RegName(arch, o.Reg)
	case KindMem:
		m := o.Simplified(ins)

		var b strings.Builder
		b.WriteByte('[')
		plus := false
		if m.Base != RegNone {
			b.WriteString(RegName(arch, m.Base))
			plus = true
		}
		if m.Index != RegNone {
			if plus {
				b.WriteString(" + ")
			}
			b.WriteString(RegName(arch, m.Index))
			if m.Scale > 1 {
				fmt.Fprintf(&b, "*%d", m.Scale)
			}
			plus = true
		}
		if m.Disp != 0 || !plus {
			if plus {
				b.WriteString(" + ")
			}
			b.WriteString(hexInt(m.Disp))
		}
		b.WriteByte(']')
		return b.String()
	}
	panic(fmt.Sprintf("model: operand kind %d", o.Kind))
}

// hexInt formats like %#x but keeps the sign in front of the 0x prefix.
func hexInt(v int64) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", uint64(-v))
	}
	return fmt.Sprintf("0x%x", uint64(v))
}
