package model

import "testing"

func TestOperandRenderBasic(t *testing.T) {
	cases := []struct {
		op   Operand
		want string
	}{
		{NewImm(0x1000), "0x1000"},
		{NewImm(-8), "-0x8"},
		{NewReg(ArmR3), "r3"},
		{NewReg(ArmSP), "sp"},
		{NewFP(1.5), "1.5"},
		{NewMem(ArmR1, RegNone, 1, 0), "[r1]"},
		{NewMem(ArmR1, RegNone, 1, 8), "[r1 + 0x8]"},
		{NewMem(ArmR1, RegNone, 1, -4), "[r1 + -0x4]"},
		{NewMem(ArmR1, ArmR2, 4, 0), "[r1 + r2*4]"},
		{NewMem(ArmR1, ArmR2, 1, 0), "[r1 + r2]"},
		{NewMem(RegNone, RegNone, 1, 0x2000), "[0x2000]"},
	}
	for _, c := range cases {
		if got := c.op.Render(nil); got != c.want {
			t.Errorf("Render(%+v) = %q, want %q", c.op, got, c.want)
		}
	}
}

func TestOperandRenderArm64Regs(t *testing.T) {
	exec := newFakeExec(ArchARM64)
	ins := &Instruction{Exec: exec}
	if got := NewReg(Arm64X0 + 7).Render(ins); got != "x7" {
		t.Errorf("got %q", got)
	}
	if got := NewReg(Arm64SP).Render(ins); got != "sp" {
		t.Errorf("got %q", got)
	}
}

func TestNewMemNormalizesScale(t *testing.T) {
	m := NewMem(ArmR0, ArmR1, 0, 0)
	if m.Scale != 1 {
		t.Fatalf("scale %d, want 1", m.Scale)
	}
}

func TestSimplifiedCollapsesIPRelative(t *testing.T) {
	exec := newFakeExec(ArchARM)
	ins := &Instruction{Addr: 0x1000, Size: 4, Exec: exec}

	op := NewMem(ArmPC, RegNone, 1, 8)
	s := op.Simplified(ins)
	if s.Base != RegNone || s.Disp != 0x100c {
		t.Fatalf("got %+v", s)
	}
	// The stored operand is untouched.
	if op.Base != ArmPC || op.Disp != 8 {
		t.Fatalf("source mutated: %+v", op)
	}
	if got := op.Render(ins); got != "[0x100c]" {
		t.Errorf("render: %q", got)
	}
}

func TestSimplifiedLeavesOtherMemAlone(t *testing.T) {
	exec := newFakeExec(ArchARM)
	ins := &Instruction{Addr: 0x1000, Size: 4, Exec: exec}

	// Non-IP base stays.
	op := NewMem(ArmR4, RegNone, 1, 8)
	if s := op.Simplified(ins); s != op {
		t.Errorf("r4 base simplified: %+v", s)
	}
	// IP base with an index stays.
	op = NewMem(ArmPC, ArmR2, 1, 0)
	if s := op.Simplified(ins); s != op {
		t.Errorf("indexed pc simplified: %+v", s)
	}
}

func TestSimplifiedArm64HasNoIPClass(t *testing.T) {
	exec := newFakeExec(ArchARM64)
	ins := &Instruction{Addr: 0x1000, Size: 4, Exec: exec}
	op := NewMem(Arm64X0, RegNone, 1, 8)
	if s := op.Simplified(ins); s != op {
		t.Errorf("a64 mem simplified: %+v", s)
	}
}
