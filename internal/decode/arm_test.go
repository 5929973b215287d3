package decode

import (
	"errors"
	"testing"

	"github.com/osirislab/dispatch/internal/model"
)

func decodeA(t *testing.T, code []byte, addr uint64) *model.Instruction {
	t.Helper()
	ins, err := NewARM().Decode(code, addr, ModeArm)
	if err != nil {
		t.Fatalf("decode % x at 0x%x: %v", code, addr, err)
	}
	return ins
}

func TestA32MovImm(t *testing.T) {
	// E3A00000: mov r0, #0
	ins := decodeA(t, []byte{0x00, 0x00, 0xA0, 0xE3}, 0x1000)
	if ins.Mnemonic != "mov" || ins.Size != 4 {
		t.Fatalf("got %s size %d", ins.Mnemonic, ins.Size)
	}
	if ins.IsCall() || ins.IsJump() {
		t.Error("mov must not classify as a branch")
	}
	n := len(ins.Operands)
	if n == 0 || ins.Operands[n-1].Kind != model.KindImm || ins.Operands[n-1].Imm != 0 {
		t.Errorf("operands: %+v", ins.Operands)
	}
}

func TestA32BranchLink(t *testing.T) {
	// EB000001: bl +4; pc reads as addr+8, so target = addr+12.
	ins := decodeA(t, []byte{0x01, 0x00, 0x00, 0xEB}, 0x1000)
	if ins.Mnemonic != "bl" || !ins.IsCall() {
		t.Fatalf("got %s groups %v", ins.Mnemonic, ins.Groups)
	}
	if target, ok := ins.Target(); !ok || target != 0x100C {
		t.Errorf("target: 0x%x %v", target, ok)
	}
}

func TestA32ConditionalBranch(t *testing.T) {
	// 0A000000: beq +0; target = addr+8.
	ins := decodeA(t, []byte{0x00, 0x00, 0x00, 0x0A}, 0x1000)
	if ins.Mnemonic != "beq" || !ins.IsJump() {
		t.Fatalf("got %s groups %v", ins.Mnemonic, ins.Groups)
	}
	if target, _ := ins.Target(); target != 0x1008 {
		t.Errorf("target: 0x%x", target)
	}
	if !IsConditionalBranch(ins.Mnemonic) {
		t.Error("beq must be conditional")
	}
}

func TestA32BxLR(t *testing.T) {
	// E12FFF1E: bx lr
	ins := decodeA(t, []byte{0x1E, 0xFF, 0x2F, 0xE1}, 0x1000)
	if ins.Mnemonic != "bx" || !ins.IsJump() {
		t.Fatalf("got %s groups %v", ins.Mnemonic, ins.Groups)
	}
	n := len(ins.Operands)
	if n == 0 || ins.Operands[n-1].Kind != model.KindReg || ins.Operands[n-1].Reg != model.ArmLR {
		t.Errorf("operands: %+v", ins.Operands)
	}
}

func TestA32LiteralLoad(t *testing.T) {
	// E59F0004: ldr r0, [pc, #4]
	ins := decodeA(t, []byte{0x04, 0x00, 0x9F, 0xE5}, 0x1000)
	if ins.Mnemonic != "ldr" {
		t.Fatalf("got %s", ins.Mnemonic)
	}
	mem := ins.Operands[len(ins.Operands)-1]
	if mem.Kind != model.KindMem || mem.Base != model.ArmPC || mem.Disp != 4 {
		t.Errorf("mem: %+v", mem)
	}
	if !model.IsIPReg(model.ArchARM, mem.Base) {
		t.Error("pc base must classify as the instruction pointer")
	}
}

func TestA32Push(t *testing.T) {
	// E92D4010: push {r4, lr}
	ins := decodeA(t, []byte{0x10, 0x40, 0x2D, 0xE9}, 0x1000)
	if ins.Mnemonic != "push" {
		t.Fatalf("got %s", ins.Mnemonic)
	}
	var haveR4, haveLR bool
	for _, op := range ins.Operands {
		if op.Kind != model.KindReg {
			continue
		}
		switch op.Reg {
		case model.ArmR0 + 4:
			haveR4 = true
		case model.ArmLR:
			haveLR = true
		}
	}
	if !haveR4 || !haveLR {
		t.Errorf("register list: %+v", ins.Operands)
	}
}

func TestA32ShortRead(t *testing.T) {
	_, err := NewARM().Decode([]byte{0x00, 0x00}, 0x1000, ModeArm)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestNormalizeA32Mnemonic(t *testing.T) {
	cases := map[string]string{
		"BL.EQ": "bleq",
		"B.LS":  "bls",
		"MOV":   "mov",
		"LDR":   "ldr",
	}
	for in, want := range cases {
		if got := normalizeA32Mnemonic(in); got != want {
			t.Errorf("normalizeA32Mnemonic(%q) = %q, want %q", in, got, want)
		}
	}
}
