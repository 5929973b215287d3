package model

import (
	"strings"
	"testing"
)

func TestOpStrResolvesCallTarget(t *testing.T) {
	exec := newFakeExec(ArchARM)
	exec.secs = []Section{{Name: ".text", Vaddr: 0x1000, Size: 0x1000}}
	exec.execSec[".text"] = true
	exec.addFunc(0x1400, 0x100, "foo")

	ins := &Instruction{
		Addr:     0x1000,
		Size:     4,
		Mnemonic: "bl",
		Operands: []Operand{NewImm(0x1400)},
		Groups:   GroupCall,
		Exec:     exec,
	}
	if got := ins.OpStr(); got != "foo" {
		t.Fatalf("got %q", got)
	}
}

func TestOpStrResolvesInteriorTarget(t *testing.T) {
	exec := newFakeExec(ArchARM)
	exec.secs = []Section{{Name: ".text", Vaddr: 0x1000, Size: 0x1000}}
	exec.execSec[".text"] = true
	exec.addFunc(0x1400, 0x100, "foo")

	ins := &Instruction{
		Addr:     0x1000,
		Size:     4,
		Mnemonic: "b",
		Operands: []Operand{NewImm(0x1450)},
		Groups:   GroupJump,
		Exec:     exec,
	}
	if got := ins.OpStr(); got != "foo+0x50" {
		t.Fatalf("got %q", got)
	}
}

func TestOpStrKeepsUnresolvableTarget(t *testing.T) {
	exec := newFakeExec(ArchARM)
	exec.secs = []Section{{Name: ".text", Vaddr: 0x1000, Size: 0x1000}}
	exec.execSec[".text"] = true
	// No functions at all: nothing precedes the target.

	ins := &Instruction{
		Addr:     0x1000,
		Size:     4,
		Mnemonic: "b",
		Operands: []Operand{NewImm(0x1450)},
		Groups:   GroupJump,
		Exec:     exec,
	}
	if got := ins.OpStr(); got != "0x1450" {
		t.Fatalf("got %q", got)
	}
}

func TestOpStrSubstitutesString(t *testing.T) {
	exec := newFakeExec(ArchARM)
	exec.strs[0x2000] = &String{Value: "Hello, World!", Vaddr: 0x2000, Exec: exec}

	ins := &Instruction{
		Addr:     0x1000,
		Size:     4,
		Mnemonic: "mov",
		Operands: []Operand{NewReg(ArmR0), NewImm(0x2000)},
		Exec:     exec,
	}
	got := ins.OpStr()
	if got != "r0, Hello,Wo" {
		t.Fatalf("got %q", got)
	}
	if ins.Comment != "Hello, World!" {
		t.Fatalf("comment %q", ins.Comment)
	}
	// Re-rendering is stable.
	if again := ins.OpStr(); again != got {
		t.Fatalf("second render %q", again)
	}
}

func TestStringIncludesCommentAndXrefs(t *testing.T) {
	exec := newFakeExec(ArchARM)
	exec.strs[0x2000] = &String{Value: "config file", Vaddr: 0x2000, Exec: exec}
	exec.xrefs[0x1000] = []uint64{0x1400, 0x1500}

	ins := &Instruction{
		Addr:     0x1000,
		Size:     4,
		Mnemonic: "mov",
		Operands: []Operand{NewReg(ArmR0), NewImm(0x2000)},
		Exec:     exec,
	}
	line := ins.String()
	if !strings.Contains(line, `; "config file"`) {
		t.Errorf("missing comment: %q", line)
	}
	if !strings.Contains(line, "XREF=0x1400, 0x1500") {
		t.Errorf("missing xrefs: %q", line)
	}
}

func TestStringWithoutExec(t *testing.T) {
	ins := &Instruction{
		Addr:     0x1000,
		Size:     4,
		Mnemonic: "mov",
		Operands: []Operand{NewReg(ArmR0), NewImm(5)},
	}
	if got := ins.String(); got != "mov r0, 0x5" {
		t.Fatalf("got %q", got)
	}
}

func TestTarget(t *testing.T) {
	ins := &Instruction{Mnemonic: "bl", Operands: []Operand{NewImm(0x1400)}, Groups: GroupCall}
	if target, ok := ins.Target(); !ok || target != 0x1400 {
		t.Fatalf("got 0x%x %v", target, ok)
	}
	ins = &Instruction{Mnemonic: "bx", Operands: []Operand{NewReg(ArmLR)}, Groups: GroupJump}
	if _, ok := ins.Target(); ok {
		t.Fatal("register branch must have no immediate target")
	}
}
