package model

import (
	"fmt"
	"strings"
)

// GroupSet is the control-flow classification of an instruction.
type GroupSet uint8

const (
	GroupCall GroupSet = 1 << iota
	GroupJump
)

// Has reports whether g contains the given group.
func (g GroupSet) Has(group GroupSet) bool { return g&group != 0 }

// Instruction is one decoded instruction, normalized away from the decode
// backend. Addr is the unique key within a decode context. Exec is a
// non-owning back-reference used for name, string, and xref resolution.
type Instruction struct {
	Addr     uint64
	Size     int
	Raw      []byte
	Mnemonic string
	Operands []Operand
	Groups   GroupSet

	// Comment is the only mutable field: the first render that resolves a
	// referenced string records its full text here. Re-resolution is
	// idempotent.
	Comment string

	Exec Executable
}

func (i *Instruction) IsCall() bool { return i.Groups.Has(GroupCall) }
func (i *Instruction) IsJump() bool { return i.Groups.Has(GroupJump) }

// Target returns the final operand as a branch/reference target if it is an
// immediate.
func (i *Instruction) Target() (uint64, bool) {
	if n := len(i.Operands); n > 0 && i.Operands[n-1].Kind == KindImm {
		return uint64(i.Operands[n-1].Imm), true
	}
	return 0, false
}

// OpStr renders the operand list with name resolution applied: call and jump
// targets become function names (with +offset for interior targets), and
// immediates matching a known string are replaced by the string's short name
// while the full text is recorded in Comment.
func (i *Instruction) OpStr() string {
	ops := make([]string, len(i.Operands))
	for k := range i.Operands {
		ops[k] = i.Operands[k].Render(i)
	}

	if i.Exec == nil {
		return strings.Join(ops, ", ")
	}

	if i.IsCall() || i.IsJump() {
		// The destination is always the final operand, even for
		// conditional ARM branches.
		if target, ok := i.Target(); ok {
			if name, ok := resolveCodeName(i.Exec, target); ok {
				ops[len(ops)-1] = name
			}
		}
	} else {
		for k := range i.Operands {
			op := &i.Operands[k]
			if op.Kind != KindImm {
				continue
			}
			if s, ok := i.Exec.StringAt(uint64(op.Imm)); ok {
				ops[k] = s.ShortName()
				i.Comment = s.Value
			}
		}
	}

	return strings.Join(ops, ", ")
}

// String renders the full instruction line: mnemonic, resolved operands, the
// comment if any, and an XREF list when other instructions reference this
// address.
func (i *Instruction) String() string {
	var b strings.Builder
	b.WriteString(i.Mnemonic)
	if ops := i.OpStr(); ops != "" {
		b.WriteByte(' ')
		b.WriteString(ops)
	}
	if i.Comment != "" {
		fmt.Fprintf(&b, "  ; %q", i.Comment)
	}
	if i.Exec != nil {
		if refs := i.Exec.XrefsTo(i.Addr); len(refs) > 0 {
			parts := make([]string, len(refs))
			for k, a := range refs {
				parts[k] = fmt.Sprintf("0x%x", a)
			}
			fmt.Fprintf(&b, "  ; XREF=%s", strings.Join(parts, ", "))
		}
	}
	return b.String()
}

// resolveCodeName maps a code address to a display name: an exact function
// entry match wins; otherwise the nearest preceding function is shown with a
// +offset. Targets outside executable memory, or with no preceding function,
// resolve to nothing and the raw address stays.
func resolveCodeName(exec Executable, target uint64) (string, bool) {
	if fn, ok := exec.FunctionAt(target); ok {
		return fn.Name, true
	}
	if !exec.VaddrIsExecutable(target) {
		return "", false
	}
	addrs := exec.FunctionAddrs()
	for k := len(addrs) - 1; k >= 0; k-- {
		if addrs[k] < target {
			fn, ok := exec.FunctionAt(addrs[k])
			if !ok {
				break
			}
			return fmt.Sprintf("%s+0x%x", fn.Name, target-addrs[k]), true
		}
	}
	return "", false
}
