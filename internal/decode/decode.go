// Package decode turns raw bytes into neutral model.Instruction values.
// Each architecture backend adapts an external decoder (golang.org/x/arch)
// or a raw-encoding decoder into the same shape: address, size, bytes,
// mnemonic, operands, and a Call/Jump control-flow classification.
package decode

import (
	"errors"
	"strings"

	"github.com/osirislab/dispatch/internal/model"
)

// Mode selects the instruction-set encoding to decode with. Interworking
// architectures switch modes at runtime; the analysis engine tracks the mode
// per discovered block.
type Mode uint8

const (
	ModeArm Mode = iota
	ModeThumb
	ModeA64
)

func (m Mode) String() string {
	switch m {
	case ModeArm:
		return "arm"
	case ModeThumb:
		return "thumb"
	case ModeA64:
		return "a64"
	}
	return "unknown"
}

// ErrInvalid reports that the bytes at the current address are not a valid
// instruction in the requested mode. Callers treat this as the end of a
// block, not a fatal error.
var ErrInvalid = errors.New("decode: not a valid instruction")

// Decoder decodes one instruction at a time.
type Decoder interface {
	Decode(code []byte, addr uint64, mode Mode) (*model.Instruction, error)
}

// condSuffixes is the A32/T32 condition field spelling, including the empty
// (always) suffix.
var condSuffixes = map[string]bool{
	"": true, "eq": true, "ne": true, "cs": true, "hs": true, "cc": true,
	"lo": true, "mi": true, "pl": true, "vs": true, "vc": true, "hi": true,
	"ls": true, "ge": true, "lt": true, "gt": true, "le": true, "al": true,
}

// branchRoots orders branch mnemonic roots longest-first so that "bls"
// resolves to b+ls (a jump) while "bleq" resolves to bl+eq (a call).
var branchRoots = []struct {
	root  string
	group model.GroupSet
}{
	{"cbnz", model.GroupJump},
	{"cbz", model.GroupJump},
	{"tbnz", model.GroupJump},
	{"tbz", model.GroupJump},
	{"blx", model.GroupCall},
	{"blr", model.GroupCall},
	{"bl", model.GroupCall},
	{"bx", model.GroupJump},
	{"br", model.GroupJump},
	{"b", model.GroupJump},
}

// classifyBranch maps a normalized mnemonic to its control-flow groups.
// Non-branch mnemonics classify to zero.
func classifyBranch(mn string) model.GroupSet {
	base := mn
	if i := strings.IndexByte(mn, '.'); i >= 0 {
		// ARM64 conditional form "b.eq".
		base = mn[:i]
		if base == "b" {
			return model.GroupJump
		}
	}
	for _, r := range branchRoots {
		if !strings.HasPrefix(base, r.root) {
			continue
		}
		suffix := base[len(r.root):]
		if r.root == "cbz" || r.root == "cbnz" || r.root == "tbz" || r.root == "tbnz" ||
			r.root == "blr" || r.root == "br" {
			if suffix == "" {
				return r.group
			}
			continue
		}
		if condSuffixes[suffix] {
			return r.group
		}
	}
	return 0
}

// IsConditionalBranch reports whether a branch mnemonic has a fallthrough
// path: an A32/T32 condition suffix other than al, an ARM64 ".cond" form, or
// a compare-and-branch.
func IsConditionalBranch(mn string) bool {
	if strings.HasPrefix(mn, "b.") {
		return true
	}
	for _, root := range []string{"cbnz", "cbz", "tbnz", "tbz"} {
		if strings.HasPrefix(mn, root) {
			return true
		}
	}
	for _, root := range []string{"blx", "bl", "bx", "b"} {
		if !strings.HasPrefix(mn, root) {
			continue
		}
		suffix := mn[len(root):]
		if condSuffixes[suffix] {
			return suffix != "" && suffix != "al"
		}
	}
	return false
}
