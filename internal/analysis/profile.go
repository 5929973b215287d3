// Package analysis recovers a control-flow model from raw machine code:
// a worklist-driven discovery engine interleaves disassembly with graph
// exploration, because on interworking architectures the instruction-set
// mode of a block is only knowable from how control reaches it.
package analysis

import (
	"strings"

	"github.com/osirislab/dispatch/internal/decode"
	"github.com/osirislab/dispatch/internal/model"
)

// Profile carries the per-architecture parameters of the discovery engine.
// The engine itself is architecture-agnostic; mode values, initial-mode
// derivation, and the exchange-branch convention are the only axis of
// variation.
type Profile struct {
	Arch model.Arch

	// Interworking marks architectures that mix two encodings and select
	// between them with the low address bit.
	Interworking bool

	// PipelineOffset is added to the instruction address when resolving a
	// PC-relative literal: 4 on ARM/Thumb (PC reads ahead of the
	// instruction), 0 on ARM64.
	PipelineOffset uint64

	Decoder decode.Decoder
}

// ARM is the 32-bit ARM/Thumb interworking profile.
func ARM() Profile {
	return Profile{
		Arch:           model.ArchARM,
		Interworking:   true,
		PipelineOffset: 4,
		Decoder:        decode.NewARM(),
	}
}

// ARM64 is the 64-bit profile. A64 is its only instruction set, so the
// entry point's low bit is ignored and every block decodes in the same
// fixed mode.
func ARM64() Profile {
	return Profile{
		Arch:    model.ArchARM64,
		Decoder: decode.NewARM64(),
	}
}

// ProfileFor selects the profile for an executable's architecture.
func ProfileFor(arch model.Arch) Profile {
	if arch == model.ArchARM64 {
		return ARM64()
	}
	return ARM()
}

// InitialMode derives the mode of the entry block from the entry point's
// interworking flag.
func (p Profile) InitialMode(entry uint64) decode.Mode {
	return p.ModeForAddr(entry)
}

// ModeForAddr derives a mode from an address's own low bit.
func (p Profile) ModeForAddr(addr uint64) decode.Mode {
	if !p.Interworking {
		return decode.ModeA64
	}
	if addr&1 != 0 {
		return decode.ModeThumb
	}
	return decode.ModeArm
}

// ExchangeMode flips between the two interworking modes.
func (p Profile) ExchangeMode(cur decode.Mode) decode.Mode {
	if !p.Interworking {
		return cur
	}
	if cur == decode.ModeThumb {
		return decode.ModeArm
	}
	return decode.ModeThumb
}

// IsExchange reports whether a branch mnemonic switches instruction sets
// (bx, blx and their conditional forms).
func (p Profile) IsExchange(mnemonic string) bool {
	if !p.Interworking {
		return false
	}
	return strings.HasPrefix(mnemonic, "bx") || strings.HasPrefix(mnemonic, "blx")
}
