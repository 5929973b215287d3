package model

import "fmt"

// Reg is an architecture-specific register id. The numbering follows the
// decode backend for each architecture; RegNone marks an absent base or
// index register in a memory operand.
type Reg int

const RegNone Reg = -1

// A32 register numbering (architectural order, matches armasm.Reg).
const (
	ArmR0 Reg = iota
	ArmR1
	ArmR2
	ArmR3
	ArmR4
	ArmR5
	ArmR6
	ArmR7
	ArmR8
	ArmR9
	ArmR10
	ArmR11
	ArmR12
	ArmSP
	ArmLR
	ArmPC
)

// ARM64 register numbering: X0-X30, then SP and the zero register.
const (
	Arm64X0  Reg = iota
	Arm64X30     = Arm64X0 + 30
	Arm64SP      = Arm64X0 + 31
	Arm64XZR     = Arm64X0 + 32
)

var armRegNames = [16]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc",
}

// RegName renders a register id for the given architecture.
func RegName(arch Arch, r Reg) string {
	switch arch {
	case ArchARM:
		if r >= 0 && int(r) < len(armRegNames) {
			return armRegNames[r]
		}
	case ArchARM64:
		switch {
		case r >= Arm64X0 && r <= Arm64X30:
			return fmt.Sprintf("x%d", int(r-Arm64X0))
		case r == Arm64SP:
			return "sp"
		case r == Arm64XZR:
			return "xzr"
		}
	}
	return fmt.Sprintf("reg%d", int(r))
}

// IsIPReg reports whether r belongs to the architecture's instruction-pointer
// register class. ARM64 has no PC-addressable register, so its class is empty.
func IsIPReg(arch Arch, r Reg) bool {
	return arch == ArchARM && r == ArmPC
}
