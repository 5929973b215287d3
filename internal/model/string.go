package model

import "fmt"

// String is a literal recovered from the binary at a known virtual address.
type String struct {
	Value string
	Vaddr uint64
	Exec  Executable
}

// ShortName is the compact display form used when an operand is substituted:
// spaces stripped, truncated to eight characters. It is derived on each call,
// not a second identity.
func (s *String) ShortName() string {
	out := make([]byte, 0, 8)
	for i := 0; i < len(s.Value) && len(out) < 8; i++ {
		if s.Value[i] == ' ' {
			continue
		}
		out = append(out, s.Value[i])
	}
	return string(out)
}

func (s *String) String() string {
	return fmt.Sprintf("<string %q at 0x%x>", s.Value, s.Vaddr)
}
