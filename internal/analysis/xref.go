package analysis

import (
	"sort"

	"github.com/osirislab/dispatch/internal/model"
)

// BuildXrefs scans the discovered instructions for immediate operands that
// land in mapped memory and inverts them into a referenced-address to
// referencing-addresses map. Branch targets and materialized pointers both
// count; each referencer list is ascending.
func BuildXrefs(exec model.Executable, res *Result) map[uint64][]uint64 {
	xrefs := make(map[uint64][]uint64)
	for _, ins := range res.Instructions {
		for _, op := range ins.Operands {
			if op.Kind != model.KindImm {
				continue
			}
			ref := uint64(op.Imm)
			if _, ok := exec.SectionContaining(ref); !ok {
				continue
			}
			xrefs[ref] = append(xrefs[ref], ins.Addr)
		}
	}
	for ref := range xrefs {
		sort.Slice(xrefs[ref], func(i, j int) bool { return xrefs[ref][i] < xrefs[ref][j] })
	}
	return xrefs
}
