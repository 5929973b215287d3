package model

import "fmt"

// EdgeKind classifies a control-flow edge.
type EdgeKind uint8

const (
	// EdgeDefault carries no extra information: a fallthrough or an
	// unconditional jump.
	EdgeDefault EdgeKind = iota
	// EdgeCondJump comes from a conditional branch. Every conditional
	// branch contributes exactly two of these: taken and not-taken.
	EdgeCondJump
	// EdgeSwitch comes from a jump table; Value holds the case key.
	EdgeSwitch
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDefault:
		return "default"
	case EdgeCondJump:
		return "cond"
	case EdgeSwitch:
		return "switch"
	}
	return "unknown"
}

// CFGEdge is a control-flow edge from the instruction at Src to Dst.
//
// Edge identity is (Src, Dst, Kind) only: Value is excluded, so struct
// equality (==) is not the dedup relation. Consumers must compare with Equal
// or dedup with DedupEdges.
type CFGEdge struct {
	Src  uint64
	Dst  uint64
	Kind EdgeKind

	// Value is the switch case key; meaningful only for EdgeSwitch.
	Value int64
}

// NewEdge builds a non-switch edge.
func NewEdge(src, dst uint64, kind EdgeKind) CFGEdge {
	return CFGEdge{Src: src, Dst: dst, Kind: kind}
}

// NewSwitchEdge builds a switch edge carrying its case key.
func NewSwitchEdge(src, dst uint64, value int64) CFGEdge {
	return CFGEdge{Src: src, Dst: dst, Kind: EdgeSwitch, Value: value}
}

// Equal compares edge identity: source, destination, and kind. Value does
// not participate.
func (e CFGEdge) Equal(o CFGEdge) bool {
	return e.Src == o.Src && e.Dst == o.Dst && e.Kind == o.Kind
}

func (e CFGEdge) String() string {
	return fmt.Sprintf("<%s edge 0x%x -> 0x%x>", e.Kind, e.Src, e.Dst)
}

// DedupEdges removes duplicate edges under the Equal relation, keeping the
// first occurrence and the input order.
func DedupEdges(edges []CFGEdge) []CFGEdge {
	type key struct {
		src, dst uint64
		kind     EdgeKind
	}
	seen := make(map[key]bool, len(edges))
	out := edges[:0:0]
	for _, e := range edges {
		k := key{e.Src, e.Dst, e.Kind}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
