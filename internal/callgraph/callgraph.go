// Package callgraph converts analyzed functions into lattice graphs for DOT
// rendering.
package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"github.com/osirislab/dispatch/internal/model"
)

// BuildCallGraph constructs a lattice.Graph over the given functions. Each
// function becomes a node; each immediate call site becomes an edge to the
// resolved callee name, or to a raw hex label when the target has no symbol.
func BuildCallGraph(fns []*model.Function) *lattice.Graph {
	g := &lattice.Graph{}
	for _, fn := range fns {
		g.Nodes = append(g.Nodes, fn.Demangle())
		for _, ins := range fn.Instructions {
			if !ins.IsCall() {
				continue
			}
			target, ok := ins.Target()
			if !ok {
				continue
			}
			callee := calleeName(fn.Exec, target&^1)
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: fn.Demangle(),
				Callee: callee,
			})
		}
	}
	g.Dedup()
	return g
}

func calleeName(exec model.Executable, target uint64) string {
	if exec != nil {
		if callee, ok := exec.FunctionAt(target); ok {
			return callee.Demangle()
		}
	}
	return fmt.Sprintf("0x%x", target)
}
