package callgraph

import (
	"github.com/zboralski/lattice"

	"github.com/osirislab/dispatch/internal/analysis"
	"github.com/osirislab/dispatch/internal/model"
)

// BuildFuncCFG maps one function's basic blocks and edges onto a
// lattice.FuncCFG. Block Start/End are instruction indexes into the
// function's instruction sequence; successors carry "T"/"F" conditions for
// conditional edges and "" otherwise. Returns the CFG and its block count.
func BuildFuncCFG(fn *model.Function) (*lattice.FuncCFG, int) {
	idxOf := make(map[uint64]int, len(fn.Instructions))
	for i, ins := range fn.Instructions {
		idxOf[ins.Addr] = i
	}
	blockID := make(map[uint64]int, len(fn.Blocks))
	for i, b := range fn.Blocks {
		blockID[b.Addr] = i
	}

	// Edge sources are instruction addresses; index them by the block whose
	// terminating instruction they are.
	edges := analysis.Edges(fn)
	succsBySrc := make(map[uint64][]model.CFGEdge)
	for _, e := range edges {
		succsBySrc[e.Src] = append(succsBySrc[e.Src], e)
	}

	lcfg := &lattice.FuncCFG{Name: fn.Demangle()}
	for i, b := range fn.Blocks {
		ins := b.Instructions()
		lb := &lattice.BasicBlock{ID: i}
		if len(ins) > 0 {
			lb.Start = idxOf[ins[0].Addr]
			lb.End = lb.Start + len(ins)
		}

		var succs []model.CFGEdge
		if len(ins) > 0 {
			succs = succsBySrc[ins[len(ins)-1].Addr]
		}
		for _, e := range succs {
			dst, ok := blockID[e.Dst]
			if !ok {
				continue
			}
			cond := ""
			if e.Kind == model.EdgeCondJump {
				// First conditional edge is taken, second is fallthrough.
				if e.Dst == b.Addr+b.Size {
					cond = "F"
				} else {
					cond = "T"
				}
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: dst, Cond: cond})
		}
		lb.Term = len(lb.Succs) == 0

		for _, cins := range ins {
			if !cins.IsCall() {
				continue
			}
			if target, ok := cins.Target(); ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idxOf[cins.Addr],
					Callee: calleeName(fn.Exec, target&^1),
				})
			}
		}

		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg, len(fn.Blocks)
}

// BuildCFG wraps every function's CFG into one lattice.CFGGraph.
func BuildCFG(fns []*model.Function) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, fn := range fns {
		lcfg, _ := BuildFuncCFG(fn)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}
