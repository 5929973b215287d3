package analysis

import (
	"sort"
	"strings"

	"github.com/osirislab/dispatch/internal/decode"
	"github.com/osirislab/dispatch/internal/model"
)

// Boundary names one function extent inside the analyzed image. Boundaries
// come from symbols; discovery can land inside them or between them.
type Boundary struct {
	Addr uint64
	Size uint64
	Name string
	Type model.FuncType
}

// AssembleFunctions partitions the discovered instructions into functions by
// boundary, attaches them to Function values, and carves basic blocks inside
// each. Instructions falling outside every boundary are dropped; they belong
// to unclaimed glue code between symbols.
func AssembleFunctions(exec model.Executable, res *Result, bounds []Boundary) []*model.Function {
	sorted := make([]Boundary, len(bounds))
	copy(sorted, bounds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })

	fns := make([]*model.Function, 0, len(sorted))
	for _, b := range sorted {
		fn := &model.Function{
			Addr: b.Addr,
			Size: b.Size,
			Name: b.Name,
			Type: b.Type,
			Exec: exec,
		}
		fns = append(fns, fn)
	}

	addrs := res.Addrs()
	fi := 0
	for _, a := range addrs {
		for fi < len(fns) && a >= fns[fi].Addr+fns[fi].Size {
			fi++
		}
		if fi == len(fns) {
			break
		}
		fn := fns[fi]
		if a < fn.Addr {
			continue
		}
		ins := res.Instructions[a]
		ins.Exec = exec
		fn.Instructions = append(fn.Instructions, ins)
	}

	for _, fn := range fns {
		buildBlocks(fn, res)
	}
	return fns
}

// buildBlocks carves fn.Instructions into basic blocks. Leaders are the
// function entry, every in-function branch target, the instruction after any
// jump, and any engine-discovered block start inside the function.
func buildBlocks(fn *model.Function, res *Result) {
	if len(fn.Instructions) == 0 {
		return
	}

	leaders := map[uint64]bool{fn.Addr: true}
	for _, ins := range fn.Instructions {
		if ins.IsJump() || ins.IsCall() {
			if t, ok := ins.Target(); ok && fn.Contains(t&^1) {
				leaders[t&^1] = true
			}
		}
		if ins.IsJump() {
			leaders[ins.Addr+uint64(ins.Size)] = true
		}
	}
	for bb := range res.BlockModes {
		if fn.Contains(bb) && bb != fn.Addr {
			leaders[bb] = true
		}
	}

	var blocks []*model.BasicBlock
	var cur *model.BasicBlock
	for _, ins := range fn.Instructions {
		if cur == nil || leaders[ins.Addr] {
			cur = &model.BasicBlock{Parent: fn, Addr: ins.Addr}
			blocks = append(blocks, cur)
		}
		cur.Size = ins.Addr + uint64(ins.Size) - cur.Addr
	}
	fn.Blocks = blocks
}

// terminators are mnemonic roots that end a function's control flow without
// a successor.
func isTerminator(ins *model.Instruction) bool {
	mn := ins.Mnemonic
	switch {
	case mn == "ret" || mn == "eret":
		return true
	case strings.HasPrefix(mn, "pop"):
		// pop {..., pc} is the classic ARM epilogue.
		for _, op := range ins.Operands {
			if op.Kind == model.KindReg && op.Reg == model.ArmPC {
				return true
			}
		}
	case strings.HasPrefix(mn, "bx") && !strings.HasPrefix(mn, "bxj"):
		// bx lr returns; bx to any register without an immediate has no
		// static successor.
		if n := len(ins.Operands); n > 0 && ins.Operands[n-1].Kind == model.KindReg {
			return true
		}
	}
	return false
}

// Edges computes the intra-function CFG edge list for fn. Every edge's Src
// is the address of the instruction that transfers control, not its block's
// start. A conditional branch contributes exactly two EdgeCondJump edges,
// taken then not-taken. An unconditional immediate jump contributes one
// EdgeDefault edge. Blocks that simply run into their successor get a
// fall-through EdgeDefault edge. Terminating instructions contribute nothing.
func Edges(fn *model.Function) []model.CFGEdge {
	var edges []model.CFGEdge
	for bi, b := range fn.Blocks {
		ins := b.Instructions()
		if len(ins) == 0 {
			continue
		}
		last := ins[len(ins)-1]
		next := b.Addr + b.Size

		switch {
		case last.IsJump() && decode.IsConditionalBranch(last.Mnemonic):
			if t, ok := last.Target(); ok {
				edges = append(edges, model.NewEdge(last.Addr, t&^1, model.EdgeCondJump))
				edges = append(edges, model.NewEdge(last.Addr, next, model.EdgeCondJump))
				continue
			}
			edges = append(edges, model.NewEdge(last.Addr, next, model.EdgeDefault))

		case last.IsJump():
			if t, ok := last.Target(); ok {
				edges = append(edges, model.NewEdge(last.Addr, t&^1, model.EdgeDefault))
			}
			// Register jumps have no static successor.

		case isTerminator(last):
			// No edge.

		default:
			if bi+1 < len(fn.Blocks) {
				edges = append(edges, model.NewEdge(last.Addr, next, model.EdgeDefault))
			}
		}
	}
	return model.DedupEdges(edges)
}
