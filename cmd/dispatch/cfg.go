package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/osirislab/dispatch/internal/callgraph"
)

func cmdCFG(args []string) error {
	fs := flag.NewFlagSet("cfg", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	outDir := fs.String("out", "out", "output directory for DOT files")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bin == "" {
		return fmt.Errorf("--bin is required")
	}

	_, fns, err := loadAndAnalyze(*bin)
	if err != nil {
		return err
	}

	cfgDir := filepath.Join(*outDir, "cfg")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("mkdir cfg: %w", err)
	}

	cfgCount := 0
	for _, fn := range fns {
		lcfg, nblocks := callgraph.BuildFuncCFG(fn)
		if nblocks < 2 {
			continue
		}
		g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
		dot := render.DOTCFG(g, fn.Demangle())
		dotPath := filepath.Join(cfgDir, fmt.Sprintf("%x_%s.dot", fn.Addr, fn.Name))
		if err := os.WriteFile(dotPath, []byte(dot), 0644); err != nil {
			return fmt.Errorf("write cfg dot %s: %w", fn.Name, err)
		}
		cfgCount++
	}

	cg := callgraph.BuildCallGraph(fns)
	cgDOT := render.DOT(cg, "callgraph")
	cgPath := filepath.Join(*outDir, "callgraph.dot")
	if err := os.WriteFile(cgPath, []byte(cgDOT), 0644); err != nil {
		return fmt.Errorf("write callgraph.dot: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s (%d nodes, %d edges)\n", cgPath, len(cg.Nodes), len(cg.Edges))
	fmt.Fprintf(os.Stderr, "wrote %d per-function CFG DOTs to %s\n", cfgCount, cfgDir)
	return nil
}
