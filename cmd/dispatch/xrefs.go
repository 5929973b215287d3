package main

import (
	"flag"
	"fmt"
	"sort"
	"strconv"

	"github.com/osirislab/dispatch/internal/analysis"
	"github.com/osirislab/dispatch/internal/elfx"
	"github.com/osirislab/dispatch/internal/logging"
)

func cmdXrefs(args []string) error {
	fs := flag.NewFlagSet("xrefs", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	to := fs.String("to", "", "only references to this address (hex)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bin == "" {
		return fmt.Errorf("--bin is required")
	}

	ef, err := elfx.Open(*bin)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	prof := analysis.ProfileFor(ef.Arch())
	eng := analysis.New(ef, prof, analysis.WithLogger(logging.New()))
	res, err := eng.Run()
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	xrefs := analysis.BuildXrefs(ef, res)

	if *to != "" {
		addr, err := strconv.ParseUint(*to, 0, 64)
		if err != nil {
			return fmt.Errorf("bad --to address %q: %w", *to, err)
		}
		for _, from := range xrefs[addr] {
			fmt.Printf("0x%x -> 0x%x\n", from, addr)
		}
		return nil
	}

	targets := make([]uint64, 0, len(xrefs))
	for a := range xrefs {
		targets = append(targets, a)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	for _, a := range targets {
		for _, from := range xrefs[a] {
			fmt.Printf("0x%x -> 0x%x\n", from, a)
		}
	}
	return nil
}
