package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/osirislab/dispatch/internal/elfx"
)

func cmdStrings(args []string) error {
	fs := flag.NewFlagSet("strings", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	maxLen := fs.Int("max-len", 200, "max display length per string (0 = unlimited)")

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

	strs := ef.Strings()
	for _, s := range strs {
		v := s.Value
		if *maxLen > 0 && len(v) > *maxLen {
			v = v[:*maxLen] + "..."
		}
		fmt.Printf("0x%x\t%q\n", s.Vaddr, v)
	}
	fmt.Fprintf(os.Stderr, "%d strings\n", len(strs))
	return nil
}
