package main

import (
	"flag"
	"fmt"
	"os"
)

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	bin := fs.String("bin", "", "path to ELF binary")
	fname := fs.String("func", "", "only this function (symbol or demangled name)")
	demangled := fs.Bool("demangle", true, "demangle C++ symbol names")

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

	printed := 0
	for _, fn := range fns {
		name := fn.Name
		if *demangled {
			name = fn.Demangle()
		}
		if *fname != "" && *fname != fn.Name && *fname != fn.Demangle() {
			continue
		}
		if len(fn.Instructions) == 0 {
			continue
		}
		fmt.Printf("%s:  ; 0x%x, %d bytes, %d blocks\n", name, fn.Addr, fn.Size, len(fn.Blocks))
		fmt.Print(fn.Disassembly())
		fmt.Println()
		printed++
	}

	if *fname != "" && printed == 0 {
		return fmt.Errorf("function %q not found", *fname)
	}
	fmt.Fprintf(os.Stderr, "disassembled %d functions\n", printed)
	return nil
}
