package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "disasm":
		err = cmdDisasm(os.Args[2:])
	case "cfg":
		err = cmdCFG(os.Args[2:])
	case "strings":
		err = cmdStrings(os.Args[2:])
	case "xrefs":
		err = cmdXrefs(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `dispatch — ARM/ARM64 control-flow discovery

Usage:
  dispatch disasm  --bin <path> [--func <name>]   Per-function disassembly
  dispatch cfg     --bin <path> [--out <dir>]     Call graph and per-function CFG DOT
  dispatch strings --bin <path>                  Indexed rodata strings
  dispatch xrefs   --bin <path> [--to <addr>]     Cross references
`)
}
