package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"flowlang/internal/bytecode"
	"flowlang/internal/compiler"
	"flowlang/internal/interp"
	"flowlang/internal/parser"
	"flowlang/internal/repl"
	"flowlang/internal/stdlib"
	"flowlang/internal/vm"
)

const version = "1.0.0"

func main() {
	log.SetFlags(0)
	args := os.Args[1:]
	if len(args) == 0 {
		startRepl()
		return
	}

	switch args[0] {
	case "--help", "-h", "help":
		usage()
	case "--version", "-v", "version":
		fmt.Printf("flowlang %s\n", version)
	case "--repl", "repl":
		startRepl()
	case "run":
		if len(args) < 2 {
			log.Fatal("usage: flowlang run [--vm] <file.flow>")
		}
		useVM := false
		file := args[1]
		if file == "--vm" {
			if len(args) < 3 {
				log.Fatal("usage: flowlang run --vm <file.flow>")
			}
			useVM = true
			file = args[2]
		}
		if err := runFile(file, useVM); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "build":
		if len(args) < 2 {
			log.Fatal("usage: flowlang build <file.flow> [-o out.fbc]")
		}
		out := ""
		if len(args) >= 4 && args[2] == "-o" {
			out = args[3]
		} else if len(args) >= 3 {
			out = args[2]
		}
		if err := buildFile(args[1], out); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "exec":
		if len(args) < 2 {
			log.Fatal("usage: flowlang exec <file.fbc>")
		}
		if err := execFile(args[1]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "disasm":
		if len(args) < 2 {
			log.Fatal("usage: flowlang disasm <file.flow|file.fbc>")
		}
		if err := disasm(args[1]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		// a bare filename runs it
		if strings.HasSuffix(args[0], ".flow") {
			if err := runFile(args[0], false); err != nil {
				log.Fatalf("Error: %v", err)
			}
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`FlowLang - a scripting language with arbitrary-precision integers

Usage:
  flowlang                      start the REPL
  flowlang run <file.flow>      run a script (tree-walking interpreter)
  flowlang run --vm <file.flow> run a script on the bytecode VM
  flowlang build <file.flow> [-o out.fbc]
                                compile a script to bytecode
  flowlang exec <file.fbc>      execute compiled bytecode
  flowlang disasm <file>        disassemble a script or bytecode file
  flowlang repl                 start the REPL
  flowlang version              print the version`)
}

func startRepl() {
	if err := repl.New(os.Stdin, os.Stdout, stdlib.New()).Run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runFile(path string, useVM bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	builtins := stdlib.New()
	if useVM {
		chunk, err := compiler.Compile(prog, builtins)
		if err != nil {
			return err
		}
		return vm.New(builtins).Run(chunk)
	}
	i := interp.New(builtins)
	i.BaseDir = filepath.Dir(path)
	return i.Run(prog)
}

func buildFile(path, out string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	chunk, err := compiler.Compile(prog, stdlib.New())
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(path, ".flow") + ".fbc"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := chunk.Write(f); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func execFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	chunk, err := bytecode.Read(f)
	if err != nil {
		return err
	}
	return vm.New(stdlib.New()).Run(chunk)
}

func disasm(path string) error {
	var chunk *bytecode.Chunk
	if strings.HasSuffix(path, ".fbc") {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		chunk, err = bytecode.Read(f)
		if err != nil {
			return err
		}
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		prog, err := parser.Parse(string(src))
		if err != nil {
			return err
		}
		chunk, err = compiler.Compile(prog, stdlib.New())
		if err != nil {
			return err
		}
	}
	fmt.Print(chunk.Disassemble(filepath.Base(path)))
	return nil
}
