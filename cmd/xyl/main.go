// Command xyl is the CLI launcher for the xylia language: it runs
// source files, disassembles compiled chunks, and hosts an interactive
// REPL, grounded on the teacher's cmd/smog/main.go.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/xylia-lang/xylia/pkg/compiler"
	"github.com/xylia-lang/xylia/pkg/gc"
	"github.com/xylia-lang/xylia/pkg/value"
	"github.com/xylia-lang/xylia/pkg/vm"
)

const version = "0.1.0"

func main() {
	flags := flag.NewFlagSet("xyl", flag.ExitOnError)
	home := flags.String("home", homeFromEnv(), "xylia standard library root ($XYL_HOME)")
	trace := flags.Bool("trace", false, "trace every instruction to stderr before it executes")
	historyPath := flags.String("repl-history", defaultHistoryPath(), "REPL history file")

	if len(os.Args) < 2 {
		runREPL(*home, *historyPath)
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("xyl version %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	switch os.Args[1] {
	case "repl":
		flags.Parse(os.Args[2:])
		runREPL(*home, *historyPath)
	case "run":
		flags.Parse(os.Args[2:])
		if flags.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(1)
		}
		runFile(flags.Arg(0), *home, *trace, flags.Args()[1:])
	case "disassemble", "disasm":
		flags.Parse(os.Args[2:])
		if flags.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			os.Exit(1)
		}
		disassembleFile(flags.Arg(0))
	default:
		flags.Parse(os.Args[1:])
		if flags.NArg() < 1 {
			printUsage()
			os.Exit(1)
		}
		runFile(flags.Arg(0), *home, *trace, flags.Args()[1:])
	}
}

func printUsage() {
	fmt.Println("xyl - the xylia language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  xyl                          Start the interactive REPL")
	fmt.Println("  xyl [flags] <file> [args...] Run a .xyl source file")
	fmt.Println("  xyl run [flags] <file>       Run a .xyl source file")
	fmt.Println("  xyl disassemble <file>       Compile and print bytecode")
	fmt.Println("  xyl repl [flags]             Start the interactive REPL")
	fmt.Println("  xyl version                  Show version")
	fmt.Println("  xyl help                     Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -home <path>           override $XYL_HOME")
	fmt.Println("  -trace                 trace opcode execution to stderr")
	fmt.Println("  -repl-history <path>   relocate the REPL history file")
}

func homeFromEnv() string {
	if h := os.Getenv("XYL_HOME"); h != "" {
		return h
	}
	return "."
}

func defaultHistoryPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h + "/.xyl_history"
	}
	return ".xyl_history"
}

// runFile reads, compiles, and executes a .xyl source file, exiting with
// its resulting status code (spec.md §6).
func runFile(filename, home string, trace bool, args []string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	v := vm.New(home, os.Stdout, os.Stdin)
	v.SetTrace(trace)
	v.SetArgs(args)

	res := v.Interpret(string(data), filename)
	switch res.Status {
	case vm.StatusCompileError:
		for _, e := range res.CompileErrors {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(1)
	case vm.StatusRuntimeError:
		fmt.Fprintln(os.Stderr, "Runtime error:", res.RuntimeErr.Error())
		os.Exit(res.ExitCode)
	default:
		os.Exit(res.ExitCode)
	}
}

// disassembleFile compiles a source file and prints its chunk's
// disassembly without running it, mirroring the teacher's debug-only
// `disassemble` subcommand (now source-driven rather than bytecode-file
// driven, since this VM never serializes chunks to disk).
func disassembleFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	heap := gc.NewHeap()
	globals := value.NewTable()
	res := compiler.Compile(heap, string(data), filename, globals)
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(1)
	}
	fmt.Print(res.Function.Chunk.Disassemble(filename))
}

// runREPL starts an interactive line-editing session (spec.md §1
// "interactive line editor" out-of-core surface), evaluating each
// complete input against a persistent VM so top-level globals and
// classes carry over between lines.
func runREPL(home, historyPath string) {
	fmt.Printf("xyl %s -- interactive mode\n", version)
	fmt.Println("Type :quit or :exit to leave, :help for help.")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	v := vm.New(home, os.Stdout, os.Stdin)

	for {
		input, err := line.Prompt("xyl> ")
		if err != nil {
			break
		}
		trimmed := strings.TrimSpace(input)
		switch trimmed {
		case "":
			continue
		case ":quit", ":exit":
			writeHistory(line, historyPath)
			return
		case ":help":
			printREPLHelp()
			continue
		}

		line.AppendHistory(input)
		res := v.Interpret(input, "<repl>")
		switch res.Status {
		case vm.StatusCompileError:
			for _, e := range res.CompileErrors {
				fmt.Fprintln(os.Stderr, e)
			}
		case vm.StatusRuntimeError:
			fmt.Fprintln(os.Stderr, "Runtime error:", res.RuntimeErr.Error())
		}
	}
	writeHistory(line, historyPath)
}

func writeHistory(line *liner.State, path string) {
	if f, err := os.Create(path); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}

func printREPLHelp() {
	fmt.Println("xyl REPL help")
	fmt.Println()
	fmt.Println("  :help     show this message")
	fmt.Println("  :quit     leave the REPL")
	fmt.Println("  :exit     leave the REPL")
	fmt.Println()
	fmt.Println("Each line is compiled and run against a persistent VM;")
	fmt.Println("top-level variables, functions, and classes carry over")
	fmt.Println("between lines.")
}
