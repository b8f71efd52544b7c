// Package vm implements xylia's stack-based virtual machine: the call
// frame stack, dispatch loop, operator dispatch, closures, classes, and
// module import protocol (spec.md §4.6), generalized from the teacher's
// pkg/vm (message-dispatch interpreter with a RuntimeError/StackFrame
// error type and an opcode-tracing debugger) to xylia's closure/class
// semantics.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one entry of a RuntimeError's call-stack snapshot,
// innermost first, grounded on the teacher's pkg/vm/errors.go StackFrame.
type StackFrame struct {
	FuncName string
	Row, Col int
}

// RuntimeError carries a message plus the frame-by-frame stack at the
// point it was raised (spec.md §7: "every runtime error dumps the call
// stack, innermost first").
type RuntimeError struct {
	Message string
	Frames  []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Frames {
		name := f.FuncName
		if name == "" {
			name = "in script"
		}
		fmt.Fprintf(&b, "\n  at %s (%d:%d)", name, f.Row, f.Col)
	}
	return b.String()
}

// Status classifies how an Interpret call concluded (spec.md §6
// "interpret(source, file) -> {Ok | CompileError | RuntimeError}").
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

// Result is returned by Interpret.
type Result struct {
	Status        Status
	ExitCode      int
	CompileErrors []string
	RuntimeErr    *RuntimeError
}
