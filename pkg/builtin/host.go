// Package builtin implements xylia's built-in registry (spec.md §4, component
// 7: "Name -> native function table consulted as a global fallback") and a
// concrete default set of host collaborators (I/O, collection helpers,
// casts, utils, import, and the testing assert_* family) grounded on
// _examples/original_source/include/builtins.h.
//
// This package does not import pkg/vm: built-ins need to raise runtime
// errors, request a signal, and read the process argument list, all of
// which are VM state. Host captures exactly that narrow surface so
// pkg/vm can depend on pkg/builtin (to host the registry and call
// default entries) without a cycle back.
package builtin

import (
	"io"

	"github.com/xylia-lang/xylia/pkg/gc"
	"github.com/xylia-lang/xylia/pkg/value"
)

// Signal mirrors the VM's signal enum (spec.md §4.6.6) at the granularity
// a built-in needs to request.
type Signal uint8

const (
	SigNone Signal = iota
	SigStackOverflow
	SigStackUnderflow
	SigAssertFail
	SigRuntimeError
	SigTestAssertFail
	SigHalt
)

// Host is the VM surface a built-in function may touch.
type Host interface {
	// RuntimeError raises SIG_RUNTIME_ERROR with a formatted message and
	// the current call stack attached.
	RuntimeError(format string, args ...interface{}) value.Value
	// SetSignal requests that the VM terminate (HALT) or abort with the
	// given exit code, per spec.md §4.6.6; TEST_ASSERT_FAIL only records
	// the exit code and lets execution continue.
	SetSignal(sig Signal, code int)
	// Heap gives built-ins that allocate (append, slice, casts, import)
	// access to the shared allocator.
	Heap() *gc.Heap
	// Args returns the process argument list bound by set_args.
	Args() *value.List
	// Import resolves and (if needed) compiles+runs path, returning the
	// cached Module on success.
	Import(path string) (value.Value, error)
	// Stdout/Stdin back the print/println/printf/input built-ins.
	Stdout() io.Writer
	Stdin() io.Reader
	// HomeDir is $XYL_HOME, consulted by import to find the standard
	// library (spec.md §4.6.5, §6).
	HomeDir() string
}
