package vm

import (
	"io"

	"github.com/xylia-lang/xylia/pkg/builtin"
	"github.com/xylia-lang/xylia/pkg/gc"
	"github.com/xylia-lang/xylia/pkg/value"
)

// The VM implements builtin.Host: the narrow surface a built-in function
// may touch, without pkg/builtin ever importing pkg/vm back.

func (vm *VM) RuntimeError(format string, args ...interface{}) value.Value {
	vm.fail(builtin.SigRuntimeError, format, args...)
	return value.Nil
}

func (vm *VM) SetSignal(sig builtin.Signal, code int) {
	vm.signal = sig
	vm.exitCode = code
}

func (vm *VM) Heap() *gc.Heap { return vm.heap }

func (vm *VM) Args() *value.List { return vm.args }

func (vm *VM) Import(path string) (value.Value, error) { return vm.importModule(path) }

func (vm *VM) Stdout() io.Writer { return vm.stdout }
func (vm *VM) Stdin() io.Reader  { return vm.stdin }

func (vm *VM) HomeDir() string { return vm.homeDir }
