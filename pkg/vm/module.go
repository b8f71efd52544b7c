package vm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xylia-lang/xylia/pkg/compiler"
	"github.com/xylia-lang/xylia/pkg/value"
)

// sourceExt is the file extension import() appends when a path is given
// without one, matching spec.md §4.6.5's "prepend $XYL_HOME/lib/ plus
// the source extension when missing" rule.
const sourceExt = ".xyl"

// importModule implements the `import` built-in's resolve/compile/run/
// cache protocol (spec.md §4.6.5). The module-frame push is purely
// internal bookkeeping: runUntil drives the init closure to completion on
// the real VM stack (so its own globals/locals/closures behave exactly
// like any other call), but the Module value this function returns comes
// from the local `mod` variable, not from reading the stack back.
func (vm *VM) importModule(path string) (value.Value, error) {
	if mod, ok := vm.modules.Get(path); ok {
		return value.FromObj(mod), nil
	}

	physical := vm.resolveModulePath(path)
	src, err := os.ReadFile(physical)
	if err != nil {
		return value.Nil, fmt.Errorf("cannot open module '%s': %w", path, err)
	}

	modName := vm.heap.Intern(filepath.Base(path))
	mod := vm.heap.NewModule(modName, physical)
	vm.heap.Anchor(mod)
	defer vm.heap.Release()

	res := compiler.Compile(vm.heap, string(src), physical, mod.Globals)
	if len(res.Errors) > 0 {
		return value.Nil, fmt.Errorf("module '%s' failed to compile:\n%s", path, strings.Join(res.Errors, "\n"))
	}

	init := vm.heap.NewClosure(res.Function)
	mod.Init = init
	vm.modules.Put(path, mod)

	depth := len(vm.frames)
	vm.push(value.FromObj(init))
	vm.frames = append(vm.frames, CallFrame{
		closure:  init,
		baseSlot: len(vm.stack) - 1,
		globals:  mod.Globals,
		isModule: true,
	})
	if rerr := vm.runUntil(depth); rerr != nil {
		return value.Nil, rerr
	}
	vm.pop() // discard the init body's own (always nil) return value

	mod.Done = true
	return value.FromObj(mod), nil
}

// resolveModulePath implements spec.md §4.6.5's physical-path resolution:
// a path that already names a source file (ends in the source extension,
// absolute or not) is used directly; a bare library name instead gains the
// standard source extension and is rooted at $XYL_HOME/lib.
func (vm *VM) resolveModulePath(path string) string {
	if strings.HasSuffix(path, sourceExt) {
		return path
	}
	if filepath.IsAbs(path) {
		return path + sourceExt
	}
	return filepath.Join(vm.homeDir, "lib", path+sourceExt)
}
