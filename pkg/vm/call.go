package vm

import (
	"github.com/xylia-lang/xylia/pkg/builtin"
	"github.com/xylia-lang/xylia/pkg/value"
)

// maxFrames bounds call-frame depth, matching clox's FRAMES_MAX (spec.md
// §4.6.6's STACK_OVERFLOW signal).
const maxFrames = 256

// expandSpread pops the top argc stack values and re-pushes them,
// expanding any Vector/List flagged .Spread in place (the `..x` prefix
// form) and clearing the flag immediately after — one-shot per call site
// (spec.md §9, resolved Open Question). Returns the new argument count.
func (vm *VM) expandSpread(argc int) int {
	start := len(vm.stack) - argc
	args := append([]value.Value(nil), vm.stack[start:]...)
	vm.stack = vm.stack[:start]
	for _, a := range args {
		switch {
		case a.IsVector() && a.AsVector().Spread:
			vec := a.AsVector()
			for i := 0; i < vec.Count; i++ {
				vm.push(vec.Values[i])
			}
			vec.Spread = false
		case a.IsList() && a.AsList().Spread:
			lst := a.AsList()
			for _, v := range lst.Values {
				vm.push(v)
			}
			lst.Spread = false
		default:
			vm.push(a)
		}
	}
	return len(vm.stack) - start
}

// callValue dispatches the CALL protocol by callee kind (spec.md §4.6.2):
// a BoundMethod rebinds slot 0 to its receiver, a Class allocates a fresh
// Instance and runs `init` if present, a Closure honors varargs, and a
// Builtin runs to completion immediately, replacing callee+args with its
// return value.
func (vm *VM) callValue(callee value.Value, argc int) *RuntimeError {
	switch {
	case callee.IsClosure():
		return vm.call(callee.AsClosure(), argc)

	case callee.IsBoundMethod():
		bm := callee.AsBoundMethod()
		vm.stack[len(vm.stack)-argc-1] = bm.Receiver
		return vm.call(bm.Method, argc)

	case callee.IsClass():
		class := callee.AsClass()
		inst := vm.heap.NewInstance(class)
		base := len(vm.stack) - argc - 1
		vm.stack[base] = value.FromObj(inst)
		if initMethod, ok := class.Methods.Get(vm.wk.Init); ok {
			return vm.call(initMethod.AsClosure(), argc)
		}
		if argc != 0 {
			return vm.fail(builtin.SigRuntimeError, "class '%s' has no init but got %d arguments", class.Name.Chars, argc)
		}
		return nil

	case callee.IsBuiltin():
		b := callee.AsBuiltin()
		start := len(vm.stack) - argc
		args := append([]value.Value(nil), vm.stack[start:]...)
		result := b.Function(vm, argc, args)
		vm.stack = vm.stack[:start-1]
		vm.push(result)
		if vm.signal == builtin.SigRuntimeError {
			return vm.pendingErr
		}
		return nil

	default:
		return vm.fail(builtin.SigRuntimeError, "'%s' is not callable", value.TypeName(callee))
	}
}

// call pushes a new CallFrame for closure, collecting trailing varargs
// into a List when the function declares a `name[]` parameter, or
// erroring on an arity mismatch otherwise (spec.md §4.6.2).
func (vm *VM) call(closure *value.Closure, argc int) *RuntimeError {
	fn := closure.Function
	if fn.HasVarargs {
		minArgs := fn.Arity - 1
		if argc < minArgs {
			return vm.fail(builtin.SigRuntimeError, "expected at least %d arguments but got %d", minArgs, argc)
		}
		extra := argc - minArgs
		extraVals := append([]value.Value(nil), vm.stack[len(vm.stack)-extra:]...)
		vm.stack = vm.stack[:len(vm.stack)-extra]
		vm.push(value.FromObj(vm.heap.NewList(extraVals)))
		argc = fn.Arity
	} else if argc != fn.Arity {
		return vm.fail(builtin.SigRuntimeError, "expected %d arguments but got %d", fn.Arity, argc)
	}

	if len(vm.frames) >= maxFrames {
		return vm.fail(builtin.SigStackOverflow, "stack overflow")
	}

	base := len(vm.stack) - argc - 1
	vm.frames = append(vm.frames, CallFrame{closure: closure, baseSlot: base, globals: fn.Globals})
	return nil
}

// callSync drives callee(args...) to completion on the real VM stack and
// returns its result, for dispatch paths (operator overloads, indexing)
// that need a value back synchronously rather than yielding to the
// caller's own bytecode loop.
func (vm *VM) callSync(callee value.Value, args []value.Value) (value.Value, *RuntimeError) {
	depth := len(vm.frames)
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if rerr := vm.callValue(callee, len(args)); rerr != nil {
		return value.Nil, rerr
	}
	if rerr := vm.runUntil(depth); rerr != nil {
		return value.Nil, rerr
	}
	return vm.pop(), nil
}

// invoke implements INVOKE: a method call through `.` syntax, checking
// instance fields before the class method table, with a Module variant
// that looks up in its globals (spec.md §4.6.3).
func (vm *VM) invoke(name *value.String, argc int) *RuntimeError {
	receiver := vm.peek(argc)
	switch {
	case receiver.IsInstance():
		inst := receiver.AsInstance()
		if v, ok := inst.Fields.Get(name); ok {
			vm.stack[len(vm.stack)-argc-1] = v
			return vm.callValue(v, argc)
		}
		return vm.invokeFromClass(inst.Class, name, argc)

	case receiver.IsModule():
		mod := receiver.AsModule()
		v, ok := mod.Globals.Get(name)
		if !ok {
			return vm.fail(builtin.SigRuntimeError, "module '%s' has no member '%s'", mod.Name.Chars, name.Chars)
		}
		vm.stack[len(vm.stack)-argc-1] = v
		return vm.callValue(v, argc)

	default:
		return vm.fail(builtin.SigRuntimeError, "cannot invoke a method on %s", value.TypeName(receiver))
	}
}

func (vm *VM) invokeFromClass(class *value.Class, name *value.String, argc int) *RuntimeError {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.fail(builtin.SigRuntimeError, "undefined method '%s' on class '%s'", name.Chars, class.Name.Chars)
	}
	return vm.call(method.AsClosure(), argc)
}

// invokeOperandOverload dispatches a `__op__` overload method on an
// Instance (spec.md §4.6.3, §4.6.7); non-Instance receivers never reach
// this path, since arith.go only falls back here after its numeric/
// string built-in rules miss.
func (vm *VM) invokeOperandOverload(obj value.Value, name *value.String, args []value.Value) (value.Value, *RuntimeError) {
	if !obj.IsInstance() {
		return value.Nil, vm.fail(builtin.SigRuntimeError, "'%s' does not support operator '%s'", value.TypeName(obj), name.Chars)
	}
	inst := obj.AsInstance()
	method, ok := inst.Class.Methods.Get(name)
	if !ok {
		return value.Nil, vm.fail(builtin.SigRuntimeError, "'%s' does not implement '%s'", inst.Class.Name.Chars, name.Chars)
	}
	bm := vm.heap.NewBoundMethod(obj, method.AsClosure())
	return vm.callSync(value.FromObj(bm), args)
}
