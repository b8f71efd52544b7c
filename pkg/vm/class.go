package vm

import (
	"github.com/xylia-lang/xylia/pkg/builtin"
	"github.com/xylia-lang/xylia/pkg/value"
)

// getProperty implements GET_PROPERTY: an Instance checks its own fields
// before its class's method table (binding a BoundMethod on a hit there);
// a Module looks up its globals directly (spec.md §4.6.3, §4.6.5).
func (vm *VM) getProperty(obj value.Value, name *value.String) (value.Value, *RuntimeError) {
	switch {
	case obj.IsInstance():
		inst := obj.AsInstance()
		if v, ok := inst.Fields.Get(name); ok {
			return v, nil
		}
		if method, ok := inst.Class.Methods.Get(name); ok {
			return value.FromObj(vm.heap.NewBoundMethod(obj, method.AsClosure())), nil
		}
		return value.Nil, vm.fail(builtin.SigRuntimeError, "undefined property '%s' on instance of '%s'", name.Chars, inst.Class.Name.Chars)

	case obj.IsModule():
		mod := obj.AsModule()
		if v, ok := mod.Globals.Get(name); ok {
			return v, nil
		}
		return value.Nil, vm.fail(builtin.SigRuntimeError, "module '%s' has no member '%s'", mod.Name.Chars, name.Chars)

	default:
		return value.Nil, vm.fail(builtin.SigRuntimeError, "'%s' has no properties", value.TypeName(obj))
	}
}

// setProperty implements SET_PROPERTY: only Instance fields and Module
// globals are assignable; classes and their methods are not mutated this
// way (METHOD/CLASS/INHERIT handle that at compile-time-directed points).
func (vm *VM) setProperty(obj value.Value, name *value.String, val value.Value) *RuntimeError {
	switch {
	case obj.IsInstance():
		obj.AsInstance().Fields.Set(name, val)
		return nil
	case obj.IsModule():
		obj.AsModule().Globals.Set(name, val)
		return nil
	default:
		return vm.fail(builtin.SigRuntimeError, "cannot set a property on '%s'", value.TypeName(obj))
	}
}

// getSuper implements GET_SUPER: resolves name on the superclass's
// method table and binds it to the already-pushed `self` receiver.
func (vm *VM) getSuper(name *value.String) *RuntimeError {
	superclass := vm.pop().AsClass()
	self := vm.pop()
	method, ok := superclass.Methods.Get(name)
	if !ok {
		return vm.fail(builtin.SigRuntimeError, "undefined property '%s' on superclass '%s'", name.Chars, superclass.Name.Chars)
	}
	vm.push(value.FromObj(vm.heap.NewBoundMethod(self, method.AsClosure())))
	return nil
}
