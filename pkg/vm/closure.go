package vm

import "github.com/xylia-lang/xylia/pkg/value"

// captureUpvalue finds or creates the open Upvalue for the given stack
// location, keeping vm.openUpvalues sorted by descending Location (spec.md
// §3 invariant 4) so a later capture at a shallower slot can still find
// and share an existing one.
func (vm *VM) captureUpvalue(location int) *value.Upvalue {
	var prev *value.Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Location > location {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Location == location {
		return cur
	}

	created := vm.heap.NewUpvalue(location)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues moves every open upvalue at or above last into its own
// closed slot, detaching it from the open list. Called on scope exit and
// on return (spec.md §4.6.4).
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= last {
		uv := vm.openUpvalues
		uv.Closed = vm.stack[uv.Location]
		uv.IsClosed = true
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}

func (vm *VM) upvalueValue(uv *value.Upvalue) value.Value {
	if uv.IsClosed {
		return uv.Closed
	}
	return vm.stack[uv.Location]
}

func (vm *VM) setUpvalueValue(uv *value.Upvalue, v value.Value) {
	if uv.IsClosed {
		uv.Closed = v
	} else {
		vm.stack[uv.Location] = v
	}
}
