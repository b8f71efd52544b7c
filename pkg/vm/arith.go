package vm

import (
	"math"

	"github.com/xylia-lang/xylia/pkg/builtin"
	"github.com/xylia-lang/xylia/pkg/value"
)

// binaryOp pops the two operands for op and pushes the result, per
// spec.md §4.6.7's rule order: both-Number stays Number (except `/`,
// always Float, and `%`, integer remainder), any Float operand promotes
// both to float64, `+` on two Strings concatenates, `==` is structural/
// identity via value.Equal, and anything else falls back to the
// receiver's `__op__` overload if it is an Instance.
func (vm *VM) binaryOp(op value.Op) *RuntimeError {
	b := vm.pop()
	a := vm.pop()
	result, rerr := vm.applyBinary(op, a, b)
	if rerr != nil {
		return rerr
	}
	vm.push(result)
	return nil
}

func (vm *VM) applyBinary(op value.Op, a, b value.Value) (value.Value, *RuntimeError) {
	if op == value.OpAdd && a.IsString() && b.IsString() {
		return value.FromObj(vm.heap.CopyString(a.AsString().Chars+b.AsString().Chars, false)), nil
	}

	if a.IsNumber() && b.IsNumber() {
		return vm.numericBinary(op, a.AsNumber(), b.AsNumber())
	}
	if isNumeric(a) && isNumeric(b) {
		return vm.floatBinary(op, a.AsFloat64(), b.AsFloat64())
	}

	if a.IsInstance() {
		if name := overloadMethodFor(vm.wk, op); name != nil {
			if _, ok := a.AsInstance().Class.Methods.Get(name); ok || op != value.OpEq {
				return vm.invokeOperandOverload(a, name, []value.Value{b})
			}
		}
	}

	if op == value.OpEq {
		return value.Bool(value.Equal(a, b)), nil
	}
	return value.Nil, vm.fail(builtin.SigRuntimeError, "unsupported operand types for '%s': %s and %s", op, value.TypeName(a), value.TypeName(b))
}

func isNumeric(v value.Value) bool { return v.IsNumber() || v.IsFloat() }

func (vm *VM) numericBinary(op value.Op, a, b int64) (value.Value, *RuntimeError) {
	switch op {
	case value.OpAdd:
		return value.Number(a + b), nil
	case value.OpSub:
		return value.Number(a - b), nil
	case value.OpMul:
		return value.Number(a * b), nil
	case value.OpDiv:
		if b == 0 {
			return value.Nil, vm.fail(builtin.SigRuntimeError, "division by zero")
		}
		return value.Float(float64(a) / float64(b)), nil
	case value.OpMod:
		if b == 0 {
			return value.Nil, vm.fail(builtin.SigRuntimeError, "modulo by zero")
		}
		return value.Number(a % b), nil
	case value.OpBitAnd:
		return value.Number(a & b), nil
	case value.OpBitOr:
		return value.Number(a | b), nil
	case value.OpXor:
		return value.Number(a ^ b), nil
	case value.OpShl:
		return value.Number(a << uint64(b)), nil
	case value.OpShr:
		return value.Number(a >> uint64(b)), nil
	case value.OpEq:
		return value.Bool(a == b), nil
	case value.OpGt:
		return value.Bool(a > b), nil
	case value.OpGe:
		return value.Bool(a >= b), nil
	case value.OpLt:
		return value.Bool(a < b), nil
	case value.OpLe:
		return value.Bool(a <= b), nil
	}
	return value.Nil, vm.fail(builtin.SigRuntimeError, "unsupported numeric operator '%s'", op)
}

func (vm *VM) floatBinary(op value.Op, a, b float64) (value.Value, *RuntimeError) {
	switch op {
	case value.OpAdd:
		return value.Float(a + b), nil
	case value.OpSub:
		return value.Float(a - b), nil
	case value.OpMul:
		return value.Float(a * b), nil
	case value.OpDiv:
		if b == 0 {
			return value.Nil, vm.fail(builtin.SigRuntimeError, "division by zero")
		}
		return value.Float(a / b), nil
	case value.OpMod:
		if b == 0 {
			return value.Nil, vm.fail(builtin.SigRuntimeError, "modulo by zero")
		}
		return value.Float(math.Mod(a, b)), nil
	case value.OpBitAnd, value.OpBitOr, value.OpXor, value.OpShl, value.OpShr:
		return value.Nil, vm.fail(builtin.SigRuntimeError, "bitwise operator '%s' requires integer operands", op)
	case value.OpEq:
		return value.Bool(a == b), nil
	case value.OpGt:
		return value.Bool(a > b), nil
	case value.OpGe:
		return value.Bool(a >= b), nil
	case value.OpLt:
		return value.Bool(a < b), nil
	case value.OpLe:
		return value.Bool(a <= b), nil
	}
	return value.Nil, vm.fail(builtin.SigRuntimeError, "unsupported float operator '%s'", op)
}

// overloadMethodFor maps a binary opcode to its well-known `__op__` name,
// or nil if the operator has no overloadable form (e.g. the SHL/SHR
// supplement, which has no corresponding original_source operator hook).
func overloadMethodFor(wk *value.WellKnown, op value.Op) *value.String {
	switch op {
	case value.OpAdd:
		return wk.Add
	case value.OpSub:
		return wk.Sub
	case value.OpMul:
		return wk.Mul
	case value.OpDiv:
		return wk.Div
	case value.OpMod:
		return wk.Mod
	case value.OpBitAnd:
		return wk.BitAnd
	case value.OpBitOr:
		return wk.BitOr
	case value.OpXor:
		return wk.Xor
	case value.OpEq:
		return wk.Eq
	case value.OpGt:
		return wk.Gt
	case value.OpGe:
		return wk.Ge
	case value.OpLt:
		return wk.Lt
	case value.OpLe:
		return wk.Le
	}
	return nil
}

// unaryNeg, unaryLogNot, unaryBitNot implement the NEG/LOG_NOT/BIT_NOT
// opcodes: numeric/boolean built-in behavior first, `__op__` overload for
// Instances, error otherwise.
func (vm *VM) unaryNeg(v value.Value) (value.Value, *RuntimeError) {
	switch {
	case v.IsNumber():
		return value.Number(-v.AsNumber()), nil
	case v.IsFloat():
		return value.Float(-v.AsFloat()), nil
	case v.IsInstance():
		return vm.invokeOperandOverload(v, vm.wk.Neg, nil)
	default:
		return value.Nil, vm.fail(builtin.SigRuntimeError, "cannot negate a %s", value.TypeName(v))
	}
}

func (vm *VM) unaryLogNot(v value.Value) (value.Value, *RuntimeError) {
	if v.IsInstance() {
		return vm.invokeOperandOverload(v, vm.wk.LogNot, nil)
	}
	return value.Bool(v.IsFalsey()), nil
}

func (vm *VM) unaryBitNot(v value.Value) (value.Value, *RuntimeError) {
	switch {
	case v.IsNumber():
		return value.Number(^v.AsNumber()), nil
	case v.IsInstance():
		return vm.invokeOperandOverload(v, vm.wk.BitNot, nil)
	default:
		return value.Nil, vm.fail(builtin.SigRuntimeError, "cannot apply '~' to a %s", value.TypeName(v))
	}
}

// indexInt resolves idx (with Python-style negative-index wraparound) to
// a bounds-checked offset into a sequence of the given length.
func (vm *VM) indexInt(idx value.Value, length int) (int, *RuntimeError) {
	if !idx.IsNumber() {
		return 0, vm.fail(builtin.SigRuntimeError, "index must be a number")
	}
	i := int(idx.AsNumber())
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, vm.fail(builtin.SigRuntimeError, "index out of range")
	}
	return i, nil
}

// sliceBound resolves a slice endpoint, defaulting when nil and clamping
// (rather than erroring) out-of-range values, matching Python-style slice
// semantics.
func (vm *VM) sliceBound(v value.Value, length, def int) (int, *RuntimeError) {
	if v.IsNil() {
		return def, nil
	}
	if !v.IsNumber() {
		return 0, vm.fail(builtin.SigRuntimeError, "slice bound must be a number")
	}
	i := int(v.AsNumber())
	if i < 0 {
		i += length
	}
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i, nil
}

// getIndex, setIndex, getSlice, setSlice implement GET_INDEX/SET_INDEX/
// GET_SLICE/SET_SLICE: built-in behavior for List/Vector/String, `__op__`
// overload fallback for Instances (spec.md §4.6.3, §4.6.7).
func (vm *VM) getIndex(obj, idx value.Value) (value.Value, *RuntimeError) {
	switch {
	case obj.IsInstance():
		return vm.invokeOperandOverload(obj, vm.wk.GetIndex, []value.Value{idx})
	case obj.IsList():
		i, rerr := vm.indexInt(idx, len(obj.AsList().Values))
		if rerr != nil {
			return value.Nil, rerr
		}
		return obj.AsList().Values[i], nil
	case obj.IsVector():
		vec := obj.AsVector()
		i, rerr := vm.indexInt(idx, vec.Count)
		if rerr != nil {
			return value.Nil, rerr
		}
		return vec.Values[i], nil
	case obj.IsString():
		s := obj.AsString().Chars
		i, rerr := vm.indexInt(idx, len(s))
		if rerr != nil {
			return value.Nil, rerr
		}
		return value.FromObj(vm.heap.CopyString(string(s[i]), false)), nil
	default:
		return value.Nil, vm.fail(builtin.SigRuntimeError, "'%s' is not indexable", value.TypeName(obj))
	}
}

func (vm *VM) setIndex(obj, idx, val value.Value) *RuntimeError {
	switch {
	case obj.IsInstance():
		_, rerr := vm.invokeOperandOverload(obj, vm.wk.SetIndex, []value.Value{idx, val})
		return rerr
	case obj.IsList():
		lst := obj.AsList()
		i, rerr := vm.indexInt(idx, len(lst.Values))
		if rerr != nil {
			return rerr
		}
		lst.Values[i] = val
		return nil
	case obj.IsVector():
		vec := obj.AsVector()
		i, rerr := vm.indexInt(idx, vec.Count)
		if rerr != nil {
			return rerr
		}
		vec.Values[i] = val
		return nil
	default:
		return vm.fail(builtin.SigRuntimeError, "'%s' does not support index assignment", value.TypeName(obj))
	}
}

func (vm *VM) getSlice(obj, fromV, toV value.Value) (value.Value, *RuntimeError) {
	switch {
	case obj.IsInstance():
		return vm.invokeOperandOverload(obj, vm.wk.GetSlice, []value.Value{fromV, toV})
	case obj.IsList():
		vals := obj.AsList().Values
		from, to, rerr := vm.sliceRange(fromV, toV, len(vals))
		if rerr != nil {
			return value.Nil, rerr
		}
		out := append([]value.Value(nil), vals[from:to]...)
		return value.FromObj(vm.heap.NewList(out)), nil
	case obj.IsVector():
		vec := obj.AsVector()
		from, to, rerr := vm.sliceRange(fromV, toV, vec.Count)
		if rerr != nil {
			return value.Nil, rerr
		}
		out := append([]value.Value(nil), vec.Values[from:to]...)
		return value.FromObj(vm.heap.NewList(out)), nil
	case obj.IsString():
		s := obj.AsString().Chars
		from, to, rerr := vm.sliceRange(fromV, toV, len(s))
		if rerr != nil {
			return value.Nil, rerr
		}
		return value.FromObj(vm.heap.CopyString(s[from:to], false)), nil
	default:
		return value.Nil, vm.fail(builtin.SigRuntimeError, "'%s' is not sliceable", value.TypeName(obj))
	}
}

func (vm *VM) sliceRange(fromV, toV value.Value, length int) (int, int, *RuntimeError) {
	from, rerr := vm.sliceBound(fromV, length, 0)
	if rerr != nil {
		return 0, 0, rerr
	}
	to, rerr := vm.sliceBound(toV, length, length)
	if rerr != nil {
		return 0, 0, rerr
	}
	if from > to {
		from = to
	}
	return from, to, nil
}

func (vm *VM) setSlice(obj, fromV, toV, val value.Value) *RuntimeError {
	switch {
	case obj.IsInstance():
		_, rerr := vm.invokeOperandOverload(obj, vm.wk.SetSlice, []value.Value{fromV, toV, val})
		return rerr
	case obj.IsList():
		lst := obj.AsList()
		from, to, rerr := vm.sliceRange(fromV, toV, len(lst.Values))
		if rerr != nil {
			return rerr
		}
		if !val.IsList() {
			return vm.fail(builtin.SigRuntimeError, "slice assignment expects a list")
		}
		repl := val.AsList().Values
		out := make([]value.Value, 0, from+len(repl)+(len(lst.Values)-to))
		out = append(out, lst.Values[:from]...)
		out = append(out, repl...)
		out = append(out, lst.Values[to:]...)
		lst.Values = out
		return nil
	case obj.IsVector():
		vec := obj.AsVector()
		from, to, rerr := vm.sliceRange(fromV, toV, vec.Count)
		if rerr != nil {
			return rerr
		}
		if !val.IsList() {
			return vm.fail(builtin.SigRuntimeError, "slice assignment expects a list")
		}
		repl := val.AsList().Values
		out := make([]value.Value, 0, from+len(repl)+(vec.Count-to))
		out = append(out, vec.Values[:from]...)
		out = append(out, repl...)
		out = append(out, vec.Values[to:vec.Count]...)
		vec.Values = out
		vec.Count = len(out)
		return nil
	default:
		return vm.fail(builtin.SigRuntimeError, "'%s' does not support slice assignment", value.TypeName(obj))
	}
}
