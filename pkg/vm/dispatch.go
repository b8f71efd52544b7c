package vm

import (
	"fmt"
	"os"

	"github.com/xylia-lang/xylia/pkg/builtin"
	"github.com/xylia-lang/xylia/pkg/value"
)

// step decodes and executes a single instruction at the current frame's
// ip, the heart of the bytecode dispatch loop (spec.md §4.6). A non-nil
// return aborts runUntil immediately; most opcodes instead report
// failure by setting vm.signal and returning via vm.fail.
func (vm *VM) step() *RuntimeError {
	vm.heap.MaybeCollect(vm.markRoots)

	if vm.trace {
		vm.traceInstruction()
	}

	op := value.Op(vm.readByte())
	switch op {
	case value.OpConstant:
		vm.push(vm.readConstant(false))
	case value.OpConstantLong:
		vm.push(vm.readConstant(true))
	case value.OpTrue:
		vm.push(value.True)
	case value.OpFalse:
		vm.push(value.False)
	case value.OpNil:
		vm.push(value.Nil)
	case value.OpPop:
		vm.pop()

	case value.OpDefineGlobal, value.OpDefineGlobalLong:
		name := vm.readConstant(op == value.OpDefineGlobalLong).AsString()
		vm.frame().globals.Set(name, vm.pop())
	case value.OpGetGlobal, value.OpGetGlobalLong:
		name := vm.readConstant(op == value.OpGetGlobalLong).AsString()
		v, ok := vm.frame().globals.Get(name)
		if !ok {
			fn, isBuiltin := vm.builtins.Lookup(name.Chars)
			if !isBuiltin {
				return vm.fail(builtin.SigRuntimeError, "undefined variable '%s'", name.Chars)
			}
			v = value.FromObj(vm.heap.NewBuiltin(name.Chars, fn))
		}
		vm.push(v)
	case value.OpSetGlobal, value.OpSetGlobalLong:
		name := vm.readConstant(op == value.OpSetGlobalLong).AsString()
		if vm.frame().globals.Set(name, vm.peek(0)) {
			vm.frame().globals.Delete(name)
			return vm.fail(builtin.SigRuntimeError, "undefined variable '%s'", name.Chars)
		}

	case value.OpGetLocal:
		idx := int(vm.readByte())
		vm.push(vm.stack[vm.frame().baseSlot+idx])
	case value.OpGetLocalLong:
		idx := vm.read24()
		vm.push(vm.stack[vm.frame().baseSlot+idx])
	case value.OpSetLocal:
		idx := int(vm.readByte())
		vm.stack[vm.frame().baseSlot+idx] = vm.peek(0)
	case value.OpSetLocalLong:
		idx := vm.read24()
		vm.stack[vm.frame().baseSlot+idx] = vm.peek(0)

	case value.OpGetUpvalue:
		idx := int(vm.readByte())
		vm.push(vm.upvalueValue(vm.frame().closure.Upvalues[idx]))
	case value.OpGetUpvalueLong:
		idx := vm.read24()
		vm.push(vm.upvalueValue(vm.frame().closure.Upvalues[idx]))
	case value.OpSetUpvalue:
		idx := int(vm.readByte())
		vm.setUpvalueValue(vm.frame().closure.Upvalues[idx], vm.peek(0))
	case value.OpSetUpvalueLong:
		idx := vm.read24()
		vm.setUpvalueValue(vm.frame().closure.Upvalues[idx], vm.peek(0))
	case value.OpCloseUpvalue:
		vm.closeUpvalues(len(vm.stack) - 1)
		vm.pop()

	case value.OpGetProperty, value.OpGetPropertyLong:
		name := vm.readConstant(op == value.OpGetPropertyLong).AsString()
		obj := vm.pop()
		v, rerr := vm.getProperty(obj, name)
		if rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpSetProperty, value.OpSetPropertyLong:
		name := vm.readConstant(op == value.OpSetPropertyLong).AsString()
		v := vm.pop()
		obj := vm.pop()
		if rerr := vm.setProperty(obj, name, v); rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpGetSuper, value.OpGetSuperLong:
		name := vm.readConstant(op == value.OpGetSuperLong).AsString()
		if rerr := vm.getSuper(name); rerr != nil {
			return rerr
		}
	case value.OpGetIndex:
		idx := vm.pop()
		obj := vm.pop()
		v, rerr := vm.getIndex(obj, idx)
		if rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpSetIndex:
		v := vm.pop()
		idx := vm.pop()
		obj := vm.pop()
		if rerr := vm.setIndex(obj, idx, v); rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpGetSlice:
		to := vm.pop()
		from := vm.pop()
		obj := vm.pop()
		v, rerr := vm.getSlice(obj, from, to)
		if rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpSetSlice:
		v := vm.pop()
		to := vm.pop()
		from := vm.pop()
		obj := vm.pop()
		if rerr := vm.setSlice(obj, from, to, v); rerr != nil {
			return rerr
		}
		vm.push(v)

	case value.OpCall:
		argc := int(vm.readByte())
		argc = vm.expandSpread(argc)
		callee := vm.peek(argc)
		if rerr := vm.callValue(callee, argc); rerr != nil {
			return rerr
		}
	case value.OpInvoke, value.OpInvokeLong:
		name := vm.readConstant(op == value.OpInvokeLong).AsString()
		argc := int(vm.readByte())
		argc = vm.expandSpread(argc)
		if rerr := vm.invoke(name, argc); rerr != nil {
			return rerr
		}
	case value.OpSuperInvoke, value.OpSuperInvokeLong:
		name := vm.readConstant(op == value.OpSuperInvokeLong).AsString()
		argc := int(vm.readByte())
		superclass := vm.pop().AsClass()
		argc = vm.expandSpread(argc)
		if rerr := vm.invokeFromClass(superclass, name, argc); rerr != nil {
			return rerr
		}

	case value.OpVector:
		n := int(vm.readByte())
		start := len(vm.stack) - n
		vec := vm.heap.NewVector(n)
		if n > 0 {
			copy(vec.Values, vm.stack[start:])
			vec.Count = n
		}
		vm.stack = vm.stack[:start]
		vm.push(value.FromObj(vec))
	case value.OpList:
		n := int(vm.readByte())
		vm.finishList(n)
	case value.OpListLong:
		n := vm.read24()
		vm.finishList(n)
	case value.OpRange:
		to := vm.pop()
		from := vm.pop()
		vm.push(value.FromObj(vm.heap.NewRange(from, to)))
	case value.OpSpread:
		v := vm.peek(0)
		switch {
		case v.IsVector():
			v.AsVector().Spread = true
		case v.IsList():
			v.AsList().Spread = true
		default:
			return vm.fail(builtin.SigRuntimeError, "cannot spread a %s", value.TypeName(v))
		}

	case value.OpClass, value.OpClassLong:
		name := vm.readConstant(op == value.OpClassLong).AsString()
		vm.push(value.FromObj(vm.heap.NewClass(name)))
	case value.OpInherit:
		subVal := vm.pop()
		supVal := vm.peek(0)
		if !supVal.IsClass() {
			return vm.fail(builtin.SigRuntimeError, "superclass must be a class")
		}
		subVal.AsClass().Methods.AddAll(supVal.AsClass().Methods)
	case value.OpMethod, value.OpMethodLong:
		name := vm.readConstant(op == value.OpMethodLong).AsString()
		methodVal := vm.pop()
		class := vm.peek(0).AsClass()
		class.Methods.Set(name, methodVal)
	case value.OpClosure:
		vm.execClosure()

	case value.OpAdd, value.OpSub, value.OpMul, value.OpDiv, value.OpMod,
		value.OpBitAnd, value.OpBitOr, value.OpXor, value.OpShl, value.OpShr,
		value.OpEq, value.OpGt, value.OpGe, value.OpLt, value.OpLe:
		if rerr := vm.binaryOp(op); rerr != nil {
			return rerr
		}
	case value.OpNeg:
		v, rerr := vm.unaryNeg(vm.pop())
		if rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpLogNot:
		v, rerr := vm.unaryLogNot(vm.pop())
		if rerr != nil {
			return rerr
		}
		vm.push(v)
	case value.OpBitNot:
		v, rerr := vm.unaryBitNot(vm.pop())
		if rerr != nil {
			return rerr
		}
		vm.push(v)

	case value.OpJump:
		offset := vm.read16()
		vm.frame().ip += offset
	case value.OpJumpIfFalse:
		offset := vm.read16()
		if vm.peek(0).IsFalsey() {
			vm.frame().ip += offset
		}
	case value.OpLoop:
		offset := vm.read16()
		vm.frame().ip -= offset

	case value.OpReturn:
		result := vm.pop()
		fr := vm.frames[len(vm.frames)-1]
		vm.closeUpvalues(fr.baseSlot)
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.stack = vm.stack[:fr.baseSlot]
		vm.push(result)

	case value.OpAssert:
		cond := vm.pop()
		row, col, path := vm.readAssertLocation()
		if cond.IsFalsey() {
			return vm.fail(builtin.SigAssertFail, "assertion failed at %s:%d:%d", path, row, col)
		}
	case value.OpAssertMsg:
		msg := vm.pop()
		cond := vm.pop()
		row, col, path := vm.readAssertLocation()
		if cond.IsFalsey() {
			return vm.fail(builtin.SigAssertFail, "assertion failed at %s:%d:%d: %s", path, row, col, value.ToString(msg, false))
		}

	default:
		return vm.fail(builtin.SigRuntimeError, "unknown opcode %d", op)
	}
	return nil
}

// traceInstruction prints the stack and the about-to-execute instruction
// to stderr, reusing the same disassembler the `disassemble` subcommand
// uses (spec.md §6 -trace flag).
func (vm *VM) traceInstruction() {
	fmt.Fprint(os.Stderr, "          ")
	for _, v := range vm.stack {
		fmt.Fprintf(os.Stderr, "[ %s ]", value.ToString(v, true))
	}
	fmt.Fprintln(os.Stderr)
	line, _ := vm.frame().closure.Function.Chunk.DisassembleInstruction(vm.frame().ip)
	fmt.Fprintln(os.Stderr, line)
}

func (vm *VM) finishList(n int) {
	vals := append([]value.Value(nil), vm.stack[len(vm.stack)-n:]...)
	vm.stack = vm.stack[:len(vm.stack)-n]
	vm.push(value.FromObj(vm.heap.NewList(vals)))
}

// execClosure implements CLOSURE: allocate a Closure for the constant-
// pool Function at the given index, then read one (is_local, index) pair
// per upvalue slot — capturing a live local from the *currently executing*
// (enclosing) frame, or sharing one already captured by it (spec.md
// §4.6.4). The new closure is anchored while its upvalues are filled in,
// since capturing one can itself allocate.
func (vm *VM) execClosure() {
	idx := int(vm.readByte())
	fn := vm.frame().closure.Function.Chunk.Constants[idx].AsFunction()
	closure := vm.heap.NewClosure(fn)
	vm.heap.Anchor(closure)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte() == 1
		index := int(vm.readByte())
		if isLocal {
			closure.Upvalues[i] = vm.captureUpvalue(vm.frame().baseSlot + index)
		} else {
			closure.Upvalues[i] = vm.frame().closure.Upvalues[index]
		}
	}
	vm.heap.Release()
	vm.push(value.FromObj(closure))
}

func (vm *VM) readAssertLocation() (row, col int, path string) {
	row = vm.read16()
	col = vm.read16()
	pathIdx := vm.read24()
	pathVal := vm.frame().closure.Function.Chunk.Constants[pathIdx]
	return row, col, pathVal.AsString().Chars
}
