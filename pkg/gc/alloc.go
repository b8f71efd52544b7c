package gc

import (
	"os"

	"github.com/xylia-lang/xylia/pkg/value"
)

// CopyString implements copy_string: when intern is true (the default for
// source literals and identifiers) it first consults the intern table via
// FindString and returns the existing object if one matches; otherwise it
// allocates a fresh String and, if intern is true, registers it in the
// intern table. Non-interned strings (intern=false) own their buffer and
// are compared by bytes, used for strings built at runtime (concatenation
// results, slices).
func (h *Heap) CopyString(chars string, intern bool) *value.String {
	hash := value.HashString(chars)
	if intern {
		if existing := h.Strings.FindString(chars, hash); existing != nil {
			return existing
		}
	}
	s := &value.String{Chars: chars, Hash: hash, Interned: intern}
	h.register(s, approxSize(s))
	if intern {
		h.Strings.Set(s, value.Bool(true))
	}
	return s
}

// Intern is a convenience for compiler-produced strings (identifiers,
// operator-overload names), which spec.md §3 requires to always be
// interned.
func (h *Heap) Intern(chars string) *value.String {
	return h.CopyString(chars, true)
}

func (h *Heap) NewVector(capacity int) *value.Vector {
	v := &value.Vector{}
	if capacity > 0 {
		v.Values = make([]value.Value, capacity)
	}
	h.register(v, approxSize(v))
	return v
}

func (h *Heap) NewList(values []value.Value) *value.List {
	l := &value.List{Values: values}
	h.register(l, approxSize(l))
	return l
}

func (h *Heap) NewRange(from, to value.Value) *value.Range {
	r := &value.Range{From: from, To: to}
	h.register(r, approxSize(r))
	return r
}

func (h *Heap) NewFile(path string, handle *os.File, readable, writable, canClose bool) *value.File {
	f := &value.File{Path: path, Handle: handle, Open: true, Readable: readable, Writable: writable, CanClose: canClose}
	h.register(f, approxSize(f))
	return f
}

func (h *Heap) NewFunction(name *value.String, path *value.String, globals *value.Table) *value.Function {
	fn := &value.Function{Name: name, Path: path, Globals: globals}
	h.register(fn, approxSize(fn))
	return fn
}

// NewClosure allocates a Closure with an Upvalues slice pre-sized to
// fn.UpvalueCount (all slots nil). Callers anchor the result (Anchor /
// Release) while filling in upvalues one at a time, since capturing an
// upvalue may itself allocate; the allocation does not collect.
func (h *Heap) NewClosure(fn *value.Function) *value.Closure {
	c := &value.Closure{Function: fn, Upvalues: make([]*value.Upvalue, fn.UpvalueCount)}
	h.register(c, approxSize(c))
	return c
}

func (h *Heap) NewUpvalue(location int) *value.Upvalue {
	u := &value.Upvalue{Location: location}
	h.register(u, approxSize(u))
	return u
}

func (h *Heap) NewClass(name *value.String) *value.Class {
	c := &value.Class{Name: name, Methods: value.NewTable()}
	h.register(c, approxSize(c))
	return c
}

func (h *Heap) NewInstance(class *value.Class) *value.Instance {
	i := &value.Instance{Class: class, Fields: value.NewTable()}
	h.register(i, approxSize(i))
	return i
}

func (h *Heap) NewBoundMethod(receiver value.Value, method *value.Closure) *value.BoundMethod {
	b := &value.BoundMethod{Receiver: receiver, Method: method}
	h.register(b, approxSize(b))
	return b
}

func (h *Heap) NewBuiltin(name string, fn value.BuiltinFn) *value.Builtin {
	b := &value.Builtin{Name: name, Function: fn}
	h.register(b, approxSize(b))
	return b
}

func (h *Heap) NewModule(name *value.String, path string) *value.Module {
	m := &value.Module{Name: name, Path: path, Globals: value.NewTable()}
	h.register(m, approxSize(m))
	return m
}
