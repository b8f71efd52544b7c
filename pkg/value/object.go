package value

import "os"

// ObjType discriminates the heap object variants.
type ObjType uint8

const (
	ObjString ObjType = iota
	ObjVector
	ObjList
	ObjRange
	ObjFile
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
	ObjBuiltin
	ObjModule
)

func (t ObjType) String() string {
	switch t {
	case ObjString:
		return "string"
	case ObjVector:
		return "vector"
	case ObjList:
		return "list"
	case ObjRange:
		return "range"
	case ObjFile:
		return "file"
	case ObjFunction:
		return "function"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjBoundMethod:
		return "bound_method"
	case ObjBuiltin:
		return "builtin"
	case ObjModule:
		return "module"
	}
	return "unknown"
}

// Obj is implemented by every heap object variant. Every live object is
// reachable from the allocator's object list via Header.Next (invariant 1
// in spec.md §3); Header.Marked is the GC's mark bit.
type Obj interface {
	Type() ObjType
	Header() *Header
}

// Header is embedded first in every heap object. It carries the GC mark
// bit and the intrusive next-pointer threading all live objects into a
// single allocator-owned list.
type Header struct {
	Marked bool
	Next   Obj
}

func (h *Header) Header() *Header { return h }

// String is xylia's immutable byte-string object. Interned strings are
// compared by identity; non-interned ones by bytes (spec.md §3 invariant
// 2). Empty and compiler-produced strings are always interned.
type String struct {
	Header
	Chars    string
	Hash     uint32
	Interned bool
}

func (s *String) Type() ObjType { return ObjString }

// Vector is a growable ordered sequence. The Spread flag marks it for
// in-place argument expansion at the next call boundary (spec.md §9,
// resolved: one-shot, cleared by the VM after expansion).
type Vector struct {
	Header
	Values []Value
	Count  int
	Spread bool
}

func (v *Vector) Type() ObjType { return ObjVector }

func (v *Vector) Push(val Value) {
	if v.Count == len(v.Values) {
		newCap := 8
		if len(v.Values) > 0 {
			newCap = len(v.Values) * 2
		}
		grown := make([]Value, newCap)
		copy(grown, v.Values[:v.Count])
		v.Values = grown
	}
	v.Values[v.Count] = val
	v.Count++
}

// List is a fixed-length ordered sequence produced by list literals,
// slicing, and varargs collection.
type List struct {
	Header
	Values []Value
	Spread bool
}

func (l *List) Type() ObjType { return ObjList }

// Range is the pair produced by the `a:b` syntax.
type Range struct {
	Header
	From Value
	To   Value
}

func (r *Range) Type() ObjType { return ObjRange }

// File wraps an OS file handle. CanClose is false for the process's own
// stdio handles so sweep never closes them out from under the host.
type File struct {
	Header
	Path     string
	Handle   *os.File
	Open     bool
	Readable bool
	Writable bool
	CanClose bool
}

func (f *File) Type() ObjType { return ObjFile }

// Function is a compiled, callable unit: a top-level script, a module's
// init body, a plain function, or a method body before it is wrapped in a
// Closure. Globals points at the table of the module this function was
// compiled in, not the caller's — so a closure imported into another
// module still resolves free variables in its home module (spec.md §9).
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *String
	Path         *String
	Globals      *Table
	HasVarargs   bool
}

func (f *Function) Type() ObjType { return ObjFunction }

// UpvalueRef describes one upvalue slot inside a Closure's capture list,
// matching the CLOSURE opcode's (is_local, index) operand pairs.
type UpvalueRef struct {
	IsLocal bool
	Index   int
}

// Closure pairs a Function with its captured Upvalues. Upvalues is always
// exactly Function.UpvalueCount long and never holds a nil slot once
// construction completes (spec.md §3 invariant 5).
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) Type() ObjType { return ObjClosure }

// Upvalue is either open (Location points into the live VM stack) or
// closed (Closed owns the captured value inline). Open upvalues form an
// intrusive list on the VM ordered by descending stack slot (spec.md §3
// invariant 4); NextOpen threads that list.
type Upvalue struct {
	Header
	Location int // index into the VM value stack; meaningful while open
	Closed   Value
	IsClosed bool
	NextOpen *Upvalue
}

func (u *Upvalue) Type() ObjType { return ObjUpvalue }

// Class is a name plus a method table (name -> Closure). Inheritance
// copies the superclass's method table into the subclass's at the
// INHERIT opcode; a subclass method of the same name overrides it.
type Class struct {
	Header
	Name    *String
	Methods *Table
}

func (c *Class) Type() ObjType { return ObjClass }

// Instance is a Class reference plus a field table (name -> Value).
type Instance struct {
	Header
	Class  *Class
	Fields *Table
}

func (i *Instance) Type() ObjType { return ObjInstance }

// BoundMethod pairs a receiver with the Closure to invoke on it. Valid
// only so long as both are live, which tracing enforces automatically
// (spec.md §3 invariant 7).
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) Type() ObjType { return ObjBoundMethod }

// BuiltinFn is the native function signature a host collaborator
// registers: (argc, argv) -> value. Host is the narrow VM surface a
// builtin may touch (raising runtime errors, reading args, requesting a
// signal); it lives in pkg/builtin to avoid value depending on vm.
type BuiltinFn func(host interface{}, argc int, argv []Value) Value

// Builtin wraps a host native function so it can flow through Value like
// any other callable.
type Builtin struct {
	Header
	Name     string
	Function BuiltinFn
}

func (b *Builtin) Type() ObjType { return ObjBuiltin }

// Module is a compiled source file with its own globals table and a
// one-shot Init closure (spec.md §3 invariant 6).
type Module struct {
	Header
	Name    *String
	Path    string
	Globals *Table
	Init    *Closure
	Done    bool
}

func (m *Module) Type() ObjType { return ObjModule }
