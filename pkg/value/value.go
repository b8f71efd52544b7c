// Package value implements xylia's runtime value representation: the
// tagged Value union, the heap object variants reachable through it, the
// bytecode Chunk a Function owns, and the open-addressed hash table used
// for globals, instance fields, and class method tables.
//
// Chunk and the hash table live here rather than in packages of their own
// because Function (a heap object) owns a Chunk, and a Chunk's constant
// pool holds Values — splitting them would force an import cycle between
// "value" and "chunk". The original C implementation has the same
// coupling: object.h includes chunk.h directly.
package value

import "fmt"

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindBool Kind = iota
	KindNil
	KindNumber // int64
	KindFloat  // float64
	KindObj
)

// Value is a tagged union. Number and Float are distinct kinds: arithmetic
// promotes Number to Float only where the language demands it (division,
// mixed operands); equality cross-compares Number/Float by promoting to
// float64, per spec.
type Value struct {
	kind Kind
	num  int64
	flt  float64
	obj  Obj
}

var Nil = Value{kind: KindNil}
var True = Value{kind: KindBool, num: 1}
var False = Value{kind: KindBool, num: 0}

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Number(n int64) Value { return Value{kind: KindNumber, num: n} }
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

func FromObj(o Obj) Value {
	if o == nil {
		return Nil
	}
	return Value{kind: KindObj, obj: o}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) AsBool() bool      { return v.num != 0 }
func (v Value) AsNumber() int64   { return v.num }
func (v Value) AsFloat() float64  { return v.flt }
func (v Value) AsObj() Obj        { return v.obj }

// AsFloat64 returns the value as a float64 regardless of whether it is a
// Number or Float, for use in the arithmetic promotion rules.
func (v Value) AsFloat64() float64 {
	if v.kind == KindNumber {
		return float64(v.num)
	}
	return v.flt
}

// IsObjType reports whether v is a heap object of the given type.
func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObj && v.obj != nil && v.obj.Type() == t
}

func (v Value) IsString() bool      { return v.IsObjType(ObjString) }
func (v Value) IsVector() bool      { return v.IsObjType(ObjVector) }
func (v Value) IsList() bool        { return v.IsObjType(ObjList) }
func (v Value) IsRange() bool       { return v.IsObjType(ObjRange) }
func (v Value) IsFile() bool        { return v.IsObjType(ObjFile) }
func (v Value) IsFunction() bool    { return v.IsObjType(ObjFunction) }
func (v Value) IsClosure() bool     { return v.IsObjType(ObjClosure) }
func (v Value) IsClass() bool       { return v.IsObjType(ObjClass) }
func (v Value) IsInstance() bool    { return v.IsObjType(ObjInstance) }
func (v Value) IsBoundMethod() bool { return v.IsObjType(ObjBoundMethod) }
func (v Value) IsBuiltin() bool     { return v.IsObjType(ObjBuiltin) }
func (v Value) IsModule() bool      { return v.IsObjType(ObjModule) }

func (v Value) AsString() *String           { return v.obj.(*String) }
func (v Value) AsVector() *Vector           { return v.obj.(*Vector) }
func (v Value) AsList() *List               { return v.obj.(*List) }
func (v Value) AsRange() *Range             { return v.obj.(*Range) }
func (v Value) AsFile() *File               { return v.obj.(*File) }
func (v Value) AsFunction() *Function       { return v.obj.(*Function) }
func (v Value) AsClosure() *Closure         { return v.obj.(*Closure) }
func (v Value) AsClass() *Class             { return v.obj.(*Class) }
func (v Value) AsInstance() *Instance       { return v.obj.(*Instance) }
func (v Value) AsBoundMethod() *BoundMethod { return v.obj.(*BoundMethod) }
func (v Value) AsBuiltin() *Builtin         { return v.obj.(*Builtin) }
func (v Value) AsModule() *Module           { return v.obj.(*Module) }

// IsFalsey reports xylia truthiness: only Nil and false are falsey.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements values_equal: structural equality for strings, vectors
// and lists, identity for other heap objects, cross-type promotion for
// Number/Float.
func Equal(a, b Value) bool {
	switch {
	case a.kind == KindNumber && b.kind == KindFloat:
		return float64(a.num) == b.flt
	case a.kind == KindFloat && b.kind == KindNumber:
		return a.flt == float64(b.num)
	case a.kind != b.kind:
		return false
	}

	switch a.kind {
	case KindBool:
		return a.num == b.num
	case KindNil:
		return true
	case KindNumber:
		return a.num == b.num
	case KindFloat:
		return a.flt == b.flt
	case KindObj:
		return objEqual(a.obj, b.obj)
	}
	return false
}

func objEqual(a, b Obj) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *String:
		bv := b.(*String)
		if av.Interned && bv.Interned {
			return av == bv
		}
		return av.Chars == bv.Chars
	case *Vector:
		bv := b.(*Vector)
		if av.Count != bv.Count {
			return false
		}
		for i := 0; i < av.Count; i++ {
			if !Equal(av.Values[i], bv.Values[i]) {
				return false
			}
		}
		return true
	case *List:
		bv := b.(*List)
		if len(av.Values) != len(bv.Values) {
			return false
		}
		for i := range av.Values {
			if !Equal(av.Values[i], bv.Values[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// TypeName returns the runtime type name used by the typeof builtin and
// by error messages.
func TypeName(v Value) string {
	switch v.kind {
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	case KindNumber:
		return "number"
	case KindFloat:
		return "float"
	case KindObj:
		switch v.obj.Type() {
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
		case ObjFunction, ObjClosure:
			return "function"
		case ObjClass:
			return "class"
		case ObjInstance:
			return v.AsInstance().Class.Name.Chars
		case ObjBoundMethod:
			return "function"
		case ObjBuiltin:
			return "function"
		case ObjModule:
			return "module"
		case ObjUpvalue:
			return "upvalue"
		}
	}
	return "unknown"
}

// ToString renders v for the print/println builtins. literally controls
// whether strings are quoted (used when printing values nested inside a
// vector/list literal).
func ToString(v Value, literally bool) string {
	switch v.kind {
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNil:
		return "nil"
	case KindNumber:
		return fmt.Sprintf("%d", v.num)
	case KindFloat:
		return fmt.Sprintf("%g", v.flt)
	case KindObj:
		return objString(v.obj, literally)
	}
	return "?"
}

func objString(o Obj, literally bool) string {
	switch ov := o.(type) {
	case *String:
		if literally {
			return fmt.Sprintf("%q", ov.Chars)
		}
		return ov.Chars
	case *Vector:
		return seqString("{", "}", ov.Values[:ov.Count])
	case *List:
		return seqString("[", "]", ov.Values)
	case *Range:
		return fmt.Sprintf("%s:%s", ToString(ov.From, true), ToString(ov.To, true))
	case *File:
		return fmt.Sprintf("<file %s>", ov.Path)
	case *Function:
		if ov.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<func %s>", ov.Name.Chars)
	case *Closure:
		return objString(ov.Function, literally)
	case *Class:
		return fmt.Sprintf("<class %s>", ov.Name.Chars)
	case *Instance:
		return fmt.Sprintf("<instance %s>", ov.Class.Name.Chars)
	case *BoundMethod:
		return objString(ov.Method, literally)
	case *Builtin:
		return fmt.Sprintf("<builtin %s>", ov.Name)
	case *Module:
		return fmt.Sprintf("<module %s>", ov.Name.Chars)
	case *Upvalue:
		return "<upvalue>"
	default:
		return "<obj>"
	}
}

func seqString(open, close string, values []Value) string {
	s := open
	for i, v := range values {
		if i > 0 {
			s += ", "
		}
		s += ToString(v, true)
	}
	return s + close
}
