// Package gc implements xylia's tri-color mark-and-sweep collector
// (spec.md §4.5): stop-the-world, synchronous, growth factor 2 on
// next_gc.
//
// Heap depends only on pkg/value. It does not import pkg/vm or
// pkg/compiler. The VM holds GC roots (the value stack, call frames,
// open upvalues) that Heap has no business knowing the shape of. Instead
// Collect takes root-marking callbacks as arguments; the VM supplies one
// (markRoots) that knows how to walk its own state. The compiler supplies
// none: its in-progress functions are not marked, and no collection runs
// while it compiles, since allocators never collect. This is the standard dependency-inversion
// fix for the cycle that would otherwise exist between "the allocator"
// and "the thing whose stack the allocator must treat as live".
package gc

import "github.com/xylia-lang/xylia/pkg/value"

// initialNextGC mirrors the original's memory.h default first-collection
// threshold (1 MiB) before the first cycle's measured bytes_allocated
// takes over via the growth-factor-2 rule.
const initialNextGC = 1 << 20

// RootMarker is supplied to Collect by whichever component owns a root
// set (in this module, only the VM). It is handed a mark function
// to call once per root Value.
type RootMarker func(mark func(value.Value))

// Heap owns the global object list, the allocation byte counter, and the
// string intern table. It is the GC's "Value & Heap" half (spec.md §4.2,
// §4.5).
type Heap struct {
	head           value.Obj
	BytesAllocated int64
	NextGC         int64
	Strings        *value.Table

	anchors []value.Obj
	gray    []value.Obj
}

// NewHeap returns an empty heap with its own intern table.
func NewHeap() *Heap {
	return &Heap{
		NextGC:  initialNextGC,
		Strings: value.NewTable(),
	}
}

// Anchor pushes o onto the GC's dedicated anchor stack so that further
// allocations performed while o is still under construction (e.g.
// capturing a closure's upvalues one at a time) cannot cause o to be
// swept before it is stored somewhere else reachable. Release pops it.
// This mirrors spec.md §4.5's "anchor via push onto the value stack"
// convention, using a stack owned by the heap itself rather than coupling
// the allocator to the VM's operand stack.
func (h *Heap) Anchor(o value.Obj) {
	h.anchors = append(h.anchors, o)
}

// Release pops the most recently anchored object.
func (h *Heap) Release() {
	h.anchors = h.anchors[:len(h.anchors)-1]
}

// register links obj into the head of the global object list (invariant
// 1: every live object is reachable from this list) and charges size
// against the allocation counter.
func (h *Heap) register(obj value.Obj, size int64) {
	obj.Header().Next = h.head
	h.head = obj
	h.BytesAllocated += size
}

// MaybeCollect triggers a collection if bytes_allocated has crossed
// next_gc. Allocators never call it: the VM calls it once before each
// instruction, so a collection runs only at instruction boundaries.
func (h *Heap) MaybeCollect(roots ...RootMarker) {
	if h.BytesAllocated > h.NextGC {
		h.Collect(roots...)
	}
}

// Collect runs one full mark-and-sweep cycle. Unmarked interned strings
// are pruned from the intern table before any object is swept, so a
// later FindString lookup during the same sweep can never resurrect a
// freed string (spec.md §4.5, §9).
func (h *Heap) Collect(roots ...RootMarker) {
	h.gray = h.gray[:0]
	mark := func(v value.Value) { h.MarkValue(v) }

	for _, o := range h.anchors {
		h.MarkObj(o)
	}
	for _, root := range roots {
		if root != nil {
			root(mark)
		}
	}

	h.traceReferences()
	h.sweepStrings()
	h.sweepObjects()

	h.NextGC = h.BytesAllocated * 2
	if h.NextGC < initialNextGC {
		h.NextGC = initialNextGC
	}
}

// MarkValue marks v's underlying object, if any.
func (h *Heap) MarkValue(v value.Value) {
	if v.IsObj() {
		h.MarkObj(v.AsObj())
	}
}

// MarkObj marks o gray (appending to the worklist) unless already
// marked. Callers must not pass a nil-but-typed pointer; guard at the
// call site (e.g. `if f.Name != nil { h.MarkObj(f.Name) }`), since a nil
// *String wrapped in the Obj interface is not itself == nil.
func (h *Heap) MarkObj(o value.Obj) {
	if o == nil {
		return
	}
	hdr := o.Header()
	if hdr.Marked {
		return
	}
	hdr.Marked = true
	h.gray = append(h.gray, o)
}

// MarkTable marks every live key and value in t.
func (h *Heap) MarkTable(t *value.Table) {
	if t == nil {
		return
	}
	t.Each(func(key *value.String, val value.Value) {
		h.MarkObj(key)
		h.MarkValue(val)
	})
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		o := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o value.Obj) {
	switch v := o.(type) {
	case *value.String:
		// no children
	case *value.Vector:
		for i := 0; i < v.Count; i++ {
			h.MarkValue(v.Values[i])
		}
	case *value.List:
		for _, val := range v.Values {
			h.MarkValue(val)
		}
	case *value.Range:
		h.MarkValue(v.From)
		h.MarkValue(v.To)
	case *value.File:
		// no heap-object children
	case *value.Function:
		if v.Name != nil {
			h.MarkObj(v.Name)
		}
		if v.Path != nil {
			h.MarkObj(v.Path)
		}
		for _, c := range v.Chunk.Constants {
			h.MarkValue(c)
		}
		h.MarkTable(v.Globals)
	case *value.Closure:
		h.MarkObj(v.Function)
		for _, uv := range v.Upvalues {
			if uv != nil {
				h.MarkObj(uv)
			}
		}
	case *value.Upvalue:
		if v.IsClosed {
			h.MarkValue(v.Closed)
		}
	case *value.Class:
		h.MarkObj(v.Name)
		h.MarkTable(v.Methods)
	case *value.Instance:
		h.MarkObj(v.Class)
		h.MarkTable(v.Fields)
	case *value.BoundMethod:
		h.MarkValue(v.Receiver)
		h.MarkObj(v.Method)
	case *value.Builtin:
		// Name is a Go string, not a heap object.
	case *value.Module:
		h.MarkObj(v.Name)
		h.MarkTable(v.Globals)
		if v.Init != nil {
			h.MarkObj(v.Init)
		}
	}
}

func (h *Heap) sweepStrings() {
	h.Strings.RemoveIf(func(key *value.String) bool {
		return !key.Header.Marked
	})
}

func (h *Heap) sweepObjects() {
	var prev value.Obj
	obj := h.head
	for obj != nil {
		hdr := obj.Header()
		if hdr.Marked {
			hdr.Marked = false
			prev = obj
			obj = hdr.Next
			continue
		}
		unreached := obj
		obj = hdr.Next
		if prev != nil {
			prev.Header().Next = obj
		} else {
			h.head = obj
		}
		h.free(unreached)
	}
}

func (h *Heap) free(o value.Obj) {
	h.BytesAllocated -= approxSize(o)
	if f, ok := o.(*value.File); ok {
		if f.Open && f.CanClose && f.Handle != nil {
			f.Handle.Close()
			f.Open = false
		}
	}
}

// approxSize is a rough per-object byte estimate, good enough to drive
// the next_gc growth-factor-2 heuristic; it need not be exact since Go's
// own allocator (not this bookkeeping) owns real memory.
func approxSize(o value.Obj) int64 {
	switch v := o.(type) {
	case *value.String:
		return int64(32 + len(v.Chars))
	case *value.Vector:
		return int64(48 + 16*len(v.Values))
	case *value.List:
		return int64(40 + 16*len(v.Values))
	case *value.Function:
		return int64(96 + 24*len(v.Chunk.Code))
	default:
		return 64
	}
}

// Objects exposes the live object list's head, for tests that walk it to
// check invariant 1 (every live object reachable from the allocator's
// list).
func (h *Heap) Objects() value.Obj { return h.head }
