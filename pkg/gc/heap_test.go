package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xylia-lang/xylia/pkg/value"
)

func countObjects(h *Heap) int {
	n := 0
	for o := h.Objects(); o != nil; o = o.Header().Next {
		n++
	}
	return n
}

func TestCopyStringInterns(t *testing.T) {
	h := NewHeap()
	a := h.CopyString("hi", true)
	b := h.CopyString("hi", true)
	assert.Same(t, a, b, "interning the same bytes twice returns the same object")

	c := h.CopyString("hi", false)
	assert.NotSame(t, c, a, "a non-interned copy is its own object")
}

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	h := NewHeap()
	h.NewList(nil) // unreachable; should be swept

	kept := h.NewList([]value.Value{value.Number(1)})
	h.Collect(func(mark func(value.Value)) {
		mark(value.FromObj(kept))
	})

	assert.Equal(t, 1, countObjects(h), "only the rooted list should survive collection")
}

func TestCollectSweepsUnmarkedInternedStrings(t *testing.T) {
	h := NewHeap()
	h.CopyString("ephemeral", true)
	h.Collect()

	assert.Nil(t, h.Strings.FindString("ephemeral", value.HashString("ephemeral")),
		"an interned string with no root reaching it is pruned from the intern table")
}

func TestCollectKeepsAnchoredObjects(t *testing.T) {
	h := NewHeap()
	l := h.NewList(nil)
	h.Anchor(l)
	h.Collect()
	h.Release()

	assert.Equal(t, 1, countObjects(h))
}

func TestCollectTracesClosureGraph(t *testing.T) {
	h := NewHeap()
	fn := h.NewFunction(nil, nil, value.NewTable())
	fn.UpvalueCount = 0
	closure := h.NewClosure(fn)

	before := countObjects(h)
	assert.Equal(t, 2, before)

	h.Collect(func(mark func(value.Value)) {
		mark(value.FromObj(closure))
	})
	assert.Equal(t, 2, countObjects(h), "marking the closure keeps its function alive too")
}

func TestMaybeCollectOnlyRunsPastThreshold(t *testing.T) {
	h := NewHeap()
	h.NextGC = 1 << 30
	h.NewList(nil)
	h.MaybeCollect()
	require.Equal(t, 1, countObjects(h), "below threshold, MaybeCollect is a no-op")

	h.NextGC = 0
	h.MaybeCollect()
	assert.Equal(t, 0, countObjects(h))
}
