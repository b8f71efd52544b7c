package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func internedKey(chars string) *String {
	return &String{Chars: chars, Hash: HashString(chars), Interned: true}
}

func TestTableSetGetDelete(t *testing.T) {
	tbl := NewTable()
	k := internedKey("x")

	_, ok := tbl.Get(k)
	assert.False(t, ok)

	isNew := tbl.Set(k, Number(42))
	assert.True(t, isNew)

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, int64(42), v.AsNumber())

	isNew = tbl.Set(k, Number(43))
	assert.False(t, isNew, "overwriting an existing key is not a new entry")

	assert.True(t, tbl.Delete(k))
	_, ok = tbl.Get(k)
	assert.False(t, ok, "deleted entries are not found again")
}

func TestTableTombstonePreservesProbeChain(t *testing.T) {
	tbl := NewTable()
	// Force a handful of entries into the same small table so at least
	// one collision chain exists, then delete the middle of a chain and
	// confirm lookups past it still resolve.
	keys := make([]*String, 6)
	for i := range keys {
		keys[i] = internedKey(string(rune('a' + i)))
		tbl.Set(keys[i], Number(int64(i)))
	}

	tbl.Delete(keys[2])
	for i, k := range keys {
		if i == 2 {
			continue
		}
		v, ok := tbl.Get(k)
		require.True(t, ok, "key %d should still resolve after an unrelated delete", i)
		assert.Equal(t, int64(i), v.AsNumber())
	}
}

func TestTableGrowPreservesEntries(t *testing.T) {
	tbl := NewTable()
	var keys []*String
	for i := 0; i < 100; i++ {
		k := internedKey(string(rune('A' + i%26)) + string(rune('0'+i/26)))
		keys = append(keys, k)
		tbl.Set(k, Number(int64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, int64(i), v.AsNumber())
	}
	assert.Equal(t, len(keys), tbl.Len())
}

func TestTableAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := NewTable()
	a, b := internedKey("a"), internedKey("b")
	src.Set(a, Number(1))
	src.Set(b, Number(2))
	src.Delete(b)

	dst := NewTable()
	dst.AddAll(src)

	v, ok := dst.Get(a)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.AsNumber())

	_, ok = dst.Get(b)
	assert.False(t, ok, "a tombstoned source entry must not be copied")
}

func TestFindStringByBytesAndHash(t *testing.T) {
	tbl := NewTable()
	k := internedKey("hello")
	tbl.Set(k, Bool(true))

	found := tbl.FindString("hello", HashString("hello"))
	assert.Same(t, k, found)

	assert.Nil(t, tbl.FindString("goodbye", HashString("goodbye")))
}
