package value

// Table is the open-addressed hash table backing globals, instance
// fields, and class method tables (spec.md §4.2). Linear probing, 75%
// max load factor, tombstones that preserve probe chains on delete.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

type entry struct {
	key      *String // nil means empty; nil key + tombstone=true means deleted
	value    Value
	tombstone bool
}

const tableMaxLoad = 0.75

// NewTable returns an empty table with no backing array yet; the first
// Set grows it.
func NewTable() *Table {
	return &Table{}
}

// Get probes until it finds an empty (non-tombstone) slot or a matching
// key. Interned strings are compared by identity (the intern table
// guarantees a unique instance per distinct byte sequence), so pointer
// equality is the correct and fast comparison here.
func (t *Table) Get(key *String) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Set inserts or overwrites key -> value. Returns true if this created a
// new entry (key was not already present).
func (t *Table) Set(key *String, val Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := t.findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && !e.tombstone {
		t.count++
	}
	e.key = key
	e.value = val
	e.tombstone = false
	return isNew
}

// Delete replaces the entry with a tombstone (key cleared, value=true,
// tombstone=true) so later probes for different keys that hashed into
// the same chain keep working.
func (t *Table) Delete(key *String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = Bool(true)
	e.tombstone = true
	return true
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	n := 0
	for i := range t.entries {
		if t.entries[i].key != nil && !t.entries[i].tombstone {
			n++
		}
	}
	return n
}

// Each calls fn for every live entry. Order is unspecified.
func (t *Table) Each(fn func(key *String, val Value)) {
	for i := range t.entries {
		if t.entries[i].key != nil && !t.entries[i].tombstone {
			fn(t.entries[i].key, t.entries[i].value)
		}
	}
}

// RemoveIf tombstones every live entry whose key satisfies pred. Used by
// the GC to prune unmarked interned strings before sweeping objects, so a
// later FindString can never resurrect a freed string.
func (t *Table) RemoveIf(pred func(key *String) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.tombstone && pred(e.key) {
			e.key = nil
			e.value = Bool(true)
			e.tombstone = true
		}
	}
}

// AddAll copies every live entry of src into t, overwriting any existing
// key. Used by the INHERIT opcode to copy a superclass's method table
// into a subclass before the subclass's own methods are defined.
func (t *Table) AddAll(src *Table) {
	src.Each(func(key *String, val Value) {
		t.Set(key, val)
	})
}

func (t *Table) findEntry(entries []entry, key *String) *entry {
	capMask := uint32(len(entries) - 1)
	index := key.Hash & capMask
	var tombstoneSlot *entry
	for {
		e := &entries[index]
		if e.key == nil {
			if !e.tombstone {
				if tombstoneSlot != nil {
					return tombstoneSlot
				}
				return e
			}
			if tombstoneSlot == nil {
				tombstoneSlot = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) & capMask
	}
}

func growCapacity(old int) int {
	if old < 8 {
		return 8
	}
	return old * 2
}

func (t *Table) grow(newCap int) {
	newEntries := make([]entry, newCap)
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil || e.tombstone {
			continue
		}
		dest := t.findEntry(newEntries, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
	}
	t.entries = newEntries
}

// FindString implements find_string: the intern table lookup that
// compares candidate strings by hash then by bytes, used by the string
// interner to decide whether a new literal already has a canonical
// instance. Unlike Get/Set, this probes by raw bytes/hash rather than by
// an existing *String identity, since the whole point is to discover
// whether one exists yet.
func (t *Table) FindString(chars string, hash uint32) *String {
	if len(t.entries) == 0 {
		return nil
	}
	capMask := uint32(len(t.entries) - 1)
	index := hash & capMask
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) & capMask
	}
}
