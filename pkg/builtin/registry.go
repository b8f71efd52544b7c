package builtin

import (
	"github.com/dolthub/swiss"
	"github.com/xylia-lang/xylia/pkg/value"
)

// Registry is the name -> native function table built-ins live in
// (spec.md component 7). It backs both the VM's global-lookup fallback
// and the `register_builtin` host contract (spec.md §6).
//
// Backed by github.com/dolthub/swiss rather than the spec's hand-rolled
// open-addressed table (pkg/value.Table): the registry's only contract
// is "look a name up, get a function", populated once at startup and
// read thereafter — it carries none of the tombstone/probe-chain
// semantics spec.md §4.2 mandates for globals/fields/methods, so the
// generic swiss map is a better fit than reimplementing the spec's table
// for a role that doesn't need its guarantees.
type Registry struct {
	fns *swiss.Map[string, value.BuiltinFn]
}

// NewRegistry returns an empty registry and populates it with the
// default built-in set (DefaultBuiltins).
func NewRegistry() *Registry {
	r := &Registry{fns: swiss.NewMap[string, value.BuiltinFn](64)}
	for name, fn := range DefaultBuiltins() {
		r.Register(name, fn)
	}
	return r
}

// Register implements register_builtin: invoked at VM init, before any
// source runs, per spec.md §6.
func (r *Registry) Register(name string, fn value.BuiltinFn) {
	r.fns.Put(name, fn)
}

// Lookup returns the function bound to name, if any.
func (r *Registry) Lookup(name string) (value.BuiltinFn, bool) {
	return r.fns.Get(name)
}

// Len reports the number of registered names.
func (r *Registry) Len() int { return r.fns.Count() }
