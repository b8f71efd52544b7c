package value

// WellKnown is a small set of strings the VM must compare or look up by
// identity on every dispatch (operator-overload method names, `init`,
// `self`, `super`) pre-interned once at VM construction so no hot path
// ever calls CopyString/FindString again for them (supplemented from
// original_source's vm_strings_t / VM_STR_* enum, include/vm.h).
type WellKnown struct {
	Add, Sub, Mul, Div, Mod                *String
	BitAnd, BitOr, Xor                     *String
	Eq, Gt, Ge, Lt, Le                      *String
	Neg, LogNot, BitNot                    *String
	GetIndex, SetIndex, GetSlice, SetSlice  *String
	Init, Self, Super                       *String
}

// NewWellKnown builds the table via intern (normally heap.Intern), kept
// as a callback rather than a *gc.Heap parameter so pkg/value never
// needs to import pkg/gc.
func NewWellKnown(intern func(string) *String) *WellKnown {
	return &WellKnown{
		Add: intern("__add__"), Sub: intern("__sub__"), Mul: intern("__mul__"),
		Div: intern("__div__"), Mod: intern("__mod__"),
		BitAnd: intern("__bit_and__"), BitOr: intern("__bit_or__"), Xor: intern("__xor__"),
		Eq: intern("__eq__"), Gt: intern("__gt__"), Ge: intern("__ge__"),
		Lt: intern("__lt__"), Le: intern("__le__"),
		Neg: intern("__neg__"), LogNot: intern("__log_not__"), BitNot: intern("__bit_not__"),
		GetIndex: intern("__get_index__"), SetIndex: intern("__set_index__"),
		GetSlice: intern("__get_slice__"), SetSlice: intern("__set_slice__"),
		Init: intern("init"), Self: intern("self"), Super: intern("super"),
	}
}
