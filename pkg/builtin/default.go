package builtin

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/exp/slices"

	"github.com/xylia-lang/xylia/pkg/value"
)

// DefaultBuiltins returns the concrete host-collaborator set xylia ships
// with, grounded on _examples/original_source/include/builtins.h's
// grouping (IO, Vectors, Utils, Casts, Tests). spec.md's own end-to-end
// scenarios (§8.5 varargs/spread via len/append, §8.6 assert messages)
// are not runnable without at least this much behind the registry, and
// component 7 (the registry itself) is explicitly in scope.
func DefaultBuiltins() map[string]value.BuiltinFn {
	return map[string]value.BuiltinFn{
		"print":   biPrint,
		"println": biPrintln,
		"printf":  biPrintf,
		"input":   biInput,

		"open":  biOpen,
		"close": biClose,
		"read":  biRead,
		"write": biWrite,

		"len":    biLen,
		"append": biAppend,
		"pop":    biPop,
		"insert": biInsert,
		"remove": biRemove,
		"slice":  biSlice,
		"sort":   biSort,

		"typeof":     biTypeof,
		"isinstance": biIsInstance,
		"exit":       biExit,
		"argv":       biArgv,
		"import":     biImport,

		"string": biString,
		"number": biNumber,
		"float":  biFloat,
		"bool":   biBool,
		"vector": biVector,
		"list":   biList,

		"assert_true":  biAssertTrue,
		"assert_false": biAssertFalse,
		"assert_eq":    biAssertEq,
		"assert_neq":   biAssertNeq,
	}
}

func asHost(h interface{}) Host { return h.(Host) }

// --- IO ---

func biPrint(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	for _, a := range argv[:argc] {
		fmt.Fprint(host.Stdout(), value.ToString(a, false))
	}
	return value.Nil
}

func biPrintln(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	for i, a := range argv[:argc] {
		if i > 0 {
			fmt.Fprint(host.Stdout(), " ")
		}
		fmt.Fprint(host.Stdout(), value.ToString(a, false))
	}
	fmt.Fprintln(host.Stdout())
	return value.Nil
}

func biPrintf(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsString() {
		return host.RuntimeError("printf expects a format string")
	}
	format := argv[0].AsString().Chars
	rest := make([]interface{}, 0, argc-1)
	for _, a := range argv[1:argc] {
		rest = append(rest, value.ToString(a, false))
	}
	fmt.Fprintf(host.Stdout(), format, rest...)
	return value.Nil
}

func biInput(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc > 0 {
		fmt.Fprint(host.Stdout(), value.ToString(argv[0], false))
	}
	reader := bufio.NewReader(host.Stdin())
	line, _ := reader.ReadString('\n')
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return value.FromObj(host.Heap().CopyString(line, false))
}

func biOpen(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsString() {
		return host.RuntimeError("open expects a path string")
	}
	mode := "r"
	if argc > 1 && argv[1].IsString() {
		mode = argv[1].AsString().Chars
	}
	path := argv[0].AsString().Chars

	var flag int
	readable, writable := false, false
	switch mode {
	case "r":
		flag, readable = os.O_RDONLY, true
	case "w":
		flag, writable = os.O_WRONLY|os.O_CREATE|os.O_TRUNC, true
	case "a":
		flag, writable = os.O_WRONLY|os.O_CREATE|os.O_APPEND, true
	default:
		return host.RuntimeError("unknown file mode '%s'", mode)
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return host.RuntimeError("could not open '%s': %v", path, err)
	}
	file := host.Heap().NewFile(path, f, readable, writable, true)
	return value.FromObj(file)
}

func biClose(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsFile() {
		return host.RuntimeError("close expects a file")
	}
	file := argv[0].AsFile()
	if file.Open && file.CanClose {
		file.Handle.Close()
		file.Open = false
	}
	return value.Nil
}

func biRead(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsFile() {
		return host.RuntimeError("read expects a file")
	}
	file := argv[0].AsFile()
	if !file.Open || !file.Readable {
		return host.RuntimeError("file is not open for reading")
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return host.RuntimeError("read failed: %v", err)
	}
	return value.FromObj(host.Heap().CopyString(string(data), false))
}

func biWrite(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 2 || !argv[0].IsFile() || !argv[1].IsString() {
		return host.RuntimeError("write expects (file, string)")
	}
	file := argv[0].AsFile()
	if !file.Open || !file.Writable {
		return host.RuntimeError("file is not open for writing")
	}
	n, err := file.Handle.WriteString(argv[1].AsString().Chars)
	if err != nil {
		return host.RuntimeError("write failed: %v", err)
	}
	return value.Number(int64(n))
}

// --- collections ---

func biLen(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 {
		return host.RuntimeError("len expects 1 argument")
	}
	switch {
	case argv[0].IsString():
		return value.Number(int64(len(argv[0].AsString().Chars)))
	case argv[0].IsVector():
		return value.Number(int64(argv[0].AsVector().Count))
	case argv[0].IsList():
		return value.Number(int64(len(argv[0].AsList().Values)))
	default:
		return host.RuntimeError("len: unsupported type '%s'", value.TypeName(argv[0]))
	}
}

func biAppend(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsVector() {
		return host.RuntimeError("append expects a vector as its first argument")
	}
	vec := argv[0].AsVector()
	for _, a := range spreadExpand(argv[1:argc]) {
		vec.Push(a)
	}
	return argv[0]
}

// spreadExpand implements the law "append(v, ..[a,b]) == append(v, a, b)":
// any spread-flagged Vector/List in args is expanded in place, and its
// one-shot Spread flag is cleared (spec.md §9 open question, resolved).
func spreadExpand(args []value.Value) []value.Value {
	out := make([]value.Value, 0, len(args))
	for _, a := range args {
		switch {
		case a.IsVector() && a.AsVector().Spread:
			vec := a.AsVector()
			out = append(out, vec.Values[:vec.Count]...)
			vec.Spread = false
		case a.IsList() && a.AsList().Spread:
			lst := a.AsList()
			out = append(out, lst.Values...)
			lst.Spread = false
		default:
			out = append(out, a)
		}
	}
	return out
}

func biPop(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsVector() {
		return host.RuntimeError("pop expects a vector")
	}
	vec := argv[0].AsVector()
	if vec.Count == 0 {
		return host.RuntimeError("pop from empty vector")
	}
	vec.Count--
	return vec.Values[vec.Count]
}

func biInsert(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 3 || !argv[0].IsVector() || !argv[1].IsNumber() {
		return host.RuntimeError("insert expects (vector, index, value)")
	}
	vec := argv[0].AsVector()
	idx := int(argv[1].AsNumber())
	if idx < 0 || idx > vec.Count {
		return host.RuntimeError("insert index out of range")
	}
	vec.Push(value.Nil)
	copy(vec.Values[idx+1:vec.Count], vec.Values[idx:vec.Count-1])
	vec.Values[idx] = argv[2]
	return argv[0]
}

func biRemove(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 2 || !argv[0].IsVector() || !argv[1].IsNumber() {
		return host.RuntimeError("remove expects (vector, index)")
	}
	vec := argv[0].AsVector()
	idx := int(argv[1].AsNumber())
	if idx < 0 || idx >= vec.Count {
		return host.RuntimeError("remove index out of range")
	}
	removed := vec.Values[idx]
	copy(vec.Values[idx:vec.Count-1], vec.Values[idx+1:vec.Count])
	vec.Count--
	return removed
}

func biSlice(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 3 || !argv[1].IsNumber() || !argv[2].IsNumber() {
		return host.RuntimeError("slice expects (seq, from, to)")
	}
	from, to := int(argv[1].AsNumber()), int(argv[2].AsNumber())
	switch {
	case argv[0].IsVector():
		vec := argv[0].AsVector()
		if from < 0 || to > vec.Count || from > to {
			return host.RuntimeError("slice index out of range")
		}
		out := make([]value.Value, to-from)
		copy(out, vec.Values[from:to])
		return value.FromObj(host.Heap().NewList(out))
	case argv[0].IsList():
		lst := argv[0].AsList()
		if from < 0 || to > len(lst.Values) || from > to {
			return host.RuntimeError("slice index out of range")
		}
		out := make([]value.Value, to-from)
		copy(out, lst.Values[from:to])
		return value.FromObj(host.Heap().NewList(out))
	case argv[0].IsString():
		s := argv[0].AsString().Chars
		if from < 0 || to > len(s) || from > to {
			return host.RuntimeError("slice index out of range")
		}
		return value.FromObj(host.Heap().CopyString(s[from:to], false))
	default:
		return host.RuntimeError("slice: unsupported type '%s'", value.TypeName(argv[0]))
	}
}

func biSort(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 {
		return host.RuntimeError("sort expects a sequence")
	}
	cmp := func(a, b value.Value) int {
		af, bf := numericKey(a), numericKey(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	switch {
	case argv[0].IsVector():
		vec := argv[0].AsVector()
		slices.SortFunc(vec.Values[:vec.Count], cmp)
	case argv[0].IsList():
		lst := argv[0].AsList()
		slices.SortFunc(lst.Values, cmp)
	default:
		return host.RuntimeError("sort: unsupported type '%s'", value.TypeName(argv[0]))
	}
	return argv[0]
}

func numericKey(v value.Value) float64 {
	if v.IsFloat() {
		return v.AsFloat()
	}
	if v.IsNumber() {
		return float64(v.AsNumber())
	}
	return 0
}

// --- utils ---

func biTypeof(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 {
		return host.RuntimeError("typeof expects 1 argument")
	}
	return value.FromObj(host.Heap().CopyString(value.TypeName(argv[0]), true))
}

func biIsInstance(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 2 || !argv[1].IsClass() {
		return host.RuntimeError("isinstance expects (value, class)")
	}
	if !argv[0].IsInstance() {
		return value.False
	}
	// INHERIT copies the superclass's method table into the subclass's
	// when the class declaration runs (spec.md §4.4); there is no superclass
	// chain to walk, so membership is exact-class identity.
	return value.Bool(argv[0].AsInstance().Class == argv[1].AsClass())
}

func biExit(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	code := 0
	if argc > 0 && argv[0].IsNumber() {
		code = int(argv[0].AsNumber())
	}
	host.SetSignal(SigHalt, code)
	return value.Nil
}

func biArgv(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	return value.FromObj(host.Args())
}

func biImport(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsString() {
		return host.RuntimeError("import expects a path string")
	}
	mod, err := host.Import(argv[0].AsString().Chars)
	if err != nil {
		return host.RuntimeError("import failed: %v", err)
	}
	return mod
}

// --- casts ---

func biString(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 {
		return host.RuntimeError("string expects 1 argument")
	}
	return value.FromObj(host.Heap().CopyString(value.ToString(argv[0], false), false))
}

func biNumber(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 {
		return host.RuntimeError("number expects 1 argument")
	}
	switch {
	case argv[0].IsNumber():
		return argv[0]
	case argv[0].IsFloat():
		return value.Number(int64(argv[0].AsFloat()))
	case argv[0].IsString():
		n, err := parseInt(argv[0].AsString().Chars)
		if err != nil {
			return host.RuntimeError("cannot convert '%s' to number", argv[0].AsString().Chars)
		}
		return value.Number(n)
	default:
		return host.RuntimeError("cannot convert %s to number", value.TypeName(argv[0]))
	}
}

func biFloat(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 {
		return host.RuntimeError("float expects 1 argument")
	}
	switch {
	case argv[0].IsFloat():
		return argv[0]
	case argv[0].IsNumber():
		return value.Float(float64(argv[0].AsNumber()))
	case argv[0].IsString():
		f, err := parseFloat(argv[0].AsString().Chars)
		if err != nil {
			return host.RuntimeError("cannot convert '%s' to float", argv[0].AsString().Chars)
		}
		return value.Float(f)
	default:
		return host.RuntimeError("cannot convert %s to float", value.TypeName(argv[0]))
	}
}

func biBool(h interface{}, argc int, argv []value.Value) value.Value {
	if argc < 1 {
		return asHost(h).RuntimeError("bool expects 1 argument")
	}
	return value.Bool(!argv[0].IsFalsey())
}

func biVector(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	vec := host.Heap().NewVector(argc)
	for _, a := range spreadExpand(argv[:argc]) {
		vec.Push(a)
	}
	return value.FromObj(vec)
}

func biList(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	items := spreadExpand(argv[:argc])
	out := make([]value.Value, len(items))
	copy(out, items)
	return value.FromObj(host.Heap().NewList(out))
}

// --- tests ---

func biAssertTrue(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || argv[0].IsFalsey() {
		host.SetSignal(SigTestAssertFail, 1)
	}
	return value.Nil
}

func biAssertFalse(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 1 || !argv[0].IsFalsey() {
		host.SetSignal(SigTestAssertFail, 1)
	}
	return value.Nil
}

func biAssertEq(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 2 || !value.Equal(argv[0], argv[1]) {
		host.SetSignal(SigTestAssertFail, 1)
	}
	return value.Nil
}

func biAssertNeq(h interface{}, argc int, argv []value.Value) value.Value {
	host := asHost(h)
	if argc < 2 || value.Equal(argv[0], argv[1]) {
		host.SetSignal(SigTestAssertFail, 1)
	}
	return value.Nil
}
