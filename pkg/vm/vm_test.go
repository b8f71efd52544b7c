package vm

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (string, Result) {
	t.Helper()
	var out bytes.Buffer
	v := New(".", &out, strings.NewReader(""))
	res := v.Interpret(src, "<test>")
	return out.String(), res
}

func requireOK(t *testing.T, res Result) {
	t.Helper()
	switch res.Status {
	case StatusCompileError:
		require.Fail(t, "compile error", "%v", res.CompileErrors)
	case StatusRuntimeError:
		require.Fail(t, "runtime error", "%v", res.RuntimeErr)
	}
}

func TestArithmeticAndPrint(t *testing.T) {
	out, res := run(t, "println(1 + 2 * 3);")
	requireOK(t, res)
	assert.Equal(t, "7\n", out)
}

func TestDivisionPromotesToFloat(t *testing.T) {
	out, res := run(t, "println(7 / 2);")
	requireOK(t, res)
	assert.Equal(t, "3.5\n", out)
}

func TestModIsIntegerRemainder(t *testing.T) {
	out, res := run(t, "println(7 % 2);")
	requireOK(t, res)
	assert.Equal(t, "1\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, res := run(t, `println("a" + "b");`)
	requireOK(t, res)
	assert.Equal(t, "ab\n", out)
}

func TestClosureOverLoopVariable(t *testing.T) {
	// A nested block gives `captured` its own fresh scope on every
	// iteration regardless of how the for-loop's own control variable is
	// scoped, so closures over `captured` capture distinct upvalues.
	out, res := run(t, `
let fns = {};
for (let i = 0; i < 3; i = i + 1) {
  let captured = i;
  append(fns, func() { return captured; });
}
println(fns[0]() + fns[1]() + fns[2]());
`)
	requireOK(t, res)
	assert.Equal(t, "3\n", out)
}

// TestClosureCapturesBareLoopVariablePerIteration matches spec.md's
// end-to-end closures-over-loop-variables scenario verbatim: the closure
// captures the for-loop's own control variable directly, with no
// intervening block to give it a fresh scope by accident. Each iteration
// must still see its own `i` (0, 1, 2), not the post-loop value (3).
func TestClosureCapturesBareLoopVariablePerIteration(t *testing.T) {
	out, res := run(t, `
let fns = {};
for (let i = 0; i < 3; i = i + 1) {
  append(fns, func() { return i; });
}
assert_eq(fns[0](), 0, "first closure should see i == 0");
assert_eq(fns[1](), 1, "second closure should see i == 1");
assert_eq(fns[2](), 2, "third closure should see i == 2");
println("ok");
`)
	requireOK(t, res)
	assert.Equal(t, 0, res.ExitCode, "every assert_eq should have passed")
	assert.Equal(t, "ok\n", out)
}

func TestClassesInheritanceAndSuper(t *testing.T) {
	out, res := run(t, `
class Animal {
  func init(name) { self.name = name; }
  func speak() { return self.name + " makes a sound"; }
}
class Dog : Animal {
  func speak() { return super.speak() + " (bark)"; }
}
let d = Dog("Rex");
println(d.speak());
`)
	requireOK(t, res)
	assert.Equal(t, "Rex makes a sound (bark)\n", out)
}

func TestOperatorOverload(t *testing.T) {
	out, res := run(t, `
class Vec {
  func init(x) { self.x = x; }
  operator + (other) { return Vec(self.x + other.x); }
}
let a = Vec(1);
let b = Vec(2);
let c = a + b;
println(c.x);
`)
	requireOK(t, res)
	assert.Equal(t, "3\n", out)
}

func TestVarargsAndSpread(t *testing.T) {
	out, res := run(t, `
func sum(nums[]) {
  let total = 0;
  for (let i = 0; i < len(nums); i = i + 1) {
    total = total + nums[i];
  }
  return total;
}
let xs = [1, 2, 3];
println(sum(..xs));
`)
	requireOK(t, res)
	assert.Equal(t, "6\n", out)
}

func TestAssertFailureIsNonFatalButFlagsExitCode(t *testing.T) {
	_, res := run(t, `assert_eq(1, 2, "nope");`)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1, res.ExitCode, "a failed test assertion nudges the exit code without aborting")
}

func TestAssertStatementAbortsOnFailure(t *testing.T) {
	_, res := run(t, `assert 1 == 2;`)
	assert.Equal(t, StatusRuntimeError, res.Status)
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, res := run(t, "println(doesNotExist);")
	require.Equal(t, StatusRuntimeError, res.Status)
	assert.Contains(t, res.RuntimeErr.Error(), "undefined variable")
}

func TestCompileErrorReported(t *testing.T) {
	_, res := run(t, "let = 1;")
	require.Equal(t, StatusCompileError, res.Status)
	require.NotEmpty(t, res.CompileErrors)
}

func TestListIndexAndSlice(t *testing.T) {
	out, res := run(t, `
let xs = [10, 20, 30, 40];
println(xs[1]);
println(xs[1:3]);
`)
	requireOK(t, res)
	assert.Equal(t, "20\n[20, 30]\n", out)
}

func TestImportCompilesRunsAndCaches(t *testing.T) {
	home := t.TempDir()
	libDir := filepath.Join(home, "lib")
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "greet.xyl"), []byte(`
let calls = 0;
calls = calls + 1;
func hello() { return "hi " + string(calls); }
`), 0o644))

	var out bytes.Buffer
	v := New(home, &out, strings.NewReader(""))
	res := v.Interpret(`
let m1 = import("greet");
let m2 = import("greet");
println(m1.hello());
println(m2.calls);
`, "<test>")
	requireOK(t, res)
	assert.Equal(t, "hi 1\n1\n", out.String(), "a second import of the same path reuses the cached module instead of re-running its init")
}

func TestRuntimeErrorCarriesStackTrace(t *testing.T) {
	_, res := run(t, `
func inner() { return doesNotExist; }
func outer() { return inner(); }
outer();
`)
	require.Equal(t, StatusRuntimeError, res.Status)
	trace := res.RuntimeErr.Error()
	assert.Contains(t, trace, "inner")
	assert.Contains(t, trace, "outer")
}
