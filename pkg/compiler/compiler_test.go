package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xylia-lang/xylia/pkg/gc"
	"github.com/xylia-lang/xylia/pkg/value"
)

func compileOK(t *testing.T, src string) *value.Function {
	t.Helper()
	heap := gc.NewHeap()
	res := Compile(heap, src, "<test>", value.NewTable())
	require.Empty(t, res.Errors, "unexpected compile errors: %v", res.Errors)
	require.NotNil(t, res.Function)
	return res.Function
}

func TestCompileSimpleExpressionStatement(t *testing.T) {
	fn := compileOK(t, "1 + 2;")
	code := fn.Chunk.Code
	require.NotEmpty(t, code)
	assert.Equal(t, value.OpConstant, value.Op(code[0]))
}

func TestCompileLetAndGlobalRoundtrip(t *testing.T) {
	fn := compileOK(t, "let x = 10; x = x + 1;")
	found := false
	for _, op := range fn.Chunk.Code {
		if value.Op(op) == value.OpDefineGlobal {
			found = true
		}
	}
	assert.True(t, found, "top-level let should emit DEFINE_GLOBAL")
}

func TestCompileUndefinedSyntaxReportsLocation(t *testing.T) {
	heap := gc.NewHeap()
	res := Compile(heap, "let = 1;", "<test>", value.NewTable())
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "1:")
}

func TestCompileSelfReferencingInitializerIsError(t *testing.T) {
	heap := gc.NewHeap()
	res := Compile(heap, "{ let x = x; }", "<test>", value.NewTable())
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "own initializer")
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	heap := gc.NewHeap()
	res := Compile(heap, "break;", "<test>", value.NewTable())
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "outside a loop")
}

func TestCompileFunctionEmitsClosureOp(t *testing.T) {
	fn := compileOK(t, "func add(a, b) { return a + b; }")
	hasClosure := false
	for _, op := range fn.Chunk.Code {
		if value.Op(op) == value.OpClosure {
			hasClosure = true
		}
	}
	assert.True(t, hasClosure)
}

func TestCompileClassWithOperatorOverload(t *testing.T) {
	fn := compileOK(t, `
class Vec {
  func init(x) { self.x = x; }
  operator + (other) { return self.x; }
}
`)
	hasMethod := false
	for _, op := range fn.Chunk.Code {
		if value.Op(op) == value.OpMethod {
			hasMethod = true
		}
	}
	assert.True(t, hasMethod)
}

func TestCompileAssertEncodesLocation(t *testing.T) {
	fn := compileOK(t, "assert true;")
	hasAssert := false
	for _, op := range fn.Chunk.Code {
		if value.Op(op) == value.OpAssert {
			hasAssert = true
		}
	}
	assert.True(t, hasAssert)

	code := fn.Chunk.Code
	require.Greater(t, len(code), 8)
	require.Equal(t, value.OpAssert, value.Op(code[1]))
	assert.Equal(t, []byte{0, 1, 0, 1}, code[2:6], "2-byte row then 2-byte col of the assert keyword")
	pathIdx := int(code[6])<<16 | int(code[7])<<8 | int(code[8])
	assert.Equal(t, "<test>", fn.Chunk.Constants[pathIdx].AsString().Chars)
}

func TestCompileSuperOutsideClassIsError(t *testing.T) {
	heap := gc.NewHeap()
	res := Compile(heap, "func f() { super.foo(); }", "<test>", value.NewTable())
	require.NotEmpty(t, res.Errors)
}
