// Package compiler implements xylia's single-pass Pratt-precedence
// compiler: source text (via pkg/scanner) straight to a pkg/value.Chunk,
// resolving locals, upvalues, and class scope as it goes (spec.md §4.4).
//
// Grounded on the teacher's pkg/compiler (single-pass AST-free emission
// straight from parse actions) and pkg/parser (two-token lookahead,
// accumulated error list, panic-mode-free recovery it didn't need for
// smog's simpler grammar) — generalized here to a true Pratt table with
// panic-mode synchronization, since xylia's grammar has real operator
// precedence and statement/declaration recovery points smog's
// message-send grammar didn't require.
package compiler

import (
	"fmt"

	"github.com/xylia-lang/xylia/pkg/gc"
	"github.com/xylia-lang/xylia/pkg/scanner"
	"github.com/xylia-lang/xylia/pkg/value"
)

// FuncType distinguishes the kind of code body currently being compiled,
// since script/method/initializer bodies each have slightly different
// implicit-return and `self` slot conventions.
type FuncType int

const (
	TypeScript FuncType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

// local is one entry in the current function compiler's local-variable
// stack. Depth -1 marks "declared but not yet initialized", which is how
// `let x = x` is caught reading its own initializer (spec.md §4.4).
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// loopCtx tracks one active loop so `break`/`continue` can patch the
// right jump sites (spec.md §4.4).
type loopCtx struct {
	enclosing  *loopCtx
	continueAt int // LOOP target for `continue`
	breakJumps []int
	depth      int

	// continueCopyBack, if set, writes a for-loop's per-iteration shadow
	// locals back to their outer slots before a `continue` runs the
	// increment clause — see forStatement's iteration-scope comment.
	continueCopyBack func()
}

// funcState is one function compiler on the (implicit, via `enclosing`)
// compiler chain. The chain is not marked as GC roots; no collection
// runs during compilation, so its Function objects are not swept while
// under construction.
type funcState struct {
	enclosing *funcState
	function  *value.Function
	funcType  FuncType

	locals     []local
	upvalues   []value.UpvalueRef
	scopeDepth int
	loop       *loopCtx
}

// classState tracks the class currently being compiled, for `self`/
// `super` resolution and to reject `super` outside an inheriting class.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler is single-use: construct one per Compile call.
type Compiler struct {
	sc   *scanner.Scanner
	heap *gc.Heap

	prev scanner.Token
	cur  scanner.Token

	hadError  bool
	panicking bool
	errs      []string

	fn    *funcState
	class *classState

	path    *value.String
	globals *value.Table
}

// Result is returned by Compile: either a top-level Function ready to be
// wrapped in a Closure and run, or a non-empty error list.
type Result struct {
	Function *value.Function
	Errors   []string
}

// Compile compiles source into a Function whose Globals table is
// globals (the module — or top-level script — this code belongs to).
// path names the source file, used in error messages and ASSERT
// location encoding.
func Compile(heap *gc.Heap, source, path string, globals *value.Table) Result {
	c := &Compiler{
		sc:      scanner.New(source),
		heap:    heap,
		path:    heap.Intern(path),
		globals: globals,
	}
	scriptFn := heap.NewFunction(nil, c.path, globals)
	c.fn = &funcState{function: scriptFn, funcType: TypeScript}
	c.fn.locals = append(c.fn.locals, local{name: "", depth: 0})

	c.advance()
	for !c.match(scanner.TokEOF) {
		c.declaration()
	}
	c.emitReturn()

	if c.hadError {
		return Result{Errors: c.errs}
	}
	return Result{Function: scriptFn}
}

// --- token plumbing ---

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.sc.Next()
		if c.cur.Kind != scanner.TokError {
			break
		}
		c.errorAtCurrent(c.cur.Lexeme)
	}
}

func (c *Compiler) check(k scanner.Kind) bool { return c.cur.Kind == k }

func (c *Compiler) match(k scanner.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k scanner.Kind, msg string) {
	if c.cur.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

func (c *Compiler) errorAt(tok scanner.Token, msg string) {
	if c.panicking {
		return
	}
	c.panicking = true
	c.hadError = true
	where := tok.Lexeme
	if tok.Kind == scanner.TokEOF {
		where = "end"
	}
	c.errs = append(c.errs, fmt.Sprintf("[%d:%d] Error at '%s': %s", tok.Row, tok.Col, where, msg))
}

// synchronize implements panic-mode recovery: skip tokens until a likely
// statement boundary or the next declaration-starting keyword.
func (c *Compiler) synchronize() {
	c.panicking = false
	for c.cur.Kind != scanner.TokEOF {
		if c.prev.Kind == scanner.TokSemicolon {
			return
		}
		switch c.cur.Kind {
		case scanner.TokClass, scanner.TokFunc, scanner.TokLet,
			scanner.TokOperator, scanner.TokFor, scanner.TokIf,
			scanner.TokWhile, scanner.TokReturn, scanner.TokAssert:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---

func (c *Compiler) chunk() *value.Chunk { return &c.fn.function.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.prev.Row, c.prev.Col)
}

func (c *Compiler) emitOp(op value.Op) int {
	return c.chunk().WriteOp(op, c.prev.Row, c.prev.Col)
}

func (c *Compiler) emitOps(ops ...value.Op) {
	for _, op := range ops {
		c.emitOp(op)
	}
}

func (c *Compiler) emitConstant(v value.Value) {
	idx := c.chunk().AddConstant(v)
	c.chunk().WriteConstantOp(value.OpConstant, value.OpConstantLong, idx, c.prev.Row, c.prev.Col)
}

func (c *Compiler) makeConstant(v value.Value) int {
	return c.chunk().AddConstant(v)
}

func (c *Compiler) identifierConstant(name string) int {
	return c.makeConstant(value.FromObj(c.heap.Intern(name)))
}

func (c *Compiler) emitConstantOp(short, long value.Op, index int) {
	c.chunk().WriteConstantOp(short, long, index, c.prev.Row, c.prev.Col)
}

func (c *Compiler) emitJump(op value.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("too much code to jump over")
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(value.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("loop body too large")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) emitReturn() {
	if c.fn.funcType == TypeInitializer {
		c.emitOp(value.OpGetLocal)
		c.emitByte(0)
	} else {
		c.emitOp(value.OpNil)
	}
	c.emitOp(value.OpReturn)
}

// --- scopes & locals ---

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	locals := c.fn.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.fn.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	c.fn.locals = locals
}

func (c *Compiler) declareLocal(name string) {
	if c.fn.scopeDepth == 0 {
		return
	}
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		l := c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name == name {
			c.error("a variable named '" + name + "' is already declared in this scope")
		}
	}
	c.fn.locals = append(c.fn.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[len(c.fn.locals)-1].depth = c.fn.scopeDepth
}

func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				c.error("cannot read local variable '" + name + "' in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue walks the enclosing-function chain looking for name,
// adding upvalue entries along the way and marking the owning local
// captured (spec.md §4.4).
func (c *Compiler) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fs, local, true)
	}
	if up := c.resolveUpvalue(fs.enclosing, name); up != -1 {
		return c.addUpvalue(fs, up, false)
	}
	return -1
}

func (c *Compiler) addUpvalue(fs *funcState, index int, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= 256 {
		c.error("too many closure variables in one function")
		return 0
	}
	fs.upvalues = append(fs.upvalues, value.UpvalueRef{IsLocal: isLocal, Index: index})
	fs.function.UpvalueCount = len(fs.upvalues)
	return len(fs.upvalues) - 1
}
