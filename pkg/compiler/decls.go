package compiler

import (
	"github.com/xylia-lang/xylia/pkg/scanner"
	"github.com/xylia-lang/xylia/pkg/value"
)

// declaration is the entry point for anything at the start of a block:
// `let`/`func`/`class` declarations fall through to statement otherwise.
// Panic-mode recovery (synchronize) runs after each one.
func (c *Compiler) declaration() {
	switch {
	case c.match(scanner.TokLet):
		c.letDeclaration()
	case c.match(scanner.TokFunc):
		c.funcDeclaration()
	case c.match(scanner.TokClass):
		c.classDeclaration()
	default:
		c.statement()
	}
	if c.panicking {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.TokIf):
		c.ifStatement()
	case c.match(scanner.TokWhile):
		c.whileStatement()
	case c.match(scanner.TokFor):
		c.forStatement()
	case c.match(scanner.TokReturn):
		c.returnStatement()
	case c.match(scanner.TokBreak):
		c.breakStatement()
	case c.match(scanner.TokContinue):
		c.continueStatement()
	case c.match(scanner.TokAssert):
		c.assertStatement()
	case c.match(scanner.TokLBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(scanner.TokRBrace) && !c.check(scanner.TokEOF) {
		c.declaration()
	}
	c.consume(scanner.TokRBrace, "expect '}' after block")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(scanner.TokSemicolon, "expect ';' after expression")
	c.emitOp(value.OpPop)
}

func (c *Compiler) letDeclaration() {
	c.consume(scanner.TokIdentifier, "expect variable name")
	name := c.prev.Lexeme
	nameConst := c.identifierConstant(name)
	c.declareLocal(name)

	if c.match(scanner.TokEq) {
		c.expression()
	} else {
		c.emitOp(value.OpNil)
	}
	c.consume(scanner.TokSemicolon, "expect ';' after variable declaration")
	c.defineVariable(nameConst)
}

func (c *Compiler) defineVariable(nameConst int) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitConstantOp(value.OpDefineGlobal, value.OpDefineGlobalLong, nameConst)
}

func (c *Compiler) ifStatement() {
	c.consume(scanner.TokLParen, "expect '(' after 'if'")
	c.expression()
	c.consume(scanner.TokRParen, "expect ')' after condition")

	thenJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()

	elseJump := c.emitJump(value.OpJump)
	c.patchJump(thenJump)
	c.emitOp(value.OpPop)

	if c.match(scanner.TokElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(scanner.TokLParen, "expect '(' after 'while'")
	c.expression()
	c.consume(scanner.TokRParen, "expect ')' after condition")

	exitJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)

	lp := &loopCtx{enclosing: c.fn.loop, continueAt: loopStart, depth: c.fn.scopeDepth}
	c.fn.loop = lp

	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(value.OpPop)

	for _, j := range lp.breakJumps {
		c.patchJump(j)
	}
	c.fn.loop = lp.enclosing
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(scanner.TokLParen, "expect '(' after 'for'")

	loopVarStart := len(c.fn.locals)
	switch {
	case c.match(scanner.TokSemicolon):
		// no initializer clause
	case c.match(scanner.TokLet):
		c.letDeclaration()
	default:
		c.expressionStatement()
	}
	loopVarNames := make([]string, len(c.fn.locals)-loopVarStart)
	for i, l := range c.fn.locals[loopVarStart:] {
		loopVarNames[i] = l.name
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(scanner.TokSemicolon) {
		c.expression()
		c.consume(scanner.TokSemicolon, "expect ';' after loop condition")
		exitJump = c.emitJump(value.OpJumpIfFalse)
		c.emitOp(value.OpPop)
	}

	if !c.check(scanner.TokRParen) {
		bodyJump := c.emitJump(value.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(value.OpPop)
		c.consume(scanner.TokRParen, "expect ')' after for clauses")
		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.consume(scanner.TokRParen, "expect ')' after for clauses")
	}

	lp := &loopCtx{enclosing: c.fn.loop, continueAt: loopStart, depth: c.fn.scopeDepth}
	if len(loopVarNames) > 0 {
		lp.continueCopyBack = func() { c.copyIterationVarsBack(loopVarStart, len(loopVarNames)) }
	}
	c.fn.loop = lp

	// Each iteration gets a fresh scope holding its own copy of the
	// loop-control variable(s), so a CLOSURE op inside the body captures a
	// distinct Upvalue per iteration instead of reusing one still-open
	// upvalue at the same stack slot across all of them (spec.md's
	// end-to-end closures-over-loop-variables scenario). The copy is
	// written back to the outer slot after the body runs so the increment
	// and condition clauses — which only ever reference the outer slot —
	// still see any mutation the body made to the loop variable.
	if len(loopVarNames) > 0 {
		c.beginIterationScope(loopVarStart, loopVarNames)
		c.statement()
		c.copyIterationVarsBack(loopVarStart, len(loopVarNames))
		c.endScope()
	} else {
		c.statement()
	}
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(value.OpPop)
	}
	for _, j := range lp.breakJumps {
		c.patchJump(j)
	}
	c.fn.loop = lp.enclosing

	c.endScope()
}

// beginIterationScope opens the per-iteration shadow scope for a for-loop's
// loop-control variable(s): each one is redeclared as a fresh local in the
// new scope, initialized from its outer-scope counterpart at outerStart.
func (c *Compiler) beginIterationScope(outerStart int, names []string) {
	c.beginScope()
	for i, name := range names {
		c.declareLocal(name)
		c.emitConstantOp(value.OpGetLocal, value.OpGetLocalLong, outerStart+i)
		c.markInitialized()
	}
}

// copyIterationVarsBack writes the n per-iteration shadow locals (declared
// immediately after the n outer locals starting at outerStart) back to
// their outer slots, so this iteration's possible mutations are visible to
// the loop's condition/increment clauses and to the next iteration's copy.
func (c *Compiler) copyIterationVarsBack(outerStart, n int) {
	shadowStart := outerStart + n
	for i := 0; i < n; i++ {
		c.emitConstantOp(value.OpGetLocal, value.OpGetLocalLong, shadowStart+i)
		c.emitConstantOp(value.OpSetLocal, value.OpSetLocalLong, outerStart+i)
		c.emitOp(value.OpPop)
	}
}

func (c *Compiler) returnStatement() {
	if c.fn.funcType == TypeScript {
		c.error("cannot return from top-level code")
	}
	if c.match(scanner.TokSemicolon) {
		c.emitReturn()
		return
	}
	if c.fn.funcType == TypeInitializer {
		c.error("cannot return a value from an initializer")
	}
	c.expression()
	c.consume(scanner.TokSemicolon, "expect ';' after return value")
	c.emitOp(value.OpReturn)
}

func (c *Compiler) breakStatement() {
	if c.fn.loop == nil {
		c.error("cannot use 'break' outside a loop")
	} else {
		c.popLocalsTo(c.fn.loop.depth)
		j := c.emitJump(value.OpJump)
		c.fn.loop.breakJumps = append(c.fn.loop.breakJumps, j)
	}
	c.consume(scanner.TokSemicolon, "expect ';' after 'break'")
}

func (c *Compiler) continueStatement() {
	if c.fn.loop == nil {
		c.error("cannot use 'continue' outside a loop")
	} else {
		if c.fn.loop.continueCopyBack != nil {
			c.fn.loop.continueCopyBack()
		}
		c.popLocalsTo(c.fn.loop.depth)
		c.emitLoop(c.fn.loop.continueAt)
	}
	c.consume(scanner.TokSemicolon, "expect ';' after 'continue'")
}

// popLocalsTo emits the POP/CLOSE_UPVALUE instructions for every local
// declared deeper than depth, without touching the compiler's local
// list — used by break/continue, which jump out of a scope that will
// still be closed normally by its own endScope on the straight-line path.
func (c *Compiler) popLocalsTo(depth int) {
	for i := len(c.fn.locals) - 1; i >= 0 && c.fn.locals[i].depth > depth; i-- {
		if c.fn.locals[i].isCaptured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
	}
}

func (c *Compiler) assertStatement() {
	row, col := c.prev.Row, c.prev.Col
	c.expression()
	if c.match(scanner.TokComma) {
		c.expression()
		c.consume(scanner.TokSemicolon, "expect ';' after assert message")
		c.emitOp(value.OpAssertMsg)
	} else {
		c.consume(scanner.TokSemicolon, "expect ';' after assert condition")
		c.emitOp(value.OpAssert)
	}
	c.emitAssertLocation(row, col)
}

// --- functions, methods, classes ---

func (c *Compiler) addSyntheticLocal(name string) {
	c.declareLocal(name)
	c.markInitialized()
}

func (c *Compiler) funcDeclaration() {
	c.consume(scanner.TokIdentifier, "expect function name")
	name := c.prev.Lexeme
	nameConst := c.identifierConstant(name)
	c.declareLocal(name)
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
	}
	c.functionBody(TypeFunction, name)
	c.defineVariable(nameConst)
}

// functionBody compiles a parameter list and body into a fresh nested
// function compiler, then emits CLOSURE (+ upvalue pairs) into the
// enclosing chunk, leaving the closure value on the enclosing stack.
func (c *Compiler) functionBody(ft FuncType, name string) {
	parent := c.fn

	var fnName *value.String
	if name != "" {
		fnName = c.heap.Intern(name)
	}
	fn := c.heap.NewFunction(fnName, c.path, c.globals)

	fs := &funcState{enclosing: parent, function: fn, funcType: ft}
	if ft == TypeMethod || ft == TypeInitializer {
		fs.locals = append(fs.locals, local{name: "self", depth: 0})
	} else {
		fs.locals = append(fs.locals, local{name: "", depth: 0})
	}
	c.fn = fs
	c.beginScope()

	c.consume(scanner.TokLParen, "expect '(' after function name")
	if !c.check(scanner.TokRParen) {
		for {
			if c.fn.function.Arity >= 255 {
				c.errorAtCurrent("cannot have more than 255 parameters")
			}
			c.consume(scanner.TokIdentifier, "expect parameter name")
			paramName := c.prev.Lexeme
			isVarargs := false
			if c.match(scanner.TokLBracket) {
				c.consume(scanner.TokRBracket, "expect ']' after varargs parameter")
				isVarargs = true
			}
			c.fn.function.Arity++
			c.declareLocal(paramName)
			c.markInitialized()
			if isVarargs {
				if !c.check(scanner.TokRParen) {
					c.error("varargs parameter must be last")
				}
				c.fn.function.HasVarargs = true
			}
			if !c.match(scanner.TokComma) {
				break
			}
		}
	}
	c.consume(scanner.TokRParen, "expect ')' after parameters")
	c.consume(scanner.TokLBrace, "expect '{' before function body")
	c.block()
	c.emitReturn()

	compiled := c.fn.function
	upvals := c.fn.upvalues
	c.fn = parent

	idx := c.makeConstant(value.FromObj(compiled))
	if idx > 0xFF {
		c.error("too many constants in enclosing function")
	}
	c.emitOp(value.OpClosure)
	c.emitByte(byte(idx))
	for _, uv := range upvals {
		if uv.IsLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(byte(uv.Index))
	}
}

func (c *Compiler) method() {
	if c.match(scanner.TokOperator) {
		sym, isUnary := c.parseOperatorSymbol()
		name := overloadName(sym, isUnary)
		if name == "" {
			c.error("not an overloadable operator")
			return
		}
		nameConst := c.makeConstant(value.FromObj(c.heap.Intern(name)))
		c.functionBody(TypeMethod, name)
		c.emitConstantOp(value.OpMethod, value.OpMethodLong, nameConst)
		return
	}
	c.consume(scanner.TokFunc, "expect 'func' or 'operator' in class body")
	c.consume(scanner.TokIdentifier, "expect method name")
	name := c.prev.Lexeme
	nameConst := c.identifierConstant(name)
	ft := TypeMethod
	if name == "init" {
		ft = TypeInitializer
	}
	c.functionBody(ft, name)
	c.emitConstantOp(value.OpMethod, value.OpMethodLong, nameConst)
}

// parseOperatorSymbol consumes the operator token(s) following
// `operator` (and an optional leading `unary` keyword), returning the
// canonical symbol text and whether it was declared unary.
func (c *Compiler) parseOperatorSymbol() (string, bool) {
	isUnary := c.match(scanner.TokUnary)

	switch {
	case c.match(scanner.TokEqEq):
		return "==", isUnary
	case c.match(scanner.TokGreaterEq):
		return ">=", isUnary
	case c.match(scanner.TokGreater):
		return ">", isUnary
	case c.match(scanner.TokLessEq):
		return "<=", isUnary
	case c.match(scanner.TokLess):
		return "<", isUnary
	case c.match(scanner.TokPlus):
		return "+", isUnary
	case c.match(scanner.TokMinus):
		return "-", isUnary
	case c.match(scanner.TokStar):
		return "*", isUnary
	case c.match(scanner.TokSlash):
		return "/", isUnary
	case c.match(scanner.TokPercent):
		return "%", isUnary
	case c.match(scanner.TokCaret):
		return "^", isUnary
	case c.match(scanner.TokPipe):
		return "|", isUnary
	case c.match(scanner.TokAmp):
		return "&", isUnary
	case c.match(scanner.TokTilde):
		return "~", isUnary
	case c.match(scanner.TokBang):
		return "!", isUnary
	case c.match(scanner.TokLBracket):
		sym := "[]"
		if c.match(scanner.TokColon) {
			c.consume(scanner.TokRBracket, "expect ']' after '[:'")
			sym = "[:]"
		} else {
			c.consume(scanner.TokRBracket, "expect ']' after '['")
		}
		if c.match(scanner.TokEq) {
			sym += "="
		}
		return sym, isUnary
	}
	c.errorAtCurrent("expect an overloadable operator")
	return "", isUnary
}

func (c *Compiler) classDeclaration() {
	c.consume(scanner.TokIdentifier, "expect class name")
	className := c.prev.Lexeme
	nameConst := c.identifierConstant(className)
	c.declareLocal(className)
	c.emitConstantOp(value.OpClass, value.OpClassLong, nameConst)
	c.defineVariable(nameConst)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(scanner.TokColon) {
		c.consume(scanner.TokIdentifier, "expect superclass name")
		superName := c.prev.Lexeme
		if superName == className {
			c.error("a class cannot inherit from itself")
		}
		c.namedVariable(superName, false)

		c.beginScope()
		c.addSyntheticLocal("super")

		c.namedVariable(className, false)
		c.emitOp(value.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(scanner.TokLBrace, "expect '{' before class body")
	for !c.check(scanner.TokRBrace) && !c.check(scanner.TokEOF) {
		c.method()
	}
	c.consume(scanner.TokRBrace, "expect '}' after class body")
	c.emitOp(value.OpPop)

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}
