package compiler

import (
	"strconv"

	"github.com/xylia-lang/xylia/pkg/scanner"
	"github.com/xylia-lang/xylia/pkg/value"
)

// Prec is operator binding strength, low to high (spec.md §4.4).
type Prec int

const (
	PrecNone Prec = iota
	PrecAssignment
	PrecRange
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecBinOr
	PrecXor
	PrecBinAnd
	PrecShift
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
)

type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix parseFn
	infix  parseFn
	prec   Prec
}

var rules map[scanner.Kind]rule

func init() {
	rules = map[scanner.Kind]rule{
		scanner.TokLParen:   {prefix: grouping, infix: call, prec: PrecCall},
		scanner.TokDot:      {infix: dot, prec: PrecCall},
		scanner.TokLBracket: {prefix: listLiteral, infix: index, prec: PrecCall},
		scanner.TokLBrace:   {prefix: vectorLiteral},

		scanner.TokMinus: {prefix: unary, infix: binary, prec: PrecTerm},
		scanner.TokPlus:  {infix: binary, prec: PrecTerm},
		scanner.TokSlash: {infix: binary, prec: PrecFactor},
		scanner.TokStar:  {infix: binary, prec: PrecFactor},
		scanner.TokPercent: {infix: binary, prec: PrecFactor},

		scanner.TokBang:  {prefix: unary},
		scanner.TokTilde: {prefix: unary},
		scanner.TokDotDot: {prefix: spreadExpr},

		scanner.TokBangEq: {infix: binary, prec: PrecEquality},
		scanner.TokEqEq:   {infix: binary, prec: PrecEquality},

		scanner.TokGreater:   {infix: binary, prec: PrecComparison},
		scanner.TokGreaterEq: {infix: binary, prec: PrecComparison},
		scanner.TokLess:      {infix: binary, prec: PrecComparison},
		scanner.TokLessEq:    {infix: binary, prec: PrecComparison},

		scanner.TokPipe: {infix: binary, prec: PrecBinOr},
		scanner.TokCaret: {infix: binary, prec: PrecXor},
		scanner.TokAmp:  {infix: binary, prec: PrecBinAnd},
		scanner.TokShl:  {infix: binary, prec: PrecShift},
		scanner.TokShr:  {infix: binary, prec: PrecShift},

		scanner.TokAnd: {infix: andExpr, prec: PrecAnd},
		scanner.TokOr:  {infix: orExpr, prec: PrecOr},
		scanner.TokColon: {infix: rangeExpr, prec: PrecRange},

		scanner.TokTrue:  {prefix: literal},
		scanner.TokFalse: {prefix: literal},
		scanner.TokNil:   {prefix: literal},
		scanner.TokInteger: {prefix: literal},
		scanner.TokFloat:   {prefix: literal},
		scanner.TokString:  {prefix: literal},

		scanner.TokIdentifier: {prefix: variable},
		scanner.TokSelf:       {prefix: selfExpr},
		scanner.TokSuper:      {prefix: superExpr},
		scanner.TokFunc:       {prefix: funcExpr},
	}
}

func getRule(k scanner.Kind) rule { return rules[k] }

func (c *Compiler) parsePrecedence(p Prec) {
	c.advance()
	pr := getRule(c.prev.Kind)
	if pr.prefix == nil {
		c.error("expect expression")
		return
	}
	canAssign := p <= PrecAssignment
	pr.prefix(c, canAssign)

	for p <= getRule(c.cur.Kind).prec {
		c.advance()
		ir := getRule(c.prev.Kind)
		ir.infix(c, canAssign)
	}

	if canAssign && c.match(scanner.TokEq) {
		c.error("invalid assignment target")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// --- prefix rules ---

func grouping(c *Compiler, canAssign bool) {
	c.expression()
	c.consume(scanner.TokRParen, "expect ')' after expression")
}

func literal(c *Compiler, canAssign bool) {
	switch c.prev.Kind {
	case scanner.TokTrue:
		c.emitOp(value.OpTrue)
	case scanner.TokFalse:
		c.emitOp(value.OpFalse)
	case scanner.TokNil:
		c.emitOp(value.OpNil)
	case scanner.TokInteger:
		n, err := strconv.ParseInt(c.prev.Lexeme, 10, 64)
		if err != nil {
			c.error("invalid integer literal")
			return
		}
		c.emitConstant(value.Number(n))
	case scanner.TokFloat:
		f, err := strconv.ParseFloat(c.prev.Lexeme, 64)
		if err != nil {
			c.error("invalid float literal")
			return
		}
		c.emitConstant(value.Float(f))
	case scanner.TokString:
		s := c.heap.CopyString(c.prev.Literal, true)
		c.emitConstant(value.FromObj(s))
	}
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.prev.Lexeme, canAssign)
}

func selfExpr(c *Compiler, canAssign bool) {
	if c.class == nil {
		c.error("cannot use 'self' outside a class")
		return
	}
	c.namedVariable("self", false)
}

func superExpr(c *Compiler, canAssign bool) {
	if c.class == nil {
		c.error("cannot use 'super' outside a class")
	} else if !c.class.hasSuperclass {
		c.error("cannot use 'super' in a class with no superclass")
	}
	c.consume(scanner.TokDot, "expect '.' after 'super'")
	c.consume(scanner.TokIdentifier, "expect superclass method name")
	name := c.prev.Lexeme
	nameConst := c.identifierConstant(name)

	c.namedVariable("self", false)
	if c.match(scanner.TokLParen) {
		argc := c.argumentList()
		c.namedVariable("super", false)
		c.emitSuperInvoke(nameConst, argc)
		return
	}
	c.namedVariable("super", false)
	c.emitConstantOp(value.OpGetSuper, value.OpGetSuperLong, nameConst)
}

func funcExpr(c *Compiler, canAssign bool) {
	c.functionBody(TypeFunction, "")
}

func unary(c *Compiler, canAssign bool) {
	opKind := c.prev.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case scanner.TokMinus:
		c.emitOp(value.OpNeg)
	case scanner.TokBang:
		c.emitOp(value.OpLogNot)
	case scanner.TokTilde:
		c.emitOp(value.OpBitNot)
	}
}

func spreadExpr(c *Compiler, canAssign bool) {
	c.parsePrecedence(PrecUnary)
	c.emitOp(value.OpSpread)
}

func listLiteral(c *Compiler, canAssign bool) {
	n := 0
	if !c.check(scanner.TokRBracket) {
		for {
			c.expression()
			n++
			if !c.match(scanner.TokComma) {
				break
			}
		}
	}
	c.consume(scanner.TokRBracket, "expect ']' after list elements")
	c.emitConstantOp(value.OpList, value.OpListLong, n)
}

func vectorLiteral(c *Compiler, canAssign bool) {
	n := 0
	if !c.check(scanner.TokRBrace) {
		for {
			c.expression()
			n++
			if n > 255 {
				c.error("too many vector elements")
			}
			if !c.match(scanner.TokComma) {
				break
			}
		}
	}
	c.consume(scanner.TokRBrace, "expect '}' after vector elements")
	c.emitOp(value.OpVector)
	c.emitByte(byte(n))
}

// --- infix rules ---

func binary(c *Compiler, canAssign bool) {
	opKind := c.prev.Kind
	r := getRule(opKind)
	c.parsePrecedence(r.prec + 1)
	switch opKind {
	case scanner.TokPlus:
		c.emitOp(value.OpAdd)
	case scanner.TokMinus:
		c.emitOp(value.OpSub)
	case scanner.TokStar:
		c.emitOp(value.OpMul)
	case scanner.TokSlash:
		c.emitOp(value.OpDiv)
	case scanner.TokPercent:
		c.emitOp(value.OpMod)
	case scanner.TokCaret:
		c.emitOp(value.OpXor)
	case scanner.TokPipe:
		c.emitOp(value.OpBitOr)
	case scanner.TokAmp:
		c.emitOp(value.OpBitAnd)
	case scanner.TokShl:
		c.emitOp(value.OpShl)
	case scanner.TokShr:
		c.emitOp(value.OpShr)
	case scanner.TokEqEq:
		c.emitOp(value.OpEq)
	case scanner.TokBangEq:
		c.emitOps(value.OpEq, value.OpLogNot)
	case scanner.TokGreater:
		c.emitOp(value.OpGt)
	case scanner.TokGreaterEq:
		c.emitOp(value.OpGe)
	case scanner.TokLess:
		c.emitOp(value.OpLt)
	case scanner.TokLessEq:
		c.emitOp(value.OpLe)
	}
}

func andExpr(c *Compiler, canAssign bool) {
	endJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.parsePrecedence(PrecAnd + 1)
	c.patchJump(endJump)
}

func orExpr(c *Compiler, canAssign bool) {
	elseJump := c.emitJump(value.OpJumpIfFalse)
	endJump := c.emitJump(value.OpJump)
	c.patchJump(elseJump)
	c.emitOp(value.OpPop)
	c.parsePrecedence(PrecOr + 1)
	c.patchJump(endJump)
}

func rangeExpr(c *Compiler, canAssign bool) {
	c.parsePrecedence(PrecRange + 1)
	c.emitOp(value.OpRange)
}

func call(c *Compiler, canAssign bool) {
	argc := c.argumentList()
	c.emitOp(value.OpCall)
	c.emitByte(byte(argc))
}

func dot(c *Compiler, canAssign bool) {
	c.consume(scanner.TokIdentifier, "expect property name after '.'")
	name := c.prev.Lexeme
	nameConst := c.identifierConstant(name)

	switch {
	case canAssign && c.match(scanner.TokEq):
		c.expression()
		c.emitConstantOp(value.OpSetProperty, value.OpSetPropertyLong, nameConst)
	case c.match(scanner.TokLParen):
		argc := c.argumentList()
		c.emitInvoke(nameConst, argc)
	default:
		c.emitConstantOp(value.OpGetProperty, value.OpGetPropertyLong, nameConst)
	}
}

func index(c *Compiler, canAssign bool) {
	c.parsePrecedence(PrecOr)
	if c.match(scanner.TokColon) {
		c.expression()
		c.consume(scanner.TokRBracket, "expect ']' after slice")
		if canAssign && c.match(scanner.TokEq) {
			c.expression()
			c.emitOp(value.OpSetSlice)
		} else {
			c.emitOp(value.OpGetSlice)
		}
		return
	}
	c.consume(scanner.TokRBracket, "expect ']' after index")
	if canAssign && c.match(scanner.TokEq) {
		c.expression()
		c.emitOp(value.OpSetIndex)
	} else {
		c.emitOp(value.OpGetIndex)
	}
}

// --- shared helpers ---

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(scanner.TokRParen) {
		for {
			c.expression()
			if argc == 255 {
				c.error("cannot have more than 255 arguments")
			}
			argc++
			if !c.match(scanner.TokComma) {
				break
			}
		}
	}
	c.consume(scanner.TokRParen, "expect ')' after arguments")
	return argc
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, getOpL, setOp, setOpL value.Op
	var arg int

	if local := c.resolveLocal(c.fn, name); local != -1 {
		arg = local
		getOp, getOpL = value.OpGetLocal, value.OpGetLocalLong
		setOp, setOpL = value.OpSetLocal, value.OpSetLocalLong
	} else if up := c.resolveUpvalue(c.fn, name); up != -1 {
		arg = up
		getOp, getOpL = value.OpGetUpvalue, value.OpGetUpvalueLong
		setOp, setOpL = value.OpSetUpvalue, value.OpSetUpvalueLong
	} else {
		arg = c.identifierConstant(name)
		getOp, getOpL = value.OpGetGlobal, value.OpGetGlobalLong
		setOp, setOpL = value.OpSetGlobal, value.OpSetGlobalLong
	}

	if canAssign && c.match(scanner.TokEq) {
		c.expression()
		c.emitConstantOp(setOp, setOpL, arg)
		return
	}
	c.emitConstantOp(getOp, getOpL, arg)
}
