package compiler

import "github.com/xylia-lang/xylia/pkg/value"

// emit24 writes n as a big-endian 3-byte operand, the shape every
// long-form constant operand and the assert path index use.
func (c *Compiler) emit24(n int) {
	c.emitByte(byte(n >> 16))
	c.emitByte(byte(n >> 8))
	c.emitByte(byte(n))
}

// emitAssertLocation appends the location operand ASSERT/ASSERT_MSG read
// at runtime: a 2-byte row, a 2-byte col, then a 3-byte constant index
// naming the source path (spec.md §4.6.8).
func (c *Compiler) emitAssertLocation(row, col int) {
	c.emitByte(byte(row >> 8))
	c.emitByte(byte(row))
	c.emitByte(byte(col >> 8))
	c.emitByte(byte(col))
	pathIdx := c.makeConstant(value.FromObj(c.path))
	c.emit24(pathIdx)
}

func (c *Compiler) emitInvoke(nameConst, argc int) {
	if nameConst <= 0xFF {
		c.emitOp(value.OpInvoke)
		c.emitByte(byte(nameConst))
	} else {
		c.emitOp(value.OpInvokeLong)
		c.emit24(nameConst)
	}
	c.emitByte(byte(argc))
}

func (c *Compiler) emitSuperInvoke(nameConst, argc int) {
	if nameConst <= 0xFF {
		c.emitOp(value.OpSuperInvoke)
		c.emitByte(byte(nameConst))
	} else {
		c.emitOp(value.OpSuperInvokeLong)
		c.emit24(nameConst)
	}
	c.emitByte(byte(argc))
}

// overloadName maps an overloadable operator symbol (as produced by
// parseOperatorSymbol) to its well-known method name (spec.md §4.4).
func overloadName(sym string, unary bool) string {
	if unary {
		switch sym {
		case "-":
			return "__neg__"
		case "!":
			return "__log_not__"
		case "~":
			return "__bit_not__"
		}
		return ""
	}
	switch sym {
	case "==":
		return "__eq__"
	case ">":
		return "__gt__"
	case ">=":
		return "__ge__"
	case "<":
		return "__lt__"
	case "<=":
		return "__le__"
	case "+":
		return "__add__"
	case "-":
		return "__sub__"
	case "*":
		return "__mul__"
	case "/":
		return "__div__"
	case "%":
		return "__mod__"
	case "^":
		return "__xor__"
	case "|":
		return "__bit_or__"
	case "&":
		return "__bit_and__"
	case "[]":
		return "__get_index__"
	case "[]=":
		return "__set_index__"
	case "[:]":
		return "__get_slice__"
	case "[:]=":
		return "__set_slice__"
	}
	return ""
}
