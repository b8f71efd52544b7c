package value

import (
	"fmt"
	"strings"
)

// Disassemble renders every instruction in the chunk under a header
// naming it, mirroring the teacher's pkg/bytecode/format.go but extended
// to the long/short operand pairs and the CLOSURE upvalue-pair operands
// this instruction set adds.
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		var line string
		line, offset = c.DisassembleInstruction(offset)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// DisassembleInstruction renders the instruction at offset and returns
// the offset of the next one.
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	row, col := c.SrcPos(offset)
	prefix := fmt.Sprintf("%04d %4d:%-3d ", offset, row, col)
	op := Op(c.Code[offset])

	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue,
		OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		idx := int(c.Code[offset+1])
		return prefix + constantLine(op, idx, c.Constants), offset + 2

	case OpConstantLong, OpDefineGlobalLong, OpGetGlobalLong, OpSetGlobalLong,
		OpGetLocalLong, OpSetLocalLong, OpGetUpvalueLong, OpSetUpvalueLong,
		OpGetPropertyLong, OpSetPropertyLong, OpGetSuperLong, OpClassLong, OpMethodLong:
		idx := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
		return prefix + constantLine(op, idx, c.Constants), offset + 4

	case OpInvoke, OpSuperInvoke:
		nameIdx := int(c.Code[offset+1])
		argc := int(c.Code[offset+2])
		return prefix + fmt.Sprintf("%-16s (%d args) %s", op, argc, constRepr(c.Constants, nameIdx)), offset + 3

	case OpInvokeLong, OpSuperInvokeLong:
		nameIdx := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
		argc := int(c.Code[offset+4])
		return prefix + fmt.Sprintf("%-16s (%d args) %s", op, argc, constRepr(c.Constants, nameIdx)), offset + 5

	case OpCall, OpVector:
		n := int(c.Code[offset+1])
		return prefix + fmt.Sprintf("%-16s %d", op, n), offset + 2

	case OpList:
		n := int(c.Code[offset+1])
		return prefix + fmt.Sprintf("%-16s %d", op, n), offset + 2

	case OpListLong:
		n := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
		return prefix + fmt.Sprintf("%-16s %d", op, n), offset + 4

	case OpJump, OpJumpIfFalse:
		hi, lo := c.Code[offset+1], c.Code[offset+2]
		jump := int(hi)<<8 | int(lo)
		return prefix + fmt.Sprintf("%-16s -> %d", op, offset+3+jump), offset + 3

	case OpLoop:
		hi, lo := c.Code[offset+1], c.Code[offset+2]
		jump := int(hi)<<8 | int(lo)
		return prefix + fmt.Sprintf("%-16s -> %d", op, offset+3-jump), offset + 3

	case OpClosure:
		idx := int(c.Code[offset+1])
		fnVal := c.Constants[idx]
		line := prefix + fmt.Sprintf("%-16s %s", op, constRepr(c.Constants, idx))
		next := offset + 2
		if fnVal.IsFunction() {
			fn := fnVal.AsFunction()
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := c.Code[next]
				index := c.Code[next+1]
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				line += fmt.Sprintf("\n%04d      |                     %s %d", next, kind, index)
				next += 2
			}
		}
		return line, next

	case OpAssert, OpAssertMsg:
		row2 := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		col2 := int(c.Code[offset+3])<<8 | int(c.Code[offset+4])
		pathIdx := int(c.Code[offset+5])<<16 | int(c.Code[offset+6])<<8 | int(c.Code[offset+7])
		return prefix + fmt.Sprintf("%-16s at %d:%d %s", op, row2, col2, constRepr(c.Constants, pathIdx)), offset + 8

	default:
		return prefix + op.String(), offset + 1
	}
}

func constantLine(op Op, idx int, constants []Value) string {
	return fmt.Sprintf("%-16s %s", op, constRepr(constants, idx))
}

func constRepr(constants []Value, idx int) string {
	if idx < 0 || idx >= len(constants) {
		return fmt.Sprintf("<const %d out of range>", idx)
	}
	return ToString(constants[idx], true)
}
