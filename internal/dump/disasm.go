/*
 * minijvm - a minimal Java Virtual Machine
 */

// Package dump renders a parsed class file -- constant pool, fields,
// methods, and method bytecode -- as a styled terminal report.
package dump

import (
	"fmt"

	"minijvm/internal/interp"
)

// Instruction is one decoded bytecode instruction within a disassembly
// listing: its offset, mnemonic, and raw operand bytes (left
// unintepreted; Text already renders the common cases read from
// them).
type Instruction struct {
	PC       int
	Opcode   byte
	Mnemonic string
	Operands []byte
	Text     string
}

// fixedOperandWidth gives the operand byte count for every opcode
// whose width doesn't depend on alignment or a variable-length table.
// wide-prefixed widths are not modeled here -- Disassemble widens
// locals-index operands to 2 bytes itself when it sees a preceding
// wide byte.
var fixedOperandWidth = map[byte]int{
	0x10: 1, 0x11: 2, 0x12: 1, 0x13: 2, 0x14: 2,
	0x15: 1, 0x16: 1, 0x17: 1, 0x18: 1, 0x19: 1,
	0x36: 1, 0x37: 1, 0x38: 1, 0x39: 1, 0x3a: 1,
	0x84: 2,
	0x99: 2, 0x9a: 2, 0x9b: 2, 0x9c: 2, 0x9d: 2, 0x9e: 2,
	0x9f: 2, 0xa0: 2, 0xa1: 2, 0xa2: 2, 0xa3: 2, 0xa4: 2, 0xa5: 2, 0xa6: 2,
	0xa7: 2, 0xa8: 2, 0xa9: 1,
	0xb2: 2, 0xb3: 2, 0xb4: 2, 0xb5: 2,
	0xb6: 2, 0xb7: 2, 0xb8: 2, 0xb9: 4, 0xba: 4,
	0xbb: 2, 0xbc: 1, 0xbd: 2, 0xc0: 2, 0xc1: 2,
	0xc5: 3, 0xc6: 2, 0xc7: 2, 0xc8: 4, 0xc9: 4,
}

// Disassemble decodes code into a linear instruction listing. It does
// not evaluate branch targets or execute anything -- it exists purely
// to drive the dump report, so it tolerates (and labels) any byte
// sequence that doesn't parse as a known opcode width.
func Disassemble(code []byte) []Instruction {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		start := pc
		op := code[pc]
		pc++

		wide := false
		if op == 0xc4 { // wide
			wide = true
			if pc >= len(code) {
				out = append(out, Instruction{PC: start, Opcode: op, Mnemonic: "wide", Text: "wide (truncated)"})
				break
			}
			op = code[pc]
			pc++
		}

		width, known := fixedOperandWidth[op]
		switch {
		case op == 0xaa: // tableswitch
			pad := (4 - (pc % 4)) % 4
			pc += pad
			if pc+12 > len(code) {
				pc = len(code)
				break
			}
			low := be4(code[pc+4:])
			high := be4(code[pc+8:])
			n := int(high - low + 1)
			width = 12 + 4*maxInt(n, 0)
		case op == 0xab: // lookupswitch
			pad := (4 - (pc % 4)) % 4
			pc += pad
			if pc+8 > len(code) {
				pc = len(code)
				break
			}
			npairs := int(be4(code[pc+4:]))
			width = 8 + 8*maxInt(npairs, 0)
		case wide && (op == 0x84):
			width = 4 // wide iinc: index(2) + const(2)
		case wide:
			width = 2 // wide iload/istore/etc: index(2)
		case !known:
			width = 0
		}

		end := pc + width
		if end > len(code) {
			end = len(code)
		}
		operands := code[pc:end]
		pc = end

		instr := Instruction{PC: start, Opcode: op, Mnemonic: interp.OpName(op), Operands: operands}
		instr.Text = renderText(instr, wide)
		out = append(out, instr)
	}
	return out
}

func renderText(i Instruction, wide bool) string {
	switch len(i.Operands) {
	case 0:
		return i.Mnemonic
	case 1:
		return fmt.Sprintf("%s %d", i.Mnemonic, int8(i.Operands[0]))
	case 2:
		if wide {
			return fmt.Sprintf("%s %d", i.Mnemonic, be2u(i.Operands))
		}
		return fmt.Sprintf("%s %d", i.Mnemonic, int16(be2u(i.Operands)))
	default:
		return fmt.Sprintf("%s <%d operand bytes>", i.Mnemonic, len(i.Operands))
	}
}

func be2u(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func be4(b []byte) int32 {
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
