/*
 * minijvm - a minimal Java Virtual Machine
 */

package dump

import (
	"strings"
	"testing"

	"minijvm/internal/interp"
)

func TestDisassemble_FixedWidthOperands(t *testing.T) {
	code := []byte{
		0x10, 5, // bipush 5
		0xb1, // return
	}
	instrs := Disassemble(code)
	if len(instrs) != 2 {
		t.Fatalf("len = %d, want 2", len(instrs))
	}
	if instrs[0].Mnemonic != "bipush" || instrs[0].PC != 0 {
		t.Errorf("instrs[0] = %+v", instrs[0])
	}
	if instrs[1].Mnemonic != "return" || instrs[1].PC != 2 {
		t.Errorf("instrs[1] = %+v", instrs[1])
	}
}

func TestDisassemble_TableswitchAlignsAndSpansEntries(t *testing.T) {
	// tableswitch at pc=1 (one leading nop), so padding brings it to pc=4.
	code := []byte{
		0x00, // nop
		0xaa, // tableswitch -- opcode consumed at pc=2, needs 2 padding bytes to reach pc=4
		0, 0,
		0, 0, 0, 10, // default offset = 10
		0, 0, 0, 0, // low = 0
		0, 0, 0, 1, // high = 1
		0, 0, 0, 20, // jump table entry 0
		0, 0, 0, 30, // jump table entry 1
	}
	instrs := Disassemble(code)
	if len(instrs) != 2 {
		t.Fatalf("len = %d, want 2 (nop, tableswitch), got %d", len(instrs), len(instrs))
	}
	if instrs[1].Mnemonic != "tableswitch" {
		t.Errorf("mnemonic = %q", instrs[1].Mnemonic)
	}
}

func TestOpName_UnknownFallsBackToHex(t *testing.T) {
	name := interp.OpName(0xfe)
	if !strings.HasPrefix(name, "unknown_0x") {
		t.Errorf("OpName(0xfe) = %q", name)
	}
}
