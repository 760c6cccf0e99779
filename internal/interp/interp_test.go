/*
 * minijvm - a minimal Java Virtual Machine
 */

package interp

import (
	"bytes"
	"strings"
	"testing"

	"minijvm/internal/classfile"
	"minijvm/internal/runtime"
)

func run(t *testing.T, b *cpBuilder, spec classSpec) (string, error) {
	t.Helper()
	data := buildClass(b, spec)
	cls, err := classfile.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var out bytes.Buffer
	bridge := runtime.New(&out)
	in := New(bridge, map[string]*classfile.Class{cls.ThisClass: cls})
	err = in.RunMain(cls)
	return out.String(), err
}

func TestScenario_HelloWorld(t *testing.T) {
	b := newCPBuilder()
	sysOut := b.fieldRefTo("java/lang/System", "out", "Ljava/io/PrintStream;")
	msg := b.utf8("Hello, World!")
	msgStr := b.str(msg)
	println := b.methodRefTo("java/io/PrintStream", "println", "(Ljava/lang/String;)V")

	code := []byte{
		0xb2, byte(sysOut >> 8), byte(sysOut), // getstatic
		0x12, byte(msgStr), // ldc
		0xb6, byte(println >> 8), byte(println), // invokevirtual
		0xb1, // return
	}

	out, err := run(t, b, classSpec{thisName: "HelloWorld", superName: "java/lang/Object", mainCode: code, maxStack: 2, maxLocals: 1})
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if out != "Hello, World!\n" {
		t.Errorf("stdout = %q, want %q", out, "Hello, World!\n")
	}
}

func TestScenario_IntArith(t *testing.T) {
	b := newCPBuilder()
	sysOut := b.fieldRefTo("java/lang/System", "out", "Ljava/io/PrintStream;")
	println := b.methodRefTo("java/io/PrintStream", "println", "(I)V")

	// System.out.println(1 + 2 * 3);
	code := []byte{
		0xb2, byte(sysOut >> 8), byte(sysOut), // getstatic
		0x04,       // iconst_1
		0x05,       // iconst_2
		0x06,       // iconst_3
		0x68,       // imul
		0x60,       // iadd
		0xb6, byte(println >> 8), byte(println), // invokevirtual
		0xb1, // return
	}

	out, err := run(t, b, classSpec{thisName: "IntArith", superName: "java/lang/Object", mainCode: code, maxStack: 4, maxLocals: 1})
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if out != "7\n" {
		t.Errorf("stdout = %q, want %q", out, "7\n")
	}
}

func TestScenario_DivByZero(t *testing.T) {
	b := newCPBuilder()
	code := []byte{
		0x04, // iconst_1
		0x03, // iconst_0
		0x6c, // idiv
		0x3c, // istore_1
		0xb1, // return
	}

	_, err := run(t, b, classSpec{thisName: "DivByZero", superName: "java/lang/Object", mainCode: code, maxStack: 2, maxLocals: 2})
	if err == nil || !strings.Contains(err.Error(), "ArithmeticException") {
		t.Errorf("expected ArithmeticException, got %v", err)
	}
}

func TestScenario_ArrayBounds(t *testing.T) {
	b := newCPBuilder()
	sysOut := b.fieldRefTo("java/lang/System", "out", "Ljava/io/PrintStream;")
	println := b.methodRefTo("java/io/PrintStream", "println", "(I)V")

	code := []byte{
		0x06,       // iconst_3
		0xbc, 10,   // newarray int (T_INT=10)
		0x4b,       // astore_0
		0xb2, byte(sysOut >> 8), byte(sysOut), // getstatic
		0x2a,       // aload_0
		0x08,       // iconst_5
		0x2e,       // iaload
		0xb6, byte(println >> 8), byte(println), // invokevirtual
		0xb1, // return
	}

	_, err := run(t, b, classSpec{thisName: "ArrayBounds", superName: "java/lang/Object", mainCode: code, maxStack: 4, maxLocals: 1})
	if err == nil || !strings.Contains(err.Error(), "ArrayIndexOutOfBoundsException") {
		t.Errorf("expected ArrayIndexOutOfBoundsException, got %v", err)
	}
}

func TestScenario_Loop(t *testing.T) {
	b := newCPBuilder()
	sysOut := b.fieldRefTo("java/lang/System", "out", "Ljava/io/PrintStream;")
	println := b.methodRefTo("java/io/PrintStream", "println", "(I)V")

	// int s=0; for(int i=0;i<10;i++) s+=i; println(s);
	// locals: 0=s, 1=i
	//
	// byte offsets:
	//  0: iconst_0   1: istore_0   2: iconst_0   3: istore_1
	//  4: iload_1 (loop start, L)
	//  5: bipush 10 (2 bytes: 5,6)
	//  7: if_icmpge hi lo (3 bytes: 7,8,9) -- target 20, offset = 20-7 = 13
	// 10: iload_0  11: iload_1  12: iadd  13: istore_0
	// 14: iinc 1 1 (3 bytes: 14,15,16)
	// 17: goto hi lo (3 bytes: 17,18,19) -- target L=4, offset = 4-17 = -13
	// 20: getstatic (exit)
	code := []byte{
		0x03, // iconst_0
		0x3b, // istore_0  (s=0)
		0x03, // iconst_0
		0x3c, // istore_1  (i=0)
		0x1b, // iload_1              -- offset 4 (L)
		0x10, 10, // bipush 10
		0xa2, 0x00, 13, // if_icmpge +13 -> exit at offset 20
		0x1a, // iload_0
		0x1b, // iload_1
		0x60, // iadd
		0x3b, // istore_0
		0x84, 1, 1, // iinc 1, 1
		0xa7, 0xff, 0xf3, // goto -13 -> back to L (offset 4)
		0xb2, byte(sysOut >> 8), byte(sysOut), // getstatic -- offset 20 (exit)
		0x1a, // iload_0
		0xb6, byte(println >> 8), byte(println), // invokevirtual
		0xb1, // return
	}

	out, err := run(t, b, classSpec{thisName: "Loop", superName: "java/lang/Object", mainCode: code, maxStack: 3, maxLocals: 2})
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if out != "45\n" {
		t.Errorf("stdout = %q, want %q", out, "45\n")
	}
}

func TestScenario_DoubleCmp(t *testing.T) {
	b := newCPBuilder()
	sysOut := b.fieldRefTo("java/lang/System", "out", "Ljava/io/PrintStream;")
	println := b.methodRefTo("java/io/PrintStream", "println", "(D)V")
	d1 := b.double(1.5)
	d2 := b.double(2.25)

	code := []byte{
		0xb2, byte(sysOut >> 8), byte(sysOut), // getstatic
		0x14, byte(d1 >> 8), byte(d1), // ldc2_w
		0x14, byte(d2 >> 8), byte(d2), // ldc2_w
		0x63,       // dadd
		0xb6, byte(println >> 8), byte(println), // invokevirtual
		0xb1, // return
	}

	out, err := run(t, b, classSpec{thisName: "DoubleCmp", superName: "java/lang/Object", mainCode: code, maxStack: 4, maxLocals: 1})
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if out != "3.75\n" {
		t.Errorf("stdout = %q, want %q", out, "3.75\n")
	}
}

func TestCallDepthGuard(t *testing.T) {
	// A static method that calls itself unconditionally must eventually
	// trip the StackOverflowError guard rather than recurse forever.
	b := newCPBuilder()
	thisName := b.utf8("Deep")
	thisClass := b.class(thisName)
	recurseName := b.utf8("recurse")
	recurseDesc := b.utf8("()V")
	nat := b.nameAndType(recurseName, recurseDesc)
	self := b.methodref(thisClass, nat)

	code := []byte{
		0xb8, byte(self >> 8), byte(self), // invokestatic recurse
		0xb1, // return
	}

	data := buildClassWithExtraMethod(b, classSpec{thisName: "Deep", superName: "java/lang/Object", mainCode: code, maxStack: 1, maxLocals: 0}, "recurse", "()V", code, 1, 0)
	cls, err := classfile.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var out bytes.Buffer
	bridge := runtime.New(&out)
	in := New(bridge, map[string]*classfile.Class{cls.ThisClass: cls})
	in.MaxCallDepth = 50
	err = in.RunMain(cls)
	if err == nil || !strings.Contains(err.Error(), "StackOverflowError") {
		t.Errorf("expected StackOverflowError, got %v", err)
	}
}
