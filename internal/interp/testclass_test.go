/*
 * minijvm - a minimal Java Virtual Machine
 */

package interp

import (
	"bytes"
	"encoding/binary"
	"math"
)

// cpBuilder assembles a constant pool byte stream by hand, the same
// way classfile's own test builder does, so full synthetic class
// files can be constructed here without exporting classfile's
// internals.
type cpBuilder struct {
	buf   bytes.Buffer
	count uint16
}

func newCPBuilder() *cpBuilder { return &cpBuilder{count: 1} }

func (b *cpBuilder) u1(v byte) { b.buf.WriteByte(v) }
func (b *cpBuilder) u2(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
}
func (b *cpBuilder) u4(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
}
func (b *cpBuilder) u8(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
}

func (b *cpBuilder) utf8(s string) uint16 {
	b.u1(1)
	b.u2(uint16(len(s)))
	b.buf.WriteString(s)
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) class(nameIdx uint16) uint16 {
	b.u1(7)
	b.u2(nameIdx)
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) nameAndType(nameIdx, descIdx uint16) uint16 {
	b.u1(12)
	b.u2(nameIdx)
	b.u2(descIdx)
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) methodref(classIdx, natIdx uint16) uint16 {
	b.u1(10)
	b.u2(classIdx)
	b.u2(natIdx)
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) fieldref(classIdx, natIdx uint16) uint16 {
	b.u1(9)
	b.u2(classIdx)
	b.u2(natIdx)
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) str(utfIdx uint16) uint16 {
	b.u1(8)
	b.u2(utfIdx)
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) integer(v int32) uint16 {
	b.u1(3)
	b.u4(uint32(v))
	idx := b.count
	b.count++
	return idx
}
func (b *cpBuilder) long(v int64) uint16 {
	b.u1(5)
	b.u8(uint64(v))
	idx := b.count
	b.count += 2
	return idx
}
func (b *cpBuilder) double(v float64) uint16 {
	b.u1(6)
	b.u8(math.Float64bits(v))
	idx := b.count
	b.count += 2
	return idx
}

// methodRefTo builds the (class, name, descriptor) triple of constant
// pool entries for an external method reference in one call.
func (b *cpBuilder) methodRefTo(className, name, desc string) uint16 {
	cn := b.utf8(className)
	c := b.class(cn)
	n := b.utf8(name)
	d := b.utf8(desc)
	nat := b.nameAndType(n, d)
	return b.methodref(c, nat)
}

func (b *cpBuilder) fieldRefTo(className, name, desc string) uint16 {
	cn := b.utf8(className)
	c := b.class(cn)
	n := b.utf8(name)
	d := b.utf8(desc)
	nat := b.nameAndType(n, d)
	return b.fieldref(c, nat)
}

// classSpec describes the single class a test builds: one class, one
// superclass name, and one static main method whose Code attribute is
// the given bytecode.
type classSpec struct {
	thisName   string
	superName  string
	mainCode   []byte
	maxStack   uint16
	maxLocals  uint16
}

func buildClass(b *cpBuilder, spec classSpec) []byte {
	thisNameIdx := b.utf8(spec.thisName)
	thisClass := b.class(thisNameIdx)
	superNameIdx := b.utf8(spec.superName)
	superClass := b.class(superNameIdx)
	mainName := b.utf8("main")
	mainDesc := b.utf8("([Ljava/lang/String;)V")
	codeName := b.utf8("Code")

	var out bytes.Buffer
	w2 := func(v uint16) {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		out.Write(tmp[:])
	}
	w4 := func(v uint32) {
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], v)
		out.Write(tmp[:])
	}

	w4(0xCAFEBABE)
	w2(0)
	w2(52)

	w2(b.count)
	out.Write(b.buf.Bytes())

	w2(0x0021) // ACC_PUBLIC | ACC_SUPER
	w2(thisClass)
	w2(superClass)
	w2(0) // interfaces
	w2(0) // fields

	w2(1) // methods_count
	w2(0x0009) // ACC_PUBLIC | ACC_STATIC
	w2(mainName)
	w2(mainDesc)
	w2(1) // method attribute count
	w2(codeName)

	var code bytes.Buffer
	cw2 := func(v uint16) {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		code.Write(tmp[:])
	}
	cw4 := func(v uint32) {
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], v)
		code.Write(tmp[:])
	}
	cw2(spec.maxStack)
	cw2(spec.maxLocals)
	cw4(uint32(len(spec.mainCode)))
	code.Write(spec.mainCode)
	cw2(0) // exception table
	cw2(0) // nested attrs

	w4(uint32(code.Len()))
	out.Write(code.Bytes())

	w2(0) // class attrs

	return out.Bytes()
}

// buildClassWithExtraMethod is buildClass plus one additional method
// (used by the call-depth guard test, which needs a method that calls
// itself by name).
func buildClassWithExtraMethod(b *cpBuilder, spec classSpec, extraName, extraDesc string, extraCode []byte, extraMaxStack, extraMaxLocals uint16) []byte {
	thisNameIdx := b.utf8(spec.thisName)
	thisClass := b.class(thisNameIdx)
	superNameIdx := b.utf8(spec.superName)
	superClass := b.class(superNameIdx)
	mainName := b.utf8("main")
	mainDesc := b.utf8("([Ljava/lang/String;)V")
	codeName := b.utf8("Code")
	extraNameIdx := b.utf8(extraName)
	extraDescIdx := b.utf8(extraDesc)

	var out bytes.Buffer
	w2 := func(v uint16) {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		out.Write(tmp[:])
	}
	w4 := func(v uint32) {
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], v)
		out.Write(tmp[:])
	}

	w4(0xCAFEBABE)
	w2(0)
	w2(52)

	w2(b.count)
	out.Write(b.buf.Bytes())

	w2(0x0021)
	w2(thisClass)
	w2(superClass)
	w2(0)
	w2(0)

	writeMethod := func(nameIdx, descIdx uint16, accessFlags uint16, maxStack, maxLocals uint16, methodCode []byte) {
		w2(accessFlags)
		w2(nameIdx)
		w2(descIdx)
		w2(1)
		w2(codeName)

		var code bytes.Buffer
		cw2 := func(v uint16) {
			var tmp [2]byte
			binary.BigEndian.PutUint16(tmp[:], v)
			code.Write(tmp[:])
		}
		cw4 := func(v uint32) {
			var tmp [4]byte
			binary.BigEndian.PutUint32(tmp[:], v)
			code.Write(tmp[:])
		}
		cw2(maxStack)
		cw2(maxLocals)
		cw4(uint32(len(methodCode)))
		code.Write(methodCode)
		cw2(0)
		cw2(0)

		w4(uint32(code.Len()))
		out.Write(code.Bytes())
	}

	w2(2) // methods_count
	writeMethod(mainName, mainDesc, 0x0009, spec.maxStack, spec.maxLocals, spec.mainCode)
	writeMethod(extraNameIdx, extraDescIdx, 0x0009, extraMaxStack, extraMaxLocals, extraCode)

	w2(0) // class attrs

	return out.Bytes()
}
