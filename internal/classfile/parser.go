/*
 * minijvm - a minimal Java Virtual Machine
 */

package classfile

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"minijvm/internal/mlog"
)

const magicNumber = 0xCAFEBABE

// AccessFlags is a bitmask of class/field/method access and property
// flags. There is a single underlying type for all three, as in the
// class file format itself; the meaning of each bit depends on
// context (class vs. field vs. method).
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }

// Attribute is a generic, unparsed class/field/method/Code attribute:
// a name (resolved from the constant pool) plus its raw body. Only
// "Code" attributes are interpreted further, into CodeAttribute; every
// other attribute (Exceptions, LineNumberTable, SourceFile,
// Signature, Deprecated, ...) is retained verbatim so a future
// consumer (the dump pretty-printer, or a stack-trace renderer) can
// read it without the parser needing to special-case every attribute
// kind up front.
type Attribute struct {
	Name string
	Data []byte
}

// ExceptionTableEntry is one row of a Code attribute's exception
// table. minijvm retains it (per spec §3.3) but the interpreter does
// not consult it: there is no athrow unwinding.
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute is the parsed body of a method's "Code" attribute.
type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

// Field is a parsed field_info structure.
type Field struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Attributes  []Attribute
}

// Method is a parsed method_info structure, with its Code attribute
// (if any -- abstract and native methods have none) pulled out for
// direct access by the interpreter.
type Method struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Attributes  []Attribute
	Code        *CodeAttribute
}

// IsMain reports whether this method matches the JVM entry point
// contract: a static method named "main" with descriptor
// "([Ljava/lang/String;)V".
func (m *Method) IsMain() bool {
	return m.Name == "main" && m.Descriptor == "([Ljava/lang/String;)V" && m.AccessFlags.Has(AccStatic)
}

// Class is a fully parsed and resolved class file.
type Class struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	Pool         *Pool
	AccessFlags  AccessFlags
	ThisClass    string
	SuperClass   string // "" for java/lang/Object
	Interfaces   []string
	Fields       []*Field
	Methods      []*Method
	Attributes   []Attribute
	SourceFile   string
}

// Method looks up a method by name and descriptor, returning nil if
// absent.
func (c *Class) Method(name, descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// Main returns the class's main([Ljava/lang/String;)V method, or nil.
func (c *Class) Main() *Method {
	for _, m := range c.Methods {
		if m.IsMain() {
			return m
		}
	}
	return nil
}

// Load reads a .class file from disk and parses it. Every non-empty
// file is mapped read-only with edsrzf/mmap-go (mirroring saferwall-pe's
// file.go, which maps PE images the same way) and copied out of the
// mapping; os.ReadFile is used only when the mapping fails. mmap.Map
// rejects zero-length files, so an empty file is parsed as an empty
// image without being mapped.
func Load(path string) (*Class, error) {
	_ = mlog.Log("loading class file: "+path, mlog.Fine)
	f, err := os.Open(path)
	if err != nil {
		_ = mlog.Log(fmt.Sprintf("error loading class file %s: %v", path, err), mlog.Severe)
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var data []byte
	if info.Size() == 0 {
		data = nil
	} else {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			data, err = os.ReadFile(path)
			if err != nil {
				return nil, err
			}
		} else {
			defer m.Unmap()
			data = make([]byte, len(m))
			copy(data, m)
		}
	}

	cls, err := Parse(data)
	if err != nil {
		_ = mlog.Log(fmt.Sprintf("error parsing class file %s: %v", path, err), mlog.Severe)
	}
	return cls, err
}

// Parse decodes a class file image already held in memory.
func Parse(data []byte) (*Class, error) {
	r := NewReader(data)

	magic, err := r.U4()
	if err != nil {
		return nil, err
	}
	if magic != magicNumber {
		return nil, cfe(ErrBadMagic, "expected 0xCAFEBABE")
	}

	minor, err := r.U2()
	if err != nil {
		return nil, err
	}
	major, err := r.U2()
	if err != nil {
		return nil, err
	}

	pool, err := ParsePool(r)
	if err != nil {
		return nil, err
	}

	accessFlags, err := r.U2()
	if err != nil {
		return nil, err
	}

	thisClassIdx, err := r.U2()
	if err != nil {
		return nil, err
	}
	thisClassName, err := pool.NameByIndex(int(thisClassIdx))
	if err != nil {
		return nil, err
	}

	superClassIdx, err := r.U2()
	if err != nil {
		return nil, err
	}
	var superClassName string
	if superClassIdx != 0 {
		superClassName, err = pool.NameByIndex(int(superClassIdx))
		if err != nil {
			return nil, err
		}
	}

	ifaceCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, 0, ifaceCount)
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.U2()
		if err != nil {
			return nil, err
		}
		name, err := pool.NameByIndex(int(idx))
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, name)
	}

	fields, err := parseFields(r, pool)
	if err != nil {
		return nil, err
	}

	methods, err := parseMethods(r, pool)
	if err != nil {
		return nil, err
	}

	classAttrs, err := parseAttributes(r, pool)
	if err != nil {
		return nil, err
	}

	c := &Class{
		Magic:        magic,
		MinorVersion: minor,
		MajorVersion: major,
		Pool:         pool,
		AccessFlags:  AccessFlags(accessFlags),
		ThisClass:    thisClassName,
		SuperClass:   superClassName,
		Interfaces:   interfaces,
		Fields:       fields,
		Methods:      methods,
		Attributes:   classAttrs,
	}
	for _, a := range classAttrs {
		if a.Name == "SourceFile" && len(a.Data) == 2 {
			if sf, err := pool.Utf8(int(uint16(a.Data[0])<<8 | uint16(a.Data[1]))); err == nil {
				c.SourceFile = sf
			}
		}
	}
	return c, nil
}

func parseFields(r *Reader, pool *Pool) ([]*Field, error) {
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	fields := make([]*Field, 0, count)
	for i := 0; i < int(count); i++ {
		af, err := r.U2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return nil, err
		}
		desc, err := pool.Utf8(int(descIdx))
		if err != nil {
			return nil, err
		}
		attrs, err := parseAttributes(r, pool)
		if err != nil {
			return nil, err
		}
		fields = append(fields, &Field{
			AccessFlags: AccessFlags(af),
			Name:        name,
			Descriptor:  desc,
			Attributes:  attrs,
		})
	}
	return fields, nil
}

func parseMethods(r *Reader, pool *Pool) ([]*Method, error) {
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	methods := make([]*Method, 0, count)
	for i := 0; i < int(count); i++ {
		af, err := r.U2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return nil, err
		}
		desc, err := pool.Utf8(int(descIdx))
		if err != nil {
			return nil, err
		}
		attrs, err := parseAttributes(r, pool)
		if err != nil {
			return nil, err
		}

		m := &Method{
			AccessFlags: AccessFlags(af),
			Name:        name,
			Descriptor:  desc,
			Attributes:  attrs,
		}
		for _, a := range attrs {
			if a.Name == "Code" {
				code, err := parseCodeAttribute(a.Data, pool)
				if err != nil {
					return nil, err
				}
				m.Code = code
			}
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// parseAttributes reads an attribute_count followed by that many
// (name_index, length, body) triples. It is used for class-level,
// field-level, method-level and (recursively, via parseCodeAttribute)
// Code-level attribute lists -- the class file format gives them all
// the same shape.
func parseAttributes(r *Reader, pool *Pool) ([]Attribute, error) {
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := r.U2()
		if err != nil {
			return nil, err
		}
		length, err := r.U4()
		if err != nil {
			return nil, err
		}
		body, err := r.Bytes(int(length))
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{Name: name, Data: append([]byte(nil), body...)})
	}
	return attrs, nil
}

// parseCodeAttribute decodes the body of a "Code" attribute, whose raw
// bytes were already sliced out by parseAttributes. It runs a fresh
// Reader over just that slice so offsets it reports on error are
// relative to the attribute, matching how jacobin's classloader treats
// nested attribute bodies as independently-parsed sub-streams.
func parseCodeAttribute(body []byte, pool *Pool) (*CodeAttribute, error) {
	r := NewReader(body)

	maxStack, err := r.U2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := r.U2()
	if err != nil {
		return nil, err
	}
	codeLen, err := r.U4()
	if err != nil {
		return nil, err
	}
	code, err := r.Bytes(int(codeLen))
	if err != nil {
		return nil, err
	}

	excCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	exceptions := make([]ExceptionTableEntry, 0, excCount)
	for i := 0; i < int(excCount); i++ {
		startPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		endPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		handlerPC, err := r.U2()
		if err != nil {
			return nil, err
		}
		catchType, err := r.U2()
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, ExceptionTableEntry{
			StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType,
		})
	}

	nested, err := parseAttributes(r, pool)
	if err != nil {
		return nil, err
	}

	return &CodeAttribute{
		MaxStack:       maxStack,
		MaxLocals:      maxLocals,
		Code:           append([]byte(nil), code...),
		ExceptionTable: exceptions,
		Attributes:     nested,
	}, nil
}
