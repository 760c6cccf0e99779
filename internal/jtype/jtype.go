// Package jtype holds the small set of type-tag constants shared by the
// constant pool, the value model, and the interpreter, so that none of
// those packages needs to redefine them.
package jtype

// Tag identifies the runtime type of a value, matching the descriptor
// letters used throughout the JVM class file format, plus R for a
// resolved string literal (the constant pool's String entries resolve
// to this, distinct from a general object reference L).
type Tag byte

const (
	Byte    Tag = 'B'
	Char    Tag = 'C'
	Double  Tag = 'D'
	Float   Tag = 'F'
	Int     Tag = 'I'
	Long    Tag = 'J'
	Short   Tag = 'S'
	Boolean Tag = 'Z'
	Ref     Tag = 'L'
	String  Tag = 'R'
)

func (t Tag) String() string {
	switch t {
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Double:
		return "double"
	case Float:
		return "float"
	case Int:
		return "int"
	case Long:
		return "long"
	case Short:
		return "short"
	case Boolean:
		return "boolean"
	case Ref:
		return "reference"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Category returns the JVM's slot-width category for a type tag: 2 for
// the wide primitives (double, long), 1 for everything else. Category
// governs how many consecutive operand-stack or local-variable slots a
// value of this type occupies.
func Category(t Tag) int {
	if t == Double || t == Long {
		return 2
	}
	return 1
}

// FromFieldDescriptor maps the first character of a field descriptor
// (e.g. "I", "Ljava/lang/String;", "[I") to its runtime type tag. Array
// and object descriptors both resolve to Ref; the caller distinguishes
// arrays via the value's own IsArray predicate.
func FromFieldDescriptor(desc string) Tag {
	if desc == "" {
		return Ref
	}
	switch desc[0] {
	case 'B':
		return Byte
	case 'C':
		return Char
	case 'D':
		return Double
	case 'F':
		return Float
	case 'I':
		return Int
	case 'J':
		return Long
	case 'S':
		return Short
	case 'Z':
		return Boolean
	case 'L', '[':
		return Ref
	default:
		return Ref
	}
}
