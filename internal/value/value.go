/*
 * minijvm - a minimal Java Virtual Machine
 */

// Package value implements the tagged runtime value union the
// interpreter operates on: primitives, object references and arrays,
// together with the arithmetic the bytecode arithmetic opcodes need.
package value

import (
	"errors"
	"fmt"
	"math"

	"minijvm/internal/jtype"
)

// ErrDivideByZero is raised by integer division/remainder by zero, the
// one arithmetic condition the JVM spec requires to be a catchable
// ArithmeticException rather than undefined behavior.
var ErrDivideByZero = errors.New("java.lang.ArithmeticException: / by zero")

// Value is a single JVM-level runtime value: exactly one of the
// primitive fields is meaningful, chosen by Tag, except for Arr and
// Obj which hold a reference instead of an inline payload.
type Value struct {
	Tag jtype.Tag

	I int64   // holds B, C, I, J, S, Z (Z as 0/1)
	F float32 // holds F
	D float64 // holds D
	S string  // holds R (interned string payload)

	Arr *Array
	Obj *Object
}

// Array is a fixed-length, homogeneously-typed JVM array. Elements
// start zero-valued for the element's type, matching JVM array
// creation semantics (newarray/anewarray never leave slots undefined).
type Array struct {
	ElemType jtype.Tag
	Elems    []Value
}

// NewArray allocates an array of n elements of the given element type,
// each zero-initialized.
func NewArray(elemType jtype.Tag, n int) *Array {
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = Zero(elemType)
	}
	return &Array{ElemType: elemType, Elems: elems}
}

// Len reports the array's length.
func (a *Array) Len() int { return len(a.Elems) }

// Get returns element i, bounds-checked.
func (a *Array) Get(i int) (Value, error) {
	if i < 0 || i >= len(a.Elems) {
		return Value{}, fmt.Errorf("java.lang.ArrayIndexOutOfBoundsException: index %d out of bounds for length %d", i, len(a.Elems))
	}
	return a.Elems[i], nil
}

// Set stores v at element i, bounds-checked.
func (a *Array) Set(i int, v Value) error {
	if i < 0 || i >= len(a.Elems) {
		return fmt.Errorf("java.lang.ArrayIndexOutOfBoundsException: index %d out of bounds for length %d", i, len(a.Elems))
	}
	a.Elems[i] = v
	return nil
}

// Field is one slot of an Object's field map: the JVM type tag the
// slot was declared with, plus the current value. Mirrors the
// teacher's object.Field{Ftype, Fvalue} shape.
type Field struct {
	Ftype jtype.Tag
	Fval  Value
}

// Object is a reference-type instance: a class name plus a field map
// keyed by field (constant-pool name_index-derived) name. There is no
// inheritance walk: every field, whichever class declares it, lives in
// the one map, which starts empty and gains an entry the first time
// SetField stores that field.
type Object struct {
	ClassName string
	Fields    map[string]*Field
}

// NewObject allocates an empty instance of the named class.
func NewObject(className string) *Object {
	return &Object{ClassName: className, Fields: make(map[string]*Field)}
}

// GetField returns the current value of a field, or the zero Value and
// false if the field was never declared.
func (o *Object) GetField(name string) (Value, bool) {
	f, ok := o.Fields[name]
	if !ok {
		return Value{}, false
	}
	return f.Fval, true
}

// SetField stores v into field name, declaring it with type t if it
// does not already exist.
func (o *Object) SetField(name string, t jtype.Tag, v Value) {
	f, ok := o.Fields[name]
	if !ok {
		f = &Field{Ftype: t}
		o.Fields[name] = f
	}
	f.Fval = v
}

// Zero returns the default value for a primitive or reference tag:
// numeric zero, false, or null for references/arrays/strings.
func Zero(t jtype.Tag) Value { return Value{Tag: t} }

// Int constructs an int-category value (used for B, C, I, S, Z as well
// as I itself; the category-1 integer types all share this representation
// and are distinguished only by Tag for display/conversion purposes).
func Int(t jtype.Tag, v int64) Value { return Value{Tag: t, I: v} }

// Long constructs a long (J) value.
func Long(v int64) Value { return Value{Tag: jtype.Long, I: v} }

// Float constructs a float (F) value.
func Float(v float32) Value { return Value{Tag: jtype.Float, F: v} }

// Double constructs a double (D) value.
func Double(v float64) Value { return Value{Tag: jtype.Double, D: v} }

// Bool constructs a boolean (Z) value, stored as 0/1 in the int slot
// per JVM convention (booleans are ints at the bytecode level).
func Bool(b bool) Value {
	if b {
		return Value{Tag: jtype.Boolean, I: 1}
	}
	return Value{Tag: jtype.Boolean, I: 0}
}

// Str constructs an interned-string (R) value.
func Str(s string) Value { return Value{Tag: jtype.String, S: s} }

// Ref wraps an object handle as an L-tagged reference value. A nil obj
// represents Java null.
func Ref(obj *Object) Value { return Value{Tag: jtype.Ref, Obj: obj} }

// RefArray wraps an array handle as an L-tagged reference value.
func RefArray(a *Array) Value { return Value{Tag: jtype.Ref, Arr: a} }

// IsNull reports whether v is a null reference (an L-tagged value with
// neither an object nor an array attached).
func (v Value) IsNull() bool {
	return v.Tag == jtype.Ref && v.Obj == nil && v.Arr == nil
}

// IsArray reports whether v references an array.
func (v Value) IsArray() bool { return v.Tag == jtype.Ref && v.Arr != nil }

// IsReference reports whether v is of reference category: L, R, or an
// array (arrays are themselves L-tagged handles).
func (v Value) IsReference() bool {
	return v.Tag == jtype.Ref || v.Tag == jtype.String
}

// Category reports the JVM slot width of v's type: 2 for long/double,
// 1 otherwise.
func (v Value) Category() int { return jtype.Category(v.Tag) }

// Add returns a + b. Byte, char, short and boolean operands are
// treated as int; after that both operands must share a Tag.
func Add(a, b Value) (Value, error) { return binaryNumeric(a, b, "add") }

// Sub returns a - b.
func Sub(a, b Value) (Value, error) { return binaryNumeric(a, b, "sub") }

// Mul returns a * b.
func Mul(a, b Value) (Value, error) { return binaryNumeric(a, b, "mul") }

// Div returns a / b. Integer division by zero returns ErrDivideByZero;
// floating-point division by zero follows IEEE-754 (yielding Inf/NaN).
func Div(a, b Value) (Value, error) { return binaryNumeric(a, b, "div") }

// Rem returns a % b (Java remainder semantics: result has the sign of
// the dividend).
func Rem(a, b Value) (Value, error) { return binaryNumeric(a, b, "rem") }

// intOperand widens a byte, char, short or boolean value to int, the
// type the JVM's int arithmetic opcodes compute in.
func intOperand(v Value) Value {
	switch v.Tag {
	case jtype.Byte, jtype.Char, jtype.Short, jtype.Boolean:
		v.Tag = jtype.Int
	}
	return v
}

func binaryNumeric(a, b Value, op string) (Value, error) {
	a, b = intOperand(a), intOperand(b)
	if a.Tag != b.Tag {
		return Value{}, fmt.Errorf("value: mismatched operand tags %s and %s for %s", a.Tag, b.Tag, op)
	}
	switch a.Tag {
	case jtype.Int, jtype.Long:
		return intOp(a, b, op)
	case jtype.Float:
		return floatOp(a, b, op)
	case jtype.Double:
		return doubleOp(a, b, op)
	default:
		return Value{}, fmt.Errorf("value: %s is not a numeric type for %s", a.Tag, op)
	}
}

func intOp(a, b Value, op string) (Value, error) {
	var r int64
	switch op {
	case "add":
		r = a.I + b.I
	case "sub":
		r = a.I - b.I
	case "mul":
		r = a.I * b.I
	case "div":
		if b.I == 0 {
			return Value{}, ErrDivideByZero
		}
		r = a.I / b.I
	case "rem":
		if b.I == 0 {
			return Value{}, ErrDivideByZero
		}
		r = a.I % b.I
	default:
		return Value{}, fmt.Errorf("value: unknown op %q", op)
	}
	if a.Tag == jtype.Int {
		r = int64(int32(r))
	}
	return Value{Tag: a.Tag, I: r}, nil
}

func floatOp(a, b Value, op string) (Value, error) {
	switch op {
	case "add":
		return Value{Tag: jtype.Float, F: a.F + b.F}, nil
	case "sub":
		return Value{Tag: jtype.Float, F: a.F - b.F}, nil
	case "mul":
		return Value{Tag: jtype.Float, F: a.F * b.F}, nil
	case "div":
		return Value{Tag: jtype.Float, F: a.F / b.F}, nil
	case "rem":
		return Value{Tag: jtype.Float, F: float32(math.Mod(float64(a.F), float64(b.F)))}, nil
	}
	return Value{}, fmt.Errorf("value: unknown op %q", op)
}

func doubleOp(a, b Value, op string) (Value, error) {
	switch op {
	case "add":
		return Value{Tag: jtype.Double, D: a.D + b.D}, nil
	case "sub":
		return Value{Tag: jtype.Double, D: a.D - b.D}, nil
	case "mul":
		return Value{Tag: jtype.Double, D: a.D * b.D}, nil
	case "div":
		return Value{Tag: jtype.Double, D: a.D / b.D}, nil
	case "rem":
		return Value{Tag: jtype.Double, D: math.Mod(a.D, b.D)}, nil
	}
	return Value{}, fmt.Errorf("value: unknown op %q", op)
}

// And returns a & b. Defined for I and J only.
func And(a, b Value) (Value, error) { return bitwise(a, b, "and") }

// Or returns a | b.
func Or(a, b Value) (Value, error) { return bitwise(a, b, "or") }

// Xor returns a ^ b.
func Xor(a, b Value) (Value, error) { return bitwise(a, b, "xor") }

func bitwise(a, b Value, op string) (Value, error) {
	a, b = intOperand(a), intOperand(b)
	if a.Tag != b.Tag || (a.Tag != jtype.Int && a.Tag != jtype.Long) {
		return Value{}, fmt.Errorf("value: bitwise %s requires matching int/long operands, got %s/%s", op, a.Tag, b.Tag)
	}
	switch op {
	case "and":
		return Value{Tag: a.Tag, I: a.I & b.I}, nil
	case "or":
		return Value{Tag: a.Tag, I: a.I | b.I}, nil
	case "xor":
		return Value{Tag: a.Tag, I: a.I ^ b.I}, nil
	}
	return Value{}, fmt.Errorf("value: unknown bitwise op %q", op)
}

// Negate returns 0 - v for numeric v.
func Negate(v Value) (Value, error) {
	v = intOperand(v)
	switch v.Tag {
	case jtype.Int:
		return Value{Tag: jtype.Int, I: int64(int32(-v.I))}, nil
	case jtype.Long:
		return Value{Tag: jtype.Long, I: -v.I}, nil
	case jtype.Float:
		return Value{Tag: jtype.Float, F: -v.F}, nil
	case jtype.Double:
		return Value{Tag: jtype.Double, D: -v.D}, nil
	default:
		return Value{}, fmt.Errorf("value: %s cannot be negated", v.Tag)
	}
}
