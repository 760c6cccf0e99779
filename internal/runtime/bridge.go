/*
 * minijvm - a minimal Java Virtual Machine
 */

// Package runtime is the native method bridge: a registry, keyed by
// "class.name(descriptor)" (e.g. "java/lang/Object.<init>()V"), of Go functions that stand in for the
// small set of java.* methods the interpreter may call without a real
// class file backing them. The shape -- a map from fully qualified
// signature to a slot-count-plus-function record -- mirrors the
// teacher's gfunction package (javaLangThread.go, javaLangStringBuilder.go).
package runtime

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"minijvm/internal/jtype"
	"minijvm/internal/value"
)

// GFunc is a native method implementation. args holds the arguments in
// declared order (excluding the receiver for instance methods, which
// is passed separately via recv); it returns the method's result, or
// the zero Value and ok=false for a void method.
type GFunc func(b *Bridge, recv *value.Object, args []value.Value) (result value.Value, ok bool, err error)

// Entry pairs a native method with its argument count, one per
// argument with long and double included -- mirroring gfunction.GMeth's
// ParamSlots field. The interpreter does not read ParamSlots; it pops
// the arguments counted from the method descriptor.
type Entry struct {
	ParamSlots int
	Func       GFunc
}

// Bridge holds the native method table plus the single piece of mutable
// shared state the stubs need: the output stream println/print write
// to, and the one synthetic Thread object currentThread() returns.
type Bridge struct {
	Out        io.Writer
	mainThread *value.Object
	sbCounter  int
}

// New constructs a bridge writing println/print output to out.
func New(out io.Writer) *Bridge {
	b := &Bridge{Out: out}
	b.mainThread = value.NewObject("java/lang/Thread")
	b.mainThread.SetField("name", jtype.String, value.Str("main"))
	return b
}

// table is built lazily by registry() so method bodies can reference
// Bridge methods without an initialization-order dependency.
func (b *Bridge) registry() map[string]Entry {
	return map[string]Entry{
		"java/lang/Object.<init>()V": {
			ParamSlots: 0,
			Func:       objectInit,
		},
		"java/io/PrintStream.println(Ljava/lang/Object;)V": {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(Ljava/lang/String;)V": {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(I)V":                  {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(J)V":                  {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(F)V":                  {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(D)V":                  {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(Z)V":                  {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println(C)V":                  {ParamSlots: 1, Func: printlnAny},
		"java/io/PrintStream.println()V":                   {ParamSlots: 0, Func: printlnAny},
		"java/io/PrintStream.print(Ljava/lang/Object;)V":    {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(Ljava/lang/String;)V":    {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(I)V":                     {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(J)V":                     {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(F)V":                     {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(D)V":                     {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(Z)V":                     {ParamSlots: 1, Func: printAny},
		"java/io/PrintStream.print(C)V":                     {ParamSlots: 1, Func: printAny},

		"java/lang/StringBuilder.<init>()V":                         {ParamSlots: 0, Func: sbInit},
		"java/lang/StringBuilder.append(Ljava/lang/String;)Ljava/lang/StringBuilder;": {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.append(I)Ljava/lang/StringBuilder;":                  {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.append(J)Ljava/lang/StringBuilder;":                  {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.append(F)Ljava/lang/StringBuilder;":                  {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.append(D)Ljava/lang/StringBuilder;":                  {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.append(Z)Ljava/lang/StringBuilder;":                  {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.append(C)Ljava/lang/StringBuilder;":                  {ParamSlots: 1, Func: sbAppend},
		"java/lang/StringBuilder.toString()Ljava/lang/String;":                        {ParamSlots: 0, Func: sbToString},

		"java/lang/Thread.currentThread()Ljava/lang/Thread;": {ParamSlots: 0, Func: currentThread},
		"java/lang/Thread.getName()Ljava/lang/String;":        {ParamSlots: 0, Func: threadGetName},
	}
}

// Lookup returns the native method entry registered under key
// "class.name(descriptor)", and whether it exists.
func (b *Bridge) Lookup(className, name, descriptor string) (Entry, bool) {
	key := className + "." + name + descriptor
	e, ok := b.registry()[key]
	return e, ok
}

// Invoke dispatches a call by key; it is a convenience wrapper around
// Lookup for callers (tests, the interpreter) that already have the
// fully qualified signature at hand.
func (b *Bridge) Invoke(className, name, descriptor string, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	e, ok := b.Lookup(className, name, descriptor)
	if !ok {
		return value.Value{}, false, fmt.Errorf("runtime: unsupported native method %s.%s%s", className, name, descriptor)
	}
	return e.Func(b, recv, args)
}

func objectInit(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	return value.Value{}, false, nil
}

func renderArg(v value.Value) string {
	switch v.Tag {
	case jtype.Int, jtype.Short, jtype.Byte:
		return strconv.FormatInt(v.I, 10)
	case jtype.Long:
		return strconv.FormatInt(v.I, 10)
	case jtype.Char:
		return string(rune(v.I))
	case jtype.Boolean:
		return strconv.FormatBool(v.I != 0)
	case jtype.Float:
		return formatJavaFloat(strconv.FormatFloat(float64(v.F), 'g', -1, 32))
	case jtype.Double:
		return formatJavaFloat(strconv.FormatFloat(v.D, 'g', -1, 64))
	case jtype.String:
		return v.S
	case jtype.Ref:
		if v.IsNull() {
			return "null"
		}
		if v.IsArray() {
			return fmt.Sprintf("[array len=%d]", v.Arr.Len())
		}
		return v.Obj.ClassName
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatJavaFloat forces a trailing ".0" on whole-valued output, matching
// Double.toString/Float.toString, which never print a bare integer.
func formatJavaFloat(s string) string {
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

func printlnAny(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	if len(args) == 0 {
		fmt.Fprintln(b.Out)
		return value.Value{}, false, nil
	}
	fmt.Fprintln(b.Out, renderArg(args[0]))
	return value.Value{}, false, nil
}

func printAny(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	if len(args) == 0 {
		return value.Value{}, false, nil
	}
	fmt.Fprint(b.Out, renderArg(args[0]))
	return value.Value{}, false, nil
}

// sbInit, sbAppend and sbToString back java/lang/StringBuilder with a
// single mutable "value" field on the receiver object, enough to
// support the StringBuilder chain javac lowers string concatenation
// to. Real StringBuilder is far richer; this stand-in only needs to
// satisfy append-then-toString.
func sbInit(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	if recv != nil {
		recv.SetField("value", jtype.String, value.Str(""))
	}
	return value.Value{}, false, nil
}

func sbAppend(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	if recv == nil || len(args) == 0 {
		return value.Ref(recv), true, nil
	}
	cur, _ := recv.GetField("value")
	recv.SetField("value", jtype.String, value.Str(cur.S+renderArg(args[0])))
	return value.Ref(recv), true, nil
}

func sbToString(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	if recv == nil {
		return value.Str(""), true, nil
	}
	cur, _ := recv.GetField("value")
	return value.Str(cur.S), true, nil
}

func currentThread(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	return value.Ref(b.mainThread), true, nil
}

func threadGetName(b *Bridge, recv *value.Object, args []value.Value) (value.Value, bool, error) {
	if recv == nil {
		return value.Str(""), true, nil
	}
	name, _ := recv.GetField("name")
	return name, true, nil
}
