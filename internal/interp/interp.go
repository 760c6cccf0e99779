/*
 * minijvm - a minimal Java Virtual Machine
 */

// Package interp is the stack-machine bytecode interpreter: a
// fetch-decode-execute loop over a method's Code attribute, operating
// on the frame and value packages.
package interp

import (
	"errors"
	"fmt"
	"math"

	"minijvm/internal/classfile"
	"minijvm/internal/frame"
	"minijvm/internal/jtype"
	"minijvm/internal/mlog"
	"minijvm/internal/runtime"
	"minijvm/internal/value"
)

// DefaultMaxCallDepth is the frame-stack depth past which a recursive
// call is treated as a StackOverflowError rather than left to recurse
// the host Go call stack unboundedly, the way the original C++
// MethodExecuter.cpp relied on the native stack to do (§4.6).
const DefaultMaxCallDepth = 2048

// Interp runs one program's worth of bytecode: it owns the loaded
// classes, the native method bridge, and the single frame stack for
// the (single-threaded) thread of execution.
type Interp struct {
	Bridge       *runtime.Bridge
	Classes      map[string]*classfile.Class
	MaxCallDepth int
	Trace        bool

	frames  *frame.Stack
	statics map[string]value.Value
}

// New constructs an interpreter over the given class table (keyed by
// this_class name) and native bridge.
func New(bridge *runtime.Bridge, classes map[string]*classfile.Class) *Interp {
	return &Interp{
		Bridge:       bridge,
		Classes:      classes,
		MaxCallDepth: DefaultMaxCallDepth,
		frames:       frame.NewStack(),
		statics:      make(map[string]value.Value),
	}
}

// RunMain locates and executes class's main([Ljava/lang/String;)V
// method. It returns an error if execution aborts with a fatal
// condition (parse-adjacent errors don't occur here; those surface
// earlier, in classfile.Parse).
func (in *Interp) RunMain(class *classfile.Class) error {
	m := class.Main()
	if m == nil {
		return fmt.Errorf("interp: class %s has no main([Ljava/lang/String;)V method", class.ThisClass)
	}
	_, _, err := in.invokeUserMethod(class, m, nil)
	return err
}

// invokeUserMethod executes method's Code attribute in a fresh frame,
// seeded with args as the initial locals (the resolved call
// convention: consume nargs operands into fresh callee locals, never
// the caller's locals unconditionally -- see the Design Notes on
// invokespecial).
func (in *Interp) invokeUserMethod(class *classfile.Class, method *classfile.Method, args []value.Value) (value.Value, bool, error) {
	if method.Code == nil {
		return value.Value{}, false, fmt.Errorf("interp: %s.%s%s has no Code attribute (abstract/native)", class.ThisClass, method.Name, method.Descriptor)
	}
	if in.frames.Depth() >= in.MaxCallDepth {
		errMsg := fmt.Sprintf("java.lang.StackOverflowError: call depth exceeded %d", in.MaxCallDepth)
		_ = mlog.Log(errMsg, mlog.Severe)
		return value.Value{}, false, errors.New(errMsg)
	}
	if in.Trace {
		_ = mlog.Log(fmt.Sprintf("invoke %s.%s%s depth=%d", class.ThisClass, method.Name, method.Descriptor, in.frames.Depth()+1), mlog.TraceInst)
	}

	// A long or double argument takes two local indices, as javac
	// addresses them; the value sits at the lower one.
	slots := 0
	for _, a := range args {
		slots += a.Category()
	}
	maxLocals := int(method.Code.MaxLocals)
	if maxLocals < slots {
		maxLocals = slots
	}
	f := frame.New(class.ThisClass, method.Name, method.Descriptor, class.Pool, method.Code.Code, maxLocals, int(method.Code.MaxStack))
	slot := 0
	for _, a := range args {
		f.Locals[slot] = a
		slot += a.Category()
	}

	in.frames.Push(f)
	defer in.frames.Pop()

	return in.run(class, f)
}

// run is the fetch-decode-execute loop for a single frame.
func (in *Interp) run(class *classfile.Class, f *frame.Frame) (value.Value, bool, error) {
	for f.PC < len(f.Code) {
		start := f.PC
		op := f.Code[f.PC]
		f.PC++

		var wide bool
		if op == opWide {
			wide = true
			if f.PC >= len(f.Code) {
				return value.Value{}, false, fmt.Errorf("interp: truncated wide prefix at pc %d", start)
			}
			op = f.Code[f.PC]
			f.PC++
		}

		if in.Trace {
			_ = mlog.Log(fmt.Sprintf("%s.%s pc=%d op=0x%02x", class.ThisClass, f.MethName, start, op), mlog.TraceInst)
		}
		ret, hasRet, done, err := in.step(class, f, op, start, wide)
		if err != nil {
			return value.Value{}, false, err
		}
		if done {
			return ret, hasRet, nil
		}
	}
	return value.Value{}, false, nil
}

func (in *Interp) u1(f *frame.Frame) byte {
	b := f.Code[f.PC]
	f.PC++
	return b
}

func (in *Interp) u2(f *frame.Frame) int {
	hi, lo := f.Code[f.PC], f.Code[f.PC+1]
	f.PC += 2
	return int(hi)<<8 | int(lo)
}

func (in *Interp) s1(f *frame.Frame) int8 { return int8(in.u1(f)) }

func (in *Interp) s2(f *frame.Frame) int16 { return int16(in.u2(f)) }

func (in *Interp) s4(f *frame.Frame) int32 {
	a, b, c, d := f.Code[f.PC], f.Code[f.PC+1], f.Code[f.PC+2], f.Code[f.PC+3]
	f.PC += 4
	return int32(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// step executes exactly one opcode. It returns (result, hasResult,
// done, err): done is true when the opcode was a return, signaling run
// to stop; err is non-nil for any fatal condition (§7).
func (in *Interp) step(class *classfile.Class, f *frame.Frame, op byte, start int, wide bool) (value.Value, bool, bool, error) {
	switch op {
	case opNop:

	case opAconstNull:
		f.Push(value.Ref(nil))
	case opIconstM1, opIconst0, opIconst1, opIconst2, opIconst3, opIconst4, opIconst5:
		f.Push(value.Int(jtype.Int, int64(int(op)-int(opIconst0))))
	case opLconst0, opLconst1:
		f.Push(value.Long(int64(op - opLconst0)))
	case opFconst0, opFconst1, opFconst2:
		f.Push(value.Float(float32(op - opFconst0)))
	case opDconst0, opDconst1:
		f.Push(value.Double(float64(op - opDconst0)))
	case opBipush:
		f.Push(value.Int(jtype.Int, int64(in.s1(f))))
	case opSipush:
		f.Push(value.Int(jtype.Int, int64(in.s2(f))))
	case opLdc:
		if err := in.ldc(class, f, int(in.u1(f))); err != nil {
			return value.Value{}, false, false, err
		}
	case opLdcW:
		if err := in.ldc(class, f, in.u2(f)); err != nil {
			return value.Value{}, false, false, err
		}
	case opLdc2W:
		if err := in.ldc2(class, f, in.u2(f)); err != nil {
			return value.Value{}, false, false, err
		}

	case opIload, opLload, opFload, opDload, opAload:
		idx := in.loadIndex(f, wide)
		v, err := f.GetLocal(idx)
		if err != nil {
			return value.Value{}, false, false, err
		}
		f.Push(v)
	case opIload0, opIload1, opIload2, opIload3:
		return in.loadN(f, int(op-opIload0))
	case opLload0, opLload1, opLload2, opLload3:
		return in.loadN(f, int(op-opLload0))
	case opFload0, opFload1, opFload2, opFload3:
		return in.loadN(f, int(op-opFload0))
	case opDload0, opDload1, opDload2, opDload3:
		return in.loadN(f, int(op-opDload0))
	case opAload0, opAload1, opAload2, opAload3:
		return in.loadN(f, int(op-opAload0))

	case opIstore, opLstore, opFstore, opDstore, opAstore:
		idx := in.loadIndex(f, wide)
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		if err := f.SetLocal(idx, v); err != nil {
			return value.Value{}, false, false, err
		}
	case opIstore0, opIstore1, opIstore2, opIstore3:
		return in.storeN(f, int(op-opIstore0))
	case opLstore0, opLstore1, opLstore2, opLstore3:
		return in.storeN(f, int(op-opLstore0))
	case opFstore0, opFstore1, opFstore2, opFstore3:
		return in.storeN(f, int(op-opFstore0))
	case opDstore0, opDstore1, opDstore2, opDstore3:
		return in.storeN(f, int(op-opDstore0))
	case opAstore0, opAstore1, opAstore2, opAstore3:
		return in.storeN(f, int(op-opAstore0))

	case opIaload, opLaload, opFaload, opDaload, opAaload, opBaload, opCaload, opSaload:
		if err := in.arrayLoad(f); err != nil {
			return value.Value{}, false, false, err
		}
	case opIastore, opLastore, opFastore, opDastore, opAastore, opBastore, opCastore, opSastore:
		if err := in.arrayStore(f); err != nil {
			return value.Value{}, false, false, err
		}

	case opPop:
		if _, err := f.Pop(); err != nil {
			return value.Value{}, false, false, err
		}
	case opPop2:
		if _, err := f.Pop(); err != nil {
			return value.Value{}, false, false, err
		}
		if _, err := f.Pop(); err != nil {
			return value.Value{}, false, false, err
		}
	case opDup:
		v, err := f.Peek()
		if err != nil {
			return value.Value{}, false, false, err
		}
		f.Push(v)
	case opDupX1, opDupX2, opDup2, opDup2X1, opDup2X2:
		if err := in.dupVariant(f, op); err != nil {
			return value.Value{}, false, false, err
		}
	case opSwap:
		a, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		b, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		f.Push(a)
		f.Push(b)

	case opIadd, opLadd, opFadd, opDadd:
		if err := in.binOp(f, value.Add); err != nil {
			return value.Value{}, false, false, err
		}
	case opIsub, opLsub, opFsub, opDsub:
		if err := in.binOp(f, value.Sub); err != nil {
			return value.Value{}, false, false, err
		}
	case opImul, opLmul, opFmul, opDmul:
		if err := in.binOp(f, value.Mul); err != nil {
			return value.Value{}, false, false, err
		}
	case opIdiv, opLdiv, opFdiv, opDdiv:
		if err := in.binOp(f, value.Div); err != nil {
			return value.Value{}, false, false, err
		}
	case opIrem, opLrem, opFrem, opDrem:
		if err := in.binOp(f, value.Rem); err != nil {
			return value.Value{}, false, false, err
		}
	case opIneg, opLneg, opFneg, opDneg:
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		n, err := value.Negate(v)
		if err != nil {
			return value.Value{}, false, false, err
		}
		f.Push(n)

	case opIshl, opLshl, opIshr, opLshr, opIushr, opLushr:
		if err := in.shiftOp(f, op); err != nil {
			return value.Value{}, false, false, err
		}
	case opIand, opLand:
		if err := in.binOp(f, value.And); err != nil {
			return value.Value{}, false, false, err
		}
	case opIor, opLor:
		if err := in.binOp(f, value.Or); err != nil {
			return value.Value{}, false, false, err
		}
	case opIxor, opLxor:
		if err := in.binOp(f, value.Xor); err != nil {
			return value.Value{}, false, false, err
		}
	case opIinc:
		idx := in.loadIndex(f, wide)
		var delta int64
		if wide {
			delta = int64(in.s2(f))
		} else {
			delta = int64(in.s1(f))
		}
		v, err := f.GetLocal(idx)
		if err != nil {
			return value.Value{}, false, false, err
		}
		v.I = int64(int32(v.I + delta))
		if err := f.SetLocal(idx, v); err != nil {
			return value.Value{}, false, false, err
		}

	case opI2l, opI2f, opI2d, opL2i, opL2f, opL2d, opF2i, opF2l, opF2d, opD2i, opD2l, opD2f, opI2b, opI2c, opI2s:
		if err := in.convert(f, op); err != nil {
			return value.Value{}, false, false, err
		}

	case opLcmp, opFcmpl, opFcmpg, opDcmpl, opDcmpg:
		if err := in.compare(f, op); err != nil {
			return value.Value{}, false, false, err
		}

	case opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle:
		if err := in.ifZero(f, op, start); err != nil {
			return value.Value{}, false, false, err
		}
	case opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple:
		if err := in.ifICmp(f, op, start); err != nil {
			return value.Value{}, false, false, err
		}
	case opIfAcmpeq, opIfAcmpne:
		if err := in.ifACmp(f, op, start); err != nil {
			return value.Value{}, false, false, err
		}
	case opIfnull, opIfnonnull:
		if err := in.ifNull(f, op, start); err != nil {
			return value.Value{}, false, false, err
		}
	case opGoto:
		off := int(in.s2(f))
		f.PC = start + off
	case opGotoW:
		off := int(in.s4(f))
		f.PC = start + off
	case opJsr, opJsrW, opRet:
		// Deprecated control flow, unused by modern compilers; accepted
		// as a no-op per the Design Notes.
		if op == opJsr {
			in.s2(f)
		} else if op == opJsrW {
			in.s4(f)
		} else {
			in.loadIndex(f, wide)
		}

	case opTableswitch:
		if err := in.tableswitch(f, start); err != nil {
			return value.Value{}, false, false, err
		}
	case opLookupswitch:
		if err := in.lookupswitch(f, start); err != nil {
			return value.Value{}, false, false, err
		}

	case opNewarray:
		if err := in.newarray(f); err != nil {
			return value.Value{}, false, false, err
		}
	case opAnewarray:
		in.u2(f) // class index; element type is always a reference for our purposes
		n, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		if n.I < 0 {
			return value.Value{}, false, false, fmt.Errorf("java.lang.NegativeArraySizeException: %d", n.I)
		}
		f.Push(value.RefArray(value.NewArray(jtype.Ref, int(n.I))))
	case opMultianewarray:
		if err := in.multianewarray(f); err != nil {
			return value.Value{}, false, false, err
		}
	case opArraylength:
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		if v.IsNull() {
			return value.Value{}, false, false, fmt.Errorf("java.lang.NullPointerException: arraylength on null")
		}
		f.Push(value.Int(jtype.Int, int64(v.Arr.Len())))

	case opNew:
		idx := in.u2(f)
		className, err := class.Pool.NameByIndex(idx)
		if err != nil {
			return value.Value{}, false, false, err
		}
		f.Push(value.Ref(value.NewObject(className)))
	case opGetfield:
		if err := in.getfield(class, f); err != nil {
			return value.Value{}, false, false, err
		}
	case opPutfield:
		if err := in.putfield(class, f); err != nil {
			return value.Value{}, false, false, err
		}
	case opGetstatic:
		if err := in.getstatic(class, f); err != nil {
			return value.Value{}, false, false, err
		}
	case opPutstatic:
		if err := in.putstatic(class, f); err != nil {
			return value.Value{}, false, false, err
		}
	case opInstanceof:
		if err := in.instanceOf(class, f); err != nil {
			return value.Value{}, false, false, err
		}
	case opCheckcast:
		if err := in.checkcast(class, f); err != nil {
			return value.Value{}, false, false, err
		}

	case opInvokespecial, opInvokestatic, opInvokevirtual, opInvokeinterface:
		idx := in.u2(f)
		if op == opInvokeinterface {
			in.u1(f) // count
			in.u1(f) // reserved zero
		}
		ret, hasRet, err := in.invoke(class, f, op, idx)
		if err != nil {
			return value.Value{}, false, false, err
		}
		if hasRet {
			f.Push(ret)
		}
	case opInvokedynamic:
		return value.Value{}, false, false, fmt.Errorf("interp: invokedynamic is not supported")

	case opMonitorenter, opMonitorexit:
		if _, err := f.Pop(); err != nil {
			return value.Value{}, false, false, err
		}

	case opAthrow:
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		return value.Value{}, false, false, fmt.Errorf("uncaught exception: %s", describeThrowable(v))

	case opReturn:
		return value.Value{}, false, true, nil
	case opIreturn, opLreturn, opFreturn, opDreturn, opAreturn:
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, false, err
		}
		return v, true, true, nil

	case opWide:
		return value.Value{}, false, false, fmt.Errorf("interp: wide must prefix another opcode, got wide at pc %d", start)

	default:
		return value.Value{}, false, false, fmt.Errorf("interp: unimplemented opcode 0x%02x at pc %d", op, start)
	}

	return value.Value{}, false, false, nil
}

func (in *Interp) loadIndex(f *frame.Frame, wide bool) int {
	if wide {
		return in.u2(f)
	}
	return int(in.u1(f))
}

func (in *Interp) loadN(f *frame.Frame, idx int) (value.Value, bool, bool, error) {
	v, err := f.GetLocal(idx)
	if err != nil {
		return value.Value{}, false, false, err
	}
	f.Push(v)
	return value.Value{}, false, false, nil
}

func (in *Interp) storeN(f *frame.Frame, idx int) (value.Value, bool, bool, error) {
	v, err := f.Pop()
	if err != nil {
		return value.Value{}, false, false, err
	}
	if err := f.SetLocal(idx, v); err != nil {
		return value.Value{}, false, false, err
	}
	return value.Value{}, false, false, nil
}

func (in *Interp) binOp(f *frame.Frame, op func(a, b value.Value) (value.Value, error)) error {
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	r, err := op(a, b)
	if err != nil {
		return err
	}
	f.Push(r)
	return nil
}

func (in *Interp) shiftOp(f *frame.Frame, op byte) error {
	shiftVal, err := f.Pop()
	if err != nil {
		return err
	}
	v, err := f.Pop()
	if err != nil {
		return err
	}
	switch op {
	case opIshl:
		f.Push(value.Int(jtype.Int, int64(int32(v.I)<<(uint(shiftVal.I)&0x1F))))
	case opIshr:
		f.Push(value.Int(jtype.Int, int64(int32(v.I)>>(uint(shiftVal.I)&0x1F))))
	case opIushr:
		f.Push(value.Int(jtype.Int, int64(uint32(v.I)>>(uint(shiftVal.I)&0x1F))))
	case opLshl:
		f.Push(value.Long(v.I << (uint(shiftVal.I) & 0x3F)))
	case opLshr:
		f.Push(value.Long(v.I >> (uint(shiftVal.I) & 0x3F)))
	case opLushr:
		f.Push(value.Long(int64(uint64(v.I) >> (uint(shiftVal.I) & 0x3F))))
	}
	return nil
}

func (in *Interp) convert(f *frame.Frame, op byte) error {
	v, err := f.Pop()
	if err != nil {
		return err
	}
	switch op {
	case opI2l:
		f.Push(value.Long(v.I))
	case opI2f:
		f.Push(value.Float(float32(v.I)))
	case opI2d:
		f.Push(value.Double(float64(v.I)))
	case opL2i:
		f.Push(value.Int(jtype.Int, int64(int32(v.I))))
	case opL2f:
		f.Push(value.Float(float32(v.I)))
	case opL2d:
		f.Push(value.Double(float64(v.I)))
	case opF2i:
		f.Push(value.Int(jtype.Int, int64(int32(v.F))))
	case opF2l:
		f.Push(value.Long(int64(v.F)))
	case opF2d:
		f.Push(value.Double(float64(v.F)))
	case opD2i:
		f.Push(value.Int(jtype.Int, int64(int32(v.D))))
	case opD2l:
		f.Push(value.Long(int64(v.D)))
	case opD2f:
		f.Push(value.Float(float32(v.D)))
	case opI2b:
		f.Push(value.Int(jtype.Byte, int64(int8(v.I))))
	case opI2c:
		f.Push(value.Int(jtype.Char, int64(uint16(v.I))))
	case opI2s:
		f.Push(value.Int(jtype.Short, int64(int16(v.I))))
	}
	return nil
}

// compare implements lcmp/fcmpl/fcmpg/dcmpl/dcmpg, producing -1/0/1.
// NaN is checked first, per the resolved Design Notes open question
// (the original source checked ordered comparisons before NaN, making
// the NaN arm unreachable): fcmpg/dcmpg yield 1 on NaN, fcmpl/dcmpl
// yield -1.
func (in *Interp) compare(f *frame.Frame, op byte) error {
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	switch op {
	case opLcmp:
		f.Push(value.Int(jtype.Int, int64(cmp3(a.I, b.I))))
	case opFcmpl, opFcmpg:
		if math.IsNaN(float64(a.F)) || math.IsNaN(float64(b.F)) {
			if op == opFcmpg {
				f.Push(value.Int(jtype.Int, 1))
			} else {
				f.Push(value.Int(jtype.Int, -1))
			}
			return nil
		}
		f.Push(value.Int(jtype.Int, int64(cmp3f(float64(a.F), float64(b.F)))))
	case opDcmpl, opDcmpg:
		if math.IsNaN(a.D) || math.IsNaN(b.D) {
			if op == opDcmpg {
				f.Push(value.Int(jtype.Int, 1))
			} else {
				f.Push(value.Int(jtype.Int, -1))
			}
			return nil
		}
		f.Push(value.Int(jtype.Int, int64(cmp3f(a.D, b.D))))
	}
	return nil
}

func cmp3(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmp3f(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (in *Interp) ifZero(f *frame.Frame, op byte, start int) error {
	off := int(in.s2(f))
	v, err := f.Pop()
	if err != nil {
		return err
	}
	take := false
	switch op {
	case opIfeq:
		take = v.I == 0
	case opIfne:
		take = v.I != 0
	case opIflt:
		take = v.I < 0
	case opIfge:
		take = v.I >= 0
	case opIfgt:
		take = v.I > 0
	case opIfle:
		take = v.I <= 0
	}
	if take {
		f.PC = start + off
	}
	return nil
}

func (in *Interp) ifICmp(f *frame.Frame, op byte, start int) error {
	off := int(in.s2(f))
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	take := false
	switch op {
	case opIfIcmpeq:
		take = a.I == b.I
	case opIfIcmpne:
		take = a.I != b.I
	case opIfIcmplt:
		take = a.I < b.I
	case opIfIcmpge:
		take = a.I >= b.I
	case opIfIcmpgt:
		take = a.I > b.I
	case opIfIcmple:
		take = a.I <= b.I
	}
	if take {
		f.PC = start + off
	}
	return nil
}

func (in *Interp) ifACmp(f *frame.Frame, op byte, start int) error {
	off := int(in.s2(f))
	b, err := f.Pop()
	if err != nil {
		return err
	}
	a, err := f.Pop()
	if err != nil {
		return err
	}
	eq := sameReference(a, b)
	take := eq
	if op == opIfAcmpne {
		take = !eq
	}
	if take {
		f.PC = start + off
	}
	return nil
}

func sameReference(a, b value.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Obj != nil || b.Obj != nil {
		return a.Obj == b.Obj
	}
	return a.Arr == b.Arr
}

func (in *Interp) ifNull(f *frame.Frame, op byte, start int) error {
	off := int(in.s2(f))
	v, err := f.Pop()
	if err != nil {
		return err
	}
	take := v.IsNull()
	if op == opIfnonnull {
		take = !take
	}
	if take {
		f.PC = start + off
	}
	return nil
}

func (in *Interp) dupVariant(f *frame.Frame, op byte) error {
	switch op {
	case opDupX1:
		a, err := f.Pop()
		if err != nil {
			return err
		}
		b, err := f.Pop()
		if err != nil {
			return err
		}
		f.Push(a)
		f.Push(b)
		f.Push(a)
	case opDupX2:
		a, err := f.Pop()
		if err != nil {
			return err
		}
		b, err := f.Pop()
		if err != nil {
			return err
		}
		if b.Category() == 2 {
			f.Push(a)
			f.Push(b)
			f.Push(a)
			return nil
		}
		c, err := f.Pop()
		if err != nil {
			return err
		}
		f.Push(a)
		f.Push(c)
		f.Push(b)
		f.Push(a)
	case opDup2:
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if a.Category() == 2 {
			f.Push(a)
			f.Push(a)
			return nil
		}
		b, err := f.Pop()
		if err != nil {
			return err
		}
		f.Push(b)
		f.Push(a)
		f.Push(b)
		f.Push(a)
	case opDup2X1:
		a, err := f.Pop()
		if err != nil {
			return err
		}
		b, err := f.Pop()
		if err != nil {
			return err
		}
		if a.Category() == 2 {
			f.Push(a)
			f.Push(b)
			f.Push(a)
			return nil
		}
		c, err := f.Pop()
		if err != nil {
			return err
		}
		f.Push(b)
		f.Push(a)
		f.Push(c)
		f.Push(b)
		f.Push(a)
	case opDup2X2:
		a, err := f.Pop()
		if err != nil {
			return err
		}
		b, err := f.Pop()
		if err != nil {
			return err
		}
		if a.Category() == 2 && b.Category() == 2 {
			f.Push(a)
			f.Push(b)
			f.Push(a)
			return nil
		}
		c, err := f.Pop()
		if err != nil {
			return err
		}
		f.Push(b)
		f.Push(a)
		f.Push(c)
		f.Push(b)
		f.Push(a)
	}
	return nil
}

func (in *Interp) ldc(class *classfile.Class, f *frame.Frame, idx int) error {
	tag, iv, fv, sv, err := class.Pool.ValueByIndex(idx)
	if err != nil {
		return err
	}
	switch tag {
	case classfile.TagInteger:
		f.Push(value.Int(jtype.Int, int64(iv)))
	case classfile.TagFloat:
		f.Push(value.Float(fv))
	case classfile.TagString:
		f.Push(value.Str(sv))
	case classfile.TagClass:
		f.Push(value.Str(sv))
	}
	return nil
}

func (in *Interp) ldc2(class *classfile.Class, f *frame.Frame, idx int) error {
	tag, iv, dv, err := class.Pool.NumberByIndex(idx)
	if err != nil {
		return err
	}
	if tag == classfile.TagLong {
		f.Push(value.Long(iv))
	} else {
		f.Push(value.Double(dv))
	}
	return nil
}

func (in *Interp) arrayLoad(f *frame.Frame) error {
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	arrRef, err := f.Pop()
	if err != nil {
		return err
	}
	if arrRef.IsNull() {
		return fmt.Errorf("java.lang.NullPointerException: array load on null")
	}
	v, err := arrRef.Arr.Get(int(idx.I))
	if err != nil {
		return err
	}
	f.Push(v)
	return nil
}

func (in *Interp) arrayStore(f *frame.Frame) error {
	v, err := f.Pop()
	if err != nil {
		return err
	}
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	arrRef, err := f.Pop()
	if err != nil {
		return err
	}
	if arrRef.IsNull() {
		return fmt.Errorf("java.lang.NullPointerException: array store on null")
	}
	return arrRef.Arr.Set(int(idx.I), v)
}

func (in *Interp) newarray(f *frame.Frame) error {
	atype := in.u1(f)
	n, err := f.Pop()
	if err != nil {
		return err
	}
	if n.I < 0 {
		return fmt.Errorf("java.lang.NegativeArraySizeException: %d", n.I)
	}
	var elemType jtype.Tag
	switch atype {
	case atBoolean:
		elemType = jtype.Boolean
	case atChar:
		elemType = jtype.Char
	case atFloat:
		elemType = jtype.Float
	case atDouble:
		elemType = jtype.Double
	case atByte:
		elemType = jtype.Byte
	case atShort:
		elemType = jtype.Short
	case atInt:
		elemType = jtype.Int
	case atLong:
		elemType = jtype.Long
	default:
		return fmt.Errorf("interp: unknown newarray type code %d", atype)
	}
	f.Push(value.RefArray(value.NewArray(elemType, int(n.I))))
	return nil
}

func (in *Interp) multianewarray(f *frame.Frame) error {
	in.u2(f) // class index, unused: element arrays are untyped references here
	dims := int(in.u1(f))
	if dims < 1 {
		return fmt.Errorf("interp: multianewarray with %d dimensions", dims)
	}
	lengths := make([]int, dims)
	for i := dims - 1; i >= 0; i-- {
		n, err := f.Pop()
		if err != nil {
			return err
		}
		if n.I < 0 {
			return fmt.Errorf("java.lang.NegativeArraySizeException: %d", n.I)
		}
		lengths[i] = int(n.I)
	}
	f.Push(value.RefArray(buildMultiArray(lengths)))
	return nil
}

func buildMultiArray(lengths []int) *value.Array {
	if len(lengths) == 1 {
		return value.NewArray(jtype.Int, lengths[0])
	}
	a := value.NewArray(jtype.Ref, lengths[0])
	for i := 0; i < lengths[0]; i++ {
		a.Set(i, value.RefArray(buildMultiArray(lengths[1:])))
	}
	return a
}

func (in *Interp) getfield(class *classfile.Class, f *frame.Frame) error {
	idx := in.u2(f)
	_, name, desc, err := class.Pool.FieldByIndex(idx)
	if err != nil {
		return err
	}
	ref, err := f.Pop()
	if err != nil {
		return err
	}
	if ref.IsNull() {
		return fmt.Errorf("java.lang.NullPointerException: getfield on null")
	}
	v, ok := ref.Obj.GetField(name)
	if !ok {
		v = value.Zero(jtype.FromFieldDescriptor(desc))
	}
	f.Push(v)
	return nil
}

func (in *Interp) putfield(class *classfile.Class, f *frame.Frame) error {
	idx := in.u2(f)
	_, name, desc, err := class.Pool.FieldByIndex(idx)
	if err != nil {
		return err
	}
	v, err := f.Pop()
	if err != nil {
		return err
	}
	ref, err := f.Pop()
	if err != nil {
		return err
	}
	if ref.IsNull() {
		return fmt.Errorf("java.lang.NullPointerException: putfield on null")
	}
	ref.Obj.SetField(name, jtype.FromFieldDescriptor(desc), v)
	return nil
}

func (in *Interp) getstatic(class *classfile.Class, f *frame.Frame) error {
	idx := in.u2(f)
	className, name, desc, err := class.Pool.FieldByIndex(idx)
	if err != nil {
		return err
	}
	if className == "java/lang/System" && name == "out" {
		// The one well-known static field this interpreter resolves to
		// something usable: a synthetic PrintStream receiver for the
		// println/print bridge, since there is no real System class.
		f.Push(value.Ref(value.NewObject("java/io/PrintStream")))
		return nil
	}
	key := className + "." + name
	v, ok := in.statics[key]
	if !ok {
		v = value.Zero(jtype.FromFieldDescriptor(desc))
	}
	f.Push(v)
	return nil
}

func (in *Interp) putstatic(class *classfile.Class, f *frame.Frame) error {
	idx := in.u2(f)
	className, name, _, err := class.Pool.FieldByIndex(idx)
	if err != nil {
		return err
	}
	v, err := f.Pop()
	if err != nil {
		return err
	}
	in.statics[className+"."+name] = v
	return nil
}

func (in *Interp) instanceOf(class *classfile.Class, f *frame.Frame) error {
	idx := in.u2(f)
	className, err := class.Pool.NameByIndex(idx)
	if err != nil {
		return err
	}
	v, err := f.Pop()
	if err != nil {
		return err
	}
	if v.IsNull() {
		f.Push(value.Bool(false))
		return nil
	}
	f.Push(value.Bool(v.Obj != nil && v.Obj.ClassName == className))
	return nil
}

func (in *Interp) checkcast(class *classfile.Class, f *frame.Frame) error {
	idx := in.u2(f)
	className, err := class.Pool.NameByIndex(idx)
	if err != nil {
		return err
	}
	v, err := f.Peek()
	if err != nil {
		return err
	}
	if v.IsNull() {
		return nil
	}
	if v.Obj == nil || v.Obj.ClassName != className {
		return fmt.Errorf("java.lang.ClassCastException: cannot cast to %s", className)
	}
	return nil
}

func describeThrowable(v value.Value) string {
	if v.IsNull() {
		return "null"
	}
	if v.Obj != nil {
		return v.Obj.ClassName
	}
	return "unknown"
}

func (in *Interp) tableswitch(f *frame.Frame, start int) error {
	// Align to the next 4-byte boundary relative to the method start.
	f.PC += (4 - (f.PC % 4)) % 4

	defaultOff := int(in.s4(f))
	low := int(in.s4(f))
	high := int(in.s4(f))

	key, err := f.Pop()
	if err != nil {
		return err
	}

	if int(key.I) < low || int(key.I) > high {
		f.PC = start + defaultOff
		return nil
	}

	base := f.PC
	f.PC = base + (int(key.I)-low)*4
	target := int(in.s4(f))
	f.PC = start + target
	return nil
}

func (in *Interp) lookupswitch(f *frame.Frame, start int) error {
	skip := (4 - (f.PC % 4)) % 4
	f.PC += skip

	defaultOff := int(in.s4(f))
	npairs := int(in.s4(f))

	key, err := f.Pop()
	if err != nil {
		return err
	}

	base := f.PC
	for i := 0; i < npairs; i++ {
		f.PC = base + i*8
		match := int(in.s4(f))
		if int32(match) == int32(key.I) {
			offset := int(in.s4(f))
			f.PC = start + offset
			return nil
		}
	}
	f.PC = start + defaultOff
	return nil
}

// invoke resolves and dispatches invokespecial/invokestatic/
// invokevirtual/invokeinterface. The callee's arguments are always
// consumed from the caller's operand stack into a freshly built slice,
// which becomes the new frame's initial locals -- this is the JVM rule
// the Design Notes call out: never pass the caller's own locals
// through to the callee.
func (in *Interp) invoke(class *classfile.Class, f *frame.Frame, op byte, idx int) (value.Value, bool, error) {
	className, err := class.Pool.ClassNameFromMethod(idx)
	if err != nil {
		return value.Value{}, false, err
	}
	nat, err := class.Pool.NameAndTypeByIndex(idx)
	if err != nil {
		return value.Value{}, false, err
	}
	name, desc := nat.ResolvedName, nat.ResolvedDesc

	nargs := paramCount(desc)
	args := make([]value.Value, nargs)
	for i := nargs - 1; i >= 0; i-- {
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, err
		}
		args[i] = v
	}

	static := op == opInvokestatic
	var recv value.Value
	if !static {
		v, err := f.Pop()
		if err != nil {
			return value.Value{}, false, err
		}
		recv = v
		if recv.IsNull() && !(className == "java/lang/Object" && name == "<init>") {
			return value.Value{}, false, fmt.Errorf("java.lang.NullPointerException: invoke %s.%s on null", className, name)
		}
	}

	if _, ok := in.Bridge.Lookup(className, name, desc); ok {
		var recvObj *value.Object
		if !static {
			recvObj = recv.Obj
		}
		result, hasRet, err := in.Bridge.Invoke(className, name, desc, recvObj, args)
		return result, hasRet, err
	}

	callee, ok := in.Classes[className]
	if !ok {
		return value.Value{}, false, fmt.Errorf("interp: unsupported external class %s (method %s%s)", className, name, desc)
	}
	m := callee.Method(name, desc)
	if m == nil {
		return value.Value{}, false, fmt.Errorf("interp: method %s.%s%s not found", className, name, desc)
	}

	calleeArgs := args
	if !static {
		calleeArgs = append([]value.Value{recv}, args...)
	}

	result, hasRet, err := in.invokeUserMethod(callee, m, calleeArgs)
	if err != nil {
		return value.Value{}, false, err
	}
	if isVoidReturn(desc) {
		return value.Value{}, false, nil
	}
	return result, hasRet, nil
}
