/*
 * minijvm - a minimal Java Virtual Machine
 */

package frame

import (
	"testing"

	"minijvm/internal/jtype"
	"minijvm/internal/value"
)

func TestFrame_LocalsRoundTrip(t *testing.T) {
	f := New("Foo", "bar", "()V", nil, nil, 3, 4)

	if err := f.SetLocal(1, value.Int(jtype.Int, 42)); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	got, err := f.GetLocal(1)
	if err != nil || got.I != 42 {
		t.Errorf("GetLocal(1) = %v, %v, want 42, nil", got, err)
	}

	if _, err := f.GetLocal(99); err == nil {
		t.Errorf("expected error for out-of-range local index, got nil")
	}
}

func TestFrame_StackPushPopOrder(t *testing.T) {
	f := New("Foo", "bar", "()V", nil, nil, 0, 4)

	f.Push(value.Int(jtype.Int, 1))
	f.Push(value.Int(jtype.Int, 2))

	top, err := f.Peek()
	if err != nil || top.I != 2 {
		t.Fatalf("Peek() = %v, %v, want 2, nil", top, err)
	}

	v, err := f.Pop()
	if err != nil || v.I != 2 {
		t.Fatalf("Pop() = %v, %v, want 2, nil", v, err)
	}
	v, err = f.Pop()
	if err != nil || v.I != 1 {
		t.Fatalf("Pop() = %v, %v, want 1, nil", v, err)
	}

	if _, err := f.Pop(); err == nil {
		t.Errorf("expected error popping an empty stack, got nil")
	}
}

func TestStack_PushPopDepth(t *testing.T) {
	s := NewStack()
	if s.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0", s.Depth())
	}

	f1 := New("A", "m1", "()V", nil, nil, 0, 0)
	f2 := New("B", "m2", "()V", nil, nil, 0, 0)

	s.Push(f1)
	s.Push(f2)

	if s.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", s.Depth())
	}
	if top := s.Top(); top != f2 {
		t.Errorf("Top() = %v, want f2", top)
	}

	popped := s.Pop()
	if popped != f2 {
		t.Errorf("Pop() = %v, want f2", popped)
	}
	if s.Depth() != 1 {
		t.Errorf("Depth() after pop = %d, want 1", s.Depth())
	}

	s.Pop()
	if got := s.Pop(); got != nil {
		t.Errorf("Pop() on empty stack = %v, want nil", got)
	}
}
