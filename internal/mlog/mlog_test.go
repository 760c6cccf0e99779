/*
 * minijvm - a minimal Java Virtual Machine
 */

package mlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLog_RespectsMinimumLevel(t *testing.T) {
	Init()
	var buf bytes.Buffer
	SetOutput(&buf)
	_ = SetLogLevel(Warning)

	_ = Log("should be dropped", Fine)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below minimum level, got %q", buf.String())
	}

	_ = Log("should print", Severe)
	if !strings.Contains(buf.String(), "should print") {
		t.Errorf("expected message to appear, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "SEVERE") {
		t.Errorf("expected level name in output, got %q", buf.String())
	}
}

func TestSetLogLevel_LowersThreshold(t *testing.T) {
	Init()
	var buf bytes.Buffer
	SetOutput(&buf)
	_ = SetLogLevel(TraceInst)

	_ = Log("trace line", TraceInst)
	if !strings.Contains(buf.String(), "TRACE_INST") {
		t.Errorf("expected trace line to pass once threshold lowered, got %q", buf.String())
	}
}
