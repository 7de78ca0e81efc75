package cedarerr

import (
	"errors"
	"strings"
	"testing"
)

func TestNewFormatsMessage(t *testing.T) {
	e := New(KindArity, "%s expects %d argument(s), got %d", "foo", 2, 1)
	if e.Kind != KindArity {
		t.Fatalf("expected KindArity, got %v", e.Kind)
	}
	if e.Message != "foo expects 2 argument(s), got 1" {
		t.Fatalf("unexpected message: %q", e.Message)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(cause, KindSerialization, "save-db: %s", "write failed")
	if e.Unwrap() == nil {
		t.Fatalf("expected Wrap to preserve a cause")
	}
	if !strings.Contains(e.Unwrap().Error(), "disk full") {
		t.Fatalf("expected wrapped cause to mention original error, got %v", e.Unwrap())
	}
}

func TestErrorRenderingIncludesLocationAndStack(t *testing.T) {
	e := New(KindUnbound, "undefined-symbol").At("script.cdr", 3, 5).Push(StackFrame{Function: "main"})
	out := e.Error()
	if !strings.Contains(out, "UnboundError: undefined-symbol") {
		t.Fatalf("expected kind+message header, got %q", out)
	}
	if !strings.Contains(out, "script.cdr:3:5") {
		t.Fatalf("expected location in output, got %q", out)
	}
	if !strings.Contains(out, "main") {
		t.Fatalf("expected call stack entry in output, got %q", out)
	}
}

func TestKindsMatchSpec(t *testing.T) {
	want := []Kind{
		KindSyntax, KindCompile, KindType, KindArity, KindArithmetic,
		KindIndexRange, KindUnbound, KindImport, KindRuntime, KindSerialization,
	}
	seen := map[Kind]bool{}
	for _, k := range want {
		if seen[k] {
			t.Fatalf("duplicate kind constant %v", k)
		}
		seen[k] = true
	}
	if len(seen) != 10 {
		t.Fatalf("expected 10 distinct error kinds, got %d", len(seen))
	}
}
