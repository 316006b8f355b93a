package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Build hooks
	b := NoopBuildHooks{}
	b.OnBuildStart(ctx, "graph", "view_layer")
	b.OnBuildComplete(ctx, "graph", BuildStats{IDs: 3, Operations: 20}, time.Second, nil)
	b.OnPhase(ctx, "graph", "relations", time.Millisecond)
	b.OnCycleRemoved(ctx, "graph", "A -> B")

	// Eval hooks
	e := NoopEvalHooks{}
	e.OnPassStart(ctx, "pass", 10)
	e.OnOperation(ctx, "pass", "object \"Cube\" TRANSFORM TRANSFORM_LOCAL", time.Microsecond, errors.New("boom"))
	e.OnPassComplete(ctx, "pass", 9, 0, 1, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Build() should return NoopBuildHooks by default")
	}
	if _, ok := Eval().(NoopEvalHooks); !ok {
		t.Error("Eval() should return NoopEvalHooks by default")
	}

	// Set custom hooks
	customBuild := &testBuildHooks{}
	SetBuildHooks(customBuild)
	if Build() != customBuild {
		t.Error("SetBuildHooks should set custom hooks")
	}

	customEval := &testEvalHooks{}
	SetEvalHooks(customEval)
	if Eval() != customEval {
		t.Error("SetEvalHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Build().(NoopBuildHooks); !ok {
		t.Error("Reset() should restore NoopBuildHooks")
	}
	if _, ok := Eval().(NoopEvalHooks); !ok {
		t.Error("Reset() should restore NoopEvalHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEvalHooks{}
	SetEvalHooks(custom)

	// Setting nil should be ignored
	SetEvalHooks(nil)

	if Eval() != custom {
		t.Error("SetEvalHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testBuildHooks struct{ NoopBuildHooks }
type testEvalHooks struct{ NoopEvalHooks }
