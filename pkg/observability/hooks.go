// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about graph builds and evaluation passes.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the core packages stay
// free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBuildHooks(&myBuildHooks{})
//	    observability.SetEvalHooks(&myEvalHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Build().OnBuildStart(ctx, graphID, scope)
//	// ... build the graph ...
//	observability.Build().OnBuildComplete(ctx, graphID, stats, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Build Hooks
// =============================================================================

// BuildStats summarizes a finished graph build.
type BuildStats struct {
	IDs           int
	Operations    int
	Relations     int
	CyclesRemoved int
	Diagnostics   int
}

// BuildHooks receives events from the build pipeline.
type BuildHooks interface {
	// Build events
	OnBuildStart(ctx context.Context, graphID, scope string)
	OnBuildComplete(ctx context.Context, graphID string, stats BuildStats, duration time.Duration, err error)

	// OnPhase records the duration of one pipeline phase.
	OnPhase(ctx context.Context, graphID, phase string, duration time.Duration)

	// OnCycleRemoved records a relation removed to break a cycle.
	OnCycleRemoved(ctx context.Context, graphID, relation string)
}

// =============================================================================
// Eval Hooks
// =============================================================================

// EvalHooks receives events from the evaluator.
type EvalHooks interface {
	// Pass events
	OnPassStart(ctx context.Context, passID string, dirty int)
	OnPassComplete(ctx context.Context, passID string, ran, skipped, failed int, duration time.Duration)

	// OnOperation records one executed operation.
	OnOperation(ctx context.Context, passID, operation string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnBuildStart(context.Context, string, string) {}
func (NoopBuildHooks) OnBuildComplete(context.Context, string, BuildStats, time.Duration, error) {
}
func (NoopBuildHooks) OnPhase(context.Context, string, string, time.Duration) {}
func (NoopBuildHooks) OnCycleRemoved(context.Context, string, string)         {}

// NoopEvalHooks is a no-op implementation of EvalHooks.
type NoopEvalHooks struct{}

func (NoopEvalHooks) OnPassStart(context.Context, string, int)                             {}
func (NoopEvalHooks) OnPassComplete(context.Context, string, int, int, int, time.Duration) {}
func (NoopEvalHooks) OnOperation(context.Context, string, string, time.Duration, error)    {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	buildHooks BuildHooks = NoopBuildHooks{}
	evalHooks  EvalHooks  = NoopEvalHooks{}
	hooksMu    sync.RWMutex
)

// SetBuildHooks registers custom build hooks.
// This should be called once at application startup before any builds.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
	}
}

// SetEvalHooks registers custom evaluation hooks.
// This should be called once at application startup before any evaluation.
func SetEvalHooks(h EvalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evalHooks = h
	}
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Eval returns the registered evaluation hooks.
func Eval() EvalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evalHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	buildHooks = NoopBuildHooks{}
	evalHooks = NoopEvalHooks{}
}
