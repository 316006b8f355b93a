package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/builder"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/eval"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Runner owns the dependency graph of one scene. It rebuilds the graph when
// relations were tagged as changed and evaluates it on demand.
//
// TagUpdate, TagRelationsUpdate and TagVisibilityUpdate may be called from
// any goroutine. Build and the Evaluate methods are serialized.
type Runner struct {
	Logger *log.Logger

	scene     *scene.Scene
	graph     *depsgraph.Depsgraph
	pipeline  *Pipeline
	evaluator *eval.Evaluator

	mu    sync.Mutex
	roots []scene.Handle

	visibilityDirty atomic.Bool
}

// NewRunner creates a runner for s. The graph is empty until the first
// Build or evaluation.
func NewRunner(s *scene.Scene, opts Options) (*Runner, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	ev, err := eval.NewEvaluator(eval.Options{Workers: opts.Workers, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	return &Runner{
		Logger:    opts.Logger,
		scene:     s,
		graph:     depsgraph.New(s),
		pipeline:  p,
		evaluator: ev,
	}, nil
}

// Graph returns the runner's graph. It must not be modified while the
// runner builds or evaluates.
func (r *Runner) Graph() *depsgraph.Depsgraph { return r.graph }

// Scene returns the original scene.
func (r *Runner) Scene() *scene.Scene { return r.scene }

// Build rebuilds the graph from scratch.
func (r *Runner) Build(ctx context.Context) (*BuildResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(ctx)
}

func (r *Runner) build(ctx context.Context) (*BuildResult, error) {
	res, err := r.pipeline.Build(ctx, r.graph)
	if res != nil && res.Roots != nil {
		r.roots = res.Roots
	}
	return res, err
}

// TagUpdate queues a change of the given domains on entity h.
func (r *Runner) TagUpdate(h scene.Handle, tag depsgraph.Tag) {
	r.graph.TagUpdate(h, tag)
}

// TagRelationsUpdate requests a rebuild before the next evaluation.
// Use it after adding or removing entities or references.
func (r *Runner) TagRelationsUpdate() {
	r.graph.TagRelationsUpdate()
}

// TagVisibilityUpdate reports that the hidden flag of h or of a collection
// containing it changed. Visibility is recomputed before the next
// evaluation.
func (r *Runner) TagVisibilityUpdate(h scene.Handle) {
	r.visibilityDirty.Store(true)
	r.graph.TagUpdate(h, depsgraph.TagVisibility)
}

// EvaluateOnRefresh evaluates pending changes. Time-dependent operations
// only run when clock differs from the last evaluated frame, when the graph
// has not been evaluated yet, or when clock.Changed is set.
func (r *Runner) EvaluateOnRefresh(ctx context.Context, clock scene.Clock) (*eval.Result, error) {
	return r.evaluate(ctx, clock.Frame, clock.Changed)
}

// EvaluateOnFramechange evaluates the graph at frame, re-running every
// time-dependent operation.
func (r *Runner) EvaluateOnFramechange(ctx context.Context, frame float64) (*eval.Result, error) {
	return r.evaluate(ctx, frame, true)
}

func (r *Runner) evaluate(ctx context.Context, frame float64, timeChanged bool) (*eval.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.graph.NeedsRebuild() {
		if _, err := r.build(ctx); err != nil {
			return nil, fmt.Errorf("rebuild: %w", err)
		}
	}
	if r.visibilityDirty.Swap(false) {
		builder.UpdateVisibility(r.graph, r.roots)
		eval.FlushVisibility(r.graph)
	}

	ts := r.graph.TimeSource()
	if timeChanged || !ts.Evaluated || ts.Frame != frame {
		r.graph.TagTime()
	}

	res, err := r.evaluator.Evaluate(ctx, r.graph, frame)
	if err != nil {
		return res, err
	}
	ts.Frame, ts.Evaluated = frame, true

	r.Logger.Info("evaluated dependency graph",
		"frame", frame,
		"ran", res.Ran,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", res.Duration)
	return res, nil
}

// Evaluated returns a copy of the evaluated state of h, or nil when h has
// not been evaluated.
func (r *Runner) Evaluated(h scene.Handle) *scene.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.graph.FindIDNode(h)
	if id == nil || id.Shadow() == nil {
		return nil
	}
	return id.Shadow().Snapshot()
}
