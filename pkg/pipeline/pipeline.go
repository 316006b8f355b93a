// Package pipeline builds and evaluates dependency graphs.
//
// A build always runs the same four phases, in order:
//
//  1. Sanity: resolve the scope's roots and reset the graph
//  2. Nodes: create ID, component and operation nodes
//  3. Relations: connect operations, recording unresolved keys as diagnostics
//  4. Finalize: check components, remove cycles, compute visibility
//
// The phases cannot be reordered or replaced; the [builder.Scope] decides
// what part of the scene they walk.
//
// # Usage
//
// Most callers use a [Runner], which owns the graph and rebuilds it when
// relations change:
//
//	runner, err := pipeline.NewRunner(s, pipeline.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if _, err := runner.Build(ctx); err != nil {
//	    return err
//	}
//	res, err := runner.EvaluateOnFramechange(ctx, 12)
//
// Edits are reported with [Runner.TagUpdate] from any goroutine and picked
// up by the next evaluation.
package pipeline

import (
	"context"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/builder"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/eval"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/transform"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/kernel"
	"github.com/matzehuels/depsgraph/pkg/observability"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Phase names reported to logs and build hooks.
const (
	PhaseSanity    = "sanity"
	PhaseNodes     = "nodes"
	PhaseRelations = "relations"
	PhaseFinalize  = "finalize"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a [Pipeline] or [Runner].
type Options struct {
	// Workers bounds concurrent operations during evaluation.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	// Kernel supplies operation callbacks. Defaults to [kernel.Default].
	Kernel builder.Kernel

	// Scope selects what is built. Defaults to the view layer of the
	// scene's first scene entity.
	Scope builder.Scope

	// StrictCycles makes a build fail when any dependency cycle had to be
	// broken. The graph is still usable.
	StrictCycles bool

	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks fields and applies defaults. It is
// idempotent. Scope is left unset here since its default depends on the
// scene.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Workers < 0 {
		return deperrors.New(deperrors.ErrCodeInternal, "workers must be >= 0, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Kernel == nil {
		o.Kernel = kernel.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// scopeFor returns the configured scope or the default view layer of s.
func (o *Options) scopeFor(s *scene.Scene) (builder.Scope, error) {
	if o.Scope != nil {
		return o.Scope, nil
	}
	scenes := s.Scenes()
	if len(scenes) == 0 {
		return nil, deperrors.New(deperrors.ErrCodeInvalidScene, "scene has no scene entity to build from")
	}
	return builder.ViewLayerScope{Scene: scenes[0]}, nil
}

// =============================================================================
// Build
// =============================================================================

// BuildResult summarizes a build.
type BuildResult struct {
	GraphID uuid.UUID
	Scope   string
	Roots   []scene.Handle

	IDs        int
	Components int
	Operations int
	Relations  int

	Cycles      []transform.CycleInfo
	Diagnostics []depsgraph.Diagnostic
	Duration    time.Duration
}

// Stats converts r to the form reported to build hooks.
func (r *BuildResult) Stats() observability.BuildStats {
	return observability.BuildStats{
		IDs:           r.IDs,
		Operations:    r.Operations,
		Relations:     r.Relations,
		CyclesRemoved: len(r.Cycles),
		Diagnostics:   len(r.Diagnostics),
	}
}

// Pipeline runs the build phases.
type Pipeline struct {
	opts Options
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts}, nil
}

// Build rebuilds g from its scene. Existing nodes are discarded and the
// graph gets a new ID; queued tags survive. A build cancelled between
// phases leaves g marked as needing a rebuild. A STRUCTURAL panic from a
// builder is not recovered.
//
// With StrictCycles set, Build returns a CYCLE error together with the
// result when cycles were removed, and g stays marked as needing a rebuild.
func (p *Pipeline) Build(ctx context.Context, g *depsgraph.Depsgraph) (res *BuildResult, err error) {
	start := time.Now()
	logger := p.opts.Logger
	hooks := observability.Build()

	scope, err := p.opts.scopeFor(g.Scene())
	if err != nil {
		return nil, err
	}
	roots, err := scope.Roots(g.Scene())
	if err != nil {
		return nil, err
	}
	g.Clear()
	sanity := time.Since(start)

	graphID := g.ID.String()
	hooks.OnBuildStart(ctx, graphID, scope.String())
	hooks.OnPhase(ctx, graphID, PhaseSanity, sanity)
	res = &BuildResult{GraphID: g.ID, Scope: scope.String(), Roots: roots}
	defer func() {
		res.Duration = time.Since(start)
		hooks.OnBuildComplete(ctx, graphID, res.Stats(), res.Duration, err)
	}()

	phase := func(name string, fn func()) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := time.Now()
		fn()
		d := time.Since(t)
		hooks.OnPhase(ctx, graphID, name, d)
		logger.Debug("build phase", "phase", name, "duration", d)
		return nil
	}

	err = phase(PhaseNodes, func() {
		builder.NewNodeBuilder(g, p.opts.Kernel, logger).Build(roots)
	})
	if err != nil {
		return res, err
	}
	err = phase(PhaseRelations, func() {
		builder.NewRelationBuilder(g, logger).Build(roots)
	})
	if err != nil {
		return res, err
	}
	err = phase(PhaseFinalize, func() {
		res.Cycles = p.finalize(ctx, g, roots)
	})
	if err != nil {
		return res, err
	}

	res.IDs = len(g.IDNodes())
	res.Components = g.NumComponents()
	res.Operations = g.NumOperations()
	res.Relations = g.NumRelations()
	res.Diagnostics = g.Diagnostics()

	logger.Info("built dependency graph",
		"ids", res.IDs,
		"operations", res.Operations,
		"relations", res.Relations,
		"cycles", len(res.Cycles),
		"duration", time.Since(start))

	if p.opts.StrictCycles && len(res.Cycles) > 0 {
		return res, deperrors.New(deperrors.ErrCodeCycle, "%d dependency cycles removed", len(res.Cycles))
	}
	g.ClearNeedsRebuild()
	return res, nil
}

func (p *Pipeline) finalize(ctx context.Context, g *depsgraph.Depsgraph, roots []scene.Handle) []transform.CycleInfo {
	for _, id := range g.IDNodes() {
		for _, c := range id.Components() {
			c.Finalize()
		}
	}

	cycles := transform.BreakCycles(g)
	for _, c := range cycles {
		p.opts.Logger.Warn("removed dependency cycle",
			"relation", c.Removed.String(),
			"path", strings.Join(c.Path, " -> "),
			"forced", c.Forced)
		observability.Build().OnCycleRemoved(ctx, g.ID.String(), c.Removed.String())
	}

	for _, h := range roots {
		if id := g.FindIDNode(h); id != nil && id.Kind == scene.KindScene {
			g.SetSceneShadow(id)
			break
		}
	}
	eval.FlushVisibility(g)
	return cycles
}
