package eval

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// testGraph is a hand-wired graph with one visible object per name and a
// single PARAMETERS operation per object.
type testGraph struct {
	g   *depsgraph.Depsgraph
	ids map[string]*depsgraph.IDNode
	ops map[string]*depsgraph.OperationNode
}

func newTestGraph(t *testing.T, fn func(name string) depsgraph.OperationFunc, names ...string) *testGraph {
	t.Helper()
	s := scene.New()
	tg := &testGraph{
		g:   depsgraph.New(s),
		ids: make(map[string]*depsgraph.IDNode),
		ops: make(map[string]*depsgraph.OperationNode),
	}
	for _, name := range names {
		h := s.MustAdd(scene.NewObject(name))
		id := tg.g.AddIDNode(h, scene.KindObject, name)
		id.DirectlyVisible = true
		var f depsgraph.OperationFunc
		if fn != nil {
			f = fn(name)
		}
		op := id.AddComponent(depsgraph.ComponentParameters, "").AddOperation(depsgraph.OpParametersEval, "", f)
		op.AffectsVisible = true
		tg.ids[name] = id
		tg.ops[name] = op
	}
	tg.g.ClearNeedsRebuild()
	return tg
}

func (tg *testGraph) link(from, to string, flags depsgraph.RelationFlag) {
	tg.g.AddRelation(tg.ops[from], tg.ops[to], from+" -> "+to, flags)
}

func (tg *testGraph) dirty() []string {
	var out []string
	for name, op := range tg.ops {
		if op.IsDirty() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// recorder records the order in which operations ran.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) fn(name string) depsgraph.OperationFunc {
	return func(*depsgraph.EvalContext) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return nil
	}
}

func (r *recorder) index(name string) int { return slices.Index(r.order, name) }

func newEvaluator(t *testing.T, workers int) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(Options{Workers: workers})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestFlush(t *testing.T) {
	tg := newTestGraph(t, nil, "a", "b", "c", "d")
	tg.link("a", "b", 0)
	tg.link("b", "c", 0)

	tg.ops["a"].AddTag(depsgraph.TagParameters)
	if got := Flush(tg.g); got != 3 {
		t.Errorf("Flush() visited %d, want 3", got)
	}
	if got, want := tg.dirty(), []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("dirty = %v, want %v", got, want)
	}
	if got := tg.ops["c"].Tag; got != depsgraph.TagParameters {
		t.Errorf("c.Tag = %v, want %v", got, depsgraph.TagParameters)
	}

	// Flushing again changes nothing.
	Flush(tg.g)
	if got, want := tg.dirty(), []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("dirty after second flush = %v, want %v", got, want)
	}
}

func TestFlushVisitsEachOperationOnce(t *testing.T) {
	tg := newTestGraph(t, nil, "a", "b", "c", "d")
	tg.link("a", "b", 0)
	tg.link("a", "c", 0)
	tg.link("b", "d", 0)
	tg.link("c", "d", 0)

	tg.ops["a"].AddTag(depsgraph.TagTransform)
	tg.ops["c"].AddTag(depsgraph.TagGeometry)
	if got := Flush(tg.g); got != 4 {
		t.Errorf("Flush() visited %d, want 4", got)
	}
	if got := tg.ops["d"].Tag; !got.Has(depsgraph.TagTransform) {
		t.Errorf("d.Tag = %v, want TRANSFORM set", got)
	}
}

func TestFlushRelationFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags depsgraph.RelationFlag
		tag   depsgraph.Tag
		want  bool
	}{
		{"plain", 0, depsgraph.TagParameters, true},
		{"no flush", depsgraph.RelationNoFlush, depsgraph.TagParameters, false},
		{"no flush visibility", depsgraph.RelationNoFlush, depsgraph.TagVisibility, false},
		{"visibility edge without visibility tag", depsgraph.RelationFlushVisibility, depsgraph.TagParameters, false},
		{"visibility edge with visibility tag", depsgraph.RelationFlushVisibility, depsgraph.TagVisibility, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newTestGraph(t, nil, "a", "b")
			tg.link("a", "b", tt.flags)
			tg.ops["a"].AddTag(tt.tag)
			Flush(tg.g)
			if got := tg.ops["b"].IsDirty(); got != tt.want {
				t.Errorf("b dirty = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlushTimeSource(t *testing.T) {
	tg := newTestGraph(t, nil, "a", "b", "c")
	tg.g.AddRelation(tg.g.TimeSource(), tg.ops["a"], "TimeSrc -> a", 0)
	tg.link("a", "b", 0)

	tg.g.TagTime()
	if got := ApplyPending(tg.g, nil); got != 1 {
		t.Errorf("ApplyPending() = %d, want 1", got)
	}
	Flush(tg.g)
	if got, want := tg.dirty(), []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("dirty = %v, want %v", got, want)
	}
	if !tg.ops["b"].Tag.Has(depsgraph.TagTime) {
		t.Errorf("b.Tag = %v, want TIME set", tg.ops["b"].Tag)
	}
	if tg.g.TimeSource().Tagged() {
		t.Error("time source still tagged after flush")
	}
}

func TestFlushPropagatesLateBits(t *testing.T) {
	tg := newTestGraph(t, nil, "b", "a", "d")
	tg.link("a", "b", 0)
	tg.link("b", "d", depsgraph.RelationFlushVisibility)

	// b is dirty before a, so b is queued first and only learns about
	// VISIBILITY once a has been visited.
	tg.ops["b"].AddTag(depsgraph.TagParameters)
	tg.ops["a"].AddTag(depsgraph.TagVisibility)
	Flush(tg.g)

	if got, want := tg.ops["b"].Tag, depsgraph.TagParameters|depsgraph.TagVisibility; got != want {
		t.Errorf("b.Tag = %v, want %v", got, want)
	}
	if got := tg.ops["d"].Tag; !got.Has(depsgraph.TagVisibility) {
		t.Errorf("d.Tag = %v, want VISIBILITY set", got)
	}
}

func TestApplyPendingIgnoresUnknownEntity(t *testing.T) {
	tg := newTestGraph(t, nil, "a")
	tg.g.TagUpdate(scene.Handle(99), depsgraph.TagParameters)
	if got := ApplyPending(tg.g, nil); got != 0 {
		t.Errorf("ApplyPending() = %d, want 0", got)
	}
	if got := tg.dirty(); len(got) != 0 {
		t.Errorf("dirty = %v, want none", got)
	}
}

func TestFlushVisibility(t *testing.T) {
	tg := newTestGraph(t, nil, "hidden", "visible", "unused")
	for _, op := range tg.ops {
		op.AffectsVisible = false
	}
	tg.ids["hidden"].DirectlyVisible = false
	tg.ids["unused"].DirectlyVisible = false
	tg.link("hidden", "visible", 0)

	if got := FlushVisibility(tg.g); got != 2 {
		t.Errorf("FlushVisibility() = %d, want 2", got)
	}
	tests := []struct {
		name    string
		visible bool
	}{
		{"hidden", true},
		{"visible", true},
		{"unused", false},
	}
	for _, tt := range tests {
		op := tg.ops[tt.name]
		if op.AffectsVisible != tt.visible {
			t.Errorf("%s.AffectsVisible = %v, want %v", tt.name, op.AffectsVisible, tt.visible)
		}
		if op.Tag.Has(depsgraph.TagVisibility) != tt.visible {
			t.Errorf("%s.Tag = %v, want VISIBILITY set = %v", tt.name, op.Tag, tt.visible)
		}
	}

	ClearTags(tg.g)
	if got := FlushVisibility(tg.g); got != 0 {
		t.Errorf("second FlushVisibility() = %d, want 0", got)
	}
}

func TestEvaluateOrder(t *testing.T) {
	rec := &recorder{}
	tg := newTestGraph(t, rec.fn, "a", "b", "c", "d")
	tg.link("a", "b", 0)
	tg.link("a", "c", 0)
	tg.link("b", "d", 0)
	tg.link("c", "d", 0)
	tg.ops["a"].AddTag(depsgraph.TagParameters)

	res, err := newEvaluator(t, 4).Evaluate(context.Background(), tg.g, 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Ran != 4 || !res.OK() {
		t.Errorf("Ran = %d, OK = %v, want 4, true", res.Ran, res.OK())
	}
	for _, edge := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}} {
		if rec.index(edge[0]) > rec.index(edge[1]) {
			t.Errorf("%s ran after %s: order %v", edge[0], edge[1], rec.order)
		}
	}
	if got := tg.dirty(); len(got) != 0 {
		t.Errorf("dirty after evaluation = %v, want none", got)
	}
}

func TestEvaluateRunsOnlyDirty(t *testing.T) {
	rec := &recorder{}
	tg := newTestGraph(t, rec.fn, "a", "b", "c")
	tg.link("a", "b", 0)
	tg.ops["b"].AddTag(depsgraph.TagParameters)

	if _, err := newEvaluator(t, 1).Evaluate(context.Background(), tg.g, 1); err != nil {
		t.Fatal(err)
	}
	if want := []string{"b"}; !slices.Equal(rec.order, want) {
		t.Errorf("ran %v, want %v", rec.order, want)
	}
}

func TestEvaluateFailureIsolation(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	tg := newTestGraph(t, func(name string) depsgraph.OperationFunc {
		if name == "bad" {
			return func(*depsgraph.EvalContext) error { return boom }
		}
		return rec.fn(name)
	}, "bad", "child", "grandchild", "other")
	tg.link("bad", "child", 0)
	tg.link("child", "grandchild", 0)
	for _, op := range tg.ops {
		op.AddTag(depsgraph.TagParameters)
	}

	res, err := newEvaluator(t, 2).Evaluate(context.Background(), tg.g, 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Ran != 1 || res.Failed != 1 || res.Skipped != 2 {
		t.Errorf("Ran/Failed/Skipped = %d/%d/%d, want 1/1/2", res.Ran, res.Failed, res.Skipped)
	}
	if want := []string{"other"}; !slices.Equal(rec.order, want) {
		t.Errorf("ran %v, want %v", rec.order, want)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(res.Errors))
	}
	opErr := res.Errors[0]
	if opErr.ID != tg.ids["bad"].Handle {
		t.Errorf("error ID = %d, want %d", opErr.ID, tg.ids["bad"].Handle)
	}
	if !errors.Is(opErr, boom) {
		t.Errorf("errors.Is(%v, boom) = false", opErr)
	}
	if !deperrors.Is(opErr, deperrors.ErrCodeCallbackFailed) {
		t.Errorf("code = %v, want %v", deperrors.GetCode(opErr), deperrors.ErrCodeCallbackFailed)
	}
	if got := tg.dirty(); len(got) != 0 {
		t.Errorf("dirty after evaluation = %v, want none", got)
	}
}

func TestEvaluateRecoversPanic(t *testing.T) {
	tg := newTestGraph(t, func(string) depsgraph.OperationFunc {
		return func(*depsgraph.EvalContext) error { panic("broken callback") }
	}, "a")
	tg.ops["a"].AddTag(depsgraph.TagParameters)

	res, err := newEvaluator(t, 1).Evaluate(context.Background(), tg.g, 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", res.Failed)
	}
	if !deperrors.Is(res.Errors[0], deperrors.ErrCodeCallbackFailed) {
		t.Errorf("code = %v, want %v", deperrors.GetCode(res.Errors[0]), deperrors.ErrCodeCallbackFailed)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	tg := newTestGraph(t, func(name string) depsgraph.OperationFunc {
		if name == "a" {
			return func(*depsgraph.EvalContext) error {
				cancel()
				return nil
			}
		}
		return rec.fn(name)
	}, "a", "b")
	tg.link("a", "b", 0)
	tg.ops["a"].AddTag(depsgraph.TagParameters)

	res, err := newEvaluator(t, 1).Evaluate(ctx, tg.g, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Evaluate() error = %v, want %v", err, context.Canceled)
	}
	if res.Ran != 1 || res.Pending != 1 {
		t.Errorf("Ran/Pending = %d/%d, want 1/1", res.Ran, res.Pending)
	}
	if len(rec.order) != 0 {
		t.Errorf("ran %v after cancellation", rec.order)
	}
	if got, want := tg.dirty(), []string{"b"}; !slices.Equal(got, want) {
		t.Errorf("dirty = %v, want %v", got, want)
	}
}

func TestEvaluateSkipsInvisible(t *testing.T) {
	rec := &recorder{}
	tg := newTestGraph(t, rec.fn, "a")
	tg.ops["a"].AffectsVisible = false
	tg.ops["a"].AddTag(depsgraph.TagParameters)

	res, err := newEvaluator(t, 1).Evaluate(context.Background(), tg.g, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Invisible != 1 || res.Ran != 0 {
		t.Errorf("Invisible/Ran = %d/%d, want 1/0", res.Invisible, res.Ran)
	}
	if tg.ops["a"].IsDirty() {
		t.Error("invisible operation still dirty")
	}
}

func TestEvaluateClearsTags(t *testing.T) {
	tg := newTestGraph(t, nil, "a", "b")
	tg.g.AddRelation(tg.g.TimeSource(), tg.ops["a"], "TimeSrc -> a", 0)
	tg.ops["b"].AffectsVisible = false
	tg.g.TagUpdate(tg.ids["a"].Handle, depsgraph.TagParameters)
	tg.g.TagUpdate(tg.ids["b"].Handle, depsgraph.TagParameters)
	tg.g.TagTime()

	res, err := newEvaluator(t, 2).Evaluate(context.Background(), tg.g, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ran != 1 || res.Invisible != 1 {
		t.Errorf("Ran/Invisible = %d/%d, want 1/1", res.Ran, res.Invisible)
	}
	if got := Dirty(tg.g); len(got) != 0 {
		t.Errorf("Dirty() after pass = %d operations, want 0", len(got))
	}
	if tg.g.TimeSource().Tagged() {
		t.Error("time source still tagged after pass")
	}
	if got := tg.ids["a"].Recalc; got != 0 {
		t.Errorf("a.Recalc = %v, want 0", got)
	}
	// b never ran, so its copy still has to be refreshed when it does.
	if got := tg.ids["b"].Recalc; !got.Has(depsgraph.TagParameters) {
		t.Errorf("b.Recalc = %v, want PARAMETERS set", got)
	}
}

func TestEvaluateNeedsRebuild(t *testing.T) {
	g := depsgraph.New(scene.New())
	e := newEvaluator(t, 1)
	if _, err := e.Evaluate(context.Background(), g, 1); err == nil {
		t.Error("Evaluate() on unbuilt graph succeeded")
	}
}

func TestEvaluateShadow(t *testing.T) {
	tg := newTestGraph(t, func(string) depsgraph.OperationFunc {
		return func(ec *depsgraph.EvalContext) error {
			return ec.Update(func(e *scene.Entity) error {
				e.Eval.GeometryVersion++
				e.Location[0] *= 2
				return nil
			})
		}
	}, "a")
	e := newEvaluator(t, 1)
	id := tg.ids["a"]
	orig := tg.g.Scene().Get(id.Handle)

	for _, x := range []float64{1, 3} {
		orig.Location[0] = x
		tg.g.TagUpdate(id.Handle, depsgraph.TagParameters)
		if _, err := e.Evaluate(context.Background(), tg.g, 1); err != nil {
			t.Fatal(err)
		}
		snap := id.Shadow().Snapshot()
		if got := snap.Location[0]; got != 2*x {
			t.Errorf("evaluated location = %v, want %v", got, 2*x)
		}
	}
	if got := id.Shadow().Snapshot().Eval.GeometryVersion; got != 2 {
		t.Errorf("GeometryVersion = %d, want 2", got)
	}
	if got := orig.Location[0]; got != 3 {
		t.Errorf("original location = %v, want 3", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{Workers: -1}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("ValidateAndSetDefaults() with negative workers succeeded")
	}
	opts = Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Workers < 1 || opts.Logger == nil {
		t.Errorf("defaults = %+v, want workers >= 1 and a logger", opts)
	}
}
