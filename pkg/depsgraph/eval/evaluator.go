package eval

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/observability"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Options configures an [Evaluator].
type Options struct {
	// Workers bounds the number of operations running at once.
	// Zero uses GOMAXPROCS.
	Workers int
	Logger  *log.Logger
}

// ValidateAndSetDefaults fills unset fields and rejects invalid ones.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Workers < 0 {
		return deperrors.New(deperrors.ErrCodeInternal, "workers must be >= 0, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// OperationError reports a failed operation callback.
type OperationError struct {
	Operation string
	ID        scene.Handle
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Result summarizes one evaluation pass.
type Result struct {
	PassID uuid.UUID

	Ran       int // callbacks that completed
	Failed    int // callbacks that returned an error or panicked
	Skipped   int // descendants of failed operations
	Invisible int // dirty operations that affect nothing visible
	Pending   int // operations left dirty by cancellation

	Errors   []*OperationError
	Duration time.Duration
}

// OK reports whether every scheduled operation ran.
func (r *Result) OK() bool { return r.Failed == 0 && r.Pending == 0 }

// Evaluator runs dirty operations of a graph.
type Evaluator struct {
	opts Options
}

// NewEvaluator validates opts and returns an evaluator.
func NewEvaluator(opts Options) (*Evaluator, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Evaluator{opts: opts}, nil
}

type completion struct {
	op       *depsgraph.OperationNode
	err      error
	duration time.Duration
}

// Evaluate applies queued tags, flushes them and runs every dirty operation
// that affects visible output, each after its dirty predecessors. The graph
// must not be modified while Evaluate runs. A pass that was not cancelled
// ends with every operation clean.
//
// Evaluate returns ctx.Err() when the pass was cancelled; the Result is
// always non-nil.
func (e *Evaluator) Evaluate(ctx context.Context, g *depsgraph.Depsgraph, frame float64) (*Result, error) {
	start := time.Now()
	res := &Result{PassID: uuid.New()}
	if !g.Built() {
		return res, deperrors.New(deperrors.ErrCodeInternal, "graph is not built; build before evaluating")
	}
	logger := e.opts.Logger

	ApplyPending(g, logger)
	Flush(g)

	var run []*depsgraph.OperationNode
	for _, op := range Dirty(g) {
		if !op.AffectsVisible {
			op.Tag = 0
			res.Invisible++
			continue
		}
		run = append(run, op)
	}

	hooks := observability.Eval()
	passID := res.PassID.String()
	hooks.OnPassStart(ctx, passID, len(run))

	e.prepareShadows(g, run)
	e.schedule(ctx, g, frame, run, res)
	if res.Pending == 0 {
		ClearTags(g)
	}

	res.Duration = time.Since(start)
	hooks.OnPassComplete(ctx, passID, res.Ran, res.Skipped, res.Failed, res.Duration)
	logger.Debug("evaluation pass", "pass", passID, "ran", res.Ran, "failed", res.Failed,
		"skipped", res.Skipped, "pending", res.Pending, "duration", res.Duration)

	if res.Pending > 0 {
		return res, ctx.Err()
	}
	return res, nil
}

// prepareShadows refreshes the evaluated copy of every entity that will run.
// Entities changed by the user are re-copied from the original; the rest
// only lose their published state.
func (e *Evaluator) prepareShadows(g *depsgraph.Depsgraph, run []*depsgraph.OperationNode) {
	seen := make(map[*depsgraph.IDNode]bool)
	for _, op := range run {
		id := op.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		if sh := id.Shadow(); sh != nil && id.Recalc == 0 {
			sh.Invalidate()
		} else {
			id.SyncShadow(g.Scene().Get(id.Handle))
		}
		id.Recalc = 0
	}
}

func (e *Evaluator) schedule(ctx context.Context, g *depsgraph.Depsgraph, frame float64, run []*depsgraph.OperationNode, res *Result) {
	inRun := make(map[*depsgraph.OperationNode]bool, len(run))
	for _, op := range run {
		inRun[op] = true
	}
	waiting := make(map[*depsgraph.OperationNode]int, len(run))
	var ready []*depsgraph.OperationNode
	for _, op := range run {
		for _, r := range op.Inlinks {
			if from, ok := r.From.(*depsgraph.OperationNode); ok && inRun[from] {
				waiting[op]++
			}
		}
		if waiting[op] == 0 {
			ready = append(ready, op)
		}
	}

	done := make(chan completion, len(run))
	var grp errgroup.Group
	grp.SetLimit(e.opts.Workers)
	finished := make(map[*depsgraph.OperationNode]bool, len(run))
	inFlight := 0

	for {
		if ctx.Err() == nil {
			for _, op := range ready {
				inFlight++
				ec := &depsgraph.EvalContext{Context: ctx, PassID: res.PassID, Frame: frame, Graph: g, Op: op}
				grp.Go(func() error {
					t := time.Now()
					err := execute(ec)
					done <- completion{op: ec.Op, err: err, duration: time.Since(t)}
					return nil
				})
			}
			ready = ready[:0]
		}
		if inFlight == 0 {
			break
		}

		c := <-done
		inFlight--
		finished[c.op] = true
		c.op.Tag = 0
		observability.Eval().OnOperation(ctx, res.PassID.String(), c.op.Identifier(), c.duration, c.err)

		if c.err != nil {
			res.Failed++
			res.Errors = append(res.Errors, &OperationError{Operation: c.op.Identifier(), ID: c.op.ID().Handle, Err: c.err})
			e.opts.Logger.Error("operation failed", "op", c.op.Identifier(), "err", c.err)
			res.Skipped += skipDescendants(c.op, inRun, finished)
			continue
		}
		res.Ran++
		for _, r := range c.op.Outlinks {
			to := r.To
			if !inRun[to] || finished[to] {
				continue
			}
			waiting[to]--
			if waiting[to] == 0 {
				ready = append(ready, to)
			}
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i].Index() < ready[j].Index() })
	}
	_ = grp.Wait()

	for _, op := range run {
		if !finished[op] {
			res.Pending++
		}
	}
}

// skipDescendants marks every run-set operation downstream of op finished
// and clears its tag. It returns the number of operations skipped.
func skipDescendants(op *depsgraph.OperationNode, inRun, finished map[*depsgraph.OperationNode]bool) int {
	n := 0
	queue := []*depsgraph.OperationNode{op}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, r := range cur.Outlinks {
			to := r.To
			if !inRun[to] || finished[to] {
				continue
			}
			finished[to] = true
			to.Tag = 0
			n++
			queue = append(queue, to)
		}
	}
	return n
}

func execute(ec *depsgraph.EvalContext) (err error) {
	if ec.Op.Func == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = deperrors.New(deperrors.ErrCodeCallbackFailed, "panic: %v", r)
		}
	}()
	if err := ec.Op.Func(ec); err != nil {
		return deperrors.Wrap(deperrors.ErrCodeCallbackFailed, err, "callback failed")
	}
	return nil
}
