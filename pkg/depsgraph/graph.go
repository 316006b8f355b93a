package depsgraph

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// PendingTag is a queued external change.
type PendingTag struct {
	ID  scene.Handle // scene.NoHandle for time changes
	Tag Tag
}

// Depsgraph is the evaluation graph of one scene.
//
// The zero value is not usable; create graphs with [New].
type Depsgraph struct {
	// ID identifies the graph in logs and hooks. It changes on every rebuild.
	ID uuid.UUID

	scene *scene.Scene

	timeSource *TimeSourceNode
	ids        []*IDNode
	idMap      map[scene.Handle]*IDNode
	ops        []*OperationNode
	relations  int

	needsRebuild bool
	diagnostics  []Diagnostic
	sceneShadow  *IDNode

	// relationsTagged is set by TagRelationsUpdate and consumed by Clear.
	relationsTagged atomic.Bool

	mu         sync.Mutex
	pending    map[scene.Handle]Tag
	timeTagged bool
}

// New creates an empty graph for s. The graph starts out needing a build.
func New(s *scene.Scene) *Depsgraph {
	g := &Depsgraph{scene: s}
	g.reset()
	return g
}

func (g *Depsgraph) reset() {
	g.ID = uuid.New()
	g.timeSource = &TimeSourceNode{graph: g}
	g.ids = nil
	g.idMap = make(map[scene.Handle]*IDNode)
	g.ops = nil
	g.relations = 0
	g.diagnostics = nil
	g.sceneShadow = nil
	g.needsRebuild = true
}

// Clear destroys all nodes and relations and consumes a requested relations
// update, since the next build starts from it. Queued tags are kept.
func (g *Depsgraph) Clear() {
	g.relationsTagged.Store(false)
	g.reset()
}

// Scene returns the scene the graph evaluates.
func (g *Depsgraph) Scene() *scene.Scene { return g.scene }

// TimeSource returns the time source node.
func (g *Depsgraph) TimeSource() *TimeSourceNode { return g.timeSource }

// AddIDNode returns the node for h, creating it if needed.
func (g *Depsgraph) AddIDNode(h scene.Handle, kind scene.Kind, name string) *IDNode {
	if n, ok := g.idMap[h]; ok {
		return n
	}
	n := &IDNode{
		graph:      g,
		Handle:     h,
		Kind:       kind,
		Name:       name,
		components: make(map[componentKey]*ComponentNode),
	}
	g.idMap[h] = n
	g.ids = append(g.ids, n)
	return n
}

// FindIDNode returns the node for h or nil.
func (g *Depsgraph) FindIDNode(h scene.Handle) *IDNode { return g.idMap[h] }

// IDNodes returns the ID nodes in creation order.
func (g *Depsgraph) IDNodes() []*IDNode { return slices.Clone(g.ids) }

func (g *Depsgraph) registerOperation(op *OperationNode) {
	op.index = len(g.ops)
	g.ops = append(g.ops, op)
}

// Operations returns all operations in creation order.
func (g *Depsgraph) Operations() []*OperationNode { return slices.Clone(g.ops) }

// NumOperations returns the number of operations.
func (g *Depsgraph) NumOperations() int { return len(g.ops) }

// NumRelations returns the number of relations.
func (g *Depsgraph) NumRelations() int { return g.relations }

// NumComponents returns the number of components across all ID nodes.
func (g *Depsgraph) NumComponents() int {
	n := 0
	for _, id := range g.ids {
		n += len(id.order)
	}
	return n
}

// AddRelation connects from to to. With RelationCheckBeforeAdd an existing
// edge between the same two nodes is returned instead of a new one.
func (g *Depsgraph) AddRelation(from Node, to *OperationNode, description string, flags RelationFlag) *Relation {
	if flags&RelationCheckBeforeAdd != 0 {
		for _, r := range to.Inlinks {
			if r.From == from {
				return r
			}
		}
	}
	r := &Relation{From: from, To: to, Description: description, Flags: flags}
	to.Inlinks = append(to.Inlinks, r)
	switch n := from.(type) {
	case *OperationNode:
		n.Outlinks = append(n.Outlinks, r)
	case *TimeSourceNode:
		n.Outlinks = append(n.Outlinks, r)
	default:
		deperrors.Structural("relation %q: source %s is not an operation or the time source", description, from.Identifier())
	}
	g.relations++
	return r
}

// RemoveRelation detaches r from both endpoints.
func (g *Depsgraph) RemoveRelation(r *Relation) {
	r.To.Inlinks = slices.DeleteFunc(r.To.Inlinks, func(o *Relation) bool { return o == r })
	switch n := r.From.(type) {
	case *OperationNode:
		n.Outlinks = slices.DeleteFunc(n.Outlinks, func(o *Relation) bool { return o == r })
	case *TimeSourceNode:
		n.Outlinks = slices.DeleteFunc(n.Outlinks, func(o *Relation) bool { return o == r })
	}
	g.relations--
}

// Relations returns every relation, grouped by destination in operation
// creation order.
func (g *Depsgraph) Relations() []*Relation {
	out := make([]*Relation, 0, g.relations)
	for _, op := range g.ops {
		out = append(out, op.Inlinks...)
	}
	return out
}

// Outlinks returns the outgoing relations of an operation or the time source.
func Outlinks(n Node) []*Relation {
	switch n := n.(type) {
	case *OperationNode:
		return n.Outlinks
	case *TimeSourceNode:
		return n.Outlinks
	}
	return nil
}

// NeedsRebuild reports whether the topology is out of date: the graph was
// never built, its last build did not complete, or relations were tagged as
// changed since the build started.
func (g *Depsgraph) NeedsRebuild() bool {
	return g.needsRebuild || g.relationsTagged.Load()
}

// TagRelationsUpdate requests a full rebuild before the next evaluation. It
// is safe for concurrent use; a request made while a build runs survives
// that build.
func (g *Depsgraph) TagRelationsUpdate() { g.relationsTagged.Store(true) }

// Built reports whether the last build completed. Unlike NeedsRebuild it
// ignores relations updates requested since.
func (g *Depsgraph) Built() bool { return !g.needsRebuild }

// ClearNeedsRebuild marks the topology built.
func (g *Depsgraph) ClearNeedsRebuild() { g.needsRebuild = false }

// SetSceneShadow records the ID node of the active scene.
func (g *Depsgraph) SetSceneShadow(n *IDNode) { g.sceneShadow = n }

// SceneShadow returns the ID node of the active scene, if recorded.
func (g *Depsgraph) SceneShadow() *IDNode { return g.sceneShadow }

// TagUpdate queues a change of the given domains on entity h. Repeated tags
// for one entity are merged. It is safe for concurrent use. Tags are applied
// when the next evaluation drains the queue.
func (g *Depsgraph) TagUpdate(h scene.Handle, tag Tag) {
	if tag == 0 {
		return
	}
	g.mu.Lock()
	if g.pending == nil {
		g.pending = make(map[scene.Handle]Tag)
	}
	g.pending[h] |= tag
	g.mu.Unlock()
}

// TagTime queues a time change. It is safe for concurrent use.
func (g *Depsgraph) TagTime() {
	g.mu.Lock()
	g.timeTagged = true
	g.mu.Unlock()
}

// TakePending drains the tag queue. A time change comes first, followed by
// one entry per entity in handle order.
func (g *Depsgraph) TakePending() []PendingTag {
	g.mu.Lock()
	pending, timeTagged := g.pending, g.timeTagged
	g.pending, g.timeTagged = nil, false
	g.mu.Unlock()

	out := make([]PendingTag, 0, len(pending)+1)
	for h, t := range pending {
		out = append(out, PendingTag{ID: h, Tag: t})
	}
	slices.SortFunc(out, func(a, b PendingTag) int { return cmp.Compare(a.ID, b.ID) })
	if timeTagged {
		out = slices.Insert(out, 0, PendingTag{ID: scene.NoHandle, Tag: TagTime})
	}
	return out
}

// HasPending reports whether changes are queued.
func (g *Depsgraph) HasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeTagged || len(g.pending) > 0
}
