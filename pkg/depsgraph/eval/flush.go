package eval

import (
	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Flush propagates tags from every dirty operation, and from the time source
// when it is tagged, to everything downstream. An operation is queued again
// only when it gains bits it did not have, so the walk ends after at most
// one visit per operation and tag bit. Flush returns the number of visits.
func Flush(g *depsgraph.Depsgraph) int {
	var queue []*depsgraph.OperationNode
	queued := make(map[*depsgraph.OperationNode]bool)
	push := func(op *depsgraph.OperationNode) {
		if !queued[op] {
			queued[op] = true
			queue = append(queue, op)
		}
	}
	// merge ORs t into op and reports whether op gained a bit.
	merge := func(op *depsgraph.OperationNode, t depsgraph.Tag) bool {
		if op.Tag|t == op.Tag {
			return false
		}
		op.Tag |= t
		return true
	}

	for _, op := range Dirty(g) {
		push(op)
	}
	if ts := g.TimeSource(); ts.Tagged() {
		for _, r := range ts.Outlinks {
			if !r.Has(depsgraph.RelationNoFlush) && merge(r.To, depsgraph.TagTime) {
				push(r.To)
			}
		}
		ts.SetTagged(false)
	}

	visited := 0
	for len(queue) > 0 {
		op := queue[0]
		queue = queue[1:]
		queued[op] = false
		visited++
		for _, r := range op.Outlinks {
			if r.Has(depsgraph.RelationNoFlush) {
				continue
			}
			if r.Has(depsgraph.RelationFlushVisibility) && !op.Tag.Has(depsgraph.TagVisibility) {
				continue
			}
			if merge(r.To, op.Tag) {
				push(r.To)
			}
		}
	}
	return visited
}

// FlushVisibility recomputes [depsgraph.OperationNode.AffectsVisible]: an
// operation affects visible output when some operation of a directly visible
// entity, or of a scene, depends on it (or it belongs to one itself).
// Operations that become visible are tagged with TagVisibility, then tags
// are flushed. It returns the number of operations that became visible.
func FlushVisibility(g *depsgraph.Depsgraph) int {
	visible := make(map[*depsgraph.OperationNode]bool)
	var queue []*depsgraph.OperationNode
	for _, id := range g.IDNodes() {
		if !id.DirectlyVisible && id.Kind != scene.KindScene {
			continue
		}
		for _, c := range id.Components() {
			for _, op := range c.Operations() {
				if !visible[op] {
					visible[op] = true
					queue = append(queue, op)
				}
			}
		}
	}
	for len(queue) > 0 {
		op := queue[0]
		queue = queue[1:]
		for _, r := range op.Inlinks {
			from, ok := r.From.(*depsgraph.OperationNode)
			if !ok || visible[from] {
				continue
			}
			visible[from] = true
			queue = append(queue, from)
		}
	}

	flipped := 0
	for _, op := range g.Operations() {
		v := visible[op]
		if v && !op.AffectsVisible {
			op.AddTag(depsgraph.TagVisibility)
			flipped++
		}
		op.AffectsVisible = v
	}
	Flush(g)
	return flipped
}
