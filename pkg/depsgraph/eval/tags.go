package eval

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// tagComponents maps each tag bit to the components whose entry it dirties.
var tagComponents = []struct {
	tag   depsgraph.Tag
	types []depsgraph.ComponentType
}{
	{depsgraph.TagAnimation, []depsgraph.ComponentType{depsgraph.ComponentAnimation}},
	{depsgraph.TagParameters, []depsgraph.ComponentType{depsgraph.ComponentParameters}},
	{depsgraph.TagTransform, []depsgraph.ComponentType{depsgraph.ComponentTransform}},
	{depsgraph.TagGeometry, []depsgraph.ComponentType{depsgraph.ComponentGeometry, depsgraph.ComponentPose}},
	{depsgraph.TagVisibility, []depsgraph.ComponentType{depsgraph.ComponentVisibility}},
}

// ApplyPending drains the graph's tag queue and dirties the corresponding
// operations. Tags for entities that are not in the graph are dropped. It
// returns the number of queued changes applied.
func ApplyPending(g *depsgraph.Depsgraph, logger *log.Logger) int {
	n := 0
	for _, p := range g.TakePending() {
		if p.ID == scene.NoHandle {
			if p.Tag.Has(depsgraph.TagTime) {
				g.TimeSource().SetTagged(true)
				n++
			}
			continue
		}
		id := g.FindIDNode(p.ID)
		if id == nil {
			if logger != nil {
				logger.Debug("ignoring tag for entity outside the graph", "id", p.ID, "tag", p.Tag)
			}
			continue
		}
		TagID(id, p.Tag)
		n++
	}
	return n
}

// TagID dirties the entry operations of id's components selected by tag.
// A data change also re-runs the entity's animation and drivers, since the
// evaluated copy is refreshed from the original before the next pass.
func TagID(id *depsgraph.IDNode, tag depsgraph.Tag) {
	id.Recalc |= tag
	for _, tc := range tagComponents {
		if tag&tc.tag == 0 {
			continue
		}
		for _, typ := range tc.types {
			if c := id.FindComponent(typ, ""); c != nil {
				if entry := c.Entry(); entry != nil {
					entry.AddTag(tag)
				}
			}
		}
	}
	if tag&^depsgraph.TagVisibility == 0 {
		return
	}
	if c := id.FindComponent(depsgraph.ComponentAnimation, ""); c != nil {
		c.Entry().AddTag(depsgraph.TagAnimation)
	}
	if c := id.FindComponent(depsgraph.ComponentParameters, ""); c != nil {
		for _, op := range c.Operations() {
			if op.Code == depsgraph.OpDriver {
				op.AddTag(depsgraph.TagAnimation)
			}
		}
	}
}

// ClearTags marks every operation clean and drops a pending time change.
// Entity tags are kept: they are consumed when the entity's evaluated copy
// is next refreshed, which for an entity skipped as invisible happens in the
// first pass that runs it.
func ClearTags(g *depsgraph.Depsgraph) {
	for _, op := range g.Operations() {
		op.Tag = 0
	}
	g.TimeSource().SetTagged(false)
}

// Dirty returns the dirty operations in creation order.
func Dirty(g *depsgraph.Depsgraph) []*depsgraph.OperationNode {
	var out []*depsgraph.OperationNode
	for _, op := range g.Operations() {
		if op.IsDirty() {
			out = append(out, op)
		}
	}
	return out
}
