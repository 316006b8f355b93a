package builder

import (
	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// UpdateVisibility recomputes [depsgraph.IDNode.DirectlyVisible] for every
// node of g from the collection hierarchy below roots. An object is
// directly visible when it is not hidden and at least one path of
// non-hidden collections leads to it. Roots that are neither scenes nor
// collections are visible unless hidden.
func UpdateVisibility(g *depsgraph.Depsgraph, roots []scene.Handle) {
	for _, id := range g.IDNodes() {
		id.DirectlyVisible = false
	}
	v := &visibilityWalker{g: g, s: g.Scene(), walked: make(map[scene.Handle]bool)}
	for _, h := range roots {
		e := v.s.Get(h)
		switch {
		case e == nil:
		case e.Is(scene.KindScene):
			v.collection(e.Collection, true)
		case e.Is(scene.KindCollection):
			v.collection(h, true)
		default:
			v.mark(h, !e.Hidden)
		}
	}
}

type visibilityWalker struct {
	g *depsgraph.Depsgraph
	s *scene.Scene
	// walked holds collections already walked, with the visibility they
	// were walked with.
	walked map[scene.Handle]bool
}

func (v *visibilityWalker) collection(h scene.Handle, visible bool) {
	c := v.s.Get(h)
	if !c.Is(scene.KindCollection) {
		return
	}
	visible = visible && !c.Hidden
	if prev, ok := v.walked[h]; ok && (prev || !visible) {
		return
	}
	v.walked[h] = visible
	for _, oh := range c.Objects {
		if o := v.s.Get(oh); o != nil {
			v.mark(oh, visible && !o.Hidden)
		}
	}
	for _, ch := range c.Children {
		v.collection(ch, visible)
	}
}

func (v *visibilityWalker) mark(h scene.Handle, visible bool) {
	if !visible {
		return
	}
	if id := v.g.FindIDNode(h); id != nil {
		id.DirectlyVisible = true
	}
}
