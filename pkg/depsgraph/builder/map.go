package builder

import (
	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// BuilderMap records which evaluation domains have been built for each
// entity during one build pass. Absent entries are "not built". A map is
// never cleared; every pass starts with a fresh one.
type BuilderMap struct {
	built map[scene.Handle]depsgraph.Tag
}

// NewBuilderMap returns an empty map.
func NewBuilderMap() *BuilderMap {
	return &BuilderMap{built: make(map[scene.Handle]depsgraph.Tag)}
}

// CheckIsBuilt reports whether all bits of tag are built for h.
func (m *BuilderMap) CheckIsBuilt(h scene.Handle, tag depsgraph.Tag) bool {
	return m.built[h]&tag == tag
}

// TagBuild marks the domains in tag as built for h.
func (m *BuilderMap) TagBuild(h scene.Handle, tag depsgraph.Tag) {
	m.built[h] |= tag
}

// CheckIsBuiltAndTag reports whether tag was already built for h and marks
// it built. It returns false exactly once per (h, tag).
func (m *BuilderMap) CheckIsBuiltAndTag(h scene.Handle, tag depsgraph.Tag) bool {
	if m.CheckIsBuilt(h, tag) {
		return true
	}
	m.TagBuild(h, tag)
	return false
}
