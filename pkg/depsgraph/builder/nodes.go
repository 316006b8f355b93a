package builder

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// NodeBuilder creates the ID, component and operation nodes of a graph. It
// never adds relations.
type NodeBuilder struct {
	graph  *depsgraph.Depsgraph
	scene  *scene.Scene
	kernel Kernel
	logger *log.Logger
	built  *BuilderMap
}

// NewNodeBuilder returns a builder for g. A nil kernel creates ordering-only
// operations; a nil logger discards output.
func NewNodeBuilder(g *depsgraph.Depsgraph, k Kernel, logger *log.Logger) *NodeBuilder {
	if k == nil {
		k = NopKernel{}
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &NodeBuilder{
		graph:  g,
		scene:  g.Scene(),
		kernel: k,
		logger: logger,
		built:  NewBuilderMap(),
	}
}

// Map returns the builder's BuilderMap.
func (b *NodeBuilder) Map() *BuilderMap { return b.built }

// Build walks every root and then computes direct visibility.
func (b *NodeBuilder) Build(roots []scene.Handle) {
	for _, h := range roots {
		b.BuildID(h)
	}
	UpdateVisibility(b.graph, roots)
}

// BuildID builds the nodes of entity h and of everything it references.
// Handles that do not resolve are skipped.
func (b *NodeBuilder) BuildID(h scene.Handle) {
	e := b.scene.Get(h)
	if e == nil {
		return
	}
	switch e.Kind {
	case scene.KindScene:
		b.buildScene(e)
	case scene.KindCollection:
		b.buildCollection(e)
	case scene.KindObject:
		b.buildObject(e)
	case scene.KindMesh:
		b.buildMesh(e)
	case scene.KindArmature:
		b.buildArmature(e)
	case scene.KindCamera:
		b.buildCamera(e)
	case scene.KindAction:
		b.buildAction(e)
	}
}

func (b *NodeBuilder) addID(e *scene.Entity) *depsgraph.IDNode {
	b.logger.Debug("add id node", "id", e.Name, "kind", e.Kind)
	return b.graph.AddIDNode(e.Handle, e.Kind, e.Name)
}

func (b *NodeBuilder) addOp(id *depsgraph.IDNode, c *depsgraph.ComponentNode, code depsgraph.OperationCode, name string) *depsgraph.OperationNode {
	return c.AddOperation(code, name, b.kernel.Callback(id.Kind, code, name))
}

// addSingle adds a component holding one operation.
func (b *NodeBuilder) addSingle(id *depsgraph.IDNode, typ depsgraph.ComponentType, code depsgraph.OperationCode) *depsgraph.OperationNode {
	return b.addOp(id, id.AddComponent(typ, ""), code, "")
}

func (b *NodeBuilder) buildScene(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	b.addSingle(id, depsgraph.ComponentLayerCollections, depsgraph.OpViewLayerEval)
	b.buildAnimation(id, e)
	b.buildCopyOnWrite(id)

	b.BuildID(e.Collection)
	b.BuildID(e.Camera)
}

func (b *NodeBuilder) buildCollection(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	b.buildAnimation(id, e)
	b.buildCopyOnWrite(id)

	for _, h := range e.Objects {
		b.BuildID(h)
	}
	for _, h := range e.Children {
		b.BuildID(h)
	}
}

func (b *NodeBuilder) buildObject(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	b.buildObjectTransform(id, e)
	b.buildObjectGeometry(id, e)
	b.addSingle(id, depsgraph.ComponentVisibility, depsgraph.OpVisibility)
	b.buildAnimation(id, e)
	b.buildCopyOnWrite(id)

	b.BuildID(e.Parent)
	b.BuildID(e.Data)
	for _, c := range e.Constraints {
		b.BuildID(c.Target)
	}
	for _, pb := range e.Pose {
		for _, c := range pb.Constraints {
			b.BuildID(c.Target)
		}
	}
	for _, m := range e.Modifiers {
		b.BuildID(m.Target)
	}
}

func (b *NodeBuilder) buildObjectTransform(id *depsgraph.IDNode, e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagTransform) {
		return
	}
	c := id.AddComponent(depsgraph.ComponentTransform, "")
	c.SetEntry(b.addOp(id, c, depsgraph.OpTransformLocal, ""))
	if b.scene.Get(e.Parent).Is(scene.KindObject) {
		b.addOp(id, c, depsgraph.OpTransformParent, "")
	}
	if len(e.Constraints) > 0 {
		b.addOp(id, c, depsgraph.OpTransformConstraints, "")
	}
	c.SetExit(b.addOp(id, c, depsgraph.OpTransformFinal, ""))
}

func (b *NodeBuilder) buildObjectGeometry(id *depsgraph.IDNode, e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagGeometry) {
		return
	}
	data := b.scene.Get(e.Data)
	if data.Is(scene.KindMesh) || len(e.Modifiers) > 0 {
		c := id.AddComponent(depsgraph.ComponentGeometry, "")
		c.SetEntry(b.addOp(id, c, depsgraph.OpGeometryInit, ""))
		for _, m := range e.Modifiers {
			if c.FindOperation(depsgraph.OpModifier, m.Name) != nil {
				b.logger.Warn("duplicate modifier", "id", e.Name, "modifier", m.Name)
				continue
			}
			b.addOp(id, c, depsgraph.OpModifier, m.Name)
		}
		b.addOp(id, c, depsgraph.OpGeometryEval, "")
		c.SetExit(b.addOp(id, c, depsgraph.OpGeometryDone, ""))
	}
	if data.Is(scene.KindArmature) {
		c := id.AddComponent(depsgraph.ComponentPose, "")
		c.SetEntry(b.addOp(id, c, depsgraph.OpPoseInit, ""))
		for _, bone := range data.Bones {
			if c.FindOperation(depsgraph.OpBone, bone.Name) != nil {
				b.logger.Warn("duplicate bone", "id", data.Name, "bone", bone.Name)
				continue
			}
			b.addOp(id, c, depsgraph.OpBone, bone.Name)
		}
		c.SetExit(b.addOp(id, c, depsgraph.OpPoseDone, ""))
	}
}

func (b *NodeBuilder) buildMesh(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	if !b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagGeometry) {
		b.addSingle(id, depsgraph.ComponentGeometry, depsgraph.OpGeometryEval)
	}
	b.buildAnimation(id, e)
	b.buildCopyOnWrite(id)
}

func (b *NodeBuilder) buildArmature(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	if !b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagGeometry) {
		b.addSingle(id, depsgraph.ComponentGeometry, depsgraph.OpArmatureEval)
	}
	b.buildAnimation(id, e)
	b.buildCopyOnWrite(id)
}

func (b *NodeBuilder) buildCamera(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	b.buildAnimation(id, e)
	b.buildCopyOnWrite(id)
}

func (b *NodeBuilder) buildAction(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	id := b.addID(e)
	b.buildParameters(id)
	b.buildCopyOnWrite(id)
}

func (b *NodeBuilder) buildParameters(id *depsgraph.IDNode) {
	c := id.AddComponent(depsgraph.ComponentParameters, "")
	c.SetEntry(b.addOp(id, c, depsgraph.OpParametersEntry, ""))
	b.addOp(id, c, depsgraph.OpParametersEval, "")
	c.SetExit(b.addOp(id, c, depsgraph.OpParametersExit, ""))
}

func (b *NodeBuilder) buildCopyOnWrite(id *depsgraph.IDNode) {
	b.addSingle(id, depsgraph.ComponentCopyOnWrite, depsgraph.OpCopyOnWrite)
}

// buildAnimation adds the action evaluation step and one driver step per
// driver. Drivers live in PARAMETERS. Action and driver targets are built too.
func (b *NodeBuilder) buildAnimation(id *depsgraph.IDNode, e *scene.Entity) {
	if e.Anim == nil || b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagAnimation) {
		return
	}
	if b.scene.Get(e.Anim.Action).Is(scene.KindAction) {
		b.addSingle(id, depsgraph.ComponentAnimation, depsgraph.OpAnimation)
		b.BuildID(e.Anim.Action)
	}
	params := id.FindComponent(depsgraph.ComponentParameters, "")
	for _, d := range e.Anim.Drivers {
		name := DriverName(d)
		if params.FindOperation(depsgraph.OpDriver, name) != nil {
			b.logger.Warn("duplicate driver", "id", e.Name, "driver", name)
			continue
		}
		b.addOp(id, params, depsgraph.OpDriver, name)
		for _, v := range d.Variables {
			if !v.Time {
				b.BuildID(v.Target)
			}
		}
	}
}

// DriverName is the operation name of the driver of d's channel.
func DriverName(d scene.Driver) string {
	return fmt.Sprintf("%s[%d]", d.Path, d.Index)
}
