package builder

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// RelationBuilder adds relations between the nodes created by a
// [NodeBuilder]. It walks the scene the same way and never creates nodes.
type RelationBuilder struct {
	graph  *depsgraph.Depsgraph
	scene  *scene.Scene
	logger *log.Logger
	built  *BuilderMap

	// view is the scene whose view layer is being walked, if any.
	view scene.Handle
}

// NewRelationBuilder returns a relation builder for g.
func NewRelationBuilder(g *depsgraph.Depsgraph, logger *log.Logger) *RelationBuilder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &RelationBuilder{
		graph:  g,
		scene:  g.Scene(),
		logger: logger,
		built:  NewBuilderMap(),
	}
}

// Map returns the builder's BuilderMap.
func (b *RelationBuilder) Map() *BuilderMap { return b.built }

// Build walks every root.
func (b *RelationBuilder) Build(roots []scene.Handle) {
	for _, h := range roots {
		b.BuildID(h)
	}
}

// AddRelation resolves from to its exit operation and to to its entry
// operation and connects them. When either key does not resolve, an
// UNRESOLVED_KEY diagnostic is recorded and nil is returned.
func (b *RelationBuilder) AddRelation(from, to depsgraph.Key, description string, flags depsgraph.RelationFlag) *depsgraph.Relation {
	src, err := b.graph.Resolve(from.WithSide(depsgraph.SideFrom))
	var dst depsgraph.Node
	if err == nil {
		dst, err = b.graph.Resolve(to.WithSide(depsgraph.SideTo))
	}
	if err != nil {
		d := depsgraph.Diagnostic{
			Severity: depsgraph.SeverityWarning,
			Code:     deperrors.ErrCodeUnresolvedKey,
			Phase:    "relations",
			Message:  deperrors.UserMessage(err),
			From:     from.Identifier(b.scene),
			To:       to.Identifier(b.scene),
			Relation: description,
		}
		b.graph.AddDiagnostic(d)
		b.logger.Warn("failed to add relation", "relation", description, "from", d.From, "to", d.To, "err", d.Message)
		return nil
	}

	var fromNode depsgraph.Node
	switch n := src.(type) {
	case *depsgraph.ComponentNode:
		exit := n.Exit()
		if exit == nil {
			deperrors.Structural("%s: no exit operation", n.Identifier())
		}
		fromNode = exit
	case *depsgraph.OperationNode:
		fromNode = n
	case *depsgraph.TimeSourceNode:
		fromNode = n
	default:
		deperrors.Structural("relation %q: %s cannot be a source", description, src.Identifier())
	}

	var toOp *depsgraph.OperationNode
	switch n := dst.(type) {
	case *depsgraph.ComponentNode:
		toOp = n.Entry()
		if toOp == nil {
			deperrors.Structural("%s: no entry operation", n.Identifier())
		}
	case *depsgraph.OperationNode:
		toOp = n
	default:
		deperrors.Structural("relation %q: %s cannot be a destination", description, dst.Identifier())
	}

	b.logger.Debug("add relation", "relation", description, "from", fromNode.Identifier(), "to", toOp.Identifier())
	return b.graph.AddRelation(fromNode, toOp, description, flags)
}

// AddDependsOnTransformRelation makes to depend on the final transform of
// entity h.
func (b *RelationBuilder) AddDependsOnTransformRelation(h scene.Handle, to depsgraph.Key, description string) *depsgraph.Relation {
	return b.AddRelation(depsgraph.ComponentKey(h, depsgraph.ComponentTransform, ""), to, description, 0)
}

// BuildID adds the relations of entity h and of everything it references.
func (b *RelationBuilder) BuildID(h scene.Handle) {
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
	case scene.KindMesh, scene.KindArmature:
		b.buildObjectData(e)
	case scene.KindCamera, scene.KindAction:
		b.buildPlainID(e)
	}
}

func (b *RelationBuilder) has(h scene.Handle, typ depsgraph.ComponentType) bool {
	id := b.graph.FindIDNode(h)
	return id != nil && id.FindComponent(typ, "") != nil
}

func (b *RelationBuilder) buildScene(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	prev := b.view
	b.view = e.Handle
	defer func() { b.view = prev }()

	h := e.Handle
	b.buildParameters(h)
	b.AddRelation(depsgraph.TimeSourceKey(),
		depsgraph.OperationKey(h, depsgraph.ComponentParameters, depsgraph.OpParametersEval, ""),
		"TimeSrc -> Scene Frame", 0)
	b.AddRelation(depsgraph.ComponentKey(h, depsgraph.ComponentParameters, ""),
		depsgraph.OperationKey(h, depsgraph.ComponentLayerCollections, depsgraph.OpViewLayerEval, ""),
		"Scene Parameters -> View Layer", 0)
	b.buildAnimation(e)

	b.BuildID(e.Collection)
	b.BuildID(e.Camera)

	b.buildCopyOnWrite(h)
}

func (b *RelationBuilder) buildCollection(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	h := e.Handle
	b.buildParameters(h)
	b.buildAnimation(e)
	if b.view.IsValid() {
		b.AddRelation(depsgraph.ComponentKey(h, depsgraph.ComponentParameters, ""),
			depsgraph.OperationKey(b.view, depsgraph.ComponentLayerCollections, depsgraph.OpViewLayerEval, ""),
			"Collection -> View Layer", 0)
	}
	for _, oh := range e.Objects {
		b.BuildID(oh)
	}
	for _, ch := range e.Children {
		b.BuildID(ch)
	}
	b.buildCopyOnWrite(h)
}

func (b *RelationBuilder) buildObject(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	h := e.Handle
	b.buildParameters(h)
	b.AddRelation(depsgraph.ComponentKey(h, depsgraph.ComponentParameters, ""),
		depsgraph.ComponentKey(h, depsgraph.ComponentTransform, ""),
		"Object Parameters -> Transform", 0)
	b.buildObjectTransform(e)
	b.buildObjectGeometry(e)
	b.buildObjectVisibility(e)
	b.buildAnimation(e)
	b.buildCopyOnWrite(h)
}

func (b *RelationBuilder) buildObjectTransform(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagTransform) {
		return
	}
	h := e.Handle
	chain := []depsgraph.OperationCode{depsgraph.OpTransformLocal}

	if b.scene.Get(e.Parent).Is(scene.KindObject) {
		b.BuildID(e.Parent)
		parentKey := depsgraph.OperationKey(h, depsgraph.ComponentTransform, depsgraph.OpTransformParent, "")
		if e.ParentBone != "" {
			b.AddRelation(depsgraph.OperationKey(e.Parent, depsgraph.ComponentPose, depsgraph.OpBone, e.ParentBone),
				parentKey, "Bone Parent", 0)
		} else {
			b.AddDependsOnTransformRelation(e.Parent, parentKey, "Object Parent")
		}
		chain = append(chain, depsgraph.OpTransformParent)
	}

	if len(e.Constraints) > 0 {
		key := depsgraph.OperationKey(h, depsgraph.ComponentTransform, depsgraph.OpTransformConstraints, "")
		b.buildConstraints(e.Constraints, key)
		chain = append(chain, depsgraph.OpTransformConstraints)
	}

	chain = append(chain, depsgraph.OpTransformFinal)
	for i := 1; i < len(chain); i++ {
		b.AddRelation(depsgraph.OperationKey(h, depsgraph.ComponentTransform, chain[i-1], ""),
			depsgraph.OperationKey(h, depsgraph.ComponentTransform, chain[i], ""),
			"Transform Chain", depsgraph.RelationNoCycle)
	}
}

// buildConstraints makes to depend on every constraint target: the bone
// named by the subtarget when set, the target's transform otherwise.
func (b *RelationBuilder) buildConstraints(constraints []scene.Constraint, to depsgraph.Key) {
	for _, c := range constraints {
		if !c.Target.IsValid() {
			continue
		}
		b.BuildID(c.Target)
		if c.Subtarget != "" {
			b.AddRelation(depsgraph.OperationKey(c.Target, depsgraph.ComponentPose, depsgraph.OpBone, c.Subtarget),
				to, "Bone Constraint "+c.Name, 0)
			continue
		}
		b.AddDependsOnTransformRelation(c.Target, to, "Constraint "+c.Name)
	}
}

func (b *RelationBuilder) buildObjectGeometry(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagGeometry) {
		return
	}
	h := e.Handle
	b.BuildID(e.Data)
	data := b.scene.Get(e.Data)

	if b.has(h, depsgraph.ComponentGeometry) {
		geom := func(code depsgraph.OperationCode, name string) depsgraph.Key {
			return depsgraph.OperationKey(h, depsgraph.ComponentGeometry, code, name)
		}
		b.AddRelation(depsgraph.ComponentKey(h, depsgraph.ComponentParameters, ""),
			geom(depsgraph.OpGeometryInit, ""), "Object Parameters -> Geometry", 0)
		if data.Is(scene.KindMesh) {
			b.AddRelation(depsgraph.ComponentKey(e.Data, depsgraph.ComponentGeometry, ""),
				geom(depsgraph.OpGeometryInit, ""), "Object Data -> Geometry", 0)
		}

		prev := geom(depsgraph.OpGeometryInit, "")
		seen := make(map[string]bool)
		for _, m := range e.Modifiers {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			key := geom(depsgraph.OpModifier, m.Name)
			b.AddRelation(prev, key, "Modifier Stack", depsgraph.RelationNoCycle)
			prev = key
			if !m.Target.IsValid() {
				continue
			}
			b.BuildID(m.Target)
			b.AddDependsOnTransformRelation(m.Target, key, "Modifier "+m.Name)
			if m.UseTargetGeometry {
				b.AddRelation(depsgraph.ComponentKey(m.Target, depsgraph.ComponentGeometry, ""),
					key, "Modifier Target Geometry "+m.Name, 0)
			}
		}
		b.AddRelation(prev, geom(depsgraph.OpGeometryEval, ""), "Modifier Stack", depsgraph.RelationNoCycle)
		b.AddRelation(geom(depsgraph.OpGeometryEval, ""), geom(depsgraph.OpGeometryDone, ""), "Geometry Done", depsgraph.RelationNoCycle)
	}

	if b.has(h, depsgraph.ComponentPose) && data.Is(scene.KindArmature) {
		b.buildPose(e, data)
	}
}

func (b *RelationBuilder) buildPose(e, arm *scene.Entity) {
	h := e.Handle
	bone := func(name string) depsgraph.Key {
		return depsgraph.OperationKey(h, depsgraph.ComponentPose, depsgraph.OpBone, name)
	}
	initKey := depsgraph.OperationKey(h, depsgraph.ComponentPose, depsgraph.OpPoseInit, "")
	doneKey := depsgraph.OperationKey(h, depsgraph.ComponentPose, depsgraph.OpPoseDone, "")

	b.AddRelation(depsgraph.ComponentKey(arm.Handle, depsgraph.ComponentGeometry, ""), initKey, "Armature Eval -> Pose Init", 0)
	b.AddDependsOnTransformRelation(h, initKey, "Object Transform -> Pose Init")

	seen := make(map[string]bool)
	for _, bn := range arm.Bones {
		if seen[bn.Name] {
			continue
		}
		seen[bn.Name] = true
		if _, ok := arm.Bone(bn.Parent); ok && bn.Parent != bn.Name {
			b.AddRelation(bone(bn.Parent), bone(bn.Name), "Parent Bone -> Child Bone", 0)
		} else {
			b.AddRelation(initKey, bone(bn.Name), "Pose Init -> Bone", depsgraph.RelationNoCycle)
		}
		b.AddRelation(bone(bn.Name), doneKey, "Bone -> Pose Done", depsgraph.RelationNoCycle)
	}
	for _, pb := range e.Pose {
		b.buildConstraints(pb.Constraints, bone(pb.Name))
	}
}

// buildObjectVisibility orders the object's visibility step after the view
// layer and lets visibility changes reach its evaluated components.
func (b *RelationBuilder) buildObjectVisibility(e *scene.Entity) {
	h := e.Handle
	visKey := depsgraph.OperationKey(h, depsgraph.ComponentVisibility, depsgraph.OpVisibility, "")
	if b.view.IsValid() {
		b.AddRelation(depsgraph.OperationKey(b.view, depsgraph.ComponentLayerCollections, depsgraph.OpViewLayerEval, ""),
			visKey, "View Layer -> Visibility", depsgraph.RelationNoFlush)
	}
	for _, typ := range []depsgraph.ComponentType{depsgraph.ComponentTransform, depsgraph.ComponentGeometry, depsgraph.ComponentPose} {
		if b.has(h, typ) {
			b.AddRelation(visKey, depsgraph.ComponentKey(h, typ, ""), "Visibility -> "+typ.String(), depsgraph.RelationFlushVisibility)
		}
	}
}

// buildObjectData handles meshes and armatures: one evaluation step fed by
// the data's parameters.
func (b *RelationBuilder) buildObjectData(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	h := e.Handle
	b.buildParameters(h)
	if !b.built.CheckIsBuiltAndTag(h, depsgraph.TagGeometry) {
		b.AddRelation(depsgraph.ComponentKey(h, depsgraph.ComponentParameters, ""),
			depsgraph.ComponentKey(h, depsgraph.ComponentGeometry, ""),
			"Data Parameters -> Geometry", 0)
	}
	b.buildAnimation(e)
	b.buildCopyOnWrite(h)
}

func (b *RelationBuilder) buildPlainID(e *scene.Entity) {
	if b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagParameters) {
		return
	}
	b.buildParameters(e.Handle)
	b.buildAnimation(e)
	b.buildCopyOnWrite(e.Handle)
}

func (b *RelationBuilder) buildParameters(h scene.Handle) {
	param := func(code depsgraph.OperationCode) depsgraph.Key {
		return depsgraph.OperationKey(h, depsgraph.ComponentParameters, code, "")
	}
	b.AddRelation(param(depsgraph.OpParametersEntry), param(depsgraph.OpParametersEval), "Parameters Entry", depsgraph.RelationNoCycle)
	b.AddRelation(param(depsgraph.OpParametersEval), param(depsgraph.OpParametersExit), "Parameters Exit", depsgraph.RelationNoCycle)
}

// buildAnimation connects the action evaluation step to time, to the action
// and to every animated property, and each driver to its variables and
// driven property.
func (b *RelationBuilder) buildAnimation(e *scene.Entity) {
	if e.Anim == nil || b.built.CheckIsBuiltAndTag(e.Handle, depsgraph.TagAnimation) {
		return
	}
	h := e.Handle
	animKey := depsgraph.OperationKey(h, depsgraph.ComponentAnimation, depsgraph.OpAnimation, "")
	action := b.scene.Get(e.Anim.Action)
	hasAction := action.Is(scene.KindAction)
	if hasAction {
		b.BuildID(action.Handle)
		b.AddRelation(depsgraph.TimeSourceKey(), animKey, "TimeSrc -> Animation", 0)
		b.AddRelation(depsgraph.ComponentKey(action.Handle, depsgraph.ComponentParameters, ""), animKey, "Action -> Animation", 0)
		for _, fc := range action.Curves {
			b.AddRelation(animKey, depsgraph.RNAPathKey(h, fc.Path), "Animation -> "+fc.Path, depsgraph.RelationCheckBeforeAdd)
		}
	}

	for _, d := range e.Anim.Drivers {
		driverKey := depsgraph.OperationKey(h, depsgraph.ComponentParameters, depsgraph.OpDriver, DriverName(d))
		if hasAction {
			b.AddRelation(animKey, driverKey, "Animation -> Driver", depsgraph.RelationCheckBeforeAdd)
		}
		for _, v := range d.Variables {
			if v.Time {
				b.AddRelation(depsgraph.TimeSourceKey(), driverKey, "TimeSrc -> Driver", depsgraph.RelationCheckBeforeAdd)
				continue
			}
			b.BuildID(v.Target)
			b.AddRelation(depsgraph.RNAPathKey(v.Target, v.Path), driverKey, "RNA Target -> Driver "+v.Name, depsgraph.RelationCheckBeforeAdd)
		}
		b.AddRelation(driverKey, depsgraph.RNAPathKey(h, d.Path), "Driver -> Driven Property", depsgraph.RelationCheckBeforeAdd)
	}
}

// buildCopyOnWrite orders the publish step after every other component of h.
// Drivers are linked on their own: one whose driven property did not
// resolve is not ordered before the PARAMETERS exit.
func (b *RelationBuilder) buildCopyOnWrite(h scene.Handle) {
	id := b.graph.FindIDNode(h)
	if id == nil {
		return
	}
	publish := depsgraph.OperationKey(h, depsgraph.ComponentCopyOnWrite, depsgraph.OpCopyOnWrite, "")
	for _, c := range id.Components() {
		if c.Kind == depsgraph.ComponentCopyOnWrite {
			continue
		}
		b.AddRelation(depsgraph.ComponentKey(h, c.Kind, c.Name), publish, c.Kind.String()+" -> Publish", 0)
	}
	if params := id.FindComponent(depsgraph.ComponentParameters, ""); params != nil {
		for _, op := range params.Operations() {
			if op.Code == depsgraph.OpDriver {
				key := depsgraph.OperationKey(h, depsgraph.ComponentParameters, depsgraph.OpDriver, op.Name)
				b.AddRelation(key, publish, "Driver -> Publish", depsgraph.RelationCheckBeforeAdd)
			}
		}
	}
}
