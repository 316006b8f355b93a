package kernel

import (
	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

func transformLocal(ec *depsgraph.EvalContext) error {
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.Local = scene.FromLocRotScale(e.Location, e.Rotation, e.Scale)
		e.Eval.World = e.Eval.Local
		return nil
	})
}

func transformParent(ec *depsgraph.EvalContext) error {
	orig := ec.Original()
	parent, ok := worldMatrix(ec, orig.Parent, orig.ParentBone)
	if !ok {
		return nil
	}
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.World = parent.Mul(e.Eval.Local)
		return nil
	})
}

func transformConstraints(ec *depsgraph.EvalContext) error {
	targets := constraintTargets(ec, ec.Original().Constraints)
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.World = applyConstraints(e.Eval.World, e.Constraints, targets)
		return nil
	})
}

func poseInit(ec *depsgraph.EvalContext) error {
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.Pose = make(map[string]scene.Matrix, len(e.Pose))
		return nil
	})
}

// bone computes the armature-space matrix of one bone from its rest head,
// its pose channel and its parent bone.
func bone(name string) depsgraph.OperationFunc {
	return func(ec *depsgraph.EvalContext) error {
		orig := ec.Original()
		var rest scene.Bone
		var found bool
		ec.View(orig.Data, func(arm *scene.Entity) {
			if b, ok := arm.Bone(name); ok {
				rest, found = *b, true
			}
		})
		if !found {
			return nil
		}
		var targets []scene.Matrix
		if pb, ok := orig.PoseBone(name); ok {
			targets = constraintTargets(ec, pb.Constraints)
		}

		return ec.Update(func(e *scene.Entity) error {
			if e.Eval.Pose == nil {
				e.Eval.Pose = make(map[string]scene.Matrix)
			}
			loc, rot, scale := rest.Head, scene.Vec3{}, scene.Vec3{1, 1, 1}
			pb, ok := e.PoseBone(name)
			if ok {
				loc, rot, scale = loc.Add(pb.Location), pb.Rotation, pb.Scale
			}
			m := scene.FromLocRotScale(loc, rot, scale)
			if parent, ok := e.Eval.Pose[rest.Parent]; ok && rest.Parent != name {
				m = parent.Mul(m)
			}
			if pb != nil {
				m = applyConstraints(m, pb.Constraints, targets)
			}
			e.Eval.Pose[name] = m
			return nil
		})
	}
}

// worldMatrix returns the evaluated world matrix of h, composed with the
// pose matrix of boneName when set. Entities that have not been evaluated
// fall back to their authored transform.
func worldMatrix(ec *depsgraph.EvalContext, h scene.Handle, boneName string) (scene.Matrix, bool) {
	var m scene.Matrix
	ok := ec.View(h, func(e *scene.Entity) {
		m = e.Eval.World
		if m.IsZero() {
			m = scene.FromLocRotScale(e.Location, e.Rotation, e.Scale)
		}
		if boneName == "" {
			return
		}
		if pm, ok := e.Eval.Pose[boneName]; ok {
			m = m.Mul(pm)
		}
	})
	return m, ok
}

func constraintTargets(ec *depsgraph.EvalContext, cs []scene.Constraint) []scene.Matrix {
	out := make([]scene.Matrix, len(cs))
	for i, c := range cs {
		if m, ok := worldMatrix(ec, c.Target, c.Subtarget); ok {
			out[i] = m
		}
	}
	return out
}

// applyConstraints blends m toward each target in order. Targets that did
// not resolve and unknown constraint types leave m unchanged.
func applyConstraints(m scene.Matrix, cs []scene.Constraint, targets []scene.Matrix) scene.Matrix {
	for i, c := range cs {
		if i >= len(targets) || targets[i].IsZero() {
			continue
		}
		t := targets[i]
		switch c.Type {
		case "copy_location":
			m = m.WithTranslation(m.Translation().Lerp(t.Translation(), c.Influence))
		case "copy_scale":
			m = m.WithScale(m.ScaleFactors().Lerp(t.ScaleFactors(), c.Influence))
		}
	}
	return m
}
