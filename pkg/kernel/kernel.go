// Package kernel provides the default operation callbacks.
//
// Callbacks read other entities through [depsgraph.EvalContext.View] and
// write only the evaluated copy of their own entity through
// [depsgraph.EvalContext.Update]. Reads always happen before the write so no
// callback holds two copies locked at once.
//
// The math is small: transforms are composed from location,
// XYZ euler rotation and scale; constraints blend translation or scale
// toward a target by influence; geometry evaluation only records which
// modifiers ran.
package kernel

import (
	"slices"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/builder"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Default returns the kernel used by the pipeline when none is configured.
func Default() builder.Kernel { return builder.KernelFunc(Callback) }

// Callback returns the callback for an operation, or nil for steps that
// only order other steps.
func Callback(kind scene.Kind, code depsgraph.OperationCode, name string) depsgraph.OperationFunc {
	switch code {
	case depsgraph.OpParametersEval:
		if kind == scene.KindScene {
			return sceneFrame
		}
	case depsgraph.OpAnimation:
		return animate
	case depsgraph.OpDriver:
		return driver(name)
	case depsgraph.OpTransformLocal:
		return transformLocal
	case depsgraph.OpTransformParent:
		return transformParent
	case depsgraph.OpTransformConstraints:
		return transformConstraints
	case depsgraph.OpGeometryInit:
		return geometryInit
	case depsgraph.OpModifier:
		return modifier(name)
	case depsgraph.OpGeometryEval:
		return geometryEval
	case depsgraph.OpPoseInit:
		return poseInit
	case depsgraph.OpBone:
		return bone(name)
	case depsgraph.OpVisibility:
		return visibility
	case depsgraph.OpCopyOnWrite:
		return publish
	}
	return nil
}

func sceneFrame(ec *depsgraph.EvalContext) error {
	return ec.Update(func(e *scene.Entity) error {
		e.Frame = ec.Frame
		return nil
	})
}

func visibility(ec *depsgraph.EvalContext) error {
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.Visible = !e.Hidden
		return nil
	})
}

func publish(ec *depsgraph.EvalContext) error {
	sh := ec.Owner().Shadow()
	if sh == nil {
		sh = ec.Owner().SyncShadow(ec.Original())
	}
	sh.Publish()
	return nil
}

func geometryInit(ec *depsgraph.EvalContext) error {
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.AppliedModifiers = e.Eval.AppliedModifiers[:0]
		return nil
	})
}

func modifier(name string) depsgraph.OperationFunc {
	return func(ec *depsgraph.EvalContext) error {
		return ec.Update(func(e *scene.Entity) error {
			if _, ok := e.Modifier(name); !ok || slices.Contains(e.Eval.AppliedModifiers, name) {
				return nil
			}
			e.Eval.AppliedModifiers = append(e.Eval.AppliedModifiers, name)
			return nil
		})
	}
}

func geometryEval(ec *depsgraph.EvalContext) error {
	return ec.Update(func(e *scene.Entity) error {
		e.Eval.GeometryVersion++
		return nil
	})
}
