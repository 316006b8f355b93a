package kernel

import (
	"fmt"
	"slices"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/builder"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

type channelValue struct {
	prop  scene.Property
	index int
	value float64
}

// animate writes every resolvable curve of the entity's action at the
// current frame. Curves whose path does not resolve are ignored; the
// relation builder already reported them.
func animate(ec *depsgraph.EvalContext) error {
	orig := ec.Original()
	if orig == nil || orig.Anim == nil {
		return nil
	}
	var curves []scene.FCurve
	ec.View(orig.Anim.Action, func(a *scene.Entity) { curves = a.Curves })

	values := make([]channelValue, 0, len(curves))
	for _, fc := range curves {
		p, err := ec.Scene().Resolve(orig.Handle, fc.Path)
		if err != nil {
			continue
		}
		values = append(values, channelValue{prop: p, index: fc.Index, value: fc.Evaluate(ec.Frame)})
	}
	return ec.Update(func(e *scene.Entity) error {
		for _, v := range values {
			if err := v.prop.Set(e, v.index, v.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// driver evaluates the driver whose operation name is name.
func driver(name string) depsgraph.OperationFunc {
	return func(ec *depsgraph.EvalContext) error {
		orig := ec.Original()
		if orig == nil || orig.Anim == nil {
			return nil
		}
		var d *scene.Driver
		for i := range orig.Anim.Drivers {
			if builder.DriverName(orig.Anim.Drivers[i]) == name {
				d = &orig.Anim.Drivers[i]
				break
			}
		}
		if d == nil {
			return deperrors.New(deperrors.ErrCodeNotFound, "driver %s not found on %q", name, orig.Name)
		}

		vars := make([]float64, 0, len(d.Variables))
		for _, v := range d.Variables {
			x, err := readVar(ec, v)
			if err != nil {
				return err
			}
			vars = append(vars, x)
		}
		value, err := combine(d.Type, vars)
		if err != nil {
			return err
		}

		p, err := ec.Scene().Resolve(orig.Handle, d.Path)
		if err != nil {
			return err
		}
		return ec.Update(func(e *scene.Entity) error { return p.Set(e, d.Index, value) })
	}
}

func readVar(ec *depsgraph.EvalContext, v scene.DriverVar) (float64, error) {
	if v.Time {
		return ec.Frame, nil
	}
	p, err := ec.Scene().Resolve(v.Target, v.Path)
	if err != nil {
		return 0, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	var x float64
	ec.View(v.Target, func(e *scene.Entity) { x, err = p.Get(e, v.Index) })
	if err != nil {
		return 0, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	return x, nil
}

func combine(typ scene.DriverType, vars []float64) (float64, error) {
	if len(vars) == 0 {
		return 0, nil
	}
	switch typ {
	case scene.DriverSum, "":
		var sum float64
		for _, x := range vars {
			sum += x
		}
		return sum, nil
	case scene.DriverAverage:
		var sum float64
		for _, x := range vars {
			sum += x
		}
		return sum / float64(len(vars)), nil
	case scene.DriverMin:
		return slices.Min(vars), nil
	case scene.DriverMax:
		return slices.Max(vars), nil
	}
	return 0, deperrors.New(deperrors.ErrCodeUnsupported, "driver type %q", typ)
}
