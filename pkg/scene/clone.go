package scene

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of e. The copy shares no slices or maps with e,
// so evaluated copies can be written freely.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Props = maps.Clone(e.Props)
	if c.Props == nil {
		c.Props = map[string]float64{}
	}
	if e.Anim != nil {
		anim := *e.Anim
		anim.Drivers = make([]Driver, len(e.Anim.Drivers))
		for i, d := range e.Anim.Drivers {
			d.Variables = slices.Clone(d.Variables)
			anim.Drivers[i] = d
		}
		c.Anim = &anim
	}
	c.Objects = slices.Clone(e.Objects)
	c.Children = slices.Clone(e.Children)
	c.Modifiers = make([]Modifier, len(e.Modifiers))
	for i, m := range e.Modifiers {
		m.Props = maps.Clone(m.Props)
		c.Modifiers[i] = m
	}
	c.Constraints = slices.Clone(e.Constraints)
	c.Pose = make([]PoseBone, len(e.Pose))
	for i, pb := range e.Pose {
		pb.Constraints = slices.Clone(pb.Constraints)
		c.Pose[i] = pb
	}
	c.Bones = slices.Clone(e.Bones)
	c.Curves = make([]FCurve, len(e.Curves))
	for i, fc := range e.Curves {
		fc.Keys = slices.Clone(fc.Keys)
		c.Curves[i] = fc
	}
	c.Eval.Pose = maps.Clone(e.Eval.Pose)
	c.Eval.AppliedModifiers = slices.Clone(e.Eval.AppliedModifiers)
	return &c
}
