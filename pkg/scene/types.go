package scene

import "sort"

// Modifier is one step of an object's geometry stack.
type Modifier struct {
	Name   string
	Type   string
	Target Handle // optional object the modifier reads
	// UseTargetGeometry makes the modifier read the target's evaluated
	// geometry in addition to its transform (e.g. boolean).
	UseTargetGeometry bool
	Props             map[string]float64
}

// Constraint adjusts an object's or bone's transform from a target.
type Constraint struct {
	Name      string
	Type      string // copy_location, copy_scale, ...
	Target    Handle
	Subtarget string // bone name when Target is an armature object
	Influence float64
}

// Bone is a rest bone of an armature.
type Bone struct {
	Name   string
	Parent string
	Head   Vec3
}

// PoseBone is the animatable pose channel of a bone on an armature object.
type PoseBone struct {
	Name        string
	Location    Vec3
	Rotation    Vec3
	Scale       Vec3
	Constraints []Constraint
}

// AnimData links an entity to its action and drivers.
type AnimData struct {
	Action  Handle
	Drivers []Driver
}

// DriverType selects how driver variables are combined.
type DriverType string

const (
	DriverSum     DriverType = "sum"
	DriverAverage DriverType = "average"
	DriverMin     DriverType = "min"
	DriverMax     DriverType = "max"
)

// Driver computes one property channel from other properties.
type Driver struct {
	Path      string
	Index     int
	Type      DriverType
	Variables []DriverVar
}

// DriverVar reads a single property of a target entity, or the current
// frame when Time is set.
type DriverVar struct {
	Name   string
	Target Handle
	Path   string
	Index  int
	Time   bool
}

// Keyframe is one point of an animation curve.
type Keyframe struct {
	Frame float64
	Value float64
}

// FCurve animates one property channel.
type FCurve struct {
	Path  string
	Index int
	Keys  []Keyframe
}

// Evaluate returns the curve value at frame using linear interpolation,
// holding the first and last key values outside the keyed range.
// An empty curve evaluates to 0.
func (c FCurve) Evaluate(frame float64) float64 {
	switch len(c.Keys) {
	case 0:
		return 0
	case 1:
		return c.Keys[0].Value
	}
	keys := c.Keys
	if !sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i].Frame < keys[j].Frame }) {
		keys = append([]Keyframe(nil), keys...)
		sort.Slice(keys, func(i, j int) bool { return keys[i].Frame < keys[j].Frame })
	}
	if frame <= keys[0].Frame {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if frame >= last.Frame {
		return last.Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Frame > frame })
	a, b := keys[i-1], keys[i]
	t := (frame - a.Frame) / (b.Frame - a.Frame)
	return a.Value + (b.Value-a.Value)*t
}

// EvalState holds results written by operations into evaluated copies.
type EvalState struct {
	Local            Matrix
	World            Matrix
	Pose             map[string]Matrix
	AppliedModifiers []string
	GeometryVersion  int
	Visible          bool
}
