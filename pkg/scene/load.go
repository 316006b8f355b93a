package scene

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
)

// fixture mirrors the TOML layout of a scene description file.
type fixture struct {
	Scene       sceneFile        `toml:"scene"`
	Collections []collectionFile `toml:"collection"`
	Objects     []objectFile     `toml:"object"`
	Meshes      []dataFile       `toml:"mesh"`
	Armatures   []armatureFile   `toml:"armature"`
	Cameras     []dataFile       `toml:"camera"`
	Actions     []actionFile     `toml:"action"`
}

type sceneFile struct {
	Name       string             `toml:"name"`
	Collection string             `toml:"collection"`
	Camera     string             `toml:"camera"`
	Objects    []string           `toml:"objects"`
	Frame      float64            `toml:"frame"`
	Action     string             `toml:"action"`
	Props      map[string]float64 `toml:"props"`
	Drivers    []driverFile       `toml:"driver"`
}

type collectionFile struct {
	Name     string   `toml:"name"`
	Objects  []string `toml:"objects"`
	Children []string `toml:"children"`
	Hidden   bool     `toml:"hidden"`
}

type objectFile struct {
	Name        string             `toml:"name"`
	Data        string             `toml:"data"`
	DataKind    string             `toml:"data_kind"`
	Parent      string             `toml:"parent"`
	ParentBone  string             `toml:"parent_bone"`
	Location    *Vec3              `toml:"location"`
	Rotation    *Vec3              `toml:"rotation"`
	Scale       *Vec3              `toml:"scale"`
	Hidden      bool               `toml:"hidden"`
	Modifiers   []modifierFile     `toml:"modifier"`
	Constraints []constraintFile   `toml:"constraint"`
	Pose        []poseFile         `toml:"pose"`
	Action      string             `toml:"action"`
	Props       map[string]float64 `toml:"props"`
	Drivers     []driverFile       `toml:"driver"`
}

type dataFile struct {
	Name    string             `toml:"name"`
	Action  string             `toml:"action"`
	Props   map[string]float64 `toml:"props"`
	Drivers []driverFile       `toml:"driver"`
}

type armatureFile struct {
	Name    string             `toml:"name"`
	Bones   []boneFile         `toml:"bone"`
	Action  string             `toml:"action"`
	Props   map[string]float64 `toml:"props"`
	Drivers []driverFile       `toml:"driver"`
}

type boneFile struct {
	Name   string `toml:"name"`
	Parent string `toml:"parent"`
	Head   Vec3   `toml:"head"`
}

type poseFile struct {
	Bone        string           `toml:"bone"`
	Location    Vec3             `toml:"location"`
	Rotation    Vec3             `toml:"rotation"`
	Scale       *Vec3            `toml:"scale"`
	Constraints []constraintFile `toml:"constraint"`
}

type modifierFile struct {
	Name              string             `toml:"name"`
	Type              string             `toml:"type"`
	Target            string             `toml:"target"`
	UseTargetGeometry bool               `toml:"use_target_geometry"`
	Props             map[string]float64 `toml:"props"`
}

type constraintFile struct {
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	Target    string   `toml:"target"`
	Subtarget string   `toml:"subtarget"`
	Influence *float64 `toml:"influence"`
}

type driverFile struct {
	Path      string    `toml:"path"`
	Index     int       `toml:"index"`
	Type      string    `toml:"type"`
	Variables []varFile `toml:"var"`
}

type varFile struct {
	Name       string `toml:"name"`
	Target     string `toml:"target"`
	TargetKind string `toml:"target_kind"`
	Path       string `toml:"path"`
	Index      int    `toml:"index"`
	Time       bool   `toml:"time"`
}

type actionFile struct {
	Name   string      `toml:"name"`
	Curves []curveFile `toml:"curve"`
}

type curveFile struct {
	Path  string       `toml:"path"`
	Index int          `toml:"index"`
	Keys  [][2]float64 `toml:"keys"`
}

// LoadFile reads a TOML scene description from path.
func LoadFile(path string) (*Scene, Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NoHandle, deperrors.Wrap(deperrors.ErrCodeInvalidFixture, err, "open %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Load builds a scene from a TOML description and returns it together with
// the handle of the scene entity.
//
// Entities are created first, in file order (collections, actions, data,
// objects, scene), then references are resolved by name. Any reference to an
// unknown name is an error. When [scene] names no collection, a master
// collection is generated that holds [scene].objects and all top-level
// collections.
func Load(r io.Reader) (*Scene, Handle, error) {
	var fx fixture
	if _, err := toml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, NoHandle, deperrors.Wrap(deperrors.ErrCodeInvalidFixture, err, "decode scene")
	}
	l := &loader{s: New()}
	return l.load(&fx)
}

type loader struct {
	s   *Scene
	err error
}

func (l *loader) add(e *Entity) *Entity {
	if l.err != nil {
		return e
	}
	if err := deperrors.ValidateName(e.Name); err != nil {
		l.err = err
		return e
	}
	if _, err := l.s.Add(e); err != nil {
		l.err = deperrors.Wrap(deperrors.ErrCodeInvalidFixture, err, "add %s", e.Kind)
	}
	return e
}

// ref resolves name among the given kinds. Empty names resolve to NoHandle.
func (l *loader) ref(name string, kinds ...Kind) Handle {
	if name == "" || l.err != nil {
		return NoHandle
	}
	for _, k := range kinds {
		if h, ok := l.s.Lookup(k, name); ok {
			return h
		}
	}
	l.err = deperrors.New(deperrors.ErrCodeInvalidFixture, "unknown %s %q", kinds[0], name)
	return NoHandle
}

func (l *loader) load(fx *fixture) (*Scene, Handle, error) {
	if fx.Scene.Name == "" {
		fx.Scene.Name = "Scene"
	}

	collections := make([]*Entity, len(fx.Collections))
	for i, c := range fx.Collections {
		collections[i] = l.add(&Entity{Kind: KindCollection, Name: c.Name, Hidden: c.Hidden})
	}
	for _, a := range fx.Actions {
		l.add(&Entity{Kind: KindAction, Name: a.Name, Curves: curves(a.Curves)})
	}
	meshes := make([]*Entity, len(fx.Meshes))
	for i, m := range fx.Meshes {
		meshes[i] = l.add(&Entity{Kind: KindMesh, Name: m.Name, Props: m.Props})
	}
	cameras := make([]*Entity, len(fx.Cameras))
	for i, c := range fx.Cameras {
		cameras[i] = l.add(&Entity{Kind: KindCamera, Name: c.Name, Props: c.Props})
	}
	armatures := make([]*Entity, len(fx.Armatures))
	for i, a := range fx.Armatures {
		arm := &Entity{Kind: KindArmature, Name: a.Name, Props: a.Props}
		for _, b := range a.Bones {
			arm.Bones = append(arm.Bones, Bone{Name: b.Name, Parent: b.Parent, Head: b.Head})
		}
		armatures[i] = l.add(arm)
	}
	objects := make([]*Entity, len(fx.Objects))
	for i, o := range fx.Objects {
		obj := NewObject(o.Name)
		obj.Hidden = o.Hidden
		obj.Props = o.Props
		obj.ParentBone = o.ParentBone
		if o.Location != nil {
			obj.Location = *o.Location
		}
		if o.Rotation != nil {
			obj.Rotation = *o.Rotation
		}
		if o.Scale != nil {
			obj.Scale = *o.Scale
		}
		objects[i] = l.add(obj)
	}

	var master Handle
	if fx.Scene.Collection == "" {
		master = l.add(&Entity{Kind: KindCollection, Name: fx.Scene.Name + " Collection"}).Handle
	}
	scn := l.add(&Entity{Kind: KindScene, Name: fx.Scene.Name, Frame: fx.Scene.Frame, Props: fx.Scene.Props})
	if l.err != nil {
		return nil, NoHandle, l.err
	}

	// References.
	if master == NoHandle {
		master = l.ref(fx.Scene.Collection, KindCollection)
	}
	scn.Collection = master
	scn.Camera = l.ref(fx.Scene.Camera, KindObject)
	scn.Anim = l.anim(fx.Scene.Action, fx.Scene.Drivers)

	nested := make(map[Handle]bool)
	for i, c := range fx.Collections {
		for _, name := range c.Objects {
			collections[i].Objects = append(collections[i].Objects, l.ref(name, KindObject))
		}
		for _, name := range c.Children {
			h := l.ref(name, KindCollection)
			collections[i].Children = append(collections[i].Children, h)
			nested[h] = true
		}
	}
	if fx.Scene.Collection == "" {
		// A generated master collection holds the listed objects and every
		// collection that is not nested in another one.
		m := l.s.Get(master)
		for _, name := range fx.Scene.Objects {
			m.Objects = append(m.Objects, l.ref(name, KindObject))
		}
		for _, c := range collections {
			if !nested[c.Handle] {
				m.Children = append(m.Children, c.Handle)
			}
		}
	}
	for i, m := range fx.Meshes {
		meshes[i].Anim = l.anim(m.Action, m.Drivers)
	}
	for i, c := range fx.Cameras {
		cameras[i].Anim = l.anim(c.Action, c.Drivers)
	}
	for i, a := range fx.Armatures {
		armatures[i].Anim = l.anim(a.Action, a.Drivers)
	}
	for i, o := range fx.Objects {
		l.object(objects[i], &o)
	}
	if l.err != nil {
		return nil, NoHandle, l.err
	}
	return l.s, scn.Handle, nil
}

func (l *loader) object(obj *Entity, o *objectFile) {
	dataKinds := []Kind{KindMesh, KindArmature, KindCamera}
	if o.DataKind != "" {
		k, ok := ParseKind(o.DataKind)
		if !ok {
			l.err = deperrors.New(deperrors.ErrCodeInvalidFixture, "object %q: unknown data kind %q", o.Name, o.DataKind)
			return
		}
		dataKinds = []Kind{k}
	}
	obj.Data = l.ref(o.Data, dataKinds...)
	obj.Parent = l.ref(o.Parent, KindObject)
	for _, m := range o.Modifiers {
		obj.Modifiers = append(obj.Modifiers, Modifier{
			Name:              m.Name,
			Type:              m.Type,
			Target:            l.ref(m.Target, KindObject),
			UseTargetGeometry: m.UseTargetGeometry,
			Props:             m.Props,
		})
	}
	obj.Constraints = l.constraints(o.Constraints)
	for _, p := range o.Pose {
		pb := PoseBone{Name: p.Bone, Location: p.Location, Rotation: p.Rotation, Scale: Vec3{1, 1, 1}}
		if p.Scale != nil {
			pb.Scale = *p.Scale
		}
		pb.Constraints = l.constraints(p.Constraints)
		obj.Pose = append(obj.Pose, pb)
	}
	obj.Anim = l.anim(o.Action, o.Drivers)
}

func (l *loader) constraints(in []constraintFile) []Constraint {
	var out []Constraint
	for _, c := range in {
		influence := 1.0
		if c.Influence != nil {
			influence = *c.Influence
		}
		out = append(out, Constraint{
			Name:      c.Name,
			Type:      c.Type,
			Target:    l.ref(c.Target, KindObject),
			Subtarget: c.Subtarget,
			Influence: influence,
		})
	}
	return out
}

func (l *loader) anim(action string, drivers []driverFile) *AnimData {
	if action == "" && len(drivers) == 0 {
		return nil
	}
	ad := &AnimData{Action: l.ref(action, KindAction)}
	for _, d := range drivers {
		drv := Driver{Path: d.Path, Index: d.Index, Type: DriverType(d.Type)}
		if drv.Type == "" {
			drv.Type = DriverSum
		}
		for _, v := range d.Variables {
			kind := KindObject
			if v.TargetKind != "" {
				k, ok := ParseKind(v.TargetKind)
				if !ok {
					l.err = deperrors.New(deperrors.ErrCodeInvalidFixture, "driver %q: unknown target kind %q", d.Path, v.TargetKind)
					return ad
				}
				kind = k
			}
			dv := DriverVar{Name: v.Name, Path: v.Path, Index: v.Index, Time: v.Time}
			if !v.Time {
				dv.Target = l.ref(v.Target, kind)
			}
			drv.Variables = append(drv.Variables, dv)
		}
		ad.Drivers = append(ad.Drivers, drv)
	}
	return ad
}

func curves(in []curveFile) []FCurve {
	out := make([]FCurve, 0, len(in))
	for _, c := range in {
		fc := FCurve{Path: c.Path, Index: c.Index}
		for _, k := range c.Keys {
			fc.Keys = append(fc.Keys, Keyframe{Frame: k[0], Value: k[1]})
		}
		out = append(out, fc)
	}
	return out
}
