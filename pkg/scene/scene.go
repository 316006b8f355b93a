package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownHandle is returned when a handle does not resolve to an entity.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrDuplicateName is returned by [Scene.Add] when an entity of the same
	// kind already uses the name.
	ErrDuplicateName = errors.New("duplicate entity name")
)

// Handle is a stable reference to an entity inside one [Scene].
// The zero value, [NoHandle], never refers to an entity.
type Handle uint32

// NoHandle is the null reference.
const NoHandle Handle = 0

// IsValid reports whether h is not [NoHandle]. It does not check that the
// handle resolves.
func (h Handle) IsValid() bool { return h != NoHandle }

// Kind classifies an entity.
type Kind int

const (
	KindScene Kind = iota
	KindCollection
	KindObject
	KindMesh
	KindArmature
	KindCamera
	KindAction
)

var kindNames = [...]string{
	KindScene:      "scene",
	KindCollection: "collection",
	KindObject:     "object",
	KindMesh:       "mesh",
	KindArmature:   "armature",
	KindCamera:     "camera",
	KindAction:     "action",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a lowercase kind name back to a [Kind].
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Entity is one datablock. Fields are grouped by the kinds that use them.
type Entity struct {
	Handle Handle
	Kind   Kind
	Name   string

	// Any kind.
	Anim  *AnimData
	Props map[string]float64

	// KindScene.
	Collection Handle // master collection
	Camera     Handle // active camera object
	Frame      float64

	// KindCollection.
	Objects  []Handle
	Children []Handle

	// KindObject. Hidden is shared with collections.
	Parent      Handle
	ParentBone  string
	Data        Handle
	Location    Vec3
	Rotation    Vec3
	Scale       Vec3
	Hidden      bool
	Modifiers   []Modifier
	Constraints []Constraint
	Pose        []PoseBone

	// KindArmature.
	Bones []Bone

	// KindAction.
	Curves []FCurve

	// Eval is only populated on evaluated copies.
	Eval EvalState
}

// Is reports whether the entity has kind k.
func (e *Entity) Is(k Kind) bool { return e != nil && e.Kind == k }

// PoseBone returns the pose channel with the given bone name.
func (e *Entity) PoseBone(name string) (*PoseBone, bool) {
	for i := range e.Pose {
		if e.Pose[i].Name == name {
			return &e.Pose[i], true
		}
	}
	return nil, false
}

// Modifier returns the modifier with the given name.
func (e *Entity) Modifier(name string) (*Modifier, bool) {
	for i := range e.Modifiers {
		if e.Modifiers[i].Name == name {
			return &e.Modifiers[i], true
		}
	}
	return nil, false
}

// Bone returns the armature bone with the given name.
func (e *Entity) Bone(name string) (*Bone, bool) {
	for i := range e.Bones {
		if e.Bones[i].Name == name {
			return &e.Bones[i], true
		}
	}
	return nil, false
}

// Clock is the authoritative time supplied by the animation system.
// Changed is an explicit "frame changed" signal that forces re-evaluation
// even when Frame equals the value cached by the graph (undo/redo).
type Clock struct {
	Frame   float64
	Changed bool
}

type nameKey struct {
	kind Kind
	name string
}

// Scene is an arena of entities. Handles are allocated sequentially starting
// at 1 and are never reused.
type Scene struct {
	entities []*Entity // index = handle-1
	names    map[nameKey]Handle
}

// New creates an empty scene arena.
func New() *Scene {
	return &Scene{names: make(map[nameKey]Handle)}
}

// Add stores e in the arena, assigns its handle and returns it.
// Names are unique per kind.
func (s *Scene) Add(e *Entity) (Handle, error) {
	key := nameKey{e.Kind, e.Name}
	if _, exists := s.names[key]; exists {
		return NoHandle, fmt.Errorf("%w: %s %q", ErrDuplicateName, e.Kind, e.Name)
	}
	if e.Props == nil {
		e.Props = map[string]float64{}
	}
	s.entities = append(s.entities, e)
	e.Handle = Handle(len(s.entities))
	s.names[key] = e.Handle
	return e.Handle, nil
}

// MustAdd is like Add but panics on error. It is intended for tests and
// fixtures assembled in code.
func (s *Scene) MustAdd(e *Entity) Handle {
	h, err := s.Add(e)
	if err != nil {
		panic(err)
	}
	return h
}

// Get returns the entity for h, or nil if h does not resolve.
func (s *Scene) Get(h Handle) *Entity {
	if h == NoHandle || int(h) > len(s.entities) {
		return nil
	}
	return s.entities[h-1]
}

// Lookup returns the handle of the entity with the given kind and name.
func (s *Scene) Lookup(kind Kind, name string) (Handle, bool) {
	h, ok := s.names[nameKey{kind, name}]
	return h, ok
}

// Entities returns all entities in handle order.
func (s *Scene) Entities() []*Entity {
	out := make([]*Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Len returns the number of entities.
func (s *Scene) Len() int { return len(s.entities) }

// Scenes returns the handles of all scene entities in handle order.
func (s *Scene) Scenes() []Handle {
	var out []Handle
	for _, e := range s.entities {
		if e.Kind == KindScene {
			out = append(out, e.Handle)
		}
	}
	return out
}

// Link appends object to the objects of collection.
func (s *Scene) Link(collection, object Handle) error {
	c := s.Get(collection)
	if !c.Is(KindCollection) {
		return fmt.Errorf("%w: collection %d", ErrUnknownHandle, collection)
	}
	if s.Get(object) == nil {
		return fmt.Errorf("%w: object %d", ErrUnknownHandle, object)
	}
	c.Objects = append(c.Objects, object)
	return nil
}

// NewScene returns a scene entity with a fresh master collection already
// added to s.
func (s *Scene) NewScene(name string) (scn, master Handle) {
	master = s.MustAdd(&Entity{Kind: KindCollection, Name: name + " Collection"})
	scn = s.MustAdd(&Entity{Kind: KindScene, Name: name, Collection: master, Frame: 1})
	return scn, master
}

// NewObject returns an object entity with identity transform values.
func NewObject(name string) *Entity {
	return &Entity{Kind: KindObject, Name: name, Scale: Vec3{1, 1, 1}}
}
