package scene

import (
	"fmt"
	"strings"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
)

// StructType names the structure a resolved property lives in.
type StructType int

const (
	// StructObject is an object transform channel (location, rotation_euler, scale).
	StructObject StructType = iota
	// StructCustom is a custom ID property (["name"]).
	StructCustom
	// StructPoseBone is a pose channel of an armature object.
	StructPoseBone
	// StructModifier is a setting of an object modifier.
	StructModifier
)

func (t StructType) String() string {
	switch t {
	case StructObject:
		return "object"
	case StructCustom:
		return "custom"
	case StructPoseBone:
		return "pose_bone"
	case StructModifier:
		return "modifier"
	}
	return fmt.Sprintf("struct(%d)", int(t))
}

// Property is a resolved property location.
type Property struct {
	ID     Handle
	Struct StructType
	Sub    string // bone or modifier name
	Name   string // channel or property name
}

// Resolve maps a textual property path on entity h to a [Property].
// The property must exist on the original entity.
func (s *Scene) Resolve(h Handle, path string) (Property, error) {
	e := s.Get(h)
	if e == nil {
		return Property{}, deperrors.New(deperrors.ErrCodeNotFound, "resolve %q: handle %d", path, h)
	}
	if err := deperrors.ValidatePath(path); err != nil {
		return Property{}, err
	}
	p, err := parsePath(path)
	if err != nil {
		return Property{}, err
	}
	p.ID = h
	if err := p.check(e); err != nil {
		return Property{}, err
	}
	return p, nil
}

func parsePath(path string) (Property, error) {
	switch {
	case isTransformChannel(path):
		return Property{Struct: StructObject, Name: path}, nil
	case strings.HasPrefix(path, `["`):
		name, rest, ok := cutQuoted(path)
		if !ok || rest != "" {
			break
		}
		return Property{Struct: StructCustom, Name: name}, nil
	case strings.HasPrefix(path, "pose.bones["):
		bone, rest, ok := cutQuoted(strings.TrimPrefix(path, "pose.bones"))
		if !ok || !strings.HasPrefix(rest, ".") || !isTransformChannel(rest[1:]) {
			break
		}
		return Property{Struct: StructPoseBone, Sub: bone, Name: rest[1:]}, nil
	case strings.HasPrefix(path, "modifiers["):
		mod, rest, ok := cutQuoted(strings.TrimPrefix(path, "modifiers"))
		if !ok || !strings.HasPrefix(rest, ".") || len(rest) < 2 {
			break
		}
		return Property{Struct: StructModifier, Sub: mod, Name: rest[1:]}, nil
	}
	return Property{}, deperrors.New(deperrors.ErrCodeInvalidPath, "unsupported property path %q", path)
}

// cutQuoted parses a leading `["name"]` and returns the name and the rest.
func cutQuoted(s string) (name, rest string, ok bool) {
	if !strings.HasPrefix(s, `["`) {
		return "", "", false
	}
	end := strings.Index(s[2:], `"]`)
	if end < 0 {
		return "", "", false
	}
	return s[2 : 2+end], s[2+end+2:], true
}

func isTransformChannel(name string) bool {
	return name == "location" || name == "rotation_euler" || name == "scale"
}

func (p Property) check(e *Entity) error {
	switch p.Struct {
	case StructObject:
		if !e.Is(KindObject) {
			return deperrors.New(deperrors.ErrCodeInvalidPath, "%s %q has no property %q", e.Kind, e.Name, p.Name)
		}
	case StructCustom:
		if _, ok := e.Props[p.Name]; !ok {
			return deperrors.New(deperrors.ErrCodeInvalidPath, "%s %q has no custom property %q", e.Kind, e.Name, p.Name)
		}
	case StructPoseBone:
		if _, ok := e.PoseBone(p.Sub); !ok {
			return deperrors.New(deperrors.ErrCodeInvalidPath, "%s %q has no pose bone %q", e.Kind, e.Name, p.Sub)
		}
	case StructModifier:
		if _, ok := e.Modifier(p.Sub); !ok {
			return deperrors.New(deperrors.ErrCodeInvalidPath, "%s %q has no modifier %q", e.Kind, e.Name, p.Sub)
		}
	}
	return nil
}

// String returns the canonical path of p.
func (p Property) String() string {
	switch p.Struct {
	case StructCustom:
		return fmt.Sprintf(`["%s"]`, p.Name)
	case StructPoseBone:
		return fmt.Sprintf(`pose.bones["%s"].%s`, p.Sub, p.Name)
	case StructModifier:
		return fmt.Sprintf(`modifiers["%s"].%s`, p.Sub, p.Name)
	}
	return p.Name
}

// Get reads channel index of p from e. Scalars ignore index.
func (p Property) Get(e *Entity, index int) (float64, error) {
	ptr, err := p.locate(e, index, false)
	if err != nil {
		return 0, err
	}
	return *ptr, nil
}

// Set writes channel index of p on e. Custom and modifier properties are
// created on e if missing, since e is usually an evaluated copy.
func (p Property) Set(e *Entity, index int, v float64) error {
	switch p.Struct {
	case StructCustom:
		if e.Props == nil {
			e.Props = map[string]float64{}
		}
		e.Props[p.Name] = v
		return nil
	case StructModifier:
		m, ok := e.Modifier(p.Sub)
		if !ok {
			return p.missing(e)
		}
		if m.Props == nil {
			m.Props = map[string]float64{}
		}
		m.Props[p.Name] = v
		return nil
	}
	ptr, err := p.locate(e, index, true)
	if err != nil {
		return err
	}
	*ptr = v
	return nil
}

func (p Property) locate(e *Entity, index int, write bool) (*float64, error) {
	switch p.Struct {
	case StructObject:
		return channel(objectChannel(e, p.Name), index, p)
	case StructPoseBone:
		pb, ok := e.PoseBone(p.Sub)
		if !ok {
			return nil, p.missing(e)
		}
		return channel(poseChannel(pb, p.Name), index, p)
	case StructCustom:
		v, ok := e.Props[p.Name]
		if !ok {
			return nil, p.missing(e)
		}
		return &v, nil
	case StructModifier:
		m, ok := e.Modifier(p.Sub)
		if !ok {
			return nil, p.missing(e)
		}
		v, ok := m.Props[p.Name]
		if !ok {
			return nil, p.missing(e)
		}
		return &v, nil
	}
	return nil, p.missing(e)
}

func (p Property) missing(e *Entity) error {
	return deperrors.New(deperrors.ErrCodeInvalidPath, "%s %q: property %s not found", e.Kind, e.Name, p)
}

func channel(v *Vec3, index int, p Property) (*float64, error) {
	if v == nil {
		return nil, deperrors.New(deperrors.ErrCodeInvalidPath, "property %s is not a channel", p)
	}
	if index < 0 || index > 2 {
		return nil, deperrors.New(deperrors.ErrCodeInvalidPath, "property %s index %d out of range", p, index)
	}
	return &v[index], nil
}

func objectChannel(e *Entity, name string) *Vec3 {
	switch name {
	case "location":
		return &e.Location
	case "rotation_euler":
		return &e.Rotation
	case "scale":
		return &e.Scale
	}
	return nil
}

func poseChannel(pb *PoseBone, name string) *Vec3 {
	switch name {
	case "location":
		return &pb.Location
	case "rotation_euler":
		return &pb.Rotation
	case "scale":
		return &pb.Scale
	}
	return nil
}
