package depsgraph

import (
	"fmt"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// KeyKind discriminates [Key] values.
type KeyKind int

const (
	KeyTimeSource KeyKind = iota
	KeyComponent
	KeyOperation
	KeyRNAPath
)

// Side selects which end of a property's owner a property-path key resolves
// to: the producing step when used as a relation source, the consuming step
// when used as a destination.
type Side int

const (
	SideTo Side = iota
	SideFrom
)

// Key names a graph element symbolically. Keys are values; they hold entity
// handles, never node pointers.
type Key struct {
	Kind KeyKind

	ID        scene.Handle
	Component ComponentType
	Name      string // component name
	Code      OperationCode
	OpName    string
	Path      string
	Side      Side
}

// TimeSourceKey names the time source.
func TimeSourceKey() Key { return Key{Kind: KeyTimeSource} }

// ComponentKey names a component of entity h.
func ComponentKey(h scene.Handle, typ ComponentType, name string) Key {
	return Key{Kind: KeyComponent, ID: h, Component: typ, Name: name}
}

// OperationKey names an operation in a component of entity h.
func OperationKey(h scene.Handle, typ ComponentType, code OperationCode, opName string) Key {
	return Key{Kind: KeyOperation, ID: h, Component: typ, Code: code, OpName: opName}
}

// RNAPathKey names the step that owns the property at path on entity h.
func RNAPathKey(h scene.Handle, path string) Key {
	return Key{Kind: KeyRNAPath, ID: h, Path: path}
}

// WithSide returns a copy of k resolving to the given side.
func (k Key) WithSide(side Side) Key {
	k.Side = side
	return k
}

// Identifier returns a stable debug string for k. Entity names are looked
// up in s when it is not nil.
func (k Key) Identifier(s *scene.Scene) string {
	id := fmt.Sprintf("#%d", k.ID)
	if s != nil {
		if e := s.Get(k.ID); e != nil {
			id = fmt.Sprintf("%s %q", e.Kind, e.Name)
		}
	}
	switch k.Kind {
	case KeyTimeSource:
		return "TimeSourceKey"
	case KeyComponent:
		if k.Name != "" {
			return fmt.Sprintf("ComponentKey(%s, %s[%s])", id, k.Component, k.Name)
		}
		return fmt.Sprintf("ComponentKey(%s, %s)", id, k.Component)
	case KeyOperation:
		if k.OpName != "" {
			return fmt.Sprintf("OperationKey(%s, %s, %s(%s))", id, k.Component, k.Code, k.OpName)
		}
		return fmt.Sprintf("OperationKey(%s, %s, %s)", id, k.Component, k.Code)
	case KeyRNAPath:
		return fmt.Sprintf("RNAPathKey(%s, %s)", id, k.Path)
	}
	return fmt.Sprintf("Key(%d)", int(k.Kind))
}

// FindNode resolves k, returning nil when any part of it is absent.
func (g *Depsgraph) FindNode(k Key) Node {
	n, err := g.Resolve(k)
	if err != nil {
		return nil
	}
	return n
}

// Resolve maps k to a node. Component and property-path keys may resolve to
// a [*ComponentNode]; callers pick its entry or exit. Failures carry
// ErrCodeUnresolvedKey.
func (g *Depsgraph) Resolve(k Key) (Node, error) {
	if k.Kind == KeyTimeSource {
		return g.timeSource, nil
	}
	id := g.idMap[k.ID]
	if id == nil {
		return nil, g.unresolved(k, "entity not in graph")
	}
	switch k.Kind {
	case KeyComponent:
		if c := id.FindComponent(k.Component, k.Name); c != nil {
			return c, nil
		}
		return nil, g.unresolved(k, "component missing")
	case KeyOperation:
		c := id.FindComponent(k.Component, k.Name)
		if c == nil {
			return nil, g.unresolved(k, "component missing")
		}
		if op := c.FindOperation(k.Code, k.OpName); op != nil {
			return op, nil
		}
		return nil, g.unresolved(k, "operation missing")
	case KeyRNAPath:
		return g.resolveRNA(k)
	}
	return nil, g.unresolved(k, "unknown key kind")
}

func (g *Depsgraph) resolveRNA(k Key) (Node, error) {
	prop, err := g.scene.Resolve(k.ID, k.Path)
	if err != nil {
		return nil, deperrors.Wrap(deperrors.ErrCodeUnresolvedKey, err, "%s", k.Identifier(g.scene))
	}
	var target Key
	switch prop.Struct {
	case scene.StructObject:
		if k.Side == SideFrom {
			target = ComponentKey(k.ID, ComponentTransform, "")
		} else {
			target = OperationKey(k.ID, ComponentTransform, OpTransformLocal, "")
		}
	case scene.StructCustom:
		target = OperationKey(k.ID, ComponentParameters, OpParametersEval, "")
	case scene.StructPoseBone:
		target = OperationKey(k.ID, ComponentPose, OpBone, prop.Sub)
	case scene.StructModifier:
		if k.Side == SideFrom {
			target = ComponentKey(k.ID, ComponentGeometry, "")
		} else {
			target = OperationKey(k.ID, ComponentGeometry, OpModifier, prop.Sub)
		}
	default:
		return nil, g.unresolved(k, "property has no owning component")
	}
	n, err := g.Resolve(target)
	if err != nil {
		return nil, g.unresolved(k, fmt.Sprintf("property %s: %s", prop, deperrors.UserMessage(err)))
	}
	return n, nil
}

func (g *Depsgraph) unresolved(k Key, reason string) error {
	return deperrors.New(deperrors.ErrCodeUnresolvedKey, "%s: %s", k.Identifier(g.scene), reason)
}
