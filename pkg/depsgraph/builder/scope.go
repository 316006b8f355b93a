package builder

import (
	"fmt"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Scope selects what part of a scene the builders walk.
type Scope interface {
	// Roots returns the entities the builders start from. It fails when
	// the scope does not fit the scene.
	Roots(s *scene.Scene) ([]scene.Handle, error)
	String() string
}

// ViewLayerScope builds everything reachable from one scene entity.
type ViewLayerScope struct {
	Scene scene.Handle
}

func (v ViewLayerScope) Roots(s *scene.Scene) ([]scene.Handle, error) {
	e := s.Get(v.Scene)
	if e == nil {
		return nil, deperrors.New(deperrors.ErrCodeInvalidScope, "view layer: unknown scene %d", v.Scene)
	}
	if !e.Is(scene.KindScene) {
		return nil, deperrors.New(deperrors.ErrCodeInvalidScope, "view layer: %s %q is not a scene", e.Kind, e.Name)
	}
	return []scene.Handle{v.Scene}, nil
}

func (v ViewLayerScope) String() string { return fmt.Sprintf("view_layer(%d)", v.Scene) }

// IDsScope builds the listed entities and whatever they depend on.
type IDsScope struct {
	IDs []scene.Handle
}

func (v IDsScope) Roots(s *scene.Scene) ([]scene.Handle, error) {
	if len(v.IDs) == 0 {
		return nil, deperrors.New(deperrors.ErrCodeInvalidScope, "ids: empty scope")
	}
	for _, h := range v.IDs {
		if s.Get(h) == nil {
			return nil, deperrors.New(deperrors.ErrCodeInvalidScope, "ids: unknown entity %d", h)
		}
	}
	return append([]scene.Handle(nil), v.IDs...), nil
}

func (v IDsScope) String() string { return fmt.Sprintf("ids(%d)", len(v.IDs)) }
