package depsgraph

import (
	"context"

	"github.com/google/uuid"

	"github.com/matzehuels/depsgraph/pkg/scene"
)

// OperationFunc is the callback of an operation. A nil OperationFunc is a
// no-op step that exists only to order other steps.
type OperationFunc func(ctx *EvalContext) error

// EvalContext is passed to operation callbacks.
type EvalContext struct {
	context.Context

	PassID uuid.UUID
	Frame  float64
	Graph  *Depsgraph
	Op     *OperationNode
}

// Scene returns the original scene.
func (c *EvalContext) Scene() *scene.Scene { return c.Graph.scene }

// Owner returns the ID node of the running operation.
func (c *EvalContext) Owner() *IDNode { return c.Op.ID() }

// Original returns the authored entity of the running operation.
func (c *EvalContext) Original() *scene.Entity { return c.Graph.scene.Get(c.Op.ID().Handle) }

// Update runs fn on the evaluated copy of the running operation's entity.
func (c *EvalContext) Update(fn func(e *scene.Entity) error) error {
	sh := c.Owner().Shadow()
	if sh == nil {
		sh = c.Owner().SyncShadow(c.Original())
	}
	return sh.Update(fn)
}

// View runs fn on the evaluated copy of entity h. Entities that have no
// evaluated copy yet are read from the original scene. It reports false
// when h does not resolve.
func (c *EvalContext) View(h scene.Handle, fn func(e *scene.Entity)) bool {
	if id := c.Graph.FindIDNode(h); id != nil && id.Shadow() != nil {
		id.Shadow().View(fn)
		return true
	}
	e := c.Graph.scene.Get(h)
	if e == nil {
		return false
	}
	fn(e)
	return true
}
