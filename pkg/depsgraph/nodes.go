package depsgraph

import (
	"fmt"
	"sync"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Node is implemented by every graph element.
type Node interface {
	Type() NodeType
	Graph() *Depsgraph
	Identifier() string
}

// TimeSourceNode represents global evaluation time. It has no incoming
// relations.
type TimeSourceNode struct {
	graph *Depsgraph

	Outlinks []*Relation

	// Frame is the time the graph was last evaluated at.
	Frame float64
	// Evaluated is false until the first time-driven evaluation.
	Evaluated bool

	tagged bool
}

func (n *TimeSourceNode) Type() NodeType { return NodeTimeSource }
func (n *TimeSourceNode) Graph() *Depsgraph { return n.graph }
func (n *TimeSourceNode) Identifier() string { return "TimeSource" }
func (n *TimeSourceNode) Tagged() bool { return n.tagged }
func (n *TimeSourceNode) SetTagged(tagged bool) { n.tagged = tagged }

type componentKey struct {
	typ  ComponentType
	name string
}

// IDNode owns the evaluation state of one scene entity.
type IDNode struct {
	graph *Depsgraph

	Handle scene.Handle
	Kind   scene.Kind
	Name   string

	// DirectlyVisible is set by the builder for entities that are visible
	// in the built scope (enabled objects and their data).
	DirectlyVisible bool
	// Recalc accumulates tags applied to this entity since the last pass.
	Recalc Tag

	components map[componentKey]*ComponentNode
	order      []*ComponentNode
	shadow     *Shadow
}

func (n *IDNode) Type() NodeType { return NodeID }
func (n *IDNode) Graph() *Depsgraph { return n.graph }
func (n *IDNode) Identifier() string { return fmt.Sprintf("%s %q", n.Kind, n.Name) }

// AddComponent returns the component of the given type and name, creating
// it if needed.
func (n *IDNode) AddComponent(typ ComponentType, name string) *ComponentNode {
	key := componentKey{typ, name}
	if c, ok := n.components[key]; ok {
		return c
	}
	c := &ComponentNode{
		owner: n,
		Kind:  typ,
		Name:  name,
		index: make(map[operationKey]*OperationNode),
	}
	n.components[key] = c
	n.order = append(n.order, c)
	return c
}

// FindComponent returns the component or nil.
func (n *IDNode) FindComponent(typ ComponentType, name string) *ComponentNode {
	return n.components[componentKey{typ, name}]
}

// Components returns the components in creation order.
func (n *IDNode) Components() []*ComponentNode {
	return append([]*ComponentNode(nil), n.order...)
}

// Shadow returns the evaluated copy of the entity, or nil before the first
// evaluation touches it.
func (n *IDNode) Shadow() *Shadow { return n.shadow }

// SyncShadow refreshes the evaluated copy from the original entity and marks
// it invalid until published. Authored fields are copied; evaluated state
// from earlier passes is kept. The copy is created on first use.
func (n *IDNode) SyncShadow(orig *scene.Entity) *Shadow {
	if n.shadow == nil {
		n.shadow = &Shadow{}
	}
	n.shadow.sync(orig)
	return n.shadow
}

type operationKey struct {
	code OperationCode
	name string
}

// ComponentNode groups the operations of one (entity, domain) pair.
type ComponentNode struct {
	owner *IDNode

	Kind ComponentType
	Name string

	ops   []*OperationNode
	index map[operationKey]*OperationNode
	entry *OperationNode
	exit  *OperationNode
}

func (c *ComponentNode) Type() NodeType { return NodeComponent }
func (c *ComponentNode) Graph() *Depsgraph { return c.owner.graph }
func (c *ComponentNode) Owner() *IDNode { return c.owner }

func (c *ComponentNode) Identifier() string {
	if c.Name != "" {
		return fmt.Sprintf("%s %s[%s]", c.owner.Identifier(), c.Kind, c.Name)
	}
	return fmt.Sprintf("%s %s", c.owner.Identifier(), c.Kind)
}

// AddOperation creates an operation in the component. Adding the same
// (code, name) twice is a builder bug and panics.
func (c *ComponentNode) AddOperation(code OperationCode, name string, fn OperationFunc) *OperationNode {
	key := operationKey{code, name}
	if _, ok := c.index[key]; ok {
		deperrors.Structural("%s: duplicate operation %s %q", c.Identifier(), code, name)
	}
	op := &OperationNode{owner: c, Code: code, Name: name, Func: fn}
	c.index[key] = op
	c.ops = append(c.ops, op)
	c.owner.graph.registerOperation(op)
	return op
}

// FindOperation returns the operation or nil.
func (c *ComponentNode) FindOperation(code OperationCode, name string) *OperationNode {
	return c.index[operationKey{code, name}]
}

// Operations returns the operations in creation order.
func (c *ComponentNode) Operations() []*OperationNode {
	return append([]*OperationNode(nil), c.ops...)
}

// SetEntry marks op as the component's entry point.
func (c *ComponentNode) SetEntry(op *OperationNode) { c.entry = op }

// SetExit marks op as the component's exit point.
func (c *ComponentNode) SetExit(op *OperationNode) { c.exit = op }

// Entry returns the operation incoming relations attach to. A component
// with a single operation uses it for both ends.
func (c *ComponentNode) Entry() *OperationNode {
	if c.entry == nil && len(c.ops) == 1 {
		return c.ops[0]
	}
	return c.entry
}

// Exit returns the operation outgoing relations start from.
func (c *ComponentNode) Exit() *OperationNode {
	if c.exit == nil && len(c.ops) == 1 {
		return c.ops[0]
	}
	return c.exit
}

// Finalize checks that entry and exit are known. A component without
// operations, or with several and no explicit entry or exit, means the
// builder is broken, and Finalize panics.
func (c *ComponentNode) Finalize() {
	switch {
	case len(c.ops) == 0:
		deperrors.Structural("%s: component has no operations", c.Identifier())
	case c.Entry() == nil:
		deperrors.Structural("%s: component has %d operations and no entry", c.Identifier(), len(c.ops))
	case c.Exit() == nil:
		deperrors.Structural("%s: component has %d operations and no exit", c.Identifier(), len(c.ops))
	}
	c.entry, c.exit = c.Entry(), c.Exit()
}

// OperationNode is one evaluation step.
type OperationNode struct {
	owner *ComponentNode
	index int

	Code OperationCode
	Name string
	Func OperationFunc

	Inlinks  []*Relation // owned
	Outlinks []*Relation // referenced from the destination's Inlinks

	Tag Tag
	// AffectsVisible is true when the result of the operation reaches a
	// visible entity. Other operations are not evaluated.
	AffectsVisible bool
}

func (op *OperationNode) Type() NodeType { return NodeOperation }
func (op *OperationNode) Graph() *Depsgraph { return op.owner.owner.graph }
func (op *OperationNode) Owner() *ComponentNode { return op.owner }
func (op *OperationNode) ID() *IDNode { return op.owner.owner }
func (op *OperationNode) Index() int { return op.index }
func (op *OperationNode) IsDirty() bool { return op.Tag != 0 }

func (op *OperationNode) Identifier() string {
	if op.Name != "" {
		return fmt.Sprintf("%s %s(%s)", op.owner.Identifier(), op.Code, op.Name)
	}
	return fmt.Sprintf("%s %s", op.owner.Identifier(), op.Code)
}

// AddTag ORs t into the operation's tag and reports whether the operation
// was clean before.
func (op *OperationNode) AddTag(t Tag) bool {
	wasClean := op.Tag == 0
	op.Tag |= t
	return wasClean
}

// Relation is a must-run-before edge.
type Relation struct {
	From        Node // *OperationNode or *TimeSourceNode
	To          *OperationNode
	Description string
	Flags       RelationFlag
}

// Has reports whether all bits of f are set on the relation.
func (r *Relation) Has(f RelationFlag) bool { return r.Flags&f == f }

func (r *Relation) String() string {
	return fmt.Sprintf("%s -> %s (%s)", r.From.Identifier(), r.To.Identifier(), r.Description)
}

// Shadow is the evaluated copy of an entity. Operations write to it through
// [Shadow.Update]; it is valid once the entity's publish step has run.
type Shadow struct {
	mu     sync.RWMutex
	entity *scene.Entity
	valid  bool
}

func (s *Shadow) sync(orig *scene.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if orig == nil {
		return
	}
	fresh := orig.Clone()
	if s.entity != nil {
		fresh.Eval = s.entity.Eval
	}
	s.entity = fresh
	s.valid = false
}

// Update runs fn with exclusive access to the evaluated entity.
func (s *Shadow) Update(fn func(e *scene.Entity) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.entity)
}

// View runs fn with shared access to the evaluated entity.
func (s *Shadow) View(fn func(e *scene.Entity)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.entity)
}

// Publish marks the evaluated copy complete.
func (s *Shadow) Publish() {
	s.mu.Lock()
	s.valid = true
	s.mu.Unlock()
}

// Invalidate marks the copy stale until the next publish.
func (s *Shadow) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

// Valid reports whether the copy has been published since the last sync.
func (s *Shadow) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

// Snapshot returns a deep copy of the evaluated entity.
func (s *Shadow) Snapshot() *scene.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entity.Clone()
}
