// Package depsgraph provides the evaluation dependency graph of a scene: the
// node model, relations, symbolic keys and the thread-safe tag queue.
//
// # Overview
//
// A scene is made of interrelated entities (objects, meshes, armatures,
// collections, actions). Evaluating it means running many small steps, such
// as "apply animation", "compute world matrix" or "run modifier stack", in an
// order that respects their data dependencies. The graph stores those steps
// and the ordering constraints between them so that, when something changes,
// only the affected steps are re-run.
//
// # Node Types
//
// The graph has four node kinds:
//
//   - [TimeSourceNode]: one per graph, represents global evaluation time
//   - [IDNode]: one per scene entity, owns its components and evaluated copy
//   - [ComponentNode]: one per (entity, domain) pair, e.g. TRANSFORM
//   - [OperationNode]: one schedulable evaluation step
//
// Each component exposes an entry and an exit operation. Relations between
// components always connect the exit of the source to the entry of the
// destination, so callers never depend on a component's internal layout.
//
// # Relations
//
// A [Relation] is a directed edge from an operation (or the time source) to
// an operation. It is owned by the destination's Inlinks and referenced from
// the source's Outlinks. [RelationFlag] values alter how tags flow along the
// edge and how the cycle breaker treats it.
//
// # Keys
//
// Relation construction names its endpoints symbolically with [Key] values
// and resolves them through [Depsgraph.FindNode]. Property-path keys consult
// the scene's path resolver to find the component owning the property.
// A key that does not resolve yields no node; callers record a [Diagnostic]
// and skip the relation.
//
// # Tags
//
// Operations carry a [Tag] bitfield. A zero tag means clean. External changes
// are queued with [Depsgraph.TagUpdate] and [Depsgraph.TagTime], which are
// safe to call from any goroutine; the evaluation layer drains the queue,
// flushes tags forward along relations and runs the dirty operations.
//
// # Concurrency
//
// Node and relation tables are mutated only while a graph is being built,
// which is single-threaded. During evaluation, operations write only their
// owning entity's [Shadow], which is guarded by its own mutex. The tag queue
// is the only structure shared with outside producers.
package depsgraph
