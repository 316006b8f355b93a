// Package scene provides the scene object model consumed by the dependency
// graph.
//
// # Overview
//
// A [Scene] is an arena of [Entity] values (datablocks) addressed by stable
// integer [Handle] values. Entities reference each other only through
// handles, never through pointers, so rebuilding or removing entities cannot
// leave dangling references inside the graph: a handle either resolves
// through [Scene.Get] or it does not.
//
// Entities are loosely typed. A single struct carries the fields of every
// [Kind] (objects, meshes, armatures, cameras, collections, actions and the
// scene itself); which fields are meaningful depends on the kind, much like
// datablocks in an authoring application.
//
// # Property Paths
//
// Animation curves and drivers address properties with textual paths:
//
//	location                      object transform channel (array)
//	rotation_euler                object transform channel (array)
//	scale                         object transform channel (array)
//	["speed"]                     custom property
//	pose.bones["Arm"].location    pose bone channel (array)
//	modifiers["Sub"].levels       modifier setting
//
// [Scene.Resolve] turns a path into a [Property] describing where the value
// lives; [Property.Get] and [Property.Set] read and write it on any entity of
// the right shape, which is how evaluated copies are written without touching
// the original data.
//
// # Evaluated State
//
// The [EvalState] embedded in each entity is only written on copy-on-write
// shadows produced by the evaluator; original entities keep the zero value.
//
// # Fixtures
//
// [Load] and [LoadFile] build a scene from a TOML description, which is the
// format used by tests and by the command-line tool.
//
// # Concurrency
//
// A Scene is not safe for concurrent mutation. The dependency graph only reads
// the original scene while building and evaluating.
package scene
