// Package pkg provides the libraries behind depsgraph, an evaluation
// dependency graph for 3D scenes.
//
// # Overview
//
// A scene is a set of entities (objects, meshes, armatures, cameras,
// actions, collections) that reference each other. The dependency graph
// turns those references into an ordered set of evaluation steps, tracks
// which steps a change invalidates, and re-runs only those steps on a
// worker pool. The pkg directory is organized as:
//
//  1. [scene] - the original scene: entities, handles, property paths, TOML fixtures
//  2. [depsgraph] - graph nodes, relations, keys and tags
//  3. [depsgraph/builder] - node and relation builders, build scopes
//  4. [depsgraph/transform] - cycle detection and removal
//  5. [depsgraph/eval] - tag flushing and the parallel evaluator
//  6. [kernel] - the default evaluation callbacks
//  7. [pipeline] - build phases and the Runner entry point
//  8. [depsgraph/debug], [cache], [observability], [errors], [buildinfo] - support
//
// # Data Flow
//
//	scene.Load (TOML)
//	       ↓
//	builder.NodeBuilder → builder.RelationBuilder
//	       ↓
//	transform.BreakCycles, eval.FlushVisibility
//	       ↓
//	Runner.TagUpdate → eval.Flush → eval.Evaluator
//	       ↓
//	evaluated copies (Runner.Evaluated)
//
// # Quick Start
//
//	s, _, err := scene.LoadFile("shot.toml")
//	if err != nil {
//	    return err
//	}
//	r, err := pipeline.NewRunner(s, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	if _, err := r.EvaluateOnFramechange(ctx, 1); err != nil {
//	    return err
//	}
//	cube, _ := s.Lookup(scene.KindObject, "Cube")
//	fmt.Println(r.Evaluated(cube).Eval.World.Translation())
//
// # Concurrency
//
// Runner serializes builds and evaluations. Tag methods may be called from
// any goroutine; the tags are applied at the start of the next evaluation.
// Within a pass, operations run in parallel once all of their inputs have
// run.
package pkg
