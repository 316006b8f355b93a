// Package eval propagates tags through a built dependency graph and runs
// the dirty operations.
//
// # Tagging and Flushing
//
// External changes are queued on the graph with
// [depsgraph.Depsgraph.TagUpdate]. [ApplyPending] drains the queue and
// dirties the entry operation of every affected component. [Flush] then
// propagates tags breadth-first along relations until no new operation
// becomes dirty. Relations flagged NoFlush are never traversed; relations
// flagged FlushVisibility only carry tags that include
// [depsgraph.TagVisibility].
//
// [FlushVisibility] recomputes which operations contribute to visible
// entities and schedules the ones that just became visible.
//
// # Evaluation
//
// An [Evaluator] runs every dirty, visible operation once, after all of its
// dirty predecessors. Ready operations are handed to a bounded worker pool
// (golang.org/x/sync/errgroup). A failing or panicking callback is reported
// in the [Result] and its descendants are skipped; independent operations
// still run. Cancelling the context stops dispatching; operations that never
// ran keep their tags for the next pass.
package eval
