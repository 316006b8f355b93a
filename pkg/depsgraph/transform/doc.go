// Package transform provides structural passes over a built dependency graph.
//
// [BreakCycles] makes a graph acyclic by removing relations. It runs once per
// build, after all relations exist and before anything is evaluated.
package transform
