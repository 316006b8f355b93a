// Package debug exports a dependency graph for inspection.
//
// [ToDOT] writes Graphviz DOT with one cluster per entity and one nested
// cluster per component. [RenderSVG] lays the DOT out with the embedded
// Graphviz library; [RenderPNG] and [RenderPDF] additionally need
// rsvg-convert on PATH. [Stats] counts nodes and tags.
package debug
