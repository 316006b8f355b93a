package debug

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
)

// Options configures DOT export.
type Options struct {
	// Labels draws relation descriptions on edges.
	Labels bool
	// HideInvisible leaves out operations that affect nothing visible.
	HideInvisible bool
}

const timeSourceID = "time_source"

// ToDOT converts g to Graphviz DOT. Dirty operations are filled orange;
// operations that do not affect visible output are dashed. NoFlush
// relations are dashed and visibility-only relations dotted.
func ToDOT(g *depsgraph.Depsgraph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph depsgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=10];\n")
	buf.WriteString("  edge [fontsize=8];\n")
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  %s [label=%q, shape=ellipse, fillcolor=%s];\n", timeSourceID, "Time Source", timeFill(g))

	shown := make(map[*depsgraph.OperationNode]bool)
	for i, id := range g.IDNodes() {
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", id.Identifier())
		buf.WriteString("    style=rounded;\n")
		for j, c := range id.Components() {
			fmt.Fprintf(&buf, "    subgraph cluster_%d_%d {\n", i, j)
			fmt.Fprintf(&buf, "      label=%q;\n", c.Kind.String())
			buf.WriteString("      style=dashed;\n")
			for _, op := range c.Operations() {
				if opts.HideInvisible && !op.AffectsVisible {
					continue
				}
				shown[op] = true
				fmt.Fprintf(&buf, "      %s [%s];\n", nodeID(op), strings.Join(opAttrs(op), ", "))
			}
			buf.WriteString("    }\n")
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, r := range g.Relations() {
		if !shown[r.To] {
			continue
		}
		from := timeSourceID
		if op, ok := r.From.(*depsgraph.OperationNode); ok {
			if !shown[op] {
				continue
			}
			from = nodeID(op)
		}
		attrs := relationAttrs(r, opts.Labels)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", from, nodeID(r.To))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", from, nodeID(r.To), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(op *depsgraph.OperationNode) string {
	return fmt.Sprintf("op%d", op.Index())
}

func timeFill(g *depsgraph.Depsgraph) string {
	if g.TimeSource().Tagged() {
		return "orange"
	}
	return "lightblue"
}

func opLabel(op *depsgraph.OperationNode) string {
	if op.Name == "" {
		return op.Code.String()
	}
	return fmt.Sprintf("%s(%s)", op.Code, op.Name)
}

func opAttrs(op *depsgraph.OperationNode) []string {
	label := opLabel(op)
	if op.IsDirty() {
		label += "\n" + op.Tag.String()
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if op.IsDirty() {
		attrs = append(attrs, "fillcolor=orange")
	}
	if !op.AffectsVisible {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fontcolor=grey40")
	}
	return attrs
}

func relationAttrs(r *depsgraph.Relation, labels bool) []string {
	var attrs []string
	if labels && r.Description != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", r.Description))
	}
	switch {
	case r.Has(depsgraph.RelationNoFlush):
		attrs = append(attrs, "style=dashed", "color=grey50")
	case r.Has(depsgraph.RelationFlushVisibility):
		attrs = append(attrs, "style=dotted")
	}
	return attrs
}
