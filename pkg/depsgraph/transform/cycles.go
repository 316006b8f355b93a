package transform

import (
	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
)

// CycleInfo describes one removed relation.
type CycleInfo struct {
	Removed *depsgraph.Relation
	// Path lists the node identifiers of the cycle, starting and ending at
	// the node the closing edge points to.
	Path []string
	// Forced is set when every relation on the cycle was marked NoCycle.
	Forced bool
}

// BreakCycles removes relations until g is acyclic and returns what it
// removed, in removal order. Each removal is also recorded as a CYCLE
// diagnostic on g.
//
// Nodes are coloured white, gray and black in a depth-first walk that starts
// at the time source and then visits operations in creation order. An edge
// into a gray node closes a cycle. The closing edge is removed unless it is
// marked NoCycle; then the nearest edge before it on the cycle that is not
// marked is removed instead. Walks repeat until one finds no cycle.
func BreakCycles(g *depsgraph.Depsgraph) []CycleInfo {
	var removed []CycleInfo
	for {
		found := findCycles(g)
		if len(found) == 0 {
			return removed
		}
		for _, c := range found {
			g.RemoveRelation(c.Removed)
			g.AddDiagnostic(depsgraph.Diagnostic{
				Severity: depsgraph.SeverityWarning,
				Code:     deperrors.ErrCodeCycle,
				Phase:    "finalize",
				Message:  "dependency cycle detected, relation removed",
				From:     c.Removed.From.Identifier(),
				To:       c.Removed.To.Identifier(),
				Relation: c.Removed.Description,
			})
		}
		removed = append(removed, found...)
	}
}

// findCycles runs one depth-first walk and picks one relation per back-edge.
// A relation is picked at most once.
func findCycles(g *depsgraph.Depsgraph) []CycleInfo {
	const (
		white = iota
		gray
		black
	)

	color := make(map[depsgraph.Node]int)
	// path holds the relations from the walk's root to the current node.
	var path []*depsgraph.Relation
	// depth is the position in path of the relation that entered a gray node.
	depth := make(map[depsgraph.Node]int)
	picked := make(map[*depsgraph.Relation]bool)
	var cycles []CycleInfo

	var dfs func(n depsgraph.Node)
	dfs = func(n depsgraph.Node) {
		color[n] = gray
		depth[n] = len(path)
		for _, r := range depsgraph.Outlinks(n) {
			child := depsgraph.Node(r.To)
			switch color[child] {
			case white:
				path = append(path, r)
				dfs(child)
				path = path[:len(path)-1]
			case gray:
				cycle := append(append([]*depsgraph.Relation(nil), path[depth[child]:]...), r)
				c := chooseRelation(cycle)
				if !picked[c.Removed] {
					picked[c.Removed] = true
					cycles = append(cycles, c)
				}
			}
		}
		color[n] = black
	}

	dfs(g.TimeSource())
	for _, op := range g.Operations() {
		if color[op] == white {
			dfs(op)
		}
	}
	return cycles
}

// chooseRelation picks the relation to remove from a cycle whose last
// element is the closing edge.
func chooseRelation(cycle []*depsgraph.Relation) CycleInfo {
	info := CycleInfo{Path: make([]string, 0, len(cycle)+1)}
	info.Path = append(info.Path, cycle[len(cycle)-1].To.Identifier())
	for _, r := range cycle {
		info.Path = append(info.Path, r.To.Identifier())
	}
	for i := len(cycle) - 1; i >= 0; i-- {
		if !cycle[i].Has(depsgraph.RelationNoCycle) {
			info.Removed = cycle[i]
			return info
		}
	}
	info.Removed = cycle[len(cycle)-1]
	info.Forced = true
	return info
}

// HasCycle reports whether a depth-first walk of g finds a back-edge.
func HasCycle(g *depsgraph.Depsgraph) bool {
	return len(findCycles(g)) > 0
}
