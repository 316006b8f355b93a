package debug

import "github.com/matzehuels/depsgraph/pkg/depsgraph"

// Summary counts the nodes of a graph.
type Summary struct {
	IDs        int
	Components int
	Operations int
	Relations  int
	// Dirty counts operations with a non-zero tag.
	Dirty int
	// Visible counts operations that affect visible output.
	Visible int

	ByComponent map[depsgraph.ComponentType]int
	ByCode      map[depsgraph.OperationCode]int
}

// Stats summarizes g.
func Stats(g *depsgraph.Depsgraph) Summary {
	s := Summary{
		IDs:         len(g.IDNodes()),
		Components:  g.NumComponents(),
		Operations:  g.NumOperations(),
		Relations:   g.NumRelations(),
		ByComponent: make(map[depsgraph.ComponentType]int),
		ByCode:      make(map[depsgraph.OperationCode]int),
	}
	for _, id := range g.IDNodes() {
		for _, c := range id.Components() {
			s.ByComponent[c.Kind]++
		}
	}
	for _, op := range g.Operations() {
		s.ByCode[op.Code]++
		if op.IsDirty() {
			s.Dirty++
		}
		if op.AffectsVisible {
			s.Visible++
		}
	}
	return s
}
