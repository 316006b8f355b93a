package depsgraph

import (
	"fmt"
	"slices"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Diagnostic is a developer-facing record produced while building a graph.
type Diagnostic struct {
	Severity Severity
	Code     deperrors.Code
	Phase    string // "nodes", "relations", "finalize"
	Message  string

	// From and To identify the keys or nodes of the relation concerned, and
	// Relation its description, when the diagnostic is about an edge.
	From     string
	To       string
	Relation string
}

func (d Diagnostic) String() string {
	if d.Relation != "" {
		return fmt.Sprintf("%s [%s] %s: %s (%s -> %s)", d.Severity, d.Code, d.Relation, d.Message, d.From, d.To)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
}

// AddDiagnostic records d on the graph.
func (g *Depsgraph) AddDiagnostic(d Diagnostic) {
	g.diagnostics = append(g.diagnostics, d)
}

// Diagnostics returns the diagnostics recorded since the last rebuild.
func (g *Depsgraph) Diagnostics() []Diagnostic { return slices.Clone(g.diagnostics) }
