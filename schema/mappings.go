package schema

// ScopeKind ranks where a custom input mapping applies.
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeWorkflow ScopeKind = "workflow"
	ScopeNode     ScopeKind = "node"
)

// Scope narrows a mapping to a workflow or a single node. Kind
// determines which of the id fields are consulted.
type Scope struct {
	Kind       ScopeKind
	WorkflowID string
	NodeID     string
}

// Mapping binds client-side control fields to the actual input names
// of a node type, letting the client drive nodes it has no built-in
// knowledge of.
type Mapping struct {
	NodeType string
	Scope    Scope
	Fields   map[string]string
}

func scopeRank(kind ScopeKind) int {
	switch kind {
	case ScopeNode:
		return 3
	case ScopeWorkflow:
		return 2
	case ScopeGlobal:
		return 1
	default:
		return 0
	}
}

func (m *Mapping) applies(nodeType, workflowID, nodeID string) bool {
	if m.NodeType != nodeType {
		return false
	}
	switch m.Scope.Kind {
	case ScopeGlobal:
		return true
	case ScopeWorkflow:
		return m.Scope.WorkflowID == workflowID
	case ScopeNode:
		return m.Scope.WorkflowID == workflowID && m.Scope.NodeID == nodeID
	default:
		return false
	}
}

// ResolveMapping picks the mapping for a node, most specific scope
// first: node beats workflow beats global. The first mapping of the
// winning rank is returned; nil when none applies.
func ResolveMapping(mappings []Mapping, nodeType, workflowID, nodeID string) *Mapping {
	var best *Mapping
	bestRank := 0
	for i := range mappings {
		m := &mappings[i]
		if !m.applies(nodeType, workflowID, nodeID) {
			continue
		}
		if rank := scopeRank(m.Scope.Kind); rank > bestRank {
			best = m
			bestRank = rank
		}
	}
	return best
}
