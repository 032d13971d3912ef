package schema

import (
	"fmt"
	"strings"

	"comfymobile/graph"
)

// Issue is a non-fatal finding from checking a workflow against node
// schemas. Partially wired graphs are normal input, so issues are
// reported, never enforced.
type Issue struct {
	NodeID   int
	NodeType string
	Input    string
	Message  string
}

func (i Issue) String() string {
	if i.Input == "" {
		return fmt.Sprintf("node %d (%s): %s", i.NodeID, i.NodeType, i.Message)
	}
	return fmt.Sprintf("node %d (%s) input %q: %s", i.NodeID, i.NodeType, i.Input, i.Message)
}

// Validate checks every node of the graph against the source. Unknown
// types and linked inputs that disagree with their declaration are
// reported. Callers that handle frontend-only node types filter those
// out of the result.
func Validate(g *graph.Graph, src Source) []Issue {
	if g == nil || src == nil {
		return nil
	}
	var issues []Issue
	for _, n := range g.Nodes {
		schema, ok := src.Schema(n.Type)
		if !ok {
			issues = append(issues, Issue{
				NodeID:   n.ID,
				NodeType: n.Type,
				Message:  "unknown node type",
			})
			continue
		}
		for i := range n.Inputs {
			in := &n.Inputs[i]
			if in.Link == nil {
				continue
			}
			spec, declared := schema.Inputs[in.Name]
			if !declared {
				issues = append(issues, Issue{
					NodeID:   n.ID,
					NodeType: n.Type,
					Input:    in.Name,
					Message:  "linked input is not declared by the node type",
				})
				continue
			}
			if typeMismatch(in.Type, spec.Type) {
				issues = append(issues, Issue{
					NodeID:   n.ID,
					NodeType: n.Type,
					Input:    in.Name,
					Message:  fmt.Sprintf("declared as %s, schema says %s", in.Type, spec.Type),
				})
			}
		}
	}
	return issues
}

func typeMismatch(slotType, specType string) bool {
	if slotType == "" || specType == "" {
		return false
	}
	if slotType == "*" || specType == "*" || specType == "COMBO" {
		return false
	}
	return !strings.EqualFold(slotType, specType)
}
