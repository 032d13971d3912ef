package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"comfymobile/graph"
	"comfymobile/logger"
	"comfymobile/prompt"
	"comfymobile/schema"
)

// Node types the editor renders but the backend never executes.
const (
	typeReroute         = "Reroute"
	typePrimitive       = "PrimitiveNode"
	typePrimitiveString = "PrimitiveStringMultiline"
	typeSetNode         = "SetNode"
	typeGetNode         = "GetNode"
	typeEasySetNode     = "easy setNode"
	typeEasyGetNode     = "easy getNode"
)

// virtualNodeTypes never reach the emitted prompt.
var virtualNodeTypes = map[string]bool{
	"Note":               true,
	"MarkdownNote":       true,
	typeReroute:          true,
	typePrimitive:        true,
	typePrimitiveString:  true,
	typeSetNode:          true,
	typeGetNode:          true,
	typeEasySetNode:      true,
	typeEasyGetNode:      true,
	"Label (rgthree)":    true,
	"Bookmark (rgthree)": true,
}

// controlSentinels are frontend widget states, not parameter values.
var controlSentinels = map[string]bool{
	"fixed":     true,
	"increment": true,
	"decrement": true,
	"randomize": true,
}

func isControlSentinel(v any) bool {
	s, ok := v.(string)
	return ok && controlSentinels[strings.ToLower(s)]
}

func isSamplerType(nodeType string) bool {
	return strings.Contains(strings.ToLower(nodeType), "sampler")
}

func isDeclarationType(nodeType string) bool {
	return nodeType == typeSetNode || nodeType == typeEasySetNode
}

func isReferenceType(nodeType string) bool {
	return nodeType == typeGetNode || nodeType == typeEasyGetNode
}

func isConstantType(nodeType string) bool {
	return nodeType == typePrimitive || nodeType == typePrimitiveString
}

// Options configures a conversion.
type Options struct {
	// Schemas, when set, is consulted to report disagreements between
	// the workflow and the backend's node declarations. Lookups never
	// stop a conversion.
	Schemas schema.Source
	// Now supplies the clock for %date:...% expansion. Defaults to
	// time.Now.
	Now func() time.Time
}

// Convert compiles a workflow graph into the executable API format.
// The graph is cloned up front and never modified, so conversions of
// separate workflows may run concurrently against shared inputs.
func Convert(g *graph.Graph, opts Options) (prompt.Prompt, error) {
	if g == nil {
		return nil, errors.New("convert: nil graph")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger.Debug("Converting workflow", "nodes", len(g.Nodes), "links", len(g.Links))
	work := g.Clone()

	if opts.Schemas != nil {
		for _, issue := range Validate(work, opts.Schemas) {
			logger.Warn("Workflow disagrees with node schema", "issue", issue.String())
		}
	}

	preprocessWidgets(work, now())
	resolveVariables(work)
	routes := buildRoutes(work)
	inlineConstants(work)
	filterVirtualNodes(work)

	p, err := emit(work, routes)
	if err != nil {
		return nil, fmt.Errorf("emit prompt: %w", err)
	}
	sanitize(p)

	logger.Debug("Conversion complete", "emitted", len(p))
	return p, nil
}

// Validate checks the graph against node schemas, skipping the node
// types that exist only in the editor.
func Validate(g *graph.Graph, src schema.Source) []schema.Issue {
	var issues []schema.Issue
	for _, issue := range schema.Validate(g, src) {
		if virtualNodeTypes[issue.NodeType] {
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}
