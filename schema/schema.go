package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// InputSpec describes one declared input of a node type.
type InputSpec struct {
	Type     string   // value or connection type name, "COMBO" for choice lists
	Options  []string // choices when Type is "COMBO"
	Widget   bool     // editable as a widget rather than a connection
	Required bool
}

// NodeSchema describes a node type as the backend advertises it.
type NodeSchema struct {
	Type        string
	DisplayName string
	Category    string
	Description string
	Inputs      map[string]InputSpec
	InputOrder  []string
	OutputTypes []string
	OutputNames []string
	OutputNode  bool
}

// Source provides node schemas by type name. Implementations must be
// safe for concurrent readers; conversions of independent workflows
// share one.
type Source interface {
	Schema(nodeType string) (NodeSchema, bool)
}

// MapSource is a static in-memory Source.
type MapSource map[string]NodeSchema

// Schema implements Source.
func (m MapSource) Schema(nodeType string) (NodeSchema, bool) {
	s, ok := m[nodeType]
	return s, ok
}

// Types returns the known type names, sorted.
func (m MapSource) Types() []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

type objectInfoInput struct {
	Required map[string]json.RawMessage `json:"required"`
	Optional map[string]json.RawMessage `json:"optional"`
}

type objectInfoEntry struct {
	Input       objectInfoInput   `json:"input"`
	Output      []json.RawMessage `json:"output"`
	OutputName  []string          `json:"output_name"`
	DisplayName string            `json:"display_name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	OutputNode  bool              `json:"output_node"`
}

// ParseObjectInfo decodes a backend object-info document into a
// MapSource. Individual malformed entries are skipped, not fatal.
func ParseObjectInfo(data []byte) (MapSource, error) {
	var doc map[string]objectInfoEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse object info: %w", err)
	}

	src := make(MapSource, len(doc))
	for typeName, entry := range doc {
		schema := NodeSchema{
			Type:        typeName,
			DisplayName: entry.DisplayName,
			Category:    entry.Category,
			Description: entry.Description,
			Inputs:      make(map[string]InputSpec),
			OutputNames: entry.OutputName,
			OutputNode:  entry.OutputNode,
		}
		for name, raw := range entry.Input.Required {
			spec, err := parseInputSpec(raw)
			if err != nil {
				continue
			}
			spec.Required = true
			schema.Inputs[name] = spec
		}
		for name, raw := range entry.Input.Optional {
			spec, err := parseInputSpec(raw)
			if err != nil {
				continue
			}
			schema.Inputs[name] = spec
		}
		schema.InputOrder = orderedInputNames(schema.Inputs)
		for _, rawOut := range entry.Output {
			var typ string
			if err := json.Unmarshal(rawOut, &typ); err == nil {
				schema.OutputTypes = append(schema.OutputTypes, typ)
			}
		}
		src[typeName] = schema
	}
	return src, nil
}

// widgetTypes are the primitive value types edited inline on a node.
var widgetTypes = map[string]bool{
	"INT":     true,
	"FLOAT":   true,
	"STRING":  true,
	"BOOLEAN": true,
}

// parseInputSpec reads one input declaration: [type, config] where
// type is either a type name or a choice list.
func parseInputSpec(raw json.RawMessage) (InputSpec, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return InputSpec{}, err
	}
	if len(parts) == 0 {
		return InputSpec{Type: "*"}, nil
	}

	var typeName string
	if err := json.Unmarshal(parts[0], &typeName); err == nil {
		return InputSpec{
			Type:   typeName,
			Widget: widgetTypes[typeName],
		}, nil
	}

	var choices []any
	if err := json.Unmarshal(parts[0], &choices); err != nil {
		return InputSpec{}, err
	}
	spec := InputSpec{Type: "COMBO", Widget: true}
	for _, c := range choices {
		if s, ok := c.(string); ok {
			spec.Options = append(spec.Options, s)
		}
	}
	return spec, nil
}

// orderedInputNames gives required inputs before optional ones, each
// group sorted by name. The document's own ordering is not preserved
// by JSON decoding, so a stable order is imposed instead.
func orderedInputNames(inputs map[string]InputSpec) []string {
	var required, optional []string
	for name, spec := range inputs {
		if spec.Required {
			required = append(required, name)
		} else {
			optional = append(optional, name)
		}
	}
	sort.Strings(required)
	sort.Strings(optional)
	return append(required, optional...)
}
