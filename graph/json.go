package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"comfymobile/logger"
)

var (
	// ErrNoNodes marks a document without a nodes container.
	ErrNoNodes = errors.New("workflow has no nodes container")
	// ErrNoLinks marks a document without a links container.
	ErrNoLinks = errors.New("workflow has no links container")
	// ErrUntypedNode marks a node entry without a type name.
	ErrUntypedNode = errors.New("node has no type")
)

type documentJSON struct {
	LastNodeID int               `json:"last_node_id"`
	LastLinkID int               `json:"last_link_id"`
	Nodes      []json.RawMessage `json:"nodes"`
	Links      []json.RawMessage `json:"links"`
	Groups     []*Group          `json:"groups,omitempty"`
	Config     map[string]any    `json:"config,omitempty"`
	Extra      map[string]any    `json:"extra,omitempty"`
	Version    float64           `json:"version,omitempty"`
}

// ParseDocument decodes a workflow document. A document missing its
// nodes or links container cannot be converted and fails outright, as
// does a node entry without a type name. Anything else that is off in
// the document is tolerated and handled downstream.
func ParseDocument(data []byte) (*Graph, error) {
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow document: %w", err)
	}
	if doc.Nodes == nil {
		return nil, ErrNoNodes
	}
	if doc.Links == nil {
		return nil, ErrNoLinks
	}

	g := &Graph{
		LastNodeID: doc.LastNodeID,
		LastLinkID: doc.LastLinkID,
		Nodes:      make([]*Node, 0, len(doc.Nodes)),
		Links:      make(map[int]*Link, len(doc.Links)),
		Groups:     doc.Groups,
		Config:     doc.Config,
		Extra:      doc.Extra,
		Version:    doc.Version,
	}

	for _, raw := range doc.Nodes {
		n := &Node{}
		if err := json.Unmarshal(raw, n); err != nil {
			return nil, fmt.Errorf("parse workflow node: %w", err)
		}
		if n.Type == "" {
			return nil, fmt.Errorf("node %d: %w", n.ID, ErrUntypedNode)
		}
		g.Nodes = append(g.Nodes, n)
		if n.ID > g.LastNodeID {
			g.LastNodeID = n.ID
		}
	}

	for _, raw := range doc.Links {
		l := &Link{}
		if err := json.Unmarshal(raw, l); err != nil {
			logger.Warn("Skipping malformed link entry", "error", err)
			continue
		}
		g.Links[l.ID] = l
		if l.ID > g.LastLinkID {
			g.LastLinkID = l.ID
		}
	}

	g.BuildIndexes()
	return g, nil
}

// Document encodes the graph back into the workflow document shape.
func (g *Graph) Document() ([]byte, error) {
	doc := documentJSON{
		LastNodeID: g.LastNodeID,
		LastLinkID: g.LastLinkID,
		Nodes:      make([]json.RawMessage, 0, len(g.Nodes)),
		Links:      make([]json.RawMessage, 0, len(g.Links)),
		Groups:     g.Groups,
		Config:     g.Config,
		Extra:      g.Extra,
		Version:    g.Version,
	}
	for _, n := range g.Nodes {
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("encode node %d: %w", n.ID, err)
		}
		doc.Nodes = append(doc.Nodes, raw)
	}
	ids := make([]int, 0, len(g.Links))
	for id := range g.Links {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		raw, err := json.Marshal(g.Links[id])
		if err != nil {
			return nil, fmt.Errorf("encode link %d: %w", id, err)
		}
		doc.Links = append(doc.Links, raw)
	}
	return json.Marshal(doc)
}

type nodeJSON struct {
	ID         int             `json:"id"`
	Type       string          `json:"type"`
	Title      string          `json:"title,omitempty"`
	Mode       int             `json:"mode"`
	Inputs     []InputSlot     `json:"inputs,omitempty"`
	Outputs    []OutputSlot    `json:"outputs,omitempty"`
	Widgets    WidgetValues    `json:"widgets_values,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
	Pos        json.RawMessage `json:"pos,omitempty"`
	Size       json.RawMessage `json:"size,omitempty"`
	Order      int             `json:"order,omitempty"`
	Flags      map[string]any  `json:"flags,omitempty"`
	Color      string          `json:"color,omitempty"`
	BgColor    string          `json:"bgcolor,omitempty"`
}

// UnmarshalJSON decodes a node entry. Position and size tolerate both
// the array form and the object form older clients write.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node{
		ID:         raw.ID,
		Type:       raw.Type,
		Title:      raw.Title,
		Mode:       Mode(raw.Mode),
		Inputs:     raw.Inputs,
		Outputs:    raw.Outputs,
		Widgets:    raw.Widgets,
		Properties: raw.Properties,
		Pos:        decodePoint(raw.Pos),
		Size:       decodePoint(raw.Size),
		Order:      raw.Order,
		Flags:      raw.Flags,
		Color:      raw.Color,
		BgColor:    raw.BgColor,
	}
	return nil
}

// MarshalJSON encodes a node entry in the document shape.
func (n *Node) MarshalJSON() ([]byte, error) {
	raw := nodeJSON{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Mode:       int(n.Mode),
		Inputs:     n.Inputs,
		Outputs:    n.Outputs,
		Widgets:    n.Widgets,
		Properties: n.Properties,
		Order:      n.Order,
		Flags:      n.Flags,
		Color:      n.Color,
		BgColor:    n.BgColor,
	}
	if n.Pos != nil {
		pos, err := json.Marshal(n.Pos)
		if err != nil {
			return nil, err
		}
		raw.Pos = pos
	}
	if n.Size != nil {
		size, err := json.Marshal(n.Size)
		if err != nil {
			return nil, err
		}
		raw.Size = size
	}
	return json.Marshal(raw)
}

// decodePoint reads a coordinate pair from either the array form
// [x, y] or the object form {"0": x, "1": y}.
func decodePoint(raw json.RawMessage) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	var obj map[string]float64
	if err := json.Unmarshal(raw, &obj); err == nil {
		if x, okX := obj["0"]; okX {
			if y, okY := obj["1"]; okY {
				return []float64{x, y}
			}
		}
	}
	return nil
}

type linkJSON struct {
	ID         int    `json:"id"`
	OriginID   int    `json:"origin_id"`
	OriginSlot int    `json:"origin_slot"`
	TargetID   int    `json:"target_id"`
	TargetSlot int    `json:"target_slot"`
	Type       string `json:"type"`
}

// UnmarshalJSON decodes a link from the serialized array form
// [id, origin, originSlot, target, targetSlot, type] or from the
// object form newer documents use.
func (l *Link) UnmarshalJSON(data []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) < 5 {
			return fmt.Errorf("link entry has %d elements, want at least 5", len(arr))
		}
		fields := []*int{&l.ID, &l.OriginID, &l.OriginSlot, &l.TargetID, &l.TargetSlot}
		for i, dst := range fields {
			if err := json.Unmarshal(arr[i], dst); err != nil {
				return fmt.Errorf("link element %d: %w", i, err)
			}
		}
		if len(arr) > 5 {
			// The trailing type element may be a string or a numeric
			// wildcard; only the string form carries information.
			var typ string
			if err := json.Unmarshal(arr[5], &typ); err == nil {
				l.Type = typ
			}
		}
		return nil
	}

	var obj linkJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*l = Link{
		ID:         obj.ID,
		OriginID:   obj.OriginID,
		OriginSlot: obj.OriginSlot,
		TargetID:   obj.TargetID,
		TargetSlot: obj.TargetSlot,
		Type:       obj.Type,
	}
	return nil
}

// MarshalJSON writes the serialized array form.
func (l *Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.ID, l.OriginID, l.OriginSlot, l.TargetID, l.TargetSlot, l.Type})
}
