package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Connection references another node's output in the executable format.
// On the wire it is the two-element array ["<node id>", slot].
type Connection struct {
	NodeID string
	Slot   int
}

// MarshalJSON writes the wire form.
func (c Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.NodeID, c.Slot})
}

// UnmarshalJSON reads the wire form. Numeric node ids are accepted and
// stringified.
func (c *Connection) UnmarshalJSON(data []byte) error {
	var parts []any
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	conn, ok := connectionFromParts(parts)
	if !ok {
		return fmt.Errorf("not a connection reference: %s", data)
	}
	*c = conn
	return nil
}

func connectionFromParts(parts []any) (Connection, bool) {
	if len(parts) != 2 {
		return Connection{}, false
	}
	var id string
	switch t := parts[0].(type) {
	case string:
		id = t
	case float64:
		id = strconv.Itoa(int(t))
	default:
		return Connection{}, false
	}
	slot, ok := parts[1].(float64)
	if !ok {
		return Connection{}, false
	}
	return Connection{NodeID: id, Slot: int(slot)}, true
}

// AsConnection reports whether a decoded input value is
// connection-shaped, accepting both the typed and the raw array form.
func AsConnection(v any) (Connection, bool) {
	switch t := v.(type) {
	case Connection:
		return t, true
	case *Connection:
		if t == nil {
			return Connection{}, false
		}
		return *t, true
	case []any:
		return connectionFromParts(t)
	default:
		return Connection{}, false
	}
}

// Meta carries display metadata alongside a node.
type Meta struct {
	Title string `json:"title,omitempty"`
}

// Node is one executable node of a compiled prompt.
type Node struct {
	Inputs    map[string]any `json:"inputs"`
	ClassType string         `json:"class_type"`
	Meta      *Meta          `json:"_meta,omitempty"`
}

// Prompt is the executable API format, keyed by stringified node id.
type Prompt map[string]Node

// Clone returns a deep copy sharing no input containers with p.
func (p Prompt) Clone() Prompt {
	out := make(Prompt, len(p))
	for id, n := range p {
		cp := Node{
			ClassType: n.ClassType,
			Inputs:    make(map[string]any, len(n.Inputs)),
		}
		for name, v := range n.Inputs {
			cp.Inputs[name] = copyValue(v)
		}
		if n.Meta != nil {
			meta := *n.Meta
			cp.Meta = &meta
		}
		out[id] = cp
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = copyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = copyValue(vv)
		}
		return out
	default:
		return t
	}
}

// OutputNodes returns the ids of nodes that persist artifacts: those
// taking a filename_prefix whose save_output flag is not explicitly
// false. Sorted for stable iteration.
func (p Prompt) OutputNodes() []string {
	var ids []string
	for id, n := range p {
		if _, ok := n.Inputs["filename_prefix"]; !ok {
			continue
		}
		if save, ok := n.Inputs["save_output"]; ok {
			if b, isBool := save.(bool); isBool && !b {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// References returns the ids of nodes with a connection into id,
// sorted and deduplicated.
func (p Prompt) References(id string) []string {
	seen := make(map[string]bool)
	for nodeID, n := range p {
		for _, v := range n.Inputs {
			conn, ok := AsConnection(v)
			if ok && conn.NodeID == id {
				seen[nodeID] = true
				break
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for nodeID := range seen {
		ids = append(ids, nodeID)
	}
	sort.Strings(ids)
	return ids
}
