package graph

// CopyValue deep-copies a decoded JSON value. Maps and slices are
// rebuilt, scalars are returned as-is.
func CopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CopyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CopyValue(vv)
		}
		return out
	default:
		return t
	}
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return CopyValue(m).(map[string]any)
}

// Clone returns a deep copy of the node. Slot lists, link ids, widget
// containers and the properties bag share nothing with the original.
func (n *Node) Clone() *Node {
	out := &Node{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Mode:       n.Mode,
		Widgets:    n.Widgets.Clone(),
		Properties: copyAnyMap(n.Properties),
		Order:      n.Order,
		Flags:      copyAnyMap(n.Flags),
		Color:      n.Color,
		BgColor:    n.BgColor,
	}
	if n.Inputs != nil {
		out.Inputs = make([]InputSlot, len(n.Inputs))
		for i, in := range n.Inputs {
			cp := in
			if in.Link != nil {
				id := *in.Link
				cp.Link = &id
			}
			if in.Widget != nil {
				w := *in.Widget
				cp.Widget = &w
			}
			out.Inputs[i] = cp
		}
	}
	if n.Outputs != nil {
		out.Outputs = make([]OutputSlot, len(n.Outputs))
		for i, o := range n.Outputs {
			cp := o
			if o.Links != nil {
				cp.Links = make([]int, len(o.Links))
				copy(cp.Links, o.Links)
			}
			out.Outputs[i] = cp
		}
	}
	if n.Pos != nil {
		out.Pos = make([]float64, len(n.Pos))
		copy(out.Pos, n.Pos)
	}
	if n.Size != nil {
		out.Size = make([]float64, len(n.Size))
		copy(out.Size, n.Size)
	}
	return out
}

// Clone returns a deep copy of the graph. Every conversion starts from
// one so the caller's document is never touched.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		LastNodeID: g.LastNodeID,
		LastLinkID: g.LastLinkID,
		Nodes:      make([]*Node, len(g.Nodes)),
		Links:      make(map[int]*Link, len(g.Links)),
		Config:     copyAnyMap(g.Config),
		Extra:      copyAnyMap(g.Extra),
		Version:    g.Version,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for id, l := range g.Links {
		cp := *l
		out.Links[id] = &cp
	}
	if g.Groups != nil {
		out.Groups = make([]*Group, len(g.Groups))
		for i, gr := range g.Groups {
			cp := *gr
			out.Groups[i] = &cp
		}
	}
	out.BuildIndexes()
	return out
}
