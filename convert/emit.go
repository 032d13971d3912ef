package convert

import (
	"fmt"
	"strconv"

	"comfymobile/graph"
	"comfymobile/logger"
	"comfymobile/prompt"
)

// emit lowers the working graph into the executable format. Muted and
// bypassed nodes are skipped; the filter has normally removed the
// latter already.
func emit(g *graph.Graph, r *routes) (prompt.Prompt, error) {
	out := make(prompt.Prompt, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Mode == graph.ModeNever || n.Mode == graph.ModeBypass {
			continue
		}
		if n.Type == "" {
			return nil, fmt.Errorf("node %d: %w", n.ID, graph.ErrUntypedNode)
		}

		inputs := make(map[string]any)
		for i := range n.Inputs {
			in := &n.Inputs[i]
			if in.Link == nil {
				continue
			}
			l := g.LinkByID(*in.Link)
			if l == nil {
				continue // orphaned reference, nothing to wire
			}
			target := r.chase(l.OriginID, l.OriginSlot)
			if target == nil {
				logger.Debug("Connection dead-ends in a dropped node", "node", n.ID, "input", in.Name)
				continue
			}
			inputs[in.Name] = prompt.Connection{NodeID: strconv.Itoa(target.nodeID), Slot: target.slot}
		}
		applyWidgetValues(n, inputs)

		var meta *prompt.Meta
		if n.Title != "" {
			meta = &prompt.Meta{Title: n.Title}
		}
		out[strconv.Itoa(n.ID)] = prompt.Node{
			Inputs:    inputs,
			ClassType: n.Type,
			Meta:      meta,
		}
	}
	return out, nil
}

// applyWidgetValues fills the unconnected widget-backed inputs.
// Name-keyed values win per input; everything else goes through the
// positional walk, the one place that understands the legacy array
// layout. Positional values nothing claims are emitted as param_N so
// they are not silently lost.
func applyWidgetValues(n *graph.Node, inputs map[string]any) {
	named := n.Widgets.Named()
	positional := n.Widgets.Positional()

	pos := 0
	for i := range n.Inputs {
		in := &n.Inputs[i]
		if in.Widget == nil {
			continue
		}
		widgetName := in.Widget.Name
		if widgetName == "" {
			widgetName = in.Name
		}
		if in.Link != nil {
			// A linked widget input still owns its slot in the array.
			pos = advancePositional(positional, pos, widgetName)
			continue
		}
		if v, ok := named[widgetName]; ok {
			inputs[in.Name] = v
			pos = advancePositional(positional, pos, widgetName)
			continue
		}
		if pos < len(positional) {
			inputs[in.Name] = positional[pos]
			pos = advancePositional(positional, pos, widgetName)
		}
	}
	for ; pos < len(positional); pos++ {
		inputs[fmt.Sprintf("param_%d", pos)] = positional[pos]
	}
}

// advancePositional consumes one slot for the named widget plus the
// control slot legacy arrays keep after a seed widget.
func advancePositional(positional []any, pos int, widgetName string) int {
	pos++
	if isSeedWidget(widgetName) && pos < len(positional) && isControlSentinel(positional[pos]) {
		pos++
	}
	return pos
}

func isSeedWidget(name string) bool {
	return name == "seed" || name == "noise_seed"
}
