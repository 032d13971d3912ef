package convert

import (
	"comfymobile/graph"
	"comfymobile/logger"
)

// inlineConstants copies each constant node's stored value into the
// nodes it feeds, keyed by the receiving widget's name, and unlinks
// those inputs. Constants without a value or without consumers are
// left alone. Running the pass twice changes nothing.
func inlineConstants(g *graph.Graph) {
	for _, n := range g.Nodes {
		if !isConstantType(n.Type) {
			continue
		}
		val, ok := n.Widgets.First()
		if !ok {
			continue
		}
		for slot := range n.Outputs {
			for _, linkID := range n.Outputs[slot].Links {
				l := g.LinkByID(linkID)
				if l == nil {
					continue
				}
				target := g.NodeByID(l.TargetID)
				if target == nil || l.TargetSlot < 0 || l.TargetSlot >= len(target.Inputs) {
					continue
				}
				in := &target.Inputs[l.TargetSlot]
				name := in.Name
				if in.Widget != nil && in.Widget.Name != "" {
					name = in.Widget.Name
				}
				target.Widgets.Set(name, graph.CopyValue(val))
				in.Link = nil
				logger.Debug("Inlined constant", "from", n.ID, "into", target.ID, "widget", name)
			}
		}
	}
}
