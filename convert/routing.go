package convert

import (
	"fmt"
	"strings"

	"comfymobile/graph"
	"comfymobile/logger"
)

// routeTarget is a resolved true origin.
type routeTarget struct {
	nodeID int
	slot   int
}

// routes holds the two indirection tables. They are built once per
// conversion, before any node is removed, and consulted during
// emission. An entry resolving to nil means the node has no usable
// upstream and connections through it are dropped.
type routes struct {
	bypass  map[string]*routeTarget // keyed "nodeID-outputSlot"
	reroute map[int]*routeTarget    // keyed by reroute node id
}

func bypassKey(nodeID, slot int) string {
	return fmt.Sprintf("%d-%d", nodeID, slot)
}

func buildRoutes(g *graph.Graph) *routes {
	r := &routes{
		bypass:  make(map[string]*routeTarget),
		reroute: make(map[int]*routeTarget),
	}
	for _, n := range g.Nodes {
		if n.Mode == graph.ModeBypass {
			for slot := range n.Outputs {
				r.bypass[bypassKey(n.ID, slot)] = resolveBypass(g, n, slot, make(map[string]bool))
			}
		}
		if n.Type == typeReroute {
			r.reroute[n.ID] = resolveReroute(g, n, make(map[int]bool))
		}
	}
	return r
}

// resolveBypass finds the input a bypassed node's output passes
// through: the input at the output's own index first, then the
// remaining inputs in index order, taking the first whose type matches
// case-insensitively and whose link is set. Chains of bypassed nodes
// resolve recursively.
func resolveBypass(g *graph.Graph, n *graph.Node, slot int, seen map[string]bool) *routeTarget {
	key := bypassKey(n.ID, slot)
	if seen[key] {
		logger.Warn("Bypass chain loops, dropping route", "node", n.ID, "slot", slot)
		return nil
	}
	seen[key] = true

	if slot < 0 || slot >= len(n.Outputs) {
		return nil
	}
	in := pickBypassInput(n, slot, n.Outputs[slot].Type)
	if in == nil {
		return nil
	}
	l := g.LinkByID(*in.Link)
	if l == nil {
		return nil
	}
	origin := g.NodeByID(l.OriginID)
	if origin == nil {
		return nil
	}
	if origin.Mode == graph.ModeBypass {
		return resolveBypass(g, origin, l.OriginSlot, seen)
	}
	return &routeTarget{nodeID: origin.ID, slot: l.OriginSlot}
}

// pickBypassInput returns the first linked input matching the output
// type, checking the output's own index before the rest.
func pickBypassInput(n *graph.Node, slot int, wantType string) *graph.InputSlot {
	if slot < len(n.Inputs) {
		if in := &n.Inputs[slot]; in.Link != nil && strings.EqualFold(in.Type, wantType) {
			return in
		}
	}
	for i := range n.Inputs {
		if i == slot {
			continue
		}
		if in := &n.Inputs[i]; in.Link != nil && strings.EqualFold(in.Type, wantType) {
			return in
		}
	}
	return nil
}

// resolveReroute follows a reroute chain to its first real origin.
func resolveReroute(g *graph.Graph, n *graph.Node, seen map[int]bool) *routeTarget {
	if seen[n.ID] {
		logger.Warn("Reroute chain loops, dropping route", "node", n.ID)
		return nil
	}
	seen[n.ID] = true

	if len(n.Inputs) == 0 || n.Inputs[0].Link == nil {
		return nil
	}
	l := g.LinkByID(*n.Inputs[0].Link)
	if l == nil {
		return nil
	}
	origin := g.NodeByID(l.OriginID)
	if origin == nil {
		return nil
	}
	if origin.Type == typeReroute {
		return resolveReroute(g, origin, seen)
	}
	return &routeTarget{nodeID: origin.ID, slot: l.OriginSlot}
}

// chase resolves an origin through both tables until neither applies.
// nil means the connection dead-ends inside a dropped node.
func (r *routes) chase(nodeID, slot int) *routeTarget {
	cur := &routeTarget{nodeID: nodeID, slot: slot}
	seen := make(map[string]bool)
	for {
		key := bypassKey(cur.nodeID, cur.slot)
		if seen[key] {
			logger.Warn("Route resolution loops, dropping connection", "node", cur.nodeID, "slot", cur.slot)
			return nil
		}
		seen[key] = true

		if t, ok := r.bypass[key]; ok {
			if t == nil {
				return nil
			}
			cur = t
			continue
		}
		if t, ok := r.reroute[cur.nodeID]; ok {
			if t == nil {
				return nil
			}
			cur = t
			continue
		}
		return cur
	}
}
