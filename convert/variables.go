package convert

import (
	"sort"

	"comfymobile/graph"
	"comfymobile/logger"
)

// variableSource is what a named declaration feeds from.
type variableSource struct {
	node *graph.Node
	slot int
	typ  string
}

// resolveVariables replaces named Set/Get pairs with direct links.
// Pass A registers each declaration's upstream source under its name.
// Pass B rewires every link leaving a reference node into a fresh link
// from the registered source. Pass C then routes links leaving the
// declarations around them, so neither side of a pair carries data by
// the time virtual nodes are dropped.
func resolveVariables(g *graph.Graph) {
	sources := make(map[string]*variableSource)
	for _, n := range g.Nodes {
		if !isDeclarationType(n.Type) {
			continue
		}
		name, ok := variableName(n)
		if !ok {
			logger.Debug("Declaration without a name widget", "node", n.ID)
			continue
		}
		// Unresolvable declarations still register, shadowing any
		// earlier declaration of the same name.
		sources[name] = declarationSource(g, n)
	}

	for _, n := range g.Nodes {
		if !isReferenceType(n.Type) {
			continue
		}
		name, ok := variableName(n)
		if !ok {
			logger.Debug("Reference without a name widget", "node", n.ID)
			continue
		}
		src, registered := sources[name]
		if !registered || src == nil {
			logger.Debug("Reference to unresolved variable", "node", n.ID, "name", name)
			continue
		}
		rewireReference(g, n, src)
	}

	for _, n := range g.Nodes {
		if !isDeclarationType(n.Type) {
			continue
		}
		bypassDeclaration(g, n)
	}
}

// variableName reads the name a Set/Get node declares or references,
// stored as its first widget value.
func variableName(n *graph.Node) (string, bool) {
	v, ok := n.Widgets.First()
	if !ok {
		return "", false
	}
	s, isString := v.(string)
	if !isString || s == "" {
		return "", false
	}
	return s, true
}

// declarationSource resolves a declaration's single data input to its
// true origin, following at most one reroute hop. Deeper indirection
// is left to the routing tables.
func declarationSource(g *graph.Graph, decl *graph.Node) *variableSource {
	for i := range decl.Inputs {
		in := &decl.Inputs[i]
		if in.Link == nil {
			continue
		}
		l := g.LinkByID(*in.Link)
		if l == nil {
			continue
		}
		origin := g.NodeByID(l.OriginID)
		if origin == nil {
			continue
		}
		slot := l.OriginSlot
		if origin.Type == typeReroute && len(origin.Inputs) > 0 && origin.Inputs[0].Link != nil {
			if up := g.LinkByID(*origin.Inputs[0].Link); up != nil {
				if upstream := g.NodeByID(up.OriginID); upstream != nil {
					origin = upstream
					slot = up.OriginSlot
				}
			}
		}
		typ := l.Type
		if typ == "" {
			typ = in.Type
		}
		return &variableSource{node: origin, slot: slot, typ: typ}
	}
	return nil
}

// outgoingLinks returns the links leaving a node, ordered by id so
// synthesized link ids are assigned deterministically.
func outgoingLinks(g *graph.Graph, nodeID int) []*graph.Link {
	var out []*graph.Link
	for _, l := range g.Links {
		if l.OriginID == nodeID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// rewireReference replaces each link leaving a reference node with a
// fresh link from the registered source to the same target. The stale
// link entry stays behind; targets no longer point at it.
func rewireReference(g *graph.Graph, ref *graph.Node, src *variableSource) {
	for _, stale := range outgoingLinks(g, ref.ID) {
		target := g.NodeByID(stale.TargetID)
		if target == nil || stale.TargetSlot < 0 || stale.TargetSlot >= len(target.Inputs) {
			continue
		}
		id := g.NextLinkID()
		g.AddLink(&graph.Link{
			ID:         id,
			OriginID:   src.node.ID,
			OriginSlot: src.slot,
			TargetID:   stale.TargetID,
			TargetSlot: stale.TargetSlot,
			Type:       src.typ,
		})
		target.Inputs[stale.TargetSlot].Link = &id
		appendOutputLink(src.node, src.slot, id)
		logger.Debug("Rewired variable reference", "reference", ref.ID, "source", src.node.ID, "target", stale.TargetID)
	}
}

// bypassDeclaration rewrites links leaving a declaration to originate
// from its upstream source, so consumers wired to the declaration's
// passthrough output keep working.
func bypassDeclaration(g *graph.Graph, decl *graph.Node) {
	src := declarationSource(g, decl)
	if src == nil {
		return
	}
	for _, l := range outgoingLinks(g, decl.ID) {
		l.OriginID = src.node.ID
		l.OriginSlot = src.slot
		appendOutputLink(src.node, src.slot, l.ID)
	}
}

// appendOutputLink records a link id on the source's output slot,
// skipping ids already present.
func appendOutputLink(n *graph.Node, slot int, id int) {
	if slot < 0 || slot >= len(n.Outputs) {
		return
	}
	for _, existing := range n.Outputs[slot].Links {
		if existing == id {
			return
		}
	}
	n.Outputs[slot].Links = append(n.Outputs[slot].Links, id)
}
