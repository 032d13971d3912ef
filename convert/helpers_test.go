package convert

import (
	"testing"

	"comfymobile/graph"
	"comfymobile/prompt"
)

func intp(v int) *int {
	return &v
}

func link(id, origin, originSlot, target, targetSlot int, typ string) *graph.Link {
	return &graph.Link{
		ID:         id,
		OriginID:   origin,
		OriginSlot: originSlot,
		TargetID:   target,
		TargetSlot: targetSlot,
		Type:       typ,
	}
}

func testGraph(nodes []*graph.Node, links ...*graph.Link) *graph.Graph {
	g := &graph.Graph{
		Nodes: nodes,
		Links: make(map[int]*graph.Link, len(links)),
	}
	for _, l := range links {
		g.AddLink(l)
	}
	for _, n := range nodes {
		if n.ID > g.LastNodeID {
			g.LastNodeID = n.ID
		}
	}
	g.BuildIndexes()
	return g
}

func connRef(t *testing.T, p prompt.Prompt, nodeID, input string) prompt.Connection {
	t.Helper()
	node, ok := p[nodeID]
	if !ok {
		t.Fatalf("node %s not emitted: %v", nodeID, p)
	}
	v, ok := node.Inputs[input]
	if !ok {
		t.Fatalf("input %s.%s missing: %v", nodeID, input, node.Inputs)
	}
	conn, ok := prompt.AsConnection(v)
	if !ok {
		t.Fatalf("input %s.%s is not a connection: %v", nodeID, input, v)
	}
	return conn
}

func widgetInput(name, typ string) graph.InputSlot {
	return graph.InputSlot{
		Name:   name,
		Type:   typ,
		Widget: &graph.WidgetRef{Name: name},
	}
}

func linkedWidgetInput(name, typ string, linkID int) graph.InputSlot {
	in := widgetInput(name, typ)
	in.Link = intp(linkID)
	return in
}
