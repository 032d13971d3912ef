package convert

import (
	"comfymobile/graph"
	"comfymobile/logger"
)

// filterVirtualNodes drops editor-only node types and bypassed nodes
// from the working copy. Connections into them resolve through the
// routing tables, which were built before this point.
func filterVirtualNodes(g *graph.Graph) {
	kept := make([]*graph.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if virtualNodeTypes[n.Type] || n.Mode == graph.ModeBypass {
			logger.Debug("Dropping virtual node", "node", n.ID, "type", n.Type)
			continue
		}
		kept = append(kept, n)
	}
	g.Nodes = kept
	g.BuildIndexes()
}
