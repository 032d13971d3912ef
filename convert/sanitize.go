package convert

import (
	"comfymobile/logger"
	"comfymobile/prompt"
)

// sanitize removes connection values pointing outside the emitted set,
// the residue of muted or otherwise dropped producers. Deleting a
// value never removes a node, so a single pass reaches the fixed
// point.
func sanitize(p prompt.Prompt) {
	for id, node := range p {
		for name, v := range node.Inputs {
			conn, ok := prompt.AsConnection(v)
			if !ok {
				continue
			}
			if _, present := p[conn.NodeID]; !present {
				logger.Debug("Dropping dangling connection", "node", id, "input", name, "missing", conn.NodeID)
				delete(node.Inputs, name)
			}
		}
	}
}
