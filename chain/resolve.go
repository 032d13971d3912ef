package chain

import (
	"fmt"
	"strings"

	"comfymobile/logger"
	"comfymobile/prompt"
)

// Outputs caches artifact references produced by finished steps, keyed
// by step id and the emitting output node. Dynamic bindings read from
// it; whoever watches the execution writes to it.
type Outputs map[string]string

func outputKey(stepID, outputNodeID string) string {
	return stepID + "." + outputNodeID
}

// Record stores the artifact reference one output node produced.
func (o Outputs) Record(stepID, outputNodeID, ref string) {
	o[outputKey(stepID, outputNodeID)] = ref
}

// Lookup returns the cached artifact reference for a step's output node.
func (o Outputs) Lookup(stepID, outputNodeID string) (string, bool) {
	ref, ok := o[outputKey(stepID, outputNodeID)]
	return ref, ok
}

// ResolveStep returns the step's prompt with its bindings applied,
// deep-copied so the stored chain is never touched. Bindings that
// cannot be applied are logged and skipped; the input keeps whatever
// value the prompt already had.
func ResolveStep(c *Chain, index int, outputs Outputs) (prompt.Prompt, error) {
	if index < 0 || index >= len(c.Steps) {
		return nil, fmt.Errorf("resolve step: index %d out of range", index)
	}
	step := c.Steps[index]
	resolved := step.API.Clone()

	for _, key := range sortedBindingKeys(step.Bindings) {
		b := step.Bindings[key]
		parts := strings.Split(key, ".")
		if len(parts) != 2 {
			logger.Warn("Skipping malformed binding key", "step", step.ID, "key", key)
			continue
		}
		nodeID, inputName := parts[0], parts[1]

		switch b.Type {
		case BindingStatic:
			value := b.Value
			if value == nil {
				value = ""
			}
			bindInput(resolved, nodeID, inputName, value)

		case BindingDynamic:
			if b.SourceWorkflowIndex == nil || b.SourceOutputNodeID == "" {
				logger.Warn("Dynamic binding names no source", "step", step.ID, "key", key)
				continue
			}
			idx := *b.SourceWorkflowIndex
			if idx < 0 || idx >= len(c.Steps) {
				logger.Warn("Dynamic binding source step out of range", "step", step.ID, "key", key, "source", idx)
				continue
			}
			ref, ok := outputs.Lookup(c.Steps[idx].ID, b.SourceOutputNodeID)
			if !ok {
				logger.Warn("No cached output for dynamic binding", "step", step.ID, "key", key,
					"source", outputKey(c.Steps[idx].ID, b.SourceOutputNodeID))
				continue
			}
			bindInput(resolved, nodeID, inputName, ref)

		default:
			logger.Warn("Skipping binding of unknown type", "step", step.ID, "key", key, "type", b.Type)
		}
	}
	return resolved, nil
}

// bindInput writes one input value, creating the input map when the
// prompt node carries none. Unknown node ids are skipped: the binding
// may target a node the conversion dropped.
func bindInput(p prompt.Prompt, nodeID, inputName string, value any) {
	n, ok := p[nodeID]
	if !ok {
		logger.Debug("Binding targets a node missing from the prompt", "node", nodeID, "input", inputName)
		return
	}
	if n.Inputs == nil {
		n.Inputs = make(map[string]any)
	}
	n.Inputs[inputName] = value
	p[nodeID] = n
}
