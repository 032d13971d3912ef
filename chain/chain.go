// Package chain models workflow chains: ordered sequences of compiled
// prompts where later steps consume artifacts produced by earlier ones.
// The package covers the data model and binding resolution; submitting
// the resolved prompts and watching them run belong to the caller.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"comfymobile/prompt"
)

// Binding kinds.
const (
	BindingStatic  = "static"
	BindingDynamic = "dynamic"
)

// Binding patches one prompt input before a step runs. A static binding
// carries the value verbatim; a dynamic binding names an earlier step's
// output node whose cached artifact stands in for the value.
type Binding struct {
	Type                string `json:"type"`
	Value               any    `json:"value,omitempty"`
	SourceWorkflowIndex *int   `json:"sourceWorkflowIndex,omitempty"`
	SourceOutputNodeID  string `json:"sourceOutputNodeId,omitempty"`
}

// Step is one workflow of a chain: a compiled prompt plus the bindings
// applied to it before submission. Binding keys take the form
// "nodeID.inputName" against the step's own prompt.
type Step struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	API      prompt.Prompt      `json:"apiFormat"`
	Bindings map[string]Binding `json:"inputBindings,omitempty"`
}

// Chain is an ordered list of workflows executed back to back.
type Chain struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	ModifiedAt  string `json:"modifiedAt,omitempty"`
	Steps       []Step `json:"nodes"`
}

// Decode parses a stored chain document.
func Decode(data []byte) (*Chain, error) {
	var c Chain
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	return &c, nil
}

// Summary is the chain's metadata without the step payloads.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	ModifiedAt  string `json:"modifiedAt,omitempty"`
	StepCount   int    `json:"nodeCount"`
}

// Summary strips the chain down to listing metadata.
func (c *Chain) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		ModifiedAt:  c.ModifiedAt,
		StepCount:   len(c.Steps),
	}
}

// Validate reports every structural problem at once: missing
// identifiers, malformed binding keys, and dynamic bindings that can
// never resolve at execution time.
func (c *Chain) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("chain has no id"))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("chain has no name"))
	}
	if len(c.Steps) == 0 {
		errs = append(errs, errors.New("chain has no steps"))
	}

	seen := make(map[string]bool, len(c.Steps))
	for i, s := range c.Steps {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("step %d has no id", i))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Errorf("step %d reuses id %q", i, s.ID))
		}
		seen[s.ID] = true
		if len(s.API) == 0 {
			errs = append(errs, fmt.Errorf("step %d has no prompt", i))
		}
		for _, key := range sortedBindingKeys(s.Bindings) {
			errs = append(errs, validateBinding(i, key, s.Bindings[key], len(c.Steps))...)
		}
	}
	return errors.Join(errs...)
}

func validateBinding(step int, key string, b Binding, stepCount int) []error {
	var errs []error
	if parts := strings.Split(key, "."); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		errs = append(errs, fmt.Errorf("step %d binding %q: key is not nodeID.inputName", step, key))
	}
	switch b.Type {
	case BindingStatic:
	case BindingDynamic:
		if b.SourceWorkflowIndex == nil || b.SourceOutputNodeID == "" {
			errs = append(errs, fmt.Errorf("step %d binding %q: dynamic binding names no source", step, key))
			break
		}
		idx := *b.SourceWorkflowIndex
		if idx < 0 || idx >= stepCount {
			errs = append(errs, fmt.Errorf("step %d binding %q: source step %d out of range", step, key, idx))
		} else if idx >= step {
			errs = append(errs, fmt.Errorf("step %d binding %q: source step %d has not run yet", step, key, idx))
		}
	default:
		errs = append(errs, fmt.Errorf("step %d binding %q: unknown binding type %q", step, key, b.Type))
	}
	return errs
}

func sortedBindingKeys(bindings map[string]Binding) []string {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
