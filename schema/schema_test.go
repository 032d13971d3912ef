package schema

import (
	"testing"
)

const objectInfoSnapshot = `{
	"KSampler": {
		"input": {
			"required": {
				"model": ["MODEL"],
				"seed": ["INT", {"default": 0, "control_after_generate": true}],
				"steps": ["INT", {"default": 20}],
				"sampler_name": [["euler", "euler_ancestral", "ddim"]],
				"latent_image": ["LATENT"]
			},
			"optional": {
				"denoise": ["FLOAT", {"default": 1.0}]
			}
		},
		"output": ["LATENT"],
		"output_name": ["LATENT"],
		"display_name": "KSampler",
		"category": "sampling",
		"output_node": false
	},
	"SaveImage": {
		"input": {
			"required": {
				"images": ["IMAGE"],
				"filename_prefix": ["STRING", {"default": "ComfyUI"}]
			}
		},
		"output": [],
		"output_node": true
	}
}`

func TestParseObjectInfo(t *testing.T) {
	src, err := ParseObjectInfo([]byte(objectInfoSnapshot))
	if err != nil {
		t.Fatalf("ParseObjectInfo failed: %v", err)
	}
	if types := src.Types(); len(types) != 2 || types[0] != "KSampler" || types[1] != "SaveImage" {
		t.Errorf("types = %v", types)
	}

	sampler, ok := src.Schema("KSampler")
	if !ok {
		t.Fatal("KSampler schema missing")
	}
	if sampler.Category != "sampling" || sampler.OutputNode {
		t.Errorf("entry metadata wrong: %+v", sampler)
	}
	if len(sampler.OutputTypes) != 1 || sampler.OutputTypes[0] != "LATENT" {
		t.Errorf("output types wrong: %v", sampler.OutputTypes)
	}

	seed := sampler.Inputs["seed"]
	if !seed.Widget || !seed.Required || seed.Type != "INT" {
		t.Errorf("seed spec wrong: %+v", seed)
	}
	model := sampler.Inputs["model"]
	if model.Widget || model.Type != "MODEL" {
		t.Errorf("model spec wrong: %+v", model)
	}
	combo := sampler.Inputs["sampler_name"]
	if combo.Type != "COMBO" || !combo.Widget || len(combo.Options) != 3 {
		t.Errorf("combo spec wrong: %+v", combo)
	}
	denoise := sampler.Inputs["denoise"]
	if denoise.Required {
		t.Error("optional input marked required")
	}

	saver, ok := src.Schema("SaveImage")
	if !ok || !saver.OutputNode {
		t.Errorf("SaveImage schema wrong: %+v", saver)
	}

	if _, ok := src.Schema("DoesNotExist"); ok {
		t.Error("unknown type should not resolve")
	}
}

func TestOrderedInputNamesRequiredFirst(t *testing.T) {
	src, err := ParseObjectInfo([]byte(objectInfoSnapshot))
	if err != nil {
		t.Fatal(err)
	}
	sampler, _ := src.Schema("KSampler")
	order := sampler.InputOrder
	if len(order) != 6 {
		t.Fatalf("expected 6 inputs, got %d: %v", len(order), order)
	}
	if order[len(order)-1] != "denoise" {
		t.Errorf("optional input should come last, got %v", order)
	}
}

func TestResolveMappingPrecedence(t *testing.T) {
	mappings := []Mapping{
		{NodeType: "KSampler", Scope: Scope{Kind: ScopeGlobal}, Fields: map[string]string{"steps": "steps"}},
		{NodeType: "KSampler", Scope: Scope{Kind: ScopeWorkflow, WorkflowID: "wf1"}, Fields: map[string]string{"steps": "num_steps"}},
		{NodeType: "KSampler", Scope: Scope{Kind: ScopeNode, WorkflowID: "wf1", NodeID: "3"}, Fields: map[string]string{"steps": "exact_steps"}},
	}

	tests := []struct {
		name       string
		workflowID string
		nodeID     string
		wantField  string
	}{
		{"node scope wins", "wf1", "3", "exact_steps"},
		{"workflow scope for other nodes", "wf1", "9", "num_steps"},
		{"global fallback", "wf2", "3", "steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ResolveMapping(mappings, "KSampler", tt.workflowID, tt.nodeID)
			if m == nil {
				t.Fatal("expected a mapping")
			}
			if m.Fields["steps"] != tt.wantField {
				t.Errorf("resolved %q, want %q", m.Fields["steps"], tt.wantField)
			}
		})
	}

	if m := ResolveMapping(mappings, "OtherType", "wf1", "3"); m != nil {
		t.Errorf("mapping for wrong type resolved: %+v", m)
	}
}
