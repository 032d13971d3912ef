package prompt

import (
	"encoding/json"
	"testing"
)

func TestConnectionWireFormat(t *testing.T) {
	data, err := json.Marshal(Connection{NodeID: "4", Slot: 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["4",1]` {
		t.Errorf("marshaled %s", data)
	}

	var c Connection
	if err := json.Unmarshal([]byte(`["12", 0]`), &c); err != nil {
		t.Fatal(err)
	}
	if c.NodeID != "12" || c.Slot != 0 {
		t.Errorf("unmarshaled %+v", c)
	}

	// Older clients wrote numeric node ids.
	if err := json.Unmarshal([]byte(`[7, 2]`), &c); err != nil {
		t.Fatal(err)
	}
	if c.NodeID != "7" || c.Slot != 2 {
		t.Errorf("numeric id not normalized: %+v", c)
	}
}

func TestAsConnection(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"typed", Connection{NodeID: "1", Slot: 0}, true},
		{"raw array", []any{"3", float64(1)}, true},
		{"numeric id array", []any{float64(3), float64(1)}, true},
		{"scalar", "hello", false},
		{"short array", []any{"3"}, false},
		{"long array", []any{"3", float64(1), float64(2)}, false},
		{"wrong slot type", []any{"3", "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := AsConnection(tt.v)
			if ok != tt.want {
				t.Errorf("AsConnection(%v) = %v, want %v", tt.v, ok, tt.want)
			}
		})
	}
}

func TestPromptJSONShape(t *testing.T) {
	p := Prompt{
		"3": {
			ClassType: "KSampler",
			Inputs: map[string]any{
				"model": Connection{NodeID: "4", Slot: 0},
				"seed":  float64(42),
			},
			Meta: &Meta{Title: "Main Sampler"},
		},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	node := decoded["3"]
	if node["class_type"] != "KSampler" {
		t.Errorf("class_type = %v", node["class_type"])
	}
	meta := node["_meta"].(map[string]any)
	if meta["title"] != "Main Sampler" {
		t.Errorf("_meta.title = %v", meta["title"])
	}
	inputs := node["inputs"].(map[string]any)
	if _, ok := AsConnection(inputs["model"]); !ok {
		t.Errorf("model input lost connection shape: %v", inputs["model"])
	}
}

func TestOutputNodes(t *testing.T) {
	p := Prompt{
		"1": {ClassType: "KSampler", Inputs: map[string]any{"seed": 1}},
		"2": {ClassType: "SaveImage", Inputs: map[string]any{"filename_prefix": "out"}},
		"3": {ClassType: "SaveVideo", Inputs: map[string]any{"filename_prefix": "vid", "save_output": true}},
		"4": {ClassType: "PreviewSaver", Inputs: map[string]any{"filename_prefix": "tmp", "save_output": false}},
	}
	got := p.OutputNodes()
	if len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Errorf("OutputNodes = %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := Prompt{
		"1": {ClassType: "T", Inputs: map[string]any{"nested": map[string]any{"k": "v"}}},
	}
	clone := p.Clone()
	clone["1"].Inputs["nested"].(map[string]any)["k"] = "changed"
	if p["1"].Inputs["nested"].(map[string]any)["k"] != "v" {
		t.Error("clone shares nested input containers")
	}
}

func TestReferences(t *testing.T) {
	p := Prompt{
		"1": {ClassType: "Loader", Inputs: map[string]any{}},
		"2": {ClassType: "A", Inputs: map[string]any{"model": Connection{NodeID: "1", Slot: 0}}},
		"3": {ClassType: "B", Inputs: map[string]any{
			"model": []any{"1", float64(0)},
			"clip":  []any{"1", float64(1)},
		}},
	}
	got := p.References("1")
	if len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Errorf("References = %v", got)
	}
}

func TestNewSubmissionDefaultsClientID(t *testing.T) {
	p := Prompt{"1": {ClassType: "T", Inputs: map[string]any{}}}

	s := NewSubmission(p, "")
	if s.ClientID == "" {
		t.Fatal("client id not defaulted")
	}
	other := NewSubmission(p, "")
	if s.ClientID == other.ClientID {
		t.Error("defaulted client ids should be unique")
	}

	fixed := NewSubmission(p, "my-client")
	if fixed.ClientID != "my-client" {
		t.Errorf("explicit client id overridden: %q", fixed.ClientID)
	}

	data, err := json.Marshal(fixed)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["client_id"] != "my-client" {
		t.Errorf("client_id key missing: %v", decoded)
	}
	if _, ok := decoded["prompt"]; !ok {
		t.Errorf("prompt key missing: %v", decoded)
	}
}
