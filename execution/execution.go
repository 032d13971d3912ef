// Package execution interprets the status event stream a generation
// backend publishes while it runs submitted prompts. The stream
// transport stays outside: callers decode frames with ParseEvent and
// feed them to a Monitor, which tracks completion and collects the
// artifacts output nodes produce.
package execution

import (
	"encoding/json"
	"fmt"
	"path"
)

// EventType identifies a backend status message.
type EventType string

const (
	EventExecuting        EventType = "executing"
	EventExecuted         EventType = "executed"
	EventProgress         EventType = "progress"
	EventExecutionError   EventType = "execution_error"
	EventExecutionCached  EventType = "execution_cached"
	EventExecutionSuccess EventType = "execution_success"
	EventStatus           EventType = "status"
)

// FileRef locates one artifact the backend wrote.
type FileRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Path returns the backend-relative location of the file.
func (f FileRef) Path() string {
	if f.Subfolder == "" {
		return f.Filename
	}
	return path.Join(f.Subfolder, f.Filename)
}

// Event is one decoded status message. NodeID is empty on the
// executing event that signals the end of a run.
type Event struct {
	Type     EventType
	PromptID string
	NodeID   string
	Value    int
	Max      int
	Output   map[string][]FileRef
	Nodes    []string
	Message  string
}

type rawEvent struct {
	Type string `json:"type"`
	Data struct {
		PromptID         string                     `json:"prompt_id"`
		Node             *string                    `json:"node"`
		NodeID           string                     `json:"node_id"`
		Value            int                        `json:"value"`
		Max              int                        `json:"max"`
		Output           map[string]json.RawMessage `json:"output"`
		Nodes            []string                   `json:"nodes"`
		ExceptionMessage string                     `json:"exception_message"`
	} `json:"data"`
}

// ParseEvent decodes one frame of the status stream. Output lists are
// read only for the file-bearing keys; anything else a node emits is
// ignored.
func ParseEvent(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	ev := Event{
		Type:     EventType(raw.Type),
		PromptID: raw.Data.PromptID,
		NodeID:   raw.Data.NodeID,
		Value:    raw.Data.Value,
		Max:      raw.Data.Max,
		Nodes:    raw.Data.Nodes,
		Message:  raw.Data.ExceptionMessage,
	}
	if raw.Data.Node != nil {
		ev.NodeID = *raw.Data.Node
	}
	for _, key := range []string{"gifs", "images"} {
		refs, ok := decodeFileList(raw.Data.Output[key])
		if ok {
			if ev.Output == nil {
				ev.Output = make(map[string][]FileRef, 2)
			}
			ev.Output[key] = refs
		}
	}
	return ev, nil
}

func decodeFileList(data json.RawMessage) ([]FileRef, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var refs []FileRef
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, false
	}
	return refs, true
}
