package execution

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeClock is an injectable clock advanced by hand.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func executedEvent(promptID, nodeID string, files map[string][]FileRef) Event {
	return Event{Type: EventExecuted, PromptID: promptID, NodeID: nodeID, Output: files}
}

func TestMonitorCollectsOutputsAndFinishes(t *testing.T) {
	m := NewMonitor("p1", []string{"9", "12"}, nil)

	if done := m.Feed(Event{Type: EventExecuting, PromptID: "p1", NodeID: "3"}); done {
		t.Fatal("finished on the first executing event")
	}
	if got := m.CurrentNode(); got != "3" {
		t.Errorf("current node = %q", got)
	}
	m.Feed(Event{Type: EventProgress, PromptID: "p1", NodeID: "3", Value: 10, Max: 20})
	if v, max := m.Progress(); v != 10 || max != 20 {
		t.Errorf("progress = %d/%d", v, max)
	}
	if done := m.Feed(Event{Type: EventStatus, PromptID: "p1"}); done || m.CurrentNode() != "3" {
		t.Error("queue status update disturbed the run")
	}

	done := m.Feed(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "a_00001_.png", Type: "output"}},
	}))
	if done {
		t.Fatal("finished with one output still pending")
	}
	if got := m.PendingOutputs(); len(got) != 1 || got[0] != "12" {
		t.Errorf("pending = %v", got)
	}

	done = m.Feed(executedEvent("p1", "12", map[string][]FileRef{
		"images": {{Filename: "b_00001_.png", Subfolder: "batch", Type: "output"}},
	}))
	if !done {
		t.Fatal("all outputs reported but not finished")
	}
	if !m.Done() || m.Err() != nil {
		t.Fatalf("Done=%v Err=%v", m.Done(), m.Err())
	}

	outs := m.Outputs()
	if len(outs["9"]) != 1 || outs["9"][0].Filename != "a_00001_.png" {
		t.Errorf("node 9 outputs = %v", outs["9"])
	}
	if got := outs["12"][0].Path(); got != "batch/b_00001_.png" {
		t.Errorf("node 12 path = %q", got)
	}
}

func TestMonitorPrefersAnimationsOverImages(t *testing.T) {
	m := NewMonitor("p1", []string{"9"}, nil)
	m.Feed(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "frame.png"}},
		"gifs":   {{Filename: "clip.mp4"}},
	}))

	outs := m.Outputs()
	if len(outs["9"]) != 1 || outs["9"][0].Filename != "clip.mp4" {
		t.Errorf("outputs = %v, want the animation", outs["9"])
	}
}

func TestMonitorIgnoresOtherPrompts(t *testing.T) {
	m := NewMonitor("p1", []string{"9"}, nil)

	if done := m.Feed(executedEvent("p2", "9", map[string][]FileRef{
		"images": {{Filename: "other.png"}},
	})); done {
		t.Fatal("foreign event finished the run")
	}
	if done := m.Feed(Event{Type: EventExecuting, PromptID: "p2"}); done {
		t.Fatal("foreign finish signal finished the run")
	}
	if len(m.Outputs()) != 0 || m.Done() {
		t.Errorf("foreign events changed state: outputs=%v done=%v", m.Outputs(), m.Done())
	}
}

func TestMonitorIgnoresNonOutputNodes(t *testing.T) {
	m := NewMonitor("p1", []string{"9"}, nil)
	m.Feed(executedEvent("p1", "5", map[string][]FileRef{
		"images": {{Filename: "preview.png"}},
	}))
	if len(m.Outputs()) != 0 {
		t.Errorf("collected from a non-output node: %v", m.Outputs())
	}
	if m.Done() {
		t.Error("finished without the real output")
	}
}

func TestMonitorFinishSignalEndsRunWithPendingOutputs(t *testing.T) {
	m := NewMonitor("p1", []string{"9", "12"}, nil)
	m.Feed(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "a.png"}},
	}))

	if done := m.Feed(Event{Type: EventExecuting, PromptID: "p1", NodeID: ""}); !done {
		t.Fatal("finish signal did not end the run")
	}
	if got := m.PendingOutputs(); len(got) != 1 || got[0] != "12" {
		t.Errorf("pending after finish = %v", got)
	}
	if m.Err() != nil {
		t.Errorf("finish signal produced an error: %v", m.Err())
	}
}

func TestMonitorCachedRun(t *testing.T) {
	m := NewMonitor("p1", []string{"9", "12"}, nil)

	m.Feed(Event{Type: EventExecutionCached, PromptID: "p1", Nodes: []string{"3", "12", "9"}})
	if m.Done() {
		t.Fatal("cached notice ended the run early")
	}
	m.Feed(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "a.png"}},
	}))
	if done := m.Feed(Event{Type: EventExecuting, PromptID: "p1"}); !done {
		t.Fatal("cached run did not finish on the finish signal")
	}

	if !m.Cached() {
		t.Error("cached flag not set")
	}
	if got := m.CachedNodes(); len(got) != 3 || got[0] != "12" || got[1] != "3" || got[2] != "9" {
		t.Errorf("cached nodes = %v", got)
	}
	if got := m.PendingOutputs(); len(got) != 1 || got[0] != "12" {
		t.Errorf("outputs to recover from history = %v", got)
	}
}

func TestMonitorErrorIsTerminal(t *testing.T) {
	m := NewMonitor("p1", []string{"9"}, nil)
	done := m.Feed(Event{
		Type: EventExecutionError, PromptID: "p1", NodeID: "3",
		Message: "CUDA out of memory",
	})
	if !done || !m.Done() {
		t.Fatal("error event did not end the run")
	}
	err := m.Err()
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") || !strings.Contains(err.Error(), "node 3") {
		t.Errorf("err = %v", err)
	}

	// Nothing after a terminal event changes state.
	if done := m.Feed(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "late.png"}},
	})); !done {
		t.Error("terminal monitor reported not done")
	}
	if len(m.Outputs()) != 0 {
		t.Errorf("outputs collected after failure: %v", m.Outputs())
	}
}

func TestMonitorSuccessSignalFinishesOutputlessRun(t *testing.T) {
	m := NewMonitor("p1", nil, nil)
	if done := m.Feed(Event{Type: EventExecutionSuccess, PromptID: "p1"}); !done {
		t.Fatal("run with no output nodes did not finish on success")
	}
}

func TestMonitorSummary(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMonitor("p1", []string{"9"}, clock.Now)

	clock.Advance(90 * time.Second)
	m.Feed(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "a.png"}, {Filename: "b.png"}},
	}))
	clock.Advance(time.Hour) // after finishing, elapsed stays frozen

	s := m.Summary()
	for _, want := range []string{"p1", "finished", "1/1 outputs", "2 files", "1 minute 30 seconds"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q missing %q", s, want)
		}
	}
}

func TestTrackerRoutesEvents(t *testing.T) {
	tr := NewTracker()
	m1 := tr.Watch("p1", []string{"9"})
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tr.Add(NewMonitor("p2", []string{"9"}, clock.Now))

	if done := tr.Dispatch(executedEvent("p1", "9", map[string][]FileRef{
		"images": {{Filename: "a.png"}},
	})); !done {
		t.Fatal("dispatch did not finish p1")
	}
	if !m1.Done() {
		t.Error("p1 monitor not done")
	}
	if m2, _ := tr.Get("p2"); m2.Done() {
		t.Error("p2 finished by p1's event")
	}

	if tr.Dispatch(Event{Type: EventExecuting, PromptID: "unknown"}) {
		t.Error("event for an untracked prompt reported done")
	}

	if got := tr.Active(); len(got) != 1 || got[0] != "p2" {
		t.Errorf("active = %v", got)
	}
	tr.Remove("p2")
	if _, ok := tr.Get("p2"); ok {
		t.Error("p2 still tracked after Remove")
	}
}

func TestParseEventFrames(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"executed","data":{"prompt_id":"p1","node":"9",
		"output":{"images":[{"filename":"a.png","subfolder":"s","type":"output"}],"text":["not files"]}}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != EventExecuted || ev.PromptID != "p1" || ev.NodeID != "9" {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Output["images"]) != 1 || ev.Output["images"][0].Subfolder != "s" {
		t.Errorf("images = %v", ev.Output["images"])
	}
	if _, ok := ev.Output["text"]; ok {
		t.Error("non-file output key decoded")
	}

	ev, err = ParseEvent([]byte(`{"type":"executing","data":{"prompt_id":"p1","node":null}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != EventExecuting || ev.NodeID != "" {
		t.Errorf("finish signal = %+v", ev)
	}

	ev, err = ParseEvent([]byte(`{"type":"execution_error","data":{"prompt_id":"p1","node_id":"3",
		"exception_message":"boom"}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.NodeID != "3" || ev.Message != "boom" {
		t.Errorf("error event = %+v", ev)
	}

	if _, err := ParseEvent([]byte(`{"type":`)); err == nil {
		t.Error("malformed frame accepted")
	}
}
