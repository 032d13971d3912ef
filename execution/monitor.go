package execution

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hako/durafmt"
)

// ErrExecutionFailed marks a run the backend aborted.
var ErrExecutionFailed = errors.New("execution failed")

// Monitor tracks one submitted prompt through the event stream. It is
// safe to feed from one goroutine while another reads its state.
type Monitor struct {
	promptID    string
	outputNodes map[string]bool
	now         func() time.Time

	mu          sync.Mutex
	started     time.Time
	finishedAt  time.Time
	currentNode string
	value, max  int
	outputs     map[string][]FileRef
	completed   map[string]bool
	cachedNodes map[string]bool
	cached      bool
	done        bool
	err         error
}

// NewMonitor starts tracking a prompt. outputNodes are the ids whose
// artifacts the run is expected to produce, normally
// prompt.OutputNodes(). A nil clock means time.Now.
func NewMonitor(promptID string, outputNodes []string, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	m := &Monitor{
		promptID:    promptID,
		outputNodes: make(map[string]bool, len(outputNodes)),
		now:         now,
		outputs:     make(map[string][]FileRef),
		completed:   make(map[string]bool),
		cachedNodes: make(map[string]bool),
	}
	for _, id := range outputNodes {
		m.outputNodes[id] = true
	}
	m.started = now()
	return m
}

// PromptID returns the id of the tracked prompt.
func (m *Monitor) PromptID() string {
	return m.promptID
}

// Feed consumes one event and reports whether the run has reached a
// terminal state. Events for other prompts leave the monitor untouched.
func (m *Monitor) Feed(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return true
	}
	if ev.PromptID != m.promptID {
		return false
	}

	switch ev.Type {
	case EventExecuting:
		if ev.NodeID == "" {
			// The finish signal. Outputs still missing at this point
			// are only recoverable from the backend's history.
			m.finish()
			return true
		}
		m.currentNode = ev.NodeID
		m.value, m.max = 0, 0

	case EventProgress:
		if ev.NodeID != "" {
			m.currentNode = ev.NodeID
		}
		m.value, m.max = ev.Value, ev.Max

	case EventExecuted:
		if !m.outputNodes[ev.NodeID] {
			return false
		}
		files := ev.Output["gifs"]
		if len(files) == 0 {
			files = ev.Output["images"]
		}
		if len(files) > 0 {
			m.outputs[ev.NodeID] = append([]FileRef(nil), files...)
		}
		m.completed[ev.NodeID] = true
		if m.allOutputsDone() {
			m.finish()
			return true
		}

	case EventExecutionCached:
		m.cached = true
		for _, id := range ev.Nodes {
			m.cachedNodes[id] = true
		}

	case EventExecutionSuccess:
		if m.allOutputsDone() {
			m.finish()
			return true
		}

	case EventExecutionError:
		m.err = fmt.Errorf("%w: node %s: %s", ErrExecutionFailed, ev.NodeID, ev.Message)
		m.finish()
		return true
	}
	return false
}

func (m *Monitor) allOutputsDone() bool {
	return len(m.completed) >= len(m.outputNodes)
}

func (m *Monitor) finish() {
	m.done = true
	m.finishedAt = m.now()
	m.currentNode = ""
}

// Done reports whether the run has reached a terminal state.
func (m *Monitor) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Err returns the terminal error, nil while running or on success.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Outputs returns the collected artifacts keyed by output node id.
func (m *Monitor) Outputs() map[string][]FileRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]FileRef, len(m.outputs))
	for id, refs := range m.outputs {
		out[id] = append([]FileRef(nil), refs...)
	}
	return out
}

// PendingOutputs returns the output nodes that have not reported yet,
// sorted. After a cached run these are the nodes to recover from
// history.
func (m *Monitor) PendingOutputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.outputNodes {
		if !m.completed[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Cached reports whether the backend served the run from its cache.
func (m *Monitor) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached
}

// CachedNodes returns the ids the backend reported as served from
// cache, sorted.
func (m *Monitor) CachedNodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.cachedNodes))
	for id := range m.cachedNodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Progress returns the current node's progress counters.
func (m *Monitor) Progress() (value, max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.max
}

// CurrentNode returns the node the backend is executing, empty between
// nodes and after the run ends.
func (m *Monitor) CurrentNode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentNode
}

// Summary renders a one-line account of the run.
func (m *Monitor) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.finishedAt
	if end.IsZero() {
		end = m.now()
	}
	elapsed := end.Sub(m.started).Round(time.Second)

	files := 0
	for _, refs := range m.outputs {
		files += len(refs)
	}
	state := "running"
	switch {
	case m.err != nil:
		state = "failed"
	case m.done:
		state = "finished"
	}
	return fmt.Sprintf("prompt %s %s: %d/%d outputs, %d files, %s elapsed",
		m.promptID, state, len(m.completed), len(m.outputNodes), files,
		durafmt.Parse(elapsed).String())
}
