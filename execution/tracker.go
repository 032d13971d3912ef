package execution

import (
	"sort"
	"sync"
)

// Tracker is a registry of in-flight monitors keyed by prompt id.
// Finished monitors stay registered until removed so their outputs
// remain readable.
type Tracker struct {
	mu       sync.Mutex
	monitors map[string]*Monitor
}

func NewTracker() *Tracker {
	return &Tracker{monitors: make(map[string]*Monitor)}
}

// Watch starts tracking a freshly submitted prompt.
func (t *Tracker) Watch(promptID string, outputNodes []string) *Monitor {
	m := NewMonitor(promptID, outputNodes, nil)
	t.mu.Lock()
	t.monitors[promptID] = m
	t.mu.Unlock()
	return m
}

// Add registers an existing monitor.
func (t *Tracker) Add(m *Monitor) {
	t.mu.Lock()
	t.monitors[m.PromptID()] = m
	t.mu.Unlock()
}

// Dispatch routes an event to the monitor tracking its prompt and
// reports whether that run reached a terminal state. Events for
// unknown prompts are dropped.
func (t *Tracker) Dispatch(ev Event) bool {
	t.mu.Lock()
	m, ok := t.monitors[ev.PromptID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	return m.Feed(ev)
}

// Get returns the monitor for a prompt id.
func (t *Tracker) Get(promptID string) (*Monitor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.monitors[promptID]
	return m, ok
}

// Remove forgets a prompt.
func (t *Tracker) Remove(promptID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.monitors, promptID)
}

// Active returns the prompt ids still running, sorted.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for id, m := range t.monitors {
		if !m.Done() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
