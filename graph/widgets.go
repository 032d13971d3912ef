package graph

import (
	"encoding/json"
)

// WidgetValues holds a node's widget values in one of the two document
// shapes: a positional array or a name-keyed object. The shape is fixed
// when the document is decoded so later code never inspects raw JSON.
// Name-keyed values written after decoding (constant inlining) overlay
// the positional arm and win per name.
type WidgetValues struct {
	positional []any
	named      map[string]any
}

// PositionalWidgets builds a positional-arm value list.
func PositionalWidgets(values ...any) WidgetValues {
	return WidgetValues{positional: values}
}

// NamedWidgets builds a name-keyed value list.
func NamedWidgets(values map[string]any) WidgetValues {
	return WidgetValues{named: values}
}

// IsNamed reports whether name-keyed values are present.
func (w *WidgetValues) IsNamed() bool {
	return w.named != nil
}

// Positional returns the positional arm. The returned slice is the
// live container; replacing elements mutates the node.
func (w *WidgetValues) Positional() []any {
	return w.positional
}

// SetPositional replaces the positional arm.
func (w *WidgetValues) SetPositional(values []any) {
	w.positional = values
}

// Named returns the name-keyed arm, nil when absent. The returned map
// is the live container.
func (w *WidgetValues) Named() map[string]any {
	return w.named
}

// Lookup returns the name-keyed value for name.
func (w *WidgetValues) Lookup(name string) (any, bool) {
	v, ok := w.named[name]
	return v, ok
}

// Set stores a name-keyed value, initializing the container when absent.
func (w *WidgetValues) Set(name string, value any) {
	if w.named == nil {
		w.named = make(map[string]any)
	}
	w.named[name] = value
}

// Delete removes a name-keyed value.
func (w *WidgetValues) Delete(name string) {
	delete(w.named, name)
}

// First returns the first positional value. Declarations and constant
// nodes store their payload there.
func (w *WidgetValues) First() (any, bool) {
	if len(w.positional) == 0 {
		return nil, false
	}
	return w.positional[0], true
}

// Clone returns a deep copy sharing no containers with w.
func (w WidgetValues) Clone() WidgetValues {
	out := WidgetValues{}
	if w.positional != nil {
		out.positional = make([]any, len(w.positional))
		for i, v := range w.positional {
			out.positional[i] = CopyValue(v)
		}
	}
	if w.named != nil {
		out.named = make(map[string]any, len(w.named))
		for k, v := range w.named {
			out.named[k] = CopyValue(v)
		}
	}
	return out
}

// MarshalJSON writes the arm the document carried. When both arms are
// present the name-keyed one wins; that state only exists on working
// copies, which are not round-tripped.
func (w WidgetValues) MarshalJSON() ([]byte, error) {
	if w.named != nil {
		return json.Marshal(w.named)
	}
	if w.positional != nil {
		return json.Marshal(w.positional)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts an array, an object, or null. Any other shape
// is kept as a single positional value.
func (w *WidgetValues) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*w = WidgetValues{}
	case []any:
		*w = WidgetValues{positional: t}
	case map[string]any:
		*w = WidgetValues{named: t}
	default:
		*w = WidgetValues{positional: []any{t}}
	}
	return nil
}
