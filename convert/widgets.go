package convert

import (
	"fmt"
	"strings"
	"time"

	"comfymobile/graph"
	"comfymobile/logger"
)

// preprocessWidgets strips frontend control state and expands date
// templates before any widget value can reach the emitted prompt.
func preprocessWidgets(g *graph.Graph, now time.Time) {
	for _, n := range g.Nodes {
		if isSamplerType(n.Type) {
			stripControlValues(n)
		}
		expandDateTokens(n, now)
	}
}

// stripControlValues removes control sentinels from both widget arms.
// Samplers carry them next to their seed widget and the backend
// rejects them as parameter values.
func stripControlValues(n *graph.Node) {
	if vals := n.Widgets.Positional(); vals != nil {
		kept := make([]any, 0, len(vals))
		for _, v := range vals {
			if isControlSentinel(v) {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) != len(vals) {
			n.Widgets.SetPositional(kept)
		}
	}
	for name, v := range n.Widgets.Named() {
		if isControlSentinel(v) {
			n.Widgets.Delete(name)
		}
	}
}

const datePrefix = "%date:"

// expandDateTokens rewrites %date:<pattern>% templates in string
// widget values using the conversion clock.
func expandDateTokens(n *graph.Node, now time.Time) {
	vals := n.Widgets.Positional()
	for i, v := range vals {
		if s, ok := v.(string); ok {
			vals[i] = expandDateString(s, now, n.ID)
		}
	}
	for name, v := range n.Widgets.Named() {
		if s, ok := v.(string); ok {
			n.Widgets.Set(name, expandDateString(s, now, n.ID))
		}
	}
}

func expandDateString(s string, now time.Time, nodeID int) string {
	if !strings.Contains(s, datePrefix) {
		return s
	}
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, datePrefix)
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		after := rest[start+len(datePrefix):]
		end := strings.Index(after, "%")
		if end < 0 {
			// Unterminated template: leave the whole value alone.
			logger.Warn("Malformed date template in widget value", "node", nodeID, "value", s)
			return s
		}
		b.WriteString(formatDatePattern(after[:end], now))
		rest = after[end+1:]
	}
}

// formatDatePattern expands the yyyy, MM and dd atoms. Anything else
// passes through literally.
func formatDatePattern(pattern string, now time.Time) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "yyyy"):
			b.WriteString(fmt.Sprintf("%04d", now.Year()))
			i += 4
		case strings.HasPrefix(pattern[i:], "MM"):
			b.WriteString(fmt.Sprintf("%02d", int(now.Month())))
			i += 2
		case strings.HasPrefix(pattern[i:], "dd"):
			b.WriteString(fmt.Sprintf("%02d", now.Day()))
			i += 2
		default:
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}
