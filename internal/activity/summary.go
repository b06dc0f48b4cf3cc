// Package activity provides the Activity Summary component: a pure
// function that digests a Worker's activity record into a compact
// summary for the judge.
package activity

import (
	"fmt"
	"strings"

	"github.com/coderun-dev/fleet/internal/model"
)

// maxEntries bounds how many individual entries are rendered before the
// summary falls back to counts only, keeping the judge's prompt input
// bounded regardless of how chatty a worker was.
const maxEntries = 20

// Summarize digests entries into a short, judge-readable string. Empty
// input yields "no recorded activity".
func Summarize(entries []model.ActivityEntry) string {
	if len(entries) == 0 {
		return "no recorded activity"
	}

	counts := make(map[model.ActivityType]int)
	for _, e := range entries {
		counts[e.Type]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d activity entries", len(entries))

	order := []model.ActivityType{
		model.ActivityToolCall,
		model.ActivityFileEdit,
		model.ActivityFileCreate,
		model.ActivityBash,
		model.ActivityText,
		model.ActivityThinking,
		model.ActivityError,
	}
	var parts []string
	for _, t := range order {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	if len(parts) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}

	rendered := entries
	if len(rendered) > maxEntries {
		rendered = rendered[len(rendered)-maxEntries:]
		fmt.Fprintf(&b, "; last %d shown", maxEntries)
	}

	b.WriteString(":\n")
	for _, e := range rendered {
		fmt.Fprintf(&b, "- [%s] %s\n", e.Type, e.Summary)
	}

	return strings.TrimRight(b.String(), "\n")
}
