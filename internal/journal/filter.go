package journal

import (
	"strings"
	"time"
)

// Filter values accepted by Query fields; "all" disables a dimension.
const (
	FilterAll = "all"

	RangeWeek        = "week"
	RangeMonth       = "month"
	RangeThreeMonths = "3months"
)

// Query is a filter tuple over the journal. When Search is non-empty it
// replaces the structured filters entirely: free-text search and structured
// filtering are mutually exclusive, matching the journal UI.
type Query struct {
	Risk   string // "all" or a RiskStage value
	Range  string // "all", "week", "month", or "3months"
	Type   string // "all" or an EntryType value
	Search string // case-insensitive substring over searchable text
}

// Apply derives a filtered view of entries. It is a pure function: entries
// is not modified, and the result preserves the input's relative order.
func Apply(entries []Entry, q Query, now time.Time) []Entry {
	if q.Search != "" {
		return applySearch(entries, q.Search)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !matchesRisk(e, q.Risk) {
			continue
		}
		if !matchesRange(e, q.Range, now) {
			continue
		}
		if !matchesType(e, q.Type) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func applySearch(entries []Entry, term string) []Entry {
	needle := strings.ToLower(term)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e.searchableText(), needle) {
			out = append(out, e)
		}
	}
	return out
}

// matchesRisk excludes entries whose stage does not match; entries without a
// stage never match a non-"all" risk filter.
func matchesRisk(e Entry, risk string) bool {
	if risk == "" || risk == FilterAll {
		return true
	}
	return e.Stage != nil && string(*e.Stage) == risk
}

func matchesRange(e Entry, rng string, now time.Time) bool {
	var maxDays int
	switch rng {
	case RangeWeek:
		maxDays = 7
	case RangeMonth:
		maxDays = 30
	case RangeThreeMonths:
		maxDays = 90
	default:
		return true
	}
	days := int(now.Sub(e.Date) / (24 * time.Hour))
	return days <= maxDays
}

func matchesType(e Entry, typ string) bool {
	if typ == "" || typ == FilterAll {
		return true
	}
	return string(e.Type) == typ
}
