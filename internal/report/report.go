// Package report consumes the final results mapping read-only and produces
// derived statistics, rankings and rendered reports.
package report

import (
	"sort"
	"time"

	"github.com/rgoodwin/essayradar/internal/types"
)

// TopN is how many essays the ranking sections include.
const TopN = 10

// Entry is one essay's row in a ranking.
type Entry struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Mentions  int    `json:"mentions"`
	MaxPoints int    `json:"max_points"`
}

// Summary holds the derived statistics for one completed session.
type Summary struct {
	SessionID          string    `json:"session_id"`
	GeneratedAt        time.Time `json:"generated_at"`
	TotalEssays        int       `json:"total_essays"`
	EssaysWithMentions int       `json:"essays_with_mentions"`
	TotalMentions      int       `json:"total_mentions"`
	TopByMentions      []Entry   `json:"top_by_mentions"`
	TopByPoints        []Entry   `json:"top_by_points"`
}

// Report bundles the summary with the full results mapping for rendering.
type Report struct {
	Summary *Summary                      `json:"summary"`
	Results map[string]*types.EssayResult `json:"results"`
}

// Build computes the summary over a results mapping.
func Build(sessionID string, results map[string]*types.EssayResult, now time.Time) *Report {
	summary := &Summary{
		SessionID:   sessionID,
		GeneratedAt: now,
		TotalEssays: len(results),
	}

	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		if r.HitCount > 0 {
			summary.EssaysWithMentions++
		}
		summary.TotalMentions += r.HitCount
		entries = append(entries, Entry{
			Title:     r.Essay.Title,
			URL:       r.Essay.URL,
			Mentions:  r.HitCount,
			MaxPoints: r.MaxPoints,
		})
	}

	summary.TopByMentions = topBy(entries, func(a, b Entry) bool {
		if a.Mentions != b.Mentions {
			return a.Mentions > b.Mentions
		}
		return a.Title < b.Title
	})
	summary.TopByPoints = topBy(entries, func(a, b Entry) bool {
		if a.MaxPoints != b.MaxPoints {
			return a.MaxPoints > b.MaxPoints
		}
		return a.Title < b.Title
	})

	return &Report{Summary: summary, Results: results}
}

// topBy sorts a copy of entries by less and returns the first TopN.
func topBy(entries []Entry, less func(a, b Entry) bool) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > TopN {
		sorted = sorted[:TopN]
	}
	return sorted
}

// SortedKeys returns the result keys ordered by mention count descending,
// then title, for deterministic per-essay listings.
func (r *Report) SortedKeys() []string {
	keys := make([]string, 0, len(r.Results))
	for k := range r.Results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := r.Results[keys[i]], r.Results[keys[j]]
		if a.HitCount != b.HitCount {
			return a.HitCount > b.HitCount
		}
		return a.Essay.Title < b.Essay.Title
	})
	return keys
}
