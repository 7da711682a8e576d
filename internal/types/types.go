// Package types provides type definitions for structured data used throughout the essayradar system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Essay identifies one unit of work to search mentions for.
// The full essay list is fixed at session start and never mutated.
type Essay struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Slug  string `json:"slug"`
}

// Key returns the stable identifier used for checkpoint bookkeeping.
func (e Essay) Key() string {
	return e.Title
}

// Hit represents a single candidate result from the search collaborator.
// Missing numeric fields on the wire decode as zero.
type Hit struct {
	ObjectID    string `json:"object_id"`
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	StoryText   string `json:"story_text,omitempty"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
	Author      string `json:"author"`
}

// MatchResult is the ordered set of hits judged relevant to one essay:
// deduplicated by ObjectID, sorted descending by points, ties keep
// discovery order.
type MatchResult []Hit

// EssayResult is the per-essay checkpoint entry: the filtered hits plus
// derived scalar stats and the time of processing.
type EssayResult struct {
	Essay       Essay       `json:"essay"`
	Hits        MatchResult `json:"hits"`
	HitCount    int         `json:"hit_count"`
	MaxPoints   int         `json:"max_points"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// NewEssayResult builds an EssayResult with its derived stats.
func NewEssayResult(essay Essay, hits MatchResult, at time.Time) *EssayResult {
	maxPoints := 0
	for _, h := range hits {
		if h.Points > maxPoints {
			maxPoints = h.Points
		}
	}
	return &EssayResult{
		Essay:       essay,
		Hits:        hits,
		HitCount:    len(hits),
		MaxPoints:   maxPoints,
		ProcessedAt: at,
	}
}

// SessionState is the complete durable state of one processing run.
//
// Invariants: len(Processed) == ProcessedCount == len(Results), and every
// key in Processed has a corresponding Results entry. Processed is
// append-only; an essay, once recorded, is never reprocessed in the same
// or a resumed session.
type SessionState struct {
	ID             string                  `json:"id"`
	Essays         []Essay                 `json:"essays"`
	Total          int                     `json:"total"`
	Processed      []string                `json:"processed"`
	Results        map[string]*EssayResult `json:"results"`
	ProcessedCount int                     `json:"processed_count"`
	Completed      bool                    `json:"completed"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewSessionState creates an empty session with the given identifier.
func NewSessionState(id string, now time.Time) *SessionState {
	return &SessionState{
		ID:        id,
		Processed: make([]string, 0),
		Results:   make(map[string]*EssayResult),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
