// Package search queries the Hacker News Algolia API for mentions of an
// essay and filters the candidates through a match scorer.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rgoodwin/essayradar/internal/match"
	"github.com/rgoodwin/essayradar/internal/observability"
	"github.com/rgoodwin/essayradar/internal/types"
)

// Defaults for the search collaborator.
const (
	DefaultBaseURL     = "https://hn.algolia.com/api/v1/search"
	DefaultHitsPerPage = 50
	DefaultQueryDelay  = 300 * time.Millisecond
)

// storyTag restricts results to the story content category.
const storyTag = "story"

// Config holds the tunable parameters of the client.
type Config struct {
	// BaseURL is the search endpoint; empty uses DefaultBaseURL.
	BaseURL string
	// Domain scopes the domain-qualified query variant, e.g. "paulgraham.com".
	Domain string
	// HitsPerPage caps each query's result page; zero uses DefaultHitsPerPage.
	HitsPerPage int
	// QueryDelay is the pause between query variants; negative disables it,
	// zero uses DefaultQueryDelay.
	QueryDelay time.Duration
	// Timeout bounds each HTTP request; zero uses 15s.
	Timeout time.Duration
}

// Client resolves one essay to its MatchResult. It is safe for concurrent
// use: all state is read-only after construction.
type Client struct {
	baseURL     string
	domain      string
	hitsPerPage int
	queryDelay  time.Duration
	httpClient  *http.Client
	scorer      match.Scorer
	sink        observability.Sink
	sleep       func(time.Duration)
}

// NewClient creates a search client with the given scorer and event sink.
func NewClient(cfg Config, scorer match.Scorer, sink observability.Sink) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HitsPerPage <= 0 {
		cfg.HitsPerPage = DefaultHitsPerPage
	}
	delay := cfg.QueryDelay
	switch {
	case delay < 0:
		delay = 0
	case delay == 0:
		delay = DefaultQueryDelay
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		domain:      cfg.Domain,
		hitsPerPage: cfg.HitsPerPage,
		queryDelay:  delay,
		httpClient:  &http.Client{Timeout: timeout},
		scorer:      scorer,
		sink:        sink,
		sleep:       time.Sleep,
	}
}

// QueryVariants returns the fixed set of queries issued for an essay: bare
// title, quoted title, canonical URL, domain-scoped title, and bare slug.
func (c *Client) QueryVariants(essay types.Essay) []string {
	variants := []string{
		essay.Title,
		fmt.Sprintf("%q", essay.Title),
		essay.URL,
	}
	if c.domain != "" {
		variants = append(variants, fmt.Sprintf("%s %q", c.domain, essay.Title))
	}
	if essay.Slug != "" {
		variants = append(variants, essay.Slug)
	}
	return variants
}

// Mentions issues every query variant, pools the candidates, keeps the ones
// the scorer judges relevant, deduplicates by ObjectID (first occurrence
// wins) and sorts by points descending with stable ties.
//
// A single variant's failure is logged and skipped; only all variants
// failing is an error. "No mentions found" is an empty result, never an
// error.
func (c *Client) Mentions(ctx context.Context, essay types.Essay) (types.MatchResult, error) {
	variants := c.QueryVariants(essay)

	var pooled []types.Hit
	failures := 0
	for i, query := range variants {
		hits, err := c.searchOnce(ctx, query)
		if err != nil {
			failures++
			c.sink.Emit(observability.Event{
				Step:     "search",
				Category: observability.CategoryWarn,
				Message:  "query variant failed",
				Fields:   map[string]any{"essay": essay.Key(), "query": query, "error": err.Error()},
			})
		} else {
			pooled = append(pooled, hits...)
		}
		if i < len(variants)-1 && c.queryDelay > 0 {
			c.sleep(c.queryDelay)
		}
	}
	if failures == len(variants) {
		return nil, fmt.Errorf("all %d query variants failed for %q", len(variants), essay.Title)
	}

	relevant := make(types.MatchResult, 0)
	seen := make(map[string]bool)
	for _, hit := range pooled {
		if !c.scorer.Match(essay, hit) {
			continue
		}
		if seen[hit.ObjectID] {
			continue
		}
		seen[hit.ObjectID] = true
		relevant = append(relevant, hit)
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Points > relevant[j].Points
	})

	return relevant, nil
}

// wireHit mirrors the Algolia response shape. Numeric fields arrive as null
// for some record types, so they decode through pointers and default to
// zero.
type wireHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	Points      *int   `json:"points"`
	NumComments *int   `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
	Author      string `json:"author"`
}

func (w wireHit) toHit() types.Hit {
	hit := types.Hit{
		ObjectID:  w.ObjectID,
		Title:     w.Title,
		URL:       w.URL,
		StoryText: w.StoryText,
		CreatedAt: w.CreatedAt,
		Author:    w.Author,
	}
	if w.Points != nil {
		hit.Points = *w.Points
	}
	if w.NumComments != nil {
		hit.NumComments = *w.NumComments
	}
	return hit
}

// searchOnce issues a single query against the endpoint.
func (c *Client) searchOnce(ctx context.Context, query string) ([]types.Hit, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", storyTag)
	params.Set("hitsPerPage", fmt.Sprintf("%d", c.hitsPerPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP status %d", resp.StatusCode)
	}

	var raw struct {
		Hits []wireHit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]types.Hit, 0, len(raw.Hits))
	for _, w := range raw.Hits {
		hits = append(hits, w.toHit())
	}
	return hits, nil
}
