// Package match decides whether a search hit corresponds to a given essay.
package match

import (
	"strings"

	"github.com/rgoodwin/essayradar/internal/types"
)

// Scorer judges the relevance of a single hit to a single essay. It is a
// pure capability so alternative strategies (token overlap, edit distance)
// can be substituted without touching the search client.
type Scorer interface {
	Match(essay types.Essay, hit types.Hit) bool
}

// SubstringScorer is the default strategy: a set of case-insensitive
// substring tests against the hit's title, URL and body text.
//
// Known tradeoff: very short or generic essay titles over-match, and essays
// republished under a different headline under-match. This mirrors the
// behavior the reports were tuned against and is kept intentionally.
type SubstringScorer struct {
	domain string
}

// NewSubstringScorer creates a scorer anchored to the essay site's domain,
// e.g. "paulgraham.com".
func NewSubstringScorer(domain string) *SubstringScorer {
	return &SubstringScorer{domain: strings.ToLower(domain)}
}

// Match reports whether the hit is about the essay. Relevant if any of:
//   - the hit title contains the full essay title
//   - the hit URL contains the essay's canonical URL
//   - the hit URL contains the slug appended to the site domain
//   - the hit's body text contains the essay's canonical URL
func (s *SubstringScorer) Match(essay types.Essay, hit types.Hit) bool {
	title := strings.ToLower(essay.Title)
	essayURL := strings.ToLower(essay.URL)
	slug := strings.ToLower(essay.Slug)

	hitTitle := strings.ToLower(hit.Title)
	hitURL := strings.ToLower(hit.URL)
	body := strings.ToLower(hit.StoryText)

	if title != "" && strings.Contains(hitTitle, title) {
		return true
	}
	if essayURL != "" && strings.Contains(hitURL, essayURL) {
		return true
	}
	if slug != "" && s.domain != "" && strings.Contains(hitURL, s.domain+"/"+slug) {
		return true
	}
	if essayURL != "" && strings.Contains(body, essayURL) {
		return true
	}
	return false
}
