// Package scrape extracts the essay list from the essay site's index page.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rgoodwin/essayradar/internal/fetch"
	"github.com/rgoodwin/essayradar/internal/types"
)

// indexSlugs are navigation pages on the essay site that look like essay
// links but are not essays.
var indexSlugs = map[string]bool{
	"articles": true,
	"index":    true,
	"rss":      true,
}

// Fetcher retrieves raw HTML for a URL. The default implementation is the
// plain HTTP fetcher; a browser-backed one substitutes when the index page
// needs JavaScript rendering.
type Fetcher func(ctx context.Context, url string) (string, error)

// HTTPFetcher returns a Fetcher backed by a plain HTTP GET.
func HTTPFetcher(opts *fetch.Options) Fetcher {
	return func(ctx context.Context, url string) (string, error) {
		result, err := fetch.URL(ctx, url, opts)
		if err != nil {
			return "", err
		}
		return result.HTML, nil
	}
}

// BrowserFetcher returns a Fetcher backed by headless browser rendering.
func BrowserFetcher() Fetcher {
	return func(ctx context.Context, url string) (string, error) {
		return fetch.BrowserSimple(ctx, url)
	}
}

// Essays fetches the index page and extracts the deduplicated essay list.
func Essays(ctx context.Context, indexURL string, fetcher Fetcher) ([]types.Essay, error) {
	if fetcher == nil {
		fetcher = HTTPFetcher(nil)
	}
	html, err := fetcher(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch essay index: %w", err)
	}
	return ExtractEssays(html, indexURL)
}

// ExtractEssays parses the index HTML and returns (title, url, slug) triples
// for every same-domain essay link, deduplicated by URL with the first
// occurrence winning.
func ExtractEssays(htmlContent string, baseURL string) ([]types.Essay, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ExtractionError{Message: "failed to parse base URL", Cause: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("invalid base URL: %s (must have scheme and host)", baseURL),
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &ExtractionError{Message: "failed to parse HTML", Cause: err}
	}

	seen := make(map[string]bool)
	essays := make([]types.Essay, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			// Skip malformed URLs
			return
		}

		absolute := base.ResolveReference(linkURL)
		if absolute.Host != base.Host {
			return
		}
		absolute.Fragment = ""

		slug := slugFromPath(absolute.Path)
		if slug == "" || indexSlugs[slug] {
			return
		}

		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}

		urlString := absolute.String()
		if seen[urlString] {
			return
		}
		seen[urlString] = true

		essays = append(essays, types.Essay{Title: title, URL: urlString, Slug: slug})
	})

	return essays, nil
}

// slugFromPath derives the short slug from a link path, e.g.
// "/greatwork.html" -> "greatwork". Non-essay paths return "".
func slugFromPath(p string) string {
	name := path.Base(p)
	if !strings.HasSuffix(name, ".html") {
		return ""
	}
	return strings.TrimSuffix(name, ".html")
}
