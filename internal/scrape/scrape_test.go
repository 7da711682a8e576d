package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexFixture = `
<html><body>
<table>
<tr><td><img src="bullet.gif"> <a href="greatwork.html">How to Do Great Work</a></td></tr>
<tr><td><img src="bullet.gif"> <a href="hp.html">Hackers &amp; Painters</a></td></tr>
<tr><td><img src="bullet.gif"> <a href="taste.html">Taste for Makers</a></td></tr>
<tr><td><img src="bullet.gif"> <a href="greatwork.html">How to Do Great Work</a></td></tr>
</table>
<a href="index.html">Home</a>
<a href="rss.html">RSS</a>
<a href="https://news.ycombinator.com/">Hacker News</a>
<a href="bio.html"></a>
<a href="essay.pdf">PDF version</a>
</body></html>`

func TestExtractEssays_Fixture(t *testing.T) {
	essays, err := ExtractEssays(indexFixture, "http://www.paulgraham.com/articles.html")
	require.NoError(t, err)

	require.Len(t, essays, 3)
	assert.Equal(t, "How to Do Great Work", essays[0].Title)
	assert.Equal(t, "http://www.paulgraham.com/greatwork.html", essays[0].URL)
	assert.Equal(t, "greatwork", essays[0].Slug)
	assert.Equal(t, "hp", essays[1].Slug)
	assert.Equal(t, "taste", essays[2].Slug)
}

func TestExtractEssays_DeduplicatesByURL(t *testing.T) {
	essays, err := ExtractEssays(indexFixture, "http://www.paulgraham.com/articles.html")
	require.NoError(t, err)

	urls := make(map[string]int)
	for _, e := range essays {
		urls[e.URL]++
	}
	for u, n := range urls {
		assert.Equal(t, 1, n, "duplicate URL %s", u)
	}
}

func TestExtractEssays_SkipsOffSiteAndIndexLinks(t *testing.T) {
	essays, err := ExtractEssays(indexFixture, "http://www.paulgraham.com/articles.html")
	require.NoError(t, err)

	for _, e := range essays {
		assert.NotEqual(t, "index", e.Slug)
		assert.NotEqual(t, "rss", e.Slug)
		assert.NotContains(t, e.URL, "news.ycombinator.com")
	}
}

func TestExtractEssays_InvalidBaseURL(t *testing.T) {
	_, err := ExtractEssays(indexFixture, "not-a-url")
	require.Error(t, err)

	var extractErr *ExtractionError
	assert.ErrorAs(t, err, &extractErr)
}

func TestEssays_EndToEndAgainstTestServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="avg.html">Beating the Averages</a></body></html>`))
	}))
	defer server.Close()

	essays, err := Essays(context.Background(), server.URL+"/articles.html", nil)
	require.NoError(t, err)

	require.Len(t, essays, 1)
	assert.Equal(t, "Beating the Averages", essays[0].Title)
	assert.Equal(t, "avg", essays[0].Slug)
}

func TestEssays_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := Essays(context.Background(), server.URL+"/articles.html", nil)
	assert.Error(t, err)
}

func TestSlugFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/greatwork.html", "greatwork"},
		{"/hp.html", "hp"},
		{"/essay.pdf", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugFromPath(tt.path), "path %q", tt.path)
	}
}
