package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgoodwin/essayradar/internal/types"
)

func sampleResults() map[string]*types.EssayResult {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return map[string]*types.EssayResult{
		"How to Do Great Work": types.NewEssayResult(
			types.Essay{Title: "How to Do Great Work", URL: "http://www.paulgraham.com/greatwork.html", Slug: "greatwork"},
			types.MatchResult{
				{ObjectID: "a", Title: "How to Do Great Work", Points: 450},
				{ObjectID: "b", Title: "How to Do Great Work (2023)", Points: 120},
			}, at),
		"Hackers & Painters": types.NewEssayResult(
			types.Essay{Title: "Hackers & Painters", URL: "http://www.paulgraham.com/hp.html", Slug: "hp"},
			types.MatchResult{
				{ObjectID: "c", Title: "Hackers & Painters turns 20", Points: 900},
			}, at),
		"Beating the Averages": types.NewEssayResult(
			types.Essay{Title: "Beating the Averages", URL: "http://www.paulgraham.com/avg.html", Slug: "avg"},
			nil, at),
	}
}

func TestBuild_SummaryStats(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())
	s := report.Summary

	assert.Equal(t, 3, s.TotalEssays)
	assert.Equal(t, 2, s.EssaysWithMentions)
	assert.Equal(t, 3, s.TotalMentions)
}

func TestBuild_Rankings(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())

	require.NotEmpty(t, report.Summary.TopByMentions)
	assert.Equal(t, "How to Do Great Work", report.Summary.TopByMentions[0].Title)
	assert.Equal(t, 2, report.Summary.TopByMentions[0].Mentions)

	require.NotEmpty(t, report.Summary.TopByPoints)
	assert.Equal(t, "Hackers & Painters", report.Summary.TopByPoints[0].Title)
	assert.Equal(t, 900, report.Summary.TopByPoints[0].MaxPoints)
}

func TestBuild_EmptyResults(t *testing.T) {
	report := Build("s1", map[string]*types.EssayResult{}, time.Now())

	assert.Zero(t, report.Summary.TotalEssays)
	assert.Empty(t, report.Summary.TopByMentions)
}

func TestSortedKeys_ByMentionsThenTitle(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())

	keys := report.SortedKeys()
	assert.Equal(t, []string{"How to Do Great Work", "Hackers & Painters", "Beating the Averages"}, keys)
}

func TestJSONRenderer_RoundTrips(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())

	var buf bytes.Buffer
	require.NoError(t, (&JSONRenderer{}).Render(report, &buf))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.Summary.TotalEssays)
	assert.Len(t, decoded.Results, 3)
}

func TestCSVRenderer_HeaderAndRows(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())

	var buf bytes.Buffer
	require.NoError(t, (&CSVRenderer{}).Render(report, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4) // header + 3 essays
	assert.Equal(t, []string{"title", "url", "mentions", "max_points", "processed_at"}, rows[0])
	assert.Equal(t, "How to Do Great Work", rows[1][0])
	assert.Equal(t, "2", rows[1][2])
}

func TestTextRenderer_ContainsStats(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())

	var buf bytes.Buffer
	require.NoError(t, (&TextRenderer{}).Render(report, &buf))

	out := buf.String()
	assert.Contains(t, out, "Essays searched:      3")
	assert.Contains(t, out, "How to Do Great Work")
	assert.Contains(t, out, "900 points")
}

func TestHTMLRenderer_EscapesAndLinks(t *testing.T) {
	report := Build("s1", sampleResults(), time.Now())

	var buf bytes.Buffer
	require.NoError(t, (&HTMLRenderer{}).Render(report, &buf))

	out := buf.String()
	assert.Contains(t, out, "Hackers &amp; Painters")
	assert.Contains(t, out, `href="http://www.paulgraham.com/greatwork.html"`)
}

func TestNewRenderer_UnsupportedFormat(t *testing.T) {
	_, err := NewRenderer("pdf")
	assert.Error(t, err)
}

func TestWriteAll_ProducesEveryFormat(t *testing.T) {
	dir := t.TempDir()
	report := Build("s1", sampleResults(), time.Now())

	require.NoError(t, WriteAll(dir, report))

	for _, ext := range []string{"json", "csv", "html", "txt"} {
		path := filepath.Join(dir, "mentions_s1."+ext)
		info, err := os.Stat(path)
		require.NoError(t, err, "missing %s", path)
		assert.NotZero(t, info.Size())
	}
}
