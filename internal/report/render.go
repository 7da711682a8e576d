package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Renderer writes a report in one output format.
type Renderer interface {
	Render(report *Report, w io.Writer) error
	Extension() string
}

// Formats lists every supported renderer format.
var Formats = []string{"json", "csv", "html", "txt"}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &JSONRenderer{}, nil
	case "csv":
		return &CSVRenderer{}, nil
	case "html":
		return &HTMLRenderer{}, nil
	case "txt", "text":
		return &TextRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteAll renders the report in every format into dir, one file per
// format named mentions_<session>.<ext>.
func WriteAll(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory %s: %w", dir, err)
	}
	for _, format := range Formats {
		renderer, err := NewRenderer(format)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("mentions_%s.%s", report.Summary.SessionID, renderer.Extension()))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file %s: %w", path, err)
		}
		if err := renderer.Render(report, f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to render %s report: %w", format, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close report file %s: %w", path, err)
		}
	}
	return nil
}

// JSONRenderer renders the full report as pretty-printed JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (r *JSONRenderer) Render(report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Extension implements Renderer.
func (r *JSONRenderer) Extension() string { return "json" }

// CSVRenderer renders one row per essay.
type CSVRenderer struct{}

// Render implements Renderer.
func (r *CSVRenderer) Render(report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "url", "mentions", "max_points", "processed_at"}); err != nil {
		return err
	}
	for _, key := range report.SortedKeys() {
		res := report.Results[key]
		row := []string{
			res.Essay.Title,
			res.Essay.URL,
			strconv.Itoa(res.HitCount),
			strconv.Itoa(res.MaxPoints),
			res.ProcessedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Extension implements Renderer.
func (r *CSVRenderer) Extension() string { return "csv" }

// TextRenderer renders a human-readable plain text summary.
type TextRenderer struct{}

// Render implements Renderer.
func (r *TextRenderer) Render(report *Report, w io.Writer) error {
	s := report.Summary
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Essay mention report (session %s)\n", s.SessionID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Essays searched:      %d\n", s.TotalEssays))
	sb.WriteString(fmt.Sprintf("Essays with mentions: %d\n", s.EssaysWithMentions))
	sb.WriteString(fmt.Sprintf("Total mentions:       %d\n\n", s.TotalMentions))

	sb.WriteString("Top essays by mention count:\n")
	for i, e := range s.TopByMentions {
		sb.WriteString(fmt.Sprintf("  %2d. %s (%d mentions, max %d points)\n", i+1, e.Title, e.Mentions, e.MaxPoints))
	}
	sb.WriteString("\nTop essays by max points:\n")
	for i, e := range s.TopByPoints {
		sb.WriteString(fmt.Sprintf("  %2d. %s (max %d points, %d mentions)\n", i+1, e.Title, e.MaxPoints, e.Mentions))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Extension implements Renderer.
func (r *TextRenderer) Extension() string { return "txt" }

// HTMLRenderer renders a standalone HTML page.
type HTMLRenderer struct{}

const htmlTemplateText = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Essay mentions — session {{.Summary.SessionID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f0f0f0; }
</style>
</head>
<body>
<h1>Essay mention report</h1>
<p>Session {{.Summary.SessionID}}, generated {{.Summary.GeneratedAt.Format "2006-01-02 15:04:05"}}.</p>
<ul>
<li>Essays searched: {{.Summary.TotalEssays}}</li>
<li>Essays with mentions: {{.Summary.EssaysWithMentions}}</li>
<li>Total mentions: {{.Summary.TotalMentions}}</li>
</ul>
<h2>Top essays by mention count</h2>
<table>
<tr><th>#</th><th>Essay</th><th>Mentions</th><th>Max points</th></tr>
{{range $i, $e := .Summary.TopByMentions}}<tr><td>{{inc $i}}</td><td><a href="{{$e.URL}}">{{$e.Title}}</a></td><td>{{$e.Mentions}}</td><td>{{$e.MaxPoints}}</td></tr>
{{end}}</table>
<h2>Top essays by max points</h2>
<table>
<tr><th>#</th><th>Essay</th><th>Max points</th><th>Mentions</th></tr>
{{range $i, $e := .Summary.TopByPoints}}<tr><td>{{inc $i}}</td><td><a href="{{$e.URL}}">{{$e.Title}}</a></td><td>{{$e.MaxPoints}}</td><td>{{$e.Mentions}}</td></tr>
{{end}}</table>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(htmlTemplateText))

// Render implements Renderer.
func (r *HTMLRenderer) Render(report *Report, w io.Writer) error {
	return htmlTemplate.Execute(w, report)
}

// Extension implements Renderer.
func (r *HTMLRenderer) Extension() string { return "html" }
