package aggregate

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
)

// Summary is written to summary.json.
type Summary struct {
	Normalization string           `json:"normalization"`
	Libraries     int              `json:"libraries"`
	GemGroups     int              `json:"gem_groups"`
	Barcodes      int              `json:"barcodes"`
	Features      int              `json:"features"`
	TotalCounts   int64            `json:"total_counts"`
	PerLibrary    []LibrarySummary `json:"per_library"`
}

// NewSummary describes res.
func NewSummary(res *Result, mode string) Summary {
	return Summary{
		Normalization: mode,
		Libraries:     len(res.Libraries),
		GemGroups:     res.LibraryMap.GemGroups(),
		Barcodes:      len(res.Matrix.Barcodes),
		Features:      len(res.Matrix.Features),
		TotalCounts:   res.Matrix.Total(),
		PerLibrary:    res.Libraries,
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

var webSummary = template.Must(template.New("web_summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Aggregation summary</title>
</head>
<body>
<h1>Aggregation summary</h1>
<table>
<tr><th>Libraries</th><td>{{.Libraries}}</td></tr>
<tr><th>Barcodes</th><td>{{.Barcodes}}</td></tr>
<tr><th>Features</th><td>{{.Features}}</td></tr>
<tr><th>Total counts</th><td>{{.TotalCounts}}</td></tr>
<tr><th>Normalization</th><td>{{.Normalization}}</td></tr>
</table>
<h2>Libraries</h2>
<table>
<tr><th>Library</th><th>Gem groups</th><th>Barcodes</th><th>Raw counts</th><th>Counts</th></tr>
{{- range .PerLibrary}}
<tr><td>{{.LibraryID}}</td><td>{{range $i, $g := .GemGroups}}{{if $i}}, {{end}}{{$g}}{{end}}</td><td>{{.Barcodes}}</td><td>{{.RawCounts}}</td><td>{{.Counts}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

func writeWebSummary(path string, s Summary) error {
	var buf bytes.Buffer
	if err := webSummary.Execute(&buf, s); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
