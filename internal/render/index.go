package render

import (
	"html/template"
	"io"

	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/sensordata"
)

// IndexData is the content of the landing page.
type IndexData struct {
	Dates    []domain.Date
	Discards []sensordata.Discard
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sensor Data Viewer</title>
</head>
<body>
<h1>Sensor Data Viewer</h1>
{{if .Dates}}
<ul>
{{range .Dates}}<li><a href="/dates/{{.}}">{{.}}</a></li>
{{end}}</ul>
{{else}}
<p>No sensor data available.</p>
{{end}}
{{if .Discards}}
<h2>Skipped files</h2>
<ul>
{{range .Discards}}<li>{{.Path}}: {{.Reason}}</li>
{{end}}</ul>
{{end}}
</body>
</html>
`))

// RenderIndex writes the date listing page.
func RenderIndex(w io.Writer, data IndexData) error {
	return indexTemplate.Execute(w, data)
}
