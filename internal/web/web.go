// Package web holds the embedded dashboard page.
package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/index.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html"))

// IndexData is rendered into the dashboard page.
type IndexData struct {
	Title       string
	LatestLimit int
}

// RenderIndex writes the dashboard page to w.
func RenderIndex(w io.Writer, data IndexData) error {
	return indexTmpl.Execute(w, data)
}
