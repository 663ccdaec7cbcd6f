package main

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"page": func(title string) map[string]string {
			return map[string]string{"Title": title}
		},
	}).ParseFS(templateFS, "templates/*.html")
}
