package incidents

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders postmortem views into a markdown document.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a renderer and parses the postmortem template.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":      func(v any) string { return titleCase(fmt.Sprint(v)) },
		"lower":      strings.ToLower,
		"formatTime": formatTime,
		"formatDate": formatDate,
	}

	content, err := templatesFS.ReadFile("templates/postmortem.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read postmortem template: %w", err)
	}

	tmpl, err := template.New("postmortem").Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse postmortem template: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the markdown postmortem document for a view.
func (r *Renderer) Render(view *PostmortemView) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute postmortem template: %w", err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func formatDate(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}
