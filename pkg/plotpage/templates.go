package plotpage

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates     *template.Template
	templatesOnce sync.Once
	errTemplates  error
)

func getTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		var parseErr error

		templates, parseErr = template.New("").ParseFS(templateFS, "templates/*.html")
		if parseErr != nil {
			errTemplates = fmt.Errorf("parsing templates: %w", parseErr)
		}
	})

	return templates, errTemplates
}

func renderTemplate(name string, data any) (template.HTML, error) {
	tmpl, err := getTemplates()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	err = tmpl.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template.
}

type pageData struct {
	Title       string
	Description string
	ProjectName string
	DarkClass   string
	Theme       ThemeConfig
	ExtraHead   template.HTML
	Content     template.HTML
	Script      template.JS
}

type sectionData struct {
	ID       string
	Title    string
	Subtitle string
	Body     template.HTML
}
