// Package plotpage renders self-contained HTML pages made of themed
// sections, most of them go-echarts charts.
package plotpage

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
)

const (
	projectName = "CodeAtlas"
	styleOpen   = "<style>"
	styleClose  = "</style>"
)

// Renderable is anything that writes an HTML fragment.
type Renderable interface {
	Render(w io.Writer) error
}

// Section is one titled block of a page.
type Section struct {
	ID       string
	Title    string
	Subtitle string
	Content  Renderable
}

// Page is a complete HTML document.
type Page struct {
	Title       string
	Description string
	Theme       Theme
	Sections    []Section
	// ExtraHead is inserted verbatim at the end of <head>.
	ExtraHead template.HTML
	// Script is inserted verbatim in a trailing <script> element.
	Script template.JS
}

// NewPage creates a dark-themed page.
func NewPage(title, description string) *Page {
	return &Page{Title: title, Description: description, Theme: ThemeDark}
}

// WithTheme sets the page theme.
func (p *Page) WithTheme(theme Theme) *Page {
	p.Theme = theme

	return p
}

// Add appends sections.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

// Render writes the page.
func (p *Page) Render(w io.Writer) error {
	var content bytes.Buffer

	for _, section := range p.Sections {
		body, err := renderFragment(section.Content)
		if err != nil {
			return fmt.Errorf("render section %q: %w", section.Title, err)
		}

		html, err := renderTemplate("section.html", sectionData{
			ID:       section.ID,
			Title:    section.Title,
			Subtitle: section.Subtitle,
			Body:     body,
		})
		if err != nil {
			return err
		}

		content.WriteString(string(html))
	}

	darkClass := ""
	if p.Theme == ThemeDark {
		darkClass = "dark"
	}

	html, err := renderTemplate("page.html", pageData{
		Title:       p.Title,
		Description: p.Description,
		ProjectName: projectName,
		DarkClass:   darkClass,
		Theme:       GetThemeConfig(p.Theme),
		ExtraHead:   p.ExtraHead,
		Content:     template.HTML(content.String()), //nolint:gosec // rendered fragments.
		Script:      p.Script,
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, string(html))
	if err != nil {
		return fmt.Errorf("writing page: %w", err)
	}

	return nil
}

// HTML is a trusted fragment rendered as is.
type HTML template.HTML

// Render implements Renderable.
func (h HTML) Render(w io.Writer) error {
	_, err := io.WriteString(w, string(h))
	if err != nil {
		return fmt.Errorf("writing fragment: %w", err)
	}

	return nil
}

// ChartWrapper renders only the chart element and script of a go-echarts
// chart, dropping the standalone page around it.
type ChartWrapper struct {
	chart Renderable
}

// WrapChart wraps chart.
func WrapChart(chart Renderable) *ChartWrapper {
	return &ChartWrapper{chart: chart}
}

// Render implements Renderable.
func (cw *ChartWrapper) Render(w io.Writer) error {
	if cw.chart == nil {
		return nil
	}

	var buf bytes.Buffer

	err := cw.chart.Render(&buf)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	_, err = io.WriteString(w, extractChartContent(buf.String()))
	if err != nil {
		return fmt.Errorf("writing chart content: %w", err)
	}

	return nil
}

func renderFragment(r Renderable) (template.HTML, error) {
	if r == nil {
		return "", nil
	}

	var buf bytes.Buffer

	err := r.Render(&buf)
	if err != nil {
		return "", fmt.Errorf("render fragment: %w", err)
	}

	return template.HTML(buf.String()), nil //nolint:gosec // trusted renderables.
}

func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	end := strings.Index(html, `</body>`)

	if start == -1 || end == -1 || end < start {
		return html
	}

	content := strings.ReplaceAll(html[start:end], `class="container"`, `class="echart-box"`)

	for {
		i := strings.Index(content, styleOpen)
		if i == -1 {
			break
		}

		j := strings.Index(content[i:], styleClose)
		if j == -1 {
			break
		}

		content = content[:i] + content[i+j+len(styleClose):]
	}

	return content
}
