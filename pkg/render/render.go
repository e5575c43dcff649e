// Package render writes command results as text, JSON, YAML or HTML.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
	FormatPlot Format = "plot"
)

// ErrUnknownFormat is returned for a format a command does not support.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat checks name against the formats a command accepts.
func ParseFormat(name string, allowed ...Format) (Format, error) {
	f := Format(name)
	if !slices.Contains(allowed, f) {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownFormat, name, allowed)
	}

	return f, nil
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// YAML writes v as YAML.
func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}

// Painter colours text by change class. It is a no-op unless its writer
// is a terminal.
type Painter struct {
	enabled bool
	classes map[cursor.Color]*color.Color
}

// NewPainter creates a Painter for w.
func NewPainter(w io.Writer) *Painter {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int.
	}

	p := &Painter{
		enabled: enabled,
		classes: map[cursor.Color]*color.Color{
			cursor.ColorNew:       color.New(color.FgRed, color.Bold),
			cursor.ColorOngoing:   color.New(color.FgYellow),
			cursor.ColorUnchanged: color.New(color.Faint),
		},
	}

	for _, c := range p.classes {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// Paint returns s in the colour of class.
func (p *Painter) Paint(class cursor.Color, s string) string {
	c, ok := p.classes[class]
	if !ok || !p.enabled {
		return s
	}

	return c.Sprint(s)
}
