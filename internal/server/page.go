package server

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/plotpage"
)

//go:embed assets/client.js
var clientScript string

const (
	controlsHTML = `<div class="controls">
  <button id="prev" type="button">Prev</button>
  <button id="play" type="button">Play</button>
  <button id="next" type="button">Next</button>
  <input id="position" type="range" min="0" max="0" value="0" style="width:40%">
  <span id="counter" class="mono"></span>
  <form id="goto" style="display:inline">
    <input id="commit-id" class="mono" placeholder="commit id" size="12">
    <button type="submit">Go</button>
  </form>
  <button id="retry" type="button" hidden>Retry</button>
</div>
<p><span id="commit" class="mono"></span><br><strong id="message"></strong></p>
<p id="status" class="subtitle"></p>`
	treemapHTML  = `<div id="treemap" style="width:100%;height:560px"></div>`
	hotspotsHTML = `<div id="hotspots" style="width:100%;height:360px"></div>`
	changedHTML  = `<ul id="changed" class="mono"></ul>`
)

// clientTheme is the colour table handed to the browser client, keyed by
// change class.
type clientTheme struct {
	New       string `json:"new"`
	Ongoing   string `json:"ongoing"`
	Unchanged string `json:"unchanged"`
	Folder    string `json:"folder"`
	Accent    string `json:"accent"`
}

func (s *Server) handleIndex(rw http.ResponseWriter, hr *http.Request) {
	page, err := s.page()
	if err != nil {
		s.writeError(rw, hr, http.StatusInternalServerError, err)

		return
	}

	var buf bytes.Buffer

	err = page.Render(&buf)
	if err != nil {
		s.writeError(rw, hr, http.StatusInternalServerError, err)

		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(rw)
}

func (s *Server) page() (*plotpage.Page, error) {
	tc := plotpage.GetThemeConfig(s.opts.Theme)

	theme, err := json.Marshal(clientTheme{
		New:       tc.ColorOf(cursor.ColorNew),
		Ongoing:   tc.ColorOf(cursor.ColorOngoing),
		Unchanged: tc.ColorOf(cursor.ColorUnchanged),
		Folder:    tc.Folder,
		Accent:    tc.Accent,
	})
	if err != nil {
		return nil, fmt.Errorf("encode theme: %w", err)
	}

	title := s.opts.Title
	if title == "" {
		title = "Repository"
	}

	page := plotpage.NewPage(title, fmt.Sprintf("%d commits, oldest first", s.shared.Len())).WithTheme(s.opts.Theme)
	page.Add(
		plotpage.Section{ID: "controls", Title: "History", Content: plotpage.HTML(controlsHTML)},
		plotpage.Section{
			ID:       "hierarchy",
			Title:    "Files",
			Subtitle: "Sized by file count. Click a file to jump to the commit that last changed it.",
			Content:  plotpage.HTML(treemapHTML),
		},
		plotpage.Section{
			ID:       "hotspots",
			Title:    "Hotspots",
			Subtitle: "Files changed most often up to this commit.",
			Content:  plotpage.HTML(hotspotsHTML),
		},
		plotpage.Section{ID: "changed", Title: "Changed in this commit", Content: plotpage.HTML(changedHTML)},
	)

	page.Script = template.JS("const THEME = " + string(theme) + ";\n" + clientScript) //nolint:gosec // embedded asset.

	return page, nil
}
