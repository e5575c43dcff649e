package session

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hierarchy"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/hotspot"
	"github.com/Sumatoshi-tech/codeatlas/pkg/snapshot"
)

// Request commands.
const (
	CommandFetch  = "fetch"
	CommandNext   = "next"
	CommandPrev   = "prev"
	CommandOrigin = "origin"
	CommandCommit = "commit"
)

// Response commands.
const (
	CommandUpdateGraph = "updateGraph"
	CommandError       = "error"
)

// ErrInvalidMessage is returned for a request that does not match the
// protocol schema.
var ErrInvalidMessage = errors.New("invalid message")

//go:embed schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Request asks a session to move and report the resulting view.
type Request struct {
	Command string `json:"command"`
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Fetch returns a fetch request for position index.
func Fetch(index int) Request { return Request{Command: CommandFetch, Index: index} }

// Response answers one request. Data is set for updateGraph, Error for
// error responses.
type Response struct {
	Command string `json:"command"`
	Index   int    `json:"index"`
	Data    *View  `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	// Retryable marks failures worth re-issuing the same request for.
	Retryable bool `json:"retryable,omitempty"`
	// Boundary marks a navigation that hit either end of history; Data
	// then holds the unchanged current view.
	Boundary bool `json:"boundary,omitempty"`
}

// View is everything a surface needs to draw one position.
type View struct {
	Position int                `json:"position"`
	Total    int                `json:"total"`
	Commit   history.Commit     `json:"commit"`
	Snapshot *snapshot.Snapshot `json:"snapshot"`
	Colors   cursor.Coloring    `json:"colors"`
	Hotspots []hotspot.Entry    `json:"hotspots"`
	Tree     *hierarchy.Node    `json:"tree"`
}

// Decode parses and validates a raw request.
func Decode(raw []byte) (Request, error) {
	schema, err := loadSchema()
	if err != nil {
		return Request{}, fmt.Errorf("load request schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}

		return Request{}, fmt.Errorf("%w: %s", ErrInvalidMessage, strings.Join(msgs, "; "))
	}

	var req Request

	err = json.Unmarshal(raw, &req)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	return req, nil
}
