package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sumatoshi-tech/codeatlas/pkg/cursor"
	"github.com/Sumatoshi-tech/codeatlas/pkg/history"
	"github.com/Sumatoshi-tech/codeatlas/pkg/timeline"
)

var errBadIndex = errors.New("snapshot index must be an integer")

type commitsResponse struct {
	Total   int              `json:"total"`
	Commits []history.Commit `json:"commits"`
}

func (s *Server) handleCommits(rw http.ResponseWriter, hr *http.Request) {
	commits := s.shared.Commits()

	s.writeJSON(rw, hr, http.StatusOK, commitsResponse{Total: len(commits), Commits: commits})
}

// handleSnapshot serves one snapshot with its fingerprint as ETag.
func (s *Server) handleSnapshot(rw http.ResponseWriter, hr *http.Request) {
	index, err := strconv.Atoi(hr.PathValue("index"))
	if err != nil {
		s.writeError(rw, hr, http.StatusBadRequest, fmt.Errorf("%w: %q", errBadIndex, hr.PathValue("index")))

		return
	}

	s.sharedMu.Lock()
	snap, err := s.shared.JumpTo(hr.Context(), index)
	s.sharedMu.Unlock()

	switch {
	case errors.Is(err, cursor.ErrOutOfRange):
		s.writeError(rw, hr, http.StatusNotFound, err)

		return
	case err != nil:
		s.writeError(rw, hr, http.StatusInternalServerError, err)

		return
	}

	etag := fmt.Sprintf(`"%016x"`, snap.Fingerprint())
	rw.Header().Set("ETag", etag)
	rw.Header().Set("Cache-Control", "no-cache")

	if hr.Header.Get("If-None-Match") == etag {
		rw.WriteHeader(http.StatusNotModified)

		return
	}

	s.writeJSON(rw, hr, http.StatusOK, snap)
}

func (s *Server) handleTimeline(rw http.ResponseWriter, hr *http.Request) {
	entries, err := timeline.Build(hr.Context(), s.reader)
	if err != nil {
		s.writeError(rw, hr, http.StatusInternalServerError, err)

		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")

	err = timeline.WriteHTML(rw, entries, s.opts.Theme)
	if err != nil {
		s.logger.WarnContext(hr.Context(), "server: render timeline failed", "error", err)
	}
}

func (s *Server) writeJSON(rw http.ResponseWriter, hr *http.Request, code int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	err := json.NewEncoder(rw).Encode(value)
	if err != nil {
		s.logger.WarnContext(hr.Context(), "server: encode response failed", "error", err)
	}
}

func (s *Server) writeError(rw http.ResponseWriter, hr *http.Request, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.WarnContext(hr.Context(), "server: request failed", "path", hr.URL.Path, "error", err)
	}

	s.writeJSON(rw, hr, code, map[string]string{"error": err.Error()})
}
