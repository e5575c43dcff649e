// Package snapshot reconstructs the state of a repository as of one commit.
package snapshot

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// ErrSnapshotBuild is returned when a query required for a snapshot fails.
var ErrSnapshotBuild = errors.New("snapshot build failed")

// FileEntry is one file of a snapshot.
type FileEntry struct {
	Path string `json:"path" yaml:"path"`
	// LastModifiedIndex is the position of the most recent commit at or
	// before the snapshot that changed Path.
	LastModifiedIndex int    `json:"lastModifiedIndex"  yaml:"last_modified_index"`
	Language          string `json:"language,omitempty" yaml:"language,omitempty"`
	Vendored          bool   `json:"vendored,omitempty" yaml:"vendored,omitempty"`
}

// Snapshot is the full file tree as of one commit.
type Snapshot struct {
	Position     int         `json:"position"     yaml:"position"`
	CommitID     string      `json:"commitId"     yaml:"commit_id"`
	FilesChanged []string    `json:"filesChanged" yaml:"files_changed"`
	AllFiles     []FileEntry `json:"allFiles"     yaml:"all_files"`
}

// Changed reports whether the snapshot's commit touched path.
func (s *Snapshot) Changed(path string) bool {
	_, found := slices.BinarySearch(s.FilesChanged, path)

	return found
}

// Entry returns the entry for path.
func (s *Snapshot) Entry(path string) (FileEntry, bool) {
	i, found := slices.BinarySearchFunc(s.AllFiles, path, func(e FileEntry, p string) int {
		return strings.Compare(e.Path, p)
	})
	if !found {
		return FileEntry{}, false
	}

	return s.AllFiles[i], true
}

// Fingerprint hashes the snapshot content. Equal snapshots hash equally.
func (s *Snapshot) Fingerprint() uint64 {
	h := xxh3.New()

	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.Write([]byte{0})
		}
	}

	write(strconv.Itoa(s.Position), s.CommitID)

	for _, p := range s.FilesChanged {
		write("c", p)
	}

	for _, e := range s.AllFiles {
		write("f", e.Path, strconv.Itoa(e.LastModifiedIndex))
	}

	return h.Sum64()
}

// IndexMap maps commit ids to their positions. It is filled as commits are
// visited; ids of commits not yet visited are unknown.
type IndexMap struct {
	positions map[string]int
}

// NewIndexMap returns an empty map.
func NewIndexMap() *IndexMap {
	return &IndexMap{positions: make(map[string]int)}
}

// Lookup returns the position recorded for id.
func (m *IndexMap) Lookup(id string) (int, bool) {
	pos, ok := m.positions[id]

	return pos, ok
}

// Record stores the position of id.
func (m *IndexMap) Record(id string, position int) {
	m.positions[id] = position
}

// Len returns the number of recorded commits.
func (m *IndexMap) Len() int {
	return len(m.positions)
}
