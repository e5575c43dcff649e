package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// BlobHash returns the blob id stored at path, and false when the path is
// absent or is not a blob.
func (t *Tree) BlobHash(path string) (Hash, bool) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil || entry.Type != git2go.ObjectBlob {
		return Hash{}, false
	}

	return HashFromOid(entry.Id), true
}

// Paths returns every blob path in the tree, recursively, in tree order.
func (t *Tree) Paths() ([]string, error) {
	var paths []string

	err := t.walk("", func(path string) {
		paths = append(paths, path)
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

func (t *Tree) walk(prefix string, cb func(path string)) error {
	count := t.tree.EntryCount()

	for i := range count {
		entry := t.tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		path := entry.Name
		if prefix != "" {
			path = prefix + "/" + path
		}

		switch entry.Type {
		case git2go.ObjectBlob:
			cb(path)
		case git2go.ObjectTree:
			subtree, err := t.repo.LookupTree(HashFromOid(entry.Id))
			if err != nil {
				return fmt.Errorf("walk %s: %w", path, err)
			}

			walkErr := subtree.walk(path, cb)
			subtree.Free()

			if walkErr != nil {
				return walkErr
			}
		default:
			// Submodule commits and other entry kinds carry no files.
		}
	}

	return nil
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}
