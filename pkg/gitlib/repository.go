package gitlib

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrRemoteNotSupported is returned when a remote repository URI is provided.
var ErrRemoteNotSupported = errors.New("remote repositories not supported")

var scpLikeURI = regexp.MustCompile(`^[A-Za-z]\w*@[A-Za-z0-9][\w.]*:`)

// Repository wraps a libgit2 repository.
//
// A Repository and every object obtained from it must be used from one
// goroutine at a time.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// LoadRepository opens a local repository, rejecting remote URIs.
func LoadRepository(uri string) (*Repository, error) {
	if strings.Contains(uri, "://") || scpLikeURI.MatchString(uri) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotSupported, uri)
	}

	if len(uri) > 1 && uri[len(uri)-1] == os.PathSeparator {
		uri = uri[:len(uri)-1]
	}

	return OpenRepository(uri)
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// IsEmpty reports whether the repository has no commits yet.
func (r *Repository) IsEmpty() (bool, error) {
	empty, err := r.repo.IsEmpty()
	if err != nil {
		return false, fmt.Errorf("check empty: %w", err)
	}

	return empty, nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree: %w", err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// ChangedPaths returns the paths that differ between two trees. A nil
// oldTree yields every path of newTree.
func (r *Repository) ChangedPaths(oldTree, newTree *Tree) ([]string, error) {
	if oldTree == nil {
		return newTree.Paths()
	}

	if oldTree.Hash() == newTree.Hash() {
		return []string{}, nil
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	diff, err := r.repo.DiffTreeToTree(oldTree.tree, newTree.tree, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	defer diff.Free() //nolint:errcheck // nothing to recover on free.

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	paths := make([]string, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		switch delta.Status {
		case git2go.DeltaAdded, git2go.DeltaModified, git2go.DeltaTypeChange:
			paths = append(paths, delta.NewFile.Path)
		case git2go.DeltaDeleted:
			paths = append(paths, delta.OldFile.Path)
		case git2go.DeltaRenamed, git2go.DeltaCopied:
			paths = append(paths, delta.OldFile.Path, delta.NewFile.Path)
		case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
			git2go.DeltaUnreadable, git2go.DeltaConflicted:
			continue
		}
	}

	return paths, nil
}
