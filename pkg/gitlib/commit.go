package gitlib

import (
	"errors"
	"fmt"
	"io"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/codeatlas/pkg/safeconv"
)

// ErrParentNotFound is returned when the requested parent commit is not found.
var ErrParentNotFound = errors.New("parent commit not found")

// Signature represents a git signature (author/committer).
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author.
func (c *Commit) Author() Signature {
	sig := c.commit.Author()

	return Signature{
		Name:  sig.Name,
		Email: sig.Email,
		When:  sig.When,
	}
}

// Message returns the commit message.
func (c *Commit) Message() string {
	return c.commit.Message()
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return safeconv.MustUintToInt(c.commit.ParentCount())
}

// ParentHash returns the hash of the nth parent.
func (c *Commit) ParentHash(n int) Hash {
	return HashFromOid(c.commit.ParentId(safeconv.MustIntToUint(n)))
}

// Parent returns the nth parent commit.
func (c *Commit) Parent(n int) (*Commit, error) {
	parent := c.commit.Parent(safeconv.MustIntToUint(n))
	if parent == nil {
		return nil, ErrParentNotFound
	}

	return &Commit{commit: parent, repo: c.repo}, nil
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}

// CommitIter iterates over commits newest first.
type CommitIter struct {
	walk  *git2go.RevWalk
	repo  *Repository
	since *time.Time
}

// Next returns the next commit in the iteration, or io.EOF.
func (ci *CommitIter) Next() (*Commit, error) {
	if ci.walk == nil {
		return nil, io.EOF
	}

	for {
		oid := new(git2go.Oid)

		err := ci.walk.Next(oid)
		if err != nil {
			ci.Close()

			return nil, io.EOF
		}

		commit, err := ci.repo.repo.LookupCommit(oid)
		if err != nil {
			continue
		}

		if ci.since != nil && commit.Author().When.Before(*ci.since) {
			commit.Free()
			ci.Close()

			return nil, io.EOF
		}

		return &Commit{commit: commit, repo: ci.repo}, nil
	}
}

// Close releases resources.
func (ci *CommitIter) Close() {
	if ci.walk != nil {
		ci.walk.Free()
		ci.walk = nil
	}
}
