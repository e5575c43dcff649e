// Package gitlib is a thin wrapper over libgit2 covering the read-only
// operations needed to replay a repository's history.
package gitlib

import (
	"encoding/hex"
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

const (
	// HashSize is the size of a SHA-1 hash in bytes.
	HashSize = 20
	// HashHexSize is the size of a hex-encoded SHA-1 hash.
	HashHexSize = 40
	// ShortHashSize is the abbreviated hash length shown to users.
	ShortHashSize = 7
)

// ErrInvalidHash is returned when a string is not a full hex object id.
var ErrInvalidHash = errors.New("invalid object hash")

// Hash represents a git object hash (SHA-1).
type Hash [HashSize]byte

// ParseHash decodes a 40 character hex string.
func ParseHash(hexStr string) (Hash, error) {
	var hash Hash

	if len(hexStr) != HashHexSize {
		return hash, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	_, err := hex.Decode(hash[:], []byte(hexStr))
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	return hash, nil
}

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	if oid == nil {
		return h
	}

	copy(h[:], oid[:])

	return h
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated hex form.
func (h Hash) Short() string {
	return h.String()[:ShortHashSize]
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts Hash back to libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}
