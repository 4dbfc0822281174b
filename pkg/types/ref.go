package types

import (
	"errors"
	"strings"
)

// Ref identifies an entity by kind and ID. The pair is globally unique
// and immutable once assigned.
type Ref struct {
	Kind string `json:"kind" yaml:"kind"`
	ID   string `json:"id" yaml:"id"`
}

// ErrInvalidRef indicates a malformed or empty entity reference.
var ErrInvalidRef = errors.New("invalid entity reference")

// String renders the reference in "kind:id" form, the canonical textual
// encoding used by the CLI and the document format.
func (r Ref) String() string {
	return r.Kind + ":" + r.ID
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// ParseRef parses a "kind:id" string into a Ref. The ID may itself
// contain colons; only the first colon separates kind from ID.
func ParseRef(s string) (Ref, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || kind == "" || id == "" {
		return Ref{}, ErrInvalidRef
	}
	return Ref{Kind: kind, ID: id}, nil
}
