package identity

import (
	"fmt"

	"cadenza/internal/library"
)

// Kind distinguishes people from groups. The set is closed: persistence and
// membership validation switch over it exhaustively.
type Kind string

const (
	KindPerson Kind = "person"
	KindGroup  Kind = "group"
)

// Valid reports whether the kind is one of the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindPerson, KindGroup:
		return true
	}
	return false
}

// ParseKind converts external input to a Kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(value)
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown contributor kind %q", library.ErrValidation, value)
	}
	return kind, nil
}

// Contributor is one identity.
type Contributor struct {
	ID       int64
	Name     string
	SortName string
	Kind     Kind
}

// Alias is an alternate name attached to a contributor, independently
// addressable so it can be moved or promoted without touching the owner row.
type Alias struct {
	ID            int64
	ContributorID int64
	Alias         string
}

// HitSource distinguishes primary-name search hits from alias hits.
type HitSource string

const (
	SourcePrimary HitSource = "primary"
	SourceAlias   HitSource = "alias"
)

// SearchHit is one row of a Search result.
type SearchHit struct {
	ID     int64
	Name   string
	Kind   Kind
	Source HitSource
}
