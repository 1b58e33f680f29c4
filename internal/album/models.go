package album

import (
	"fmt"
	"strings"

	"cadenza/internal/textutil"
)

// Album is one release. AlbumArtist and ReleaseYear are optional; an empty
// artist or zero year is stored as NULL and participates in the identity key
// as "absent".
type Album struct {
	ID          int64
	Title       string
	AlbumArtist string
	ReleaseYear int
	Type        string
}

// Key is the disambiguation key an album is looked up by. Title matching is
// case-insensitive; Artist and Year match exactly, with the empty string and
// zero standing for "absent".
type Key struct {
	Title  string
	Artist string
	Year   int
}

// KeyOf extracts the identity key from an album row.
func KeyOf(a *Album) Key {
	return Key{Title: a.Title, Artist: a.AlbumArtist, Year: a.ReleaseYear}
}

func (k Key) String() string {
	parts := []string{k.Title}
	if k.Artist != "" {
		parts = append(parts, k.Artist)
	}
	if k.Year != 0 {
		parts = append(parts, fmt.Sprintf("%d", k.Year))
	}
	return strings.Join(parts, " / ")
}

func (k Key) normalized() Key {
	k.Title = textutil.Display(k.Title)
	k.Artist = textutil.Display(k.Artist)
	return k
}

// Types an album row may carry. The default comes from configuration.
var Types = []string{"album", "single", "ep", "compilation", "soundtrack"}

// ValidType reports whether the given album type is one the schema accepts.
func ValidType(albumType string) bool {
	for _, t := range Types {
		if t == albumType {
			return true
		}
	}
	return false
}
