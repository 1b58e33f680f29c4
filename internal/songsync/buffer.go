package songsync

import (
	"fmt"

	"cadenza/internal/album"
	"cadenza/internal/identity"
	"cadenza/internal/library"
)

// AlbumRef names an album either by id or by its disambiguation key. Primary
// marks the song's primary album; at most one ref per buffer may carry it.
type AlbumRef struct {
	ID      int64
	Title   string
	Artist  string
	Year    int
	Primary bool
}

// Key returns the album lookup key for a title-form ref.
func (r AlbumRef) Key() album.Key {
	return album.Key{Title: r.Title, Artist: r.Artist, Year: r.Year}
}

// PublisherRef names a publisher either by id or by name.
type PublisherRef struct {
	ID   int64
	Name string
}

// Buffer is the edit-buffer snapshot Sync consumes. Every field is the
// complete target state: an empty slice clears the field. Values are kept as
// explicit lists end to end; nothing here splits strings on punctuation, so
// names containing commas or ampersands survive intact.
type Buffer struct {
	Performers []string
	Composers  []string
	Lyricists  []string
	Producers  []string

	// Tags holds "Category:Name" references.
	Tags []string

	Albums     []AlbumRef
	Publishers []PublisherRef

	// ApplyDefaultYear fills the configured default release year into album
	// refs that carry a title but no year.
	ApplyDefaultYear bool
}

// names returns the credit name list for one role.
func (b *Buffer) names(role identity.Role) []string {
	switch role {
	case identity.RolePerformer:
		return b.Performers
	case identity.RoleComposer:
		return b.Composers
	case identity.RoleLyricist:
		return b.Lyricists
	case identity.RoleProducer:
		return b.Producers
	}
	return nil
}

// Validate rejects buffers Sync could only apply partially.
func (b *Buffer) Validate() error {
	var primaries int
	for _, ref := range b.Albums {
		if ref.ID == 0 && ref.Title == "" {
			return fmt.Errorf("%w: album ref needs an id or a title", library.ErrValidation)
		}
		if ref.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return fmt.Errorf("%w: a song can have only one primary album", library.ErrValidation)
	}
	for _, ref := range b.Publishers {
		if ref.ID == 0 && ref.Name == "" {
			return fmt.Errorf("%w: publisher ref needs an id or a name", library.ErrValidation)
		}
	}
	return nil
}
