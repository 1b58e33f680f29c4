package songsync

import (
	"context"
	"fmt"

	"cadenza/internal/album"
	"cadenza/internal/identity"
	"cadenza/internal/library"
	"cadenza/internal/publisher"
	"cadenza/internal/tag"
)

// View is the denormalized read model of one song: the row plus every link
// family the edit buffer covers, with publisher inheritance already applied.
type View struct {
	Song    *library.Song
	Credits map[identity.Role][]*identity.Contributor
	Albums  []album.Membership
	Tags    []*tag.Tag

	// Publishers is the effective attribution; Inherited marks it as coming
	// from the primary album rather than a direct song link.
	Publishers []*publisher.Publisher
	Inherited  bool
}

// Load assembles the view for one song. Returns ErrNotFound when the song
// does not exist.
func Load(ctx context.Context, db library.DBTX, songID int64) (*View, error) {
	song, err := library.NewSongReader(db).Get(ctx, songID)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, fmt.Errorf("%w: song %d", library.ErrNotFound, songID)
	}

	view := &View{
		Song:    song,
		Credits: make(map[identity.Role][]*identity.Contributor),
	}

	identities := identity.NewReader(db)
	for _, role := range identity.Roles() {
		credited, err := identities.Credited(ctx, songID, role)
		if err != nil {
			return nil, err
		}
		if len(credited) > 0 {
			view.Credits[role] = credited
		}
	}

	if view.Albums, err = album.NewReader(db).ForSong(ctx, songID); err != nil {
		return nil, err
	}
	if view.Tags, err = tag.NewReader(db).ForSong(ctx, songID); err != nil {
		return nil, err
	}
	if view.Publishers, view.Inherited, err = publisher.NewReader(db).EffectiveForSong(ctx, songID); err != nil {
		return nil, err
	}
	return view, nil
}
