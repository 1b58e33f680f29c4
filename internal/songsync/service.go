package songsync

import (
	"context"
	"fmt"
	"log/slog"

	"cadenza/internal/album"
	"cadenza/internal/audit"
	"cadenza/internal/config"
	"cadenza/internal/identity"
	"cadenza/internal/library"
	"cadenza/internal/logging"
	"cadenza/internal/publisher"
	"cadenza/internal/tag"
)

// Service applies edit buffers to songs. The role table and library defaults
// are fixed at construction; the service itself is stateless across calls.
type Service struct {
	logger             *slog.Logger
	roles              []identity.Role
	defaultAlbumType   string
	defaultReleaseYear int
}

// NewService builds a sync service from configuration.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	albumType := cfg.Library.DefaultAlbumType
	if albumType == "" {
		albumType = "album"
	}
	return &Service{
		logger:             logger.With(logging.FieldComponent, "songsync"),
		roles:              identity.Roles(),
		defaultAlbumType:   albumType,
		defaultReleaseYear: cfg.Library.DefaultReleaseYear,
	}
}

// Sync makes the song's link tables mirror the buffer, inside the caller's
// unit of work. Any resolution or persistence failure propagates to the
// caller, whose rollback discards all partial link state.
func (s *Service) Sync(ctx context.Context, unit *audit.Unit, songID int64, buf Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	db := unit.Tx()
	trail := unit.Trail()

	song, err := library.NewSongReader(db).Get(ctx, songID)
	if err != nil {
		return err
	}
	if song == nil {
		return fmt.Errorf("%w: song %d", library.ErrNotFound, songID)
	}

	logger := s.logger.With(
		logging.FieldSongID, songID,
		logging.FieldBatchID, unit.BatchID(),
	)

	identities := identity.NewRepository(db, trail)
	for _, role := range s.roles {
		if err := s.syncCredits(ctx, identities, songID, role, buf.names(role)); err != nil {
			return fmt.Errorf("sync %s credits: %w", role, err)
		}
	}
	if err := s.syncTags(ctx, tag.NewRepository(db, trail), songID, buf.Tags); err != nil {
		return fmt.Errorf("sync tags: %w", err)
	}
	if err := s.syncAlbums(ctx, album.NewRepository(db, trail), songID, buf.Albums, buf.ApplyDefaultYear); err != nil {
		return fmt.Errorf("sync albums: %w", err)
	}
	if err := s.syncPublishers(ctx, publisher.NewRepository(db, trail), songID, buf.Publishers); err != nil {
		return fmt.Errorf("sync publishers: %w", err)
	}

	logger.Info("song synchronized", "title", song.Title)
	return nil
}

// syncCredits resolves each name to a contributor (get-or-create, persons by
// default) and diffs the role's credit set.
func (s *Service) syncCredits(ctx context.Context, identities *identity.Repository, songID int64, role identity.Role, names []string) error {
	target := make(map[int64]bool, len(names))
	for _, name := range names {
		c, created, err := identities.GetOrCreate(ctx, name, identity.KindPerson)
		if err != nil {
			return err
		}
		if created {
			s.logger.Debug("created contributor", "name", c.Name, logging.FieldSongID, songID)
		}
		target[c.ID] = true
	}

	current, err := identities.Credited(ctx, songID, role)
	if err != nil {
		return err
	}
	for _, c := range current {
		if target[c.ID] {
			delete(target, c.ID)
			continue
		}
		if _, err := identities.RemoveCredit(ctx, songID, c.ID, role); err != nil {
			return err
		}
	}
	for id := range target {
		if err := identities.AddCredit(ctx, songID, id, role); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncTags(ctx context.Context, tags *tag.Repository, songID int64, refs []string) error {
	target := make(map[int64]bool, len(refs))
	for _, raw := range refs {
		ref, err := tag.ParseRef(raw)
		if err != nil {
			return err
		}
		t, _, err := tags.GetOrCreate(ctx, ref)
		if err != nil {
			return err
		}
		target[t.ID] = true
	}

	current, err := tags.ForSong(ctx, songID)
	if err != nil {
		return err
	}
	for _, t := range current {
		if target[t.ID] {
			delete(target, t.ID)
			continue
		}
		if _, err := tags.RemoveFromSong(ctx, songID, t.ID); err != nil {
			return err
		}
	}
	for id := range target {
		if err := tags.AddToSong(ctx, songID, id); err != nil {
			return err
		}
	}
	return nil
}

// syncAlbums snapshot-replaces the song's album edges. Refs resolve by id
// when given, otherwise by disambiguation key with get-or-create. A year-less
// key stays in the NULL-year bucket unless the buffer opted into the
// configured default.
func (s *Service) syncAlbums(ctx context.Context, albums *album.Repository, songID int64, refs []AlbumRef, applyDefaultYear bool) error {
	type targetEdge struct {
		primary bool
	}
	target := make(map[int64]targetEdge, len(refs))
	for _, ref := range refs {
		id := ref.ID
		if id == 0 {
			key := ref.Key()
			if key.Year == 0 && applyDefaultYear && s.defaultReleaseYear != 0 {
				key.Year = s.defaultReleaseYear
			}
			a, created, err := albums.GetOrCreate(ctx, key, s.defaultAlbumType)
			if err != nil {
				return err
			}
			if created {
				s.logger.Debug("created album", "title", a.Title, logging.FieldSongID, songID)
			}
			id = a.ID
		} else if a, err := albums.Get(ctx, id); err != nil {
			return err
		} else if a == nil {
			return fmt.Errorf("%w: album %d", library.ErrNotFound, id)
		}
		edge := target[id]
		edge.primary = edge.primary || ref.Primary
		target[id] = edge
	}

	current, err := albums.ForSong(ctx, songID)
	if err != nil {
		return err
	}
	for _, m := range current {
		edge, wanted := target[m.Album.ID]
		if !wanted {
			if _, err := albums.RemoveSong(ctx, m.Album.ID, songID); err != nil {
				return err
			}
			continue
		}
		if edge.primary && !m.Primary {
			if err := albums.SetPrimary(ctx, songID, m.Album.ID); err != nil {
				return err
			}
		} else if !edge.primary && m.Primary {
			if err := albums.ClearPrimary(ctx, songID); err != nil {
				return err
			}
		}
		delete(target, m.Album.ID)
	}
	for id, edge := range target {
		if err := albums.AddSong(ctx, id, songID, edge.primary); err != nil {
			return err
		}
	}
	return nil
}

// syncPublishers snapshot-replaces the song's direct publisher overrides.
// Album-level attributions are never touched here; inheritance is a read-time
// concern.
func (s *Service) syncPublishers(ctx context.Context, publishers *publisher.Repository, songID int64, refs []PublisherRef) error {
	target := make(map[int64]bool, len(refs))
	for _, ref := range refs {
		id := ref.ID
		if id == 0 {
			p, created, err := publishers.GetOrCreate(ctx, ref.Name)
			if err != nil {
				return err
			}
			if created {
				s.logger.Debug("created publisher", "name", p.Name, logging.FieldSongID, songID)
			}
			id = p.ID
		} else if p, err := publishers.Get(ctx, id); err != nil {
			return err
		} else if p == nil {
			return fmt.Errorf("%w: publisher %d", library.ErrNotFound, id)
		}
		target[id] = true
	}

	current, err := publishers.ForSong(ctx, songID)
	if err != nil {
		return err
	}
	for _, p := range current {
		if target[p.ID] {
			delete(target, p.ID)
			continue
		}
		if _, err := publishers.RemoveFromSong(ctx, songID, p.ID); err != nil {
			return err
		}
	}
	for id := range target {
		if err := publishers.AddToSong(ctx, songID, id); err != nil {
			return err
		}
	}
	return nil
}
