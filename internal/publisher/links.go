package publisher

import (
	"context"
	"fmt"

	"cadenza/internal/library"
)

// AddToSong links a publisher directly to a song, idempotently. A direct
// link is an override: it wins over album inheritance without touching the
// album's own publisher links.
func (r *Repository) AddToSong(ctx context.Context, songID, publisherID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	if err := r.requirePublisher(ctx, publisherID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO song_publishers (song_id, publisher_id) VALUES (?, ?)`,
		songID, publisherID,
	)
	if err != nil {
		return fmt.Errorf("link publisher to song: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogInsert(ctx, "song_publishers", 0, map[string]any{
		"song_id":      songID,
		"publisher_id": publisherID,
	})
}

// RemoveFromSong unlinks a direct song publisher. Returns false when no link
// existed.
func (r *Repository) RemoveFromSong(ctx context.Context, songID, publisherID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM song_publishers WHERE song_id = ? AND publisher_id = ?`,
		songID, publisherID,
	)
	if err != nil {
		return false, fmt.Errorf("unlink publisher from song: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	if err := r.trail.LogDelete(ctx, "song_publishers", 0, map[string]any{
		"song_id":      songID,
		"publisher_id": publisherID,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// ForSong returns the publishers directly linked to the song, ordered by name.
func (r *Repository) ForSong(ctx context.Context, songID int64) ([]*Publisher, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT p.id, p.name, p.parent_id FROM song_publishers l
         JOIN publishers p ON p.id = l.publisher_id
         WHERE l.song_id = ?
         ORDER BY lower(p.name)`,
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("publishers for song: %w", err)
	}
	defer rows.Close()
	return collectPublishers(rows)
}

// EffectiveForSong resolves the song's effective publishers: its direct links
// when any exist, otherwise the publishers of its primary album. An empty
// result means neither level carries an attribution.
func (r *Repository) EffectiveForSong(ctx context.Context, songID int64) ([]*Publisher, bool, error) {
	direct, err := r.ForSong(ctx, songID)
	if err != nil {
		return nil, false, err
	}
	if len(direct) > 0 {
		return direct, false, nil
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT p.id, p.name, p.parent_id FROM album_songs s
         JOIN album_publishers ap ON ap.album_id = s.album_id
         JOIN publishers p ON p.id = ap.publisher_id
         WHERE s.song_id = ? AND s.is_primary = 1
         ORDER BY lower(p.name)`,
		songID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inherited publishers: %w", err)
	}
	defer rows.Close()

	inherited, err := collectPublishers(rows)
	if err != nil {
		return nil, false, err
	}
	return inherited, len(inherited) > 0, nil
}
