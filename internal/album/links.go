package album

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/library"
)

// Membership is one song-to-album edge with its primary flag.
type Membership struct {
	Album   *Album
	Primary bool
}

// AddSong links a song to an album, idempotently. When primary is set the
// edge becomes the song's primary album and any previous primary edge for
// that song is demoted.
func (r *Repository) AddSong(ctx context.Context, albumID, songID int64, primary bool) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	if err := r.requireAlbum(ctx, albumID); err != nil {
		return err
	}

	if primary {
		if err := r.demotePrimary(ctx, songID, albumID); err != nil {
			return err
		}
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO album_songs (album_id, song_id, is_primary) VALUES (?, ?, ?)
         ON CONFLICT (album_id, song_id) DO UPDATE SET is_primary = max(is_primary, excluded.is_primary)`,
		albumID, songID, boolInt(primary),
	)
	if err != nil {
		return fmt.Errorf("link song to album: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogInsert(ctx, "album_songs", 0, map[string]any{
		"album_id":   albumID,
		"song_id":    songID,
		"is_primary": primary,
	})
}

// RemoveSong unlinks a song from an album. Returns false when no edge existed.
func (r *Repository) RemoveSong(ctx context.Context, albumID, songID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM album_songs WHERE album_id = ? AND song_id = ?`,
		albumID, songID,
	)
	if err != nil {
		return false, fmt.Errorf("unlink song from album: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	if err := r.trail.LogDelete(ctx, "album_songs", 0, map[string]any{
		"album_id": albumID,
		"song_id":  songID,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// SetPrimary marks one of a song's albums as primary, demoting any previous
// primary edge. The song must already be linked to the album.
func (r *Repository) SetPrimary(ctx context.Context, songID, albumID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}

	var linked int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM album_songs WHERE album_id = ? AND song_id = ?`,
		albumID, songID,
	).Scan(&linked)
	if err != nil {
		return fmt.Errorf("check album link: %w", err)
	}
	if linked == 0 {
		return fmt.Errorf("%w: song %d is not on album %d", library.ErrNotFound, songID, albumID)
	}

	if err := r.demotePrimary(ctx, songID, albumID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE album_songs SET is_primary = 1 WHERE album_id = ? AND song_id = ?`,
		albumID, songID,
	); err != nil {
		return fmt.Errorf("set primary album: %w", err)
	}
	return r.trail.LogUpdate(ctx, "album_songs", 0,
		map[string]any{"song_id": songID},
		map[string]any{"song_id": songID, "primary_album_id": albumID},
	)
}

// ClearPrimary drops the song's primary flag from every album edge, leaving
// the song linked but with no primary album.
func (r *Repository) ClearPrimary(ctx context.Context, songID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE album_songs SET is_primary = 0 WHERE song_id = ? AND is_primary = 1`,
		songID,
	)
	if err != nil {
		return fmt.Errorf("clear primary album: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogUpdate(ctx, "album_songs", 0,
		map[string]any{"song_id": songID},
		map[string]any{"song_id": songID, "primary_album_id": nil},
	)
}

// demotePrimary clears the primary flag on every other album edge the song
// holds, so at most one edge per song carries it.
func (r *Repository) demotePrimary(ctx context.Context, songID, keepAlbumID int64) error {
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE album_songs SET is_primary = 0 WHERE song_id = ? AND album_id != ? AND is_primary = 1`,
		songID, keepAlbumID,
	); err != nil {
		return fmt.Errorf("demote primary album: %w", err)
	}
	return nil
}

// PrimaryAlbum returns the song's primary album, or nil when the song has no
// primary edge.
func (r *Repository) PrimaryAlbum(ctx context.Context, songID int64) (*Album, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT a.id, a.title, a.album_artist, a.release_year, a.album_type
         FROM album_songs s JOIN albums a ON a.id = s.album_id
         WHERE s.song_id = ? AND s.is_primary = 1`,
		songID,
	)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("primary album: %w", err)
	}
	return a, nil
}

// ForSong returns every album edge the song holds, primary first.
func (r *Repository) ForSong(ctx context.Context, songID int64) ([]Membership, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT a.id, a.title, a.album_artist, a.release_year, a.album_type, s.is_primary
         FROM album_songs s JOIN albums a ON a.id = s.album_id
         WHERE s.song_id = ?
         ORDER BY s.is_primary DESC, lower(a.title)`,
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("albums for song: %w", err)
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		var (
			a       Album
			artist  sql.NullString
			year    sql.NullInt64
			primary int
		)
		if err := rows.Scan(&a.ID, &a.Title, &artist, &year, &a.Type, &primary); err != nil {
			return nil, fmt.Errorf("scan album membership: %w", err)
		}
		a.AlbumArtist = artist.String
		a.ReleaseYear = int(year.Int64)
		memberships = append(memberships, Membership{Album: &a, Primary: primary != 0})
	}
	return memberships, rows.Err()
}

// SongIDs returns the ids of every song on the album in track order where
// known, then title order.
func (r *Repository) SongIDs(ctx context.Context, albumID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT s.id FROM album_songs l JOIN songs s ON s.id = l.song_id
         WHERE l.album_id = ?
         ORDER BY ifnull(s.track_no, 1000000), lower(s.title), s.id`,
		albumID,
	)
	if err != nil {
		return nil, fmt.Errorf("songs on album: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan song id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddPublisher links a publisher to the album, idempotently.
func (r *Repository) AddPublisher(ctx context.Context, albumID, publisherID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	if err := r.requireAlbum(ctx, albumID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO album_publishers (album_id, publisher_id) VALUES (?, ?)`,
		albumID, publisherID,
	)
	if err != nil {
		return fmt.Errorf("link publisher to album: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogInsert(ctx, "album_publishers", 0, map[string]any{
		"album_id":     albumID,
		"publisher_id": publisherID,
	})
}

// RemovePublisher unlinks a publisher from the album. Returns false when no
// edge existed.
func (r *Repository) RemovePublisher(ctx context.Context, albumID, publisherID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM album_publishers WHERE album_id = ? AND publisher_id = ?`,
		albumID, publisherID,
	)
	if err != nil {
		return false, fmt.Errorf("unlink publisher from album: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	if err := r.trail.LogDelete(ctx, "album_publishers", 0, map[string]any{
		"album_id":     albumID,
		"publisher_id": publisherID,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// PublisherIDs returns the ids of every publisher linked to the album.
func (r *Repository) PublisherIDs(ctx context.Context, albumID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT publisher_id FROM album_publishers WHERE album_id = ? ORDER BY publisher_id`,
		albumID,
	)
	if err != nil {
		return nil, fmt.Errorf("album publishers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan publisher id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) requireAlbum(ctx context.Context, albumID int64) error {
	a, err := r.Get(ctx, albumID)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: album %d", library.ErrNotFound, albumID)
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
