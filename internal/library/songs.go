package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Song is the anchor row every credit, album, publisher, and tag edge hangs
// off. The denormalized edit-buffer view of these fields lives in the
// songsync package; this row stores only the song's own attributes.
type Song struct {
	ID         int64
	Title      string
	TrackNo    int
	SourcePath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SongRepository provides audited CRUD over song rows.
type SongRepository struct {
	db    DBTX
	trail Auditor
}

// NewSongRepository constructs a repository bound to an audit trail for mutations.
func NewSongRepository(db DBTX, trail Auditor) *SongRepository {
	return &SongRepository{db: db, trail: trail}
}

// NewSongReader constructs a read-only repository.
func NewSongReader(db DBTX) *SongRepository {
	return &SongRepository{db: db}
}

const songColumns = "id, title, track_no, source_path, created_at, updated_at"

// Insert stores a new song and returns its id.
func (r *SongRepository) Insert(ctx context.Context, song *Song) (int64, error) {
	if r.trail == nil {
		return 0, ErrNoBatch
	}
	if song == nil || strings.TrimSpace(song.Title) == "" {
		return 0, fmt.Errorf("%w: song title is required", ErrValidation)
	}

	now := time.Now().UTC()
	song.CreatedAt = now
	song.UpdatedAt = now
	timestamp := now.Format(time.RFC3339Nano)

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO songs (title, track_no, source_path, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		song.Title,
		nullableInt(song.TrackNo),
		nullableString(song.SourcePath),
		timestamp,
		timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert song: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	song.ID = id

	if err := r.trail.LogInsert(ctx, "songs", id, songSnapshot(song)); err != nil {
		return 0, err
	}
	return id, nil
}

// Update persists changes to an existing song. Returns false when the id no
// longer exists.
func (r *SongRepository) Update(ctx context.Context, song *Song) (bool, error) {
	if r.trail == nil {
		return false, ErrNoBatch
	}
	if song == nil || song.ID == 0 {
		return false, fmt.Errorf("%w: song id is required", ErrValidation)
	}
	if strings.TrimSpace(song.Title) == "" {
		return false, fmt.Errorf("%w: song title is required", ErrValidation)
	}

	before, err := r.Get(ctx, song.ID)
	if err != nil {
		return false, err
	}
	if before == nil {
		return false, nil
	}

	song.UpdatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(
		ctx,
		`UPDATE songs SET title = ?, track_no = ?, source_path = ?, updated_at = ? WHERE id = ?`,
		song.Title,
		nullableInt(song.TrackNo),
		nullableString(song.SourcePath),
		song.UpdatedAt.Format(time.RFC3339Nano),
		song.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update song: %w", err)
	}

	if err := r.trail.LogUpdate(ctx, "songs", song.ID, songSnapshot(before), songSnapshot(song)); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a song. Link edges cascade away with the row; the audit
// record keeps the destroyed snapshot. Returns false when the id is unknown.
func (r *SongRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if r.trail == nil {
		return false, ErrNoBatch
	}

	before, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if before == nil {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete song: %w", err)
	}
	if err := r.trail.LogDelete(ctx, "songs", id, songSnapshot(before)); err != nil {
		return false, err
	}
	return true, nil
}

// Get fetches a song by identifier, returning nil when absent.
func (r *SongRepository) Get(ctx context.Context, id int64) (*Song, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	return song, nil
}

// List returns all songs ordered by title.
func (r *SongRepository) List(ctx context.Context) ([]*Song, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY lower(title), id`)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	var songs []*Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func scanSong(scanner interface{ Scan(dest ...any) error }) (*Song, error) {
	var (
		id         int64
		title      string
		trackNo    sql.NullInt64
		sourcePath sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &title, &trackNo, &sourcePath, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	song := &Song{
		ID:         id,
		Title:      title,
		TrackNo:    int(trackNo.Int64),
		SourcePath: sourcePath.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		song.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		song.UpdatedAt = updated
	}
	return song, nil
}

func songSnapshot(song *Song) map[string]any {
	return map[string]any{
		"title":       song.Title,
		"track_no":    song.TrackNo,
		"source_path": song.SourcePath,
	}
}
