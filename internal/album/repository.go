package album

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/library"
)

// Repository provides audited CRUD and key-based lookup over albums.
type Repository struct {
	db    library.DBTX
	trail library.Auditor
}

// NewRepository constructs a repository bound to an audit trail for mutations.
func NewRepository(db library.DBTX, trail library.Auditor) *Repository {
	return &Repository{db: db, trail: trail}
}

// NewReader constructs a read-only repository.
func NewReader(db library.DBTX) *Repository {
	return &Repository{db: db}
}

const albumColumns = "id, title, album_artist, release_year, album_type"

// Insert stores a new album after checking the identity-key invariant.
func (r *Repository) Insert(ctx context.Context, a *Album) (int64, error) {
	if r.trail == nil {
		return 0, library.ErrNoBatch
	}
	if err := validateAlbum(a); err != nil {
		return 0, err
	}

	if existing, err := r.FindByKey(ctx, KeyOf(a)); err != nil {
		return 0, err
	} else if existing != nil {
		return 0, &library.NameConflictError{Name: KeyOf(a).String(), ConflictID: existing.ID}
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO albums (title, album_artist, release_year, album_type) VALUES (?, ?, ?, ?)`,
		a.Title, nullableArtist(a.AlbumArtist), nullableYear(a.ReleaseYear), a.Type,
	)
	if err != nil {
		return 0, fmt.Errorf("insert album: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id

	if err := r.trail.LogInsert(ctx, "albums", id, albumSnapshot(a)); err != nil {
		return 0, err
	}
	return id, nil
}

// FindByKey resolves the identity key to an album row, returning nil when no
// album carries the key.
func (r *Repository) FindByKey(ctx context.Context, key Key) (*Album, error) {
	key = key.normalized()
	if key.Title == "" {
		return nil, fmt.Errorf("%w: album title is required", library.ErrValidation)
	}
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+albumColumns+` FROM albums
         WHERE lower(title) = lower(?)
           AND ifnull(album_artist, '') = ?
           AND ifnull(release_year, -1) = ?`,
		key.Title, key.Artist, yearBucket(key.Year),
	)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find album by key: %w", err)
	}
	return a, nil
}

// GetOrCreate resolves the key to an existing album or creates one with the
// given default type. Reports whether a row was created.
func (r *Repository) GetOrCreate(ctx context.Context, key Key, defaultType string) (*Album, bool, error) {
	existing, err := r.FindByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	key = key.normalized()
	a := &Album{Title: key.Title, AlbumArtist: key.Artist, ReleaseYear: key.Year, Type: defaultType}
	if _, err := r.Insert(ctx, a); err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// Update persists changes to an album, re-checking the identity key against
// other rows. Returns false when the id no longer exists.
func (r *Repository) Update(ctx context.Context, a *Album) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	if a == nil || a.ID == 0 {
		return false, fmt.Errorf("%w: album id is required", library.ErrValidation)
	}
	if err := validateAlbum(a); err != nil {
		return false, err
	}

	before, err := r.Get(ctx, a.ID)
	if err != nil {
		return false, err
	}
	if before == nil {
		return false, nil
	}

	if other, err := r.FindByKey(ctx, KeyOf(a)); err != nil {
		return false, err
	} else if other != nil && other.ID != a.ID {
		return false, &library.NameConflictError{Name: KeyOf(a).String(), ConflictID: other.ID}
	}

	_, err = r.db.ExecContext(
		ctx,
		`UPDATE albums SET title = ?, album_artist = ?, release_year = ?, album_type = ? WHERE id = ?`,
		a.Title, nullableArtist(a.AlbumArtist), nullableYear(a.ReleaseYear), a.Type, a.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update album: %w", err)
	}
	if err := r.trail.LogUpdate(ctx, "albums", a.ID, albumSnapshot(before), albumSnapshot(a)); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes an album; song and publisher links cascade away with the
// row. Returns false when the id is unknown.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	before, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if before == nil {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete album: %w", err)
	}
	if err := r.trail.LogDelete(ctx, "albums", id, albumSnapshot(before)); err != nil {
		return false, err
	}
	return true, nil
}

// Get fetches an album by identifier, returning nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Album, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	return a, nil
}

// List returns all albums ordered by title, then artist and year.
func (r *Repository) List(ctx context.Context) ([]*Album, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+albumColumns+` FROM albums
         ORDER BY lower(title), ifnull(album_artist, ''), ifnull(release_year, -1)`,
	)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func validateAlbum(a *Album) error {
	if a == nil {
		return fmt.Errorf("%w: album is nil", library.ErrValidation)
	}
	key := KeyOf(a).normalized()
	a.Title = key.Title
	a.AlbumArtist = key.Artist
	if a.Title == "" {
		return fmt.Errorf("%w: album title is required", library.ErrValidation)
	}
	if a.Type == "" {
		a.Type = "album"
	}
	if !ValidType(a.Type) {
		return fmt.Errorf("%w: unknown album type %q", library.ErrValidation, a.Type)
	}
	return nil
}

func nullableArtist(artist string) any {
	if artist == "" {
		return nil
	}
	return artist
}

func nullableYear(year int) any {
	if year == 0 {
		return nil
	}
	return year
}

// yearBucket maps the in-memory "absent" year to the value the identity
// index stores for NULL.
func yearBucket(year int) int {
	if year == 0 {
		return -1
	}
	return year
}

func scanAlbum(scanner interface{ Scan(dest ...any) error }) (*Album, error) {
	var (
		id        int64
		title     string
		artist    sql.NullString
		year      sql.NullInt64
		albumType string
	)
	if err := scanner.Scan(&id, &title, &artist, &year, &albumType); err != nil {
		return nil, err
	}
	return &Album{
		ID:          id,
		Title:       title,
		AlbumArtist: artist.String,
		ReleaseYear: int(year.Int64),
		Type:        albumType,
	}, nil
}

func albumSnapshot(a *Album) map[string]any {
	return map[string]any{
		"title":        a.Title,
		"album_artist": a.AlbumArtist,
		"release_year": a.ReleaseYear,
		"album_type":   a.Type,
	}
}
