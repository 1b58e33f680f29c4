package tag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/library"
	"cadenza/internal/textutil"
)

// Tag is one categorized tag row.
type Tag struct {
	ID       int64
	Name     string
	Category string
}

// Ref returns the tag's textual reference form.
func (t *Tag) Ref() Ref {
	return Ref{Category: t.Category, Name: t.Name}
}

// Repository provides audited CRUD and merge over tags.
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

const tagColumns = "id, name, category"

// Get fetches a tag by identifier, returning nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// Find resolves a reference case-insensitively within its category,
// returning nil when no tag matches.
func (r *Repository) Find(ctx context.Context, ref Ref) (*Tag, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+tagColumns+` FROM tags WHERE lower(category) = lower(?) AND lower(name) = lower(?)`,
		textutil.Display(ref.Category), textutil.Display(ref.Name),
	)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return t, nil
}

// GetOrCreate resolves a reference to an existing tag or creates one,
// preserving the caller's display casing on creation. Reports whether a row
// was created.
func (r *Repository) GetOrCreate(ctx context.Context, ref Ref) (*Tag, bool, error) {
	existing, err := r.Find(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if r.trail == nil {
		return nil, false, library.ErrNoBatch
	}

	t := &Tag{Name: textutil.Display(ref.Name), Category: textutil.Display(ref.Category)}
	if t.Name == "" || t.Category == "" {
		return nil, false, fmt.Errorf("%w: tag needs both a category and a name", library.ErrValidation)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO tags (name, category) VALUES (?, ?)`, t.Name, t.Category)
	if err != nil {
		return nil, false, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id

	if err := r.trail.LogInsert(ctx, "tags", id, tagSnapshot(t)); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Rename changes a tag's name within its category. A collision with another
// tag is refused: collapsing two tags is Merge's job, never an implicit side
// effect of a rename.
func (r *Repository) Rename(ctx context.Context, id int64, newName string) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	newName = textutil.Display(newName)
	if newName == "" {
		return fmt.Errorf("%w: new name is required", library.ErrValidation)
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: tag %d", library.ErrNotFound, id)
	}
	if other, err := r.Find(ctx, Ref{Category: current.Category, Name: newName}); err != nil {
		return err
	} else if other != nil && other.ID != id {
		return &library.NameConflictError{Name: Ref{Category: current.Category, Name: newName}.String(), ConflictID: other.ID}
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE tags SET name = ? WHERE id = ?`, newName, id); err != nil {
		return fmt.Errorf("rename tag: %w", err)
	}
	updated := *current
	updated.Name = newName
	return r.trail.LogUpdate(ctx, "tags", id, tagSnapshot(current), tagSnapshot(&updated))
}

// Merge re-points every song link from the source tag to the target, drops
// links that would double up, and deletes the source row.
func (r *Repository) Merge(ctx context.Context, sourceID, targetID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	if sourceID == targetID {
		return fmt.Errorf("%w: cannot merge tag %d into itself", library.ErrValidation, sourceID)
	}
	source, err := r.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("%w: merge source tag %d", library.ErrNotFound, sourceID)
	}
	target, err := r.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: merge target tag %d", library.ErrNotFound, targetID)
	}

	res, err := r.db.ExecContext(
		ctx,
		`UPDATE OR IGNORE song_tags SET tag_id = ? WHERE tag_id = ?`,
		targetID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("move tag links: %w", err)
	}
	moved, _ := res.RowsAffected()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM song_tags WHERE tag_id = ?`, sourceID); err != nil {
		return fmt.Errorf("drop duplicate tag links: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete merged tag: %w", err)
	}

	snapshot := tagSnapshot(source)
	snapshot["merged_into"] = targetID
	snapshot["links_moved"] = moved
	return r.trail.LogDelete(ctx, "tags", sourceID, snapshot)
}

// AddToSong links a tag to a song, idempotently.
func (r *Repository) AddToSong(ctx context.Context, songID, tagID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO song_tags (song_id, tag_id) VALUES (?, ?)`,
		songID, tagID,
	)
	if err != nil {
		return fmt.Errorf("link tag to song: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogInsert(ctx, "song_tags", 0, map[string]any{
		"song_id": songID,
		"tag_id":  tagID,
	})
}

// RemoveFromSong unlinks a tag from a song. Returns false when no link
// existed.
func (r *Repository) RemoveFromSong(ctx context.Context, songID, tagID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM song_tags WHERE song_id = ? AND tag_id = ?`,
		songID, tagID,
	)
	if err != nil {
		return false, fmt.Errorf("unlink tag from song: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	if err := r.trail.LogDelete(ctx, "song_tags", 0, map[string]any{
		"song_id": songID,
		"tag_id":  tagID,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// ForSong returns every tag linked to the song, ordered by category then name.
func (r *Repository) ForSong(ctx context.Context, songID int64) ([]*Tag, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT t.id, t.name, t.category FROM song_tags l
         JOIN tags t ON t.id = l.tag_id
         WHERE l.song_id = ?
         ORDER BY lower(t.category), lower(t.name)`,
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("tags for song: %w", err)
	}
	defer rows.Close()
	return collectTags(rows)
}

// List returns every tag, optionally filtered to one category.
func (r *Repository) List(ctx context.Context, category string) ([]*Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags ORDER BY lower(category), lower(name)`
	args := []any{}
	if category != "" {
		query = `SELECT ` + tagColumns + ` FROM tags WHERE lower(category) = lower(?) ORDER BY lower(name)`
		args = append(args, textutil.Display(category))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]*Tag, error) {
	var tags []*Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func scanTag(scanner interface{ Scan(dest ...any) error }) (*Tag, error) {
	var t Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.Category); err != nil {
		return nil, err
	}
	return &t, nil
}

func tagSnapshot(t *Tag) map[string]any {
	return map[string]any{
		"name":     t.Name,
		"category": t.Category,
	}
}
