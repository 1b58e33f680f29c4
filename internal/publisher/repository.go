package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/library"
	"cadenza/internal/textutil"
)

// Publisher is one label. ParentID is zero for roots.
type Publisher struct {
	ID       int64
	Name     string
	ParentID int64
}

// Repository provides audited CRUD and hierarchy operations over publishers.
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

const publisherColumns = "id, name, parent_id"

// Insert stores a new publisher after checking the name invariant. A non-zero
// ParentID must reference an existing row.
func (r *Repository) Insert(ctx context.Context, p *Publisher) (int64, error) {
	if r.trail == nil {
		return 0, library.ErrNoBatch
	}
	if p == nil {
		return 0, fmt.Errorf("%w: publisher is nil", library.ErrValidation)
	}
	p.Name = textutil.Display(p.Name)
	if p.Name == "" {
		return 0, fmt.Errorf("%w: publisher name is required", library.ErrValidation)
	}
	if existing, err := r.FindByName(ctx, p.Name); err != nil {
		return 0, err
	} else if existing != nil {
		return 0, &library.NameConflictError{Name: p.Name, ConflictID: existing.ID}
	}
	if p.ParentID != 0 {
		if err := r.requirePublisher(ctx, p.ParentID); err != nil {
			return 0, err
		}
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO publishers (name, parent_id) VALUES (?, ?)`,
		p.Name, nullableParent(p.ParentID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert publisher: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id

	if err := r.trail.LogInsert(ctx, "publishers", id, publisherSnapshot(p)); err != nil {
		return 0, err
	}
	return id, nil
}

// Rename changes a publisher's name, refusing case-insensitive collisions.
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
		return fmt.Errorf("%w: publisher %d", library.ErrNotFound, id)
	}
	if other, err := r.FindByName(ctx, newName); err != nil {
		return err
	} else if other != nil && other.ID != id {
		return &library.NameConflictError{Name: newName, ConflictID: other.ID}
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE publishers SET name = ? WHERE id = ?`, newName, id); err != nil {
		return fmt.Errorf("rename publisher: %w", err)
	}
	updated := *current
	updated.Name = newName
	return r.trail.LogUpdate(ctx, "publishers", id, publisherSnapshot(current), publisherSnapshot(&updated))
}

// Delete removes a publisher. Its children are re-parented to the deleted
// row's own parent so the forest stays connected; album and song links
// cascade away. Returns false when the id is unknown.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}

	res, err := r.db.ExecContext(
		ctx,
		`UPDATE publishers SET parent_id = ? WHERE parent_id = ?`,
		nullableParent(current.ParentID), id,
	)
	if err != nil {
		return false, fmt.Errorf("reparent children: %w", err)
	}
	reparented, _ := res.RowsAffected()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM publishers WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete publisher: %w", err)
	}

	snapshot := publisherSnapshot(current)
	snapshot["children_reparented"] = reparented
	if err := r.trail.LogDelete(ctx, "publishers", id, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// Get fetches a publisher by identifier, returning nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Publisher, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+publisherColumns+` FROM publishers WHERE id = ?`, id)
	p, err := scanPublisher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get publisher: %w", err)
	}
	return p, nil
}

// FindByName resolves a name case-insensitively, returning nil when unknown.
func (r *Repository) FindByName(ctx context.Context, name string) (*Publisher, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+publisherColumns+` FROM publishers WHERE lower(name) = lower(?)`,
		textutil.Display(name),
	)
	p, err := scanPublisher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find publisher by name: %w", err)
	}
	return p, nil
}

// GetOrCreate resolves a name to an existing publisher or creates a new root.
// Reports whether a row was created.
func (r *Repository) GetOrCreate(ctx context.Context, name string) (*Publisher, bool, error) {
	existing, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	p := &Publisher{Name: name}
	if _, err := r.Insert(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// List returns every publisher ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Publisher, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+publisherColumns+` FROM publishers ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	defer rows.Close()
	return collectPublishers(rows)
}

func (r *Repository) requirePublisher(ctx context.Context, id int64) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: publisher %d", library.ErrNotFound, id)
	}
	return nil
}

func collectPublishers(rows *sql.Rows) ([]*Publisher, error) {
	var publishers []*Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, p)
	}
	return publishers, rows.Err()
}

func scanPublisher(scanner interface{ Scan(dest ...any) error }) (*Publisher, error) {
	var (
		id     int64
		name   string
		parent sql.NullInt64
	)
	if err := scanner.Scan(&id, &name, &parent); err != nil {
		return nil, err
	}
	return &Publisher{ID: id, Name: name, ParentID: parent.Int64}, nil
}

func nullableParent(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func publisherSnapshot(p *Publisher) map[string]any {
	return map[string]any{
		"name":      p.Name,
		"parent_id": p.ParentID,
	}
}
