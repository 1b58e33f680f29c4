package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cadenza/internal/library"
	"cadenza/internal/textutil"
)

// Repository provides audited CRUD and graph operations over contributors.
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

const contributorColumns = "id, name, sort_name, kind"

// Insert stores a new contributor after checking the primary-name invariant.
func (r *Repository) Insert(ctx context.Context, c *Contributor) (int64, error) {
	if r.trail == nil {
		return 0, library.ErrNoBatch
	}
	if c == nil {
		return 0, fmt.Errorf("%w: contributor is nil", library.ErrValidation)
	}
	c.Name = textutil.Display(c.Name)
	if c.Name == "" {
		return 0, fmt.Errorf("%w: contributor name is required", library.ErrValidation)
	}
	if !c.Kind.Valid() {
		return 0, fmt.Errorf("%w: unknown contributor kind %q", library.ErrValidation, c.Kind)
	}
	if conflictID, err := r.ValidateName(ctx, c.Name, c.Kind, 0); err != nil {
		return 0, err
	} else if conflictID != 0 {
		return 0, &library.NameConflictError{Name: c.Name, ConflictID: conflictID}
	}
	if strings.TrimSpace(c.SortName) == "" {
		c.SortName = textutil.SortName(c.Name)
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO contributors (name, sort_name, kind) VALUES (?, ?, ?)`,
		c.Name, c.SortName, string(c.Kind),
	)
	if err != nil {
		return 0, fmt.Errorf("insert contributor: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id

	if err := r.trail.LogInsert(ctx, "contributors", id, contributorSnapshot(c)); err != nil {
		return 0, err
	}
	return id, nil
}

// Rename changes a contributor's primary name. A collision with another
// primary name of the same kind is surfaced as a NameConflictError carrying
// the colliding id; the engine never auto-resolves it. When keepAlias is set
// the old name is retained as an alias of the same identity.
func (r *Repository) Rename(ctx context.Context, id int64, newName string, keepAlias bool) error {
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
		return fmt.Errorf("%w: contributor %d", library.ErrNotFound, id)
	}

	if conflictID, err := r.ValidateName(ctx, newName, current.Kind, id); err != nil {
		return err
	} else if conflictID != 0 {
		return &library.NameConflictError{Name: newName, ConflictID: conflictID}
	}

	updated := *current
	updated.Name = newName
	updated.SortName = textutil.SortName(newName)
	_, err = r.db.ExecContext(
		ctx,
		`UPDATE contributors SET name = ?, sort_name = ? WHERE id = ?`,
		updated.Name, updated.SortName, id,
	)
	if err != nil {
		return fmt.Errorf("rename contributor: %w", err)
	}
	if err := r.trail.LogUpdate(ctx, "contributors", id, contributorSnapshot(current), contributorSnapshot(&updated)); err != nil {
		return err
	}

	if keepAlias && !textutil.EqualFold(current.Name, newName) {
		if _, err := r.AddAlias(ctx, id, current.Name); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a contributor, purging its song credits explicitly; aliases
// and membership edges go with the row. Returns false when the id is unknown.
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

	creditRes, err := r.db.ExecContext(ctx, `DELETE FROM song_credits WHERE contributor_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete contributor credits: %w", err)
	}
	credits, _ := creditRes.RowsAffected()
	if credits > 0 {
		if err := r.trail.LogDelete(ctx, "song_credits", 0, map[string]any{
			"contributor_id": id,
			"rows":           credits,
		}); err != nil {
			return false, err
		}
	}

	aliases, err := r.Aliases(ctx, id)
	if err != nil {
		return false, err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM contributors WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete contributor: %w", err)
	}

	snapshot := contributorSnapshot(current)
	aliasTexts := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		aliasTexts = append(aliasTexts, alias.Alias)
	}
	snapshot["aliases"] = aliasTexts
	if err := r.trail.LogDelete(ctx, "contributors", id, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// Get fetches a contributor by identifier, returning nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Contributor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contributorColumns+` FROM contributors WHERE id = ?`, id)
	c, err := scanContributor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contributor: %w", err)
	}
	return c, nil
}

// FindByName returns the contributor whose primary name matches
// case-insensitively, preferring a person when both kinds carry the name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Contributor, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+contributorColumns+` FROM contributors
         WHERE lower(name) = lower(?) ORDER BY kind = 'person' DESC, id LIMIT 1`,
		textutil.Display(name),
	)
	c, err := scanContributor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find contributor by name: %w", err)
	}
	return c, nil
}

// ResolveName maps a name string to a contributor: primary name match first,
// then alias match resolving to the alias owner. Returns nil when the name is
// unknown under both.
func (r *Repository) ResolveName(ctx context.Context, name string) (*Contributor, error) {
	c, err := r.FindByName(ctx, name)
	if err != nil || c != nil {
		return c, err
	}

	row := r.db.QueryRowContext(
		ctx,
		`SELECT c.id, c.name, c.sort_name, c.kind
         FROM contributor_aliases a
         JOIN contributors c ON c.id = a.contributor_id
         WHERE lower(a.alias) = lower(?) ORDER BY a.id LIMIT 1`,
		textutil.Display(name),
	)
	c, err = scanContributor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve contributor name: %w", err)
	}
	return c, nil
}

// GetOrCreate resolves a name through primary names and aliases, creating a
// contributor of the given kind when nothing matches. Reports whether a row
// was created.
func (r *Repository) GetOrCreate(ctx context.Context, name string, kind Kind) (*Contributor, bool, error) {
	existing, err := r.ResolveName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	c := &Contributor{Name: name, Kind: kind}
	if _, err := r.Insert(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// ValidateName checks a prospective primary name against all primary names of
// the same kind, excluding one id (the row being renamed). Returns the
// colliding id, or zero when the name is free. Aliases are not consulted;
// two contributors may share an alias.
func (r *Repository) ValidateName(ctx context.Context, name string, kind Kind, excludeID int64) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: unknown contributor kind %q", library.ErrValidation, kind)
	}
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id FROM contributors WHERE lower(name) = lower(?) AND kind = ? AND id != ?`,
		textutil.Display(name), string(kind), excludeID,
	)
	var conflictID int64
	err := row.Scan(&conflictID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("validate name: %w", err)
	}
	return conflictID, nil
}

// Search matches the query against primary names and aliases. The Source of
// each hit tells callers whether to annotate it as an alias.
func (r *Repository) Search(ctx context.Context, query string) ([]SearchHit, error) {
	pattern := "%" + textutil.Display(query) + "%"
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, name, kind, 'primary' AS source FROM contributors
         WHERE lower(name) LIKE lower(?)
         UNION ALL
         SELECT c.id, a.alias, c.kind, 'alias' FROM contributor_aliases a
         JOIN contributors c ON c.id = a.contributor_id
         WHERE lower(a.alias) LIKE lower(?)
         ORDER BY source DESC, name`,
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search contributors: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var (
			hit     SearchHit
			kindStr string
			source  string
		)
		if err := rows.Scan(&hit.ID, &hit.Name, &kindStr, &source); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hit.Kind = Kind(kindStr)
		hit.Source = HitSource(source)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func scanContributor(scanner interface{ Scan(dest ...any) error }) (*Contributor, error) {
	var (
		id       int64
		name     string
		sortName sql.NullString
		kindStr  string
	)
	if err := scanner.Scan(&id, &name, &sortName, &kindStr); err != nil {
		return nil, err
	}
	return &Contributor{
		ID:       id,
		Name:     name,
		SortName: sortName.String,
		Kind:     Kind(kindStr),
	}, nil
}

func contributorSnapshot(c *Contributor) map[string]any {
	return map[string]any{
		"name":      c.Name,
		"sort_name": c.SortName,
		"kind":      string(c.Kind),
	}
}
