package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/library"
	"cadenza/internal/textutil"
)

// Aliases returns the aliases owned by a contributor.
func (r *Repository) Aliases(ctx context.Context, ownerID int64) ([]Alias, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, contributor_id, alias FROM contributor_aliases WHERE contributor_id = ? ORDER BY lower(alias)`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var alias Alias
		if err := rows.Scan(&alias.ID, &alias.ContributorID, &alias.Alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, alias)
	}
	return aliases, rows.Err()
}

// AddAlias attaches an alternate name to a contributor. Adding a text the
// owner already carries (as primary name or alias) is a no-op returning the
// existing alias id, or zero when the text equals the primary name.
func (r *Repository) AddAlias(ctx context.Context, ownerID int64, text string) (int64, error) {
	if r.trail == nil {
		return 0, library.ErrNoBatch
	}
	text = textutil.Display(text)
	if text == "" {
		return 0, fmt.Errorf("%w: alias text is required", library.ErrValidation)
	}

	owner, err := r.Get(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if owner == nil {
		return 0, fmt.Errorf("%w: contributor %d", library.ErrNotFound, ownerID)
	}
	if textutil.EqualFold(owner.Name, text) {
		return 0, nil
	}

	row := r.db.QueryRowContext(
		ctx,
		`SELECT id FROM contributor_aliases WHERE contributor_id = ? AND lower(alias) = lower(?)`,
		ownerID, text,
	)
	var existingID int64
	if err := row.Scan(&existingID); err == nil {
		return existingID, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("check alias: %w", err)
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO contributor_aliases (contributor_id, alias) VALUES (?, ?)`,
		ownerID, text,
	)
	if err != nil {
		return 0, fmt.Errorf("insert alias: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	if err := r.trail.LogInsert(ctx, "contributor_aliases", id, map[string]any{
		"contributor_id": ownerID,
		"alias":          text,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteAlias removes one alias row without touching the owner. Returns false
// when the alias id is unknown.
func (r *Repository) DeleteAlias(ctx context.Context, aliasID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	alias, err := r.getAlias(ctx, aliasID)
	if err != nil {
		return false, err
	}
	if alias == nil {
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM contributor_aliases WHERE id = ?`, aliasID); err != nil {
		return false, fmt.Errorf("delete alias: %w", err)
	}
	if err := r.trail.LogDelete(ctx, "contributor_aliases", aliasID, map[string]any{
		"contributor_id": alias.ContributorID,
		"alias":          alias.Alias,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// MoveAlias re-points one alias row from one owner to another without
// touching other aliases or credits. Returns false when the source owner
// carries no such alias; the target must exist.
func (r *Repository) MoveAlias(ctx context.Context, text string, fromID, toID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	if fromID == toID {
		return false, fmt.Errorf("%w: alias is already attached to contributor %d", library.ErrValidation, toID)
	}
	target, err := r.Get(ctx, toID)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, fmt.Errorf("%w: contributor %d", library.ErrNotFound, toID)
	}

	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, contributor_id, alias FROM contributor_aliases
         WHERE contributor_id = ? AND lower(alias) = lower(?)`,
		fromID, textutil.Display(text),
	)
	var alias Alias
	if err := row.Scan(&alias.ID, &alias.ContributorID, &alias.Alias); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("find alias: %w", err)
	}

	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE contributor_aliases SET contributor_id = ? WHERE id = ?`,
		toID, alias.ID,
	); err != nil {
		return false, fmt.Errorf("move alias: %w", err)
	}
	if err := r.trail.LogUpdate(ctx, "contributor_aliases", alias.ID,
		map[string]any{"contributor_id": fromID, "alias": alias.Alias},
		map[string]any{"contributor_id": toID, "alias": alias.Alias},
	); err != nil {
		return false, err
	}
	return true, nil
}

// PromoteAlias atomically swaps a contributor's primary name with one of its
// aliases. The contributor id never changes, so existing credit links stay
// valid; the old primary name takes the alias row's place.
func (r *Repository) PromoteAlias(ctx context.Context, ownerID, aliasID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	owner, err := r.Get(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if owner == nil {
		return false, fmt.Errorf("%w: contributor %d", library.ErrNotFound, ownerID)
	}

	alias, err := r.getAlias(ctx, aliasID)
	if err != nil {
		return false, err
	}
	if alias == nil || alias.ContributorID != ownerID {
		return false, fmt.Errorf("%w: alias %d does not belong to contributor %d", library.ErrValidation, aliasID, ownerID)
	}

	if conflictID, err := r.ValidateName(ctx, alias.Alias, owner.Kind, ownerID); err != nil {
		return false, err
	} else if conflictID != 0 {
		return false, &library.NameConflictError{Name: alias.Alias, ConflictID: conflictID}
	}

	promoted := *owner
	promoted.Name = alias.Alias
	promoted.SortName = textutil.SortName(alias.Alias)
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE contributors SET name = ?, sort_name = ? WHERE id = ?`,
		promoted.Name, promoted.SortName, ownerID,
	); err != nil {
		return false, fmt.Errorf("promote alias: %w", err)
	}
	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE contributor_aliases SET alias = ? WHERE id = ?`,
		owner.Name, aliasID,
	); err != nil {
		return false, fmt.Errorf("demote primary name: %w", err)
	}

	if err := r.trail.LogUpdate(ctx, "contributors", ownerID, contributorSnapshot(owner), contributorSnapshot(&promoted)); err != nil {
		return false, err
	}
	if err := r.trail.LogUpdate(ctx, "contributor_aliases", aliasID,
		map[string]any{"contributor_id": ownerID, "alias": alias.Alias},
		map[string]any{"contributor_id": ownerID, "alias": owner.Name},
	); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) getAlias(ctx context.Context, aliasID int64) (*Alias, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, contributor_id, alias FROM contributor_aliases WHERE id = ?`,
		aliasID,
	)
	var alias Alias
	if err := row.Scan(&alias.ID, &alias.ContributorID, &alias.Alias); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alias: %w", err)
	}
	return &alias, nil
}
