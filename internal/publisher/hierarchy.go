package publisher

import (
	"context"
	"fmt"

	"cadenza/internal/library"
)

// SetParent re-parents a publisher, or detaches it when parentID is zero.
// The move is refused when it would close a cycle, including the degenerate
// self-parent case.
func (r *Repository) SetParent(ctx context.Context, id, parentID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: publisher %d", library.ErrNotFound, id)
	}

	if parentID != 0 {
		if err := r.requirePublisher(ctx, parentID); err != nil {
			return err
		}
		cycle, err := r.WouldCreateCycle(ctx, id, parentID)
		if err != nil {
			return err
		}
		if cycle {
			return fmt.Errorf("%w: publisher %d is a descendant of %d", library.ErrCycle, parentID, id)
		}
	}

	if _, err := r.db.ExecContext(
		ctx,
		`UPDATE publishers SET parent_id = ? WHERE id = ?`,
		nullableParent(parentID), id,
	); err != nil {
		return fmt.Errorf("set publisher parent: %w", err)
	}

	updated := *current
	updated.ParentID = parentID
	return r.trail.LogUpdate(ctx, "publishers", id, publisherSnapshot(current), publisherSnapshot(&updated))
}

// AddChild attaches childID under parentID. It is SetParent viewed from the
// parent's side and shares its cycle guard.
func (r *Repository) AddChild(ctx context.Context, parentID, childID int64) error {
	return r.SetParent(ctx, childID, parentID)
}

// WouldCreateCycle reports whether parenting id under candidateParent closes
// a cycle: true when the candidate is id itself or one of id's descendants,
// determined by walking the candidate's ancestor chain.
func (r *Repository) WouldCreateCycle(ctx context.Context, id, candidateParent int64) (bool, error) {
	if candidateParent == id {
		return true, nil
	}
	ancestors, err := r.Ancestors(ctx, candidateParent)
	if err != nil {
		return false, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Ancestors walks the parent chain from the given publisher upward, nearest
// first. The walk is bounded by the table size so a corrupted chain cannot
// loop forever.
func (r *Repository) Ancestors(ctx context.Context, id int64) ([]*Publisher, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: publisher %d", library.ErrNotFound, id)
	}

	seen := map[int64]bool{id: true}
	var chain []*Publisher
	for current.ParentID != 0 {
		parent, err := r.Get(ctx, current.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		current = parent
	}
	return chain, nil
}

// Children returns the direct children of a publisher ordered by name.
func (r *Repository) Children(ctx context.Context, id int64) ([]*Publisher, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+publisherColumns+` FROM publishers WHERE parent_id = ? ORDER BY lower(name)`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("publisher children: %w", err)
	}
	defer rows.Close()
	return collectPublishers(rows)
}

// Roots returns every publisher without a parent, ordered by name.
func (r *Repository) Roots(ctx context.Context) ([]*Publisher, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+publisherColumns+` FROM publishers WHERE parent_id IS NULL ORDER BY lower(name)`,
	)
	if err != nil {
		return nil, fmt.Errorf("publisher roots: %w", err)
	}
	defer rows.Close()
	return collectPublishers(rows)
}
