package identity

import (
	"context"
	"fmt"

	"cadenza/internal/library"
)

// Merge retires the source identity into the target: song credits and
// membership edges move over, the source's aliases follow, the source's
// primary name becomes a new alias of the target (unless suppressed), and the
// source row is deleted. The caller must run Merge inside one unit of work so
// a failure at any step rolls the whole merge back; a half-merged identity is
// never an acceptable outcome.
func (r *Repository) Merge(ctx context.Context, sourceID, targetID int64, createAlias bool) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	if sourceID == targetID {
		return fmt.Errorf("%w: cannot merge contributor %d into itself", library.ErrValidation, sourceID)
	}

	source, err := r.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("%w: merge source %d", library.ErrNotFound, sourceID)
	}
	target, err := r.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: merge target %d", library.ErrNotFound, targetID)
	}

	if err := r.moveCredits(ctx, sourceID, targetID); err != nil {
		return err
	}
	if err := r.moveMemberships(ctx, source, target); err != nil {
		return err
	}
	if err := r.moveAliases(ctx, source, target); err != nil {
		return err
	}

	if createAlias {
		if _, err := r.AddAlias(ctx, targetID, source.Name); err != nil {
			return err
		}
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM contributors WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete merged contributor: %w", err)
	}
	snapshot := contributorSnapshot(source)
	snapshot["merged_into"] = targetID
	return r.trail.LogDelete(ctx, "contributors", sourceID, snapshot)
}

// moveCredits re-points song credits, dropping any that would duplicate a
// credit the target already holds on the same song and role.
func (r *Repository) moveCredits(ctx context.Context, sourceID, targetID int64) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE OR IGNORE song_credits SET contributor_id = ? WHERE contributor_id = ?`,
		targetID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("move credits: %w", err)
	}
	moved, _ := res.RowsAffected()

	dupRes, err := r.db.ExecContext(ctx, `DELETE FROM song_credits WHERE contributor_id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("drop duplicate credits: %w", err)
	}
	dropped, _ := dupRes.RowsAffected()

	if moved == 0 && dropped == 0 {
		return nil
	}
	return r.trail.LogUpdate(ctx, "song_credits", 0,
		map[string]any{"contributor_id": sourceID},
		map[string]any{"contributor_id": targetID, "moved": moved, "duplicates_dropped": dropped},
	)
}

// moveMemberships carries group edges across, in both roles the source may
// hold, skipping edges the target already has. Kinds must match for an edge
// to move; person-into-group validation elsewhere keeps self edges impossible.
func (r *Repository) moveMemberships(ctx context.Context, source, target *Contributor) error {
	var moved int64

	if source.Kind == KindGroup && target.Kind == KindGroup {
		res, err := r.db.ExecContext(
			ctx,
			`UPDATE OR IGNORE contributor_members SET group_id = ? WHERE group_id = ?`,
			target.ID, source.ID,
		)
		if err != nil {
			return fmt.Errorf("move group memberships: %w", err)
		}
		count, _ := res.RowsAffected()
		moved += count
	}
	if source.Kind == KindPerson && target.Kind == KindPerson {
		res, err := r.db.ExecContext(
			ctx,
			`UPDATE OR IGNORE contributor_members SET person_id = ? WHERE person_id = ?`,
			target.ID, source.ID,
		)
		if err != nil {
			return fmt.Errorf("move person memberships: %w", err)
		}
		count, _ := res.RowsAffected()
		moved += count
	}

	// Edges that could not move (kind mismatch or duplicates) disappear with
	// the source row; record what was left behind.
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM contributor_members WHERE group_id = ? OR person_id = ?`,
		source.ID, source.ID,
	)
	if err != nil {
		return fmt.Errorf("drop stale memberships: %w", err)
	}
	dropped, _ := res.RowsAffected()

	if moved == 0 && dropped == 0 {
		return nil
	}
	return r.trail.LogUpdate(ctx, "contributor_members", 0,
		map[string]any{"contributor_id": source.ID},
		map[string]any{"contributor_id": target.ID, "moved": moved, "dropped": dropped},
	)
}

// moveAliases re-points the source's aliases, then prunes any that now
// duplicate the target's primary name or an alias it already carries.
func (r *Repository) moveAliases(ctx context.Context, source, target *Contributor) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE contributor_aliases SET contributor_id = ? WHERE contributor_id = ?`,
		target.ID, source.ID,
	)
	if err != nil {
		return fmt.Errorf("move aliases: %w", err)
	}
	moved, _ := res.RowsAffected()

	if _, err := r.db.ExecContext(
		ctx,
		`DELETE FROM contributor_aliases
         WHERE contributor_id = ?
           AND (lower(alias) = lower(?)
                OR id NOT IN (
                    SELECT MIN(id) FROM contributor_aliases
                    WHERE contributor_id = ? GROUP BY lower(alias)
                ))`,
		target.ID, target.Name, target.ID,
	); err != nil {
		return fmt.Errorf("prune duplicate aliases: %w", err)
	}

	if moved == 0 {
		return nil
	}
	return r.trail.LogUpdate(ctx, "contributor_aliases", 0,
		map[string]any{"contributor_id": source.ID},
		map[string]any{"contributor_id": target.ID, "moved": moved},
	)
}
