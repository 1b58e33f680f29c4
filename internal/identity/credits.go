package identity

import (
	"context"
	"fmt"

	"cadenza/internal/library"
)

// Role is the closed set of credit roles a contributor can hold on a song.
type Role string

const (
	RolePerformer Role = "performer"
	RoleComposer  Role = "composer"
	RoleLyricist  Role = "lyricist"
	RoleProducer  Role = "producer"
)

// Roles lists every credit role in schema order.
func Roles() []Role {
	return []Role{RolePerformer, RoleComposer, RoleLyricist, RoleProducer}
}

// Valid reports whether the role is one the schema accepts.
func (r Role) Valid() bool {
	switch r {
	case RolePerformer, RoleComposer, RoleLyricist, RoleProducer:
		return true
	}
	return false
}

// ParseRole validates a role string from the CLI boundary.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown credit role %q", library.ErrValidation, s)
	}
	return role, nil
}

// AddCredit links a contributor to a song under one role, idempotently.
func (r *Repository) AddCredit(ctx context.Context, songID, contributorID int64, role Role) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown credit role %q", library.ErrValidation, role)
	}
	res, err := r.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO song_credits (song_id, contributor_id, role) VALUES (?, ?, ?)`,
		songID, contributorID, string(role),
	)
	if err != nil {
		return fmt.Errorf("add credit: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogInsert(ctx, "song_credits", 0, map[string]any{
		"song_id":        songID,
		"contributor_id": contributorID,
		"role":           string(role),
	})
}

// RemoveCredit unlinks one credit edge. Returns false when no edge existed.
func (r *Repository) RemoveCredit(ctx context.Context, songID, contributorID int64, role Role) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM song_credits WHERE song_id = ? AND contributor_id = ? AND role = ?`,
		songID, contributorID, string(role),
	)
	if err != nil {
		return false, fmt.Errorf("remove credit: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}
	if err := r.trail.LogDelete(ctx, "song_credits", 0, map[string]any{
		"song_id":        songID,
		"contributor_id": contributorID,
		"role":           string(role),
	}); err != nil {
		return false, err
	}
	return true, nil
}

// Credited returns the contributors holding one role on a song, in name order.
func (r *Repository) Credited(ctx context.Context, songID int64, role Role) ([]*Contributor, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT c.id, c.name, c.sort_name, c.kind FROM song_credits sc
         JOIN contributors c ON c.id = sc.contributor_id
         WHERE sc.song_id = ? AND sc.role = ?
         ORDER BY lower(c.name)`,
		songID, string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("credited contributors: %w", err)
	}
	defer rows.Close()

	var credited []*Contributor
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, err
		}
		credited = append(credited, c)
	}
	return credited, rows.Err()
}

// SongIDsCredited returns the ids of every song a contributor is credited on,
// across all roles.
func (r *Repository) SongIDsCredited(ctx context.Context, contributorID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT DISTINCT song_id FROM song_credits WHERE contributor_id = ? ORDER BY song_id`,
		contributorID,
	)
	if err != nil {
		return nil, fmt.Errorf("credited songs: %w", err)
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
