package identity

import (
	"context"
	"fmt"

	"cadenza/internal/library"
)

// Members returns the people belonging to a group.
func (r *Repository) Members(ctx context.Context, groupID int64) ([]*Contributor, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT c.id, c.name, c.sort_name, c.kind
         FROM contributor_members m
         JOIN contributors c ON c.id = m.person_id
         WHERE m.group_id = ? ORDER BY lower(c.sort_name), c.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*Contributor
	for rows.Next() {
		member, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// Groups returns the groups a person belongs to.
func (r *Repository) Groups(ctx context.Context, personID int64) ([]*Contributor, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT c.id, c.name, c.sort_name, c.kind
         FROM contributor_members m
         JOIN contributors c ON c.id = m.group_id
         WHERE m.person_id = ? ORDER BY lower(c.sort_name), c.id`,
		personID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Contributor
	for rows.Next() {
		group, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// MemberCount returns the number of people in a group.
func (r *Repository) MemberCount(ctx context.Context, groupID int64) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM contributor_members WHERE group_id = ?`, groupID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// AddMember records a person-into-group edge. Only persons join and only
// groups contain; a group-into-group edge is a validation error.
func (r *Repository) AddMember(ctx context.Context, groupID, personID int64) error {
	if r.trail == nil {
		return library.ErrNoBatch
	}
	group, person, err := r.membershipEndpoints(ctx, groupID, personID)
	if err != nil {
		return err
	}
	if group.Kind != KindGroup {
		return fmt.Errorf("%w: contributor %d (%s) is not a group", library.ErrValidation, groupID, group.Name)
	}
	if person.Kind != KindPerson {
		return fmt.Errorf("%w: contributor %d (%s) is not a person", library.ErrValidation, personID, person.Name)
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO contributor_members (group_id, person_id) VALUES (?, ?)`,
		groupID, personID,
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	return r.trail.LogInsert(ctx, "contributor_members", 0, map[string]any{
		"group_id":  groupID,
		"person_id": personID,
	})
}

// RemoveMember deletes a membership edge. Returns false when no such edge exists.
func (r *Repository) RemoveMember(ctx context.Context, groupID, personID int64) (bool, error) {
	if r.trail == nil {
		return false, library.ErrNoBatch
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM contributor_members WHERE group_id = ? AND person_id = ?`,
		groupID, personID,
	)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if err := r.trail.LogDelete(ctx, "contributor_members", 0, map[string]any{
		"group_id":  groupID,
		"person_id": personID,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) membershipEndpoints(ctx context.Context, groupID, personID int64) (*Contributor, *Contributor, error) {
	group, err := r.Get(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, fmt.Errorf("%w: contributor %d", library.ErrNotFound, groupID)
	}
	person, err := r.Get(ctx, personID)
	if err != nil {
		return nil, nil, err
	}
	if person == nil {
		return nil, nil, fmt.Errorf("%w: contributor %d", library.ErrNotFound, personID)
	}
	return group, person, nil
}
