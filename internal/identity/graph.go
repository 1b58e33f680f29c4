package identity

import (
	"context"
	"sort"

	"cadenza/internal/textutil"
)

// ResolveGraph expands a search term into every name it could refer to:
// the matching identities themselves, their aliases, and the names and
// aliases of identities one membership hop away (a person's groups, a
// group's members). Expansion is one hop in each direction, never a
// transitive closure across unrelated identities.
func (r *Repository) ResolveGraph(ctx context.Context, name string) ([]string, error) {
	seeds, err := r.matchIdentities(ctx, name)
	if err != nil {
		return nil, err
	}

	names := newNameSet()
	related := make([]*Contributor, 0, len(seeds))
	for _, seed := range seeds {
		if err := r.collectNames(ctx, seed, names); err != nil {
			return nil, err
		}

		switch seed.Kind {
		case KindPerson:
			groups, err := r.Groups(ctx, seed.ID)
			if err != nil {
				return nil, err
			}
			related = append(related, groups...)
		case KindGroup:
			members, err := r.Members(ctx, seed.ID)
			if err != nil {
				return nil, err
			}
			related = append(related, members...)
		}
	}

	for _, c := range related {
		if err := r.collectNames(ctx, c, names); err != nil {
			return nil, err
		}
	}

	return names.sorted(), nil
}

// matchIdentities finds the identities a term refers to directly: an exact
// case-insensitive match on a primary name, or on an alias (resolving to the
// alias owner).
func (r *Repository) matchIdentities(ctx context.Context, name string) ([]*Contributor, error) {
	display := textutil.Display(name)
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+contributorColumns+` FROM contributors WHERE lower(name) = lower(?)
         UNION
         SELECT c.id, c.name, c.sort_name, c.kind FROM contributor_aliases a
         JOIN contributors c ON c.id = a.contributor_id
         WHERE lower(a.alias) = lower(?)`,
		display, display,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Contributor
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, c)
	}
	return matches, rows.Err()
}

func (r *Repository) collectNames(ctx context.Context, c *Contributor, names *nameSet) error {
	names.add(c.Name)
	aliases, err := r.Aliases(ctx, c.ID)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		names.add(alias.Alias)
	}
	return nil
}

// nameSet deduplicates names under case folding while preserving the first
// display form seen.
type nameSet struct {
	byFold map[string]string
}

func newNameSet() *nameSet {
	return &nameSet{byFold: make(map[string]string)}
}

func (s *nameSet) add(name string) {
	fold := textutil.Fold(name)
	if fold == "" {
		return
	}
	if _, ok := s.byFold[fold]; !ok {
		s.byFold[fold] = textutil.Display(name)
	}
}

func (s *nameSet) sorted() []string {
	names := make([]string, 0, len(s.byFold))
	for _, display := range s.byFold {
		names = append(names, display)
	}
	sort.Slice(names, func(i, j int) bool {
		return textutil.Fold(names[i]) < textutil.Fold(names[j])
	})
	return names
}
