package identity_test

import (
	"context"
	"errors"
	"testing"

	"cadenza/internal/audit"
	"cadenza/internal/identity"
	"cadenza/internal/library"
	"cadenza/internal/testsupport"
)

func TestMergeMovesEverythingAndRetiresSource(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	source := addContributor(t, store, "Dave Growl", identity.KindPerson)
	target := addContributor(t, store, "Dave Grohl", identity.KindPerson)
	band := addContributor(t, store, "Foo Fighters", identity.KindGroup)
	songA := testsupport.AddSong(t, store, "Everlong")
	songB := testsupport.AddSong(t, store, "My Hero")

	testsupport.MustRun(t, store, "test-merge-setup", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		if _, err := repo.AddAlias(ctx, source.ID, "D. Growl"); err != nil {
			return err
		}
		if err := repo.AddMember(ctx, band.ID, source.ID); err != nil {
			return err
		}
		for _, songID := range []int64{songA.ID, songB.ID} {
			if _, err := unit.Tx().ExecContext(
				ctx,
				`INSERT INTO song_credits (song_id, contributor_id, role) VALUES (?, ?, 'performer')`,
				songID, source.ID,
			); err != nil {
				return err
			}
		}
		return nil
	})

	testsupport.MustRun(t, store, "merge-contributors", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Merge(ctx, source.ID, target.ID, true)
	})

	reader := identity.NewReader(store)

	if gone, err := reader.Get(ctx, source.ID); err != nil || gone != nil {
		t.Fatalf("expected source to be deleted, got %#v err=%v", gone, err)
	}

	var credits int
	if err := store.QueryRowContext(ctx, `SELECT COUNT(1) FROM song_credits WHERE contributor_id = ?`, target.ID).Scan(&credits); err != nil {
		t.Fatalf("count credits: %v", err)
	}
	if credits != 2 {
		t.Fatalf("expected 2 inherited credits, got %d", credits)
	}

	aliases, err := reader.Aliases(ctx, target.ID)
	if err != nil {
		t.Fatalf("Aliases failed: %v", err)
	}
	if len(aliases) != 2 {
		t.Fatalf("expected moved alias plus absorbed name, got %#v", aliases)
	}
	found := map[string]bool{}
	for _, alias := range aliases {
		found[alias.Alias] = true
	}
	if !found["D. Growl"] || !found["Dave Growl"] {
		t.Fatalf("expected aliases D. Growl and Dave Growl, got %#v", aliases)
	}

	groups, err := reader.Groups(ctx, target.ID)
	if err != nil {
		t.Fatalf("Groups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != band.ID {
		t.Fatalf("expected membership to follow the merge, got %#v", groups)
	}
}

func TestMergeLeavesUnrelatedMembershipsAlone(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	source := addContributor(t, store, "Dave Growl", identity.KindPerson)
	target := addContributor(t, store, "Dave Grohl", identity.KindPerson)
	band := addContributor(t, store, "Queens of the Stone Age", identity.KindGroup)
	bystander := addContributor(t, store, "Josh Homme", identity.KindPerson)

	testsupport.MustRun(t, store, "test-membership-setup", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.AddMember(ctx, band.ID, bystander.ID)
	})

	testsupport.MustRun(t, store, "merge-contributors", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Merge(ctx, source.ID, target.ID, true)
	})

	members, err := identity.NewReader(store).Members(ctx, band.ID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 1 || members[0].ID != bystander.ID {
		t.Fatalf("expected the unrelated membership to survive, got %#v", members)
	}
}

func TestMergeDeduplicatesCredits(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	source := addContributor(t, store, "Source", identity.KindPerson)
	target := addContributor(t, store, "Target", identity.KindPerson)
	song := testsupport.AddSong(t, store, "Shared Credit")

	testsupport.MustRun(t, store, "test-setup", func(unit *audit.Unit) error {
		for _, id := range []int64{source.ID, target.ID} {
			if _, err := unit.Tx().ExecContext(
				ctx,
				`INSERT INTO song_credits (song_id, contributor_id, role) VALUES (?, ?, 'composer')`,
				song.ID, id,
			); err != nil {
				return err
			}
		}
		return nil
	})

	testsupport.MustRun(t, store, "merge-contributors", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Merge(ctx, source.ID, target.ID, false)
	})

	var credits int
	if err := store.QueryRowContext(ctx, `SELECT COUNT(1) FROM song_credits WHERE song_id = ?`, song.ID).Scan(&credits); err != nil {
		t.Fatalf("count credits: %v", err)
	}
	if credits != 1 {
		t.Fatalf("expected duplicate credit collapsed, got %d rows", credits)
	}
}

func TestMergeIntoMissingTargetRollsBack(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	source := addContributor(t, store, "Survivor", identity.KindPerson)

	err := audit.Run(ctx, store, "merge-contributors", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Merge(ctx, source.ID, 9999, true)
	})
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	still, err := identity.NewReader(store).Get(ctx, source.ID)
	if err != nil || still == nil {
		t.Fatalf("expected source to survive failed merge: %#v err=%v", still, err)
	}
}

func TestMergeRejectsSelf(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Solo", identity.KindPerson)
	err := audit.Run(ctx, store, "merge-contributors", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Merge(ctx, c.ID, c.ID, true)
	})
	if !errors.Is(err, library.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPromoteAliasRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Cat Stevens", identity.KindPerson)
	var aliasID int64
	testsupport.MustRun(t, store, "test-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		id, err := repo.AddAlias(ctx, c.ID, "Yusuf")
		aliasID = id
		return err
	})

	promote := func() {
		testsupport.MustRun(t, store, "promote-alias", func(unit *audit.Unit) error {
			repo := identity.NewRepository(unit.Tx(), unit.Trail())
			ok, err := repo.PromoteAlias(ctx, c.ID, aliasID)
			if err != nil {
				return err
			}
			if !ok {
				t.Fatal("expected promote to succeed")
			}
			return nil
		})
	}

	promote()
	reader := identity.NewReader(store)
	swapped, err := reader.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if swapped.Name != "Yusuf" {
		t.Fatalf("expected promoted name, got %q", swapped.Name)
	}
	aliases, err := reader.Aliases(ctx, c.ID)
	if err != nil {
		t.Fatalf("Aliases failed: %v", err)
	}
	if len(aliases) != 1 || aliases[0].Alias != "Cat Stevens" {
		t.Fatalf("expected demoted primary name as alias, got %#v", aliases)
	}

	// Promoting again restores the original state through the same rows.
	promote()
	restored, err := reader.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if restored.Name != "Cat Stevens" {
		t.Fatalf("expected original name restored, got %q", restored.Name)
	}
	aliases, err = reader.Aliases(ctx, c.ID)
	if err != nil {
		t.Fatalf("Aliases failed: %v", err)
	}
	if len(aliases) != 1 || aliases[0].Alias != "Yusuf" {
		t.Fatalf("expected original alias restored, got %#v", aliases)
	}
	if restored.ID != c.ID {
		t.Fatal("promote must never change the contributor id")
	}
}

func TestMoveAliasRepointsSingleRow(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	wrong := addContributor(t, store, "Wrong Owner", identity.KindPerson)
	right := addContributor(t, store, "Right Owner", identity.KindPerson)

	testsupport.MustRun(t, store, "test-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		if _, err := repo.AddAlias(ctx, wrong.ID, "Stray"); err != nil {
			return err
		}
		_, err := repo.AddAlias(ctx, wrong.ID, "Stays")
		return err
	})

	testsupport.MustRun(t, store, "move-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		ok, err := repo.MoveAlias(ctx, "stray", wrong.ID, right.ID)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected alias to be found and moved")
		}
		return nil
	})

	reader := identity.NewReader(store)
	wrongAliases, err := reader.Aliases(ctx, wrong.ID)
	if err != nil {
		t.Fatalf("Aliases failed: %v", err)
	}
	if len(wrongAliases) != 1 || wrongAliases[0].Alias != "Stays" {
		t.Fatalf("expected only the untouched alias to remain, got %#v", wrongAliases)
	}
	rightAliases, err := reader.Aliases(ctx, right.ID)
	if err != nil {
		t.Fatalf("Aliases failed: %v", err)
	}
	if len(rightAliases) != 1 || rightAliases[0].Alias != "Stray" {
		t.Fatalf("expected moved alias, got %#v", rightAliases)
	}
}

func TestMoveAliasToMissingTargetFails(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	owner := addContributor(t, store, "Owner", identity.KindPerson)
	testsupport.MustRun(t, store, "test-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.AddAlias(ctx, owner.ID, "Stray")
		return err
	})

	err := audit.Run(ctx, store, "move-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.MoveAlias(ctx, "Stray", owner.ID, 9999)
		return err
	})
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
