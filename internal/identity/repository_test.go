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

func addContributor(t *testing.T, store *library.Store, name string, kind identity.Kind) *identity.Contributor {
	t.Helper()
	c := &identity.Contributor{Name: name, Kind: kind}
	testsupport.MustRun(t, store, "test-add-contributor", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.Insert(context.Background(), c)
		return err
	})
	return c
}

func TestInsertAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "The Beatles", identity.KindGroup)
	if c.ID == 0 {
		t.Fatal("expected contributor id to be assigned")
	}
	if c.SortName != "Beatles, The" {
		t.Fatalf("expected derived sort name, got %q", c.SortName)
	}

	fetched, err := identity.NewReader(store).Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.Name != "The Beatles" || fetched.Kind != identity.KindGroup {
		t.Fatalf("unexpected contributor: %#v", fetched)
	}
}

func TestInsertRejectsDuplicatePrimaryName(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	existing := addContributor(t, store, "Dave Grohl", identity.KindPerson)

	err := audit.Run(ctx, store, "test-duplicate", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.Insert(ctx, &identity.Contributor{Name: "dave grohl", Kind: identity.KindPerson})
		return err
	})
	if !errors.Is(err, library.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	var conflict *library.NameConflictError
	if !errors.As(err, &conflict) || conflict.ConflictID != existing.ID {
		t.Fatalf("expected conflict id %d, got %+v", existing.ID, conflict)
	}
}

func TestSameNameAllowedAcrossKinds(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	person := addContributor(t, store, "Nirvana", identity.KindPerson)
	group := addContributor(t, store, "Nirvana", identity.KindGroup)
	if person.ID == group.ID {
		t.Fatal("expected distinct contributors")
	}
}

func TestRenameConflictReturnsCollidingID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	dave := addContributor(t, store, "Dave Grohl", identity.KindPerson)
	david := addContributor(t, store, "David Grohl", identity.KindPerson)

	err := audit.Run(ctx, store, "test-rename-conflict", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Rename(ctx, dave.ID, "David Grohl", false)
	})
	var conflict *library.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected name conflict, got %v", err)
	}
	if conflict.ConflictID != david.ID {
		t.Fatalf("expected colliding id %d, got %d", david.ID, conflict.ConflictID)
	}

	// The refused rename must leave both rows untouched.
	reader := identity.NewReader(store)
	fetched, err := reader.Get(ctx, dave.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Name != "Dave Grohl" {
		t.Fatalf("expected original name preserved, got %q", fetched.Name)
	}
}

func TestRenameKeepsOldNameAsAlias(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Cat Stevens", identity.KindPerson)
	testsupport.MustRun(t, store, "test-rename", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		return repo.Rename(ctx, c.ID, "Yusuf Islam", true)
	})

	reader := identity.NewReader(store)
	fetched, err := reader.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Name != "Yusuf Islam" {
		t.Fatalf("expected new primary name, got %q", fetched.Name)
	}
	aliases, err := reader.Aliases(ctx, c.ID)
	if err != nil {
		t.Fatalf("Aliases failed: %v", err)
	}
	if len(aliases) != 1 || aliases[0].Alias != "Cat Stevens" {
		t.Fatalf("expected old name retained as alias, got %#v", aliases)
	}
}

func TestSearchDistinguishesAliasHits(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Prince", identity.KindPerson)
	testsupport.MustRun(t, store, "test-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.AddAlias(ctx, c.ID, "The Artist")
		return err
	})

	hits, err := identity.NewReader(store).Search(ctx, "artist")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one hit, got %d", len(hits))
	}
	if hits[0].Source != identity.SourceAlias || hits[0].ID != c.ID || hits[0].Name != "The Artist" {
		t.Fatalf("unexpected hit: %#v", hits[0])
	}

	hits, err = identity.NewReader(store).Search(ctx, "prince")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Source != identity.SourcePrimary {
		t.Fatalf("expected one primary hit, got %#v", hits)
	}
}

func TestValidateNameExcludesSelfAndIgnoresAliases(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Queen", identity.KindGroup)
	testsupport.MustRun(t, store, "test-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.AddAlias(ctx, c.ID, "Smile")
		return err
	})

	reader := identity.NewReader(store)
	if conflictID, err := reader.ValidateName(ctx, "queen", identity.KindGroup, c.ID); err != nil || conflictID != 0 {
		t.Fatalf("expected own name excluded, got id=%d err=%v", conflictID, err)
	}
	if conflictID, err := reader.ValidateName(ctx, "Smile", identity.KindGroup, 0); err != nil || conflictID != 0 {
		t.Fatalf("aliases must not block primary names, got id=%d err=%v", conflictID, err)
	}
	if conflictID, err := reader.ValidateName(ctx, "QUEEN", identity.KindGroup, 0); err != nil || conflictID != c.ID {
		t.Fatalf("expected conflict with %d, got id=%d err=%v", c.ID, conflictID, err)
	}
}

func TestDeletePurgesCreditsAndAliases(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Sparklehorse", identity.KindGroup)
	song := testsupport.AddSong(t, store, "Painbirds")

	testsupport.MustRun(t, store, "test-credit", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		if _, err := repo.AddAlias(ctx, c.ID, "Mark Linkous Band"); err != nil {
			return err
		}
		_, err := unit.Tx().ExecContext(
			ctx,
			`INSERT INTO song_credits (song_id, contributor_id, role) VALUES (?, ?, 'performer')`,
			song.ID, c.ID,
		)
		return err
	})

	testsupport.MustRun(t, store, "test-delete", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		ok, err := repo.Delete(ctx, c.ID)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected delete to report success")
		}
		return nil
	})

	var credits int
	if err := store.QueryRowContext(ctx, `SELECT COUNT(1) FROM song_credits WHERE contributor_id = ?`, c.ID).Scan(&credits); err != nil {
		t.Fatalf("count credits: %v", err)
	}
	if credits != 0 {
		t.Fatalf("expected credits purged, found %d", credits)
	}
	var aliases int
	if err := store.QueryRowContext(ctx, `SELECT COUNT(1) FROM contributor_aliases WHERE contributor_id = ?`, c.ID).Scan(&aliases); err != nil {
		t.Fatalf("count aliases: %v", err)
	}
	if aliases != 0 {
		t.Fatalf("expected aliases purged, found %d", aliases)
	}

	// The song itself survives with the credit gone.
	remaining, err := library.NewSongReader(store).Get(ctx, song.ID)
	if err != nil || remaining == nil {
		t.Fatalf("expected song to survive contributor delete: %v", err)
	}
}

func TestDeleteUnknownIDReturnsFalse(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.MustRun(t, store, "test-delete-missing", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		ok, err := repo.Delete(ctx, 9999)
		if err != nil {
			return err
		}
		if ok {
			t.Fatal("expected delete of unknown id to report false")
		}
		return nil
	})
}

func TestMutationOutsideBatchFails(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	reader := identity.NewReader(store)
	if _, err := reader.Insert(ctx, &identity.Contributor{Name: "X", Kind: identity.KindPerson}); !errors.Is(err, library.ErrNoBatch) {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}
}

func TestGetOrCreateResolvesAliases(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	c := addContributor(t, store, "Nine Inch Nails", identity.KindGroup)
	testsupport.MustRun(t, store, "test-alias", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		_, err := repo.AddAlias(ctx, c.ID, "NIN")
		return err
	})

	testsupport.MustRun(t, store, "test-get-or-create", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())

		got, created, err := repo.GetOrCreate(ctx, "nin", identity.KindPerson)
		if err != nil {
			return err
		}
		if created || got.ID != c.ID {
			t.Fatalf("expected alias to resolve to %d, got %#v created=%v", c.ID, got, created)
		}

		fresh, created, err := repo.GetOrCreate(ctx, "Trent Reznor", identity.KindPerson)
		if err != nil {
			return err
		}
		if !created || fresh.ID == 0 {
			t.Fatalf("expected new contributor, got %#v created=%v", fresh, created)
		}
		return nil
	})
}
