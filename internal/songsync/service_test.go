package songsync_test

import (
	"context"
	"errors"
	"testing"

	"cadenza/internal/album"
	"cadenza/internal/audit"
	"cadenza/internal/config"
	"cadenza/internal/identity"
	"cadenza/internal/library"
	"cadenza/internal/publisher"
	"cadenza/internal/songsync"
	"cadenza/internal/testsupport"
)

func newService(cfg *config.Config) *songsync.Service {
	return songsync.NewService(cfg, nil)
}

func mustSync(t *testing.T, store *library.Store, svc *songsync.Service, songID int64, buf songsync.Buffer) {
	t.Helper()
	testsupport.MustRun(t, store, "sync-song", func(unit *audit.Unit) error {
		return svc.Sync(context.Background(), unit, songID, buf)
	})
}

func TestSyncCreditsDiffsPerRole(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Smells Like Teen Spirit")

	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Performers: []string{"Nirvana"},
		Composers:  []string{"Kurt Cobain", "Krist Novoselic", "Dave Grohl"},
	})
	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Performers: []string{"Nirvana"},
		Composers:  []string{"Kurt Cobain"},
	})

	view, err := songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	composers := view.Credits[identity.RoleComposer]
	if len(composers) != 1 || composers[0].Name != "Kurt Cobain" {
		t.Fatalf("expected composer diffed down to Kurt Cobain, got %#v", composers)
	}
	if len(view.Credits[identity.RolePerformer]) != 1 {
		t.Fatalf("expected one performer, got %#v", view.Credits[identity.RolePerformer])
	}

	// Unlinked contributors survive as library entities.
	dropped, err := identity.NewReader(store).FindByName(ctx, "Dave Grohl")
	if err != nil || dropped == nil {
		t.Fatalf("expected unlinked contributor to survive: %v", err)
	}
}

func TestSyncResolvesAliasesToOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Hurt")
	var nin identity.Contributor
	testsupport.MustRun(t, store, "test-setup", func(unit *audit.Unit) error {
		repo := identity.NewRepository(unit.Tx(), unit.Trail())
		nin = identity.Contributor{Name: "Nine Inch Nails", Kind: identity.KindGroup}
		if _, err := repo.Insert(ctx, &nin); err != nil {
			return err
		}
		_, err := repo.AddAlias(ctx, nin.ID, "NIN")
		return err
	})

	mustSync(t, store, svc, song.ID, songsync.Buffer{Performers: []string{"NIN"}})

	view, err := songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	performers := view.Credits[identity.RolePerformer]
	if len(performers) != 1 || performers[0].ID != nin.ID {
		t.Fatalf("expected alias resolved to owner %d, got %#v", nin.ID, performers)
	}
}

func TestSyncAlbumSnapshotReplacesEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Pennyroyal Tea")

	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Albums: []songsync.AlbumRef{{Title: "Nevermind", Artist: "Nirvana", Year: 1991, Primary: true}},
	})
	// Switching albums twice must not leave the song on both.
	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Albums: []songsync.AlbumRef{{Title: "In Utero", Artist: "Nirvana", Year: 1993, Primary: true}},
	})

	view, err := songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(view.Albums) != 1 || view.Albums[0].Album.Title != "In Utero" || !view.Albums[0].Primary {
		t.Fatalf("expected exactly the new primary album, got %#v", view.Albums)
	}

	// The abandoned album row itself survives.
	old, err := album.NewReader(store).FindByKey(ctx, album.Key{Title: "Nevermind", Artist: "Nirvana", Year: 1991})
	if err != nil || old == nil {
		t.Fatalf("expected unlinked album to survive: %v", err)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Come As You Are")
	buf := songsync.Buffer{
		Performers: []string{"Nirvana"},
		Tags:       []string{"genre:Grunge", "status:keeper"},
		Albums:     []songsync.AlbumRef{{Title: "Nevermind", Artist: "Nirvana", Year: 1991, Primary: true}},
		Publishers: []songsync.PublisherRef{{Name: "DGC"}},
	}

	mustSync(t, store, svc, song.ID, buf)
	mustSync(t, store, svc, song.ID, buf)

	view, err := songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(view.Credits[identity.RolePerformer]) != 1 || len(view.Tags) != 2 ||
		len(view.Albums) != 1 || len(view.Publishers) != 1 || view.Inherited {
		t.Fatalf("expected identical state after repeat sync, got %#v", view)
	}

	var contributors int
	if err := store.QueryRowContext(ctx, `SELECT COUNT(1) FROM contributors`).Scan(&contributors); err != nil {
		t.Fatalf("count contributors: %v", err)
	}
	if contributors != 1 {
		t.Fatalf("expected no duplicate contributors, got %d", contributors)
	}
}

func TestSyncPublisherInheritanceAndOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Lithium")

	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Albums: []songsync.AlbumRef{{Title: "Nevermind", Artist: "Nirvana", Year: 1991, Primary: true}},
	})
	testsupport.MustRun(t, store, "test-album-publisher", func(unit *audit.Unit) error {
		albums := album.NewRepository(unit.Tx(), unit.Trail())
		publishers := publisher.NewRepository(unit.Tx(), unit.Trail())
		a, err := albums.FindByKey(ctx, album.Key{Title: "Nevermind", Artist: "Nirvana", Year: 1991})
		if err != nil {
			return err
		}
		dgc, _, err := publishers.GetOrCreate(ctx, "DGC")
		if err != nil {
			return err
		}
		return albums.AddPublisher(ctx, a.ID, dgc.ID)
	})

	// No direct link: the primary album's publisher is inherited.
	view, err := songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(view.Publishers) != 1 || view.Publishers[0].Name != "DGC" || !view.Inherited {
		t.Fatalf("expected inherited DGC, got %#v inherited=%v", view.Publishers, view.Inherited)
	}

	// A direct override wins without touching the album's own link.
	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Albums:     []songsync.AlbumRef{{Title: "Nevermind", Artist: "Nirvana", Year: 1991, Primary: true}},
		Publishers: []songsync.PublisherRef{{Name: "Sub Pop"}},
	})
	view, err = songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(view.Publishers) != 1 || view.Publishers[0].Name != "Sub Pop" || view.Inherited {
		t.Fatalf("expected direct Sub Pop override, got %#v inherited=%v", view.Publishers, view.Inherited)
	}
}

func TestSyncAppliesDefaultYearAtBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Library.DefaultReleaseYear = 1991
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Territorial Pissings")
	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Albums:           []songsync.AlbumRef{{Title: "Nevermind", Artist: "Nirvana"}},
		ApplyDefaultYear: true,
	})

	a, err := album.NewReader(store).FindByKey(ctx, album.Key{Title: "Nevermind", Artist: "Nirvana", Year: 1991})
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if a == nil {
		t.Fatal("expected album created with the default release year")
	}
}

func TestSyncKeepsNullYearWithoutDefaultOptIn(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Library.DefaultReleaseYear = 1999
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Blandest")
	mustSync(t, store, svc, song.ID, songsync.Buffer{
		Albums: []songsync.AlbumRef{{Title: "Demos"}},
	})

	reader := album.NewReader(store)
	a, err := reader.FindByKey(ctx, album.Key{Title: "Demos"})
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if a == nil {
		t.Fatal("expected album keyed on a NULL year")
	}
	if a.ReleaseYear != 0 {
		t.Fatalf("expected no release year, got %d", a.ReleaseYear)
	}
	if dated, err := reader.FindByKey(ctx, album.Key{Title: "Demos", Year: 1999}); err != nil || dated != nil {
		t.Fatalf("expected no album under the configured default year, got %#v err=%v", dated, err)
	}
}

func TestSyncFailureRollsBackEveryField(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Dumb")

	err := audit.Run(ctx, store, "sync-song", func(unit *audit.Unit) error {
		return svc.Sync(ctx, unit, song.ID, songsync.Buffer{
			Performers: []string{"Nirvana"},
			Tags:       []string{"malformed tag ref"},
		})
	})
	if !errors.Is(err, library.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The performer credit from the same buffer must not have been committed.
	view, err := songsync.Load(ctx, store, song.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(view.Credits) != 0 {
		t.Fatalf("expected no committed credits, got %#v", view.Credits)
	}
	if c, err := identity.NewReader(store).FindByName(ctx, "Nirvana"); err != nil || c != nil {
		t.Fatalf("expected contributor creation rolled back, got %#v err=%v", c, err)
	}
}

func TestSyncUnknownSongFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := newService(cfg)

	err := audit.Run(context.Background(), store, "sync-song", func(unit *audit.Unit) error {
		return svc.Sync(context.Background(), unit, 9999, songsync.Buffer{})
	})
	if !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestBufferValidateRejectsTwoPrimaries(t *testing.T) {
	buf := songsync.Buffer{Albums: []songsync.AlbumRef{
		{Title: "A", Primary: true},
		{Title: "B", Primary: true},
	}}
	if err := buf.Validate(); !errors.Is(err, library.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
