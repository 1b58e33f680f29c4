package library_test

import (
	"context"
	"testing"

	"cadenza/internal/audit"
	"cadenza/internal/library"
	"cadenza/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected a readable database, got %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("expected full schema, missing %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestSecondWriterIsRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_ = store

	if second, err := library.Open(cfg); err == nil {
		second.Close()
		t.Fatal("expected second writer to be refused by the lock")
	}

	// Readers bypass the writer lock.
	reader, err := library.OpenReadOnly(cfg)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	reader.Close()
}

func TestSongLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Drain You")
	if song.ID == 0 || song.CreatedAt.IsZero() {
		t.Fatalf("expected populated song, got %#v", song)
	}

	testsupport.MustRun(t, store, "test-update", func(unit *audit.Unit) error {
		repo := library.NewSongRepository(unit.Tx(), unit.Trail())
		song.TrackNo = 8
		ok, err := repo.Update(ctx, song)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected update to succeed")
		}
		return nil
	})

	fetched, err := library.NewSongReader(store).Get(ctx, song.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.TrackNo != 8 || !fetched.UpdatedAt.After(fetched.CreatedAt) {
		t.Fatalf("unexpected song after update: %#v", fetched)
	}

	testsupport.MustRun(t, store, "test-delete", func(unit *audit.Unit) error {
		repo := library.NewSongRepository(unit.Tx(), unit.Trail())
		ok, err := repo.Delete(ctx, song.ID)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("expected delete to succeed")
		}
		return nil
	})

	if gone, err := library.NewSongReader(store).Get(ctx, song.ID); err != nil || gone != nil {
		t.Fatalf("expected song deleted, got %#v err=%v", gone, err)
	}
}

func TestListOrdersByTitle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	testsupport.AddSong(t, store, "breed")
	testsupport.AddSong(t, store, "Aneurysm")
	testsupport.AddSong(t, store, "Blew")

	songs, err := library.NewSongReader(store).List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(songs) != 3 || songs[0].Title != "Aneurysm" || songs[1].Title != "Blew" || songs[2].Title != "breed" {
		t.Fatalf("unexpected order: %#v", songs)
	}
}

func TestMutationRequiresBatch(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	reader := library.NewSongReader(store)
	if _, err := reader.Insert(context.Background(), &library.Song{Title: "X"}); err != library.ErrNoBatch {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}
}
