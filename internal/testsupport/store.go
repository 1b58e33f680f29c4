package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"cadenza/internal/audit"
	"cadenza/internal/config"
	"cadenza/internal/library"
)

// NewConfig returns a config rooted in a per-test temporary directory.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MusicDir = filepath.Join(base, "music")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustRun executes fn inside a committed unit of work, failing the test on error.
func MustRun(t testing.TB, store *library.Store, operation string, fn func(*audit.Unit) error) {
	t.Helper()

	if err := audit.Run(context.Background(), store, operation, fn); err != nil {
		t.Fatalf("audit.Run(%s): %v", operation, err)
	}
}

// AddSong inserts a song in its own batch and returns it.
func AddSong(t testing.TB, store *library.Store, title string) *library.Song {
	t.Helper()

	song := &library.Song{Title: title}
	MustRun(t, store, "test-add-song", func(unit *audit.Unit) error {
		repo := library.NewSongRepository(unit.Tx(), unit.Trail())
		_, err := repo.Insert(context.Background(), song)
		return err
	})
	return song
}
