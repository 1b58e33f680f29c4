package audit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cadenza/internal/audit"
	"cadenza/internal/library"
	"cadenza/internal/testsupport"
)

func TestCommittedBatchRecordsMarkersInOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	var batchID string
	testsupport.MustRun(t, store, "add-song", func(unit *audit.Unit) error {
		batchID = unit.BatchID()
		repo := library.NewSongRepository(unit.Tx(), unit.Trail())
		_, err := repo.Insert(ctx, &library.Song{Title: "Aneurysm"})
		return err
	})

	entries, err := audit.Entries(ctx, store, batchID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected begin/insert/commit, got %#v", entries)
	}
	if entries[0].Action != audit.ActionBeginBatch || entries[0].Entity != "add-song" {
		t.Fatalf("unexpected begin marker: %#v", entries[0])
	}
	if entries[1].Action != audit.ActionInsert || entries[1].Entity != "songs" || entries[1].RecordID == 0 {
		t.Fatalf("unexpected insert record: %#v", entries[1])
	}
	if !strings.Contains(entries[1].Detail, "Aneurysm") {
		t.Fatalf("expected field snapshot in detail, got %q", entries[1].Detail)
	}
	if entries[2].Action != audit.ActionCommitBatch {
		t.Fatalf("unexpected final marker: %#v", entries[2])
	}

	batches, err := audit.ListBatches(ctx, store, 10)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %#v", batches)
	}
	b := batches[0]
	if b.BatchID != batchID || b.Operation != "add-song" || !b.Committed || b.RolledBack || b.EntryCount != 1 {
		t.Fatalf("unexpected batch summary: %#v", b)
	}
}

func TestRollbackMarkerSurvivesTheRollback(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	boom := errors.New("boom")
	var batchID string
	err := audit.Run(ctx, store, "doomed-edit", func(unit *audit.Unit) error {
		batchID = unit.BatchID()
		repo := library.NewSongRepository(unit.Tx(), unit.Trail())
		if _, err := repo.Insert(ctx, &library.Song{Title: "Ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error preserved, got %v", err)
	}

	// The data mutation is gone.
	var songs int
	if err := store.QueryRowContext(ctx, `SELECT COUNT(1) FROM songs`).Scan(&songs); err != nil {
		t.Fatalf("count songs: %v", err)
	}
	if songs != 0 {
		t.Fatalf("expected insert rolled back, found %d songs", songs)
	}

	// The in-transaction audit rows rolled back with it; only the marker,
	// written through the base connection, remains.
	entries, err := audit.Entries(ctx, store, batchID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionRollbackBatch {
		t.Fatalf("expected lone rollback marker, got %#v", entries)
	}
	if !strings.Contains(entries[0].Detail, "boom") {
		t.Fatalf("expected causing error in marker detail, got %q", entries[0].Detail)
	}

	batches, err := audit.ListBatches(ctx, store, 10)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(batches) != 1 || !batches[0].RolledBack || batches[0].Committed {
		t.Fatalf("unexpected batch summary: %#v", batches)
	}
	if batches[0].Operation != "doomed-edit" {
		t.Fatalf("expected operation recoverable from the marker, got %q", batches[0].Operation)
	}
}

func TestUpdateRecordsBeforeAndAfter(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	song := testsupport.AddSong(t, store, "Polly")
	var batchID string
	testsupport.MustRun(t, store, "retitle", func(unit *audit.Unit) error {
		batchID = unit.BatchID()
		repo := library.NewSongRepository(unit.Tx(), unit.Trail())
		song.Title = "(New Wave) Polly"
		_, err := repo.Update(ctx, song)
		return err
	})

	entries, err := audit.Entries(ctx, store, batchID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	var update *audit.Entry
	for i := range entries {
		if entries[i].Action == audit.ActionUpdate {
			update = &entries[i]
		}
	}
	if update == nil {
		t.Fatalf("expected an update record, got %#v", entries)
	}
	if !strings.Contains(update.Detail, `"before"`) || !strings.Contains(update.Detail, `"after"`) ||
		!strings.Contains(update.Detail, "New Wave") {
		t.Fatalf("expected before/after snapshots, got %q", update.Detail)
	}
}

func TestBeginRequiresOperationName(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := audit.Begin(context.Background(), store, ""); !errors.Is(err, library.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBatchesAreIsolated(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.AddSong(t, store, "First")
	testsupport.AddSong(t, store, "Second")

	batches, err := audit.ListBatches(ctx, store, 10)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected two batches, got %#v", batches)
	}
	if batches[0].BatchID == batches[1].BatchID {
		t.Fatal("expected distinct batch ids per unit of work")
	}
	for _, b := range batches {
		if b.EntryCount != 1 || !b.Committed {
			t.Fatalf("unexpected batch summary: %#v", b)
		}
	}
}
