package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/snapshot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndLookup(t *testing.T) {
	store := openTestStore(t)

	id, err := store.Insert(Record{Name: "Nightly", CreatedAt: 1700000000, BackupType: snapshot.Full, ZipSize: "12 MB"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected assigned id")
	}

	rec, err := store.GetByID(id)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if rec.Name != "Nightly" || rec.BackupType != snapshot.Full || rec.ZipSize != "12 MB" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	// Legacy lookup is case-insensitive.
	rec, err = store.GetByName("nightly")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if rec.ID != id {
		t.Fatalf("name lookup resolved id %d, want %d", rec.ID, id)
	}

	if _, err := store.GetByID(9999); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.GetByName("nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAllOrdered(t *testing.T) {
	store := openTestStore(t)
	for _, name := range []string{"one", "two", "three"} {
		if _, err := store.Insert(Record{Name: name, CreatedAt: 1, BackupType: snapshot.ConfigOnly}); err != nil {
			t.Fatal(err)
		}
	}
	records, err := store.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].ID <= records[i-1].ID {
			t.Fatalf("records not ordered by id: %v", records)
		}
	}
}

func TestDeleteRemovesExtraInfo(t *testing.T) {
	store := openTestStore(t)
	id, err := store.Insert(Record{Name: "snap", CreatedAt: 1, BackupType: snapshot.Full})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.InsertExtraInfo(id, map[string]string{"core_version": "6.4.2", "db_size": "5.0 MB"}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteByID(id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	info, err := store.GetExtraInfo(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(info) != 0 {
		t.Fatalf("orphaned extra info rows after delete: %v", info)
	}

	// Idempotence: the second call reports not-found, not an internal error.
	if err := store.DeleteByID(id); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUpsertCredentialIdempotent(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 2; i++ {
		if err := store.UpsertCredential("aws", "access_key", "AKIA123"); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.UpsertCredential("aws", "access_key", "AKIA999"); err != nil {
		t.Fatal(err)
	}

	creds, err := store.Credentials("aws")
	if err != nil {
		t.Fatal(err)
	}
	if len(creds) != 1 {
		t.Fatalf("expected exactly one credential row, got %v", creds)
	}
	if creds["access_key"] != "AKIA999" {
		t.Fatalf("expected latest value, got %q", creds["access_key"])
	}
}

func TestResolve(t *testing.T) {
	store := openTestStore(t)
	id, err := store.Insert(Record{Name: "weekly", CreatedAt: 1, BackupType: snapshot.Full})
	if err != nil {
		t.Fatal(err)
	}

	byName, err := store.Resolve("weekly")
	if err != nil || byName.ID != id {
		t.Fatalf("resolve by name: %v %+v", err, byName)
	}
	byID, err := store.Resolve("1")
	if err != nil || byID.ID != id {
		t.Fatalf("resolve by id: %v %+v", err, byID)
	}
	if _, err := store.Resolve("missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Resolve(""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
