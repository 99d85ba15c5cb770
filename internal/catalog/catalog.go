// Package catalog is the durable local store of snapshot metadata: one row
// per snapshot, open key/value extra info per snapshot, and per-service
// storage credentials. Backed by a SQLite file inside the snapshot
// directory.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/snapshot"
)

// FileName is the catalog's base name inside the snapshot directory.
const FileName = "snapshots.db"

// Record is one completed snapshot.
type Record struct {
	ID         int64
	Name       string
	CreatedAt  int64 // unix seconds
	BackupType snapshot.BackupType
	// ZipSize is the formatted, human-readable archive size. Derived from
	// the archive file at write time; display only.
	ZipSize string
}

// Store wraps a single sqlite handle. Open it once per process and hand it
// to the engine; it is not safe for use across goroutines beyond what
// database/sql provides, and the engine is single-threaded anyway.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	backup_type INTEGER NOT NULL,
	backup_zip_size TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS snapshot_extra_info (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	info_key TEXT NOT NULL,
	info_value TEXT NOT NULL,
	snapshot_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_storage_credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	storage_service TEXT NOT NULL,
	info_key TEXT NOT NULL,
	info_value TEXT NOT NULL,
	UNIQUE (storage_service, info_key)
);
`

// Open opens (creating if needed) the catalog database at path and ensures
// the schema exists. Schema creation is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open catalog: %v", errs.ErrSetup, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create catalog schema: %v", errs.ErrSetup, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// Insert appends a snapshot row and returns its assigned id.
func (s *Store) Insert(rec Record) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO snapshots (name, created_at, backup_type, backup_zip_size) VALUES (?, ?, ?, ?)`,
		rec.Name, rec.CreatedAt, int(rec.BackupType), rec.ZipSize,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return res.LastInsertId()
}

// InsertExtraInfo attaches key/value attributes to a snapshot row.
func (s *Store) InsertExtraInfo(snapshotID int64, info map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for k, v := range info {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_extra_info (info_key, info_value, snapshot_id) VALUES (?, ?, ?)`,
			k, v, snapshotID,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert extra info %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// GetAll returns every snapshot row ordered by id.
func (s *Store) GetAll() ([]Record, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at, backup_type, backup_zip_size FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByID returns the snapshot with the given id, or ErrNotFound.
func (s *Store) GetByID(id int64) (Record, error) {
	row := s.db.QueryRow(`SELECT id, name, created_at, backup_type, backup_zip_size FROM snapshots WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: id %d", errs.ErrNotFound, id)
	}
	return rec, err
}

// GetByName returns the first snapshot whose name matches. The match is the
// legacy permissive one: case-insensitive, pattern characters allowed.
func (s *Store) GetByName(name string) (Record, error) {
	row := s.db.QueryRow(
		`SELECT id, name, created_at, backup_type, backup_zip_size FROM snapshots WHERE name LIKE ? ORDER BY id LIMIT 1`,
		name,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: name %q", errs.ErrNotFound, name)
	}
	return rec, err
}

// GetExtraInfo returns all key/value attributes attached to a snapshot.
// A snapshot with no rows yields an empty map.
func (s *Store) GetExtraInfo(snapshotID int64) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT info_key, info_value FROM snapshot_extra_info WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		info[k] = v
	}
	return info, rows.Err()
}

// DeleteByID removes the snapshot row and all of its extra info rows
// atomically. Returns ErrNotFound if no such snapshot exists.
func (s *Store) DeleteByID(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: id %d", errs.ErrNotFound, id)
	}
	if _, err := tx.Exec(`DELETE FROM snapshot_extra_info WHERE snapshot_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UpsertCredential stores one configuration value for a storage service.
// Repeated calls with the same (service, key) update the value in place.
func (s *Store) UpsertCredential(service, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshot_storage_credentials (storage_service, info_key, info_value) VALUES (?, ?, ?)
		 ON CONFLICT (storage_service, info_key) DO UPDATE SET info_value = excluded.info_value`,
		service, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert credential %s/%s: %w", service, key, err)
	}
	return nil
}

// Credentials returns all stored configuration for a service.
func (s *Store) Credentials(service string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT info_key, info_value FROM snapshot_storage_credentials WHERE storage_service = ?`, service)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		creds[k] = v
	}
	return creds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var bt int
	if err := sc.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &bt, &rec.ZipSize); err != nil {
		return Record{}, err
	}
	rec.BackupType = snapshot.BackupType(bt)
	return rec, nil
}

// Resolve looks a snapshot up by numeric id first, then by name.
func (s *Store) Resolve(ref string) (Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Record{}, fmt.Errorf("%w: empty snapshot reference", errs.ErrValidation)
	}
	if id, ok := parseID(ref); ok {
		rec, err := s.GetByID(id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return Record{}, err
		}
	}
	return s.GetByName(ref)
}

func parseID(s string) (int64, bool) {
	var id int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int64(r-'0')
	}
	return id, true
}
