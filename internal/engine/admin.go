package engine

import (
	"fmt"
	"os"

	"github.com/wposs/snapshot-command/internal/catalog"
)

// Delete removes a snapshot's archive file and its catalog rows. A second
// call for the same reference reports ErrNotFound.
func (e *Engine) Delete(ref string) error {
	rec, err := e.Catalog.Resolve(ref)
	if err != nil {
		return e.fail(err)
	}
	archivePath := e.ArchivePath(rec.Name)
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return e.fail(fmt.Errorf("remove archive: %w", err))
	}
	if err := e.Catalog.DeleteByID(rec.ID); err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.Out, "snapshot %d (%s) deleted\n", rec.ID, rec.Name)
	return nil
}

// Inspect resolves one snapshot and prints its record plus extra info.
func (e *Engine) Inspect(ref string) (catalog.Record, map[string]string, error) {
	rec, err := e.Catalog.Resolve(ref)
	if err != nil {
		return catalog.Record{}, nil, err
	}
	extras, err := e.Catalog.GetExtraInfo(rec.ID)
	if err != nil {
		return catalog.Record{}, nil, err
	}
	e.printSummary(rec, extras)
	return rec, extras, nil
}
