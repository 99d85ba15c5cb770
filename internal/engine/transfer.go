package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wposs/snapshot-command/internal/archive"
	"github.com/wposs/snapshot-command/internal/catalog"
	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/remote"
)

// Push uploads a snapshot's archive to the named blob store service, or
// copies it to a peer environment when peerAlias is set. The catalog row is
// annotated only after the transfer is confirmed.
func (e *Engine) Push(ctx context.Context, ref, service, peerAlias string) error {
	rec, err := e.Catalog.Resolve(ref)
	if err != nil {
		return e.fail(err)
	}
	archivePath := e.ArchivePath(rec.Name)
	if _, err := os.Stat(archivePath); err != nil {
		return e.fail(fmt.Errorf("%w: archive %s: %v", errs.ErrNotFound, archivePath, err))
	}

	destination := service
	if peerAlias != "" {
		peerCfg, ok := e.Cfg.Peers[peerAlias]
		if !ok {
			return e.fail(fmt.Errorf("%w: unknown peer alias %q", errs.ErrValidation, peerAlias))
		}
		peer, err := remote.ParsePeer(peerCfg.Address, peerCfg.SnapshotDir)
		if err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.Out, "copying %s to peer %s\n", filepath.Base(archivePath), peerAlias)
		if err := e.Copier.CopyToPeer(ctx, peer, archivePath); err != nil {
			return e.fail(err)
		}
		destination = "peer:" + peerAlias
	} else {
		store, err := e.blobStore(service)
		if err != nil {
			return e.fail(err)
		}
		fmt.Fprintf(e.Out, "uploading %s to %s\n", filepath.Base(archivePath), service)
		if err := store.PutBlob(ctx, filepath.Base(archivePath), archivePath); err != nil {
			return e.fail(err)
		}
	}

	if err := e.Catalog.InsertExtraInfo(rec.ID, map[string]string{
		"pushed_to": destination,
		"pushed_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.Out, "snapshot %d (%s) pushed to %s\n", rec.ID, rec.Name, destination)
	return nil
}

var archiveNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+\.zip$`)

// Pull brings an externally sourced archive into the local catalog. With a
// service, the archive is downloaded first; without one, the file is
// expected to already sit in the snapshot directory (the path a peer push
// lands on). The archive is accepted only if its embedded manifest's
// integrity tag verifies; otherwise it is deleted.
func (e *Engine) Pull(ctx context.Context, filename, service string) (catalog.Record, error) {
	if !archiveNameRe.MatchString(filename) {
		return catalog.Record{}, e.fail(fmt.Errorf("%w: %q is not a valid snapshot archive name", errs.ErrValidation, filename))
	}
	localPath := filepath.Join(e.Cfg.Global.SnapshotDir, filename)

	if service != "" {
		remoteKey := filename
		// Never clobber an existing local archive of the same name.
		if _, err := os.Stat(localPath); err == nil {
			stem := strings.TrimSuffix(filename, ".zip")
			filename = fmt.Sprintf("%s-%s.zip", stem, time.Now().Format("20060102-150405"))
			localPath = filepath.Join(e.Cfg.Global.SnapshotDir, filename)
			e.Log.Info().Str("renamed", filename).Msg("local archive with that name exists; downloading under a new name")
		}
		store, err := e.blobStore(service)
		if err != nil {
			return catalog.Record{}, e.fail(err)
		}
		fmt.Fprintf(e.Out, "downloading %s from %s\n", remoteKey, service)
		if err := store.GetBlob(ctx, remoteKey, localPath); err != nil {
			return catalog.Record{}, e.fail(err)
		}
	} else if _, err := os.Stat(localPath); err != nil {
		return catalog.Record{}, e.fail(fmt.Errorf("%w: archive %s: %v", errs.ErrNotFound, localPath, err))
	}

	manifest, err := readArchiveManifest(localPath)
	if err != nil {
		e.discard(localPath)
		return catalog.Record{}, e.fail(err)
	}
	if err := manifest.Verify(); err != nil {
		e.discard(localPath)
		return catalog.Record{}, e.fail(err)
	}

	zipSize, err := archive.SizeInBytes(localPath)
	if err != nil {
		return catalog.Record{}, e.fail(err)
	}
	rec := catalog.Record{
		Name:       strings.TrimSuffix(filename, ".zip"),
		CreatedAt:  manifest.BackupTime,
		BackupType: manifest.BackupType,
		ZipSize:    humanize.Bytes(uint64(zipSize)),
	}
	rec.ID, err = e.Catalog.Insert(rec)
	if err != nil {
		return catalog.Record{}, e.fail(err)
	}
	if err := e.Catalog.InsertExtraInfo(rec.ID, extraInfoFromManifest(manifest)); err != nil {
		return catalog.Record{}, e.fail(err)
	}

	fmt.Fprintf(e.Out, "snapshot %d (%s) imported; restore it with: snapshot restore %d\n", rec.ID, rec.Name, rec.ID)
	return rec, nil
}

// discard removes an archive that failed verification.
func (e *Engine) discard(path string) {
	if err := os.Remove(path); err != nil {
		e.Log.Warn().Err(err).Str("file", path).Msg("could not delete rejected archive")
	} else {
		e.Log.Info().Str("file", path).Msg("rejected archive deleted")
	}
}

func (e *Engine) blobStore(service string) (remote.BlobStore, error) {
	if service == "" {
		service = e.Cfg.Remote.Service
	}
	creds, err := e.Catalog.Credentials(service)
	if err != nil {
		return nil, err
	}
	return e.Blobs(e.Cfg.Remote, creds)
}
