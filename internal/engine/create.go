package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wposs/snapshot-command/internal/archive"
	"github.com/wposs/snapshot-command/internal/catalog"
	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/registry"
	"github.com/wposs/snapshot-command/internal/site"
	"github.com/wposs/snapshot-command/internal/snapshot"
)

const (
	configsDir        = "configs"
	pluginsConfigName = "plugins.json"
	themesConfigName  = "themes.json"
	contentArchive    = "wp-content.zip"
	uploadsArchive    = "uploads.zip"
)

// Create captures a new snapshot and returns its catalog record. On failure
// the working tree and any partial archive are left in place.
func (e *Engine) Create(ctx context.Context, name string, mode snapshot.BackupType) (catalog.Record, error) {
	const steps = 7
	now := time.Now()

	// Initiating: every precondition is checked before any side effect.
	e.enter(StateInitiating, 1, steps, "validating preconditions")
	if _, err := os.Stat(e.Cfg.Site.ContentDir); err != nil {
		return catalog.Record{}, e.fail(fmt.Errorf("%w: content directory: %v", errs.ErrSetup, err))
	}
	info, err := e.Site.Info(ctx)
	if err != nil {
		return catalog.Record{}, e.fail(err)
	}
	if info.CoreType == "multisite" && mode == snapshot.ConfigOnly {
		return catalog.Record{}, e.fail(fmt.Errorf(
			"%w: config-only snapshots cannot capture a multisite installation; use a full snapshot", errs.ErrValidation))
	}
	if name == "" {
		name = "snapshot-" + now.Format("20060102-150405")
	}

	workDir := filepath.Join(e.Cfg.Global.SnapshotDir,
		fmt.Sprintf("%s-%s-%s", name, now.Format("20060102-150405"), randSuffix()))
	if err := os.MkdirAll(filepath.Join(workDir, configsDir), 0o750); err != nil {
		return catalog.Record{}, e.fail(fmt.Errorf("%w: create working tree: %v", errs.ErrSetup, err))
	}

	e.enter(StateCapturingManifest, 2, steps, "writing snapshot manifest")
	dbSize, err := e.Site.DBSize(ctx)
	if err != nil {
		return catalog.Record{}, e.fail(err)
	}
	uploadsDir := filepath.Join(e.Cfg.Site.ContentDir, "uploads")
	uploadsSize, err := archive.SizeInBytes(uploadsDir)
	if err != nil && !os.IsNotExist(err) {
		return catalog.Record{}, e.fail(err)
	}
	manifest := snapshot.Manifest{
		CoreVersion: info.CoreVersion,
		CoreType:    info.CoreType,
		DBSize:      dbSize,
		UploadsSize: uploadsSize,
		BackupTime:  now.Unix(),
		BackupType:  mode,
	}
	manifest.Seal()
	if err := writeJSON(filepath.Join(workDir, configsDir, snapshot.ManifestName), manifest); err != nil {
		return catalog.Record{}, e.fail(err)
	}

	e.enter(StateCapturingDB, 3, steps, "exporting database")
	if err := e.Site.ExportDB(ctx, filepath.Join(workDir, name+".sql")); err != nil {
		return catalog.Record{}, e.fail(err)
	}

	e.enter(StateCapturingContent, 4, steps, "capturing content")
	if err := e.captureExtensionConfigs(ctx, workDir); err != nil {
		return catalog.Record{}, e.fail(err)
	}
	switch mode {
	case snapshot.Full:
		if err := archive.Pack(e.Cfg.Site.ContentDir, filepath.Join(workDir, contentArchive)); err != nil {
			return catalog.Record{}, e.fail(fmt.Errorf("archive content tree: %w", err))
		}
	case snapshot.ConfigOnly:
		if _, err := os.Stat(uploadsDir); err == nil {
			if err := archive.Pack(uploadsDir, filepath.Join(workDir, uploadsArchive)); err != nil {
				return catalog.Record{}, e.fail(fmt.Errorf("archive uploads: %w", err))
			}
		}
	}

	e.enter(StatePacking, 5, steps, "packing archive")
	archivePath := e.ArchivePath(name)
	if err := archive.Pack(workDir, archivePath); err != nil {
		return catalog.Record{}, e.fail(fmt.Errorf("pack snapshot: %w", err))
	}
	// The working tree is removed only once the archive finalized cleanly.
	if err := os.RemoveAll(workDir); err != nil {
		e.Log.Warn().Err(err).Str("dir", workDir).Msg("could not remove working tree")
	}

	e.enter(StateCataloging, 6, steps, "recording snapshot")
	zipSize, err := archive.SizeInBytes(archivePath)
	if err != nil {
		return catalog.Record{}, e.fail(err)
	}
	rec := catalog.Record{
		Name:       name,
		CreatedAt:  now.Unix(),
		BackupType: mode,
		ZipSize:    humanize.Bytes(uint64(zipSize)),
	}
	rec.ID, err = e.Catalog.Insert(rec)
	if err != nil {
		return catalog.Record{}, e.fail(err)
	}
	if err := e.Catalog.InsertExtraInfo(rec.ID, extraInfoFromManifest(manifest)); err != nil {
		return catalog.Record{}, e.fail(err)
	}

	e.enter(StateDone, 7, steps, fmt.Sprintf("snapshot %d (%s) created", rec.ID, name))
	return rec, nil
}

// captureExtensionConfigs writes plugins.json and themes.json. Both capture
// modes record them; only the binary payload differs between modes.
func (e *Engine) captureExtensionConfigs(ctx context.Context, workDir string) error {
	installedPlugins, err := e.Site.Plugins(ctx)
	if err != nil {
		return err
	}
	plugins := e.describeExtensions(ctx, e.Plugins, installedPlugins, nil)
	if err := writeJSON(filepath.Join(workDir, configsDir, pluginsConfigName), plugins); err != nil {
		return err
	}

	installedThemes, err := e.Site.Themes(ctx)
	if err != nil {
		return err
	}
	activeDir, err := e.Site.ActiveThemeDir(ctx)
	if err != nil {
		return err
	}
	// A theme is active when its content directory is the active theme's.
	isActive := func(slug string) bool {
		return filepath.Join(e.Cfg.Site.ContentDir, "themes", slug) == activeDir
	}
	themes := e.describeExtensions(ctx, e.Themes, installedThemes, isActive)
	return writeJSON(filepath.Join(workDir, configsDir, themesConfigName), themes)
}

// describeExtensions maps installed extensions onto archive entries,
// resolving each against the public registry. An extension that cannot be
// matched is recorded with IsPublic=false and is never auto-installed later.
func (e *Engine) describeExtensions(ctx context.Context, lookup registry.Lookup, installed []site.Installed, isActive func(slug string) bool) []snapshot.Extension {
	out := make([]snapshot.Extension, 0, len(installed))
	for _, ext := range installed {
		entry := snapshot.Extension{
			Name:     ext.Title,
			Version:  ext.Version,
			Slug:     ext.Name,
			IsActive: ext.Active,
		}
		if isActive != nil {
			entry.IsActive = isActive(ext.Name)
		}
		slug, err := lookup.ResolvePublicSlug(ctx, ext.Name)
		switch {
		case err == nil:
			entry.Slug = slug
			entry.IsPublic = true
		case errors.Is(err, registry.ErrNotFound):
			// recorded only
		default:
			e.Log.Warn().Err(err).Str("extension", ext.Name).Msg("registry lookup failed; recording as non-public")
		}
		out = append(out, entry)
	}
	return out
}

// ArchivePath is the canonical location of a snapshot's archive file.
func (e *Engine) ArchivePath(name string) string {
	return filepath.Join(e.Cfg.Global.SnapshotDir, name+".zip")
}

func extraInfoFromManifest(m snapshot.Manifest) map[string]string {
	return map[string]string{
		"core_version": m.CoreVersion,
		"core_type":    m.CoreType,
		"db_size":      humanize.Bytes(uint64(m.DBSize)),
		"uploads_size": humanize.Bytes(uint64(m.UploadsSize)),
	}
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o640)
}
