package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/wposs/snapshot-command/internal/archive"
	"github.com/wposs/snapshot-command/internal/catalog"
	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/site"
	"github.com/wposs/snapshot-command/internal/snapshot"
)

// restoreContents is what classification of the unpacked archive yields.
type restoreContents struct {
	dbDump  string            // path to *.sql, empty if none
	configs map[string]string // json base name (without extension) -> path
	nested  string            // path to nested content/uploads archive
}

// Restore replays a snapshot onto the live installation. Destructive steps
// begin only after explicit confirmation; a failing step stops the sequence
// where it is, with no rollback.
func (e *Engine) Restore(ctx context.Context, ref string) error {
	rec, err := e.Catalog.Resolve(ref)
	if err != nil {
		return e.fail(err)
	}
	extras, err := e.Catalog.GetExtraInfo(rec.ID)
	if err != nil {
		return e.fail(err)
	}

	e.printSummary(rec, extras)
	ok, err := e.Confirm(fmt.Sprintf("Restore snapshot %d (%s)? This overwrites the current site", rec.ID, rec.Name))
	if err != nil {
		return e.fail(fmt.Errorf("%w: %v", errs.ErrValidation, err))
	}
	if !ok {
		return fmt.Errorf("%w: restore not confirmed", errs.ErrValidation)
	}

	archivePath := e.ArchivePath(rec.Name)
	manifest, err := readArchiveManifest(archivePath)
	if err != nil {
		return e.fail(err)
	}

	if err := e.remediateCore(ctx, manifest); err != nil {
		return e.fail(err)
	}

	scratch, err := os.MkdirTemp(e.Cfg.Global.SnapshotDir, rec.Name+"-restore-")
	if err != nil {
		return e.fail(fmt.Errorf("%w: scratch directory: %v", errs.ErrSetup, err))
	}
	if err := archive.Unpack(archivePath, scratch); err != nil {
		return e.fail(fmt.Errorf("unpack snapshot: %w", err))
	}

	contents, err := classify(scratch)
	if err != nil {
		return e.fail(err)
	}

	if contents.dbDump != "" {
		fmt.Fprintln(e.Out, "importing database")
		if err := e.Site.ImportDB(ctx, contents.dbDump); err != nil {
			return e.fail(err)
		}
	}

	if path, ok := contents.configs["plugins"]; ok {
		if err := e.restoreExtensions(ctx, path, extensionOps{
			kind:    "plugin",
			list:    e.Site.Plugins,
			remove:  e.Site.DeletePlugin,
			install: e.Site.InstallPlugin,
		}); err != nil {
			return e.fail(err)
		}
	}
	if path, ok := contents.configs["themes"]; ok {
		if err := e.restoreExtensions(ctx, path, extensionOps{
			kind:    "theme",
			list:    e.Site.Themes,
			remove:  e.Site.DeleteTheme,
			install: e.Site.InstallTheme,
		}); err != nil {
			return e.fail(err)
		}
	}

	if contents.nested != "" {
		target := e.Cfg.Site.ContentDir
		if manifest.BackupType == snapshot.ConfigOnly {
			target = filepath.Join(e.Cfg.Site.ContentDir, "uploads")
		}
		fmt.Fprintf(e.Out, "restoring content into %s\n", target)
		if err := replaceDir(contents.nested, target); err != nil {
			return e.fail(err)
		}
	}

	if err := os.RemoveAll(scratch); err != nil {
		e.Log.Warn().Err(err).Str("dir", scratch).Msg("could not remove scratch directory")
	}
	e.state = StateDone
	fmt.Fprintf(e.Out, "snapshot %d (%s) restored\n", rec.ID, rec.Name)
	return nil
}

// remediateCore brings the installed core to the manifest's version. A
// matching version that also passes checksum verification is left alone.
func (e *Engine) remediateCore(ctx context.Context, m snapshot.Manifest) error {
	info, err := e.Site.Info(ctx)
	if err != nil {
		return err
	}
	if versionsEqual(info.CoreVersion, m.CoreVersion) {
		if err := e.Site.VerifyCoreChecksums(ctx); err == nil {
			e.Log.Info().Str("version", info.CoreVersion).Msg("core version matches and verifies; skipping reinstall")
			return nil
		}
		e.Log.Warn().Str("version", info.CoreVersion).Msg("core checksum verification failed; reinstalling")
	}
	fmt.Fprintf(e.Out, "installing core %s\n", m.CoreVersion)
	return e.Site.InstallCore(ctx, m.CoreVersion)
}

type extensionOps struct {
	kind    string
	list    func(ctx context.Context) ([]site.Installed, error)
	remove  func(ctx context.Context, slug string) error
	install func(ctx context.Context, slug, version string, activate bool) error
}

// restoreExtensions removes every installed extension of the kind, then
// reinstalls the recorded set. Non-public entries are surfaced, never
// installed.
func (e *Engine) restoreExtensions(ctx context.Context, configPath string, ops extensionOps) error {
	payload, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	var recorded []snapshot.Extension
	if err := json.Unmarshal(payload, &recorded); err != nil {
		return fmt.Errorf("parse %s config: %w", ops.kind, err)
	}

	installed, err := ops.list(ctx)
	if err != nil {
		return err
	}
	for _, ext := range installed {
		if err := ops.remove(ctx, ext.Name); err != nil {
			return fmt.Errorf("remove %s %s: %w", ops.kind, ext.Name, err)
		}
	}

	for _, ext := range recorded {
		if !ext.IsPublic {
			e.Log.Warn().Str(ops.kind, ext.Name).Str("version", ext.Version).
				Msg("not publicly distributed; install it manually")
			fmt.Fprintf(e.Out, "warning: %s %q (%s) has no public registry entry and was not installed\n", ops.kind, ext.Name, ext.Version)
			continue
		}
		if err := ops.install(ctx, ext.Slug, ext.Version, ext.IsActive); err != nil {
			return fmt.Errorf("install %s %s: %w", ops.kind, ext.Slug, err)
		}
	}
	return nil
}

func (e *Engine) printSummary(rec catalog.Record, extras map[string]string) {
	fmt.Fprintf(e.Out, "id:          %d\n", rec.ID)
	fmt.Fprintf(e.Out, "name:        %s\n", rec.Name)
	fmt.Fprintf(e.Out, "created:     %s\n", time.Unix(rec.CreatedAt, 0).Format(time.RFC3339))
	fmt.Fprintf(e.Out, "type:        %s\n", rec.BackupType)
	fmt.Fprintf(e.Out, "size:        %s\n", rec.ZipSize)
	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(e.Out, "%-12s %s\n", k+":", extras[k])
	}
}

// classify walks the unpacked snapshot and keys each file by its role:
// database dump, json config, or nested content archive.
func classify(scratch string) (restoreContents, error) {
	contents := restoreContents{configs: map[string]string{}}
	err := filepath.WalkDir(scratch, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := d.Name()
		switch strings.ToLower(filepath.Ext(base)) {
		case ".sql":
			contents.dbDump = path
		case ".json":
			contents.configs[strings.TrimSuffix(base, filepath.Ext(base))] = path
		case ".zip":
			contents.nested = path
		}
		return nil
	})
	return contents, err
}

// replaceDir empties target (children first) and extracts the archive's
// contents in place.
func replaceDir(archivePath, target string) error {
	if err := os.MkdirAll(target, 0o750); err != nil {
		return err
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(target, entry.Name())); err != nil {
			return fmt.Errorf("clear %s: %w", target, err)
		}
	}
	return archive.Unpack(archivePath, target)
}

// readArchiveManifest pulls just the manifest out of an archive. The
// manifest is the ground truth about the archive's provenance.
func readArchiveManifest(archivePath string) (snapshot.Manifest, error) {
	payload, err := archive.ReadFile(archivePath, configsDir+"/"+snapshot.ManifestName)
	if err != nil {
		return snapshot.Manifest{}, fmt.Errorf("%w: %v", errs.ErrIntegrity, err)
	}
	var m snapshot.Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return snapshot.Manifest{}, fmt.Errorf("%w: parse manifest: %v", errs.ErrIntegrity, err)
	}
	return m, nil
}

// versionsEqual compares core versions as semver when possible, so 6.4 and
// 6.4.0 are the same release.
func versionsEqual(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return va.Equal(vb)
}
