package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wposs/snapshot-command/internal/config"
	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/util"
)

// WPCLI drives the installation through the wp command-line tool.
type WPCLI struct {
	binary     string
	root       string
	contentDir string
}

func NewWPCLI(cfg config.SiteConfig) (*WPCLI, error) {
	if err := util.RequireBinary(cfg.WPBinary); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSetup, err)
	}
	return &WPCLI{binary: cfg.WPBinary, root: cfg.Root, contentDir: cfg.ContentDir}, nil
}

func (w *WPCLI) run(ctx context.Context, args ...string) error {
	cmd := util.Command(ctx, w.binary, append([]string{"--path=" + w.root}, args...), nil)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wp %s: %w", args[0], err)
	}
	return nil
}

func (w *WPCLI) output(ctx context.Context, args ...string) (string, error) {
	cmd := util.Command(ctx, w.binary, append([]string{"--path=" + w.root}, args...), nil)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("wp %s: %w", args[0], err)
	}
	return strings.TrimSpace(out.String()), nil
}

func (w *WPCLI) Info(ctx context.Context) (Info, error) {
	ver, err := w.output(ctx, "core", "version")
	if err != nil {
		return Info{}, err
	}
	info := Info{CoreVersion: ver, CoreType: "single"}
	// Exit status 0 means the installation is a network/multisite one.
	if err := w.run(ctx, "core", "is-installed", "--network"); err == nil {
		info.CoreType = "multisite"
	}
	return info, nil
}

func (w *WPCLI) DBSize(ctx context.Context) (int64, error) {
	out, err := w.output(ctx, "db", "size", "--size_format=b")
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimSpace(out), "B"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse db size %q: %w", out, err)
	}
	return size, nil
}

func (w *WPCLI) ExportDB(ctx context.Context, destPath string) error {
	return w.run(ctx, "db", "export", destPath)
}

func (w *WPCLI) ImportDB(ctx context.Context, dumpPath string) error {
	return w.run(ctx, "db", "import", dumpPath)
}

type listedExtension struct {
	Name    string `json:"name"` // directory identifier
	Title   string `json:"title"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (w *WPCLI) list(ctx context.Context, kind string) ([]Installed, error) {
	out, err := w.output(ctx, kind, "list", "--format=json", "--fields=name,title,version,status")
	if err != nil {
		return nil, err
	}
	var listed []listedExtension
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		return nil, fmt.Errorf("parse %s list: %w", kind, err)
	}
	installed := make([]Installed, 0, len(listed))
	for _, e := range listed {
		installed = append(installed, Installed{
			Name:    e.Name,
			Title:   e.Title,
			Version: e.Version,
			Active:  e.Status == "active" || e.Status == "active-network",
		})
	}
	return installed, nil
}

func (w *WPCLI) Plugins(ctx context.Context) ([]Installed, error) { return w.list(ctx, "plugin") }
func (w *WPCLI) Themes(ctx context.Context) ([]Installed, error)  { return w.list(ctx, "theme") }

func (w *WPCLI) ActiveThemeDir(ctx context.Context) (string, error) {
	slug, err := w.output(ctx, "option", "get", "stylesheet")
	if err != nil {
		return "", err
	}
	return filepath.Join(w.contentDir, "themes", slug), nil
}

func (w *WPCLI) DeletePlugin(ctx context.Context, slug string) error {
	return w.run(ctx, "plugin", "delete", slug)
}

func (w *WPCLI) InstallPlugin(ctx context.Context, slug, version string, activate bool) error {
	args := []string{"plugin", "install", slug, "--version=" + version, "--force"}
	if activate {
		args = append(args, "--activate")
	}
	return w.run(ctx, args...)
}

func (w *WPCLI) DeleteTheme(ctx context.Context, slug string) error {
	return w.run(ctx, "theme", "delete", slug)
}

func (w *WPCLI) InstallTheme(ctx context.Context, slug, version string, activate bool) error {
	args := []string{"theme", "install", slug, "--version=" + version, "--force"}
	if activate {
		args = append(args, "--activate")
	}
	return w.run(ctx, args...)
}

func (w *WPCLI) VerifyCoreChecksums(ctx context.Context) error {
	return w.run(ctx, "core", "verify-checksums")
}

func (w *WPCLI) InstallCore(ctx context.Context, version string) error {
	return w.run(ctx, "core", "download", "--version="+version, "--force")
}
