// Package site talks to the host CMS installation. Everything here is an
// external collaborator invoked through narrow commands; the engine only
// sees the Client interface.
package site

import "context"

// Info describes the live installation.
type Info struct {
	CoreVersion string
	CoreType    string // "single" or "multisite"
}

// Installed is one extension as reported by the host application. Name is
// the directory identifier (used for registry lookup), Title the human
// label.
type Installed struct {
	Name    string
	Title   string
	Version string
	Active  bool
}

// Client is the command surface the engine drives.
type Client interface {
	Info(ctx context.Context) (Info, error)

	DBSize(ctx context.Context) (int64, error)
	ExportDB(ctx context.Context, destPath string) error
	ImportDB(ctx context.Context, dumpPath string) error

	Plugins(ctx context.Context) ([]Installed, error)
	Themes(ctx context.Context) ([]Installed, error)
	// ActiveThemeDir is the content directory of the currently active theme.
	ActiveThemeDir(ctx context.Context) (string, error)

	DeletePlugin(ctx context.Context, slug string) error
	InstallPlugin(ctx context.Context, slug, version string, activate bool) error
	DeleteTheme(ctx context.Context, slug string) error
	InstallTheme(ctx context.Context, slug, version string, activate bool) error

	// VerifyCoreChecksums checks the installed core files against the
	// published checksums for the installed version.
	VerifyCoreChecksums(ctx context.Context) error
	// InstallCore performs a fresh reinstallation of the core at version.
	InstallCore(ctx context.Context, version string) error
}
