package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wposs/snapshot-command/internal/catalog"
	"github.com/wposs/snapshot-command/internal/config"
	"github.com/wposs/snapshot-command/internal/engine"
	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/logging"
	"github.com/wposs/snapshot-command/internal/prompt"
	"github.com/wposs/snapshot-command/internal/site"
	"github.com/wposs/snapshot-command/internal/snapshot"
	"github.com/wposs/snapshot-command/internal/version"
)

type rootFlags struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	SnapshotDir string
	SiteRoot    string
}

func main() {
	root := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Site snapshot, restore, and transfer tool",
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&root.SnapshotDir, "snapshot-dir", "", "Snapshot directory")
	rootCmd.PersistentFlags().StringVar(&root.SiteRoot, "path", "", "Site installation root")

	rootCmd.AddCommand(newCreateCmd(root))
	rootCmd.AddCommand(newListCmd(root))
	rootCmd.AddCommand(newInspectCmd(root))
	rootCmd.AddCommand(newRestoreCmd(root))
	rootCmd.AddCommand(newDeleteCmd(root))
	rootCmd.AddCommand(newConfigureCmd(root))
	rootCmd.AddCommand(newPushCmd(root))
	rootCmd.AddCommand(newPullCmd(root))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config, builds the logger, and opens the catalog. The snapshot
// directory must exist (or be creatable) before any command logic runs.
func setup(root *rootFlags) (*config.Config, zerolog.Logger, *catalog.Store, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	applyOverrides(cfg, root)
	logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)

	if err := os.MkdirAll(cfg.Global.SnapshotDir, 0o750); err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("%w: snapshot directory %s: %v", errs.ErrSetup, cfg.Global.SnapshotDir, err)
	}
	cat, err := catalog.Open(filepath.Join(cfg.Global.SnapshotDir, catalog.FileName))
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	return cfg, logger, cat, nil
}

func applyOverrides(cfg *config.Config, root *rootFlags) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}
	if root.SnapshotDir != "" {
		cfg.Global.SnapshotDir = root.SnapshotDir
	}
	if root.SiteRoot != "" {
		cfg.Site.Root = root.SiteRoot
		cfg.Site.ContentDir = filepath.Join(root.SiteRoot, "wp-content")
	}
}

// buildEngine wires an engine; withSite controls whether the wp collaborator
// is required (only create and restore drive the live installation).
func buildEngine(root *rootFlags, withSite bool) (*engine.Engine, *config.Config, func(), error) {
	cfg, logger, cat, err := setup(root)
	if err != nil {
		return nil, nil, nil, err
	}
	var siteClient site.Client
	if withSite {
		siteClient, err = site.NewWPCLI(cfg.Site)
		if err != nil {
			cat.Close()
			return nil, nil, nil, err
		}
	}
	eng := engine.New(cfg, cat, siteClient, os.Stdout, logger)
	return eng, cfg, func() { cat.Close() }, nil
}

func opCtx(cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
}

func newCreateCmd(root *rootFlags) *cobra.Command {
	var name string
	var configOnly bool

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a snapshot of the site",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				name = args[0]
			}
			eng, cfg, done, err := buildEngine(root, true)
			if err != nil {
				return err
			}
			defer done()

			mode := snapshot.Full
			if configOnly {
				mode = snapshot.ConfigOnly
			}
			ctx, cancel := opCtx(cfg)
			defer cancel()
			_, err = eng.Create(ctx, name, mode)
			return err
		},
	}
	cmd.Flags().BoolVar(&configOnly, "config-only", false, "Record extension manifests and media only (no full content tree)")
	return cmd
}

func newListCmd(root *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, cat, err := setup(root)
			if err != nil {
				return err
			}
			defer cat.Close()

			records, err := cat.GetAll()
			if err != nil {
				return err
			}
			if format == "json" {
				return json.NewEncoder(os.Stdout).Encode(records)
			}
			fmt.Printf("%-6s %-32s %-22s %-12s %s\n", "ID", "NAME", "CREATED", "TYPE", "SIZE")
			for _, rec := range records {
				fmt.Printf("%-6d %-32s %-22s %-12s %s\n",
					rec.ID, rec.Name, time.Unix(rec.CreatedAt, 0).Format(time.RFC3339), rec.BackupType, rec.ZipSize)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")
	return cmd
}

func newInspectCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <id|name>",
		Short: "Show a snapshot's details and extra info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, done, err := buildEngine(root, false)
			if err != nil {
				return err
			}
			defer done()
			_, _, err = eng.Inspect(args[0])
			return err
		},
	}
}

func newRestoreCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id|name>",
		Short: "Restore the site from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, done, err := buildEngine(root, true)
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := opCtx(cfg)
			defer cancel()
			return eng.Restore(ctx, args[0])
		},
	}
}

func newDeleteCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a snapshot's archive and catalog rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, done, err := buildEngine(root, false)
			if err != nil {
				return err
			}
			defer done()
			return eng.Delete(args[0])
		},
	}
}

func newConfigureCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "configure [service]",
		Short: "Store credentials for a remote storage service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, cat, err := setup(root)
			if err != nil {
				return err
			}
			defer cat.Close()

			service := cfg.Remote.Service
			if len(args) > 0 {
				service = args[0]
			}
			existing, err := cat.Credentials(service)
			if err != nil {
				return err
			}
			for _, key := range []string{"endpoint", "region", "bucket", "access_key", "secret_key"} {
				value, err := prompt.Ask(fmt.Sprintf("%s %s", service, key), existing[key])
				if err != nil {
					return err
				}
				if value == "" {
					continue
				}
				if err := cat.UpsertCredential(service, key, value); err != nil {
					return err
				}
			}
			fmt.Printf("credentials stored for %s\n", service)
			return nil
		},
	}
}

func newPushCmd(root *rootFlags) *cobra.Command {
	var service string
	var peer string

	cmd := &cobra.Command{
		Use:   "push <id|name>",
		Short: "Upload a snapshot to a remote store or copy it to a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, done, err := buildEngine(root, false)
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := opCtx(cfg)
			defer cancel()
			return eng.Push(ctx, args[0], service, peer)
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "Remote storage service (default from config)")
	cmd.Flags().StringVar(&peer, "peer", "", "Peer alias to copy to instead of a storage service")
	return cmd
}

func newPullCmd(root *rootFlags) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "pull <filename>",
		Short: "Import an externally sourced snapshot archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, done, err := buildEngine(root, false)
			if err != nil {
				return err
			}
			defer done()
			ctx, cancel := opCtx(cfg)
			defer cancel()
			_, err = eng.Pull(ctx, args[0], service)
			return err
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "Download from this storage service first (omit if the file is already local)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snapshot %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
