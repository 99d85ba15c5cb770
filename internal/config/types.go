package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global GlobalConfig          `mapstructure:"global"`
	Site   SiteConfig            `mapstructure:"site"`
	Remote RemoteConfig          `mapstructure:"remote"`
	Peers  map[string]PeerConfig `mapstructure:"peers"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	SnapshotDir      string        `mapstructure:"snapshot_dir"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

type SiteConfig struct {
	Root       string `mapstructure:"root"`        // installation root
	ContentDir string `mapstructure:"content_dir"` // defaults to <root>/wp-content
	WPBinary   string `mapstructure:"wp_binary"`   // wp-cli executable
}

// RemoteConfig holds non-secret defaults for the remote blob store. Secrets
// (access/secret key) live in the catalog's credential rows and override
// any value here.
type RemoteConfig struct {
	Service        string `mapstructure:"service"` // credential scope, default "aws"
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// PeerConfig names another environment reachable over ssh/scp.
type PeerConfig struct {
	Address     string `mapstructure:"address"`      // user@host
	SnapshotDir string `mapstructure:"snapshot_dir"` // remote snapshot directory
}
