// Package snapshot defines the snapshot manifest: the in-archive descriptor
// that is the ground truth about an archive's provenance. The catalog row is
// convenience metadata derived from it.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wposs/snapshot-command/internal/errs"
)

// BackupType selects what a snapshot captures.
type BackupType int

const (
	// Full archives the entire content tree verbatim.
	Full BackupType = 0
	// ConfigOnly records extension manifests and media only; third-party
	// extension binaries are reinstalled from the public registry on restore.
	ConfigOnly BackupType = 1
)

func (t BackupType) String() string {
	switch t {
	case Full:
		return "full"
	case ConfigOnly:
		return "config-only"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseBackupType accepts the canonical names and the numeric encodings.
func ParseBackupType(s string) (BackupType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "0":
		return Full, nil
	case "config-only", "config_only", "config", "1":
		return ConfigOnly, nil
	default:
		return Full, fmt.Errorf("%w: unknown backup type %q", errs.ErrValidation, s)
	}
}

// ManifestName is the manifest's base name inside the archive's configs/
// directory.
const ManifestName = "snapshot-details.json"

// Manifest is written into every archive at creation time.
type Manifest struct {
	CoreVersion string     `json:"core_version"`
	CoreType    string     `json:"core_type"` // single or multisite
	DBSize      int64      `json:"db_size"`
	UploadsSize int64      `json:"uploads_size"`
	BackupTime  int64      `json:"backup_time"` // unix seconds
	BackupType  BackupType `json:"backup_type"`
	Tag         string     `json:"tag"`
}

// ComputeTag derives the integrity tag from the manifest's own backup time
// and type. It is a provenance fingerprint, not a tamper seal: any process
// can recompute it, but an archive produced by other tooling will not carry
// a matching value.
func ComputeTag(backupTime int64, backupType BackupType) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d", backupTime, int(backupType))))
	return hex.EncodeToString(sum[:16])
}

// Seal fills in the manifest's tag from its current fields.
func (m *Manifest) Seal() {
	m.Tag = ComputeTag(m.BackupTime, m.BackupType)
}

// Verify recomputes the tag and compares it to the stored one.
func (m *Manifest) Verify() error {
	want := ComputeTag(m.BackupTime, m.BackupType)
	if m.Tag != want {
		return fmt.Errorf("%w: manifest tag %q does not match recomputed %q", errs.ErrIntegrity, m.Tag, want)
	}
	return nil
}
