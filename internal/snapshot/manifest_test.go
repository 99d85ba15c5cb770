package snapshot

import (
	"errors"
	"testing"

	"github.com/wposs/snapshot-command/internal/errs"
)

func TestComputeTagDeterministic(t *testing.T) {
	a := ComputeTag(1700000000, Full)
	b := ComputeTag(1700000000, Full)
	if a != b {
		t.Fatalf("tag not deterministic: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("unexpected tag length: %d", len(a))
	}
}

func TestComputeTagDependsOnBothFields(t *testing.T) {
	base := ComputeTag(1700000000, Full)
	if ComputeTag(1700000001, Full) == base {
		t.Fatalf("tag did not change with backup time")
	}
	if ComputeTag(1700000000, ConfigOnly) == base {
		t.Fatalf("tag did not change with backup type")
	}
}

func TestSealAndVerify(t *testing.T) {
	m := Manifest{BackupTime: 1700000000, BackupType: ConfigOnly}
	m.Seal()
	if err := m.Verify(); err != nil {
		t.Fatalf("sealed manifest must verify: %v", err)
	}

	// A tag computed against a different backup type must be rejected.
	m.BackupType = Full
	err := m.Verify()
	if !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestParseBackupType(t *testing.T) {
	cases := map[string]BackupType{
		"full":        Full,
		"0":           Full,
		"config-only": ConfigOnly,
		"config":      ConfigOnly,
		"1":           ConfigOnly,
	}
	for in, want := range cases {
		got, err := ParseBackupType(in)
		if err != nil {
			t.Fatalf("ParseBackupType(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseBackupType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseBackupType("bogus"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
