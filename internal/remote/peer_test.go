package remote

import (
	"errors"
	"testing"

	"github.com/wposs/snapshot-command/internal/errs"
)

func TestParsePeer(t *testing.T) {
	peer, err := ParsePeer("deploy@staging.example.com", "/var/snapshots")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if peer.User != "deploy" || peer.Host != "staging.example.com" {
		t.Fatalf("unexpected peer: %+v", peer)
	}
	if peer.SnapshotDir != "/var/snapshots" {
		t.Fatalf("unexpected snapshot dir: %s", peer.SnapshotDir)
	}
}

func TestParsePeerDefaultsSnapshotDir(t *testing.T) {
	peer, err := ParsePeer("deploy@10.0.0.5", "")
	if err != nil {
		t.Fatal(err)
	}
	if peer.SnapshotDir != "." {
		t.Fatalf("expected default snapshot dir, got %s", peer.SnapshotDir)
	}
}

func TestParsePeerRejectsMalformed(t *testing.T) {
	for _, address := range []string{"", "justahost", "user@", "@host", "user@host extra", "user name@host"} {
		if _, err := ParsePeer(address, ""); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("address %q: expected validation error, got %v", address, err)
		}
	}
}
