package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"regexp"
	"strings"

	"github.com/wposs/snapshot-command/internal/errs"
	"github.com/wposs/snapshot-command/internal/util"
)

// Peer identifies another environment reachable over an ssh channel.
type Peer struct {
	User string
	Host string
	// SnapshotDir is the remote snapshot directory archives are copied into.
	SnapshotDir string
}

// sshConnectFailure is the exit status ssh and scp reserve for a failed
// connection, as opposed to a failure of the remote command itself.
const sshConnectFailure = 255

var addressRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)@([A-Za-z0-9.:\[\]-]+)$`)

// ParsePeer splits a user@host connection string. Rejects anything else
// before a network call is ever attempted.
func ParsePeer(address, snapshotDir string) (Peer, error) {
	m := addressRe.FindStringSubmatch(strings.TrimSpace(address))
	if m == nil {
		return Peer{}, fmt.Errorf("%w: peer address %q is not user@host", errs.ErrValidation, address)
	}
	if snapshotDir == "" {
		snapshotDir = "."
	}
	return Peer{User: m[1], Host: m[2], SnapshotDir: snapshotDir}, nil
}

// fileNameRe keeps the remote argv free of shell-significant characters.
var fileNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// PeerCopier transfers an archive to a peer and triggers its import.
type PeerCopier interface {
	CopyToPeer(ctx context.Context, peer Peer, localPath string) error
}

// SSHCopier shells out to scp and ssh. The remote import is a fixed argv
// (snapshot pull <filename>), never a concatenated shell string.
type SSHCopier struct{}

func (SSHCopier) CopyToPeer(ctx context.Context, peer Peer, localPath string) error {
	name := path.Base(strings.ReplaceAll(localPath, "\\", "/"))
	if !fileNameRe.MatchString(name) {
		return fmt.Errorf("%w: archive name %q contains unsafe characters", errs.ErrValidation, name)
	}
	if err := util.RequireBinary("scp"); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSetup, err)
	}
	if err := util.RequireBinary("ssh"); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSetup, err)
	}

	target := fmt.Sprintf("%s@%s", peer.User, peer.Host)

	scp := util.Command(ctx, "scp", []string{localPath, target + ":" + path.Join(peer.SnapshotDir, name)}, nil)
	scp.Stderr = os.Stderr
	if err := scp.Run(); err != nil {
		return classify("copy archive to peer", err)
	}

	ssh := util.Command(ctx, "ssh", []string{"--", target, "snapshot", "pull", name}, nil)
	ssh.Stdout = os.Stdout
	ssh.Stderr = os.Stderr
	if err := ssh.Run(); err != nil {
		return classify("trigger remote pull", err)
	}
	return nil
}

func classify(op string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == sshConnectFailure {
		return fmt.Errorf("%w: %s (ssh exit %d); check the peer address and your ssh access", errs.ErrPeerConnection, op, sshConnectFailure)
	}
	return fmt.Errorf("%w: %s: %v", errs.ErrRemote, op, err)
}
