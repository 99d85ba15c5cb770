// Package errs defines the sentinel error kinds surfaced by snapshot commands.
package errs

import "errors"

var (
	// ErrSetup is returned when the snapshot directory or required tooling
	// is unusable; fatal before any command logic runs.
	ErrSetup = errors.New("setup error")

	// ErrNotFound is returned when a snapshot id or name does not resolve
	// to a catalog record.
	ErrNotFound = errors.New("snapshot not found")

	// ErrValidation is returned when inputs or mode combinations are
	// rejected before any destructive step begins.
	ErrValidation = errors.New("validation error")

	// ErrIntegrity is returned when an archive's manifest tag does not
	// match recomputation from its own fields.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrRemote is returned when an upload, download, or peer copy fails.
	ErrRemote = errors.New("remote transfer failed")

	// ErrPeerConnection is the distinct case of a peer copy failing to
	// establish a connection at all (ssh/scp exit status 255).
	ErrPeerConnection = errors.New("could not connect to peer")
)
