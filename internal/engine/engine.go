// Package engine sequences the snapshot lifecycle: create, restore, delete,
// push, and pull. One operation runs at a time; steps are synchronous and a
// failed step leaves the working tree in place for inspection.
package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/wposs/snapshot-command/internal/catalog"
	"github.com/wposs/snapshot-command/internal/config"
	"github.com/wposs/snapshot-command/internal/prompt"
	"github.com/wposs/snapshot-command/internal/registry"
	"github.com/wposs/snapshot-command/internal/remote"
	"github.com/wposs/snapshot-command/internal/site"
)

// State is the engine's position in the current operation.
type State int

const (
	StateIdle State = iota
	StateInitiating
	StateCapturingManifest
	StateCapturingDB
	StateCapturingContent
	StatePacking
	StateCataloging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiating:
		return "initiating"
	case StateCapturingManifest:
		return "capturing-manifest"
	case StateCapturingDB:
		return "capturing-db"
	case StateCapturingContent:
		return "capturing-content"
	case StatePacking:
		return "packing"
	case StateCataloging:
		return "cataloging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BlobFactory builds a blob store for a service from config defaults and the
// catalog's credential rows. Injected so transfer paths are testable.
type BlobFactory func(cfg config.RemoteConfig, creds map[string]string) (remote.BlobStore, error)

// Engine owns the collaborators for one process. Fields are exported the
// way the teacher of this codebase wires services: set once at startup,
// overridden directly in tests.
type Engine struct {
	Cfg     *config.Config
	Catalog *catalog.Store
	Site    site.Client
	Plugins registry.Lookup
	Themes  registry.Lookup
	Copier  remote.PeerCopier
	Blobs   BlobFactory
	Confirm prompt.ConfirmFunc
	Out     io.Writer
	Log     zerolog.Logger

	state State
}

// New wires an engine with the production collaborators.
func New(cfg *config.Config, cat *catalog.Store, siteClient site.Client, out io.Writer, log zerolog.Logger) *Engine {
	return &Engine{
		Cfg:     cfg,
		Catalog: cat,
		Site:    siteClient,
		Plugins: registry.NewPluginLookup(),
		Themes:  registry.NewThemeLookup(),
		Copier:  remote.SSHCopier{},
		Blobs: func(rc config.RemoteConfig, creds map[string]string) (remote.BlobStore, error) {
			return remote.NewS3(rc, creds)
		},
		Confirm: prompt.Confirm,
		Out:     out,
		Log:     log,
		state:   StateIdle,
	}
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// enter advances the state machine and emits one progress tick. The tick is
// observational only.
func (e *Engine) enter(s State, step, total int, label string) {
	e.state = s
	fmt.Fprintf(e.Out, "[%d/%d] %s\n", step, total, label)
	e.Log.Debug().Stringer("state", s).Msg(label)
}

// fail records the terminal failure state and returns the first error. The
// working tree and any partial archive are deliberately left on disk so the
// operator can diagnose.
func (e *Engine) fail(err error) error {
	e.state = StateFailed
	e.Log.Error().Err(err).Msg("operation failed")
	return err
}

func randSuffix() string {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "0000"
	}
	return hex.EncodeToString(b)
}
