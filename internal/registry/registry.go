// SPDX-License-Identifier: MPL-2.0

// Package registry builds the canonical command table at activation and
// serves read-only lookups for the rest of the process lifetime.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/exp/maps"

	"chatops-anything/internal/command"
	"chatops-anything/internal/config"
	"chatops-anything/internal/fetch"
	"chatops-anything/internal/issue"
	"chatops-anything/internal/loader"
	"chatops-anything/internal/scan"
	"chatops-anything/internal/temparea"
)

// State is a stage of the registry lifecycle. Transitions only move forward;
// StateConfigurationInvalid and StateTornDown are terminal.
type State int

const (
	StateUnconfigured State = iota
	StateValidating
	StateLoading
	StateMerging
	StateReady
	StateConfigurationInvalid
	StateTornDown
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateValidating:
		return "validating"
	case StateLoading:
		return "loading"
	case StateMerging:
		return "merging"
	case StateReady:
		return "ready"
	case StateConfigurationInvalid:
		return "configuration invalid"
	case StateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("unknown state (%d)", int(s))
	}
}

var (
	// ErrNotReady is returned when a lookup arrives outside StateReady.
	ErrNotReady = errors.New("registry is not ready")
	// ErrUnknownCommand is returned when a lookup misses.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrActivation is the sentinel error wrapped by ActivationError.
	ErrActivation = errors.New("activation failed")
)

type (
	// ActivationError reports which lifecycle stage failed and why.
	ActivationError struct {
		Stage State
		Cause error
	}

	// HelpProber fills a descriptor's missing help text from the binary
	// itself. Failures come back as text, never as an error.
	HelpProber interface {
		Help(ctx context.Context, binPath string, timeout time.Duration) string
	}

	// Registry is the finalized name to descriptor mapping. The command
	// table is written only during Activate; after that reads need no
	// locking.
	Registry struct {
		cfg    *config.Config
		prober HelpProber

		mu       sync.Mutex
		state    State
		commands map[string]*command.Descriptor

		temp     *temparea.Manager
		tempPath string
		ownsTemp bool
	}
)

// Error implements the error interface.
func (e *ActivationError) Error() string {
	return fmt.Sprintf("activation failed while %s: %v", e.Stage, e.Cause)
}

// Unwrap exposes both the sentinel and the stage cause to errors.Is/As.
func (e *ActivationError) Unwrap() []error { return []error{ErrActivation, e.Cause} }

// New creates an unconfigured registry. prober fills missing help texts
// during the merge; it may be nil to skip help probing.
func New(cfg *config.Config, prober HelpProber) *Registry {
	return &Registry{
		cfg:      cfg,
		prober:   prober,
		state:    StateUnconfigured,
		commands: map[string]*command.Descriptor{},
	}
}

// State returns the current lifecycle stage.
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Activate runs the full lifecycle: path validation, config loading plus
// executable scanning, merging, and finalization. On any validation failure
// the registry lands in StateConfigurationInvalid and exposes no commands.
func (r *Registry) Activate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUnconfigured {
		return &ActivationError{Stage: r.state, Cause: fmt.Errorf("activate called in state %q", r.state)}
	}

	if err := r.validate(); err != nil {
		r.state = StateConfigurationInvalid
		return &ActivationError{Stage: StateValidating, Cause: err}
	}

	r.state = StateLoading
	loaded, scanned, err := r.load(ctx)
	if err != nil {
		r.state = StateConfigurationInvalid
		return &ActivationError{Stage: StateLoading, Cause: err}
	}

	r.state = StateMerging
	r.commands = r.merge(ctx, loaded, scanned)

	r.state = StateReady
	slog.Info("registry ready", "commands", len(r.commands))
	return nil
}

// validate applies the root path checks and provisions the temp area when
// none was supplied.
func (r *Registry) validate() error {
	r.state = StateValidating

	if r.cfg.TempPath == "" {
		r.temp = temparea.NewManager()
		path, err := r.temp.Create()
		if err != nil {
			return issue.WrapWithOperation(err, "create temp area")
		}
		r.tempPath = path
		r.ownsTemp = true
		slog.Info("created temp area", "path", path)
	} else {
		r.tempPath = r.cfg.TempPath
	}

	return r.cfg.Validate()
}

// load gathers commands from the two disjoint sources.
func (r *Registry) load(ctx context.Context) (map[string]*command.Descriptor, []string, error) {
	var files []string
	if r.cfg.ConfigPath != "" {
		var err error
		files, err = loader.FindConfigFiles(r.cfg.ConfigPath)
		if err != nil {
			return nil, nil, issue.NewErrorContext().
				WithOperation("list config files").
				WithResource(r.cfg.ConfigPath).
				Wrap(err).
				BuildError()
		}
	}

	fetcher := fetch.New(r.tempPath, fetch.WithMaxSize(r.cfg.MaxDownloadSize))
	loaded := loader.New(fetcher).Load(ctx, files)

	scanned, err := scan.Executables(r.cfg.BinPath)
	if err != nil {
		return nil, nil, issue.NewErrorContext().
			WithOperation("scan executables").
			WithResource(r.cfg.BinPath).
			Wrap(err).
			BuildError()
	}
	return loaded, scanned, nil
}

// merge combines the two sources. Config-derived descriptors win identity;
// scanned executables only fill names not already taken and not excluded.
// Exclusions never apply to config-derived names.
func (r *Registry) merge(ctx context.Context, loaded map[string]*command.Descriptor, scanned []string) map[string]*command.Descriptor {
	merged := make(map[string]*command.Descriptor, len(loaded)+len(scanned))
	for name, desc := range loaded {
		merged[name] = desc
	}

	for _, path := range scanned {
		name := command.CanonicalName(filepath.Base(path))
		if name == "" {
			continue
		}
		if _, taken := merged[name]; taken {
			slog.Debug("scanned executable shadowed by config entry", "name", name, "path", path)
			continue
		}
		if r.cfg.IsExcluded(name) {
			slog.Debug("scanned executable excluded", "name", name, "path", path)
			continue
		}
		merged[name] = &command.Descriptor{Name: name, BinPath: path}
	}

	if r.prober != nil {
		for _, desc := range merged {
			if desc.Help == "" {
				desc.Help = r.prober.Help(ctx, desc.BinPath, r.cfg.Timeout)
			}
		}
	}
	return merged
}

// table returns the command map if the registry is ready. The reference is
// taken under the lock because Deactivate reassigns the field; the map itself
// is never mutated after activation, so entry reads stay lock-free.
func (r *Registry) table() (map[string]*command.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady {
		return nil, false
	}
	return r.commands, true
}

// Lookup returns a copy of the named descriptor. It only succeeds in
// StateReady.
func (r *Registry) Lookup(name string) (*command.Descriptor, error) {
	commands, ready := r.table()
	if !ready {
		return nil, ErrNotReady
	}
	desc, ok := commands[command.CanonicalName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return desc.Clone(), nil
}

// Commands returns copies of all descriptors sorted by name, or nil outside
// StateReady.
func (r *Registry) Commands() []*command.Descriptor {
	commands, ready := r.table()
	if !ready {
		return nil
	}
	names := maps.Keys(commands)
	sort.Strings(names)
	out := make([]*command.Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, commands[name].Clone())
	}
	return out
}

// TempPath returns the scratch directory in use for fetched artifacts.
func (r *Registry) TempPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tempPath
}

// Deactivate tears the registry down. The temp area is released only when
// the registry created it itself; cleanup errors are logged and swallowed so
// teardown always completes. Repeated calls are no-ops.
func (r *Registry) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateTornDown {
		return
	}

	if r.ownsTemp && r.tempPath != "" {
		if err := r.temp.Cleanup(r.tempPath); err != nil {
			slog.Warn("temp area cleanup failed", "path", r.tempPath, "error", err)
		}
	}

	r.commands = map[string]*command.Descriptor{}
	r.state = StateTornDown
}
