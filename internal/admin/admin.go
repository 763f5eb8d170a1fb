// Package admin is the operator surface over the command catalog: create,
// inspect, deploy, reload and toggle commands. The CLI and the HTTP API both
// call into it; every failure comes back as an *OpError naming the operation.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/salafibot/salafibot/internal/dispatch"
	"github.com/salafibot/salafibot/internal/loader"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/reload"
	"github.com/salafibot/salafibot/internal/remote"
	"github.com/salafibot/salafibot/internal/syncer"
)

// Operation names used in OpError.
const (
	OpCreate    = "create"
	OpGet       = "get"
	OpDeploy    = "deploy"
	OpDeployAll = "deploy-all"
	OpReload    = "reload"
	OpEnable    = "enable"
	OpDisable   = "disable"
	OpBootstrap = "bootstrap"
)

var (
	// ErrRemoteUnavailable means no remote store is configured.
	ErrRemoteUnavailable = errors.New("remote store not configured")
	// ErrGuildRequired means a guild deployment was requested without a guild ID.
	ErrGuildRequired = errors.New("guild ID is required for guild deployments")
)

// OpError is a failed admin operation.
type OpError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Name: name, Err: err}
}

// Options wires a Service.
type Options struct {
	Registry *registry.Registry
	Loader   *loader.Loader
	Table    *dispatch.Table
	Reloader *reload.Manager
	// Engine may be nil when no remote is configured; deploys then fail with
	// ErrRemoteUnavailable.
	Engine        *syncer.Engine
	ApplicationID string
	GuildID       string
}

// Service implements the admin operations.
type Service struct {
	registry *registry.Registry
	loader   *loader.Loader
	table    *dispatch.Table
	reloader *reload.Manager
	engine   *syncer.Engine
	appID    string
	guildID  string
}

// New creates a Service.
func New(o Options) *Service {
	return &Service{
		registry: o.Registry,
		loader:   o.Loader,
		table:    o.Table,
		reloader: o.Reloader,
		engine:   o.Engine,
		appID:    o.ApplicationID,
		guildID:  o.GuildID,
	}
}

// Create registers a new enabled command owned by module.
func (s *Service) Create(name, module string) (registry.Record, error) {
	rec, err := s.registry.Register(name, module)
	return rec, opErr(OpCreate, name, err)
}

// List returns every command record sorted by name.
func (s *Service) List() []registry.Record {
	return s.registry.List()
}

func (s *Service) Count() int {
	return s.registry.Count()
}

func (s *Service) EnabledCount() int {
	return s.registry.EnabledCount()
}

// Get returns the record for name.
func (s *Service) Get(name string) (registry.Record, error) {
	rec, ok := s.registry.Get(name)
	if !ok {
		return registry.Record{}, opErr(OpGet, name, fmt.Errorf("%w: %s", registry.ErrNotFound, name))
	}
	return rec, nil
}

// Enable switches name on. Invocations are accepted immediately; no deploy is
// needed.
func (s *Service) Enable(name string) (registry.Record, error) {
	rec, err := s.registry.Enable(name)
	return rec, opErr(OpEnable, name, err)
}

// Disable switches name off.
func (s *Service) Disable(name string) (registry.Record, error) {
	rec, err := s.registry.Disable(name)
	return rec, opErr(OpDisable, name, err)
}

// Reload re-imports the named commands into the dispatch table.
func (s *Service) Reload(ctx context.Context, names ...string) (*reload.Result, error) {
	res, err := s.reloader.Reload(ctx, names...)
	if err != nil {
		return nil, opErr(OpReload, strings.Join(names, ","), err)
	}
	return res, nil
}

// Scope returns the remote scope for a global or guild deployment.
func (s *Service) Scope(global bool) (remote.Scope, error) {
	if global {
		return remote.Scope{ApplicationID: s.appID}, nil
	}
	if s.guildID == "" {
		return remote.Scope{}, ErrGuildRequired
	}
	return remote.Scope{ApplicationID: s.appID, GuildID: s.guildID}, nil
}

// Bootstrap loads the whole module tree, registers a record for every
// command that has none and installs all loaded handlers into the dispatch
// table.
func (s *Service) Bootstrap(ctx context.Context) (*loader.Result, error) {
	res, err := s.loader.Load(ctx, "")
	if err != nil {
		return nil, opErr(OpBootstrap, "", err)
	}

	for _, def := range res.Loaded {
		if s.registry.Has(def.Name) {
			continue
		}
		if _, err := s.registry.Register(def.Name, def.Module); err != nil && !errors.Is(err, registry.ErrDuplicateName) {
			return nil, opErr(OpBootstrap, def.Name, err)
		}
	}

	s.table.Replace(res.Loaded)
	logging.Infof("[admin] Ready: %d commands installed, %d enabled", s.table.Len(), s.registry.EnabledCount())
	return res, nil
}
