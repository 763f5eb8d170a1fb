// Package syncer reconciles loaded command definitions with the remote store.
//
// The remote offers only a full read and a full replace per scope, so every
// sync reads the deployed set once, computes the complete payload and writes
// it at most once.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/salafibot/salafibot/internal/command"
	"github.com/salafibot/salafibot/internal/events"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/remote"
)

// DefaultTimeout bounds each remote call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrNoDefinitions means a full sync was asked to deploy nothing.
var ErrNoDefinitions = errors.New("no valid commands found to deploy")

// Catalog is the registry lookup the engine needs.
type Catalog interface {
	Has(name string) bool
}

// Request describes one sync.
type Request struct {
	// Definitions are the loaded commands available for deployment.
	Definitions []*command.Definition
	// Target is a single command name; empty means every definition.
	Target string
	Scope  remote.Scope
	// Dedup keeps every deployed entry and only adds names not yet deployed.
	// It has no effect on a single-name sync.
	Dedup bool
}

// Result describes a finished sync.
type Result struct {
	ID     string       `json:"id"`
	Scope  remote.Scope `json:"scope"`
	Target string       `json:"target,omitempty"`
	// Count is the number of entries deployed in the scope after the sync.
	Count int `json:"count"`
	// NoOp is set when nothing needed writing.
	NoOp  bool     `json:"no_op"`
	Added []string `json:"added,omitempty"`
}

// Engine runs syncs against one remote store.
type Engine struct {
	store   remote.Store
	catalog Catalog
	timeout time.Duration
	bus     *events.Bus

	mu     sync.Mutex
	scopes map[remote.Scope]chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds every remote call. Zero or negative leaves DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEvents publishes a CommandsSynced event after every write.
func WithEvents(bus *events.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// New creates an engine writing to store. catalog decides which single names
// may be deployed.
func New(store remote.Store, catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		catalog: catalog,
		timeout: DefaultTimeout,
		scopes:  make(map[remote.Scope]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync reconciles req.Scope with req.Definitions. Syncs of the same scope run
// one at a time; a caller still waiting for its turn gives up when ctx ends.
func (e *Engine) Sync(ctx context.Context, req Request) (*Result, error) {
	var def *command.Definition
	if req.Target != "" {
		if !e.catalog.Has(req.Target) {
			return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, req.Target)
		}
		def = find(req.Definitions, req.Target)
		if def == nil {
			return nil, fmt.Errorf("%w: no loaded definition for %s", registry.ErrNotFound, req.Target)
		}
	} else if len(req.Definitions) == 0 {
		return nil, ErrNoDefinitions
	}

	slot := e.scopeSlot(req.Scope)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, newSyncError("wait", req.Scope, ctx.Err())
	}
	defer func() { <-slot }()

	res := &Result{ID: uuid.NewString(), Scope: req.Scope, Target: req.Target}
	log := logging.WithContext(ctx).With("sync", res.ID, "scope", req.Scope.String())

	deployed, err := e.list(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	var payload []*discordgo.ApplicationCommand
	switch {
	case def != nil:
		payload = make([]*discordgo.ApplicationCommand, 0, len(deployed)+1)
		for _, entry := range deployed {
			if entry.Name != def.Name {
				payload = append(payload, entry)
			}
		}
		payload = append(payload, def.Entry())
		res.Added = []string{def.Name}

	case req.Dedup:
		have := make(map[string]bool, len(deployed))
		for _, entry := range deployed {
			have[entry.Name] = true
		}
		payload = deployed
		for _, d := range req.Definitions {
			if have[d.Name] {
				continue
			}
			have[d.Name] = true
			payload = append(payload, d.Entry())
			res.Added = append(res.Added, d.Name)
		}
		if len(res.Added) == 0 {
			res.NoOp = true
			res.Count = len(deployed)
			log.Infof("[sync] All %d commands already deployed, no changes made", len(deployed))
			return res, nil
		}

	default:
		payload = make([]*discordgo.ApplicationCommand, len(req.Definitions))
		for i, d := range req.Definitions {
			payload[i] = d.Entry()
			res.Added = append(res.Added, d.Name)
		}
	}

	written, err := e.replace(ctx, req.Scope, payload)
	if err != nil {
		return nil, err
	}
	res.Count = len(written)

	log.Infof("[sync] Deployed %d commands (%d sent)", res.Count, len(res.Added))
	e.bus.Publish(events.Event{
		Type:  events.CommandsSynced,
		Name:  req.Target,
		Scope: req.Scope.String(),
		Count: res.Count,
	})
	return res, nil
}

func (e *Engine) list(ctx context.Context, scope remote.Scope) ([]*discordgo.ApplicationCommand, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	entries, err := e.store.List(ctx, scope)
	if err != nil {
		return nil, newSyncError("list", scope, err)
	}
	return entries, nil
}

func (e *Engine) replace(ctx context.Context, scope remote.Scope, entries []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	written, err := e.store.Replace(ctx, scope, entries)
	if err != nil {
		return nil, newSyncError("replace", scope, err)
	}
	return written, nil
}

// scopeSlot returns the one-slot semaphore guarding scope.
func (e *Engine) scopeSlot(scope remote.Scope) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.scopes[scope]
	if !ok {
		slot = make(chan struct{}, 1)
		e.scopes[scope] = slot
	}
	return slot
}

func find(defs []*command.Definition, name string) *command.Definition {
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}
