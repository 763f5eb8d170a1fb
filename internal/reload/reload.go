// Package reload swaps command implementations into the dispatch table while
// the bot runs. It never touches the config document or the remote store.
package reload

import (
	"context"
	"fmt"
	"strings"

	"github.com/salafibot/salafibot/internal/command"
	"github.com/salafibot/salafibot/internal/dispatch"
	"github.com/salafibot/salafibot/internal/events"
	"github.com/salafibot/salafibot/internal/loader"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/registry"
)

// Catalog is the registry lookup the manager needs.
type Catalog interface {
	Has(name string) bool
}

// Result reports what a reload did.
type Result struct {
	Reloaded []string         `json:"reloaded"`
	Failed   []loader.Failure `json:"failed,omitempty"`
	// Missing lists requested names no file declares any more.
	Missing []string `json:"missing,omitempty"`
}

// Message renders r for a chat reply.
func (r *Result) Message() string {
	var b strings.Builder
	if len(r.Reloaded) > 0 {
		fmt.Fprintf(&b, "Reloaded %d commands: %s", len(r.Reloaded), strings.Join(r.Reloaded, ", "))
	}
	if len(r.Failed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Failed to reload %d commands:", len(r.Failed))
		for _, f := range r.Failed {
			b.WriteString("\n")
			b.WriteString(f.String())
		}
	}
	if b.Len() == 0 {
		return "No commands found to reload."
	}
	return b.String()
}

// Manager re-imports commands on request.
type Manager struct {
	loader  *loader.Loader
	catalog Catalog
	table   *dispatch.Table
	bus     *events.Bus
}

// NewManager creates a manager that installs into table.
func NewManager(l *loader.Loader, catalog Catalog, table *dispatch.Table, bus *events.Bus) *Manager {
	return &Manager{loader: l, catalog: catalog, table: table, bus: bus}
}

// Reload re-imports every named command from disk, interpreting each file
// afresh, and installs the new handlers in one swap. An unknown name fails the
// whole call before anything is scanned.
func (m *Manager) Reload(ctx context.Context, names ...string) (*Result, error) {
	if len(names) == 0 {
		return &Result{}, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if !m.catalog.Has(name) {
			return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, name)
		}
		wanted[name] = true
	}

	logging.Infof("[reload] Reloading %s", strings.Join(names, ", "))

	var found []*command.Definition
	failed, err := m.loader.Scan(ctx, func(def *command.Definition) bool {
		if !wanted[def.Name] {
			return false
		}
		delete(wanted, def.Name)
		found = append(found, def)
		return len(wanted) == 0
	})
	if err != nil {
		return nil, err
	}

	m.table.Install(found...)

	res := &Result{Failed: failed}
	for _, def := range found {
		res.Reloaded = append(res.Reloaded, def.Name)
		m.bus.Publish(events.Event{Type: events.CommandReloaded, Name: def.Name, Module: def.Module})
	}
	for _, name := range names {
		if wanted[name] {
			res.Missing = append(res.Missing, name)
		}
	}
	if len(res.Missing) > 0 {
		logging.Warnf("[reload] Not found on disk: %s", strings.Join(res.Missing, ", "))
	}
	return res, nil
}
