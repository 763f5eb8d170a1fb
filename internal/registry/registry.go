// Package registry is the command catalog: the set of known commands with
// their enabled flag and owning module, backed by the persisted config
// document. Every write is a check-then-act against the freshest stored
// document, applied through the sink's Update so it holds across processes
// sharing one medium.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/salafibot/salafibot/internal/events"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/store"
)

var (
	// ErrDuplicateName is returned when registering a name that already exists.
	ErrDuplicateName = errors.New("command already exists")
	// ErrNotFound is returned for operations on an unknown command name.
	ErrNotFound = errors.New("command not found")
	// ErrInvalidName is returned for an empty command name.
	ErrInvalidName = errors.New("command name is required")

	errUnchanged = errors.New("unchanged")
)

// Record is the catalog view of one command.
type Record struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Module  string `json:"module,omitempty"`
}

// Registry caches the config document and writes it back through the sink.
type Registry struct {
	mu        sync.Mutex
	sink      store.Sink
	doc       *store.Document
	bus       *events.Bus
	liveReads bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithEvents publishes catalog changes to bus.
func WithEvents(bus *events.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// WithLiveReads reloads the document from the sink on every read, so changes
// made by other processes sharing the sink are seen immediately.
func WithLiveReads() Option {
	return func(r *Registry) {
		r.liveReads = true
	}
}

// Open loads the document from sink and returns a registry over it.
func Open(sink store.Sink, opts ...Option) (*Registry, error) {
	doc, err := sink.Load()
	if err != nil {
		return nil, fmt.Errorf("load command catalog: %w", err)
	}
	r := &Registry{sink: sink, doc: doc}
	for _, opt := range opts {
		opt(r)
	}
	logging.Debugf("[registry] Loaded %d commands", len(doc.Commands))
	return r, nil
}

// Register adds a new enabled command owned by module and saves the document.
func (r *Registry) Register(name, module string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrInvalidName
	}

	var entry store.CommandEntry
	err := r.update(func(doc *store.Document) error {
		if _, exists := doc.Commands[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		entry = store.CommandEntry{Enabled: true, Module: module}
		doc.Commands[name] = entry
		return nil
	})
	if errors.Is(err, ErrDuplicateName) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("save command catalog: %w", err)
	}

	logging.Infof("[registry] Registered command %s (module %s)", name, moduleLabel(module))
	r.bus.Publish(events.Event{Type: events.CommandRegistered, Name: name, Module: module})
	return toRecord(name, entry), nil
}

// Get returns the record for name.
func (r *Registry) Get(name string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()
	entry, ok := r.doc.Commands[name]
	if !ok {
		return Record{}, false
	}
	return toRecord(name, entry), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// IsEnabled reports whether name is registered and enabled.
func (r *Registry) IsEnabled(name string) bool {
	rec, ok := r.Get(name)
	return ok && rec.Enabled
}

// List returns all records sorted by name.
func (r *Registry) List() []Record {
	r.mu.Lock()
	r.refreshLocked()
	records := make([]Record, 0, len(r.doc.Commands))
	for name, entry := range r.doc.Commands {
		records = append(records, toRecord(name, entry))
	}
	r.mu.Unlock()

	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Name, b.Name)
	})
	return records
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()
	return len(r.doc.Commands)
}

// EnabledCount returns the number of enabled commands.
func (r *Registry) EnabledCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshLocked()
	n := 0
	for _, entry := range r.doc.Commands {
		if entry.Enabled {
			n++
		}
	}
	return n
}

// SetEnabled sets the enabled flag of name. Setting the current value again
// changes nothing and does not rewrite the document.
func (r *Registry) SetEnabled(name string, enabled bool) (Record, error) {
	var entry store.CommandEntry
	err := r.update(func(doc *store.Document) error {
		e, ok := doc.Commands[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		entry = e
		if e.Enabled == enabled {
			return errUnchanged
		}
		entry.Enabled = enabled
		doc.Commands[name] = entry
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return toRecord(name, entry), nil
	case errors.Is(err, ErrNotFound):
		return Record{}, err
	case err != nil:
		return Record{}, fmt.Errorf("save command catalog: %w", err)
	}

	typ := events.CommandDisabled
	if enabled {
		typ = events.CommandEnabled
	}
	logging.Infof("[registry] Command %s enabled=%v", name, enabled)
	r.bus.Publish(events.Event{Type: typ, Name: name, Module: entry.Module})
	return toRecord(name, entry), nil
}

// Enable marks name enabled.
func (r *Registry) Enable(name string) (Record, error) {
	return r.SetEnabled(name, true)
}

// Disable marks name disabled.
func (r *Registry) Disable(name string) (Record, error) {
	return r.SetEnabled(name, false)
}

// update applies fn to the stored document and adopts the saved result. The
// cache is left untouched when fn or the save fails.
func (r *Registry) update(fn func(doc *store.Document) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.sink.Update(fn)
	if err != nil {
		return err
	}
	r.doc = doc
	return nil
}

func (r *Registry) refreshLocked() {
	if !r.liveReads {
		return
	}
	doc, err := r.sink.Load()
	if err != nil {
		logging.Warnf("[registry] Reload failed, serving cached catalog: %v", err)
		return
	}
	r.doc = doc
}

func toRecord(name string, entry store.CommandEntry) Record {
	return Record{Name: name, Enabled: entry.Enabled, Module: entry.Module}
}

func moduleLabel(module string) string {
	if module == "" {
		return "-"
	}
	return module
}
