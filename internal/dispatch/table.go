// Package dispatch maps command names to the handler that answers them.
//
// The table is read on every inbound interaction and written only on startup
// and reload, so readers load an immutable map through an atomic pointer and
// writers copy, modify and publish a new one under a mutex.
package dispatch

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/salafibot/salafibot/internal/command"
)

type entries = map[string]*command.Definition

// Table is the live name -> definition map.
type Table struct {
	mu   sync.Mutex
	live atomic.Pointer[entries]
}

// NewTable creates an empty table.
func NewTable() *Table {
	t := &Table{}
	empty := entries{}
	t.live.Store(&empty)
	return t
}

// Lookup returns the definition installed for name.
func (t *Table) Lookup(name string) (*command.Definition, bool) {
	def, ok := (*t.live.Load())[name]
	return def, ok
}

// Install swaps in defs, replacing any entries with the same names. Readers see
// either the old table or the new one, never a mix.
func (t *Table) Install(defs ...*command.Definition) {
	if len(defs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := *t.live.Load()
	next := make(entries, len(cur)+len(defs))
	for name, def := range cur {
		next[name] = def
	}
	for _, def := range defs {
		next[def.Name] = def
	}
	t.live.Store(&next)
}

// Replace discards the current contents and installs defs.
func (t *Table) Replace(defs []*command.Definition) {
	next := make(entries, len(defs))
	for _, def := range defs {
		next[def.Name] = def
	}
	t.mu.Lock()
	t.live.Store(&next)
	t.mu.Unlock()
}

// Names returns the installed names, sorted.
func (t *Table) Names() []string {
	cur := *t.live.Load()
	names := make([]string, 0, len(cur))
	for name := range cur {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of installed entries.
func (t *Table) Len() int {
	return len(*t.live.Load())
}
