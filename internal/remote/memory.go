package remote

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// MemoryStore is an in-process Store for tests and dry runs. It counts calls
// and can be told to fail.
type MemoryStore struct {
	mu       sync.Mutex
	sets     map[Scope][]*discordgo.ApplicationCommand
	lists    int
	replaces int
	listErr  error
	writeErr error
	delay    func(ctx context.Context) error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[Scope][]*discordgo.ApplicationCommand)}
}

// Seed sets the deployed entries of scope without counting a write.
func (m *MemoryStore) Seed(scope Scope, entries ...*discordgo.ApplicationCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[scope] = cloneEntries(entries)
}

// FailList makes every List return err until cleared with nil.
func (m *MemoryStore) FailList(err error) {
	m.mu.Lock()
	m.listErr = err
	m.mu.Unlock()
}

// FailReplace makes every Replace return err until cleared with nil.
func (m *MemoryStore) FailReplace(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Block makes every call wait on fn before doing anything.
func (m *MemoryStore) Block(fn func(ctx context.Context) error) {
	m.mu.Lock()
	m.delay = fn
	m.mu.Unlock()
}

// Calls returns how many List and Replace calls were made.
func (m *MemoryStore) Calls() (lists, replaces int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, m.replaces
}

// Entries returns a copy of the deployed entries of scope.
func (m *MemoryStore) Entries(scope Scope) []*discordgo.ApplicationCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneEntries(m.sets[scope])
}

func (m *MemoryStore) List(ctx context.Context, scope Scope) ([]*discordgo.ApplicationCommand, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return cloneEntries(m.sets[scope]), nil
}

func (m *MemoryStore) Replace(ctx context.Context, scope Scope, entries []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.sets[scope] = cloneEntries(entries)
	return cloneEntries(entries), nil
}

func (m *MemoryStore) wait(ctx context.Context) error {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay != nil {
		return delay(ctx)
	}
	return ctx.Err()
}

func cloneEntries(in []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, len(in))
	for i, e := range in {
		cp := *e
		out[i] = &cp
	}
	return out
}
