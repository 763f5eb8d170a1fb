// Package remote talks to the store that holds the deployed application
// commands. The only operations are a full read and a full replace of one
// scope; there is no per-entry update.
package remote

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Scope selects a command set: a guild or, with an empty GuildID, global.
type Scope struct {
	ApplicationID string `json:"application_id"`
	GuildID       string `json:"guild_id,omitempty"`
}

// Global reports whether s addresses the application-wide set.
func (s Scope) Global() bool {
	return s.GuildID == ""
}

func (s Scope) String() string {
	if s.Global() {
		return "global"
	}
	return "guild:" + s.GuildID
}

// Store reads and replaces the deployed command set.
type Store interface {
	List(ctx context.Context, scope Scope) ([]*discordgo.ApplicationCommand, error)
	Replace(ctx context.Context, scope Scope, entries []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}

// Names returns the entry names in order.
func Names(entries []*discordgo.ApplicationCommand) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
