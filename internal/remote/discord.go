package remote

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// CommandsAPI is the part of *discordgo.Session the store uses.
type CommandsAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// DiscordStore keeps commands in Discord through the REST API.
type DiscordStore struct {
	api CommandsAPI
}

// NewDiscordStore wraps an API client, normally a *discordgo.Session.
func NewDiscordStore(api CommandsAPI) *DiscordStore {
	return &DiscordStore{api: api}
}

// NewDiscordSession creates a REST-only session for token. No gateway
// connection is opened.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

// List returns the deployed commands of scope.
func (d *DiscordStore) List(ctx context.Context, scope Scope) ([]*discordgo.ApplicationCommand, error) {
	return d.api.ApplicationCommands(scope.ApplicationID, scope.GuildID, discordgo.WithContext(ctx))
}

// Replace overwrites the deployed commands of scope with entries.
func (d *DiscordStore) Replace(ctx context.Context, scope Scope, entries []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if entries == nil {
		// A JSON null body is rejected; an empty array clears the scope.
		entries = []*discordgo.ApplicationCommand{}
	}
	return d.api.ApplicationCommandBulkOverwrite(scope.ApplicationID, scope.GuildID, entries, discordgo.WithContext(ctx))
}
