// Package command defines a loaded command: its name, the Discord schema
// deployed for it and the handler that answers invocations.
package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Handler answers one invocation. opts maps option names to their values.
// The returned text is sent back to the invoking user.
type Handler func(ctx context.Context, opts map[string]string) (string, error)

// Definition is a command discovered in the module tree. It is rebuilt on
// every load and never persisted.
type Definition struct {
	Name    string
	Module  string
	File    string
	Schema  *discordgo.ApplicationCommand
	Handler Handler
}

// Entry returns a copy of the schema suitable for a remote write.
func (d *Definition) Entry() *discordgo.ApplicationCommand {
	if d.Schema == nil {
		return &discordgo.ApplicationCommand{Name: d.Name}
	}
	cp := *d.Schema
	cp.Name = d.Name
	return &cp
}
