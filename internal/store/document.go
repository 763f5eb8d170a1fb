// Package store persists the bot's config document. The document is a single
// JSON object holding the command catalog under "commands" next to other bot
// settings; it is always rewritten as a whole.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

const commandsKey = "commands"

// CommandEntry is the persisted state of one command.
type CommandEntry struct {
	Enabled bool
	// Module is empty when unknown; it is written as null.
	Module string
}

type commandEntryJSON struct {
	Enabled bool    `json:"enabled"`
	Module  *string `json:"module"`
}

func (e CommandEntry) MarshalJSON() ([]byte, error) {
	out := commandEntryJSON{Enabled: e.Enabled}
	if e.Module != "" {
		m := e.Module
		out.Module = &m
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the object form and the legacy bare boolean form.
func (e *CommandEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var enabled bool
		if err := json.Unmarshal(data, &enabled); err != nil {
			return fmt.Errorf("command entry must be an object or boolean: %w", err)
		}
		*e = CommandEntry{Enabled: enabled}
		return nil
	}

	var in commandEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = CommandEntry{Enabled: in.Enabled}
	if in.Module != nil {
		e.Module = *in.Module
	}
	return nil
}

// Document is the whole persisted config. Keys other than "commands" are kept
// verbatim so a rewrite never drops settings owned by other components.
type Document struct {
	Commands map[string]CommandEntry
	Extra    map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Commands: make(map[string]CommandEntry),
		Extra:    make(map[string]json.RawMessage),
	}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{
		Commands: maps.Clone(d.Commands),
		Extra:    make(map[string]json.RawMessage, len(d.Extra)),
	}
	if out.Commands == nil {
		out.Commands = make(map[string]CommandEntry)
	}
	for k, v := range d.Extra {
		out.Extra[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func (d *Document) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(d.Extra)+1)
	for k, v := range d.Extra {
		obj[k] = v
	}
	commands := d.Commands
	if commands == nil {
		commands = map[string]CommandEntry{}
	}
	obj[commandsKey] = commands
	return json.Marshal(obj)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	doc := NewDocument()
	if rc, ok := raw[commandsKey]; ok && !bytes.Equal(bytes.TrimSpace(rc), []byte("null")) {
		if err := json.Unmarshal(rc, &doc.Commands); err != nil {
			return fmt.Errorf("decode %q: %w", commandsKey, err)
		}
	}
	delete(raw, commandsKey)
	for k, v := range raw {
		doc.Extra[k] = v
	}
	*d = *doc
	return nil
}

// Encode renders the document the way it is written to disk.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted document. Empty input yields an empty document.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewDocument(), nil
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Sink is the durable medium behind the registry.
type Sink interface {
	// Load returns the stored document, or an empty one if nothing was saved yet.
	Load() (*Document, error)
	// Save replaces the stored document.
	Save(doc *Document) error
	// Update loads the stored document, applies fn and saves the result as
	// one step against concurrent writers of the same medium. An error from fn
	// is returned unchanged and nothing is saved.
	Update(fn func(doc *Document) error) (*Document, error)
}
