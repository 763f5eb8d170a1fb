// Package loader discovers command implementations in a module tree:
//
//	commands/
//	├── islamic/
//	│   └── basmalah.go
//	└── utility/
//	    ├── ping.go
//	    └── transliterate.go
//
// Each directory is a module and each .go file in it one command. Modules and
// files are visited in lexical order so repeated loads see the same sequence.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/salafibot/salafibot/internal/command"
	"github.com/salafibot/salafibot/internal/logging"
)

// ErrRootMissing is returned when the module tree root does not exist.
var ErrRootMissing = errors.New("commands directory not found")

// File is one candidate command file.
type File struct {
	Module string
	Path   string
}

// Failure records a file that could not be loaded.
type Failure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	return f.File + " - " + f.Reason
}

// Result is the outcome of a load: what loaded and what was skipped.
type Result struct {
	Loaded []*command.Definition
	Failed []Failure
}

// Names returns the names of the loaded definitions in load order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Loaded))
	for i, def := range r.Loaded {
		names[i] = def.Name
	}
	return names
}

// Loader walks a module tree and imports every command file in it.
type Loader struct {
	root     string
	importer Importer
}

// New creates a loader for root.
func New(root string, importer Importer) *Loader {
	return &Loader{root: root, importer: importer}
}

// Root returns the module tree root.
func (l *Loader) Root() string {
	return l.root
}

// Files lists command files, modules first, both in lexical order.
func (l *Loader) Files() ([]File, error) {
	info, err := os.Stat(l.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootMissing, l.root)
	}

	modules, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.root, err)
	}

	var files []File
	for _, mod := range modules {
		if !mod.IsDir() || skipName(mod.Name()) {
			continue
		}
		dir := filepath.Join(l.root, mod.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			logging.Warnf("[loader] Cannot read module %s: %v", mod.Name(), err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !IsCommandFile(e.Name()) {
				continue
			}
			files = append(files, File{Module: mod.Name(), Path: filepath.Join(dir, e.Name())})
		}
	}
	return files, nil
}

// IsCommandFile reports whether a file name is treated as a command source.
func IsCommandFile(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!skipName(name)
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Rel returns path relative to the root, for messages.
func (l *Loader) Rel(path string) string {
	if rel, err := filepath.Rel(l.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// Import loads a single file as a command of module.
func (l *Loader) Import(ctx context.Context, f File) (*command.Definition, error) {
	def, err := l.importer.Import(ctx, f.Path)
	if err != nil {
		return nil, err
	}
	def.Module = f.Module
	def.File = f.Path
	return def, nil
}

// Scan imports files in discovery order and passes each definition to fn
// until fn returns true. Files that fail are collected, never fatal.
func (l *Loader) Scan(ctx context.Context, fn func(*command.Definition) (stop bool)) ([]Failure, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}

	var failed []Failure
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		def, err := l.Import(ctx, f)
		if err != nil {
			failure := Failure{File: l.Rel(f.Path), Reason: err.Error()}
			logging.Warnf("[loader] Skipping %s", failure)
			failed = append(failed, failure)
			continue
		}
		if fn(def) {
			break
		}
	}
	return failed, nil
}

// Load imports the whole tree. With a non-empty target only the definition
// named target is kept; the others are dropped silently. A name declared by
// more than one file keeps the first file in scan order and reports the rest.
func (l *Loader) Load(ctx context.Context, target string) (*Result, error) {
	res := &Result{}
	seen := make(map[string]string)

	failed, err := l.Scan(ctx, func(def *command.Definition) bool {
		if target != "" && def.Name != target {
			return false
		}
		if first, dup := seen[def.Name]; dup {
			failure := Failure{
				File:   l.Rel(def.File),
				Reason: fmt.Sprintf("duplicate command name %q, already declared in %s", def.Name, first),
			}
			logging.Warnf("[loader] Skipping %s", failure)
			res.Failed = append(res.Failed, failure)
			return false
		}
		seen[def.Name] = l.Rel(def.File)
		res.Loaded = append(res.Loaded, def)
		return false
	})
	if err != nil {
		return nil, err
	}

	// Keep import failures ahead of duplicate reports, both in scan order.
	res.Failed = append(failed, res.Failed...)
	logging.Infof("[loader] Loaded %d commands from %s (%d failed)", len(res.Loaded), l.root, len(res.Failed))
	return res, nil
}
