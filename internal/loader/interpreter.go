package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/salafibot/salafibot/internal/command"
)

const (
	dataSymbol    = "Data"
	executeSymbol = "Execute"
)

var (
	// ErrMissingExport means a file lacks Data or Execute.
	ErrMissingExport = errors.New(`missing a required "Data" or "Execute" declaration`)
	// ErrForbiddenImport means a file imports a package outside the allowlist.
	ErrForbiddenImport = errors.New("forbidden import")
	// ErrInvalidSchema means Data does not describe a valid command.
	ErrInvalidSchema = errors.New("invalid command schema")
)

// Discord's rule for chat input command names.
var commandName = regexp.MustCompile(`^[-_\p{Ll}\p{Lo}\p{N}]{1,32}$`)

// DefaultAllowedImports is used when no allowlist is configured.
var DefaultAllowedImports = []string{
	"context", "errors", "fmt", "math", "regexp", "sort", "strconv",
	"strings", "time", "unicode", "unicode/utf8", "encoding/json",
}

// Importer turns one command source file into a definition.
type Importer interface {
	Import(ctx context.Context, path string) (*command.Definition, error)
}

// Interpreter imports command files with the yaegi Go interpreter. Every
// Import uses a fresh interpreter, so a changed file always yields a new
// handler and nothing is cached between imports.
type Interpreter struct {
	allowed map[string]bool
}

// NewInterpreter returns an importer that only lets command files import the
// given standard library packages. An empty list selects DefaultAllowedImports.
func NewInterpreter(allowedImports []string) *Interpreter {
	if len(allowedImports) == 0 {
		allowedImports = DefaultAllowedImports
	}
	allowed := make(map[string]bool, len(allowedImports))
	for _, pkg := range allowedImports {
		allowed[pkg] = true
	}
	return &Interpreter{allowed: allowed}
}

// Import interprets the file at path. A file must declare
//
//	var Data = ...  // JSON-serializable application command description
//	func Execute(ctx context.Context, opts map[string]string) (string, error)
func (in *Interpreter) Import(ctx context.Context, path string) (def *command.Definition, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pkg, err := in.checkSource(path, src)
	if err != nil {
		return nil, err
	}

	// Interpreted code can panic the interpreter itself.
	defer func() {
		if r := recover(); r != nil {
			def = nil
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, string(src)); err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	dataVal, err := i.Eval(pkg + "." + dataSymbol)
	if err != nil || !dataVal.IsValid() {
		return nil, ErrMissingExport
	}
	execVal, err := i.Eval(pkg + "." + executeSymbol)
	if err != nil || !execVal.IsValid() {
		return nil, ErrMissingExport
	}

	execute, ok := execVal.Interface().(func(context.Context, map[string]string) (string, error))
	if !ok {
		return nil, fmt.Errorf("%s has incorrect signature (expected: func(context.Context, map[string]string) (string, error))", executeSymbol)
	}

	schema, err := decodeSchema(dataVal.Interface())
	if err != nil {
		return nil, err
	}

	return &command.Definition{
		Name:    schema.Name,
		File:    path,
		Schema:  schema,
		Handler: command.Handler(execute),
	}, nil
}

// checkSource parses the file header and validates its imports.
func (in *Interpreter) checkSource(path string, src []byte) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), path, src, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}

	var forbidden []string
	for _, spec := range f.Imports {
		pkg, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return "", fmt.Errorf("parse import %s: %w", spec.Path.Value, err)
		}
		if !in.allowed[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		slices.Sort(forbidden)
		return "", fmt.Errorf("%w: %v", ErrForbiddenImport, forbidden)
	}
	return f.Name.Name, nil
}

func decodeSchema(data any) (*discordgo.ApplicationCommand, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	var schema discordgo.ApplicationCommand
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if !commandName.MatchString(schema.Name) {
		return nil, fmt.Errorf("%w: name %q must be 1-32 lowercase letters, digits, '-' or '_'", ErrInvalidSchema, schema.Name)
	}
	if schema.Type == 0 {
		schema.Type = discordgo.ChatApplicationCommand
	}
	return &schema, nil
}
