package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/salafibot/salafibot/internal/logging"
)

var (
	// ErrUnknownCommand means no handler is installed for the name.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrDisabled means the command exists but is switched off.
	ErrDisabled = errors.New("command is disabled")
)

// Gate reports whether a command may run. The registry satisfies it.
type Gate interface {
	IsEnabled(name string) bool
}

// Router answers invocations from the table, honouring the enabled flag at
// call time so toggling a command needs no redeploy.
type Router struct {
	table *Table
	gate  Gate
}

// NewRouter creates a router over table. A nil gate lets everything run.
func NewRouter(table *Table, gate Gate) *Router {
	return &Router{table: table, gate: gate}
}

// Dispatch runs the handler installed for name.
func (r *Router) Dispatch(ctx context.Context, name string, opts map[string]string) (reply string, err error) {
	def, ok := r.table.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if r.gate != nil && !r.gate.IsEnabled(name) {
		return "", fmt.Errorf("%w: %s", ErrDisabled, name)
	}

	defer func() {
		if p := recover(); p != nil {
			logging.WithContext(ctx).Errorf("[dispatch] Command %s panicked: %v\n%s", name, p, debug.Stack())
			reply, err = "", fmt.Errorf("command %s panicked: %v", name, p)
		}
	}()
	return def.Handler(ctx, opts)
}
