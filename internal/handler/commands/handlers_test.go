package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salafibot/salafibot/internal/admin"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/syncer"
)

func TestStatusCode(t *testing.T) {
	wrap := func(err error) error {
		return &admin.OpError{Op: admin.OpDeploy, Name: "ping", Err: err}
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", wrap(fmt.Errorf("%w: ping", registry.ErrNotFound)), http.StatusNotFound},
		{"duplicate", wrap(registry.ErrDuplicateName), http.StatusConflict},
		{"invalid name", wrap(registry.ErrInvalidName), http.StatusBadRequest},
		{"guild required", wrap(admin.ErrGuildRequired), http.StatusBadRequest},
		{"no definitions", wrap(syncer.ErrNoDefinitions), http.StatusBadRequest},
		{"no remote", wrap(admin.ErrRemoteUnavailable), http.StatusServiceUnavailable},
		{"timeout", wrap(&syncer.SyncError{Op: "replace", Kind: syncer.KindTimeout, Err: context.DeadlineExceeded}), http.StatusGatewayTimeout},
		{"remote rejected", wrap(&syncer.SyncError{Op: "replace", Kind: syncer.KindMissingAccess, Err: errors.New("403")}), http.StatusBadGateway},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}
