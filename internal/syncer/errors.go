package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/salafibot/salafibot/internal/remote"
)

// Kind classifies a remote failure.
type Kind string

const (
	KindMissingAccess  Kind = "missing_access"
	KindInvalidPayload Kind = "invalid_payload"
	KindTimeout        Kind = "timeout"
	KindTransport      Kind = "transport"
)

// SyncError is a failed remote read or write.
type SyncError struct {
	Op    string
	Scope remote.Scope
	Kind  Kind
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s %s: %s", e.Op, e.Scope, e.Hint())
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Hint is a human readable explanation of the failure.
func (e *SyncError) Hint() string {
	switch e.Kind {
	case KindMissingAccess:
		return "missing access, check that the bot token is valid and the bot has the necessary permissions: " + e.Err.Error()
	case KindInvalidPayload:
		return "invalid form body, one or more commands have invalid data: " + e.Err.Error()
	case KindTimeout:
		return "timed out waiting for the remote store: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}

// IsKind reports whether err is a SyncError of kind k.
func IsKind(err error, k Kind) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == k
}

func newSyncError(op string, scope remote.Scope, err error) *SyncError {
	return &SyncError{Op: op, Scope: scope, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return KindTransport
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeMissingAccess:
			return KindMissingAccess
		case discordgo.ErrCodeInvalidFormBody:
			return KindInvalidPayload
		}
	}
	if rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindMissingAccess
		case http.StatusBadRequest:
			return KindInvalidPayload
		}
	}
	return KindTransport
}
