package commands

import (
	"errors"
	"net/http"

	"github.com/salafibot/salafibot/internal/admin"
	"github.com/salafibot/salafibot/internal/httputil"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/middleware"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/svc"
	"github.com/salafibot/salafibot/internal/syncer"
	"github.com/salafibot/salafibot/internal/types"
)

// ListCommandsHandler returns every command record with the counts
func ListCommandsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.ListCommandsResponse{
			Commands: svcCtx.Admin.List(),
			Total:    svcCtx.Admin.Count(),
			Enabled:  svcCtx.Admin.EnabledCount(),
		})
	}
}

func CountHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.CountResponse{Count: svcCtx.Admin.Count()})
	}
}

func EnabledCountHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.CountResponse{Count: svcCtx.Admin.EnabledCount()})
	}
}

// GetCommandHandler returns a single record by name
func GetCommandHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svcCtx.Admin.Get(httputil.PathVar(r, "name"))
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, rec)
	}
}

// CreateCommandHandler registers a new command record
func CreateCommandHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateCommandRequest
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		rec, err := svcCtx.Admin.Create(req.Name, req.Module)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, rec)
	}
}

func EnableCommandHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svcCtx.Admin.Enable(httputil.PathVar(r, "name"))
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, rec)
	}
}

func DisableCommandHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svcCtx.Admin.Disable(httputil.PathVar(r, "name"))
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, rec)
	}
}

// DeployCommandHandler deploys one command, replacing its remote entry
func DeployCommandHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DeployRequest
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		res, err := svcCtx.Admin.Deploy(r.Context(), httputil.PathVar(r, "name"), req.Global)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, &types.DeployResponse{Sync: res.Sync, Failed: res.Failed, Message: res.Message()})
	}
}

// DeployAllHandler deploys every loaded command
func DeployAllHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.DeployRequest
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		logging.Infof("[api] Deploy of all commands requested by %s", middleware.Subject(r.Context()))
		res, err := svcCtx.Admin.DeployAll(r.Context(), req.Global, req.Dedup)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, &types.DeployResponse{Sync: res.Sync, Failed: res.Failed, Message: res.Message()})
	}
}

// ReloadHandler re-imports commands into the running dispatch table
func ReloadHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ReloadRequest
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if name := httputil.PathVar(r, "name"); name != "" {
			req.Names = []string{name}
		}
		if len(req.Names) == 0 {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "at least one command name is required")
			return
		}
		logging.Infof("[api] Reload of %v requested by %s", req.Names, middleware.Subject(r.Context()))
		res, err := svcCtx.Admin.Reload(r.Context(), req.Names...)
		if err != nil {
			writeError(w, err)
			return
		}
		httputil.OkJSON(w, &types.ReloadResponse{
			Reloaded: res.Reloaded,
			Failed:   res.Failed,
			Missing:  res.Missing,
			Message:  res.Message(),
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		logging.Errorf("[api] %v", err)
	}
	httputil.ErrorWithCode(w, code, err.Error())
}

// StatusCode maps an admin error to an HTTP status.
func StatusCode(err error) int {
	var se *syncer.SyncError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, admin.ErrGuildRequired),
		errors.Is(err, syncer.ErrNoDefinitions):
		return http.StatusBadRequest
	case errors.Is(err, admin.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &se):
		if se.Kind == syncer.KindTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
