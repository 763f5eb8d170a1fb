package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/salafibot/salafibot/internal/handler"
	"github.com/salafibot/salafibot/internal/handler/commands"
	"github.com/salafibot/salafibot/internal/logging"
	"github.com/salafibot/salafibot/internal/middleware"
	"github.com/salafibot/salafibot/internal/svc"
	"github.com/salafibot/salafibot/internal/websocket"
)

// ServerOptions holds optional settings for the server
type ServerOptions struct {
	Quiet bool // Suppress request logging
}

// Run serves the admin API on the configured listen address until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context, svcCtx *svc.ServiceContext, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	addr := svcCtx.Config.Admin.Listen
	if svcCtx.Config.Admin.Secret == "" {
		return fmt.Errorf("admin.secret must be set to serve the admin API")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", addr, err)
	}

	// ReadTimeout/WriteTimeout are omitted; they would cut the hijacked
	// websocket connections of the event stream.
	httpServer := &http.Server{
		Handler:           NewRouter(svcCtx, o),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logging.Infof("[server] Admin API listening on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Infof("[server] Shutting down admin API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the admin API routes.
func NewRouter(svcCtx *svc.ServiceContext, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	if !opts.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", handler.HealthCheckHandler(svcCtx))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(svcCtx.Config.Admin.Secret))
		registerCommandRoutes(r, svcCtx)
		r.Get("/events", websocket.Handler(svcCtx.Bus))
	})
	return r
}

func registerCommandRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/commands", commands.ListCommandsHandler(svcCtx))
	r.Post("/commands", commands.CreateCommandHandler(svcCtx))
	r.Get("/commands/count", commands.CountHandler(svcCtx))
	r.Get("/commands/enabled-count", commands.EnabledCountHandler(svcCtx))
	r.Post("/commands/deploy", commands.DeployAllHandler(svcCtx))
	r.Post("/commands/reload", commands.ReloadHandler(svcCtx))
	r.Get("/commands/{name}", commands.GetCommandHandler(svcCtx))
	r.Post("/commands/{name}/enable", commands.EnableCommandHandler(svcCtx))
	r.Post("/commands/{name}/disable", commands.DisableCommandHandler(svcCtx))
	r.Post("/commands/{name}/deploy", commands.DeployCommandHandler(svcCtx))
	r.Post("/commands/{name}/reload", commands.ReloadHandler(svcCtx))
}
