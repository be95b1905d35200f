//go:build linux

// Package app wires configuration, the dispatch surface and the server into
// one runnable application.
package app

import (
	"log"

	"github.com/katana-web/katana/config"
	"github.com/katana-web/katana/core/router"
	"github.com/katana-web/katana/core/server"
)

// App is one configured application instance.
type App struct {
	cfg *config.Config
	srv *server.Server
}

// New creates an application serving requests through dispatch. Generated
// code provides the dispatch surface via MakeFastRouter(handler).Dispatch.
func New(cfg *config.Config, dispatch router.DispatchFunc) *App {
	srv := server.New(dispatch,
		server.WithPort(cfg.Port),
		server.WithWorkers(cfg.Workers),
		server.WithBacklog(cfg.Backlog),
		server.WithReusePort(cfg.ReusePort),
		server.WithPinThreads(cfg.PinThreads),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
	)
	return &App{cfg: cfg, srv: srv}
}

// Server returns the underlying server for metrics registration or option
// inspection.
func (a *App) Server() *server.Server {
	return a.srv
}

// Run starts the application and blocks until shutdown completes.
func (a *App) Run() {
	log.Printf("🚀 katana starting on port %d [%s]", a.cfg.Port, a.cfg.Env)
	if err := a.srv.Run(); err != nil {
		log.Fatalf("server startup failed: %v", err)
	}
}
