// Package server exposes the JSON API and the ICS calendar feed over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tartampluch/hebday/internal/auth"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Records *records.Service
	Auth    *auth.Service
	Engine  *engine.Engine
	Fetcher records.Fetcher
	Feed    *CalendarFeed
	Labels  records.LinkLabels

	// Changed is called after every write so the feed can be rebuilt.
	Changed func()
	// Refresh recomputes every record. Defaults to Records.Refresh.
	Refresh func(ctx context.Context) (records.RefreshResult, error)
}

// Server owns the router and the listener lifecycle.
type Server struct {
	Addr string
	deps Deps
	mux  chi.Router
}

// New builds the router. addr is host:port.
func New(addr string, deps Deps) *Server {
	if deps.Feed == nil {
		deps.Feed = NewCalendarFeed()
	}
	if deps.Changed == nil {
		deps.Changed = func() {}
	}
	if deps.Refresh == nil {
		deps.Refresh = deps.Records.Refresh
	}
	s := &Server{Addr: addr, deps: deps}
	s.mux = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Handle(config.RouteCalendar, s.deps.Feed)
	r.Get(config.RouteHealth, s.handleHealth)

	r.Route(config.RouteAPI, func(r chi.Router) {
		r.Post(config.RouteRegister, s.handleRegister)
		r.Post(config.RouteLogin, s.handleLogin)

		// Calendar arithmetic needs no account.
		r.Get(config.RouteConvert, s.handleConvert)
		r.Get(config.RouteConvertHeb, s.handleConvertHebrew)
		r.Get(config.RouteNext, s.handleNext)
		r.Get(config.RouteHebrewYear, s.handleHebrewYear)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post(config.RouteLogout, s.handleLogout)
			r.Get(config.RouteMe, s.handleMe)

			r.Get(config.RouteBirthdays, s.handleList)
			r.Get(config.RouteArchived, s.handleArchived)
			r.Get(config.RouteStats, s.handleStats)
			r.Get(config.RouteExport, s.handleExport)
			r.Get(config.RouteBirthday, s.handleGet)
			r.Get(config.RouteCalendarLink, s.handleCalendarLink)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post(config.RouteBirthdays, s.handleCreate)
				r.Delete(config.RouteBirthdays, s.handleDeleteMany)
				r.Post(config.RouteImport, s.handleImport)
				r.Post(config.RouteRefresh, s.handleRefresh)
				r.Put(config.RouteBirthday, s.handleUpdate)
				r.Delete(config.RouteBirthday, s.handleDelete)
				r.Post(config.RouteArchive, s.handleArchive)
				r.Post(config.RouteRestore, s.handleRestore)
			})
		})
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	host, port, err := net.SplitHostPort(s.Addr)
	if err != nil || port == "" {
		return fmt.Errorf("%s: %q", config.ErrPortRequired, s.Addr)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, ln.Addr().String(),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug(config.MsgRequest,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyMethod, r.Method,
			config.LogKeyPath, r.URL.Path,
			config.LogKeyStatus, ww.Status(),
			config.LogKeyDuration, time.Since(start).Milliseconds(),
		)
	})
}
