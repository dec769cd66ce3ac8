// Package app wires the converter stack, the storage, the services and the
// HTTP server from the resolved settings, and runs the background refresher
// that keeps the calendar feed current.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tartampluch/hebday/internal/auth"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"github.com/tartampluch/hebday/internal/server"
	"github.com/tartampluch/hebday/internal/store"
	"golang.org/x/sync/errgroup"
)

// App holds every long-lived component.
type App struct {
	Settings   config.Settings
	Translator *Translator
	Cache      *engine.Cache
	Engine     *engine.Engine
	DB         *store.DB
	Records    *records.Service
	Feed       *server.CalendarFeed

	// SigningKey provides the session key. Defaults to auth.SigningKey.
	SigningKey func() ([]byte, error)

	changed chan struct{}

	authOnce sync.Once
	auth     *auth.Service
	authErr  error
}

// NewConverter builds the converter selected by s.ConverterMode.
func NewConverter(s config.Settings) (engine.DateConverter, error) {
	if s.ConverterMode == config.ConverterLocal {
		return engine.LocalConverter{}, nil
	}
	oracle, err := engine.NewOracleConverter(engine.OracleOptions{
		BaseURL:         s.OracleURL,
		CallTimeout:     s.OracleTimeout,
		RatePerSecond:   s.OracleRate,
		Burst:           s.OracleBurst,
		RetryMax:        s.OracleRetryMax,
		BreakerFailures: s.BreakerFailures,
		BreakerCooldown: s.BreakerCooldown,
	})
	if err != nil {
		return nil, err
	}
	switch s.ConverterMode {
	case config.ConverterOracle:
		return oracle, nil
	case config.ConverterFallback:
		return engine.FallbackConverter{Primary: oracle, Secondary: engine.LocalConverter{}}, nil
	}
	return nil, fmt.Errorf("%s: %q", config.ErrUnknownMode, s.ConverterMode)
}

// NewEngine builds the caching converter and the engine around it. The
// cache is restored from its snapshot when one exists.
func NewEngine(s config.Settings, clock engine.Clock, tr *Translator) (*engine.Engine, *engine.Cache, error) {
	policy, err := engine.ParsePolicy(s.Policy)
	if err != nil {
		return nil, nil, err
	}
	loc, err := s.Location()
	if err != nil {
		return nil, nil, err
	}
	inner, err := NewConverter(s)
	if err != nil {
		return nil, nil, err
	}

	cache, err := engine.NewCache(s.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	if s.CacheSnapshot != "" {
		if _, err := cache.LoadFile(s.CacheSnapshot); err != nil {
			// A corrupt snapshot is dropped; the cache refills as it goes.
			slog.Warn(config.ErrCacheRestore,
				config.LogKeyComponent, config.CompApp,
				config.LogKeyFile, s.CacheSnapshot,
				config.LogKeyError, err,
			)
			cache.Purge()
		}
	}

	conv := engine.NewCachingConverter(inner, cache)
	e := &engine.Engine{
		Converter: conv,
		Projector: &engine.Projector{
			Converter:   conv,
			Policy:      policy,
			Ceiling:     s.ProjectionCeiling,
			Concurrency: s.ProjectionWorkers,
			Location:    loc,
		},
		Clock: clock,
		Count: s.ProjectionCount,
	}
	if tr != nil {
		e.FormatSummary = tr.Summary
		e.FormatDescription = tr.Description
	}
	return e, cache, nil
}

// Open builds the engine and opens the database.
func Open(s config.Settings, clock engine.Clock) (*App, error) {
	if clock == nil {
		clock = engine.RealClock{}
	}
	tr := NewTranslator(s.Language)

	eng, cache, err := NewEngine(s, clock, tr)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(s.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &App{
		Settings:   s,
		Translator: tr,
		Cache:      cache,
		Engine:     eng,
		DB:         db,
		Records:    records.NewService(db, eng, clock, s.ProjectionWorkers, tr.Tag),
		Feed:       server.NewCalendarFeed(),
		SigningKey: auth.SigningKey,
		changed:    make(chan struct{}, config.ChannelBufferSize),
	}, nil
}

// Auth builds the account service on first use, reading the signing key
// from the OS keyring.
func (a *App) Auth() (*auth.Service, error) {
	a.authOnce.Do(func() {
		key, err := a.SigningKey()
		if err != nil {
			a.authErr = err
			return
		}
		a.auth, a.authErr = auth.NewService(a.DB, key, auth.Options{
			TTL:            a.Settings.SessionTTL,
			LoginPerMinute: a.Settings.LoginPerMinute,
			Clock:          a.Engine.Clock,
		})
	})
	return a.auth, a.authErr
}

// Close persists the conversion cache and closes the database.
func (a *App) Close() error {
	var errs []error
	if a.Settings.CacheSnapshot != "" && a.Cache.Len() > 0 {
		errs = append(errs, a.Cache.SaveFile(a.Settings.CacheSnapshot))
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}

// Changed schedules a feed rebuild. Bursts of writes collapse into one.
func (a *App) Changed() {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

// NewServer builds the HTTP server on top of the app's services.
func (a *App) NewServer() (*server.Server, error) {
	authSvc, err := a.Auth()
	if err != nil {
		return nil, err
	}
	return server.New(a.Settings.Addr(), server.Deps{
		Records: a.Records,
		Auth:    authSvc,
		Engine:  a.Engine,
		Fetcher: records.NewHTTPFetcher(),
		Feed:    a.Feed,
		Labels:  a.Translator.LinkLabels(),
		Changed: a.Changed,
		Refresh: a.ManualRefresh,
	}), nil
}

// Serve runs the HTTP server and the background worker until ctx is
// cancelled or the server fails.
func (a *App) Serve(ctx context.Context) error {
	srv, err := a.NewServer()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(ctx); err != nil {
			slog.Error(config.MsgPortBusy,
				config.LogKeyComponent, config.CompApp,
				config.LogKeyPort, a.Settings.Addr(),
				config.LogKeyError, err,
			)
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.backgroundWorker(ctx)
		return nil
	})
	return g.Wait()
}
