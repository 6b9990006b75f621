package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/sessions/memstore"
	"github.com/jrsteele09/go-session-auth/sessions/pgstore"
	"github.com/jrsteele09/go-session-auth/sessions/redisstore"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/memrepo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// app owns everything built at startup that must be released at shutdown.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, c config.Config) (_ *app, returnError error) {
	a := &app{}
	defer func() {
		if returnError != nil {
			a.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// The signing key is read once here and never again.
	signer, err := token.NewSignerFromConfig(c)
	if err != nil {
		return nil, err
	}
	codec, err := token.NewCodec(signer, c.GetIssuer(), c.GetClockSkew())
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	store = sessions.WithTimeout(sessions.WithRecorder(store, collector), c.GetStoreTimeout())

	userRepo := memrepo.New()
	if seed := c.GetSeedUser(); seed.Enabled() {
		u, err := users.Seed(ctx, userRepo, seed.Email, seed.Password, seed.Name, c.GetBcryptCost())
		if err != nil {
			return nil, err
		}
		log.Info().Str("email", u.Email).Msg("seed user provisioned")
	} else {
		log.Warn().Msg("no seed user configured; logins will fail until users exist")
	}

	service, err := auth.NewService(auth.Deps{
		Users:    users.NewVerifier(userRepo),
		Sessions: store,
		Codec:    codec,
	}, auth.Config{
		AccessTTL:  c.GetAccessTokenTTL(),
		RefreshTTL: c.GetRefreshTokenTTL(),
	})
	if err != nil {
		return nil, err
	}

	srv, err := server.New(c, server.Deps{
		Sessions:       service,
		Tokens:         codec,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
	})
	if err != nil {
		return nil, err
	}
	a.handler = srv
	return a, nil
}

func (a *app) openStore(ctx context.Context, c config.Config) (sessions.Store, error) {
	switch c.GetSessionStore() {
	case config.StorePostgres:
		if err := pgstore.Migrate(c.GetDatabaseURL(), "up"); err != nil {
			return nil, fmt.Errorf("session store migrations: %w", err)
		}
		pool, err := pgstore.Open(ctx, c.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		log.Info().Msg("session store: postgres")
		return pgstore.New(pool)

	case config.StoreRedis:
		store, err := redisstore.New(ctx, redisstore.Config{
			Addr:      c.GetRedisAddr(),
			KeyPrefix: c.GetRedisKeyPrefix(),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		log.Info().Str("addr", c.GetRedisAddr()).Msg("session store: redis")
		return store, nil

	default:
		log.Info().Msg("session store: memory")
		return memstore.New(), nil
	}
}
