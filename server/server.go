// Package server exposes the session API over HTTP and hosts the
// authentication middleware that attaches the caller's identity to every API
// request.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/rs/zerolog/log"
)

// SessionService is the session lifecycle capability the handlers and the
// middleware depend on. *auth.Service implements it.
type SessionService interface {
	CreateSession(ctx context.Context, creds auth.Credentials, userAgent string) (*auth.TokenPair, error)
	ReissueAccessToken(ctx context.Context, refreshToken string) (*auth.Reissued, error)
	InvalidateSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context, userID string) ([]*sessions.Session, error)
}

// AccessVerifier checks access tokens. *token.Codec implements it.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*token.AccessPayload, error)
}

// Recorder receives request-level metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordAuthOutcome(outcome string)
	RecordLogin(result string)
	RecordRateLimited()
}

var (
	_ SessionService = (*auth.Service)(nil)
	_ AccessVerifier = (*token.Codec)(nil)
)

// Deps holds the collaborators of the Server
type Deps struct {
	Sessions       SessionService
	Tokens         AccessVerifier
	Metrics        Recorder     // Optional
	MetricsHandler http.Handler // Optional, served at /metrics
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions SessionService
	tokens   AccessVerifier
	metrics  Recorder
	limiter  *LoginLimiter
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("[Server New] session service is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[Server New] access token verifier is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		metrics:  deps.Metrics,
		limiter:  NewLoginLimiter(cfg.GetLoginRatePerMinute()),
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}

	s.initRoutes(deps.MetricsHandler)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Info().Msg(fmt.Sprintf("[%-16s] %s", colourMethod(method), path))
	}
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthOutcome(string) {}
func (noopRecorder) RecordLogin(string)       {}
func (noopRecorder) RecordRateLimited()       {}
