package server

import (
	"net/http"
	"strings"

	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderRefreshToken carries the refresh token on requests
	HeaderRefreshToken = "X-Refresh"
	// CookieRefreshToken is the cookie alternative to HeaderRefreshToken
	CookieRefreshToken = "refreshToken"
	// HeaderAccessToken returns a renewed access token to the client
	HeaderAccessToken = "X-Access-Token"
)

// DeserializeUser verifies the bearer access token and attaches the resulting
// AuthContext. An expired access token is renewed from the refresh token when
// its session is still valid, and the new token is sent back in
// HeaderAccessToken. It never rejects a request.
func (s *Server) DeserializeUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, outcome := s.authenticate(w, r)
		s.metrics.RecordAuthOutcome(outcome)
		if rl := requestLogFrom(r.Context()); rl != nil && ac.Present {
			rl.userID = ac.User.ID
		}
		next(w, r.WithContext(WithAuthContext(r.Context(), ac)))
	}
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (AuthContext, string) {
	accessToken := bearerToken(r)
	if accessToken == "" {
		return AuthContext{}, metrics.OutcomeEmpty
	}

	payload, err := s.tokens.VerifyAccess(accessToken)
	if err == nil {
		return AuthContext{Present: true, User: payload.User, SessionID: payload.SessionID}, metrics.OutcomeAuthenticated
	}

	if !errs.Is(err, errs.ErrTokenExpired) {
		// Tampering or client error; never renew.
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("access token rejected")
		if errs.Is(err, errs.ErrInvalidSignature) {
			return AuthContext{}, metrics.OutcomeBadSignature
		}
		return AuthContext{}, metrics.OutcomeMalformed
	}

	refreshToken := refreshTokenFrom(r)
	if refreshToken == "" {
		return AuthContext{}, metrics.OutcomeEmpty
	}

	reissued, err := s.sessions.ReissueAccessToken(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errs.IsTokenError(err):
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("refresh token rejected")
		case errs.Is(err, errs.ErrStorageUnavailable):
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("access token renewal failed")
		default:
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("access token renewal failed")
		}
		return AuthContext{}, metrics.OutcomeRenewFailed
	}

	w.Header().Set(HeaderAccessToken, reissued.AccessToken)
	return AuthContext{
		Present:   true,
		User:      reissued.Payload.User,
		SessionID: reissued.Payload.SessionID,
	}, metrics.OutcomeRenewed
}

// RequireUser responds 403 when DeserializeUser found no identity.
func (s *Server) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !AuthFromContext(r.Context()).Present {
			writeJSONError(w, "forbidden", "authentication required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	scheme, value, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

func refreshTokenFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(HeaderRefreshToken)); v != "" {
		return v
	}
	if c, err := r.Cookie(CookieRefreshToken); err == nil {
		return c.Value
	}
	return ""
}
