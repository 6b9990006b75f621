package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// CreateSessionHandler logs a user in and returns a fresh token pair.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds auth.Credentials
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&creds); err != nil {
			s.metrics.RecordLogin("invalid_request")
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				writeJSONError(w, "invalid_request", "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			writeJSONError(w, "invalid_request", "request body must be a JSON object with email and password", http.StatusBadRequest)
			return
		}

		pair, err := s.sessions.CreateSession(r.Context(), creds, r.UserAgent())
		if err != nil {
			s.metrics.RecordLogin(loginResult(err))
			writeServiceError(w, r, err)
			return
		}

		s.metrics.RecordLogin("ok")
		writeJSON(w, http.StatusOK, pair)
	}
}

// DeleteSessionHandler invalidates the caller's current session.
func (s *Server) DeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := AuthFromContext(r.Context())
		if err := s.sessions.InvalidateSession(r.Context(), ac.SessionID); err != nil {
			writeServiceError(w, r, err)
			return
		}

		log.Debug().Str("sessionID", ac.SessionID).Msg("session invalidated")
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  nil,
			"refreshToken": nil,
		})
	}
}

// ListSessionsHandler returns the caller's valid sessions.
func (s *Server) ListSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := AuthFromContext(r.Context())
		list, err := s.sessions.ListSessions(r.Context(), ac.User.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// MeHandler returns the caller's identity.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, AuthFromContext(r.Context()).User)
	}
}

func (s *Server) HealthcheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// PreflightHandler answers OPTIONS requests without an Origin header.
// Cross-origin preflights are answered by CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// statusFor maps service errors onto HTTP statuses. Storage failures are
// reported as 503 so clients can retry; they are never folded into 401.
func statusFor(err error) (int, string) {
	switch {
	case errs.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errs.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errs.Is(err, errs.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errs.Is(err, errs.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func loginResult(err error) string {
	_, code := statusFor(err)
	return code
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	description := http.StatusText(status)

	switch {
	case status == http.StatusBadRequest:
		description = err.Error()
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
	}
	writeJSONError(w, code, description, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
