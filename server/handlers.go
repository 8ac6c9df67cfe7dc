package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/lively-auth/identity"
	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 64 << 10

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"app":    s.config.GetAppName(),
		})
	}
}

// LoginHandler exchanges credentials for the user and a bearer token
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds users.Credentials
		if !decodeBody(w, r, &creds) {
			return
		}

		user, err := s.accounts.Authenticate(r.Context(), creds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// RegisterHandler creates an unverified account and sends its verification email
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds users.Credentials
		if !decodeBody(w, r, &creds) {
			return
		}

		if err := s.accounts.Register(r.Context(), creds); err != nil {
			if errors.Is(err, apperrors.ErrInvalidCredentials) {
				writeErrorCode(w, http.StatusBadRequest, err.Error(), identity.CodeInvalidCredentials)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{
			"message": "Registration successful - please check your email to verify your account",
		})
	}
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.accounts.CurrentUser(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.accounts.Refresh(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// VerifyEmailHandler redeems ?token=&email=
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		email := r.URL.Query().Get("email")
		if token == "" || email == "" {
			writeErrorCode(w, http.StatusBadRequest, "token and email are required", identity.CodeTokenUnknown)
			return
		}

		if err := s.accounts.VerifyEmail(r.Context(), token, email); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Email confirmed - you can now login"})
	}
}

// ResendVerificationHandler issues a new link for ?email=, revoking the old one
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			writeErrorCode(w, http.StatusBadRequest, "email is required", "")
			return
		}

		if err := s.accounts.ResendVerification(r.Context(), email); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Email verification link resent"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid request body", "")
		return false
	}
	return true
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUserExists), errors.Is(err, apperrors.ErrTokenAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUserUnverified):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidCredentials), errors.Is(err, apperrors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, apperrors.ErrTokenUnknown):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Err(err).Msg("Unhandled account API error")
		message = "internal server error"
	}
	writeErrorCode(w, status, message, identity.CodeFor(err))
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, identity.ErrorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}
