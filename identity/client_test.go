package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/lively-auth/identity"
	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler) *identity.HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := identity.NewHTTPClient(srv.URL, identity.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+identity.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var creds users.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Empty(t, r.Header.Get("Authorization"))

		switch creds.Password {
		case "Password123":
			writeJSON(w, http.StatusOK, users.User{ID: "u1", Email: creds.Email, Token: "a.b.c"})
		case "Unverified1":
			writeJSON(w, http.StatusForbidden, identity.ErrorResponse{Error: "verify your email", Code: identity.CodeUnverified})
		default:
			writeJSON(w, http.StatusUnauthorized, identity.ErrorResponse{Error: "invalid", Code: identity.CodeInvalidCredentials})
		}
	})
	client := newTestClient(t, mux)

	user, err := client.Authenticate(ctx, users.Credentials{Email: "bob@test.com", Password: "Password123"})
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "a.b.c", user.Token)

	_, err = client.Authenticate(ctx, users.Credentials{Email: "bob@test.com", Password: "nope"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = client.Authenticate(ctx, users.Credentials{Email: "bob@test.com", Password: "Unverified1"})
	require.ErrorIs(t, err, apperrors.ErrUserUnverified)

	_, err = client.Authenticate(ctx, users.Credentials{Email: "bob@test.com"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "validated before any request")
}

func TestBearerCalls(t *testing.T) {
	ctx := context.Background()
	var authHeaders []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+identity.PathCurrentUser, func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, users.User{ID: "u1", Token: "current"})
	})
	mux.HandleFunc("POST "+identity.PathRefreshToken, func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, identity.ErrorResponse{Error: "expired"})
			return
		}
		writeJSON(w, http.StatusOK, users.User{ID: "u1", Token: "renewed"})
	})
	client := newTestClient(t, mux)

	user, err := client.CurrentUser(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, "current", user.Token)

	user, err = client.Refresh(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, "renewed", user.Token)

	_, err = client.Refresh(ctx, "stale")
	require.ErrorIs(t, err, apperrors.ErrAuth, "401 without a code is an auth error")

	require.Equal(t, []string{"Bearer good", "Bearer good", "Bearer stale"}, authHeaders)
}

func TestVerification(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+identity.PathVerifyEmail, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "a b@x.com", r.URL.Query().Get("email"))
		switch r.URL.Query().Get("token") {
		case "fresh":
			w.WriteHeader(http.StatusNoContent)
		case "used":
			writeJSON(w, http.StatusConflict, identity.ErrorResponse{Error: "used", Code: identity.CodeTokenUsed})
		case "old":
			writeJSON(w, http.StatusGone, identity.ErrorResponse{Error: "expired", Code: identity.CodeTokenExpired})
		default:
			writeJSON(w, http.StatusBadRequest, identity.ErrorResponse{Error: "unknown", Code: identity.CodeTokenUnknown})
		}
	})
	mux.HandleFunc("GET "+identity.PathResendVerification, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "a b@x.com", r.URL.Query().Get("email"))
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.VerifyEmail(ctx, "fresh", "a b@x.com"))
	require.ErrorIs(t, client.VerifyEmail(ctx, "used", "a b@x.com"), apperrors.ErrTokenAlreadyUsed)
	require.ErrorIs(t, client.VerifyEmail(ctx, "old", "a b@x.com"), apperrors.ErrTokenExpired)
	require.ErrorIs(t, client.VerifyEmail(ctx, "???", "a b@x.com"), apperrors.ErrTokenUnknown)
	require.NoError(t, client.ResendVerification(ctx, "a b@x.com"))
}

func TestServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := identity.NewHTTPClient(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = client.Refresh(context.Background(), "tok")
	require.ErrorIs(t, err, apperrors.ErrAuth)
}

func TestCodes(t *testing.T) {
	err := apperrors.Wrapf(apperrors.ErrTokenExpired, "redeem")
	require.Equal(t, identity.CodeTokenExpired, identity.CodeFor(err))
	require.ErrorIs(t, identity.ErrorFor(identity.CodeTokenExpired), apperrors.ErrTokenExpired)
	require.Nil(t, identity.ErrorFor("nope"))
	require.Empty(t, identity.CodeFor(context.Canceled))
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	_, err := identity.NewHTTPClient("not a url")
	require.Error(t, err)
}
