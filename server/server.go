// Package server is a small JSON account API exposing exactly the calls the
// Lively session core makes: login, register, current user, token refresh and
// email verification.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/lively-auth/internal/config"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AccountAPI is the identity provider behind the routes. *memprovider.Provider satisfies it.
type AccountAPI interface {
	Authenticate(ctx context.Context, creds users.Credentials) (*users.User, error)
	Register(ctx context.Context, creds users.Credentials) error
	Refresh(ctx context.Context, token string) (*users.User, error)
	CurrentUser(ctx context.Context, token string) (*users.User, error)
	VerifyEmail(ctx context.Context, encodedToken, email string) error
	ResendVerification(ctx context.Context, email string) error
}

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	accounts AccountAPI
}

func New(cfg config.Config, accounts AccountAPI) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if accounts == nil {
		return nil, errors.New("[Server New] account api is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		accounts: accounts,
	}
	s.initRoutes()
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

func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if !s.config.IsDevelopment() {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

// logRoute prints a colourised method and path to the development console
func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s%s%s] %s", color, paddedMethod, ResetColor, path)
}
