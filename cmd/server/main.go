package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/lively-auth/identity/memprovider"
	"github.com/jrsteele09/lively-auth/internal/config"
	"github.com/jrsteele09/lively-auth/internal/logging"
	"github.com/jrsteele09/lively-auth/notify"
	"github.com/jrsteele09/lively-auth/server"
	"github.com/jrsteele09/lively-auth/token"
	fakeuserrepo "github.com/jrsteele09/lively-auth/users/repofake"
	"github.com/jrsteele09/lively-auth/verification"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %s\n", err)
		os.Exit(1)
	}
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.IsDevelopment())
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts := fakeuserrepo.NewFakeAccountRepo()
	provider, closeStores, err := newAccountAPI(ctx, c, accounts)
	if err != nil {
		return err
	}
	defer closeStores()

	generated, err := server.SeedDemoAccount(accounts, c.GetDemoEmail(), c.GetDemoPassword())
	if err != nil {
		return err
	}
	if generated != "" {
		log.Warn().Str("email", c.GetDemoEmail()).Str("password", generated).Msg("Generated demo account password, it will not be shown again")
	}

	handler, err := server.New(c, provider)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(srv)
}

// newAccountAPI wires the in-memory account API. Verification secrets live in Redis when
// REDIS_ADDR is set, otherwise in memory.
func newAccountAPI(ctx context.Context, c config.Config, accounts *fakeuserrepo.FakeAccountRepo) (*memprovider.Provider, func(), error) {
	closeStores := func() {}

	secret := c.GetTokenSecret()
	if secret == "" {
		if !c.IsDevelopment() {
			return nil, closeStores, errors.New("TOKEN_SECRET is required outside development")
		}
		secret = randomSecret()
		log.Warn().Msg("TOKEN_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	tokens, err := token.NewIssuer(secret,
		token.WithTokenExpiry(c.GetAccessTokenExpiry()),
		token.WithIssuer(c.GetBaseURL()),
	)
	if err != nil {
		return nil, closeStores, err
	}

	providerOptions := []verification.ProviderOption{verification.WithSecretTTL(c.GetVerificationTTL())}
	var secrets verification.SecretProvider
	if addr := c.GetRedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, closeStores, fmt.Errorf("redis %s: %w", addr, err)
		}
		closeStores = func() { _ = client.Close() }
		if secrets, err = verification.NewRedisProvider(client, providerOptions...); err != nil {
			return nil, closeStores, err
		}
		log.Info().Str("addr", addr).Msg("Verification secrets stored in redis")
	} else {
		secrets = verification.NewMemoryProvider(providerOptions...)
	}

	verifier, err := verification.NewIssuer(secrets)
	if err != nil {
		return nil, closeStores, err
	}
	sender, err := notify.NewFromConfig(ctx, c)
	if err != nil {
		return nil, closeStores, err
	}
	mailer, err := verification.NewMailer(verifier, sender, verification.WithStrictDelivery(c.GetStrictNotificationDelivery()))
	if err != nil {
		return nil, closeStores, err
	}

	provider, err := memprovider.New(accounts, tokens, verifier, mailer, c.GetClientOrigin())
	return provider, closeStores, err
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
