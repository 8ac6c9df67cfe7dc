// Command client drives the Lively session core against the account API.
//
//	client [flags] register <email> <password> <username> <display name>
//	client [flags] verify <token> <email>
//	client [flags] resend <email>
//	client [flags] login <email> <password>
//	client [flags] whoami
//	client [flags] watch
//	client [flags] logout
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/lively-auth/auth"
	"github.com/jrsteele09/lively-auth/identity"
	"github.com/jrsteele09/lively-auth/internal/config"
	"github.com/jrsteele09/lively-auth/internal/logging"
	"github.com/jrsteele09/lively-auth/scheduler"
	"github.com/jrsteele09/lively-auth/sessions"
	"github.com/jrsteele09/lively-auth/storage"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

type options struct {
	apiURL   string
	folder   string
	redis    string
	logLevel string
	pretty   bool
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %s\n", err)
		os.Exit(1)
	}
	c := config.New()

	opts := options{}
	flag.StringVarP(&opts.apiURL, "api", "a", c.GetBaseURL(), "account API base URL")
	flag.StringVarP(&opts.folder, "data", "d", c.GetDataFolder(), "folder the session token is persisted in")
	flag.StringVar(&opts.redis, "redis", c.GetRedisAddr(), "persist the session token in redis at this address instead of a file")
	flag.StringVar(&opts.logLevel, "log-level", c.GetLogLevel(), "log level")
	flag.BoolVar(&opts.pretty, "pretty", true, "human readable logs")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: client [flags] register|verify|resend|login|whoami|watch|logout [args]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logging.Setup(opts.logLevel, opts.pretty)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, opts, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Error().Err(err).Msg(flag.Arg(0) + " failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, c config.Config, opts options, command string, args []string) error {
	api, err := identity.NewHTTPClient(opts.apiURL)
	if err != nil {
		return err
	}

	store, closeStore, err := newTokenStorage(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(scheduler.WithSkew(c.GetRefreshSkew()))
	session, err := sessions.New(store, sched)
	if err != nil {
		return err
	}
	session.Subscribe(func(s sessions.Session) {
		if s.LoggedIn() {
			if fireAt, ok := sched.FireAt(); ok {
				log.Info().Str("user", s.User.Username).Time("refreshAt", fireAt).Msg("Session active")
			}
			return
		}
		log.Info().Msg("Signed out")
	})

	controller, err := auth.NewController(api, session,
		auth.WithRefreshTimeout(c.GetRefreshTimeout()),
		auth.WithNavigator(auth.NavigatorFunc(func(path string) {
			log.Debug().Str("path", path).Msg("Navigate")
		})),
		auth.WithNotifier(func(err error) {
			log.Warn().Err(err).Msg("Your session has ended, please log in again")
		}),
	)
	if err != nil {
		return err
	}
	controller.Start(ctx)

	switch command {
	case "register":
		if len(args) != 4 {
			return errors.New("register needs <email> <password> <username> <display name>")
		}
		if err := controller.Register(ctx, users.Credentials{Email: args[0], Password: args[1], Username: args[2], DisplayName: args[3]}); err != nil {
			return err
		}
		fmt.Println("Registered, check your email for the verification link")
		return nil

	case "verify":
		if len(args) != 2 {
			return errors.New("verify needs <token> <email>")
		}
		if err := api.VerifyEmail(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Email verified, you can now log in")
		return nil

	case "resend":
		if len(args) != 1 {
			return errors.New("resend needs <email>")
		}
		return api.ResendVerification(ctx, args[0])

	case "login":
		if len(args) != 2 {
			return errors.New("login needs <email> <password>")
		}
		user, err := controller.Login(ctx, users.Credentials{Email: args[0], Password: args[1]})
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", user.DisplayName, user.Email)
		return nil

	case "whoami":
		if err := controller.Restore(ctx); err != nil {
			return err
		}
		current := session.Current()
		if !current.LoggedIn() {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("%s (%s)\n", current.User.DisplayName, current.User.Email)
		return nil

	case "watch":
		if err := controller.Restore(ctx); err != nil {
			return err
		}
		if !session.IsLoggedIn() {
			return errors.New("not logged in")
		}
		log.Info().Msg("Keeping the session alive, press Ctrl+C to stop")
		<-ctx.Done()
		sched.Cancel()
		return nil

	case "logout":
		controller.Logout(ctx)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func newTokenStorage(ctx context.Context, opts options) (storage.Storage, func(), error) {
	if opts.redis == "" {
		s, err := storage.NewFile(opts.folder)
		return s, func() {}, err
	}

	client := redis.NewClient(&redis.Options{Addr: opts.redis})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", opts.redis, err)
	}
	s, err := storage.NewRedis(client)
	return s, func() { _ = client.Close() }, err
}
