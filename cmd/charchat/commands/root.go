package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"charchat-client/internal/apiclient"
	"charchat-client/internal/config"
	"charchat-client/internal/logger"
	"charchat-client/internal/models"
	"charchat-client/internal/notifications"
	"charchat-client/internal/service"
	"charchat-client/internal/session"
)

const loginHint = `session expired, run "charchat login"`

var errNotLoggedIn = errors.New(`not logged in, run "charchat login"`)

// app - зависимости, собранные в PersistentPreRunE.
type app struct {
	out    io.Writer
	errOut io.Writer
	outMu  sync.Mutex

	configPath string
	profile    string
	apiURL     string
	jsonOutput bool

	cfg     *config.Config
	logger  *zap.Logger
	store   session.Store
	api     *apiclient.Client
	svcs    *service.Services
	sess    *session.Session
	closers []func() error

	// Во время login/register 401 означает неверные данные, а не истекшую сессию.
	quietUnauthorized atomic.Bool
}

// Execute запускает CLI. Ошибка команды печатается одной строкой в stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Stdout, os.Stderr, os.Args[1:])
}

func run(ctx context.Context, out, errOut io.Writer, args []string) error {
	a := &app{out: out, errOut: errOut}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error: "+describeError(err))
		return err
	}
	return nil
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "charchat",
		Short:         "Chat with AI characters from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $CHARCHAT_CONFIG or ~/.charchat/config.yml)")
	root.PersistentFlags().StringVar(&a.profile, "profile", "", "session profile name")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "API base URL (overrides config)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print raw JSON instead of tables")

	root.AddCommand(
		a.loginCmd(), a.registerCmd(), a.logoutCmd(), a.whoamiCmd(), a.localeCmd(),
		a.charactersCmd(), a.chatCmd(), a.tokensCmd(), a.subscriptionCmd(),
		a.notificationsCmd(), a.bannersCmd(), a.personasCmd(), a.worldsCmd(),
		a.imagesCmd(), a.profileCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.profile != "" {
		cfg.Session.Profile = a.profile
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	a.cfg = cfg

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		return err
	}
	a.logger = log
	a.closers = append(a.closers, func() error {
		_ = log.Sync()
		return nil
	})

	switch cfg.Session.Backend {
	case "redis":
		rs, err := session.NewRedisStoreFromURL(ctx, cfg.Session.RedisURL, cfg.Session.Profile)
		if err != nil {
			return err
		}
		a.store = rs
		a.closers = append(a.closers, rs.Close)
	default:
		fs, err := session.NewFileStore(cfg.Session.Dir, cfg.Session.Profile)
		if err != nil {
			return err
		}
		a.store = fs
	}

	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: "charchat-cli",
	}, a.store, log)
	if err != nil {
		return err
	}
	a.api = api
	a.svcs = service.NewServices(api)
	a.sess = session.New(a.store, a.svcs.Auth, log)

	api.OnUnauthorized(func(ctx context.Context, apiErr *apiclient.APIError) {
		a.sess.HandleUnauthorized(ctx, apiErr)
		if !a.quietUnauthorized.Load() {
			fmt.Fprintln(a.errOut, loginHint)
		}
	})
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// requireAuth обновляет access токен при необходимости. Без сохраненной сессии - errNotLoggedIn.
func (a *app) requireAuth(ctx context.Context) error {
	err := a.sess.EnsureFresh(ctx)
	if errors.Is(err, models.ErrNoToken) {
		return errNotLoggedIn
	}
	return err
}

// currentUser восстанавливает сессию и возвращает профиль.
func (a *app) currentUser(ctx context.Context) (*models.User, error) {
	user, err := a.sess.Restore(ctx)
	if errors.Is(err, models.ErrNoToken) {
		return nil, errNotLoggedIn
	}
	return user, err
}

// optionalAuth - для публичных команд: токен обновляется, если он есть.
func (a *app) optionalAuth(ctx context.Context) {
	if err := a.sess.EnsureFresh(ctx); err != nil && !errors.Is(err, models.ErrNoToken) {
		a.logger.Debug("Continuing without a fresh token", zap.Error(err))
	}
}

// notificationChannel создает канал, который перед каждым подключением обновляет access токен.
func (a *app) notificationChannel() *notifications.Channel {
	return notifications.New(notifications.Config{
		URL:               a.cfg.API.WebSocketURL(),
		ReconnectAttempts: a.cfg.Notifications.ReconnectAttempts,
		ReconnectDelay:    a.cfg.Notifications.ReconnectDelay,
		AckTimeout:        a.cfg.Notifications.AckTimeout,
	}, notifications.TokenSourceFunc(a.sess.FreshAccessToken), a.svcs.Notifications, a.logger)
}

// describeError превращает ошибку в однострочное сообщение для пользователя.
func describeError(err error) string {
	var fieldErr *models.FieldError
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, errNotLoggedIn):
		return errNotLoggedIn.Error()
	case errors.As(err, &fieldErr):
		return fieldErr.Field + " " + fieldErr.Reason
	case errors.Is(err, models.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, models.ErrInsufficientTokens):
		return `not enough tokens, buy more with "charchat tokens buy"`
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}
