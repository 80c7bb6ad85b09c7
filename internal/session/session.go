package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"charchat-client/internal/apiclient"
	"charchat-client/internal/models"
)

// DefaultRefreshSkew - за сколько до истечения access токен обновляется заранее.
const DefaultRefreshSkew = time.Minute

// Authenticator - методы auth API, которые нужны сессии (реализует service.AuthService).
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context, refreshToken string) error
}

// EventType - тип изменения состояния сессии.
type EventType int

const (
	EventLoggedIn EventType = iota + 1
	EventLoggedOut
	EventRefreshed
)

func (t EventType) String() string {
	switch t {
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventRefreshed:
		return "refreshed"
	}
	return "unknown"
}

// Причины выхода
const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

// Event описывает изменение состояния сессии.
type Event struct {
	Type   EventType
	User   *models.User
	Reason string
}

// Listener получает события сессии. Вызывается синхронно, не должен блокироваться надолго.
type Listener func(Event)

// Option настраивает Session.
type Option func(*Session)

// WithRefreshSkew задает запас времени для упреждающего обновления токена.
func WithRefreshSkew(d time.Duration) Option {
	return func(s *Session) { s.refreshSkew = d }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session - контекст авторизации процесса: текущий пользователь и токены в памяти,
// плюс долговременное хранилище.
type Session struct {
	store       Store
	auth        Authenticator
	logger      *zap.Logger
	refreshSkew time.Duration
	now         func() time.Time

	mu            sync.RWMutex
	user          *models.User
	authenticated bool

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New создает сессию.
func New(store Store, auth Authenticator, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		store:       store,
		auth:        auth,
		logger:      logger.Named("Session"),
		refreshSkew: DefaultRefreshSkew,
		now:         time.Now,
		listeners:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store возвращает хранилище сессии.
func (s *Session) Store() Store { return s.store }

// Subscribe регистрирует слушателя. Возвращает функцию отписки.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Session) emit(ev Event) {
	s.lmu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.lmu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// CurrentUser возвращает копию текущего пользователя или nil.
func (s *Session) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated сообщает, есть ли активная сессия в памяти.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// AccessToken возвращает текущий access токен из хранилища.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	return s.store.AccessToken(ctx)
}

// Login проверяет форму и выполняет вход. Незаполненная форма не уходит в сеть.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}
	res, err := s.auth.Login(ctx, models.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return s.establish(ctx, res)
}

// Register проверяет форму, регистрирует пользователя и сразу открывает сессию.
func (s *Session) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := ValidateRegister(req); err != nil {
		return nil, err
	}
	res, err := s.auth.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return s.establish(ctx, res)
}

func (s *Session) establish(ctx context.Context, res *models.AuthResult) (*models.User, error) {
	if res == nil || res.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty token in auth response", models.ErrTokenMalformed)
	}
	if err := s.saveTokens(ctx, res.TokenPair); err != nil {
		return nil, err
	}

	user := res.User
	if user == nil {
		me, err := s.auth.Me(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile after login: %w", err)
		}
		user = me
	}

	s.mu.Lock()
	s.user = user
	s.authenticated = true
	s.mu.Unlock()

	s.logger.Info("Session established", zap.String("userID", user.ID))
	s.emit(Event{Type: EventLoggedIn, User: user})
	return user, nil
}

func (s *Session) saveTokens(ctx context.Context, pair models.TokenPair) error {
	st, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to load session state, overwriting", zap.Error(err))
		st = State{}
	}
	st.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		st.RefreshToken = pair.RefreshToken
	}
	if err := s.store.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	return nil
}

// Restore восстанавливает сессию из хранилища при старте: при необходимости обновляет токен
// и загружает профиль. Возвращает models.ErrNoToken, если сохраненного токена нет.
func (s *Session) Restore(ctx context.Context) (*models.User, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if st.AccessToken == "" && st.RefreshToken == "" {
		return nil, models.ErrNoToken
	}
	if st.AccessToken == "" || needsRefresh(st.AccessToken, s.now(), s.refreshSkew) {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	s.mu.Lock()
	s.user = user
	s.authenticated = true
	s.mu.Unlock()
	s.emit(Event{Type: EventLoggedIn, User: user})
	return user, nil
}

// Refresh обменивает refresh токен на новую пару.
func (s *Session) Refresh(ctx context.Context) error {
	st, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if st.RefreshToken == "" {
		return models.ErrNoToken
	}
	res, err := s.auth.Refresh(ctx, st.RefreshToken)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	if res == nil || res.AccessToken == "" {
		return fmt.Errorf("%w: empty token in refresh response", models.ErrTokenMalformed)
	}
	if err := s.saveTokens(ctx, res.TokenPair); err != nil {
		return err
	}
	if res.User != nil {
		s.mu.Lock()
		s.user = res.User
		s.mu.Unlock()
	}
	s.logger.Debug("Access token refreshed")
	s.emit(Event{Type: EventRefreshed, User: s.CurrentUser()})
	return nil
}

// EnsureFresh обновляет токен, если он истекает в пределах refreshSkew.
func (s *Session) EnsureFresh(ctx context.Context) error {
	token, err := s.store.AccessToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return models.ErrNoToken
	}
	if !needsRefresh(token, s.now(), s.refreshSkew) {
		return nil
	}
	return s.Refresh(ctx)
}

// FreshAccessToken - токен для долгоживущих соединений: перед выдачей он обновляется, как в EnsureFresh.
// Если обновить токен нельзя из-за потери авторизации, сессия завершается с ReasonUnauthorized.
func (s *Session) FreshAccessToken(ctx context.Context) (string, error) {
	if err := s.EnsureFresh(ctx); err != nil {
		if authLost(err) {
			s.logger.Info("Refresh before reconnect failed, dropping session", zap.Error(err))
			s.dropAuth(ReasonUnauthorized)
		}
		return "", err
	}
	return s.store.AccessToken(ctx)
}

func authLost(err error) bool {
	return errors.Is(err, models.ErrNoToken) ||
		errors.Is(err, models.ErrUnauthorized) ||
		errors.Is(err, models.ErrTokenExpired) ||
		errors.Is(err, models.ErrTokenMalformed)
}

// Logout завершает сессию. Запрос на сервер - best effort, локальное состояние очищается всегда.
func (s *Session) Logout(ctx context.Context) error {
	st, err := s.store.Load(ctx)
	if err == nil && st.RefreshToken != "" {
		if err := s.auth.Logout(ctx, st.RefreshToken); err != nil {
			s.logger.Warn("Server logout failed, clearing local session anyway", zap.Error(err))
		}
	}
	if err := s.store.ClearTokens(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	s.dropAuth(ReasonLogout)
	return nil
}

// HandleUnauthorized - обработчик 401 для apiclient. Токен уже очищен клиентом,
// здесь сбрасывается состояние в памяти и оповещаются слушатели.
func (s *Session) HandleUnauthorized(_ context.Context, apiErr *apiclient.APIError) {
	msg := ""
	if apiErr != nil {
		msg = apiErr.Message
	}
	s.logger.Info("Session invalidated by 401", zap.String("message", msg))
	s.dropAuth(ReasonUnauthorized)
}

func (s *Session) dropAuth(reason string) {
	s.mu.Lock()
	was := s.authenticated
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()
	if was {
		s.emit(Event{Type: EventLoggedOut, Reason: reason})
	}
}

// SetLocale сохраняет предпочитаемую локаль.
func (s *Session) SetLocale(ctx context.Context, locale string) error {
	st, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	st.Locale = strings.TrimSpace(locale)
	return s.store.Save(ctx, st)
}

// Locale возвращает сохраненную локаль.
func (s *Session) Locale(ctx context.Context) string {
	return s.store.Locale(ctx)
}
