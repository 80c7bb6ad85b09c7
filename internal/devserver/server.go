// Package devserver - in-memory реализация REST и socket контракта charchat для локальной
// разработки и тестов клиента.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"charchat-client/internal/models"
)

const ctxUserID = "user_id"

// RequestRecord - запись о запросе, полученном сервером.
type RequestRecord struct {
	Method         string
	Path           string
	Authorization  string
	AcceptLanguage string
	RequestID      string
}

// Option настраивает Server.
type Option func(*Server)

// WithResponder задает генератор ответов персонажей.
func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithClock подменяет источник времени (токены и временные метки).
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.store.now = now
		s.tokens.now = now
	}
}

// Server - локальный бэкенд charchat.
type Server struct {
	cfg       Config
	logger    zerolog.Logger
	store     *memoryStore
	tokens    *tokenIssuer
	hub       *ConnectionManager
	responder Responder
	upgrader  websocket.Upgrader
	router    *gin.Engine
	httpSrv   *http.Server

	reqMu    sync.Mutex
	requests []RequestRecord
}

// New создает сервер. Незаполненные поля cfg получают значения по умолчанию.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Server {
	cfg.applyDefaults()
	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "devserver").Logger(),
		store:  newMemoryStore(cfg.BcryptCost),
		tokens: newTokenIssuer(&cfg),
	}
	s.store.packages = defaultPackages()
	s.hub = NewConnectionManager(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	if s.responder == nil {
		if cfg.AIAPIKey != "" {
			s.responder = NewOpenAIResponder(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, s.logger)
		} else {
			s.responder = EchoResponder{}
		}
	}
	if cfg.SeedCatalog {
		s.store.seedCatalog()
	}
	s.upgrader = s.newUpgrader()
	s.router = s.setupRouter()
	return s
}

// Handler возвращает http.Handler сервера (для httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe запускает HTTP сервер на cfg.Port.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:        ":" + s.cfg.Port,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	s.logger.Info().Str("port", s.cfg.Port).Msg("Starting HTTP server")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown закрывает WebSocket соединения и останавливает HTTP сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Close освобождает ресурсы сервера, запущенного через Handler.
func (s *Server) Close() {
	s.hub.Stop()
}

func (s *Server) setupRouter() *gin.Engine {
	if s.cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery(), s.recordRequests())

	if s.cfg.MetricsEnabled {
		p := ginprometheus.NewPrometheus("charchat_devserver")
		p.Use(router)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.cfg.GetAllowedOrigins()
	if len(corsConfig.AllowOrigins) == 0 || (len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept-Language", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.registerRoutes(router)
	return router
}

// --- middleware ---

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("requestID", c.GetHeader("X-Request-ID")).
			Msg("Request handled")
	}
}

func (s *Server) recordRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.reqMu.Lock()
		s.requests = append(s.requests, RequestRecord{
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			Authorization:  c.GetHeader("Authorization"),
			AcceptLanguage: c.GetHeader("Accept-Language"),
			RequestID:      c.GetHeader("X-Request-ID"),
		})
		s.reqMu.Unlock()
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// requireAuth проверяет access токен и кладет user_id в контекст.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			s.respondError(c, models.ErrUnauthorized)
			return
		}
		cl, err := s.tokens.verify(token, tokenTypeAccess)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if _, err := s.store.getUser(cl.Subject); err != nil {
			s.respondError(c, models.ErrUnauthorized)
			return
		}
		c.Set(ctxUserID, cl.Subject)
		c.Next()
	}
}

// optionalAuth кладет user_id в контекст, если передан валидный токен.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if cl, err := s.tokens.verify(token, tokenTypeAccess); err == nil {
				c.Set(ctxUserID, cl.Subject)
			}
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// --- ответы ---

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "internal_error", "An unexpected internal error occurred"
	var fieldErr *models.FieldError
	switch {
	case errors.As(err, &fieldErr), errors.Is(err, models.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, models.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "wrong_credentials", "Invalid email or password"
	case errors.Is(err, models.ErrTokenExpired):
		status, code, message = http.StatusUnauthorized, "token_expired", "Token has expired"
	case errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "token_invalid", "Token is invalid or missing"
	case errors.Is(err, models.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", "Access denied"
	case errors.Is(err, models.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Resource not found"
	case errors.Is(err, models.ErrConflict):
		status, code, message = http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, models.ErrInsufficientTokens):
		status, code, message = http.StatusPaymentRequired, "insufficient_tokens", "Not enough tokens"
	case errors.Is(err, ErrGenerationFailed):
		status, code, message = http.StatusBadGateway, "generation_failed", "Character is unavailable, try again later"
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled internal error")
	}
	c.AbortWithStatusJSON(status, models.Envelope{Success: false, Error: message, Code: code})
}

// --- хуки для тестов и локальной отладки ---

// PushNotification создает уведомление пользователю и отправляет его в открытые соединения.
func (s *Server) PushNotification(userID, typ, title, body string) (*models.Notification, error) {
	n, err := s.store.addNotification(userID, typ, title, body, nil)
	if err != nil {
		return nil, err
	}
	s.pushNotification(n)
	return n, nil
}

// DisconnectAll обрывает все WebSocket соединения. Возвращает число закрытых соединений.
func (s *Server) DisconnectAll() int {
	return s.hub.DisconnectAll()
}

// ConnectedUsers - число пользователей с открытым соединением.
func (s *Server) ConnectedUsers() int {
	return s.hub.ConnectedUsers()
}

// Requests возвращает копию журнала полученных запросов.
func (s *Server) Requests() []RequestRecord {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	return append([]RequestRecord(nil), s.requests...)
}

// ResetRequests очищает журнал запросов.
func (s *Server) ResetRequests() {
	s.reqMu.Lock()
	s.requests = nil
	s.reqMu.Unlock()
}

// AddBanner добавляет баннер в каталог.
func (s *Server) AddBanner(b models.Banner) models.Banner {
	return s.store.addBanner(b)
}
