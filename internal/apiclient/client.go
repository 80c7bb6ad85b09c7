package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// TokenStore - локальное хранилище токена (аналог localStorage в браузере).
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	ClearTokens(ctx context.Context) error
}

// LocaleSource - необязательный источник предпочитаемой локали для Accept-Language.
type LocaleSource interface {
	Locale(ctx context.Context) string
}

// UnauthorizedHandler вызывается после того, как 401 ответ очистил сохраненный токен.
type UnauthorizedHandler func(ctx context.Context, apiErr *APIError)

// Config - параметры HTTP клиента.
type Config struct {
	BaseURL   string
	Timeout   time.Duration // 0 - без явного таймаута
	UserAgent string
}

// Client - обертка над http.Client: добавляет bearer токен, разворачивает
// конверт {success, data} и обрабатывает 401 как принудительный выход.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tokens     TokenStore
	logger     *zap.Logger

	mu             sync.RWMutex
	onUnauthorized []UnauthorizedHandler
}

// New создает новый клиент REST API.
func New(cfg Config, tokens TokenStore, logger *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for api client: %w", err)
	}
	if tokens == nil {
		return nil, errors.New("token store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "charchat-client"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		logger:     logger.Named("APIClient"),
	}, nil
}

// BaseURL возвращает адрес API без завершающего слэша.
func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized регистрирует обработчик "редиректа на логин".
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, h)
}

// Get выполняет GET запрос и декодирует data в out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post выполняет POST запрос с JSON телом.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put выполняет PUT запрос с JSON телом.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch выполняет PATCH запрос с JSON телом.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete выполняет DELETE запрос.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do выполняет JSON запрос. body == nil означает запрос без тела, out == nil - ответ игнорируется.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("internal error marshalling request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// Upload отправляет файл как multipart/form-data в поле field.
func (c *Client) Upload(ctx context.Context, path, field, fileName string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		return fmt.Errorf("internal error creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("internal error closing multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("internal error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())

	// Токен читается из хранилища на каждый запрос
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		c.logger.Warn("Failed to read access token from store", zap.Error(err))
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if ls, ok := c.tokens.(LocaleSource); ok {
		if locale := ls.Locale(ctx); locale != "" {
			req.Header.Set("Accept-Language", locale)
		}
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	requestID := req.Header.Get(requestIDHeader)
	log := c.logger.With(
		zap.String("method", req.Method),
		zap.String("url", req.URL.Path),
		zap.String("requestID", requestID),
	)

	log.Debug("Sending API request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, "error").Inc()
		log.Error("HTTP request failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("request to api timed out: %w", err)
		}
		return fmt.Errorf("failed to communicate with api: %w", err)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return fmt.Errorf("failed to read api response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		apiErr := errorFromBody(resp.StatusCode, respBody, requestID)
		log.Warn("Received 401, clearing stored token", zap.String("message", apiErr.Message))
		c.handleUnauthorized(req.Context(), apiErr)
		return apiErr
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := errorFromBody(resp.StatusCode, respBody, requestID)
		log.Warn("Received error response from api", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return apiErr
	}

	if err := unwrapEnvelope(resp.StatusCode, respBody, requestID, out); err != nil {
		log.Error("Failed to decode api response", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody), zap.Error(err))
		return err
	}
	return nil
}

// handleUnauthorized очищает токен и вызывает все обработчики. Это побочный эффект
// на весь клиент, а не восстанавливаемая ошибка.
func (c *Client) handleUnauthorized(ctx context.Context, apiErr *APIError) {
	unauthorizedTotal.Inc()
	// Очищаем токен даже если контекст запроса уже отменен
	clearCtx := context.WithoutCancel(ctx)
	if err := c.tokens.ClearTokens(clearCtx); err != nil {
		c.logger.Error("Failed to clear stored tokens after 401", zap.Error(err))
	}

	c.mu.RLock()
	handlers := make([]UnauthorizedHandler, len(c.onUnauthorized))
	copy(handlers, c.onUnauthorized)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(clearCtx, apiErr)
	}
}
