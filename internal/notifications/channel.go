// Package notifications реализует канал уведомлений реального времени поверх WebSocket
// с автоматическим переподключением и HTTP fallback.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"charchat-client/internal/models"
	"charchat-client/internal/session"
)

const (
	writeWait               = 10 * time.Second
	defaultAckTimeout       = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

// TokenSource - источник access токена для рукопожатия. Вызывается перед каждым подключением,
// включая переподключения.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc позволяет использовать функцию как TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// Fallback - HTTP доступ к уведомлениям, когда сокет недоступен (service.NotificationService).
type Fallback interface {
	List(ctx context.Context, params models.ListParams, unreadOnly bool) (*models.Page[models.Notification], error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context) (int, error)
}

// SessionEvents - источник событий входа и выхода.
type SessionEvents interface {
	Subscribe(l session.Listener) (unsubscribe func())
}

// Config - параметры канала.
type Config struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	AckTimeout        time.Duration
	HandshakeTimeout  time.Duration
}

type pendingRequest struct {
	done  chan models.SocketFrame
	onAck func()
}

// Channel - клиент канала уведомлений.
// Ошибки соединения только логируются и отражаются в Status; гарантии доставки нет,
// пропущенные уведомления забираются через Fetch.
type Channel struct {
	cfg      Config
	tokens   TokenSource
	fallback Fallback
	logger   *zap.Logger
	dialer   *websocket.Dialer

	mu            sync.Mutex
	status        Status
	conn          *websocket.Conn
	gen           uint64
	stopReconnect context.CancelFunc
	pending       map[string]*pendingRequest
	cache         []models.Notification // новые первыми
	unread        int

	writeMu sync.Mutex

	lmu          sync.RWMutex
	listeners    map[int]func(Event)
	nextListener int
}

// New создает канал. fallback может быть nil, тогда без сокета операции возвращают ErrNotConnected.
func New(cfg Config, tokens TokenSource, fallback Fallback, logger *zap.Logger) *Channel {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ReconnectAttempts < 0 {
		cfg.ReconnectAttempts = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		cfg:       cfg,
		tokens:    tokens,
		fallback:  fallback,
		logger:    logger.Named("Notifications"),
		dialer:    &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		pending:   make(map[string]*pendingRequest),
		listeners: make(map[int]func(Event)),
	}
}

// Status возвращает текущее состояние соединения.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connected - true, если сокет подключен.
func (c *Channel) Connected() bool {
	return c.Status() == StatusConnected
}

// UnreadCount - локальное зеркало счетчика непрочитанных.
func (c *Channel) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// Notifications возвращает копию закэшированных уведомлений (новые первыми).
func (c *Channel) Notifications() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification(nil), c.cache...)
}

// Subscribe регистрирует обработчик событий канала.
// Обработчики вызываются синхронно из горутины чтения сокета и не должны блокироваться.
// MarkAsRead, MarkAllAsRead и Fetch ждут ack из той же горутины: из обработчика их можно вызывать только в отдельной горутине.
func (c *Channel) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.lmu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.lmu.Unlock()
	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

func (c *Channel) emit(ev Event) {
	c.lmu.RLock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.lmu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Channel) emitStatus(s Status) {
	c.emit(Event{Type: EventStatus, Status: s})
}

// BindSession подключает канал при входе и отключает при выходе (в том числе после 401).
func (c *Channel) BindSession(events SessionEvents) (unbind func()) {
	return events.Subscribe(func(ev session.Event) {
		switch ev.Type {
		case session.EventLoggedIn:
			go func() {
				if err := c.Connect(context.Background()); err != nil {
					c.logger.Warn("Failed to connect notification channel after login", zap.Error(err))
				}
			}()
		case session.EventLoggedOut:
			c.Disconnect()
			c.reset()
		}
	})
}

// Connect открывает сокет. Без токена возвращает ErrNoToken, ответ 401 при рукопожатии -
// ErrUnauthorized (потеря авторизации, переподключения не будет).
// Уже подключенный канал - nil, идущая попытка подключения - ErrNotConnected.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case StatusConnected:
		c.mu.Unlock()
		return nil
	case StatusConnecting:
		c.mu.Unlock()
		return fmt.Errorf("%w: connection attempt in progress", models.ErrNotConnected)
	}
	c.cancelReconnectLocked()
	c.status = StatusConnecting
	gen := c.gen
	c.mu.Unlock()
	c.emitStatus(StatusConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.abortConnecting(gen)
		return err
	}
	if !c.attach(conn, gen) {
		return models.ErrNotConnected
	}
	return nil
}

// Disconnect закрывает сокет и отменяет переподключение.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.cancelReconnectLocked()
	conn := c.conn
	prev := c.status
	c.conn = nil
	c.status = StatusDisconnected
	c.gen++
	pending := c.takePendingLocked()
	c.mu.Unlock()

	failPending(pending)
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	connectedGauge.Set(0)
	if prev != StatusDisconnected {
		c.logger.Info("Notification channel disconnected")
		c.emitStatus(StatusDisconnected)
	}
}

// Close - синоним Disconnect.
func (c *Channel) Close() error {
	c.Disconnect()
	return nil
}

func (c *Channel) reset() {
	c.mu.Lock()
	c.cache = nil
	c.unread = 0
	c.mu.Unlock()
}

func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil && !errors.Is(err, models.ErrNoToken) {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if token == "" {
		return nil, models.ErrNoToken
	}

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid notification socket URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == 401 {
			return nil, fmt.Errorf("%w: notification socket handshake rejected", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to connect notification socket: %w", err)
	}
	return conn, nil
}

// attach делает conn текущим соединением, если с момента начала подключения не было Disconnect.
func (c *Channel) attach(conn *websocket.Conn, gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen || c.status != StatusConnecting {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.gen++
	myGen := c.gen
	c.conn = conn
	c.status = StatusConnected
	c.mu.Unlock()

	connectedGauge.Set(1)
	c.logger.Info("Notification channel connected")
	c.emitStatus(StatusConnected)
	go c.readLoop(conn, myGen)
	return true
}

func (c *Channel) abortConnecting(gen uint64) {
	c.mu.Lock()
	changed := c.gen == gen && c.status == StatusConnecting
	if changed {
		c.status = StatusDisconnected
	}
	c.mu.Unlock()
	if changed {
		c.emitStatus(StatusDisconnected)
	}
}

func (c *Channel) cancelReconnectLocked() {
	if c.stopReconnect != nil {
		c.stopReconnect()
		c.stopReconnect = nil
	}
}

func (c *Channel) takePendingLocked() map[string]*pendingRequest {
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	return pending
}

func failPending(pending map[string]*pendingRequest) {
	for _, p := range pending {
		close(p.done)
	}
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(gen, err)
			return
		}
		var frame models.SocketFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("Malformed frame from server (ignored)", zap.Error(err))
			continue
		}
		receivedTotal.WithLabelValues(frame.Event).Inc()
		c.dispatch(frame)
	}
}

// handleDrop обрабатывает неожиданный обрыв: состояние disconnected и ограниченное число попыток переподключения.
func (c *Channel) handleDrop(gen uint64, cause error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusDisconnected
	pending := c.takePendingLocked()
	var ctx context.Context
	if c.cfg.ReconnectAttempts > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		c.stopReconnect = cancel
	}
	c.mu.Unlock()

	failPending(pending)
	connectedGauge.Set(0)
	c.logger.Warn("Notification channel dropped", zap.Error(cause))
	c.emitStatus(StatusDisconnected)
	if ctx != nil {
		go c.reconnectLoop(ctx, gen)
	}
}

func (c *Channel) reconnectLoop(ctx context.Context, gen uint64) {
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		c.mu.Lock()
		if ctx.Err() != nil || c.gen != gen || c.status != StatusDisconnected {
			c.mu.Unlock()
			return
		}
		c.status = StatusConnecting
		c.mu.Unlock()
		c.emitStatus(StatusConnecting)

		conn, err := c.dial(ctx)
		if err == nil {
			if c.attach(conn, gen) {
				reconnectsTotal.Inc()
				c.logger.Info("Notification channel reconnected", zap.Int("attempt", attempt))
			}
			return
		}
		c.abortConnecting(gen)
		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrNoToken) {
			c.logger.Warn("Authentication lost, not reconnecting", zap.Error(err))
			return
		}
		c.logger.Warn("Reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", c.cfg.ReconnectAttempts),
			zap.Error(err))
	}
	c.logger.Error("Giving up reconnecting notification channel", zap.Int("attempts", c.cfg.ReconnectAttempts))
}

func (c *Channel) dispatch(frame models.SocketFrame) {
	switch frame.Event {
	case models.EventUnreadCount:
		var uc models.UnreadCount
		if err := json.Unmarshal(frame.Data, &uc); err != nil {
			c.logger.Warn("Bad unreadCount payload", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.unread = uc.Count
		c.mu.Unlock()
		c.emit(Event{Type: EventUnreadCount, UnreadCount: uc.Count})

	case models.EventNewNotification:
		var p models.NewNotificationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.logger.Warn("Bad newNotification payload", zap.Error(err))
			return
		}
		n := p.Notification
		c.mu.Lock()
		known := false
		for i := range c.cache {
			if c.cache[i].ID == n.ID {
				known = true
				break
			}
		}
		if !known {
			c.cache = append([]models.Notification{n}, c.cache...)
			if !n.IsRead {
				c.unread++
			}
		}
		unread := c.unread
		c.mu.Unlock()
		c.emit(Event{Type: EventNotification, Notification: &n})
		c.emit(Event{Type: EventUnreadCount, UnreadCount: unread})

	case models.EventAck:
		c.mu.Lock()
		p, ok := c.pending[frame.ID]
		if ok {
			delete(c.pending, frame.ID)
		}
		c.mu.Unlock()
		if !ok {
			return
		}
		// Зеркалирование применяется до разбора следующих кадров, чтобы снимок счетчика сервера шел после него.
		if frame.Error == "" && p.onAck != nil {
			p.onAck()
		}
		p.done <- frame

	default:
		c.logger.Debug("Unknown event from server", zap.String("event", frame.Event))
	}
}

// request отправляет запрос через сокет и ждет ack с тем же id.
func (c *Channel) request(ctx context.Context, event string, payload any, onAck func()) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if c.status != StatusConnected || conn == nil {
		c.mu.Unlock()
		return nil, models.ErrNotConnected
	}
	id := uuid.NewString()
	p := &pendingRequest{done: make(chan models.SocketFrame, 1), onAck: onAck}
	c.pending[id] = p
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := encodeFrame(event, id, payload)
	if err != nil {
		return nil, err
	}
	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotConnected, err)
	}

	timer := time.NewTimer(c.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case frame, ok := <-p.done:
		if !ok {
			return nil, models.ErrNotConnected
		}
		if frame.Error != "" {
			return nil, &AckError{Event: event, Message: frame.Error}
		}
		return frame.Data, nil
	case <-timer.C:
		return nil, errAckTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Channel) useFallback(err error) bool {
	if c.fallback == nil {
		return false
	}
	return errors.Is(err, models.ErrNotConnected) || errors.Is(err, errAckTimeout)
}

// MarkAsRead помечает уведомление прочитанным через сокет или, если он недоступен, через HTTP.
func (c *Channel) MarkAsRead(ctx context.Context, notificationID string) error {
	if strings.TrimSpace(notificationID) == "" {
		return models.Required("notification id")
	}
	_, err := c.request(ctx, models.EventMarkAsRead, models.MarkAsReadPayload{ID: notificationID},
		func() { c.applyMarkRead(notificationID) })
	if err == nil {
		return nil
	}
	if !c.useFallback(err) {
		return err
	}
	c.logger.Debug("Socket unavailable, marking notification read over HTTP", zap.Error(err))
	if err := c.fallback.MarkRead(ctx, notificationID); err != nil {
		return err
	}
	c.applyMarkRead(notificationID)
	return nil
}

// MarkAllAsRead помечает все уведомления прочитанными.
func (c *Channel) MarkAllAsRead(ctx context.Context) error {
	_, err := c.request(ctx, models.EventMarkAllAsRead, struct{}{}, c.applyMarkAll)
	if err == nil {
		return nil
	}
	if !c.useFallback(err) {
		return err
	}
	c.logger.Debug("Socket unavailable, marking all notifications read over HTTP", zap.Error(err))
	if _, err := c.fallback.MarkAllRead(ctx); err != nil {
		return err
	}
	c.applyMarkAll()
	return nil
}

// Fetch загружает страницу уведомлений и обновляет кэш. Первая страница заменяет кэш.
func (c *Channel) Fetch(ctx context.Context, page, limit int) (*models.Page[models.Notification], error) {
	params := models.ListParams{Page: page, Limit: limit}.Normalize()
	var result models.Page[models.Notification]

	data, err := c.request(ctx, models.EventGetNotifications,
		models.FetchNotificationsPayload{Page: params.Page, Limit: params.Limit}, nil)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("invalid notifications payload: %w", err)
		}
	case c.useFallback(err):
		p, ferr := c.fallback.List(ctx, params, false)
		if ferr != nil {
			return nil, ferr
		}
		result = *p
	default:
		return nil, err
	}

	c.mergeCache(result.Items, params.Page == 1)
	return &result, nil
}

// SyncUnreadCount запрашивает счетчик по HTTP. Используется, когда сокет недоступен.
func (c *Channel) SyncUnreadCount(ctx context.Context) (int, error) {
	if c.fallback == nil {
		return 0, models.ErrNotConnected
	}
	count, err := c.fallback.UnreadCount(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.unread = count
	c.mu.Unlock()
	c.emit(Event{Type: EventUnreadCount, UnreadCount: count})
	return count, nil
}

func (c *Channel) applyMarkRead(id string) {
	c.mu.Lock()
	found, wasUnread := false, false
	for i := range c.cache {
		if c.cache[i].ID == id {
			found = true
			wasUnread = !c.cache[i].IsRead
			c.cache[i].IsRead = true
			break
		}
	}
	if (!found || wasUnread) && c.unread > 0 {
		c.unread--
	}
	unread := c.unread
	c.mu.Unlock()
	c.emit(Event{Type: EventUnreadCount, UnreadCount: unread})
}

func (c *Channel) applyMarkAll() {
	c.mu.Lock()
	for i := range c.cache {
		c.cache[i].IsRead = true
	}
	c.unread = 0
	c.mu.Unlock()
	c.emit(Event{Type: EventUnreadCount, UnreadCount: 0})
}

func (c *Channel) mergeCache(items []models.Notification, replace bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if replace {
		c.cache = append([]models.Notification(nil), items...)
		return
	}
	seen := make(map[string]struct{}, len(c.cache))
	for _, n := range c.cache {
		seen[n.ID] = struct{}{}
	}
	for _, n := range items {
		if _, ok := seen[n.ID]; !ok {
			c.cache = append(c.cache, n)
		}
	}
}
