package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"charchat-client/internal/apiclient"
	"charchat-client/internal/devserver"
	"charchat-client/internal/models"
	"charchat-client/internal/service"
	"charchat-client/internal/session"
)

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) AccessToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) ClearTokens(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

type backend struct {
	srv    *devserver.Server
	url    string
	wsURL  string
	tokens *memTokens
	svcs   *service.Services
	user   *models.User
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	srv := devserver.New(devserver.Config{JWTSecret: "test-secret"}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	tokens := &memTokens{}
	api, err := apiclient.New(apiclient.Config{BaseURL: ts.URL}, tokens, zap.NewNop())
	require.NoError(t, err)
	svcs := service.NewServices(api)

	res, err := svcs.Auth.Register(context.Background(), models.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)
	tokens.token = res.AccessToken

	return &backend{
		srv:    srv,
		url:    ts.URL,
		wsURL:  "ws" + strings.TrimPrefix(ts.URL, "http") + "/notifications",
		tokens: tokens,
		svcs:   svcs,
		user:   res.User,
	}
}

func (b *backend) channel(attempts int) *Channel {
	return New(Config{
		URL:               b.wsURL,
		ReconnectAttempts: attempts,
		ReconnectDelay:    20 * time.Millisecond,
		AckTimeout:        2 * time.Second,
	}, b.tokens, b.svcs.Notifications, zap.NewNop())
}

func (b *backend) push(t *testing.T, n int) []*models.Notification {
	t.Helper()
	out := make([]*models.Notification, 0, n)
	for i := 0; i < n; i++ {
		note, err := b.srv.PushNotification(b.user.ID, models.NotificationSystem, "Hello", "body")
		require.NoError(t, err)
		out = append(out, note)
	}
	return out
}

const waitFor = 3 * time.Second
const tick = 10 * time.Millisecond

func TestConnect_NoTokenFails(t *testing.T) {
	b := newBackend(t)
	b.tokens.token = ""
	ch := b.channel(3)

	err := ch.Connect(context.Background())

	assert.ErrorIs(t, err, models.ErrNoToken)
	assert.Equal(t, StatusDisconnected, ch.Status())
	assert.Zero(t, b.srv.ConnectedUsers())
}

func TestConnect_HandshakeRejectedIsAuthLoss(t *testing.T) {
	b := newBackend(t)
	b.tokens.token = "not-a-jwt"
	ch := b.channel(3)

	err := ch.Connect(context.Background())

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, StatusDisconnected, ch.Status())
}

func TestConnect_ReceivesPushedNotifications(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(0)
	t.Cleanup(ch.Disconnect)

	var received atomic.Int32
	ch.Subscribe(func(ev Event) {
		if ev.Type == EventNotification {
			received.Add(1)
		}
	})

	require.NoError(t, ch.Connect(context.Background()))
	assert.True(t, ch.Connected())

	pushed := b.push(t, 2)

	require.Eventually(t, func() bool { return ch.UnreadCount() == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return received.Load() == 2 }, waitFor, tick)
	cached := ch.Notifications()
	require.Len(t, cached, 2)
	assert.Equal(t, pushed[1].ID, cached[0].ID, "newest notification first")
}

func TestReconnect_AfterForcedDisconnect(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(5)
	t.Cleanup(ch.Disconnect)

	var drops atomic.Int32
	ch.Subscribe(func(ev Event) {
		if ev.Type == EventStatus && ev.Status == StatusDisconnected {
			drops.Add(1)
		}
	})

	require.NoError(t, ch.Connect(context.Background()))
	require.Eventually(t, func() bool { return b.srv.ConnectedUsers() == 1 }, waitFor, tick)

	require.Equal(t, 1, b.srv.DisconnectAll())

	require.Eventually(t, func() bool { return drops.Load() >= 1 }, waitFor, tick)
	require.Eventually(t, func() bool {
		return ch.Connected() && b.srv.ConnectedUsers() == 1
	}, waitFor, tick)

	// Новое соединение доставляет уведомления.
	b.push(t, 1)
	assert.Eventually(t, func() bool { return ch.UnreadCount() == 1 }, waitFor, tick)
}

func TestReconnect_StopsWhenTokenIsGone(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(3)
	t.Cleanup(ch.Disconnect)

	require.NoError(t, ch.Connect(context.Background()))
	require.Eventually(t, func() bool { return b.srv.ConnectedUsers() == 1 }, waitFor, tick)

	require.NoError(t, b.tokens.ClearTokens(context.Background()))
	b.srv.DisconnectAll()

	require.Eventually(t, func() bool { return !ch.Connected() }, waitFor, tick)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, ch.Status())
	assert.Zero(t, b.srv.ConnectedUsers())
}

func TestDisconnect_DoesNotReconnect(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(5)

	require.NoError(t, ch.Connect(context.Background()))
	ch.Disconnect()

	require.Eventually(t, func() bool { return b.srv.ConnectedUsers() == 0 }, waitFor, tick)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, ch.Status())
	assert.Zero(t, b.srv.ConnectedUsers())
}

func TestMarkAllAsRead_LeavesNoUnreadInLaterFetches(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(0)
	t.Cleanup(ch.Disconnect)
	ctx := context.Background()

	require.NoError(t, ch.Connect(ctx))
	b.push(t, 3)
	require.Eventually(t, func() bool { return ch.UnreadCount() == 3 }, waitFor, tick)

	require.NoError(t, ch.MarkAllAsRead(ctx))
	assert.Equal(t, 0, ch.UnreadCount())

	page, err := ch.Fetch(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	for _, n := range page.Items {
		assert.True(t, n.IsRead, "notification %s should be read", n.ID)
	}

	unread, err := b.svcs.Notifications.List(ctx, models.ListParams{}, true)
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
	count, err := b.svcs.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAsRead_MirrorsReadStateLocally(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(0)
	t.Cleanup(ch.Disconnect)
	ctx := context.Background()

	require.NoError(t, ch.Connect(ctx))
	pushed := b.push(t, 2)
	require.Eventually(t, func() bool { return ch.UnreadCount() == 2 }, waitFor, tick)

	require.NoError(t, ch.MarkAsRead(ctx, pushed[0].ID))

	for _, n := range ch.Notifications() {
		assert.Equal(t, n.ID == pushed[0].ID, n.IsRead)
	}
	assert.Eventually(t, func() bool { return ch.UnreadCount() == 1 }, waitFor, tick)
}

func TestMarkAsRead_UnknownIDIsRejected(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(0)
	t.Cleanup(ch.Disconnect)
	ctx := context.Background()
	require.NoError(t, ch.Connect(ctx))

	err := ch.MarkAsRead(ctx, "missing")

	var ackErr *AckError
	require.ErrorAs(t, err, &ackErr)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, ch.MarkAsRead(ctx, " "), models.ErrInvalidInput)
}

func TestOperations_FallBackToHTTPWhenDisconnected(t *testing.T) {
	b := newBackend(t)
	ch := b.channel(0)
	ctx := context.Background()
	pushed := b.push(t, 2)

	count, err := ch.SyncUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	page, err := ch.Fetch(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	b.srv.ResetRequests()
	require.NoError(t, ch.MarkAsRead(ctx, pushed[1].ID))
	assert.Equal(t, 1, ch.UnreadCount())

	reqs := b.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "PATCH", reqs[0].Method)
	assert.Equal(t, "/notifications/"+pushed[1].ID+"/read", reqs[0].Path)

	require.NoError(t, ch.MarkAllAsRead(ctx))
	assert.Zero(t, ch.UnreadCount())
	serverCount, err := b.svcs.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, serverCount)
}

func TestOperations_NotConnectedWithoutFallback(t *testing.T) {
	ch := New(Config{URL: "ws://127.0.0.1:1/notifications"}, &memTokens{token: "t"}, nil, nil)

	assert.ErrorIs(t, ch.MarkAllAsRead(context.Background()), models.ErrNotConnected)
	_, err := ch.Fetch(context.Background(), 1, 10)
	assert.ErrorIs(t, err, models.ErrNotConnected)
}

func TestBindSession_ConnectsOnLoginAndDisconnectsOnLogout(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	store, err := session.NewFileStore(t.TempDir(), "test")
	require.NoError(t, err)
	api, err := apiclient.New(apiclient.Config{BaseURL: b.url}, store, zap.NewNop())
	require.NoError(t, err)
	sess := session.New(store, service.NewAuthService(api), zap.NewNop())

	ch := New(Config{URL: b.wsURL}, store, service.NewNotificationService(api), zap.NewNop())
	unbind := ch.BindSession(sess)
	t.Cleanup(unbind)
	t.Cleanup(ch.Disconnect)

	_, err = sess.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.Eventually(t, ch.Connected, waitFor, tick)

	require.NoError(t, sess.Logout(ctx))
	assert.Equal(t, StatusDisconnected, ch.Status())
	assert.Zero(t, ch.UnreadCount())
}

func socketURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

// readUntilClosed держит серверную сторону соединения открытой и ничего не отвечает.
func readUntilClosed(conn *websocket.Conn, frames chan<- string) {
	defer conn.Close()
	for {
		var f models.SocketFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if frames != nil {
			select {
			case frames <- f.Event:
			default:
			}
		}
	}
}

func TestReconnect_GivesUpAfterConfiguredAttempts(t *testing.T) {
	var mu sync.Mutex
	var dials []time.Time
	upgrader := websocket.Upgrader{}
	// Первое подключение сервер принимает и сразу закрывает, дальше он недоступен
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials = append(dials, time.Now())
		first := len(dials) == 1
		mu.Unlock()
		if !first {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(ts.Close)
	dialTimes := func() []time.Time {
		mu.Lock()
		defer mu.Unlock()
		return append([]time.Time(nil), dials...)
	}

	const attempts = 3
	const delay = 40 * time.Millisecond
	ch := New(Config{URL: socketURL(ts), ReconnectAttempts: attempts, ReconnectDelay: delay}, &memTokens{token: "t"}, nil, zap.NewNop())
	t.Cleanup(ch.Disconnect)

	var smu sync.Mutex
	var statuses []Status
	ch.Subscribe(func(ev Event) {
		if ev.Type == EventStatus {
			smu.Lock()
			statuses = append(statuses, ev.Status)
			smu.Unlock()
		}
	})

	require.NoError(t, ch.Connect(context.Background()))
	require.Eventually(t, func() bool { return len(dialTimes()) == 1+attempts }, waitFor, tick)

	time.Sleep(5 * delay)
	got := dialTimes()
	require.Len(t, got, 1+attempts, "no dials after the last attempt")
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Sub(got[i-1]), delay, "dial %d came too early", i)
	}
	assert.Equal(t, StatusDisconnected, ch.Status())

	smu.Lock()
	defer smu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusDisconnected, statuses[len(statuses)-1])
	connecting := 0
	for _, st := range statuses {
		if st == StatusConnecting {
			connecting++
		}
	}
	assert.Equal(t, 1+attempts, connecting)
}

type recordingFallback struct {
	mu    sync.Mutex
	calls []string
}

func (f *recordingFallback) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *recordingFallback) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *recordingFallback) List(context.Context, models.ListParams, bool) (*models.Page[models.Notification], error) {
	f.record("list")
	return &models.Page[models.Notification]{}, nil
}

func (f *recordingFallback) UnreadCount(context.Context) (int, error) {
	f.record("unreadCount")
	return 0, nil
}

func (f *recordingFallback) MarkRead(_ context.Context, id string) error {
	f.record("markRead:" + id)
	return nil
}

func (f *recordingFallback) MarkAllRead(context.Context) (int, error) {
	f.record("markAllRead")
	return 0, nil
}

func TestOperations_FallBackToHTTPWhenAckTimesOut(t *testing.T) {
	frames := make(chan string, 8)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		readUntilClosed(conn, frames)
	}))
	t.Cleanup(ts.Close)

	const ackTimeout = 100 * time.Millisecond
	fb := &recordingFallback{}
	ch := New(Config{URL: socketURL(ts), AckTimeout: ackTimeout}, &memTokens{token: "t"}, fb, zap.NewNop())
	t.Cleanup(ch.Disconnect)
	ctx := context.Background()
	require.NoError(t, ch.Connect(ctx))

	start := time.Now()
	require.NoError(t, ch.MarkAsRead(ctx, "n1"))
	assert.GreaterOrEqual(t, time.Since(start), ackTimeout)
	require.NoError(t, ch.MarkAllAsRead(ctx))

	assert.Equal(t, []string{"markRead:n1", "markAllRead"}, fb.recorded())
	require.Eventually(t, func() bool { return len(frames) == 2 }, waitFor, tick)
	assert.Equal(t, models.EventMarkAsRead, <-frames)
	assert.Equal(t, models.EventMarkAllAsRead, <-frames)
	assert.True(t, ch.Connected(), "a missing ack does not drop the socket")
}

func TestConnect_WhileAttemptInProgressIsNotConnected(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		readUntilClosed(conn, nil)
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(unblock)

	ch := New(Config{URL: socketURL(ts)}, &memTokens{token: "t"}, nil, zap.NewNop())
	t.Cleanup(ch.Disconnect)

	first := make(chan error, 1)
	go func() { first <- ch.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return ch.Status() == StatusConnecting }, waitFor, tick)

	assert.ErrorIs(t, ch.Connect(context.Background()), models.ErrNotConnected)

	unblock()
	require.NoError(t, <-first)
	assert.True(t, ch.Connected())
	assert.NoError(t, ch.Connect(context.Background()), "already connected")
}
