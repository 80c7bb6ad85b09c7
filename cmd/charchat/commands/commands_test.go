package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charchat-client/internal/devserver"
	"charchat-client/internal/models"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliEnv struct {
	t   *testing.T
	srv *devserver.Server
	url string
}

func startBackend(t *testing.T, secret string) (*devserver.Server, string) {
	t.Helper()
	return startBackendWithConfig(t, devserver.Config{JWTSecret: secret})
}

func startBackendWithConfig(t *testing.T, cfg devserver.Config) (*devserver.Server, string) {
	t.Helper()
	cfg.SeedCatalog = true
	cfg.StarterTokens = 100
	srv := devserver.New(cfg, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts.URL
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	srv, url := startBackend(t, "secret")
	t.Setenv("CHARCHAT_CONFIG", filepath.Join(t.TempDir(), "missing.yml"))
	t.Setenv("CHARCHAT_HOME", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CHARCHAT_WS_RECONNECT_DELAY", "50ms")
	return &cliEnv{t: t, srv: srv, url: url}
}

func (e *cliEnv) run(args ...string) (stdout, stderr string, err error) {
	e.t.Helper()
	var out, errOut lockedBuffer
	err = run(context.Background(), &out, &errOut, append([]string{"--api", e.url}, args...))
	return out.String(), errOut.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run(args...)
	require.NoError(e.t, err, stderr)
	return out
}

func (e *cliEnv) register(username string) {
	e.t.Helper()
	e.mustRun("register", "--email", username+"@example.com", "--username", username, "--password", "password123")
}

func TestLogin_IncompleteFormNeverReachesServer(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, err := env.run("login", "--email", "alice@example.com")

	require.Error(t, err)
	assert.Equal(t, "error: password is required\n", stderr)
	assert.Empty(t, env.srv.Requests())
}

func TestRegisterWhoamiLogout(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("register", "--email", "alice@example.com", "--username", "alice", "--password", "password123")
	assert.Contains(t, out, "Welcome, alice! You have 100 tokens")

	out = env.mustRun("whoami")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "100")

	assert.Equal(t, "Logged out\n", env.mustRun("logout"))

	_, stderr, err := env.run("whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
	assert.Equal(t, "error: "+errNotLoggedIn.Error()+"\n", stderr)
}

func TestLogin_WrongPasswordDoesNotPrintSessionHint(t *testing.T) {
	env := newCLIEnv(t)
	env.register("bob")
	env.mustRun("logout")

	_, stderr, err := env.run("login", "--email", "bob@example.com", "--password", "wrong-password")

	require.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, "error: Invalid email or password\n", stderr)

	out := env.mustRun("login", "--email", "bob@example.com", "--password", "password123")
	assert.Contains(t, out, "Logged in as bob")
}

func TestRejectedToken_ClearsSessionAndPrintsHint(t *testing.T) {
	env := newCLIEnv(t)
	env.register("carol")

	// Та же сессия, но сервер с другим ключом подписи
	_, env.url = startBackend(t, "another-secret")

	_, stderr, err := env.run("chat", "list")
	require.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Contains(t, stderr, loginHint)

	_, _, err = env.run("tokens", "balance")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestChatFlow(t *testing.T) {
	env := newCLIEnv(t)
	env.register("dave")

	var characters models.Page[models.Character]
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "characters", "list", "--search", "aria")), &characters))
	require.Len(t, characters.Items, 1)
	aria := characters.Items[0]

	out := env.mustRun("chat", "start", aria.ID)
	assert.Contains(t, out, "started with Aria")

	var chats models.Page[models.Chat]
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "chat", "list")), &chats))
	require.Len(t, chats.Items, 1)
	chatID := chats.Items[0].ID

	out = env.mustRun("chat", "send", chatID, "hello", "there")
	assert.Contains(t, out, "Aria: hello there")
	assert.Contains(t, out, "(-5 tokens, 95 left)")

	out = env.mustRun("chat", "history", chatID)
	assert.Contains(t, out, "hello there")

	_, stderr, err := env.run("chat", "send", chatID, "  ")
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "error: content is required\n", stderr)
}

func TestTokensBuyCreatesNotification(t *testing.T) {
	env := newCLIEnv(t)
	env.register("erin")

	out := env.mustRun("tokens", "buy", "tokens_small")
	assert.Contains(t, out, "completed: +500 tokens, balance 600")

	out = env.mustRun("notifications", "list")
	assert.Contains(t, out, "Payment completed")
	assert.Contains(t, out, "1 unread")

	assert.Equal(t, "All notifications marked as read\n", env.mustRun("notifications", "read-all"))

	out = env.mustRun("notifications", "list", "--unread")
	assert.Contains(t, out, "0 unread")
	assert.NotContains(t, out, "Payment completed")

	out = env.mustRun("tokens", "history")
	assert.Contains(t, out, "completed")
}

func TestTokensBuy_UnknownPackage(t *testing.T) {
	env := newCLIEnv(t)
	env.register("frank")

	_, stderr, err := env.run("tokens", "buy", "tokens_huge")

	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "error: invalid input data: packageId does not exist\n", stderr)
}

func TestNotificationsWatch_PrintsPushes(t *testing.T) {
	env := newCLIEnv(t)
	env.register("gina")

	var me models.User
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "whoami")), &me))

	var out, errOut lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), &out, &errOut, []string{"--api", env.url, "notifications", "watch", "--for", "2s"})
	}()

	require.Eventually(t, func() bool { return env.srv.ConnectedUsers() == 1 }, 3*time.Second, 20*time.Millisecond)
	_, err := env.srv.PushNotification(me.ID, models.NotificationSystem, "Hello", "from the server")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err, errOut.String())
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	printed := out.String()
	assert.Contains(t, printed, "Watching notifications for gina")
	assert.Contains(t, printed, "[connected]")
	assert.Contains(t, printed, "system Hello: from the server")
	assert.Contains(t, printed, "unread: 1")
}

func TestNotificationsWatch_ReconnectsAfterAccessTokenExpired(t *testing.T) {
	env := newCLIEnv(t)
	env.srv, env.url = startBackendWithConfig(t, devserver.Config{JWTSecret: "secret", AccessTTL: 1500 * time.Millisecond})
	env.register("jack")

	var me models.User
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("--json", "whoami")), &me))

	var out, errOut lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), &out, &errOut, []string{"--api", env.url, "notifications", "watch", "--for", "6s"})
	}()

	require.Eventually(t, func() bool { return env.srv.ConnectedUsers() == 1 }, 3*time.Second, 20*time.Millisecond)

	// Токен, с которым было открыто соединение, успевает истечь
	time.Sleep(2500 * time.Millisecond)
	require.Equal(t, 1, env.srv.DisconnectAll())

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "[connected]") == 2 && env.srv.ConnectedUsers() == 1
	}, 3*time.Second, 20*time.Millisecond, out.String())

	_, err := env.srv.PushNotification(me.ID, models.NotificationSystem, "Still", "here")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err, errOut.String())
	case <-time.After(8 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, out.String(), "system Still: here")
	assert.NotContains(t, errOut.String(), loginHint)
}

func TestNotificationsWatch_EndsWhenRefreshRejected(t *testing.T) {
	env := newCLIEnv(t)
	env.srv, env.url = startBackendWithConfig(t, devserver.Config{JWTSecret: "secret", AccessTTL: 1500 * time.Millisecond, RefreshTTL: 2 * time.Second})
	env.register("kate")

	var out, errOut lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), &out, &errOut, []string{"--api", env.url, "notifications", "watch", "--for", "10s"})
	}()

	require.Eventually(t, func() bool { return env.srv.ConnectedUsers() == 1 }, 3*time.Second, 20*time.Millisecond)

	// Истекают и access, и refresh токены
	time.Sleep(3 * time.Second)
	require.Equal(t, 1, env.srv.DisconnectAll())

	select {
	case err := <-done:
		require.ErrorIs(t, err, errSessionEnded)
	case <-time.After(5 * time.Second):
		t.Fatal("watch kept running after the session was lost")
	}
	assert.Contains(t, errOut.String(), loginHint)
}

func TestProfileAndLocale(t *testing.T) {
	env := newCLIEnv(t)
	env.register("hank")

	out := env.mustRun("profile", "update", "--display-name", "Hank H", "--bio", "hi")
	assert.Contains(t, out, "Hank H")

	_, stderr, err := env.run("profile", "password", "--current", "password123")
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "error: newPassword is required\n", stderr)

	assert.Equal(t, "Locale set to de\n", env.mustRun("locale", "de"))
	assert.Equal(t, "de\n", env.mustRun("locale"))

	env.srv.ResetRequests()
	env.mustRun("banners")
	reqs := env.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "de", reqs[0].AcceptLanguage)
}

func TestImagesUpload(t *testing.T) {
	env := newCLIEnv(t)
	env.register("iris")

	dir := t.TempDir()
	png := filepath.Join(dir, "avatar.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\nrest"), 0o600))
	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	out := env.mustRun("images", "upload", png)
	assert.Contains(t, out, "Uploaded")
	assert.Contains(t, out, "avatar.png")

	_, stderr, err := env.run("images", "upload", empty)
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, "error: file is empty\n", stderr)

	out = env.mustRun("images", "list")
	assert.Contains(t, out, "image/png")
}
