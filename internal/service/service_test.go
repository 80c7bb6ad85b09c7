package service

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"charchat-client/internal/apiclient"
	"charchat-client/internal/devserver"
	"charchat-client/internal/models"
)

type memTokens struct {
	mu     sync.Mutex
	token  string
	locale string
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

func (m *memTokens) Locale(context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locale
}

type fixture struct {
	srv    *devserver.Server
	tokens *memTokens
	svcs   *Services
	user   *models.User
}

func newFixture(t *testing.T, cfg devserver.Config) *fixture {
	t.Helper()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "test-secret"
	}
	srv := devserver.New(cfg, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	tokens := &memTokens{}
	api, err := apiclient.New(apiclient.Config{BaseURL: ts.URL}, tokens, zap.NewNop())
	require.NoError(t, err)
	return &fixture{srv: srv, tokens: tokens, svcs: NewServices(api)}
}

func (f *fixture) signUp(t *testing.T, email, username string) *models.User {
	t.Helper()
	res, err := f.svcs.Auth.Register(context.Background(), models.RegisterRequest{
		Email: email, Username: username, Password: "password123",
	})
	require.NoError(t, err)
	f.tokens.token = res.AccessToken
	f.user = res.User
	return res.User
}

func TestAuthService_RegisterLoginRefreshMe(t *testing.T) {
	f := newFixture(t, devserver.Config{StarterTokens: 50})
	ctx := context.Background()
	u := f.signUp(t, "bob@example.com", "bob")
	assert.Equal(t, int64(50), u.TokenBalance)

	res, err := f.svcs.Auth.Login(ctx, models.LoginRequest{Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	f.tokens.token = res.AccessToken

	me, err := f.svcs.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	refreshed, err := f.svcs.Auth.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, refreshed.RefreshToken)

	// Использованный refresh токен отозван.
	_, err = f.svcs.Auth.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	require.NoError(t, f.svcs.Auth.Logout(ctx, refreshed.RefreshToken))
	_, err = f.svcs.Auth.Refresh(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_DuplicateRegistrationConflicts(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	f.signUp(t, "bob@example.com", "bob")

	_, err := f.svcs.Auth.Register(context.Background(), models.RegisterRequest{
		Email: "BOB@example.com", Username: "bobby", Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestServices_ValidationNeverReachesNetwork(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	ctx := context.Background()
	f.srv.ResetRequests()

	_, err := f.svcs.Characters.Create(ctx, models.CharacterInput{Name: "  "})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svcs.Chats.Send(ctx, "chat-1", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svcs.Chats.Start(ctx, models.StartChatRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svcs.Payments.Checkout(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svcs.Personas.Create(ctx, models.PersonaInput{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svcs.Images.Upload(ctx, "a.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svcs.Characters.Get(ctx, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.ErrorIs(t, f.svcs.Notifications.MarkRead(ctx, ""), models.ErrInvalidInput)

	assert.Empty(t, f.srv.Requests())
}

func TestCharacterService_CRUDAndLike(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	ctx := context.Background()
	creator := f.signUp(t, "creator@example.com", "creator")
	creatorToken := f.tokens.token

	c, err := f.svcs.Characters.Create(ctx, models.CharacterInput{
		Name: "Nova", Description: "Star pilot", Tags: []string{"sci-fi"}, IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, creator.ID, c.CreatorID)

	page, err := f.svcs.Characters.List(ctx, models.ListParams{Tag: "sci-fi"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Nova", page.Items[0].Name)

	updated, err := f.svcs.Characters.Update(ctx, c.ID, models.CharacterInput{Name: "Nova Prime", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, "Nova Prime", updated.Name)

	// Другой пользователь ставит лайк, автор получает уведомление.
	f.signUp(t, "fan@example.com", "fan")
	like, err := f.svcs.Characters.Like(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, like.Liked)
	assert.Equal(t, int64(1), like.LikesCount)

	err = f.svcs.Characters.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	f.tokens.token = creatorToken
	count, err := f.svcs.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, f.svcs.Characters.Delete(ctx, c.ID))
	_, err = f.svcs.Characters.Get(ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChatService_TurnChargesTokens(t *testing.T) {
	f := newFixture(t, devserver.Config{StarterTokens: 12, ChatTurnCost: 5, SeedCatalog: true})
	ctx := context.Background()
	f.signUp(t, "chatter@example.com", "chatter")

	chars, err := f.svcs.Characters.List(ctx, models.ListParams{Search: "aria"})
	require.NoError(t, err)
	require.NotEmpty(t, chars.Items)

	chat, err := f.svcs.Chats.Start(ctx, models.StartChatRequest{CharacterID: chars.Items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.MessagesCount, "greeting is the first message")

	turn, err := f.svcs.Chats.Send(ctx, chat.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Aria: hello", turn.Reply.Content)
	assert.Equal(t, int64(7), turn.TokenBalance)

	_, err = f.svcs.Chats.Send(ctx, chat.ID, "again")
	require.NoError(t, err)
	_, err = f.svcs.Chats.Send(ctx, chat.ID, "and again")
	assert.ErrorIs(t, err, models.ErrInsufficientTokens)

	balance, err := f.svcs.Users.TokenBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	history, err := f.svcs.Chats.Messages(ctx, chat.ID, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, history.Items, 5)
	assert.Equal(t, models.SenderCharacter, history.Items[0].Sender)
	assert.Equal(t, "hello", history.Items[1].Content)

	list, err := f.svcs.Chats.List(ctx, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	require.NoError(t, f.svcs.Chats.Delete(ctx, chat.ID))
	_, err = f.svcs.Chats.Get(ctx, chat.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPaymentService_CheckoutConfirmCreditsTokens(t *testing.T) {
	f := newFixture(t, devserver.Config{StarterTokens: 0})
	ctx := context.Background()
	f.signUp(t, "payer@example.com", "payer")

	pkgs, err := f.svcs.Payments.Packages(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, pkgs)
	pkg := pkgs[0]

	p, err := f.svcs.Payments.Checkout(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.NotEmpty(t, p.ClientSecret)

	confirmed, err := f.svcs.Payments.Confirm(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, confirmed.Status)

	_, err = f.svcs.Payments.Confirm(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrConflict)

	balance, err := f.svcs.Users.TokenBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, pkg.Tokens+pkg.BonusTokens, balance)

	notes, err := f.svcs.Notifications.List(ctx, models.ListParams{}, true)
	require.NoError(t, err)
	require.Len(t, notes.Items, 1)
	assert.Equal(t, models.NotificationPayment, notes.Items[0].Type)

	history, err := f.svcs.Payments.History(ctx, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, history.Items, 1)
	assert.Empty(t, history.Items[0].ClientSecret)

	_, err = f.svcs.Payments.Checkout(ctx, "no-such-package")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestPaymentService_SubscriptionLifecycle(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	ctx := context.Background()
	f.signUp(t, "sub@example.com", "sub")

	sub, err := f.svcs.Payments.Subscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, "free", sub.Plan)

	sub, err = f.svcs.Payments.Subscribe(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, "active", sub.Status)
	require.NotNil(t, sub.RenewsAt)

	require.NoError(t, f.svcs.Payments.CancelSubscription(ctx))
	sub, err = f.svcs.Payments.Subscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, "canceled", sub.Status)

	assert.ErrorIs(t, f.svcs.Payments.CancelSubscription(ctx), models.ErrNotFound)
}

func TestNotificationService_ReadFlow(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	ctx := context.Background()
	u := f.signUp(t, "reader@example.com", "reader")

	var ids []string
	for i := 0; i < 3; i++ {
		n, err := f.srv.PushNotification(u.ID, models.NotificationSystem, "t", "b")
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	require.NoError(t, f.svcs.Notifications.MarkRead(ctx, ids[0]))
	count, err := f.svcs.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, f.svcs.Notifications.Delete(ctx, ids[1]))
	updated, err := f.svcs.Notifications.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	all, err := f.svcs.Notifications.List(ctx, models.ListParams{}, false)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.ErrorIs(t, f.svcs.Notifications.MarkRead(ctx, "missing"), models.ErrNotFound)
}

func TestUserService_ProfileAndPassword(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	ctx := context.Background()
	u := f.signUp(t, "profile@example.com", "profile")

	name, locale := "Pro File", "ru"
	updated, err := f.svcs.Users.UpdateProfile(ctx, models.ProfileUpdate{DisplayName: &name, Locale: &locale})
	require.NoError(t, err)
	assert.Equal(t, "Pro File", updated.DisplayName)
	assert.Equal(t, "ru", updated.Locale)

	public, err := f.svcs.Users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, public.Email)

	err = f.svcs.Users.ChangePassword(ctx, models.PasswordChange{CurrentPassword: "wrong", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	require.NoError(t, f.svcs.Users.ChangePassword(ctx, models.PasswordChange{CurrentPassword: "password123", NewPassword: "newpassword1"}))

	_, err = f.svcs.Auth.Login(ctx, models.LoginRequest{Email: "profile@example.com", Password: "newpassword1"})
	assert.NoError(t, err)
}

func TestCatalogServices(t *testing.T) {
	f := newFixture(t, devserver.Config{SeedCatalog: true})
	ctx := context.Background()
	f.signUp(t, "cat@example.com", "cat")

	banners, err := f.svcs.Banners.Active(ctx)
	require.NoError(t, err)
	require.Len(t, banners, 2)
	assert.Less(t, banners[0].Order, banners[1].Order)

	first, err := f.svcs.Personas.Create(ctx, models.PersonaInput{Name: "Knight"})
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "first persona becomes default")
	second, err := f.svcs.Personas.Create(ctx, models.PersonaInput{Name: "Bard", IsDefault: true})
	require.NoError(t, err)
	personas, err := f.svcs.Personas.List(ctx)
	require.NoError(t, err)
	require.Len(t, personas, 2)
	assert.Equal(t, second.ID, personas[0].ID)
	_, err = f.svcs.Personas.Update(ctx, first.ID, models.PersonaInput{Name: "Paladin"})
	require.NoError(t, err)
	require.NoError(t, f.svcs.Personas.Delete(ctx, first.ID))

	w, err := f.svcs.Worlds.Create(ctx, models.WorldInput{Name: "Private Realm"})
	require.NoError(t, err)
	got, err := f.svcs.Worlds.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private Realm", got.Name)
	worlds, err := f.svcs.Worlds.List(ctx, models.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, worlds.Total)

	img, err := f.svcs.Images.Upload(ctx, "avatar.png", bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrest")))
	require.NoError(t, err)
	assert.Equal(t, "avatar.png", img.FileName)
	assert.Equal(t, "image/png", img.ContentType)
	images, err := f.svcs.Images.List(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.NoError(t, f.svcs.Images.Delete(ctx, img.ID))
}

func TestServices_AcceptLanguageFromLocale(t *testing.T) {
	f := newFixture(t, devserver.Config{})
	f.tokens.locale = "ko"
	f.srv.ResetRequests()

	_, err := f.svcs.Banners.Active(context.Background())
	require.NoError(t, err)

	reqs := f.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "ko", reqs[0].AcceptLanguage)
	assert.NotEmpty(t, reqs[0].RequestID)
}
