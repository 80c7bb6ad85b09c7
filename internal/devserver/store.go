package devserver

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"charchat-client/internal/models"
)

type userRecord struct {
	user         models.User
	passwordHash []byte
}

// memoryStore - потокобезопасное in-memory хранилище всех ресурсов devserver.
type memoryStore struct {
	mu         sync.Mutex
	now        func() time.Time
	bcryptCost int

	users     map[string]*userRecord
	emails    map[string]string
	usernames map[string]string
	refresh   map[string]string // refresh jti -> userID

	characters map[string]*models.Character
	likes      map[string]map[string]struct{} // characterID -> userIDs
	worlds     map[string]*models.World
	personas   map[string]*models.PersonaPreset
	images     map[string]*models.ImageAsset
	banners    []models.Banner

	chats    map[string]*models.Chat
	messages map[string][]models.Message

	notifications map[string][]*models.Notification // userID -> в порядке создания

	packages      []models.TokenPackage
	payments      map[string]*models.Payment
	paymentOrder  []string
	subscriptions map[string]*models.Subscription
}

func newMemoryStore(bcryptCost int) *memoryStore {
	return &memoryStore{
		now:           time.Now,
		bcryptCost:    bcryptCost,
		users:         make(map[string]*userRecord),
		emails:        make(map[string]string),
		usernames:     make(map[string]string),
		refresh:       make(map[string]string),
		characters:    make(map[string]*models.Character),
		likes:         make(map[string]map[string]struct{}),
		worlds:        make(map[string]*models.World),
		personas:      make(map[string]*models.PersonaPreset),
		images:        make(map[string]*models.ImageAsset),
		chats:         make(map[string]*models.Chat),
		messages:      make(map[string][]models.Message),
		notifications: make(map[string][]*models.Notification),
		payments:      make(map[string]*models.Payment),
		subscriptions: make(map[string]*models.Subscription),
	}
}

func (s *memoryStore) timestamp() time.Time {
	return s.now().UTC()
}

// --- Пользователи ---

func (s *memoryStore) createUser(email, username, password string, starterTokens int64) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[email]; ok {
		return nil, fmt.Errorf("%w: email already registered", models.ErrConflict)
	}
	if _, ok := s.usernames[strings.ToLower(username)]; ok {
		return nil, fmt.Errorf("%w: username already taken", models.ErrConflict)
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		DisplayName:  username,
		Roles:        []string{models.RoleUser},
		TokenBalance: starterTokens,
		CreatedAt:    s.timestamp(),
	}
	s.users[u.ID] = &userRecord{user: u, passwordHash: hash}
	s.emails[email] = u.ID
	s.usernames[strings.ToLower(username)] = u.ID
	return &u, nil
}

func (s *memoryStore) authenticate(email, password string) (*models.User, error) {
	s.mu.Lock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	var rec *userRecord
	if ok {
		rec = s.users[id]
	}
	s.mu.Unlock()

	if rec == nil {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.getUser(id)
}

func (s *memoryStore) getUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u := cloneUser(rec.user)
	return &u, nil
}

func (s *memoryStore) updateProfile(id string, upd models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if upd.DisplayName != nil {
		if strings.TrimSpace(*upd.DisplayName) == "" {
			return nil, models.Required("displayName")
		}
		rec.user.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.Bio != nil {
		rec.user.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		rec.user.AvatarURL = *upd.AvatarURL
	}
	if upd.Locale != nil {
		rec.user.Locale = *upd.Locale
	}
	u := cloneUser(rec.user)
	return &u, nil
}

func (s *memoryStore) changePassword(id, current, next string) error {
	s.mu.Lock()
	rec, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		return models.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(current)); err != nil {
		return &models.FieldError{Field: "currentPassword", Reason: "does not match"}
	}
	if len(next) < 8 {
		return &models.FieldError{Field: "newPassword", Reason: "must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	s.mu.Lock()
	rec.passwordHash = hash
	s.mu.Unlock()
	return nil
}

// adjustBalance меняет баланс токенов. Отрицательный итог - ErrInsufficientTokens.
func (s *memoryStore) adjustBalance(id string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustBalanceLocked(id, delta)
}

func (s *memoryStore) adjustBalanceLocked(id string, delta int64) (int64, error) {
	rec, ok := s.users[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	if rec.user.TokenBalance+delta < 0 {
		return rec.user.TokenBalance, models.ErrInsufficientTokens
	}
	rec.user.TokenBalance += delta
	return rec.user.TokenBalance, nil
}

func (s *memoryStore) saveRefresh(jti, userID string) {
	s.mu.Lock()
	s.refresh[jti] = userID
	s.mu.Unlock()
}

// consumeRefresh отзывает refresh токен и возвращает его владельца.
func (s *memoryStore) consumeRefresh(jti string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[jti]
	if ok {
		delete(s.refresh, jti)
	}
	return userID, ok
}

func cloneUser(u models.User) models.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

// --- Уведомления ---

func (s *memoryStore) addNotification(userID, typ, title, body string, data []byte) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, models.ErrNotFound
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Data:      append([]byte(nil), data...),
		CreatedAt: s.timestamp(),
	}
	s.notifications[userID] = append(s.notifications[userID], n)
	cp := *n
	return &cp, nil
}

// listNotifications возвращает уведомления от новых к старым.
func (s *memoryStore) listNotifications(userID string, params models.ListParams, unreadOnly bool) models.Page[models.Notification] {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.notifications[userID]
	items := make([]models.Notification, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if unreadOnly && all[i].IsRead {
			continue
		}
		items = append(items, *all[i])
	}
	return models.Paginate(items, params)
}

func (s *memoryStore) unreadCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCountLocked(userID)
}

func (s *memoryStore) unreadCountLocked(userID string) int {
	count := 0
	for _, n := range s.notifications[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (s *memoryStore) markRead(userID, notificationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[userID] {
		if n.ID == notificationID {
			n.IsRead = true
			return s.unreadCountLocked(userID), nil
		}
	}
	return 0, models.ErrNotFound
}

func (s *memoryStore) markAllRead(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for _, n := range s.notifications[userID] {
		if !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated
}

func (s *memoryStore) deleteNotification(userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	for i, n := range list {
		if n.ID == notificationID {
			s.notifications[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

// --- Баннеры ---

func (s *memoryStore) activeBanners() []models.Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.timestamp()
	out := make([]models.Banner, 0, len(s.banners))
	for i := range s.banners {
		if s.banners[i].VisibleAt(now) {
			out = append(out, s.banners[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *memoryStore) addBanner(b models.Banner) models.Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.banners = append(s.banners, b)
	return b
}
