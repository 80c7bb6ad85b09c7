package devserver

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"charchat-client/internal/models"
)

const (
	planFree    = "free"
	planBasic   = "basic"
	planPremium = "premium"

	subscriptionActive   = "active"
	subscriptionCanceled = "canceled"
	subscriptionInactive = "inactive"

	subscriptionPeriod = 30 * 24 * time.Hour
)

type planInfo struct {
	priceCents    int64
	monthlyTokens int64
}

var subscriptionPlans = map[string]planInfo{
	planBasic:   {priceCents: 499, monthlyTokens: 1000},
	planPremium: {priceCents: 1499, monthlyTokens: 5000},
}

func (s *memoryStore) listPackages() []models.TokenPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TokenPackage{}, s.packages...)
}

func (s *memoryStore) findPackageLocked(id string) (models.TokenPackage, bool) {
	for _, p := range s.packages {
		if p.ID == id {
			return p, true
		}
	}
	return models.TokenPackage{}, false
}

// checkout создает платеж в статусе pending. Провайдер на стороне сервера эмулируется clientSecret.
func (s *memoryStore) checkout(userID, packageID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.findPackageLocked(packageID)
	if !ok {
		return nil, &models.FieldError{Field: "packageId", Reason: "does not exist"}
	}
	p := &models.Payment{
		ID:           uuid.NewString(),
		UserID:       userID,
		PackageID:    pkg.ID,
		AmountCents:  pkg.PriceCents,
		Currency:     pkg.Currency,
		Tokens:       pkg.Tokens + pkg.BonusTokens,
		Status:       models.PaymentPending,
		ClientSecret: "pi_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		CreatedAt:    s.timestamp(),
	}
	s.payments[p.ID] = p
	s.paymentOrder = append(s.paymentOrder, p.ID)
	out := *p
	return &out, nil
}

// confirmPayment завершает платеж и начисляет токены. Повторное подтверждение - ErrConflict.
func (s *memoryStore) confirmPayment(userID, paymentID string) (*models.Payment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok || p.UserID != userID {
		return nil, 0, models.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return nil, 0, models.ErrConflict
	}
	balance, err := s.adjustBalanceLocked(userID, p.Tokens)
	if err != nil {
		return nil, 0, err
	}
	now := s.timestamp()
	p.Status = models.PaymentCompleted
	p.CompletedAt = &now
	out := *p
	out.ClientSecret = ""
	return &out, balance, nil
}

// paymentHistory - платежи пользователя, новые первыми.
func (s *memoryStore) paymentHistory(userID string, params models.ListParams) models.Page[models.Payment] {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.Payment, 0)
	for i := len(s.paymentOrder) - 1; i >= 0; i-- {
		p := s.payments[s.paymentOrder[i]]
		if p.UserID != userID {
			continue
		}
		cp := *p
		cp.ClientSecret = ""
		items = append(items, cp)
	}
	return models.Paginate(items, params)
}

func (s *memoryStore) subscription(userID string) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscriptions[userID]; ok {
		return *sub
	}
	return models.Subscription{Plan: planFree, Status: subscriptionInactive}
}

// subscribe оформляет подписку, фиксирует платеж и начисляет токены первого периода.
func (s *memoryStore) subscribe(userID, plan string) (*models.Subscription, error) {
	info, ok := subscriptionPlans[plan]
	if !ok {
		return nil, &models.FieldError{Field: "plan", Reason: "is unknown"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscriptions[userID]; ok && sub.Status == subscriptionActive && sub.Plan == plan {
		return nil, models.ErrConflict
	}
	if _, err := s.adjustBalanceLocked(userID, info.monthlyTokens); err != nil {
		return nil, err
	}
	now := s.timestamp()
	renews := now.Add(subscriptionPeriod)
	sub := &models.Subscription{
		Plan:          plan,
		Status:        subscriptionActive,
		MonthlyTokens: info.monthlyTokens,
		RenewsAt:      &renews,
	}
	s.subscriptions[userID] = sub

	p := &models.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Plan:        plan,
		AmountCents: info.priceCents,
		Currency:    "USD",
		Tokens:      info.monthlyTokens,
		Status:      models.PaymentCompleted,
		CreatedAt:   now,
		CompletedAt: &now,
	}
	s.payments[p.ID] = p
	s.paymentOrder = append(s.paymentOrder, p.ID)

	out := *sub
	return &out, nil
}

func (s *memoryStore) cancelSubscription(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[userID]
	if !ok || sub.Status != subscriptionActive {
		return models.ErrNotFound
	}
	sub.Status = subscriptionCanceled
	return nil
}
