package models

import "time"

// Статусы платежа
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// TokenPackage - пакет токенов, доступный для покупки.
type TokenPackage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tokens      int64  `json:"tokens"`
	BonusTokens int64  `json:"bonusTokens"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	Popular     bool   `json:"popular"`
}

// Payment - платеж за пакет токенов или подписку.
type Payment struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	PackageID    string     `json:"packageId,omitempty"`
	Plan         string     `json:"plan,omitempty"`
	AmountCents  int64      `json:"amountCents"`
	Currency     string     `json:"currency"`
	Tokens       int64      `json:"tokens"`
	Status       string     `json:"status"`
	ClientSecret string     `json:"clientSecret,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// CheckoutRequest - тело POST /payment/checkout.
type CheckoutRequest struct {
	PackageID string `json:"packageId"`
}

// ConfirmRequest - тело POST /payment/confirm.
type ConfirmRequest struct {
	PaymentID string `json:"paymentId"`
}

// Subscription - подписка пользователя. Plan пустой, если подписки нет.
type Subscription struct {
	Plan          string     `json:"plan"`
	Status        string     `json:"status"`
	MonthlyTokens int64      `json:"monthlyTokens"`
	RenewsAt      *time.Time `json:"renewsAt,omitempty"`
}

// SubscribeRequest - тело POST /payment/subscription.
type SubscribeRequest struct {
	Plan string `json:"plan"`
}
