package service

import (
	"context"
	"strings"

	"charchat-client/internal/models"
)

// PaymentService - пакеты токенов, платежи и подписка.
// Интеграция с платежным провайдером остается на стороне сервера.
type PaymentService struct {
	api APIClient
}

func NewPaymentService(api APIClient) *PaymentService {
	return &PaymentService{api: api}
}

// Packages - GET /payment/packages.
func (s *PaymentService) Packages(ctx context.Context) ([]models.TokenPackage, error) {
	var pkgs []models.TokenPackage
	if err := s.api.Get(ctx, "/payment/packages", nil, &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// Checkout - POST /payment/checkout, создает платеж в статусе pending.
func (s *PaymentService) Checkout(ctx context.Context, packageID string) (*models.Payment, error) {
	if strings.TrimSpace(packageID) == "" {
		return nil, models.Required("packageId")
	}
	var p models.Payment
	if err := s.api.Post(ctx, "/payment/checkout", models.CheckoutRequest{PackageID: packageID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Confirm - POST /payment/confirm, завершает платеж и начисляет токены.
func (s *PaymentService) Confirm(ctx context.Context, paymentID string) (*models.Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, models.Required("paymentId")
	}
	var p models.Payment
	if err := s.api.Post(ctx, "/payment/confirm", models.ConfirmRequest{PaymentID: paymentID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// History - GET /payment/history.
func (s *PaymentService) History(ctx context.Context, params models.ListParams) (*models.Page[models.Payment], error) {
	var page models.Page[models.Payment]
	if err := s.api.Get(ctx, "/payment/history", params.Query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Subscription - GET /payment/subscription.
func (s *PaymentService) Subscription(ctx context.Context) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.api.Get(ctx, "/payment/subscription", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subscribe - POST /payment/subscription.
func (s *PaymentService) Subscribe(ctx context.Context, plan string) (*models.Subscription, error) {
	if strings.TrimSpace(plan) == "" {
		return nil, models.Required("plan")
	}
	var sub models.Subscription
	if err := s.api.Post(ctx, "/payment/subscription", models.SubscribeRequest{Plan: plan}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription - DELETE /payment/subscription.
func (s *PaymentService) CancelSubscription(ctx context.Context) error {
	return s.api.Delete(ctx, "/payment/subscription", nil)
}
