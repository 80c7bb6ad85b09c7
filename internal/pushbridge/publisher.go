// Package pushbridge пересылает уведомления из канала в RabbitMQ для push-воркеров.
package pushbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"charchat-client/internal/models"
)

// DefaultExchange - fanout exchange по умолчанию.
const DefaultExchange = "charchat_notifications"

// PushMessage - сообщение, публикуемое в exchange.
type PushMessage struct {
	NotificationID string          `json:"notificationId"`
	UserID         string          `json:"userId"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	Data           json.RawMessage `json:"data,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// amqpChannel - методы *amqp.Channel, которые использует Publisher.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher публикует уведомления в durable fanout exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   *zap.Logger
}

// Dial подключается к RabbitMQ с несколькими попытками и объявляет exchange.
func Dial(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var conn *amqp.Connection
	var err error
	maxRetries := 3
	retryDelay := 2 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", i+1), zap.Int("maxRetries", maxRetries), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	p, err := newPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch amqpChannel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("rabbitmq channel is nil")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	logger.Info("Push exchange declared", zap.String("exchange", exchange))
	return &Publisher{ch: ch, exchange: exchange, logger: logger.Named("PushBridge")}, nil
}

// Publish публикует уведомление.
func (p *Publisher) Publish(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(PushMessage{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		Data:           n.Data,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		"",         // routing key (не используется для fanout)
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish push message: %w", err)
	}
	p.logger.Debug("Push message published", zap.String("notificationID", n.ID))
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
