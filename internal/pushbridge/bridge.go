package pushbridge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"charchat-client/internal/models"
	"charchat-client/internal/notifications"
)

const (
	publishTimeout = 5 * time.Second
	// forwardQueueSize - сколько уведомлений может ждать публикации.
	forwardQueueSize = 64
)

// NotificationPublisher - получатель пересылаемых уведомлений.
type NotificationPublisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// EventSource - источник событий канала уведомлений.
type EventSource interface {
	Subscribe(fn func(notifications.Event)) (unsubscribe func())
}

// Forward пересылает каждое новое уведомление из source в pub.
// Подписчик только кладет уведомление в очередь, публикует отдельная горутина.
// При переполненной очереди уведомление отбрасывается, ошибки публикации только логируются.
// stop отписывается от source и ждет завершения горутины; неотправленные уведомления теряются.
func Forward(source EventSource, pub NotificationPublisher, logger *zap.Logger) (stop func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	queue := make(chan models.Notification, forwardQueueSize)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-queue:
				publish(ctx, pub, n, logger)
			}
		}
	}()

	unsubscribe := source.Subscribe(func(ev notifications.Event) {
		if ev.Type != notifications.EventNotification || ev.Notification == nil {
			return
		}
		select {
		case queue <- *ev.Notification:
		default:
			logger.Warn("Forward queue is full, dropping notification", zap.String("notificationID", ev.Notification.ID))
			forwardedTotal.WithLabelValues("dropped").Inc()
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			cancel()
			<-done
		})
	}
}

func publish(ctx context.Context, pub NotificationPublisher, n models.Notification, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, n); err != nil {
		logger.Warn("Failed to forward notification", zap.String("notificationID", n.ID), zap.Error(err))
		forwardedTotal.WithLabelValues("error").Inc()
		return
	}
	forwardedTotal.WithLabelValues("success").Inc()
}
