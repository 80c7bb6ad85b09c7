package pushbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"charchat-client/internal/models"
	"charchat-client/internal/notifications"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestNewPublisher_DeclaresDurableFanout(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "push", "fanout", true, false, false, false, amqp.Table(nil)).Return(nil).Once()

	p, err := newPublisher(ch, "push", nil)

	require.NoError(t, err)
	assert.Equal(t, "push", p.exchange)
	ch.AssertExpectations(t)
}

func TestNewPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", DefaultExchange, "fanout", true, false, false, false, amqp.Table(nil)).Return(errors.New("access refused")).Once()
	ch.On("Close").Return(nil).Once()

	_, err := newPublisher(ch, "", nil)

	assert.ErrorContains(t, err, "access refused")
	ch.AssertExpectations(t)
}

func TestPublish_SendsJSONMessage(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", mock.Anything, "fanout", true, false, false, false, amqp.Table(nil)).Return(nil)
	var published amqp.Publishing
	ch.On("PublishWithContext", mock.Anything, DefaultExchange, "", false, false, mock.AnythingOfType("amqp091.Publishing")).
		Run(func(args mock.Arguments) { published = args.Get(5).(amqp.Publishing) }).
		Return(nil).Once()

	p, err := newPublisher(ch, "", nil)
	require.NoError(t, err)

	n := models.Notification{ID: "n1", UserID: "u1", Type: models.NotificationPayment, Title: "Paid", CreatedAt: time.Now().UTC()}
	require.NoError(t, p.Publish(context.Background(), n))

	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	var msg PushMessage
	require.NoError(t, json.Unmarshal(published.Body, &msg))
	assert.Equal(t, "n1", msg.NotificationID)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, models.NotificationPayment, msg.Type)
	ch.AssertExpectations(t)
}

type fakeSource struct {
	mu        sync.Mutex
	listeners []func(notifications.Event)
}

func (f *fakeSource) Subscribe(fn func(notifications.Event)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeSource) emit(ev notifications.Event) {
	f.mu.Lock()
	ls := append(([]func(notifications.Event))(nil), f.listeners...)
	f.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	got   []models.Notification
	err   error
	block chan struct{} // если задан, Publish ждет его закрытия или отмены контекста
}

func (r *recordingPublisher) Publish(ctx context.Context, n models.Notification) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recordingPublisher) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.ID)
	}
	return out
}

func TestForward_OnlyNotificationEvents(t *testing.T) {
	src := &fakeSource{}
	pub := &recordingPublisher{}
	stop := Forward(src, pub, nil)
	t.Cleanup(stop)

	src.emit(notifications.Event{Type: notifications.EventUnreadCount, UnreadCount: 3})
	src.emit(notifications.Event{Type: notifications.EventStatus, Status: notifications.StatusConnected})
	src.emit(notifications.Event{Type: notifications.EventNotification, Notification: &models.Notification{ID: "n1"}})

	require.Eventually(t, func() bool { return len(pub.ids()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"n1"}, pub.ids())
}

func TestForward_PublishErrorIsNotFatal(t *testing.T) {
	src := &fakeSource{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	stop := Forward(src, pub, nil)
	t.Cleanup(stop)

	assert.NotPanics(t, func() {
		src.emit(notifications.Event{Type: notifications.EventNotification, Notification: &models.Notification{ID: "n1"}})
		src.emit(notifications.Event{Type: notifications.EventNotification, Notification: &models.Notification{ID: "n2"}})
	})
	assert.Eventually(t, func() bool { return len(pub.ids()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestForward_SlowPublisherDoesNotBlockEvents(t *testing.T) {
	src := &fakeSource{}
	pub := &recordingPublisher{block: make(chan struct{})}
	stop := Forward(src, pub, nil)

	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		for i := 0; i < forwardQueueSize+10; i++ {
			src.emit(notifications.Event{Type: notifications.EventNotification, Notification: &models.Notification{ID: "n"}})
		}
	}()
	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("listener blocked on a slow publisher")
	}

	close(pub.block)
	require.Eventually(t, func() bool { return len(pub.ids()) > 0 }, time.Second, 5*time.Millisecond)
	stop()
	assert.LessOrEqual(t, len(pub.ids()), forwardQueueSize+1)
}

func TestForward_StopCancelsInFlightPublish(t *testing.T) {
	src := &fakeSource{}
	pub := &recordingPublisher{block: make(chan struct{})}
	stop := Forward(src, pub, nil)

	src.emit(notifications.Event{Type: notifications.EventNotification, Notification: &models.Notification{ID: "n1"}})

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop waited for the publish timeout")
	}
	assert.Empty(t, pub.ids())
}
