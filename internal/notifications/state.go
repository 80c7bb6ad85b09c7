package notifications

import "charchat-client/internal/models"

// Status - состояние соединения канала.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventType - тип события для подписчиков канала.
type EventType string

const (
	EventStatus       EventType = "status"
	EventUnreadCount  EventType = "unreadCount"
	EventNotification EventType = "notification"
)

// Event доставляется подписчикам. Заполнено только поле, соответствующее Type.
type Event struct {
	Type         EventType
	Status       Status
	UnreadCount  int
	Notification *models.Notification
}
