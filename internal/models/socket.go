package models

import "encoding/json"

// События канала уведомлений.
const (
	EventUnreadCount      = "unreadCount"
	EventNewNotification  = "newNotification"
	EventMarkAsRead       = "markAsRead"
	EventMarkAllAsRead    = "markAllAsRead"
	EventGetNotifications = "getNotifications"
	EventAck              = "ack"
)

// SocketFrame - JSON кадр канала уведомлений. ID связывает запрос клиента с ack ответом.
type SocketFrame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type NewNotificationPayload struct {
	Notification Notification `json:"notification"`
}

type MarkAsReadPayload struct {
	ID string `json:"id"`
}

type FetchNotificationsPayload struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
