package models

import (
	"encoding/json"
	"time"
)

// Типы уведомлений
const (
	NotificationSystem  = "system"
	NotificationPayment = "payment"
	NotificationLike    = "like"
	NotificationCreator = "creator"
)

// Notification - уведомление пользователя.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"isRead"`
	CreatedAt time.Time       `json:"createdAt"`
}

// UnreadCount - снимок счетчика непрочитанных уведомлений.
type UnreadCount struct {
	Count int `json:"count"`
}

// MarkAllResult - ответ на пометку всех уведомлений прочитанными.
type MarkAllResult struct {
	Updated int `json:"updated"`
}
