package models

import "time"

// Banner - промо-контент с расписанием показа и порядком сортировки.
type Banner struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	ImageURL string     `json:"imageUrl"`
	LinkURL  string     `json:"linkUrl,omitempty"`
	Order    int        `json:"order"`
	IsActive bool       `json:"isActive"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
}

// VisibleAt сообщает, должен ли баннер показываться в момент now.
func (b *Banner) VisibleAt(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && now.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && !now.Before(*b.EndsAt) {
		return false
	}
	return true
}

// PersonaPreset - заготовка "роли" пользователя в диалоге.
type PersonaPreset struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PersonaInput - тело создания/обновления персоны.
type PersonaInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"isDefault"`
}

// World - сеттинг, к которому могут быть привязаны персонажи.
type World struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creatorId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Lore        string    `json:"lore,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WorldInput - тело POST /worlds.
type WorldInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Lore        string `json:"lore,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

// ImageAsset - загруженное пользователем изображение.
type ImageAsset struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	URL         string    `json:"url"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}
