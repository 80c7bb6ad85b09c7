package models

import "time"

// Character - AI персонаж, с которым можно переписываться.
type Character struct {
	ID           string    `json:"id"`
	CreatorID    string    `json:"creatorId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Greeting     string    `json:"greeting,omitempty"`
	Personality  string    `json:"personality,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	WorldID      string    `json:"worldId,omitempty"`
	Tags         []string  `json:"tags"`
	IsPublic     bool      `json:"isPublic"`
	IsNSFW       bool      `json:"isNsfw"`
	LikesCount   int64     `json:"likesCount"`
	ChatsCount   int64     `json:"chatsCount"`
	CreatorLevel int       `json:"creatorLevel"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CharacterInput - тело запроса на создание/обновление персонажа.
type CharacterInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Greeting    string   `json:"greeting,omitempty"`
	Personality string   `json:"personality,omitempty"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	WorldID     string   `json:"worldId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    bool     `json:"isPublic"`
	IsNSFW      bool     `json:"isNsfw"`
}

// LikeResult - ответ на POST /characters/:id/like.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}
