package devserver

import (
	"time"

	"github.com/google/uuid"

	"charchat-client/internal/models"
)

const systemCreatorID = "00000000-0000-0000-0000-000000000001"

func defaultPackages() []models.TokenPackage {
	return []models.TokenPackage{
		{ID: "tokens_small", Name: "Starter", Tokens: 500, PriceCents: 299, Currency: "USD"},
		{ID: "tokens_medium", Name: "Regular", Tokens: 1500, BonusTokens: 150, PriceCents: 799, Currency: "USD", Popular: true},
		{ID: "tokens_large", Name: "Pro", Tokens: 5000, BonusTokens: 1000, PriceCents: 2499, Currency: "USD"},
	}
}

// seedCatalog заполняет хранилище демонстрационным каталогом.
func (s *memoryStore) seedCatalog() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	world := &models.World{
		ID:          uuid.NewString(),
		CreatorID:   systemCreatorID,
		Name:        "Neon Harbor",
		Description: "A rain-soaked port city run by rival guilds.",
		IsPublic:    true,
		CreatedAt:   now,
	}
	s.worlds[world.ID] = world

	seed := []models.Character{
		{
			Name:        "Aria",
			Description: "A cheerful navigator who knows every alley of Neon Harbor.",
			Greeting:    "Hey! Lost again? Let me show you around.",
			WorldID:     world.ID,
			Tags:        []string{"adventure", "friendly"},
		},
		{
			Name:        "Professor Vell",
			Description: "A retired academic who answers questions with more questions.",
			Greeting:    "Ah, a visitor. What puzzles you today?",
			Tags:        []string{"mentor", "mystery"},
		},
		{
			Name:        "Kite",
			Description: "A sarcastic courier drone with opinions.",
			Tags:        []string{"comedy", "sci-fi"},
		},
	}
	for i := range seed {
		c := seed[i]
		c.ID = uuid.NewString()
		c.CreatorID = systemCreatorID
		c.IsPublic = true
		c.CreatedAt = now.Add(-time.Duration(len(seed)-i) * time.Minute)
		c.UpdatedAt = c.CreatedAt
		s.characters[c.ID] = &c
	}

	s.banners = append(s.banners,
		models.Banner{ID: uuid.NewString(), Title: "Meet Aria", ImageURL: "/static/banners/aria.png", Order: 1, IsActive: true},
		models.Banner{ID: uuid.NewString(), Title: "Double tokens weekend", ImageURL: "/static/banners/tokens.png", Order: 2, IsActive: true},
	)
}
