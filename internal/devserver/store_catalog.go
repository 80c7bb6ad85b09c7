package devserver

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"charchat-client/internal/models"
)

// --- Персонажи ---

// listCharacters возвращает публичных персонажей и персонажей viewerID.
func (s *memoryStore) listCharacters(viewerID string, params models.ListParams) models.Page[models.Character] {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(params.Search))
	items := make([]models.Character, 0, len(s.characters))
	for _, c := range s.characters {
		if !c.IsPublic && c.CreatorID != viewerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		if params.Tag != "" && !containsFold(c.Tags, params.Tag) {
			continue
		}
		items = append(items, cloneCharacter(c))
	}

	switch params.Sort {
	case "popular":
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].LikesCount != items[j].LikesCount {
				return items[i].LikesCount > items[j].LikesCount
			}
			return items[i].Name < items[j].Name
		})
	case "name":
		sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
				return items[i].CreatedAt.After(items[j].CreatedAt)
			}
			return items[i].Name < items[j].Name
		})
	}
	return models.Paginate(items, params)
}

func (s *memoryStore) getCharacter(viewerID, id string) (*models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok || (!c.IsPublic && c.CreatorID != viewerID) {
		return nil, models.ErrNotFound
	}
	out := cloneCharacter(c)
	return &out, nil
}

func (s *memoryStore) createCharacter(creatorID string, in models.CharacterInput) (*models.Character, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	creatorLevel := 0
	if rec, ok := s.users[creatorID]; ok {
		if !rec.user.HasRole(models.RoleCreator) {
			rec.user.Roles = append(rec.user.Roles, models.RoleCreator)
		}
		creatorLevel = rec.user.CreatorLevel
	}
	if in.WorldID != "" {
		if _, ok := s.worlds[in.WorldID]; !ok {
			return nil, &models.FieldError{Field: "worldId", Reason: "does not exist"}
		}
	}

	now := s.timestamp()
	c := &models.Character{
		ID:           uuid.NewString(),
		CreatorID:    creatorID,
		CreatorLevel: creatorLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyCharacterInput(c, in)
	s.characters[c.ID] = c
	out := cloneCharacter(c)
	return &out, nil
}

func (s *memoryStore) updateCharacter(userID, id string, in models.CharacterInput) (*models.Character, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if c.CreatorID != userID {
		return nil, models.ErrForbidden
	}
	applyCharacterInput(c, in)
	c.UpdatedAt = s.timestamp()
	out := cloneCharacter(c)
	return &out, nil
}

func (s *memoryStore) deleteCharacter(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok {
		return models.ErrNotFound
	}
	if c.CreatorID != userID {
		return models.ErrForbidden
	}
	delete(s.characters, id)
	delete(s.likes, id)
	return nil
}

// toggleLike ставит или снимает лайк. Автору персонажа уходит уведомление о новом лайке.
func (s *memoryStore) toggleLike(userID, id string) (*models.LikeResult, *models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok || (!c.IsPublic && c.CreatorID != userID) {
		return nil, nil, models.ErrNotFound
	}
	set := s.likes[id]
	if set == nil {
		set = make(map[string]struct{})
		s.likes[id] = set
	}
	_, liked := set[userID]
	if liked {
		delete(set, userID)
	} else {
		set[userID] = struct{}{}
	}
	c.LikesCount = int64(len(set))
	out := cloneCharacter(c)
	return &models.LikeResult{Liked: !liked, LikesCount: c.LikesCount}, &out, nil
}

func applyCharacterInput(c *models.Character, in models.CharacterInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	c.Greeting = in.Greeting
	c.Personality = in.Personality
	c.AvatarURL = in.AvatarURL
	c.WorldID = in.WorldID
	c.Tags = append([]string{}, in.Tags...)
	c.IsPublic = in.IsPublic
	c.IsNSFW = in.IsNSFW
}

func cloneCharacter(c *models.Character) models.Character {
	out := *c
	out.Tags = append([]string{}, c.Tags...)
	return out
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

// --- Миры ---

func (s *memoryStore) listWorlds(viewerID string, params models.ListParams) models.Page[models.World] {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(params.Search))
	items := make([]models.World, 0, len(s.worlds))
	for _, w := range s.worlds {
		if !w.IsPublic && w.CreatorID != viewerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(w.Name), search) {
			continue
		}
		items = append(items, *w)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return models.Paginate(items, params)
}

func (s *memoryStore) getWorld(viewerID, id string) (*models.World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worlds[id]
	if !ok || (!w.IsPublic && w.CreatorID != viewerID) {
		return nil, models.ErrNotFound
	}
	out := *w
	return &out, nil
}

func (s *memoryStore) createWorld(creatorID string, in models.WorldInput) (*models.World, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &models.World{
		ID:          uuid.NewString(),
		CreatorID:   creatorID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Lore:        in.Lore,
		IsPublic:    in.IsPublic,
		CreatedAt:   s.timestamp(),
	}
	s.worlds[w.ID] = w
	out := *w
	return &out, nil
}

// --- Персоны ---

func (s *memoryStore) listPersonas(userID string) []models.PersonaPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PersonaPreset, 0)
	for _, p := range s.personas {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *memoryStore) getPersona(userID, id string) (*models.PersonaPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[id]
	if !ok || p.UserID != userID {
		return nil, models.ErrNotFound
	}
	out := *p
	return &out, nil
}

// createPersona создает персону. Первая персона пользователя становится персоной по умолчанию.
func (s *memoryStore) createPersona(userID string, in models.PersonaInput) (*models.PersonaPreset, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hasAny := false
	for _, p := range s.personas {
		if p.UserID == userID {
			hasAny = true
			break
		}
	}
	p := &models.PersonaPreset{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		IsDefault:   in.IsDefault || !hasAny,
		CreatedAt:   s.timestamp(),
	}
	if p.IsDefault {
		s.clearDefaultPersonaLocked(userID)
	}
	s.personas[p.ID] = p
	out := *p
	return &out, nil
}

func (s *memoryStore) updatePersona(userID, id string, in models.PersonaInput) (*models.PersonaPreset, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[id]
	if !ok || p.UserID != userID {
		return nil, models.ErrNotFound
	}
	if in.IsDefault && !p.IsDefault {
		s.clearDefaultPersonaLocked(userID)
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	if in.IsDefault {
		p.IsDefault = true
	}
	out := *p
	return &out, nil
}

func (s *memoryStore) deletePersona(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[id]
	if !ok || p.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.personas, id)
	return nil
}

func (s *memoryStore) clearDefaultPersonaLocked(userID string) {
	for _, p := range s.personas {
		if p.UserID == userID {
			p.IsDefault = false
		}
	}
}

// --- Изображения ---

func (s *memoryStore) listImages(userID string) []models.ImageAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ImageAsset, 0)
	for _, img := range s.images {
		if img.UserID == userID {
			out = append(out, *img)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) addImage(userID, fileName, contentType string, size int64) *models.ImageAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := &models.ImageAsset{
		ID:          uuid.NewString(),
		UserID:      userID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   s.timestamp(),
	}
	img.URL = "/static/images/" + img.ID + "/" + fileName
	s.images[img.ID] = img
	out := *img
	return &out
}

func (s *memoryStore) deleteImage(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok || img.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.images, id)
	return nil
}
