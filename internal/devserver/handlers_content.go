package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"charchat-client/internal/models"
)

const maxImageBytes = 5 << 20

// --- персонажи ---

func (s *Server) listCharacters(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.listCharacters(userID(c), listParams(c)))
}

func (s *Server) getCharacter(c *gin.Context) {
	ch, err := s.store.getCharacter(userID(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ch)
}

func (s *Server) createCharacter(c *gin.Context) {
	var in models.CharacterInput
	if !s.bindJSON(c, &in) {
		return
	}
	ch, err := s.store.createCharacter(userID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, ch)
}

func (s *Server) updateCharacter(c *gin.Context) {
	var in models.CharacterInput
	if !s.bindJSON(c, &in) {
		return
	}
	ch, err := s.store.updateCharacter(userID(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ch)
}

func (s *Server) deleteCharacter(c *gin.Context) {
	if err := s.store.deleteCharacter(userID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

// likeCharacter переключает лайк. Новый лайк уведомляет автора персонажа.
func (s *Server) likeCharacter(c *gin.Context) {
	uid := userID(c)
	res, ch, err := s.store.toggleLike(uid, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if res.Liked && ch.CreatorID != uid {
		data, _ := json.Marshal(map[string]string{"characterId": ch.ID})
		if n, err := s.store.addNotification(ch.CreatorID, models.NotificationLike, "New like", ch.Name+" received a new like", data); err == nil {
			s.pushNotification(n)
		}
	}
	respondOK(c, http.StatusOK, res)
}

// --- диалоги ---

func (s *Server) listChats(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.listChats(userID(c), listParams(c)))
}

func (s *Server) startChat(c *gin.Context) {
	var req models.StartChatRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.CharacterID) == "" {
		s.respondError(c, models.Required("characterId"))
		return
	}
	chat, err := s.store.startChat(userID(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, chat)
}

func (s *Server) getChat(c *gin.Context) {
	chat, err := s.store.getChat(userID(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, chat)
}

func (s *Server) deleteChat(c *gin.Context) {
	if err := s.store.deleteChat(userID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) listMessages(c *gin.Context) {
	page, err := s.store.listMessages(userID(c), c.Param("id"), listParams(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, page)
}

// sendMessage - один ход диалога: ответ персонажа и списание ChatTurnCost токенов.
func (s *Server) sendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.respondError(c, models.Required("content"))
		return
	}
	uid, chatID := userID(c), c.Param("id")
	tc, err := s.store.prepareTurn(uid, chatID, s.cfg.ChatTurnCost)
	if err != nil {
		s.respondError(c, err)
		return
	}
	reply, err := s.responder.Reply(c.Request.Context(), tc.character, tc.history, req.Content)
	if err != nil {
		s.respondError(c, err)
		return
	}
	turn, err := s.store.commitTurn(uid, chatID, req.Content, reply, s.cfg.ChatTurnCost)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, turn)
}

// --- баннеры, персоны, миры ---

func (s *Server) listBanners(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.activeBanners())
}

func (s *Server) listPersonas(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.listPersonas(userID(c)))
}

func (s *Server) createPersona(c *gin.Context) {
	var in models.PersonaInput
	if !s.bindJSON(c, &in) {
		return
	}
	p, err := s.store.createPersona(userID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, p)
}

func (s *Server) updatePersona(c *gin.Context) {
	var in models.PersonaInput
	if !s.bindJSON(c, &in) {
		return
	}
	p, err := s.store.updatePersona(userID(c), c.Param("id"), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (s *Server) deletePersona(c *gin.Context) {
	if err := s.store.deletePersona(userID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) listWorlds(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.listWorlds(userID(c), listParams(c)))
}

func (s *Server) getWorld(c *gin.Context) {
	w, err := s.store.getWorld(userID(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, w)
}

func (s *Server) createWorld(c *gin.Context) {
	var in models.WorldInput
	if !s.bindJSON(c, &in) {
		return
	}
	w, err := s.store.createWorld(userID(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, w)
}

// --- изображения ---

func (s *Server) listImages(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.listImages(userID(c)))
}

func (s *Server) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, models.Required("file"))
		return
	}
	if fh.Size == 0 {
		s.respondError(c, &models.FieldError{Field: "file", Reason: "is empty"})
		return
	}
	if fh.Size > maxImageBytes {
		s.respondError(c, &models.FieldError{Field: "file", Reason: "exceeds 5MB"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	contentType := http.DetectContentType(head[:n])

	img := s.store.addImage(userID(c), filepath.Base(fh.Filename), contentType, fh.Size)
	respondOK(c, http.StatusCreated, img)
}

func (s *Server) deleteImage(c *gin.Context) {
	if err := s.store.deleteImage(userID(c), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}
