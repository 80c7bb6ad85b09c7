package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"charchat-client/internal/models"
)

func listParams(c *gin.Context) models.ListParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.ListParams{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
		Tag:    c.Query("tag"),
		Sort:   c.Query("sort"),
	}
}

func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, &models.FieldError{Field: "body", Reason: "is not valid JSON"})
		return false
	}
	return true
}

func (s *Server) issueFor(c *gin.Context, user *models.User, status int) {
	pair, refreshID, err := s.tokens.issue(user)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.store.saveRefresh(refreshID, user.ID)
	respondOK(c, status, models.AuthResult{TokenPair: pair, User: user})
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		s.respondError(c, models.Required("email"))
		return
	}
	if req.Password == "" {
		s.respondError(c, models.Required("password"))
		return
	}
	user, err := s.store.authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Info().Str("email", req.Email).Msg("Login failed")
		s.respondError(c, err)
		return
	}
	s.issueFor(c, user, http.StatusOK)
}

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if !s.bindJSON(c, &req) {
		return
	}
	switch {
	case !strings.Contains(req.Email, "@"):
		s.respondError(c, &models.FieldError{Field: "email", Reason: "is not a valid address"})
		return
	case strings.TrimSpace(req.Username) == "":
		s.respondError(c, models.Required("username"))
		return
	case len(req.Password) < 8:
		s.respondError(c, &models.FieldError{Field: "password", Reason: "must be at least 8 characters"})
		return
	}
	user, err := s.store.createUser(req.Email, req.Username, req.Password, s.cfg.StarterTokens)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info().Str("userID", user.ID).Msg("User registered")
	s.issueFor(c, user, http.StatusCreated)
}

// refresh выпускает новую пару токенов. Старый refresh токен отзывается.
func (s *Server) refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !s.bindJSON(c, &req) {
		return
	}
	cl, err := s.tokens.verify(req.RefreshToken, tokenTypeRefresh)
	if err != nil {
		s.respondError(c, err)
		return
	}
	owner, ok := s.store.consumeRefresh(cl.ID)
	if !ok || owner != cl.Subject {
		s.respondError(c, models.ErrUnauthorized)
		return
	}
	user, err := s.store.getUser(owner)
	if err != nil {
		s.respondError(c, models.ErrUnauthorized)
		return
	}
	s.issueFor(c, user, http.StatusOK)
}

// logout отзывает refresh токен. Ответ всегда успешный.
func (s *Server) logout(c *gin.Context) {
	var req models.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken != "" {
		if cl, err := s.tokens.verify(req.RefreshToken, tokenTypeRefresh); err == nil {
			s.store.consumeRefresh(cl.ID)
		}
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) me(c *gin.Context) {
	user, err := s.store.getUser(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.store.getUser(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	// Публичный профиль без приватных полей.
	user.Email = ""
	user.TokenBalance = 0
	respondOK(c, http.StatusOK, user)
}

func (s *Server) updateProfile(c *gin.Context) {
	var upd models.ProfileUpdate
	if !s.bindJSON(c, &upd) {
		return
	}
	user, err := s.store.updateProfile(userID(c), upd)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

func (s *Server) changePassword(c *gin.Context) {
	var req models.PasswordChange
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.store.changePassword(userID(c), req.CurrentPassword, req.NewPassword); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) tokenBalance(c *gin.Context) {
	user, err := s.store.getUser(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, models.TokenBalance{Balance: user.TokenBalance})
}
