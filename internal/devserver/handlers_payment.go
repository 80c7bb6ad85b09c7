package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"charchat-client/internal/models"
)

func (s *Server) listPackages(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.listPackages())
}

func (s *Server) checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.PackageID) == "" {
		s.respondError(c, models.Required("packageId"))
		return
	}
	p, err := s.store.checkout(userID(c), req.PackageID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, p)
}

// confirmPayment начисляет токены и отправляет уведомление об оплате.
func (s *Server) confirmPayment(c *gin.Context) {
	var req models.ConfirmRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		s.respondError(c, models.Required("paymentId"))
		return
	}
	uid := userID(c)
	p, balance, err := s.store.confirmPayment(uid, req.PaymentID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	data, _ := json.Marshal(map[string]any{"paymentId": p.ID, "tokenBalance": balance})
	n, err := s.store.addNotification(uid, models.NotificationPayment, "Payment completed",
		fmt.Sprintf("%d tokens were added to your balance", p.Tokens), data)
	if err == nil {
		s.pushNotification(n)
	}
	respondOK(c, http.StatusOK, p)
}

func (s *Server) paymentHistory(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.paymentHistory(userID(c), listParams(c)))
}

func (s *Server) getSubscription(c *gin.Context) {
	respondOK(c, http.StatusOK, s.store.subscription(userID(c)))
}

func (s *Server) subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	sub, err := s.store.subscribe(userID(c), req.Plan)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, sub)
}

func (s *Server) cancelSubscription(c *gin.Context) {
	if err := s.store.cancelSubscription(userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

// --- уведомления ---

func (s *Server) listNotifications(c *gin.Context) {
	unreadOnly := c.Query("unreadOnly") == "true"
	respondOK(c, http.StatusOK, s.store.listNotifications(userID(c), listParams(c), unreadOnly))
}

func (s *Server) unreadCount(c *gin.Context) {
	respondOK(c, http.StatusOK, models.UnreadCount{Count: s.store.unreadCount(userID(c))})
}

func (s *Server) markRead(c *gin.Context) {
	uid := userID(c)
	count, err := s.store.markRead(uid, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.pushUnreadCount(uid)
	respondOK(c, http.StatusOK, models.UnreadCount{Count: count})
}

func (s *Server) markAllRead(c *gin.Context) {
	uid := userID(c)
	updated := s.store.markAllRead(uid)
	s.pushUnreadCount(uid)
	respondOK(c, http.StatusOK, models.MarkAllResult{Updated: updated})
}

func (s *Server) deleteNotification(c *gin.Context) {
	uid := userID(c)
	if err := s.store.deleteNotification(uid, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	s.pushUnreadCount(uid)
	respondOK(c, http.StatusOK, nil)
}
