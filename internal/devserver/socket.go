package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"charchat-client/internal/models"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Период пингов. Должен быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Максимальный размер кадра от клиента.
	maxMessageSize = 4096
)

func (s *Server) newUpgrader() websocket.Upgrader {
	allowed := s.cfg.GetAllowedOrigins()
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// serveSocket устанавливает WebSocket соединение канала уведомлений.
// Токен передается в query параметре token.
func (s *Server) serveSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		s.logger.Warn().Msg("Missing 'token' query parameter")
		c.String(http.StatusUnauthorized, "Unauthorized: missing token")
		return
	}
	cl, err := s.tokens.verify(tokenString, tokenTypeAccess)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Invalid socket token")
		c.String(http.StatusUnauthorized, "Unauthorized: "+err.Error())
		return
	}
	if _, err := s.store.getUser(cl.Subject); err != nil {
		c.String(http.StatusUnauthorized, "Unauthorized: unknown user")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("userID", cl.Subject).Msg("Failed to upgrade connection")
		return
	}

	client := &wsClient{
		userID: cl.Subject,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
	if !s.hub.RegisterClient(client) {
		_ = conn.Close()
		return
	}
	logger := s.logger.With().Str("userID", client.userID).Logger()
	logger.Info().Msg("WebSocket connection established")

	go s.writePump(client, logger)
	go s.readPump(client, logger)

	// Снимок счетчика сразу после подключения.
	s.hub.sendTo(client, mustFrame(models.EventUnreadCount, "", models.UnreadCount{Count: s.store.unreadCount(client.userID)}, ""))
}

func (s *Server) readPump(client *wsClient, logger zerolog.Logger) {
	defer func() {
		s.hub.UnregisterClient(client)
		_ = client.conn.Close()
		logger.Debug().Msg("readPump finished")
	}()
	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
		var frame models.SocketFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.Warn().Err(err).Msg("Malformed frame from client (ignored)")
			continue
		}
		s.handleFrame(client, frame, logger)
	}
}

func (s *Server) writePump(client *wsClient, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
		logger.Debug().Msg("writePump finished")
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug().Err(err).Msg("Failed to write message")
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug().Err(err).Msg("Failed to send ping")
				return
			}
		case <-s.hub.done:
			return
		}
	}
}

// handleFrame обрабатывает запрос клиента и отвечает ack кадром с тем же id.
// Паника обработчика завершает только этот кадр, соединение и процесс продолжают работу.
func (s *Server) handleFrame(client *wsClient, frame models.SocketFrame, logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("event", frame.Event).Msg("Recovered from panic while handling frame")
			s.ack(client, frame.ID, nil, models.ErrInternalServer)
		}
	}()
	switch frame.Event {
	case models.EventMarkAsRead:
		var p models.MarkAsReadPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ID == "" {
			s.ack(client, frame.ID, nil, models.Required("id"))
			return
		}
		count, err := s.store.markRead(client.userID, p.ID)
		if err != nil {
			s.ack(client, frame.ID, nil, err)
			return
		}
		s.ack(client, frame.ID, models.UnreadCount{Count: count}, nil)
		s.pushUnreadCount(client.userID)

	case models.EventMarkAllAsRead:
		updated := s.store.markAllRead(client.userID)
		s.ack(client, frame.ID, models.MarkAllResult{Updated: updated}, nil)
		s.pushUnreadCount(client.userID)

	case models.EventGetNotifications:
		var p models.FetchNotificationsPayload
		if len(frame.Data) > 0 {
			_ = json.Unmarshal(frame.Data, &p)
		}
		page := s.store.listNotifications(client.userID, models.ListParams{Page: p.Page, Limit: p.Limit}, false)
		s.ack(client, frame.ID, page, nil)

	default:
		logger.Warn().Str("event", frame.Event).Msg("Unknown event from client")
		if frame.ID != "" {
			s.ack(client, frame.ID, nil, errors.New("unknown event"))
		}
	}
}

func (s *Server) ack(client *wsClient, id string, data any, err error) {
	if id == "" {
		return
	}
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	s.hub.sendTo(client, mustFrame(models.EventAck, id, data, errText))
}

func (s *Server) pushUnreadCount(userID string) {
	s.hub.SendToUser(userID, mustFrame(models.EventUnreadCount, "", models.UnreadCount{Count: s.store.unreadCount(userID)}, ""))
}

func (s *Server) pushNotification(n *models.Notification) {
	s.hub.SendToUser(n.UserID, mustFrame(models.EventNewNotification, "", models.NewNotificationPayload{Notification: *n}, ""))
	s.pushUnreadCount(n.UserID)
}

func mustFrame(event, id string, data any, errText string) []byte {
	frame := models.SocketFrame{Event: event, ID: id, Error: errText}
	if data != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			frame.Data = raw
		}
	}
	out, _ := json.Marshal(frame)
	return out
}
