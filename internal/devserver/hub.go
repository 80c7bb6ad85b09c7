package devserver

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsClient - одно WebSocket соединение пользователя.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

type registration struct {
	client *wsClient
	done   chan struct{}
}

// ConnectionManager управляет активными WebSocket соединениями.
// У пользователя может быть несколько соединений одновременно.
type ConnectionManager struct {
	clients    map[string]map[*wsClient]struct{}
	register   chan registration
	unregister chan *wsClient
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewConnectionManager создает и запускает менеджер соединений.
func NewConnectionManager(logger zerolog.Logger) *ConnectionManager {
	m := &ConnectionManager{
		clients:    make(map[string]map[*wsClient]struct{}),
		register:   make(chan registration),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "ConnectionManager").Logger(),
	}
	go m.run()
	return m
}

func (m *ConnectionManager) run() {
	m.logger.Debug().Msg("ConnectionManager started")
	for {
		select {
		case reg := <-m.register:
			client := reg.client
			m.mu.Lock()
			set := m.clients[client.userID]
			if set == nil {
				set = make(map[*wsClient]struct{})
				m.clients[client.userID] = set
			}
			set[client] = struct{}{}
			m.mu.Unlock()
			close(reg.done)
			m.logger.Info().Str("userID", client.userID).Msg("Client registered")

		case client := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[client.userID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(m.clients, client.userID)
					}
					m.logger.Info().Str("userID", client.userID).Msg("Client unregistered")
				}
			}
			m.mu.Unlock()

		case <-m.done:
			m.logger.Debug().Msg("ConnectionManager stopped")
			return
		}
	}
}

// RegisterClient регистрирует новое соединение и ждет, пока менеджер его примет.
func (m *ConnectionManager) RegisterClient(client *wsClient) bool {
	reg := registration{client: client, done: make(chan struct{})}
	select {
	case m.register <- reg:
	case <-m.done:
		return false
	}
	select {
	case <-reg.done:
		return true
	case <-m.done:
		return false
	}
}

// UnregisterClient удаляет соединение. Повторный вызов безопасен.
func (m *ConnectionManager) UnregisterClient(client *wsClient) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// SendToUser ставит сообщение в очередь всех соединений пользователя.
// Возвращает число соединений, принявших сообщение.
func (m *ConnectionManager) SendToUser(userID string, message []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	delivered := 0
	for client := range m.clients[userID] {
		select {
		case client.send <- message:
			delivered++
		default:
			m.logger.Warn().Str("userID", userID).Msg("Send queue is full, message dropped")
		}
	}
	return delivered
}

// sendTo ставит сообщение в очередь конкретного соединения, если оно еще зарегистрировано.
func (m *ConnectionManager) sendTo(client *wsClient, message []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.clients[client.userID][client]; !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// ConnectedUsers возвращает число пользователей, у которых есть хотя бы одно соединение.
func (m *ConnectionManager) ConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// DisconnectAll принудительно закрывает все соединения. Клиенты видят обрыв связи.
func (m *ConnectionManager) DisconnectAll() int {
	m.mu.RLock()
	var conns []*websocket.Conn
	for _, set := range m.clients {
		for client := range set {
			conns = append(conns, client.conn)
		}
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return len(conns)
}

// Stop закрывает все соединения и останавливает цикл менеджера.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		m.DisconnectAll()
		close(m.done)
	})
}
