package websockets

import (
	"context"
	"encoding/json"
	"time"

	"turnkeep/internal/events"
	"turnkeep/internal/metrics"
	"turnkeep/internal/services"
	"turnkeep/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING            = "ping"
	MESSAGE_TYPE_PONG            = "pong"
	MESSAGE_TYPE_AUTH_REQUEST    = "auth_request"
	MESSAGE_TYPE_AUTH_RESPONSE   = "auth_response"
	MESSAGE_TYPE_AUTH_SUCCESS    = "auth_success"
	MESSAGE_TYPE_AUTH_FAILURE    = "auth_failure"
	MESSAGE_TYPE_SCHEDULE_CHANGE = "schedule_change"
	MESSAGE_TYPE_SYNC_STARTED    = "sync_started"
	MESSAGE_TYPE_SYNC_COMPLETE   = "sync_complete"

	PING_INTERVAL     = 30 * time.Second
	PONG_TIMEOUT      = 60 * time.Second
	WRITE_TIMEOUT     = 10 * time.Second
	MAX_MESSAGE_SIZE  = 1024 * 1024 // 1 MB
	SEND_CHANNEL_SIZE = 64
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Action    string         `json:"action,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Client struct {
	ID         string
	UserID     uuid.UUID
	Connection *websocket.Conn
	Manager    *Manager
	Status     int
	send       chan Message
}

type Manager struct {
	hub      *Hub
	log      logger.Logger
	eventBus *events.EventBus
	session  *services.SessionService
	suppress *services.SuppressRegistry
}

func New(
	eventBus *events.EventBus,
	session *services.SessionService,
	suppress *services.SuppressRegistry,
) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			broadcast:  make(chan Message),
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
		},
		log:      log,
		eventBus: eventBus,
		session:  session,
		suppress: suppress,
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	go manager.subscribeToScheduleChanges()
	go manager.subscribeToBroadcastEvents()

	return manager, nil
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")
	clientID := uuid.New().String()

	client := &Client{
		ID:         clientID,
		UserID:     uuid.Nil,
		Connection: c,
		Manager:    m,
		Status:     STATUS_UNAUTHENTICATED,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	// The client id doubles as the session id used for suppress-next flags;
	// the client echoes it back in mutation requests.
	authRequest := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_REQUEST,
		Data:      map[string]any{"sessionId": clientID},
		Timestamp: time.Now(),
	}

	if err := c.WriteJSON(authRequest); err != nil {
		log.Er("failed to send auth request", err)
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	m.hub.register <- client
	defer func() {
		log.Info("Client disconnected", "clientID", clientID)
		m.hub.unregister <- client
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
	}()

	go client.readPump()
	client.writePump()
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.hub.unregister <- c
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		err := c.Connection.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				log.Er("unexpected close error", err, "clientID", c.ID)
			}
			break
		}

		message.ID = uuid.New().String()
		message.Timestamp = time.Now()

		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == MESSAGE_TYPE_AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if c.Status == STATUS_UNAUTHENTICATED {
		log.Warn(
			"Blocking message from unauthenticated client",
			"clientID", c.ID,
			"messageType", message.Type,
		)
		c.send <- Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_AUTH_FAILURE,
			Data:      map[string]any{"reason": "Authentication required"},
			Timestamp: time.Now(),
		}
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.send <- Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_PONG,
			Timestamp: time.Now(),
		}
	default:
		log.Warn("Unknown message type", "type", message.Type, "clientID", c.ID)
	}
}

func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	if c.Status != STATUS_UNAUTHENTICATED {
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		log.Warn("Invalid token in auth response", "clientID", c.ID)
		c.sendAuthFailure("Invalid token format")
		return
	}

	claims, err := c.Manager.session.ValidateToken(context.Background(), token)
	if err != nil {
		log.Warn("Token validation failed", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("Invalid token")
		return
	}

	c.UserID = claims.UserID
	c.Status = STATUS_AUTHENTICATED

	log.Info("Client authenticated", "clientID", c.ID, "userID", c.UserID)

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_SUCCESS,
		Data:      map[string]any{"userId": c.UserID.String(), "sessionId": c.ID},
		Timestamp: time.Now(),
	}
}

func (c *Client) sendAuthFailure(reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_FAILURE,
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	}

	log.Info("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = c.Connection.Close()
	}()
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PublishScheduleChange pushes a change event onto the shared feed. Writers
// arm their suppress-next flag before calling this.
func (m *Manager) PublishScheduleChange(change services.ChangeEvent) {
	log := m.log.Function("PublishScheduleChange")

	if err := m.eventBus.Publish(events.SCHEDULE_CHANGES, events.SCHEDULE_CHANGE, change); err != nil {
		log.Er("failed to publish schedule change", err, "scheduleID", change.ScheduleID)
	}
}

func (m *Manager) subscribeToScheduleChanges() {
	log := m.log.Function("subscribeToScheduleChanges")
	log.Info("Starting schedule change subscription")

	err := m.eventBus.Subscribe(events.SCHEDULE_CHANGES, func(event events.Event) error {
		var change services.ChangeEvent
		if err := json.Unmarshal(event.Payload, &change); err != nil {
			return log.Err("failed to unmarshal schedule change", err, "eventID", event.ID)
		}

		m.dispatchScheduleChange(change)
		return nil
	})
	if err != nil {
		log.Er("failed to subscribe to schedule changes", err)
	}
}

// dispatchScheduleChange classifies the change per connected viewer and only
// forwards what the viewer must act on. Ignored events (self-echoes and
// concurrent operational updates during cleaning) are dropped server-side so
// viewers never reset scroll/filter state for them.
func (m *Manager) dispatchScheduleChange(change services.ChangeEvent) {
	log := m.log.Function("dispatchScheduleChange")

	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	sent := 0
	for _, client := range m.hub.clients {
		if client.Status != STATUS_AUTHENTICATED {
			continue
		}

		suppressed := false
		if change.Origin != "" && change.Origin == client.ID {
			suppressed = m.suppress.Consume(client.ID, change.ScheduleID)
		}

		action := services.Classify(change, suppressed)
		metrics.RealtimeClassifications.WithLabelValues(string(action)).Inc()

		if action == services.ReconcileIgnore {
			continue
		}

		message := Message{
			ID:     uuid.New().String(),
			Type:   MESSAGE_TYPE_SCHEDULE_CHANGE,
			Action: string(action),
			Data: map[string]any{
				"changeType": string(change.Type),
				"scheduleId": change.ScheduleID.String(),
			},
			Timestamp: time.Now(),
		}

		select {
		case client.send <- message:
			sent++
		default:
			log.Warn("Client send channel full, dropping message", "clientID", client.ID)
		}
	}

	log.Debug(
		"Schedule change dispatched",
		"scheduleID", change.ScheduleID,
		"changeType", change.Type,
		"sentTo", sent,
	)
}

func (m *Manager) subscribeToBroadcastEvents() {
	log := m.log.Function("subscribeToBroadcastEvents")
	log.Info("Starting broadcast events subscription")

	err := m.eventBus.Subscribe(events.BROADCAST, func(event events.Event) error {
		var data map[string]any
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &data); err != nil {
				return log.Err("failed to unmarshal broadcast payload", err, "eventID", event.ID)
			}
		}

		m.sendToAuthenticatedClients(Message{
			ID:        uuid.New().String(),
			Type:      string(event.Type),
			Data:      data,
			Timestamp: time.Now(),
		})
		return nil
	})
	if err != nil {
		log.Er("failed to subscribe to broadcast events", err)
	}
}

func (m *Manager) sendToAuthenticatedClients(message Message) {
	log := m.log.Function("sendToAuthenticatedClients")

	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	sent := 0
	for _, client := range m.hub.clients {
		if client.Status == STATUS_AUTHENTICATED {
			select {
			case client.send <- message:
				sent++
			default:
				log.Warn("Client send channel full, dropping message", "clientID", client.ID)
			}
		}
	}

	log.Debug("Message sent to authenticated clients", "messageID", message.ID, "clientCount", sent)
}

// SyncStarted implements services.SyncNotifier: viewers close any open detail
// view so no record is displayed mid-mutation.
func (m *Manager) SyncStarted() {
	log := m.log.Function("SyncStarted")

	if err := m.eventBus.Publish(events.BROADCAST, events.SYNC_STARTED, map[string]any{}); err != nil {
		log.Er("failed to publish sync started", err)
	}
}

// SyncFinished implements services.SyncNotifier: viewers refresh schedule
// state from the store regardless of outcome.
func (m *Manager) SyncFinished(outcome string, synced int) {
	log := m.log.Function("SyncFinished")

	payload := map[string]any{"outcome": outcome, "synced": synced}
	if err := m.eventBus.Publish(events.BROADCAST, events.SYNC_COMPLETE, payload); err != nil {
		log.Er("failed to publish sync finished", err)
	}
}
