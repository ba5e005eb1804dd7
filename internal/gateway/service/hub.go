package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"community-platform/backend/internal/gateway/domain"
	membershipservice "community-platform/backend/internal/membership/service"
	messagedomain "community-platform/backend/internal/message/domain"
)

// MessageService is the slice of the message service the hub drives from
// client frames.
type MessageService interface {
	Send(ctx context.Context, senderID, channelID, content string, attachments []messagedomain.Attachment) (*messagedomain.Message, error)
	Edit(ctx context.Context, editorID, messageID, content string) (*messagedomain.Message, error)
	Delete(ctx context.Context, requesterID, messageID string) error
}

// Hub owns all gateway connections: the client set, the room subscription
// index, and the presence registry. All three are guarded by one mutex so a
// disconnect observes a consistent view.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	rooms    map[string]map[*Client]bool
	presence map[string]*Client

	register   chan *Client
	unregister chan *Client

	messages MessageService
	log      zerolog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub returns a hub ready to Run. Bind the message service with
// BindMessages before serving connections.
func NewHub(log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		presence:   make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// BindMessages wires the message service the hub dispatches message frames to.
// The hub and the service reference each other, so binding happens after both
// are constructed and before Run.
func (h *Hub) BindMessages(ms MessageService) {
	h.messages = ms
}

// HandleConnection registers an already-authenticated connection with the hub.
// The hub launches the read and write pumps. Connections arriving after
// Shutdown are closed instead of registered.
func (h *Hub) HandleConnection(conn *websocket.Conn, userID string) {
	client := newClient(uuid.NewString(), userID, conn, h, h.log)
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		if conn == nil {
			return
		}
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn().Err(err).Msg("closing connection after shutdown")
		}
	}
}

// Run is the hub's event loop. It handles registration and disconnects and
// exits when Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.addClient(client)
			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// addClient inserts the client and takes over presence for its user. The
// latest connection wins presence; an earlier connection of the same user
// stays registered but no longer receives per-user pushes.
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	client.closed = false
	h.clients[client] = true
	h.presence[client.userID] = client
	total := len(h.clients)
	h.mu.Unlock()

	client.log.Info().Int("total_clients", total).Msg("client registered")
	h.broadcastExcept(client, domain.PresenceOnline(client.userID))
}

// removeClient drops the client from the client set, every room it joined,
// and presence when it is still the current presence connection. A superseded
// connection's departure broadcasts no offline event; a newer connection of
// the same user holds presence and the user is still online.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	for channelID := range client.rooms {
		h.detachFromRoomLocked(client, channelID)
	}
	wasPresent := h.presence[client.userID] == client
	if wasPresent {
		delete(h.presence, client.userID)
	}
	total := len(h.clients)
	h.mu.Unlock()

	close(client.send)
	client.log.Info().Int("total_clients", total).Msg("client unregistered")

	if wasPresent {
		h.broadcastExcept(client, domain.PresenceOffline(client.userID))
	}
}

func (h *Hub) detachFromRoomLocked(client *Client, channelID string) {
	delete(client.rooms, channelID)
	if members, ok := h.rooms[channelID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, channelID)
		}
	}
}

// JoinRoom subscribes the client to a channel's fan-out. Membership is not
// checked here; sends are authorized per message.
func (h *Hub) JoinRoom(client *Client, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client.closed {
		return
	}
	client.rooms[channelID] = true
	if h.rooms[channelID] == nil {
		h.rooms[channelID] = make(map[*Client]bool)
	}
	h.rooms[channelID][client] = true
}

// LeaveRoom unsubscribes the client from a channel's fan-out.
func (h *Hub) LeaveRoom(client *Client, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachFromRoomLocked(client, channelID)
}

// PushToRoom delivers the event to every client subscribed to the channel at
// the moment of the call. Delivery is best effort: closed clients are skipped
// and clients with a full send buffer are evicted.
func (h *Hub) PushToRoom(channelID string, event domain.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("encoding server event")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[channelID]))
	for client := range h.rooms[channelID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	h.deliver(targets, payload, nil)
}

// PushToUser delivers the event to the user's current presence connection.
// Offline users are silently skipped.
func (h *Hub) PushToUser(userID string, event domain.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("encoding server event")
		return
	}

	h.mu.RLock()
	client := h.presence[userID]
	h.mu.RUnlock()
	if client == nil {
		return
	}

	h.deliver([]*Client{client}, payload, nil)
}

// broadcastExcept delivers the event to every registered client except one.
func (h *Hub) broadcastExcept(except *Client, event domain.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("encoding server event")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	h.deliver(targets, payload, except)
}

// pushToClient sends one event to one client, used for error frames.
func (h *Hub) pushToClient(client *Client, event domain.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("encoding server event")
		return
	}
	h.deliver([]*Client{client}, payload, nil)
}

func (h *Hub) deliver(targets []*Client, payload []byte, except *Client) {
	var evict []*Client
	for _, client := range targets {
		if client == except {
			continue
		}
		if !h.safeSend(client, payload) {
			evict = append(evict, client)
		}
	}
	h.evictClients(evict)
}

// safeSend enqueues the payload without blocking. It returns false when the
// client is gone or its send buffer is full.
func (h *Hub) safeSend(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; !ok || client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// evictClients removes clients whose buffers overflowed. Their channels close
// after the lock is released so the write pumps drain and exit.
func (h *Hub) evictClients(evict []*Client) {
	if len(evict) == 0 {
		return
	}

	h.mu.Lock()
	var channels []chan []byte
	for _, client := range evict {
		if _, ok := h.clients[client]; !ok {
			continue
		}
		delete(h.clients, client)
		client.closed = true
		for channelID := range client.rooms {
			h.detachFromRoomLocked(client, channelID)
		}
		if h.presence[client.userID] == client {
			delete(h.presence, client.userID)
		}
		channels = append(channels, client.send)
		client.log.Warn().Msg("client evicted: send buffer full")
	}
	h.mu.Unlock()

	for _, ch := range channels {
		close(ch)
	}
}

// dispatch routes one decoded client event. Errors from the message service
// become error frames to the sender only; fan-out to other clients happens
// inside the message service after persistence.
func (h *Hub) dispatch(client *Client, ev domain.ClientEvent) {
	switch ev.Type {
	case domain.ClientChannelJoin:
		h.JoinRoom(client, ev.ChannelID)
	case domain.ClientChannelLeave:
		h.LeaveRoom(client, ev.ChannelID)
	case domain.ClientTypingStart:
		h.pushToRoomExcept(client, ev.ChannelID, domain.TypingUser(ev.ChannelID, client.userID))
	case domain.ClientTypingStop:
		h.pushToRoomExcept(client, ev.ChannelID, domain.TypingStopped(ev.ChannelID, client.userID))
	case domain.ClientMessageSend:
		if _, err := h.messages.Send(h.ctx, client.userID, ev.ChannelID, ev.Content, nil); err != nil {
			h.rejectEvent(client, ev, err)
		}
	case domain.ClientMessageEdit:
		if _, err := h.messages.Edit(h.ctx, client.userID, ev.MessageID, ev.Content); err != nil {
			h.rejectEvent(client, ev, err)
		}
	case domain.ClientMessageDelete:
		if err := h.messages.Delete(h.ctx, client.userID, ev.MessageID); err != nil {
			h.rejectEvent(client, ev, err)
		}
	default:
		h.pushToClient(client, domain.ErrorEvent("unknown_event", "unrecognized event type"))
	}
}

func (h *Hub) pushToRoomExcept(except *Client, channelID string, event domain.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Type).Msg("encoding server event")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[channelID]))
	for client := range h.rooms[channelID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	h.deliver(targets, payload, except)
}

func (h *Hub) rejectEvent(client *Client, ev domain.ClientEvent, err error) {
	code := errorCode(err)
	client.log.Debug().Err(err).Str("event", ev.Type).Str("code", code).Msg("client event rejected")
	h.pushToClient(client, domain.ErrorEvent(code, err.Error()))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, membershipservice.ErrForbidden):
		return "forbidden"
	case errors.Is(err, membershipservice.ErrTimeout):
		return "timeout"
	default:
		return messageErrorCode(err)
	}
}

// closeAllConnections force-closes every connection during shutdown. The read
// pumps observe the close and unregister normally.
func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			client.log.Warn().Err(err).Msg("closing client connection during shutdown")
		}
	}
	h.log.Info().Int("clients", len(clients)).Msg("closed all gateway connections")
}

// Shutdown stops the hub and waits for client goroutines up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("gateway shutting down")
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info().Msg("gateway shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("gateway shutdown timed out")
		return context.DeadlineExceeded
	}
}
