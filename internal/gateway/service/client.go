// Package service runs the session gateway: authenticated WebSocket clients,
// the room and presence indices, and fan-out of server events.
package service

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"community-platform/backend/internal/gateway/domain"
)

const (
	sendBufferSize = 256
	maxFrameSize   = 16 * 1024

	pongWait      = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

// Client is one authenticated WebSocket connection. A user may hold several
// clients at once; only the latest one carries presence.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	log    zerolog.Logger

	// closed and rooms are guarded by the hub mutex.
	closed bool
	rooms  map[string]bool
}

func newClient(id, userID string, conn *websocket.Conn, hub *Hub, log zerolog.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(maxFrameSize)
	}
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		hub:    hub,
		log:    log.With().Str("client_id", id).Str("user_id", userID).Logger(),
		rooms:  make(map[string]bool),
	}
}

// UserID returns the authenticated user behind the connection.
func (c *Client) UserID() string {
	return c.userID
}

// isExpectedCloseError reports whether an error is ordinary connection
// teardown rather than something worth logging loudly.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "websocket: close sent") ||
		strings.Contains(s, "broken pipe")
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn().Err(err).Msg("setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError reports whether the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn().Int("limit", maxFrameSize).Msg("frame exceeded maximum size")
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.log.Debug().Err(err).Msg("client disconnected")
		return true
	}
	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("connection closed")
		return true
	}
	c.log.Warn().Err(err).Msg("websocket read error")
	return true
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("closing connection in read pump")
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			return
		}

		var ev domain.ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Debug().Err(err).Msg("undecodable client frame")
			c.hub.pushToClient(c, domain.ErrorEvent("bad_request", "malformed event frame"))
			continue
		}
		c.hub.dispatch(c, ev)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("closing connection in write pump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				c.log.Warn().Err(err).Msg("setting write deadline")
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					c.log.Debug().Err(err).Msg("writing close frame")
				}
				return
			}
			if !c.writeFrame(message) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				c.log.Warn().Err(err).Msg("setting write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug().Err(err).Msg("writing ping frame")
				}
				return
			}
		}
	}
}

// writeFrame writes the frame plus any frames already queued behind it.
func (c *Client) writeFrame(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Debug().Err(err).Msg("creating frame writer")
		return false
	}
	if _, err := w.Write(message); err != nil {
		c.log.Debug().Err(err).Msg("writing frame")
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.log.Debug().Err(err).Msg("closing frame writer")
		return false
	}
	return true
}
