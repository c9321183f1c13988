package chattest

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

// Hub tracks gateway connections per user and fans room events out to the
// members of a chat.
type Hub struct {
	srv *Server

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	// userID -> set of connections (several tabs or devices)
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func newHub(s *Server) *Hub {
	return &Hub{
		srv:        s,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		clients:    make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			slog.Debug("[hub] client registered", "user", client.UserID)
		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.UserID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.Send)
					if len(set) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.mu.Unlock()
		case <-h.quit:
			return
		}
	}
}

// Stop ends Run and drops every connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.mu.Lock()
		defer h.mu.Unlock()
		for uid, set := range h.clients {
			for client := range set {
				close(client.Send)
				client.Conn.Close()
			}
			delete(h.clients, uid)
		}
	})
}

func (h *Hub) online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// toMembers sends one event to every member of chatID except the given user.
func (h *Hub) toMembers(chatID, except, kind string, payload any) {
	frame, err := chat.Encode(kind, payload)
	if err != nil {
		slog.Error("[hub] failed to encode event", "type", kind, "error", err)
		return
	}
	for _, uid := range h.srv.members(chatID) {
		if uid != except {
			h.sendTo(uid, frame)
		}
	}
}

func (h *Hub) sendTo(userID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.Send <- frame:
		default:
			slog.Warn("[hub] dropped frame for slow client", "user", userID)
		}
	}
}

func (h *Hub) inbound(c *Client, env chat.Envelope) {
	h.srv.record(c.UserID, env.Event, env.Data)

	switch env.Event {
	case chat.EventNewMessage:
		var in chat.OutgoingMessage
		if err := json.Unmarshal(env.Data, &in); err != nil {
			slog.Warn("[hub] bad NEW_MESSAGE", "user", c.UserID, "error", err)
			return
		}
		m, ok := h.srv.store(in.ChatID, c.UserID, in.Message)
		if !ok {
			return
		}
		h.toMembers(in.ChatID, "", chat.EventNewMessage, chat.NewMessagePayload{ChatID: in.ChatID, Message: m})
		h.toMembers(in.ChatID, c.UserID, chat.EventNewMessageAlert, chat.MessageAlertPayload{ChatID: in.ChatID})
	case chat.EventStartTyping, chat.EventStopTyping:
		var in chat.TypingPayload
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		h.toMembers(in.ChatID, c.UserID, env.Event, chat.TypingPayload{ChatID: in.ChatID})
	}
}

// Client is one gateway connection.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.quit:
		}
		c.Conn.Close()
	}()
	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := chat.Decode(frame)
		if err != nil {
			slog.Warn("[hub] bad frame", "user", c.UserID, "error", err)
			continue
		}
		c.Hub.inbound(c, env)
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for frame := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RegisterWS mounts GET /ws. The token comes from ?token= or a bearer header.
func RegisterWS(rg *gin.RouterGroup, hub *Hub) {
	rg.GET("/ws", func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			h := c.GetHeader("Authorization")
			if strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		uid, err := parseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			Hub:    hub,
			Conn:   conn,
			Send:   make(chan []byte, sendBuffer),
			UserID: uid,
		}
		select {
		case hub.register <- client:
		case <-hub.quit:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	})
}
