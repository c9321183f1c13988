// Package chattest runs an in-memory chat service for tests: the REST
// endpoints the client reads and a WebSocket gateway relaying room events.
package chattest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultPageSize = 20
	secret          = "chattest-secret"
	ctxUserID       = "uid"
)

type room struct {
	id        string
	name      string
	groupChat bool
	members   []string
	messages  []chat.Message
}

type Server struct {
	PageSize int

	mu     sync.Mutex
	rooms  map[string]*room
	names  map[string]string
	events []Event
	seq    int
	now    time.Time

	hub *Hub
}

// Event is one frame a client sent to the gateway.
type Event struct {
	UserID string
	Kind   string
	Data   []byte
}

func New() *Server {
	s := &Server{
		PageSize: DefaultPageSize,
		rooms:    make(map[string]*room),
		names:    make(map[string]string),
		now:      time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	s.hub = newHub(s)
	return s
}

// Start serves s on a local listener until the test ends.
func (s *Server) Start(t testing.TB) *httptest.Server {
	t.Helper()
	go s.hub.Run()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.hub.Stop()
	})
	return srv
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterWS(r.Group(""), s.hub)

	rg := r.Group("/api/v1/chat", Bearer())
	rg.GET("/message/:id", s.listMessages)
	rg.GET("/:id", s.chatDetails)
	return r
}

// Token returns a signed service token for userID.
func Token(userID string) string {
	claims := jwt.MapClaims{
		"_id": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return tok
}

// AddUser names a user; messages it sends carry the name.
func (s *Server) AddUser(id, name string) {
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
}

func (s *Server) AddChat(id, name string, members ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = &room{id: id, name: name, groupChat: len(members) > 2, members: members}
}

// Seed appends n messages from sender to the chat's history.
func (s *Server) Seed(chatID, sender string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rooms[chatID]
	for i := 0; i < n; i++ {
		r.messages = append(r.messages, s.newMessageLocked(chatID, sender, fmt.Sprintf("seed %d", i)))
	}
}

// Alert pushes a server ALERT to every member of the chat.
func (s *Server) Alert(chatID, text string) {
	s.hub.toMembers(chatID, "", chat.EventAlert, chat.AlertPayload{ChatID: chatID, Message: text})
}

// Events returns the frames received so far, in order.
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Count returns how many frames of kind were received.
func (s *Server) Count(kind string) int {
	n := 0
	for _, e := range s.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Online reports whether userID has an open gateway connection.
func (s *Server) Online(userID string) bool {
	return s.hub.online(userID)
}

func (s *Server) record(userID, kind string, data []byte) {
	s.mu.Lock()
	s.events = append(s.events, Event{UserID: userID, Kind: kind, Data: data})
	s.mu.Unlock()
}

func (s *Server) members(chatID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[chatID]; ok {
		return append([]string(nil), r.members...)
	}
	return nil
}

// store saves a message sent through the gateway and returns it.
func (s *Server) store(chatID, sender, content string) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[chatID]
	if !ok || !contains(r.members, sender) {
		return chat.Message{}, false
	}
	m := s.newMessageLocked(chatID, sender, content)
	r.messages = append(r.messages, m)
	return m, true
}

func (s *Server) newMessageLocked(chatID, sender, content string) chat.Message {
	s.seq++
	s.now = s.now.Add(time.Minute)
	name := s.names[sender]
	if name == "" {
		name = sender
	}
	return chat.Message{
		ID:        fmt.Sprintf("m%04d", s.seq),
		Sender:    chat.Sender{ID: sender, Name: name},
		ChatID:    chatID,
		Content:   content,
		CreatedAt: s.now,
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Bearer resolves the Authorization header to a user id.
func Bearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		uid, err := parseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Token"})
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

func MustUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func parseToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	uid, _ := claims["_id"].(string)
	if uid == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return uid, nil
}
