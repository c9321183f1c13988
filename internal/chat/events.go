package chat

import "github.com/goccy/go-json"

// Event kinds exchanged with the socket server.
const (
	EventChatJoined      = "CHAT_JOINED"
	EventChatLeft        = "CHAT_LEAVED"
	EventNewMessage      = "NEW_MESSAGE"
	EventNewMessageAlert = "NEW_MESSAGE_ALERT"
	EventStartTyping     = "START_TYPING"
	EventStopTyping      = "STOP_TYPING"
	EventAlert           = "ALERT"
)

const MaxMessageLength = 4096

// Envelope is the frame carried by the socket transports.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type MembershipPayload struct {
	UserID  string   `json:"userId"`
	Members []string `json:"members"`
}

type TypingPayload struct {
	ChatID  string   `json:"chatId"`
	Members []string `json:"members"`
}

type OutgoingMessage struct {
	ChatID  string   `json:"chatId" validate:"required"`
	Members []string `json:"members"`
	Message string   `json:"message" validate:"required,max=4096"`
}

type NewMessagePayload struct {
	ChatID  string  `json:"chatId"`
	Message Message `json:"message"`
}

type AlertPayload struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type MessageAlertPayload struct {
	ChatID string `json:"chatId"`
}

// Encode wraps payload into an Envelope frame.
func Encode(kind string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: kind, Data: data})
}

func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(frame, &env)
	return env, err
}
