package chat

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemSender is the identity server alerts are rendered under.
var SystemSender = Sender{
	ID:   "djasdhajksdhasdsadasdas",
	Name: "Admin",
}

type Sender struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Message is one timeline entry. Values are never mutated after they are built.
type Message struct {
	ID          string       `json:"_id"`
	Sender      Sender       `json:"sender"`
	ChatID      string       `json:"chat"`
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type FileCategory string

const (
	CategoryImage FileCategory = "image"
	CategoryVideo FileCategory = "video"
	CategoryAudio FileCategory = "audio"
	CategoryFile  FileCategory = "file"
)

type Attachment struct {
	PublicID string       `json:"public_id,omitempty"`
	URL      string       `json:"url"`
	Category FileCategory `json:"-"`
}

// Classify derives the file category from the extension of the URL path.
func Classify(raw string) FileCategory {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")) {
	case "mp4", "webm", "ogg":
		return CategoryVideo
	case "mp3", "wav":
		return CategoryAudio
	case "png", "jpg", "jpeg", "gif":
		return CategoryImage
	default:
		return CategoryFile
	}
}

// Normalize returns a copy of m with attachment categories filled in.
func (m Message) Normalize() Message {
	if len(m.Attachments) == 0 {
		return m
	}
	atts := make([]Attachment, len(m.Attachments))
	for i, a := range m.Attachments {
		a.Category = Classify(a.URL)
		atts[i] = a
	}
	m.Attachments = atts
	return m
}

// NewSystemMessage builds the synthetic message an ALERT event is shown as.
func NewSystemMessage(chatID, text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    SystemSender,
		ChatID:    chatID,
		Content:   text,
		CreatedAt: at,
	}
}

// ErrorState pairs a query outcome with its error, the way the error surface consumes it.
type ErrorState struct {
	IsError bool
	Err     error
}
