package types

import (
	"time"
)

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindMedia MessageKind = "media"
)

// MediaRef points at a media attachment: a URL or data-URL blob reference plus
// its MIME type.
type MediaRef struct {
	URL       string `json:"media"`
	MediaType string `json:"mediaType"`
}

// Message is a stored chat or media message. Author is the sender's username at
// creation time, not a live reference to the connection.
type Message struct {
	Id        string      `json:"message_id"`
	Author    string      `json:"username"`
	Room      string      `json:"room"`
	Kind      MessageKind `json:"kind"`
	Text      *string     `json:"message,omitempty"`
	Media     *MediaRef   `json:"media,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
