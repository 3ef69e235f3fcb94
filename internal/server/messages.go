package server

import (
	"fmt"
	"time"

	"github.com/chatterbox-im/chatterbox/internal/types"
)

// Event types shared by the inbound and outbound envelopes.
const (
	EventJoin       = "join"
	EventChat       = "chat"
	EventMedia      = "media"
	EventDelete     = "delete_message"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
	EventSwitchRoom = "switch_room"
	EventSystem     = "system"
	EventUsers      = "users"
)

// ClientEvent is the envelope for one inbound message from a connection,
// discriminated by Type. Message is a pointer so a media caption can be absent
// rather than empty.
type ClientEvent struct {
	Type      string  `json:"type"`
	Username  string  `json:"username,omitempty"`
	Room      string  `json:"room,omitempty"`
	Message   *string `json:"message,omitempty"`
	Media     string  `json:"media,omitempty"`
	MediaType string  `json:"mediaType,omitempty"`
	MessageId string  `json:"message_id,omitempty"`
}

// ServerEvent is the envelope broadcast to room members, discriminated by Type.
type ServerEvent struct {
	Type      string    `json:"type"`
	MessageId string    `json:"message_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Message   *string   `json:"message,omitempty"`
	Media     string    `json:"media,omitempty"`
	MediaType string    `json:"mediaType,omitempty"`
	Users     []string  `json:"users,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func SystemNotice(text string) *ServerEvent {
	return &ServerEvent{
		Type:      EventSystem,
		Message:   &text,
		Timestamp: Now(),
	}
}

func UserList(users []string) *ServerEvent {
	return &ServerEvent{
		Type:  EventUsers,
		Users: users,
	}
}

func ChatEvent(msg *types.Message) *ServerEvent {
	return &ServerEvent{
		Type:      EventChat,
		MessageId: msg.Id,
		Username:  msg.Author,
		Message:   msg.Text,
		Timestamp: msg.Timestamp,
	}
}

func MediaEvent(msg *types.Message) *ServerEvent {
	ev := &ServerEvent{
		Type:      EventMedia,
		MessageId: msg.Id,
		Username:  msg.Author,
		Message:   msg.Text,
		Timestamp: msg.Timestamp,
	}
	if msg.Media != nil {
		ev.Media = msg.Media.URL
		ev.MediaType = msg.Media.MediaType
	}
	return ev
}

func DeleteEvent(messageId string) *ServerEvent {
	return &ServerEvent{
		Type:      EventDelete,
		MessageId: messageId,
	}
}

func TypingEvent(username string) *ServerEvent {
	return &ServerEvent{
		Type:     EventTyping,
		Username: username,
	}
}

func StopTypingEvent(username string) *ServerEvent {
	return &ServerEvent{
		Type:     EventStopTyping,
		Username: username,
	}
}

func joinedNotice(username string) string {
	return fmt.Sprintf("%s joined the room 👋", username)
}

func leftNotice(username string) string {
	return fmt.Sprintf("%s left the room ❌", username)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
