package server

import (
	"github.com/google/uuid"

	"github.com/chatterbox-im/chatterbox/internal/types"
)

// MessageStore holds every live message record keyed by message id. Records
// live until an owner-gated delete; there is no automatic expiry. It is not
// safe for concurrent use: the ChatServer serializes all access under a single
// mutex.
type MessageStore struct {
	messages map[string]*types.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string]*types.Message),
	}
}

// Insert stores a new message under a freshly generated id and returns the
// record.
func (ms *MessageStore) Insert(author, room string, kind types.MessageKind, text *string, media *types.MediaRef) *types.Message {
	msg := &types.Message{
		Id:        uuid.NewString(),
		Author:    author,
		Room:      room,
		Kind:      kind,
		Text:      text,
		Media:     media,
		Timestamp: Now(),
	}

	ms.messages[msg.Id] = msg
	return msg
}

// Get looks up a message by id.
func (ms *MessageStore) Get(id string) (*types.Message, bool) {
	msg, ok := ms.messages[id]
	return msg, ok
}

// Delete removes the message iff it exists and its stored author equals
// requester. Reports whether the message was removed; a second delete of the
// same id always reports false.
func (ms *MessageStore) Delete(id, requester string) bool {
	msg, ok := ms.messages[id]
	if !ok || msg.Author != requester {
		return false
	}

	delete(ms.messages, id)
	return true
}

// Len returns the number of stored messages.
func (ms *MessageStore) Len() int {
	return len(ms.messages)
}
