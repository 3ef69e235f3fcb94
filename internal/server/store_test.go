package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatterbox-im/chatterbox/internal/types"
)

func TestMessageStore_InsertAndGet(t *testing.T) {
	ms := NewMessageStore()
	start := Now()

	text := "hello"
	msg := ms.Insert("alice", "general", types.MessageKindText, &text, nil)
	assert.NotEmpty(t, msg.Id, "expected a generated message id")
	assert.Equal(t, 1, ms.Len(), "expected one stored message")

	got, ok := ms.Get(msg.Id)
	assert.True(t, ok, "expected message to be found by its id")
	assert.Equal(t, "alice", got.Author, "expected author to round trip")
	assert.Equal(t, "general", got.Room, "expected room to round trip")
	assert.Equal(t, types.MessageKindText, got.Kind, "expected kind to round trip")
	assert.Equal(t, "hello", *got.Text, "expected text to round trip")
	assert.Nil(t, got.Media, "expected no media on a text message")
	assert.False(t, got.Timestamp.Before(start), "expected timestamp not earlier than insertion start")

	other := ms.Insert("alice", "general", types.MessageKindText, &text, nil)
	assert.NotEqual(t, msg.Id, other.Id, "expected ids to be unique")
}

func TestMessageStore_InsertMedia(t *testing.T) {
	ms := NewMessageStore()

	caption := "look at this"
	ref := &types.MediaRef{URL: "https://example.com/cat.png", MediaType: "image/png"}
	msg := ms.Insert("bob", "pets", types.MessageKindMedia, &caption, ref)

	got, ok := ms.Get(msg.Id)
	assert.True(t, ok, "expected media message to be found")
	assert.Equal(t, types.MessageKindMedia, got.Kind, "expected media kind")
	assert.Equal(t, ref, got.Media, "expected media reference to round trip")
	assert.Equal(t, "look at this", *got.Text, "expected caption to round trip")
}

func TestMessageStore_Delete(t *testing.T) {
	ms := NewMessageStore()
	text := "delete me"
	msg := ms.Insert("alice", "general", types.MessageKindText, &text, nil)

	t.Run("author mismatch is rejected", func(t *testing.T) {
		assert.False(t, ms.Delete(msg.Id, "bob"), "expected delete by non-author to fail")
		_, ok := ms.Get(msg.Id)
		assert.True(t, ok, "expected message to still exist")
	})

	t.Run("unknown id is rejected", func(t *testing.T) {
		assert.False(t, ms.Delete("no-such-id", "alice"), "expected delete of unknown id to fail")
	})

	t.Run("author delete succeeds exactly once", func(t *testing.T) {
		assert.True(t, ms.Delete(msg.Id, "alice"), "expected delete by author to succeed")
		_, ok := ms.Get(msg.Id)
		assert.False(t, ok, "expected message to be gone")
		assert.Equal(t, 0, ms.Len(), "expected store to be empty")

		assert.False(t, ms.Delete(msg.Id, "alice"), "expected second delete of the same id to fail")
	})
}
