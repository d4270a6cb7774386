package realtime

import (
	"testing"

	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(conversationID, body string) Event {
	return Event{Type: EventMessageCreated, ConversationID: conversationID, Message: domain.Message{Body: body}}
}

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	hub := NewHub()
	hub.Publish(event("1", "lost"))

	sub, backlog, err := hub.Subscribe("1")
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)
}

func TestSubscribeReplaysBufferThenStreams(t *testing.T) {
	hub := NewHub()
	first, _, err := hub.Subscribe("7")
	require.NoError(t, err)
	defer first.Close()

	hub.Publish(event("7", "hello"))
	hub.Publish(event("8", "other conversation"))

	got := <-first.Events()
	assert.Equal(t, "hello", got.Message.Body)

	second, backlog, err := hub.Subscribe("7")
	require.NoError(t, err)
	defer second.Close()
	require.Len(t, backlog, 1)
	assert.Equal(t, "hello", backlog[0].Message.Body)

	hub.Publish(event("7", "live"))
	assert.Equal(t, "live", (<-second.Events()).Message.Body)
	assert.Equal(t, "live", (<-first.Events()).Message.Body)
}

func TestBufferIsBounded(t *testing.T) {
	hub := NewHub()
	hub.bufferSize = 3
	sub, _, err := hub.Subscribe("1")
	require.NoError(t, err)
	defer sub.Close()

	for _, body := range []string{"a", "b", "c", "d", "e"} {
		hub.Publish(event("1", body))
	}
	late, backlog, err := hub.Subscribe("1")
	require.NoError(t, err)
	defer late.Close()
	require.Len(t, backlog, 3)
	assert.Equal(t, "c", backlog[0].Message.Body)
}

func TestCloseRemovesEmptyStream(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("5")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	hub.mu.RLock()
	_, ok := hub.streams["5"]
	hub.mu.RUnlock()
	assert.False(t, ok)

	_, _, err = hub.Subscribe(" ")
	assert.ErrorIs(t, err, ErrInvalidKey)
	var nilHub *Hub
	_, _, err = nilHub.Subscribe("5")
	assert.ErrorIs(t, err, ErrHubUnavailable)
}
