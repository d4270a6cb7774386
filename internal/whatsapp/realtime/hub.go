package realtime

import (
	"errors"
	"strings"
	"sync"

	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
)

const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidKey     = errors.New("invalid_conversation_id")
)

type Event struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Message        domain.Message `json:"message"`
}

// Hub fans conversation events out to in-process subscribers. Each
// conversation keeps a short replay buffer while anyone is subscribed.
// Slow subscribers drop events instead of blocking publishers.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub  *Hub
	key  string
	id   uint64
	ch   chan Event
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(event.ConversationID)
	if key == "" {
		return
	}
	h.mu.RLock()
	s := h.streams[key]
	h.mu.RUnlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, event)
	if len(s.buffer) > h.bufferSize {
		s.buffer = s.buffer[len(s.buffer)-h.bufferSize:]
	}
	subs := make([]chan Event, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a listener for one conversation and returns the
// events buffered so far.
func (h *Hub) Subscribe(conversationID string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	key := strings.TrimSpace(conversationID)
	if key == "" {
		return nil, nil, ErrInvalidKey
	}

	s := h.ensureStream(key)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	s.subs[id] = ch
	backlog := append([]Event(nil), s.buffer...)
	s.mu.Unlock()

	return &Subscription{hub: h, key: key, id: id, ch: ch}, backlog, nil
}

func (h *Hub) ensureStream(key string) *stream {
	h.mu.RLock()
	current := h.streams[key]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[key]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[key] = current
	}
	return current
}

func (h *Hub) unsubscribe(key string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.streams[key]
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.subs, id)
	empty := len(s.subs) == 0
	s.mu.Unlock()
	if empty {
		delete(h.streams, key)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.key, s.id)
	})
}
