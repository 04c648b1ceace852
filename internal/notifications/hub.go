package notifications

import (
	"strings"
	"sync"
	"time"
)

const (
	EventBillCreated    = "bill_created"
	EventBillUpdated    = "bill_updated"
	EventBillDeleted    = "bill_deleted"
	EventBillsGenerated = "bills_generated"
)

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Hub рассылает события подписчикам одного владельца. Медленный подписчик
// теряет события, а не блокирует публикацию.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe подписывает владельца на события и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(owner string) (<-chan Event, func()) {
	key := ownerKey(owner)
	ch := make(chan Event, 10)

	h.mu.Lock()
	defer h.mu.Unlock()

	ownerSubs, ok := h.subscribers[key]
	if !ok {
		ownerSubs = make(map[chan Event]struct{})
		h.subscribers[key] = ownerSubs
	}
	ownerSubs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[key]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, key)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам владельца.
func (h *Hub) Publish(owner string, event Event) {
	if h == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[ownerKey(owner)]
	if !ok {
		return
	}

	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers возвращает число активных подписок владельца.
func (h *Hub) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[ownerKey(owner)])
}

func ownerKey(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}
