package events

import (
	"sync"
	"time"
)

// EventType labels the realtime event stream consumed by the operator UI.
type EventType string

const (
	EventNewTrade       EventType = "new_trade"
	EventTradeUpdate    EventType = "trade_update"
	EventTradeClosed    EventType = "trade_closed"
	EventNewLog         EventType = "new_log"
	EventStatsUpdate    EventType = "stats_update"
	EventSettingsUpdate EventType = "settings_update"
)

// Event is a single realtime push message
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// Bus fans events out to subscribers. Handlers run in their own goroutines so
// a slow websocket client never stalls the engine tick.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type
func (b *Bus) Subscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
}

// SubscribeAll registers a subscriber for every event
func (b *Bus) SubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, sub)
}

// Publish sends an event to all subscribers
func (b *Bus) Publish(eventType EventType, payload interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Type: eventType, Timestamp: time.Now(), Payload: payload}

	for _, sub := range b.subscribers[eventType] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}
