package app

import (
	"sync"

	"trivia-match-service/internal/domain"
)

// EventBus fans engine events out to subscribers. Slow subscribers never
// block a publish: the oldest undelivered event is dropped to make room.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[chan domain.Event]struct{})}
}

// Subscribe returns a channel of events and a cancel function the caller
// must invoke to avoid leaks.
func (b *EventBus) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber.
func (b *EventBus) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
