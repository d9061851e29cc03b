package services

import (
	"log/slog"
	"sync"

	"github.com/conexa/sdkforge/internal/core/domain"
)

// Broadcaster fans orchestrator progress events out to every registered
// observer. There is no per-job filtering at this layer and no buffering
// beyond each subscriber's channel: observers filter by job ID themselves,
// and anyone not subscribed at publish time misses the event permanently.
type Broadcaster struct {
	logger *slog.Logger
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.ProgressEvent
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		subs:   make(map[int]chan domain.ProgressEvent),
	}
}

// Subscribe registers an observer for the all-events stream and returns its
// channel together with an unsubscribe function that also closes the channel.
func (b *Broadcaster) Subscribe() (<-chan domain.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan domain.ProgressEvent, 64) // buffer to keep publishers non-blocking
	b.subs[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			close(sub)
			delete(b.subs, id)
		}
	}

	return ch, unsub
}

// Publish delivers the event to every subscriber in emission order. A
// subscriber whose channel is full has the event dropped rather than stalling
// the orchestrator.
func (b *Broadcaster) Publish(e domain.ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("progress subscriber channel full, dropping event", "job_id", e.JobID)
		}
	}
}

// SubscriberCount reports how many observers are currently registered.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
