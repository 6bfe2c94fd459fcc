package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agentmux/agentmux-core/internal/common/logger"
)

// MemoryEventBus is an EventBus backed entirely by in-process goroutines
// and mutex-guarded subscription maps, adequate for a single-host orchestrator with no persistent
// event log (spec.md's Non-goals exclude event sourcing).
type MemoryEventBus struct {
	subscriptions map[string][]*memorySubscription
	queues        map[string]*queueGroup
	mu            sync.RWMutex
	log           *logger.Logger
	closed        bool
}

type memorySubscription struct {
	bus     *MemoryEventBus
	subject string
	tokens  []string
	handler EventHandler
	queue   string
	active  bool
	mu      sync.Mutex
}

type queueGroup struct {
	subscribers []*memorySubscription
	nextIndex   int
	mu          sync.Mutex
}

func (s *memorySubscription) Unsubscribe() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if subs, ok := s.bus.subscriptions[s.subject]; ok {
		for i, sub := range subs {
			if sub == s {
				s.bus.subscriptions[s.subject] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	if s.queue != "" {
		queueKey := s.queue + ":" + s.subject
		if qg, ok := s.bus.queues[queueKey]; ok {
			qg.mu.Lock()
			for i, sub := range qg.subscribers {
				if sub == s {
					qg.subscribers = append(qg.subscribers[:i], qg.subscribers[i+1:]...)
					break
				}
			}
			qg.mu.Unlock()
		}
	}

	return nil
}

func (s *memorySubscription) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NewMemoryEventBus builds an empty in-memory bus.
func NewMemoryEventBus(log *logger.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		subscriptions: make(map[string][]*memorySubscription),
		queues:        make(map[string]*queueGroup),
		log:           log,
	}
}

// Publish delivers event to every live subscription whose pattern matches
// subject, each handler invocation in its own goroutine.
func (b *MemoryEventBus) Publish(ctx context.Context, subject string, event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	delivered := make(map[string]bool)

	for pattern, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.mu.Lock()
			active := sub.active
			sub.mu.Unlock()
			if !active || !matches(subject, sub.tokens) {
				continue
			}

			if sub.queue != "" {
				queueKey := sub.queue + ":" + pattern
				if !delivered[queueKey] {
					delivered[queueKey] = true
					b.publishToQueue(ctx, queueKey, subject, event)
				}
				continue
			}

			go func(s *memorySubscription, e *Event) {
				if err := s.handler(ctx, e); err != nil {
					b.log.Error("event handler error", zap.String("subject", subject), zap.Error(err))
				}
			}(sub, event)
		}
	}

	b.log.Debug("published event", zap.String("subject", subject), zap.String("event_id", event.ID))
	return nil
}

// Subscribe registers handler for subject.
func (b *MemoryEventBus) Subscribe(subject string, handler EventHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}

	sub := &memorySubscription{bus: b, subject: subject, tokens: tokenize(subject), handler: handler, active: true}
	b.subscriptions[subject] = append(b.subscriptions[subject], sub)
	return sub, nil
}

// QueueSubscribe registers handler under queue for subject; only one member
// of the queue group receives each matching event, round-robin.
func (b *MemoryEventBus) QueueSubscribe(subject, queue string, handler EventHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}

	sub := &memorySubscription{bus: b, subject: subject, tokens: tokenize(subject), handler: handler, queue: queue, active: true}
	b.subscriptions[subject] = append(b.subscriptions[subject], sub)

	queueKey := queue + ":" + subject
	if _, ok := b.queues[queueKey]; !ok {
		b.queues[queueKey] = &queueGroup{}
	}
	b.queues[queueKey].subscribers = append(b.queues[queueKey].subscribers, sub)
	return sub, nil
}

// Close deactivates every subscription and marks the bus closed.
func (b *MemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		}
	}
	b.subscriptions = make(map[string][]*memorySubscription)
	b.queues = make(map[string]*queueGroup)
}

// IsConnected reports whether the bus still accepts publishes.
func (b *MemoryEventBus) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

// tokenize splits a dot-delimited subject (task.assigned,
// team.member.status_changed, schedule.fired, ...) into its tokens, the
// unit "*" and ">" wildcards operate on.
func tokenize(subject string) []string {
	return strings.Split(subject, ".")
}

// matches reports whether subject's tokens satisfy patternTokens: "*"
// consumes exactly one token, ">" consumes every remaining token and must
// be the pattern's last token, any other token must match exactly. This is
// evaluated directly over the dot-segmented subjects bus.go defines
// (team.*, team.member.*, task.*, schedule.fired) rather than compiling a
// generic regular expression for an open-ended pattern language.
func matches(subject string, patternTokens []string) bool {
	subjectTokens := tokenize(subject)

	for i, pt := range patternTokens {
		if pt == ">" {
			return i < len(subjectTokens)
		}
		if i >= len(subjectTokens) {
			return false
		}
		if pt != "*" && pt != subjectTokens[i] {
			return false
		}
	}
	return len(subjectTokens) == len(patternTokens)
}

func (b *MemoryEventBus) publishToQueue(ctx context.Context, queueKey, subject string, event *Event) {
	qg, ok := b.queues[queueKey]
	if !ok {
		return
	}

	qg.mu.Lock()
	defer qg.mu.Unlock()

	if len(qg.subscribers) == 0 {
		return
	}

	start := qg.nextIndex
	for i := 0; i < len(qg.subscribers); i++ {
		idx := (start + i) % len(qg.subscribers)
		sub := qg.subscribers[idx]

		sub.mu.Lock()
		active := sub.active
		sub.mu.Unlock()

		if active {
			qg.nextIndex = (idx + 1) % len(qg.subscribers)
			go func(s *memorySubscription, e *Event) {
				if err := s.handler(ctx, e); err != nil {
					b.log.Error("queue event handler error", zap.String("subject", subject), zap.String("queue", queueKey), zap.Error(err))
				}
			}(sub, event)
			return
		}
	}
}
