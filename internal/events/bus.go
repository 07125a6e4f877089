package events

import (
	"slices"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/faultline/internal/callable"
	"git.home.luguber.info/inful/faultline/internal/fault"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
)

// TopicFaultCaptured is published once per sealed fault.
const TopicFaultCaptured = "fault.captured"

// Handler receives a sealed fault context.
type Handler = callable.Callable[*fault.Context, error]

var (
	// ErrNilContext is returned when publishing nil.
	ErrNilContext = ferrors.ValidationError("event context cannot be nil").Build()
	// ErrUnsealed is returned when publishing a context that can still change.
	ErrUnsealed = ferrors.ValidationError("only sealed fault contexts can be published").Build()
	// ErrInvalidHandler is returned when subscribing a handler without a target.
	ErrInvalidHandler = ferrors.ValidationError("handler has no target").Build()
	// ErrHandlerFailed wraps the first error returned by a handler.
	ErrHandlerFailed = ferrors.SubscriberError("event handler failed").Build()
)

// Bus is a synchronous, in-process publish/subscribe notifier.
//
// Handlers run in subscription order on the publisher's goroutine. The first
// handler error stops delivery and is returned from Publish; panics are not
// recovered. Create one Bus per request.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID atomic.Uint64
}

type subscription struct {
	id      uint64
	handler Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers h for topic and returns a function removing it again.
func (b *Bus) Subscribe(topic string, h Handler) (func(), error) {
	if h == nil || !callable.Valid(h) {
		return func() {}, ErrInvalidHandler.WithContext("topic", topic)
	}
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs[topic] = slices.DeleteFunc(b.subs[topic], func(s subscription) bool { return s.id == id })
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}, nil
}

// Handlers describes the handlers subscribed to topic, in delivery order.
func (b *Bus) Handlers(topic string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		out = append(out, s.handler.Describe())
	}
	return out
}

// SubscriberCount returns the number of handlers for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Publish delivers c to every handler of topic.
func (b *Bus) Publish(topic string, c *fault.Context) error {
	if c == nil {
		return ErrNilContext
	}
	if !c.Sealed() {
		return ErrUnsealed.WithContext("topic", topic)
	}

	b.mu.RLock()
	targets := slices.Clone(b.subs[topic])
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.handler.Invoke(c); err != nil {
			return ErrHandlerFailed.
				WithContext("topic", topic).
				WithContext("handler", s.handler.Describe()).
				Wrap(err)
		}
	}
	return nil
}
