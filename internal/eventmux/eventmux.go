// Package eventmux fans out entity change events to any number of subscribers.
package eventmux

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/store"
)

const (
	defaultBuffer = 64

	// maxDeliveryTime is how long Publish waits for a full subscriber
	// before the event is dropped for it.
	maxDeliveryTime = 100 * time.Millisecond
)

// ErrClosed is returned by Publish and Subscribe after Stop has been called.
var ErrClosed = errors.New("eventmux: mux has been stopped")

type Type string

const (
	Created Type = "CREATED"
	Updated Type = "UPDATED"
	Deleted Type = "DELETED"
)

// Event describes a single change of an entity.
type Event struct {
	Type Type       `json:"type"`
	Kind model.Kind `json:"kind"`
	ID   int64      `json:"id"`
	// Revision is the recorded revision. It is zero for deletions.
	Revision store.RevisionID `json:"revision"`
	Changes  map[string]string `json:"changes,omitempty"`
	Time     time.Time         `json:"time"`
}

// Handler is called synchronously for every published event.
// It must be fast; a handler returning an error is disabled.
type Handler func(ev Event) error

// Options for New. Zero values give reasonable defaults.
type Options struct {
	// Buffer is the channel size of every subscription.
	Buffer int
	Logger zerolog.Logger
}

func WithBuffer(n int) func(*Options) {
	return func(o *Options) { o.Buffer = n }
}

func WithLogger(l zerolog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// Mux distributes published events to subscribers and handlers.
//
// Delivery is best effort: a subscriber that does not keep up loses events
// instead of blocking writers. Clients that need every change can catch up
// through the revision history.
type Mux struct {
	options Options

	mutex       sync.RWMutex
	subscribers map[*subscriber]struct{}
	handlers    []Handler
	running     bool

	// done is closed by Stop and ends the goroutines watching subscriber contexts.
	done     chan struct{}
	watchers sync.WaitGroup
}

type subscriber struct {
	kinds  []model.Kind
	events chan Event
}

func (s *subscriber) wants(kind model.Kind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, kind)
}

// New creates a running Mux without subscribers.
func New(opts ...func(*Options)) *Mux {
	options := Options{Buffer: defaultBuffer, Logger: log.Logger}
	for _, fn := range opts {
		fn(&options)
	}
	if options.Buffer < 1 {
		options.Buffer = defaultBuffer
	}
	return &Mux{
		options:     options,
		subscribers: make(map[*subscriber]struct{}),
		running:     true,
		done:        make(chan struct{}),
	}
}

// Subscribe returns a stream of the events of the given kinds, of all kinds if
// none are given. The stream is closed when ctx is done or the mux is stopped.
func (m *Mux) Subscribe(ctx context.Context, kinds ...model.Kind) (<-chan Event, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.running {
		return nil, ErrClosed
	}
	sub := &subscriber{
		kinds:  kinds,
		events: make(chan Event, m.options.Buffer),
	}
	m.subscribers[sub] = struct{}{}
	m.options.Logger.Debug().
		Int("subscribers", len(m.subscribers)).
		Msg("Added event subscriber")

	m.watchers.Add(1)
	go func() {
		defer m.watchers.Done()
		select {
		case <-ctx.Done():
			m.unsubscribe(sub)
		case <-m.done:
		}
	}()
	return sub.events, nil
}

func (m *Mux) unsubscribe(sub *subscriber) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.subscribers[sub]; !ok {
		// already closed by Stop
		return
	}
	delete(m.subscribers, sub)
	close(sub.events)
	m.options.Logger.Debug().
		Int("subscribers", len(m.subscribers)).
		Msg("Removed event subscriber")
}

// RegisterHandler appends a callback executed for every event.
func (m *Mux) RegisterHandler(h Handler) {
	if h == nil {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.handlers = append(m.handlers, h)
}

// Subscribers returns the number of active subscriptions.
func (m *Mux) Subscribers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.subscribers)
}

// Publish delivers ev to every interested subscriber and then runs the handlers.
func (m *Mux) Publish(ev Event) error {
	m.mutex.RLock()
	if !m.running {
		m.mutex.RUnlock()
		return ErrClosed
	}
	for sub := range m.subscribers {
		if !sub.wants(ev.Kind) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			m.deliverSlow(sub, ev)
		}
	}
	handlers := slices.Clone(m.handlers)
	m.mutex.RUnlock()

	for i, h := range handlers {
		if h == nil {
			continue
		}
		if err := h(ev); err != nil {
			m.options.Logger.Error().Err(err).
				Int("index", i).
				Msg("Event handler returned error, disabling it")
			m.mutex.Lock()
			m.handlers[i] = nil
			m.mutex.Unlock()
		}
	}
	return nil
}

// deliverSlow waits up to maxDeliveryTime for room in the subscription buffer.
func (m *Mux) deliverSlow(sub *subscriber, ev Event) {
	timer := time.NewTimer(maxDeliveryTime)
	defer timer.Stop()

	select {
	case sub.events <- ev:
	case <-timer.C:
		m.options.Logger.Warn().
			Str("kind", ev.Kind.String()).
			Int64("id", ev.ID).
			Str("type", string(ev.Type)).
			Msg("Dropping event due to slow subscriber")
	}
}

// Stop closes all subscriptions. Later calls to Publish and Subscribe return [ErrClosed].
func (m *Mux) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.done)
	for sub := range m.subscribers {
		close(sub.events)
		delete(m.subscribers, sub)
	}
}
