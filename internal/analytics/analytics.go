// Package analytics is a fire-and-forget event sink. Callers never
// wait on delivery and a failing sink never affects session or
// mutation logic.
package analytics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a named event with a flat key/value payload.
type Event struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Props map[string]any `json:"props,omitempty"`
	At    time.Time      `json:"at"`
}

// Emitter delivers one event. Implementations may fail; failures are
// logged and dropped.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// HTTPEmitter posts events to a collector endpoint.
type HTTPEmitter struct {
	URL  string
	HTTP *http.Client
}

// Emit posts the event as JSON. The response body is discarded.
func (e *HTTPEmitter) Emit(ctx context.Context, ev Event) error {
	client := e.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := newEventRequest(ctx, e.URL, ev)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Sink queues events onto a background worker. A full queue drops the
// event rather than blocking the caller.
type Sink struct {
	emitter Emitter
	log     *zap.Logger
	queue   chan Event

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewSink starts the delivery worker. buffer <= 0 defaults to 64.
func NewSink(emitter Emitter, log *zap.Logger, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sink{
		emitter: emitter,
		log:     log,
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) run() {
	defer close(s.done)
	for ev := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.emitter.Emit(ctx, ev); err != nil {
			s.log.Debug("analytics emit failed",
				zap.String("event", ev.Name),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Track enqueues a named event. It never blocks; when the queue is
// full the event is dropped.
func (s *Sink) Track(name string, props map[string]any) {
	ev := Event{
		ID:    uuid.NewString(),
		Name:  name,
		Props: props,
		At:    time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Debug("analytics sink closed, dropping event", zap.String("event", name))
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.log.Debug("analytics queue full, dropping event", zap.String("event", name))
	}
}

// Close stops accepting events and waits for the queue to drain.
// Track calls after Close drop their events.
func (s *Sink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

// TrackSearchSubmit records a submitted search query. Blank queries
// are ignored.
func (s *Sink) TrackSearchSubmit(query, placement string) {
	if query == "" {
		return
	}
	s.Track("search_submit", map[string]any{
		"query":        query,
		"query_length": len(query),
		"placement":    orUnknown(placement),
	})
}

// TrackNavClick records a navigation click.
func (s *Sink) TrackNavClick(href, label, placement string) {
	s.Track("nav_click", map[string]any{
		"href":      href,
		"label":     label,
		"placement": orUnknown(placement),
	})
}

// TrackShopClick records a click through to a set's shop page.
func (s *Sink) TrackShopClick(setNum, placement string) {
	s.Track("shop_click", map[string]any{
		"set_num":   setNum,
		"placement": orUnknown(placement),
	})
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
