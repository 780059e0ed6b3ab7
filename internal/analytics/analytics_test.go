package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// captureEmitter records every event it receives.
type captureEmitter struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *captureEmitter) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestSink_Delivers(t *testing.T) {
	em := &captureEmitter{}
	s := NewSink(em, nil, 8)

	s.Track("search_submit", map[string]any{"query": "castle"})
	s.Track("nav_click", nil)
	s.Close()

	got := em.all()
	if len(got) != 2 {
		t.Fatalf("delivered %d events; want 2", len(got))
	}
	if got[0].Name != "search_submit" || got[1].Name != "nav_click" {
		t.Errorf("events = %v, %v", got[0].Name, got[1].Name)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Error("events must carry distinct non-empty IDs")
	}
}

func TestSink_EmitterFailureIsSwallowed(t *testing.T) {
	em := &captureEmitter{err: errors.New("collector down")}
	s := NewSink(em, nil, 8)

	// Track must not panic or propagate the failure.
	s.TrackShopClick("21355-1", "set_card")
	s.Close()

	if len(em.all()) != 1 {
		t.Fatalf("expected the event to reach the emitter")
	}
}

func TestSink_BlankSearchIgnored(t *testing.T) {
	em := &captureEmitter{}
	s := NewSink(em, nil, 8)

	s.TrackSearchSubmit("", "topnav")
	s.Close()

	if len(em.all()) != 0 {
		t.Errorf("blank query should not emit")
	}
}

func TestSink_DefaultPlacement(t *testing.T) {
	em := &captureEmitter{}
	s := NewSink(em, nil, 8)

	s.TrackSearchSubmit("space", "")
	s.Close()

	got := em.all()
	if len(got) != 1 {
		t.Fatalf("delivered %d events; want 1", len(got))
	}
	if got[0].Props["placement"] != "unknown" {
		t.Errorf("placement = %v; want unknown", got[0].Props["placement"])
	}
}

func TestSink_TrackAfterCloseDrops(t *testing.T) {
	em := &captureEmitter{}
	s := NewSink(em, nil, 8)
	s.Close()

	// A late Track must drop quietly, never panic.
	s.TrackNavClick("/sets/21355-1", "Modular", "topnav")
	s.Close()

	if len(em.all()) != 0 {
		t.Errorf("events tracked after Close must be dropped")
	}
}
