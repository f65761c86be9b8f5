package wizard

import (
	"context"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

func TestManagerOpenAndGet(t *testing.T) {
	gw := newFakeGateway()
	m := NewManager(gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()}, 0, zerolog.Nop())
	defer m.Shutdown()

	s, err := m.Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Get(s.ID()) != s {
		t.Fatal("session not registered under its id")
	}
	if m.Get("nope") != nil {
		t.Fatal("unknown id must return nil")
	}

	if !m.CloseSession(s.ID()) {
		t.Fatal("close reported missing session")
	}
	if m.Get(s.ID()) != nil {
		t.Fatal("closed session still registered")
	}
	if m.CloseSession(s.ID()) {
		t.Fatal("double close reported true")
	}
}

func TestManagerOpenLoadsBySlug(t *testing.T) {
	gw := newFakeGateway()
	gw.response = &model.Course{ID: "42", Slug: "go-basics", Title: "Go Basics", Published: true}
	m := NewManager(gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()}, 0, zerolog.Nop())
	defer m.Shutdown()

	s, err := m.Open(context.Background(), "go-basics")
	if err != nil {
		t.Fatal(err)
	}
	state := s.State()
	if state.Course.Title != "Go Basics" {
		t.Fatalf("loaded course title %q", state.Course.Title)
	}
	if !state.InitialPublishState {
		t.Fatal("initial publish state not taken from the loaded course")
	}
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	gw := newFakeGateway()
	m := NewManager(gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()}, 40*time.Millisecond, zerolog.Nop())
	defer m.Shutdown()

	s, err := m.Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.Get(s.ID()) != nil {
		if time.Now().After(deadline) {
			t.Fatal("idle session never evicted")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Eviction closes the session, not just deregisters it.
	if err := s.UpdateCourse(CoursePatch{Title: str("x")}); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed after eviction, got %v", err)
	}
}

func TestManagerShutdownClosesSessions(t *testing.T) {
	gw := newFakeGateway()
	m := NewManager(gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()}, 0, zerolog.Nop())

	s, err := m.Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	m.Shutdown()

	if err := s.UpdateCourse(CoursePatch{Title: str("x")}); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed after shutdown, got %v", err)
	}
	if _, err := m.Open(context.Background(), ""); err != ErrSessionClosed {
		t.Fatalf("open after shutdown: %v", err)
	}
}
