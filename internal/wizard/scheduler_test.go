package wizard

import (
	"context"
	"testing"
	"time"

	"app/internal/model"
)

func waitForCalls(t *testing.T, gw *fakeGateway, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		creates, updates, _ := gw.calls()
		if creates+updates >= want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("saw %d save calls, want %d", creates+updates, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	gw := newFakeGateway()
	s := testSession(t, gw, 100*time.Millisecond)

	// Three edits inside one window must produce a single save.
	for _, title := range []string{"a", "ab", "abc"} {
		if err := s.UpdateCourse(CoursePatch{Title: str(title)}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	creates, updates, _ := gw.calls()
	if creates+updates != 0 {
		t.Fatalf("save fired before the window elapsed: creates=%d updates=%d", creates, updates)
	}

	waitForCalls(t, gw, 1)
	time.Sleep(150 * time.Millisecond)
	creates, updates, _ = gw.calls()
	if creates+updates != 1 {
		t.Fatalf("burst not coalesced: creates=%d updates=%d", creates, updates)
	}
	gw.mu.Lock()
	last := gw.last.Title
	gw.mu.Unlock()
	if last != "abc" {
		t.Fatalf("payload is not the latest state: title %q", last)
	}
}

func TestDebounceWindowSlides(t *testing.T) {
	gw := newFakeGateway()
	s := testSession(t, gw, 80*time.Millisecond)

	if err := s.UpdateCourse(CoursePatch{Title: str("a")}); err != nil {
		t.Fatal(err)
	}
	// Keep touching the session at half the window; the timer must keep
	// resetting instead of firing.
	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		if err := s.UpdateCourse(CoursePatch{Title: str("a")}); err != nil {
			t.Fatal(err)
		}
		creates, updates, _ := gw.calls()
		if creates+updates != 0 {
			t.Fatal("timer fired inside a sliding window")
		}
	}
	waitForCalls(t, gw, 1)
}

func TestInflightSaveSuppressesTimerFire(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	s := testSession(t, gw, 20*time.Millisecond)

	if err := s.UpdateCourse(CoursePatch{Title: str("a")}); err != nil {
		t.Fatal(err)
	}
	<-gw.started // first save is now parked inside the gateway

	// Edits while the save is in flight re-arm the timer; its fire must be
	// suppressed rather than start a second concurrent call.
	if err := s.UpdateCourse(CoursePatch{Title: str("ab")}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)

	gw.mu.Lock()
	maxFlight := gw.maxFlight
	gw.mu.Unlock()
	if maxFlight != 1 {
		t.Fatalf("saw %d concurrent saves, want 1", maxFlight)
	}

	close(gw.block)
	// The resolved save leaves the state dirty, so a follow-up save carries the
	// mid-flight edit.
	waitForCalls(t, gw, 2)
	time.Sleep(80 * time.Millisecond)
	gw.mu.Lock()
	last := gw.last.Title
	maxFlight = gw.maxFlight
	gw.mu.Unlock()
	if maxFlight != 1 {
		t.Fatalf("saw %d concurrent saves, want 1", maxFlight)
	}
	if last != "ab" {
		t.Fatalf("follow-up save missing mid-flight edit: title %q", last)
	}
}

func TestMidflightRemovalKeepsServerIdsOnSentSiblings(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	gw.response = &model.Course{
		ID:      "1",
		Slug:    "demo",
		Modules: []model.Module{{ID: "10"}, {ID: "11"}},
	}
	s := testSession(t, gw, 10*time.Millisecond)

	aID, err := s.AddModule(ModulePatch{Title: str("A")})
	if err != nil {
		t.Fatal(err)
	}
	bID, err := s.AddModule(ModulePatch{Title: str("B")})
	if err != nil {
		t.Fatal(err)
	}

	<-gw.started // save of [A, B] parked inside the gateway

	if err := s.RemoveModule(aID); err != nil {
		t.Fatal(err)
	}
	close(gw.block)

	// B was sent at position 1; it must adopt the server id assigned there,
	// never the removed sibling's.
	deadline := time.Now().Add(2 * time.Second)
	for {
		modules := s.State().Course.Modules
		if len(modules) != 1 {
			t.Fatalf("got %d modules, want 1", len(modules))
		}
		if modules[0].ID == "10" {
			t.Fatalf("module %s adopted the removed sibling's server id", bID)
		}
		if modules[0].ID == "11" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("server id never adopted, module id still %q", modules[0].ID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSaveNowAwaitsInflight(t *testing.T) {
	gw := newFakeGateway()
	gw.block = make(chan struct{})
	s := testSession(t, gw, 10*time.Millisecond)

	if err := s.UpdateCourse(CoursePatch{Title: str("a")}); err != nil {
		t.Fatal(err)
	}
	<-gw.started

	forced := make(chan error, 1)
	go func() { forced <- s.SaveNow(context.Background()) }()

	select {
	case err := <-forced:
		t.Fatalf("forced save returned while another was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gw.block)
	if err := <-forced; err != nil {
		t.Fatalf("forced save failed: %v", err)
	}
	gw.mu.Lock()
	maxFlight := gw.maxFlight
	gw.mu.Unlock()
	if maxFlight != 1 {
		t.Fatalf("saw %d concurrent saves, want 1", maxFlight)
	}
}

func TestCleanStateSkipsDebouncedSave(t *testing.T) {
	gw := newFakeGateway()
	s := testSession(t, gw, 10*time.Millisecond)

	// Navigation does not dirty the state, so no timer is armed.
	if err := s.SetStep(3); err != nil {
		t.Fatal(err)
	}
	time.Sleep(60 * time.Millisecond)
	creates, updates, _ := gw.calls()
	if creates+updates != 0 {
		t.Fatalf("clean state saved: creates=%d updates=%d", creates, updates)
	}
}
