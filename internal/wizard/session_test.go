package wizard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"app/internal/gateway"
	"app/internal/model"

	"github.com/rs/zerolog"
)

// fakeGateway records calls and serves canned responses. If block is non-nil,
// save calls park on it so tests can hold a save in flight.
type fakeGateway struct {
	mu        sync.Mutex
	creates   int
	updates   int
	publishes int
	inFlight  int
	maxFlight int
	last      *model.Course
	response  *model.Course
	err       error
	block     chan struct{}
	started   chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{started: make(chan struct{}, 16)}
}

func (f *fakeGateway) enter(payload *model.Course) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.last = payload
	block := f.block
	f.mu.Unlock()
	select {
	case f.started <- struct{}{}:
	default:
	}
	if block != nil {
		<-block
	}
}

func (f *fakeGateway) exit() (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		resp := f.response.Clone()
		return &resp, nil
	}
	return &model.Course{ID: "1", Slug: "fake-course"}, nil
}

func (f *fakeGateway) CreateCourse(_ context.Context, payload *model.Course) (*model.Course, error) {
	f.enter(payload)
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return f.exit()
}

func (f *fakeGateway) UpdateCourse(_ context.Context, _ string, payload *model.Course) (*model.Course, error) {
	f.enter(payload)
	f.mu.Lock()
	f.updates++
	f.mu.Unlock()
	return f.exit()
}

func (f *fakeGateway) PublishCourse(_ context.Context, identifier string, publish bool) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	if f.err != nil {
		return nil, f.err
	}
	return &model.Course{Slug: identifier, Published: publish}, nil
}

func (f *fakeGateway) GetCourseBySlug(_ context.Context, slug string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		resp := f.response.Clone()
		return &resp, nil
	}
	return &model.Course{Slug: slug}, nil
}

func (f *fakeGateway) calls() (creates, updates, publishes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates, f.publishes
}

func testSession(t *testing.T, gw gateway.Gateway, delay time.Duration) *Session {
	t.Helper()
	s := NewSession(nil, gw, Options{AutosaveDelay: delay, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)
	return s
}

func str(v string) *string { return &v }

func TestEndToEndCreateFlow(t *testing.T) {
	gw := newFakeGateway()
	s := testSession(t, gw, time.Hour)

	if err := s.UpdateCourse(CoursePatch{Title: str("Demo Course"), CategoryID: str("5"), Description: str("About things")}); err != nil {
		t.Fatal(err)
	}
	moduleID, err := s.AddModule(ModulePatch{Title: str("Week 1")})
	if err != nil {
		t.Fatal(err)
	}
	lessonID, err := s.AddLesson(moduleID, LessonPatch{Title: str("Intro")})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(lessonID, "tmp-") {
		t.Fatalf("expected temp lesson id, got %s", lessonID)
	}

	if v := s.Validate(4); !v.Valid {
		t.Fatalf("step 4 should validate, got errors %v", v.Errors)
	}

	gw.response = &model.Course{
		ID:   "42",
		Slug: "demo-course",
		Modules: []model.Module{
			{ID: "7", Lessons: []model.Lesson{{ID: "70"}}},
		},
	}
	if err := s.SaveNow(context.Background()); err != nil {
		t.Fatalf("forced save failed: %v", err)
	}

	state := s.State()
	if state.Course.ID != "42" || state.Course.Slug != "demo-course" {
		t.Fatalf("server identity not merged: id=%q slug=%q", state.Course.ID, state.Course.Slug)
	}
	if state.Dirty {
		t.Fatal("state should be clean after successful save")
	}
	if state.SaveStatus != SaveSaved {
		t.Fatalf("expected save status %q, got %q", SaveSaved, state.SaveStatus)
	}
	if got := state.Course.Modules[0].ID; got != "7" {
		t.Fatalf("module temp id not reconciled, got %s", got)
	}
	if got := state.Course.Modules[0].Lessons[0].ID; got != "70" {
		t.Fatalf("lesson temp id not reconciled, got %s", got)
	}

	// The payload sent must not contain temp ids.
	gw.mu.Lock()
	sentModuleID := gw.last.Modules[0].ID
	gw.mu.Unlock()
	if sentModuleID != "" {
		t.Fatalf("temp module id leaked into payload: %s", sentModuleID)
	}
	creates, updates, _ := gw.calls()
	if creates != 1 || updates != 0 {
		t.Fatalf("expected exactly one create, got creates=%d updates=%d", creates, updates)
	}
}

func TestSaveSelectsUpdateWhenPersisted(t *testing.T) {
	gw := newFakeGateway()
	existing := &model.Course{ID: "42", Slug: "demo-course", Title: "Demo"}
	s := NewSession(existing, gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)

	if err := s.UpdateCourse(CoursePatch{Subtitle: str("now with subtitle")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	creates, updates, _ := gw.calls()
	if creates != 0 || updates != 1 {
		t.Fatalf("expected exactly one update, got creates=%d updates=%d", creates, updates)
	}
}

func TestSaveFailureRecordedAndRetriedOnNextMutation(t *testing.T) {
	gw := newFakeGateway()
	gw.err = &gateway.Error{Message: "boom", Status: 500}
	s := testSession(t, gw, 20*time.Millisecond)

	if err := s.UpdateCourse(CoursePatch{Title: str("x")}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNow(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	state := s.State()
	if state.SaveStatus != SaveFailed || state.SaveError == "" {
		t.Fatalf("failure not recorded: %+v", state)
	}
	if !state.Dirty {
		t.Fatal("failed save must leave state dirty for retry")
	}

	// Next mutation goes back through the normal debounce path and retries.
	gw.mu.Lock()
	gw.err = nil
	gw.mu.Unlock()
	if err := s.UpdateCourse(CoursePatch{Title: str("y")}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if st := s.State(); st.SaveStatus == SaveSaved && !st.Dirty {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced retry never succeeded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishPrecondition(t *testing.T) {
	gw := newFakeGateway()
	s := testSession(t, gw, time.Hour)

	err := s.Publish(context.Background(), true)
	if err == nil {
		t.Fatal("expected precondition error")
	}
	if _, ok := err.(PublishPreconditionError); !ok {
		t.Fatalf("expected PublishPreconditionError, got %T", err)
	}
	creates, updates, publishes := gw.calls()
	if creates+updates+publishes != 0 {
		t.Fatalf("gateway must record zero calls, got creates=%d updates=%d publishes=%d", creates, updates, publishes)
	}
	if s.State().Course.Published {
		t.Fatal("published flag must stay untouched")
	}
}

func TestPublishCommitsAllOrNothing(t *testing.T) {
	gw := newFakeGateway()
	existing := &model.Course{ID: "42", Slug: "demo-course", Title: "Demo"}
	s := NewSession(existing, gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)

	if err := s.Publish(context.Background(), true); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if !s.State().Course.Published {
		t.Fatal("published flag not set after successful publish")
	}
	_, updates, publishes := gw.calls()
	if updates != 1 || publishes != 1 {
		t.Fatalf("expected forced save then publish, got updates=%d publishes=%d", updates, publishes)
	}
}

func TestPublishFailureLeavesFlagUntouched(t *testing.T) {
	gw := newFakeGateway()
	existing := &model.Course{ID: "42", Slug: "demo-course", Title: "Demo"}
	s := NewSession(existing, gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)

	if err := s.SaveNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	gw.err = &gateway.Error{Message: "publish rejected", Status: 409}
	if err := s.Publish(context.Background(), true); err == nil {
		t.Fatal("expected publish error")
	}
	if s.State().Course.Published {
		t.Fatal("published flag must not change on failure")
	}
}

func TestFinishSkipsPublishWhenFlagUnchanged(t *testing.T) {
	gw := newFakeGateway()
	existing := &model.Course{ID: "42", Slug: "demo-course", Title: "Demo"}
	s := NewSession(existing, gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)

	if err := s.Finish(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, updates, publishes := gw.calls()
	if updates != 1 || publishes != 0 {
		t.Fatalf("expected save only, got updates=%d publishes=%d", updates, publishes)
	}
}

func TestFinishPersistsNewCourseBeforePublish(t *testing.T) {
	gw := newFakeGateway()
	s := testSession(t, gw, time.Hour)

	if err := s.UpdateCourse(CoursePatch{Title: str("Demo Course")}); err != nil {
		t.Fatal(err)
	}
	if err := s.apply(SetPublishedOp{Published: true}); err != nil {
		t.Fatal(err)
	}

	if err := s.Finish(context.Background()); err != nil {
		t.Fatalf("finish on a fresh course failed: %v", err)
	}

	creates, _, publishes := gw.calls()
	if creates != 1 || publishes != 1 {
		t.Fatalf("expected create then publish, got creates=%d publishes=%d", creates, publishes)
	}
	state := s.State()
	if !state.Course.Persisted() {
		t.Fatal("course not persisted by finish")
	}
	if !state.Course.Published {
		t.Fatal("published flag not committed")
	}
}

func TestFinishPublishesWhenFlagChanged(t *testing.T) {
	gw := newFakeGateway()
	existing := &model.Course{ID: "42", Slug: "demo-course", Title: "Demo"}
	s := NewSession(existing, gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(s.Close)

	if err := s.apply(SetPublishedOp{Published: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, _, publishes := gw.calls()
	if publishes != 1 {
		t.Fatalf("expected one publish call, got %d", publishes)
	}
}

func TestClosedSessionRejectsMutations(t *testing.T) {
	gw := newFakeGateway()
	s := NewSession(nil, gw, Options{AutosaveDelay: time.Hour, Logger: zerolog.Nop()})
	s.Close()
	if err := s.UpdateCourse(CoursePatch{Title: str("x")}); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := s.SaveNow(context.Background()); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestCloseCancelsPendingAutosave(t *testing.T) {
	gw := newFakeGateway()
	s := NewSession(nil, gw, Options{AutosaveDelay: 20 * time.Millisecond, Logger: zerolog.Nop()})

	if err := s.UpdateCourse(CoursePatch{Title: str("x")}); err != nil {
		t.Fatal(err)
	}
	s.Close()
	time.Sleep(100 * time.Millisecond)
	creates, updates, _ := gw.calls()
	if creates+updates != 0 {
		t.Fatalf("timer fired after teardown: creates=%d updates=%d", creates, updates)
	}
}
