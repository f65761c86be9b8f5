package wizard

import (
	"errors"
	"sync"
	"time"

	"app/internal/gateway"
	"app/internal/model"
	"app/internal/tempid"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultAutosaveDelay is the sliding debounce window applied when no delay is
// configured.
const DefaultAutosaveDelay = 3 * time.Second

// ErrSessionClosed is returned by operations on a torn-down session.
var ErrSessionClosed = errors.New("wizard session is closed")

// Options tune a session. Zero values fall back to defaults.
type Options struct {
	AutosaveDelay time.Duration
	Readiness     ReadinessPolicy
	Logger        zerolog.Logger
	// OnPublished is invoked after a successful publish flip, outside the
	// session lock. Used for event notification; may be nil.
	OnPublished func(course model.Course)
}

// Session is one live wizard editing session. It exclusively owns its State;
// every mutation flows through the reducer ops, and each mutation re-arms the
// autosave debounce timer.
type Session struct {
	id     string
	gw     gateway.Gateway
	alloc  *tempid.Allocator
	delay  time.Duration
	logger zerolog.Logger

	readiness   ReadinessPolicy
	onPublished func(model.Course)

	saver *debounceTimer

	mu        sync.Mutex
	state     State
	closed    bool
	saveDone  chan struct{} // non-nil while a save is in flight
	lastTouch time.Time
}

// NewSession starts a session over an existing course, or a fresh one when
// existing is nil.
func NewSession(existing *model.Course, gw gateway.Gateway, opts Options) *Session {
	delay := opts.AutosaveDelay
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	s := &Session{
		id:          uuid.NewString(),
		gw:          gw,
		alloc:       tempid.New(),
		delay:       delay,
		readiness:   opts.Readiness.withDefaults(),
		onPublished: opts.OnPublished,
		state:       NewState(existing),
		lastTouch:   time.Now(),
	}
	s.logger = opts.Logger.With().Str("service", "WizardSession").Str("session_id", s.id).Logger()
	s.saver = newDebounceTimer(s.autosaveFire)
	return s
}

// ID returns the session handle used by the HTTP surface.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of the current state. The copy is deep, so callers
// can read it without holding the session lock.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.Course = s.state.Course.Clone()
	return snap
}

// apply runs a mutation op through the reducer and re-arms the debounce timer
// when the op left the state dirty.
func (s *Session) apply(op Op) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = Reduce(s.state, op)
	dirty := s.state.Dirty
	s.lastTouch = time.Now()
	s.mu.Unlock()

	if dirty {
		s.saver.Arm(s.delay)
	}
	return nil
}

// UpdateCourse shallow-merges scalar fields into the course.
func (s *Session) UpdateCourse(patch CoursePatch) error {
	return s.apply(UpdateCourseOp{Patch: patch})
}

// AddModule appends a module with a fresh temp id and returns the id.
func (s *Session) AddModule(patch ModulePatch) (string, error) {
	id := s.alloc.Next()
	if err := s.apply(AddModuleOp{ID: id, Patch: patch}); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateModule merges fields into the module with the given id.
func (s *Session) UpdateModule(id string, patch ModulePatch) error {
	return s.apply(UpdateModuleOp{ID: id, Patch: patch})
}

// RemoveModule drops the module. Sibling order values are not renumbered.
func (s *Session) RemoveModule(id string) error {
	return s.apply(RemoveModuleOp{ID: id})
}

// ReorderModules rearranges modules to follow ids and renumbers order 1..n.
func (s *Session) ReorderModules(ids []string) error {
	return s.apply(ReorderModulesOp{IDs: ids})
}

// AddLesson appends a lesson to the named module and returns its temp id.
func (s *Session) AddLesson(moduleID string, patch LessonPatch) (string, error) {
	id := s.alloc.Next()
	if err := s.apply(AddLessonOp{ModuleID: moduleID, ID: id, Patch: patch}); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateLesson merges fields into the lesson.
func (s *Session) UpdateLesson(moduleID, lessonID string, patch LessonPatch) error {
	return s.apply(UpdateLessonOp{ModuleID: moduleID, LessonID: lessonID, Patch: patch})
}

// RemoveLesson drops the lesson from its module.
func (s *Session) RemoveLesson(moduleID, lessonID string) error {
	return s.apply(RemoveLessonOp{ModuleID: moduleID, LessonID: lessonID})
}

// SetStep jumps to the given step, clamped to the valid range. Jumping is not
// gated; only NextStep consults the validator.
func (s *Session) SetStep(step int) error {
	return s.apply(SetStepOp{Step: step})
}

// NextStep advances to the next step if the current one validates. The verdict
// is returned either way so field errors can be surfaced.
func (s *Session) NextStep() (Verdict, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Verdict{}, ErrSessionClosed
	}
	v := ValidateStep(s.state.Step, s.state)
	if v.Valid {
		s.state = Reduce(s.state, NextStepOp{})
	}
	s.lastTouch = time.Now()
	s.mu.Unlock()
	return v, nil
}

// PrevStep steps back. Never blocked.
func (s *Session) PrevStep() error {
	return s.apply(PrevStepOp{})
}

// Validate runs the step validator against the current state without
// navigating.
func (s *Session) Validate(step int) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ValidateStep(step, s.state)
}

// Readiness scores publish readiness under the session's policy.
func (s *Session) Readiness() Readiness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScoreReadiness(s.state.Course, s.readiness)
}

// IdleSince reports the time of the last mutation or navigation.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

// Close tears the session down: the pending debounce timer is cancelled so a
// late fire cannot act on a dead session. Unsaved edits are dropped.
func (s *Session) Close() {
	s.saver.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.logger.Debug().Msg("Session closed")
}
