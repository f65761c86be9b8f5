package wizard

import (
	"context"
	"time"

	"app/internal/model"
)

// saveTimeout bounds a single gateway save call fired from the debounce timer.
const saveTimeout = 30 * time.Second

// autosaveFire is the debounce timer callback. It reads the live state at fire
// time, never a snapshot captured when the timer was armed, so only the latest
// edits are saved.
func (s *Session) autosaveFire() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.flush(ctx, false); err != nil {
		s.logger.Warn().Err(err).Msg("Autosave failed")
	}
}

// flush performs one save round trip against the gateway. With force=false it
// is a no-op on clean state, and a fire that lands while another save is in
// flight is suppressed; the save is re-armed once the in-flight one resolves
// if the state is dirty again. At most one gateway call is ever in flight.
func (s *Session) flush(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state.SaveStatus == SaveSaving {
		// Suppressed; the resolving save re-arms if the state is still dirty.
		s.mu.Unlock()
		return nil
	}
	if !force && !s.state.Dirty {
		s.mu.Unlock()
		return nil
	}

	payload := BuildPayload(s.state.Course)
	identifier := s.state.Course.Identifier()
	s.state = Reduce(s.state, SaveStartOp{})
	done := make(chan struct{})
	s.saveDone = done
	s.mu.Unlock()

	saved, err := s.dispatch(ctx, identifier, payload)

	s.mu.Lock()
	if err != nil {
		s.state = Reduce(s.state, SaveFailureOp{Message: err.Error()})
	} else {
		s.state = Reduce(s.state, SaveSuccessOp{Server: saved})
	}
	rearm := s.state.Dirty && !s.closed
	s.saveDone = nil
	close(done)
	s.mu.Unlock()

	if rearm {
		s.saver.Arm(s.delay)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Save failed")
		return err
	}
	s.logger.Debug().Str("identifier", identifier).Msg("Save succeeded")
	return nil
}

// dispatch picks create versus update: update when the course already has an
// id or slug, create otherwise.
func (s *Session) dispatch(ctx context.Context, identifier string, payload *model.Course) (*model.Course, error) {
	if identifier != "" {
		return s.gw.UpdateCourse(ctx, identifier, payload)
	}
	return s.gw.CreateCourse(ctx, payload)
}

// SaveNow forces an immediate, non-debounced save and awaits its result. Any
// pending debounce fire is cancelled first. If a save is already in flight it
// is awaited before the forced one starts.
func (s *Session) SaveNow(ctx context.Context) error {
	s.saver.Cancel()
	if err := s.awaitInflight(ctx); err != nil {
		return err
	}
	return s.flush(ctx, true)
}

// awaitInflight blocks until no save is in flight.
func (s *Session) awaitInflight(ctx context.Context) error {
	for {
		s.mu.Lock()
		done := s.saveDone
		s.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		}
	}
}
