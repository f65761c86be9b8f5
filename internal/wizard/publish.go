package wizard

import (
	"context"
	"fmt"
)

// PublishPreconditionError is returned when publish is attempted before the
// course has ever been persisted. No network call is made.
type PublishPreconditionError struct{}

func (PublishPreconditionError) Error() string {
	return "course must be saved before it can be published"
}

// Publish flips the published flag through the dedicated publish endpoint with
// all-or-nothing semantics: a forced save runs first, then the publish call;
// the local flag is only updated after both succeed. On any failure the local
// state is left untouched and the error is surfaced.
func (s *Session) Publish(ctx context.Context, publish bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	persisted := s.state.Course.Persisted()
	s.mu.Unlock()

	if !persisted {
		return PublishPreconditionError{}
	}

	if err := s.SaveNow(ctx); err != nil {
		return fmt.Errorf("saving before publish: %w", err)
	}
	return s.commitPublish(ctx, publish)
}

// commitPublish calls the publish endpoint and records the flag locally only
// on success. The course must already be persisted.
func (s *Session) commitPublish(ctx context.Context, publish bool) error {
	s.mu.Lock()
	identifier := s.state.Course.Identifier()
	s.mu.Unlock()

	if _, err := s.gw.PublishCourse(ctx, identifier, publish); err != nil {
		return fmt.Errorf("publishing course: %w", err)
	}

	if err := s.apply(SetPublishedOp{Published: publish}); err != nil {
		return err
	}
	s.logger.Info().Str("identifier", identifier).Bool("published", publish).Msg("Publish state committed")

	if s.onPublished != nil {
		s.onPublished(s.State().Course)
	}
	return nil
}

// Finish completes the wizard: a forced save, then a publish call only when
// the published flag differs from its value at load time. The save runs first
// either way, so a brand-new course gains its persisted identity before the
// publish endpoint is involved.
func (s *Session) Finish(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	desired := s.state.Course.Published
	initial := s.state.InitialPublishState
	s.mu.Unlock()

	if err := s.SaveNow(ctx); err != nil {
		return fmt.Errorf("saving wizard state: %w", err)
	}
	if desired == initial {
		return nil
	}
	return s.commitPublish(ctx, desired)
}
