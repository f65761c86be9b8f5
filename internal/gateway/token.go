package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TokenSource supplies the bearer token attached to upstream requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

// RefreshFunc fetches a fresh token from the auth collaborator.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshingToken caches a token and renews it on a fixed interval in the
// background. Stop must be called on teardown so the tick does not outlive the
// process session that owns it.
type RefreshingToken struct {
	mu      sync.RWMutex
	current string
	refresh RefreshFunc
	cancel  context.CancelFunc
	done    chan struct{}
	logger  zerolog.Logger
}

// NewRefreshingToken fetches an initial token and starts the renewal tick.
func NewRefreshingToken(ctx context.Context, refresh RefreshFunc, interval time.Duration, logger zerolog.Logger) (*RefreshingToken, error) {
	initial, err := refresh(ctx)
	if err != nil {
		return nil, err
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	t := &RefreshingToken{
		current: initial,
		refresh: refresh,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger.With().Str("service", "TokenSource").Logger(),
	}
	go t.run(tickCtx, interval)
	return t, nil
}

func (t *RefreshingToken) run(ctx context.Context, interval time.Duration) {
	defer close(t.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			token, err := t.refresh(ctx)
			if err != nil {
				// Keep the previous token; the next gateway call surfaces the
				// failure as an ordinary save error if it is truly expired.
				t.logger.Error().Err(err).Msg("Token refresh failed")
				continue
			}
			t.mu.Lock()
			t.current = token
			t.mu.Unlock()
			t.logger.Debug().Msg("Token refreshed")
		}
	}
}

// Token returns the most recently fetched token.
func (t *RefreshingToken) Token(context.Context) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, nil
}

// Stop cancels the renewal tick and waits for it to exit.
func (t *RefreshingToken) Stop() {
	t.cancel()
	<-t.done
}
