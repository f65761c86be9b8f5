package tempid

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Prefix tags every client-allocated identifier so the payload builder can
// strip them before transmission with a single prefix check.
const Prefix = "tmp-"

// Allocator issues collision-resistant temporary ids for entities the backend
// has not acknowledged yet. Each session owns its own instance; the counter is
// never shared process-wide.
type Allocator struct {
	mu      sync.Mutex
	counter uint64
}

// New returns a fresh allocator.
func New() *Allocator {
	return &Allocator{}
}

// Next returns a new temporary id. Combines millisecond timestamp, a
// monotonically incrementing counter and a random component, so rapid
// successive calls within the same millisecond cannot collide.
func (a *Allocator) Next() string {
	a.mu.Lock()
	a.counter++
	n := a.counter
	a.mu.Unlock()

	return fmt.Sprintf("%s%d-%d-%s", Prefix, time.Now().UnixMilli(), n, uuid.NewString()[:8])
}

// IsTemp reports whether id was allocated by a client-side allocator.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, Prefix)
}
