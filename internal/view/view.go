// Package view tracks which request generation each view is waiting on, so
// responses that arrive after the user moved on can be dropped.
package view

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generation tags a request with the view that issued it.
type Generation struct {
	View string
	ID   ulid.ULID
}

func (g Generation) String() string {
	return g.View + "/" + g.ID.String()
}

// Tracker records the active generation per view. The zero value is not
// usable; call NewTracker.
type Tracker struct {
	mu      sync.Mutex
	active  map[string]ulid.ULID
	entropy *ulid.MonotonicEntropy
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active:  make(map[string]ulid.ULID),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Begin starts a new generation for view, superseding any earlier one.
func (t *Tracker) Begin(view string) Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), t.entropy)
	t.active[view] = id
	return Generation{View: view, ID: id}
}

// Current reports whether g is still the active generation of its view.
func (t *Tracker) Current(g Generation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.active[g.View]
	return ok && id == g.ID
}

// Finish retires g once its request is done. A newer generation of the same
// view is left in place.
func (t *Tracker) Finish(g Generation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.active[g.View]; ok && id == g.ID {
		delete(t.active, g.View)
	}
}

// Len returns the number of views with an outstanding generation.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
