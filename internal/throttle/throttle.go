package throttle

import (
	"sync"
	"time"
)

// Throttle enforces a minimum delay between requests to the same site
// and honors server-supplied retry-after hints. It is the only piece of
// cross-request shared state in the core, so one coarse lock guards it.
type Throttle struct {
	mu    sync.Mutex
	sites map[string]*siteState

	minDelay time.Duration
	maxDelay time.Duration

	// Injection points for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

type siteState struct {
	lastAccess time.Time
	delay      time.Duration
	// Pending retry-after override; consumed by the next scheduling
	// decision.
	retryAfter time.Duration
}

// New creates a throttle with the given per-site delay bounds.
func New(minDelay, maxDelay time.Duration) *Throttle {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Throttle{
		sites:    make(map[string]*siteState),
		minDelay: minDelay,
		maxDelay: maxDelay,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WaitBeforeRequest blocks until the site may be contacted again. The
// first request to a site never waits. This method never fails.
func (t *Throttle) WaitBeforeRequest(site string) {
	t.mu.Lock()

	state, ok := t.sites[site]
	if !ok {
		state = &siteState{delay: t.minDelay}
		t.sites[site] = state
	}

	required := state.delay
	if state.retryAfter > required {
		required = state.retryAfter
	}
	state.retryAfter = 0

	var wait time.Duration
	if !state.lastAccess.IsZero() {
		elapsed := t.now().Sub(state.lastAccess)
		if elapsed < required {
			wait = required - elapsed
		}
		// Bounded linear escalation: rapid-fire callers push the delay
		// up toward the ceiling, idle ones let it decay back down.
		if elapsed < 2*state.delay {
			state.delay += t.minDelay / 2
			if state.delay > t.maxDelay {
				state.delay = t.maxDelay
			}
		} else if state.delay > t.minDelay {
			state.delay -= t.minDelay / 2
			if state.delay < t.minDelay {
				state.delay = t.minDelay
			}
		}
	}

	t.mu.Unlock()

	if wait > 0 {
		t.sleep(wait)
	}

	t.mu.Lock()
	state.lastAccess = t.now()
	t.mu.Unlock()
}

// NoteResponse records a server-supplied retry-after hint. The next
// scheduling decision for the site respects max(minimum delay, hint).
func (t *Throttle) NoteResponse(site string, retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sites[site]
	if !ok {
		state = &siteState{delay: t.minDelay}
		t.sites[site] = state
	}
	state.retryAfter = retryAfter
}

// Delay reports the current minimum delay for a site.
func (t *Throttle) Delay(site string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state, ok := t.sites[site]; ok {
		return state.delay
	}
	return t.minDelay
}
