package ratelimit

import (
	"container/list"
	"math"
	"sync"
	"time"
)

// Defaults match the public contact form's historical limits.
const (
	DefaultLimit  = 5
	DefaultWindow = 60 * time.Second
)

// SlidingWindow is an in-memory sliding-window rate limiter. Every key owns a
// FIFO of admission timestamps. A single mutex guards the whole map so the
// evict-compare-push sequence for a key is atomic.
//
// Keys whose queues drain empty are removed by a background sweep, and when
// MaxKeys is set the key set never grows past it. Keys are kept on two
// recency lists, split by whether the key was at its limit when last seen,
// so finding an eviction victim never scans the map.
type SlidingWindow struct {
	limit         int
	window        time.Duration
	maxKeys       int
	sweepInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	entries   map[string]*keyState
	open      *list.List // front is most recently seen
	throttled *list.List
	done      chan struct{}
	closed    bool
}

type keyState struct {
	key   string
	queue []time.Time
	full  bool
	elem  *list.Element
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) { s.now = now }
}

// WithMaxKeys bounds the number of tracked keys. Zero disables the bound.
func WithMaxKeys(n int) Option {
	return func(s *SlidingWindow) { s.maxKeys = n }
}

// WithSweepInterval sets how often empty keys are removed. A non-positive
// interval disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(s *SlidingWindow) { s.sweepInterval = d }
}

// NewSlidingWindow creates a limiter admitting at most limit requests per key
// within any window-long span. The sweep interval defaults to the window.
func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &SlidingWindow{
		limit:         limit,
		window:        window,
		sweepInterval: window,
		now:           time.Now,
		entries:       make(map[string]*keyState),
		open:          list.New(),
		throttled:     list.New(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepInterval > 0 {
		go s.sweep()
	}
	return s
}

// Admit evicts expired timestamps for key, then either rejects with a
// retry-after hint or records the request. Rejected calls still count as
// activity for eviction purposes.
func (s *SlidingWindow) Admit(key string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st, exists := s.entries[key]
	if !exists {
		if s.maxKeys > 0 && len(s.entries) >= s.maxKeys {
			s.evictOneLocked(now)
		}
		st = &keyState{key: key}
		s.entries[key] = st
	}

	st.queue = s.evict(st.queue, now)
	decision := Decision{Limit: s.limit}

	if len(st.queue) >= s.limit {
		s.touchLocked(st, true)
		decision.RetryAfter = s.retryAfter(st.queue[0], now)
		return decision
	}

	st.queue = append(st.queue, now)
	s.touchLocked(st, len(st.queue) >= s.limit)
	decision.Allowed = true
	decision.Remaining = s.limit - len(st.queue)
	return decision
}

// Keys reports how many keys are currently tracked.
func (s *SlidingWindow) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the background sweep goroutine.
func (s *SlidingWindow) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// evict drops timestamps strictly older than the window.
func (s *SlidingWindow) evict(queue []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(queue) && now.Sub(queue[i]) > s.window {
		i++
	}
	if i == len(queue) {
		return queue[:0]
	}
	return queue[i:]
}

func (s *SlidingWindow) retryAfter(oldest, now time.Time) int {
	remaining := s.window - now.Sub(oldest)
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// touchLocked moves st to the front of the list matching its fullness.
func (s *SlidingWindow) touchLocked(st *keyState, full bool) {
	if st.elem != nil {
		s.listFor(st.full).Remove(st.elem)
	}
	st.full = full
	st.elem = s.listFor(full).PushFront(st)
}

func (s *SlidingWindow) listFor(full bool) *list.List {
	if full {
		return s.throttled
	}
	return s.open
}

// evictOneLocked drops the least recently seen key that had spare capacity.
// A key that was at its limit is only dropped once its window has drained or
// when every tracked key is at its limit.
func (s *SlidingWindow) evictOneLocked(now time.Time) {
	victim := s.open.Back()
	if oldest := s.throttled.Back(); oldest != nil {
		if victim == nil || len(s.evict(oldest.Value.(*keyState).queue, now)) == 0 {
			victim = oldest
		}
	}
	if victim != nil {
		s.removeLocked(victim.Value.(*keyState))
	}
}

func (s *SlidingWindow) removeLocked(st *keyState) {
	if st.elem != nil {
		s.listFor(st.full).Remove(st.elem)
		st.elem = nil
	}
	delete(s.entries, st.key)
}

func (s *SlidingWindow) sweepLocked(now time.Time) {
	for _, st := range s.entries {
		st.queue = s.evict(st.queue, now)
		if len(st.queue) == 0 {
			s.removeLocked(st)
		}
	}
}

func (s *SlidingWindow) sweep() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.sweepLocked(s.now())
			s.mu.Unlock()
		}
	}
}
