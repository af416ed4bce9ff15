// Package search turns free-text input into the query parameters read by
// the invoice list, debouncing rapid input.
package search

import (
	"net/url"
	"sync"
	"time"
)

const (
	// QueryKey is the URL parameter holding the search term.
	QueryKey = "query"
	// PageKey is the URL parameter holding the 1-based page number.
	PageKey = "page"
	// DefaultDelay is the quiet period before a term is applied.
	DefaultDelay = 300 * time.Millisecond
)

// Apply returns a copy of values with the query parameter set to term, or
// removed when term is empty. Only the query key is touched.
func Apply(values url.Values, term string) url.Values {
	next := cloneValues(values)
	if term == "" {
		next.Del(QueryKey)
	} else {
		next.Set(QueryKey, term)
	}
	return next
}

// ResetPage returns a copy of values pointing at the first page.
func ResetPage(values url.Values) url.Values {
	next := cloneValues(values)
	next.Set(PageKey, "1")
	return next
}

func cloneValues(values url.Values) url.Values {
	next := make(url.Values, len(values))
	for k, v := range values {
		next[k] = append([]string(nil), v...)
	}
	return next
}

// Synchronizer debounces search input into query-parameter updates. At most
// one update is pending at a time; new input cancels and replaces it.
type Synchronizer struct {
	mu       sync.Mutex
	current  url.Values
	onChange func(url.Values)
	delay    time.Duration
	timer    *time.Timer
	seq      uint64
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithDelay overrides the quiet period.
func WithDelay(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.delay = d
		}
	}
}

// NewSynchronizer starts from current and calls onChange with each applied
// parameter set. onChange runs on the timer goroutine.
func NewSynchronizer(current url.Values, onChange func(url.Values), opts ...Option) *Synchronizer {
	s := &Synchronizer{
		current:  cloneValues(current),
		onChange: onChange,
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input schedules term to be applied after the quiet period and returns
// immediately.
func (s *Synchronizer) Input(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.timer = time.AfterFunc(s.delay, func() { s.fire(seq, term) })
}

func (s *Synchronizer) fire(seq uint64, term string) {
	s.mu.Lock()
	// a newer Input or Stop superseded this timer after it had already fired
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.current = Apply(s.current, term)
	next := cloneValues(s.current)
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(next)
	}
}

// Stop cancels any pending update.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

// Pending reports whether an update is scheduled.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Values returns the last applied parameter set.
func (s *Synchronizer) Values() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.current)
}
