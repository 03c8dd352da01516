package transcript

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Entry is one conversation turn to persist.
type Entry struct {
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

// Poster delivers one entry to the backend transcript endpoint.
type Poster interface {
	AppendTranscript(ctx context.Context, e Entry) error
}

// StatusCoder is implemented by poster errors that carry an HTTP status;
// the sink retries only transport errors and server errors (>=500).
type StatusCoder interface {
	StatusCode() int
}

const (
	defaultCapacity = 1000
	maxAttempts     = 4
	defaultBackoff  = 300 * time.Millisecond
	emptyPoll       = 50 * time.Millisecond
)

// Sink is a bounded FIFO of transcript entries with a background flush loop.
// Enqueue never blocks the conversation path: when full, the oldest entry is
// dropped. Delivery is best-effort, at-most-once per entry.
type Sink struct {
	poster      Poster
	backoffBase time.Duration

	mu      sync.Mutex
	queue   []Entry
	cap     int
	dropped int
}

// NewSink constructs a sink with the production capacity and backoff.
func NewSink(poster Poster) *Sink {
	return &Sink{poster: poster, cap: defaultCapacity, backoffBase: defaultBackoff}
}

// NewSinkWithOptions is used by tests to shrink the queue and backoff.
func NewSinkWithOptions(poster Poster, capacity int, backoffBase time.Duration) *Sink {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if backoffBase <= 0 {
		backoffBase = defaultBackoff
	}
	return &Sink{poster: poster, cap: capacity, backoffBase: backoffBase}
}

// Enqueue appends an entry, dropping the oldest when the queue is full.
func (s *Sink) Enqueue(sessionID, role, text string) {
	s.mu.Lock()
	if len(s.queue) >= s.cap {
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, Entry{SessionID: sessionID, Role: role, Text: text})
	s.mu.Unlock()
}

// Len reports the number of queued entries.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped reports how many entries were discarded due to a full queue.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Sink) pop() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Entry{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// Run flushes entries until ctx is cancelled. Transcript durability failures
// never block or delay the spoken conversation: a failed entry is dropped
// after the retry budget, never re-queued.
func (s *Sink) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		e, ok := s.pop()
		if !ok {
			if !sleepCtx(ctx, emptyPoll) {
				return
			}
			continue
		}
		s.flushOne(ctx, e)
	}
}

// Drain flushes everything still queued. Teardown calls it after stopping
// Run so late entries, the closing statement included, still reach the
// backend within the caller's deadline.
func (s *Sink) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		e, ok := s.pop()
		if !ok {
			return
		}
		s.flushOne(ctx, e)
	}
}

// flushOne posts a single entry with up to maxAttempts tries and exponential
// backoff. Success and non-retryable client errors both end the attempt loop.
func (s *Sink) flushOne(ctx context.Context, e Entry) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.poster.AppendTranscript(ctx, e)
		if err == nil {
			return
		}
		var sc StatusCoder
		if errors.As(err, &sc) && sc.StatusCode() < 500 {
			log.Printf("transcript: dropping entry for %s after status %d", e.SessionID, sc.StatusCode())
			return
		}
		log.Printf("transcript: save attempt %d failed: %v", attempt+1, err)
		if !sleepCtx(ctx, s.backoffBase<<attempt) {
			return
		}
	}
	log.Printf("transcript: giving up on entry for %s after %d attempts", e.SessionID, maxAttempts)
}

// sleepCtx sleeps for d unless ctx is cancelled first; it reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
