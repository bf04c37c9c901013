package trace

import (
	"fmt"
	"sync"

	"trackpad/internal/gesture"
)

const (
	// DefaultFlushEvery is the buffered row count that triggers a flush.
	DefaultFlushEvery = 256
	// BufferedFlushes is how many batches may pile up while the store
	// fails before the backlog is discarded.
	BufferedFlushes = 16
)

// DroppedError reports buffered rows discarded after failed flushes.
type DroppedError struct {
	Rows int
	Err  error
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("trace: dropped %d buffered rows: %v", e.Rows, e.Err)
}

func (e *DroppedError) Unwrap() error { return e.Err }

// Recorder buffers the samples and actions of one session and writes them
// in batches. It is safe for concurrent use.
type Recorder struct {
	store      *Store
	session    int64
	flushEvery int

	mu      sync.Mutex
	samples []gesture.Sample
	actions []TimedAction
	dropped uint64
}

// NewRecorder starts a new session in store.
func NewRecorder(store *Store, g gesture.Geometry, note string, flushEvery int) (*Recorder, error) {
	id, err := store.BeginSession(g, note)
	if err != nil {
		return nil, err
	}
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &Recorder{store: store, session: id, flushEvery: flushEvery}, nil
}

// Session returns the session id rows are written to.
func (r *Recorder) Session() int64 { return r.session }

// Sample buffers s and flushes when the buffer is full.
func (r *Recorder) Sample(s gesture.Sample) error {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	full := len(r.samples)+len(r.actions) >= r.flushEvery
	r.mu.Unlock()

	if full {
		return r.Flush()
	}
	return nil
}

// Action buffers a non-empty action and flushes when the buffer is full.
func (r *Recorder) Action(a gesture.Action, at uint32) error {
	if a.None() {
		return nil
	}
	r.mu.Lock()
	r.actions = append(r.actions, TimedAction{At: at, Action: a})
	full := len(r.samples)+len(r.actions) >= r.flushEvery
	r.mu.Unlock()

	if full {
		return r.Flush()
	}
	return nil
}

// Dropped returns the number of rows discarded since the recorder started.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Pending returns the number of buffered rows.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples) + len(r.actions)
}

// Flush writes every buffered row in one transaction. On failure the rows
// stay buffered until BufferedFlushes batches have piled up; then the
// backlog is discarded and a *DroppedError returned.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.samples) + len(r.actions)
	if n == 0 {
		return nil
	}
	if err := r.store.appendBatch(r.session, r.samples, r.actions); err != nil {
		if n < r.flushEvery*BufferedFlushes {
			return err
		}
		r.clear()
		r.dropped += uint64(n)
		return &DroppedError{Rows: n, Err: err}
	}
	r.clear()
	return nil
}

func (r *Recorder) clear() {
	r.samples = r.samples[:0]
	r.actions = r.actions[:0]
}
