package device

import (
	"sync"
	"time"
)

// Event marks a point in a stream. Its timestamp is taken by the stream
// worker when every task submitted before it has finished, so the
// difference between two events covers completed work only, not the
// host-side cost of queueing it.
type Event struct {
	mu       sync.Mutex
	at       time.Time
	recorded bool
}

// NewEvent creates an event that has not been recorded yet.
func NewEvent() *Event {
	return &Event{}
}

// Record enqueues the event on s. Until the stream reaches it the event
// reports as not recorded.
func (e *Event) Record(s *Stream) {
	e.mu.Lock()
	e.recorded = false
	e.mu.Unlock()

	s.Submit(func() error {
		e.mu.Lock()
		e.at = time.Now()
		e.recorded = true
		e.mu.Unlock()
		return nil
	})
}

// Query reports whether the stream has reached the event.
func (e *Event) Query() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recorded
}

// ElapsedTime returns the time between e and end in milliseconds.
func (e *Event) ElapsedTime(end *Event) (float64, error) {
	e.mu.Lock()
	start, ok := e.at, e.recorded
	e.mu.Unlock()

	end.mu.Lock()
	stop, endOK := end.at, end.recorded
	end.mu.Unlock()

	if !ok || !endOK {
		return 0, ErrEventNotRecorded
	}
	return float64(stop.Sub(start).Nanoseconds()) / 1e6, nil
}
