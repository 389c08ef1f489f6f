package device

import (
	"fmt"
	"sync"

	"github.com/LynnColeArt/convbench/config"
)

// Stream represents an ordered sequence of operations that execute
// asynchronously on one worker goroutine. A task starts only after the
// previous task on the same stream has finished.
type Stream struct {
	id    int
	tasks chan func() error
	done  chan struct{}
	wg    sync.WaitGroup

	// submitMu keeps close from racing a send on tasks.
	submitMu sync.RWMutex

	mu     sync.Mutex
	err    error
	closed bool
}

func newStream(id int) *Stream {
	s := &Stream{
		id:    id,
		tasks: make(chan func() error, config.StreamQueueDepth),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// ID returns the stream identifier.
func (s *Stream) ID() int {
	return s.id
}

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		s.run(task)
		s.wg.Done()
	}
	close(s.done)
}

func (s *Stream) run(task func() error) {
	defer func() {
		if p := recover(); p != nil {
			s.fail(NewExecutionError("Stream", fmt.Sprintf("task panicked on stream %d", s.id), fmt.Errorf("%v", p)))
		}
	}()
	if err := task(); err != nil {
		s.fail(err)
	}
}

// fail keeps the first error until the next Synchronize.
func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Submit adds a task to the stream. Errors returned by the task, and
// panics raised by it, are reported by the next Synchronize.
func (s *Stream) Submit(task func() error) {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()

	s.mu.Lock()
	if s.closed {
		if s.err == nil {
			s.err = ErrDestroyed
		}
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.tasks <- task
}

// Synchronize waits for all tasks in the stream to complete and returns
// the first error raised since the previous call.
func (s *Stream) Synchronize() error {
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *Stream) close() {
	s.submitMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.submitMu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.submitMu.Unlock()

	close(s.tasks)
	<-s.done
}
