package queue

import (
	"sync"
	"sync/atomic"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// Service runs operations one at a time in the order they were submitted.
// Every admitted operation waits for the one admitted before it, so the
// queue is a chain of completion channels rather than a lock.
type Service struct {
	mu      sync.Mutex
	tail    chan struct{}
	pending atomic.Int64
}

func NewSerializer() *Service {
	done := make(chan struct{})
	close(done)

	return &Service{
		tail: done,
	}
}

func (s *Service) admit() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.tail
	next := make(chan struct{})
	s.tail = next

	s.pending.Add(1)

	return prev, func() {
		s.pending.Add(-1)
		close(next)
	}
}

// Exclusive blocks until every previously admitted operation has finished,
// then runs op. The slot is released whatever op does, including panics.
// There is no timeout: once admitted, op always runs.
func Exclusive[T any](s *Service, op func() (T, error)) (T, error) {
	prev, release := s.admit()
	defer release()

	<-prev

	return op()
}

// Pending returns the number of admitted operations that have not finished yet.
func (s *Service) Pending() int64 {
	return s.pending.Load()
}

// Drain waits for everything admitted so far.
func (s *Service) Drain() {
	s.mu.Lock()
	tail := s.tail
	s.mu.Unlock()

	<-tail
}

func (s *Service) Shutdown() error {
	s.Drain()

	return nil
}
