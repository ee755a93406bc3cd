// Package samples keeps a bounded, in-memory history of recent
// classification results.
package samples

import (
	"sync"

	"github.com/zerosight/zerosight-go/internal/classify"
)

// DefaultCapacity is the number of results kept when no capacity is given.
const DefaultCapacity = 1000

// Store is a fixed-capacity ring buffer. When full, Add evicts the oldest
// result. All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	buf   []classify.Result
	head  int // index of the oldest entry
	count int
}

// NewStore creates a store holding at most capacity results.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{buf: make([]classify.Result, capacity)}
}

// Add appends r, dropping the oldest result if the store is full.
func (s *Store) Add(r classify.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count < len(s.buf) {
		s.buf[(s.head+s.count)%len(s.buf)] = r
		s.count++
		return
	}
	s.buf[s.head] = r
	s.head = (s.head + 1) % len(s.buf)
}

// Latest returns up to n of the most recent results, oldest first.
// n <= 0 returns everything held.
func (s *Store) Latest(n int) []classify.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]classify.Result, 0, n)
	start := s.head + s.count - n
	for i := 0; i < n; i++ {
		out = append(out, s.buf[(start+i)%len(s.buf)])
	}
	return out
}

// Len returns the number of results currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Cap returns the maximum number of results the store keeps.
func (s *Store) Cap() int {
	return len(s.buf)
}
