package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WorkerPool manages a bounded pool of goroutines sharing one request rate
// gate, so that concurrent page fetches never exceed the polite interval.
type WorkerPool struct {
	semaphore chan struct{}
	limiter   *rate.Limiter
	wg        sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool with the given concurrency. Jobs start
// at most once per minInterval; zero disables the gate.
func NewWorkerPool(maxWorkers int, minInterval time.Duration) *WorkerPool {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &WorkerPool{
		semaphore: make(chan struct{}, maxWorkers),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Submit enqueues a job for execution in the pool. The job is skipped if the
// context is canceled before its rate-gate slot arrives.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		if err := wp.limiter.Wait(ctx); err != nil {
			return
		}
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// URLSet is a thread-safe set for tracking visited URLs.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL has already been visited.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
