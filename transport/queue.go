package transport

import "sync"

// waitQueue is the refresh critical section: one owner at a time, and the
// requests that arrived during its refresh parked in arrival order.
type waitQueue struct {
	mu      sync.Mutex
	active  bool
	waiters []chan error
}

// acquire makes the caller the owner when no refresh is in flight. Otherwise
// it parks the caller and returns the channel its outcome is delivered on.
func (q *waitQueue) acquire() (owner bool, wait <-chan error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.active {
		q.active = true
		return true, nil
	}
	ch := make(chan error, 1)
	q.waiters = append(q.waiters, ch)
	return false, ch
}

// release ends the refresh and delivers outcome to every parked caller in
// arrival order. It returns how many were woken.
func (q *waitQueue) release(outcome error) int {
	q.mu.Lock()
	q.active = false
	waiters := q.waiters
	q.waiters = nil
	q.mu.Unlock()
	for _, ch := range waiters {
		ch <- outcome
	}
	return len(waiters)
}

// fail rejects every parked caller without ending the refresh.
func (q *waitQueue) fail(err error) int {
	q.mu.Lock()
	waiters := q.waiters
	q.waiters = nil
	q.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
	return len(waiters)
}

func (q *waitQueue) state() (active bool, parked int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active, len(q.waiters)
}
