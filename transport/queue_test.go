package transport

import (
	"errors"
	"testing"
)

func TestWaitQueueFIFOAndSingleDrain(t *testing.T) {
	var q waitQueue
	owner, _ := q.acquire()
	if !owner {
		t.Fatal("first caller must own the refresh")
	}

	const n = 5
	waits := make([]<-chan error, n)
	for i := range waits {
		owner, waits[i] = q.acquire()
		if owner {
			t.Fatalf("caller %d became a second owner", i)
		}
	}
	if active, parked := q.state(); !active || parked != n {
		t.Fatalf("state = %v/%d, want true/%d", active, parked, n)
	}

	// Each waiter is signalled before the next, so channel readiness follows
	// arrival order.
	if woken := q.release(nil); woken != n {
		t.Fatalf("woken = %d, want %d", woken, n)
	}
	for i, ch := range waits {
		select {
		case err := <-ch:
			if err != nil {
				t.Fatalf("waiter %d got %v", i, err)
			}
		default:
			t.Fatalf("waiter %d was not signalled", i)
		}
	}
	if active, parked := q.state(); active || parked != 0 {
		t.Fatalf("queue not cleared: %v/%d", active, parked)
	}
	if woken := q.release(nil); woken != 0 {
		t.Fatalf("second drain woke %d", woken)
	}
}

func TestWaitQueueFailKeepsOwner(t *testing.T) {
	var q waitQueue
	q.acquire()
	_, w := q.acquire()
	boom := errors.New("boom")
	if n := q.fail(boom); n != 1 {
		t.Fatalf("fail woke %d", n)
	}
	if err := <-w; !errors.Is(err, boom) {
		t.Fatalf("waiter got %v", err)
	}
	if active, _ := q.state(); !active {
		t.Fatal("fail must not end the owner's refresh")
	}
}
