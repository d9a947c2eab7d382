package permission

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/transport"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
)

func okEnvelope(body string) *transport.Envelope {
	return &transport.Envelope{Code: 200, Message: "success", Data: json.RawMessage(body)}
}

func TestStoreLoadWithoutToken(t *testing.T) {
	var calls atomic.Int32
	s := NewStore(SourceFunc(func(ctx context.Context, token string) (*transport.Envelope, error) {
		calls.Add(1)
		return nil, nil
	}), nil, logr.Discard())

	snap, err := s.Load(context.Background(), "")
	if snap != nil || err != nil {
		t.Fatalf("Load(\"\") = %v, %v", snap, err)
	}
	if !s.Loaded() || calls.Load() != 0 {
		t.Fatal("no-token load must mark loaded without fetching")
	}
}

func TestStoreFailureKeepsPreviousSnapshot(t *testing.T) {
	rec := &ui.Recorder{}
	fail := error(nil)
	s := NewStore(SourceFunc(func(ctx context.Context, token string) (*transport.Envelope, error) {
		if fail != nil {
			return nil, fail
		}
		return okEnvelope(`{"permissions":["user.list"]}`), nil
	}), rec, logr.Discard())

	if _, err := s.Load(context.Background(), "A"); err != nil {
		t.Fatalf("first load: %v", err)
	}

	fail = &transport.Error{Code: transport.CodeNetwork, Message: "Network connection failed"}
	snap, err := s.Load(context.Background(), "A")
	if err == nil || snap == nil || !snap.Has("user.list") {
		t.Fatalf("network failure should return previous snapshot, got %v, %v", snap, err)
	}
	if msg, _ := rec.Last(); msg.Text != msgStale || msg.Level != ui.LevelWarning {
		t.Fatalf("last message = %+v", msg)
	}

	fail = &transport.Error{Code: 500, Message: "Internal server error"}
	before := len(rec.Messages())
	if _, err := s.Load(context.Background(), "A"); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.Messages()) != before {
		t.Fatal("non-network failure with a snapshot present must stay quiet")
	}
	if !s.Loaded() || s.Snapshot() == nil {
		t.Fatal("failure must keep loaded flag and snapshot")
	}
}

func TestStoreFirstFailureWarns(t *testing.T) {
	rec := &ui.Recorder{}
	s := NewStore(SourceFunc(func(ctx context.Context, token string) (*transport.Envelope, error) {
		return &transport.Envelope{Code: 403, Message: "forbidden"}, nil
	}), rec, logr.Discard())

	snap, err := s.Load(context.Background(), "A")
	if err == nil || snap != nil {
		t.Fatalf("Load = %v, %v", snap, err)
	}
	if !s.Loaded() {
		t.Fatal("failed load must still mark loaded")
	}
	if msg, _ := rec.Last(); msg.Text != msgLimited {
		t.Fatalf("last message = %+v", msg)
	}
}

func TestStoreDeduplicatesConcurrentLoads(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	s := NewStore(SourceFunc(func(ctx context.Context, token string) (*transport.Envelope, error) {
		calls.Add(1)
		<-gate
		return okEnvelope(`["user.list"]`), nil
	}), nil, logr.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Load(context.Background(), "A"); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	// Give every goroutine time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	if got := calls.Load(); got != 1 {
		t.Fatalf("backend calls = %d, want 1", got)
	}
	if !s.Snapshot().Has("user.list") {
		t.Fatal("snapshot not installed")
	}
}

func TestStoreInvalidateDiscardsInFlightLoad(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	s := NewStore(SourceFunc(func(ctx context.Context, token string) (*transport.Envelope, error) {
		close(entered)
		<-gate
		return okEnvelope(`["user.list"]`), nil
	}), nil, logr.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "A")
		done <- err
	}()
	<-entered
	s.Invalidate()
	close(gate)
	if err := <-done; err == nil {
		t.Fatal("load that straddled Invalidate should report an error")
	}
	if s.Snapshot() != nil || s.Loaded() {
		t.Fatal("stale load must not install a snapshot")
	}
}

func TestStoreRefreshReloads(t *testing.T) {
	var calls atomic.Int32
	s := NewStore(SourceFunc(func(ctx context.Context, token string) (*transport.Envelope, error) {
		calls.Add(1)
		return okEnvelope(`["user.list"]`), nil
	}), nil, logr.Discard())

	if _, err := s.Load(context.Background(), "A"); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap, err := s.Refresh(context.Background(), "A")
	if err != nil || !snap.Has("user.list") || calls.Load() != 2 {
		t.Fatalf("Refresh = %v, %v after %d calls", snap, err, calls.Load())
	}
}
