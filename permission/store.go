package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/transport"
	"github.com/MrEthical07/goSession/ui"
	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"
)

const (
	msgStale   = "Network error, permissions may be stale"
	msgLimited = "Failed to load permissions, some features may be limited"
)

// Source fetches the raw permissions envelope with the given bearer token.
type Source interface {
	MyPermissions(ctx context.Context, token string) (*transport.Envelope, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(ctx context.Context, token string) (*transport.Envelope, error)

// MyPermissions calls f.
func (f SourceFunc) MyPermissions(ctx context.Context, token string) (*transport.Envelope, error) {
	return f(ctx, token)
}

// LoadResult describes one completed load for observers.
type LoadResult struct {
	OK      bool
	Network bool
	Codes   int
	Err     error
}

// Store holds the current snapshot. The zero value is not usable; call
// [NewStore].
type Store struct {
	source Source
	notify ui.Notifier
	log    logr.Logger
	now    func() time.Time
	group  singleflight.Group
	onLoad func(LoadResult)

	mu     sync.RWMutex
	snap   *Snapshot
	loaded bool
	// gen advances on Invalidate so a load started for a previous session
	// cannot install its result afterwards.
	gen uint64
}

// NewStore returns an empty store backed by source.
func NewStore(source Source, notify ui.Notifier, log logr.Logger) *Store {
	if notify == nil {
		notify = ui.Discard{}
	}
	return &Store{source: source, notify: notify, log: log, now: time.Now}
}

// OnLoad installs fn as the completion hook and returns s.
func (s *Store) OnLoad(fn func(LoadResult)) *Store {
	s.onLoad = fn
	return s
}

// Snapshot returns the current snapshot, or nil.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Loaded reports whether a load has completed since the last invalidation.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Invalidate drops the snapshot and the loaded flag.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	s.loaded = false
	s.gen++
}

// Refresh invalidates and reloads.
func (s *Store) Refresh(ctx context.Context, token string) (*Snapshot, error) {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
	return s.Load(ctx, token)
}

// Load fetches the operator's permissions. Without a token it records an
// empty, loaded state and returns nil. A failed fetch marks the store loaded,
// keeps the previous snapshot, and returns it alongside the error.
func (s *Store) Load(ctx context.Context, token string) (*Snapshot, error) {
	if token == "" {
		s.mu.Lock()
		s.snap = nil
		s.loaded = true
		s.mu.Unlock()
		return nil, nil
	}

	v, err, _ := s.group.Do(token, func() (interface{}, error) {
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()
		return s.fetch(ctx, token, gen)
	})
	snap, _ := v.(*Snapshot)
	return snap, err
}

func (s *Store) fetch(ctx context.Context, token string, gen uint64) (*Snapshot, error) {
	snap, err := s.get(ctx, token)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil, errors.New("permissions invalidated during load")
	}
	s.loaded = true
	if err == nil {
		s.snap = snap
		s.mu.Unlock()
		s.log.V(1).Info("permissions loaded", "codes", len(snap.Codes))
		s.emit(LoadResult{OK: true, Codes: len(snap.Codes)})
		return snap, nil
	}
	prev := s.snap
	s.mu.Unlock()

	network := transport.IsNetworkError(err)
	switch {
	case network:
		s.notify.Notify(ui.LevelWarning, msgStale)
	case prev == nil:
		s.notify.Notify(ui.LevelWarning, msgLimited)
	}
	s.log.Error(err, "permission load failed", "network", network, "kept_previous", prev != nil)
	s.emit(LoadResult{Network: network, Err: err})
	return prev, err
}

func (s *Store) get(ctx context.Context, token string) (*Snapshot, error) {
	env, err := s.source.MyPermissions(ctx, token)
	if err != nil {
		return nil, err
	}
	if env == nil || env.Code != 200 {
		msg := "permission load failed"
		if env != nil && env.Message != "" {
			msg = env.Message
		}
		return nil, fmt.Errorf("%s (code %d)", msg, codeOf(env))
	}
	snap, err := ParseSnapshot(env.Data)
	if err != nil {
		return nil, err
	}
	snap.LoadedAt = s.now()
	return snap, nil
}

func (s *Store) emit(r LoadResult) {
	if s.onLoad != nil {
		s.onLoad(r)
	}
}

func codeOf(env *transport.Envelope) int {
	if env == nil {
		return 0
	}
	return env.Code
}
