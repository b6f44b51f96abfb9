package repository

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/pkg/metrics"
)

// MemoryStore is an in-process Store. Reads share a published snapshot that is
// rebuilt lazily after writes.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []model.User
	places   []model.Place
	events   []model.Event
	userIdx  map[string]struct{}
	placeIdx map[string]struct{}
	eventIdx map[string]struct{}
	version  uint64

	// snapshot caches the last published copy; stale when its Version lags.
	snapshot atomic.Pointer[model.Snapshot]

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closed                atomic.Bool
}

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		userIdx:               make(map[string]struct{}),
		placeIdx:              make(map[string]struct{}),
		eventIdx:              make(map[string]struct{}),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// AddUser implements Store.AddUser.
func (s *MemoryStore) AddUser(_ context.Context, u model.User) error {
	if u.Key == "" {
		return ErrMissingKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if _, ok := s.userIdx[u.Key]; ok {
		return ErrDuplicate
	}
	s.userIdx[u.Key] = struct{}{}
	s.users = append(s.users, u)
	s.version++
	return nil
}

// AddPlace implements Store.AddPlace.
func (s *MemoryStore) AddPlace(_ context.Context, p model.Place) error {
	if p.Key == "" {
		return ErrMissingKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if _, ok := s.placeIdx[p.Key]; ok {
		return ErrDuplicate
	}
	p.Tags = slices.Clone(p.Tags)
	s.placeIdx[p.Key] = struct{}{}
	s.places = append(s.places, p)
	s.version++
	return nil
}

// Append implements Store.Append.
func (s *MemoryStore) Append(_ context.Context, e model.Event) error {
	if err := checkEvent(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if _, ok := s.eventIdx[e.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := s.userIdx[e.UserKey]; !ok {
		return ErrUnknownUser
	}
	if _, ok := s.placeIdx[e.PlaceKey]; !ok {
		return ErrUnknownPlace
	}
	s.eventIdx[e.ID] = struct{}{}
	s.events = append(s.events, e)
	s.version++
	return nil
}

// HasUser implements Store.HasUser.
func (s *MemoryStore) HasUser(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.userIdx[key]
	return ok, nil
}

// HasPlace implements Store.HasPlace.
func (s *MemoryStore) HasPlace(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.placeIdx[key]
	return ok, nil
}

// Snapshot implements Store.Snapshot. The returned slices must not be mutated;
// they are shared with other readers of the same version.
func (s *MemoryStore) Snapshot(_ context.Context) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap := s.snapshot.Load(); snap != nil && snap.Version == s.version {
		return *snap, nil
	}
	snap := &model.Snapshot{
		Version: s.version,
		Users:   slices.Clone(s.users),
		Places:  clonePlaces(s.places),
		Events:  slices.Clone(s.events),
	}
	s.snapshot.Store(snap)
	return *snap, nil
}

// Version implements Store.Version.
func (s *MemoryStore) Version(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// Counts implements Store.Counts.
func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Users: len(s.users), Places: len(s.places), Events: len(s.events)}, nil
}

// Close stops the metrics updater. Writes after Close return ErrClosed.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				c, _ := s.Counts(ctx)
				metrics.UpdateRosterSizes(c.Users, c.Places, c.Events)
			}
		}
	}()
}

func clonePlaces(in []model.Place) []model.Place {
	out := make([]model.Place, len(in))
	for i, p := range in {
		p.Tags = slices.Clone(p.Tags)
		out[i] = p
	}
	return out
}
