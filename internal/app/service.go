// Package service wires the ranking core to storage and ingestion and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	eventqueue "github.com/okian/placerank/internal/adapters/mq/queue"
	workerpool "github.com/okian/placerank/internal/adapters/mq/worker"
	"github.com/okian/placerank/internal/adapters/repository"
	"github.com/okian/placerank/internal/domain/dedupe"
	"github.com/okian/placerank/internal/domain/model"
	"github.com/okian/placerank/internal/domain/ranking"
	"github.com/okian/placerank/internal/domain/recommend"
	"github.com/okian/placerank/internal/domain/types"
	"github.com/okian/placerank/pkg/logger"
	"github.com/okian/placerank/pkg/metrics"
)

const rankingCacheCapacity = 16

// Service owns the repository, the ingestion pipeline and the ranking cache.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	deduper      dedupe.Deduper
	eventQueue   eventqueue.Queue
	workerPool   *workerpool.Pool
	orchestrator *recommend.Orchestrator
	rankings     *ttlcache.Cache[uint64, []ranking.Entry]
	flight       singleflight.Group

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	recommendationSize int
	similarSize        int
	rankingCacheTTL    time.Duration
	weights            model.Weights
	now                func() time.Time

	// State
	started   bool
	ownsStore bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecommendationSize sets the default recommendation list length.
func WithRecommendationSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recommendationSize = n
		}
	}
}

// WithSimilarSize sets the default similar-places list length.
func WithSimilarSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.similarSize = n
		}
	}
}

// WithRankingCacheTTL bounds how long an IL ranking is reused for one
// repository version. Zero keeps entries until evicted.
func WithRankingCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.rankingCacheTTL = ttl
		}
	}
}

// WithWeights sets the tag-profile weight of each event type.
func WithWeights(w model.Weights) Option {
	return func(s *Service) {
		if len(w) > 0 {
			s.weights = w
		}
	}
}

// WithStore sets the repository. The caller keeps ownership and closes it
// after the final Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used to timestamp events without one.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:        runtime.NumCPU(),
		queueSize:          10_000,
		dedupeSize:         100_000,
		recommendationSize: recommend.DefaultSize,
		similarSize:        5,
		rankingCacheTTL:    30 * time.Second,
		weights:            model.DefaultWeights(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting placerank service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.ownsStore = true
		s.logger.Info(ctx, "using memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	ttl := s.rankingCacheTTL
	if ttl == 0 {
		ttl = ttlcache.NoTTL
	}
	s.rankings = ttlcache.New[uint64, []ranking.Entry](
		ttlcache.WithTTL[uint64, []ranking.Entry](ttl),
		ttlcache.WithCapacity[uint64, []ranking.Entry](rankingCacheCapacity),
	)
	go s.rankings.Start()

	s.orchestrator = recommend.New(
		recommend.WithSize(s.recommendationSize),
		recommend.WithWeights(s.weights),
		recommend.WithRanker(s.rankedKeys),
	)

	// A failed append frees the event ID so the client can retry it.
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store,
		workerpool.WithFailureHook(func(ctx context.Context, e model.Event, err error) {
			s.deduper.Unrecord(ctx, e.ID)
		}),
	)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "placerank service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the ingestion queue. The repository is closed only when the
// service created it; a store passed with WithStore is kept for the next Start.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping placerank service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.rankings.Stop()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "placerank service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() error {
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// AddUser registers a user under its normalized key.
func (s *Service) AddUser(ctx context.Context, key string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return model.User{}, err
	}

	u := model.User{Key: model.NormalizeUserKey(key)}
	if u.Key == "" {
		return model.User{}, fmt.Errorf("%w: user key is empty", ErrInvalidInput)
	}
	if err := s.store.AddUser(ctx, u); err != nil {
		return model.User{}, translate("add user", u.Key, err)
	}
	return u, nil
}

// AddPlace registers a place. An empty key is derived from name and coordinates.
func (s *Service) AddPlace(ctx context.Context, p model.Place) (model.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return model.Place{}, err
	}

	p, err := normalizePlace(p)
	if err != nil {
		return model.Place{}, err
	}
	if err := s.store.AddPlace(ctx, p); err != nil {
		return model.Place{}, translate("add place", p.Key, err)
	}
	return p, nil
}

func normalizePlace(p model.Place) (model.Place, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Key = strings.TrimSpace(p.Key)
	if p.Key == "" {
		if p.Name == "" {
			return model.Place{}, fmt.Errorf("%w: place needs a key or a name", ErrInvalidInput)
		}
		p.Key = model.PlaceKey(p.Name, p.Lat, p.Lng)
	}
	p.Tags = lo.Uniq(lo.Compact(lo.Map(p.Tags, func(t string, _ int) string {
		return strings.TrimSpace(t)
	})))
	return p, nil
}

// Enqueue validates an event and submits it for asynchronous ingestion.
// It reports duplicate=true, without error, for an event ID seen before.
func (s *Service) Enqueue(ctx context.Context, e model.Event) (duplicate bool, err error) { //nolint:gocritic // hugeParam: Event is copied onto the queue anyway
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return false, err
	}

	e, err = s.prepareEvent(ctx, e)
	if err != nil {
		metrics.RecordEventRejected("invalid")
		return false, err
	}

	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping", logger.String("eventID", e.ID))
		return true, nil
	}

	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.ID)
		metrics.RecordEventRejected("backpressure")
		return false, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
	return false, nil
}

// prepareEvent normalizes keys, fills the timestamp and ID, and checks the rosters.
func (s *Service) prepareEvent(ctx context.Context, e model.Event) (model.Event, error) { //nolint:gocritic // hugeParam
	if !e.Type.Valid() {
		return e, fmt.Errorf("%w: %w", ErrInvalidInput, model.ErrUnknownEventType)
	}
	e.UserKey = model.NormalizeUserKey(e.UserKey)
	e.PlaceKey = strings.TrimSpace(e.PlaceKey)
	if e.UserKey == "" || e.PlaceKey == "" {
		return e, fmt.Errorf("%w: user_key and place_key are required", ErrInvalidInput)
	}
	if e.TS.IsZero() {
		e.TS = s.now()
	}
	e.TS = e.TS.UTC()
	if e.ID == "" {
		e.ID = model.DeriveEventID(e)
	}

	ok, err := s.store.HasUser(ctx, e.UserKey)
	if err != nil {
		return e, fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return e, fmt.Errorf("%w: %s", ErrUnknownUser, e.UserKey)
	}
	ok, err = s.store.HasPlace(ctx, e.PlaceKey)
	if err != nil {
		return e, fmt.Errorf("lookup place: %w", err)
	}
	if !ok {
		return e, fmt.Errorf("%w: %s", ErrUnknownPlace, e.PlaceKey)
	}
	return e, nil
}

// Seed loads rosters and historical events synchronously. Entries that already
// exist are skipped so restarts against a persistent store are harmless.
func (s *Service) Seed(ctx context.Context, users []model.User, places []model.Place, events []model.Event) (added int, err error) {
	for _, u := range users {
		if _, err := s.AddUser(ctx, u.Key); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return added, err
		}
		added++
	}
	for _, p := range places {
		if _, err := s.AddPlace(ctx, p); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return added, err
		}
		added++
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return added, err
	}
	for _, e := range events {
		e, err := s.prepareEvent(ctx, e)
		if err != nil {
			return added, err
		}
		if err := s.store.Append(ctx, e); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return added, translate("seed event", e.ID, err)
		}
		s.deduper.SeenAndRecord(ctx, e.ID)
		added++
	}
	return added, nil
}

// Ranking returns the first limit entries of the IL ranking. A non-positive
// limit returns the whole ranking.
func (s *Service) Ranking(ctx context.Context, limit int) ([]types.RankedPlace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return nil, err
	}

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	entries := s.rankingFor(snap)
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return lo.Map(entries, func(e ranking.Entry, _ int) types.RankedPlace {
		return types.RankedPlace{Rank: e.Rank, PlaceKey: e.PlaceKey, ISF: e.ISF, ISP: e.ISP}
	}), nil
}

// Recommend returns up to n unvisited places for a user. A non-positive n uses
// the configured recommendation size.
func (s *Service) Recommend(ctx context.Context, userKey string, n int) (types.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return types.Recommendation{}, err
	}

	userKey = model.NormalizeUserKey(userKey)
	snap, err := s.snapshotWithUser(ctx, userKey)
	if err != nil {
		return types.Recommendation{}, err
	}

	start := time.Now()
	res := s.orchestrator.Recommend(snap, userKey, n)
	metrics.RecordComputation("profile", float64(time.Since(start).Microseconds())/1000)
	metrics.RecordRecommendation(string(res.Strategy))

	return types.Recommendation{
		UserKey:   res.UserKey,
		PlaceKeys: res.PlaceKeys,
		Strategy:  string(res.Strategy),
	}, nil
}

// Similar returns up to n places similar to placeKey. When userKey is set,
// places the user has visited are skipped.
func (s *Service) Similar(ctx context.Context, placeKey, userKey string, n int) ([]types.SimilarPlace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return nil, err
	}

	userKey = model.NormalizeUserKey(userKey)
	snap, err := s.snapshotWithUser(ctx, userKey)
	if err != nil {
		return nil, err
	}
	if !lo.ContainsBy(snap.Places, func(p model.Place) bool { return p.Key == placeKey }) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlace, placeKey)
	}
	if n <= 0 {
		n = s.similarSize
	}

	start := time.Now()
	matches := s.orchestrator.SimilarPlaces(snap, placeKey, userKey, n)
	metrics.RecordComputation("similar", float64(time.Since(start).Microseconds())/1000)

	out := make([]types.SimilarPlace, len(matches))
	for i, m := range matches {
		out[i] = types.SimilarPlace{PlaceKey: m.PlaceKey, Similarity: m.Score}
	}
	return out, nil
}

// snapshotWithUser takes a snapshot and checks userKey against it. An empty
// userKey skips the check.
func (s *Service) snapshotWithUser(ctx context.Context, userKey string) (model.Snapshot, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	if userKey != "" && !lo.ContainsBy(snap.Users, func(u model.User) bool { return u.Key == userKey }) {
		return model.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownUser, userKey)
	}
	return snap, nil
}

// rankingFor returns the IL ranking of snap, computing it at most once per
// repository version while the cache entry lives.
func (s *Service) rankingFor(snap model.Snapshot) []ranking.Entry {
	if item := s.rankings.Get(snap.Version); item != nil {
		metrics.RecordCacheHit()
		return item.Value()
	}
	metrics.RecordCacheMiss()

	v, _, _ := s.flight.Do(strconv.FormatUint(snap.Version, 10), func() (any, error) {
		start := time.Now()
		entries := ranking.IL(snap.Users, snap.Places, snap.Events)
		metrics.RecordComputation("il", float64(time.Since(start).Microseconds())/1000)
		s.rankings.Set(snap.Version, entries, ttlcache.DefaultTTL)
		return entries, nil
	})
	return v.([]ranking.Entry) //nolint:forcetypeassert // the flight function only returns []ranking.Entry
}

func (s *Service) rankedKeys(snap model.Snapshot) []string {
	return ranking.Keys(s.rankingFor(snap))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":            s.started,
		"workerCount":        s.workerCount,
		"queueSize":          s.queueSize,
		"dedupeSize":         s.dedupeSize,
		"recommendationSize": s.recommendationSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.eventQueue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["dedupeEntries"] = s.deduper.Size()
	stats["cachedRankings"] = s.rankings.Len()

	if counts, err := s.store.Counts(ctx); err == nil {
		stats["users"] = counts.Users
		stats["places"] = counts.Places
		stats["events"] = counts.Events
		metrics.UpdateRosterSizes(counts.Users, counts.Places, counts.Events)
	} else {
		s.logger.Warn(ctx, "store counts failed", logger.Error(err))
	}
	if v, err := s.store.Version(ctx); err == nil {
		stats["version"] = v
	}
	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.workerPool.Size())
	return stats
}

// translate maps repository errors onto service sentinels.
func translate(op, key string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%s %s: %w", op, key, ErrAlreadyExists)
	case errors.Is(err, repository.ErrUnknownUser):
		return fmt.Errorf("%s %s: %w", op, key, ErrUnknownUser)
	case errors.Is(err, repository.ErrUnknownPlace):
		return fmt.Errorf("%s %s: %w", op, key, ErrUnknownPlace)
	case errors.Is(err, repository.ErrMissingKey):
		return fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
