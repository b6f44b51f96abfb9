package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/placerank/internal/domain/model"
)

// Key layout under prefix:
//
//	<prefix>:users        list of user JSON in insertion order
//	<prefix>:users:idx    hash user key -> 1
//	<prefix>:places       list of place JSON
//	<prefix>:places:idx   hash place key -> 1
//	<prefix>:events       list of event JSON (the append-only log)
//	<prefix>:events:idx   hash event id -> 1
//	<prefix>:version      write counter
const (
	keyUsers     = "users"
	keyPlaces    = "places"
	keyEvents    = "events"
	keyIdxSuffix = ":idx"
	keyVersion   = "version"
)

// addUniqueScript pushes ARGV[2] onto KEYS[2] unless ARGV[1] is already in KEYS[1].
var addUniqueScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], '1') == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[2])
redis.call('INCR', KEYS[3])
return 1
`)

// appendEventScript is addUniqueScript plus roster membership checks.
var appendEventScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  return 0
end
if redis.call('HEXISTS', KEYS[4], ARGV[3]) == 0 then
  return -1
end
if redis.call('HEXISTS', KEYS[5], ARGV[4]) == 0 then
  return -2
end
redis.call('HSET', KEYS[1], ARGV[1], '1')
redis.call('RPUSH', KEYS[2], ARGV[2])
redis.call('INCR', KEYS[3])
return 1
`)

// RedisStore is a Store backed by redis lists and hashes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. The store owns the client and closes it on Close.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "placerank"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) addUnique(ctx context.Context, list, id string, payload []byte) error {
	keys := []string{s.key(list + keyIdxSuffix), s.key(list), s.key(keyVersion)}
	added, err := addUniqueScript.Run(ctx, s.client, keys, id, payload).Int()
	if err != nil {
		return fmt.Errorf("redis add %s: %w", list, err)
	}
	if added == 0 {
		return ErrDuplicate
	}
	return nil
}

// AddUser implements Store.AddUser.
func (s *RedisStore) AddUser(ctx context.Context, u model.User) error {
	if u.Key == "" {
		return ErrMissingKey
	}
	payload, err := encodeUser(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.addUnique(ctx, keyUsers, u.Key, payload)
}

// AddPlace implements Store.AddPlace.
func (s *RedisStore) AddPlace(ctx context.Context, p model.Place) error {
	if p.Key == "" {
		return ErrMissingKey
	}
	payload, err := encodePlace(p)
	if err != nil {
		return fmt.Errorf("encode place: %w", err)
	}
	return s.addUnique(ctx, keyPlaces, p.Key, payload)
}

// Append implements Store.Append.
func (s *RedisStore) Append(ctx context.Context, e model.Event) error {
	if err := checkEvent(e); err != nil {
		return err
	}
	payload, err := encodeEvent(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	keys := []string{
		s.key(keyEvents + keyIdxSuffix), s.key(keyEvents), s.key(keyVersion),
		s.key(keyUsers + keyIdxSuffix), s.key(keyPlaces + keyIdxSuffix),
	}
	code, err := appendEventScript.Run(ctx, s.client, keys, e.ID, payload, e.UserKey, e.PlaceKey).Int()
	if err != nil {
		return fmt.Errorf("redis append event: %w", err)
	}
	switch code {
	case 0:
		return ErrDuplicate
	case -1:
		return ErrUnknownUser
	case -2:
		return ErrUnknownPlace
	}
	return nil
}

// HasUser implements Store.HasUser.
func (s *RedisStore) HasUser(ctx context.Context, key string) (bool, error) {
	return s.has(ctx, keyUsers, key)
}

// HasPlace implements Store.HasPlace.
func (s *RedisStore) HasPlace(ctx context.Context, key string) (bool, error) {
	return s.has(ctx, keyPlaces, key)
}

func (s *RedisStore) has(ctx context.Context, list, key string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.key(list+keyIdxSuffix), key).Result()
	if err != nil {
		return false, fmt.Errorf("redis has %s: %w", list, err)
	}
	return ok, nil
}

// Snapshot implements Store.Snapshot. All reads run in one MULTI block.
func (s *RedisStore) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var (
		version *redis.StringCmd
		users   *redis.StringSliceCmd
		places  *redis.StringSliceCmd
		events  *redis.StringSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		version = pipe.Get(ctx, s.key(keyVersion))
		users = pipe.LRange(ctx, s.key(keyUsers), 0, -1)
		places = pipe.LRange(ctx, s.key(keyPlaces), 0, -1)
		events = pipe.LRange(ctx, s.key(keyEvents), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.Snapshot{}, fmt.Errorf("redis snapshot: %w", err)
	}

	var snap model.Snapshot
	if snap.Version, err = versionOf(version); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Users, err = decodeUsers(users.Val()); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Places, err = decodePlaces(places.Val()); err != nil {
		return model.Snapshot{}, err
	}
	if snap.Events, err = decodeEvents(events.Val()); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Version implements Store.Version.
func (s *RedisStore) Version(ctx context.Context) (uint64, error) {
	return versionOf(s.client.Get(ctx, s.key(keyVersion)))
}

func versionOf(cmd *redis.StringCmd) (uint64, error) {
	v, err := cmd.Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis version: %w", err)
	}
	return v, nil
}

// Counts implements Store.Counts.
func (s *RedisStore) Counts(ctx context.Context) (Counts, error) {
	var users, places, events *redis.IntCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		users = pipe.LLen(ctx, s.key(keyUsers))
		places = pipe.LLen(ctx, s.key(keyPlaces))
		events = pipe.LLen(ctx, s.key(keyEvents))
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("redis counts: %w", err)
	}
	return Counts{
		Users:  int(users.Val()),
		Places: int(places.Val()),
		Events: int(events.Val()),
	}, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
