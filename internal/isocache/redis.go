package isocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
)

// RedisStore shares descriptors across instances serving one map
// session. Keys are namespaced by session id so Clear never touches
// another session's entries. Values carry no TTL; the cache contract
// only evicts via Clear.
type RedisStore struct {
	rdb     *redis.Client
	session string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(ctx context.Context, addr, session string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if session == "" {
		return nil, errors.New("session id is required")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, session: session}, nil
}

func (s *RedisStore) key(k string) string { return "iso:" + s.session + ":" + k }
func (s *RedisStore) indexKey() string    { return "iso:" + s.session + ":index" }

func (s *RedisStore) Get(ctx context.Context, key string) (model.ResultDescriptor, bool, error) {
	var desc model.ResultDescriptor
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return desc, false, nil
	}
	if err != nil {
		return desc, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	if err := json.Unmarshal(b, &desc); err != nil {
		return desc, false, fmt.Errorf("decode descriptor %q: %w", key, err)
	}
	return desc, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, desc model.ResultDescriptor) error {
	b, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode descriptor %q: %w", key, err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(key), b, 0)
	pipe.SAdd(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Entries(ctx context.Context) ([]model.ResultDescriptor, error) {
	keys, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	vals, err := s.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget %d keys: %w", len(full), err)
	}
	out := make([]model.ResultDescriptor, 0, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var desc model.ResultDescriptor
		if err := json.Unmarshal([]byte(str), &desc); err != nil {
			return nil, fmt.Errorf("decode descriptor %q: %w", keys[i], err)
		}
		out = append(out, desc)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("redis index: %w", err)
	}
	del := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		del = append(del, s.key(k))
	}
	del = append(del, s.indexKey())
	if err := s.rdb.Del(ctx, del...).Err(); err != nil {
		return fmt.Errorf("redis del %d keys: %w", len(del), err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
