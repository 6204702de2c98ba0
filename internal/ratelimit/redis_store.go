package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when the store lock could not be taken before
// the context or the lock wait expired.
var ErrLockTimeout = errors.New("rate limit store lock timeout")

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps each key as a Redis list of timestamps so several hosts
// can share one budget. A SET NX lock with a token spans each Update.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	lockTTL   time.Duration
	lockWait  time.Duration
}

// RedisStoreOptions tune a RedisStore.
type RedisStoreOptions struct {
	Prefix    string
	Retention time.Duration
	LockTTL   time.Duration
	LockWait  time.Duration
}

// NewRedisStore wraps an existing client. The client is owned by the caller.
func NewRedisStore(client redis.UniversalClient, opts RedisStoreOptions) *RedisStore {
	if opts.Prefix == "" {
		opts.Prefix = "portfolio:ratelimit:"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Second
	}
	if opts.LockWait <= 0 {
		opts.LockWait = time.Second
	}

	return &RedisStore{
		client:    client,
		prefix:    opts.Prefix,
		retention: opts.Retention,
		lockTTL:   opts.LockTTL,
		lockWait:  opts.LockWait,
	}
}

func (s *RedisStore) Update(ctx context.Context, fn func(Records) error) error {
	token := uuid.NewString()
	lockKey := s.prefix + "lock"

	if err := s.acquire(ctx, lockKey, token); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lockTTL)
		defer cancel()
		_ = releaseLock.Run(releaseCtx, s.client, []string{lockKey}, token).Err()
	}()

	records := &redisRecords{ctx: ctx, store: s, pending: map[string][]int64{}}
	if err := fn(records); err != nil {
		return err
	}
	if records.err != nil {
		return records.err
	}

	return s.flush(ctx, records.pending)
}

func (s *RedisStore) acquire(ctx context.Context, lockKey, token string) error {
	deadline := time.Now().Add(s.lockWait)
	backoff := 5 * time.Millisecond

	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, s.lockTTL).Result()
		if err != nil {
			return errors.Wrap(err, "failed to acquire rate limit lock")
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ErrLockTimeout, ctx.Err().Error())
		case <-time.After(backoff):
		}
		if backoff < 50*time.Millisecond {
			backoff *= 2
		}
	}
}

func (s *RedisStore) flush(ctx context.Context, pending map[string][]int64) error {
	if len(pending) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, timestamps := range pending {
			redisKey := s.prefix + key
			pipe.Del(ctx, redisKey)
			if len(timestamps) == 0 {
				continue
			}

			values := make([]any, len(timestamps))
			for i, ts := range timestamps {
				values[i] = ts
			}
			pipe.RPush(ctx, redisKey, values...)
			if s.retention > 0 {
				pipe.Expire(ctx, redisKey, s.retention)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to persist rate limit records")
	}
	return nil
}

func (s *RedisStore) Close() error { return nil }

type redisRecords struct {
	ctx     context.Context
	store   *RedisStore
	pending map[string][]int64
	err     error
}

func (r *redisRecords) Get(key string) []int64 {
	if ts, ok := r.pending[key]; ok {
		return append([]int64(nil), ts...)
	}

	values, err := r.store.client.LRange(r.ctx, r.store.prefix+key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.err = errors.Wrap(err, "failed to read rate limit records")
		return nil
	}

	timestamps := make([]int64, 0, len(values))
	for _, v := range values {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps
}

func (r *redisRecords) Set(key string, timestamps []int64) {
	r.pending[key] = append([]int64(nil), timestamps...)
}
