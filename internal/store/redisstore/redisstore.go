package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/ai-assistant/internal/session"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func sessionKey(id string) string {
	return "session:" + id
}

// Save stores the session with a fixed TTL; reads never extend it.
func (s *Store) Save(ctx context.Context, id string, userID uint64, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKey(id), strconv.FormatUint(userID, 10), ttl).Err()
}

func (s *Store) Load(ctx context.Context, id string) (uint64, error) {
	v, err := s.rdb.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, session.ErrNotFound
		}
		return 0, err
	}
	uid, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		// unreadable entries are treated as logged out
		_ = s.rdb.Del(ctx, sessionKey(id)).Err()
		return 0, session.ErrNotFound
	}
	return uid, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

var _ session.Store = (*Store)(nil)
