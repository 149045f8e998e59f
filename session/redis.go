//go:build redis
// +build redis

package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis HASH/LIST primitives.
type RedisStore struct {
	rdb *redis.Client
	ns  string
}

type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	Namespace string
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
	return &RedisStore{rdb: rdb, ns: cfg.Namespace}, nil
}

func (s *RedisStore) keyRecord(id string) string { return fmt.Sprintf("%s:session:%s", s.ns, id) }
func (s *RedisStore) keyLog(id string) string    { return fmt.Sprintf("%s:transitions:%s", s.ns, id) }

func (s *RedisStore) SaveRecord(ctx context.Context, rec *Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.keyRecord(rec.SessionID), "record", string(b)).Err()
}

func (s *RedisStore) GetRecord(ctx context.Context, sessionID string) (*Record, error) {
	v, err := s.rdb.HGet(ctx, s.keyRecord(sessionID), "record").Result()
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) AppendTransition(ctx context.Context, tr *Transition) error {
	n, err := s.rdb.LLen(ctx, s.keyLog(tr.SessionID)).Result()
	if err != nil {
		return err
	}
	tr.Seq = n + 1
	b, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, s.keyLog(tr.SessionID), string(b)).Err()
}

func (s *RedisStore) Transitions(ctx context.Context, sessionID string) ([]*Transition, error) {
	vals, err := s.rdb.LRange(ctx, s.keyLog(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Transition, 0, len(vals))
	for _, v := range vals {
		var tr Transition
		if err := json.Unmarshal([]byte(v), &tr); err == nil {
			out = append(out, &tr)
		}
	}
	return out, nil
}

func (s *RedisStore) TransitionsSince(ctx context.Context, sessionID string, since int64) ([]*Transition, error) {
	// Simplified: return all and filter client-side
	all, err := s.Transitions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*Transition, 0, len(all))
	for _, tr := range all {
		if tr.Seq > since {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *RedisStore) ListRecords(ctx context.Context, status Status) ([]*Record, error) {
	// Simplified: requires index; omitted for now. Return empty without error.
	return []*Record{}, nil
}

func (s *RedisStore) DeleteRecord(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.keyRecord(sessionID)).Err(); err != nil {
		return err
	}
	return s.rdb.Del(ctx, s.keyLog(sessionID)).Err()
}
