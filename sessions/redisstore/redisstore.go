// Package redisstore keeps sessions in Redis.
//
// Each session is a hash at <prefix>session:<id>. A sorted set at
// <prefix>user:<userID> indexes a user's sessions by creation time. Create
// writes both in one MULTI; Invalidate is a Lua script so the validity check
// and the write are a single step on the server.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/redis/go-redis/v9"
)

var _ sessions.Store = (*Store)(nil)

// Config for the Redis-backed Store.
type Config struct {
	// Addr like "localhost:6379"
	Addr string
	// KeyPrefix for all keys
	KeyPrefix string
}

type Store struct {
	client    *redis.Client
	keyPrefix string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "auth:sessions:"
	}
	return &Store{client: cl, keyPrefix: prefix}, nil
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) sessionKey(id string) string  { return s.keyPrefix + "session:" + id }
func (s *Store) userKey(userID string) string { return s.keyPrefix + "user:" + userID }

const (
	fieldUser    = "user"
	fieldAgent   = "userAgent"
	fieldValid   = "valid"
	fieldCreated = "createdAt"
	fieldUpdated = "updatedAt"
)

func (s *Store) Create(ctx context.Context, userID, userAgent string) (*sessions.Session, error) {
	now := time.Now().UTC()
	sess := &sessions.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserAgent: userAgent,
		Valid:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stamp := strconv.FormatInt(now.UnixNano(), 10)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.sessionKey(sess.ID),
			fieldUser, userID,
			fieldAgent, userAgent,
			fieldValid, "1",
			fieldCreated, stamp,
			fieldUpdated, stamp,
		)
		pipe.ZAdd(ctx, s.userKey(userID), redis.Z{Score: float64(now.UnixNano()), Member: sess.ID})
		return nil
	})
	if err != nil {
		return nil, unavailable("create", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, unavailable("get", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	sess, err := decode(sessionID, fields)
	if err != nil {
		return nil, unavailable("get", err)
	}
	return sess, nil
}

var invalidateScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  return -1
end
if redis.call('HGET', key, 'valid') == '1' then
  redis.call('HSET', key, 'valid', '0', 'updatedAt', ARGV[1])
  return 1
end
return 0
`)

func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	stamp := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	res, err := invalidateScript.Run(ctx, s.client, []string{s.sessionKey(sessionID)}, stamp).Int()
	if err != nil {
		return unavailable("invalidate", err)
	}
	if res < 0 {
		return fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	ids, err := s.client.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, unavailable("list", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.sessionKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list", err)
	}

	list := make([]*sessions.Session, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		sess, err := decode(ids[i], fields)
		if err != nil {
			return nil, unavailable("list", err)
		}
		if sess.Valid {
			list = append(list, sess)
		}
	}
	return list, nil
}

func decode(id string, fields map[string]string) (*sessions.Session, error) {
	created, err := strconv.ParseInt(fields[fieldCreated], 10, 64)
	if err != nil {
		return nil, errors.New("corrupt createdAt")
	}
	updated, err := strconv.ParseInt(fields[fieldUpdated], 10, 64)
	if err != nil {
		return nil, errors.New("corrupt updatedAt")
	}
	return &sessions.Session{
		ID:        id,
		UserID:    fields[fieldUser],
		UserAgent: fields[fieldAgent],
		Valid:     fields[fieldValid] == "1",
		CreatedAt: time.Unix(0, created).UTC(),
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: session %s: %v", errs.ErrStorageUnavailable, op, err)
}
