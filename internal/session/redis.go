package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"part-request-portal-api-server/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keyPrefix = "part-requests:session:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps sessions as JSON values with a fixed TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logger.Info("Redis session store initialized", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return newRedisStore(rdb, ttl, logger), nil
}

func newRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisStore) Create(ctx context.Context, id models.Identity) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Identity:  id,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.put(ctx, sess, s.ttl); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Session, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		return Session{}, ErrNotFound
	}
	if err != nil {
		s.logger.Warn("Redis Get error", zap.String("session_id", sessionID), zap.Error(err))
		return Session{}, fmt.Errorf("redis get error: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// PinScope rewrites the record under WATCH so concurrent pins cannot both win.
func (s *RedisStore) PinScope(ctx context.Context, sessionID, registrationNumber string) (Session, error) {
	var out Session
	k := key(sessionID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		out = pin(sess, registrationNumber)
		if out.Identity == sess.Identity {
			return nil
		}
		ttl, err := tx.TTL(ctx, k).Result()
		if err != nil {
			return err
		}
		if ttl < 0 {
			ttl = s.ttl
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, ttl)
			return nil
		})
		return err
	}, k)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Warn("Redis PinScope error", zap.String("session_id", sessionID), zap.Error(err))
		}
		return Session{}, err
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		s.logger.Warn("Redis Delete error", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) put(ctx context.Context, sess Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.ID), payload, ttl).Err(); err != nil {
		s.logger.Warn("Redis Set error", zap.String("session_id", sess.ID), zap.Error(err))
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}
