package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sess:"

// RedisSessionStore keeps session records in Redis with a TTL matching the
// session expiry, so abandoned sessions age out without a reaper.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSessionStore wraps an existing Redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (r *RedisSessionStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrInvalidInput
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, sessionKey(sess.ID), raw, ttl).Err(); err != nil {
		return ErrUnavailable
	}
	return nil
}

func (r *RedisSessionStore) Find(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrUnavailable
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, ErrUnavailable
	}
	return &sess, nil
}

func (r *RedisSessionStore) MarkStepUpVerified(ctx context.Context, id string) error {
	sess, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	sess.StepUpVerified = true
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionNotFound
	}
	if err := r.client.Set(ctx, sessionKey(id), raw, ttl).Err(); err != nil {
		return ErrUnavailable
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return ErrUnavailable
	}
	return nil
}
