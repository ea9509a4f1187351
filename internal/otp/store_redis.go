package otp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix = "otp:challenge:"
	attemptsKeyPrefix  = "otp:attempts:"
)

// RedisChallengeStore keeps live challenges in Redis. The record TTL matches
// the code expiry, and attempt counters live under a separate key so an INCR
// stays atomic across instances.
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore wraps an existing Redis client.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func challengeKey(identityID string) string { return challengeKeyPrefix + identityID }
func attemptsKey(identityID string) string  { return attemptsKeyPrefix + identityID }

func (r *RedisChallengeStore) Put(ctx context.Context, ch *Challenge) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, challengeKey(ch.IdentityID), raw, ttl)
	pipe.Del(ctx, attemptsKey(ch.IdentityID))
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrUnavailable
	}
	return nil
}

func (r *RedisChallengeStore) Find(ctx context.Context, identityID string) (*Challenge, error) {
	raw, err := r.client.Get(ctx, challengeKey(identityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, ErrUnavailable
	}
	var ch Challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, ErrUnavailable
	}
	attempts, err := r.client.Get(ctx, attemptsKey(identityID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, ErrUnavailable
	}
	ch.Attempts = attempts
	return &ch, nil
}

func (r *RedisChallengeStore) RecordFailure(ctx context.Context, identityID string) (int, error) {
	exists, err := r.client.Exists(ctx, challengeKey(identityID)).Result()
	if err != nil {
		return 0, ErrUnavailable
	}
	if exists == 0 {
		return 0, ErrNoActiveCode
	}
	count, err := r.client.Incr(ctx, attemptsKey(identityID)).Result()
	if err != nil {
		return 0, ErrUnavailable
	}
	// Counter must not outlive the challenge it guards.
	if ttl, err := r.client.TTL(ctx, challengeKey(identityID)).Result(); err == nil && ttl > 0 {
		r.client.Expire(ctx, attemptsKey(identityID), ttl)
	}
	return int(count), nil
}

func (r *RedisChallengeStore) Delete(ctx context.Context, identityID string) error {
	if err := r.client.Del(ctx, challengeKey(identityID), attemptsKey(identityID)).Err(); err != nil {
		return ErrUnavailable
	}
	return nil
}
