package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyOTPCode     = "otp:code:%s"
	keyOTPAttempts = "otp:attempts:%s"
	keyOTPSends    = "otp:sends:%s"
)

// OTPStore keeps hashed codes and counters in Redis so limits hold across
// instances.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// CountSend increments the send counter for email, starting a new window on
// the first send.
func (s *OTPStore) CountSend(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := fmt.Sprintf(keyOTPSends, email)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// SaveCode stores the hash and resets the attempt counter.
func (s *OTPStore) SaveCode(ctx context.Context, email, hash string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(keyOTPCode, email), hash, ttl)
		pipe.Del(ctx, fmt.Sprintf(keyOTPAttempts, email))
		return nil
	})
	return err
}

// CodeHash returns the stored hash; ok is false when none is live.
func (s *OTPStore) CodeHash(ctx context.Context, email string) (hash string, ok bool, err error) {
	hash, err = s.client.Get(ctx, fmt.Sprintf(keyOTPCode, email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

func (s *OTPStore) CountAttempt(ctx context.Context, email string, ttl time.Duration) (int64, error) {
	key := fmt.Sprintf(keyOTPAttempts, email)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (s *OTPStore) Clear(ctx context.Context, email string) error {
	return s.client.Del(ctx, fmt.Sprintf(keyOTPCode, email), fmt.Sprintf(keyOTPAttempts, email)).Err()
}
