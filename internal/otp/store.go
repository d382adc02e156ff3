// Package otp keeps one-time login codes in Redis.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result of consuming a code.
type Result int

const (
	// Missing means no live code exists for the email (expired or never issued).
	Missing Result = iota
	// Mismatch means a live code exists but differs from the one supplied. It stays live.
	Mismatch
	// Consumed means the code matched and has been deleted.
	Consumed
)

// consumeScript compares and deletes in one step so a code can be redeemed once.
// Returns -1 when the key is absent, 0 on mismatch, 1 when deleted.
var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
  return -1
end
if stored == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// RedisStore stores at most one code per email; Put overwrites.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *RedisStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	return s.client.Set(ctx, key(email), code, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, email, code string) (Result, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{key(email)}, code).Int()
	if err != nil {
		return Missing, fmt.Errorf("consume otp: %w", err)
	}
	switch n {
	case 1:
		return Consumed, nil
	case 0:
		return Mismatch, nil
	default:
		return Missing, nil
	}
}

// Generate returns a uniformly random six digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
