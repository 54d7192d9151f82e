package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementLua bumps a fixed-window counter and arms its expiry in one round
// trip. A counter found without a TTL is re-armed so it cannot pin a phone
// forever.
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
var incrementLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// Config holds the OTP send throttle parameters.
type Config struct {
	MaxSends int
	Window   time.Duration
	Prefix   string
}

// Limiter caps how many OTPs a phone number can request per fixed window.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a send [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "sa:otp_send"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// AllowSend counts one send for phone and returns [ErrRateLimited] once the
// window budget is exhausted. The counter is incremented before the check,
// so rejected requests still consume budget.
func (l *Limiter) AllowSend(ctx context.Context, phone string) error {
	count, err := l.incrementWithTTL(ctx, l.key(phone), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSends) {
		return ErrRateLimited
	}
	return nil
}

// sends returns the number of sends recorded for phone in the current window.
func (l *Limiter) sends(ctx context.Context, phone string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(phone)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the counter for phone. The engine calls it once a code sent
// to phone has been verified.
func (l *Limiter) Reset(ctx context.Context, phone string) error {
	if err := l.redis.Del(ctx, l.key(phone)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(phone string) string {
	return l.config.Prefix + ":" + phone
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrementLua.Run(ctx, l.redis, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}
