package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const quotaKeyPrefix = "quota:links:"

// ErrQuotaCounterMissing signals that the usage counter for the period
// is absent, typically after a cache flush. The caller must reseed it
// from the store of record before reserving.
var ErrQuotaCounterMissing = errors.New("quota counter missing")

// QuotaResult contains the outcome of a quota reservation.
type QuotaResult struct {
	Allowed   bool
	Used      int64
	Remaining int64
}

// quotaReserveScript atomically increments the per-period usage counter
// unless doing so would exceed the ceiling. Check and increment happen
// in one round trip, so concurrent creations cannot both claim the
// last slot. An absent counter is reported, never invented: Redis may
// be flushed at any time, and restarting usage at zero mid-period
// would hand out creations past the ceiling.
var quotaReserveScript = redis.NewScript(`
	local key = KEYS[1]
	local ceiling = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if not current then
		return {-1, 0}
	end

	local used = tonumber(current)
	if used >= ceiling then
		return {0, used}
	end

	used = redis.call('INCR', key)
	if tonumber(redis.call('TTL', key)) < 0 then
		redis.call('EXPIRE', key, ttl)
	end

	return {1, used}
`)

// ReserveQuotaSlot claims one creation slot for the owner in the given
// billing period. ceiling <= 0 means unlimited. ttl bounds how long the
// counter outlives its period. Returns ErrQuotaCounterMissing when the
// counter does not exist yet; see SeedQuotaCounter.
func (c *Cache) ReserveQuotaSlot(ctx context.Context, ownerID string, periodKey string, ceiling int64, ttl time.Duration) (*QuotaResult, error) {
	if ceiling <= 0 {
		return &QuotaResult{Allowed: true, Remaining: -1}, nil
	}

	key := quotaKey(ownerID, periodKey)

	result, err := quotaReserveScript.Run(ctx, c.client,
		[]string{key},
		ceiling, int(ttl.Seconds()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("quota reserve script: %w", err)
	}

	if result[0] == -1 {
		return nil, ErrQuotaCounterMissing
	}

	allowed := result[0] == 1
	used := result[1]

	remaining := ceiling - used
	if remaining < 0 {
		remaining = 0
	}

	return &QuotaResult{Allowed: allowed, Used: used, Remaining: remaining}, nil
}

// SeedQuotaCounter installs the period usage counter from the durable
// count of links created this period. SET NX keeps a concurrent
// reservation's increments intact: whoever seeds first wins, everyone
// else reserves against that counter.
func (c *Cache) SeedQuotaCounter(ctx context.Context, ownerID string, periodKey string, used int64, ttl time.Duration) error {
	key := quotaKey(ownerID, periodKey)

	if err := c.client.SetNX(ctx, key, used, ttl).Err(); err != nil {
		return fmt.Errorf("seed quota counter: %w", err)
	}
	return nil
}

// quotaReleaseScript guards against decrementing below zero if the key
// expired between reserve and release.
var quotaReleaseScript = redis.NewScript(`
	local used = tonumber(redis.call('GET', KEYS[1]) or '0')
	if used > 0 then
		redis.call('DECR', KEYS[1])
	end
	return 0
`)

// ReleaseQuotaSlot returns a slot claimed by a creation that later
// failed, so aborted requests do not burn quota.
func (c *Cache) ReleaseQuotaSlot(ctx context.Context, ownerID string, periodKey string) error {
	key := quotaKey(ownerID, periodKey)

	if err := quotaReleaseScript.Run(ctx, c.client, []string{key}).Err(); err != nil {
		return fmt.Errorf("quota release script: %w", err)
	}
	return nil
}

func quotaKey(ownerID, periodKey string) string {
	return quotaKeyPrefix + ownerID + ":" + periodKey
}
