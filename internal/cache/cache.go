// Package cache is the read-through layer in front of event and ticket queries.
// It is a best-effort accelerator: entries expire after their TTL and are never
// invalidated explicitly, so readers may see data up to one TTL old.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Cache is a TTL key/value store. A miss is reported by ok == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const AllEventsKey = "events:all"

func EventKey(id int64) string { return "event:" + strconv.FormatInt(id, 10) }

func UserTicketsKey(userID int64) string { return "ticket:all:" + strconv.FormatInt(userID, 10) }

func TicketKey(id int64) string { return "ticket:" + strconv.FormatInt(id, 10) }

// ReadThrough returns the cached value for key when present. On a miss it calls load,
// stores the result for ttl and returns it with hit == false. Cache failures are logged
// and treated as misses; only load errors are returned.
func ReadThrough[T any](ctx context.Context, c Cache, logger *zap.SugaredLogger, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.Warnw("cache get failed", "key", key, "err", err)
	}
	if ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			logger.Debugw("cache hit", "key", key)
			return out, true, nil
		}
		logger.Warnw("cache entry undecodable", "key", key)
	}

	logger.Debugw("cache miss", "key", key)
	out, err := load(ctx)
	if err != nil {
		return out, false, err
	}
	if raw, err := json.Marshal(out); err != nil {
		logger.Warnw("cache encode failed", "key", key, "err", err)
	} else if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warnw("cache set failed", "key", key, "err", err)
	}
	return out, false, nil
}
