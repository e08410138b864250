package dht

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tensorplex-labs/swarmwatch/internal/utils/redis"
)

// RedisStore reads DHT entries from a Redis mirror, where each DHT key is
// stored as the JSON form of Entry under prefix+key.
type RedisStore struct {
	redis  redis.RedisInterface
	prefix string
	now    func() time.Time
}

func NewRedisStore(r redis.RedisInterface, prefix string) (*RedisStore, error) {
	if r == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  r,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Get ignores beamSize and latest: the mirror already holds the freshest
// value the writer saw. Expired records are dropped.
func (s *RedisStore) Get(ctx context.Context, key string, _ int, _ bool) (Entry, error) {
	raw, err := s.redis.Get(ctx, s.prefix+key)
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w: %w", key, ErrUnavailable, err)
	}
	if raw == "" {
		return Entry{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}

	var entry Entry
	if err := sonic.UnmarshalString(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode mirrored entry for %s: %w", key, err)
	}

	now := float64(s.now().Unix())
	if entry.HasSubkeys() {
		live := make(map[string]Record, len(entry.Subkeys))
		for subkey, rec := range entry.Subkeys {
			if rec.ExpirationTime > 0 && rec.ExpirationTime < now {
				continue
			}
			live[subkey] = rec
		}
		if len(live) == 0 {
			return Entry{}, fmt.Errorf("get %s: all subkeys expired: %w", key, ErrNotFound)
		}
		entry.Subkeys = live
	} else if entry.ExpirationTime > 0 && entry.ExpirationTime < now {
		return Entry{}, fmt.Errorf("get %s: value expired: %w", key, ErrNotFound)
	}

	entry.Found = true
	return entry, nil
}
