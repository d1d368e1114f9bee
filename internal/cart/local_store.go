package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/redis"
)

const localSnapshotVersion = 1

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	LocalCartKey(cartSessionID string) string
}

type localSnapshot struct {
	Version int    `json:"version"`
	Items   []Line `json:"items"`
}

// RedisLocalStore persists guest carts as JSON snapshots, one key per device.
type RedisLocalStore struct {
	kv   kvStore
	ttl  time.Duration
	logg *logger.Logger
}

func NewRedisLocalStore(kv kvStore, ttl time.Duration, logg *logger.Logger) (*RedisLocalStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RedisLocalStore{kv: kv, ttl: ttl, logg: logg}, nil
}

func (s *RedisLocalStore) Read(ctx context.Context, sessionID string) (Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.LocalCartKey(sessionID))
	if errors.Is(err, redis.ErrNil) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), fmt.Errorf("read local cart: %w", err)
	}

	lines, err := decodeLocalSnapshot(raw)
	if err != nil {
		warnCtx := s.logg.WithFields(ctx, map[string]any{"cart_session": sessionID, "reason": err.Error()})
		s.logg.Warn(warnCtx, "cart.local.malformed_snapshot")
		return Empty(), nil
	}
	return FromLines(lines), nil
}

func (s *RedisLocalStore) Write(ctx context.Context, sessionID string, c Cart) error {
	payload, err := json.Marshal(localSnapshot{Version: localSnapshotVersion, Items: c.Items})
	if err != nil {
		return fmt.Errorf("encode local cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.LocalCartKey(sessionID), string(payload), s.ttl); err != nil {
		return fmt.Errorf("write local cart: %w", err)
	}
	return nil
}

func (s *RedisLocalStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.kv.Del(ctx, s.kv.LocalCartKey(sessionID)); err != nil {
		return fmt.Errorf("delete local cart: %w", err)
	}
	return nil
}

func decodeLocalSnapshot(raw string) ([]Line, error) {
	var snap localSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	seen := make(map[uuid.UUID]struct{}, len(snap.Items))
	for i, l := range snap.Items {
		if l.Product.ID == uuid.Nil {
			return nil, fmt.Errorf("item %d: missing product id", i)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: non-positive quantity %d", i, l.Quantity)
		}
		if l.Product.Price.IsNegative() {
			return nil, fmt.Errorf("item %d: negative price", i)
		}
		if _, dup := seen[l.Product.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate product %s", i, l.Product.ID)
		}
		seen[l.Product.ID] = struct{}{}
	}
	return snap.Items, nil
}
