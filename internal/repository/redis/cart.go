// Package redis stores each user's cart as a single JSON value, replaced
// wholesale on every save. The cart payload is trusted as-is; checkout
// re-validates every line against live products.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

type cartStore struct {
	rdb *redis.Client
}

// NewCartStore creates a CartStore backed by Redis.
func NewCartStore(rdb *redis.Client) repository.CartStore {
	return &cartStore{rdb: rdb}
}

func cartKey(userID string) string { return "cart:" + userID }

func (s *cartStore) Get(ctx context.Context, userID string) ([]entity.CartLine, error) {
	raw, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if err == redis.Nil {
		return []entity.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var lines []entity.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return lines, nil
}

func (s *cartStore) Put(ctx context.Context, userID string, lines []entity.CartLine) error {
	if lines == nil {
		lines = []entity.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.rdb.Set(ctx, cartKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *cartStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
