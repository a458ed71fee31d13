package session

import (
	"context"
	"fmt"
	"time"

	"ochre-shop/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisCartStore keeps each visitor's cart in one hash, cart:{sid}, whose
// fields are Key(product, unit) and values are quantities.
type redisCartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCartStore creates a CartStore backed by Redis hashes. Every write
// refreshes the hash expiry to ttl.
func NewRedisCartStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) CartStore {
	return &redisCartStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_cart").Logger(),
	}
}

// addScript increments one line unless the result would pass the cap, in
// which case it returns -1 and leaves the hash untouched.
var addScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0') or 0
local total = current + tonumber(ARGV[2])
if total > tonumber(ARGV[3]) then
	return -1
end
redis.call('HSET', KEYS[1], ARGV[1], total)
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return total
`)

func cartKey(sid string) string {
	return fmt.Sprintf("cart:%s", sid)
}

func (s *redisCartStore) Add(ctx context.Context, sid string, productID int64, unitID *int64, qty int) error {
	if qty <= 0 || qty > model.MaxLineQuantity {
		return model.ErrInvalidQuantity
	}

	keys := []string{cartKey(sid)}
	next, err := addScript.Run(ctx, s.client, keys,
		Key(productID, unitID), qty, model.MaxLineQuantity, s.ttl.Milliseconds()).Int64()
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to add to session cart")
		return fmt.Errorf("failed to add to session cart: %w", err)
	}
	if next < 0 {
		return model.ErrInvalidQuantity
	}
	return nil
}

func (s *redisCartStore) Remove(ctx context.Context, sid string, productID int64, unitID *int64) error {
	if err := s.client.HDel(ctx, cartKey(sid), Key(productID, unitID)).Err(); err != nil {
		return fmt.Errorf("failed to remove from session cart: %w", err)
	}
	return nil
}

func (s *redisCartStore) Entries(ctx context.Context, sid string) ([]Entry, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session cart: %w", err)
	}
	entries := parseEntries(raw)
	if skipped := len(raw) - len(entries); skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Msg("ignored malformed session cart fields")
	}
	return entries, nil
}

func (s *redisCartStore) Count(ctx context.Context, sid string) (int, error) {
	entries, err := s.Entries(ctx, sid)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n, nil
}

func (s *redisCartStore) Take(ctx context.Context, sid string) ([]Entry, error) {
	key := cartKey(sid)

	// MULTI/EXEC so no concurrent Add lands between the read and the delete.
	pipe := s.client.TxPipeline()
	all := pipe.HGetAll(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to take session cart: %w", err)
	}
	return parseEntries(all.Val()), nil
}

func (s *redisCartStore) Restore(ctx context.Context, sid string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	key := cartKey(sid)
	pipe := s.client.TxPipeline()
	for _, e := range entries {
		pipe.HIncrBy(ctx, key, Key(e.ProductID, e.UnitID), int64(e.Quantity))
	}
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to restore session cart: %w", err)
	}
	return nil
}

func (s *redisCartStore) Clear(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, cartKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to clear session cart: %w", err)
	}
	return nil
}
