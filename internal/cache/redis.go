package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flightorders/config"
	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps the unfiltered flight list and single flights. Entries are
// dropped whenever seats_left or flight data changes.
//
// Every invalidation bumps a generation counter before deleting keys. Writers
// pass the generation they saw before reading the database, and an entry
// stored under an older generation is removed again, so a slow reader cannot
// put back a value that an invalidation already dropped.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, flightsTTL: flightsTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetFlights returns nil, nil on a miss.
func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	var flights []domain.Flight
	ok, err := c.get(ctx, flightsKey(), &flights)
	if err != nil || !ok {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight, generation int64) error {
	return c.set(ctx, flightsKey(), flights, generation)
}

// GetFlight returns nil, nil on a miss.
func (c *RedisCache) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	var flight domain.Flight
	ok, err := c.get(ctx, flightKey(id), &flight)
	if err != nil || !ok {
		return nil, err
	}
	return &flight, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, flight *domain.Flight, generation int64) error {
	return c.set(ctx, flightKey(flight.ID), flight, generation)
}

// Generation returns the current invalidation counter, 0 before the first
// invalidation.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, errors.Wrap(err, "get cache generation")
}

// InvalidateFlights drops the list entry and the entries of the given flights.
func (c *RedisCache) InvalidateFlights(ctx context.Context, ids ...int64) error {
	if err := c.client.Incr(ctx, generationKey()).Err(); err != nil {
		return errors.Wrap(err, "bump cache generation")
	}
	keys := []string{flightsKey()}
	for _, id := range ids {
		keys = append(keys, flightKey(id))
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "invalidate flight cache")
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any, generation int64) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := c.client.Set(ctx, key, payload, c.flightsTTL).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}

	current, err := c.Generation(ctx)
	if err == nil && current == generation {
		return nil
	}
	if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
		return errors.Wrapf(delErr, "drop stale %s", key)
	}
	return err
}

func generationKey() string {
	return "cache:flights:generation"
}

func flightsKey() string {
	return "cache:flights"
}

func flightKey(id int64) string {
	return fmt.Sprintf("cache:flight:%d", id)
}
