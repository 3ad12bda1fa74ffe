// Package cache provides a Redis-backed tally cache for election results.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/electrabid/backend/internal/domain/elections"
)

const tallyTTL = 60 * time.Second

// RedisTallyCache caches per-election vote tallies in a Redis hash keyed by
// candidate id. Entries expire quickly so the database stays the source of
// truth.
type RedisTallyCache struct {
	client *redis.Client
}

var _ elections.TallyCache = (*RedisTallyCache)(nil)

func NewRedisTallyCache(client *redis.Client) *RedisTallyCache {
	return &RedisTallyCache{client: client}
}

func tallyKey(electionID uuid.UUID) string {
	return fmt.Sprintf("election:%s:tally", electionID)
}

func (c *RedisTallyCache) GetTally(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, bool, error) {
	fields, err := c.client.HGetAll(ctx, tallyKey(electionID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read tally: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	tally := make(map[uuid.UUID]int64, len(fields))
	for field, value := range fields {
		candidateID, err := uuid.Parse(field)
		if err != nil {
			return nil, false, fmt.Errorf("invalid candidate id in tally: %w", err)
		}
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid count in tally: %w", err)
		}
		tally[candidateID] = count
	}
	return tally, true, nil
}

func (c *RedisTallyCache) SetTally(ctx context.Context, electionID uuid.UUID, tally map[uuid.UUID]int64) error {
	key := tallyKey(electionID)
	fields := make(map[string]any, len(tally))
	for candidateID, count := range tally {
		fields[candidateID.String()] = count
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	pipe.Expire(ctx, key, tallyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store tally: %w", err)
	}
	return nil
}

// IncrementCandidate bumps a candidate's cached count. Only primed tallies
// are touched, otherwise an increment would seed a hash missing every other
// candidate's count.
func (c *RedisTallyCache) IncrementCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error {
	key := tallyKey(electionID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check tally: %w", err)
	}
	if exists == 0 {
		return nil
	}
	if err := c.client.HIncrBy(ctx, key, candidateID.String(), 1).Err(); err != nil {
		return fmt.Errorf("failed to increment tally: %w", err)
	}
	return nil
}

func (c *RedisTallyCache) InvalidateTally(ctx context.Context, electionID uuid.UUID) error {
	if err := c.client.Del(ctx, tallyKey(electionID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tally: %w", err)
	}
	return nil
}
