package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finexa/fxarb/internal/models"
)

const (
	opportunitiesKey = "fxarb:opportunities"
	snapshotKey      = "fxarb:rates"
)

// OpportunityCacheEntry is the cached payload with freshness metadata.
type OpportunityCacheEntry struct {
	Opportunities []*models.ArbitrageOpportunity `json:"opportunities"`
	CachedAt      time.Time                      `json:"cached_at"`
}

// OpportunityCache mirrors the latest ranked opportunity list and rate
// snapshot into Redis so external consumers can read them without touching
// the engine. The in-process book stays authoritative; this is a read-only
// mirror with a TTL.
type OpportunityCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewOpportunityCache(redisClient *redis.Client, ttl time.Duration) *OpportunityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &OpportunityCache{redis: redisClient, ttl: ttl}
}

// StoreOpportunities replaces the cached ranked list.
func (c *OpportunityCache) StoreOpportunities(ctx context.Context, opportunities []*models.ArbitrageOpportunity) error {
	entry := OpportunityCacheEntry{
		Opportunities: opportunities,
		CachedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal opportunities: %w", err)
	}
	if err := c.redis.Set(ctx, opportunitiesKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache opportunities: %w", err)
	}
	return nil
}

// GetOpportunities reads the cached ranked list. A missing or expired key
// returns ok=false, not an error.
func (c *OpportunityCache) GetOpportunities(ctx context.Context) (*OpportunityCacheEntry, bool, error) {
	data, err := c.redis.Get(ctx, opportunitiesKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached opportunities: %w", err)
	}
	var entry OpportunityCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached opportunities: %w", err)
	}
	return &entry, true, nil
}

// StoreSnapshot mirrors the latest rate snapshot.
func (c *OpportunityCache) StoreSnapshot(ctx context.Context, snapshot models.RateSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// GetSnapshot reads the mirrored rate snapshot.
func (c *OpportunityCache) GetSnapshot(ctx context.Context) (models.RateSnapshot, bool, error) {
	data, err := c.redis.Get(ctx, snapshotKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached snapshot: %w", err)
	}
	var snapshot models.RateSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached snapshot: %w", err)
	}
	return snapshot, true, nil
}
