package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/pkg/models"
)

const (
	keyPrefix  = "rec:"
	defaultTTL = 15 * time.Minute
)

// Entry is a cached fused ranking.
type Entry struct {
	Recommendations []models.ScoredCandidate `json:"recommendations"`
	CollabFallback  bool                     `json:"collaborative_fallback"`
	ModelVersion    string                   `json:"model_version"`
}

// Cache stores fused rankings in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	if ttl == 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Key identifies a ranking by count, model version and a fingerprint of the
// user id and caller-supplied profiles. The user id only enters the key
// through the fingerprint, so ids containing the key separator cannot collide.
func Key(req models.CandidateRequest, modelVersion string) (string, error) {
	payload, err := json.Marshal(struct {
		UserID  string                       `json:"user_id"`
		Profile models.UserPreferenceProfile `json:"profile"`
		Social  models.SocialProfile         `json:"social"`
	}{req.UserID, req.Profile, req.Social})
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint request: %w", err)
	}

	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%sn:%d:model:%s:req:%s",
		keyPrefix, req.N, modelVersion, hex.EncodeToString(sum[:16])), nil
}

// Get returns the cached entry for key, or nil on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations from cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations %s: %w", key, err)
	}
	return &entry, nil
}

// Set stores an entry under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set recommendations in cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached ranking. Called after a model is published.
func (c *Cache) Invalidate(ctx context.Context) error {
	var deleted int
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	c.logger.WithField("deleted", deleted).Debug("Recommendation cache invalidated")
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
