package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/hybridrec/pkg/models"
)

func TestKey(t *testing.T) {
	req := models.CandidateRequest{
		UserID:  "u1",
		N:       10,
		Profile: models.UserPreferenceProfile{PreferredGenres: []string{"Romance"}},
		Social:  models.SocialProfile{"dark": 0.5, "calm": 0.2},
	}

	key, err := Key(req, "v1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "rec:n:10:model:v1:req:"))
	assert.NotContains(t, key, "u1")

	again, err := Key(req, "v1")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	tests := []struct {
		name    string
		mutate  func(r *models.CandidateRequest)
		version string
	}{
		{"other version", func(r *models.CandidateRequest) {}, "v2"},
		{"other count", func(r *models.CandidateRequest) { r.N = 5 }, "v1"},
		{"other social", func(r *models.CandidateRequest) { r.Social = models.SocialProfile{"dark": 0.6} }, "v1"},
		{"other history", func(r *models.CandidateRequest) { r.Profile.ReadingHistory = []string{"b1"} }, "v1"},
		{"other user", func(r *models.CandidateRequest) { r.UserID = "u2" }, "v1"},
		{"user id with separators", func(r *models.CandidateRequest) { r.UserID = "u1:n:10:model:v1" }, "v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := req
			tt.mutate(&changed)
			other, err := Key(changed, tt.version)
			require.NoError(t, err)
			assert.NotEqual(t, key, other)
		})
	}
}

func TestKey_SeparatorInUserID(t *testing.T) {
	a := models.CandidateRequest{UserID: "a:n:5", N: 10}
	b := models.CandidateRequest{UserID: "a", N: 5}

	keyA, err := Key(a, "v1")
	require.NoError(t, err)
	keyB, err := Key(b, "v1")
	require.NoError(t, err)

	assert.NotEqual(t, keyA, keyB)
	assert.Equal(t, 6, strings.Count(keyA, ":"))
	assert.Equal(t, 6, strings.Count(keyB, ":"))
}

func testClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use test database
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCache_RoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	require.NoError(t, client.FlushDB(ctx).Err())

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	c := NewCache(client, time.Minute, logger)

	miss, err := c.Get(ctx, "rec:user:nobody")
	require.NoError(t, err)
	assert.Nil(t, miss)

	entry := &Entry{
		Recommendations: []models.ScoredCandidate{{ItemID: "b1", Score: 0.5, Source: models.SourceHybrid}},
		CollabFallback:  true,
		ModelVersion:    "v1",
	}
	require.NoError(t, c.Set(ctx, "rec:user:u1", entry))

	got, err := c.Get(ctx, "rec:user:u1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	require.NoError(t, client.Set(ctx, "unrelated", "x", time.Minute).Err())
	require.NoError(t, c.Invalidate(ctx))

	got, err = c.Get(ctx, "rec:user:u1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "x", client.Get(ctx, "unrelated").Val())
}
