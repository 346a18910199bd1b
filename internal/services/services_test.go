package services

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/hybridrec/internal/cache"
	"github.com/temcen/hybridrec/internal/messaging"
	"github.com/temcen/hybridrec/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), testLogger())
}

var testRatings = []models.Rating{
	{UserID: "u1", ItemID: "b1", Rating: 5},
	{UserID: "u1", ItemID: "b2", Rating: 1},
	{UserID: "u2", ItemID: "b1", Rating: 4},
	{UserID: "u2", ItemID: "b3", Rating: 5},
}

var testCatalog = []models.CatalogItem{
	{ItemID: "b1", Title: "Pride and Prejudice", Author: "Jane Austen", Genre: "Romance"},
	{ItemID: "b2", Title: "Outlander", Author: "Diana Gabaldon", Genre: "Romance"},
	{ItemID: "b3", Title: "Dracula", Author: "Bram Stoker", Genre: "Horror"},
}

// MockRatingSource implements database.RatingSource
type MockRatingSource struct {
	mock.Mock
}

func (m *MockRatingSource) LoadRatings(ctx context.Context) ([]models.Rating, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

// MockCatalogSource implements database.CatalogSource
type MockCatalogSource struct {
	mock.Mock
}

func (m *MockCatalogSource) LoadCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogItem), args.Error(1)
}

// MockPublisher implements EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishModelTrained(ctx context.Context, event messaging.ModelTrainedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// memoryCache is an in-process ResultCache.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string]*cache.Entry
	getErr      error
	invalidated int
	invalidErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*cache.Entry)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*cache.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, entry *cache.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	if c.invalidErr != nil {
		return c.invalidErr
	}
	c.entries = make(map[string]*cache.Entry)
	return nil
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
