package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/temcen/hybridrec/pkg/models"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// RatingSource loads the full rating set used for training.
type RatingSource interface {
	LoadRatings(ctx context.Context) ([]models.Rating, error)
}

// CatalogSource loads the full item catalog used for training.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) ([]models.CatalogItem, error)
}

const selectRatings = `SELECT user_id, item_id, rating FROM ratings ORDER BY user_id, item_id`

const selectCatalog = `SELECT item_id, COALESCE(title, ''), COALESCE(author, ''), COALESCE(genre, ''), COALESCE(description, '')
FROM catalog_items ORDER BY item_id`

// RatingStore reads ratings from PostgreSQL.
type RatingStore struct {
	db DatabaseQuerier
}

func NewRatingStore(db DatabaseQuerier) *RatingStore {
	return &RatingStore{db: db}
}

func (s *RatingStore) LoadRatings(ctx context.Context) ([]models.Rating, error) {
	rows, err := s.db.Query(ctx, selectRatings)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}

	return ratings, nil
}

// CatalogStore reads catalog items from PostgreSQL.
type CatalogStore struct {
	db DatabaseQuerier
}

func NewCatalogStore(db DatabaseQuerier) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) LoadCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	rows, err := s.db.Query(ctx, selectCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ItemID, &item.Title, &item.Author, &item.Genre, &item.Description); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return items, nil
}

const matchRatings = `
	MATCH (u:User)-[r:RATED]->(i:Item)
	RETURN u.id AS user_id, i.id AS item_id, toFloat(r.rating) AS rating
	ORDER BY user_id, item_id
`

// GraphRatingStore reads RATED relationships from Neo4j.
type GraphRatingStore struct {
	driver neo4j.DriverWithContext
}

func NewGraphRatingStore(driver neo4j.DriverWithContext) *GraphRatingStore {
	return &GraphRatingStore{driver: driver}
}

func (s *GraphRatingStore) LoadRatings(ctx context.Context) ([]models.Rating, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, matchRatings, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		ratings := make([]models.Rating, 0, len(records))
		for _, record := range records {
			r, err := ratingFromRecord(record)
			if err != nil {
				return nil, err
			}
			ratings = append(ratings, r)
		}
		return ratings, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load graph ratings: %w", err)
	}

	return result.([]models.Rating), nil
}

func ratingFromRecord(record *neo4j.Record) (models.Rating, error) {
	userID, _, err := neo4j.GetRecordValue[string](record, "user_id")
	if err != nil {
		return models.Rating{}, fmt.Errorf("invalid user_id: %w", err)
	}
	itemID, _, err := neo4j.GetRecordValue[string](record, "item_id")
	if err != nil {
		return models.Rating{}, fmt.Errorf("invalid item_id: %w", err)
	}
	rating, _, err := neo4j.GetRecordValue[float64](record, "rating")
	if err != nil {
		return models.Rating{}, fmt.Errorf("invalid rating: %w", err)
	}

	return models.Rating{UserID: userID, ItemID: itemID, Rating: rating}, nil
}
