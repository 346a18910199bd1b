package models

import (
	"context"
	"encoding/json"
	"time"
)

// Source identifies which scorer produced a candidate.
type Source string

const (
	SourceCollaborative Source = "collaborative"
	SourceContentBased  Source = "content_based"
	SourceSocial        Source = "social"
	SourceHybrid        Source = "hybrid"
)

// DefaultCount is the number of recommendations returned when the caller does not ask for a specific amount.
const DefaultCount = 10

type ScoredCandidate struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
	Source Source  `json:"source"`
}

// CandidateRequest is the common input every scorer receives.
type CandidateRequest struct {
	UserID  string                `json:"user_id"`
	Profile UserPreferenceProfile `json:"profile"`
	Social  SocialProfile         `json:"social,omitempty"`
	N       int                   `json:"n"`
}

// CandidateSource produces an ordered candidate list for a request.
type CandidateSource interface {
	Candidates(ctx context.Context, req CandidateRequest) ([]ScoredCandidate, error)
}

// RecommendationRequest is the body of a recommendation call. Social is kept
// raw so it can be checked against the social profile schema before decoding.
type RecommendationRequest struct {
	UserID  string                `json:"user_id" validate:"required"`
	Count   int                   `json:"count" validate:"min=0,max=100"`
	Profile UserPreferenceProfile `json:"profile"`
	Social  json.RawMessage       `json:"social,omitempty"`
}

type RecommendationResponse struct {
	RequestID       string            `json:"request_id"`
	UserID          string            `json:"user_id"`
	Recommendations []ScoredCandidate `json:"recommendations"`
	ModelVersion    string            `json:"model_version"`
	CollabFallback  bool              `json:"collaborative_fallback"`
	GeneratedAt     time.Time         `json:"generated_at"`
	CacheHit        bool              `json:"cache_hit"`
}

type SimilarItemResponse struct {
	SeedItemID   string            `json:"seed_item_id"`
	Similar      []ScoredCandidate `json:"similar"`
	ModelVersion string            `json:"model_version"`
}
