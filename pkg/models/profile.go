package models

import "strings"

// UserPreferenceProfile is supplied per request by the caller and never persisted.
type UserPreferenceProfile struct {
	PreferredGenres []string `json:"preferred_genres,omitempty"`
	FavoriteAuthors []string `json:"favorite_authors,omitempty"`
	ReadingHistory  []string `json:"reading_history,omitempty"`
}

// HistorySet returns the reading history as a lookup set.
func (p UserPreferenceProfile) HistorySet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ReadingHistory))
	for _, id := range p.ReadingHistory {
		set[id] = struct{}{}
	}
	return set
}

// SocialProfile maps a mood, keyword or genre indicator to a score in [0,1].
type SocialProfile map[string]float64

// NormalizeKey lowercases and trims an attribute so that profile matching is case-insensitive.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// KeySet builds a normalized lookup set.
func KeySet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k := NormalizeKey(v); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// GenreTags splits a catalog genre field such as "Romance, Historical Fiction"
// into normalized tags.
func GenreTags(genre string) []string {
	fields := strings.FieldsFunc(genre, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '|'
	})

	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if k := NormalizeKey(f); k != "" {
			tags = append(tags, k)
		}
	}
	return tags
}
