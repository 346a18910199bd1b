package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/hybridrec/pkg/models"
)

func TestMoodFromPalette(t *testing.T) {
	profile := MoodFromPalette([]string{
		"#f5f5f5", // light grey: minimalist
		"#101010", // near black: dark
		"#ff2020", // saturated red: bright
		"#c06070", // muted pink: romantic
		"not-a-color",
	})

	assert.Equal(t, 0.25, profile["minimalist"])
	assert.Equal(t, 0.25, profile["dark"])
	assert.Equal(t, 0.25, profile["bright"])
	assert.Equal(t, 0.25, profile["romantic"])
}

func TestMoodFromPalette_Empty(t *testing.T) {
	profile := MoodFromPalette(nil)
	require.Len(t, profile, 4)
	for _, v := range profile {
		assert.Equal(t, 0.0, v)
	}
}

func TestHSV(t *testing.T) {
	h, s, v, ok := hsv("#00ff00")
	require.True(t, ok)
	assert.InDelta(t, 1.0/3, h, 1e-12)
	assert.Equal(t, 1.0, s)
	assert.Equal(t, 1.0, v)

	_, _, _, ok = hsv("#12345")
	assert.False(t, ok)
	_, _, _, ok = hsv("#zzzzzz")
	assert.False(t, ok)
}

func TestProfileFromListening(t *testing.T) {
	profile := ProfileFromListening([]TrackFeatures{
		{Valence: 0.9, Energy: 0.9, Genres: []string{"Indie Rock", "indie pop"}},
		{Valence: 0.1, Energy: 0.1, Genres: []string{"jazz"}},
		{Valence: 0.5, Energy: 0.5, Genres: []string{"rock"}},
		{Valence: 0.8, Energy: 0.2},
	})

	assert.InDelta(t, 0.5, profile["happy"], 1e-12)
	assert.InDelta(t, 0.25, profile["melancholy"], 1e-12)
	assert.InDelta(t, 0.25, profile["energetic"], 1e-12)
	assert.InDelta(t, 0.5, profile["calm"], 1e-12)
	assert.InDelta(t, 0.5, profile["rock"], 1e-12)
	// Two indie genres on one track count once.
	assert.InDelta(t, 0.25, profile["indie"], 1e-12)
	assert.InDelta(t, 0.25, profile["jazz"], 1e-12)
	_, ok := profile["folk"]
	assert.False(t, ok)

	assert.Empty(t, ProfileFromListening(nil))
}

func TestMerge(t *testing.T) {
	merged := Merge(
		models.SocialProfile{"Romantic": 0.2, "dark": 0.9},
		models.SocialProfile{"romantic ": 0.6, "  ": 1},
		nil,
	)

	assert.Equal(t, models.SocialProfile{"romantic": 0.6, "dark": 0.9}, merged)
}

func TestParseProfile(t *testing.T) {
	profile, err := ParseProfile([]byte(`{"romantic": 0.7, "jazz": 1}`))
	require.NoError(t, err)
	assert.Equal(t, models.SocialProfile{"romantic": 0.7, "jazz": 1}, profile)

	invalid := []string{
		`{"romantic": 1.5}`,
		`{"romantic": "high"}`,
		`[0.5]`,
		`not json`,
	}
	for _, raw := range invalid {
		_, err := ParseProfile([]byte(raw))
		assert.ErrorIs(t, err, models.ErrInvalidInput, raw)
	}
}
