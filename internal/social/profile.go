package social

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/temcen/hybridrec/pkg/models"
)

// TrackFeatures are the audio features of one listened track.
type TrackFeatures struct {
	Valence float64  `json:"valence"`
	Energy  float64  `json:"energy"`
	Genres  []string `json:"genres"`
}

// MoodFromPalette derives palette moods from dominant colors given as
// "#rrggbb". Each color votes for at most one mood and the result holds the
// share of valid colors per mood. Malformed colors are ignored.
func MoodFromPalette(colors []string) models.SocialProfile {
	counts := map[string]float64{"romantic": 0, "dark": 0, "bright": 0, "minimalist": 0}

	var valid int
	for _, c := range colors {
		h, s, v, ok := hsv(c)
		if !ok {
			continue
		}
		valid++

		switch {
		case s < 0.3 && v > 0.8:
			counts["minimalist"]++
		case v < 0.3:
			counts["dark"]++
		case s > 0.7 && v > 0.7:
			counts["bright"]++
		case (h > 0.8 && h < 1.0) || (h > 0 && h < 0.1):
			counts["romantic"]++
		}
	}

	profile := make(models.SocialProfile, len(counts))
	for mood, n := range counts {
		if valid > 0 {
			profile[mood] = n / float64(valid)
		} else {
			profile[mood] = 0
		}
	}
	return profile
}

// ProfileFromListening derives listening moods and music genre shares from a
// track history. Every value is the fraction of tracks showing the trait.
func ProfileFromListening(tracks []TrackFeatures) models.SocialProfile {
	profile := make(models.SocialProfile)
	if len(tracks) == 0 {
		return profile
	}

	total := float64(len(tracks))
	for _, t := range tracks {
		switch {
		case t.Valence > 0.7:
			profile["happy"] += 1 / total
		case t.Valence < 0.3:
			profile["melancholy"] += 1 / total
		}
		switch {
		case t.Energy > 0.7:
			profile["energetic"] += 1 / total
		case t.Energy < 0.3:
			profile["calm"] += 1 / total
		}

		seen := make(map[string]bool)
		for _, g := range t.Genres {
			g = models.NormalizeKey(g)
			for _, key := range musicGenres {
				if !seen[key] && strings.Contains(g, key) {
					seen[key] = true
					profile[key] += 1 / total
				}
			}
		}
	}

	for k, v := range profile {
		profile[k] = sanitize(v)
	}
	return profile
}

// Merge combines profiles keeping the strongest score per normalized indicator.
func Merge(profiles ...models.SocialProfile) models.SocialProfile {
	merged := make(models.SocialProfile)
	for _, p := range profiles {
		for k, v := range p {
			key := models.NormalizeKey(k)
			if key == "" {
				continue
			}
			v = sanitize(v)
			if cur, ok := merged[key]; !ok || v > cur {
				merged[key] = v
			}
		}
	}
	return merged
}

const profileSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "number",
		"minimum": 0,
		"maximum": 1
	}
}`

var profileSchemaLoader = gojsonschema.NewStringLoader(profileSchema)

// ParseProfile decodes a social profile blob after checking it against the
// profile schema: a flat object of indicator scores in [0,1].
func ParseProfile(raw []byte) (models.SocialProfile, error) {
	result, err := gojsonschema.Validate(profileSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: social profile: %v", models.ErrInvalidInput, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: social profile: %s", models.ErrInvalidInput, strings.Join(msgs, "; "))
	}

	var profile models.SocialProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: social profile: %v", models.ErrInvalidInput, err)
	}
	return profile, nil
}

// hsv parses "#rrggbb" into hue, saturation and value, all in [0,1].
func hsv(hex string) (h, s, v float64, ok bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}

	r := float64(rgb>>16&0xff) / 255
	g := float64(rgb>>8&0xff) / 255
	b := float64(rgb&0xff) / 255

	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	v = maxc
	if maxc == minc {
		return 0, 0, v, true
	}

	delta := maxc - minc
	s = delta / maxc
	switch maxc {
	case r:
		h = (g - b) / delta
	case g:
		h = 2 + (b-r)/delta
	default:
		h = 4 + (r-g)/delta
	}
	h = math.Mod(h/6, 1)
	if h < 0 {
		h++
	}
	return h, s, v, true
}
