package social

// genreTable maps a social indicator keyword to the book genres it suggests.
// An indicator matches a key when the key occurs anywhere inside it, so
// "indie rock" matches both "indie" and "rock".
var genreTable = map[string][]string{
	// palette and listening moods
	"romantic":   {"romance"},
	"dark":       {"horror", "mystery", "thriller"},
	"bright":     {"comedy", "adventure"},
	"minimalist": {"literary fiction", "philosophy"},
	"happy":      {"comedy", "romance", "feel-good fiction"},
	"melancholy": {"drama", "literary fiction", "memoir"},
	"calm":       {"meditation", "nature writing", "poetry"},
	"energetic":  {"action", "adventure", "thriller"},

	// board keywords
	"vintage": {"historical fiction"},
	"nature":  {"adventure", "environmental"},
	"travel":  {"adventure", "travel"},
	"art":     {"art", "biography"},
	"fashion": {"contemporary fiction"},
	"food":    {"cooking", "memoir"},
	"quotes":  {"poetry", "philosophy"},

	// music genres
	"classical":  {"classical literature", "philosophy", "history"},
	"jazz":       {"beat literature", "biography", "music"},
	"rock":       {"counterculture", "biography", "music"},
	"electronic": {"science fiction", "cyberpunk", "futurism"},
	"folk":       {"historical fiction", "nature writing", "americana"},
	"hip-hop":    {"urban fiction", "social commentary", "biography"},
	"country":    {"southern fiction", "americana", "rural life"},
	"indie":      {"independent literature", "alternative fiction"},
}

// musicGenres are the table keys a listening history is bucketed into.
var musicGenres = []string{"classical", "country", "electronic", "folk", "hip-hop", "indie", "jazz", "rock"}
