package content

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// wordPattern matches runs of two or more letters, digits or underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// tokenize normalizes text and returns its unigrams followed by its bigrams.
// Stop words are dropped before bigrams are formed.
func tokenize(text string) []string {
	text = norm.NFC.String(text)
	text = cases.Fold().String(text)

	words := wordPattern.FindAllString(text, -1)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}

	tokens := make([]string, 0, 2*len(kept))
	tokens = append(tokens, kept...)
	for i := 0; i+1 < len(kept); i++ {
		tokens = append(tokens, kept[i]+" "+kept[i+1])
	}
	return tokens
}

// document concatenates the text fields of a catalog item.
func document(fields ...string) string {
	return strings.Join(fields, " ")
}
