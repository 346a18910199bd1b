package content

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// vectorizer turns documents into L2-normalized TF-IDF rows over a
// vocabulary capped at maxFeatures terms.
type vectorizer struct {
	maxFeatures int
}

// fitTransform returns the sorted vocabulary and the document-term matrix.
// The matrix is nil when no document contains a single usable term.
func (v vectorizer) fitTransform(docs []string) ([]string, *mat.Dense) {
	counts := make([]map[string]int, len(docs))
	docFreq := make(map[string]int)
	corpusFreq := make(map[string]int)

	for d, doc := range docs {
		counts[d] = make(map[string]int)
		for _, tok := range tokenize(doc) {
			counts[d][tok]++
			corpusFreq[tok]++
		}
		for tok := range counts[d] {
			docFreq[tok]++
		}
	}

	vocab := v.selectVocabulary(corpusFreq)
	if len(vocab) == 0 {
		return nil, nil
	}

	column := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(docs))
	for j, term := range vocab {
		column[term] = j
		idf[j] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	tfidf := mat.NewDense(len(docs), len(vocab), nil)
	for d := range docs {
		row := tfidf.RawRowView(d)
		for tok, c := range counts[d] {
			if j, ok := column[tok]; ok {
				row[j] = float64(c) * idf[j]
			}
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}

	return vocab, tfidf
}

// selectVocabulary keeps the maxFeatures most frequent terms across the corpus.
// Equal frequencies are broken by term so the cut is deterministic.
func (v vectorizer) selectVocabulary(corpusFreq map[string]int) []string {
	terms := make([]string, 0, len(corpusFreq))
	for term := range corpusFreq {
		terms = append(terms, term)
	}

	sort.Slice(terms, func(i, j int) bool {
		if corpusFreq[terms[i]] != corpusFreq[terms[j]] {
			return corpusFreq[terms[i]] > corpusFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)
	return terms
}
