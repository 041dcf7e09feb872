package nlp

import (
	"math"
	"sort"

	"github.com/yaroing/feedback-platform/internal/textnorm"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 5000

// Vector is a sparse L2-normalised tf-idf row keyed by vocabulary index.
type Vector map[int]float64

// Vectorizer turns normalized text into tf-idf vectors over a fitted vocabulary.
//
// Weights follow the smooth-idf convention: idf(t) = ln((1+n)/(1+df(t))) + 1, raw term
// counts as tf, rows normalised to unit L2 length.
type Vectorizer struct {
	MaxFeatures int `json:"max_features"`
	// Vocabulary maps a term to its column. Columns follow alphabetical term order.
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// NewVectorizer returns an unfitted vectorizer. maxFeatures <= 0 means DefaultMaxFeatures.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Fitted reports whether Fit produced a non-empty vocabulary.
func (v *Vectorizer) Fitted() bool {
	return len(v.Vocabulary) > 0
}

// Fit learns the vocabulary and idf weights from normalized documents. When more than
// MaxFeatures terms occur, the most frequent terms over the whole corpus are kept; equal
// frequencies keep the alphabetically smaller term.
func (v *Vectorizer) Fit(docs []string) {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range textnorm.Tokens(doc) {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	if len(terms) > v.MaxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return termFreq[terms[i]] > termFreq[terms[j]]
		})
		terms = terms[:v.MaxFeatures]
		sort.Strings(terms)
	}

	n := float64(len(docs))
	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
}

// Transform vectorizes one normalized document. Unknown terms are ignored; a document
// without known terms yields an empty vector.
func (v *Vectorizer) Transform(doc string) Vector {
	counts := make(map[int]float64)
	for _, tok := range textnorm.Tokens(doc) {
		if idx, ok := v.Vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	var sumSquares float64
	for idx, tf := range counts {
		w := tf * v.IDF[idx]
		counts[idx] = w
		sumSquares += w * w
	}

	if sumSquares == 0 {
		return Vector{}
	}

	norm := math.Sqrt(sumSquares)
	for idx := range counts {
		counts[idx] /= norm
	}
	return counts
}
