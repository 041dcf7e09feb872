package nlp

import (
	"math"
	"sort"
)

// DefaultAlpha is the additive (Laplace) smoothing parameter.
const DefaultAlpha = 1.0

// NaiveBayes is a multinomial naive Bayes classifier over tf-idf features.
type NaiveBayes struct {
	Alpha float64 `json:"alpha"`
	// Classes are the labels in sorted order; ties in prediction go to the earlier one.
	Classes        []string    `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// NewNaiveBayes returns an unfitted model. alpha <= 0 means DefaultAlpha.
func NewNaiveBayes(alpha float64) *NaiveBayes {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &NaiveBayes{Alpha: alpha}
}

// Fitted reports whether Fit has run.
func (nb *NaiveBayes) Fitted() bool {
	return len(nb.Classes) > 0 && len(nb.FeatureLogProb) == len(nb.Classes)
}

// Fit estimates priors from class frequencies and per-class feature distributions from
// the summed feature weights of each class. rows and labels must be parallel.
func (nb *NaiveBayes) Fit(rows []Vector, labels []string, numFeatures int) {
	classIndex := make(map[string]int)
	for _, label := range labels {
		classIndex[label] = 0
	}
	nb.Classes = make([]string, 0, len(classIndex))
	for label := range classIndex {
		nb.Classes = append(nb.Classes, label)
	}
	sort.Strings(nb.Classes)
	for i, label := range nb.Classes {
		classIndex[label] = i
	}

	classCount := make([]float64, len(nb.Classes))
	featureCount := make([][]float64, len(nb.Classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, numFeatures)
	}

	for i, row := range rows {
		c := classIndex[labels[i]]
		classCount[c]++
		for idx, w := range row {
			featureCount[c][idx] += w
		}
	}

	total := float64(len(rows))
	nb.ClassLogPrior = make([]float64, len(nb.Classes))
	nb.FeatureLogProb = make([][]float64, len(nb.Classes))
	for c := range nb.Classes {
		nb.ClassLogPrior[c] = math.Log(classCount[c]) - math.Log(total)

		smoothedTotal := 0.0
		for _, fc := range featureCount[c] {
			smoothedTotal += fc + nb.Alpha
		}
		logTotal := math.Log(smoothedTotal)

		nb.FeatureLogProb[c] = make([]float64, numFeatures)
		for j, fc := range featureCount[c] {
			nb.FeatureLogProb[c][j] = math.Log(fc+nb.Alpha) - logTotal
		}
	}
}

// PredictProba returns the posterior probability of every class for row, in Classes
// order.
func (nb *NaiveBayes) PredictProba(row Vector) []float64 {
	jll := make([]float64, len(nb.Classes))
	maxLL := math.Inf(-1)
	for c := range nb.Classes {
		ll := nb.ClassLogPrior[c]
		for idx, w := range row {
			ll += w * nb.FeatureLogProb[c][idx]
		}
		jll[c] = ll
		maxLL = math.Max(maxLL, ll)
	}

	var sum float64
	for c := range jll {
		jll[c] = math.Exp(jll[c] - maxLL)
		sum += jll[c]
	}
	for c := range jll {
		jll[c] /= sum
	}
	return jll
}

// Predict returns the most probable class and its posterior.
func (nb *NaiveBayes) Predict(row Vector) (string, float64) {
	proba := nb.PredictProba(row)
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return nb.Classes[best], proba[best]
}
