package nlp

import (
	"github.com/yaroing/feedback-platform/internal/domain"
)

// Evaluate scores the pipeline on held-out examples: accuracy plus precision, recall
// and F1 averaged over every label seen in truth or predictions, weighted by true
// support. Undefined ratios count as zero. Size is left for the caller to fill in.
func (p *Pipeline) Evaluate(examples []Example) (domain.Metrics, error) {
	if !p.Fitted() {
		return domain.Metrics{}, ErrModelUnavailable
	}
	if len(examples) == 0 {
		return domain.Metrics{}, nil
	}

	truth := make([]string, len(examples))
	predicted := make([]string, len(examples))
	for i, ex := range examples {
		pred, err := p.Predict(ex.Text)
		if err != nil {
			return domain.Metrics{}, err
		}
		truth[i] = ex.Category
		predicted[i] = pred.Category
	}

	return ScorePredictions(truth, predicted), nil
}

// ScorePredictions computes weighted classification metrics from parallel label slices.
func ScorePredictions(truth, predicted []string) domain.Metrics {
	n := len(truth)
	if n == 0 {
		return domain.Metrics{}
	}

	type counts struct{ tp, fp, fn int }
	perLabel := make(map[string]*counts)
	get := func(label string) *counts {
		c, ok := perLabel[label]
		if !ok {
			c = &counts{}
			perLabel[label] = c
		}
		return c
	}

	correct := 0
	for i := range truth {
		if truth[i] == predicted[i] {
			correct++
			get(truth[i]).tp++
			continue
		}
		get(truth[i]).fn++
		get(predicted[i]).fp++
	}

	var precision, recall, f1 float64
	for _, c := range perLabel {
		support := c.tp + c.fn
		if support == 0 {
			continue
		}
		p := ratio(c.tp, c.tp+c.fp)
		r := ratio(c.tp, support)
		f := 0.0
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		w := float64(support) / float64(n)
		precision += w * p
		recall += w * r
		f1 += w * f
	}

	return domain.Metrics{
		Accuracy:  float64(correct) / float64(n),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
