package nlp

import (
	"math"
	"math/rand/v2"
	"sort"
)

// FilterByMinSamples drops every category with fewer than minSamples examples. It returns
// the kept examples in their original order and the skipped categories sorted.
func FilterByMinSamples(examples []Example, minSamples int) (kept []Example, skipped []string) {
	counts := make(map[string]int)
	for _, ex := range examples {
		counts[ex.Category]++
	}

	for category, n := range counts {
		if n < minSamples {
			skipped = append(skipped, category)
		}
	}
	sort.Strings(skipped)

	kept = make([]Example, 0, len(examples))
	for _, ex := range examples {
		if counts[ex.Category] >= minSamples {
			kept = append(kept, ex)
		}
	}
	return kept, skipped
}

// StratifiedSplit partitions examples into train and test sets, holding out roughly
// testSize of every category. A category with at least two examples contributes at
// least one test and one train example; a singleton stays in train. The split is
// deterministic for a given seed and both outputs keep the input order.
func StratifiedSplit(examples []Example, testSize float64, seed uint64) (train, test []Example) {
	byClass := make(map[string][]int)
	for i, ex := range examples {
		byClass[ex.Category] = append(byClass[ex.Category], i)
	}

	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	rng := rand.New(rand.NewPCG(seed, seed))
	inTest := make(map[int]bool)
	for _, c := range classes {
		idx := byClass[c]
		n := len(idx)
		nTest := int(math.Round(testSize * float64(n)))
		if n >= 2 {
			nTest = max(nTest, 1)
		}
		nTest = min(nTest, n-1)
		if nTest <= 0 {
			continue
		}

		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for _, i := range idx[:nTest] {
			inTest[i] = true
		}
	}

	for i, ex := range examples {
		if inTest[i] {
			test = append(test, ex)
		} else {
			train = append(train, ex)
		}
	}
	return train, test
}
