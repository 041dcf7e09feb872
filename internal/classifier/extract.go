package classifier

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yaroing/feedback-platform/internal/textnorm"
)

// Keyword extraction defaults.
const (
	DefaultMinFrequency = 3
	DefaultExtractLimit = 20
	minExtractRunes     = 4
)

// KeywordCount is a candidate keyword and its number of occurrences.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// ExtractKeywords suggests rule keywords from the texts of one category: words of more
// than three runes that are not stopwords and occur at least minFrequency times, most
// frequent first (first occurrence breaks ties), at most limit of them. limit <= 0 means
// no limit.
func ExtractKeywords(texts []string, minFrequency, limit int) []KeywordCount {
	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		for _, word := range strings.Fields(textnorm.Normalize(text)) {
			if utf8.RuneCountInString(word) < minExtractRunes {
				continue
			}
			if _, stop := frenchStopwords[word]; stop {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	out := make([]KeywordCount, 0, len(order))
	for _, word := range order {
		if counts[word] >= minFrequency {
			out = append(out, KeywordCount{Keyword: word, Count: counts[word]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// frenchStopwords lists French function words plus generic feedback vocabulary. Words of
// three runes or fewer are filtered by length and omitted here.
var frenchStopwords = toSet(
	// pronouns, determiners, prepositions
	"avec", "dans", "elle", "elles", "leur", "leurs", "mais", "même", "nous", "notre", "nos",
	"vous", "votre", "pour", "sans", "ceci", "cela", "celà", "cette", "ceux", "quel",
	"quels", "quelle", "quelles", "aussi", "très", "plus", "moins", "tout", "tous", "toute",
	"toutes", "comme", "donc", "alors", "encore", "depuis", "pendant", "avant", "après",
	"entre", "chez", "vers", "sous", "parce",
	// être
	"être", "étais", "était", "étions", "étiez", "étaient", "étant", "serai", "seras",
	"sera", "serons", "serez", "seront", "serais", "serait", "serions", "seriez",
	"seraient", "sois", "soit", "soyons", "soyez", "soient", "sommes", "êtes", "sont",
	"fûmes", "fûtes", "furent", "fusse", "fusses", "fussions", "fussiez", "fussent",
	// avoir
	"avoir", "ayant", "avons", "avez", "aurai", "auras", "aura", "aurons", "aurez",
	"auront", "aurais", "aurait", "aurions", "auriez", "auraient", "avais", "avait",
	"avions", "aviez", "avaient", "eûmes", "eûtes", "eurent", "aies", "ayons", "ayez",
	"aient", "eusse", "eusses", "eussions", "eussiez", "eussent",
	// feedback boilerplate
	"bonjour", "merci", "besoin", "problème", "urgent", "aide", "demande", "question",
	"information", "jour", "semaine", "mois",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
