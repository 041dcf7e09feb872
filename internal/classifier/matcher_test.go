//nolint:testpackage // Testing unexported keyword matcher
package classifier

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordMatcher_Present(t *testing.T) {
	t.Parallel()

	m := newKeywordMatcher(
		[]string{"eau", "beau", ""},
		[]string{"eau sale", "bateau", "au"},
		[]string{"riz"},
	)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty text", text: "", want: nil},
		{name: "no keyword", text: "tente abri", want: nil},
		{name: "nested substrings", text: "le beau bateau", want: []string{"au", "bateau", "beau", "eau"}},
		{name: "phrase keyword", text: "eau sale au puits", want: []string{"au", "eau", "eau sale"}},
		{name: "repeats reported once", text: "riz riz riz", want: []string{"riz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			found := m.present(tt.text)
			got := make([]string, 0, len(found))
			for kw := range found {
				got = append(got, kw)
			}
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestKeywordMatcher_NoKeywords(t *testing.T) {
	t.Parallel()

	assert.Nil(t, newKeywordMatcher(nil, []string{""}).present("eau"))
}

func TestKeywordMatcher_ConcurrentUse(t *testing.T) {
	t.Parallel()

	m := newKeywordMatcher([]string{"eau", "riz", "tente"})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Len(t, m.present("eau et riz"), 2)
			}
		}()
	}
	wg.Wait()
}

func TestCountIn(t *testing.T) {
	t.Parallel()

	found := map[string]struct{}{"eau": {}, "riz": {}}
	assert.Equal(t, 2, countIn(found, []string{"eau", "riz", "tente"}))
	assert.Zero(t, countIn(nil, []string{"eau"}))
}
