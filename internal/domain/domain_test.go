package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/domain"
)

func TestParseKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want domain.Keywords
	}{
		{name: "trim and lowercase", in: " Eau , POTABLE,robinet ", want: domain.Keywords{"eau", "potable", "robinet"}},
		{name: "drops empty and duplicates", in: "eau,,Eau, ,eau", want: domain.Keywords{"eau"}},
		{name: "empty input", in: "", want: domain.Keywords{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.ParseKeywords(tt.in))
		})
	}
}

func TestKeywords_ScanValue(t *testing.T) {
	t.Parallel()

	v, err := domain.Keywords{"eau", "hygiène"}.Value()
	require.NoError(t, err)

	var got domain.Keywords
	require.NoError(t, got.Scan(v))
	assert.Equal(t, domain.Keywords{"eau", "hygiène"}, got)

	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)

	assert.Error(t, got.Scan(42))
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	p, err := domain.ParsePriority(" URGENT ")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, p)

	_, err = domain.ParsePriority("critical")
	assert.Error(t, err)
}

func TestModel_State(t *testing.T) {
	t.Parallel()

	m := &domain.Model{}
	assert.Equal(t, domain.ModelStateUntrained, m.State())

	m.IsActive = true
	assert.Equal(t, domain.ModelStateUntrained, m.State())

	m.ApplyMetrics(domain.Metrics{Accuracy: 0.9, F1: 0.8, Size: 10}, "nlp_models:model_1", time.Now())
	assert.Equal(t, domain.ModelStateTrainedActive, m.State())
	assert.Equal(t, 10, m.TrainingDataSize)

	m.IsActive = false
	assert.Equal(t, domain.ModelStateTrainedInactive, m.State())
}
