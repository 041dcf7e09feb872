package maintenance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/maintenance"
	"github.com/yaroing/feedback-platform/internal/registry"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	"github.com/yaroing/feedback-platform/internal/testhelpers"
)

type fakeExamples struct {
	examples []domain.TrainingExample
	countErr error
}

func (f *fakeExamples) ListValidated(context.Context) ([]domain.TrainingExample, error) {
	return f.examples, nil
}

func (f *fakeExamples) CountValidated(context.Context) (int, error) {
	return len(f.examples), f.countErr
}

func validated(n int) []domain.TrainingExample {
	base := testhelpers.SeparableExamples()
	out := make([]domain.TrainingExample, 0, n)
	for i := range n {
		ex := base[i%len(base)]
		out = append(out, domain.TrainingExample{Content: ex.Text, CategoryName: ex.Category, IsValidated: true})
	}
	return out
}

func newChecker(t *testing.T, examples *fakeExamples) (*maintenance.Checker, *testhelpers.MockModelStore, *registry.Registry) {
	t.Helper()
	models := testhelpers.NewMockModelStore()
	reg := registry.New(models, testhelpers.NewMockBlobStore(), registry.Config{}, nil, nil)
	checker := maintenance.NewChecker(reg, examples, maintenance.Config{MinExamplesForAutoTrain: 20}, nil, telemetry.NewProvider())
	return checker, models, reg
}

func daysAgo(n int) *time.Time {
	t := time.Now().Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func TestChecker_ActivatesBestTrained(t *testing.T) {
	t.Parallel()

	checker, models, _ := newChecker(t, &fakeExamples{})
	models.Put(domain.Model{ModelType: domain.DefaultModelType, IsTrained: true, F1Score: 0.6})
	best := models.Put(domain.Model{ModelType: domain.DefaultModelType, IsTrained: true, F1Score: 0.8})
	models.Put(domain.Model{ModelType: domain.DefaultModelType, F1Score: 0.99})
	models.Put(domain.Model{ModelType: "other", IsTrained: true, F1Score: 0.95})

	report, err := checker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{best}, report.Activated)
	assert.Equal(t, 1, models.ActiveCount(domain.DefaultModelType))
	assert.Empty(t, report.Trained, "20 examples required, none available")
}

func TestChecker_NothingToActivate(t *testing.T) {
	t.Parallel()

	checker, _, _ := newChecker(t, &fakeExamples{})
	report, err := checker.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Activated)
}

func TestChecker_RetrainsStaleActiveModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		age     int
		retrain bool
	}{
		{name: "thirty days is not stale", age: 30, retrain: false},
		{name: "thirty one days is stale", age: 31, retrain: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			checker, models, reg := newChecker(t, &fakeExamples{examples: validated(10)})
			id := models.Put(domain.Model{
				ModelType: domain.DefaultModelType, IsActive: true, IsTrained: true, LastTrained: daysAgo(tt.age),
			})

			report, err := checker.Run(context.Background())
			require.NoError(t, err)

			if !tt.retrain {
				assert.Empty(t, report.Retrained)
				return
			}
			assert.Equal(t, []int64{id}, report.Retrained)
			m, getErr := reg.Get(context.Background(), id)
			require.NoError(t, getErr)
			assert.Equal(t, 10, m.TrainingDataSize)
		})
	}
}

func TestChecker_TrainsUntrainedWhenEnoughExamples(t *testing.T) {
	t.Parallel()

	checker, models, reg := newChecker(t, &fakeExamples{examples: validated(20)})
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})

	report, err := checker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, report.Trained)

	m, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModelStateTrainedInactive, m.State())
}

func TestChecker_CollectsErrors(t *testing.T) {
	t.Parallel()

	checker, models, _ := newChecker(t, &fakeExamples{countErr: errors.New("timeout")})
	models.Put(domain.Model{ModelType: domain.DefaultModelType})

	_, err := checker.Run(context.Background())
	require.Error(t, err)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()

	checker, _, _ := newChecker(t, &fakeExamples{})
	scheduler := maintenance.NewScheduler(checker, "not a schedule", nil)
	require.Error(t, scheduler.Start())

	scheduler = maintenance.NewScheduler(checker, "", nil)
	require.NoError(t, scheduler.Start())
	scheduler.Stop()
}
