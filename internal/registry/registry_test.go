package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/registry"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	"github.com/yaroing/feedback-platform/internal/testhelpers"
)

func newRegistry(t *testing.T, cfg registry.Config) (*registry.Registry, *testhelpers.MockModelStore, *testhelpers.MockBlobStore) {
	t.Helper()
	models := testhelpers.NewMockModelStore()
	blobs := testhelpers.NewMockBlobStore()
	return registry.New(models, blobs, cfg, nil, telemetry.NewProvider()), models, blobs
}

func TestActive_NoModel(t *testing.T) {
	t.Parallel()

	reg, models, _ := newRegistry(t, registry.Config{})
	ctx := context.Background()

	_, _, err := reg.Active(ctx, domain.DefaultModelType)
	require.ErrorIs(t, err, nlp.ErrModelUnavailable)

	models.Put(domain.Model{ModelType: domain.DefaultModelType, IsActive: true})
	_, _, err = reg.Active(ctx, domain.DefaultModelType)
	require.ErrorIs(t, err, nlp.ErrModelUnavailable, "active but untrained")
}

func TestActive_MissingBlobIsUnavailable(t *testing.T) {
	t.Parallel()

	reg, models, _ := newRegistry(t, registry.Config{})
	models.Put(domain.Model{
		ModelType: domain.DefaultModelType, IsActive: true, IsTrained: true, BlobKey: "model_gone",
	})

	_, _, err := reg.Active(context.Background(), domain.DefaultModelType)
	require.ErrorIs(t, err, nlp.ErrSerialization)
	require.ErrorIs(t, err, nlp.ErrModelUnavailable)
}

func TestTrainActivatePredict(t *testing.T) {
	t.Parallel()

	reg, models, blobs := newRegistry(t, registry.Config{MinSamplesPerCategory: 2})
	ctx := context.Background()
	id := models.Put(domain.Model{Name: "m", ModelType: domain.DefaultModelType})

	err := reg.Activate(ctx, id)
	require.ErrorIs(t, err, registry.ErrModelNotTrained)

	metrics, err := reg.Train(ctx, id, testhelpers.SeparableExamples())
	require.NoError(t, err)
	assert.Equal(t, 10, metrics.Size)
	assert.InDelta(t, 1.0, metrics.Accuracy, 1e-9)

	stored, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ModelStateTrainedInactive, stored.State())
	assert.True(t, blobs.Has(stored.BlobKey))

	require.NoError(t, reg.Activate(ctx, id))
	require.NoError(t, reg.Activate(ctx, id), "idempotent")

	m, p, err := reg.Active(ctx, domain.DefaultModelType)
	require.NoError(t, err)
	assert.Equal(t, id, m.ID)

	pred, err := p.Predict("le robinet du puits")
	require.NoError(t, err)
	assert.Equal(t, "Eau", pred.Category)
	assert.Greater(t, pred.Confidence, 0.5)
}

func TestTrain_InsufficientData(t *testing.T) {
	t.Parallel()

	reg, models, blobs := newRegistry(t, registry.Config{MinSamplesPerCategory: 3})
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})

	examples := append(testhelpers.SeparableExamples(),
		nlp.Example{Text: "tente bâche", Category: "Abri"},
	)
	_, err := reg.Train(context.Background(), id, examples)
	require.ErrorIs(t, err, nlp.ErrInsufficientTrainingData)

	var insufficient *registry.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, []string{"Abri"}, insufficient.Categories)
	assert.Zero(t, blobs.Len())

	_, err = reg.Train(context.Background(), id, nil)
	require.ErrorIs(t, err, nlp.ErrInsufficientTrainingData)
}

func TestTrain_UnknownModel(t *testing.T) {
	t.Parallel()

	reg, _, _ := newRegistry(t, registry.Config{})
	_, err := reg.Train(context.Background(), 99, testhelpers.SeparableExamples())
	require.ErrorIs(t, err, registry.ErrModelNotFound)

	require.ErrorIs(t, reg.Activate(context.Background(), 99), registry.ErrModelNotFound)
}

func TestActivate_DeactivatesSiblings(t *testing.T) {
	t.Parallel()

	reg, models, _ := newRegistry(t, registry.Config{})
	ctx := context.Background()
	first := models.Put(domain.Model{ModelType: domain.DefaultModelType, IsTrained: true, IsActive: true})
	second := models.Put(domain.Model{ModelType: domain.DefaultModelType, IsTrained: true})
	other := models.Put(domain.Model{ModelType: "other", IsTrained: true, IsActive: true})

	require.NoError(t, reg.Activate(ctx, second))
	assert.Equal(t, 1, models.ActiveCount(domain.DefaultModelType))

	m, err := reg.Get(ctx, first)
	require.NoError(t, err)
	assert.False(t, m.IsActive)

	m, err = reg.Get(ctx, other)
	require.NoError(t, err)
	assert.True(t, m.IsActive)
}

func TestActive_ConcurrentLoadsBlobOnce(t *testing.T) {
	t.Parallel()

	reg, models, blobs := newRegistry(t, registry.Config{})
	ctx := context.Background()
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})
	_, err := reg.Train(ctx, id, testhelpers.SeparableExamples())
	require.NoError(t, err)
	require.NoError(t, reg.Activate(ctx, id))
	blobs.LoadDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, p, activeErr := reg.Active(ctx, domain.DefaultModelType)
			assert.NoError(t, activeErr)
			assert.True(t, p.Fitted())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), blobs.Loads())
	assert.True(t, reg.Cached(id))
}

func TestTrain_InvalidatesCache(t *testing.T) {
	t.Parallel()

	reg, models, blobs := newRegistry(t, registry.Config{})
	ctx := context.Background()
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})
	_, err := reg.Train(ctx, id, testhelpers.SeparableExamples())
	require.NoError(t, err)
	require.NoError(t, reg.Activate(ctx, id))

	_, _, err = reg.Active(ctx, domain.DefaultModelType)
	require.NoError(t, err)
	first, err := reg.Get(ctx, id)
	require.NoError(t, err)

	_, err = reg.Train(ctx, id, testhelpers.SeparableExamples())
	require.NoError(t, err)
	assert.False(t, reg.Cached(id))
	assert.False(t, blobs.Has(first.BlobKey), "previous blob removed")
	assert.Equal(t, 1, blobs.Len())

	_, _, err = reg.Active(ctx, domain.DefaultModelType)
	require.NoError(t, err)
	assert.Equal(t, int64(2), blobs.Loads())
}

func TestActive_LoadFinishingAfterRetrainIsNotServed(t *testing.T) {
	t.Parallel()

	reg, models, blobs := newRegistry(t, registry.Config{})
	ctx := context.Background()
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})
	_, err := reg.Train(ctx, id, testhelpers.SeparableExamples())
	require.NoError(t, err)
	require.NoError(t, reg.Activate(ctx, id))

	loaded := make(chan struct{})
	release := make(chan struct{})
	var gate sync.Once
	blobs.OnLoaded = func(string) {
		gate.Do(func() {
			close(loaded)
			<-release
		})
	}

	done := make(chan error, 1)
	go func() {
		_, _, activeErr := reg.Active(ctx, domain.DefaultModelType)
		done <- activeErr
	}()
	<-loaded

	relabeled := testhelpers.SeparableExamples()
	for i := range relabeled {
		relabeled[i].Category = "Nouveau " + relabeled[i].Category
	}
	_, err = reg.Train(ctx, id, relabeled)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	current, err := reg.Get(ctx, id)
	require.NoError(t, err)

	m, p, err := reg.Active(ctx, domain.DefaultModelType)
	require.NoError(t, err)
	assert.Equal(t, current.BlobKey, m.BlobKey)
	assert.Equal(t, []string{"Nouveau Eau", "Nouveau Vivres"}, p.Classes())
}

func TestTrain_UpdateFailureKeepsPreviousState(t *testing.T) {
	t.Parallel()

	reg, models, blobs := newRegistry(t, registry.Config{})
	ctx := context.Background()
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})
	models.UpdateErr = errors.New("disk full")

	_, err := reg.Train(ctx, id, testhelpers.SeparableExamples())
	require.Error(t, err)
	assert.Zero(t, blobs.Len())

	m, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, m.IsTrained)
}

func TestRecordUsage(t *testing.T) {
	t.Parallel()

	reg, models, _ := newRegistry(t, registry.Config{})
	id := models.Put(domain.Model{ModelType: domain.DefaultModelType})

	ctx, cancel := context.WithCancel(context.Background())
	for range 3 {
		reg.RecordUsage(ctx, id)
	}
	cancel()
	reg.Wait()

	m, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.UsageCount)
	assert.NotNil(t, m.LastUsed)
}

func TestRecordUsage_FailureIsSwallowed(t *testing.T) {
	t.Parallel()

	reg, models, _ := newRegistry(t, registry.Config{})
	models.UsageErr = errors.New("locked")

	reg.RecordUsage(context.Background(), 1)
	reg.Wait()
}

func TestCreateAndTrain(t *testing.T) {
	t.Parallel()

	reg, models, _ := newRegistry(t, registry.Config{MinSamplesPerCategory: 5, Seed: 42})
	ctx := context.Background()
	previous := models.Put(domain.Model{ModelType: domain.DefaultModelType, IsTrained: true, IsActive: true})

	examples := append(testhelpers.SeparableExamples(),
		nlp.Example{Text: "tente bâche", Category: "Abri"},
	)
	report, err := reg.CreateAndTrain(ctx, registry.CreateRequest{
		Name:     "auto",
		Examples: examples,
		Activate: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Abri"}, report.Skipped)
	assert.Equal(t, 8, report.TrainSize)
	assert.Equal(t, 2, report.TestSize)
	assert.Equal(t, 8, report.Metrics.Size)
	assert.Equal(t, registry.DefaultVersion, report.Model.Version)
	assert.Equal(t, domain.ModelStateTrainedActive, report.Model.State())

	m, err := reg.Get(ctx, previous)
	require.NoError(t, err)
	assert.False(t, m.IsActive)
	assert.Equal(t, 1, models.ActiveCount(domain.DefaultModelType))
}

func TestCreateAndTrain_NeedsTwoCategories(t *testing.T) {
	t.Parallel()

	reg, _, blobs := newRegistry(t, registry.Config{})
	_, err := reg.CreateAndTrain(context.Background(), registry.CreateRequest{
		Name:       "single",
		Examples:   testhelpers.SeparableExamples()[:5],
		MinSamples: 2,
	})
	require.ErrorIs(t, err, nlp.ErrInsufficientTrainingData)
	assert.Zero(t, blobs.Len())
}
