// Package registry tracks trained statistical models: which one is active per model type,
// their trained state in the blob store, and an in-process cache of loaded pipelines.
//
// A loaded pipeline is cached under its model id together with the blob key it was read
// from. Every retraining writes a new blob key, so a cached entry whose key no longer
// matches the stored model row is treated as a miss, whichever process retrained it.
// Invalidate only frees the memory early.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/yaroing/feedback-platform/internal/database"
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

var (
	// ErrModelNotFound means no registry entry has the requested id.
	ErrModelNotFound = errors.New("model not found")
	// ErrModelNotTrained means an untrained model was asked to become active.
	ErrModelNotTrained = errors.New("model is not trained")
	// ErrTrainingInProgress means another training run holds the model.
	ErrTrainingInProgress = errors.New("training already in progress for model")
)

const usageWriteTimeout = 5 * time.Second

// ModelStore persists registry entries. database.ModelRepository implements it; lookups
// of missing rows return database.ErrNotFound.
type ModelStore interface {
	Get(ctx context.Context, id int64) (*domain.Model, error)
	List(ctx context.Context) ([]domain.Model, error)
	FindActive(ctx context.Context, modelType string) (*domain.Model, error)
	Create(ctx context.Context, m *domain.Model) error
	UpdateTraining(ctx context.Context, m *domain.Model) error
	Activate(ctx context.Context, id int64) error
	IncrementUsage(ctx context.Context, id int64, at time.Time) error
}

// BlobStore holds serialized pipelines. Missing keys yield an error matching
// nlp.ErrSerialization.
type BlobStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config tunes training.
type Config struct {
	Pipeline              nlp.Config
	MinSamplesPerCategory int
	TestSize              float64
	Seed                  uint64
}

// Registry is the model registry and pipeline cache. It is safe for concurrent use.
type Registry struct {
	models    ModelStore
	blobs     BlobStore
	cfg       Config
	logger    infralogger.Logger
	telemetry *telemetry.Provider
	now       func() time.Time

	mu    sync.RWMutex
	cache map[int64]cachedPipeline
	loads singleflight.Group

	trainMu  sync.Mutex
	training map[int64]struct{}

	usage sync.WaitGroup
}

// New builds a registry. A nil logger discards output.
func New(models ModelStore, blobs BlobStore, cfg Config, logger infralogger.Logger, tp *telemetry.Provider) *Registry {
	if logger == nil {
		logger = infralogger.NewNop()
	}
	return &Registry{
		models:    models,
		blobs:     blobs,
		cfg:       cfg,
		logger:    logger,
		telemetry: tp,
		now:       time.Now,
		cache:     make(map[int64]cachedPipeline),
		training:  make(map[int64]struct{}),
	}
}

// List returns every registry entry.
func (r *Registry) List(ctx context.Context) ([]domain.Model, error) {
	models, err := r.models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}

// Get returns one registry entry.
func (r *Registry) Get(ctx context.Context, id int64) (*domain.Model, error) {
	m, err := r.models.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("model %d: %w", id, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get model %d: %w", id, err)
	}
	return m, nil
}

// Active returns the active model of modelType with its loaded pipeline. It fails with
// an error matching nlp.ErrModelUnavailable when no model is active, the active model
// is untrained, or its blob cannot be loaded.
func (r *Registry) Active(ctx context.Context, modelType string) (*domain.Model, *nlp.Pipeline, error) {
	m, err := r.models.FindActive(ctx, modelType)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, fmt.Errorf("no active %q model: %w", modelType, nlp.ErrModelUnavailable)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find active model: %w", err)
	}
	if !m.IsTrained || m.BlobKey == "" {
		return nil, nil, fmt.Errorf("active model %d is untrained: %w", m.ID, nlp.ErrModelUnavailable)
	}

	p, err := r.pipeline(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return m, p, nil
}

type cachedPipeline struct {
	blobKey  string
	pipeline *nlp.Pipeline
}

// lookup returns the cached pipeline of m if it was loaded from m's current blob.
func (r *Registry) lookup(m *domain.Model) (*nlp.Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[m.ID]
	if !ok || entry.blobKey != m.BlobKey {
		return nil, false
	}
	return entry.pipeline, true
}

// pipeline returns the cached pipeline of m, loading it at most once per cache miss
// even under concurrent callers.
func (r *Registry) pipeline(ctx context.Context, m *domain.Model) (*nlp.Pipeline, error) {
	if p, ok := r.lookup(m); ok {
		r.telemetry.RecordCacheHit(ctx)
		return p, nil
	}

	key := strconv.FormatInt(m.ID, 10) + "/" + m.BlobKey
	v, err, _ := r.loads.Do(key, func() (any, error) {
		if cached, hit := r.lookup(m); hit {
			return cached, nil
		}

		loaded, loadErr := r.load(ctx, m)
		r.telemetry.RecordModelLoad(ctx, loadErr == nil)
		if loadErr != nil {
			r.logger.Warn("Failed to load model blob",
				infralogger.Int64("model_id", m.ID),
				infralogger.String("blob_key", m.BlobKey),
				infralogger.Error(loadErr),
			)
			return nil, loadErr
		}

		r.mu.Lock()
		r.cache[m.ID] = cachedPipeline{blobKey: m.BlobKey, pipeline: loaded}
		r.mu.Unlock()

		r.logger.Info("Model loaded into cache",
			infralogger.Int64("model_id", m.ID),
			infralogger.Strings("classes", loaded.Classes()),
		)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*nlp.Pipeline), nil
}

func (r *Registry) load(ctx context.Context, m *domain.Model) (*nlp.Pipeline, error) {
	data, err := r.blobs.Load(ctx, m.BlobKey)
	if err != nil {
		if errors.Is(err, nlp.ErrSerialization) {
			return nil, fmt.Errorf("load model %d: %w", m.ID, err)
		}
		return nil, fmt.Errorf("load model %d: %w: %w", m.ID, nlp.ErrSerialization, err)
	}
	p, err := nlp.Load(data)
	if err != nil {
		return nil, fmt.Errorf("decode model %d: %w", m.ID, err)
	}
	return p, nil
}

// Invalidate drops the cached pipeline of modelID; the next Active call reloads it.
func (r *Registry) Invalidate(modelID int64) {
	r.mu.Lock()
	delete(r.cache, modelID)
	r.mu.Unlock()
}

// Cached reports whether modelID has a loaded pipeline.
func (r *Registry) Cached(modelID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cache[modelID]
	return ok
}

// Activate makes modelID the active model of its type. Every sibling of the same type
// is deactivated in the same store transaction. Activating the active model is a no-op.
func (r *Registry) Activate(ctx context.Context, modelID int64) error {
	m, err := r.Get(ctx, modelID)
	if err != nil {
		return err
	}
	if !m.IsTrained {
		return fmt.Errorf("activate model %d: %w", modelID, ErrModelNotTrained)
	}
	if m.IsActive {
		return nil
	}

	if err = r.models.Activate(ctx, modelID); err != nil {
		return fmt.Errorf("activate model %d: %w", modelID, err)
	}

	r.logger.Info("Model activated",
		infralogger.Int64("model_id", modelID),
		infralogger.String("model_type", m.ModelType),
	)
	return nil
}

// RecordUsage increments the usage counter of modelID in the background. Failures are
// logged and counted, never returned.
func (r *Registry) RecordUsage(ctx context.Context, modelID int64) {
	at := r.now()
	r.usage.Add(1)
	go func() {
		defer r.usage.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageWriteTimeout)
		defer cancel()

		if err := r.models.IncrementUsage(writeCtx, modelID, at); err != nil {
			r.telemetry.RecordUsageWriteFailure(writeCtx)
			r.logger.Warn("Failed to record model usage",
				infralogger.Int64("model_id", modelID),
				infralogger.Error(err),
			)
		}
	}()
}

// Wait blocks until pending usage writes finish.
func (r *Registry) Wait() {
	r.usage.Wait()
}

func (r *Registry) beginTraining(modelID int64) error {
	r.trainMu.Lock()
	defer r.trainMu.Unlock()
	if _, busy := r.training[modelID]; busy {
		return fmt.Errorf("model %d: %w", modelID, ErrTrainingInProgress)
	}
	r.training[modelID] = struct{}{}
	return nil
}

func (r *Registry) endTraining(modelID int64) {
	r.trainMu.Lock()
	delete(r.training, modelID)
	r.trainMu.Unlock()
}

func (r *Registry) startSpan(ctx context.Context, name string, modelID int64) (context.Context, func()) {
	ctx, span := r.telemetry.StartSpan(ctx, name, attribute.Int64("model_id", modelID))
	return ctx, func() { span.End() }
}
